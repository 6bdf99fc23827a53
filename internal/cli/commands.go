// Package cli implements the walletctl operator commands.
package cli

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/congo-pay/walletstate/internal/keys"
	"github.com/congo-pay/walletstate/internal/notification"
)

const defaultAddr = "http://localhost:8080"

// NewRootCmd builds the walletctl command tree writing to out.
func NewRootCmd(out io.Writer) *cobra.Command {
	client := &Client{}

	root := &cobra.Command{
		Use:           "walletctl",
		Short:         "Wallet state CLI",
		Long:          "A command-line tool for reading and updating a walletstate service.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&client.BaseURL, "addr", envOr("WALLETCTL_ADDR", defaultAddr), "walletstate API base URL")
	root.PersistentFlags().DurationVar(&client.Timeout, "timeout", defaultTimeout, "request timeout")

	root.AddCommand(
		newShowCmd(client),
		newInitCmd(client),
		newBalanceCmd(client),
		newKeygenCmd(),
		newWatchCmd(),
	)
	return root
}

func newShowCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the wallet public key and balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			view, err := client.Get()
			if err != nil {
				return err
			}
			printView(cmd.OutOrStdout(), view)
			return nil
		},
	}
}

func newInitCmd(client *Client) *cobra.Command {
	var (
		publicKey string
		secretKey string
		generate  bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Install a key pair in the wallet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := InitializeRequest{PublicKey: publicKey, Generate: generate}
			if secretKey != "" {
				raw, err := base64.StdEncoding.DecodeString(secretKey)
				if err != nil {
					return fmt.Errorf("secret key must be base64: %w", err)
				}
				req.SecretKey = raw
			}
			view, err := client.Initialize(req)
			if err != nil {
				return err
			}
			printView(cmd.OutOrStdout(), view)
			return nil
		},
	}
	cmd.Flags().StringVar(&publicKey, "public-key", "", "public identifier to install")
	cmd.Flags().StringVar(&secretKey, "secret-key", "", "base64 secret key material to install")
	cmd.Flags().BoolVar(&generate, "generate", false, "let the server generate a fresh key pair")
	cmd.MarkFlagsMutuallyExclusive("generate", "public-key")
	cmd.MarkFlagsMutuallyExclusive("generate", "secret-key")
	return cmd
}

func newBalanceCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <amount>",
		Short: "Replace the wallet balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[0], err)
			}
			view, err := client.SetBalance(amount)
			if err != nil {
				return err
			}
			printView(cmd.OutOrStdout(), view)
			return nil
		},
	}
}

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate an ed25519 key pair locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pair, err := keys.Ed25519Generator{}.Generate()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Public Key: %s\n", pair.PublicKey)
			fmt.Fprintf(cmd.OutOrStdout(), "Secret Key: %s\n", base64.StdEncoding.EncodeToString(pair.SecretKey))
			return nil
		},
	}
}

func newWatchCmd() *cobra.Command {
	var redisURL, channel string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print wallet changes published on Redis",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opt, err := redis.ParseURL(redisURL)
			if err != nil {
				return fmt.Errorf("parse redis url: %w", err)
			}
			cache := redis.NewClient(opt)
			defer cache.Close()

			ctx := cmd.Context()
			pubsub := cache.Subscribe(ctx, channel)
			defer pubsub.Close()
			if _, err := pubsub.Receive(ctx); err != nil {
				return fmt.Errorf("subscribe %s: %w", channel, err)
			}

			out := cmd.OutOrStdout()
			msgs := pubsub.Channel()
			for {
				select {
				case <-ctx.Done():
					return nil
				case msg, ok := <-msgs:
					if !ok {
						return nil
					}
					var m notification.Message
					if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
						fmt.Fprintf(out, "undecodable message: %s\n", msg.Payload)
						continue
					}
					fmt.Fprintf(out, "[v%d] %s public_key=%q balance=%g\n", m.Version, m.Kind, m.PublicKey, m.Balance)
				}
			}
		},
	}
	cmd.Flags().StringVar(&redisURL, "redis-url", envOr("REDIS_URL", "redis://localhost:6379/0"), "Redis URL")
	cmd.Flags().StringVar(&channel, "channel", envOr("WALLET_EVENTS_CHANNEL", "wallet:events"), "events channel")
	return cmd
}

func printView(w io.Writer, v WalletView) {
	fmt.Fprintf(w, "Public Key: %s\n", v.PublicKey)
	fmt.Fprintf(w, "Balance: %g\n", v.Balance)
	fmt.Fprintf(w, "Initialized: %v\n", v.Initialized)
	fmt.Fprintf(w, "Version: %d\n", v.Version)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
