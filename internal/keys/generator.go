// Package keys generates and encodes wallet key pairs.
package keys

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/nacl/sign"

	"github.com/congo-pay/walletstate/internal/wallet"
)

// PublicKeySize is the length of a decoded ed25519 public key.
const PublicKeySize = 32

// Ed25519Generator produces ed25519 key pairs. The public key is base58 text
// and the secret key is the 64-byte private key (seed followed by public key).
type Ed25519Generator struct {
	// Rand overrides the entropy source; crypto/rand is used when nil.
	Rand io.Reader
}

// Generate implements wallet.KeyGenerator.
func (g Ed25519Generator) Generate() (wallet.KeyPair, error) {
	src := g.Rand
	if src == nil {
		src = rand.Reader
	}
	pub, priv, err := sign.GenerateKey(src)
	if err != nil {
		return wallet.KeyPair{}, fmt.Errorf("generate ed25519 key: %w", err)
	}
	return wallet.KeyPair{
		PublicKey: EncodePublicKey(pub[:]),
		SecretKey: append([]byte(nil), priv[:]...),
	}, nil
}

// EncodePublicKey renders raw public key bytes as base58.
func EncodePublicKey(raw []byte) string {
	return base58.Encode(raw)
}

// DecodePublicKey parses base58 text and checks the decoded length.
func DecodePublicKey(text string) ([]byte, error) {
	raw, err := base58.Decode(text)
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	if len(raw) != PublicKeySize {
		return nil, fmt.Errorf("public key must be %d bytes, got %d", PublicKeySize, len(raw))
	}
	return raw, nil
}

// Verify reports whether message was signed by the secret key of pair.
func Verify(pair wallet.KeyPair, message, signed []byte) bool {
	raw, err := DecodePublicKey(pair.PublicKey)
	if err != nil {
		return false
	}
	var pub [PublicKeySize]byte
	copy(pub[:], raw)
	opened, ok := sign.Open(nil, signed, &pub)
	return ok && string(opened) == string(message)
}

// Sign signs message with the pair's secret key, returning signature||message.
func Sign(pair wallet.KeyPair, message []byte) ([]byte, error) {
	if len(pair.SecretKey) != 64 {
		return nil, fmt.Errorf("secret key must be 64 bytes, got %d", len(pair.SecretKey))
	}
	var priv [64]byte
	copy(priv[:], pair.SecretKey)
	return sign.Sign(nil, message, &priv), nil
}
