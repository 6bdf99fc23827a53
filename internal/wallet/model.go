package wallet

// DefaultBalance is the mock balance a fresh container starts with.
const DefaultBalance = 5.0

// KeyPair is the public identifier and secret key material installed together
// by InitializeWallet.
type KeyPair struct {
	PublicKey string
	SecretKey []byte
}

// KeyGenerator produces key pairs for InitializeWallet.
type KeyGenerator interface {
	Generate() (KeyPair, error)
}

// State is a point-in-time copy of the container.
type State struct {
	PublicKey   string
	SecretKey   []byte
	Balance     float64
	Initialized bool
	Version     uint64
}

// EventKind names the mutation that produced an Event.
type EventKind string

const (
	// EventWalletInitialized follows InitializeWallet.
	EventWalletInitialized EventKind = "wallet_initialized"
	// EventBalanceUpdated follows UpdateBalance.
	EventBalanceUpdated EventKind = "balance_updated"
)

// Event is delivered to subscribers after every mutation and carries the full
// state as of that mutation.
type Event struct {
	Kind  EventKind
	State State
}

func (s State) clone() State {
	s.SecretKey = cloneKey(s.SecretKey)
	return s
}

// cloneKey copies key material, returning an empty non-nil slice for nil input.
func cloneKey(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
