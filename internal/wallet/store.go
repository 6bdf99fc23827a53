package wallet

import (
	"log/slog"
	"sync"
)

// Store owns the wallet state for the process. It is safe for concurrent use;
// every mutation is applied and fanned out to subscribers under one lock so an
// observer never sees a half-installed key pair.
type Store struct {
	mu     sync.RWMutex
	state  State
	subs   map[*Subscription]struct{}
	closed bool
	logger *slog.Logger
}

// NewStore builds a container holding sentinel identity values and the given
// starting balance.
func NewStore(initialBalance float64, logger *slog.Logger) *Store {
	return &Store{
		state: State{
			PublicKey: "",
			SecretKey: []byte{},
			Balance:   initialBalance,
		},
		subs:   make(map[*Subscription]struct{}),
		logger: logger,
	}
}

// InitializeWallet installs the key pair. The balance is left untouched and
// calling it again replaces the previous pair.
func (s *Store) InitializeWallet(kp KeyPair) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.PublicKey = kp.PublicKey
	s.state.SecretKey = cloneKey(kp.SecretKey)
	s.state.Initialized = true
	s.state.Version++

	if s.logger != nil {
		s.logger.Info("wallet initialized",
			slog.String("public_key", kp.PublicKey),
			slog.Uint64("version", s.state.Version),
		)
	}
	s.publishLocked(EventWalletInitialized)
}

// UpdateBalance replaces the balance. Any value is accepted.
func (s *Store) UpdateBalance(balance float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Balance = balance
	s.state.Version++

	if s.logger != nil {
		s.logger.Debug("wallet balance updated",
			slog.Float64("balance", balance),
			slog.Uint64("version", s.state.Version),
		)
	}
	s.publishLocked(EventBalanceUpdated)
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Subscribe registers an observer. The returned subscription receives one
// Event per mutation; when its buffer is full the oldest pending event is
// dropped so the observer always ends on the latest state. A buffer below one
// is raised to one. Subscribing to a closed store yields an already closed
// subscription.
func (s *Store) Subscribe(buffer int) *Subscription {
	if buffer < 1 {
		buffer = 1
	}
	sub := &Subscription{store: s, ch: make(chan Event, buffer)}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		sub.closeLocked()
		return sub
	}
	s.subs[sub] = struct{}{}
	return sub
}

// Close ends every subscription. Mutations keep working afterwards but are no
// longer delivered.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for sub := range s.subs {
		sub.closeLocked()
	}
	s.subs = nil
}

// Subscribers reports the number of live subscriptions.
func (s *Store) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// publishLocked must be called with s.mu held for writing. Only the store
// sends on subscription channels, so after draining one slot the send below
// cannot block.
func (s *Store) publishLocked(kind EventKind) {
	for sub := range s.subs {
		ev := Event{Kind: kind, State: s.state.clone()}
		select {
		case sub.ch <- ev:
		default:
			select {
			case <-sub.ch:
				sub.dropped++
			default:
			}
			sub.ch <- ev
		}
	}
}

func (s *Store) unsubscribe(sub *Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[sub]; !ok {
		return
	}
	delete(s.subs, sub)
	sub.closeLocked()
}
