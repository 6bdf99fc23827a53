package wallet

// Subscription is an observer registration on a Store.
type Subscription struct {
	store   *Store
	ch      chan Event
	closed  bool
	dropped uint64
}

// Events returns the delivery channel. It is closed by Unsubscribe or when the
// store closes.
func (sub *Subscription) Events() <-chan Event {
	return sub.ch
}

// Unsubscribe stops delivery and closes the channel. It may be called any
// number of times.
func (sub *Subscription) Unsubscribe() {
	sub.store.unsubscribe(sub)
}

// Dropped reports how many stale events were discarded because the observer
// fell behind.
func (sub *Subscription) Dropped() uint64 {
	sub.store.mu.RLock()
	defer sub.store.mu.RUnlock()
	return sub.dropped
}

// closeLocked runs with the owning store's lock held.
func (sub *Subscription) closeLocked() {
	if sub.closed {
		return
	}
	sub.closed = true
	close(sub.ch)
}
