package usecase

import (
	"errors"
	"sort"
	"sync"

	"TokenPull/internal/domain/models"
)

var (
	ErrSubscriptionClosed = errors.New("subscription closed")
	ErrBufferFull         = errors.New("subscription buffer full")
)

// Subscription is the outbound side of one push connection. Out is never
// closed; readers select on Done as well.
type Subscription struct {
	ID string

	out       chan models.OutboundMessage
	done      chan struct{}
	closeOnce sync.Once
}

func NewSubscription(id string, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = 16
	}
	return &Subscription{
		ID:   id,
		out:  make(chan models.OutboundMessage, buffer),
		done: make(chan struct{}),
	}
}

func (s *Subscription) Out() <-chan models.OutboundMessage { return s.out }

func (s *Subscription) Done() <-chan struct{} { return s.done }

func (s *Subscription) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Push enqueues msg without blocking. A closed subscription or a full buffer
// drops the message.
func (s *Subscription) Push(msg models.OutboundMessage) error {
	select {
	case <-s.done:
		return ErrSubscriptionClosed
	default:
	}
	select {
	case s.out <- msg:
		return nil
	default:
		return ErrBufferFull
	}
}

// SubscriberEntry pairs a subscription with its current view.
type SubscriberEntry struct {
	Sub  *Subscription
	View models.View
}

// SubscriptionRegistry maps subscriber id to subscription and view.
type SubscriptionRegistry struct {
	mu      sync.RWMutex
	entries map[string]SubscriberEntry
}

func NewSubscriptionRegistry() *SubscriptionRegistry {
	return &SubscriptionRegistry{entries: make(map[string]SubscriberEntry)}
}

// Add registers sub with v, replacing any entry with the same id.
func (r *SubscriptionRegistry) Add(sub *Subscription, v models.View) {
	r.mu.Lock()
	r.entries[sub.ID] = SubscriberEntry{Sub: sub, View: v}
	r.mu.Unlock()
}

// SetView replaces the view of id wholesale. It reports whether id exists.
func (r *SubscriptionRegistry) SetView(id string, v models.View) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return false
	}
	e.View = v
	r.entries[id] = e
	return true
}

// Remove deletes id and closes its subscription.
func (r *SubscriptionRegistry) Remove(id string) {
	r.mu.Lock()
	e, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()
	if ok {
		e.Sub.Close()
	}
}

func (r *SubscriptionRegistry) Get(id string) (SubscriberEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

// Entries returns a copy of all entries ordered by id.
func (r *SubscriptionRegistry) Entries() []SubscriberEntry {
	r.mu.RLock()
	out := make([]SubscriberEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Sub.ID < out[j].Sub.ID })
	return out
}

func (r *SubscriptionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// CloseAll removes and closes every subscription.
func (r *SubscriptionRegistry) CloseAll() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]SubscriberEntry)
	r.mu.Unlock()
	for _, e := range entries {
		e.Sub.Close()
	}
}
