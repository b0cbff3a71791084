package fanout

import (
	"context"
	"sync"
)

// Broker carries lot frames between API replicas so every replica's hub sees
// every accepted bid.
type Broker interface {
	Publish(ctx context.Context, lotID string, frame []byte) error
	// Subscribe calls deliver for every frame until ctx is done.
	Subscribe(ctx context.Context, deliver func(lotID string, frame []byte)) error
}

// Local is an in-process Broker for single-replica deployments and tests.
type Local struct {
	mu   sync.RWMutex
	subs map[int]func(string, []byte)
	next int
}

func NewLocal() *Local {
	return &Local{subs: make(map[int]func(string, []byte))}
}

func (l *Local) Publish(ctx context.Context, lotID string, frame []byte) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, deliver := range l.subs {
		deliver(lotID, frame)
	}
	return nil
}

func (l *Local) Subscribe(ctx context.Context, deliver func(string, []byte)) error {
	l.mu.Lock()
	id := l.next
	l.next++
	l.subs[id] = deliver
	l.mu.Unlock()

	<-ctx.Done()

	l.mu.Lock()
	delete(l.subs, id)
	l.mu.Unlock()
	return nil
}

func (l *Local) subscribers() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.subs)
}

// Relay feeds every brokered frame into the hub until ctx is done.
func Relay(ctx context.Context, b Broker, h *Hub) error {
	return b.Subscribe(ctx, func(lotID string, frame []byte) {
		h.Publish(lotID, frame)
	})
}
