// Package broadcast fans payload-free change signals out to subscribers.
// A signal only says "something changed on this topic"; receivers re-read state.
package broadcast

import (
	"context"
	"sync"
)

type Publisher interface {
	Publish(ctx context.Context, topic string) error
}

type Subscriber interface {
	// Subscribe returns a channel that receives a value after each publish on topic
	// and a cancel func that must be called to release it.
	Subscribe(topic string) (<-chan struct{}, func())
}

// Broadcaster is the in-process observer list.
type Broadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]chan struct{}
}

func New() *Broadcaster {
	return &Broadcaster{subs: make(map[string]map[int]chan struct{})}
}

// Publish never blocks. A subscriber that has not drained its previous signal
// keeps just one pending, which is enough since signals carry no data.
func (b *Broadcaster) Publish(_ context.Context, topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs[topic] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

func (b *Broadcaster) Subscribe(topic string) (<-chan struct{}, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan struct{}, 1)
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]chan struct{})
	}
	b.subs[topic][id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[topic], id)
			if len(b.subs[topic]) == 0 {
				delete(b.subs, topic)
			}
			close(ch)
		})
	}
	return ch, cancel
}

// Subscribers reports how many listeners a topic has.
func (b *Broadcaster) Subscribers(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[topic])
}
