package marketdata

import (
	"sync"
	"time"

	"grid-broker/internal/types"
)

type Event struct {
	Type types.EventType `json:"type"`
	Data any             `json:"data"`
	TS   int64           `json:"ts"`
}

// Publisher is the write side of the Bus, as used by the trading components.
type Publisher interface {
	Publish(evt Event)
}

// Bus fans events out to subscribers. Slow subscribers lose events rather than
// blocking the publisher.
type Bus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

func NewBus() *Bus {
	return &Bus{subs: make(map[chan Event]struct{})}
}

func (b *Bus) Subscribe() chan Event {
	ch := make(chan Event, 100)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Bus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

func (b *Bus) Publish(evt Event) {
	if evt.TS == 0 {
		evt.TS = time.Now().UnixMilli()
	}
	b.mu.RLock()
	for ch := range b.subs {
		select {
		case ch <- evt:
		default:
		}
	}
	b.mu.RUnlock()
}

func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(Event) {}
