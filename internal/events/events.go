// Package events fans state changes out to any number of subscribers,
// typically SSE clients. Publishing never blocks: a subscriber that
// cannot keep up loses events rather than stalling the feed loop.
package events

import (
	"sync"

	"github.com/charmbracelet/log"
)

// Event is one change notification. Type names the change
// ("packet", "message", "own_position", "status", "cull", "init")
// and Data carries the JSON-ready payload.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

const subscriberBuffer = 100

// Broadcaster is a fan-out hub for Events.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a new subscriber and returns its channel.
// The caller must eventually call Unsubscribe with the same channel.
func (b *Broadcaster) Subscribe() chan Event {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broadcaster) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish delivers ev to every subscriber whose buffer has room.
func (b *Broadcaster) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
			log.Debug("Dropping event for slow subscriber", "type", ev.Type)
		}
	}
}

// SubscriberCount reports how many subscribers are attached.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
