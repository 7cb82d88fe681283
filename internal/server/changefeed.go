package server

import (
	"context"
	"sync"
	"time"
)

const (
	ChangeEventLinks    = "links-changed"
	ChangeEventCustomer = "customer-changed"
	changeEventPing     = "heartbeat"
)

// ChangeEvent tells open boards that shared data moved under them.
type ChangeEvent struct {
	Type      string    `json:"type"`
	Action    string    `json:"action,omitempty"`
	LinkID    int64     `json:"link_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ChangeFeed fans events out to every subscriber. Slow subscribers miss events
// instead of blocking publishers.
type ChangeFeed struct {
	mu          sync.RWMutex
	subscribers map[int64]chan ChangeEvent
	nextID      int64
	bufferSize  int
}

func NewChangeFeed() *ChangeFeed {
	return &ChangeFeed{
		subscribers: make(map[int64]chan ChangeEvent),
		bufferSize:  16,
	}
}

// Subscribe registers a listener until ctx ends or the returned cleanup runs.
func (f *ChangeFeed) Subscribe(ctx context.Context) (<-chan ChangeEvent, func()) {
	stream := make(chan ChangeEvent, f.bufferSize)

	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.subscribers[id] = stream
	f.mu.Unlock()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subscribers, id)
			f.mu.Unlock()
		})
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return stream, cleanup
}

func (f *ChangeFeed) Publish(event ChangeEvent) {
	if f == nil || event.Type == "" {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	f.mu.RLock()
	streams := make([]chan ChangeEvent, 0, len(f.subscribers))
	for _, stream := range f.subscribers {
		streams = append(streams, stream)
	}
	f.mu.RUnlock()

	for _, stream := range streams {
		select {
		case stream <- event:
		default:
		}
	}
}

// SubscriberCount reports the number of live subscriptions.
func (f *ChangeFeed) SubscriberCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subscribers)
}
