package server

import (
	"context"
	"testing"
	"time"
)

func TestChangeFeedDeliversToEverySubscriber(t *testing.T) {
	feed := NewChangeFeed()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, cleanupFirst := feed.Subscribe(ctx)
	defer cleanupFirst()
	second, cleanupSecond := feed.Subscribe(ctx)
	defer cleanupSecond()

	feed.Publish(ChangeEvent{Type: ChangeEventLinks, Action: "create", LinkID: 4})

	for _, stream := range []<-chan ChangeEvent{first, second} {
		select {
		case event := <-stream:
			if event.LinkID != 4 || event.Timestamp.IsZero() {
				t.Fatalf("unexpected event %#v", event)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber did not receive event")
		}
	}
}

func TestChangeFeedDropsEventsForSlowSubscribers(t *testing.T) {
	feed := NewChangeFeed()
	_, cleanup := feed.Subscribe(context.Background())
	defer cleanup()

	done := make(chan struct{})
	go func() {
		for index := 0; index < feed.bufferSize*4; index++ {
			feed.Publish(ChangeEvent{Type: ChangeEventLinks})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("publish blocked on a full subscriber")
	}
}

func TestChangeFeedIgnoresUntypedEvents(t *testing.T) {
	feed := NewChangeFeed()
	stream, cleanup := feed.Subscribe(context.Background())
	defer cleanup()

	feed.Publish(ChangeEvent{})
	select {
	case event := <-stream:
		t.Fatalf("unexpected event %#v", event)
	default:
	}
}

func TestChangeFeedUnsubscribesOnContextCancel(t *testing.T) {
	feed := NewChangeFeed()
	ctx, cancel := context.WithCancel(context.Background())
	_, cleanup := feed.Subscribe(ctx)
	defer cleanup()

	if feed.SubscriberCount() != 1 {
		t.Fatalf("expected one subscriber, got %d", feed.SubscriberCount())
	}
	cancel()

	deadline := time.Now().Add(time.Second)
	for feed.SubscriberCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber not removed after cancel")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cleanup()
}
