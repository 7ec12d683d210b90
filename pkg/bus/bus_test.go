package bus

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemoryBus_PublishSubscribe(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	ctx := context.Background()
	received := make(chan *Message, 1)

	sub, err := bus.Subscribe(ctx, "movie.session.abc.frame", func(msg *Message) {
		received <- msg
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Unsubscribe()

	if err := bus.Publish(ctx, "movie.session.abc.frame", []byte("hello")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case msg := <-received:
		if string(msg.Data) != "hello" {
			t.Errorf("Expected 'hello', got %q", string(msg.Data))
		}
		if msg.Subject != "movie.session.abc.frame" {
			t.Errorf("Expected subject 'movie.session.abc.frame', got %q", msg.Subject)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for message")
	}
}

func TestMemoryBus_SessionScopedWildcard(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	ctx := context.Background()
	var received atomic.Int32

	sub, err := bus.Subscribe(ctx, "movie.session.abc.>", func(msg *Message) {
		received.Add(1)
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Unsubscribe()

	bus.Publish(ctx, "movie.session.abc.frame", []byte("1"))
	bus.Publish(ctx, "movie.session.abc.subtitle", []byte("2"))
	bus.Publish(ctx, "movie.session.other.frame", []byte("3")) // different session

	time.Sleep(100 * time.Millisecond)

	if received.Load() != 2 {
		t.Errorf("Expected 2 messages, got %d", received.Load())
	}
}

func TestMemoryBus_SingleTokenWildcard(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	ctx := context.Background()
	var received atomic.Int32

	sub, err := bus.Subscribe(ctx, "movie.session.*.memory", func(msg *Message) {
		received.Add(1)
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Unsubscribe()

	bus.Publish(ctx, "movie.session.abc.memory", []byte("1"))
	bus.Publish(ctx, "movie.session.xyz.memory", []byte("2"))
	bus.Publish(ctx, "movie.session.abc.frame", []byte("3")) // wrong suffix

	time.Sleep(100 * time.Millisecond)

	if received.Load() != 2 {
		t.Errorf("Expected 2 messages, got %d", received.Load())
	}
}

func TestMemoryBus_UnsubscribeStopsDelivery(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	ctx := context.Background()
	var received atomic.Int32

	sub, err := bus.Subscribe(ctx, "movie.session.abc.frame", func(msg *Message) {
		received.Add(1)
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	bus.Publish(ctx, "movie.session.abc.frame", []byte("1"))
	time.Sleep(50 * time.Millisecond)

	if err := sub.Unsubscribe(); err != nil {
		t.Fatalf("Unsubscribe failed: %v", err)
	}
	// Second call is a no-op.
	if err := sub.Unsubscribe(); err != nil {
		t.Fatalf("second Unsubscribe failed: %v", err)
	}

	bus.Publish(ctx, "movie.session.abc.frame", []byte("2"))
	time.Sleep(50 * time.Millisecond)

	if received.Load() != 1 {
		t.Errorf("Expected 1 message after unsubscribe, got %d", received.Load())
	}
}

func TestMemoryBus_LateSubscriberSeesNothing(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	ctx := context.Background()

	bus.Publish(ctx, "movie.session.abc.frame", []byte("early"))

	var received atomic.Int32
	sub, err := bus.Subscribe(ctx, "movie.session.abc.>", func(msg *Message) {
		received.Add(1)
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Unsubscribe()

	time.Sleep(50 * time.Millisecond)

	if received.Load() != 0 {
		t.Errorf("Late subscriber received %d messages, want 0", received.Load())
	}
}

func TestMemoryBus_ClosedBusRejectsOperations(t *testing.T) {
	bus := NewMemoryBus()
	bus.Close()

	ctx := context.Background()

	if err := bus.Publish(ctx, "movie.session.abc.frame", nil); err != ErrClosed {
		t.Errorf("Publish on closed bus: got %v, want ErrClosed", err)
	}
	if _, err := bus.Subscribe(ctx, "movie.session.abc.>", func(*Message) {}); err != ErrClosed {
		t.Errorf("Subscribe on closed bus: got %v, want ErrClosed", err)
	}
}

func TestMatchSubject(t *testing.T) {
	cases := []struct {
		pattern string
		subject string
		want    bool
	}{
		{"movie.session.abc.frame", "movie.session.abc.frame", true},
		{"movie.session.abc.>", "movie.session.abc.frame", true},
		{"movie.session.abc.>", "movie.session.abc.frame.extra", true},
		{"movie.session.abc.>", "movie.session.abc", false},
		{"movie.session.*.frame", "movie.session.xyz.frame", true},
		{"movie.session.*.frame", "movie.session.xyz.subtitle", false},
		{"movie.>", "other.session", false},
	}

	for _, tc := range cases {
		if got := matchSubject(tc.pattern, tc.subject); got != tc.want {
			t.Errorf("matchSubject(%q, %q) = %v, want %v", tc.pattern, tc.subject, got, tc.want)
		}
	}
}
