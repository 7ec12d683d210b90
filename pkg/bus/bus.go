// Package bus provides the publish/subscribe channel used to fan captured
// artifacts out to live observers. Subjects are dot-separated with one
// namespace per session (e.g. "movie.session.<id>.frame"), so subscriptions
// scope naturally to a single session. The default implementation is
// in-memory; a NATS-backed option exists for multi-process deployments.
package bus

import (
	"context"
	"errors"
)

// ErrClosed is returned when operating on a closed bus or subscription.
var ErrClosed = errors.New("bus or subscription closed")

// EventBus is the fan-out transport. Implementations must be safe for
// concurrent use. Delivery is best-effort: a slow subscriber never blocks
// or fails a publish.
type EventBus interface {
	// Publish sends a message to all current subscribers of the subject.
	// Subscribers that join after Publish returns do not see the message.
	Publish(ctx context.Context, subject string, data []byte) error

	// Subscribe registers a handler for messages matching the subject
	// pattern. Wildcards: "*" matches one token, ">" matches the rest
	// ("movie.session.abc.>" matches every event of session abc).
	Subscribe(ctx context.Context, subject string, handler Handler) (Subscription, error)

	// Close shuts down the bus and all subscriptions.
	Close() error
}

// Handler processes incoming messages. Called from a delivery goroutine.
type Handler func(msg *Message)

// Message is an event delivered to a subscriber.
type Message struct {
	Subject string
	Data    []byte
}

// Subscription is an active subscription that can be cancelled.
type Subscription interface {
	// Unsubscribe stops delivery and releases resources. Idempotent.
	Unsubscribe() error

	// Subject returns the subject pattern this subscription is for.
	Subject() string
}
