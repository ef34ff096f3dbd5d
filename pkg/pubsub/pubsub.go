package pubsub

import (
	"context"
	"encoding/json"
	"time"
)

// TopicRefresh carries one event per refresh attempt of the report snapshot.
const TopicRefresh = "refresh"

// Refresh event types.
const (
	StateWaiting    = "waiting"    // report file not present yet
	StateRefreshing = "refreshing" // a refresh run started
	StateReady      = "ready"      // a new snapshot is available
	StateFailed     = "failed"     // the run failed; the previous snapshot stays current
)

// Event is one message on a topic.
type Event struct {
	Topic   string          `json:"topic"`
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
	Version int             `json:"version"` // per-topic, strictly increasing
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	Topic() string
	Events() <-chan Event
	Close() error
}

// Publisher manages pub/sub subscriptions and event publishing
type Publisher interface {
	// Subscribe creates a new subscription to a topic.
	// Context cancellation closes the subscription.
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Publish marshals data to JSON and sends it to every subscriber of topic.
	Publish(topic string, eventType string, data interface{}) error

	Close() error
}

// RefreshStatus is the payload of TopicRefresh events.
type RefreshStatus struct {
	State     string    `json:"state"`
	Reason    string    `json:"reason,omitempty"` // watcher, ticker, startup or manual
	Message   string    `json:"message,omitempty"`
	Rows      int       `json:"rows"`
	Skipped   int       `json:"skipped"`
	Nodes     int       `json:"nodes"`
	Edges     int       `json:"edges"`
	Ghosts    int       `json:"ghosts"`
	UpdatedAt time.Time `json:"updated_at"`
}
