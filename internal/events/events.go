// Package events publishes plan lifecycle events to NATS.
//
// Every plan the proxy returns is announced on a single subject (by default
// planner.plans.generated) as a JSON PlanGenerated message. Consumers such
// as `planctl watch` subscribe to the same subject.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "planner.plans.generated"

// PlanGenerated describes a plan returned by the proxy. The goal text is
// not included.
type PlanGenerated struct {
	RequestID   string    `json:"request_id,omitempty"`
	Title       string    `json:"title"`
	TimeHorizon string    `json:"time_horizon"`
	TaskCount   int       `json:"task_count"`
	Source      string    `json:"source"`
	Redacted    bool      `json:"redacted"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Publisher announces plan events.
type Publisher interface {
	PublishPlanGenerated(ctx context.Context, ev PlanGenerated) error
}

// NATSPublisher publishes events on a NATS connection.
type NATSPublisher struct {
	nc      *nats.Conn
	subject string
}

// NewNATSPublisher wraps an existing connection. An empty subject uses
// DefaultSubject.
func NewNATSPublisher(nc *nats.Conn, subject string) *NATSPublisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSPublisher{nc: nc, subject: subject}
}

// Subject returns the subject events are published on.
func (p *NATSPublisher) Subject() string {
	return p.subject
}

// PublishPlanGenerated marshals ev and publishes it.
func (p *NATSPublisher) PublishPlanGenerated(ctx context.Context, ev PlanGenerated) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal plan event: %w", err)
	}
	if err := p.nc.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish plan event: %w", err)
	}
	return nil
}

// Connect dials NATS with reconnect settings suitable for a long-running
// daemon.
func Connect(url string) (*nats.Conn, error) {
	if url == "" {
		return nil, errors.New("nats url is required")
	}
	nc, err := nats.Connect(url,
		nats.Name("planner"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(1*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return nc, nil
}

// Subscribe delivers decoded events on subject to fn until ctx is done.
// Undecodable messages are skipped.
func Subscribe(ctx context.Context, nc *nats.Conn, subject string, fn func(PlanGenerated)) error {
	if subject == "" {
		subject = DefaultSubject
	}

	ch := make(chan *nats.Msg, 64)
	sub, err := nc.ChanSubscribe(subject, ch)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-ch:
			var ev PlanGenerated
			if err := json.Unmarshal(msg.Data, &ev); err != nil {
				continue
			}
			fn(ev)
		}
	}
}

// Nop discards events.
type Nop struct{}

// PublishPlanGenerated implements Publisher.
func (Nop) PublishPlanGenerated(context.Context, PlanGenerated) error { return nil }

var (
	_ Publisher = (*NATSPublisher)(nil)
	_ Publisher = Nop{}
)
