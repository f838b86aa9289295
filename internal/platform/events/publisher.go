// Package events publishes fire-and-forget domain events to NATS.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	SubjectCatalogSyncCompleted = "catalog.sync.completed"
	SubjectAuthRegistered       = "analytics.auth.registered"
	SubjectAuthLoggedIn         = "analytics.auth.logged_in"
)

// Event is the envelope sent on every subject.
type Event struct {
	EventID    string         `json:"event_id"`
	EventName  string         `json:"event_name"`
	UserID     string         `json:"user_id,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Publisher is safe to use as a nil pointer or with a nil connection; both are no-ops.
type Publisher struct {
	nc  *nats.Conn
	log *zap.Logger
}

func NewPublisher(nc *nats.Conn, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{nc: nc, log: log}
}

// Publish never returns an error; failures are logged as warnings.
func (p *Publisher) Publish(subject, eventName, userID string, props map[string]any) {
	if p == nil || p.nc == nil {
		return
	}
	data, err := json.Marshal(NewEvent(eventName, userID, props))
	if err != nil {
		p.log.Warn("events: marshal failed", zap.String("event", eventName), zap.Error(err))
		return
	}
	if err := p.nc.Publish(subject, data); err != nil {
		p.log.Warn("events: publish failed", zap.String("subject", subject), zap.Error(err))
	}
}

// Close drains the underlying connection.
func (p *Publisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		p.log.Warn("events: drain failed", zap.Error(err))
	}
}

func NewEvent(eventName, userID string, props map[string]any) Event {
	return Event{
		EventID:    uuid.NewString(),
		EventName:  eventName,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
		Properties: props,
	}
}
