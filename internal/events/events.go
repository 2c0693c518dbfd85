// Package events publishes lifecycle events for the notification and
// reporting consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/eduwork-api/internal/observability"
)

// Type names a lifecycle event.
type Type string

const (
	SubmissionSubmitted Type = "submission.submitted"
	EvaluationCreated   Type = "evaluation.created"
	EvaluationCorrected Type = "evaluation.corrected"
)

// Event is the payload published on the bus.
type Event struct {
	ID            string    `json:"id"`
	Type          Type      `json:"type"`
	OccurredAt    time.Time `json:"occurred_at"`
	ActorID       uint      `json:"actor_id"`
	WorkID        uint      `json:"work_id"`
	SubmissionID  uint      `json:"submission_id"`
	EvaluationID  uint      `json:"evaluation_id,omitempty"`
	StudentIDs    []uint    `json:"student_ids"`
	Late          bool      `json:"late,omitempty"`
	Grade         *float64  `json:"grade,omitempty"`
	PreviousGrade *float64  `json:"previous_grade,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// New stamps an event with a fresh identifier.
func New(eventType Type, occurredAt time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: occurredAt.UTC(),
	}
}

// Publisher hands lifecycle events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// BusPublisher fans events out to NATS subjects and a Redis pub/sub channel.
// Either transport may be nil.
type BusPublisher struct {
	nats          *nats.Conn
	redis         *redis.Client
	subjectPrefix string
	redisChannel  string
	logger        zerolog.Logger
}

// NewBusPublisher builds a publisher. Events go to "<prefix>.<type>" on NATS
// and to "<prefix>:events" on Redis.
func NewBusPublisher(natsConn *nats.Conn, redisClient *redis.Client, prefix string, logger zerolog.Logger) *BusPublisher {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".:")
	if prefix == "" {
		prefix = "eduwork"
	}
	return &BusPublisher{
		nats:          natsConn,
		redis:         redisClient,
		subjectPrefix: strings.ReplaceAll(prefix, ":", "."),
		redisChannel:  strings.ReplaceAll(prefix, ".", ":") + ":events",
		logger:        logger.With().Str("component", "event_publisher").Logger(),
	}
}

// Subject returns the NATS subject of an event type.
func (p *BusPublisher) Subject(eventType Type) string {
	return p.subjectPrefix + "." + string(eventType)
}

// Channel returns the Redis channel all events are published to.
func (p *BusPublisher) Channel() string {
	return p.redisChannel
}

func (p *BusPublisher) Publish(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CorrelationID == "" {
		event.CorrelationID = observability.CorrelationID(ctx)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		observability.EventsPublished().WithLabelValues(string(event.Type), "error").Inc()
		return fmt.Errorf("encode event: %w", err)
	}

	if p.nats != nil {
		if err := p.nats.Publish(p.Subject(event.Type), payload); err != nil {
			observability.EventsPublished().WithLabelValues(string(event.Type), "error").Inc()
			return fmt.Errorf("publish event to nats: %w", err)
		}
	}

	if p.redis != nil {
		if err := p.redis.Publish(ctx, p.redisChannel, payload).Err(); err != nil {
			observability.EventsPublished().WithLabelValues(string(event.Type), "error").Inc()
			return fmt.Errorf("publish event to redis: %w", err)
		}
	}

	observability.EventsPublished().WithLabelValues(string(event.Type), "ok").Inc()
	p.logger.Debug().Str("event_id", event.ID).Str("type", string(event.Type)).Msg("event published")
	return nil
}

// NopPublisher drops every event. It is used when no bus is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
