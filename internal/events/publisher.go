package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"election-service/internal/bucketing"
	"election-service/internal/models"
)

type EventType string

const (
	VoterRegistered EventType = "voter.registered"
	VoterDecided    EventType = "voter.verification_decided"
)

// Event is the envelope written to the voter topic.
type Event struct {
	ID         string          `json:"event_id"`
	Type       EventType       `json:"type"`
	VoterID    string          `json:"voter_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

type registeredPayload struct {
	Username string `json:"username"`
	Region   string `json:"region"`
	Gender   string `json:"gender"`
	Age      int    `json:"age"`
}

// Producer is the message sink, satisfied by client.KafkaProducer.
type Producer interface {
	ProduceMessage(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

type Publisher struct {
	producer Producer
	topic    string
	buckets  *bucketing.BucketingManager
	logger   *zap.Logger
}

func NewPublisher(producer Producer, topic string, buckets *bucketing.BucketingManager, logger *zap.Logger) *Publisher {
	return &Publisher{
		producer: producer,
		topic:    topic,
		buckets:  buckets,
		logger:   logger,
	}
}

// PublishRegistered announces a new pending registration. The email is not included.
func (p *Publisher) PublishRegistered(ctx context.Context, voter *models.Voter) error {
	payload, err := json.Marshal(registeredPayload{
		Username: voter.Username,
		Region:   voter.Region,
		Gender:   voter.Gender,
		Age:      voter.Age,
	})
	if err != nil {
		return fmt.Errorf("failed to encode registration payload: %w", err)
	}
	return p.publish(ctx, &Event{
		ID:         uuid.NewString(),
		Type:       VoterRegistered,
		VoterID:    voter.ID,
		OccurredAt: voter.CreatedAt.UTC(),
		Payload:    payload,
	})
}

func (p *Publisher) PublishDecision(ctx context.Context, decision *models.Decision) error {
	payload, err := json.Marshal(decision)
	if err != nil {
		return fmt.Errorf("failed to encode decision payload: %w", err)
	}
	return p.publish(ctx, &Event{
		ID:         decision.EventID,
		Type:       VoterDecided,
		VoterID:    decision.VoterID,
		OccurredAt: decision.DecidedAt.UTC(),
		Payload:    payload,
	})
}

func (p *Publisher) publish(ctx context.Context, event *Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	headers := map[string]string{
		"event_type": string(event.Type),
		"bucket":     strconv.Itoa(p.buckets.EventBucket(event.VoterID)),
	}
	if err := p.producer.ProduceMessage(ctx, p.topic, []byte(event.VoterID), value, headers); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}

	p.logger.Debug("Event published",
		zap.String("type", string(event.Type)),
		zap.String("voter_id", event.VoterID))
	return nil
}

// Nop discards events when no broker is configured.
type Nop struct{}

func (Nop) PublishRegistered(context.Context, *models.Voter) error  { return nil }
func (Nop) PublishDecision(context.Context, *models.Decision) error { return nil }
