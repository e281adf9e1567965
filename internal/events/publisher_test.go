package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"election-service/internal/bucketing"
	"election-service/internal/config"
	"election-service/internal/models"
)

type message struct {
	topic   string
	key     []byte
	value   []byte
	headers map[string]string
}

type recordingProducer struct {
	messages []message
	err      error
}

func (r *recordingProducer) ProduceMessage(_ context.Context, topic string, key, value []byte, headers map[string]string) error {
	if r.err != nil {
		return r.err
	}
	r.messages = append(r.messages, message{topic, key, value, headers})
	return nil
}

func newPublisher(p Producer) *Publisher {
	return NewPublisher(p, "voters", bucketing.NewBucketingManager(&config.Config{}), zap.NewNop())
}

func TestPublishDecisionKeysByVoter(t *testing.T) {
	rec := &recordingProducer{}
	pub := newPublisher(rec)

	decided := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	err := pub.PublishDecision(context.Background(), &models.Decision{
		EventID:   "evt-1",
		VoterID:   "3",
		AdminID:   "1",
		Status:    models.StatusVerified,
		DecidedAt: decided,
	})
	require.NoError(t, err)
	require.Len(t, rec.messages, 1)

	msg := rec.messages[0]
	assert.Equal(t, "voters", msg.topic)
	assert.Equal(t, "3", string(msg.key))
	assert.Equal(t, string(VoterDecided), msg.headers["event_type"])

	var evt Event
	require.NoError(t, json.Unmarshal(msg.value, &evt))
	assert.Equal(t, "evt-1", evt.ID)
	assert.Equal(t, decided, evt.OccurredAt)
	assert.JSONEq(t, `{"event_id":"evt-1","voter_id":"3","admin_id":"1","is_verified":true,"region":"","decided_at":"2024-05-01T12:00:00Z"}`, string(evt.Payload))
}

func TestPublishRegisteredOmitsEmail(t *testing.T) {
	rec := &recordingProducer{}
	err := newPublisher(rec).PublishRegistered(context.Background(), &models.Voter{
		ID: "9", Username: "ada", Email: "ada@example.com", Region: "North", CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	require.Len(t, rec.messages, 1)
	assert.NotContains(t, string(rec.messages[0].value), "ada@example.com")
}

func TestPublishErrorIsWrapped(t *testing.T) {
	boom := errors.New("broker down")
	err := newPublisher(&recordingProducer{err: boom}).PublishDecision(context.Background(), &models.Decision{VoterID: "1"})
	assert.ErrorIs(t, err, boom)
}
