package audit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"election-service/internal/models"
)

const indexMapping = `{
  "mappings": {
    "properties": {
      "event_id":    {"type": "keyword"},
      "voter_id":    {"type": "keyword"},
      "admin_id":    {"type": "keyword"},
      "status":      {"type": "keyword"},
      "region":      {"type": "keyword"},
      "decided_at":  {"type": "date"},
      "date_bucket": {"type": "keyword"}
    }
  }
}`

// maxHistory caps how many decisions a history query returns.
const maxHistory = 100

// Store is the document store, satisfied by client.ESClient.
type Store interface {
	EnsureIndex(ctx context.Context, index, mapping string) error
	IndexDocument(ctx context.Context, index, id string, document interface{}) error
	Search(ctx context.Context, index string, query map[string]interface{}, target interface{}) error
}

type document struct {
	EventID    string    `json:"event_id"`
	VoterID    string    `json:"voter_id"`
	AdminID    string    `json:"admin_id"`
	Status     string    `json:"status"`
	Region     string    `json:"region"`
	DecidedAt  time.Time `json:"decided_at"`
	DateBucket string    `json:"date_bucket"`
}

type searchResult struct {
	Hits struct {
		Hits []struct {
			Source document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Log keeps an append-only trail of verification decisions in Elasticsearch.
type Log struct {
	store  Store
	index  string
	logger *zap.Logger
}

func NewLog(store Store, index string, logger *zap.Logger) *Log {
	return &Log{store: store, index: index, logger: logger}
}

func (l *Log) EnsureIndex(ctx context.Context) error {
	return l.store.EnsureIndex(ctx, l.index, indexMapping)
}

func (l *Log) RecordDecision(ctx context.Context, d *models.Decision) error {
	doc := document{
		EventID:    d.EventID,
		VoterID:    d.VoterID,
		AdminID:    d.AdminID,
		Status:     d.Status.Label(),
		Region:     d.Region,
		DecidedAt:  d.DecidedAt.UTC(),
		DateBucket: d.DecidedAt.UTC().Format("2006-01-02"),
	}
	if err := l.store.IndexDocument(ctx, l.index, d.EventID, doc); err != nil {
		return fmt.Errorf("failed to index decision: %w", err)
	}
	return nil
}

// History returns the decisions recorded for a voter, oldest first.
func (l *Log) History(ctx context.Context, voterID string) ([]*models.Decision, error) {
	query := map[string]interface{}{
		"size": maxHistory,
		"query": map[string]interface{}{
			"term": map[string]interface{}{"voter_id": voterID},
		},
		"sort": []interface{}{
			map[string]interface{}{"decided_at": map[string]interface{}{"order": "asc"}},
		},
	}

	var result searchResult
	if err := l.store.Search(ctx, l.index, query, &result); err != nil {
		return nil, fmt.Errorf("failed to query decision history: %w", err)
	}

	decisions := make([]*models.Decision, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		status, err := models.ParseStatusLabel(hit.Source.Status)
		if err != nil {
			l.logger.Warn("Skipping audit document with unknown status",
				zap.String("event_id", hit.Source.EventID),
				zap.String("status", hit.Source.Status))
			continue
		}
		decisions = append(decisions, &models.Decision{
			EventID:   hit.Source.EventID,
			VoterID:   hit.Source.VoterID,
			AdminID:   hit.Source.AdminID,
			Status:    status,
			Region:    hit.Source.Region,
			DecidedAt: hit.Source.DecidedAt,
		})
	}
	return decisions, nil
}

// Nop keeps no trail; History is always empty.
type Nop struct{}

func (Nop) RecordDecision(context.Context, *models.Decision) error { return nil }

func (Nop) History(context.Context, string) ([]*models.Decision, error) {
	return []*models.Decision{}, nil
}
