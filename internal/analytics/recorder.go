package analytics

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"election-service/internal/client"
	"election-service/internal/models"
)

var ErrNotConfigured = errors.New("analytics store not configured")

var schema = []string{
	`CREATE TABLE IF NOT EXISTS voter_registrations (
		voter_id String,
		region LowCardinality(String),
		gender LowCardinality(String),
		age UInt16,
		registered_at DateTime64(3, 'UTC')
	) ENGINE = ReplacingMergeTree
	ORDER BY voter_id`,
	`CREATE TABLE IF NOT EXISTS voter_decisions (
		event_id String,
		voter_id String,
		admin_id String,
		status LowCardinality(String),
		region LowCardinality(String),
		decided_at DateTime64(3, 'UTC')
	) ENGINE = ReplacingMergeTree
	ORDER BY voter_id`,
}

// summaryQuery returns (dimension, key, count) rows for every breakdown on the dashboard.
const summaryQuery = `
	SELECT 'region' AS dimension, region AS key, count() AS n FROM voter_registrations FINAL GROUP BY region
	UNION ALL
	SELECT 'gender', gender, count() FROM voter_registrations FINAL GROUP BY gender
	UNION ALL
	SELECT 'status', status, count() FROM voter_decisions FINAL GROUP BY status
	UNION ALL
	SELECT 'total', '', count() FROM voter_registrations FINAL`

// Rows is the result cursor subset the recorder reads.
type Rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Close() error
	Err() error
}

type Conn interface {
	Exec(ctx context.Context, query string, args ...interface{}) error
	Query(ctx context.Context, query string, args ...interface{}) (Rows, error)
}

type clickhouseConn struct {
	client *client.ClickHouseClient
}

func (c clickhouseConn) Exec(ctx context.Context, query string, args ...interface{}) error {
	return c.client.Exec(ctx, query, args...)
}

func (c clickhouseConn) Query(ctx context.Context, query string, args ...interface{}) (Rows, error) {
	return c.client.QueryRows(ctx, query, args...)
}

// Recorder writes registration and decision facts to ClickHouse and serves the
// registration breakdown for the admin dashboard.
type Recorder struct {
	conn   Conn
	logger *zap.Logger
}

func NewRecorder(c *client.ClickHouseClient, logger *zap.Logger) *Recorder {
	return NewRecorderWithConn(clickhouseConn{client: c}, logger)
}

func NewRecorderWithConn(conn Conn, logger *zap.Logger) *Recorder {
	return &Recorder{conn: conn, logger: logger}
}

func (r *Recorder) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if err := r.conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply analytics schema: %w", err)
		}
	}
	return nil
}

func (r *Recorder) RecordRegistration(ctx context.Context, v *models.Voter) error {
	err := r.conn.Exec(ctx,
		`INSERT INTO voter_registrations (voter_id, region, gender, age, registered_at) VALUES (?, ?, ?, ?, ?)`,
		v.ID, v.Region, v.Gender, uint16(v.Age), v.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record registration: %w", err)
	}
	return nil
}

func (r *Recorder) RecordDecision(ctx context.Context, d *models.Decision) error {
	err := r.conn.Exec(ctx,
		`INSERT INTO voter_decisions (event_id, voter_id, admin_id, status, region, decided_at) VALUES (?, ?, ?, ?, ?, ?)`,
		d.EventID, d.VoterID, d.AdminID, d.Status.Label(), d.Region, d.DecidedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record decision: %w", err)
	}
	return nil
}

// Summary builds the registration breakdown. Pending is every registration without
// a recorded decision.
func (r *Recorder) Summary(ctx context.Context) (*models.RegistrationStats, error) {
	rows, err := r.conn.Query(ctx, summaryQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query analytics summary: %w", err)
	}
	defer rows.Close()

	stats := NewStats()
	for rows.Next() {
		var (
			dimension, key string
			n              uint64
		)
		if err := rows.Scan(&dimension, &key, &n); err != nil {
			return nil, fmt.Errorf("failed to scan analytics row: %w", err)
		}
		switch dimension {
		case "total":
			stats.Total = int(n)
		case "region":
			stats.ByRegion[key] = int(n)
		case "gender":
			stats.ByGender[key] = int(n)
		case "status":
			stats.ByStatus[key] = int(n)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read analytics rows: %w", err)
	}

	decided := stats.ByStatus[models.StatusVerified.Label()] + stats.ByStatus[models.StatusRejected.Label()]
	stats.ByStatus[models.StatusPending.Label()] = stats.Total - decided
	return stats, nil
}

// NewStats returns empty stats with every status bucket present.
func NewStats() *models.RegistrationStats {
	return &models.RegistrationStats{
		ByStatus: map[string]int{
			models.StatusPending.Label():  0,
			models.StatusVerified.Label(): 0,
			models.StatusRejected.Label(): 0,
		},
		ByRegion: map[string]int{},
		ByGender: map[string]int{},
	}
}

// FromVoters computes the breakdown directly from voter records.
func FromVoters(voters []*models.Voter) *models.RegistrationStats {
	stats := NewStats()
	for _, v := range voters {
		stats.Total++
		stats.ByStatus[v.Status.Label()]++
		stats.ByRegion[v.Region]++
		stats.ByGender[v.Gender]++
	}
	return stats
}

// Nop records nothing; Summary reports ErrNotConfigured so callers can fall back.
type Nop struct{}

func (Nop) RecordRegistration(context.Context, *models.Voter) error    { return nil }
func (Nop) RecordDecision(context.Context, *models.Decision) error     { return nil }
func (Nop) Summary(context.Context) (*models.RegistrationStats, error) { return nil, ErrNotConfigured }
