package scylla

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"election-service/internal/config"
	"election-service/internal/util"
)

// Statements holds the CQL used by the repositories. gocql prepares and caches each
// statement on first use, so queries are built per call from these strings.
type Statements struct {
	InsertVoter        string
	ClaimUsername      string
	ReleaseUsername    string
	GetVoterByID       string
	GetUsernameOwner   string
	ListVotersBucket   string
	DecideVerification string
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS voters (
		voter_bucket int,
		voter_id text,
		username text,
		email_ciphertext text,
		email_dek text,
		email_key_id text,
		password_hash text,
		role text,
		age int,
		gender text,
		region text,
		verification_status text,
		verified_at timestamp,
		verified_by text,
		created_at timestamp,
		updated_at timestamp,
		PRIMARY KEY ((voter_bucket), voter_id)
	)`,
	`CREATE TABLE IF NOT EXISTS username_to_voter (
		username text PRIMARY KEY,
		voter_bucket int,
		voter_id text,
		created_at timestamp
	)`,
}

type ScyllaClient struct {
	Session    *gocql.Session
	Statements Statements
	config     *config.ScyllaConfig
	logger     *zap.Logger
}

func NewScyllaClient(cfg *config.Config, logger *zap.Logger) (*ScyllaClient, error) {
	scyllaConfig := cfg.Scylla
	if len(scyllaConfig.Nodes) == 0 {
		return nil, fmt.Errorf("no scylla nodes configured")
	}

	cluster := gocql.NewCluster(scyllaConfig.Nodes...)
	cluster.Keyspace = scyllaConfig.Keyspace
	cluster.Consistency = gocql.LocalQuorum
	cluster.SerialConsistency = gocql.LocalSerial
	cluster.Timeout = 10 * time.Second
	cluster.ConnectTimeout = 10 * time.Second
	cluster.NumConns = 4
	cluster.SocketKeepalive = 30 * time.Second
	cluster.PageSize = 1000
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		Min:        100 * time.Millisecond,
		Max:        2 * time.Second,
		NumRetries: 3,
	}

	if cfg.IsProduction() {
		cluster.SslOpts = &gocql.SslOptions{
			CaPath:                 config.GetEnv("SCYLLA_CA_FILE", "/app/certs/ca.pem"),
			CertPath:               config.GetEnv("SCYLLA_CERT_FILE", "/app/certs/scylla.pem"),
			KeyPath:                config.GetEnv("SCYLLA_KEY_FILE", "/app/certs/scylla.key"),
			EnableHostVerification: true,
		}
	}

	if scyllaConfig.Username != "" && scyllaConfig.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: scyllaConfig.Username,
			Password: scyllaConfig.Password,
		}
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create scylla session: %w", err)
	}

	client := &ScyllaClient{
		Session:    session,
		Statements: newStatements(),
		config:     &scyllaConfig,
		logger:     logger,
	}

	util.Info("ScyllaDB client initialized",
		util.Strings("nodes", scyllaConfig.Nodes),
		util.String("keyspace", scyllaConfig.Keyspace))

	return client, nil
}

func newStatements() Statements {
	return Statements{
		InsertVoter: `
			INSERT INTO voters (
				voter_bucket, voter_id, username, email_ciphertext, email_dek, email_key_id,
				password_hash, role, age, gender, region, verification_status,
				verified_at, verified_by, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ClaimUsername: `
			INSERT INTO username_to_voter (username, voter_bucket, voter_id, created_at)
			VALUES (?, ?, ?, ?) IF NOT EXISTS`,
		ReleaseUsername: `DELETE FROM username_to_voter WHERE username = ? IF voter_id = ?`,
		GetVoterByID: `
			SELECT voter_id, username, email_ciphertext, email_dek, email_key_id,
				password_hash, role, age, gender, region, verification_status,
				verified_at, verified_by, created_at, updated_at
			FROM voters WHERE voter_bucket = ? AND voter_id = ?`,
		GetUsernameOwner: `SELECT voter_id FROM username_to_voter WHERE username = ?`,
		ListVotersBucket: `
			SELECT voter_id, username, email_ciphertext, email_dek, email_key_id,
				password_hash, role, age, gender, region, verification_status,
				verified_at, verified_by, created_at, updated_at
			FROM voters WHERE voter_bucket = ?`,
		DecideVerification: `
			UPDATE voters SET verification_status = ?, verified_at = ?, verified_by = ?, updated_at = ?
			WHERE voter_bucket = ? AND voter_id = ?
			IF verification_status = 'pending' AND role = 'voter'`,
	}
}

// Migrate creates the tables when missing. The keyspace itself is provisioned out of band.
func (s *ScyllaClient) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if err := s.Session.Query(stmt).WithContext(ctx).Exec(); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	util.Info("ScyllaDB schema ready", util.String("keyspace", s.config.Keyspace))
	return nil
}

func (s *ScyllaClient) Query(ctx context.Context, stmt string, values ...interface{}) *gocql.Query {
	return s.Session.Query(stmt, values...).WithContext(ctx)
}

func (s *ScyllaClient) Close() {
	if s.Session != nil {
		s.Session.Close()
		util.Info("ScyllaDB client closed")
	}
}

func (s *ScyllaClient) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var clusterName string
	err := s.Session.Query(`SELECT cluster_name FROM system.local`).WithContext(ctx).Scan(&clusterName)
	if err != nil {
		return fmt.Errorf("scylla health check failed: %w", err)
	}

	util.Debug("ScyllaDB health check passed", util.String("cluster_name", clusterName))
	return nil
}
