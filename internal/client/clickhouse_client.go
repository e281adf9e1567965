package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"election-service/internal/config"
	"election-service/internal/util"
)

// ClickHouseClient speaks the native protocol; the analytics recorder is its only user.
type ClickHouseClient struct {
	conn driver.Conn
}

// chTarget is CLICKHOUSE_URL split into what ch.Options needs. Accepted forms are
// clickhouse://host[:port][/db][?secure=true], http(s)://host[:port] and a bare host:port.
type chTarget struct {
	addr     string
	host     string
	database string
	secure   bool
}

func parseClickHouseURL(raw string) (chTarget, error) {
	if !strings.Contains(raw, "://") {
		raw = "clickhouse://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return chTarget{}, fmt.Errorf("invalid ClickHouse URL: %w", err)
	}
	if u.Hostname() == "" {
		return chTarget{}, fmt.Errorf("invalid ClickHouse URL %q: missing host", raw)
	}

	t := chTarget{
		host:     u.Hostname(),
		database: strings.Trim(u.Path, "/"),
		secure:   u.Scheme == "https" || u.Query().Get("secure") == "true",
	}
	port := u.Port()
	if port == "" {
		port = "9000"
		if t.secure {
			port = "9440"
		}
	}
	t.addr = net.JoinHostPort(t.host, port)
	return t, nil
}

func NewClickHouseClient(cfg *config.Config) (*ClickHouseClient, error) {
	chConfig := cfg.Clickhouse

	target, err := parseClickHouseURL(chConfig.URL)
	if err != nil {
		return nil, err
	}
	database := chConfig.Database
	if target.database != "" {
		database = target.database
	}

	opts := &ch.Options{
		Addr: []string{target.addr},
		Auth: ch.Auth{
			Username: chConfig.Username,
			Password: chConfig.Password,
			Database: database,
		},
		DialTimeout:      10 * time.Second,
		MaxOpenConns:     10,
		MaxIdleConns:     5,
		ConnMaxLifetime:  time.Hour,
		ConnOpenStrategy: ch.ConnOpenInOrder,
	}

	if cfg.IsProduction() || target.secure {
		tlsConfig := &tls.Config{
			MinVersion: tls.VersionTLS12,
			ServerName: target.host,
		}
		if caFile := config.GetEnv("CLICKHOUSE_CA_FILE", ""); caFile != "" {
			pool, err := loadCertPool(caFile)
			if err != nil {
				return nil, fmt.Errorf("clickhouse: %w", err)
			}
			tlsConfig.RootCAs = pool
		}
		opts.TLS = tlsConfig
	}

	conn, err := ch.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open ClickHouse connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	util.Info("ClickHouse client initialized",
		util.String("addr", target.addr),
		util.String("database", database),
		util.Bool("tls_enabled", opts.TLS != nil))

	return &ClickHouseClient{conn: conn}, nil
}

func (c *ClickHouseClient) Exec(ctx context.Context, query string, args ...interface{}) error {
	return c.conn.Exec(ctx, query, args...)
}

func (c *ClickHouseClient) QueryRows(ctx context.Context, query string, args ...interface{}) (driver.Rows, error) {
	return c.conn.Query(ctx, query, args...)
}

func (c *ClickHouseClient) HealthCheck(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *ClickHouseClient) Close() error {
	if c.conn == nil {
		return nil
	}
	if err := c.conn.Close(); err != nil {
		util.Error("Failed to close ClickHouse connection", util.ErrorField(err))
		return err
	}
	return nil
}
