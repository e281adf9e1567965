package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

type ServerConfig struct {
	Port         int
	TLSPort      int
	EnableTLS    bool
	AutoCert     bool
	Domain       string
	CertFile     string
	KeyFile      string
	AutoCertDir  string
	Email        string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// AllowedOrigins feeds the CORS handler; the admin dashboard and voter portal are served elsewhere.
	AllowedOrigins []string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
	PoolSize int
}

type ScyllaConfig struct {
	Nodes    []string
	Keyspace string
	Username string
	Password string
}

type KafkaConfig struct {
	Brokers []string
	// VoterTopic receives registration and decision events.
	VoterTopic string
}

type ElasticsearchConfig struct {
	URL        string
	Username   string
	Password   string
	AuditIndex string
}

type ClickhouseConfig struct {
	URL      string
	Username string
	Password string
	Database string
}

type KMSConfig struct {
	Enabled bool
	KeyID   string
	Region  string
	// DEKCacheSize bounds the unwrapped data keys kept in memory.
	DEKCacheSize int
}

type HashingConfig struct {
	Argon2MemoryCost  int
	Argon2TimeCost    int
	Argon2Parallelism int
	Pepper            string
}

type BucketingConfig struct {
	VoterBuckets int
	EventBuckets int
}

type JWTConfig struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type AdminConfig struct {
	Username string
	Password string
	Email    string
}

type RateLimitConfig struct {
	MaxLoginAttempts int
	LoginWindow      time.Duration
	LockDuration     time.Duration
}

type Config struct {
	Environment   string
	Server        ServerConfig
	Logging       LoggingConfig
	Redis         RedisConfig
	Scylla        ScyllaConfig
	Kafka         KafkaConfig
	Elasticsearch ElasticsearchConfig
	Clickhouse    ClickhouseConfig
	KMS           KMSConfig
	Hashing       HashingConfig
	Bucketing     BucketingConfig
	JWT           JWTConfig
	Admin         AdminConfig
	RateLimit     RateLimitConfig
}

var (
	current *Config
	mu      sync.RWMutex
)

// LoadConfig reads .env (when present) and the process environment.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file found, relying on environment")
	}

	cfg := &Config{
		Environment: GetEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:           GetEnvInt("SERVER_PORT", 8000),
			TLSPort:        GetEnvInt("SERVER_TLS_PORT", 8443),
			EnableTLS:      GetEnvBool("SERVER_ENABLE_TLS", false),
			AutoCert:       GetEnvBool("SERVER_AUTO_CERT", false),
			Domain:         GetEnv("SERVER_DOMAIN", "localhost"),
			CertFile:       GetEnv("SERVER_CERT_FILE", ""),
			KeyFile:        GetEnv("SERVER_KEY_FILE", ""),
			AutoCertDir:    GetEnv("SERVER_AUTO_CERT_DIR", "./certs"),
			Email:          GetEnv("SERVER_CERT_EMAIL", ""),
			ReadTimeout:    GetEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   GetEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    GetEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			AllowedOrigins: GetEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "https://*"}),
		},
		Logging: LoggingConfig{
			Level:  GetEnv("LOG_LEVEL", "info"),
			Format: GetEnv("LOG_FORMAT", "console"),
		},
		Redis: RedisConfig{
			URL:      GetEnv("REDIS_URL", ""),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetEnvInt("REDIS_DB", 0),
			PoolSize: GetEnvInt("REDIS_POOL_SIZE", 20),
		},
		Scylla: ScyllaConfig{
			Nodes:    GetEnvList("SCYLLA_NODES", nil),
			Keyspace: GetEnv("SCYLLA_KEYSPACE", "elections"),
			Username: GetEnv("SCYLLA_USERNAME", ""),
			Password: GetEnv("SCYLLA_PASSWORD", ""),
		},
		Kafka: KafkaConfig{
			Brokers:    GetEnvList("KAFKA_BROKERS", nil),
			VoterTopic: GetEnv("KAFKA_VOTER_TOPIC", "voter-events"),
		},
		Elasticsearch: ElasticsearchConfig{
			URL:        GetEnv("ELASTICSEARCH_URL", ""),
			Username:   GetEnv("ELASTICSEARCH_USERNAME", ""),
			Password:   GetEnv("ELASTICSEARCH_PASSWORD", ""),
			AuditIndex: GetEnv("ELASTICSEARCH_AUDIT_INDEX", "voter-decisions"),
		},
		Clickhouse: ClickhouseConfig{
			URL:      GetEnv("CLICKHOUSE_URL", ""),
			Username: GetEnv("CLICKHOUSE_USERNAME", "default"),
			Password: GetEnv("CLICKHOUSE_PASSWORD", ""),
			Database: GetEnv("CLICKHOUSE_DATABASE", "elections"),
		},
		KMS: KMSConfig{
			Enabled: GetEnvBool("KMS_ENABLED", false),
			KeyID:   GetEnv("KMS_KEY_ID", ""),
			Region:  GetEnv("AWS_REGION", "us-east-1"),

			DEKCacheSize: GetEnvInt("KMS_DEK_CACHE_SIZE", 1024),
		},
		Hashing: HashingConfig{
			Argon2MemoryCost:  GetEnvInt("ARGON2_MEMORY_COST", 64*1024),
			Argon2TimeCost:    GetEnvInt("ARGON2_TIME_COST", 3),
			Argon2Parallelism: GetEnvInt("ARGON2_PARALLELISM", 2),
			Pepper:            GetEnv("PASSWORD_PEPPER", "dev-pepper"),
		},
		Bucketing: BucketingConfig{
			VoterBuckets: GetEnvInt("VOTER_BUCKETS", 16),
			EventBuckets: GetEnvInt("EVENT_BUCKETS", 64),
		},
		JWT: JWTConfig{
			Secret:     GetEnv("JWT_SECRET", "dev-secret-change-me"),
			Issuer:     GetEnv("JWT_ISSUER", "election-service"),
			AccessTTL:  GetEnvDuration("JWT_ACCESS_TTL", 30*time.Minute),
			RefreshTTL: GetEnvDuration("JWT_REFRESH_TTL", 24*time.Hour),
		},
		Admin: AdminConfig{
			Username: GetEnv("ADMIN_USERNAME", ""),
			Password: GetEnv("ADMIN_PASSWORD", ""),
			Email:    GetEnv("ADMIN_EMAIL", ""),
		},
		RateLimit: RateLimitConfig{
			MaxLoginAttempts: GetEnvInt("LOGIN_MAX_ATTEMPTS", 5),
			LoginWindow:      GetEnvDuration("LOGIN_WINDOW", 15*time.Minute),
			LockDuration:     GetEnvDuration("LOGIN_LOCK_DURATION", 15*time.Minute),
		},
	}

	mu.Lock()
	current = cfg
	mu.Unlock()
	return cfg
}

// Get returns the last loaded config, loading it on first use.
func Get() *Config {
	mu.RLock()
	cfg := current
	mu.RUnlock()
	if cfg == nil {
		return LoadConfig()
	}
	return cfg
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev" || c.Environment == ""
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// Validate reports settings that must not keep their development defaults in production.
func (c *Config) Validate() error {
	if !c.IsProduction() {
		return nil
	}
	if c.JWT.Secret == "dev-secret-change-me" || len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT_SECRET must be set to at least 32 characters in production")
	}
	if c.Hashing.Pepper == "dev-pepper" {
		return fmt.Errorf("PASSWORD_PEPPER must be set in production")
	}
	if len(c.Scylla.Nodes) == 0 {
		return fmt.Errorf("SCYLLA_NODES must be set in production")
	}
	return nil
}

func GetEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func GetEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func GetEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

// GetEnvList splits a comma separated value, dropping empty entries.
func GetEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
