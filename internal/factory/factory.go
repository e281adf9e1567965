package factory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"election-service/internal/analytics"
	"election-service/internal/audit"
	"election-service/internal/auth"
	"election-service/internal/bucketing"
	"election-service/internal/client"
	"election-service/internal/config"
	"election-service/internal/encryption"
	"election-service/internal/events"
	"election-service/internal/handler"
	"election-service/internal/hashing"
	"election-service/internal/repository"
	"election-service/internal/repository/memory"
	redisrepo "election-service/internal/repository/redis"
	"election-service/internal/repository/scylla"
	"election-service/internal/service"
	"election-service/internal/tls"
	"election-service/internal/util"
)

// Factory manages the lifecycle of all application dependencies
type Factory struct {
	config     *config.Config
	tlsManager *tls.TLSManager

	// Clients
	redisClient      *client.RedisClient
	scyllaClient     *scylla.ScyllaClient
	kafkaProducer    *client.KafkaProducer
	esClient         *client.ESClient
	clickhouseClient *client.ClickHouseClient

	hasher            *hashing.Hasher
	encryptionManager *encryption.EncryptionManager
	bucketingManager  *bucketing.BucketingManager
	tokenManager      *auth.TokenManager

	voterRepository repository.VoterRepository
	serviceFactory  *service.ServiceFactory

	closeOnce sync.Once
	closed    chan struct{}
}

// NewFactory loads configuration and connects every backing service. Outside
// production a missing Redis or Scylla is replaced by the in-memory stores and the
// optional sinks (Kafka, Elasticsearch, ClickHouse) are skipped.
func NewFactory(ctx context.Context) (*Factory, error) {
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)

	f := &Factory{
		config: cfg,
		closed: make(chan struct{}),
	}

	if cfg.Server.EnableTLS {
		f.tlsManager = tls.NewTLSManager(cfg)
	}

	if err := f.initializeClients(ctx); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to initialize clients: %w", err)
	}

	if err := f.initializeManagers(ctx); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to initialize managers: %w", err)
	}

	f.serviceFactory = service.NewServiceFactory(f.dependencies(ctx))

	if cfg.Admin.Username != "" {
		if err := f.VoterService().EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password, cfg.Admin.Email); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to provision admin account: %w", err)
		}
	}

	util.Info("Factory initialized successfully",
		util.String("environment", cfg.Environment),
		util.Bool("tls_enabled", cfg.Server.EnableTLS),
		util.Bool("kms_enabled", cfg.KMS.Enabled),
		util.Bool("scylla", f.scyllaClient != nil),
		util.Bool("redis", f.redisClient != nil),
	)

	return f, nil
}

// initializeClients connects external services. Failures are fatal in production and
// logged as warnings elsewhere.
func (f *Factory) initializeClients(parent context.Context) error {
	ctx, cancel := context.WithTimeout(parent, 30*time.Second)
	defer cancel()

	var initErrors []error

	if f.config.Redis.URL != "" {
		if c, err := client.NewRedisClient(f.config); err != nil {
			initErrors = append(initErrors, fmt.Errorf("redis: %w", err))
		} else {
			f.redisClient = c
		}
	} else {
		initErrors = append(initErrors, fmt.Errorf("redis: REDIS_URL not set"))
	}

	if len(f.config.Scylla.Nodes) > 0 {
		if c, err := scylla.NewScyllaClient(f.config, util.Get()); err != nil {
			initErrors = append(initErrors, fmt.Errorf("scylla: %w", err))
		} else if err := c.Migrate(ctx); err != nil {
			c.Close()
			initErrors = append(initErrors, fmt.Errorf("scylla migrate: %w", err))
		} else {
			f.scyllaClient = c
		}
	} else {
		initErrors = append(initErrors, fmt.Errorf("scylla: SCYLLA_NODES not set"))
	}

	if len(f.config.Kafka.Brokers) > 0 {
		if producer, err := client.NewKafkaProducer(f.config, util.Get()); err != nil {
			util.Warn("Kafka producer initialization failed - proceeding without events", util.ErrorField(err))
		} else {
			f.kafkaProducer = producer
		}
	}

	if f.config.Elasticsearch.URL != "" {
		if c, err := client.NewElasticsearchClient(f.config, util.Get()); err != nil {
			util.Warn("Elasticsearch unavailable - proceeding without decision audit", util.ErrorField(err))
		} else {
			f.esClient = c
		}
	}

	if f.config.Clickhouse.URL != "" {
		if c, err := client.NewClickHouseClient(f.config); err != nil {
			util.Warn("ClickHouse unavailable - analytics computed from the voter store", util.ErrorField(err))
		} else {
			f.clickhouseClient = c
		}
	}

	if len(initErrors) > 0 {
		if f.config.IsProduction() {
			return fmt.Errorf("critical service initialization failed: %v", initErrors)
		}
		for _, err := range initErrors {
			util.Warn("Falling back to in-memory store", util.ErrorField(err))
		}
	}

	return nil
}

func (f *Factory) initializeManagers(ctx context.Context) error {
	f.hasher = hashing.NewHasher(f.config)
	f.bucketingManager = bucketing.NewBucketingManager(f.config)
	f.tokenManager = auth.NewTokenManager(f.config)

	var keys encryption.KeyService
	if f.config.KMS.Enabled {
		kmsClient, err := encryption.NewKMSClient(ctx, f.config)
		if err != nil {
			return err
		}
		keys = kmsClient
	}
	f.encryptionManager = encryption.NewEncryptionManager(f.config, keys, util.Get())

	if f.scyllaClient != nil {
		f.voterRepository = scylla.NewVoterRepository(f.scyllaClient, f.bucketingManager, f.encryptionManager, util.Get())
	} else {
		f.voterRepository = memory.NewVoterRepository()
	}
	return nil
}

// dependencies picks the Redis-backed session stores when available and the
// in-memory ones otherwise; sinks left nil become no-ops in the service.
func (f *Factory) dependencies(ctx context.Context) service.Dependencies {
	deps := service.Dependencies{
		Voters: f.voterRepository,
		Hasher: f.hasher,
		Tokens: f.tokenManager,
		Logger: util.Get(),
	}

	rl := f.config.RateLimit
	if f.redisClient != nil {
		deps.Revoker = redisrepo.NewSessionCache(f.redisClient)
		deps.Limiter = redisrepo.NewRateLimitCache(f.redisClient, rl.MaxLoginAttempts, rl.LoginWindow, rl.LockDuration)
	} else {
		deps.Revoker = memory.NewTokenRevocations()
		deps.Limiter = memory.NewLoginAttempts(rl.MaxLoginAttempts, rl.LoginWindow, rl.LockDuration)
	}

	if f.kafkaProducer != nil {
		deps.Events = events.NewPublisher(f.kafkaProducer, f.config.Kafka.VoterTopic, f.bucketingManager, util.Get())
	}

	if f.esClient != nil {
		auditLog := audit.NewLog(f.esClient, f.config.Elasticsearch.AuditIndex, util.Get())
		if err := auditLog.EnsureIndex(ctx); err != nil {
			util.Warn("Failed to ensure audit index", util.ErrorField(err))
		}
		deps.Audit = auditLog
	}

	if f.clickhouseClient != nil {
		recorder := analytics.NewRecorder(f.clickhouseClient, util.Get())
		if err := recorder.Migrate(ctx); err != nil {
			util.Warn("Failed to migrate analytics tables", util.ErrorField(err))
		} else {
			deps.Analytics = recorder
		}
	}

	return deps
}

// HealthChecks lists the probes served by /health. Only configured backends are included.
func (f *Factory) HealthChecks() map[string]handler.HealthCheck {
	checks := map[string]handler.HealthCheck{
		"voters": f.VoterService().HealthCheck,
	}
	if f.redisClient != nil {
		checks["redis"] = f.redisClient.HealthCheck
	}
	if f.kafkaProducer != nil {
		checks["kafka"] = f.kafkaProducer.HealthCheck
	}
	if f.esClient != nil {
		checks["elasticsearch"] = f.esClient.HealthCheck
	}
	if f.clickhouseClient != nil {
		checks["clickhouse"] = f.clickhouseClient.HealthCheck
	}
	return checks
}

func (f *Factory) Close() error {
	f.closeOnce.Do(func() {
		close(f.closed)
		util.Info("Shutting down factory...")

		if f.clickhouseClient != nil {
			if err := f.clickhouseClient.Close(); err != nil {
				util.Error("Failed to close ClickHouse client", util.ErrorField(err))
			}
		}

		if f.kafkaProducer != nil {
			if err := f.kafkaProducer.Close(); err != nil {
				util.Error("Failed to close Kafka producer", util.ErrorField(err))
			}
		}

		if f.scyllaClient != nil {
			f.scyllaClient.Close()
		}

		if f.redisClient != nil {
			if err := f.redisClient.Close(); err != nil {
				util.Error("Failed to close Redis client", util.ErrorField(err))
			}
		}

		if f.encryptionManager != nil {
			f.encryptionManager.ClearCache()
		}

		util.Info("Factory shutdown completed")
		util.Sync()
	})

	return nil
}

func (f *Factory) WaitForClose() {
	<-f.closed
}

func (f *Factory) Config() *config.Config {
	return f.config
}

func (f *Factory) TLSManager() *tls.TLSManager {
	return f.tlsManager
}

func (f *Factory) VoterService() *service.VoterService {
	return f.serviceFactory.VoterService()
}
