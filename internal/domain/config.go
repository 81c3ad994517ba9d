package domain

import "time"

// Config holds the complete service configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Tier determines feature availability
	Tier Tier `json:"tier" mapstructure:"tier"`

	// Component configurations
	Repository RepositoryConfig `json:"repository" mapstructure:"repository"`
	Cache      CacheConfig      `json:"cache" mapstructure:"cache"`
	EventBus   EventBusConfig   `json:"eventBus" mapstructure:"event_bus"`

	// Collaborators around the engine
	History   HistoryConfig   `json:"history" mapstructure:"history"`
	Blocklist BlocklistConfig `json:"blocklist" mapstructure:"blocklist"`
	Worker    WorkerConfig    `json:"worker" mapstructure:"worker"`

	// Observability
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
	Tracing TracingConfig `json:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host          string `json:"host" mapstructure:"host"`
	Port          int    `json:"port" mapstructure:"port"`
	ReadTimeout   int    `json:"readTimeout" mapstructure:"read_timeout"`   // seconds
	WriteTimeout  int    `json:"writeTimeout" mapstructure:"write_timeout"` // seconds
	DefaultTenant string `json:"defaultTenant" mapstructure:"default_tenant"`
}

// HistoryConfig controls how much history is resolved per event.
type HistoryConfig struct {
	// Window is the trailing velocity window.
	Window time.Duration `json:"window" mapstructure:"window"`
	// Lookback bounds the known-locations/devices/senders scan.
	Lookback time.Duration `json:"lookback" mapstructure:"lookback"`
	// RecentLimit caps the recent analyses list.
	RecentLimit int `json:"recentLimit" mapstructure:"recent_limit"`
	// EvaluationTTL is how long evaluations stay in the read-through cache.
	EvaluationTTL time.Duration `json:"evaluationTtl" mapstructure:"evaluation_ttl"`
	// FailedAttemptWindow is how long a recorded failed attempt counts.
	FailedAttemptWindow time.Duration `json:"failedAttemptWindow" mapstructure:"failed_attempt_window"`
}

// BlocklistConfig holds auto-block settings.
type BlocklistConfig struct {
	// AutoBlock adds the counterparty of blocked events to the blocklist.
	AutoBlock bool `json:"autoBlock" mapstructure:"auto_block"`
}

// WorkerConfig holds asynchronous evaluation settings.
type WorkerConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
	// Tenants to consume submissions for. Empty uses the default tenant.
	Tenants []string `json:"tenants" mapstructure:"tenants"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `json:"format" mapstructure:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `json:"enabled" mapstructure:"enabled"`
	ServiceName string `json:"serviceName" mapstructure:"service_name"`
	Endpoint    string `json:"endpoint" mapstructure:"endpoint"` // OTLP gRPC host:port
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
}

// Tier represents the product tier.
type Tier string

const (
	// TierCommunity is the free tier with SQLite + channels
	TierCommunity Tier = "community"

	// TierPro is the paid tier with PostgreSQL + NATS + Redis
	TierPro Tier = "pro"
)

// DefaultConfig returns a default configuration for Community tier.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:          "0.0.0.0",
			Port:          8080,
			ReadTimeout:   30,
			WriteTimeout:  30,
			DefaultTenant: "default",
		},
		Tier: TierCommunity,
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./fraudforge.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		History: HistoryConfig{
			Window:              time.Hour,
			Lookback:            30 * 24 * time.Hour,
			RecentLimit:         50,
			EvaluationTTL:       10 * time.Minute,
			FailedAttemptWindow: 24 * time.Hour,
		},
		Worker: WorkerConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "fraudforge",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// ProConfig returns a configuration for Pro tier.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Server.DefaultTenant = ""
	cfg.Repository = RepositoryConfig{
		Driver:          "postgres",
		PostgresHost:    "localhost",
		PostgresPort:    5432,
		PostgresDB:      "fraudforge",
		PostgresSSLMode: "disable",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
		LocalTTL:       time.Minute,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Blocklist.AutoBlock = true
	cfg.Tracing.Enabled = true
	cfg.Tracing.Endpoint = "localhost:4317"
	return cfg
}
