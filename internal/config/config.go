// Package config loads service and scoring configuration with viper.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/opensource-finance/fraudforge/internal/domain"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FRAUDFORGE"

// Settings is everything read at startup.
type Settings struct {
	Service domain.Config `mapstructure:"service"`
	Scoring Scoring       `mapstructure:"scoring"`
}

// Load reads configuration from path (optional), then the environment.
// With an empty path, fraudforge.yaml is looked up in . and ./configs.
// Lists in the file replace the defaults; maps and structs are merged.
func Load(path string) (*Settings, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("fraudforge")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	bindEnvVars(v)

	service := domain.DefaultConfig()
	if domain.Tier(strings.ToLower(v.GetString("service.tier"))) == domain.TierPro {
		service = domain.ProConfig()
	}
	setDefaults(v, service)

	settings := &Settings{Service: *service, Scoring: *DefaultScoring()}
	if err := v.Unmarshal(settings, replaceLists); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(settings); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return settings, nil
}

func replaceLists(dc *mapstructure.DecoderConfig) {
	dc.ZeroFields = true
}

// setDefaults registers the service keys so environment overrides reach them.
func setDefaults(v *viper.Viper, cfg *domain.Config) {
	v.SetDefault("service.tier", string(cfg.Tier))

	v.SetDefault("service.server.host", cfg.Server.Host)
	v.SetDefault("service.server.port", cfg.Server.Port)
	v.SetDefault("service.server.read_timeout", cfg.Server.ReadTimeout)
	v.SetDefault("service.server.write_timeout", cfg.Server.WriteTimeout)
	v.SetDefault("service.server.default_tenant", cfg.Server.DefaultTenant)

	v.SetDefault("service.repository.driver", cfg.Repository.Driver)
	v.SetDefault("service.repository.sqlite_path", cfg.Repository.SQLitePath)
	v.SetDefault("service.repository.postgres_dsn", cfg.Repository.PostgresDSN)
	v.SetDefault("service.repository.postgres_host", cfg.Repository.PostgresHost)
	v.SetDefault("service.repository.postgres_port", cfg.Repository.PostgresPort)
	v.SetDefault("service.repository.postgres_user", cfg.Repository.PostgresUser)
	v.SetDefault("service.repository.postgres_password", cfg.Repository.PostgresPassword)
	v.SetDefault("service.repository.postgres_db", cfg.Repository.PostgresDB)
	v.SetDefault("service.repository.postgres_sslmode", cfg.Repository.PostgresSSLMode)

	v.SetDefault("service.cache.type", cfg.Cache.Type)
	v.SetDefault("service.cache.local_max_size", cfg.Cache.LocalMaxSize)
	v.SetDefault("service.cache.local_ttl", cfg.Cache.LocalTTL)
	v.SetDefault("service.cache.redis_addr", cfg.Cache.RedisAddr)
	v.SetDefault("service.cache.redis_password", cfg.Cache.RedisPassword)
	v.SetDefault("service.cache.redis_db", cfg.Cache.RedisDB)
	v.SetDefault("service.cache.enable_two_phase", cfg.Cache.EnableTwoPhase)

	v.SetDefault("service.event_bus.type", cfg.EventBus.Type)
	v.SetDefault("service.event_bus.channel_buffer_size", cfg.EventBus.ChannelBufferSize)
	v.SetDefault("service.event_bus.nats_url", cfg.EventBus.NATSUrl)
	v.SetDefault("service.event_bus.nats_token", cfg.EventBus.NATSToken)

	v.SetDefault("service.history.window", cfg.History.Window)
	v.SetDefault("service.history.lookback", cfg.History.Lookback)
	v.SetDefault("service.history.recent_limit", cfg.History.RecentLimit)
	v.SetDefault("service.history.evaluation_ttl", cfg.History.EvaluationTTL)
	v.SetDefault("service.history.failed_attempt_window", cfg.History.FailedAttemptWindow)

	v.SetDefault("service.blocklist.auto_block", cfg.Blocklist.AutoBlock)
	v.SetDefault("service.worker.enabled", cfg.Worker.Enabled)
	v.SetDefault("service.worker.tenants", cfg.Worker.Tenants)

	v.SetDefault("service.logging.level", cfg.Logging.Level)
	v.SetDefault("service.logging.format", cfg.Logging.Format)
	v.SetDefault("service.tracing.enabled", cfg.Tracing.Enabled)
	v.SetDefault("service.tracing.service_name", cfg.Tracing.ServiceName)
	v.SetDefault("service.tracing.endpoint", cfg.Tracing.Endpoint)
	v.SetDefault("service.metrics.enabled", cfg.Metrics.Enabled)
}

// bindEnvVars maps short environment names onto nested keys.
func bindEnvVars(v *viper.Viper) {
	envMappings := map[string]string{
		"service.tier":                    "FRAUDFORGE_TIER",
		"service.server.port":             "FRAUDFORGE_PORT",
		"service.server.default_tenant":   "FRAUDFORGE_DEFAULT_TENANT",
		"service.repository.driver":       "FRAUDFORGE_DB_DRIVER",
		"service.repository.sqlite_path":  "FRAUDFORGE_SQLITE_PATH",
		"service.repository.postgres_dsn": "FRAUDFORGE_DATABASE_URL",
		"service.cache.redis_addr":        "FRAUDFORGE_REDIS_ADDR",
		"service.event_bus.nats_url":      "FRAUDFORGE_NATS_URL",
		"service.logging.level":           "FRAUDFORGE_LOG_LEVEL",
		"service.tracing.endpoint":        "FRAUDFORGE_OTLP_ENDPOINT",
		"service.blocklist.auto_block":    "FRAUDFORGE_AUTO_BLOCK",
	}

	for key, env := range envMappings {
		_ = v.BindEnv(key, env)
	}
}

func validate(s *Settings) error {
	cfg := &s.Service
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}
	switch cfg.Tier {
	case domain.TierCommunity, domain.TierPro:
	default:
		return fmt.Errorf("unknown tier %q", cfg.Tier)
	}
	switch cfg.Repository.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported repository driver %q", cfg.Repository.Driver)
	}
	if cfg.History.Window <= 0 || cfg.History.Lookback < cfg.History.Window {
		return fmt.Errorf("history window must be positive and no longer than lookback")
	}
	return s.Scoring.Validate()
}
