// Package domain defines the core interfaces and types for fraudforge.
package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
// All methods require tenantID for strict multi-tenancy isolation.
type Repository interface {
	// Event operations
	SaveEvent(ctx context.Context, tenantID string, rec *EventRecord) error
	ListEventsByActor(ctx context.Context, tenantID string, actorID string, since time.Time) ([]*EventRecord, error)

	// Evaluation results
	SaveEvaluation(ctx context.Context, tenantID string, eval *Evaluation) error
	GetEvaluation(ctx context.Context, tenantID string, evalID string) (*Evaluation, error)
	ListEvaluations(ctx context.Context, tenantID string, limit int) ([]*Evaluation, error)

	// Rule configuration operations
	SaveRuleConfig(ctx context.Context, tenantID string, rule *RuleConfig) error
	GetRuleConfig(ctx context.Context, tenantID string, ruleID string) (*RuleConfig, error)
	ListRuleConfigs(ctx context.Context, tenantID string) ([]*RuleConfig, error)

	// Blocklist operations
	AddBlocklistEntry(ctx context.Context, tenantID string, entry *BlocklistEntry) error
	RemoveBlocklistEntry(ctx context.Context, tenantID string, identifier string) error
	MatchBlocklist(ctx context.Context, tenantID string, identifiers []string) ([]string, error)
	ListBlocklist(ctx context.Context, tenantID string) ([]*BlocklistEntry, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string `mapstructure:"driver"`

	// SQLite specific
	SQLitePath string `mapstructure:"sqlite_path"`

	// PostgreSQL specific. PostgresDSN, when set, overrides the discrete fields.
	PostgresDSN      string `mapstructure:"postgres_dsn"`
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"`
	PostgresDB       string `mapstructure:"postgres_db"`
	PostgresSSLMode  string `mapstructure:"postgres_sslmode"`

	// Connection pool settings
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}
