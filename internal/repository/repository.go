// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/opensource-finance/fraudforge/internal/domain"
	"github.com/opensource-finance/fraudforge/internal/geo"
)

// Aliases of the domain errors.
var (
	ErrNotFound     = domain.ErrNotFound
	ErrInvalidInput = domain.ErrInvalidInput
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

var _ domain.Repository = (*SQLRepository)(nil)

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (*SQLRepository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		for _, stmt := range strings.Split(schema, ";") {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			if _, err := r.db.Exec(stmt); err != nil {
				return err
			}
		}
	}
	return nil
}

func requireTenant(tenantID string) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	return nil
}

// SaveEvent stores an event record. Saving the same event ID twice keeps the first copy.
func (r *SQLRepository) SaveEvent(ctx context.Context, tenantID string, rec *domain.EventRecord) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("%w: event id is required", ErrInvalidInput)
	}

	var lat, lng sql.NullFloat64
	if rec.Point != nil {
		lat = sql.NullFloat64{Float64: rec.Point.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: rec.Point.Lng, Valid: true}
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO events (
			id, tenant_id, domain, actor_id, counterparty, location, device_id,
			amount, lat, lng, occurred_at, payload, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, id) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rec.ID, tenantID, string(rec.Domain), rec.ActorID,
		domain.NormalizeIdentifier(rec.Counterparty), rec.Location, rec.DeviceID,
		rec.Amount.String(), lat, lng,
		rec.OccurredAt.UTC(), string(rec.Payload), createdAt.UTC(),
	)
	return err
}

// ListEventsByActor returns the actor's events that occurred at or after since, newest first.
func (r *SQLRepository) ListEventsByActor(ctx context.Context, tenantID string, actorID string, since time.Time) ([]*domain.EventRecord, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}

	query := `
		SELECT id, tenant_id, domain, actor_id, counterparty, location, device_id,
			   amount, lat, lng, occurred_at, payload, created_at
		FROM events
		WHERE tenant_id = ? AND actor_id = ? AND occurred_at >= ?
		ORDER BY occurred_at DESC, id DESC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, actorID, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.EventRecord
	for rows.Next() {
		var rec domain.EventRecord
		var dom, payload string
		var lat, lng sql.NullFloat64

		if err := rows.Scan(
			&rec.ID, &rec.TenantID, &dom, &rec.ActorID, &rec.Counterparty, &rec.Location, &rec.DeviceID,
			&rec.Amount, &lat, &lng, &rec.OccurredAt, &payload, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}

		rec.Domain = domain.Domain(dom)
		rec.Payload = json.RawMessage(payload)
		if lat.Valid && lng.Valid {
			rec.Point = &geo.Point{Lat: lat.Float64, Lng: lng.Float64}
		}
		records = append(records, &rec)
	}

	return records, rows.Err()
}

// SaveEvaluation stores an evaluation result with tenant isolation.
func (r *SQLRepository) SaveEvaluation(ctx context.Context, tenantID string, eval *domain.Evaluation) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}

	result, err := json.Marshal(eval.Result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	metadata, err := json.Marshal(eval.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	query := `
		INSERT INTO evaluations (
			id, tenant_id, event_id, domain, actor_id, status, score, result, metadata, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		eval.ID, tenantID, eval.EventID, string(eval.Domain), eval.ActorID,
		string(eval.Result.Status), eval.Result.TotalScore,
		string(result), string(metadata), eval.CreatedAt.UTC(),
	)
	return err
}

const evaluationColumns = `id, tenant_id, event_id, domain, actor_id, result, metadata, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanEvaluation(s scanner) (*domain.Evaluation, error) {
	var eval domain.Evaluation
	var dom, result, metadata string

	if err := s.Scan(
		&eval.ID, &eval.TenantID, &eval.EventID, &dom, &eval.ActorID,
		&result, &metadata, &eval.CreatedAt,
	); err != nil {
		return nil, err
	}

	eval.Domain = domain.Domain(dom)
	if err := json.Unmarshal([]byte(result), &eval.Result); err != nil {
		return nil, fmt.Errorf("failed to parse result of %s: %w", eval.ID, err)
	}
	if err := json.Unmarshal([]byte(metadata), &eval.Metadata); err != nil {
		return nil, fmt.Errorf("failed to parse metadata of %s: %w", eval.ID, err)
	}
	return &eval, nil
}

// GetEvaluation retrieves an evaluation by ID with tenant isolation.
func (r *SQLRepository) GetEvaluation(ctx context.Context, tenantID string, evalID string) (*domain.Evaluation, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}

	query := `SELECT ` + evaluationColumns + ` FROM evaluations WHERE tenant_id = ? AND id = ?`

	eval, err := scanEvaluation(r.db.QueryRowContext(ctx, r.rebind(query), tenantID, evalID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return eval, nil
}

// ListEvaluations returns the newest evaluations of a tenant.
func (r *SQLRepository) ListEvaluations(ctx context.Context, tenantID string, limit int) ([]*domain.Evaluation, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + evaluationColumns + ` FROM evaluations
		WHERE tenant_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var evals []*domain.Evaluation
	for rows.Next() {
		eval, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		evals = append(evals, eval)
	}

	return evals, rows.Err()
}

// SaveRuleConfig stores a rule configuration with tenant isolation.
func (r *SQLRepository) SaveRuleConfig(ctx context.Context, tenantID string, rule *domain.RuleConfig) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}

	enabled := 0
	if rule.Enabled {
		enabled = 1
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO rule_configs (
			id, tenant_id, name, description, version, domain, expression, score, reason, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, tenant_id, version) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			domain = excluded.domain,
			expression = excluded.expression,
			score = excluded.score,
			reason = excluded.reason,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, tenantID, rule.Name, rule.Description,
		rule.Version, string(rule.Domain), rule.Expression, rule.Score, rule.Reason, enabled,
		now, now,
	)
	return err
}

const ruleColumns = `id, tenant_id, name, description, version, domain, expression, score, reason, enabled, created_at, updated_at`

func scanRule(s scanner) (*domain.RuleConfig, error) {
	var cfg domain.RuleConfig
	var description sql.NullString
	var dom string
	var enabled int

	if err := s.Scan(
		&cfg.ID, &cfg.TenantID, &cfg.Name, &description,
		&cfg.Version, &dom, &cfg.Expression, &cfg.Score, &cfg.Reason, &enabled,
		&cfg.CreatedAt, &cfg.UpdatedAt,
	); err != nil {
		return nil, err
	}

	cfg.Description = description.String
	cfg.Domain = domain.Domain(dom)
	cfg.Enabled = enabled == 1
	return &cfg, nil
}

// GetRuleConfig retrieves the latest enabled version of a rule.
func (r *SQLRepository) GetRuleConfig(ctx context.Context, tenantID string, ruleID string) (*domain.RuleConfig, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}

	query := `SELECT ` + ruleColumns + ` FROM rule_configs
		WHERE tenant_id = ? AND id = ? AND enabled = 1
		ORDER BY updated_at DESC, version DESC
		LIMIT 1`

	cfg, err := scanRule(r.db.QueryRowContext(ctx, r.rebind(query), tenantID, ruleID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// ListRuleConfigs returns the latest enabled version of every rule, ordered by ID.
func (r *SQLRepository) ListRuleConfigs(ctx context.Context, tenantID string) ([]*domain.RuleConfig, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}

	query := `SELECT ` + ruleColumns + ` FROM rule_configs
		WHERE tenant_id = ? AND enabled = 1
		ORDER BY id, updated_at DESC, version DESC`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []*domain.RuleConfig
	for rows.Next() {
		cfg, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		if n := len(configs); n > 0 && configs[n-1].ID == cfg.ID {
			continue
		}
		configs = append(configs, cfg)
	}

	return configs, rows.Err()
}

// AddBlocklistEntry adds or updates a blocklist entry. Identifiers are normalized.
func (r *SQLRepository) AddBlocklistEntry(ctx context.Context, tenantID string, entry *domain.BlocklistEntry) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}
	id := domain.NormalizeIdentifier(entry.Identifier)
	if id == "" {
		return fmt.Errorf("%w: identifier is required", ErrInvalidInput)
	}

	kind := entry.Kind
	if kind == "" {
		kind = domain.BlockKindOther
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO blocklist (tenant_id, identifier, kind, reason, source_evaluation_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, identifier) DO UPDATE SET
			kind = excluded.kind,
			reason = excluded.reason,
			source_evaluation_id = excluded.source_evaluation_id
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		tenantID, id, kind, entry.Reason, entry.SourceEvaluationID, createdAt.UTC(),
	)
	return err
}

// RemoveBlocklistEntry deletes an identifier from the blocklist.
func (r *SQLRepository) RemoveBlocklistEntry(ctx context.Context, tenantID string, identifier string) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}

	query := `DELETE FROM blocklist WHERE tenant_id = ? AND identifier = ?`

	result, err := r.db.ExecContext(ctx, r.rebind(query), tenantID, domain.NormalizeIdentifier(identifier))
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// MatchBlocklist returns the identifiers that are on the tenant blocklist, sorted.
func (r *SQLRepository) MatchBlocklist(ctx context.Context, tenantID string, identifiers []string) ([]string, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}

	args := []any{tenantID}
	seen := make(map[string]bool, len(identifiers))
	for _, id := range identifiers {
		id = domain.NormalizeIdentifier(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		args = append(args, id)
	}
	if len(args) == 1 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(args)-1), ", ")
	query := `SELECT identifier FROM blocklist WHERE tenant_id = ? AND identifier IN (` + placeholders + `) ORDER BY identifier`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		matches = append(matches, id)
	}

	return matches, rows.Err()
}

// ListBlocklist returns every blocklist entry of a tenant, ordered by identifier.
func (r *SQLRepository) ListBlocklist(ctx context.Context, tenantID string) ([]*domain.BlocklistEntry, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}

	query := `
		SELECT tenant_id, identifier, kind, reason, source_evaluation_id, created_at
		FROM blocklist
		WHERE tenant_id = ?
		ORDER BY identifier
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.BlocklistEntry
	for rows.Next() {
		var e domain.BlocklistEntry
		if err := rows.Scan(&e.TenantID, &e.Identifier, &e.Kind, &e.Reason, &e.SourceEvaluationID, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
