package service

import (
	"context"

	"github.com/opensource-finance/fraudforge/internal/domain"
	"github.com/opensource-finance/fraudforge/internal/logging"
	"github.com/opensource-finance/fraudforge/internal/metrics"
)

// Block adds an operator entry to the tenant blocklist.
func (s *Service) Block(ctx context.Context, tenantID string, entry *domain.BlocklistEntry) error {
	if entry == nil || domain.NormalizeIdentifier(entry.Identifier) == "" {
		return domain.InvalidInput("identifier", "identifier is required")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	if err := s.repo.AddBlocklistEntry(ctx, tenantID, entry); err != nil {
		return err
	}

	metrics.BlocklistWritesTotal.WithLabelValues("api").Inc()
	logging.L(ctx).Info("blocklist entry added",
		"tenant_id", tenantID,
		"identifier", domain.NormalizeIdentifier(entry.Identifier),
		"kind", entry.Kind,
	)
	return nil
}

// Unblock removes an identifier from the tenant blocklist.
func (s *Service) Unblock(ctx context.Context, tenantID, identifier string) error {
	if err := s.repo.RemoveBlocklistEntry(ctx, tenantID, identifier); err != nil {
		return err
	}
	logging.L(ctx).Info("blocklist entry removed", "tenant_id", tenantID, "identifier", identifier)
	return nil
}

// Blocklist lists the tenant blocklist.
func (s *Service) Blocklist(ctx context.Context, tenantID string) ([]*domain.BlocklistEntry, error) {
	return s.repo.ListBlocklist(ctx, tenantID)
}
