package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/opensource-finance/fraudforge/internal/domain"
	"github.com/opensource-finance/fraudforge/internal/logging"
	"github.com/opensource-finance/fraudforge/internal/metrics"
)

// Rules returns the operator rules currently loaded, sorted by ID.
func (s *Service) Rules() []*domain.RuleConfig {
	if s.rules == nil {
		return []*domain.RuleConfig{}
	}
	return s.rules.GetLoadedRules()
}

// SaveRule validates and stores an operator rule, then reloads the rule set
// so the change applies to the next evaluation.
// Rules are saved globally (tenant_id = "*") so they apply to all tenants.
func (s *Service) SaveRule(ctx context.Context, rule *domain.RuleConfig) error {
	if s.rules == nil {
		return ErrRulesDisabled
	}
	if rule == nil {
		return domain.InvalidInput("rule", "rule is required")
	}

	rule.ID = strings.TrimSpace(rule.ID)
	switch {
	case rule.ID == "":
		return domain.InvalidInput("id", "rule id is required")
	case strings.TrimSpace(rule.Name) == "":
		return domain.InvalidInput("name", "rule name is required")
	case strings.TrimSpace(rule.Expression) == "":
		return domain.InvalidInput("expression", "rule expression is required")
	case rule.Score < 0:
		return domain.InvalidInput("score", "rule score must not be negative")
	}
	if rule.Domain != "" {
		d, err := domain.ParseDomain(string(rule.Domain))
		if err != nil {
			return err
		}
		rule.Domain = d
	}

	rule.TenantID = GlobalTenantID
	if rule.Version == "" {
		rule.Version = "1.0.0"
	}

	if err := s.rules.ValidateRule(rule); err != nil {
		return domain.InvalidInput("expression", "%v", err)
	}

	if err := s.repo.SaveRuleConfig(ctx, GlobalTenantID, rule); err != nil {
		return fmt.Errorf("failed to save rule: %w", err)
	}

	logging.L(ctx).Info("rule saved", "id", rule.ID, "name", rule.Name, "version", rule.Version)

	_, err := s.ReloadRules(ctx)
	return err
}

// ReloadRules replaces the loaded rule set with the stored global rules.
// On a compile error the previous rule set stays active.
func (s *Service) ReloadRules(ctx context.Context) (int, error) {
	if s.rules == nil {
		return 0, ErrRulesDisabled
	}

	stored, err := s.repo.ListRuleConfigs(ctx, GlobalTenantID)
	if err != nil {
		return 0, fmt.Errorf("failed to load rules: %w", err)
	}

	if err := s.rules.ReloadRules(stored); err != nil {
		return 0, fmt.Errorf("failed to reload rules: %w", err)
	}

	count := s.rules.RulesCount()
	metrics.RulesLoaded.Set(float64(count))
	logging.L(ctx).Info("rules reloaded", "count", count)
	return count, nil
}
