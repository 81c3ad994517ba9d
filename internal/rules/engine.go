// Package rules provides the CEL-Go based rule evaluation engine for
// operator-defined scoring rules.
package rules

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"

	"github.com/opensource-finance/fraudforge/internal/domain"
)

// Engine is the CEL-based rule evaluation engine.
// Rules are swapped under a lock; an evaluation sees one consistent rule set.
type Engine struct {
	mu            sync.RWMutex
	env           *cel.Env
	compiledRules map[string]*CompiledRule
	maxWorkers    int
}

// CompiledRule holds a pre-compiled CEL program.
type CompiledRule struct {
	Config  *domain.RuleConfig
	Program cel.Program
}

// Input holds the event attributes exposed to rule expressions.
type Input struct {
	Domain        string
	Actor         string
	Amount        float64
	Currency      string
	Counterparty  string
	Location      string
	Channel       string
	Content       string
	URL           string
	Hour          int64
	Weekday       int64
	RecentCount   int64
	RecentSum     float64
	KnownDevice   bool
	KnownLocation bool
}

// Result is the outcome of one rule.
type Result struct {
	RuleID string
	Name   string
	Score  float64
	Reason string
	Err    error
}

// NewEngine creates a new rule evaluation engine.
func NewEngine(maxWorkers int) (*Engine, error) {
	if maxWorkers <= 0 {
		maxWorkers = 10
	}

	env, err := cel.NewEnv(
		cel.Variable("domain", cel.StringType),
		cel.Variable("actor", cel.StringType),
		cel.Variable("amount", cel.DoubleType),
		cel.Variable("currency", cel.StringType),
		cel.Variable("counterparty", cel.StringType),
		cel.Variable("location", cel.StringType),
		cel.Variable("channel", cel.StringType),
		cel.Variable("content", cel.StringType),
		cel.Variable("url", cel.StringType),
		cel.Variable("hour", cel.IntType),
		cel.Variable("weekday", cel.IntType),
		cel.Variable("recent_count", cel.IntType),
		cel.Variable("recent_sum", cel.DoubleType),
		cel.Variable("known_device", cel.BoolType),
		cel.Variable("known_location", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:           env,
		compiledRules: make(map[string]*CompiledRule),
		maxWorkers:    maxWorkers,
	}, nil
}

// ValidateRule compiles and validates a rule without mutating loaded engine rules.
func (e *Engine) ValidateRule(cfg *domain.RuleConfig) error {
	if cfg == nil {
		return fmt.Errorf("rule config is required")
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	_, err := e.compileRule(cfg)
	return err
}

// LoadRule compiles and loads a rule into the engine.
func (e *Engine) LoadRule(cfg *domain.RuleConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	compiled, err := e.compileRule(cfg)
	if err != nil {
		return err
	}

	e.compiledRules[cfg.ID] = compiled

	return nil
}

// LoadRules compiles and loads multiple rules.
func (e *Engine) LoadRules(configs []*domain.RuleConfig) error {
	for _, cfg := range configs {
		if cfg.Enabled {
			if err := e.LoadRule(cfg); err != nil {
				return err
			}
		}
	}
	return nil
}

// EvaluateAll evaluates the rules that apply to d in parallel.
// Results are ordered by rule ID.
func (e *Engine) EvaluateAll(d domain.Domain, input *Input) []Result {
	rules := e.snapshot(d)
	if len(rules) == 0 {
		return nil
	}

	activation := map[string]any{
		"domain":         input.Domain,
		"actor":          input.Actor,
		"amount":         input.Amount,
		"currency":       input.Currency,
		"counterparty":   input.Counterparty,
		"location":       input.Location,
		"channel":        input.Channel,
		"content":        input.Content,
		"url":            input.URL,
		"hour":           input.Hour,
		"weekday":        input.Weekday,
		"recent_count":   input.RecentCount,
		"recent_sum":     input.RecentSum,
		"known_device":   input.KnownDevice,
		"known_location": input.KnownLocation,
	}

	// Parallel evaluation using worker pool pattern
	results := make([]Result, len(rules))
	var wg sync.WaitGroup

	// Limit concurrency with semaphore
	sem := make(chan struct{}, e.maxWorkers)

	for i, rule := range rules {
		wg.Add(1)
		go func(idx int, r *CompiledRule) {
			defer wg.Done()

			sem <- struct{}{}        // Acquire
			defer func() { <-sem }() // Release

			results[idx] = evaluateRule(r, activation)
		}(i, rule)
	}

	wg.Wait()

	return results
}

// snapshot returns the enabled rules for d sorted by ID.
func (e *Engine) snapshot(d domain.Domain) []*CompiledRule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rules := make([]*CompiledRule, 0, len(e.compiledRules))
	for _, rule := range e.compiledRules {
		if rule.Config.AppliesTo(d) {
			rules = append(rules, rule)
		}
	}
	sort.Slice(rules, func(i, j int) bool {
		return rules[i].Config.ID < rules[j].Config.ID
	})
	return rules
}

// evaluateRule evaluates a single rule and returns the result.
func evaluateRule(rule *CompiledRule, activation map[string]any) Result {
	result := Result{
		RuleID: rule.Config.ID,
		Name:   rule.Config.Name,
		Reason: rule.Config.Reason,
	}
	if result.Reason == "" {
		result.Reason = rule.Config.Name
	}

	out, _, err := rule.Program.Eval(activation)
	if err != nil {
		result.Err = fmt.Errorf("rule %s: %w", rule.Config.ID, err)
		return result
	}

	result.Score = toScore(out, rule.Config.Score)
	return result
}

// toScore converts a CEL value to points. Booleans earn the rule's score,
// numbers are taken as-is and floored at zero.
func toScore(val ref.Val, points float64) float64 {
	var score float64
	switch v := val.(type) {
	case types.Bool:
		if v {
			score = points
		}
	case types.Double:
		score = float64(v)
	case types.Int:
		score = float64(v)
	}
	if score < 0 {
		return 0
	}
	return score
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiledRules)
}

// ReloadRules clears all existing rules and loads new ones.
// On a compile error the previous rule set stays active.
func (e *Engine) ReloadRules(configs []*domain.RuleConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	newRules := make(map[string]*CompiledRule)

	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}

		compiled, err := e.compileRule(cfg)
		if err != nil {
			return err
		}
		newRules[cfg.ID] = compiled
	}

	e.compiledRules = newRules

	return nil
}

// GetLoadedRules returns the currently loaded rule configurations sorted by ID.
func (e *Engine) GetLoadedRules() []*domain.RuleConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rules := make([]*domain.RuleConfig, 0, len(e.compiledRules))
	for _, compiled := range e.compiledRules {
		rules = append(rules, compiled.Config)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })
	return rules
}

// Close cleans up the engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiledRules = make(map[string]*CompiledRule)
	return nil
}

func (e *Engine) compileRule(cfg *domain.RuleConfig) (*CompiledRule, error) {
	if cfg.ID == "" {
		return nil, fmt.Errorf("rule id is required")
	}

	ast, issues := e.env.Compile(cfg.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", cfg.ID, issues.Err())
	}

	outputType := ast.OutputType()
	if outputType != cel.BoolType && outputType != cel.DoubleType && outputType != cel.IntType {
		return nil, fmt.Errorf("rule %s: expression must return bool, int, or double, got %s", cfg.ID, outputType)
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", cfg.ID, err)
	}

	return &CompiledRule{
		Config:  cfg,
		Program: program,
	}, nil
}
