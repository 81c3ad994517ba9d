package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/opensource-finance/fraudforge/internal/decision"
	"github.com/opensource-finance/fraudforge/internal/domain"
	"github.com/opensource-finance/fraudforge/internal/logging"
	"github.com/opensource-finance/fraudforge/internal/service"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Handler holds dependencies for API handlers.
type Handler struct {
	svc     *service.Service
	version string
}

// NewHandler creates a new API handler.
func NewHandler(svc *service.Service, version string) *Handler {
	return &Handler{
		svc:     svc,
		version: version,
	}
}

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// Evaluate handles POST /evaluate/{domain} requests.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	ev, ok := h.decodeEvent(w, r)
	if !ok {
		return
	}

	eval, err := h.svc.Process(r.Context(), GetTenantID(r.Context()), ev)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, eval.ToResponse())
}

// Submit handles POST /events/{domain}: the event is queued for the worker.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	ev, ok := h.decodeEvent(w, r)
	if !ok {
		return
	}

	eventID, err := h.svc.Submit(r.Context(), GetTenantID(r.Context()), ev)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"eventId": eventID,
		"status":  "queued",
	})
}

func (h *Handler) decodeEvent(w http.ResponseWriter, r *http.Request) (domain.Event, bool) {
	d, err := domain.ParseDomain(chi.URLParam(r, "domain"))
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, domain.InvalidInput("event", "unreadable request body"))
		return nil, false
	}

	ev, err := domain.DecodeEvent(d, body)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return ev, true
}

// ListEvaluations handles GET /evaluations?limit=N.
func (h *Handler) ListEvaluations(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, r, domain.InvalidInput("limit", "limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	evals, err := h.svc.RecentEvaluations(r.Context(), GetTenantID(r.Context()), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]*domain.EvaluationResponse, len(evals))
	for i, e := range evals {
		out[i] = e.ToResponse()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"evaluations": out,
		"count":       len(out),
	})
}

// GetEvaluation retrieves an evaluation by ID.
func (h *Handler) GetEvaluation(w http.ResponseWriter, r *http.Request) {
	eval, err := h.svc.GetEvaluation(r.Context(), GetTenantID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, eval.ToResponse())
}

// BlocklistRequest is the request body for POST /blocklist.
type BlocklistRequest struct {
	Identifier string `json:"identifier"`
	Kind       string `json:"kind"`
	Reason     string `json:"reason"`
}

// ListBlocklist returns the tenant blocklist.
func (h *Handler) ListBlocklist(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.Blocklist(r.Context(), GetTenantID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []*domain.BlocklistEntry{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

// AddToBlocklist adds an identifier to the tenant blocklist.
func (h *Handler) AddToBlocklist(w http.ResponseWriter, r *http.Request) {
	var req BlocklistRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, r, domain.InvalidInput("body", "invalid JSON request body"))
		return
	}

	tenantID := GetTenantID(r.Context())
	entry := &domain.BlocklistEntry{
		TenantID:   tenantID,
		Identifier: domain.NormalizeIdentifier(req.Identifier),
		Kind:       req.Kind,
		Reason:     req.Reason,
	}
	if entry.Kind == "" {
		entry.Kind = domain.BlockKindOther
	}

	if err := h.svc.Block(r.Context(), tenantID, entry); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

// RemoveFromBlocklist deletes an identifier from the tenant blocklist.
func (h *Handler) RemoveFromBlocklist(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")
	if err := h.svc.Unblock(r.Context(), GetTenantID(r.Context()), identifier); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "blocklist entry removed",
	})
}

// RecordFailedAttempt handles POST /actors/{actor}/failed-attempts.
func (h *Handler) RecordFailedAttempt(w http.ResponseWriter, r *http.Request) {
	actor := chi.URLParam(r, "actor")

	n, err := h.svc.RecordFailedAttempt(r.Context(), GetTenantID(r.Context()), actor)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"actorId":        actor,
		"failedAttempts": n,
	})
}

// ListRules returns all loaded rules from the engine.
// Rules are loaded from the database at startup and can be reloaded via POST /rules/reload.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	loaded := h.svc.Rules()

	writeJSON(w, http.StatusOK, map[string]any{
		"rules":  loaded,
		"count":  len(loaded),
		"source": "database",
	})
}

// CreateRule validates and saves a rule, then reloads the rule set.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var rule domain.RuleConfig
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&rule); err != nil {
		writeError(w, r, domain.InvalidInput("body", "invalid JSON request body"))
		return
	}

	if err := h.svc.SaveRule(r.Context(), &rule); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"rule":    rule,
		"message": "rule saved and engine reloaded",
	})
}

// ReloadRules reloads all rules from the database into the engine.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	count, err := h.svc.ReloadRules(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "rules reloaded successfully",
		"count":   count,
	})
}

// ConfigResponse describes how one domain is scored.
type ConfigResponse struct {
	Domain     domain.Domain           `json:"domain"`
	Analyzers  []string                `json:"analyzers"`
	Thresholds decision.ThresholdTable `json:"thresholds"`
	Confidence decision.Confidence     `json:"confidence"`
}

// GetConfig handles GET /config/{domain}.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	d, err := domain.ParseDomain(chi.URLParam(r, "domain"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	policy, ok := h.svc.Policy(d)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "domain not configured"})
		return
	}

	writeJSON(w, http.StatusOK, ConfigResponse{
		Domain:     d,
		Analyzers:  h.svc.Analyzers(d),
		Thresholds: policy.Thresholds,
		Confidence: policy.Confidence,
	})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if err := h.svc.Ping(r.Context()); err != nil {
		logging.L(r.Context()).Warn("health check failed", "error", err)
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// writeError maps service errors onto HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var derr *domain.Error
	switch {
	case errors.As(err, &derr) && derr.Kind == domain.KindInvalidInput:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: derr.Message, Field: derr.Field})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, service.ErrRulesDisabled),
		errors.Is(err, service.ErrBusUnavailable),
		errors.Is(err, service.ErrCacheUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	default:
		logging.L(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
