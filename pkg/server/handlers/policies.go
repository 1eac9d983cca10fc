package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"arbiter-hq/arbiter/pkg/policy/compiled"
	"arbiter-hq/arbiter/pkg/policy/source"
)

// PolicySummary is the list form of a loaded policy.
type PolicySummary struct {
	ID       string `json:"id"`
	Version  string `json:"version"`
	Category string `json:"category"`
	Rules    int    `json:"rules"`
}

// PoliciesHandler serves POST /v1/policies, GET /v1/policies and
// GET /v1/policies/{id}. Policies loaded over the API are persisted to the
// registry, when one is configured, so they survive restarts.
type PoliciesHandler struct {
	engine *compiled.Engine
	store  *source.Store
	logger *slog.Logger
}

// NewPoliciesHandler creates the policies handler. store may be nil.
func NewPoliciesHandler(engine *compiled.Engine, store *source.Store) *PoliciesHandler {
	return &PoliciesHandler{
		engine: engine,
		store:  store,
		logger: slog.Default().With("component", "handlers.policies"),
	}
}

func (h *PoliciesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/policies")
	id = strings.TrimPrefix(id, "/")

	switch {
	case r.Method == http.MethodPost && id == "":
		h.load(w, r)
	case r.Method == http.MethodGet && id == "":
		h.list(w)
	case r.Method == http.MethodGet:
		h.get(w, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *PoliciesHandler) load(w http.ResponseWriter, r *http.Request) {
	var policy compiled.CompiledPolicy
	if err := json.NewDecoder(r.Body).Decode(&policy); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed policy body: "+err.Error())
		return
	}

	if err := h.engine.Load(&policy); err != nil {
		var provErr *compiled.ProvenanceError
		var valErr *compiled.ValidationError
		switch {
		case errors.As(err, &provErr):
			writeError(w, http.StatusBadRequest, "provenance_mismatch", err.Error())
		case errors.As(err, &valErr):
			writeError(w, http.StatusBadRequest, "invalid_policy", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		}
		return
	}

	if h.store != nil {
		if err := h.store.Save(r.Context(), &policy); err != nil {
			// The policy is live in the engine; losing persistence is
			// logged, not fatal.
			h.logger.Error("failed to persist policy",
				"policy_id", policy.ID,
				"error", err,
			)
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "loaded",
		"policy_id": policy.ID,
	})
}

func (h *PoliciesHandler) list(w http.ResponseWriter) {
	policies := h.engine.List()
	out := make([]PolicySummary, 0, len(policies))
	for _, p := range policies {
		out = append(out, PolicySummary{
			ID:       p.ID,
			Version:  p.Version,
			Category: string(p.Category),
			Rules:    len(p.Rules),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"policies": out})
}

func (h *PoliciesHandler) get(w http.ResponseWriter, id string) {
	policy, ok := h.engine.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "policy_not_found", "policy "+id+" is not loaded")
		return
	}

	// The provenance token is write-only; it never leaves the process.
	out := *policy
	out.ProvenanceToken = ""
	writeJSON(w, http.StatusOK, &out)
}
