//go:build integration

package test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mocktier "arbiter-hq/arbiter/internal/reasoning"
	"arbiter-hq/arbiter/pkg/audit"
	"arbiter-hq/arbiter/pkg/config"
	"arbiter-hq/arbiter/pkg/evaluation"
	"arbiter-hq/arbiter/pkg/gate"
	"arbiter-hq/arbiter/pkg/orchestrator"
	"arbiter-hq/arbiter/pkg/policy/compiled"
	"arbiter-hq/arbiter/pkg/reasoning"
	"arbiter-hq/arbiter/pkg/server"
	"arbiter-hq/arbiter/pkg/telemetry/health"
	"arbiter-hq/arbiter/pkg/telemetry/metrics"
	"arbiter-hq/arbiter/pkg/tiers"
)

const integrationToken = "integration-token"

// TestEvaluationIntegration exercises the full HTTP pipeline against a real
// tier client talking to a mock reasoning tier.
func TestEvaluationIntegration(t *testing.T) {
	tier := mocktier.NewMockTier()
	defer tier.Close()

	endpoints := make(map[tiers.Tier]reasoning.Endpoint)
	for _, tc := range tiers.DefaultConfigs() {
		endpoints[tc.Tier] = reasoning.Endpoint{URL: tier.URL(), Timeout: 2 * time.Second}
	}
	client, err := reasoning.NewHTTPClient(reasoning.HTTPConfig{Endpoints: endpoints}, nil)
	if err != nil {
		t.Fatalf("NewHTTPClient() error = %v", err)
	}
	defer client.Close()

	g, err := gate.New(integrationToken)
	if err != nil {
		t.Fatalf("gate.New() error = %v", err)
	}

	engine := compiled.New(integrationToken, nil)
	if err := engine.Load(&compiled.CompiledPolicy{
		ID:              "doc-access",
		Version:         "1.0.0",
		Category:        evaluation.CategoryAccessControl,
		ProvenanceToken: integrationToken,
		Default:         evaluation.DecisionAllow,
	}); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	sink := audit.NewMemorySink()
	writer := audit.NewWriter(sink, nil)
	defer writer.Close()

	orch, err := orchestrator.New(orchestrator.Config{
		Gate:      g,
		Engine:    engine,
		Reasoning: client,
		Audit:     writer,
	})
	if err != nil {
		t.Fatalf("orchestrator.New() error = %v", err)
	}

	checker := health.New(time.Second)
	checker.Register("audit", sink.Ping)

	var cfg config.Config
	config.ApplyDefaults(&cfg)

	srv := server.New(&cfg.Server, &cfg.Telemetry.Metrics, server.Dependencies{
		Orchestrator: orch,
		Engine:       engine,
		AuditSink:    sink,
		Health:       checker,
		Registry:     metrics.NewRegistry(),
	})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	t.Run("compiled path", func(t *testing.T) {
		resp := evaluate(t, ts.URL, evaluateBody("int-1", 0.1, false, integrationToken))
		if resp["decision"] != "allow" {
			t.Errorf("decision = %v, want allow", resp["decision"])
		}
		if resp["engine"] != "compiled" {
			t.Errorf("engine = %v, want compiled", resp["engine"])
		}
		if tier.CallCount() != 0 {
			t.Errorf("reasoning tier called %d times on the compiled path", tier.CallCount())
		}
	})

	t.Run("reasoning path", func(t *testing.T) {
		before := tier.CallCount()
		resp := evaluate(t, ts.URL, evaluateBody("int-2", 0.1, true, integrationToken))
		if resp["decision"] != "allow" {
			t.Errorf("decision = %v, want allow", resp["decision"])
		}
		if resp["tier_used"] == "" || resp["tier_used"] == nil {
			t.Error("tier_used is empty for a reasoning decision")
		}
		if tier.CallCount() != before+1 {
			t.Errorf("tier call count = %d, want %d", tier.CallCount(), before+1)
		}
	})

	t.Run("gate denial", func(t *testing.T) {
		status, resp := evaluateStatus(t, ts.URL, evaluateBody("int-3", 0.1, false, "wrong-token"))
		if status != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", status)
		}
		if resp["decision"] != "deny" {
			t.Errorf("decision = %v, want deny", resp["decision"])
		}
	})

	t.Run("tier unavailable", func(t *testing.T) {
		tier.SetResponse(mocktier.MockResponse{StatusCode: http.StatusInternalServerError, RawBody: "boom"})
		defer tier.SetResponse(mocktier.MockResponse{StatusCode: http.StatusOK, Decision: "allow", Confidence: 0.9})

		status, _ := evaluateStatus(t, ts.URL, evaluateBody("int-4", 0.1, true, integrationToken))
		if status != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", status)
		}
	})
}

func evaluateBody(id string, complexity float64, requiresReasoning bool, token string) string {
	return fmt.Sprintf(`{
		"request": {
			"id": %q,
			"category": "access-control",
			"policy_id": "doc-access",
			"input": {"actor": {"role": "admin"}},
			"complexity": %v,
			"urgency": "normal",
			"requires_reasoning": %v,
			"provenance_token": %q
		},
		"context": {"provenance_token": %q, "compliance_level": "high"}
	}`, id, complexity, requiresReasoning, token, token)
}

func evaluate(t *testing.T, baseURL, body string) map[string]any {
	t.Helper()
	status, resp := evaluateStatus(t, baseURL, body)
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %v", status, resp)
	}
	return resp
}

func evaluateStatus(t *testing.T, baseURL, body string) (int, map[string]any) {
	t.Helper()
	httpResp, err := http.Post(baseURL+"/v1/evaluate", "application/json", bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("POST /v1/evaluate: %v", err)
	}
	defer httpResp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(httpResp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return httpResp.StatusCode, decoded
}
