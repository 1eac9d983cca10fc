package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"arbiter-hq/arbiter/pkg/audit"
	"arbiter-hq/arbiter/pkg/cache"
	"arbiter-hq/arbiter/pkg/evaluation"
	"arbiter-hq/arbiter/pkg/gate"
	"arbiter-hq/arbiter/pkg/orchestrator"
	"arbiter-hq/arbiter/pkg/policy/compiled"
	"arbiter-hq/arbiter/pkg/reasoning"
	"arbiter-hq/arbiter/pkg/tiers"
)

const testReference = "ref-token-1"

type fixture struct {
	orch   *orchestrator.Orchestrator
	engine *compiled.Engine
	client *reasoning.FakeClient
	sink   *audit.MemorySink
	cache  *cache.DecisionCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	g, err := gate.New(testReference)
	if err != nil {
		t.Fatalf("gate.New() error = %v", err)
	}

	engine := compiled.New(testReference, nil)
	client := &reasoning.FakeClient{
		Result: &reasoning.Result{
			Value:      evaluation.DecisionAllow,
			Confidence: 0.9,
			Reasoning:  []string{"looks fine"},
		},
	}
	sink := audit.NewMemorySink()
	writer := audit.NewWriter(sink, nil)
	t.Cleanup(func() { writer.Close() })

	decisionCache := cache.New(cache.Config{MaxEntries: 100, TTL: time.Minute})
	t.Cleanup(decisionCache.Close)

	orch, err := orchestrator.New(orchestrator.Config{
		Gate:      g,
		Cache:     decisionCache,
		Engine:    engine,
		Reasoning: client,
		Audit:     writer,
	})
	if err != nil {
		t.Fatalf("orchestrator.New() error = %v", err)
	}

	return &fixture{orch: orch, engine: engine, client: client, sink: sink, cache: decisionCache}
}

func loadAccessPolicy(t *testing.T, engine *compiled.Engine) {
	t.Helper()
	err := engine.Load(&compiled.CompiledPolicy{
		ID:              "default-access-control",
		Version:         "1.0.0",
		Category:        evaluation.CategoryAccessControl,
		ProvenanceToken: testReference,
		Default:         evaluation.DecisionDeny,
		Rules: []compiled.Rule{
			{
				Name:   "allow-admins",
				Effect: evaluation.DecisionAllow,
				Conditions: []compiled.Condition{
					{Field: "subject.role", Operator: compiled.OpEqual, Value: "admin"},
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
}

func evaluateBody(provenance string) EvaluateRequest {
	return EvaluateRequest{
		Request: evaluation.PolicyRequest{
			ID:         "req-1",
			Category:   evaluation.CategoryAccessControl,
			PolicyID:   "default-access-control",
			Input:      map[string]any{"subject": map[string]any{"role": "admin"}},
			Complexity: 0.1,
			Urgency:    evaluation.UrgencyNormal,
		},
		Context: evaluation.ConstitutionalContext{
			ProvenanceToken: provenance,
			ComplianceLevel: evaluation.ComplianceHigh,
		},
	}
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestEvaluateHandler_CompiledAllow(t *testing.T) {
	f := newFixture(t)
	loadAccessPolicy(t, f.engine)
	handler := NewEvaluateHandler(f.orch)

	rec := postJSON(t, handler, "/v1/evaluate", evaluateBody(testReference))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body)
	}

	var resp DecisionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Decision != evaluation.DecisionAllow {
		t.Errorf("Decision = %q, want allow", resp.Decision)
	}
	if resp.Engine != "compiled" {
		t.Errorf("Engine = %q, want compiled", resp.Engine)
	}
	if resp.TierUsed != "" {
		t.Errorf("TierUsed = %q, want empty on the compiled path", resp.TierUsed)
	}
	if resp.CacheStatus != evaluation.CacheMiss {
		t.Errorf("CacheStatus = %q, want miss", resp.CacheStatus)
	}
}

func TestEvaluateHandler_GateDenial(t *testing.T) {
	f := newFixture(t)
	loadAccessPolicy(t, f.engine)
	handler := NewEvaluateHandler(f.orch)

	rec := postJSON(t, handler, "/v1/evaluate", evaluateBody("garbage"))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}

	var resp DecisionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Decision != evaluation.DecisionDeny {
		t.Errorf("Decision = %q, want deny", resp.Decision)
	}
	if resp.Confidence != 1.0 {
		t.Errorf("Confidence = %v, want 1.0", resp.Confidence)
	}
	if resp.Validation.ComplianceScore != 0.0 {
		t.Errorf("ComplianceScore = %v, want 0.0", resp.Validation.ComplianceScore)
	}
}

func TestEvaluateHandler_MalformedBody(t *testing.T) {
	f := newFixture(t)
	handler := NewEvaluateHandler(f.orch)

	req := httptest.NewRequest(http.MethodPost, "/v1/evaluate", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestEvaluateHandler_InvalidRequest(t *testing.T) {
	f := newFixture(t)
	handler := NewEvaluateHandler(f.orch)

	body := evaluateBody(testReference)
	body.Request.Complexity = 3.5

	rec := postJSON(t, handler, "/v1/evaluate", body)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestEvaluateHandler_TierUnavailable(t *testing.T) {
	f := newFixture(t)
	f.client.Err = &reasoning.UnavailableError{Tier: tiers.T2, Cause: errors.New("connection refused")}
	handler := NewEvaluateHandler(f.orch)

	body := evaluateBody(testReference)
	body.Request.Complexity = 0.75

	rec := postJSON(t, handler, "/v1/evaluate", body)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Error.Type != "evaluation_unavailable" {
		t.Errorf("error type = %q, want evaluation_unavailable", resp.Error.Type)
	}
}

func TestPoliciesHandler_LoadListGet(t *testing.T) {
	f := newFixture(t)
	handler := NewPoliciesHandler(f.engine, nil)

	policy := compiled.CompiledPolicy{
		ID:              "p1",
		Version:         "1.0.0",
		Category:        evaluation.CategoryAccessControl,
		ProvenanceToken: testReference,
		Default:         evaluation.DecisionDeny,
	}
	rec := postJSON(t, handler, "/v1/policies", policy)
	if rec.Code != http.StatusOK {
		t.Fatalf("load status = %d, want 200; body %s", rec.Code, rec.Body)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/policies", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", rec.Code)
	}
	var list struct {
		Policies []PolicySummary `json:"policies"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(list.Policies) != 1 || list.Policies[0].ID != "p1" {
		t.Errorf("unexpected list: %+v", list.Policies)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/policies/p1", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d, want 200", rec.Code)
	}
	var got compiled.CompiledPolicy
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ProvenanceToken != "" {
		t.Error("provenance token leaked in the policy detail response")
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/policies/missing", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing policy status = %d, want 404", rec.Code)
	}
}

func TestPoliciesHandler_ProvenanceMismatch(t *testing.T) {
	f := newFixture(t)
	handler := NewPoliciesHandler(f.engine, nil)

	policy := compiled.CompiledPolicy{
		ID:              "p1",
		Version:         "1.0.0",
		Category:        evaluation.CategoryAccessControl,
		ProvenanceToken: "wrong",
		Default:         evaluation.DecisionDeny,
	}
	rec := postJSON(t, handler, "/v1/policies", policy)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Error.Type != "provenance_mismatch" {
		t.Errorf("error type = %q, want provenance_mismatch", resp.Error.Type)
	}
}

func TestTiersHandler(t *testing.T) {
	handler := NewTiersHandler(tiers.DefaultConfigs())

	req := httptest.NewRequest(http.MethodGet, "/v1/tiers", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Tiers []TierInfo `json:"tiers"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Tiers) != 4 {
		t.Fatalf("got %d tiers, want 4", len(resp.Tiers))
	}
	if resp.Tiers[3].Tier != "T3" || resp.Tiers[3].RelativeCost != 100 {
		t.Errorf("unexpected T3: %+v", resp.Tiers[3])
	}
}

func TestStatsHandler(t *testing.T) {
	f := newFixture(t)
	loadAccessPolicy(t, f.engine)

	body := evaluateBody(testReference)
	if _, err := f.orch.Evaluate(context.Background(), &body.Request, body.Context); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	handler := NewStatsHandler(f.orch, f.cache)
	req := httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp StatsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Evaluations.Total != 1 {
		t.Errorf("Total = %d, want 1", resp.Evaluations.Total)
	}
}

func TestAuditHandler_Query(t *testing.T) {
	f := newFixture(t)
	record := audit.NewRecord(&evaluation.PolicyRequest{
		ID:       "req-42",
		PolicyID: "p1",
		Category: evaluation.CategoryAccessControl,
	})
	if err := f.sink.Append(context.Background(), record); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	handler := NewAuditHandler(f.sink)
	req := httptest.NewRequest(http.MethodGet, "/v1/audit?request_id=req-42", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Records []audit.Record `json:"records"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Records) != 1 {
		t.Errorf("got %d records, want 1", len(resp.Records))
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/audit", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing request_id status = %d, want 400", rec.Code)
	}
}

func TestStreamHandler_OrderPreserved(t *testing.T) {
	f := newFixture(t)
	loadAccessPolicy(t, f.engine)
	handler := NewStreamHandler(f.orch)

	var lines []string
	for i, id := range []string{"s-1", "s-2", "s-3"} {
		body := evaluateBody(testReference)
		body.Request.ID = id
		if i == 1 {
			// Route the middle request through the reasoning path.
			body.Request.Complexity = 0.75
		}
		data, _ := json.Marshal(body)
		lines = append(lines, string(data))
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/evaluate/stream",
		strings.NewReader(strings.Join(lines, "\n")+"\n"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	out := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(out) != 3 {
		t.Fatalf("got %d response lines, want 3", len(out))
	}
	for i, want := range []string{"s-1", "s-2", "s-3"} {
		var line streamLine
		if err := json.Unmarshal([]byte(out[i]), &line); err != nil {
			t.Fatalf("line %d unmarshal: %v", i, err)
		}
		if line.Decision == nil {
			t.Fatalf("line %d has no decision: %s", i, out[i])
		}
		if line.Decision.RequestID != want {
			t.Errorf("line %d RequestID = %q, want %q", i, line.Decision.RequestID, want)
		}
	}
}

func TestStreamHandler_BadLineDoesNotBreakStream(t *testing.T) {
	f := newFixture(t)
	loadAccessPolicy(t, f.engine)
	handler := NewStreamHandler(f.orch)

	good, _ := json.Marshal(evaluateBody(testReference))
	input := "{broken\n" + string(good) + "\n"

	req := httptest.NewRequest(http.MethodPost, "/v1/evaluate/stream", strings.NewReader(input))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	out := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(out) != 2 {
		t.Fatalf("got %d response lines, want 2", len(out))
	}

	var first, second streamLine
	json.Unmarshal([]byte(out[0]), &first)
	json.Unmarshal([]byte(out[1]), &second)
	if first.Error == nil {
		t.Error("first line should be an error")
	}
	if second.Decision == nil {
		t.Error("second line should be a decision")
	}
}
