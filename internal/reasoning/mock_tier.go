package reasoning

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockTier is a mock reasoning tier HTTP server for testing the tier client
// and end-to-end evaluation. It records every request it receives and answers
// with a configurable decision.
type MockTier struct {
	server *httptest.Server

	mu        sync.Mutex
	response  MockResponse
	requests  []MockRequest
	callCount int
}

// MockResponse configures what the mock tier answers.
type MockResponse struct {
	StatusCode int
	Decision   string
	Confidence float64
	Reasoning  []string

	// Delay is applied before answering, to exercise client timeouts.
	Delay time.Duration

	// RawBody, when set, is written verbatim instead of the JSON answer.
	RawBody string
}

// MockRequest is one request the mock tier received.
type MockRequest struct {
	RequestID string         `json:"request_id"`
	PolicyID  string         `json:"policy_id"`
	Category  string         `json:"category"`
	Input     map[string]any `json:"input"`
}

// NewMockTier starts a mock tier answering allow with confidence 0.9.
func NewMockTier() *MockTier {
	mt := &MockTier{
		response: MockResponse{
			StatusCode: http.StatusOK,
			Decision:   "allow",
			Confidence: 0.9,
		},
	}
	mt.server = httptest.NewServer(http.HandlerFunc(mt.handler))
	return mt
}

// URL returns the mock tier's endpoint URL.
func (mt *MockTier) URL() string {
	return mt.server.URL
}

// Close shuts the mock tier down.
func (mt *MockTier) Close() {
	mt.server.Close()
}

// SetResponse replaces the configured answer.
func (mt *MockTier) SetResponse(resp MockResponse) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.response = resp
}

// CallCount returns how many requests the tier has received.
func (mt *MockTier) CallCount() int {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return mt.callCount
}

// Requests returns a copy of the received requests in order.
func (mt *MockTier) Requests() []MockRequest {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return append([]MockRequest(nil), mt.requests...)
}

func (mt *MockTier) handler(w http.ResponseWriter, r *http.Request) {
	var req MockRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	mt.mu.Lock()
	mt.callCount++
	mt.requests = append(mt.requests, req)
	resp := mt.response
	mt.mu.Unlock()

	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}

	if resp.RawBody != "" {
		w.WriteHeader(resp.StatusCode)
		_, _ = w.Write([]byte(resp.RawBody))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"decision":   resp.Decision,
		"confidence": resp.Confidence,
		"reasoning":  resp.Reasoning,
	})
}
