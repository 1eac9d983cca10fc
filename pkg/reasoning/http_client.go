package reasoning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"arbiter-hq/arbiter/pkg/evaluation"
	"arbiter-hq/arbiter/pkg/tiers"
)

// Endpoint is the transport configuration for one reasoning tier. The call
// timeout is derived from the tier's declared latency target with headroom.
type Endpoint struct {
	URL     string
	Timeout time.Duration
}

// HTTPConfig contains configuration for the HTTP reasoning client.
type HTTPConfig struct {
	// Endpoints maps each tier to its endpoint.
	Endpoints map[tiers.Tier]Endpoint

	// MaxIdleConns is the connection pool size.
	// Default: 100
	MaxIdleConns int

	// MaxIdleConnsPerHost is the per-host connection pool size.
	// Default: 10
	MaxIdleConnsPerHost int

	// IdleConnTimeout is how long idle connections are kept.
	// Default: 90 seconds
	IdleConnTimeout time.Duration
}

// HTTPClient is the HTTP implementation of Client. It keeps one pooled
// transport for all tiers and applies the per-tier timeout on each call. No
// lock is held while a call is in flight, and failed calls are never retried
// here: re-asking a reasoning tier is a caller policy, not a transport one.
type HTTPClient struct {
	endpoints map[tiers.Tier]Endpoint
	client    *http.Client
	logger    *slog.Logger
}

// tierResponse is the wire format of a reasoning tier's answer.
type tierResponse struct {
	Decision   string   `json:"decision"`
	Confidence float64  `json:"confidence"`
	Reasoning  []string `json:"reasoning"`
}

// NewHTTPClient creates an HTTP reasoning client.
func NewHTTPClient(cfg HTTPConfig, logger *slog.Logger) (*HTTPClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Endpoints) == 0 {
		return nil, &ConfigError{Message: "no tier endpoints configured"}
	}
	for tier, ep := range cfg.Endpoints {
		if ep.URL == "" {
			return nil, &ConfigError{Tier: tier, Message: "endpoint URL is required"}
		}
		if ep.Timeout <= 0 {
			return nil, &ConfigError{Tier: tier, Message: "timeout must be positive"}
		}
	}

	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 100
	}
	maxIdlePerHost := cfg.MaxIdleConnsPerHost
	if maxIdlePerHost <= 0 {
		maxIdlePerHost = 10
	}
	idleTimeout := cfg.IdleConnTimeout
	if idleTimeout <= 0 {
		idleTimeout = 90 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:        maxIdle,
		MaxIdleConnsPerHost: maxIdlePerHost,
		IdleConnTimeout:     idleTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &HTTPClient{
		endpoints: cfg.Endpoints,
		client:    &http.Client{Transport: transport},
		logger:    logger.With("component", "reasoning.http"),
	}, nil
}

// Evaluate sends the request to the given tier and returns its decision.
func (c *HTTPClient) Evaluate(ctx context.Context, tier tiers.Tier, req *Request) (*Result, error) {
	endpoint, ok := c.endpoints[tier]
	if !ok {
		return nil, &ConfigError{Tier: tier, Message: "no endpoint configured"}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tier request: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, endpoint.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, endpoint.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create tier request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	c.logger.Debug("invoking reasoning tier",
		"tier", tier.String(),
		"request_id", req.RequestID,
		"policy_id", req.PolicyID,
		"timeout", endpoint.Timeout,
	)

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, &UnavailableError{Tier: tier, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &UnavailableError{
			Tier:  tier,
			Cause: fmt.Errorf("status %d: %s", resp.StatusCode, string(errorBody)),
		}
	}

	responseBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UnavailableError{Tier: tier, Cause: fmt.Errorf("failed to read response: %w", err)}
	}

	var wire tierResponse
	if err := json.Unmarshal(responseBytes, &wire); err != nil {
		return nil, &UnavailableError{Tier: tier, Cause: fmt.Errorf("failed to parse response: %w", err)}
	}

	// An unusable answer is indistinguishable from no answer. Never coerce
	// it into a default decision.
	value := tierDecisionValue(wire.Decision)
	if value == "" {
		return nil, &UnavailableError{
			Tier:  tier,
			Cause: fmt.Errorf("tier returned unknown decision %q", wire.Decision),
		}
	}
	if wire.Confidence < 0 || wire.Confidence > 1 {
		return nil, &UnavailableError{
			Tier:  tier,
			Cause: fmt.Errorf("tier returned confidence %v out of range", wire.Confidence),
		}
	}

	latency := time.Since(start)
	c.logger.Debug("reasoning tier answered",
		"tier", tier.String(),
		"request_id", req.RequestID,
		"decision", wire.Decision,
		"latency_ms", latency.Milliseconds(),
	)

	return &Result{
		Value:      value,
		Confidence: wire.Confidence,
		Reasoning:  wire.Reasoning,
		Latency:    latency,
	}, nil
}

// Close releases idle connections.
func (c *HTTPClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// tierDecisionValue maps a wire decision string to a DecisionValue, or ""
// if unknown.
func tierDecisionValue(s string) evaluation.DecisionValue {
	v := evaluation.DecisionValue(s)
	if v.Valid() {
		return v
	}
	return ""
}
