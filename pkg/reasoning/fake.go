package reasoning

import (
	"context"
	"sync"

	"arbiter-hq/arbiter/pkg/tiers"
)

// FakeClient is a deterministic in-process Client for tests. It records every
// call and returns either a scripted result or a scripted error.
type FakeClient struct {
	mu sync.Mutex

	// Result is returned on every call when Err is nil.
	Result *Result

	// Err is returned on every call when set.
	Err error

	// Calls records the tier of each Evaluate invocation in order.
	Calls []tiers.Tier

	// Requests records the request of each Evaluate invocation in order.
	Requests []*Request
}

var _ Client = (*FakeClient)(nil)

// Evaluate records the call and returns the scripted result or error.
func (f *FakeClient) Evaluate(_ context.Context, tier tiers.Tier, req *Request) (*Result, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, tier)
	f.Requests = append(f.Requests, req)
	f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}
	if f.Result == nil {
		return nil, &UnavailableError{Tier: tier, Cause: context.Canceled}
	}
	out := *f.Result
	return &out, nil
}

// CallCount returns the number of Evaluate invocations so far.
func (f *FakeClient) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

// Close is a no-op.
func (f *FakeClient) Close() error {
	return nil
}
