package reasoning

import (
	"fmt"

	"arbiter-hq/arbiter/pkg/tiers"
)

// UnavailableError reports that a reasoning tier could not produce a
// decision: transport failure, timeout, non-success status, or an unusable
// response body. A correctness-sensitive policy decision must not be guessed,
// so callers surface this instead of substituting a default.
type UnavailableError struct {
	Tier  tiers.Tier
	Cause error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("reasoning tier %s unavailable: %v", e.Tier, e.Cause)
}

func (e *UnavailableError) Unwrap() error {
	return e.Cause
}

// ConfigError reports an invalid reasoning client configuration.
type ConfigError struct {
	Tier    tiers.Tier
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("reasoning tier %s configuration error: %s", e.Tier, e.Message)
}
