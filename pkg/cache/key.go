package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Key computes the cache key for a (policy identifier, input payload) pair.
//
// The input is serialized with encoding/json, which writes map keys in sorted
// order at every nesting level, so two payloads that differ only in key order
// produce the same key. The policy id and payload are separated by a NUL byte
// so that concatenation cannot produce collisions across the boundary.
func Key(policyID string, input map[string]any) (string, error) {
	canonical, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize input: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(policyID))
	h.Write([]byte{0})
	h.Write(canonical)

	return hex.EncodeToString(h.Sum(nil)), nil
}
