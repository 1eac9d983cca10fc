package source

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"arbiter-hq/arbiter/pkg/policy/compiled"
)

// LoadFile parses one policy document from disk.
func LoadFile(path string) (*compiled.CompiledPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file %q: %w", path, err)
	}

	policy, err := compiled.ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("invalid policy file %q: %w", path, err)
	}
	return policy, nil
}

// LoadDir loads every .yaml/.yml policy document under dir, sorted by path so
// loading order is deterministic. Hidden files and directories are skipped. A
// single invalid file fails the whole load; partial policy sets are worse than
// a clean error at startup.
func LoadDir(dir string) ([]*compiled.CompiledPolicy, error) {
	var paths []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		base := filepath.Base(path)
		if strings.HasPrefix(base, ".") && path != dir {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan policy directory %q: %w", dir, err)
	}
	sort.Strings(paths)

	policies := make([]*compiled.CompiledPolicy, 0, len(paths))
	seen := make(map[string]string, len(paths))
	for _, path := range paths {
		policy, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[policy.ID]; ok {
			return nil, fmt.Errorf("duplicate policy id %q in %q (first defined in %q)", policy.ID, path, prev)
		}
		seen[policy.ID] = path
		policies = append(policies, policy)
	}

	slog.Default().With("component", "policy.source").Info("policy directory loaded",
		"dir", dir,
		"policies", len(policies),
	)
	return policies, nil
}
