// Package persistence adapts the registry's ConfigStore contract onto
// disk, grounded on the teacher's store/cache.go writeCacheToFile:
// write the new content to a ".new" sibling, remove the old file, then
// rename — so a crash mid-write never leaves a corrupt or partially
// written config file in the canonical path.
package persistence

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"hlswatch/registry"
)

// StreamConfig is an alias for registry.StreamConfig so JSONStore
// satisfies registry.ConfigStore exactly (Go requires identical named
// types across an interface's method signatures, not just identical
// fields).
type StreamConfig = registry.StreamConfig

// JSONStore is the default registry.ConfigStore adapter: the full
// stream list as a single JSON document at path.
type JSONStore struct {
	mu   sync.Mutex
	path string
}

// NewJSONStore builds a store writing to path.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Load reads the persisted stream list. A missing file is not an
// error — it means no streams have ever been saved yet.
func (s *JSONStore) Load() ([]StreamConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var cfgs []StreamConfig
	if err := json.Unmarshal(data, &cfgs); err != nil {
		return nil, err
	}
	return cfgs, nil
}

// Save atomically replaces the persisted stream list.
func (s *JSONStore) Save(cfgs []StreamConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfgs, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".new"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	_ = os.Remove(s.path)
	return os.Rename(tmp, s.path)
}
