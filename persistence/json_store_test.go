package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"hlswatch/registry"
)

func TestJSONStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "streams.json")

	s := NewJSONStore(path)
	cfgs := []registry.StreamConfig{
		{StreamID: "s1", MasterURL: "https://example.com/1.m3u8", CreatedAt: time.Now()},
		{StreamID: "s2", MasterURL: "https://example.com/2.m3u8", CreatedAt: time.Now()},
	}

	if err := s.Save(cfgs); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 2 || loaded[0].StreamID != "s1" || loaded[1].StreamID != "s2" {
		t.Fatalf("unexpected round trip result: %+v", loaded)
	}
}

func TestJSONStoreLoadMissingFileIsNotError(t *testing.T) {
	s := NewJSONStore(filepath.Join(t.TempDir(), "missing.json"))
	cfgs, err := s.Load()
	if err != nil {
		t.Fatalf("expected no error for a missing file, got %v", err)
	}
	if cfgs != nil {
		t.Fatalf("expected nil config list, got %+v", cfgs)
	}
}

func TestJSONStoreSaveOverwritesPreviousContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streams.json")
	s := NewJSONStore(path)

	_ = s.Save([]registry.StreamConfig{{StreamID: "s1", MasterURL: "u1"}})
	_ = s.Save([]registry.StreamConfig{{StreamID: "s2", MasterURL: "u2"}})

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 1 || loaded[0].StreamID != "s2" {
		t.Fatalf("expected only the most recent save to be retained, got %+v", loaded)
	}
}
