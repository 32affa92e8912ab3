package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"hlswatch/registry"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streams.db")
	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()

	cfgs := []registry.StreamConfig{
		{StreamID: "s1", MasterURL: "https://example.com/1.m3u8", CreatedAt: time.Now().Truncate(time.Second)},
	}
	if err := s.Save(cfgs); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 1 || loaded[0].StreamID != "s1" {
		t.Fatalf("unexpected result: %+v", loaded)
	}
}
