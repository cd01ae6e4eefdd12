package cache

import (
	"context"
	"os"
	"testing"
)

func TestDiskTierRoundTrips(t *testing.T) {
	dir := t.TempDir()
	tier, err := NewDiskTier(dir)
	if err != nil {
		t.Fatalf("NewDiskTier: %v", err)
	}

	want := Entry{ContentType: "text/css", Body: []byte("body{}")}
	if err := tier.Put(context.Background(), "a/b", want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := tier.Get(context.Background(), "a/b")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ContentType != want.ContentType || string(got.Body) != string(want.Body) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestDiskTierMissesAndEvictsOnCorruptSidecar(t *testing.T) {
	dir := t.TempDir()
	tier, _ := NewDiskTier(dir)

	tier.Put(context.Background(), "k", Entry{Body: []byte("v")})
	if err := os.WriteFile(tier.metaPath("k"), []byte("not json"), 0o644); err != nil {
		t.Fatalf("corrupting sidecar: %v", err)
	}

	if _, err := tier.Get(context.Background(), "k"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for corrupt sidecar, got %v", err)
	}
	if _, statErr := os.Stat(tier.dataPath("k")); statErr == nil {
		t.Fatal("expected corrupt entry's data file to be evicted")
	}
}

func TestDiskTierMissesOnUnknownKey(t *testing.T) {
	dir := t.TempDir()
	tier, _ := NewDiskTier(dir)
	if _, err := tier.Get(context.Background(), "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
