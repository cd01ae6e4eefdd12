package config

import "testing"

func TestStoreSetAndResetOverride(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	if err := s.SetOverride(PartialConfig{TransformJs: boolPtr(false)}); err != nil {
		t.Fatalf("SetOverride: %v", err)
	}

	eff := s.Effective(Defaults())
	if eff.TransformJs {
		t.Fatal("expected TransformJs false after override")
	}

	// A fresh Store reloads from disk and sees the same override.
	reloaded, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore reload: %v", err)
	}
	if reloaded.Effective(Defaults()).TransformJs {
		t.Fatal("expected persisted override to survive reload")
	}

	if err := s.ResetOverride(); err != nil {
		t.Fatalf("ResetOverride: %v", err)
	}
	if !s.Effective(Defaults()).TransformJs {
		t.Fatal("expected TransformJs back to default true after reset")
	}
}

func TestStoreProfileCRUD(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	p := DomainProfile{ID: "p1", Patterns: []string{"*.example.com"}, Priority: 1}
	if err := s.PutProfile(p); err != nil {
		t.Fatalf("PutProfile: %v", err)
	}
	if len(s.Profiles()) != 1 {
		t.Fatalf("expected 1 profile, got %d", len(s.Profiles()))
	}

	p.Priority = 5
	if err := s.PutProfile(p); err != nil {
		t.Fatalf("PutProfile update: %v", err)
	}
	if got := s.Profiles(); len(got) != 1 || got[0].Priority != 5 {
		t.Fatalf("expected update in place, got %+v", got)
	}

	if err := s.DeleteProfile("p1"); err != nil {
		t.Fatalf("DeleteProfile: %v", err)
	}
	if len(s.Profiles()) != 0 {
		t.Fatal("expected profile removed")
	}
}
