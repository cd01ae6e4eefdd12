package plugin

import "testing"

func TestLoadRejectsInvalidManifest(t *testing.T) {
	m := NewManager()
	if _, err := m.Load(Manifest{}); err == nil {
		t.Fatal("expected error for manifest missing id/main")
	}
}

func TestTransitionFollowsLifecycle(t *testing.T) {
	m := NewManager()
	if _, err := m.Load(Manifest{ID: "adblock", Main: "index.js"}); err != nil {
		t.Fatalf("Load: %v", err)
	}

	steps := []State{StateInitialized, StateActive, StateDeactivated, StateInitialized, StateActive}
	for _, to := range steps {
		if err := m.Transition("adblock", to, []string{"request:pre"}); err != nil {
			t.Fatalf("Transition to %s: %v", to, err)
		}
	}

	p, ok := m.Get("adblock")
	if !ok {
		t.Fatal("expected plugin to be found")
	}
	if p.State != StateActive {
		t.Fatalf("expected final state Active, got %s", p.State)
	}
	if len(p.RegisteredHooks) != 1 {
		t.Fatalf("expected registered hooks to be recorded, got %v", p.RegisteredHooks)
	}
}

func TestTransitionRejectsIllegalEdge(t *testing.T) {
	m := NewManager()
	if _, err := m.Load(Manifest{ID: "p1", Main: "index.js"}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := m.Transition("p1", StateActive, nil); err == nil {
		t.Fatal("expected error skipping straight from Loaded to Active")
	}
}

func TestFailClearsRegisteredHooksAndRecordsCause(t *testing.T) {
	m := NewManager()
	m.Load(Manifest{ID: "p1", Main: "index.js"})
	m.Transition("p1", StateInitialized, nil)
	m.Transition("p1", StateActive, []string{"response:post"})

	m.Fail("p1", errBoom)

	p, _ := m.Get("p1")
	if p.State != StateError {
		t.Fatalf("expected State Error, got %s", p.State)
	}
	if p.LastError != errBoom.Error() {
		t.Fatalf("expected LastError to record cause, got %q", p.LastError)
	}
	if len(p.RegisteredHooks) != 0 {
		t.Fatal("expected registered hooks cleared on failure")
	}
}

func TestListIsSortedByID(t *testing.T) {
	m := NewManager()
	m.Load(Manifest{ID: "zeta", Main: "a.js"})
	m.Load(Manifest{ID: "alpha", Main: "b.js"})

	list := m.List()
	if len(list) != 2 || list[0].Manifest.ID != "alpha" || list[1].Manifest.ID != "zeta" {
		t.Fatalf("expected sorted [alpha zeta], got %v", list)
	}
}

var errBoom = fmtError("boom")

type fmtError string

func (e fmtError) Error() string { return string(e) }
