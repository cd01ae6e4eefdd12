package config

import "testing"

func boolPtr(b bool) *bool { return &b }

func TestMatchProfilePrefersPriority(t *testing.T) {
	profiles := []DomainProfile{
		{ID: "low", Patterns: []string{"*.example.com"}, Priority: 1, Config: PartialConfig{TransformJs: boolPtr(false)}},
		{ID: "high", Patterns: []string{"*.example.com"}, Priority: 10, Config: PartialConfig{TransformJs: boolPtr(true)}},
	}

	p, ok := MatchProfile(profiles, "foo.example.com")
	if !ok || p.ID != "high" {
		t.Fatalf("expected high priority profile to win, got %+v", p)
	}
}

func TestMatchProfilePrefersSpecificity(t *testing.T) {
	profiles := []DomainProfile{
		{ID: "wild", Patterns: []string{"*.example.com"}, Priority: 5},
		{ID: "specific", Patterns: []string{"shop.example.com"}, Priority: 5},
	}

	p, ok := MatchProfile(profiles, "shop.example.com")
	if !ok || p.ID != "specific" {
		t.Fatalf("expected most specific pattern to win, got %+v", p)
	}
}

func TestMatchProfileNoMatch(t *testing.T) {
	profiles := []DomainProfile{{ID: "a", Patterns: []string{"*.example.com"}}}
	if _, ok := MatchProfile(profiles, "other.test"); ok {
		t.Fatal("expected no match")
	}
}

func TestMatchProfileWildcardDoesNotMatchBareDomain(t *testing.T) {
	profiles := []DomainProfile{{ID: "a", Patterns: []string{"*.example.com"}}}
	if _, ok := MatchProfile(profiles, "example.com"); ok {
		t.Fatal("expected *.example.com to not match bare example.com")
	}
}
