package config

import (
	"context"
	"reflect"
	"testing"
)

func TestResolverAppliesProfileThenHooks(t *testing.T) {
	r := Resolver{
		Base: Defaults(),
		Profiles: []DomainProfile{
			{ID: "news", Patterns: []string{"*.news.test"}, Priority: 1, Config: PartialConfig{TransformHtml: boolPtr(false)}},
		},
		Hooks: func(_ context.Context, acc Config) (Config, error) {
			acc.UserAgent = "hooked-ua"
			return acc, nil
		},
	}

	cfg, err := r.Resolve(context.Background(), "1.2.3.4", "a.news.test")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.TransformHtml {
		t.Fatal("expected profile override to disable TransformHtml")
	}
	if cfg.UserAgent != "hooked-ua" {
		t.Fatalf("expected hook override applied, got %q", cfg.UserAgent)
	}
}

func TestResolverIsPureWithoutHooks(t *testing.T) {
	r := Resolver{Base: Defaults()}
	a, err := r.Resolve(context.Background(), "1.2.3.4", "example.com")
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.Resolve(context.Background(), "1.2.3.4", "example.com")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("expected identical results for identical inputs: %+v vs %+v", a, b)
	}
}
