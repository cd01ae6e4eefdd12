package mitm

import (
	"testing"

	"github.com/revamp-proxy/revamp/internal/config"
)

func TestShouldInterceptRequiresPort443(t *testing.T) {
	cfg := config.Defaults()
	if ShouldIntercept(8080, cfg) {
		t.Fatal("expected non-443 ports to never be intercepted")
	}
}

func TestShouldInterceptOnTextTransformEnabled(t *testing.T) {
	cfg := config.Defaults()
	cfg.TransformJs, cfg.TransformCss, cfg.TransformHtml = true, false, false
	if !ShouldIntercept(443, cfg) {
		t.Fatal("expected interception when transformJs is enabled")
	}
}

func TestShouldInterceptFalseWhenNothingEnabled(t *testing.T) {
	cfg := config.Defaults()
	cfg.TransformJs, cfg.TransformCss, cfg.TransformHtml = false, false, false
	cfg.Targets = nil
	if ShouldIntercept(443, cfg) {
		t.Fatal("expected no interception with every transform disabled and no legacy targets")
	}
}

func TestShouldInterceptOnLegacyImageTarget(t *testing.T) {
	cfg := config.Defaults()
	cfg.TransformJs, cfg.TransformCss, cfg.TransformHtml = false, false, false
	cfg.Targets = []string{"safari 9"}
	if !ShouldIntercept(443, cfg) {
		t.Fatal("expected interception implied by a legacy safari target")
	}
}
