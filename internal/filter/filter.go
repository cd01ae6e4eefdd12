// Package filter implements the built-in ad and tracking blocklist
// consulted during the filter:decision lifecycle step (spec.md §4.6).
// Matching is a flat list of substring/suffix rules rather than a full
// Adblock Plus grammar — the legacy-browser audience this proxy serves
// doesn't need cosmetic filtering, only network-level blocking.
package filter

import "strings"

// Verdict is what a Decision produces: whether the request should be
// blocked, and if so, which status a blocked response should carry.
type Verdict int

const (
	// Allow lets the request proceed to the upstream fetch.
	Allow Verdict = iota
	// BlockEmpty serves a 200 with an empty body, for script/resource
	// requests where a network error would break the calling page.
	BlockEmpty
	// BlockNoContent serves a 204, for tracking-pixel image requests.
	BlockNoContent
)

// Rule is one blocklist entry: a substring match against the request
// URL, tagged with the kind of blocked response it should produce and
// whether it's an ad rule or a tracking rule (surfaced separately in
// metrics).
type Rule struct {
	Pattern  string
	Verdict  Verdict
	Tracking bool
}

// Decision is a Rule set; the toggles that gate which of its rules are
// consulted are passed to Evaluate.
type Decision struct {
	rules []Rule
}

// New builds a Decision over the built-in rule set.
func New() *Decision {
	return &Decision{rules: append(adRules, trackingRules...)}
}

// Evaluate returns the verdict for url given whether ad-removal and
// tracking-removal are enabled for this request's resolved config. A
// rule belonging to a disabled category is skipped.
func (d *Decision) Evaluate(url string, removeAds, removeTracking bool) (Verdict, bool) {
	for _, rule := range d.rules {
		if rule.Tracking && !removeTracking {
			continue
		}
		if !rule.Tracking && !removeAds {
			continue
		}
		if strings.Contains(url, rule.Pattern) {
			return rule.Verdict, true
		}
	}
	return Allow, false
}

// adRules blocks well-known ad-serving and ad-script hosts. Scripts are
// blocked with an empty 200 body so pages that feature-detect the
// script object rather than catching a network error keep working.
var adRules = []Rule{
	{Pattern: "doubleclick.net", Verdict: BlockEmpty},
	{Pattern: "googlesyndication.com", Verdict: BlockEmpty},
	{Pattern: "googleadservices.com", Verdict: BlockEmpty},
	{Pattern: "adservice.google.", Verdict: BlockEmpty},
	{Pattern: "/pagead/", Verdict: BlockEmpty},
	{Pattern: "amazon-adsystem.com", Verdict: BlockEmpty},
	{Pattern: "taboola.com", Verdict: BlockEmpty},
	{Pattern: "outbrain.com", Verdict: BlockEmpty},
}

// trackingRules blocks analytics beacons and tracking pixels. These are
// blocked with a 204 since the caller is typically a 1x1 <img> or a
// fire-and-forget beacon that doesn't expect a body.
var trackingRules = []Rule{
	{Pattern: "google-analytics.com", Verdict: BlockNoContent, Tracking: true},
	{Pattern: "googletagmanager.com", Verdict: BlockNoContent, Tracking: true},
	{Pattern: "facebook.com/tr", Verdict: BlockNoContent, Tracking: true},
	{Pattern: "connect.facebook.net", Verdict: BlockNoContent, Tracking: true},
	{Pattern: "scorecardresearch.com", Verdict: BlockNoContent, Tracking: true},
	{Pattern: "quantserve.com", Verdict: BlockNoContent, Tracking: true},
	{Pattern: "/pixel.gif", Verdict: BlockNoContent, Tracking: true},
	{Pattern: "hotjar.com", Verdict: BlockNoContent, Tracking: true},
}
