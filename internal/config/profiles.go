package config

import (
	"path"
	"sort"
	"strings"
)

// MatchProfile returns the DomainProfile that should apply to hostname,
// and whether any profile matched at all. Ordering is (priority desc,
// specificity desc); specificity is the longest literal (non-wildcard)
// prefix of the matching pattern.
func MatchProfile(profiles []DomainProfile, hostname string) (DomainProfile, bool) {
	type candidate struct {
		profile     DomainProfile
		specificity int
	}

	var candidates []candidate
	for _, p := range profiles {
		best := -1
		for _, pattern := range p.Patterns {
			if !matchHostPattern(pattern, hostname) {
				continue
			}
			if s := literalPrefixLen(pattern); s > best {
				best = s
			}
		}
		if best >= 0 {
			candidates = append(candidates, candidate{profile: p, specificity: best})
		}
	}

	if len(candidates) == 0 {
		return DomainProfile{}, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].profile.Priority != candidates[j].profile.Priority {
			return candidates[i].profile.Priority > candidates[j].profile.Priority
		}
		return candidates[i].specificity > candidates[j].specificity
	})

	return candidates[0].profile, true
}

// matchHostPattern matches a glob-style pattern (path.Match semantics,
// applied to the hostname as a single path segment by substituting "."
// literally) against hostname. "*.example.com" matches "foo.example.com"
// but not "example.com" itself, matching standard TLS-wildcard intuition.
func matchHostPattern(pattern, hostname string) bool {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	hostname = strings.ToLower(strings.TrimSpace(hostname))
	if pattern == hostname {
		return true
	}
	ok, err := path.Match(pattern, hostname)
	if err != nil {
		return false
	}
	return ok
}

// literalPrefixLen returns the length of pattern up to its first glob
// metacharacter, used as the specificity tiebreaker.
func literalPrefixLen(pattern string) int {
	for i, r := range pattern {
		if r == '*' || r == '?' || r == '[' {
			return i
		}
	}
	return len(pattern)
}
