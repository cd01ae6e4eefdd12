package config

import "context"

// HookChain runs the config:resolution hook chain against an accumulated
// Config and returns the (possibly further-overridden) result. Hooks may
// shallow-merge additional overrides but must not replace the object
// wholesale; a hook chain that "stops" simply returns early with whatever
// it had accumulated. internal/server.New supplies the concrete
// implementation backed by the plugin hook executor; config stays
// decoupled from the hooks package to avoid an import cycle.
type HookChain func(ctx context.Context, accumulated Config) (Config, error)

// Resolver is the deterministic function of spec.md §4.9: base config,
// domain profiles, and a hook chain, producing one frozen effective Config
// for a (client_ip, hostname) pair. The result is never cached across
// requests since hook output may depend on time or other external state;
// callers cache it for the lifetime of one request only.
type Resolver struct {
	Base     Config
	Profiles []DomainProfile
	Hooks    HookChain
}

// Resolve computes the effective config for hostname. clientIP is accepted
// for symmetry with the spec's (client_ip, hostname) signature and so
// future hook chains can make per-client decisions, even though the
// built-in steps (profile matching) key only on hostname.
func (r Resolver) Resolve(ctx context.Context, clientIP, hostname string) (Config, error) {
	effective := r.Base.Clone()

	if profile, ok := MatchProfile(r.Profiles, hostname); ok {
		effective = Merge(effective, profile.Config)
	}

	if r.Hooks != nil {
		hooked, err := r.Hooks(ctx, effective)
		if err != nil {
			return Config{}, err
		}
		effective = hooked
	}

	return effective, nil
}
