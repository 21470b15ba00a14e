package approval

import (
	"fmt"
	"sort"

	"github.com/emilythestrangee/community-directory/backend/internal/apperr"
)

// Registry holds the named policies and which one drives automatic approval.
type Registry struct {
	policies map[string]Policy
	active   string
}

func NewRegistry(active string, policies ...Policy) (*Registry, error) {
	r := &Registry{policies: make(map[string]Policy, len(policies))}
	for _, p := range policies {
		if _, dup := r.policies[p.Name()]; dup {
			return nil, fmt.Errorf("approval policy %q registered twice", p.Name())
		}
		r.policies[p.Name()] = p
	}
	if _, ok := r.policies[active]; !ok {
		return nil, fmt.Errorf("active approval policy %q is not registered", active)
	}
	r.active = active
	return r, nil
}

// DefaultRegistry registers both policies with their stock parameters and
// makes the dual threshold policy active.
func DefaultRegistry() *Registry {
	r, _ := NewRegistry(DualThresholdName,
		DualThreshold{MinVotes: DefaultMinVotes, RatioThreshold: DefaultRatioThreshold},
		ThresholdOrPercentage{Threshold: DefaultThreshold, PercentageThreshold: DefaultPercentageThreshold},
	)
	return r
}

func (r *Registry) Active() Policy {
	return r.policies[r.active]
}

// Lookup returns the policy called name; an empty name means the active one.
func (r *Registry) Lookup(name string) (Policy, error) {
	if name == "" {
		return r.Active(), nil
	}
	p, ok := r.policies[name]
	if !ok {
		return nil, apperr.Validation("unknown approval policy %q, expected one of %v", name, r.Names())
	}
	return p, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.policies))
	for name := range r.policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
