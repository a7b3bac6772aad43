package parsers

import "mailledger/internal/core"

// Registry is an ordered list of strategies. Registration order is
// priority order.
type Registry struct {
	strategies []Strategy
}

// NewRegistry creates a registry holding strategies in the given order.
func NewRegistry(strategies ...Strategy) *Registry {
	r := &Registry{}
	for _, s := range strategies {
		r.Register(s)
	}
	return r
}

// NewDefaultRegistry returns a registry with every supported institution.
func NewDefaultRegistry() *Registry {
	return NewRegistry(NewBAC(), NewDavibank(), NewDavivienda())
}

// Register appends s after the existing strategies.
func (r *Registry) Register(s Strategy) {
	r.strategies = append(r.strategies, s)
}

// Select returns the first strategy that claims msg.
func (r *Registry) Select(msg core.Message) (Strategy, bool) {
	for _, s := range r.strategies {
		if s.CanParse(msg) {
			return s, true
		}
	}
	return nil, false
}

// Institutions lists the supported institutions in priority order.
func (r *Registry) Institutions() []string {
	names := make([]string, 0, len(r.strategies))
	for _, s := range r.strategies {
		names = append(names, s.Institution())
	}
	return names
}
