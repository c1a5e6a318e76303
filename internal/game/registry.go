package game

import (
	"fmt"
	"sync"
)

// Registry manages the confirmation rules of all group activities
type Registry struct {
	mu    sync.RWMutex
	rules map[CooldownType]ConfirmationRule
}

// NewRegistry creates an empty rule registry
func NewRegistry() *Registry {
	return &Registry{
		rules: make(map[CooldownType]ConfirmationRule),
	}
}

// DefaultRegistry returns a registry holding every built-in group activity
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, rule := range defaultRules() {
		r.Register(rule)
	}
	return r
}

// Register adds a rule to the registry
func (r *Registry) Register(rule ConfirmationRule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[rule.Activity()] = rule
}

// Get retrieves the rule for an activity
func (r *Registry) Get(activity CooldownType) (ConfirmationRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, ok := r.rules[activity]
	if !ok {
		return nil, fmt.Errorf("unknown group activity: %s", activity)
	}
	return rule, nil
}

// Has reports whether the activity is a registered group activity
func (r *Registry) Has(activity CooldownType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rules[activity]
	return ok
}
