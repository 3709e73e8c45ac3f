package rules

import (
	"sync/atomic"

	"github.com/MrSnakeDoc/tabgate/internal/domain"
)

// Holder keeps the rule set in force. Reads never block a reload.
type Holder struct {
	current atomic.Pointer[domain.RuleSet]
}

// NewHolder starts with the built-in rules.
func NewHolder() *Holder {
	h := &Holder{}
	set := domain.DefaultRuleSet()
	h.current.Store(&set)
	return h
}

// Current returns the rule set in force.
func (h *Holder) Current() domain.RuleSet {
	return *h.current.Load()
}

// Set replaces the rule set.
func (h *Holder) Set(set domain.RuleSet) {
	h.current.Store(&set)
}
