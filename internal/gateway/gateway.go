// Package gateway is the entry point for context and navigation requests.
// It sits between the HTTP handlers and the session registry, the browser
// engine and the history recorder.
package gateway

import (
	"context"

	"github.com/MrSnakeDoc/tabgate/internal/domain"
	"github.com/MrSnakeDoc/tabgate/internal/engine"
)

// Registry is the part of the session registry used by the gateways.
type Registry interface {
	CreateContext(ctx context.Context, userID string) (domain.ContextHandle, error)
	DestroyOwned(ctx context.Context, handle, userID string) error
	Validate(handle, userID string) error
	Touch(handle string) error
	MarkDead(handle string)
}

// Navigator loads pages in an engine context.
type Navigator interface {
	Navigate(ctx context.Context, req engine.NavigateRequest) (engine.NavigateResult, error)
}

// NavigationListener is notified after every confirmed navigation.
type NavigationListener interface {
	OnNavigation(ctx context.Context, ev domain.NavigationEvent) (domain.HistoryEntry, error)
}

// RulesProvider returns the rules currently in force.
type RulesProvider interface {
	Current() domain.RuleSet
}

type staticRules struct{ set domain.RuleSet }

func (s staticRules) Current() domain.RuleSet { return s.set }

// StaticRules returns a provider that always answers set.
func StaticRules(set domain.RuleSet) RulesProvider {
	return staticRules{set: set}
}
