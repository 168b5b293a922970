// Package worker provides the agent types a fleet server can instantiate by
// name, and the catalog that maps those names to work factories.
package worker

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/Iron-Ham/fleet/internal/agent"
	"github.com/Iron-Ham/fleet/internal/errors"
)

// Factory builds the work for a new agent from its registration metadata.
type Factory func(metadata map[string]any) (agent.Work, error)

// Catalog maps agent types to factories. It is safe for concurrent use.
type Catalog struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{factories: make(map[string]Factory)}
}

// Builtin returns a catalog holding the echo, sleep and fail workers.
func Builtin() *Catalog {
	c := NewCatalog()
	c.MustRegister(TypeEcho, NewEcho)
	c.MustRegister(TypeSleep, NewSleep)
	c.MustRegister(TypeFail, NewFail)
	return c
}

// Register adds a factory. Registering the same type twice is an error.
func (c *Catalog) Register(agentType string, f Factory) error {
	if agentType == "" {
		return errors.NewValidationError("agent type must not be empty").WithField("agent_type")
	}
	if f == nil {
		return errors.NewValidationError("factory must not be nil").WithField("factory")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.factories[agentType]; exists {
		return errors.NewValidationError(fmt.Sprintf("agent type %q already registered", agentType)).
			WithField("agent_type").WithValue(agentType)
	}
	c.factories[agentType] = f
	return nil
}

// MustRegister is Register that panics on error, for use at init time.
func (c *Catalog) MustRegister(agentType string, f Factory) {
	if err := c.Register(agentType, f); err != nil {
		panic(err)
	}
}

// Build creates work for agentType. Unknown types yield a NotFoundError.
func (c *Catalog) Build(agentType string, metadata map[string]any) (agent.Work, error) {
	c.mu.RLock()
	f, ok := c.factories[agentType]
	c.mu.RUnlock()
	if !ok {
		return nil, errors.NewNotFoundError("agent type", agentType)
	}

	work, err := f(metadata)
	if err != nil {
		return nil, errors.Wrapf(err, "build %s worker", agentType)
	}
	return work, nil
}

// Has reports whether agentType is registered.
func (c *Catalog) Has(agentType string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.factories[agentType]
	return ok
}

// Types returns the registered agent types in sorted order.
func (c *Catalog) Types() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.factories))
}
