// Package di assembles the bot's object graph from modules of capability
// providers. Each provider names what it builds and what it needs; Assemble
// orders construction so dependencies are always built first and rejects
// graphs with missing, duplicate or cyclic capabilities.
package di

import (
	"fmt"
	"strings"

	"github.com/edgard/attendancebot/internal/errs"
)

// Capability identifies something a provider builds, e.g. "domain.store".
type Capability string

// Provider builds a single capability. Build receives a Resolver limited to
// the capabilities listed in Requires.
type Provider struct {
	Capability Capability
	Requires   []Capability
	Build      func(r Resolver) (any, error)
}

// Module groups related providers.
type Module struct {
	Name      string
	Providers []Provider
}

// NewModule is a convenience constructor.
func NewModule(name string, providers ...Provider) Module {
	return Module{Name: name, Providers: providers}
}

// Provide declares a provider for c built by build from requires.
func Provide(c Capability, build func(r Resolver) (any, error), requires ...Capability) Provider {
	return Provider{Capability: c, Requires: requires, Build: build}
}

// Supply declares a provider for an already constructed value.
func Supply(c Capability, value any) Provider {
	return Provider{Capability: c, Build: func(Resolver) (any, error) { return value, nil }}
}

type registration struct {
	provider Provider
	module   string
}

// Assemble validates the modules and builds every capability in dependency
// order. The result is immutable and safe for concurrent readers.
func Assemble(modules ...Module) (*Graph, error) {
	registry := make(map[Capability]registration)
	var declared []Capability

	for _, m := range modules {
		for _, p := range m.Providers {
			if p.Capability == "" {
				return nil, errs.NewDependencyResolutionError("", fmt.Sprintf("module %s declares an unnamed capability", m.Name), nil)
			}
			if p.Build == nil {
				return nil, errs.NewDependencyResolutionError(string(p.Capability), "no build function for capability", nil)
			}
			if prev, exists := registry[p.Capability]; exists {
				return nil, errs.NewDependencyResolutionError(string(p.Capability),
					fmt.Sprintf("duplicate registration (modules %s, %s) of capability", prev.module, m.Name), nil)
			}
			registry[p.Capability] = registration{provider: p, module: m.Name}
			declared = append(declared, p.Capability)
		}
	}

	order, err := sortProviders(registry, declared)
	if err != nil {
		return nil, err
	}

	instances := make(map[Capability]any, len(order))
	for _, c := range order {
		reg := registry[c]
		scope := &scopedResolver{owner: c, allowed: reg.provider.Requires, instances: instances}

		instance, err := reg.provider.Build(scope)
		if err != nil {
			return nil, errs.NewDependencyResolutionError(string(c), "failed to build capability", err)
		}
		if instance == nil {
			return nil, errs.NewDependencyResolutionError(string(c), "provider returned nil for capability", nil)
		}
		instances[c] = instance
	}

	return &Graph{instances: instances, order: order}, nil
}

// sortProviders returns a topological order over the registry: every
// capability comes after its requirements, otherwise declaration order is
// kept so the result is deterministic.
func sortProviders(registry map[Capability]registration, declared []Capability) ([]Capability, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[Capability]int, len(declared))
	order := make([]Capability, 0, len(declared))
	var path []Capability

	var visit func(c Capability, from Capability) error
	visit = func(c Capability, from Capability) error {
		reg, ok := registry[c]
		if !ok {
			return errs.NewDependencyResolutionError(string(c),
				fmt.Sprintf("%q requires missing capability", from), nil)
		}
		switch state[c] {
		case done:
			return nil
		case visiting:
			return errs.NewDependencyResolutionError(string(c), "dependency cycle "+cyclePath(path, c)+" at capability", nil)
		}

		state[c] = visiting
		path = append(path, c)
		for _, dep := range reg.provider.Requires {
			if err := visit(dep, c); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		state[c] = done
		order = append(order, c)
		return nil
	}

	for _, c := range declared {
		if err := visit(c, ""); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func cyclePath(path []Capability, repeated Capability) string {
	start := 0
	for i, c := range path {
		if c == repeated {
			start = i
			break
		}
	}
	parts := make([]string, 0, len(path)-start+1)
	for _, c := range path[start:] {
		parts = append(parts, string(c))
	}
	parts = append(parts, string(repeated))
	return strings.Join(parts, " -> ")
}
