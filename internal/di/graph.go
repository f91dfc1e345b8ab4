package di

import (
	"fmt"
	"slices"

	"github.com/edgard/attendancebot/internal/errs"
)

// Resolver looks up built capabilities.
type Resolver interface {
	Resolve(c Capability) (any, error)
}

// Graph is the assembled object graph. It is never modified after Assemble
// returns, so any number of goroutines may call Resolve concurrently.
type Graph struct {
	instances map[Capability]any
	order     []Capability
}

// Resolve returns the instance built for c.
func (g *Graph) Resolve(c Capability) (any, error) {
	instance, ok := g.instances[c]
	if !ok {
		return nil, errs.NewDependencyResolutionError(string(c), "unknown capability", nil)
	}
	return instance, nil
}

// Order returns the construction order.
func (g *Graph) Order() []Capability {
	return slices.Clone(g.order)
}

// Has reports whether c was assembled.
func (g *Graph) Has(c Capability) bool {
	_, ok := g.instances[c]
	return ok
}

// scopedResolver is handed to a provider while it is built. It only exposes
// the capabilities the provider declared, so undeclared dependencies fail
// instead of depending on construction order by accident.
type scopedResolver struct {
	owner     Capability
	allowed   []Capability
	instances map[Capability]any
}

func (s *scopedResolver) Resolve(c Capability) (any, error) {
	if !slices.Contains(s.allowed, c) {
		return nil, errs.NewDependencyResolutionError(string(c),
			fmt.Sprintf("%q resolved undeclared capability", s.owner), nil)
	}
	instance, ok := s.instances[c]
	if !ok {
		return nil, errs.NewDependencyResolutionError(string(c), "capability not built yet", nil)
	}
	return instance, nil
}

// Resolve returns the instance for c as T.
func Resolve[T any](r Resolver, c Capability) (T, error) {
	var zero T
	instance, err := r.Resolve(c)
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, errs.NewDependencyResolutionError(string(c),
			fmt.Sprintf("instance of type %T does not satisfy %T for capability", instance, (*T)(nil)), nil)
	}
	return typed, nil
}

// MustResolve is Resolve for callers that already validated the graph.
func MustResolve[T any](r Resolver, c Capability) T {
	typed, err := Resolve[T](r, c)
	if err != nil {
		panic(err)
	}
	return typed
}
