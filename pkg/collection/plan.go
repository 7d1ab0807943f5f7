package collection

import (
	"sort"

	"github.com/goliatone/go-rendereach/pkg/render/template"
)

// Route identifies how a call renders its elements.
type Route int

const (
	// RouteGeneric renders every element through Renderer.RenderItem.
	RouteGeneric Route = iota
	// RouteOptimized renders every element through a resolved Routine.
	RouteOptimized
)

func (r Route) String() string {
	switch r {
	case RouteOptimized:
		return "optimized"
	default:
		return "generic"
	}
}

// Plan is the outcome of Resolve. Routine is set only for RouteOptimized.
type Plan struct {
	Route    Route
	Routine  template.Routine
	Bound    string
	HasBound bool
	// Shape is the sorted set of local names the routine was resolved for.
	Shape []string
}

// Resolve decides, once per call, how elements of a collection are rendered.
// The precedence is:
//
//  1. With no options at all, a zero-argument routine for the template is
//     preferred. The derived local is still bound.
//  2. An explicit Local or Unbound option determines the bound name.
//  3. Otherwise the name is derived with LocalName.
//  4. With no Extra options and a bound name, a routine keyed by the bound
//     name plus the keys of Locals is tried.
//
// Anything else, including a renderer without routines, uses the generic
// path. A miss is never an error.
func Resolve(r template.Renderer, name string, opts Options) Plan {
	resolver, _ := r.(template.RoutineResolver)

	if resolver != nil && opts.IsZero() {
		if routine, ok := resolver.ResolveRoutine(name, nil); ok {
			bound := LocalName(name)
			return Plan{
				Route:    RouteOptimized,
				Routine:  routine,
				Bound:    bound,
				HasBound: bound != "",
				Shape:    []string{},
			}
		}
	}

	plan := Plan{Route: RouteGeneric}
	plan.Bound, plan.HasBound = boundName(name, opts)

	if resolver == nil || len(opts.Extra) > 0 || !plan.HasBound {
		return plan
	}

	shape := localShape(plan.Bound, opts.Locals)
	if routine, ok := resolver.ResolveRoutine(name, shape); ok {
		plan.Route = RouteOptimized
		plan.Routine = routine
		plan.Shape = shape
	}
	return plan
}

func boundName(name string, opts Options) (string, bool) {
	switch {
	case opts.Unbound:
		return "", false
	case opts.Local != "":
		return opts.Local, true
	}
	derived := LocalName(name)
	return derived, derived != ""
}

func localShape(bound string, locals map[string]any) []string {
	shape := make([]string, 0, len(locals)+1)
	shape = append(shape, bound)
	for key := range locals {
		if key != bound {
			shape = append(shape, key)
		}
	}
	sort.Strings(shape)
	return shape
}
