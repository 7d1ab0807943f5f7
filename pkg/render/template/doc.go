// Package template defines the rendering seam consumed by the collection
// dispatcher: a generic Renderer, the optional RoutineResolver capability for
// precompiled routines, and an adapter for go-template compatible engines.
package template
