// Package collection renders one template per element of a sequence.
//
// A Dispatcher resolves a Plan once per call: either a precompiled routine
// offered by the renderer (see template.RoutineResolver) or the renderer's
// generic path. It then builds a single rendering context, overwrites the
// bound variable for every element, and feeds each rendering to an output
// sink. Without a callback the renderings are concatenated; with one they are
// streamed to the callback and the call yields no value.
//
// The rendering context is owned by the call and mutated between elements, so
// renderers must not retain it after returning.
package collection
