// Package flow defines the format-agnostic model of a user's flow file,
// along with the core interfaces (Loader, Converter) for loading and
// interpreting flow configuration from concrete sources.
//
// The flow.Model is the single source of truth for the graph builder.
// Concrete implementations of the interfaces, such as for HCL, live in
// separate packages.
package flow
