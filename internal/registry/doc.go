// Package registry provides the central glue between flow files and Go code.
//
// The Registry stores mappings between the runner types used in flow files
// (e.g. "print", "delay") and the compiled Go handler functions that
// implement them. Modules populate the registry during application startup,
// and a validation pass then checks that every declared runner resolves to a
// handler with a supported signature, preventing a wide class of runtime
// errors.
package registry
