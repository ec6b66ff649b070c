package flow

import (
	"context"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Loader is the interface for a format-specific flow loader.
type Loader interface {
	// Load reads flow configuration from the given paths, translates it into
	// the format-agnostic model, and returns a matching Converter.
	Load(ctx context.Context, paths ...string) (*Model, Converter, error)
}

// Converter is the interface for a format-specific data binding and type
// conversion implementation. It bridges raw step arguments and the Go input
// structs used by modules.
type Converter interface {
	// DecodeInput evaluates a step's argument expressions against evalCtx
	// and populates the handler's input struct, enforcing required fields
	// and rejecting arguments the struct does not declare.
	DecodeInput(
		ctx context.Context,
		inputStruct any,
		args map[string]hcl.Expression,
		evalCtx *hcl.EvalContext,
	) error

	// ToCtyValue converts a native Go value (like a map[string]string from a
	// pure Go module) into its equivalent cty.Value for chaining into
	// downstream steps.
	ToCtyValue(v any) (cty.Value, error)
}
