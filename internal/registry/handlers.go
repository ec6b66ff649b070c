package registry

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/zclconf/go-cty/cty"
)

// Handler holds the compiled Go parts of a runner's OnRun lifecycle function.
type Handler struct {
	// NewInput returns a fresh pointer to the handler's input struct. It is
	// nil for handlers that take no input or take a raw cty.Value.
	NewInput func() any
	// Fn is the handler function itself. Supported signatures are
	// func(ctx) error, func(ctx) (T, error), func(ctx, *Input) error,
	// func(ctx, *Input) (T, error) and func(ctx, cty.Value) (cty.Value, error).
	Fn any
}

// RegisterHandler registers a Go function for a runner's OnRun lifecycle event.
func (r *Registry) RegisterHandler(name string, handler *Handler) {
	if _, exists := r.handlers[name]; exists {
		panic(fmt.Sprintf("runner handler with name '%s' already registered", name))
	}
	slog.Debug("Registering runner handler.", "name", name)
	r.handlers[name] = handler
}

// Handler returns the handler registered under a lifecycle name.
func (r *Registry) Handler(name string) (*Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// Shape describes the validated signature of a handler function.
type Shape struct {
	// TakesInput reports whether the function has a second parameter.
	TakesInput bool
	// InputIsValue reports that the second parameter is a raw cty.Value.
	InputIsValue bool
	// InputType is the pointer-to-struct type of the second parameter when
	// TakesInput is set and InputIsValue is not.
	InputType reflect.Type
	// HasOutput reports whether the function returns a value before the error.
	HasOutput bool
}

var (
	ctxType    = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType    = reflect.TypeOf((*error)(nil)).Elem()
	ctyValType = reflect.TypeOf(cty.Value{})
)

// Shape inspects the handler function and reports its calling convention, or
// an error when the signature is not one of the supported forms.
func (h *Handler) Shape() (Shape, error) {
	if h.Fn == nil {
		return Shape{}, fmt.Errorf("handler function is nil")
	}
	t := reflect.TypeOf(h.Fn)
	if t.Kind() != reflect.Func {
		return Shape{}, fmt.Errorf("handler must be a function, got %s", t)
	}

	var shape Shape
	switch t.NumIn() {
	case 1:
	case 2:
		shape.TakesInput = true
		in := t.In(1)
		switch {
		case in == ctyValType:
			shape.InputIsValue = true
		case in.Kind() == reflect.Ptr && in.Elem().Kind() == reflect.Struct:
			shape.InputType = in
		default:
			return Shape{}, fmt.Errorf("handler input must be a pointer to a struct or a cty.Value, got %s", in)
		}
	default:
		return Shape{}, fmt.Errorf("handler takes %d parameters; want (ctx) or (ctx, input)", t.NumIn())
	}
	if t.In(0) != ctxType {
		return Shape{}, fmt.Errorf("handler must accept context.Context as its first parameter")
	}

	switch t.NumOut() {
	case 1:
	case 2:
		shape.HasOutput = true
	default:
		return Shape{}, fmt.Errorf("handler returns %d values; want (error) or (output, error)", t.NumOut())
	}
	if t.Out(t.NumOut()-1) != errType {
		return Shape{}, fmt.Errorf("handler must return an error as its last value")
	}

	return shape, nil
}

// Call invokes the handler function with the given input, which must match
// the shape's calling convention: a pointer to the populated input struct, a
// cty.Value, or nil for handlers without input. It returns the handler's
// output value, or nil when the handler produces none.
func (h *Handler) Call(ctx context.Context, input any) (any, error) {
	shape, err := h.Shape()
	if err != nil {
		return nil, err
	}

	args := []reflect.Value{reflect.ValueOf(ctx)}
	if shape.TakesInput {
		args = append(args, reflect.ValueOf(input))
	}

	results := reflect.ValueOf(h.Fn).Call(args)

	if errV := results[len(results)-1]; !errV.IsNil() {
		return nil, errV.Interface().(error)
	}
	if shape.HasOutput {
		return results[0].Interface(), nil
	}
	return nil, nil
}
