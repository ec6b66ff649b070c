package registry

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/mk/taskchaingo/internal/ctxlog"
)

// Validate performs a strict parity check between runner definitions and the
// Go handlers they name. It checks that every OnRun handler exists, has a
// supported signature, and agrees with its NewInput constructor.
func (r *Registry) Validate(ctx context.Context) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	for _, runnerType := range r.RunnerTypes() {
		def := r.definitions[runnerType]
		handler, ok := r.handlers[def.OnRun]
		if !ok {
			errs = append(errs, fmt.Sprintf("runner '%s': handler '%s' is not registered", runnerType, def.OnRun))
			continue
		}

		shape, err := handler.Shape()
		if err != nil {
			errs = append(errs, fmt.Sprintf("runner '%s': handler '%s': %v", runnerType, def.OnRun, err))
			continue
		}

		switch {
		case shape.InputType != nil && handler.NewInput == nil:
			errs = append(errs, fmt.Sprintf("runner '%s': handler '%s' takes %s, but NewInput is nil", runnerType, def.OnRun, shape.InputType))
		case shape.InputType == nil && handler.NewInput != nil:
			errs = append(errs, fmt.Sprintf("runner '%s': NewInput is set, but handler '%s' takes no input struct", runnerType, def.OnRun))
		case shape.InputType != nil:
			if got := reflect.TypeOf(handler.NewInput()); got != shape.InputType {
				errs = append(errs, fmt.Sprintf("runner '%s': NewInput returns %s, but handler '%s' takes %s", runnerType, got, def.OnRun, shape.InputType))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	logger.Debug("Registry validated.", "runners", len(r.definitions), "handlers", len(r.handlers))
	return nil
}
