// Package print provides a runner that writes its value argument to standard
// output, one key per line in sorted order.
package print

import (
	"context"
	"fmt"
	"sort"

	"github.com/mk/taskchaingo/internal/ctxlog"
	"github.com/mk/taskchaingo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the print runner.
type Input struct {
	Value map[string]string `flow:"value"`
}

// OnRunPrint is the handler for the 'print' runner.
func OnRunPrint(ctx context.Context, input *Input) error {
	logger := ctxlog.FromContext(ctx)
	logger.Info("Printing input.", "keys", len(input.Value))

	if input.Value == nil {
		fmt.Println("      (null)")
		return nil
	}

	// Sort keys for consistent output.
	keys := make([]string, 0, len(input.Value))
	for k := range input.Value {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Printf("      %s = %q\n", k, input.Value[k])
	}

	return nil
}

// Register registers the runner and its handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterRunner(&registry.Definition{
		Type:        "print",
		Description: "Writes the given value map to standard output.",
		OnRun:       "OnRunPrint",
	})
	r.RegisterHandler("OnRunPrint", &registry.Handler{
		NewInput: func() any { return new(Input) },
		Fn:       OnRunPrint,
	})
}
