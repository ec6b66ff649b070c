package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/mk/taskchaingo/internal/app"
	"github.com/mk/taskchaingo/internal/hcl"
	"github.com/mk/taskchaingo/internal/registry"
	"github.com/stretchr/testify/require"
)

// FlowOptions adjusts how RunFlow builds the application under test.
type FlowOptions struct {
	Workers int
	Profile bool
}

// Result holds the outcomes of a full flow run.
type Result struct {
	Err       error
	LogOutput string
	App       *app.App
}

// RunFlow provides a standardized harness for running system tests using a
// default background context.
func RunFlow(t *testing.T, files map[string]string, opts FlowOptions, extra ...registry.Module) *Result {
	t.Helper()
	return RunFlowWithContext(context.Background(), t, files, opts, extra...)
}

// RunFlowWithContext writes the given flow files into a temporary directory,
// builds an application around them with captured logs, runs it, and returns
// the outcome. Startup panics are recovered into Result.Err so structural
// failures assert like any other error.
func RunFlowWithContext(ctx context.Context, t *testing.T, files map[string]string, opts FlowOptions, extra ...registry.Module) *Result {
	t.Helper()

	tmpDir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(tmpDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	cfg, err := app.NewConfig(app.Config{
		FlowPath:    tmpDir,
		LogFormat:   "text",
		LogLevel:    "debug",
		WorkerCount: opts.Workers,
		Profile:     opts.Profile,
	})
	require.NoError(t, err)

	logBuffer := &SafeBuffer{}
	result := &Result{}

	func() {
		defer func() {
			if r := recover(); r != nil {
				result.Err = fmt.Errorf("application startup panicked | %v", r)
			}
		}()
		result.App = app.NewApp(logBuffer, cfg, hcl.NewLoader(), extra...)
	}()

	if result.App != nil {
		result.Err = result.App.Run(ctx)
	}

	result.LogOutput = logBuffer.String()
	if os.Getenv("TASKCHAIN_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), result.LogOutput)
	}

	return result
}
