package graph

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/mk/taskchaingo/internal/ctxlog"
	"github.com/mk/taskchaingo/internal/flow"
	"github.com/mk/taskchaingo/internal/hcl"
	"github.com/mk/taskchaingo/internal/registry"
	"github.com/mk/taskchaingo/internal/scheduler"
	"github.com/mk/taskchaingo/internal/timeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

var errBoom = errors.New("boom")

type emitInput struct {
	Value string `flow:"value,required"`
}

type concatInput struct {
	Left  string `flow:"left"`
	Right string `flow:"right"`
}

func testCtx() context.Context {
	return ctxlog.WithLogger(context.Background(), slog.New(slog.DiscardHandler))
}

func testRegistry() *registry.Registry {
	r := registry.New()

	r.RegisterRunner(&registry.Definition{Type: "emit", OnRun: "OnRunEmit"})
	r.RegisterHandler("OnRunEmit", &registry.Handler{
		NewInput: func() any { return &emitInput{} },
		Fn: func(_ context.Context, in *emitInput) (string, error) {
			return in.Value, nil
		},
	})

	r.RegisterRunner(&registry.Definition{Type: "concat", OnRun: "OnRunConcat"})
	r.RegisterHandler("OnRunConcat", &registry.Handler{
		NewInput: func() any { return &concatInput{} },
		Fn: func(_ context.Context, in *concatInput) (string, error) {
			return in.Left + in.Right, nil
		},
	})

	r.RegisterRunner(&registry.Definition{Type: "fail", OnRun: "OnRunFail"})
	r.RegisterHandler("OnRunFail", &registry.Handler{
		Fn: func(context.Context) error { return errBoom },
	})

	r.RegisterRunner(&registry.Definition{Type: "echo", OnRun: "OnRunEcho"})
	r.RegisterHandler("OnRunEcho", &registry.Handler{
		Fn: func(_ context.Context, v cty.Value) (cty.Value, error) {
			return v, nil
		},
	})

	r.RegisterRunner(&registry.Definition{Type: "noop", OnRun: "OnRunNoop"})
	r.RegisterHandler("OnRunNoop", &registry.Handler{
		Fn: func(context.Context) error { return nil },
	})

	return r
}

func loadModel(t *testing.T, src string) (*flow.Model, flow.Converter) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flow.hcl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	model, converter, err := hcl.NewLoader().Load(testCtx(), path)
	require.NoError(t, err)
	return model, converter
}

func buildGraph(t *testing.T, ctx context.Context, src string, collector *timeline.Collector) *Graph {
	t.Helper()
	model, converter := loadModel(t, src)
	g, err := Build(ctx, model, testRegistry(), converter, collector)
	require.NoError(t, err)
	return g
}

func buildError(t *testing.T, src string) error {
	t.Helper()
	model, converter := loadModel(t, src)
	_, err := Build(testCtx(), model, testRegistry(), converter, nil)
	require.Error(t, err)
	return err
}

func runGraph(t *testing.T, ctx context.Context, g *Graph) {
	t.Helper()
	s := scheduler.New()
	for _, h := range g.Roots() {
		s.Submit(h)
	}
	require.NoError(t, s.Run(ctx))
}

func TestBuild_CreatesNodesInDeclarationOrder(t *testing.T) {
	t.Parallel()

	g := buildGraph(t, testCtx(), `
task "emit" "seed" {
  arguments {
    value = "one"
  }
}

task "echo" "mirror" {
  chain_from = "emit.seed"
}

task "noop" "tail" {
  depends_on = ["echo.mirror"]
}
`, nil)

	assert.Equal(t, 3, g.Len())

	_, ok := g.Node("task.emit.seed")
	assert.True(t, ok)
	mirror, ok := g.Node("task.echo.mirror")
	require.True(t, ok)
	assert.True(t, mirror.IsContinuation())

	roots := g.Roots()
	require.Len(t, roots, 2, "the continuation is driven by its trigger, not the scheduler")
	assert.Equal(t, "task.emit.seed", roots[0].Name())
	assert.Equal(t, "task.noop.tail", roots[1].Name())
}

func TestBuild_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		src       string
		expectErr string
	}{
		{
			name:      "unknown runner type",
			src:       `task "teleport" "x" {}`,
			expectErr: "unknown runner type 'teleport'",
		},
		{
			name: "chained step declaring arguments",
			src: `
task "emit" "seed" {
  arguments {
    value = "v"
  }
}

task "echo" "mirror" {
  chain_from = "emit.seed"
  arguments {
    extra = true
  }
}
`,
			expectErr: "cannot declare arguments or depends_on",
		},
		{
			name: "chain from non-existent task",
			src: `
task "echo" "mirror" {
  chain_from = "emit.gone"
}
`,
			expectErr: "chains from non-existent task 'emit.gone'",
		},
		{
			name: "mutually chained tasks never resolve",
			src: `
task "echo" "a" {
  chain_from = "echo.b"
}

task "echo" "b" {
  chain_from = "echo.a"
}
`,
			expectErr: "unresolvable chain_from",
		},
		{
			name: "two chains off one trigger",
			src: `
task "emit" "seed" {
  arguments {
    value = "v"
  }
}

task "echo" "first" {
  chain_from = "emit.seed"
}

task "echo" "second" {
  chain_from = "emit.seed"
}
`,
			expectErr: "already continues it",
		},
		{
			name: "chained runner with a struct input",
			src: `
task "noop" "seed" {}

task "emit" "mirror" {
  chain_from = "noop.seed"
}
`,
			expectErr: "must accept a cty.Value or no input",
		},
		{
			name: "depends_on non-existent task",
			src: `
task "noop" "a" {
  depends_on = ["noop.gone"]
}
`,
			expectErr: "depends on non-existent task 'noop.gone'",
		},
		{
			name: "argument referencing non-existent task",
			src: `
task "emit" "a" {
  arguments {
    value = task.emit.gone.result
  }
}
`,
			expectErr: "references non-existent task 'emit.gone'",
		},
		{
			name: "dependency cycle",
			src: `
task "noop" "a" {
  depends_on = ["noop.b"]
}

task "noop" "b" {
  depends_on = ["noop.a"]
}
`,
			expectErr: "cycle detected involving task",
		},
		{
			name: "self reference",
			src: `
task "emit" "a" {
  arguments {
    value = task.emit.a.result
  }
}
`,
			expectErr: "cycle detected involving task 'task.emit.a'",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := buildError(t, tc.src)
			assert.Contains(t, err.Error(), tc.expectErr)
		})
	}
}

func TestRun_ArgumentsFlowBetweenTasks(t *testing.T) {
	t.Parallel()

	ctx := testCtx()
	g := buildGraph(t, ctx, `
task "emit" "seed" {
  arguments {
    value = "hello"
  }
}

task "concat" "sentence" {
  arguments {
    left  = task.emit.seed.result
    right = " world"
  }
}
`, nil)

	runGraph(t, ctx, g)

	n, ok := g.Node("task.concat.sentence")
	require.True(t, ok)
	result, err := n.Future().Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, cty.StringVal("hello world"), result)

	assert.NoError(t, g.FirstError())
}

func TestRun_ChainReceivesTriggerResult(t *testing.T) {
	t.Parallel()

	ctx := testCtx()
	g := buildGraph(t, ctx, `
task "emit" "seed" {
  arguments {
    value = "payload"
  }
}

task "echo" "mirror" {
  chain_from = "emit.seed"
}
`, nil)

	runGraph(t, ctx, g)

	mirror, ok := g.Node("task.echo.mirror")
	require.True(t, ok)
	result, err := mirror.Future().Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, cty.StringVal("payload"), result)
}

func TestRun_UpstreamFailureSkipsDependents(t *testing.T) {
	t.Parallel()

	ctx := testCtx()
	g := buildGraph(t, ctx, `
task "fail" "bomb" {}

task "emit" "after" {
  depends_on = ["fail.bomb"]
  arguments {
    value = "never"
  }
}
`, nil)

	runGraph(t, ctx, g)

	after, ok := g.Node("task.emit.after")
	require.True(t, ok)
	_, err := after.Future().Wait(ctx)
	require.Error(t, err)

	var depErr *DependencyError
	require.ErrorAs(t, err, &depErr)
	assert.Equal(t, "task.fail.bomb", depErr.ID)
	assert.ErrorIs(t, err, errBoom)

	runErr := g.FirstError()
	require.Error(t, runErr)
	assert.ErrorIs(t, runErr, errBoom)
	assert.Contains(t, runErr.Error(), "execution failed for task.fail.bomb")
	assert.NotContains(t, runErr.Error(), "task.emit.after", "skipped tasks are symptoms, not causes")
}

func TestFirstError_ChainRelayedErrorIsNotACause(t *testing.T) {
	t.Parallel()

	ctx := testCtx()
	g := buildGraph(t, ctx, `
task "fail" "bomb" {}

task "echo" "mirror" {
  chain_from = "fail.bomb"
}
`, nil)

	runGraph(t, ctx, g)

	mirror, _ := g.Node("task.echo.mirror")
	_, err := mirror.Future().Wait(ctx)
	assert.ErrorIs(t, err, errBoom, "the trigger's failure propagates through the chain")

	runErr := g.FirstError()
	require.Error(t, runErr)
	assert.Contains(t, runErr.Error(), "execution failed for task.fail.bomb")
	assert.NotContains(t, runErr.Error(), "task.echo.mirror")
}

func TestRun_CollectorRecordsSpanPerTask(t *testing.T) {
	t.Parallel()

	ctx := testCtx()
	collector := timeline.New()
	g := buildGraph(t, ctx, `
task "emit" "seed" {
  arguments {
    value = "v"
  }
}

task "echo" "mirror" {
  chain_from = "emit.seed"
}

task "noop" "other" {}
`, collector)

	runGraph(t, ctx, g)

	assert.Equal(t, 3, collector.Len(), "every task, chained or not, records one span")
	assert.Len(t, collector.Named("task.echo.mirror"), 1)
}
