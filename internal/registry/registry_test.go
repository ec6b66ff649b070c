package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterRunner_DuplicatePanics(t *testing.T) {
	t.Parallel()

	r := New()
	r.RegisterRunner(&Definition{Type: "print", OnRun: "OnRunPrint"})

	assert.PanicsWithValue(t, "runner with type 'print' already registered", func() {
		r.RegisterRunner(&Definition{Type: "print", OnRun: "OnRunPrintAgain"})
	})
}

func TestRegisterHandler_DuplicatePanics(t *testing.T) {
	t.Parallel()

	r := New()
	r.RegisterHandler("OnRunPrint", &Handler{Fn: func(context.Context) error { return nil }})

	assert.PanicsWithValue(t, "runner handler with name 'OnRunPrint' already registered", func() {
		r.RegisterHandler("OnRunPrint", &Handler{Fn: func(context.Context) error { return nil }})
	})
}

func TestHandlerFor(t *testing.T) {
	t.Parallel()

	handler := &Handler{Fn: func(context.Context) error { return nil }}
	r := New()
	r.RegisterRunner(&Definition{Type: "print", OnRun: "OnRunPrint"})
	r.RegisterHandler("OnRunPrint", handler)

	t.Run("resolves through the definition", func(t *testing.T) {
		t.Parallel()
		got, err := r.HandlerFor("print")
		require.NoError(t, err)
		assert.Same(t, handler, got)
	})

	t.Run("unknown runner type", func(t *testing.T) {
		t.Parallel()
		_, err := r.HandlerFor("teleport")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown runner type 'teleport'")
	})

	t.Run("definition naming a missing handler", func(t *testing.T) {
		t.Parallel()
		r2 := New()
		r2.RegisterRunner(&Definition{Type: "ghost", OnRun: "OnRunGhost"})
		_, err := r2.HandlerFor("ghost")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "handler 'OnRunGhost', which is not registered")
	})
}

func TestRunnerTypes_Sorted(t *testing.T) {
	t.Parallel()

	r := New()
	for _, typ := range []string{"zeta", "alpha", "mid"} {
		r.RegisterRunner(&Definition{Type: typ, OnRun: "OnRun"})
	}

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, r.RunnerTypes())
}
