package env_vars

import (
	"context"
	"log/slog"
	"testing"

	"github.com/mk/taskchaingo/internal/ctxlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnRunEnvVars_CapturesEnvironment(t *testing.T) {
	t.Setenv("TASKCHAIN_TEST_VAR", "present")

	ctx := ctxlog.WithLogger(context.Background(), slog.New(slog.DiscardHandler))
	out, err := OnRunEnvVars(ctx)

	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "present", out.All["TASKCHAIN_TEST_VAR"])
}
