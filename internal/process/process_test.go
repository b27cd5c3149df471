package process

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	res, err := Run(t.Context(), Command{
		Binary: "sh",
		Args:   []string{"-c", `printf "%s:%s" "$DOCFLOW_PAGE" "$(pwd)"`},
		Dir:    dir,
		Env:    []string{"DOCFLOW_PAGE=3"},
	})
	require.NoError(t, err)
	assert.Equal(t, "3:"+dir, string(res.Stdout))
	assert.Zero(t, res.ExitCode)
}

func TestRunFailure(t *testing.T) {
	t.Parallel()

	res, err := Run(t.Context(), Command{Binary: "sh", Args: []string{"-c", "echo broken page >&2; exit 3"}})
	require.Error(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Contains(t, err.Error(), "broken page")
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	_, err := Run(ctx, Command{Binary: "sleep", Args: []string{"5"}, GracePeriod: 100 * time.Millisecond})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunRequiresBinary(t *testing.T) {
	t.Parallel()

	_, err := Run(t.Context(), Command{})
	require.ErrorIs(t, err, ErrBinaryMustBeSet)
}
