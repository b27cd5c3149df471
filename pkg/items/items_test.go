package items_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-docflow/pkg/items"
)

func touch(t *testing.T, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(name), 0o600))

	return path
}

func realpath(t *testing.T, path string) string {
	t.Helper()

	res, err := filepath.EvalSymlinks(path)
	require.NoError(t, err)

	return res
}

func TestNew(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := touch(t, dir, "a.png")
	b := touch(t, dir, "b.png")

	l, err := items.New(a, b, a)
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, l.Paths())
	assert.Equal(t, dir, l.Dir())
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, b, l.At(1))
}

func TestNewErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	other := t.TempDir()
	a := touch(t, dir, "a.png")
	b := touch(t, other, "b.png")

	tcs := map[string]struct {
		paths []string
		want  error
	}{
		"missing file":    {paths: []string{filepath.Join(dir, "missing")}, want: items.ErrNotRegularFile},
		"directory":       {paths: []string{dir}, want: items.ErrNotRegularFile},
		"mixed directory": {paths: []string{a, b}, want: items.ErrMixedDirectory},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := items.New(tc.paths...)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestSet(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := touch(t, dir, "a.png")
	b := touch(t, dir, "b.png")
	c := touch(t, dir, "c.png")

	l := items.MustNew(a, b)
	require.NoError(t, l.Set(0, c))
	assert.Equal(t, []string{c, b}, l.Paths())

	require.ErrorIs(t, l.Set(5, a), items.ErrIndexOutOfRange)
	require.Error(t, l.Set(0, b))
}

func TestEmptyList(t *testing.T) {
	t.Parallel()

	l, err := items.New()
	require.NoError(t, err)
	assert.Zero(t, l.Len())
	assert.Empty(t, l.Dir())

	err = l.Within(func([]string) error { return nil })
	require.ErrorIs(t, err, items.ErrEmptyList)
}

// The tests below change the process working directory and must not run in parallel.

func TestWithin(t *testing.T) {
	dir := t.TempDir()
	a := touch(t, dir, "a.png")
	l := items.MustNew(a)

	before, err := os.Getwd()
	require.NoError(t, err)

	err = l.Within(func(paths []string) error {
		cwd, err := os.Getwd()
		require.NoError(t, err)
		assert.Equal(t, realpath(t, dir), realpath(t, cwd))
		assert.Equal(t, []string{a}, paths)

		return nil
	})
	require.NoError(t, err)

	after, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestWithinRestoresOnError(t *testing.T) {
	l := items.MustNew(touch(t, t.TempDir(), "a.png"))

	before, err := os.Getwd()
	require.NoError(t, err)

	err = l.Within(func([]string) error {
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	after, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestWithinRestoresOnPanic(t *testing.T) {
	l := items.MustNew(touch(t, t.TempDir(), "a.png"))

	before, err := os.Getwd()
	require.NoError(t, err)

	assert.Panics(t, func() {
		_ = l.Within(func([]string) error {
			panic("boom")
		})
	})

	after, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, before, after)

	// the scope lock was released by the panic path
	require.NoError(t, l.Within(func([]string) error { return nil }))
}

func TestWithinNested(t *testing.T) {
	outer := items.MustNew(touch(t, t.TempDir(), "a.png"))
	inner := items.MustNew(touch(t, t.TempDir(), "b.png"))

	err := outer.Within(func([]string) error {
		return inner.Within(func([]string) error { return nil })
	})
	require.ErrorIs(t, err, items.ErrScopeActive)
}
