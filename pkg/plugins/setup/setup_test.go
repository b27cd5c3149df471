package setup_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-docflow/pkg/items"
	"github.com/askiada/go-docflow/pkg/pipeline/model"
	"github.com/askiada/go-docflow/pkg/plugins/setup"
)

func newPlugin(t *testing.T, skip bool) *setup.Plugin {
	t.Helper()

	f := setup.Factory()
	p, err := f.New(&model.Node{Name: f.Name, Stage: f.Stage, Skip: skip}, model.Deps{})
	require.NoError(t, err)

	return p.(*setup.Plugin)
}

func document(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "scan.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o600))

	return path
}

func TestStartCreatesNumberedDirs(t *testing.T) {
	t.Parallel()

	doc := document(t)
	dir := filepath.Dir(doc)
	p := newPlugin(t, false)

	for i, want := range []string{"scan_0", "scan_1", "scan_2"} {
		out, err := p.Start(t.Context(), doc)
		require.NoError(t, err, i)
		require.Equal(t, 1, out.Len())
		assert.Equal(t, filepath.Join(dir, want, "scan.pdf"), out.At(0))

		content, err := os.ReadFile(out.At(0))
		require.NoError(t, err)
		assert.Equal(t, "%PDF", string(content))
	}
}

func TestStartSkipReusesLastDir(t *testing.T) {
	t.Parallel()

	doc := document(t)
	dir := filepath.Dir(doc)

	_, err := newPlugin(t, true).Start(t.Context(), doc)
	require.ErrorIs(t, err, setup.ErrNoWorkDir)

	p := newPlugin(t, false)
	_, err = p.Start(t.Context(), doc)
	require.NoError(t, err)
	_, err = p.Start(t.Context(), doc)
	require.NoError(t, err)

	out, err := newPlugin(t, true).Start(t.Context(), doc)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "scan_1", "scan.pdf"), out.At(0))

	_, err = os.Stat(filepath.Join(dir, "scan_2"))
	assert.True(t, os.IsNotExist(err))
}

func TestStartMissingDocument(t *testing.T) {
	t.Parallel()

	_, err := newPlugin(t, false).Start(t.Context(), filepath.Join(t.TempDir(), "missing.pdf"))
	require.ErrorIs(t, err, items.ErrNotRegularFile)
}

func TestRun(t *testing.T) {
	t.Parallel()

	doc := document(t)
	out, err := newPlugin(t, false).Run(t.Context(), items.MustNew(doc))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(doc), "scan_0", "scan.pdf"), out.At(0))

	_, err = newPlugin(t, false).Run(t.Context())
	require.ErrorIs(t, err, setup.ErrSingleSource)
}

func TestWorkDirs(t *testing.T) {
	t.Parallel()

	base := filepath.Join(t.TempDir(), "doc")
	last, next := setup.WorkDirs(base)
	assert.Empty(t, last)
	assert.Equal(t, base+"_0", next)

	require.NoError(t, os.Mkdir(base+"_0", 0o755))
	require.NoError(t, os.Mkdir(base+"_1", 0o755))
	last, next = setup.WorkDirs(base)
	assert.Equal(t, base+"_1", last)
	assert.Equal(t, base+"_2", next)
}
