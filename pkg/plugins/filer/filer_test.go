package filer_test

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-docflow/pkg/bus"
	"github.com/askiada/go-docflow/pkg/items"
	"github.com/askiada/go-docflow/pkg/pipeline/model"
	"github.com/askiada/go-docflow/pkg/plugins/filer"
)

type env struct {
	root   string
	source string
	doc    *items.List
	bus    *bus.Bus
	plugin model.Plugin
}

func newEnv(t *testing.T, originals bool) *env {
	t.Helper()

	e := &env{root: t.TempDir(), bus: bus.New()}

	content := "root: " + e.root + "\ndefault: inbox\nfolders:\n  bank: [statement]\n"
	if originals {
		content += "originals: originals\n"
	}
	keywords := filepath.Join(t.TempDir(), "keywords.yml")
	require.NoError(t, os.WriteFile(keywords, []byte(content), 0o600))

	srcDir := t.TempDir()
	e.source = filepath.Join(srcDir, "scan.pdf")
	require.NoError(t, os.WriteFile(e.source, []byte("original"), 0o600))
	mtime := time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(e.source, mtime, mtime))

	// the text command prints the document itself, pages split by form feeds
	docPath := filepath.Join(srcDir, "scan_ocr.pdf")
	require.NoError(t, os.WriteFile(docPath, []byte("cover page\fYour bank STATEMENT"), 0o600))
	e.doc = items.MustNew(docPath)

	f := filer.Factory()
	cfg, err := f.ResolveConfig(map[string]any{
		"keywords":     keywords,
		"text_command": []any{"cat", "{{.Input}}"},
	})
	require.NoError(t, err)

	e.plugin, err = f.New(&model.Node{Name: f.Name, Stage: "clean", Config: cfg}, model.Deps{Bus: e.bus, SourcePath: e.source})
	require.NoError(t, err)

	return e
}

func TestRunFilesWithoutOverwrite(t *testing.T) {
	t.Parallel()

	e := newEnv(t, false)

	for i, want := range []string{"scan_ocr.pdf", "scan_ocr.2.pdf", "scan_ocr.3.pdf"} {
		out, err := e.plugin.Run(t.Context(), e.doc, items.MustNew(e.source))
		require.NoError(t, err, strconv.Itoa(i))
		assert.Same(t, e.doc, out)

		_, err = os.Stat(filepath.Join(e.root, "bank", want))
		require.NoError(t, err, want)
	}

	msgs := e.bus.Drain()
	require.Len(t, msgs, 3)
	assert.Equal(t, filer.Name, msgs[0].Producer)
	assert.Contains(t, msgs[1].Text, filepath.Join(e.root, "bank", "scan_ocr.2.pdf"))

	// every folder is created on first use
	_, err := os.Stat(filepath.Join(e.root, "inbox"))
	require.NoError(t, err)
}

func TestRunFilesOriginal(t *testing.T) {
	t.Parallel()

	e := newEnv(t, true)

	_, err := e.plugin.Run(t.Context(), e.doc, items.MustNew(e.source))
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(e.root, "originals", "2021", "scan.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "original", string(content))
	assert.Equal(t, 2, e.bus.Len())
}

func TestNewErrors(t *testing.T) {
	t.Parallel()

	f := filer.Factory()

	_, err := f.New(&model.Node{Name: f.Name, Config: model.Config{}}, model.Deps{})
	require.ErrorIs(t, err, filer.ErrKeywordsMustBeSet)

	_, err = f.New(&model.Node{Name: f.Name, Config: model.Config{"keywords": filepath.Join(t.TempDir(), "missing.yml")}}, model.Deps{})
	require.Error(t, err)
}

func TestRunNothingToFile(t *testing.T) {
	t.Parallel()

	e := newEnv(t, false)
	_, err := e.plugin.Run(t.Context(), &items.List{})
	require.ErrorIs(t, err, filer.ErrNothingToFile)
}
