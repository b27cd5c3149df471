// Package setup provides the entry stage: it creates the work directory of a document and
// copies the document into it.
//
// The work directory of /docs/scan.pdf is /docs/scan_<n> with n the first free number,
// starting at 0. When the stage is skipped, the last existing directory is reused so that a
// run can resume the work of a previous one.
package setup

import (
	"context"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/askiada/go-docflow/internal/fileutil"
	"github.com/askiada/go-docflow/pkg/items"
	"github.com/askiada/go-docflow/pkg/pipeline/model"
)

const (
	Name  = "workdir"
	Stage = "setup"
)

var (
	ErrNoWorkDir    = errors.New("no previous work directory to resume")
	ErrSingleSource = errors.New("setup runs on a single document")
)

// Factory returns the registration of the plugin.
func Factory() model.Factory {
	return model.Factory{
		Name:        Name,
		Stage:       Stage,
		Description: "Create the work directory and copy the document into it",
		New: func(node *model.Node, deps model.Deps) (model.Plugin, error) {
			return &Plugin{skip: node.Skip, logger: deps.Logger}, nil
		},
	}
}

type Plugin struct {
	skip   bool
	logger zerolog.Logger
}

// Start prepares the work directory for the document at path and returns its copy.
func (p *Plugin) Start(_ context.Context, path string) (*items.List, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to resolve %s", path)
	}

	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		return nil, errors.Wrapf(items.ErrNotRegularFile, "document %s", abs)
	}

	stem, _ := fileutil.SplitName(abs)
	last, next := WorkDirs(filepath.Join(filepath.Dir(abs), stem))

	workDir := next
	if p.skip {
		if last == "" {
			return nil, errors.Wrapf(ErrNoWorkDir, "for %s", abs)
		}
		workDir = last
	} else {
		p.logger.Debug().Str("dir", workDir).Msg("making work directory")
		err = os.Mkdir(workDir, 0o755) //nolint:gosec // shared with the external tools
		if err != nil {
			return nil, errors.Wrapf(err, "unable to create %s", workDir)
		}

		err = fileutil.Copy(abs, filepath.Join(workDir, filepath.Base(abs)))
		if err != nil {
			return nil, err
		}
	}

	p.logger.Info().Str("dir", workDir).Msg("using work directory")

	return items.New(filepath.Join(workDir, filepath.Base(abs)))
}

// Run restarts from the single document of inputs.
func (p *Plugin) Run(ctx context.Context, inputs ...*items.List) (*items.List, error) {
	if len(inputs) != 1 || inputs[0].Len() != 1 {
		return nil, ErrSingleSource
	}

	return p.Start(ctx, inputs[0].At(0))
}

// WorkDirs returns the last existing <base>_<n> directory, empty when there is none, and the
// first free one.
func WorkDirs(base string) (last, next string) {
	for n := 0; ; n++ {
		candidate := base + "_" + strconv.Itoa(n)
		if _, err := os.Stat(candidate); err != nil {
			return last, candidate
		}
		last = candidate
	}
}

var _ model.Source = (*Plugin)(nil)
