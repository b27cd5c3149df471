// Package cleanup provides the final stage. It copies the generated document out of the work
// directory, then deletes every intermediate file unless told to preserve them.
package cleanup

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/askiada/go-docflow/internal/fileutil"
	"github.com/askiada/go-docflow/pkg/items"
	"github.com/askiada/go-docflow/pkg/pipeline/model"
)

const (
	Name  = "cleanup"
	Stage = "clean"

	OptPreserve  = "preserve"
	OptOutputDir = "output_dir"
)

var ErrSingleOutput = errors.New("expected exactly one generated document")

// Factory returns the registration of the plugin. The first input is the generated document,
// the others are the intermediate files to delete.
func Factory() model.Factory {
	return model.Factory{
		Name:        Name,
		Stage:       Stage,
		Description: "Copy the generated document next to the source and remove temporary files",
		InputsFrom: []string{
			"merge_overlay", "setup", "analyze", "image", "orient", "ocr", "text_process", "create_overlay",
		},
		Options: []model.OptionSpec{
			{Name: OptPreserve, Default: false, Usage: "do not delete temporary files"},
			{Name: OptOutputDir, Default: "", Usage: "where to copy the generated document, defaults to the source directory"},
		},
		New: func(node *model.Node, deps model.Deps) (model.Plugin, error) {
			outDir := node.Config.String(OptOutputDir)
			if outDir == "" && deps.SourcePath != "" {
				outDir = filepath.Dir(deps.SourcePath)
			}

			return &Plugin{
				node:     node,
				deps:     deps,
				preserve: node.Config.Bool(OptPreserve),
				outDir:   outDir,
				logger:   deps.Logger.With().Str("plugin", Name).Logger(),
			}, nil
		},
	}
}

type Plugin struct {
	node     *model.Node
	deps     model.Deps
	preserve bool
	outDir   string
	logger   zerolog.Logger
}

func (p *Plugin) Run(_ context.Context, inputs ...*items.List) (*items.List, error) {
	if len(inputs) == 0 || inputs[0].Len() != 1 {
		return nil, ErrSingleOutput
	}

	final := inputs[0].At(0)
	outDir := p.outDir
	if outDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "unable to get working directory")
		}
		outDir = cwd
	}

	target := filepath.Join(outDir, filepath.Base(final))
	if p.deps.SourcePath != "" && sameFile(target, p.deps.SourcePath) {
		target = fileutil.FreeName(outDir, filepath.Base(final))
	}

	err := fileutil.Copy(final, target)
	if err != nil {
		return nil, err
	}
	p.logger.Info().Str("output", target).Msg("document generated")

	if !p.preserve {
		p.remove(inputs)
	}

	p.deps.Publish(p.node, "done")

	return items.New(target)
}

// remove deletes every input file then the work directories left empty.
func (p *Plugin) remove(inputs []*items.List) {
	dirs := map[string]struct{}{}
	for _, list := range inputs {
		if list.Dir() != "" {
			dirs[list.Dir()] = struct{}{}
		}

		for _, path := range list.Paths() {
			p.logger.Debug().Str("path", path).Msg("removing")

			err := os.Remove(path)
			if err != nil && !os.IsNotExist(err) {
				p.logger.Warn().Err(err).Str("path", path).Msg("unable to remove temporary file")
			}
		}
	}

	for dir := range dirs {
		err := os.Remove(dir)
		if err != nil && !os.IsNotExist(err) {
			p.logger.Warn().Err(err).Str("dir", dir).Msg("work directory kept")
		}
	}
}

func sameFile(a, b string) bool {
	ia, err := os.Stat(a)
	if err != nil {
		return false
	}
	ib, err := os.Stat(b)
	if err != nil {
		return false
	}

	return os.SameFile(ia, ib)
}
