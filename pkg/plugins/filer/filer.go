// Package filer provides a filter that files the generated document into the folder whose
// keywords appear in its text.
package filer

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/askiada/go-docflow/internal/argv"
	"github.com/askiada/go-docflow/internal/fileutil"
	"github.com/askiada/go-docflow/internal/process"
	"github.com/askiada/go-docflow/pkg/items"
	"github.com/askiada/go-docflow/pkg/pipeline/model"
)

const (
	Name = "filedirs"

	OptKeywords    = "keywords"
	OptTextCommand = "text_command"
)

var (
	ErrKeywordsMustBeSet = errors.New("keyword file must be set")
	ErrNothingToFile     = errors.New("no document to file")
)

// DefaultTextCommand extracts the text of a PDF on stdout, one form feed between pages.
var DefaultTextCommand = []string{"pdftotext", "-layout", "{{.Input}}", "-"}

// Factory returns the registration of the filter, spliced after the final stage.
func Factory() model.Factory {
	return model.Factory{
		Name:           Name,
		Stage:          model.FilterStage,
		Description:    "File the generated document into keyword matched folders",
		FilterOnOutput: []string{"clean"},
		InputsFrom:     []string{"clean", "setup"},
		Options: []model.OptionSpec{
			{Name: OptKeywords, Usage: "YAML keyword file"},
			{Name: OptTextCommand, Default: DefaultTextCommand, Usage: "program printing the text of {{.Input}}"},
		},
		New: newPlugin,
	}
}

func newPlugin(node *model.Node, deps model.Deps) (model.Plugin, error) {
	path := node.Config.String(OptKeywords)
	if path == "" {
		return nil, ErrKeywordsMustBeSet
	}

	kw, err := LoadKeywords(path)
	if err != nil {
		return nil, err
	}

	textCmd, err := argv.Parse(node.Config.StringSlice(OptTextCommand))
	if err != nil {
		return nil, errors.Wrap(err, OptTextCommand)
	}

	return &Plugin{
		node:     node,
		deps:     deps,
		keywords: kw,
		textCmd:  textCmd,
		logger:   deps.Logger.With().Str("plugin", Name).Logger(),
	}, nil
}

type Plugin struct {
	node     *model.Node
	deps     model.Deps
	keywords *Keywords
	textCmd  *argv.Template
	logger   zerolog.Logger
}

// Run copies the generated document into its folder, never overwriting a file already there,
// and the source document into originals/<year> when originals is set. The generated document
// is passed through.
func (p *Plugin) Run(ctx context.Context, inputs ...*items.List) (*items.List, error) {
	if len(inputs) == 0 || inputs[0].Len() == 0 {
		return nil, ErrNothingToFile
	}

	err := p.keywords.Prepare()
	if err != nil {
		return nil, err
	}

	doc := inputs[0].At(0)
	pages, err := p.pages(ctx, doc)
	if err != nil {
		return nil, err
	}

	folder := filepath.Join(p.keywords.Root, p.keywords.Match(pages))
	target := fileutil.FreeName(folder, filepath.Base(doc))
	p.logger.Debug().Str("folder", folder).Msg("filing")

	err = fileutil.Copy(doc, target)
	if err != nil {
		return nil, err
	}
	p.deps.Publish(p.node, "Copied "+filepath.Base(doc)+" to "+target)

	if p.keywords.Originals != "" {
		err = p.fileOriginal(inputs)
		if err != nil {
			return nil, err
		}
	}

	return inputs[0], nil
}

func (p *Plugin) fileOriginal(inputs []*items.List) error {
	original := p.deps.SourcePath
	if original == "" && len(inputs) > 1 && inputs[1].Len() > 0 {
		original = inputs[1].At(0)
	}
	if original == "" {
		return nil
	}

	info, err := os.Stat(original)
	if err != nil {
		return errors.Wrapf(err, "unable to stat original %s", original)
	}

	dir := filepath.Join(p.keywords.Root, p.keywords.Originals, strconv.Itoa(info.ModTime().Year()))
	err = os.MkdirAll(dir, 0o755) //nolint:gosec // filing folders are shared
	if err != nil {
		return errors.Wrapf(err, "unable to create %s", dir)
	}

	target := fileutil.FreeName(dir, filepath.Base(original))
	err = fileutil.Copy(original, target)
	if err != nil {
		return err
	}
	p.deps.Publish(p.node, "Copied original to "+target)

	return nil
}

func (p *Plugin) pages(ctx context.Context, doc string) ([]string, error) {
	args, err := p.textCmd.Render(struct{ Input string }{Input: doc})
	if err != nil {
		return nil, errors.Wrap(err, OptTextCommand)
	}

	res, err := process.Run(ctx, process.Command{Binary: args[0], Args: args[1:]})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to extract text of %s", doc)
	}

	return strings.Split(string(res.Stdout), "\f"), nil
}
