package command

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/askiada/go-docflow/internal/argv"
	"github.com/askiada/go-docflow/internal/fileutil"
	"github.com/askiada/go-docflow/internal/process"
	"github.com/askiada/go-docflow/pkg/items"
	"github.com/askiada/go-docflow/pkg/pipeline/model"
	"github.com/askiada/go-docflow/pkg/queue"
	"github.com/askiada/go-docflow/pkg/remote"
)

const (
	ModeEach = "each"
	ModeAll  = "all"

	InputsArg = "@inputs"
	RestArg   = "@rest"

	OptCommand = "command"
	OptOutput  = "output"
	OptCollect = "collect"
	OptMode    = "mode"
	OptStdout  = "stdout"
	OptRemote  = "remote"
	OptRefill  = "refill"
	OptEnv     = "env"
)

var (
	ErrInvalidMode   = errors.New("mode must be each or all")
	ErrNoOutput      = errors.New("output or collect must be set")
	ErrRemoteCollect = errors.New("collected outputs cannot be produced remotely")
	ErrMissingOutput = errors.New("program did not produce its output")
)

// Definition describes a program backed plugin and the defaults of its options.
type Definition struct {
	Name           string
	Stage          string
	Description    string
	InputsFrom     []string
	FilterOnOutput []string
	Command        []string
	Output         string
	Collect        string
	Mode           string
	Stdout         bool
}

// Data is what argument and output templates are rendered with.
type Data struct {
	// Input is the file being processed, the first input in all mode.
	Input  string
	Inputs []string
	// Name is the base name of Input, Base the same without extension.
	Name string
	Base string
	Ext  string
	Dir  string
	// Output is the rendered output path, empty in collect mode.
	Output string
	// Index is the position of Input, from 1.
	Index int
	// With holds, in each mode, the file at the same position in every other input. It is
	// empty for an input shorter than the first one.
	With []string
}

// Factory returns the registration of a plugin running the program of def.
func Factory(def Definition) model.Factory {
	mode := def.Mode
	if mode == "" {
		mode = ModeEach
	}

	return model.Factory{
		Name:           def.Name,
		Stage:          def.Stage,
		Description:    def.Description,
		InputsFrom:     def.InputsFrom,
		FilterOnOutput: def.FilterOnOutput,
		Options: []model.OptionSpec{
			{Name: OptCommand, Default: def.Command, Usage: "program and argument templates"},
			{Name: OptOutput, Default: def.Output, Usage: "output file name template"},
			{Name: OptCollect, Default: def.Collect, Usage: "glob of the outputs in all mode"},
			{Name: OptMode, Default: mode, Usage: "each or all"},
			{Name: OptStdout, Default: def.Stdout, Usage: "write the standard output to the output file"},
			{Name: OptRemote, Default: false, Usage: "run on the remote compute service when configured"},
			{Name: OptRefill, Default: false, Usage: "start a task as soon as a slot frees"},
			{Name: OptEnv, Default: []string{}, Usage: "extra environment, KEY=VALUE"},
		},
		New: newPlugin,
	}
}

type Plugin struct {
	node    *model.Node
	deps    model.Deps
	cmd     *argv.Template
	output  string
	collect string
	mode    string
	stdout  bool
	remote  *remote.Client
	refill  bool
	env     []string
	logger  zerolog.Logger
}

func newPlugin(node *model.Node, deps model.Deps) (model.Plugin, error) {
	cmd, err := argv.Parse(node.Config.StringSlice(OptCommand))
	if err != nil {
		return nil, errors.Wrap(err, OptCommand)
	}

	p := &Plugin{
		node:    node,
		deps:    deps,
		cmd:     cmd,
		output:  node.Config.String(OptOutput),
		collect: node.Config.String(OptCollect),
		mode:    node.Config.String(OptMode),
		stdout:  node.Config.Bool(OptStdout),
		refill:  node.Config.Bool(OptRefill),
		env:     node.Config.StringSlice(OptEnv),
		logger:  deps.Logger.With().Str("plugin", node.Name).Logger(),
	}
	if node.Config.Bool(OptRemote) {
		p.remote = deps.Remote
	}

	switch {
	case p.mode != ModeEach && p.mode != ModeAll:
		return nil, errors.Wrapf(ErrInvalidMode, "got %q", p.mode)
	case p.output == "" && (p.mode == ModeEach || p.collect == ""):
		return nil, ErrNoOutput
	case p.collect != "" && !doublestar.ValidatePattern(p.collect):
		return nil, errors.Errorf("invalid %s pattern %q", OptCollect, p.collect)
	case p.remote != nil && p.mode == ModeAll && p.output == "":
		return nil, ErrRemoteCollect
	}

	return p, nil
}

// Run processes the files of the first input from inside its directory.
func (p *Plugin) Run(ctx context.Context, inputs ...*items.List) (*items.List, error) {
	if len(inputs) == 0 || inputs[0].Len() == 0 {
		return &items.List{}, nil
	}

	var outputs []string
	err := inputs[0].Within(func(paths []string) error {
		var err error
		if p.mode == ModeEach {
			outputs, err = p.runEach(ctx, paths, inputs[1:])
		} else {
			var all []string
			for _, list := range inputs {
				all = append(all, list.Paths()...)
			}
			outputs, err = p.runAll(ctx, inputs[0].Dir(), all)
		}

		return err
	})
	if err != nil {
		return nil, err
	}

	list, err := items.New(outputs...)
	if err != nil {
		return nil, errors.Wrapf(ErrMissingOutput, "%s: %v", p.node.Name, err)
	}

	return list, nil
}

func (p *Plugin) queue() *queue.Queue {
	var opts []queue.Option
	if p.refill {
		opts = append(opts, queue.WithRefill())
	}

	return p.deps.Queue(p.node, opts...)
}

func (p *Plugin) runEach(ctx context.Context, paths []string, others []*items.List) ([]string, error) {
	q := p.queue()
	for i, path := range paths {
		data := newData(path, paths, i)
		data.With = make([]string, len(others))
		for j, other := range others {
			if i < other.Len() {
				data.With[j] = other.At(i)
			}
		}

		out, err := p.outputPath(data)
		if err != nil {
			return nil, err
		}
		data.Output = out

		err = q.Enqueue(out, func(ctx context.Context) error {
			return p.exec(ctx, data)
		})
		if err != nil {
			return nil, err
		}
	}

	return q.Drain(ctx)
}

func (p *Plugin) runAll(ctx context.Context, dir string, paths []string) ([]string, error) {
	data := newData(paths[0], paths, 0)

	if p.collect == "" {
		out, err := p.outputPath(data)
		if err != nil {
			return nil, err
		}
		data.Output = out

		q := p.queue()
		err = q.Enqueue(out, func(ctx context.Context) error {
			return p.exec(ctx, data)
		})
		if err != nil {
			return nil, err
		}

		return q.Drain(ctx)
	}

	if !p.node.Skip {
		err := p.exec(ctx, data)
		if err != nil {
			return nil, err
		}
	}

	return p.collectOutputs(dir)
}

func (p *Plugin) collectOutputs(dir string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(dir), p.collect, doublestar.WithFilesOnly())
	if err != nil {
		return nil, errors.Wrapf(err, "unable to collect %s", p.collect)
	}
	sort.Strings(matches)

	res := make([]string, len(matches))
	for i, match := range matches {
		res[i] = filepath.Join(dir, filepath.FromSlash(match))
	}
	p.logger.Debug().Int("outputs", len(res)).Str("glob", p.collect).Msg("outputs collected")

	return res, nil
}

func (p *Plugin) outputPath(data Data) (string, error) {
	out, err := argv.String(p.output, data)
	if err != nil {
		return "", errors.Wrap(err, OptOutput)
	}
	if !filepath.IsAbs(out) {
		out = filepath.Join(data.Dir, out)
	}

	return out, nil
}

func newData(path string, paths []string, i int) Data {
	stem, ext := fileutil.SplitName(path)

	return Data{
		Input:  path,
		Inputs: paths,
		Name:   filepath.Base(path),
		Base:   stem,
		Ext:    ext,
		Dir:    filepath.Dir(path),
		Index:  i + 1,
	}
}

// args renders the command line, expanding @inputs and @rest to paths relative to the
// directory the program runs in.
func (p *Plugin) args(data Data) ([]string, error) {
	rendered, err := p.cmd.Render(data)
	if err != nil {
		return nil, errors.Wrap(err, OptCommand)
	}

	args := make([]string, 0, len(rendered)+len(data.Inputs))
	for _, arg := range rendered {
		switch arg {
		case InputsArg:
			args = appendRel(args, data.Dir, data.Inputs)
		case RestArg:
			if len(data.Inputs) > 1 {
				args = appendRel(args, data.Dir, data.Inputs[1:])
			}
		default:
			args = append(args, arg)
		}
	}

	return args, nil
}

// appendRel appends paths relative to dir. Paths outside dir stay absolute.
func appendRel(args []string, dir string, paths []string) []string {
	for _, path := range paths {
		rel, err := filepath.Rel(dir, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			rel = path
		}
		args = append(args, rel)
	}

	return args
}

func (p *Plugin) exec(ctx context.Context, data Data) error {
	if p.remote != nil {
		return p.execRemote(ctx, data)
	}

	args, err := p.args(data)
	if err != nil {
		return err
	}

	cmd := process.Command{Binary: args[0], Args: args[1:], Dir: data.Dir, Env: p.env}
	p.logger.Debug().Stringer("cmd", cmd).Msg("running")

	res, err := process.Run(ctx, cmd)
	if err != nil {
		return err
	}

	if p.stdout {
		return writeOutput(data.Output, res.Stdout)
	}

	return nil
}

// execRemote runs the program on the remote service, which only knows files by base name.
func (p *Plugin) execRemote(ctx context.Context, data Data) error {
	local := data
	data.Input = filepath.Base(local.Input)
	data.Inputs = make([]string, len(local.Inputs))
	for i, in := range local.Inputs {
		data.Inputs[i] = filepath.Base(in)
	}
	data.With = make([]string, len(local.With))
	for i, with := range local.With {
		data.With[i] = filepath.Base(with)
	}
	data.Dir = "."
	data.Output = filepath.Base(local.Output)

	args, err := p.args(data)
	if err != nil {
		return err
	}

	uploads := []string{local.Input}
	if p.mode == ModeAll {
		uploads = local.Inputs
	}
	for _, with := range local.With {
		if with != "" {
			uploads = append(uploads, with)
		}
	}

	var outputs []string
	if !p.stdout {
		outputs = []string{data.Output}
	}

	res, err := p.remote.Execute(ctx, strings.Join(args, " "), uploads, outputs)
	if err != nil {
		return err
	}

	if p.stdout {
		return writeOutput(local.Output, []byte(res.Message))
	}

	_, err = res.WriteOutputs(local.Dir)

	return err
}

func writeOutput(path string, content []byte) error {
	err := os.WriteFile(path, content, fs.FileMode(0o644)) //nolint:gosec // outputs are shared with external tools
	if err != nil {
		return errors.Wrapf(err, "unable to write %s", path)
	}

	return nil
}
