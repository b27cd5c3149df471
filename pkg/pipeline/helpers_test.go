package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/askiada/go-docflow/pkg/items"
	"github.com/askiada/go-docflow/pkg/pipeline"
	"github.com/askiada/go-docflow/pkg/pipeline/model"
	"github.com/askiada/go-docflow/pkg/registry"
)

// call is what a fake plugin saw when it ran.
type call struct {
	name   string
	inputs [][]string
}

type journal struct {
	mu    sync.Mutex
	calls []call
}

func (j *journal) add(c call) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls = append(j.calls, c)
}

func (j *journal) names() []string {
	j.mu.Lock()
	defer j.mu.Unlock()

	res := make([]string, len(j.calls))
	for i, c := range j.calls {
		res[i] = c.name
	}

	return res
}

func (j *journal) inputsOf(name string) [][]string {
	j.mu.Lock()
	defer j.mu.Unlock()

	for _, c := range j.calls {
		if c.name == name {
			return c.inputs
		}
	}

	return nil
}

// fakePlugin writes <name>.out in dir and returns it.
type fakePlugin struct {
	name    string
	dir     string
	journal *journal
	err     error
}

func (p *fakePlugin) Start(_ context.Context, path string) (*items.List, error) {
	p.journal.add(call{name: p.name, inputs: [][]string{{path}}})
	if p.err != nil {
		return nil, p.err
	}

	return items.New(path)
}

func (p *fakePlugin) Run(_ context.Context, inputs ...*items.List) (*items.List, error) {
	c := call{name: p.name}
	for _, in := range inputs {
		c.inputs = append(c.inputs, in.Paths())
	}
	p.journal.add(c)
	if p.err != nil {
		return nil, p.err
	}

	out := filepath.Join(p.dir, p.name+".out")
	err := os.WriteFile(out, []byte(p.name), 0o600)
	if err != nil {
		return nil, err
	}

	return items.New(out)
}

// runOnly implements Run but not Start.
type runOnly struct{}

func (runOnly) Run(_ context.Context, inputs ...*items.List) (*items.List, error) {
	return inputs[0], nil
}

type fixture struct {
	dir     string
	journal *journal
	// failing names the plugin that returns assert.AnError.
	failing string
	failErr error
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	return &fixture{dir: t.TempDir(), journal: &journal{}}
}

func (fx *fixture) factory(stage, name string, opts ...func(f *model.Factory)) model.Factory {
	f := model.Factory{
		Name:  name,
		Stage: stage,
		New: func(node *model.Node, _ model.Deps) (model.Plugin, error) {
			p := &fakePlugin{name: node.Name, dir: fx.dir, journal: fx.journal}
			if node.Name == fx.failing {
				p.err = fx.failErr
			}

			return p, nil
		},
	}
	for _, opt := range opts {
		opt(&f)
	}

	return f
}

func filterOn(roles ...string) func(f *model.Factory) {
	return func(f *model.Factory) {
		f.FilterOnOutput = roles
	}
}

func inputsFrom(roles ...string) func(f *model.Factory) {
	return func(f *model.Factory) {
		f.InputsFrom = roles
	}
}

func withOptions(opts ...model.OptionSpec) func(f *model.Factory) {
	return func(f *model.Factory) {
		f.Options = opts
	}
}

// backbone registers one plugin per default stage, named fake_<stage>, plus extra.
func (fx *fixture) backbone(t *testing.T, extra ...model.Factory) *registry.Registry {
	t.Helper()

	b := registry.NewBuilder()
	for _, stage := range pipeline.DefaultStages {
		if slices.ContainsFunc(extra, func(f model.Factory) bool { return f.Stage == stage }) {
			continue
		}
		require.NoError(t, b.Register(fx.factory(stage, "fake_"+stage)))
	}
	for _, f := range extra {
		require.NoError(t, b.Register(f))
	}

	return b.Build()
}

func (fx *fixture) source(t *testing.T) string {
	t.Helper()

	path := filepath.Join(fx.dir, "scan.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o600))

	return path
}

func build(t *testing.T, reg *registry.Registry, req pipeline.Request) (*pipeline.Graph, error) {
	t.Helper()

	b, err := pipeline.NewBuilder(reg, model.Deps{})
	require.NoError(t, err)

	return b.Build(req)
}
