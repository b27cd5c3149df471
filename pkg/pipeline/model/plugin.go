package model

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/askiada/go-docflow/pkg/bus"
	"github.com/askiada/go-docflow/pkg/items"
	"github.com/askiada/go-docflow/pkg/queue"
	"github.com/askiada/go-docflow/pkg/remote"
)

// FilterStage is the stage every filter factory registers under.
const FilterStage = "filter"

// Plugin does the work of a stage or a filter. It receives the outputs of the stages named in
// its InputsFrom, in that order, and returns its own outputs.
type Plugin interface {
	Run(ctx context.Context, inputs ...*items.List) (*items.List, error)
}

// Source is implemented by the plugin of the entry stage, which starts from the path of the
// source document instead of a list.
type Source interface {
	Start(ctx context.Context, path string) (*items.List, error)
}

// NewFunc instantiates a plugin for a node.
type NewFunc func(node *Node, deps Deps) (Plugin, error)

// OptionSpec declares a configuration option of a plugin.
type OptionSpec struct {
	Name    string
	Default any
	Usage   string
}

// Factory is what gets registered for a plugin: its static description and constructor.
type Factory struct {
	Name        string
	Stage       string
	Description string
	// InputsFrom lists the stages whose outputs Run receives.
	InputsFrom []string
	// FilterOnOutput lists the stages a filter may be inserted after, by preference.
	FilterOnOutput []string
	Options        []OptionSpec
	New            NewFunc
}

// IsFilter reports whether the factory builds a filter.
func (f Factory) IsFilter() bool {
	return f.Stage == FilterStage
}

// Validate checks the factory is usable.
func (f Factory) Validate() error {
	switch {
	case f.Name == "":
		return ErrInvalidFactory
	case f.Stage == "":
		return ErrInvalidFactory
	case f.New == nil:
		return ErrInvalidFactory
	case f.IsFilter() && len(f.FilterOnOutput) == 0:
		return ErrInvalidFactory
	}

	return nil
}

// Deps are the process-wide services handed to every plugin.
type Deps struct {
	Bus    *bus.Bus
	Logger zerolog.Logger
	// Parallelism caps the number of sub-tasks a stage runs at once.
	Parallelism int
	// NewProgress creates the progress reporter of a task queue. Nil disables reporting.
	NewProgress func() queue.Progress
	// Remote is set when work may be offloaded to a remote compute service.
	Remote *remote.Client
	// SourcePath is the document the pipeline runs on.
	SourcePath string
}

// Queue creates the task queue of node, honouring its skip flag.
func (d Deps) Queue(node *Node, opts ...queue.Option) *queue.Queue {
	base := []queue.Option{queue.WithSkip(node.Skip)}
	if d.Parallelism > 0 {
		base = append(base, queue.WithParallelism(d.Parallelism))
	}
	if d.NewProgress != nil {
		base = append(base, queue.WithProgress(d.NewProgress()))
	}

	return queue.New(node.Name, append(base, opts...)...)
}

// Publish posts a status message on the bus on behalf of node.
func (d Deps) Publish(node *Node, text string) {
	if d.Bus != nil {
		d.Bus.Publish(node.Name, text)
	}
}
