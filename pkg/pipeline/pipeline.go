package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/askiada/go-docflow/pkg/items"
	"github.com/askiada/go-docflow/pkg/pipeline/model"
)

// Pipeline runs the stages of a graph one after the other.
type Pipeline struct {
	graph     *Graph
	opts      []model.PipelineOption
	startTime time.Time
}

// New creates a new pipeline and prepares every option with the stages of gra.
func New(gra *Graph, opts ...model.PipelineOption) (*Pipeline, error) {
	if gra == nil {
		return nil, ErrGraphMustBeSet
	}

	pipe := &Pipeline{
		graph:     gra,
		startTime: time.Now(),
		opts:      opts,
	}

	for _, opt := range opts {
		err := opt.New()
		if err != nil {
			return nil, errors.Wrap(err, "unable to apply pipeline option")
		}
	}

	var parent *model.StageInfo
	for i, node := range gra.order {
		info := node.Info(i == 0)
		for _, opt := range opts {
			err := opt.PrepareStage(parent, info)
			if err != nil {
				return nil, errors.Wrapf(err, "unable to prepare %s", node.ID)
			}
		}
		parent = info
	}

	return pipe, nil
}

// Run pushes the document at source through every stage and returns the outputs of the last
// one. It stops on the first error.
func (p *Pipeline) Run(ctx context.Context, source string) (*items.List, error) {
	logger := zerolog.Ctx(ctx)
	results := make(map[string]*items.List, len(p.graph.order))

	var last *items.List
	for i, node := range p.graph.order {
		err := ctx.Err()
		if err != nil {
			return nil, &StageError{Name: node.Name, Stage: node.Stage, Err: err}
		}

		inputs := p.inputs(node, results, last)
		logger.Info().Str("plugin", node.Name).Str("stage", node.Stage).Bool("skip", node.Skip).
			Strs("inputs_from", node.InputsFrom).Msg("running stage")

		start := time.Now()
		out, err := p.runNode(ctx, i == 0, node, source, inputs)
		if err != nil {
			return nil, &StageError{Name: node.Name, Stage: node.Stage, Err: err}
		}
		elapsed := time.Since(start)
		if out == nil {
			out = &items.List{}
		}

		logger.Debug().Str("stage", node.Stage).Dur("elapsed", elapsed).Int("outputs", out.Len()).Msg("stage done")

		info := node.Info(i == 0)
		for _, opt := range p.opts {
			err = opt.OnStageOutput(info, elapsed, out.Len())
			if err != nil {
				return nil, errors.Wrapf(err, "unable to record %s", node.ID)
			}
		}

		results[node.Stage] = out
		last = out
	}

	err := p.finishRun()
	if err != nil {
		return nil, err
	}

	logger.Info().Dur("elapsed", time.Since(p.startTime)).Msg("pipeline done")

	return last, nil
}

func (p *Pipeline) runNode(ctx context.Context, entry bool, node *model.Node, source string, inputs []*items.List) (*items.List, error) {
	if !entry {
		return node.Plugin.Run(ctx, inputs...)
	}

	src, ok := node.Plugin.(model.Source)
	if !ok {
		return nil, ErrNotSource
	}

	return src.Start(ctx, source)
}

// inputs gathers the outputs of the stages node reads from. A node naming no stage reads the
// outputs of the node before it.
func (p *Pipeline) inputs(node *model.Node, results map[string]*items.List, last *items.List) []*items.List {
	if len(node.InputsFrom) == 0 {
		if last == nil {
			return nil
		}

		return []*items.List{last}
	}

	res := make([]*items.List, len(node.InputsFrom))
	for i, role := range node.InputsFrom {
		res[i] = results[role]
	}

	return res
}

func (p *Pipeline) finishRun() error {
	for _, opt := range p.opts {
		err := opt.Finish()
		if err != nil {
			return errors.Wrap(err, "unable to finish pipeline option")
		}
	}

	return nil
}
