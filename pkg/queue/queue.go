package queue

import (
	"context"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// WorkFunc produces one output file.
type WorkFunc func(ctx context.Context) error

// Entry is a deferred task keyed by the file it produces.
type Entry struct {
	OutputPath string
	Work       WorkFunc
}

// Queue accumulates tasks for one stage and runs them on Drain.
type Queue struct {
	name        string
	parallelism int
	skip        bool
	refill      bool
	progress    Progress
	entries     []Entry
	index       map[string]int
}

// New creates an empty queue. The name is used for progress reporting.
func New(name string, opts ...Option) *Queue {
	q := &Queue{
		name:        name,
		parallelism: DefaultParallelism(),
		progress:    NopProgress{},
		index:       make(map[string]int),
	}
	for _, opt := range opts {
		opt(q)
	}

	return q
}

// Enqueue adds a task producing outputPath. Enqueueing the same output path again replaces the
// pending task and keeps its original position.
func (q *Queue) Enqueue(outputPath string, work WorkFunc) error {
	if outputPath == "" {
		return ErrOutputMustBeSet
	}
	if work == nil {
		return ErrWorkMustBeSet
	}

	abs, err := filepath.Abs(outputPath)
	if err != nil {
		return errors.Wrapf(err, "unable to resolve %s", outputPath)
	}

	if i, ok := q.index[abs]; ok {
		q.entries[i].Work = work

		return nil
	}

	q.index[abs] = len(q.entries)
	q.entries = append(q.entries, Entry{OutputPath: abs, Work: work})

	return nil
}

// Len returns the number of pending tasks.
func (q *Queue) Len() int {
	return len(q.entries)
}

// Skip reports whether the queue runs in skip mode.
func (q *Queue) Skip() bool {
	return q.skip
}

func (q *Queue) reset() {
	q.entries = nil
	q.index = make(map[string]int)
}

// Drain runs every pending task and returns their output paths in enqueue order. The queue is
// empty afterwards whatever the outcome.
func (q *Queue) Drain(ctx context.Context) ([]string, error) {
	entries := q.entries
	q.reset()

	outputs := make([]string, len(entries))
	for i, e := range entries {
		outputs[i] = e.OutputPath
	}

	if len(entries) == 0 {
		return outputs, nil
	}

	if q.skip {
		q.progress.Start(q.name+" [skipped]", len(entries))
		for range entries {
			q.progress.Increment()
		}
		q.progress.Stop()

		return outputs, nil
	}

	q.progress.Start(q.name, len(entries))
	defer q.progress.Stop()

	var err error
	if q.refill {
		err = q.runRefill(ctx, entries)
	} else {
		err = q.runBatches(ctx, entries)
	}
	if err != nil {
		return nil, err
	}

	return outputs, nil
}

func (q *Queue) run(ctx context.Context, e Entry) error {
	err := e.Work(ctx)
	if err != nil {
		return errors.Wrapf(err, "task %s", e.OutputPath)
	}
	q.progress.Increment()

	return nil
}

// runBatches launches the entries parallelism at a time and waits for the whole batch before
// starting the next one.
func (q *Queue) runBatches(ctx context.Context, entries []Entry) error {
	for start := 0; start < len(entries); start += q.parallelism {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "drain interrupted")
		}

		end := min(start+q.parallelism, len(entries))
		errGrp, dCtx := errgroup.WithContext(ctx)
		for _, e := range entries[start:end] {
			errGrp.Go(func() error {
				return q.run(dCtx, e)
			})
		}

		err := errGrp.Wait()
		if err != nil {
			return err
		}
	}

	return nil
}

func (q *Queue) runRefill(ctx context.Context, entries []Entry) error {
	errGrp, dCtx := errgroup.WithContext(ctx)
	errGrp.SetLimit(q.parallelism)
	for _, e := range entries {
		if dCtx.Err() != nil {
			break
		}
		errGrp.Go(func() error {
			return q.run(dCtx, e)
		})
	}

	err := errGrp.Wait()
	if err != nil {
		return err
	}

	return errors.Wrap(ctx.Err(), "drain interrupted")
}
