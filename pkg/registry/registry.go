// Package registry maps pipeline stages to the plugins able to perform them.
//
// Plugins are registered explicitly on a Builder when the process starts. The Registry it
// builds cannot be changed afterwards.
package registry

import (
	"slices"

	"github.com/pkg/errors"

	"github.com/askiada/go-docflow/pkg/pipeline/model"
)

type key struct {
	stage string
	name  string
}

// Builder collects plugin factories.
type Builder struct {
	byKey   map[key]model.Factory
	byStage map[string][]string
	stages  []string
}

func NewBuilder() *Builder {
	return &Builder{
		byKey:   make(map[key]model.Factory),
		byStage: make(map[string][]string),
	}
}

// Register adds f. The pair (stage, name) must be unique.
func (b *Builder) Register(f model.Factory) error {
	err := f.Validate()
	if err != nil {
		return errors.Wrapf(err, "plugin %q for stage %q", f.Name, f.Stage)
	}

	k := key{stage: f.Stage, name: f.Name}
	if _, ok := b.byKey[k]; ok {
		return errors.Wrapf(ErrDuplicatePlugin, "%s[%s]", f.Name, f.Stage)
	}

	b.byKey[k] = f
	if _, ok := b.byStage[f.Stage]; !ok {
		b.stages = append(b.stages, f.Stage)
	}
	b.byStage[f.Stage] = append(b.byStage[f.Stage], f.Name)

	return nil
}

// MustRegister is like Register but panics on error.
func (b *Builder) MustRegister(factories ...model.Factory) *Builder {
	for _, f := range factories {
		if err := b.Register(f); err != nil {
			panic(err)
		}
	}

	return b
}

// Build returns a registry holding a copy of everything registered so far.
func (b *Builder) Build() *Registry {
	r := &Registry{
		byKey:   make(map[key]model.Factory, len(b.byKey)),
		byStage: make(map[string][]string, len(b.byStage)),
		stages:  slices.Clone(b.stages),
	}
	for k, f := range b.byKey {
		r.byKey[k] = f
	}
	for stage, names := range b.byStage {
		r.byStage[stage] = slices.Clone(names)
	}

	return r
}

// Registry is the read only view of the registered plugins. It is safe for concurrent use.
type Registry struct {
	byKey   map[key]model.Factory
	byStage map[string][]string
	stages  []string
}

// Plugins returns the factories registered for stage in registration order.
func (r *Registry) Plugins(stage string) []model.Factory {
	names := r.byStage[stage]
	res := make([]model.Factory, 0, len(names))
	for _, name := range names {
		res = append(res, r.byKey[key{stage: stage, name: name}])
	}

	return res
}

// Lookup returns the factory registered as name for stage.
func (r *Registry) Lookup(stage, name string) (model.Factory, bool) {
	f, ok := r.byKey[key{stage: stage, name: name}]
	return f, ok
}

// Filters returns every registered filter.
func (r *Registry) Filters() []model.Factory {
	return r.Plugins(model.FilterStage)
}

// Stages returns the stages with at least one plugin, filters excluded, in the order they were
// first registered.
func (r *Registry) Stages() []string {
	res := make([]string, 0, len(r.stages))
	for _, stage := range r.stages {
		if stage != model.FilterStage {
			res = append(res, stage)
		}
	}

	return res
}

// Select picks the plugin performing stage. The preferred plugin wins when set, otherwise the
// first one registered. candidates is the number of plugins that could have been chosen.
func (r *Registry) Select(stage, preferred string) (f model.Factory, candidates int, err error) {
	names := r.byStage[stage]
	if len(names) == 0 {
		return model.Factory{}, 0, errors.Wrapf(ErrNoPlugin, "stage %q", stage)
	}

	if preferred == "" {
		return r.byKey[key{stage: stage, name: names[0]}], len(names), nil
	}

	f, ok := r.Lookup(stage, preferred)
	if !ok {
		return model.Factory{}, len(names), errors.Wrapf(ErrUnknownPlugin, "%q for stage %q", preferred, stage)
	}

	return f, len(names), nil
}
