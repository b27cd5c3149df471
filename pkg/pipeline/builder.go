package pipeline

import (
	"fmt"
	"slices"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/askiada/go-docflow/pkg/pipeline/model"
	"github.com/askiada/go-docflow/pkg/registry"
)

// EntryStage is the stage every document enters the pipeline through.
const EntryStage = "setup"

// DefaultStages are the stages a document goes through, in order.
var DefaultStages = []string{
	EntryStage,
	"analyze",
	"image",
	"orient",
	"ocr",
	"text_process",
	"create_overlay",
	"merge_overlay",
	"clean",
}

// Request describes the pipeline to assemble.
type Request struct {
	// Stages are the required stages in order. DefaultStages when empty.
	Stages []string
	// Filters are the filter names to splice, in the order the user asked for them.
	Filters []string
	// Skip lists the stages whose work is not done again.
	Skip []string
	// Preferred maps a stage to the plugin that must perform it.
	Preferred map[string]string
	// Options holds the configuration of each plugin, keyed by plugin name.
	Options map[string]map[string]any
}

// Builder assembles pipeline graphs from the registered plugins.
type Builder struct {
	reg    *registry.Registry
	deps   model.Deps
	logger zerolog.Logger
}

// NewBuilder creates a builder. deps is handed to every plugin it instantiates.
func NewBuilder(reg *registry.Registry, deps model.Deps) (*Builder, error) {
	if reg == nil {
		return nil, ErrRegistryMustBeSet
	}

	return &Builder{
		reg:    reg,
		deps:   deps,
		logger: deps.Logger,
	}, nil
}

// Build resolves a plugin for every required stage, chains them, splices the filters and
// checks the result is a single chain whose inputs are all produced upstream.
func (b *Builder) Build(req Request) (*Graph, error) {
	stages := req.Stages
	if len(stages) == 0 {
		stages = DefaultStages
	}

	gra := newGraph()
	var prev string
	for _, stage := range stages {
		node, err := b.stageNode(stage, req)
		if err != nil {
			return nil, err
		}

		err = gra.add(node, stage)
		if err != nil {
			return nil, configErr(err, "stage %s", stage)
		}
		if stage == EntryStage && gra.entry == "" {
			gra.entry = node.ID
		}
		if prev != "" {
			err = gra.link(prev, node.ID)
			if err != nil {
				return nil, configErr(err, "stage %s", stage)
			}
		}
		prev = node.ID
	}

	filters := slices.Clone(req.Filters)
	slices.Reverse(filters)
	for i, name := range filters {
		err := b.splice(gra, name, i, req)
		if err != nil {
			return nil, err
		}
	}

	err := gra.resolveOrder()
	if err != nil {
		return nil, err
	}

	return gra, nil
}

func (b *Builder) stageNode(stage string, req Request) (*model.Node, error) {
	f, candidates, err := b.reg.Select(stage, req.Preferred[stage])
	if err != nil {
		if errors.Is(err, registry.ErrNoPlugin) {
			return nil, configErr(ErrMissingPlugin, "stage %s", stage)
		}

		return nil, configErr(err, "stage %s", stage)
	}
	if candidates > 1 && req.Preferred[stage] == "" {
		b.logger.Warn().Str("stage", stage).Str("plugin", f.Name).Int("candidates", candidates).
			Msg("several plugins can perform this stage, using the first registered")
	}

	return b.instantiate(f, stage, slices.Contains(req.Skip, stage), req.Options[f.Name])
}

func (b *Builder) instantiate(f model.Factory, stage string, skip bool, raw map[string]any) (*model.Node, error) {
	cfg, err := f.ResolveConfig(raw)
	if err != nil {
		return nil, configErr(err, "%s[%s]", f.Name, stage)
	}

	node := &model.Node{
		ID:             f.Stage + "/" + f.Name,
		Name:           f.Name,
		Stage:          stage,
		InputsFrom:     slices.Clone(f.InputsFrom),
		FilterOnOutput: slices.Clone(f.FilterOnOutput),
		Skip:           skip,
		Config:         cfg,
	}

	node.Plugin, err = f.New(node, b.deps)
	if err != nil {
		return nil, configErr(err, "%s[%s]", f.Name, stage)
	}

	return node, nil
}

// splice inserts the filter name right after the first of its insertion points found in the
// graph. The filter takes over the role of that node, which is renamed _<role>_<i>.
func (b *Builder) splice(gra *Graph, name string, i int, req Request) error {
	f, ok := b.reg.Lookup(model.FilterStage, name)
	if !ok {
		return configErr(ErrUnknownFilter, "filter %s", name)
	}
	if len(f.FilterOnOutput) == 0 {
		return configErr(ErrNoInsertionPoint, "filter %s", name)
	}
	if _, ok := gra.nodes[model.FilterStage+"/"+name]; ok {
		return configErr(ErrDuplicateFilter, "filter %s", name)
	}

	var role, matched string
	for _, candidate := range f.FilterOnOutput {
		if handle, ok := gra.roles[candidate]; ok {
			role, matched = candidate, handle
			break
		}
	}
	if matched == "" {
		return configErr(ErrInsertionPointNotFound, "filter %s after %v", name, f.FilterOnOutput)
	}

	private := fmt.Sprintf("_%s_%d", role, i)
	if _, live := gra.roles[private]; live {
		return configErr(ErrRoleCollision, "filter %s renaming %s to %s", name, role, private)
	}

	node, err := b.instantiate(f, role, false, req.Options[name])
	if err != nil {
		return err
	}
	for j, input := range node.InputsFrom {
		if input == role {
			node.InputsFrom[j] = private
		}
	}

	err = gra.insertAfter(matched, node)
	if err != nil {
		return configErr(err, "filter %s", name)
	}

	gra.nodes[matched].Stage = private
	gra.roles[private] = matched
	gra.roles[role] = node.ID

	b.logger.Debug().Str("filter", name).Str("after", role).Str("renamed", private).Msg("filter spliced")

	return nil
}

// Graph is an assembled pipeline. Nodes are keyed by handle, <declared stage>/<plugin name>,
// which never changes while roles move around during splicing.
type Graph struct {
	g     graph.Graph[string, string]
	nodes map[string]*model.Node
	roles map[string]string
	entry string
	order []*model.Node
}

func newGraph() *Graph {
	return &Graph{
		g:     graph.New(graph.StringHash, graph.Directed(), graph.Acyclic(), graph.PreventCycles()),
		nodes: make(map[string]*model.Node),
		roles: make(map[string]string),
	}
}

func (gra *Graph) add(node *model.Node, role string) error {
	err := gra.g.AddVertex(node.ID)
	if err != nil {
		return errors.Wrapf(err, "unable to add %s", node.ID)
	}

	gra.nodes[node.ID] = node
	gra.roles[role] = node.ID

	return nil
}

func (gra *Graph) link(from, to string) error {
	err := gra.g.AddEdge(from, to)
	if err != nil {
		return errors.Wrapf(err, "unable to link %s to %s", from, to)
	}

	return nil
}

// insertAfter moves every outgoing edge of matched to node and links matched to node.
func (gra *Graph) insertAfter(matched string, node *model.Node) error {
	adjacency, err := gra.g.AdjacencyMap()
	if err != nil {
		return errors.Wrap(err, "unable to get adjacency map")
	}

	err = gra.g.AddVertex(node.ID)
	if err != nil {
		return errors.Wrapf(err, "unable to add %s", node.ID)
	}
	gra.nodes[node.ID] = node

	for succ := range adjacency[matched] {
		err = gra.g.RemoveEdge(matched, succ)
		if err != nil {
			return errors.Wrapf(err, "unable to unlink %s from %s", matched, succ)
		}

		err = gra.link(node.ID, succ)
		if err != nil {
			return err
		}
	}

	return gra.link(matched, node.ID)
}

func (gra *Graph) resolveOrder() error {
	if gra.entry == "" {
		return configErr(ErrNotLinear, "stage %s is missing", EntryStage)
	}

	adjacency, err := gra.g.AdjacencyMap()
	if err != nil {
		return errors.Wrap(err, "unable to get adjacency map")
	}
	for handle, succ := range adjacency {
		if len(succ) > 1 {
			node := gra.nodes[handle]
			return configErr(ErrNotLinear, "%s[%s] has %d successors", node.Name, node.Stage, len(succ))
		}
	}

	order := make([]*model.Node, 0, len(gra.nodes))
	err = graph.DFS(gra.g, gra.entry, func(handle string) bool {
		order = append(order, gra.nodes[handle])
		return false
	})
	if err != nil {
		return errors.Wrap(err, "unable to walk the pipeline")
	}
	if len(order) != len(gra.nodes) {
		return configErr(ErrNotLinear, "%d stages are not reachable from %s", len(gra.nodes)-len(order), EntryStage)
	}

	ran := make(map[string]bool, len(order))
	for _, node := range order {
		for _, input := range node.InputsFrom {
			if !ran[input] {
				return configErr(ErrUnresolvedInput, "%s[%s] needs %s", node.Name, node.Stage, input)
			}
		}
		ran[node.Stage] = true
	}

	gra.order = order

	return nil
}

// Order returns the nodes in execution order.
func (gra *Graph) Order() []*model.Node {
	return slices.Clone(gra.order)
}

// Node returns the node currently holding role.
func (gra *Graph) Node(role string) (*model.Node, bool) {
	handle, ok := gra.roles[role]
	if !ok {
		return nil, false
	}

	return gra.nodes[handle], true
}

// Roles returns the role of every node in execution order.
func (gra *Graph) Roles() []string {
	res := make([]string, len(gra.order))
	for i, node := range gra.order {
		res[i] = node.Stage
	}

	return res
}
