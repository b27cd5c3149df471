package model

// Node is one stage or filter instance of a pipeline run. The graph builder owns it until the
// pipeline runs; Stage is only rewritten while filters are spliced in.
type Node struct {
	// ID is the handle of the node in the pipeline graph.
	ID             string
	Name           string
	Stage          string
	InputsFrom     []string
	FilterOnOutput []string
	Skip           bool
	Config         Config
	Plugin         Plugin
}

// IsFilter reports whether the node was built from a filter.
func (n *Node) IsFilter() bool {
	return len(n.FilterOnOutput) > 0
}

// Info describes the node to pipeline options.
func (n *Node) Info(entry bool) *StageInfo {
	info := &StageInfo{
		Type:  NormalStageType,
		ID:    n.ID,
		Name:  n.Name,
		Stage: n.Stage,
		Skip:  n.Skip,
	}
	switch {
	case entry:
		info.Type = EntryStageType
	case n.IsFilter():
		info.Type = FilterStageType
	}

	return info
}
