package model

type stageType string

const (
	EntryStageType  stageType = "entry"
	NormalStageType stageType = "stage"
	FilterStageType stageType = "filter"
)

// StageInfo describes a node to pipeline options.
type StageInfo struct {
	Type stageType
	// ID is the node handle in the pipeline graph.
	ID string
	// Name is the plugin name.
	Name string
	// Stage is the role of the node once every filter has been spliced.
	Stage string
	Skip  bool
}
