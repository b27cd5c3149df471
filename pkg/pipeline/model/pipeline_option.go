package model

import "time"

// PipelineOption defines the interface for pipeline options.
type PipelineOption interface {
	// New initialises the pipeline option.
	New() error
	// PrepareStage runs once per node, in execution order, before the pipeline starts.
	// parent is nil for the entry stage.
	PrepareStage(parent, stage *StageInfo) error
	// OnStageOutput runs after a stage has produced its outputs.
	OnStageOutput(stage *StageInfo, elapsed time.Duration, outputs int) error
	// Finish runs after the pipeline is finished.
	Finish() error
}
