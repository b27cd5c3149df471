package measure

import (
	"time"

	"github.com/askiada/go-docflow/pkg/pipeline/model"
)

type pipelineMeasure struct {
	Measure
}

func (pm *pipelineMeasure) New() error {
	return nil
}

func (pm *pipelineMeasure) PrepareStage(_, stage *model.StageInfo) error {
	pm.AddMetric(stage.ID)
	return nil
}

func (pm *pipelineMeasure) OnStageOutput(stage *model.StageInfo, elapsed time.Duration, outputs int) error {
	mt := pm.GetMetric(stage.ID)
	if mt == nil {
		mt = pm.AddMetric(stage.ID)
	}
	mt.AddDuration(elapsed)
	mt.AddOutputs(outputs)

	return nil
}

func (pm *pipelineMeasure) Finish() error {
	return nil
}

// PipelineMeasure records the duration and the number of outputs of every stage into measure.
func PipelineMeasure(measure Measure) model.PipelineOption {
	return &pipelineMeasure{measure}
}
