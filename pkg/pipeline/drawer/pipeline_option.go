package drawer

import (
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-docflow/pkg/pipeline/measure"
	"github.com/askiada/go-docflow/pkg/pipeline/model"
)

type pipelineDrawer struct {
	Drawer
	m measure.Measure
}

func (pd *pipelineDrawer) New() error {
	return nil
}

func (pd *pipelineDrawer) PrepareStage(parent, stage *model.StageInfo) error {
	err := pd.AddStage(stage)
	if err != nil {
		return err
	}

	if parent != nil {
		err = pd.AddLink(parent.ID, stage.ID)
		if err != nil {
			return err
		}
	}

	// drawn before any stage runs
	err = pd.Draw()
	if err != nil {
		return errors.Wrap(err, "unable to draw pipeline")
	}

	return nil
}

func (pd *pipelineDrawer) OnStageOutput(*model.StageInfo, time.Duration, int) error {
	return nil
}

func (pd *pipelineDrawer) Finish() error {
	if pd.m != nil {
		err := pd.AddMeasure(pd.m)
		if err != nil {
			return errors.Wrap(err, "unable to add measure")
		}
	}

	err := pd.Draw()
	if err != nil {
		return errors.Wrap(err, "unable to draw pipeline")
	}

	return nil
}

// PipelineDrawer draws the pipeline as its stages are prepared, then again with the measure
// overlay once it has run. measure may be nil; when set it must be fed by a measure option
// placed before this one.
func PipelineDrawer(drawer Drawer, measure measure.Measure) model.PipelineOption {
	return &pipelineDrawer{drawer, measure}
}
