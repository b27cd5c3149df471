package drawer

import (
	"io"

	"github.com/askiada/go-docflow/pkg/pipeline/measure"
	"github.com/askiada/go-docflow/pkg/pipeline/model"
)

// Drawer is an interface that defines the methods for drawing a pipeline.
type Drawer interface {
	// AddStage adds a stage or a filter to the drawing.
	AddStage(stage *model.StageInfo) error
	// AddLink adds a link between two stages, by id.
	AddLink(parentID, childID string) error
	// AddMeasure labels every stage with its timings and colours it by duration.
	AddMeasure(measure measure.Measure) error
	// Render writes the drawing to wrt.
	Render(wrt io.Writer) error
	// Draw creates the output file.
	Draw() error
}
