package catalog_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-docflow/internal/catalog"
	"github.com/askiada/go-docflow/pkg/bus"
	"github.com/askiada/go-docflow/pkg/pipeline"
	"github.com/askiada/go-docflow/pkg/pipeline/model"
)

func names(gra *pipeline.Graph) []string {
	var res []string
	for _, node := range gra.Order() {
		res = append(res, node.Name)
	}

	return res
}

func TestRegistryCoversDefaultStages(t *testing.T) {
	t.Parallel()

	reg := catalog.Registry()
	assert.Equal(t, pipeline.DefaultStages, reg.Stages())

	var filters []string
	for _, f := range reg.Filters() {
		filters = append(filters, f.Name)
	}
	assert.ElementsMatch(t, []string{"despeckle", "threshold", "notify", "filedirs"}, filters)
}

func TestBuild(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		request pipeline.Request
		want    []string
	}{
		"defaults": {
			want: []string{"workdir", "pdftoppm", "grayscale", "deskew", "tesseract", "ligatures", "hocr2pdf", "qpdf", "cleanup"},
		},
		"preferred plugin": {
			request: pipeline.Request{Preferred: map[string]string{"analyze": "pdfimages"}},
			want:    []string{"workdir", "pdfimages", "grayscale", "deskew", "tesseract", "ligatures", "hocr2pdf", "qpdf", "cleanup"},
		},
		"filters": {
			request: pipeline.Request{Filters: []string{"notify", "despeckle", "threshold"}},
			want: []string{
				"workdir", "pdftoppm", "grayscale", "despeckle", "deskew", "threshold", "tesseract", "ligatures", "hocr2pdf",
				"qpdf", "cleanup", "notify",
			},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			b, err := pipeline.NewBuilder(catalog.Registry(), model.Deps{Bus: bus.New(), Logger: zerolog.Nop()})
			require.NoError(t, err)

			gra, err := b.Build(tc.request)
			require.NoError(t, err)
			assert.Equal(t, tc.want, names(gra))
		})
	}
}

func TestThresholdFeedsOverlay(t *testing.T) {
	t.Parallel()

	b, err := pipeline.NewBuilder(catalog.Registry(), model.Deps{Logger: zerolog.Nop()})
	require.NoError(t, err)

	gra, err := b.Build(pipeline.Request{Filters: []string{"threshold"}})
	require.NoError(t, err)

	overlay, ok := gra.Node("create_overlay")
	require.True(t, ok)
	assert.Equal(t, []string{"text_process", "orient"}, overlay.InputsFrom)

	orient, ok := gra.Node("orient")
	require.True(t, ok)
	assert.Equal(t, "threshold", orient.Name)
}
