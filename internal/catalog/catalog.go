// Package catalog registers the plugins shipped with docflow.
package catalog

import (
	"github.com/askiada/go-docflow/pkg/pipeline/model"
	"github.com/askiada/go-docflow/pkg/plugins/cleanup"
	"github.com/askiada/go-docflow/pkg/plugins/command"
	"github.com/askiada/go-docflow/pkg/plugins/filer"
	"github.com/askiada/go-docflow/pkg/plugins/notify"
	"github.com/askiada/go-docflow/pkg/plugins/setup"
	"github.com/askiada/go-docflow/pkg/registry"
)

// Commands are the program backed plugins. Stages with several plugins use the first one
// unless configured otherwise.
var Commands = []command.Definition{
	{
		Name:        "pdftoppm",
		Stage:       "analyze",
		Description: "Render every page to a PNG image",
		Command:     []string{"pdftoppm", "-r", "300", "-png", "{{.Input}}", "page"},
		Collect:     "page-*.png",
		Mode:        command.ModeAll,
	},
	{
		Name:        "pdfimages",
		Stage:       "analyze",
		Description: "Extract the scanned image of every page",
		Command:     []string{"pdfimages", "-png", "{{.Input}}", "page"},
		Collect:     "page-*.png",
		Mode:        command.ModeAll,
	},
	{
		Name:        "grayscale",
		Stage:       "image",
		Description: "Convert page images to 8 bit grayscale",
		Command:     []string{"convert", "{{.Input}}", "-colorspace", "Gray", "-depth", "8", "{{.Base}}_gray.png"},
		Output:      "{{.Base}}_gray.png",
	},
	{
		Name:        "deskew",
		Stage:       "orient",
		Description: "Straighten page images",
		Command:     []string{"convert", "{{.Input}}", "-deskew", "40%", "{{.Base}}_deskew.png"},
		Output:      "{{.Base}}_deskew.png",
	},
	{
		Name:        "tesseract",
		Stage:       "ocr",
		Description: "Recognise the text of page images as hOCR",
		Command:     []string{"tesseract", "{{.Input}}", "{{.Base}}", "hocr"},
		Output:      "{{.Base}}.hocr",
	},
	{
		Name:        "ligatures",
		Stage:       "text_process",
		Description: "Replace typographic ligatures in recognised text",
		Command:     []string{"sed", "-e", "s/ﬁ/fi/g", "-e", "s/ﬂ/fl/g", "{{.Input}}"},
		Output:      "{{.Base}}_text.hocr",
		Stdout:      true,
	},
	{
		Name:        "hocr2pdf",
		Stage:       "create_overlay",
		Description: "Create an invisible text layer for every page from its processed hOCR",
		InputsFrom:  []string{"text_process", "orient"},
		Command: []string{
			"sh", "-c", `hocr2pdf -n -i "$1" -o "$2" < "$0"`,
			"{{.Input}}", "{{index .With 0}}", "{{.Base}}_overlay.pdf",
		},
		Output: "{{.Base}}_overlay.pdf",
	},
	{
		Name:        "qpdf",
		Stage:       "merge_overlay",
		Description: "Lay the text layers over the original document",
		InputsFrom:  []string{"setup", "create_overlay"},
		Command: []string{
			"sh", "-c", `qpdf --empty --pages "$@" -- overlay.pdf && qpdf "$0" --overlay overlay.pdf -- {{.Base}}_ocr.pdf`,
			"{{.Name}}", "@rest",
		},
		Output: "{{.Base}}_ocr.pdf",
		Mode:   command.ModeAll,
	},
	{
		Name:           "despeckle",
		Stage:          model.FilterStage,
		Description:    "Remove noise from page images",
		FilterOnOutput: []string{"image"},
		Command:        []string{"convert", "{{.Input}}", "-despeckle", "{{.Base}}_clean.png"},
		Output:         "{{.Base}}_clean.png",
	},
	{
		Name:           "threshold",
		Stage:          model.FilterStage,
		Description:    "Turn page images to black and white",
		FilterOnOutput: []string{"orient", "image"},
		Command:        []string{"convert", "{{.Input}}", "-threshold", "60%", "{{.Base}}_bw.png"},
		Output:         "{{.Base}}_bw.png",
	},
}

// Factories returns every shipped plugin.
func Factories(opts ...notify.FactoryOption) []model.Factory {
	factories := []model.Factory{setup.Factory()}
	for _, def := range Commands {
		factories = append(factories, command.Factory(def))
	}

	return append(factories, cleanup.Factory(), notify.Factory(opts...), filer.Factory())
}

// Registry returns a registry holding every shipped plugin.
func Registry(opts ...notify.FactoryOption) *registry.Registry {
	return registry.NewBuilder().MustRegister(Factories(opts...)...).Build()
}

// CommandNames lists the program backed plugins.
func CommandNames() []string {
	names := make([]string, len(Commands))
	for i, def := range Commands {
		names[i] = def.Name
	}

	return names
}
