package main

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/askiada/go-docflow/internal/catalog"
	"github.com/askiada/go-docflow/pkg/pipeline/model"
)

func newPluginsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List the available plugins and their options",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg := catalog.Registry()

			data := pterm.TableData{{"Stage", "Plugin", "Description", "Options"}}
			for _, stage := range append(reg.Stages(), model.FilterStage) {
				for _, f := range reg.Plugins(stage) {
					where := stage
					if f.IsFilter() {
						where = fmt.Sprintf("%s (after %s)", stage, strings.Join(f.FilterOnOutput, "|"))
					}
					data = append(data, []string{where, f.Name, f.Description, optionNames(f)})
				}
			}

			return pterm.DefaultTable.WithHasHeader().WithData(data).WithWriter(cmd.OutOrStdout()).Render()
		},
	}
}

func optionNames(f model.Factory) string {
	names := make([]string, len(f.Options))
	for i, opt := range f.Options {
		names[i] = opt.Name
	}

	return strings.Join(names, ", ")
}
