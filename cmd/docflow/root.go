package main

import (
	"io"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/askiada/go-docflow/internal/catalog"
	"github.com/askiada/go-docflow/internal/config"
	"github.com/askiada/go-docflow/internal/logger"
	"github.com/askiada/go-docflow/pkg/bus"
	"github.com/askiada/go-docflow/pkg/pipeline"
	"github.com/askiada/go-docflow/pkg/pipeline/drawer"
	"github.com/askiada/go-docflow/pkg/pipeline/measure"
	"github.com/askiada/go-docflow/pkg/pipeline/model"
	"github.com/askiada/go-docflow/pkg/queue"
	"github.com/askiada/go-docflow/pkg/remote"
)

type rootFlags struct {
	configFile string
	threads    string
	stages     []string
	filters    []string
	skip       []string
	graph      string
	verbose    bool
	debug      bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "docflow [flags] PDFFILE",
		Short:         "Make scanned PDF documents searchable",
		Long:          "docflow runs a scanned PDF document through a chain of stages and writes a searchable copy next to it.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}

			return run(cmd, cfg, args[0], flags.verbose)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.configFile, "config", "c", "", "configuration file")
	f.StringVarP(&flags.threads, "threads", "t", "", "sub-tasks run at once per stage, a number or max")
	f.StringSliceVar(&flags.stages, "stages", nil, "stages to run, in order")
	f.StringSliceVarP(&flags.filters, "filters", "f", nil, "filters to splice, in order")
	f.StringSliceVar(&flags.skip, "skip", nil, "stages whose work is reused from a previous run")
	f.StringVar(&flags.graph, "graph", "", "write the pipeline graph to this DOT file")
	f.BoolVarP(&flags.verbose, "verbose", "v", false, "print stage timings")
	f.BoolVar(&flags.debug, "debug", false, "log debug messages")

	cmd.AddCommand(newPluginsCmd())

	return cmd
}

func loadConfig(cmd *cobra.Command, flags *rootFlags) (*config.Config, error) {
	opts := []config.LoaderOption{config.WithConfigFile(flags.configFile)}

	changed := cmd.Flags().Changed
	if changed("threads") {
		opts = append(opts, config.WithOverride("threads", flags.threads))
	}
	if changed("stages") {
		opts = append(opts, config.WithOverride("stages", flags.stages))
	}
	if changed("filters") {
		opts = append(opts, config.WithOverride("filters", flags.filters))
	}
	if changed("skip") {
		opts = append(opts, config.WithOverride("skip", flags.skip))
	}
	if changed("graph") {
		opts = append(opts, config.WithOverride("graph", flags.graph))
	}
	if flags.debug {
		opts = append(opts, config.WithOverride("log.level", "debug"))
	}

	return config.Load(opts...)
}

func run(cmd *cobra.Command, cfg *config.Config, document string, timings bool) error {
	parallelism, err := cfg.Parallelism()
	if err != nil {
		return err
	}
	queue.SetDefaultParallelism(parallelism)

	log, closer, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close()

	log = log.With().Str("run_id", uuid.NewString()).Logger()
	ctx := log.WithContext(cmd.Context())

	source, err := filepath.Abs(document)
	if err != nil {
		return errors.Wrapf(err, "unable to resolve %s", document)
	}

	deps := model.Deps{
		Bus:         bus.New(),
		Logger:      log,
		Parallelism: parallelism,
		SourcePath:  source,
	}
	if cfg.Progress {
		deps.NewProgress = func() queue.Progress { return queue.NewTerminalProgress() }
	}
	if cfg.Remote.URL != "" {
		deps.Remote, err = remote.NewClient(cfg.Remote.URL, remote.NewExecutor(cfg.Remote.Policy, log))
		if err != nil {
			return err
		}
	}

	builder, err := pipeline.NewBuilder(catalog.Registry(), deps)
	if err != nil {
		return err
	}

	gra, err := builder.Build(pipeline.Request{
		Stages:    cfg.Stages,
		Filters:   cfg.Filters,
		Skip:      cfg.Skip,
		Preferred: cfg.Plugins,
		Options:   pluginOptions(cfg),
	})
	if err != nil {
		return err
	}

	msr := measure.NewDefaultMeasure()
	opts := []model.PipelineOption{measure.PipelineMeasure(msr)}
	if cfg.Graph != "" {
		opts = append(opts, drawer.PipelineDrawer(drawer.NewDOTDrawer(cfg.Graph), msr))
	}

	pipe, err := pipeline.New(gra, opts...)
	if err != nil {
		return err
	}

	log.Info().Str("document", source).Int("parallelism", parallelism).Msg("starting")

	out, err := pipe.Run(ctx, source)
	if err != nil {
		return err
	}

	if timings {
		printTimings(cmd.OutOrStdout(), gra, msr)
	}
	for _, path := range out.Paths() {
		pterm.Success.Println(path)
	}

	return nil
}

// pluginOptions adds the global refill setting to the options of every program backed plugin.
func pluginOptions(cfg *config.Config) map[string]map[string]any {
	opts := make(map[string]map[string]any, len(cfg.Options))
	for name, o := range cfg.Options {
		opts[name] = o
	}
	if !cfg.Refill {
		return opts
	}

	for _, name := range catalog.CommandNames() {
		o := make(map[string]any, len(opts[name])+1)
		for k, v := range opts[name] {
			o[k] = v
		}
		if _, ok := o["refill"]; !ok {
			o["refill"] = true
		}
		opts[name] = o
	}

	return opts
}

func printTimings(w io.Writer, gra *pipeline.Graph, msr measure.Measure) {
	data := pterm.TableData{{"Stage", "Plugin", "Duration", "Outputs"}}
	for _, node := range gra.Order() {
		mt := msr.GetMetric(node.ID)
		if mt == nil {
			continue
		}
		data = append(data, []string{node.Stage, node.Name, mt.TotalDuration().String(), strconv.Itoa(mt.Outputs())})
	}

	_ = pterm.DefaultTable.WithHasHeader().WithData(data).WithWriter(w).Render()
}
