package measure

import "time"

// Measure collects a metric per stage of a run.
type Measure interface {
	AddMetric(id string) Metric
	GetMetric(id string) Metric
	AllMetrics() map[string]Metric
	// Order returns the ids of the metrics in the order they were added.
	Order() []string
}

// Metric accumulates the runs of one stage.
type Metric interface {
	AddDuration(elapsed time.Duration)
	AddOutputs(total int)
	AVGDuration() time.Duration
	TotalDuration() time.Duration
	Outputs() int
	Runs() int64
}
