// Package queue provides the bounded task queue stages use to run their sub-tasks.
//
// A stage enqueues one deferred task per output file it intends to produce, keyed by that
// output path, then drains the queue once. Draining runs the tasks with at most N in flight:
// tasks are launched in batches of N and the next batch only starts once every task of the
// current batch has returned. WithRefill switches to a dynamic pool where a task starts as soon
// as a slot frees up.
//
// A queue created with WithSkip never runs its tasks: Drain only reports the output paths that
// a previous run already produced, which is what makes a pipeline resumable.
//
// The first failing task aborts Drain. Outputs written by tasks that already completed are
// left on disk.
package queue
