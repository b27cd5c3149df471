// Package pipeline assembles and runs document processing pipelines.
//
// A Builder picks one registered plugin for each required stage and chains them. Filters are
// then spliced in right after the stage they declare as insertion point: the filter takes over
// the role of that stage so that every later stage still finds the inputs it asks for, while
// the original node is renamed to a private role only the filter reads from.
//
// A Pipeline walks the resulting chain one stage at a time. Each stage receives the outputs of
// the stages it names and may run many sub-tasks concurrently through a bounded task queue.
// The first error stops the run.
package pipeline
