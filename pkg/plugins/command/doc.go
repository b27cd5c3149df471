// Package command provides stages and filters backed by an external program.
//
// In each mode the program runs once per file of the first input, through the bounded task
// queue of the stage, and produces the file named by the output template. In all mode it runs
// once over every input file. Its outputs are then either the single output file or every file
// of the work directory matching the collect glob.
//
// Arguments are text/template strings rendered with Data. The argument @inputs expands to
// every input path and @rest to every input path but the first one, both relative to the
// directory the program runs in. In each mode the files of the other inputs at the same
// position are available as .With. With stdout set the
// standard output of the program is written to the output file.
//
// When a remote compute service is configured and the remote option is set, inputs are
// uploaded and the program runs remotely. Paths are then replaced by base names.
package command
