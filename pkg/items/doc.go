// Package items provides the List type exchanged between pipeline stages.
//
// A List is an ordered, de-duplicated set of absolute file paths that all live in one common
// directory. Every insertion checks that the path references an existing regular file and that
// its directory matches the directory of the paths already in the list.
//
// Lists also offer a scoped working directory: Within changes the process working directory to
// the common directory for the duration of a callback and always restores the previous one.
// The working directory is process-wide state, so only one scope may be active at a time.
package items
