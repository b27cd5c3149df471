// Package remote offloads stage work to a remote compute service.
//
// Every network call goes through an Executor which retries transient failures with an
// exponential backoff. Retrying is bounded by wall-clock time rather than by a number of
// attempts: a short outage is absorbed while a long one fails the run once the deadline has
// elapsed. Errors marked with Permanent are never retried.
//
// Client speaks to the remote service: it obtains signed upload locations, uploads the input
// files, submits the command and returns the response, whose base64 encoded output files can
// be persisted with Response.WriteOutputs.
package remote
