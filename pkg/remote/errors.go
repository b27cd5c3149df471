package remote

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrDeadlineExceeded = errors.New("retry deadline exceeded")
	ErrBaseURLMustBeSet = errors.New("base url must be set")
	ErrMalformedOutput  = errors.New("malformed output file")
)

// ExhaustedError is returned once the retry deadline has elapsed. It matches
// ErrDeadlineExceeded and unwraps to the last error returned by the operation.
type ExhaustedError struct {
	Name     string
	Attempts int
	Elapsed  time.Duration
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: %s after %d attempts in %s: %v", e.Name, ErrDeadlineExceeded, e.Attempts, e.Elapsed.Round(time.Millisecond), e.Err)
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrDeadlineExceeded
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// StatusError is returned when the remote service answers with a non 2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote returned status %d: %s", e.Code, e.Body)
}
