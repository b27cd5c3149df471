package pipeline

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/askiada/go-docflow/pkg/pipeline/model"
)

var (
	ErrRegistryMustBeSet      = errors.New("registry must be set")
	ErrGraphMustBeSet         = errors.New("graph must be set")
	ErrMissingPlugin          = errors.New("no plugin available for required stage")
	ErrUnknownOption          = model.ErrUnknownOption
	ErrUnknownFilter          = errors.New("unknown filter")
	ErrDuplicateFilter        = errors.New("filter requested more than once")
	ErrNoInsertionPoint       = errors.New("filter declares no insertion point")
	ErrInsertionPointNotFound = errors.New("no insertion point of the filter is in the pipeline")
	ErrRoleCollision          = errors.New("private stage name already in use")
	ErrNotLinear              = errors.New("pipeline is not a single chain")
	ErrUnresolvedInput        = errors.New("input stage does not run before the stage needing it")
	ErrNotSource              = errors.New("entry plugin cannot start from a document")
)

// ConfigError reports a pipeline that cannot be assembled from the registry and the request.
// Subject names the stage or filter at fault.
type ConfigError struct {
	Subject string
	Err     error
}

func (e *ConfigError) Error() string {
	return e.Subject + ": " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func configErr(err error, format string, args ...any) error {
	return &ConfigError{Subject: fmt.Sprintf(format, args...), Err: err}
}

// StageError is returned when a stage or a filter fails while the pipeline runs.
type StageError struct {
	Name  string
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return e.Name + "[" + e.Stage + "]: " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}
