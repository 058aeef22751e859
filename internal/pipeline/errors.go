package pipeline

import (
	"errors"
	"fmt"

	"energy_harmonizer/internal/model"
)

var ErrNoConsumption = errors.New("no consumption tables given")

// StageError tags a fatal error with the stage and table it came from.
type StageError struct {
	Stage Stage
	Table string
	Err   error
}

func (e *StageError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("stage %s: table %q: %v", e.Stage, e.Table, e.Err)
	}
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageError(stage Stage, err error) error {
	return &StageError{Stage: stage, Table: tableOf(err), Err: err}
}

func tableOf(err error) string {
	var se *model.SchemaError
	if errors.As(err, &se) {
		return se.Table
	}
	var mce *model.MissingColumnError
	if errors.As(err, &mce) {
		return mce.Table
	}
	var die *model.DataIntegrityError
	if errors.As(err, &die) {
		return die.Table
	}
	return ""
}
