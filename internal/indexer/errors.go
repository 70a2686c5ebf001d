package indexer

import (
	"errors"
	"fmt"
)

// Stage names the step of the pipeline that failed.
type Stage string

const (
	StageDecode   Stage = "decode"
	StageBuild    Stage = "build"
	StageResolve  Stage = "resolve"
	StageDispatch Stage = "dispatch"
	// StageInternal marks a panic recovered outside the sender call.
	StageInternal Stage = "internal"
)

// ErrInvalidTimestamp is returned when an index cannot be resolved for a timestamp.
var ErrInvalidTimestamp = errors.New("timestamp must be positive")

// StageError reports which stage dropped an event.
type StageError struct {
	Stage Stage
	Topic string
	Index string
	Err   error
}

func (e *StageError) Error() string {
	if e.Index != "" {
		return fmt.Sprintf("%s failed for topic %q (index %s): %v", e.Stage, e.Topic, e.Index, e.Err)
	}
	return fmt.Sprintf("%s failed for topic %q: %v", e.Stage, e.Topic, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// StageOf returns the stage of a StageError in err's chain, or "" if there is none.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
