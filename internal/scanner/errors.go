package scanner

import (
	"errors"
	"fmt"
)

var (
	ErrLockHeld = errors.New("scanner lock is held by another instance")
	ErrLockLost = errors.New("scanner lock was lost")
)

// Stage names the step of range processing that failed.
type Stage string

const (
	StageFetch      Stage = "fetch"
	StageStore      Stage = "store"
	StageCheckpoint Stage = "checkpoint"
)

// RangeError reports a failure while processing one block range.
type RangeError struct {
	Range BlockRange
	Stage Stage
	Err   error
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s blocks %s: %v", e.Stage, e.Range, e.Err)
}

func (e *RangeError) Unwrap() error {
	return e.Err
}

func isFetchError(err error) bool {
	var rangeErr *RangeError
	return errors.As(err, &rangeErr) && rangeErr.Stage == StageFetch
}
