package worksheet

import (
	"errors"
	"fmt"
)

var (
	// ErrBatchInterrupted is matched by every *BatchInterruptedError.
	ErrBatchInterrupted = errors.New("batch update interrupted")
	// ErrCellUpdate is matched by every *CellUpdateError.
	ErrCellUpdate = errors.New("cell update failed")
)

// BatchInterruptedError means the server aborted a batch part way through.
// None of the batch's cells are considered saved.
type BatchInterruptedError struct {
	Reason string
}

func (e *BatchInterruptedError) Error() string {
	return fmt.Sprintf("update has failed: %s", e.Reason)
}

func (e *BatchInterruptedError) Is(target error) bool {
	return target == ErrBatchInterrupted
}

// CellUpdateError reports a failed sub-operation of a batch update.
type CellUpdateError struct {
	CellID string
	Code   int
	Reason string
}

func (e *CellUpdateError) Error() string {
	return fmt.Sprintf("updating cell %s has failed: %d %s", e.CellID, e.Code, e.Reason)
}

func (e *CellUpdateError) Is(target error) bool {
	return target == ErrCellUpdate
}
