package txn

import (
	"errors"
	"fmt"

	"playerstore/pkg/player"
)

// Kind classifies the result of executing one batch entry
type Kind int

const (
	Success Kind = iota
	NoRowsAffected
	MultipleRowsAffected
	ExecutionError
	UnknownOperation
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case NoRowsAffected:
		return "no_rows_affected"
	case MultipleRowsAffected:
		return "multiple_rows_affected"
	case ExecutionError:
		return "execution_error"
	case UnknownOperation:
		return "unknown_operation"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

var (
	ErrNoRowsAffected       = errors.New("no rows affected")
	ErrMultipleRowsAffected = errors.New("multiple rows affected")
)

// Outcome is what happened to a single entry
type Outcome struct {
	Kind      Kind
	PlayerID  int64
	Operation player.Operation
	Affected  int64
	Err       error
}

// Classify maps an execution result to an outcome kind.
// Exactly one affected row is the only success.
func Classify(affected int64, err error) Kind {
	switch {
	case err != nil:
		return ExecutionError
	case affected == 1:
		return Success
	case affected == 0:
		return NoRowsAffected
	default:
		return MultipleRowsAffected
	}
}

// Cause describes a failed outcome for callers
func (o Outcome) Cause() string {
	switch o.Kind {
	case NoRowsAffected:
		return fmt.Sprintf("no player data with %d was affected", o.PlayerID)
	case MultipleRowsAffected:
		return fmt.Sprintf("%d rows of player data with %d were affected", o.Affected, o.PlayerID)
	case Success:
		return ""
	}
	if o.Err != nil {
		return o.Err.Error()
	}
	return o.Kind.String()
}

// AbortError is returned when a batch was rolled back because of one entry
type AbortError struct {
	Outcome Outcome
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("Failed to modify player with ID: %d with cause: %s", e.Outcome.PlayerID, e.Outcome.Cause())
}

func (e *AbortError) Unwrap() error {
	return e.Outcome.Err
}
