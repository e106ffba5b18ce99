package player

import "fmt"

// Record represents one row of the player table
type Record struct {
	ID     int64  `json:"id" db:"id"`
	Name   string `json:"name" db:"name"`
	Region string `json:"region" db:"region"`
	Server string `json:"server" db:"server"`
}

// Operation is the write action requested for a batch entry
type Operation string

const (
	OpAdd    Operation = "ADD"
	OpModify Operation = "MODIFY"
	OpDelete Operation = "DELETE"
)

// ParseOperation returns the operation named by s.
// Tags are matched exactly; "add" is not a valid tag.
func ParseOperation(s string) (Operation, error) {
	switch op := Operation(s); op {
	case OpAdd, OpModify, OpDelete:
		return op, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownOperation, s)
	}
}

// Valid reports whether op is one of the known tags
func (op Operation) Valid() bool {
	_, err := ParseOperation(string(op))
	return err == nil
}

// Entry is a Record plus the operation to apply to it.
// The record fields are promoted, so the JSON form is flat.
type Entry struct {
	Record
	Operation Operation `json:"operation"`
}
