package flag

import "fmt"

// Result is the outcome of a flag-add action.
type Result string

const (
	// Added means the record joined the flagged set.
	Added Result = "added"
	// AlreadyFlagged means a record with identical field values was already flagged.
	AlreadyFlagged Result = "already_flagged"
)

// Message returns the user-facing notice for the outcome.
func (r Result) Message() string {
	switch r {
	case Added:
		return "Image flagged!"
	case AlreadyFlagged:
		return "Image already flagged."
	default:
		return fmt.Sprintf("unknown flag result %q", string(r))
	}
}
