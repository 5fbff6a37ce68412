package model

import "fmt"

// Status is the closed set of appointment lifecycle states. The wire
// representation is the literal lowercase string.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusCanceled  Status = "canceled"
	StatusCompleted Status = "completed"
)

func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusPending, StatusApproved, StatusCanceled, StatusCompleted:
		return Status(raw), nil
	}
	return "", fmt.Errorf("unknown appointment status %q", raw)
}

// Active reports whether the appointment counts toward overlap checks.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusApproved
}

// Terminal reports whether the state has no outgoing transitions.
func (s Status) Terminal() bool {
	return s == StatusCanceled || s == StatusCompleted
}
