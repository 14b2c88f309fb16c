package models

// ConflictKind classifies the outcome of checking a candidate interval
// against existing commitments.
type ConflictKind string

const (
	ConflictNone      ConflictKind = "FREE"
	ConflictRecurring ConflictKind = "RECURRING_CONFLICT"
	ConflictPunctual  ConflictKind = "PUNCTUAL_CONFLICT"
)

// Classification is the result of a conflict check. Exactly one of Recurring
// and Punctual is set when Kind is not ConflictNone.
type Classification struct {
	Kind      ConflictKind         `json:"kind"`
	Recurring *RecurringCommitment `json:"recurring,omitempty"`
	Punctual  *PunctualReservation `json:"punctual,omitempty"`
}

// Free reports whether no conflict was found.
func (c Classification) Free() bool {
	return c.Kind == ConflictNone
}

// ConflictError is returned when a candidate commitment collides with an
// existing one. It is a recoverable, user-facing outcome.
type ConflictError struct {
	Kind      ConflictKind         `json:"kind"`
	Message   string               `json:"message"`
	Recurring *RecurringCommitment `json:"recurring,omitempty"`
	Punctual  *PunctualReservation `json:"punctual,omitempty"`
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
