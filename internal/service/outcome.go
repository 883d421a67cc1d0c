package service

// Outcome is the three-way result of driving an operation one step forward.
//
// OutcomeSuccess and OutcomeFailure both mean the delivery is handled and
// must not be retried: the business result is durably recorded either way.
// OutcomeRetry means a transient condition stopped progress and the same
// event should be redelivered later.
type Outcome int

const (
	OutcomeRetry Outcome = iota
	OutcomeSuccess
	OutcomeFailure
)

// Handled reports whether the delivery can be acknowledged.
func (o Outcome) Handled() bool {
	return o != OutcomeRetry
}

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	default:
		return "retry"
	}
}
