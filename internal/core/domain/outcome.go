package domain

import "fmt"

// OutcomeStatus tags a CallOutcome.
type OutcomeStatus int

const (
	OutcomeSuccess OutcomeStatus = iota
	OutcomeNotFound
	OutcomeExhausted
)

func (s OutcomeStatus) String() string {
	switch s {
	case OutcomeSuccess:
		return "success"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("outcome(%d)", int(s))
	}
}

// CallOutcome is the result of running an upstream call to completion.
// Body is only set for OutcomeSuccess. Err carries the last failure seen
// when the call was exhausted.
type CallOutcome struct {
	Kind     ResourceKind
	Status   OutcomeStatus
	Body     []byte
	Attempts int
	Err      error
}

// Success reports whether the upstream returned a usable body.
func (o CallOutcome) Success() bool {
	return o.Status == OutcomeSuccess
}
