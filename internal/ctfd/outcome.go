package ctfd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Outcome classifies the result of a call to the CTF server.
type Outcome int

const (
	Success Outcome = iota
	// ValidationFailure covers a rejected nonce or payload, local validation
	// errors and replies that do not match the expected shape.
	ValidationFailure
	// NotFound means the addressed challenge or resource is gone.
	NotFound
	// NetworkFailure covers transport errors, timeouts and server errors.
	NetworkFailure
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case ValidationFailure:
		return "validation_failure"
	case NotFound:
		return "not_found"
	case NetworkFailure:
		return "network_failure"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// OutcomeError is returned for every unsuccessful call.
type OutcomeError struct {
	Op      string
	Outcome Outcome
	Status  int
	Message string
	Err     error
}

func (e *OutcomeError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("ctfd %s: %s (HTTP %d): %s", e.Op, e.Outcome, e.Status, msg)
	}
	return fmt.Sprintf("ctfd %s: %s: %s", e.Op, e.Outcome, msg)
}

func (e *OutcomeError) Unwrap() error { return e.Err }

// OutcomeOf classifies any error returned by the client.
func OutcomeOf(err error) Outcome {
	if err == nil {
		return Success
	}
	var oe *OutcomeError
	if errors.As(err, &oe) {
		return oe.Outcome
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NetworkFailure
	}
	return ValidationFailure
}

func outcomeForStatus(status int) Outcome {
	switch {
	case status >= 200 && status < 300:
		return Success
	case status == http.StatusNotFound:
		return NotFound
	case status >= 500:
		return NetworkFailure
	default:
		// 3xx (login redirect), 400, 403 (bad nonce) and friends
		return ValidationFailure
	}
}

func validationError(op, msg string, err error) *OutcomeError {
	return &OutcomeError{Op: op, Outcome: ValidationFailure, Message: msg, Err: err}
}
