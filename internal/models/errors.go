package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation error")
	ErrInvalidState     = errors.New("invalid state for transition")
	ErrPermissionDenied = errors.New("actor not authorized for transition")
	ErrDeleted          = errors.New("job deleted on ledger")
)

// ErrorKind classifies every failure an action can surface past the core
// boundary. The kind decides whether the caller should refresh, retry, or
// give up, so it must survive wrapping.
type ErrorKind string

const (
	KindInvalidState      ErrorKind = "invalid_state"
	KindPermissionDenied  ErrorKind = "permission_denied"
	KindLostClaimRace     ErrorKind = "lost_claim_race"
	KindStaleConflict     ErrorKind = "stale_conflict"
	KindTransactionFailed ErrorKind = "transaction_failed"
	KindTimeout           ErrorKind = "timeout"
	KindDeleted           ErrorKind = "deleted"
)

// ActionError carries enough structure (kind, job id, actor) for a caller
// to render a specific message without parsing error text.
type ActionError struct {
	Kind  ErrorKind
	Op    string
	JobID string
	Actor string
	Err   error
}

func (e *ActionError) Error() string {
	msg := fmt.Sprintf("%s job %s as %s: %s", e.Op, e.JobID, e.Actor, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// NewActionError builds a classified action failure.
func NewActionError(kind ErrorKind, op, jobID, actor string, err error) *ActionError {
	return &ActionError{Kind: kind, Op: op, JobID: jobID, Actor: actor, Err: err}
}

// KindOf extracts the classification from an error chain.
func KindOf(err error) (ErrorKind, bool) {
	var ae *ActionError
	if errors.As(err, &ae) {
		return ae.Kind, true
	}
	return "", false
}
