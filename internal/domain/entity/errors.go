package entity

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound means the source has no data for the key
	ErrNotFound = errors.New("not found")
	// ErrStaleResult means a resolution completed after its input was superseded
	ErrStaleResult = errors.New("stale result")
	// ErrAuthorizationRequired means a mutation was attempted without an identity
	ErrAuthorizationRequired = errors.New("authorization required")
	// ErrImmutableTarget means a mutation was attempted on an official tag
	ErrImmutableTarget = errors.New("tag is immutable")
	// ErrTagNotFound means the tag id does not exist on the record
	ErrTagNotFound = errors.New("tag not found")
	// ErrDuplicateTag means a tag with the same text already exists
	ErrDuplicateTag = errors.New("tag already exists")
	// ErrInvalidInput means the request failed validation
	ErrInvalidInput = errors.New("invalid input")
	// ErrLedgerRejected means a ledger transaction ended in a non-success status
	ErrLedgerRejected = errors.New("ledger transaction did not succeed")
	// ErrAddressImmutable means an update tried to change a record's address
	ErrAddressImmutable = errors.New("address cannot change")
)

// TransportError means a source was unreachable or answered with a non-success status
type TransportError struct {
	Source     string
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Source, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Source, e.Message)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// PartialFailure means a multi-step external mutation failed after an earlier step took effect.
// Local state is left at its pre-mutation snapshot.
type PartialFailure struct {
	Step string
	Err  error
}

func (e *PartialFailure) Error() string {
	return fmt.Sprintf("partial failure at %s: %v", e.Step, e.Err)
}

func (e *PartialFailure) Unwrap() error {
	return e.Err
}

// SourceFailure names a source that failed while others answered
type SourceFailure struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}

// PartialResultError accompanies a usable result when some of the queried sources failed
type PartialResultError struct {
	Failures []SourceFailure
}

func (e *PartialResultError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Source+": "+f.Message)
	}
	return fmt.Sprintf("%d sources failed: %s", len(e.Failures), strings.Join(parts, "; "))
}
