// Package errors defines the rebalance engine's error taxonomy (spec §7):
// configuration errors are fatal at startup; transient adapter errors and
// slippage violations cause fallback to the next bridge preference;
// submission errors are always either "no row written" or terminal
// FAILED; store errors are retried at the next tick.
package errors

import (
	"errors"
	"fmt"

	multierror "github.com/hashicorp/go-multierror"
)

// ConfigError represents a fatal misconfiguration discovered at startup
// (unknown bridge name in a route preference, route referencing an
// unknown asset, missing RPC providers, ...). Callers should collect all
// configuration problems and return one aggregated ConfigError rather than
// failing on the first.
type ConfigError struct {
	errs *multierror.Error
}

// NewConfigErrors aggregates zero or more configuration problems into one
// ConfigError. Returns nil if problems is empty.
func NewConfigErrors(problems ...error) error {
	var merr *multierror.Error
	for _, p := range problems {
		if p != nil {
			merr = multierror.Append(merr, p)
		}
	}
	if merr == nil {
		return nil
	}
	return &ConfigError{errs: merr}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.errs.Error())
}

func (e *ConfigError) Unwrap() error {
	return e.errs.ErrorOrNil()
}

// TransientAdapterError wraps a recoverable bridge adapter failure (HTTP
// error, timeout, "amount too low"). Recovery: try the next preference; if
// all are exhausted, skip the route this tick.
type TransientAdapterError struct {
	Bridge string
	Method string
	Err    error
}

func (e *TransientAdapterError) Error() string {
	return fmt.Sprintf("transient adapter error: bridge=%s method=%s: %v", e.Bridge, e.Method, e.Err)
}

func (e *TransientAdapterError) Unwrap() error { return e.Err }

// NewTransientAdapterError constructs a TransientAdapterError.
func NewTransientAdapterError(bridge, method string, err error) error {
	return &TransientAdapterError{Bridge: bridge, Method: method, Err: err}
}

// SlippageError indicates a bridge quote failed to meet the route's
// slippage tolerance. Same recovery as TransientAdapterError.
type SlippageError struct {
	Bridge        string
	Received      string
	MinAcceptable string
}

func (e *SlippageError) Error() string {
	return fmt.Sprintf("slippage violation: bridge=%s received=%s min_acceptable=%s",
		e.Bridge, e.Received, e.MinAcceptable)
}

// SubmissionError indicates ChainService reported a non-success receipt.
// The associated operation is either not yet written, or has been marked
// FAILED (terminal) — never left ambiguous.
type SubmissionError struct {
	ChainID int64
	TxHash  string
	Err     error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission error: chain=%d tx=%s: %v", e.ChainID, e.TxHash, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// StoreError wraps a durable-storage failure. Treated as fatal to the
// current tick; the caller logs and the next tick retries. Never swallow.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error: op=%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError constructs a StoreError.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// NotFoundError indicates a requested entity does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// NewNotFoundError constructs a NotFoundError.
func NewNotFoundError(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// PreconditionError is a user-visible 4xx-class error for admin
// cancellation requests that violate a lifecycle precondition (spec §7:
// "Orphan/earmark admin errors... never 5xx for precondition failures").
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return e.Reason
}

// NewPreconditionError constructs a PreconditionError.
func NewPreconditionError(reason string) error {
	return &PreconditionError{Reason: reason}
}

// IsPrecondition reports whether err is (or wraps) a PreconditionError.
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}
