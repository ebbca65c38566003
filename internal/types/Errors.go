/*

This file contains the error taxonomy shared by every engine component.

Each endpoint failure is one of five registered errors wrapped with a single human-readable
reason, e.g. "Bad payment tokens: invalid argument". Any failure aborts the whole endpoint.

*/

package types

import (
	"errors"
	"fmt"

	errorsmod "cosmossdk.io/errors"
)

// Codespace is the error codespace of the engine.
const Codespace = "autofarm"

var (
	// ErrInvalidArgument covers fungibility, token identifier, empty payment and underflow failures.
	ErrInvalidArgument = errorsmod.Register(Codespace, 2, "invalid argument")
	// ErrInvalidState covers unknown farms or metastaking contracts and missing inventory entries.
	ErrInvalidState = errorsmod.Register(Codespace, 3, "invalid state")
	// ErrSlippageExceeded is returned when a per-step or final minimum is not met.
	ErrSlippageExceeded = errorsmod.Register(Codespace, 4, "slippage exceeded")
	// ErrUnauthorized is returned to callers lacking the administrator or proxy role.
	ErrUnauthorized = errorsmod.Register(Codespace, 5, "unauthorized")
	// ErrExternalFailure marks a revert of an external contract.
	ErrExternalFailure = errorsmod.Register(Codespace, 6, "external contract failure")
)

// ExternalError carries an external contract revert. Its message is the revert reason.
type ExternalError struct {
	Contract string
	Err      error
}

func (e *ExternalError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Contract, ErrExternalFailure.Error())
	}
	return e.Err.Error()
}

// Unwrap exposes the collaborator's own error.
func (e *ExternalError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match ErrExternalFailure.
func (e *ExternalError) Is(target error) bool {
	return target == ErrExternalFailure
}

// ExternalFailure wraps an error returned by an external contract client. Errors that are
// already engine errors are returned unchanged.
func ExternalFailure(contract string, err error) error {
	if err == nil {
		return nil
	}
	var ext *ExternalError
	if errors.As(err, &ext) {
		return err
	}
	return &ExternalError{Contract: contract, Err: err}
}
