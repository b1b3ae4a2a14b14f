package utils

import (
	"context"
	"errors"
	"fmt"
	"net"

	walleterrors "decred.org/dcrwallet/v2/errors"
	"github.com/asdine/storm"
)

const (
	// Error Codes
	ErrNotFound          = "not_found"
	ErrUnauthorized      = "unauthorized"
	ErrMalformed         = "malformed"
	ErrNotRegistered     = "not_registered"
	ErrAlreadyVoted      = "already_voted"
	ErrEligibilityCheck  = "eligibility_check_failed"
	ErrInsufficientFunds = "insufficient_funds"
	ErrLedgerTimeout     = "ledger_timeout"
	ErrLedgerRejected    = "ledger_rejected"
	ErrNetwork           = "network_error"
	ErrInvalidCandidate  = "invalid_candidate"
	ErrNotEligible       = "not_eligible"
	ErrSubmissionPending = "submission_pending"
	ErrElectionClosed    = "election_closed"
	ErrElectionOpen      = "election_open"
	ErrInvalidState      = "invalid_state"
	ErrListenerExist     = "listener_already_exist"
	ErrInvalidConfig     = "invalid_config"
)

// defaultReasons holds the display text used when an error is created
// without an explicit reason.
var defaultReasons = map[string]string{
	ErrNotFound:          "Election not found",
	ErrUnauthorized:      "Session expired, please log in again",
	ErrMalformed:         "Invalid election data or no candidates found",
	ErrNotRegistered:     "You are not an eligible voter",
	ErrAlreadyVoted:      "You have already voted",
	ErrEligibilityCheck:  "Could not verify voter eligibility",
	ErrInsufficientFunds: "Contract balance too low to vote",
	ErrLedgerTimeout:     "Timed out waiting for the vote to be confirmed",
	ErrLedgerRejected:    "The vote transaction was rejected",
	ErrNetwork:           "Network error, please try again",
	ErrInvalidCandidate:  "Candidate is not on this election's ballot",
	ErrNotEligible:       "Eligibility must be confirmed before voting",
	ErrSubmissionPending: "A vote is already being submitted",
	ErrElectionClosed:    "This election is not open for voting",
	ErrElectionOpen:      "Results cannot be published before the election ends",
	ErrInvalidState:      "This action is not allowed right now",
	ErrListenerExist:     "Listener already exists",
	ErrInvalidConfig:     "Invalid configuration",
}

// Error is the error type surfaced by the voting core. Code is one of the
// Err* constants above and Reason is short text suitable for direct display.
type Error struct {
	Code   string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError returns an *Error for code using the code's default reason.
func NewError(code string, err error) *Error {
	return NewErrorReason(code, defaultReasons[code], err)
}

// NewErrorReason returns an *Error for code with a custom reason.
func NewErrorReason(code, reason string, err error) *Error {
	if reason == "" {
		reason = code
	}
	return &Error{Code: code, Reason: reason, Err: err}
}

// ErrorCode returns the code of the first *Error in err's chain, or an
// empty string.
func ErrorCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code string) bool {
	return err != nil && ErrorCode(err) == code
}

// ErrorReason returns display text for err. Errors that did not originate
// in the voting core are reported as they are.
func ErrorReason(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return err.Error()
}

// IsRetryable reports whether a voting attempt that failed with err may be
// retried after a fresh eligibility check.
func IsRetryable(err error) bool {
	switch ErrorCode(err) {
	case ErrInsufficientFunds, ErrLedgerRejected, ErrLedgerTimeout, ErrNetwork:
		return true
	}
	return false
}

// TranslateError maps wallet error kinds, storage, context and network
// errors onto the voting error codes. Errors that already carry a code are
// returned unchanged.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	if ErrorCode(err) != "" {
		return err
	}

	var netErr net.Error
	switch {
	case err == storm.ErrNotFound, walleterrors.Is(err, walleterrors.NotExist):
		return NewError(ErrNotFound, err)
	case walleterrors.Is(err, walleterrors.Permission):
		return NewError(ErrUnauthorized, err)
	case walleterrors.Is(err, walleterrors.Encoding), walleterrors.Is(err, walleterrors.Invalid):
		return NewError(ErrMalformed, err)
	case walleterrors.Is(err, walleterrors.InsufficientBalance):
		return NewError(ErrInsufficientFunds, err)
	case walleterrors.Is(err, walleterrors.IO),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.As(err, &netErr):
		return NewError(ErrNetwork, err)
	}
	return err
}
