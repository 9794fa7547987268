package broadcast

import (
	"errors"
	"fmt"
)

// ErrorCode represents specific error conditions in the broadcast system
type ErrorCode string

const (
	// Content related errors
	ErrCodeContentInvalid ErrorCode = "CONTENT_INVALID"
	ErrCodeRenderFailed   ErrorCode = "RENDER_FAILED"

	// Audience related errors
	ErrCodeAudienceResolve ErrorCode = "AUDIENCE_RESOLVE_FAILED"

	// Broadcast related errors
	ErrCodeBroadcastNotFound ErrorCode = "BROADCAST_NOT_FOUND"
	ErrCodeBroadcastInvalid  ErrorCode = "BROADCAST_INVALID"
	ErrCodeStateConflict     ErrorCode = "STATE_CONFLICT"

	// Sending related errors
	ErrCodeSendFailed    ErrorCode = "SEND_FAILED"
	ErrCodeLedgerFailed  ErrorCode = "LEDGER_WRITE_FAILED"
	ErrCodeWinnerMissing ErrorCode = "WINNER_MISSING"
)

// BroadcastError represents an error in the broadcast system with context
type BroadcastError struct {
	Code        ErrorCode
	Message     string
	BroadcastID string
	Retryable   bool
	Err         error
}

// Error implements the error interface
func (e *BroadcastError) Error() string {
	if e.Err != nil {
		if e.BroadcastID != "" {
			return fmt.Sprintf("[%s] %s (broadcast: %s): %v", e.Code, e.Message, e.BroadcastID, e.Err)
		}
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	if e.BroadcastID != "" {
		return fmt.Sprintf("[%s] %s (broadcast: %s)", e.Code, e.Message, e.BroadcastID)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *BroadcastError) Unwrap() error {
	return e.Err
}

// NewBroadcastError creates a new broadcast error
func NewBroadcastError(code ErrorCode, message string, retryable bool, err error) *BroadcastError {
	return &BroadcastError{
		Code:      code,
		Message:   message,
		Retryable: retryable,
		Err:       err,
	}
}

// NewBroadcastErrorFor creates a new broadcast error bound to a broadcast
func NewBroadcastErrorFor(code ErrorCode, message string, broadcastID string, retryable bool, err error) *BroadcastError {
	return &BroadcastError{
		Code:        code,
		Message:     message,
		BroadcastID: broadcastID,
		Retryable:   retryable,
		Err:         err,
	}
}

// IsRetryable returns whether the error is retryable. A retryable error
// leaves the broadcast in place for the next pass instead of failing it.
func IsRetryable(err error) bool {
	var e *BroadcastError
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// CodeOf returns the code of a BroadcastError, or an empty code
func CodeOf(err error) ErrorCode {
	var e *BroadcastError
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
