package emailerror

// ErrorType says who is at fault for a failed delivery
type ErrorType string

const (
	// ErrorTypeRecipient means the address itself was refused. Sending the
	// same message again will fail the same way.
	ErrorTypeRecipient ErrorType = "recipient"

	// ErrorTypeProvider means the relay was unreachable, throttled or
	// misconfigured
	ErrorTypeProvider ErrorType = "provider"

	// ErrorTypeUnknown is treated like a provider error
	ErrorTypeUnknown ErrorType = "unknown"
)

// ClassifiedError wraps a delivery error with its classification
type ClassifiedError struct {
	Original  error
	Type      ErrorType
	SMTPCode  int
	Retryable bool
}

func (e *ClassifiedError) Error() string {
	if e.Original == nil {
		return ""
	}
	return e.Original.Error()
}

// Unwrap returns the underlying error for errors.Is/As compatibility
func (e *ClassifiedError) Unwrap() error {
	return e.Original
}

// IsRecipientError reports a permanent rejection of the address
func (e *ClassifiedError) IsRecipientError() bool {
	return e.Type == ErrorTypeRecipient
}
