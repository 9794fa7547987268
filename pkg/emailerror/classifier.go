package emailerror

import (
	"regexp"
	"strconv"
	"strings"
)

// recipientPatterns mark permanent per-address failures (5xx replies and
// enhanced status codes 5.1.x and 5.2.x)
var recipientPatterns = []string{
	"5.1.1",
	"5.1.2",
	"5.1.3",
	"5.2.1",
	"5.2.2",
	"mailbox unavailable",
	"mailbox not found",
	"user unknown",
	"no such user",
	"recipient rejected",
	"does not exist",
	"mailbox full",
	"over quota",
	"failed to set email recipient",
}

// providerPatterns mark transient or relay-wide failures
var providerPatterns = []string{
	"4.7.1",
	"connection refused",
	"connection reset",
	"timeout",
	"timed out",
	"deadline exceeded",
	"tls handshake",
	"authentication failed",
	"auth failed",
	"service unavailable",
	"try again later",
	"temporary failure",
	"greylist",
}

// replyCodeRegex finds a three digit SMTP reply code standing as its own word
var replyCodeRegex = regexp.MustCompile(`(?:^|\s)([245][0-5]\d)(?:[\s:-]|$)`)

// recipientCodes are reply codes that reject the mailbox itself
var recipientCodes = map[int]bool{
	550: true,
	551: true,
	552: true,
	553: true,
}

// Classify inspects an error returned by the SMTP mailer. A nil error
// classifies as nil.
func Classify(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	errStr := strings.ToLower(err.Error())
	result := &ClassifiedError{
		Original:  err,
		SMTPCode:  extractReplyCode(errStr),
		Type:      ErrorTypeUnknown,
		Retryable: true,
	}

	switch {
	case recipientCodes[result.SMTPCode] || containsAny(errStr, recipientPatterns):
		result.Type = ErrorTypeRecipient
		result.Retryable = false
	case result.SMTPCode >= 400 && result.SMTPCode < 500:
		result.Type = ErrorTypeProvider
	case containsAny(errStr, providerPatterns):
		result.Type = ErrorTypeProvider
	case result.SMTPCode >= 500:
		// 5xx outside the mailbox codes is a policy or syntax problem on our side
		result.Type = ErrorTypeProvider
		result.Retryable = false
	}
	return result
}

// IsPermanentRecipientError is shorthand for Classify(err).IsRecipientError()
func IsPermanentRecipientError(err error) bool {
	c := Classify(err)
	return c != nil && c.IsRecipientError()
}

func extractReplyCode(errStr string) int {
	matches := replyCodeRegex.FindStringSubmatch(errStr)
	if len(matches) < 2 {
		return 0
	}
	code, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0
	}
	return code
}

func containsAny(errStr string, patterns []string) bool {
	for _, pattern := range patterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
