// Package sms sends text messages through the Twilio REST API.
package sms

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/localboost/localboost/pkg/tracing"
)

//go:generate mockgen -destination=../mocks/mock_sms.go -package=pkgmocks github.com/localboost/localboost/pkg/sms Sender

const defaultBaseURL = "https://api.twilio.com"

// Sender sends a single SMS and returns the provider message id
type Sender interface {
	Send(ctx context.Context, to, body string) (string, error)
}

// Config holds Twilio credentials
type Config struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	BaseURL    string
	Timeout    time.Duration
}

// APIError is returned when Twilio rejects a request
type APIError struct {
	StatusCode int
	Code       int    `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("twilio error %d (status %d): %s", e.Code, e.StatusCode, e.Message)
}

// Retryable reports whether the request may succeed when sent again
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// recipientErrorCodes are Twilio codes that reject the destination number
var recipientErrorCodes = map[int]bool{
	21211: true, // invalid To number
	21610: true, // recipient replied STOP
	21612: true, // cannot route to this number
	21614: true, // not a mobile number
	30004: true, // message blocked
	30005: true, // unknown destination handset
	30006: true, // landline or unreachable carrier
}

// Permanent reports whether the destination number will never accept messages
func (e *APIError) Permanent() bool {
	return recipientErrorCodes[e.Code]
}

type messageResponse struct {
	SID          string  `json:"sid"`
	Status       string  `json:"status"`
	ErrorCode    *int    `json:"error_code"`
	ErrorMessage *string `json:"error_message"`
}

// TwilioClient implements Sender
type TwilioClient struct {
	httpClient *resty.Client
	config     Config
}

// NewTwilioClient creates a client with timeout and retry on 429/5xx
func NewTwilioClient(cfg Config) *TwilioClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	client := resty.NewWithClient(tracing.WrapHTTPClient(&http.Client{Timeout: cfg.Timeout})).
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetBasicAuth(cfg.AccountSID, cfg.AuthToken).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil || r == nil {
				return false
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		})

	return &TwilioClient{
		httpClient: client,
		config:     cfg,
	}
}

// Send posts one message. The returned string is the Twilio message sid.
func (c *TwilioClient) Send(ctx context.Context, to, body string) (string, error) {
	if to == "" {
		return "", fmt.Errorf("recipient phone number is required")
	}

	var result messageResponse
	var apiErr APIError

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"To":   to,
			"From": c.config.FromNumber,
			"Body": body,
		}).
		SetResult(&result).
		SetError(&apiErr).
		Post(fmt.Sprintf("/2010-04-01/Accounts/%s/Messages.json", c.config.AccountSID))
	if err != nil {
		return "", fmt.Errorf("failed to send sms: %w", err)
	}

	if resp.IsError() {
		apiErr.StatusCode = resp.StatusCode()
		if apiErr.Message == "" {
			apiErr.Message = resp.String()
		}
		return "", &apiErr
	}

	if result.ErrorCode != nil {
		msg := ""
		if result.ErrorMessage != nil {
			msg = *result.ErrorMessage
		}
		return "", &APIError{StatusCode: resp.StatusCode(), Code: *result.ErrorCode, Message: msg}
	}

	return result.SID, nil
}

// ConsoleSender prints messages instead of sending them
type ConsoleSender struct{}

// Send prints the message to stdout
func (ConsoleSender) Send(_ context.Context, to, body string) (string, error) {
	fmt.Printf("SMS to %s: %s\n", to, body)
	return fmt.Sprintf("console-%d", time.Now().UnixNano()), nil
}
