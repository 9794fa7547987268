package domain

import "context"

//go:generate mockgen -destination mocks/mock_message_sender.go -package mocks github.com/localboost/localboost/internal/domain MessageSender

// SendResult is the outcome of one delivery. Ordinary delivery failures are
// reported here with Success=false rather than as Go errors. Permanent is set
// when the provider refused the address itself.
type SendResult struct {
	Success    bool   `json:"success"`
	ProviderID string `json:"provider_id,omitempty"`
	Error      string `json:"error,omitempty"`
	Permanent  bool   `json:"permanent,omitempty"`
}

// MessageSender delivers one message through a provider
type MessageSender interface {
	SendEmail(ctx context.Context, to, subject, html string) SendResult
	SendSMS(ctx context.Context, to, body string) SendResult
}
