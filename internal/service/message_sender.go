package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/localboost/localboost/internal/domain"
	"github.com/localboost/localboost/pkg/emailerror"
	"github.com/localboost/localboost/pkg/logger"
	"github.com/localboost/localboost/pkg/mailer"
	"github.com/localboost/localboost/pkg/metrics"
	"github.com/localboost/localboost/pkg/sms"
	"github.com/localboost/localboost/pkg/tracing"
)

const defaultSendTimeout = 30 * time.Second

// MessageSender delivers email through the mailer and text messages through
// the SMS provider. Every call is time-boxed and never returns a Go error.
type MessageSender struct {
	mailer  mailer.Mailer
	sms     sms.Sender
	timeout time.Duration
	logger  logger.Logger
}

func NewMessageSender(m mailer.Mailer, smsSender sms.Sender, timeout time.Duration, logger logger.Logger) *MessageSender {
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	return &MessageSender{
		mailer:  m,
		sms:     smsSender,
		timeout: timeout,
		logger:  logger,
	}
}

func (s *MessageSender) SendEmail(ctx context.Context, to, subject, html string) domain.SendResult {
	ctx, span := tracing.StartServiceSpan(ctx, "MessageSender", "SendEmail")
	defer span.End()

	if strings.TrimSpace(to) == "" {
		return s.failure(ctx, domain.ChannelEmail, to, errors.New("recipient email is empty"))
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	id, err := s.mailer.Send(sendCtx, to, subject, html)
	if err != nil {
		return s.failure(ctx, domain.ChannelEmail, to, err)
	}

	metrics.RecordSend(ctx, string(domain.ChannelEmail), true)
	return domain.SendResult{Success: true, ProviderID: id}
}

func (s *MessageSender) SendSMS(ctx context.Context, to, body string) domain.SendResult {
	ctx, span := tracing.StartServiceSpan(ctx, "MessageSender", "SendSMS")
	defer span.End()

	if s.sms == nil {
		return s.failure(ctx, domain.ChannelSMS, to, errors.New("sms provider is not configured"))
	}
	if strings.TrimSpace(to) == "" {
		return s.failure(ctx, domain.ChannelSMS, to, errors.New("recipient phone is empty"))
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	id, err := s.sms.Send(sendCtx, to, body)
	if err != nil {
		return s.failure(ctx, domain.ChannelSMS, to, err)
	}

	metrics.RecordSend(ctx, string(domain.ChannelSMS), true)
	return domain.SendResult{Success: true, ProviderID: id}
}

func (s *MessageSender) failure(ctx context.Context, channel domain.Channel, to string, err error) domain.SendResult {
	tracing.MarkSpanError(ctx, err)
	metrics.RecordSend(ctx, string(channel), false)

	permanent := isPermanent(channel, err)
	s.logger.WithFields(map[string]interface{}{
		"channel":   channel,
		"to":        to,
		"permanent": permanent,
		"error":     err.Error(),
	}).Warn("Message delivery failed")
	return domain.SendResult{Success: false, Error: err.Error(), Permanent: permanent}
}

// isPermanent reports whether the provider refused the address itself
func isPermanent(channel domain.Channel, err error) bool {
	if channel == domain.ChannelSMS {
		var apiErr *sms.APIError
		return errors.As(err, &apiErr) && apiErr.Permanent()
	}
	return emailerror.IsPermanentRecipientError(err)
}
