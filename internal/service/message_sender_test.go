package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"github.com/localboost/localboost/pkg/logger"
	pkgmocks "github.com/localboost/localboost/pkg/mocks"
	"github.com/localboost/localboost/pkg/sms"
)

func TestMessageSender_SendEmail(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := pkgmocks.NewMockMailer(ctrl)
	sender := NewMessageSender(m, nil, time.Second, logger.NewTestLogger(t))

	t.Run("success returns the provider id", func(t *testing.T) {
		m.EXPECT().Send(gomock.Any(), "ana@example.com", "Hello", "<p>Hi</p>").Return("<id@smtp>", nil)

		result := sender.SendEmail(context.Background(), "ana@example.com", "Hello", "<p>Hi</p>")
		assert.True(t, result.Success)
		assert.Equal(t, "<id@smtp>", result.ProviderID)
	})

	t.Run("provider failure is a result, not an error", func(t *testing.T) {
		m.EXPECT().Send(gomock.Any(), "ana@example.com", gomock.Any(), gomock.Any()).Return("", errors.New("550 mailbox unavailable"))

		result := sender.SendEmail(context.Background(), "ana@example.com", "Hello", "<p>Hi</p>")
		assert.False(t, result.Success)
		assert.Contains(t, result.Error, "550")
		assert.True(t, result.Permanent)
	})

	t.Run("transient failure is not permanent", func(t *testing.T) {
		m.EXPECT().Send(gomock.Any(), "ana@example.com", gomock.Any(), gomock.Any()).Return("", errors.New("421 service not available"))

		result := sender.SendEmail(context.Background(), "ana@example.com", "Hello", "<p>Hi</p>")
		assert.False(t, result.Success)
		assert.False(t, result.Permanent)
	})

	t.Run("empty address never reaches the provider", func(t *testing.T) {
		result := sender.SendEmail(context.Background(), " ", "Hello", "<p>Hi</p>")
		assert.False(t, result.Success)
	})

	t.Run("send is time-boxed", func(t *testing.T) {
		m.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, to, subject, html string) (string, error) {
				deadline, ok := ctx.Deadline()
				assert.True(t, ok)
				assert.WithinDuration(t, time.Now().Add(time.Second), deadline, time.Second)
				return "id", nil
			})

		assert.True(t, sender.SendEmail(context.Background(), "ana@example.com", "s", "b").Success)
	})
}

func TestMessageSender_SendSMS(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	smsSender := pkgmocks.NewMockSender(ctrl)
	sender := NewMessageSender(pkgmocks.NewMockMailer(ctrl), smsSender, 0, logger.NewTestLogger(t))

	smsSender.EXPECT().Send(gomock.Any(), "+15551234567", "Doors open at 6").Return("SM1", nil)
	result := sender.SendSMS(context.Background(), "+15551234567", "Doors open at 6")
	assert.True(t, result.Success)
	assert.Equal(t, "SM1", result.ProviderID)

	smsSender.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Return("", &sms.APIError{StatusCode: 400, Code: 21211, Message: "invalid To"})
	result = sender.SendSMS(context.Background(), "+1", "x")
	assert.False(t, result.Success)
	assert.True(t, result.Permanent)

	smsSender.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Return("", fmt.Errorf("failed to send sms: %w", &sms.APIError{StatusCode: 503, Code: 20500}))
	result = sender.SendSMS(context.Background(), "+15551234567", "x")
	assert.False(t, result.Success)
	assert.False(t, result.Permanent)

	unconfigured := NewMessageSender(pkgmocks.NewMockMailer(ctrl), nil, 0, logger.NewTestLogger(t))
	result = unconfigured.SendSMS(context.Background(), "+15551234567", "x")
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "not configured")
}
