package broadcast_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localboost/localboost/internal/domain"
	"github.com/localboost/localboost/internal/domain/mocks"
	"github.com/localboost/localboost/internal/repository/memstore"
	"github.com/localboost/localboost/internal/service/broadcast"
	"github.com/localboost/localboost/pkg/logger"
)

func deliveries(contacts []*domain.Contact, variant domain.Variant, content domain.BroadcastContent) []broadcast.Delivery {
	out := make([]broadcast.Delivery, len(contacts))
	for i, c := range contacts {
		out[i] = broadcast.Delivery{Contact: c, Variant: variant, Content: content}
	}
	return out
}

func TestFanOutSender_Send(t *testing.T) {
	ctx := context.Background()
	b := &domain.Broadcast{ID: "b1", TenantID: "T", Channel: domain.ChannelEmail}

	t.Run("records one ledger row per contact", func(t *testing.T) {
		store := memstore.NewBroadcastStore()
		sender := &recordingSender{failFor: map[string]bool{}}
		contacts := makeContacts("T", 25)
		sender.failFor[contacts[7].Email] = true

		fanout := broadcast.NewFanOutSender(sender, store, &broadcast.Config{MaxParallelism: 4}, logger.NewTestLogger(t))
		report, err := fanout.Send(ctx, b, domain.RecipientPhaseTest,
			deliveries(contacts, domain.VariantA, domain.BroadcastContent{Subject: "Hello {{ contact.name }}", Body: "<p>Hi</p>"}))
		require.NoError(t, err)
		assert.Equal(t, &broadcast.DeliveryReport{Attempted: 25, Sent: 24, Failed: 1}, report)

		recipients := store.Recipients("b1")
		require.Len(t, recipients, 25)
		for _, r := range recipients {
			assert.Equal(t, "T", r.TenantID)
			assert.Equal(t, domain.VariantA, r.Variant)
			assert.Equal(t, domain.RecipientPhaseTest, r.Phase)
			if r.ContactID == contacts[7].ID {
				assert.Equal(t, domain.RecipientStatusFailed, r.Status)
				assert.NotEmpty(t, r.Error)
			} else {
				assert.Equal(t, domain.RecipientStatusSent, r.Status)
				assert.True(t, strings.HasPrefix(r.ProviderID, "msg-"))
			}
		}

		for _, m := range sender.messages() {
			assert.True(t, strings.HasPrefix(m.Subject, "Hello Guest "))
		}
	})

	t.Run("nothing to send", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		fanout := broadcast.NewFanOutSender(mocks.NewMockMessageSender(ctrl), mocks.NewMockBroadcastRepository(ctrl), nil, logger.NewTestLogger(t))
		report, err := fanout.Send(ctx, b, domain.RecipientPhaseFull, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, report.Attempted)
	})

	t.Run("open pixel is added to email bodies", func(t *testing.T) {
		store := memstore.NewBroadcastStore()
		sender := &recordingSender{}
		fanout := broadcast.NewFanOutSender(sender, store, &broadcast.Config{TrackingBaseURL: "https://app.example/"}, logger.NewTestLogger(t))

		_, err := fanout.Send(ctx, b, domain.RecipientPhaseFull,
			deliveries(makeContacts("T", 1), "", domain.BroadcastContent{Subject: "s", Body: "<html><body><p>Menu</p></body></html>"}))
		require.NoError(t, err)

		recipients := store.Recipients("b1")
		require.Len(t, recipients, 1)
		messages := sender.messages()
		require.Len(t, messages, 1)
		assert.Contains(t, messages[0].Body, `src="https://app.example/api/track/open?rid=`+recipients[0].ID+`"`)
		assert.Contains(t, messages[0].Body, "<p>Menu</p>")
	})

	t.Run("sms gets no pixel", func(t *testing.T) {
		sender := &recordingSender{}
		fanout := broadcast.NewFanOutSender(sender, memstore.NewBroadcastStore(), &broadcast.Config{TrackingBaseURL: "https://app.example"}, logger.NewTestLogger(t))
		sms := &domain.Broadcast{ID: "b2", TenantID: "T", Channel: domain.ChannelSMS}

		_, err := fanout.Send(ctx, sms, domain.RecipientPhaseFull,
			deliveries(makeContacts("T", 1), "", domain.BroadcastContent{Body: "Table for {{ contact.first_name }}?"}))
		require.NoError(t, err)

		messages := sender.messages()
		require.Len(t, messages, 1)
		assert.Equal(t, "+15550000000", messages[0].To)
		assert.Equal(t, "Table for Guest?", messages[0].Body)
	})

	t.Run("render failure counts as failed", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		store := memstore.NewBroadcastStore()
		fanout := broadcast.NewFanOutSender(mocks.NewMockMessageSender(ctrl), store, nil, logger.NewTestLogger(t))
		report, err := fanout.Send(ctx, b, domain.RecipientPhaseFull,
			deliveries(makeContacts("T", 2), "", domain.BroadcastContent{Subject: "s", Body: "{% if contact.name %}unclosed"}))
		require.NoError(t, err)
		assert.Equal(t, 2, report.Failed)
		assert.Equal(t, domain.RecipientStatusFailed, store.Recipients("b1")[0].Status)
	})

	t.Run("send timeout is applied", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		sender := mocks.NewMockMessageSender(ctrl)
		sender.EXPECT().SendEmail(gomock.Any(), "guest000@example.com", "s", "b").
			DoAndReturn(func(ctx context.Context, _, _, _ string) domain.SendResult {
				deadline, ok := ctx.Deadline()
				assert.True(t, ok)
				assert.WithinDuration(t, time.Now().Add(5*time.Second), deadline, time.Second)
				return domain.SendResult{Success: true}
			})

		fanout := broadcast.NewFanOutSender(sender, memstore.NewBroadcastStore(), &broadcast.Config{SendTimeout: 5 * time.Second}, logger.NewTestLogger(t))
		report, err := fanout.Send(ctx, b, domain.RecipientPhaseFull,
			deliveries(makeContacts("T", 1), "", domain.BroadcastContent{Subject: "s", Body: "b"}))
		require.NoError(t, err)
		assert.Equal(t, 1, report.Sent)
	})

	t.Run("ledger failure is reported after sending", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := mocks.NewMockBroadcastRepository(ctrl)
		repo.EXPECT().RecordRecipients(gomock.Any(), gomock.Len(3)).Return(errors.New("disk full"))
		sender := &recordingSender{}

		fanout := broadcast.NewFanOutSender(sender, repo, nil, logger.NewTestLogger(t))
		report, err := fanout.Send(ctx, b, domain.RecipientPhaseFull,
			deliveries(makeContacts("T", 3), "", domain.BroadcastContent{Subject: "s", Body: "b"}))
		require.Error(t, err)
		assert.Equal(t, broadcast.ErrCodeLedgerFailed, broadcast.CodeOf(err))
		assert.Equal(t, 3, report.Sent)
		assert.Len(t, sender.messages(), 3)
	})
}

func TestInjectOpenPixel(t *testing.T) {
	t.Run("fragment", func(t *testing.T) {
		out := broadcast.InjectOpenPixel("<p>Hello</p>", "https://app.example/api/track/open?rid=r1")
		assert.Contains(t, out, "<p>Hello</p>")
		assert.Contains(t, out, `<img src="https://app.example/api/track/open?rid=r1"`)
		assert.True(t, strings.Index(out, "<p>Hello</p>") < strings.Index(out, "<img"))
	})

	t.Run("single pixel", func(t *testing.T) {
		out := broadcast.InjectOpenPixel("<html><body><div>a</div></body></html>", "u")
		assert.Equal(t, 1, strings.Count(out, "<img"))
	})
}

func TestOpenPixelURL(t *testing.T) {
	assert.Equal(t, "https://app.example/api/track/open?rid=r%2F1", broadcast.OpenPixelURL("https://app.example/", "r/1"))
	assert.Equal(t, "http://localhost:8080/api/track/open?rid=abc", broadcast.OpenPixelURL("http://localhost:8080", "abc"))
}
