package broadcast

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/localboost/localboost/internal/domain"
	"github.com/localboost/localboost/pkg/liquid"
	"github.com/localboost/localboost/pkg/logger"
)

// Delivery is one contact paired with the content it must receive
type Delivery struct {
	Contact *domain.Contact
	Variant domain.Variant
	Content domain.BroadcastContent
}

// DeliveryReport counts the outcome of a fan-out
type DeliveryReport struct {
	Attempted int
	Sent      int
	Failed    int
}

// FanOutSender sends a broadcast to many contacts in parallel and records
// every attempt in the recipient ledger
type FanOutSender struct {
	sender domain.MessageSender
	repo   domain.BroadcastRepository
	config *Config
	logger logger.Logger
}

// NewFanOutSender creates a new fan-out sender
func NewFanOutSender(sender domain.MessageSender, repo domain.BroadcastRepository, config *Config, logger logger.Logger) *FanOutSender {
	return &FanOutSender{
		sender: sender,
		repo:   repo,
		config: config.withDefaults(),
		logger: logger,
	}
}

// Send delivers each entry of deliveries once. Individual failures are
// counted, not returned. The error is only set when the ledger could not be
// written.
func (s *FanOutSender) Send(ctx context.Context, broadcast *domain.Broadcast, phase domain.RecipientPhase, deliveries []Delivery) (*DeliveryReport, error) {
	report := &DeliveryReport{Attempted: len(deliveries)}
	if len(deliveries) == 0 {
		return report, nil
	}

	startTime := time.Now()
	recipients := make([]*domain.BroadcastRecipient, len(deliveries))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.MaxParallelism)

	for i := range deliveries {
		i := i
		g.Go(func() error {
			recipient := s.deliver(gctx, broadcast, phase, deliveries[i])
			recipients[i] = recipient

			mu.Lock()
			defer mu.Unlock()
			if recipient.Status == domain.RecipientStatusSent {
				report.Sent++
			} else {
				report.Failed++
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := s.repo.RecordRecipients(ctx, recipients); err != nil {
		return report, NewBroadcastErrorFor(ErrCodeLedgerFailed, "failed to record recipients", broadcast.ID, false, err)
	}

	// codecov:ignore:start
	s.logger.WithFields(map[string]interface{}{
		"broadcast_id": broadcast.ID,
		"phase":        phase,
		"attempted":    report.Attempted,
		"sent":         report.Sent,
		"failed":       report.Failed,
		"duration_ms":  time.Since(startTime).Milliseconds(),
	}).Info("Broadcast fan-out completed")
	// codecov:ignore:end

	return report, nil
}

func (s *FanOutSender) deliver(ctx context.Context, broadcast *domain.Broadcast, phase domain.RecipientPhase, d Delivery) *domain.BroadcastRecipient {
	recipient := &domain.BroadcastRecipient{
		ID:          uuid.New().String(),
		BroadcastID: broadcast.ID,
		TenantID:    broadcast.TenantID,
		ContactID:   d.Contact.ID,
		Variant:     d.Variant,
		Phase:       phase,
		Status:      domain.RecipientStatusFailed,
	}

	result := s.sendOne(ctx, broadcast.Channel, recipient.ID, d)
	if result.Success {
		recipient.Status = domain.RecipientStatusSent
		recipient.ProviderID = result.ProviderID
	} else {
		recipient.Error = result.Error
		s.logger.WithFields(map[string]interface{}{
			"broadcast_id": broadcast.ID,
			"contact_id":   d.Contact.ID,
			"error":        result.Error,
		}).Warn("Broadcast send failed for recipient")
	}
	return recipient
}

func (s *FanOutSender) sendOne(ctx context.Context, channel domain.Channel, recipientID string, d Delivery) domain.SendResult {
	sendCtx, cancel := context.WithTimeout(ctx, s.config.SendTimeout)
	defer cancel()

	data := d.Contact.TemplateData()
	body, err := liquid.Render(d.Content.Body, data)
	if err != nil {
		return domain.SendResult{Success: false, Error: err.Error()}
	}

	to := d.Contact.Address(channel)
	if channel == domain.ChannelSMS {
		return s.sender.SendSMS(sendCtx, to, body)
	}

	subject, err := liquid.Render(d.Content.Subject, data)
	if err != nil {
		return domain.SendResult{Success: false, Error: err.Error()}
	}
	if s.config.TrackingBaseURL != "" {
		body = InjectOpenPixel(body, OpenPixelURL(s.config.TrackingBaseURL, recipientID))
	}
	return s.sender.SendEmail(sendCtx, to, subject, body)
}

// OpenPixelURL is the tracking URL for one recipient
func OpenPixelURL(baseURL, recipientID string) string {
	return strings.TrimRight(baseURL, "/") + "/api/track/open?rid=" + url.QueryEscape(recipientID)
}

// InjectOpenPixel appends a 1x1 tracking image to the end of the HTML body.
// The body is returned unchanged when it cannot be parsed.
func InjectOpenPixel(html, pixelURL string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}

	img := fmt.Sprintf(`<img src="%s" width="1" height="1" alt="" style="display:none" />`, pixelURL)
	doc.Find("body").First().AppendHtml(img)

	out, err := doc.Html()
	if err != nil {
		return html
	}
	return out
}
