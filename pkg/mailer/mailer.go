package mailer

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/wneessen/go-mail"
)

//go:generate mockgen -destination=../mocks/mock_mailer.go -package=pkgmocks github.com/localboost/localboost/pkg/mailer Mailer

// Mailer is the interface for sending emails
type Mailer interface {
	// Send delivers an HTML email with a plain-text alternative and returns
	// the message id
	Send(ctx context.Context, to, subject, html string) (string, error)
	// SendTrialEndingNotice tells a tenant owner their trial is about to end
	SendTrialEndingNotice(ctx context.Context, email, tenantName string, trialEnd time.Time) error
	// SendPaymentFailedNotice tells a tenant owner an invoice payment failed
	SendPaymentFailedNotice(ctx context.Context, email, tenantName, invoiceURL string) error
}

// Config holds the configuration for the mailer
type Config struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
}

// SMTPMailer implements the Mailer interface using SMTP
type SMTPMailer struct {
	config   *Config
	testMode bool
}

// NewSMTPMailer creates a new SMTP mailer
func NewSMTPMailer(config *Config) *SMTPMailer {
	return &SMTPMailer{
		config:   config,
		testMode: false,
	}
}

// NewTestSMTPMailer creates a new SMTP mailer in test mode (won't connect to SMTP server)
func NewTestSMTPMailer(config *Config) *SMTPMailer {
	return &SMTPMailer{
		config:   config,
		testMode: true,
	}
}

// Send delivers one message
func (m *SMTPMailer) Send(ctx context.Context, to, subject, html string) (string, error) {
	msg, err := m.newMessage(to, subject, html)
	if err != nil {
		return "", err
	}
	if err := m.deliver(ctx, msg); err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}
	return msg.GetMessageID(), nil
}

// SendTrialEndingNotice sends the trial-ending notice
func (m *SMTPMailer) SendTrialEndingNotice(ctx context.Context, email, tenantName string, trialEnd time.Time) error {
	subject, html := trialEndingContent(tenantName, trialEnd)
	msg, err := m.newMessage(email, subject, html)
	if err != nil {
		return err
	}
	if err := m.deliver(ctx, msg); err != nil {
		return fmt.Errorf("failed to send trial ending notice: %w", err)
	}
	return nil
}

// SendPaymentFailedNotice sends the payment-failed notice
func (m *SMTPMailer) SendPaymentFailedNotice(ctx context.Context, email, tenantName, invoiceURL string) error {
	subject, html := paymentFailedContent(tenantName, invoiceURL)
	msg, err := m.newMessage(email, subject, html)
	if err != nil {
		return err
	}
	if err := m.deliver(ctx, msg); err != nil {
		return fmt.Errorf("failed to send payment failed notice: %w", err)
	}
	return nil
}

func (m *SMTPMailer) newMessage(to, subject, html string) (*mail.Msg, error) {
	msg := mail.NewMsg(mail.WithNoDefaultUserAgent())

	if err := msg.FromFormat(m.config.FromName, m.config.FromEmail); err != nil {
		return nil, fmt.Errorf("failed to set email from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("failed to set email recipient: %w", err)
	}

	msg.Subject(subject)
	msg.SetMessageID()
	msg.SetBodyString(mail.TypeTextHTML, html)
	msg.AddAlternativeString(mail.TypeTextPlain, HTMLToText(html))
	return msg, nil
}

func (m *SMTPMailer) deliver(ctx context.Context, msg *mail.Msg) error {
	client, err := m.createSMTPClient()
	if err != nil {
		return err
	}

	// test mode
	if client == nil {
		log.Printf("Sending email to: %v", msg.GetToString())
		log.Printf("From: %s <%s>", m.config.FromName, m.config.FromEmail)
		log.Printf("Subject: %v", msg.GetGenHeader(mail.HeaderSubject))
		return nil
	}

	return client.DialAndSendWithContext(ctx, msg)
}

// createSMTPClient creates and configures a new SMTP client
func (m *SMTPMailer) createSMTPClient() (*mail.Client, error) {
	if m.testMode {
		return nil, nil
	}

	clientOptions := []mail.Option{
		mail.WithPort(m.config.SMTPPort),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(10 * time.Second),
	}

	// unauthenticated relays are allowed
	if m.config.SMTPUsername != "" && m.config.SMTPPassword != "" {
		clientOptions = append(clientOptions,
			mail.WithUsername(m.config.SMTPUsername),
			mail.WithPassword(m.config.SMTPPassword),
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
		)
	}

	client, err := mail.NewClient(m.config.SMTPHost, clientOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}

	return client, nil
}

func trialEndingContent(tenantName string, trialEnd time.Time) (string, string) {
	subject := "Your LocalBoost trial is ending soon"
	html := fmt.Sprintf(`
	<html>
		<body>
			<h1>Your trial ends on %s</h1>
			<p>Hello %s,</p>
			<p>Your LocalBoost trial ends on <strong>%s</strong>. Add a payment method to keep your campaigns and automations running.</p>
			<p>Thanks,<br>The LocalBoost Team</p>
		</body>
	</html>`, trialEnd.Format("January 2, 2006"), tenantName, trialEnd.Format("January 2, 2006"))
	return subject, html
}

func paymentFailedContent(tenantName, invoiceURL string) (string, string) {
	subject := "Action required: your LocalBoost payment failed"
	link := ""
	if invoiceURL != "" {
		link = fmt.Sprintf(`<p><a href="%s">Review your invoice</a></p>`, invoiceURL)
	}
	html := fmt.Sprintf(`
	<html>
		<body>
			<h1>We could not process your payment</h1>
			<p>Hello %s,</p>
			<p>Your latest LocalBoost payment failed. Please update your payment method to avoid an interruption of service.</p>
			%s
			<p>Thanks,<br>The LocalBoost Team</p>
		</body>
	</html>`, tenantName, link)
	return subject, html
}

// HTMLToText renders the readable text of an HTML body for the plain-text
// alternative part.
func HTMLToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}

	doc.Find("script, style, head").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		text := strings.TrimSpace(s.Text())
		if href != "" && href != text {
			s.SetText(fmt.Sprintf("%s (%s)", text, href))
		}
	})
	doc.Find("p, div, h1, h2, h3, h4, li, tr").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	lines := strings.Split(doc.Text(), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// ConsoleMailer is a development implementation that just logs emails
type ConsoleMailer struct{}

// NewConsoleMailer creates a new console mailer for development
func NewConsoleMailer() *ConsoleMailer {
	return &ConsoleMailer{}
}

// Send prints the message to stdout
func (m *ConsoleMailer) Send(_ context.Context, to, subject, html string) (string, error) {
	id := fmt.Sprintf("<%s@console.localboost>", uuid.New().String())
	printMessage(to, subject, HTMLToText(html))
	return id, nil
}

// SendTrialEndingNotice prints the notice to stdout
func (m *ConsoleMailer) SendTrialEndingNotice(_ context.Context, email, tenantName string, trialEnd time.Time) error {
	subject, html := trialEndingContent(tenantName, trialEnd)
	printMessage(email, subject, HTMLToText(html))
	return nil
}

// SendPaymentFailedNotice prints the notice to stdout
func (m *ConsoleMailer) SendPaymentFailedNotice(_ context.Context, email, tenantName, invoiceURL string) error {
	subject, html := paymentFailedContent(tenantName, invoiceURL)
	printMessage(email, subject, HTMLToText(html))
	return nil
}

func printMessage(to, subject, text string) {
	fmt.Println("==============================================================")
	fmt.Printf("To: %s\n", to)
	fmt.Printf("Subject: %s\n\n", subject)
	fmt.Println(text)
	fmt.Println("==============================================================")
}
