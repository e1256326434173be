package notification

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shortsos/shortsos/internal/lib/sl"
	"github.com/shortsos/shortsos/internal/lib/smtp"
	"github.com/shortsos/shortsos/internal/models"
)

// Sender превращает уведомления из очереди в письма.
type Sender struct {
	transport smtp.TransportInterface
	log       *slog.Logger
}

// NewSender создает новый экземпляр Sender.
func NewSender(transport smtp.TransportInterface, log *slog.Logger) *Sender {
	return &Sender{
		transport: transport,
		log:       log,
	}
}

// HandleMessage отправляет письмо по телу сообщения из очереди.
//
// Нечитаемые сообщения и сообщения без адреса отбрасываются: повтор их не
// исправит. Ошибка SMTP возвращается, чтобы сообщение вернулось в очередь.
func (s *Sender) HandleMessage(body []byte) error {
	var n models.Notification
	if err := json.Unmarshal(body, &n); err != nil {
		s.log.Error("dropping malformed notification", sl.Err(err))
		return nil
	}
	if n.Email == "" {
		s.log.Warn("dropping notification without recipient", slog.String("kind", string(n.Kind)), sl.UserID(n.UserID))
		return nil
	}

	subject, text, ok := render(n)
	if !ok {
		s.log.Warn("dropping notification of unknown kind", slog.String("kind", string(n.Kind)))
		return nil
	}
	return s.sendEmail([]string{n.Email}, subject, text)
}

func render(n models.Notification) (subject, body string, ok bool) {
	expiry := ""
	if n.PlanExpiry != nil {
		expiry = n.PlanExpiry.UTC().Format("2006-01-02")
	}
	switch n.Kind {
	case models.NotificationPlanActivated:
		return "Your ShortsOS plan is active",
			fmt.Sprintf("Hi!\n\nYour %s plan is now active until %s.\n\nThanks for supporting ShortsOS.", n.Tier, expiry), true
	case models.NotificationPlanCancelled:
		return "Your ShortsOS subscription was cancelled",
			fmt.Sprintf("Hi!\n\nYour %s plan will not renew. You keep full access until %s.", n.Tier, expiry), true
	case models.NotificationPlanDowngraded:
		return "Your ShortsOS plan has ended",
			"Hi!\n\nYour paid plan has ended and your account is back on the free tier.\n\nYou can upgrade again at any time.", true
	case models.NotificationPlanExpiring:
		return "Your ShortsOS plan expires soon",
			fmt.Sprintf("Hi!\n\nYour %s plan expires in %d day(s), on %s.\n\nRenew it to keep unlimited access.", n.Tier, n.DaysLeft, expiry), true
	default:
		return "", "", false
	}
}

func (s *Sender) sendEmail(to []string, subject, bodyText string) error {
	const op = "notification.Sender.sendEmail"
	from := s.transport.From()

	msg := strings.Join([]string{
		"From: " + from,
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Mail(from); err != nil {
		s.log.Error("failed to set MAIL FROM", slog.String("from", from), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", slog.String("recipient", addr), sl.Err(err))
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get data writer", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err = wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = wc.Close(); err != nil {
		s.log.Error("failed to close data writer", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("email sent successfully", slog.Any("to", to), slog.String("subject", subject))
	return nil
}
