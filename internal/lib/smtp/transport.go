package smtp

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"time"

	"github.com/shortsos/shortsos/internal/config"
	"github.com/shortsos/shortsos/internal/lib/sl"
)

const dialTimeout = 10 * time.Second

// Transport открывает аутентифицированные SMTP-сессии.
type Transport struct {
	cfg config.SMTP
	log *slog.Logger
}

// NewTransport создаёт Transport по настройкам SMTP.
func NewTransport(cfg config.SMTP, log *slog.Logger) *Transport {
	return &Transport{cfg: cfg, log: log}
}

// Connect подключается к серверу, включает STARTTLS и проходит PLAIN-аутентификацию.
func (t *Transport) Connect() (Client, error) {
	const op = "smtp.Transport.Connect"
	log := t.log.With(slog.String("op", op), slog.String("host", t.cfg.SMTPHost))

	conn, err := net.DialTimeout("tcp", net.JoinHostPort(t.cfg.SMTPHost, t.cfg.SMTPPort), dialTimeout)
	if err != nil {
		log.Error("failed to dial SMTP server", sl.Err(err))
		return nil, fmt.Errorf("%s: dial: %w", op, err)
	}

	client, err := smtp.NewClient(conn, t.cfg.SMTPHost)
	if err != nil {
		log.Error("failed to create SMTP client", sl.Err(err))
		if closeErr := conn.Close(); closeErr != nil {
			log.Error("failed to close connection", sl.Err(closeErr))
		}
		return nil, fmt.Errorf("%s: new client: %w", op, err)
	}

	fail := func(msg string, err error) (Client, error) {
		log.Error(msg, sl.Err(err))
		if closeErr := client.Close(); closeErr != nil {
			log.Error("failed to close client", sl.Err(closeErr))
		}
		return nil, fmt.Errorf("%s: %s: %w", op, msg, err)
	}

	if ok, _ := client.Extension("STARTTLS"); !ok {
		return fail("starttls", fmt.Errorf("server does not support STARTTLS"))
	}
	tlsConfig := &tls.Config{
		ServerName: t.cfg.SMTPHost,
		MinVersion: tls.VersionTLS12,
	}
	if err := client.StartTLS(tlsConfig); err != nil {
		return fail("starttls", err)
	}

	if t.cfg.SMTPUser != "" {
		auth := smtp.PlainAuth("", t.cfg.SMTPUser, t.cfg.SMTPPass, t.cfg.SMTPHost)
		if err := client.Auth(auth); err != nil {
			return fail("auth", err)
		}
	}

	return client, nil
}

// From возвращает адрес отправителя: SMTPFrom, а если он пуст, SMTPUser.
func (t *Transport) From() string {
	if t.cfg.SMTPFrom != "" {
		return t.cfg.SMTPFrom
	}
	return t.cfg.SMTPUser
}
