// Package smtp содержит транспорт отправки писем через SMTP со STARTTLS.
package smtp

import "io"

// Client минимальный набор команд SMTP-сессии.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// TransportInterface открывает SMTP-сессии и знает адрес отправителя.
type TransportInterface interface {
	Connect() (Client, error)
	From() string
}
