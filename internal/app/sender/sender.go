// Package sender собирает процесс доставки уведомлений по почте.
package sender

import (
	"context"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/shortsos/shortsos/internal/config"
	"github.com/shortsos/shortsos/internal/lib/rabbitmq"
	"github.com/shortsos/shortsos/internal/lib/sl"
	"github.com/shortsos/shortsos/internal/lib/smtp"
	"github.com/shortsos/shortsos/internal/services/notification"
)

// App слушает очереди уведомлений и отправляет письма.
type App struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	sender *notification.Sender
	logger *slog.Logger
}

// New подключается к RabbitMQ и готовит SMTP-транспорт.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.NotificationQueues())
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	transport := smtp.NewTransport(cfg.SMTP, logger)
	return &App{
		conn:   conn,
		ch:     ch,
		sender: notification.NewSender(transport, logger),
		logger: logger,
	}, nil
}

// Run запускает потребителей всех очередей уведомлений и ждёт отмены ctx.
func (a *App) Run(ctx context.Context) error {
	for _, q := range rabbitmq.NotificationQueues() {
		if err := rabbitmq.ConsumerMessage(ctx, a.logger, a.ch, q.QueueName, a.sender.HandleMessage); err != nil {
			a.logger.Error("failed to start consumer", slog.String("queue", q.QueueName), sl.Err(err))
			return err
		}
	}

	<-ctx.Done()
	a.logger.Info("notification sender shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	return nil
}
