// Package scheduler собирает процесс напоминаний об окончании платного плана.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/shortsos/shortsos/internal/config"
	"github.com/shortsos/shortsos/internal/lib/rabbitmq"
	"github.com/shortsos/shortsos/internal/lib/sl"
	"github.com/shortsos/shortsos/internal/services/notification"
	"github.com/shortsos/shortsos/internal/storage/repository"
)

// App представляет приложение планировщика.
type App struct {
	scheduler *notification.Scheduler
	db        *repository.Storage
	conn      *amqp.Connection
	ch        *amqp.Channel
	logger    *slog.Logger
}

// waitForDB ждёт, пока API применит миграции.
func waitForDB(db *repository.Storage) error {
	for range 10 {
		err := repository.CheckDatabaseReady(db)
		if err == nil {
			return nil
		}
		time.Sleep(3 * time.Second)
	}
	return fmt.Errorf("database not ready after retries")
}

// New создает новый экземпляр приложения планировщика.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.NotificationQueues())
	if err != nil {
		closeResources(nil, conn, logger)
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}

	if err := waitForDB(db); err != nil {
		_ = db.Close()
		closeResources(ch, conn, logger)
		return nil, err
	}

	s := notification.NewScheduler(db, rabbitmq.NewPublisher(ch),
		cfg.ReminderDays, cfg.ReminderInterval, logger)

	return &App{
		scheduler: s,
		db:        db,
		conn:      conn,
		ch:        ch,
		logger:    logger,
	}, nil
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", sl.Err(err))
		}
	}
}

// Run запускает планировщик и блокируется до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	a.scheduler.Run(ctx)

	a.logger.Info("shutting down expiry scheduler")
	closeResources(a.ch, a.conn, a.logger)
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
	return nil
}
