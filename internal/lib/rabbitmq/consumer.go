package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"github.com/shortsos/shortsos/internal/lib/sl"
)

const (
	// RetryCountHeader число повторных публикаций сообщения после ошибок обработчика.
	RetryCountHeader = "x-retry-count"
	// MaxDeliveryAttempts сколько раз обработчик получает одно сообщение,
	// прежде чем оно уйдёт в очередь недоставленных.
	MaxDeliveryAttempts = 5
)

// retryDelay пауза перед повтором, растёт линейно с номером попытки.
var retryDelay = time.Second

// ConsumerMessage запускает потребителя очереди queueName. Каждое сообщение
// обрабатывается handler в отдельной горутине, одновременно не более десяти.
// При ошибке обработчика сообщение публикуется в очередь заново с увеличенным
// счётчиком RetryCountHeader. После MaxDeliveryAttempts попыток оно
// отклоняется без возврата и попадает в обменник недоставленных.
func ConsumerMessage(ctx context.Context, log *slog.Logger, ch *amqp.Channel, queueName string, handler func([]byte) error) error {
	const op = "rabbitmq.ConsumerMessage"
	delivery, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log = log.With(slog.String("op", op), slog.String("queue", queueName))
	var pubMu sync.Mutex
	retry := func(d amqp.Delivery, attempt int) error {
		pubMu.Lock()
		defer pubMu.Unlock()
		return ch.Publish("", queueName, false, false, amqp.Publishing{
			Headers:      retryHeaders(d.Headers, attempt),
			ContentType:  d.ContentType,
			Body:         d.Body,
			DeliveryMode: amqp.Persistent,
		})
	}

	sem := make(chan struct{}, 10)
	go func() {
		for {
			select {
			case d, ok := <-delivery:
				if !ok {
					return
				}
				sem <- struct{}{}
				go func(d amqp.Delivery) {
					defer func() { <-sem }()
					err := handler(d.Body)
					if err == nil {
						if ackErr := d.Ack(false); ackErr != nil {
							log.Error("failed to ack message", sl.Err(ackErr))
						}
						return
					}

					attempt, again := nextAttempt(d.Headers)
					if !again {
						log.Error("handler failed, message dead-lettered", slog.Int("attempt", attempt), sl.Err(err))
						if nackErr := d.Nack(false, false); nackErr != nil {
							log.Error("failed to nack message", sl.Err(nackErr))
						}
						return
					}

					log.Warn("handler failed, message scheduled for retry", slog.Int("attempt", attempt), sl.Err(err))
					select {
					case <-time.After(retryDelay * time.Duration(attempt)):
					case <-ctx.Done():
						_ = d.Nack(false, true)
						return
					}
					if pubErr := retry(d, attempt); pubErr != nil {
						log.Error("failed to republish message", sl.Err(pubErr))
						_ = d.Nack(false, true)
						return
					}
					if ackErr := d.Ack(false); ackErr != nil {
						log.Error("failed to ack message", sl.Err(ackErr))
					}
				}(d)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// nextAttempt возвращает номер только что неудавшейся попытки и признак,
// можно ли отправить сообщение ещё раз.
func nextAttempt(headers amqp.Table) (int, bool) {
	attempt := retryCount(headers) + 1
	return attempt, attempt < MaxDeliveryAttempts
}

func retryCount(headers amqp.Table) int {
	switch v := headers[RetryCountHeader].(type) {
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// retryHeaders копирует заголовки и записывает в них новый счётчик повторов.
func retryHeaders(headers amqp.Table, count int) amqp.Table {
	out := make(amqp.Table, len(headers)+1)
	for k, v := range headers {
		out[k] = v
	}
	out[RetryCountHeader] = int32(count)
	return out
}
