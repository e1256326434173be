package rabbitmq

import "github.com/shortsos/shortsos/internal/models"

// QueueConfig связывает очередь с ключом маршрутизации.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

const (
	// RoutingKeyPlan события смены плана: активация, отмена, понижение.
	RoutingKeyPlan = "plan"
	// RoutingKeyExpiring напоминания о скором окончании плана.
	RoutingKeyExpiring = "expiring"

	QueuePlan     = "notifications.plan"
	QueueExpiring = "notifications.expiring"

	// DeadLetterExchange принимает сообщения, отклонённые после всех попыток.
	DeadLetterExchange = "billing.notifications.dlx"
	// QueueDeadLetter хранит недоставленные уведомления для разбора вручную.
	QueueDeadLetter = "notifications.dead"
)

// NotificationQueues возвращает очереди, которые слушает отправитель писем.
func NotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: QueuePlan, RoutingKey: RoutingKeyPlan},
		{QueueName: QueueExpiring, RoutingKey: RoutingKeyExpiring},
	}
}

// RoutingKeyFor выбирает ключ маршрутизации по типу уведомления.
func RoutingKeyFor(kind models.NotificationKind) string {
	if kind == models.NotificationPlanExpiring {
		return RoutingKeyExpiring
	}
	return RoutingKeyPlan
}
