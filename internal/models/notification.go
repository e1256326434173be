package models

import "time"

// NotificationKind тип уведомления о событии подписки.
type NotificationKind string

const (
	NotificationPlanActivated  NotificationKind = "plan_activated"
	NotificationPlanCancelled  NotificationKind = "plan_cancelled"
	NotificationPlanDowngraded NotificationKind = "plan_downgraded"
	NotificationPlanExpiring   NotificationKind = "plan_expiring"
)

// Notification публикуется в RabbitMQ и отправляется пользователю по почте.
type Notification struct {
	Kind       NotificationKind `json:"kind"`
	UserID     string           `json:"user_id"`
	Email      string           `json:"email"`
	Tier       Tier             `json:"tier"`
	PlanExpiry *time.Time       `json:"plan_expiry,omitempty"`
	DaysLeft   int              `json:"days_left,omitempty"`
}
