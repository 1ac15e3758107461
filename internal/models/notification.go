package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NotificationType - тип уведомления
type NotificationType string

const (
	NotifySwapRequest      NotificationType = "swap_request"
	NotifySwapAccepted     NotificationType = "swap_accepted"
	NotifySwapRejected     NotificationType = "swap_rejected"
	NotifySwapCancelled    NotificationType = "swap_cancelled"
	NotifySwapCompleted    NotificationType = "swap_completed"
	NotifyFeedbackReceived NotificationType = "feedback_received"
	NotifyAdminMessage     NotificationType = "admin_message"
	NotifySystem           NotificationType = "system"
)

var defaultTitles = map[NotificationType]string{
	NotifySwapRequest:      "New Swap Request",
	NotifySwapAccepted:     "Swap Request Accepted",
	NotifySwapRejected:     "Swap Request Rejected",
	NotifySwapCancelled:    "Swap Request Cancelled",
	NotifySwapCompleted:    "Swap Completed",
	NotifyFeedbackReceived: "New Feedback Received",
	NotifyAdminMessage:     "Admin Message",
	NotifySystem:           "System Notification",
}

// DefaultNotificationTitle возвращает заголовок по типу уведомления
func DefaultNotificationTitle(t NotificationType) string {
	if title, ok := defaultTitles[t]; ok {
		return title
	}
	return "Notification"
}

// Valid сообщает, входит ли тип в словарь
func (t NotificationType) Valid() bool {
	_, ok := defaultTitles[t]
	return ok
}

// Notification - сохраненное уведомление пользователя
type Notification struct {
	ID            uuid.UUID        `json:"id" db:"id"`
	UserID        uuid.UUID        `json:"user_id" db:"user_id"`
	Type          NotificationType `json:"type" db:"type"`
	Title         string           `json:"title" db:"title"`
	Message       string           `json:"message" db:"message"`
	Read          bool             `json:"read" db:"read"`
	RelatedUserID *uuid.UUID       `json:"related_user_id,omitempty" db:"related_user_id"`
	RelatedSwapID *uuid.UUID       `json:"related_swap_id,omitempty" db:"related_swap_id"`
	Data          map[string]any   `json:"data,omitempty" db:"data"`
	ReadAt        *time.Time       `json:"read_at,omitempty" db:"read_at"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
}

// NewNotification - данные для создания уведомления
type NewNotification struct {
	UserID        uuid.UUID
	Type          NotificationType
	Title         string
	Message       string
	RelatedUserID *uuid.UUID
	RelatedSwapID *uuid.UUID
	Data          map[string]any
}

// Prepare подставляет заголовок по умолчанию и проверяет поля
func (n *NewNotification) Prepare() error {
	n.Title = strings.TrimSpace(n.Title)
	if n.Title == "" {
		n.Title = DefaultNotificationTitle(n.Type)
	}
	v := &ValidationError{}
	if !n.Type.Valid() {
		v.Add("type", "Invalid notification type")
	}
	if n.UserID == uuid.Nil {
		v.Add("user_id", "Recipient is required")
	}
	if runeLen(n.Title) > MaxTitleLength {
		v.Add("title", "Title cannot be more than 100 characters")
	}
	if l := runeLen(n.Message); l < 1 || l > MaxNotificationText {
		v.Add("message", "Message must be between 1 and 500 characters")
	}
	return v.Err()
}

// NoticeWithDetail дописывает detail к head через sep.
// detail обрезается так, чтобы сообщение не превышало MaxNotificationText.
func NoticeWithDetail(head, sep, detail string) string {
	if detail == "" {
		return head
	}
	room := MaxNotificationText - runeLen(head) - runeLen(sep)
	if room <= 0 {
		return head
	}
	if r := []rune(detail); len(r) > room {
		detail = string(r[:room-1]) + "…"
	}
	return head + sep + detail
}

// NotificationFilter - параметры списка уведомлений
type NotificationFilter struct {
	UserID uuid.UUID
	Type   *NotificationType
	Read   *bool
	Page   Page
}

// Broadcast - рассылка от администратора
type Broadcast struct {
	Type    NotificationType
	Title   string
	Message string
	// UserIDs пустой при SendToAll
	UserIDs   []uuid.UUID
	SendToAll bool
}

// Validate проверяет рассылку
func (b *Broadcast) Validate() error {
	v := &ValidationError{}
	if b.Type != NotifyAdminMessage && b.Type != NotifySystem {
		v.Add("type", "Invalid notification type")
	}
	if l := runeLen(b.Title); l < 1 || l > MaxTitleLength {
		v.Add("title", "Title must be between 1 and 100 characters")
	}
	if l := runeLen(b.Message); l < 1 || l > MaxNotificationText {
		v.Add("message", "Message must be between 1 and 500 characters")
	}
	if !b.SendToAll && len(b.UserIDs) == 0 {
		v.Add("user_ids", "Either sendToAll or userIds must be provided")
	}
	return v.Err()
}
