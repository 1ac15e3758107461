package models

import (
	"time"

	"github.com/google/uuid"
)

// SwapStatus - статус запроса на обмен навыками
type SwapStatus string

const (
	SwapPending   SwapStatus = "pending"
	SwapAccepted  SwapStatus = "accepted"
	SwapRejected  SwapStatus = "rejected"
	SwapCancelled SwapStatus = "cancelled"
	SwapCompleted SwapStatus = "completed"
)

// SwapStatuses перечисляет все статусы в порядке жизненного цикла
var SwapStatuses = []SwapStatus{SwapPending, SwapAccepted, SwapRejected, SwapCancelled, SwapCompleted}

// ParseSwapStatus проверяет строку статуса
func ParseSwapStatus(s string) (SwapStatus, error) {
	for _, st := range SwapStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", NewValidationError("status", "Invalid status filter")
}

// SwapAction - действие участника над запросом
type SwapAction string

const (
	SwapAccept   SwapAction = "accept"
	SwapReject   SwapAction = "reject"
	SwapCancel   SwapAction = "cancel"
	SwapComplete SwapAction = "complete"
)

// swapTransitions - единственная таблица допустимых переходов
var swapTransitions = map[SwapStatus]map[SwapAction]SwapStatus{
	SwapPending: {
		SwapAccept: SwapAccepted,
		SwapReject: SwapRejected,
		SwapCancel: SwapCancelled,
	},
	SwapAccepted: {
		SwapComplete: SwapCompleted,
	},
}

// NextSwapStatus возвращает статус после действия или ErrInvalidState.
// Все изменения статуса проходят через эту функцию.
func NextSwapStatus(current SwapStatus, action SwapAction) (SwapStatus, error) {
	if next, ok := swapTransitions[current][action]; ok {
		return next, nil
	}
	if action == SwapComplete {
		return current, Errorf(ErrInvalidState, "Swap must be accepted before completion")
	}
	return current, Errorf(ErrInvalidState, "Swap request is not pending")
}

// IsTerminal сообщает, что из статуса нет переходов
func (s SwapStatus) IsTerminal() bool {
	return len(swapTransitions[s]) == 0
}

// FeedbackDirection определяет, какой участник обмена оставил отзыв
type FeedbackDirection string

const (
	DirectionFromUser FeedbackDirection = "from_user"
	DirectionToUser   FeedbackDirection = "to_user"
)

// FeedbackFlags отмечает, оставил ли каждый участник отзыв
type FeedbackFlags struct {
	FromUser bool `json:"from_user"`
	ToUser   bool `json:"to_user"`
}

// Submitted возвращает флаг для направления
func (f FeedbackFlags) Submitted(d FeedbackDirection) bool {
	if d == DirectionFromUser {
		return f.FromUser
	}
	return f.ToUser
}

// Swap представляет запрос на обмен навыками
type Swap struct {
	ID                uuid.UUID     `json:"id"`
	FromUserID        uuid.UUID     `json:"from_user_id"`
	ToUserID          uuid.UUID     `json:"to_user_id"`
	SkillsOffered     []string      `json:"skills_offered"`
	SkillsRequested   []string      `json:"skills_requested"`
	Message           string        `json:"message"`
	Status            SwapStatus    `json:"status"`
	FeedbackSubmitted FeedbackFlags `json:"feedback_submitted"`
	AcceptedAt        *time.Time    `json:"accepted_at,omitempty"`
	CompletedAt       *time.Time    `json:"completed_at,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`

	// Дополнительные поля для API
	FromUser *AccountSummary `json:"from_user,omitempty"`
	ToUser   *AccountSummary `json:"to_user,omitempty"`
}

// IsParty проверяет, участвует ли пользователь в обмене
func (s *Swap) IsParty(userID uuid.UUID) bool {
	return s.FromUserID == userID || s.ToUserID == userID
}

// Counterpart возвращает второго участника обмена
func (s *Swap) Counterpart(userID uuid.UUID) uuid.UUID {
	if s.FromUserID == userID {
		return s.ToUserID
	}
	return s.FromUserID
}

// DirectionOf возвращает направление отзыва для участника
func (s *Swap) DirectionOf(userID uuid.UUID) (FeedbackDirection, bool) {
	switch userID {
	case s.FromUserID:
		return DirectionFromUser, true
	case s.ToUserID:
		return DirectionToUser, true
	}
	return "", false
}

// Authorize проверяет, может ли участник выполнить действие
func (s *Swap) Authorize(action SwapAction, actor uuid.UUID) error {
	var allowed bool
	switch action {
	case SwapAccept, SwapReject:
		allowed = actor == s.ToUserID
	case SwapCancel:
		allowed = actor == s.FromUserID
	case SwapComplete:
		allowed = s.IsParty(actor)
	}
	if !allowed {
		return Errorf(ErrForbidden, "Not authorized to %s this swap request", action)
	}
	return nil
}

// CheckDelete проверяет право удалить запрос
func (s *Swap) CheckDelete(actor uuid.UUID) error {
	if actor != s.FromUserID {
		return Errorf(ErrForbidden, "Not authorized to delete this swap request")
	}
	if s.Status != SwapPending && s.Status != SwapCancelled {
		return Errorf(ErrInvalidState, "Cannot delete swap request in current status")
	}
	return nil
}

// NewSwap - данные для создания запроса на обмен
type NewSwap struct {
	FromUserID      uuid.UUID
	ToUserID        uuid.UUID
	SkillsOffered   []string
	SkillsRequested []string
	Message         string
}

// Validate проверяет входные данные до любых изменений
func (n *NewSwap) Validate() error {
	v := &ValidationError{}
	if n.ToUserID == uuid.Nil {
		v.Add("to_user_id", "Valid user ID is required")
	}
	if len(n.SkillsOffered) == 0 {
		v.Add("skills_offered", "At least one skill offered is required")
	}
	ValidateSkills(v, "skills_offered", n.SkillsOffered)
	if len(n.SkillsRequested) == 0 {
		v.Add("skills_requested", "At least one skill requested is required")
	}
	ValidateSkills(v, "skills_requested", n.SkillsRequested)
	if l := runeLen(n.Message); l < 1 || l > MaxSwapMessageLength {
		v.Add("message", "Message must be between 1 and 1000 characters")
	}
	if n.FromUserID != uuid.Nil && n.FromUserID == n.ToUserID {
		v.Add("to_user_id", "Cannot send swap request to yourself")
	}
	return v.Err()
}

// SwapFilter - параметры выборки обменов
type SwapFilter struct {
	// UserID ограничивает обмены участником, nil - все обмены (админка)
	UserID *uuid.UUID
	// Type: all, sent, received
	Type   string
	Status *SwapStatus
	Page   Page
}

// SwapStats - количество обменов по статусам
type SwapStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Accepted  int `json:"accepted"`
	Rejected  int `json:"rejected"`
	Cancelled int `json:"cancelled"`
	Completed int `json:"completed"`
}

// Add учитывает количество для статуса
func (s *SwapStats) Add(status SwapStatus, n int) {
	switch status {
	case SwapPending:
		s.Pending += n
	case SwapAccepted:
		s.Accepted += n
	case SwapRejected:
		s.Rejected += n
	case SwapCancelled:
		s.Cancelled += n
	case SwapCompleted:
		s.Completed += n
	}
	s.Total += n
}
