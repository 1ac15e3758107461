package models

import (
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
)

// Availability - доступность пользователя для обменов
type Availability string

const (
	Available   Availability = "available"
	Busy        Availability = "busy"
	Unavailable Availability = "unavailable"
)

// ParseAvailability проверяет значение доступности
func ParseAvailability(s string) (Availability, error) {
	switch a := Availability(s); a {
	case Available, Busy, Unavailable:
		return a, nil
	}
	return "", NewValidationError("availability", "Invalid availability status")
}

// Account представляет пользователя платформы
type Account struct {
	ID            uuid.UUID    `json:"id"`
	Name          string       `json:"name"`
	Email         string       `json:"email,omitempty"`
	PasswordHash  string       `json:"-"`
	TelegramID    *int64       `json:"-"`
	Location      string       `json:"location"`
	ProfilePhoto  string       `json:"profile_photo"`
	SkillsOffered []string     `json:"skills_offered"`
	SkillsWanted  []string     `json:"skills_wanted"`
	Availability  Availability `json:"availability"`
	IsPublic      bool         `json:"is_public"`
	RatingSum     int          `json:"-"`
	RatingCount   int          `json:"rating_count"`
	IsBanned      bool         `json:"is_banned"`
	BanReason     string       `json:"ban_reason,omitempty"`
	IsVerified    bool         `json:"is_verified"`
	LastActive    time.Time    `json:"last_active"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`

	// Последние отзывы для публичного профиля
	RecentFeedback []Feedback `json:"recent_feedback,omitempty"`
}

// AverageRating - средняя оценка, округленная до десятых (0 без отзывов)
func (a *Account) AverageRating() float64 {
	return averageRating(a.RatingSum, a.RatingCount)
}

// ApplyRating применяет изменение агрегата рейтинга
func (a *Account) ApplyRating(d RatingDelta) {
	a.RatingSum += d.Sum
	a.RatingCount += d.Count
}

// Summary возвращает краткое представление пользователя
func (a *Account) Summary() *AccountSummary {
	return &AccountSummary{
		ID:           a.ID,
		Name:         a.Name,
		ProfilePhoto: a.ProfilePhoto,
		Location:     a.Location,
		Rating:       a.AverageRating(),
	}
}

func (a Account) MarshalJSON() ([]byte, error) {
	type alias Account
	return json.Marshal(struct {
		alias
		Rating float64 `json:"rating"`
	}{alias: alias(a), Rating: a.AverageRating()})
}

func averageRating(sum, count int) float64 {
	if count == 0 {
		return 0
	}
	return math.Round(float64(sum)/float64(count)*10) / 10
}

// AccountSummary - пользователь в составе обменов и отзывов
type AccountSummary struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	ProfilePhoto string    `json:"profile_photo,omitempty"`
	Location     string    `json:"location,omitempty"`
	Rating       float64   `json:"rating"`
}

// RatingDelta - изменение суммы и количества оценок
type RatingDelta struct {
	Sum   int
	Count int
}

// FeedbackAdded - изменение агрегата при добавлении отзыва
func FeedbackAdded(stars int) RatingDelta { return RatingDelta{Sum: stars, Count: 1} }

// FeedbackRevised - изменение агрегата при смене оценки
func FeedbackRevised(oldStars, newStars int) RatingDelta {
	return RatingDelta{Sum: newStars - oldStars}
}

// FeedbackRemoved - изменение агрегата при удалении отзыва
func FeedbackRemoved(stars int) RatingDelta { return RatingDelta{Sum: -stars, Count: -1} }

// NewAccount - данные регистрации
type NewAccount struct {
	Name          string
	Email         string
	PasswordHash  string
	TelegramID    *int64
	Location      string
	SkillsOffered []string
	SkillsWanted  []string
	Availability  Availability
	ProfilePhoto  string
}

// ProfileUpdate - частичное обновление профиля, nil означает "не менять"
type ProfileUpdate struct {
	Name          *string   `json:"name"`
	Location      *string   `json:"location"`
	SkillsOffered *[]string `json:"skills_offered"`
	SkillsWanted  *[]string `json:"skills_wanted"`
	Availability  *string   `json:"availability"`
	IsPublic      *bool     `json:"is_public"`
}

// Validate проверяет обновление профиля
func (u *ProfileUpdate) Validate() error {
	v := &ValidationError{}
	if u.Name != nil {
		ValidateName(v, *u.Name)
	}
	if u.Location != nil {
		ValidateLocation(v, *u.Location)
	}
	if u.SkillsOffered != nil {
		ValidateSkills(v, "skills_offered", *u.SkillsOffered)
	}
	if u.SkillsWanted != nil {
		ValidateSkills(v, "skills_wanted", *u.SkillsWanted)
	}
	if u.Availability != nil {
		if _, err := ParseAvailability(*u.Availability); err != nil {
			v.Add("availability", "Invalid availability status")
		}
	}
	return v.Err()
}

// IsEmpty сообщает, что обновлять нечего
func (u *ProfileUpdate) IsEmpty() bool {
	return u.Name == nil && u.Location == nil && u.SkillsOffered == nil &&
		u.SkillsWanted == nil && u.Availability == nil && u.IsPublic == nil
}

// AccountSearch - параметры поиска пользователей
type AccountSearch struct {
	Query         string
	SkillsOffered []string
	SkillsWanted  []string
	Availability  *Availability
	Location      string
	// ExcludeID исключает вызывающего пользователя из выдачи
	ExcludeID *uuid.UUID
	Page      Page
}

// AccountFilter - параметры списка пользователей в админке
type AccountFilter struct {
	Search string
	// Status: all, active, banned, unverified
	Status string
	Page   Page
}

// Moderation - изменение модерационных флагов
type Moderation struct {
	IsBanned   *bool
	IsVerified *bool
	BanReason  string
}

// Feedback - отзыв, принадлежащий аккаунту получателя
type Feedback struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	AccountID     uuid.UUID  `json:"user_id" db:"account_id"`
	FromUserID    uuid.UUID  `json:"from_user_id" db:"from_user_id"`
	FromUserName  string     `json:"from_user_name" db:"from_user_name"`
	FromUserPhoto string     `json:"from_user_photo,omitempty" db:"from_user_photo"`
	ToUserName    string     `json:"to_user_name,omitempty" db:"to_user_name"`
	SwapID        *uuid.UUID `json:"swap_id,omitempty" db:"swap_id"`
	Stars         int        `json:"stars" db:"stars"`
	Comment       string     `json:"comment" db:"comment"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// FeedbackEditWindow - время, в течение которого автор может изменить отзыв
const FeedbackEditWindow = 24 * time.Hour

// CheckEditable проверяет авторство и окно редактирования
func (f *Feedback) CheckEditable(rater uuid.UUID, now time.Time, verb string) error {
	if f.FromUserID != rater {
		return Errorf(ErrForbidden, "Not authorized to %s this feedback", verb)
	}
	if now.Sub(f.CreatedAt) > FeedbackEditWindow {
		return Errorf(ErrInvalidState, "Feedback can only be %sd within 24 hours", verb)
	}
	return nil
}

// ValidateFeedback проверяет оценку и комментарий
func ValidateFeedback(v *ValidationError, stars int, comment string) {
	if stars < 1 || stars > 5 {
		v.Add("stars", "Rating must be between 1 and 5 stars")
	}
	if l := runeLen(comment); l < 1 || l > MaxCommentLength {
		v.Add("comment", "Comment must be between 1 and 500 characters")
	}
}
