package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UserTotals - количество пользователей для панели администратора
type UserTotals struct {
	Total  int `json:"total"`
	Active int `json:"active"`
	Banned int `json:"banned"`
}

// Dashboard - сводка для главной страницы админки
type Dashboard struct {
	Users       UserTotals `json:"users"`
	Swaps       SwapStats  `json:"swaps"`
	RecentUsers []*Account `json:"recent_users"`
	RecentSwaps []*Swap    `json:"recent_swaps"`
}

// AnalyticsPeriod - окно аналитики, отсчитываемое от текущего момента
type AnalyticsPeriod string

const (
	PeriodDay   AnalyticsPeriod = "day"
	PeriodWeek  AnalyticsPeriod = "week"
	PeriodMonth AnalyticsPeriod = "month"
	PeriodYear  AnalyticsPeriod = "year"
)

// ParseAnalyticsPeriod проверяет период, пустая строка означает месяц
func ParseAnalyticsPeriod(s string) (AnalyticsPeriod, error) {
	switch p := AnalyticsPeriod(s); p {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear:
		return p, nil
	case "":
		return PeriodMonth, nil
	}
	return "", NewValidationError("period", "Invalid period")
}

// Since возвращает начало окна
func (p AnalyticsPeriod) Since(now time.Time) time.Time {
	y, m, d := now.Date()
	switch p {
	case PeriodDay:
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	case PeriodWeek:
		return now.Add(-7 * 24 * time.Hour)
	case PeriodYear:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, now.Location())
	default:
		return time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
	}
}

// PeriodCounts - количество событий внутри окна
type PeriodCounts struct {
	NewUsers       int `json:"new_users"`
	NewSwaps       int `json:"new_swaps"`
	CompletedSwaps int `json:"completed_swaps"`
}

// SkillCount - навык и число пользователей с ним
type SkillCount struct {
	Skill string `json:"skill" db:"skill"`
	Count int    `json:"count" db:"count"`
}

// Analytics - аналитика платформы за период
type Analytics struct {
	Period              AnalyticsPeriod `json:"period"`
	Since               time.Time       `json:"since"`
	Counts              PeriodCounts    `json:"counts"`
	SwapsByStatus       SwapStats       `json:"swaps_by_status"`
	NotificationsByType map[string]int  `json:"notifications_by_type"`
	TopSkillsOffered    []SkillCount    `json:"top_skills_offered"`
	TopSkillsWanted     []SkillCount    `json:"top_skills_wanted"`
}

// TopSkillsLimit - размер топа навыков в аналитике
const TopSkillsLimit = 10

// ReportType - вид выгрузки
type ReportType string

const (
	ReportUsers    ReportType = "users"
	ReportSwaps    ReportType = "swaps"
	ReportFeedback ReportType = "feedback"
)

// ParseReportType проверяет вид выгрузки
func ParseReportType(s string) (ReportType, error) {
	switch t := ReportType(s); t {
	case ReportUsers, ReportSwaps, ReportFeedback:
		return t, nil
	}
	return "", NewValidationError("type", "Invalid report type")
}

// ReportRange ограничивает выгрузку по дате создания
type ReportRange struct {
	From *time.Time
	To   *time.Time
}

// Report - строки выгрузки одного вида
type Report interface {
	Header() []string
	Records() [][]string
}

// UserReportRow - строка выгрузки пользователей
type UserReportRow struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	Location     string    `json:"location" db:"location"`
	Availability string    `json:"availability" db:"availability"`
	RatingSum    int       `json:"-" db:"rating_sum"`
	RatingCount  int       `json:"rating_count" db:"rating_count"`
	SwapCount    int       `json:"swap_count" db:"swap_count"`
	IsBanned     bool      `json:"is_banned" db:"is_banned"`
	IsVerified   bool      `json:"is_verified" db:"is_verified"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// UserReport - выгрузка пользователей
type UserReport []UserReportRow

func (UserReport) Header() []string {
	return []string{"ID", "Name", "Email", "Location", "Availability", "Rating", "Rating Count",
		"Swaps", "Banned", "Verified", "Created At"}
}

func (r UserReport) Records() [][]string {
	out := make([][]string, 0, len(r))
	for _, u := range r {
		out = append(out, []string{
			u.ID.String(), u.Name, u.Email, u.Location, u.Availability,
			strconv.FormatFloat(averageRating(u.RatingSum, u.RatingCount), 'f', 1, 64),
			strconv.Itoa(u.RatingCount), strconv.Itoa(u.SwapCount),
			strconv.FormatBool(u.IsBanned), strconv.FormatBool(u.IsVerified),
			u.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}

// SwapReportRow - строка выгрузки обменов
type SwapReportRow struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	FromUser        string     `json:"from_user" db:"from_user"`
	ToUser          string     `json:"to_user" db:"to_user"`
	SkillsOffered   []string   `json:"skills_offered" db:"skills_offered"`
	SkillsRequested []string   `json:"skills_requested" db:"skills_requested"`
	Status          string     `json:"status" db:"status"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// SwapReport - выгрузка обменов
type SwapReport []SwapReportRow

func (SwapReport) Header() []string {
	return []string{"ID", "From User", "To User", "Skills Offered", "Skills Requested", "Status",
		"Created At", "Completed At"}
}

func (r SwapReport) Records() [][]string {
	out := make([][]string, 0, len(r))
	for _, s := range r {
		completed := ""
		if s.CompletedAt != nil {
			completed = s.CompletedAt.UTC().Format(time.RFC3339)
		}
		out = append(out, []string{
			s.ID.String(), s.FromUser, s.ToUser,
			strings.Join(s.SkillsOffered, "; "), strings.Join(s.SkillsRequested, "; "),
			s.Status, s.CreatedAt.UTC().Format(time.RFC3339), completed,
		})
	}
	return out
}

// FeedbackReport - выгрузка отзывов
type FeedbackReport []Feedback

func (FeedbackReport) Header() []string {
	return []string{"ID", "From User", "To User", "Stars", "Comment", "Created At"}
}

func (r FeedbackReport) Records() [][]string {
	out := make([][]string, 0, len(r))
	for _, f := range r {
		out = append(out, []string{
			f.ID.String(), f.FromUserName, f.ToUserName, strconv.Itoa(f.Stars), f.Comment,
			f.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}
