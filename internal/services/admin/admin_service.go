package admin

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/desmond009/Twin-up/internal/metrics"
	"github.com/desmond009/Twin-up/internal/middleware"
	"github.com/desmond009/Twin-up/internal/models"
	"github.com/desmond009/Twin-up/internal/utils"
)

// dashboardRecent - сколько последних пользователей и обменов показывать на главной
const dashboardRecent = 5

type adminStore interface {
	Create(ctx context.Context, n models.NewAdmin) (*models.Admin, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Admin, error)
	GetByEmail(ctx context.Context, email string) (*models.Admin, error)
	List(ctx context.Context) ([]*models.Admin, error)
	Update(ctx context.Context, id uuid.UUID, u models.AdminUpdate) (*models.Admin, error)
	Delete(ctx context.Context, id uuid.UUID) error
	RegisterFailedLogin(ctx context.Context, id uuid.UUID, now time.Time) (*models.Admin, error)
	RegisterSuccessfulLogin(ctx context.Context, id uuid.UUID, now time.Time) error
}

type accountStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	List(ctx context.Context, f models.AccountFilter) ([]*models.Account, int, error)
	Moderate(ctx context.Context, id uuid.UUID, m models.Moderation) (*models.Account, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListAllFeedback(ctx context.Context, page models.Page) ([]models.Feedback, int, error)
	GetFeedback(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.Feedback, error)
	RemoveFeedback(ctx context.Context, fb *models.Feedback, now time.Time) error
}

type swapStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Swap, error)
	List(ctx context.Context, f models.SwapFilter) ([]*models.Swap, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context, userID *uuid.UUID) (models.SwapStats, error)
}

type reportStore interface {
	UserTotals(ctx context.Context) (models.UserTotals, error)
	PeriodCounts(ctx context.Context, since time.Time) (models.PeriodCounts, error)
	NotificationsByType(ctx context.Context) (map[string]int, error)
	TopSkills(ctx context.Context, wanted bool, limit int) ([]models.SkillCount, error)
	UserReport(ctx context.Context, r models.ReportRange) (models.UserReport, error)
	SwapReport(ctx context.Context, r models.ReportRange) (models.SwapReport, error)
	FeedbackReport(ctx context.Context, r models.ReportRange) (models.FeedbackReport, error)
}

type broadcastStore interface {
	Broadcast(ctx context.Context, b models.Broadcast, now time.Time) ([]uuid.UUID, error)
}

type txRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Notifier уведомляет пользователей о действиях модераторов
type Notifier interface {
	NotifyQuietly(ctx context.Context, n models.NewNotification)
	RefreshUnread(ctx context.Context, userIDs ...uuid.UUID)
}

// Stores - хранилища, с которыми работает админка
type Stores struct {
	Admins        adminStore
	Accounts      accountStore
	Swaps         swapStore
	Reports       reportStore
	Notifications broadcastStore
	Tx            txRunner
}

// AdminService - административная модерация платформы
type AdminService struct {
	admins        adminStore
	accounts      accountStore
	swaps         swapStore
	reports       reportStore
	notifications broadcastStore
	tx            txRunner
	notifier      Notifier
	jwtService    *utils.JWTService
	limiter       *middleware.RateLimiter
	now           func() time.Time
}

// NewAdminService создает новый экземпляр AdminService
func NewAdminService(stores Stores, notifier Notifier, jwtService *utils.JWTService) *AdminService {
	return &AdminService{
		admins:        stores.Admins,
		accounts:      stores.Accounts,
		swaps:         stores.Swaps,
		reports:       stores.Reports,
		notifications: stores.Notifications,
		tx:            stores.Tx,
		notifier:      notifier,
		jwtService:    jwtService,
		now:           time.Now,
	}
}

// WithLimiter ограничивает частоту попыток входа
func (s *AdminService) WithLimiter(limiter *middleware.RateLimiter) *AdminService {
	s.limiter = limiter
	return s
}

// WithNow подменяет часы
func (s *AdminService) WithNow(now func() time.Time) *AdminService {
	s.now = now
	return s
}

var (
	errInvalidCredentials = models.Errorf(models.ErrUnauthorized, "Invalid credentials")
	errAccountLocked      = models.Errorf(models.ErrLocked,
		"Account is temporarily locked due to too many failed login attempts")
)

// Session - токен администратора
type Session struct {
	Token string        `json:"token"`
	Admin *models.Admin `json:"admin"`
}

// Login проверяет пароль администратора.
// Каждая неудачная попытка учитывается, после MaxLoginAttempts вход блокируется.
func (s *AdminService) Login(ctx context.Context, email, password string) (*Session, error) {
	admin, err := s.admins.GetByEmail(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !admin.IsActive {
		return nil, models.Errorf(models.ErrForbidden, "Admin account is deactivated")
	}
	if admin.IsLocked(now) {
		return nil, errAccountLocked
	}

	if !utils.CheckPassword(admin.PasswordHash, password) {
		updated, err := s.admins.RegisterFailedLogin(ctx, admin.ID, now)
		if err != nil {
			return nil, err
		}
		if updated.IsLocked(now) {
			log.WithField("admin", admin.ID).Warn("⚠️ Вход администратора заблокирован")
		}
		return nil, errInvalidCredentials
	}

	if err := s.admins.RegisterSuccessfulLogin(ctx, admin.ID, now); err != nil {
		return nil, err
	}
	admin.LoginAttempts = 0
	admin.LockUntil = nil
	admin.LastLogin = &now

	token, err := s.jwtService.GenerateAdminToken(admin.ID)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, Admin: admin}, nil
}

// Dashboard собирает сводку для главной страницы
func (s *AdminService) Dashboard(ctx context.Context) (*models.Dashboard, error) {
	users, err := s.reports.UserTotals(ctx)
	if err != nil {
		return nil, err
	}
	swaps, err := s.swaps.Stats(ctx, nil)
	if err != nil {
		return nil, err
	}
	recent := models.NewPage(1, dashboardRecent, dashboardRecent)
	recentUsers, _, err := s.accounts.List(ctx, models.AccountFilter{Status: "all", Page: recent})
	if err != nil {
		return nil, err
	}
	recentSwaps, _, err := s.swaps.List(ctx, models.SwapFilter{Page: recent})
	if err != nil {
		return nil, err
	}
	return &models.Dashboard{
		Users:       users,
		Swaps:       swaps,
		RecentUsers: recentUsers,
		RecentSwaps: recentSwaps,
	}, nil
}

var userStatuses = map[string]bool{"": true, "all": true, "active": true, "banned": true, "unverified": true}

// ListUsers возвращает пользователей для модерации
func (s *AdminService) ListUsers(ctx context.Context, f models.AccountFilter) ([]*models.Account, models.Pagination, error) {
	if !userStatuses[f.Status] {
		return nil, models.Pagination{}, models.NewValidationError("status", "Invalid status filter")
	}
	users, total, err := s.accounts.List(ctx, f)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return users, f.Page.Paginate(total), nil
}

// UserDetail - пользователь со статистикой обменов
type UserDetail struct {
	User  *models.Account  `json:"user"`
	Swaps models.SwapStats `json:"swap_stats"`
}

// User возвращает пользователя со статистикой его обменов
func (s *AdminService) User(ctx context.Context, id uuid.UUID) (*UserDetail, error) {
	acc, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	stats, err := s.swaps.Stats(ctx, &id)
	if err != nil {
		return nil, err
	}
	return &UserDetail{User: acc, Swaps: stats}, nil
}

// UserModeration - изменения, доступные модератору
type UserModeration struct {
	IsBanned   *bool  `json:"is_banned"`
	IsVerified *bool  `json:"is_verified"`
	BanReason  string `json:"ban_reason"`
}

// ModerateUser блокирует, разблокирует или верифицирует пользователя.
// При блокировке пользователь получает уведомление с причиной.
func (s *AdminService) ModerateUser(ctx context.Context, id uuid.UUID, m UserModeration) (*models.Account, error) {
	if m.IsBanned == nil && m.IsVerified == nil {
		return nil, models.NewValidationError("user", "No fields to update")
	}
	reason := strings.TrimSpace(m.BanReason)
	if runes := []rune(reason); len(runes) > models.MaxCommentLength {
		return nil, models.NewValidationError("ban_reason", "Ban reason cannot be more than 500 characters")
	}

	before, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	acc, err := s.accounts.Moderate(ctx, id, models.Moderation{
		IsBanned:   m.IsBanned,
		IsVerified: m.IsVerified,
		BanReason:  reason,
	})
	if err != nil {
		return nil, err
	}

	if acc.IsBanned && !before.IsBanned {
		data := map[string]any{"adminMessage": true}
		if reason != "" {
			data["reason"] = reason
		}
		s.notifier.NotifyQuietly(ctx, models.NewNotification{
			UserID:  id,
			Type:    models.NotifyAdminMessage,
			Title:   "Account Suspended",
			Message: models.NoticeWithDetail("Your account has been suspended", ". Reason: ", reason),
			Data:    data,
		})
	}

	log.WithFields(log.Fields{
		"user":     id,
		"banned":   acc.IsBanned,
		"verified": acc.IsVerified,
	}).Info("Пользователь изменен модератором")
	return acc, nil
}

// DeleteUser удаляет пользователя вместе с его обменами и уведомлениями
func (s *AdminService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.accounts.GetByID(ctx, id); err != nil {
			return err
		}
		return s.accounts.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	log.WithField("user", id).Info("Пользователь удален модератором")
	return nil
}

// ListSwaps возвращает все обмены платформы
func (s *AdminService) ListSwaps(ctx context.Context, status *models.SwapStatus, page models.Page) ([]*models.Swap, models.Pagination, error) {
	swaps, total, err := s.swaps.List(ctx, models.SwapFilter{Status: status, Page: page})
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return swaps, page.Paginate(total), nil
}

// Swap возвращает обмен
func (s *AdminService) Swap(ctx context.Context, id uuid.UUID) (*models.Swap, error) {
	return s.swaps.GetByID(ctx, id)
}

// DeleteSwap удаляет обмен в любом статусе
func (s *AdminService) DeleteSwap(ctx context.Context, id uuid.UUID) error {
	if err := s.swaps.Delete(ctx, id); err != nil {
		return err
	}
	log.WithField("swap", id).Info("Обмен удален модератором")
	return nil
}

// ListFeedback возвращает все отзывы платформы
func (s *AdminService) ListFeedback(ctx context.Context, page models.Page) ([]models.Feedback, models.Pagination, error) {
	items, total, err := s.accounts.ListAllFeedback(ctx, page)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return items, page.Paginate(total), nil
}

// DeleteFeedback удаляет отзыв без ограничения по времени и пересчитывает рейтинг получателя
func (s *AdminService) DeleteFeedback(ctx context.Context, id uuid.UUID) error {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		fb, err := s.accounts.GetFeedback(ctx, id, true)
		if err != nil {
			return err
		}
		return s.accounts.RemoveFeedback(ctx, fb, s.now())
	})
	if err != nil {
		return err
	}
	metrics.RecordFeedback("moderated")
	return nil
}

// Broadcast рассылает уведомление и возвращает число получателей
func (s *AdminService) Broadcast(ctx context.Context, b models.Broadcast) (int, error) {
	b.Title = strings.TrimSpace(b.Title)
	b.Message = strings.TrimSpace(b.Message)
	if b.Type == "" {
		b.Type = models.NotifyAdminMessage
	}
	if err := b.Validate(); err != nil {
		return 0, err
	}

	recipients, err := s.notifications.Broadcast(ctx, b, s.now())
	if err != nil {
		return 0, err
	}
	metrics.RecordNotification(string(b.Type), len(recipients))
	s.notifier.RefreshUnread(ctx, recipients...)

	log.WithFields(log.Fields{
		"type":       b.Type,
		"recipients": len(recipients),
	}).Info("📢 Рассылка отправлена")
	return len(recipients), nil
}

// Analytics считает показатели платформы за период
func (s *AdminService) Analytics(ctx context.Context, period models.AnalyticsPeriod) (*models.Analytics, error) {
	since := period.Since(s.now())

	counts, err := s.reports.PeriodCounts(ctx, since)
	if err != nil {
		return nil, err
	}
	byStatus, err := s.swaps.Stats(ctx, nil)
	if err != nil {
		return nil, err
	}
	byType, err := s.reports.NotificationsByType(ctx)
	if err != nil {
		return nil, err
	}
	offered, err := s.reports.TopSkills(ctx, false, models.TopSkillsLimit)
	if err != nil {
		return nil, err
	}
	wanted, err := s.reports.TopSkills(ctx, true, models.TopSkillsLimit)
	if err != nil {
		return nil, err
	}

	return &models.Analytics{
		Period:              period,
		Since:               since,
		Counts:              counts,
		SwapsByStatus:       byStatus,
		NotificationsByType: byType,
		TopSkillsOffered:    offered,
		TopSkillsWanted:     wanted,
	}, nil
}

// Report строит выгрузку выбранного вида
func (s *AdminService) Report(ctx context.Context, t models.ReportType, r models.ReportRange) (models.Report, error) {
	if r.From != nil && r.To != nil && r.To.Before(*r.From) {
		return nil, models.NewValidationError("to", "End date must be after start date")
	}
	switch t {
	case models.ReportUsers:
		return s.reports.UserReport(ctx, r)
	case models.ReportSwaps:
		return s.reports.SwapReport(ctx, r)
	case models.ReportFeedback:
		return s.reports.FeedbackReport(ctx, r)
	}
	return nil, models.NewValidationError("type", "Invalid report type")
}

// WriteCSV пишет выгрузку в CSV с заголовком
func WriteCSV(w io.Writer, r models.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(r.Header()); err != nil {
		return err
	}
	if err := cw.WriteAll(r.Records()); err != nil {
		return err
	}
	return cw.Error()
}

// AdminInput - данные нового администратора
type AdminInput struct {
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// assignableRole проверяет роль, которую можно выдать через API
func assignableRole(v *models.ValidationError, raw string) models.AdminRole {
	switch role := models.AdminRole(raw); role {
	case models.RoleAdmin, models.RoleModerator:
		return role
	case "":
		return models.RoleModerator
	}
	v.Add("role", "Role must be admin or moderator")
	return ""
}

// ListAdmins возвращает всех администраторов
func (s *AdminService) ListAdmins(ctx context.Context) ([]*models.Admin, error) {
	return s.admins.List(ctx)
}

// CreateAdmin создает администратора. Супер-админ заводится только через create-admin.
func (s *AdminService) CreateAdmin(ctx context.Context, in AdminInput) (*models.Admin, error) {
	v := &models.ValidationError{}
	models.ValidateName(v, in.Name)
	models.ValidateEmail(v, in.Email)
	if len([]rune(in.Password)) < models.MinAdminPassword {
		v.Add("password", "Password must be at least 8 characters")
	}
	role := assignableRole(v, in.Role)
	if err := v.Err(); err != nil {
		return nil, err
	}

	perms := models.DefaultPermissions(role)
	if in.Permissions != nil {
		parsed, err := models.ParsePermissions(in.Permissions)
		if err != nil {
			return nil, err
		}
		perms = parsed
	}

	if _, err := s.admins.GetByEmail(ctx, in.Email); err == nil {
		return nil, models.Errorf(models.ErrConflict, "Admin already exists with this email")
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	admin, err := s.admins.Create(ctx, models.NewAdmin{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		Permissions:  perms,
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"admin": admin.ID, "role": admin.Role}).Info("✅ Администратор создан")
	return admin, nil
}

// AdminPatch - изменение роли, прав или активности администратора
type AdminPatch struct {
	Name        *string   `json:"name"`
	Role        *string   `json:"role"`
	Permissions *[]string `json:"permissions"`
	IsActive    *bool     `json:"is_active"`
}

// UpdateAdmin меняет администратора. Супер-админа и собственную учетную запись
// через API не изменить.
func (s *AdminService) UpdateAdmin(ctx context.Context, actor *models.Admin, id uuid.UUID, p AdminPatch) (*models.Admin, error) {
	if p.Name == nil && p.Role == nil && p.Permissions == nil && p.IsActive == nil {
		return nil, models.NewValidationError("admin", "No fields to update")
	}
	target, err := s.admins.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if target.Role == models.RoleSuperAdmin {
		return nil, models.Errorf(models.ErrForbidden, "Super admin cannot be modified")
	}
	if target.ID == actor.ID {
		return nil, models.Errorf(models.ErrForbidden, "You cannot modify your own account")
	}

	u := models.AdminUpdate{Name: p.Name, IsActive: p.IsActive}
	v := &models.ValidationError{}
	if p.Name != nil {
		models.ValidateName(v, *p.Name)
	}
	if p.Role != nil {
		role := assignableRole(v, *p.Role)
		u.Role = &role
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	if p.Permissions != nil {
		perms, err := models.ParsePermissions(*p.Permissions)
		if err != nil {
			return nil, err
		}
		u.Permissions = &perms
	}

	return s.admins.Update(ctx, id, u)
}

// DeleteAdmin удаляет администратора
func (s *AdminService) DeleteAdmin(ctx context.Context, actor *models.Admin, id uuid.UUID) error {
	target, err := s.admins.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if target.Role == models.RoleSuperAdmin {
		return models.Errorf(models.ErrForbidden, "Super admin cannot be deleted")
	}
	if target.ID == actor.ID {
		return models.Errorf(models.ErrForbidden, "You cannot delete your own account")
	}
	if err := s.admins.Delete(ctx, id); err != nil {
		return err
	}
	log.WithFields(log.Fields{"admin": id, "by": actor.ID}).Info("Администратор удален")
	return nil
}
