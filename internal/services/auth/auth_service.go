package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	initdata "github.com/telegram-mini-apps/init-data-golang"

	"github.com/desmond009/Twin-up/internal/middleware"
	"github.com/desmond009/Twin-up/internal/models"
	"github.com/desmond009/Twin-up/internal/utils"
)

// telegramInitDataTTL - срок годности initData Telegram Mini App
const telegramInitDataTTL = 24 * time.Hour

type accountStore interface {
	Create(ctx context.Context, n models.NewAccount) (*models.Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.Account, error)
	SetPassword(ctx context.Context, id uuid.UUID, hash string) error
	TouchLastActive(ctx context.Context, id uuid.UUID) error
}

// Mailer отправляет письма аккаунта
type Mailer interface {
	SendWelcome(account *models.Account)
	SendPasswordReset(account *models.Account, token string)
}

// AuthService – структура для обработки авторизации
type AuthService struct {
	accounts         accountStore
	mailer           Mailer
	jwtService       *utils.JWTService
	limiter          *middleware.RateLimiter
	telegramBotToken string
}

// NewAuthService – конструктор AuthService
func NewAuthService(accounts accountStore, mailer Mailer, jwtService *utils.JWTService, limiter *middleware.RateLimiter, telegramBotToken string) *AuthService {
	return &AuthService{
		accounts:         accounts,
		mailer:           mailer,
		jwtService:       jwtService,
		limiter:          limiter,
		telegramBotToken: telegramBotToken,
	}
}

// Registration - данные регистрации
type Registration struct {
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	Password      string   `json:"password"`
	Location      string   `json:"location"`
	SkillsOffered []string `json:"skills_offered"`
	SkillsWanted  []string `json:"skills_wanted"`
	Availability  string   `json:"availability"`
}

// Validate проверяет поля регистрации
func (r *Registration) Validate() error {
	v := &models.ValidationError{}
	models.ValidateName(v, r.Name)
	models.ValidateEmail(v, r.Email)
	models.ValidatePassword(v, "password", r.Password)
	models.ValidateLocation(v, r.Location)
	models.ValidateSkills(v, "skills_offered", r.SkillsOffered)
	models.ValidateSkills(v, "skills_wanted", r.SkillsWanted)
	if r.Availability != "" {
		if _, err := models.ParseAvailability(r.Availability); err != nil {
			v.Add("availability", "Invalid availability status")
		}
	}
	return v.Err()
}

// Session - токен и аккаунт после входа
type Session struct {
	Token string          `json:"token"`
	User  *models.Account `json:"user"`
}

func (s *AuthService) session(acc *models.Account) (*Session, error) {
	token, err := s.jwtService.GenerateToken(acc.ID)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: acc}, nil
}

var errDuplicateEmail = models.Errorf(models.ErrConflict, "User already exists with this email")

// Register создает аккаунт по email и паролю
func (s *AuthService) Register(ctx context.Context, r Registration) (*Session, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	email := models.NormalizeEmail(r.Email)

	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return nil, errDuplicateEmail
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	hash, err := utils.HashPassword(r.Password)
	if err != nil {
		return nil, err
	}

	acc, err := s.accounts.Create(ctx, models.NewAccount{
		Name:          r.Name,
		Email:         email,
		PasswordHash:  hash,
		Location:      r.Location,
		SkillsOffered: r.SkillsOffered,
		SkillsWanted:  r.SkillsWanted,
		Availability:  models.Availability(r.Availability),
	})
	if errors.Is(err, models.ErrConflict) {
		return nil, errDuplicateEmail
	}
	if err != nil {
		return nil, err
	}

	s.mailer.SendWelcome(acc)
	return s.session(acc)
}

var errInvalidCredentials = models.Errorf(models.ErrUnauthorized, "Invalid credentials")

// Login проверяет email и пароль
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	acc, err := s.accounts.GetByEmail(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPassword(acc.PasswordHash, password) {
		return nil, errInvalidCredentials
	}
	if acc.IsBanned {
		return nil, models.Errorf(models.ErrForbidden, "Your account has been suspended")
	}

	s.touch(ctx, acc.ID)
	return s.session(acc)
}

// TelegramLogin проверяет initData Mini App и входит в связанный аккаунт,
// создавая его при первом входе
func (s *AuthService) TelegramLogin(ctx context.Context, rawInitData string) (*Session, error) {
	if s.telegramBotToken == "" {
		return nil, models.Errorf(models.ErrUnauthorized, "Telegram login is not configured")
	}
	if err := initdata.Validate(rawInitData, s.telegramBotToken, telegramInitDataTTL); err != nil {
		return nil, models.Errorf(models.ErrUnauthorized, "Invalid Telegram data")
	}
	data, err := initdata.Parse(rawInitData)
	if err != nil {
		return nil, models.NewValidationError("init_data", "Failed to parse initData")
	}

	acc, err := s.accounts.GetByTelegramID(ctx, data.User.ID)
	if errors.Is(err, models.ErrNotFound) {
		telegramID := data.User.ID
		acc, err = s.accounts.Create(ctx, models.NewAccount{
			Name:         telegramName(data.User),
			TelegramID:   &telegramID,
			ProfilePhoto: data.User.PhotoURL,
		})
	}
	if err != nil {
		return nil, err
	}
	if acc.IsBanned {
		return nil, models.Errorf(models.ErrForbidden, "Your account has been suspended")
	}

	s.touch(ctx, acc.ID)
	return s.session(acc)
}

func telegramName(u initdata.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if len([]rune(name)) < 2 {
		name = u.Username
	}
	if len([]rune(name)) < 2 {
		name = "Telegram user"
	}
	if r := []rune(name); len(r) > 50 {
		name = string(r[:50])
	}
	return name
}

// Me возвращает аккаунт текущего пользователя
func (s *AuthService) Me(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return s.accounts.GetByID(ctx, id)
}

// Refresh выдает новый токен для действующего аккаунта
func (s *AuthService) Refresh(ctx context.Context, id uuid.UUID) (*Session, error) {
	acc, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if acc.IsBanned {
		return nil, models.Errorf(models.ErrForbidden, "Your account has been suspended")
	}
	return s.session(acc)
}

// ChangePassword меняет пароль после проверки текущего
func (s *AuthService) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	v := &models.ValidationError{}
	if current == "" {
		v.Add("current_password", "Current password is required")
	}
	models.ValidatePassword(v, "new_password", next)
	if err := v.Err(); err != nil {
		return err
	}

	acc, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !utils.CheckPassword(acc.PasswordHash, current) {
		return models.Errorf(models.ErrUnauthorized, "Current password is incorrect")
	}
	return s.setPassword(ctx, id, next)
}

// ForgotPassword отправляет ссылку сброса, если адрес зарегистрирован.
// Результат не раскрывает, существует ли аккаунт.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	acc, err := s.accounts.GetByEmail(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if acc.PasswordHash == "" {
		return nil
	}

	token, err := s.jwtService.GenerateResetToken(acc.ID, acc.PasswordHash)
	if err != nil {
		return err
	}
	s.mailer.SendPasswordReset(acc, token)
	return nil
}

var errInvalidResetToken = models.Errorf(models.ErrValidation, "Invalid or expired reset token")

// ResetPassword задает новый пароль по ссылке сброса
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	v := &models.ValidationError{}
	models.ValidatePassword(v, "password", password)
	if err := v.Err(); err != nil {
		return err
	}

	id, fingerprint, err := s.jwtService.ExtractResetClaims(token)
	if err != nil {
		return errInvalidResetToken
	}
	acc, err := s.accounts.GetByID(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return errInvalidResetToken
	}
	if err != nil {
		return err
	}
	if utils.PasswordFingerprint(acc.PasswordHash) != fingerprint {
		return errInvalidResetToken
	}
	return s.setPassword(ctx, id, password)
}

func (s *AuthService) setPassword(ctx context.Context, id uuid.UUID, password string) error {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	return s.accounts.SetPassword(ctx, id, hash)
}

func (s *AuthService) touch(ctx context.Context, id uuid.UUID) {
	if err := s.accounts.TouchLastActive(ctx, id); err != nil {
		log.WithError(err).WithField("user", id).Warn("Не удалось обновить last_active")
	}
}
