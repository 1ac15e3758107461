package user

import (
	"context"
	"io"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/desmond009/Twin-up/internal/models"
	"github.com/desmond009/Twin-up/internal/utils"
)

const (
	// MaxPhotoSize - максимальный размер фото профиля
	MaxPhotoSize        = 5 << 20
	recentFeedbackLimit = 5
)

var photoTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

type accountStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, u models.ProfileUpdate) (*models.Account, error)
	SetProfilePhoto(ctx context.Context, id uuid.UUID, url string) (*models.Account, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, f models.AccountSearch) ([]*models.Account, int, error)
	RecentFeedback(ctx context.Context, accountID uuid.UUID, limit int) ([]models.Feedback, error)
	ListFeedback(ctx context.Context, accountID uuid.UUID, page models.Page) ([]models.Feedback, int, error)
}

type txRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// PhotoStorage хранит фотографии профилей
type PhotoStorage interface {
	Upload(ctx context.Context, file io.Reader, publicID string) (string, error)
	Destroy(ctx context.Context, url string) error
}

// UserService отвечает за поиск и профили пользователей
type UserService struct {
	accounts   accountStore
	tx         txRunner
	photos     PhotoStorage
	jwtService *utils.JWTService
}

// NewUserService создает новый экземпляр UserService
func NewUserService(accounts accountStore, tx txRunner, photos PhotoStorage, jwtService *utils.JWTService) *UserService {
	return &UserService{
		accounts:   accounts,
		tx:         tx,
		photos:     photos,
		jwtService: jwtService,
	}
}

// Search ищет публичных пользователей по навыкам, имени и местоположению
func (s *UserService) Search(ctx context.Context, f models.AccountSearch) ([]*models.Account, models.Pagination, error) {
	f.SkillsOffered = models.NormalizeSkills(f.SkillsOffered)
	f.SkillsWanted = models.NormalizeSkills(f.SkillsWanted)

	users, total, err := s.accounts.Search(ctx, f)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	for _, u := range users {
		u.Email = ""
	}
	return users, f.Page.Paginate(total), nil
}

// Profile возвращает профиль пользователя с последними отзывами.
// Закрытый профиль виден только владельцу.
func (s *UserService) Profile(ctx context.Context, viewer *uuid.UUID, id uuid.UUID) (*models.Account, error) {
	acc, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	owner := viewer != nil && *viewer == acc.ID
	if !acc.IsPublic && !owner {
		return nil, models.Errorf(models.ErrForbidden, "Profile is private")
	}
	if !owner {
		acc.Email = ""
	}

	if acc.RecentFeedback, err = s.accounts.RecentFeedback(ctx, acc.ID, recentFeedbackLimit); err != nil {
		return nil, err
	}
	return acc, nil
}

// Me возвращает собственный профиль
func (s *UserService) Me(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return s.Profile(ctx, &id, id)
}

// UpdateProfile применяет частичное обновление профиля
func (s *UserService) UpdateProfile(ctx context.Context, id uuid.UUID, u models.ProfileUpdate) (*models.Account, error) {
	if u.IsEmpty() {
		return nil, models.NewValidationError("body", "No fields to update")
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return s.accounts.UpdateProfile(ctx, id, u)
}

// UpdateAvailability меняет только статус доступности
func (s *UserService) UpdateAvailability(ctx context.Context, id uuid.UUID, availability string) (*models.Account, error) {
	a, err := models.ParseAvailability(availability)
	if err != nil {
		return nil, err
	}
	value := string(a)
	return s.accounts.UpdateProfile(ctx, id, models.ProfileUpdate{Availability: &value})
}

// Photo - загружаемый файл фото
type Photo struct {
	Body        io.Reader
	Size        int64
	ContentType string
}

// Validate проверяет размер и тип файла
func (p Photo) Validate() error {
	if p.Body == nil || p.Size == 0 {
		return models.NewValidationError("photo", "Please upload a file")
	}
	if p.Size > MaxPhotoSize {
		return models.NewValidationError("photo", "File size must not exceed 5MB")
	}
	mime, _, _ := strings.Cut(p.ContentType, ";")
	if !photoTypes[strings.TrimSpace(mime)] {
		return models.NewValidationError("photo", "Only image files are allowed")
	}
	return nil
}

// UploadPhoto загружает новое фото и удаляет прежнее
func (s *UserService) UploadPhoto(ctx context.Context, id uuid.UUID, p Photo) (*models.Account, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	current, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	url, err := s.photos.Upload(ctx, p.Body, "user-"+id.String())
	if err != nil {
		return nil, err
	}
	acc, err := s.accounts.SetProfilePhoto(ctx, id, url)
	if err != nil {
		return nil, err
	}

	if current.ProfilePhoto != "" && current.ProfilePhoto != url {
		s.destroyQuietly(ctx, current.ProfilePhoto)
	}
	return acc, nil
}

// RemovePhoto удаляет фото профиля
func (s *UserService) RemovePhoto(ctx context.Context, id uuid.UUID) error {
	acc, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if acc.ProfilePhoto == "" {
		return nil
	}
	if _, err := s.accounts.SetProfilePhoto(ctx, id, ""); err != nil {
		return err
	}
	s.destroyQuietly(ctx, acc.ProfilePhoto)
	return nil
}

// DeleteAccount удаляет аккаунт вместе с обменами, уведомлениями и отзывами автора
func (s *UserService) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	acc, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.accounts.Delete(ctx, id)
	}); err != nil {
		return err
	}
	if acc.ProfilePhoto != "" {
		s.destroyQuietly(ctx, acc.ProfilePhoto)
	}
	return nil
}

// Feedback возвращает отзывы о пользователе, новые первыми
func (s *UserService) Feedback(ctx context.Context, id uuid.UUID, page models.Page) ([]models.Feedback, models.Pagination, error) {
	if _, err := s.accounts.GetByID(ctx, id); err != nil {
		return nil, models.Pagination{}, err
	}
	items, total, err := s.accounts.ListFeedback(ctx, id, page)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return items, page.Paginate(total), nil
}

func (s *UserService) destroyQuietly(ctx context.Context, url string) {
	if err := s.photos.Destroy(ctx, url); err != nil {
		log.WithError(err).WithField("url", url).Warn("Не удалось удалить фото из хранилища")
	}
}
