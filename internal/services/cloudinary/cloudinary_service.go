package cloudinary

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/gofiber/fiber/v3"
	log "github.com/sirupsen/logrus"

	"github.com/desmond009/Twin-up/internal/config"
	"github.com/desmond009/Twin-up/internal/middleware"
	"github.com/desmond009/Twin-up/internal/utils"
)

// ErrNotConfigured возвращается, если ключи Cloudinary не заданы
var ErrNotConfigured = errors.New("photo storage is not configured")

// assetAPI - часть uploader.API, которой пользуется сервис
type assetAPI interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

// CloudinaryService хранит фотографии профилей в Cloudinary
type CloudinaryService struct {
	cfg        config.CloudinaryConfig
	assets     assetAPI
	jwtService *utils.JWTService
	now        func() time.Time
}

// NewCloudinaryService создает новый экземпляр CloudinaryService.
// Без ключей сервис работает, но загрузка возвращает ErrNotConfigured.
func NewCloudinaryService(cfg config.CloudinaryConfig, jwtService *utils.JWTService) (*CloudinaryService, error) {
	s := &CloudinaryService{cfg: cfg, jwtService: jwtService, now: time.Now}
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		log.Warn("⚠️ Cloudinary не настроен, загрузка фото отключена")
		return s, nil
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации Cloudinary: %w", err)
	}
	s.assets = &cld.Upload
	return s, nil
}

// WithNow подменяет часы
func (s *CloudinaryService) WithNow(now func() time.Time) *CloudinaryService {
	s.now = now
	return s
}

// Upload загружает изображение в папку профилей и возвращает https-адрес
func (s *CloudinaryService) Upload(ctx context.Context, file io.Reader, publicID string) (string, error) {
	if s.assets == nil {
		return "", ErrNotConfigured
	}

	res, err := s.assets.Upload(ctx, file, uploader.UploadParams{
		Folder:         s.cfg.UploadFolder,
		PublicID:       publicID,
		Overwrite:      api.Bool(true),
		ResourceType:   "image",
		Transformation: "c_fill,g_face,w_400,h_400",
	})
	if err != nil {
		return "", fmt.Errorf("ошибка загрузки в Cloudinary: %w", err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("ошибка загрузки в Cloudinary: %s", res.Error.Message)
	}
	return res.SecureURL, nil
}

// Destroy удаляет изображение по сохраненному адресу
func (s *CloudinaryService) Destroy(ctx context.Context, url string) error {
	if s.assets == nil {
		return ErrNotConfigured
	}
	publicID := PublicIDFromURL(url)
	if publicID == "" {
		return fmt.Errorf("не удалось определить public id: %s", url)
	}

	res, err := s.assets.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("ошибка удаления из Cloudinary: %w", err)
	}
	if res.Error.Message != "" {
		return fmt.Errorf("ошибка удаления из Cloudinary: %s", res.Error.Message)
	}
	return nil
}

var versionSegment = regexp.MustCompile(`^v\d+$`)

// PublicIDFromURL извлекает public id из адреса доставки:
// .../image/upload/[transformations/][v123/]folder/name.jpg -> folder/name
func PublicIDFromURL(url string) string {
	_, rest, ok := strings.Cut(url, "/upload/")
	if !ok {
		return ""
	}

	parts := strings.Split(rest, "/")
	for i, p := range parts {
		if versionSegment.MatchString(p) {
			parts = parts[i+1:]
			break
		}
	}
	if len(parts) == 0 {
		return ""
	}

	last := parts[len(parts)-1]
	if dot := strings.LastIndex(last, "."); dot > 0 {
		parts[len(parts)-1] = last[:dot]
	}
	return strings.Join(parts, "/")
}

// GenerateSignature подписывает параметры прямой загрузки
func (s *CloudinaryService) GenerateSignature(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	signParts := make([]string, 0, len(keys))
	for _, k := range keys {
		signParts = append(signParts, k+"="+params[k])
	}

	h := sha1.New()
	h.Write([]byte(strings.Join(signParts, "&") + s.cfg.APISecret))
	return hex.EncodeToString(h.Sum(nil))
}

// UploadParams - подписанные параметры для загрузки с клиента
type UploadParams struct {
	Timestamp    string `json:"timestamp"`
	Signature    string `json:"signature"`
	APIKey       string `json:"api_key"`
	CloudName    string `json:"cloud_name"`
	Folder       string `json:"folder"`
	UploadPreset string `json:"upload_preset"`
}

// SignedUploadParams создает параметры прямой загрузки в папку профилей
func (s *CloudinaryService) SignedUploadParams() (*UploadParams, error) {
	if s.assets == nil {
		return nil, ErrNotConfigured
	}
	timestamp := strconv.FormatInt(s.now().Unix(), 10)
	params := map[string]string{
		"folder":        s.cfg.UploadFolder,
		"timestamp":     timestamp,
		"upload_preset": s.cfg.UploadPreset,
	}
	return &UploadParams{
		Timestamp:    timestamp,
		Signature:    s.GenerateSignature(params),
		APIKey:       s.cfg.APIKey,
		CloudName:    s.cfg.CloudName,
		Folder:       s.cfg.UploadFolder,
		UploadPreset: s.cfg.UploadPreset,
	}, nil
}

// GenerateUploadParams отдает клиенту подписанные параметры загрузки
func (s *CloudinaryService) GenerateUploadParams(c fiber.Ctx) error {
	params, err := s.SignedUploadParams()
	if err != nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "Photo storage is not configured")
	}
	return middleware.Success(c, fiber.StatusOK, "", params)
}
