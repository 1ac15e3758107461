package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Виды токенов. Токен одного вида не принимается там, где ожидается другой.
const (
	KindUser  = "user"
	KindAdmin = "admin"
	KindReset = "reset"
)

// ResetTokenTTL - срок жизни ссылки сброса пароля
const ResetTokenTTL = time.Hour

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrTokenKind    = errors.New("unexpected token kind")
)

// JWTService отвечает за создание и валидацию JWT токенов
type JWTService struct {
	secretKey string
	userTTL   time.Duration
	adminTTL  time.Duration
	now       func() time.Time
}

// NewJWTService создаёт новый экземпляр JWTService
func NewJWTService(secretKey string, userTTL, adminTTL time.Duration) *JWTService {
	return &JWTService{
		secretKey: secretKey,
		userTTL:   userTTL,
		adminTTL:  adminTTL,
		now:       time.Now,
	}
}

func (s *JWTService) sign(subject uuid.UUID, kind string, ttl time.Duration, extra jwt.MapClaims) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"user_id": subject.String(),
		"kind":    kind,
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	}
	for k, v := range extra {
		claims[k] = v
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secretKey))
}

// GenerateToken создаёт токен пользователя
func (s *JWTService) GenerateToken(userID uuid.UUID) (string, error) {
	return s.sign(userID, KindUser, s.userTTL, nil)
}

// GenerateAdminToken создаёт токен администратора
func (s *JWTService) GenerateAdminToken(adminID uuid.UUID) (string, error) {
	return s.sign(adminID, KindAdmin, s.adminTTL, nil)
}

// GenerateResetToken создаёт одноразовую ссылку сброса пароля.
// Токен перестает подходить, как только меняется хеш пароля.
func (s *JWTService) GenerateResetToken(userID uuid.UUID, passwordHash string) (string, error) {
	return s.sign(userID, KindReset, ResetTokenTTL, jwt.MapClaims{
		"pwd": PasswordFingerprint(passwordHash),
	})
}

// ValidateToken проверяет JWT токен
func (s *JWTService) ValidateToken(tokenString string) (*jwt.Token, error) {
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.secretKey), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
}

func (s *JWTService) claims(tokenString, kind string) (jwt.MapClaims, uuid.UUID, error) {
	token, err := s.ValidateToken(tokenString)
	if err != nil || !token.Valid {
		return nil, uuid.Nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, uuid.Nil, ErrInvalidToken
	}
	if k, _ := claims["kind"].(string); k != kind {
		return nil, uuid.Nil, ErrTokenKind
	}

	raw, _ := claims["user_id"].(string)
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, uuid.Nil, ErrInvalidToken
	}
	return claims, id, nil
}

// ExtractUserID возвращает ID пользователя из токена пользователя
func (s *JWTService) ExtractUserID(tokenString string) (string, error) {
	_, id, err := s.claims(tokenString, KindUser)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ExtractAdminID возвращает ID администратора из токена администратора
func (s *JWTService) ExtractAdminID(tokenString string) (string, error) {
	_, id, err := s.claims(tokenString, KindAdmin)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ExtractResetClaims возвращает пользователя и отпечаток пароля из ссылки сброса
func (s *JWTService) ExtractResetClaims(tokenString string) (uuid.UUID, string, error) {
	claims, id, err := s.claims(tokenString, KindReset)
	if err != nil {
		return uuid.Nil, "", err
	}
	fingerprint, _ := claims["pwd"].(string)
	return id, fingerprint, nil
}

// PasswordFingerprint - короткий отпечаток хеша пароля для ссылки сброса
func PasswordFingerprint(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash))
	return hex.EncodeToString(sum[:8])
}
