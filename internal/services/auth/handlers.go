package auth

import (
	"github.com/gofiber/fiber/v3"

	"github.com/desmond009/Twin-up/internal/db"
	"github.com/desmond009/Twin-up/internal/middleware"
	"github.com/desmond009/Twin-up/internal/models"
)

// RegisterHandler регистрирует пользователя по email
func (s *AuthService) RegisterHandler(c fiber.Ctx) error {
	var req Registration
	if err := c.Bind().Body(&req); err != nil {
		return models.NewValidationError("body", "Invalid request body")
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	sess, err := s.Register(ctx, req)
	if err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusCreated, "User registered successfully", sess)
}

// LoginHandler выполняет вход по email и паролю
func (s *AuthService) LoginHandler(c fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return models.NewValidationError("body", "Invalid request body")
	}
	v := &models.ValidationError{}
	models.ValidateEmail(v, req.Email)
	if req.Password == "" {
		v.Add("password", "Password is required")
	}
	if err := v.Err(); err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	sess, err := s.Login(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusOK, "Login successful", sess)
}

// TelegramAuthHandler проверяет initData, создает JWT и возвращает его
func (s *AuthService) TelegramAuthHandler(c fiber.Ctx) error {
	var payload struct {
		InitData string `json:"init_data"`
	}
	if err := c.Bind().Body(&payload); err != nil || payload.InitData == "" {
		return models.NewValidationError("init_data", "Invalid request")
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	sess, err := s.TelegramLogin(ctx, payload.InitData)
	if err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusOK, "Login successful", sess)
}

// MeHandler возвращает текущего пользователя
func (s *AuthService) MeHandler(c fiber.Ctx) error {
	userID, err := middleware.MustUserID(c)
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	acc, err := s.Me(ctx, userID)
	if err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusOK, "", fiber.Map{"user": acc})
}

// LogoutHandler завершает сессию; токены не хранятся на сервере
func (s *AuthService) LogoutHandler(c fiber.Ctx) error {
	return middleware.Success(c, fiber.StatusOK, "Logged out successfully", nil)
}

// RefreshTokenHandler выдает новый токен
func (s *AuthService) RefreshTokenHandler(c fiber.Ctx) error {
	userID, err := middleware.MustUserID(c)
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	sess, err := s.Refresh(ctx, userID)
	if err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusOK, "Token refreshed successfully", fiber.Map{"token": sess.Token})
}

// ChangePasswordHandler меняет пароль текущего пользователя
func (s *AuthService) ChangePasswordHandler(c fiber.Ctx) error {
	userID, err := middleware.MustUserID(c)
	if err != nil {
		return err
	}

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return models.NewValidationError("body", "Invalid request body")
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	if err := s.ChangePassword(ctx, userID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusOK, "Password changed successfully", nil)
}

// ForgotPasswordHandler отправляет ссылку сброса пароля
func (s *AuthService) ForgotPasswordHandler(c fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return models.NewValidationError("body", "Invalid request body")
	}
	v := &models.ValidationError{}
	models.ValidateEmail(v, req.Email)
	if err := v.Err(); err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	if err := s.ForgotPassword(ctx, req.Email); err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusOK,
		"If an account with that email exists, a password reset link has been sent", nil)
}

// ResetPasswordHandler задает новый пароль по токену из письма
func (s *AuthService) ResetPasswordHandler(c fiber.Ctx) error {
	var req struct {
		Password string `json:"password"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return models.NewValidationError("body", "Invalid request body")
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	if err := s.ResetPassword(ctx, c.Params("token"), req.Password); err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusOK, "Password reset successfully", nil)
}
