package user

import (
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/desmond009/Twin-up/internal/db"
	"github.com/desmond009/Twin-up/internal/middleware"
	"github.com/desmond009/Twin-up/internal/models"
)

const defaultListLimit = 10

// SearchUsers ищет пользователей (публичный маршрут)
func (s *UserService) SearchUsers(c fiber.Ctx) error {
	f := models.AccountSearch{
		Query:         c.Query("q"),
		SkillsOffered: middleware.QueryList(c, "skills_offered"),
		SkillsWanted:  middleware.QueryList(c, "skills_wanted"),
		Location:      c.Query("location"),
		Page:          middleware.PageFromQuery(c, defaultListLimit),
	}
	if raw := c.Query("availability"); raw != "" {
		a, err := models.ParseAvailability(raw)
		if err != nil {
			return err
		}
		f.Availability = &a
	}
	if viewer, ok := middleware.UserID(c); ok {
		f.ExcludeID = &viewer
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	users, pagination, err := s.Search(ctx, f)
	if err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusOK, "", fiber.Map{"users": users, "pagination": pagination})
}

// GetUserProfile возвращает профиль пользователя
func (s *UserService) GetUserProfile(c fiber.Ctx) error {
	id, err := middleware.ParamUUID(c, "id")
	if err != nil {
		return err
	}
	var viewer *uuid.UUID
	if v, ok := middleware.UserID(c); ok {
		viewer = &v
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	acc, err := s.Profile(ctx, viewer, id)
	if err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusOK, "", fiber.Map{"user": acc})
}

// GetMyProfile возвращает профиль текущего пользователя
func (s *UserService) GetMyProfile(c fiber.Ctx) error {
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

// UpdateMyProfile обновляет профиль текущего пользователя
func (s *UserService) UpdateMyProfile(c fiber.Ctx) error {
	userID, err := middleware.MustUserID(c)
	if err != nil {
		return err
	}

	var req models.ProfileUpdate
	if err := c.Bind().Body(&req); err != nil {
		return models.NewValidationError("body", "Invalid request body")
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	acc, err := s.UpdateProfile(ctx, userID, req)
	if err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusOK, "Profile updated successfully", fiber.Map{"user": acc})
}

// UpdateMyAvailability меняет статус доступности
func (s *UserService) UpdateMyAvailability(c fiber.Ctx) error {
	userID, err := middleware.MustUserID(c)
	if err != nil {
		return err
	}

	var req struct {
		Availability string `json:"availability"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return models.NewValidationError("body", "Invalid request body")
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	acc, err := s.UpdateAvailability(ctx, userID, req.Availability)
	if err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusOK, "Availability updated successfully",
		fiber.Map{"availability": acc.Availability})
}

// UploadMyPhoto загружает фото профиля из поля photo
func (s *UserService) UploadMyPhoto(c fiber.Ctx) error {
	userID, err := middleware.MustUserID(c)
	if err != nil {
		return err
	}

	fh, err := c.FormFile("photo")
	if err != nil {
		return models.NewValidationError("photo", "Please upload a file")
	}
	file, err := fh.Open()
	if err != nil {
		return models.NewValidationError("photo", "Please upload a file")
	}
	defer file.Close()

	ctx, cancel := db.GetContext()
	defer cancel()

	acc, err := s.UploadPhoto(ctx, userID, Photo{
		Body:        file,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
	})
	if err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusOK, "Profile photo uploaded successfully",
		fiber.Map{"profile_photo": acc.ProfilePhoto})
}

// RemoveMyPhoto удаляет фото профиля
func (s *UserService) RemoveMyPhoto(c fiber.Ctx) error {
	userID, err := middleware.MustUserID(c)
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	if err := s.RemovePhoto(ctx, userID); err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusOK, "Profile photo removed successfully", nil)
}

// GetMyFeedback возвращает отзывы о текущем пользователе
func (s *UserService) GetMyFeedback(c fiber.Ctx) error {
	userID, err := middleware.MustUserID(c)
	if err != nil {
		return err
	}
	return s.respondFeedback(c, userID)
}

// GetUserFeedback возвращает отзывы о пользователе
func (s *UserService) GetUserFeedback(c fiber.Ctx) error {
	id, err := middleware.ParamUUID(c, "id")
	if err != nil {
		return err
	}
	return s.respondFeedback(c, id)
}

func (s *UserService) respondFeedback(c fiber.Ctx, id uuid.UUID) error {
	ctx, cancel := db.GetContext()
	defer cancel()

	items, pagination, err := s.Feedback(ctx, id, middleware.PageFromQuery(c, defaultListLimit))
	if err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusOK, "", fiber.Map{"feedback": items, "pagination": pagination})
}

// DeleteMyAccount удаляет аккаунт текущего пользователя
func (s *UserService) DeleteMyAccount(c fiber.Ctx) error {
	userID, err := middleware.MustUserID(c)
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	if err := s.DeleteAccount(ctx, userID); err != nil {
		return err
	}
	return middleware.Success(c, fiber.StatusOK, "Account deleted successfully", nil)
}
