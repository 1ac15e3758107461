// create-admin заводит супер-администратора, которого нельзя создать через API
package main

import (
	"errors"
	"flag"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/desmond009/Twin-up/internal/config"
	"github.com/desmond009/Twin-up/internal/db"
	"github.com/desmond009/Twin-up/internal/models"
	"github.com/desmond009/Twin-up/internal/utils"
)

func main() {
	name := flag.String("name", "Super Admin", "display name")
	email := flag.String("email", os.Getenv("ADMIN_EMAIL"), "admin email")
	password := flag.String("password", os.Getenv("ADMIN_PASSWORD"), "admin password (at least 8 characters)")
	flag.Parse()

	cfg := config.LoadConfig()
	config.SetupLogger(cfg.LogConfig)

	v := &models.ValidationError{}
	models.ValidateName(v, *name)
	models.ValidateEmail(v, *email)
	if len([]rune(*password)) < models.MinAdminPassword {
		v.Add("password", "Password must be at least 8 characters")
	}
	if err := v.Err(); err != nil {
		log.Fatalf("❌ %v", err)
	}

	pool, err := db.InitDB(cfg)
	if err != nil {
		log.Fatalf("❌ Ошибка при инициализации базы данных: %v", err)
	}
	defer pool.Close()

	ctx, cancel := db.GetContext()
	defer cancel()

	admins := db.NewAdminStore(pool)
	if existing, err := admins.GetByEmail(ctx, *email); err == nil {
		log.Warnf("⚠️ Администратор %s уже существует (роль %s)", existing.Email, existing.Role)
		return
	} else if !errors.Is(err, models.ErrNotFound) {
		log.Fatalf("❌ %v", err)
	}

	hash, err := utils.HashPassword(*password)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	admin, err := admins.Create(ctx, models.NewAdmin{
		Name:         *name,
		Email:        *email,
		PasswordHash: hash,
		Role:         models.RoleSuperAdmin,
		Permissions:  models.DefaultPermissions(models.RoleSuperAdmin),
	})
	if err != nil {
		log.Fatalf("❌ Не удалось создать администратора: %v", err)
	}
	log.WithField("id", admin.ID).Infof("✅ Супер-администратор %s создан", admin.Email)
}
