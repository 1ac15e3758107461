package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	log "github.com/sirupsen/logrus"

	"github.com/desmond009/Twin-up/internal/config"
	"github.com/desmond009/Twin-up/internal/db"
	"github.com/desmond009/Twin-up/internal/mailer"
	"github.com/desmond009/Twin-up/internal/middleware"
	"github.com/desmond009/Twin-up/internal/ops"
	"github.com/desmond009/Twin-up/internal/scheduler"
	"github.com/desmond009/Twin-up/internal/services/admin"
	"github.com/desmond009/Twin-up/internal/services/auth"
	"github.com/desmond009/Twin-up/internal/services/cloudinary"
	"github.com/desmond009/Twin-up/internal/services/feedback"
	"github.com/desmond009/Twin-up/internal/services/notification"
	"github.com/desmond009/Twin-up/internal/services/swap"
	"github.com/desmond009/Twin-up/internal/services/user"
	"github.com/desmond009/Twin-up/internal/utils"
	"github.com/desmond009/Twin-up/internal/websocket"
)

func main() {
	// Загружаем конфигурацию
	cfg := config.LoadConfig()
	config.SetupLogger(cfg.LogConfig)

	// Применяем миграции
	if cfg.DatabaseConfig.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err := db.Migrate(ctx, cfg.DSN())
		cancel()
		if err != nil {
			log.Fatalf("❌ Ошибка миграций: %v", err)
		}
	}

	// Инициализируем базу данных
	pool, err := db.InitDB(cfg)
	if err != nil {
		log.Fatalf("❌ Ошибка при инициализации базы данных: %v", err)
	}
	defer pool.Close()

	// Хранилища
	accounts := db.NewAccountStore(pool)
	swaps := db.NewSwapStore(pool)
	notifications := db.NewNotificationStore(pool)
	admins := db.NewAdminStore(pool)
	reports := db.NewReportStore(pool)
	tx := db.NewTxManager(pool)

	jwtService := utils.NewJWTService(cfg.JWTSecret, cfg.JWTTTL, cfg.AdminJWTTTL)
	mail := mailer.FromConfig(cfg)
	wsManager := websocket.NewManager()

	done := make(chan struct{})
	limiter := middleware.NewRateLimiter(cfg.RateLimitConfig.AuthPerSecond, cfg.RateLimitConfig.AuthBurst)
	limiter.StartCleanup(10*time.Minute, done)

	// Создаём сервисы
	cloudinaryService, err := cloudinary.NewCloudinaryService(cfg.CloudinaryConfig, jwtService)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	notificationService := notification.NewNotificationService(notifications, tx, wsManager, jwtService)
	swapService := swap.NewSwapService(swaps, accounts, notificationService, mail, jwtService)
	feedbackService := feedback.NewFeedbackService(swaps, accounts, tx, notificationService, mail, jwtService)
	userService := user.NewUserService(accounts, tx, cloudinaryService, jwtService)
	authService := auth.NewAuthService(accounts, mail, jwtService, limiter, cfg.TelegramBotToken)
	adminService := admin.NewAdminService(admin.Stores{
		Admins:        admins,
		Accounts:      accounts,
		Swaps:         swaps,
		Reports:       reports,
		Notifications: notifications,
		Tx:            tx,
	}, notificationService, jwtService).WithLimiter(limiter)

	// Создаём экземпляр Fiber
	app := fiber.New(fiber.Config{
		AppName:      "Skill Swap API",
		ErrorHandler: middleware.ErrorHandler,
		BodyLimit:    cfg.HTTPConfig.BodyLimitMB << 20,
	})

	// Добавляем middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(middleware.Metrics())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.HTTPConfig.CORSOrigins,
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowCredentials: false,
	}))

	// Регистрируем маршруты
	authService.SetupRoutes(app)
	userService.SetupRoutes(app)
	swapService.SetupRoutes(app)
	feedbackService.SetupRoutes(app)
	notificationService.SetupRoutes(app)
	adminService.SetupRoutes(app)
	cloudinaryService.SetupRoutes(app)

	// Служебный сервер: здоровье, метрики и WebSocket
	opsServer := ops.NewServer(":"+cfg.HTTPConfig.OpsPort,
		ops.NewRouter(pool, wsManager.Handler(jwtService, notifications)))
	go func() {
		log.Printf("✅ Служебный сервер запущен на порту %s", cfg.HTTPConfig.OpsPort)
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Ошибка служебного сервера: %v", err)
		}
	}()

	// Очистка старых уведомлений
	retention := scheduler.NewRetention(notifications, cfg.NotificationConfig.RetentionDays)
	if err := retention.Start(cfg.NotificationConfig.SweepSpec); err != nil {
		log.Fatalf("❌ Неверное расписание очистки уведомлений: %v", err)
	}

	// Запускаем сервер
	go func() {
		log.Printf("✅ Skill Swap API запущен на порту %s", cfg.HTTPConfig.Port)
		if err := app.Listen(":"+cfg.HTTPConfig.Port, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
			log.Fatalf("❌ Ошибка HTTP сервера: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Остановка сервера...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.WithError(err).Error("Ошибка остановки HTTP сервера")
	}
	if err := opsServer.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Ошибка остановки служебного сервера")
	}
	close(done)
	retention.Stop()
	wsManager.Shutdown()
	mail.Wait()
	log.Println("✅ Сервер остановлен")
}
