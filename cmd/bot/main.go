package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"timetracker-bot/internal/config"
	"timetracker-bot/internal/events"
	"timetracker-bot/internal/handler"
	"timetracker-bot/internal/i18n"
	"timetracker-bot/internal/notify"
	"timetracker-bot/internal/repository"
	"timetracker-bot/internal/scheduler"
	"timetracker-bot/internal/server"
	"timetracker-bot/internal/service"
	"timetracker-bot/internal/session"
	"timetracker-bot/internal/wizard"
	"timetracker-bot/pkg/telegram"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const notifyBufferSize = 256

func main() {
	logrus.Info("Initializing config...")
	cfg := config.GetBotConfig()
	logrus.Info("Config initialized...")

	logger := logrus.StandardLogger()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warnf("Unknown log level %q, using info", cfg.LogLevel)
	}

	i18n.Init(cfg.Locale)

	db, err := openDatabase(cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.WithError(err).Fatal("Failed to get database instance")
	}

	userRepo, err := repository.NewGormUserRepository(db)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create user repository")
	}
	workLogRepo, err := repository.NewGormWorkLogRepository(db, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create work log repository")
	}
	absenceRepo, err := repository.NewGormAbsenceRequestRepository(db, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create absence repository")
	}
	nonWorkingDayRepo, err := repository.NewGormNonWorkingDayRepository(db)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create non-working day repository")
	}

	bus := events.NewBus(logger)

	userService := service.NewUserService(userRepo, bus, logger)
	workLogService := service.NewWorkLogService(workLogRepo, bus, logger)
	absenceService := service.NewAbsenceService(absenceRepo, userRepo, bus, logger)
	teamService := service.NewTeamService(userRepo, workLogRepo, absenceRepo, bus, logger)
	nonWorkingDayService := service.NewNonWorkingDayService(nonWorkingDayRepo, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Инициализируем администратора из конфига
	if err := userService.EnsureAdmin(ctx, cfg.BaseAdminChatID); err != nil {
		logger.Warnf("Failed to initialize admin: %v", err)
	} else if cfg.BaseAdminChatID != 0 {
		logger.Infof("Admin initialized with chat ID: %d", cfg.BaseAdminChatID)
	}

	// Производственный календарь
	if cfg.CalendarFile != "" {
		if _, err := nonWorkingDayService.LoadFromJSON(ctx, cfg.CalendarFile); err != nil {
			logger.WithError(err).Warn("Failed to load production calendar")
		}
	}

	client, err := telegram.NewClient(cfg.TelegramToken, cfg.TelegramDebug)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create Telegram client")
	}
	logger.Infof("Authorized on account %s", client.Bot.Self.UserName)

	dispatcher := notify.NewDispatcher(client, userService, logger, notifyBufferSize)
	dispatcher.Subscribe(bus)

	var mailer *notify.Mailer
	if cfg.MailEnabled() {
		dialer := notify.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
		mailer = notify.NewMailer(dialer, cfg.SMTPUser, cfg.HREmail, logger)
		mailer.Subscribe(bus)
		logger.WithField("to", cfg.HREmail).Info("HR mail copies enabled")
	}

	cooldown := session.NewCooldown(cfg.CooldownMaxAge, logger)
	sessions := session.NewManager(cooldown)
	absenceWizard := wizard.New(sessions, absenceRepo, bus, logger)

	sched, err := scheduler.New(
		userService,
		workLogRepo,
		absenceService,
		nonWorkingDayService,
		teamService,
		bus,
		logger,
		cfg.ReminderArrivalTime,
		cfg.ReminderReportTime,
	)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create scheduler")
	}

	botHandler := handler.NewHandler(
		client,
		userService,
		workLogService,
		absenceService,
		teamService,
		absenceWizard,
		sessions,
		cfg,
		logger,
	)

	httpServer := server.New(cfg.HTTPAddr, sqlDB, logger)
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.WithError(err).Error("HTTP server stopped")
		}
	}()

	go cooldown.Run(ctx, cfg.CooldownSweepPeriod)
	go sched.Run(ctx, time.Minute)

	dispatcherDone := make(chan struct{})
	go func() {
		dispatcher.Run(ctx)
		close(dispatcherDone)
	}()

	logger.Info("Bot started. Press Ctrl+C to stop.")
	botHandler.HandleUpdates(ctx, client.Updates())

	logger.Info("Shutting down...")
	client.Stop()
	<-dispatcherDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Failed to stop HTTP server")
	}

	if mailer != nil {
		mailer.Wait()
	}

	// Закрываем соединение с БД
	if err := sqlDB.Close(); err != nil {
		logger.Infof("Error closing database: %v", err)
	}

	logger.Info("Bot stopped gracefully")
}

func openDatabase(cfg *config.BotConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)}

	switch cfg.DatabaseDriver {
	case "postgres":
		return gorm.Open(postgres.Open(cfg.DatabaseURL), gormCfg)
	case "mysql":
		return gorm.Open(mysql.Open(cfg.DatabaseURL), gormCfg)
	case "sqlite", "":
		gormCfg.DisableForeignKeyConstraintWhenMigrating = true // SQLite ограничения
		db, err := gorm.Open(sqlite.Open(cfg.DatabaseURL), gormCfg)
		if err != nil {
			return nil, err
		}
		// Включаем поддержку внешних ключей (требуется для SQLite)
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			logrus.Infof("Warning: Failed to enable foreign keys: %v", err)
		}
		return db, nil
	}

	return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
}
