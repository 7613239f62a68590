package config

import (
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type BotConfig struct {
	TelegramToken   string
	TelegramDebug   bool
	BaseAdminChatID int64

	DatabaseDriver string
	DatabaseURL    string

	LogLevel string
	Locale   string
	HTTPAddr string

	// Окна антидребезга для кнопок и команд
	CooldownFast        time.Duration
	CooldownDefault     time.Duration
	CooldownSlow        time.Duration
	CooldownSweepPeriod time.Duration
	CooldownMaxAge      time.Duration

	ReminderArrivalTime string
	ReminderReportTime  string
	CalendarFile        string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	HREmail      string
}

var instance *BotConfig
var once sync.Once

func GetBotConfig() *BotConfig {
	once.Do(func() {
		// .env не обязателен: в контейнере переменные приходят из окружения
		if err := godotenv.Load(); err != nil {
			logrus.Infof("no .env file loaded: %s", err.Error())
		}

		instance = Load()

		if instance.TelegramToken == "" {
			logrus.Fatal("could not get bot token")
		}

		if instance.DatabaseURL == "" {
			logrus.Fatal("could not get db url")
		}
	})

	return instance
}

// Load читает конфигурацию из окружения без проверок обязательных полей.
func Load() *BotConfig {
	return &BotConfig{
		TelegramToken:   getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramDebug:   getEnvAsBool("TELEGRAM_DEBUG", false),
		BaseAdminChatID: getEnvAsInt("BASE_ADMIN_CHAT_ID", 0),

		DatabaseDriver: getEnv("DATABASE_DRIVER", "sqlite"),
		DatabaseURL:    getEnv("DATABASE_URL", "timetracker.db"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		Locale:   getEnv("LOCALE", "ru"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		CooldownFast:        getEnvAsMillis("COOLDOWN_FAST_MS", 1000),
		CooldownDefault:     getEnvAsMillis("COOLDOWN_DEFAULT_MS", 2000),
		CooldownSlow:        getEnvAsMillis("COOLDOWN_SLOW_MS", 3000),
		CooldownSweepPeriod: getEnvAsDuration("COOLDOWN_SWEEP_INTERVAL", time.Minute),
		CooldownMaxAge:      getEnvAsDuration("COOLDOWN_MAX_AGE", 10*time.Minute),

		ReminderArrivalTime: getEnv("REMINDER_ARRIVAL_TIME", "10:30"),
		ReminderReportTime:  getEnv("REMINDER_REPORT_TIME", "19:00"),
		CalendarFile:        getEnv("CALENDAR_FILE", ""),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     int(getEnvAsInt("SMTP_PORT", 587)),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		HREmail:      getEnv("HR_EMAIL", ""),
	}
}

// MailEnabled сообщает, настроена ли отправка копий на почту HR.
func (c *BotConfig) MailEnabled() bool {
	return c.SMTPHost != "" && c.HREmail != ""
}

func getEnv(key string, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultVal
}

func getEnvAsBool(name string, defaultVal bool) bool {
	valStr := getEnv(name, "")
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}

	return defaultVal
}

func getEnvAsInt(name string, defaultVal int64) int64 {
	valStr := getEnv(name, "")
	if val, err := strconv.ParseInt(valStr, 10, 64); err == nil {
		return val
	}

	return defaultVal
}

func getEnvAsMillis(name string, defaultMs int64) time.Duration {
	return time.Duration(getEnvAsInt(name, defaultMs)) * time.Millisecond
}

func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	valStr := getEnv(name, "")
	if val, err := time.ParseDuration(valStr); err == nil && val > 0 {
		return val
	}

	return defaultVal
}
