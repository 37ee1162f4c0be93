package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort     string `mapstructure:"APP_PORT"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	Env         string `mapstructure:"ENV"`
	AdminToken  string `mapstructure:"ADMIN_TOKEN"`

	// Redis configuration.
	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	RedisSessionDB int    `mapstructure:"REDIS_SESSION_DB"`
	RedisQueueDB   int    `mapstructure:"REDIS_QUEUE_DB"`

	// Scheduling window. All slot arithmetic happens in Timezone.
	Timezone          string `mapstructure:"TIMEZONE"`
	BusinessStartHour int    `mapstructure:"BUSINESS_START_HOUR"`
	BusinessEndHour   int    `mapstructure:"BUSINESS_END_HOUR"`
	BusinessDays      string `mapstructure:"BUSINESS_DAYS"` // e.g. "Mon,Tue,Wed,Thu,Fri"
	MinAdvanceHours   int    `mapstructure:"MIN_ADVANCE_HOURS"`
	MaxAdvanceHours   int    `mapstructure:"MAX_ADVANCE_HOURS"`
	BufferMinutes     int    `mapstructure:"BUFFER_MINUTES"`

	// Resilience layer.
	BreakerFailureThreshold int `mapstructure:"BREAKER_FAILURE_THRESHOLD"`
	BreakerResetTimeoutSec  int `mapstructure:"BREAKER_RESET_TIMEOUT_SEC"`
	BreakerMonitoringSec    int `mapstructure:"BREAKER_MONITORING_SEC"`
	RetryAttempts           int `mapstructure:"RETRY_ATTEMPTS"`
	RetryDelayMS            int `mapstructure:"RETRY_DELAY_MS"`
	ExternalCallTimeoutSec  int `mapstructure:"EXTERNAL_CALL_TIMEOUT_SEC"`

	// Conversation session expiry.
	SessionTTLMinutes int `mapstructure:"SESSION_TTL_MINUTES"`

	// Integrations.
	CalendarBaseURL          string `mapstructure:"CALENDAR_BASE_URL"`
	CalendarAPIKey           string `mapstructure:"CALENDAR_API_KEY"`
	CRMBaseURL               string `mapstructure:"CRM_BASE_URL"`
	CRMAPIKey                string `mapstructure:"CRM_API_KEY"`
	SendgridAPIKey           string `mapstructure:"SENDGRID_API_KEY"`
	NotifyFromEmail          string `mapstructure:"NOTIFY_FROM_EMAIL"`
	GeminiAPIKey             string `mapstructure:"GEMINI_API_KEY"`
	GoogleServiceAccountFile string `mapstructure:"GOOGLE_SERVICE_ACCOUNT_FILE"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_SESSION_DB", 0)
	viper.SetDefault("REDIS_QUEUE_DB", 1)
	viper.SetDefault("TIMEZONE", "America/New_York")
	viper.SetDefault("BUSINESS_START_HOUR", 9)
	viper.SetDefault("BUSINESS_END_HOUR", 17)
	viper.SetDefault("BUSINESS_DAYS", "Mon,Tue,Wed,Thu,Fri")
	viper.SetDefault("MIN_ADVANCE_HOURS", 2)
	viper.SetDefault("MAX_ADVANCE_HOURS", 720)
	viper.SetDefault("BUFFER_MINUTES", 0)
	viper.SetDefault("BREAKER_FAILURE_THRESHOLD", 5)
	viper.SetDefault("BREAKER_RESET_TIMEOUT_SEC", 60)
	viper.SetDefault("BREAKER_MONITORING_SEC", 120)
	viper.SetDefault("RETRY_ATTEMPTS", 3)
	viper.SetDefault("RETRY_DELAY_MS", 500)
	viper.SetDefault("EXTERNAL_CALL_TIMEOUT_SEC", 10)
	viper.SetDefault("SESSION_TTL_MINUTES", 30)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
