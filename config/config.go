package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"callnexy/models"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	DB        *gorm.DB
	AppConfig Config
)

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"-"`
	DB       int    `json:"db"`
}

type Config struct {
	Environment string `json:"environment"`
	ServerPort  string `json:"server_port"`

	DBHost         string `json:"db_host"`
	DBPort         string `json:"db_port"`
	DBUser         string `json:"db_user"`
	DBPassword     string `json:"-"`
	DBName         string `json:"db_name"`
	DBSSLMode      string `json:"db_ssl_mode"`
	DBMaxIdleConns int    `json:"db_max_idle_conns"`
	DBMaxOpenConns int    `json:"db_max_open_conns"`

	// Shared secret the cron trigger must present
	CronSecret string `json:"-"`

	// Fixed operating-timezone offset, minutes east of UTC. The scheduler
	// deliberately does not consult a timezone database; campaign days are
	// evaluated against this offset regardless of the host locale.
	TZOffsetMinutes int `json:"tz_offset_minutes"`

	// Dispatch pacing knobs
	CallDispatchCeiling    int `json:"call_dispatch_ceiling"`
	MessageBatchCeiling    int `json:"message_batch_ceiling"`
	SendWindowMinutes      int `json:"send_window_minutes"`
	DispatchTimeoutSeconds int `json:"dispatch_timeout_seconds"`

	// External collaborators
	CallServiceURL string `json:"call_service_url"`
	WhatsAppAPIURL string `json:"whatsapp_api_url"`

	Redis RedisConfig `json:"redis"`

	// Built-in fallback trigger for deployments without an external cron
	TickerEnabled         bool `json:"ticker_enabled"`
	TickerIntervalSeconds int  `json:"ticker_interval_seconds"`

	SentryDSN string `json:"-"`
}

func init() {
	// Load .env when present, ignore when not
	_ = godotenv.Load()
}

func LoadConfig() error {
	AppConfig = Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		ServerPort:  getEnv("SERVER_PORT", "5000"),

		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", ""),
		DBName:         getEnv("DB_NAME", "callnexy"),
		DBSSLMode:      getEnv("DB_SSL_MODE", "disable"),
		DBMaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 100),

		CronSecret: getEnv("CRON_SECRET", ""),

		TZOffsetMinutes: getEnvAsInt("TZ_OFFSET_MINUTES", 180), // UTC+3

		CallDispatchCeiling:    getEnvAsInt("CALL_DISPATCH_CEILING", 3),
		MessageBatchCeiling:    getEnvAsInt("MESSAGE_BATCH_CEILING", 50),
		SendWindowMinutes:      getEnvAsInt("SEND_WINDOW_MINUTES", 2),
		DispatchTimeoutSeconds: getEnvAsInt("DISPATCH_TIMEOUT_SECONDS", 15),

		CallServiceURL: getEnv("CALL_SERVICE_URL", "http://localhost:8080"),
		WhatsAppAPIURL: getEnv("WHATSAPP_API_URL", "https://graph.facebook.com/v19.0"),

		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},

		TickerEnabled:         getEnvAsBool("TICKER_ENABLED", false),
		TickerIntervalSeconds: getEnvAsInt("TICKER_INTERVAL_SECONDS", 60),

		SentryDSN: getEnv("SENTRY_DSN", ""),
	}

	if AppConfig.CronSecret == "" {
		return fmt.Errorf("CRON_SECRET is required")
	}
	if AppConfig.DBPassword == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if AppConfig.CallDispatchCeiling < 1 {
		return fmt.Errorf("CALL_DISPATCH_CEILING must be at least 1")
	}
	if AppConfig.MessageBatchCeiling < 1 {
		return fmt.Errorf("MESSAGE_BATCH_CEILING must be at least 1")
	}

	logConfig()
	return nil
}

// Location returns the fixed operating timezone as a *time.Location
func (c Config) Location() *time.Location {
	sign := "+"
	minutes := c.TZOffsetMinutes
	if minutes < 0 {
		sign = "-"
		minutes = -minutes
	}
	name := fmt.Sprintf("UTC%s%02d:%02d", sign, minutes/60, minutes%60)
	return time.FixedZone(name, c.TZOffsetMinutes*60)
}

// DispatchTimeout returns the client-side timeout for collaborator calls
func (c Config) DispatchTimeout() time.Duration {
	return time.Duration(c.DispatchTimeoutSeconds) * time.Second
}

func ConnectDB() error {
	log.Println("Attempting to connect to database...")

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBUser,
		AppConfig.DBPassword,
		AppConfig.DBName,
		AppConfig.DBSSLMode,
	)
	log.Println("Using connection string:", maskPassword(dsn))

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get DB instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(AppConfig.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(AppConfig.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	log.Println("✅ Successfully connected to the database")
	log.Println("🔄 Starting database migration...")
	if err := MigrateDB(DB); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	log.Println("✅ Database migration completed")
	return nil
}

// MigrateDB migrates the scheduler tables. Leads are migrated too so a fresh
// install works standalone, even though the table is owned by the CRM side.
func MigrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Campaign{},
		&models.ActionRecord{},
		&models.Lead{},
	)
}

// Helper functions
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var value int
	_, err := fmt.Sscanf(valueStr, "%d", &value)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsBool(key string, fallback bool) bool {
	switch strings.ToLower(getEnv(key, "")) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func maskPassword(dsn string) string {
	const passwordMarker = "password="
	startIdx := strings.Index(dsn, passwordMarker)
	if startIdx == -1 {
		return dsn
	}

	startIdx += len(passwordMarker)
	endIdx := strings.IndexAny(dsn[startIdx:], " ")
	if endIdx == -1 {
		return dsn[:startIdx] + "*****"
	}
	return dsn[:startIdx] + "*****" + dsn[startIdx+endIdx:]
}

func logConfig() {
	log.Println("🔧 Loaded configuration:")
	log.Printf("Environment: %s", AppConfig.Environment)
	log.Printf("Server Port: %s", AppConfig.ServerPort)
	log.Printf("Database: %s@%s:%s/%s",
		AppConfig.DBUser,
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBName)
	log.Printf("Operating timezone: %s", AppConfig.Location())
	log.Printf("Pacing: calls/tick=%d messages/tick=%d send window=±%dm",
		AppConfig.CallDispatchCeiling,
		AppConfig.MessageBatchCeiling,
		AppConfig.SendWindowMinutes)
	log.Printf("Redis lease: %t, internal ticker: %t",
		AppConfig.Redis.Enabled,
		AppConfig.TickerEnabled)
}
