package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the server needs at startup.
type Config struct {
	Port              string
	Env               string
	CORSAllowOrigins  string
	ExposeInternalErr bool

	DB    DBConfig
	Redis RedisConfig

	JWTSecret     string
	RefreshSecret string

	Lipila LipilaConfig
	Rates  RatesConfig

	ReconcileSchedule    string
	ReconcileMaxAttempts int

	SendGridAPIKey string
	AlertEmailFrom string
	AlertEmailTo   string
}

type DBConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// LipilaConfig configures the collection/disbursement gateway.
type LipilaConfig struct {
	APIKey         string
	BaseURL        string
	CallbackURL    string
	CallbackSecret string
	Timeout        time.Duration
}

type RatesConfig struct {
	APIURL        string
	Refresh       time.Duration
	DefaultRate   float64
	LocalCurrency string
}

// LoadEnv loads variables from a .env file if present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found: %v", err)
	}
}

// Load reads the environment into a Config.
func Load() *Config {
	LoadEnv()

	env := GetEnv("ENV", "development")
	return &Config{
		Port:              GetEnv("PORT", "3000"),
		Env:               env,
		CORSAllowOrigins:  GetEnv("CORS_ALLOW_ORIGINS", "*"),
		ExposeInternalErr: GetBoolEnv("EXPOSE_INTERNAL_ERRORS", env != "production"),
		DB: DBConfig{
			Host:            GetEnv("DB_HOST", "localhost"),
			Port:            GetEnv("DB_PORT", "5432"),
			User:            GetEnv("DB_USER", "postgres"),
			Password:        GetEnv("DB_PASSWORD", "postgres"),
			Name:            GetEnv("DB_NAME", "turapay"),
			MaxIdleConns:    GetIntEnv("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    GetIntEnv("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: GetDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
			ConnMaxIdleTime: GetDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			Host:     GetEnv("REDIS_HOST", "localhost"),
			Port:     GetEnv("REDIS_PORT", "6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetIntEnv("REDIS_DB", 0),
		},
		JWTSecret:     GetEnv("JWT_SECRET", "turapay"),
		RefreshSecret: GetEnv("REFRESH_SECRET", "turapay-refresh"),
		Lipila: LipilaConfig{
			APIKey:         GetEnv("LIPILA_API_KEY", ""),
			BaseURL:        GetEnv("LIPILA_BASE_URL", "https://api.lipila.dev"),
			CallbackURL:    GetEnv("LIPILA_CALLBACK_URL", ""),
			CallbackSecret: GetEnv("LIPILA_CALLBACK_SECRET", ""),
			Timeout:        GetDurationEnv("LIPILA_TIMEOUT", 30*time.Second),
		},
		Rates: RatesConfig{
			APIURL:        GetEnv("EXCHANGE_RATE_API_URL", "https://open.er-api.com/v6/latest/USD"),
			Refresh:       GetDurationEnv("EXCHANGE_RATE_REFRESH", 5*time.Minute),
			DefaultRate:   GetFloatEnv("DEFAULT_EXCHANGE_RATE", 27.5),
			LocalCurrency: GetEnv("LOCAL_CURRENCY", "ZMW"),
		},
		ReconcileSchedule:    GetEnv("RECONCILE_SCHEDULE", "@every 1m"),
		ReconcileMaxAttempts: GetIntEnv("RECONCILE_MAX_ATTEMPTS", 10),
		SendGridAPIKey:       GetEnv("SENDGRID_API_KEY", ""),
		AlertEmailFrom:       GetEnv("ALERT_EMAIL_FROM", "alerts@turapay.app"),
		AlertEmailTo:         GetEnv("ALERT_EMAIL_TO", ""),
	}
}

// IsProduction checks if the app runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// GetEnv returns an environment variable or a default value.
func GetEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// GetIntEnv returns an int environment variable or a default value.
func GetIntEnv(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func GetFloatEnv(key string, defaultVal float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func GetBoolEnv(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func GetDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		log.Printf("invalid duration for %s: %q, using %s", key, val, defaultVal)
	}
	return defaultVal
}
