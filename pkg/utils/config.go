package utils

import (
	"errors"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Booking  BookingConfig
	Payment  PaymentConfig
	Rabbit   RabbitConfig
}

type AppConfig struct {
	Name     string
	Port     string
	Debug    bool
	LogPath  string
	Timezone string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	MaxConns int32
}

type JWTConfig struct {
	Secret string
}

type BookingConfig struct {
	HoldTTL            time.Duration
	HoldSweepInterval  time.Duration
	PendingWindow      time.Duration
	RecentWindow       time.Duration
	OpenHour           int
	CloseHour          int
	NotifyMaxRetries   int
	NotifyInitialDelay time.Duration
}

type PaymentConfig struct {
	PublicKey  string
	SecretKey  string
	Currency   string
	MinAmount  float64
	ReturnURL  string
	SourceType string
	Timeout    time.Duration
}

type RabbitConfig struct {
	URL      string
	Exchange string
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("APP_NAME", "ground-booking")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("APP_TIMEZONE", "Asia/Kolkata")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("HOLD_TTL_MINUTES", 5)
	viper.SetDefault("HOLD_SWEEP_INTERVAL_SECONDS", 60)
	viper.SetDefault("PENDING_WINDOW_MINUTES", 10)
	viper.SetDefault("RECENT_WINDOW_SECONDS", 30)
	viper.SetDefault("OPEN_HOUR", 6)
	viper.SetDefault("CLOSE_HOUR", 23)
	viper.SetDefault("NOTIFY_MAX_RETRIES", 3)
	viper.SetDefault("NOTIFY_INITIAL_DELAY_MS", 200)
	viper.SetDefault("PAYMENT_CURRENCY", "THB")
	viper.SetDefault("PAYMENT_MIN_AMOUNT", 1)
	viper.SetDefault("PAYMENT_SOURCE_TYPE", "promptpay")
	viper.SetDefault("PAYMENT_TIMEOUT_SECONDS", 15)
	viper.SetDefault("RABBIT_EXCHANGE", "booking.exchange")

	// A missing .env is fine; the environment may carry everything.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	viper.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:     viper.GetString("APP_NAME"),
			Port:     viper.GetString("PORT"),
			Debug:    viper.GetBool("DEBUG"),
			LogPath:  viper.GetString("LOG_PATH"),
			Timezone: viper.GetString("APP_TIMEZONE"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASS"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
			MaxConns: viper.GetInt32("DB_MAX_CONNS"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("JWT_SECRET"),
		},
		Booking: BookingConfig{
			HoldTTL:            time.Duration(viper.GetInt("HOLD_TTL_MINUTES")) * time.Minute,
			HoldSweepInterval:  time.Duration(viper.GetInt("HOLD_SWEEP_INTERVAL_SECONDS")) * time.Second,
			PendingWindow:      time.Duration(viper.GetInt("PENDING_WINDOW_MINUTES")) * time.Minute,
			RecentWindow:       time.Duration(viper.GetInt("RECENT_WINDOW_SECONDS")) * time.Second,
			OpenHour:           viper.GetInt("OPEN_HOUR"),
			CloseHour:          viper.GetInt("CLOSE_HOUR"),
			NotifyMaxRetries:   viper.GetInt("NOTIFY_MAX_RETRIES"),
			NotifyInitialDelay: time.Duration(viper.GetInt("NOTIFY_INITIAL_DELAY_MS")) * time.Millisecond,
		},
		Payment: PaymentConfig{
			PublicKey:  viper.GetString("OMISE_PUBLIC_KEY"),
			SecretKey:  viper.GetString("OMISE_SECRET_KEY"),
			Currency:   viper.GetString("PAYMENT_CURRENCY"),
			MinAmount:  viper.GetFloat64("PAYMENT_MIN_AMOUNT"),
			ReturnURL:  viper.GetString("PAYMENT_RETURN_URL"),
			SourceType: viper.GetString("PAYMENT_SOURCE_TYPE"),
			Timeout:    time.Duration(viper.GetInt("PAYMENT_TIMEOUT_SECONDS")) * time.Second,
		},
		Rabbit: RabbitConfig{
			URL:      viper.GetString("RABBIT_URL"),
			Exchange: viper.GetString("RABBIT_EXCHANGE"),
		},
	}

	return config, nil
}

// Location resolves the business timezone, falling back to UTC.
func (c AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
