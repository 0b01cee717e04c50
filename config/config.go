package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	apperrors "github.com/kythia/questapi/internal/errors"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Provider ProviderConfig
	Cache    CacheConfig
	JWT      JWTConfig
	Admin    AdminConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port string
	Mode string
	// RunMigrations applies embedded migrations before serving.
	RunMigrations bool
}

type DatabaseConfig struct {
	URL             string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// ConnectionString prefers DATABASE_URL and falls back to the discrete DB_* settings.
func (c *DatabaseConfig) ConnectionString() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   c.Name,
	}
	q := u.Query()
	q.Set("sslmode", c.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

type ProviderConfig struct {
	Token   string
	BaseURL string
	Timeout time.Duration
	Locale  string
}

type CacheConfig struct {
	DurationMinutes int
	QuestAgeDays    int
}

// DurationMS is the staleness threshold in milliseconds.
func (c CacheConfig) DurationMS() int64 {
	return int64(c.DurationMinutes) * 60 * 1000
}

type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

func (c *JWTConfig) ExpirationDuration() time.Duration {
	return time.Duration(c.ExpirationHours) * time.Hour
}

type AdminConfig struct {
	// APIKeyHash is a bcrypt hash; empty disables ApiKey authentication.
	APIKeyHash string
}

type LogConfig struct {
	Level  string
	Format string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "3000")
	v.SetDefault("gin_mode", "release")
	v.SetDefault("run_migrations", false)

	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", 5432)
	v.SetDefault("db_user", "postgres")
	v.SetDefault("db_name", "questapi")
	v.SetDefault("db_sslmode", "disable")
	v.SetDefault("db_max_open_conns", 25)
	v.SetDefault("db_max_idle_conns", 5)
	v.SetDefault("db_conn_max_lifetime", 5*time.Minute)
	v.SetDefault("db_conn_max_idle_time", time.Minute)

	v.SetDefault("discord_api_url", "https://discord.com/api/v10")
	v.SetDefault("provider_timeout", 20*time.Second)
	v.SetDefault("discord_locale", "en-US")

	v.SetDefault("cache_duration_minutes", 30)
	v.SetDefault("quest_age_days", 30)

	v.SetDefault("jwt_expiration_hours", 24)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
}

// Load reads configuration from the environment and, when CONFIG_FILE is set,
// from that file. Environment variables win over file values.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:          v.GetString("port"),
			Mode:          v.GetString("gin_mode"),
			RunMigrations: v.GetBool("run_migrations"),
		},
		Database: DatabaseConfig{
			URL:             v.GetString("database_url"),
			Host:            v.GetString("db_host"),
			Port:            v.GetInt("db_port"),
			User:            v.GetString("db_user"),
			Password:        v.GetString("db_password"),
			Name:            v.GetString("db_name"),
			SSLMode:         v.GetString("db_sslmode"),
			MaxOpenConns:    v.GetInt("db_max_open_conns"),
			MaxIdleConns:    v.GetInt("db_max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("db_conn_max_lifetime"),
			ConnMaxIdleTime: v.GetDuration("db_conn_max_idle_time"),
		},
		Provider: ProviderConfig{
			Token:   v.GetString("discord_token"),
			BaseURL: v.GetString("discord_api_url"),
			Timeout: v.GetDuration("provider_timeout"),
			Locale:  v.GetString("discord_locale"),
		},
		Cache: CacheConfig{
			DurationMinutes: v.GetInt("cache_duration_minutes"),
			QuestAgeDays:    v.GetInt("quest_age_days"),
		},
		JWT: JWTConfig{
			Secret:          v.GetString("jwt_secret"),
			ExpirationHours: v.GetInt("jwt_expiration_hours"),
		},
		Admin: AdminConfig{
			APIKeyHash: v.GetString("admin_api_key_hash"),
		},
		Log: LogConfig{
			Level:  v.GetString("log_level"),
			Format: v.GetString("log_format"),
		},
	}
}

// Validate fails fast on settings the service cannot start without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Provider.Token) == "" {
		return apperrors.ErrConfigInvalid("DISCORD_TOKEN must be set")
	}
	if strings.TrimSpace(c.Database.URL) == "" && strings.TrimSpace(c.Database.Host) == "" {
		return apperrors.ErrConfigInvalid("DATABASE_URL or DB_HOST must be set")
	}
	if c.Cache.DurationMinutes < 0 {
		return apperrors.ErrConfigInvalid("CACHE_DURATION_MINUTES must not be negative")
	}
	if c.Cache.QuestAgeDays < 0 {
		return apperrors.ErrConfigInvalid("QUEST_AGE_DAYS must not be negative")
	}
	if c.Provider.Timeout <= 0 {
		return apperrors.ErrConfigInvalid("PROVIDER_TIMEOUT must be positive")
	}
	return nil
}
