package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Social    SocialConfig
	Firebase  FirebaseConfig
	Storage   StorageConfig
	Scheduler SchedulerConfig
	Admin     AdminConfig
	Log       LogConfig
}

type AppConfig struct {
	Name         string
	Env          string
	Port         string
	MetricsPort  string
	ClientURL    string
	CORSOrigins  []string
	BodyLimit    string
	TimeZone     string
	MigrationDir string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type MongoConfig struct {
	URI      string
	Database string
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	HandoffTTL      time.Duration
}

type OAuthClient struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

type SocialConfig struct {
	Google OAuthClient
	Kakao  OAuthClient
	Naver  OAuthClient
}

type FirebaseConfig struct {
	CredentialsPath string
}

type StorageConfig struct {
	Endpoint      string
	Region        string
	Bucket        string
	AccessKey     string
	SecretKey     string
	UsePathStyle  bool
	PublicBaseURL string
}

type SchedulerConfig struct {
	Enabled  bool
	CronSpec string
	TimeZone string
}

type AdminConfig struct {
	SessionSecret string
	SessionTTL    time.Duration
}

type LogConfig struct {
	Level  string
	Format string
	Output string
}

// Load reads configuration from .env, config.yaml and BUOOY_* environment
// variables, in increasing priority.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("BUOOY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Name:         v.GetString("app.name"),
			Env:          v.GetString("app.env"),
			Port:         v.GetString("app.port"),
			MetricsPort:  v.GetString("app.metrics_port"),
			ClientURL:    v.GetString("app.client_url"),
			CORSOrigins:  v.GetStringSlice("app.cors_origins"),
			BodyLimit:    v.GetString("app.body_limit"),
			TimeZone:     v.GetString("app.time_zone"),
			MigrationDir: v.GetString("app.migration_dir"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
		},
		Mongo: MongoConfig{
			URI:      v.GetString("mongo.uri"),
			Database: v.GetString("mongo.database"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:          v.GetString("jwt.secret"),
			AccessTokenTTL:  v.GetDuration("jwt.access_token_ttl"),
			RefreshTokenTTL: v.GetDuration("jwt.refresh_token_ttl"),
			HandoffTTL:      v.GetDuration("jwt.handoff_ttl"),
		},
		Social: SocialConfig{
			Google: oauthClient(v, "social.google"),
			Kakao:  oauthClient(v, "social.kakao"),
			Naver:  oauthClient(v, "social.naver"),
		},
		Firebase: FirebaseConfig{
			CredentialsPath: v.GetString("firebase.credentials_path"),
		},
		Storage: StorageConfig{
			Endpoint:      v.GetString("storage.endpoint"),
			Region:        v.GetString("storage.region"),
			Bucket:        v.GetString("storage.bucket"),
			AccessKey:     v.GetString("storage.access_key"),
			SecretKey:     v.GetString("storage.secret_key"),
			UsePathStyle:  v.GetBool("storage.use_path_style"),
			PublicBaseURL: v.GetString("storage.public_base_url"),
		},
		Scheduler: SchedulerConfig{
			Enabled:  v.GetBool("scheduler.enabled"),
			CronSpec: v.GetString("scheduler.cron_spec"),
			TimeZone: v.GetString("scheduler.time_zone"),
		},
		Admin: AdminConfig{
			SessionSecret: v.GetString("admin.session_secret"),
			SessionTTL:    v.GetDuration("admin.session_ttl"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func oauthClient(v *viper.Viper, prefix string) OAuthClient {
	return OAuthClient{
		ClientID:     v.GetString(prefix + ".client_id"),
		ClientSecret: v.GetString(prefix + ".client_secret"),
		RedirectURI:  v.GetString(prefix + ".redirect_uri"),
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "buooy-backend")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.metrics_port", "9090")
	v.SetDefault("app.client_url", "http://localhost:3000")
	v.SetDefault("app.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("app.body_limit", "10M")
	v.SetDefault("app.time_zone", "Asia/Seoul")
	v.SetDefault("app.migration_dir", "migrations")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.dbname", "buooy")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("mongo.database", "buooy")

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.addr", "localhost:6379")

	v.SetDefault("jwt.secret", "buooy-dev-secret")
	v.SetDefault("jwt.access_token_ttl", 30*time.Minute)
	v.SetDefault("jwt.refresh_token_ttl", 72*time.Hour)
	v.SetDefault("jwt.handoff_ttl", 5*time.Minute)

	v.SetDefault("storage.region", "ap-northeast-2")

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.cron_spec", "0 0 * * *")
	v.SetDefault("scheduler.time_zone", "Asia/Seoul")

	v.SetDefault("admin.session_secret", "buooy-admin-dev-secret")
	v.SetDefault("admin.session_ttl", 12*time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")
}

func (c *Config) validate() error {
	if c.IsProduction() {
		if c.JWT.Secret == "" || c.JWT.Secret == "buooy-dev-secret" {
			return fmt.Errorf("jwt secret must be set in production")
		}
		if c.Admin.SessionSecret == "" || c.Admin.SessionSecret == "buooy-admin-dev-secret" {
			return fmt.Errorf("admin session secret must be set in production")
		}
	}
	if c.JWT.AccessTokenTTL <= 0 || c.JWT.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}
	if _, err := time.LoadLocation(c.Scheduler.TimeZone); err != nil {
		return fmt.Errorf("invalid scheduler time zone %q: %w", c.Scheduler.TimeZone, err)
	}
	if _, err := time.LoadLocation(c.App.TimeZone); err != nil {
		return fmt.Errorf("invalid app time zone %q: %w", c.App.TimeZone, err)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// Location returns the zone parties are scheduled in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DSN builds the Postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// URL builds the postgres:// form golang-migrate expects.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}
