package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"Server"`
	Database  DatabaseConfig  `mapstructure:"Database"`
	Auth      AuthConfig      `mapstructure:"Auth"`
	Security  SecurityConfig  `mapstructure:"Security"`
	RateLimit RateLimitConfig `mapstructure:"RateLimit"`
	Blob      BlobConfig      `mapstructure:"Blob"`
	Log       LogConfig       `mapstructure:"Log"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"Port"`
	GRPCPort        string        `mapstructure:"GRPCPort"`
	BaseURL         string        `mapstructure:"BaseURL"`
	RequestTimeout  time.Duration `mapstructure:"RequestTimeout"`
	ShutdownTimeout time.Duration `mapstructure:"ShutdownTimeout"`
	AllowedOrigins  []string      `mapstructure:"AllowedOrigins"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"Driver"` // postgres или sqlite3
	Host            string        `mapstructure:"Host"`
	Port            string        `mapstructure:"Port"`
	User            string        `mapstructure:"User"`
	Password        string        `mapstructure:"Password"`
	Name            string        `mapstructure:"Name"`
	SSLMode         string        `mapstructure:"SSLMode"`
	Path            string        `mapstructure:"Path"`
	MaxOpenConns    int           `mapstructure:"MaxOpenConns"`
	MaxIdleConns    int           `mapstructure:"MaxIdleConns"`
	ConnMaxLifetime time.Duration `mapstructure:"ConnMaxLifetime"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"JWTSecret"`
	Issuer    string `mapstructure:"Issuer"`
}

type SecurityConfig struct {
	BcryptCost  int  `mapstructure:"BcryptCost"`
	CSRFEnabled bool `mapstructure:"CSRFEnabled"`
}

type RateLimitConfig struct {
	Store string      `mapstructure:"Store"` // memory или sql
	API   LimitConfig `mapstructure:"API"`
	Share LimitConfig `mapstructure:"Share"`
}

type LimitConfig struct {
	Window      time.Duration `mapstructure:"Window"`
	MaxRequests int64         `mapstructure:"MaxRequests"`
}

type BlobConfig struct {
	Provider string        `mapstructure:"Provider"` // none, s3 или gcs
	URLTTL   time.Duration `mapstructure:"URLTTL"`
	S3       S3Config      `mapstructure:"S3"`
	GCS      GCSConfig     `mapstructure:"GCS"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"Endpoint"`
	Region          string `mapstructure:"Region"`
	AccessKeyID     string `mapstructure:"AccessKeyID"`
	SecretAccessKey string `mapstructure:"SecretAccessKey"`
	Bucket          string `mapstructure:"Bucket"`
}

type GCSConfig struct {
	Bucket       string `mapstructure:"Bucket"`
	SigningEmail string `mapstructure:"SigningEmail"`
	PrivateKey   string `mapstructure:"PrivateKey"`
}

type LogConfig struct {
	Level       string `mapstructure:"Level"`
	Development bool   `mapstructure:"Development"`
}

var envBindings = map[string]string{
	"Server.Port":             "HTTP_PORT",
	"Server.GRPCPort":         "GRPC_PORT",
	"Server.BaseURL":          "BASE_URL",
	"Server.AllowedOrigins":   "ALLOWED_ORIGINS",
	"Database.Driver":         "DATABASE_DRIVER",
	"Database.Host":           "DATABASE_HOST",
	"Database.Port":           "DATABASE_PORT",
	"Database.User":           "DATABASE_USER",
	"Database.Password":       "DATABASE_PASSWORD",
	"Database.Name":           "DATABASE_NAME",
	"Database.SSLMode":        "DATABASE_SSLMODE",
	"Database.Path":           "DATABASE_PATH",
	"Auth.JWTSecret":          "JWT_SECRET",
	"Auth.Issuer":             "JWT_ISSUER",
	"Security.BcryptCost":     "BCRYPT_COST",
	"Security.CSRFEnabled":    "CSRF_ENABLED",
	"RateLimit.Store":         "RATE_LIMIT_STORE",
	"Blob.Provider":           "BLOB_PROVIDER",
	"Blob.URLTTL":             "BLOB_URL_TTL",
	"Blob.S3.Endpoint":        "S3_ENDPOINT",
	"Blob.S3.Region":          "S3_REGION",
	"Blob.S3.AccessKeyID":     "S3_ACCESS_KEY_ID",
	"Blob.S3.SecretAccessKey": "S3_SECRET_ACCESS_KEY",
	"Blob.S3.Bucket":          "S3_BUCKET",
	"Blob.GCS.Bucket":         "GCS_BUCKET",
	"Blob.GCS.SigningEmail":   "GCS_SIGNING_EMAIL",
	"Blob.GCS.PrivateKey":     "GCS_SIGNING_PRIVATE_KEY",
	"Log.Level":               "LOG_LEVEL",
	"Log.Development":         "LOG_DEVELOPMENT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("Server.Port", "2525")
	v.SetDefault("Server.GRPCPort", "50051")
	v.SetDefault("Server.RequestTimeout", 30*time.Second)
	v.SetDefault("Server.ShutdownTimeout", 30*time.Second)
	v.SetDefault("Database.Driver", "postgres")
	v.SetDefault("Database.SSLMode", "disable")
	v.SetDefault("Database.Path", "filevault.db")
	v.SetDefault("Database.MaxOpenConns", 25)
	v.SetDefault("Database.MaxIdleConns", 5)
	v.SetDefault("Database.ConnMaxLifetime", 5*time.Minute)
	v.SetDefault("Security.BcryptCost", 10)
	v.SetDefault("RateLimit.Store", "memory")
	v.SetDefault("RateLimit.API.Window", time.Minute)
	v.SetDefault("RateLimit.API.MaxRequests", 100)
	v.SetDefault("RateLimit.Share.Window", 5*time.Minute)
	v.SetDefault("RateLimit.Share.MaxRequests", 20)
	v.SetDefault("Blob.Provider", "none")
	v.SetDefault("Blob.URLTTL", 15*time.Minute)
	v.SetDefault("Log.Level", "info")
}

// NewConfig читает файл конфигурации (если он есть) и переменные окружения.
// Переменные окружения имеют приоритет над файлом.
func NewConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind env %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			fmt.Printf("Warning: using only environment variables: %v\n", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// ALLOWED_ORIGINS приходит из окружения одной строкой
	if len(cfg.Server.AllowedOrigins) == 1 && strings.Contains(cfg.Server.AllowedOrigins[0], ",") {
		cfg.Server.AllowedOrigins = strings.Split(cfg.Server.AllowedOrigins[0], ",")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" ||
			c.Database.Port == "" ||
			c.Database.User == "" ||
			c.Database.Password == "" ||
			c.Database.Name == "" {
			return fmt.Errorf("database configuration is incomplete: host=%s, port=%s, user=%s, name=%s",
				c.Database.Host, c.Database.Port, c.Database.User, c.Database.Name)
		}
	case "sqlite3":
		if c.Database.Path == "" {
			return fmt.Errorf("database path is required for sqlite3")
		}
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}

	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}

	switch c.RateLimit.Store {
	case "memory", "sql":
	default:
		return fmt.Errorf("unsupported rate limit store: %q", c.RateLimit.Store)
	}

	switch c.Blob.Provider {
	case "none":
	case "s3":
		if c.Blob.S3.AccessKeyID == "" || c.Blob.S3.SecretAccessKey == "" || c.Blob.S3.Bucket == "" {
			return fmt.Errorf("s3 configuration is incomplete: accessKeyID, secretAccessKey and bucket are required")
		}
	case "gcs":
		if c.Blob.GCS.Bucket == "" || c.Blob.GCS.SigningEmail == "" || c.Blob.GCS.PrivateKey == "" {
			return fmt.Errorf("gcs configuration is incomplete: bucket, signingEmail and privateKey are required")
		}
	default:
		return fmt.Errorf("unsupported blob provider: %q", c.Blob.Provider)
	}

	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	if c.Driver == "sqlite3" {
		return fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on", c.Path)
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Name,
		c.SSLMode,
	)
}
