package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Notify   NotifyConfig   `mapstructure:"notify"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite or postgres
	Path            string        `mapstructure:"path"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	LogLevel        string        `mapstructure:"log_level"`
}

// DSN builds the driver-specific data source name.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
	}
	return c.Path
}

type StorageConfig struct {
	Type      string `mapstructure:"type"` // local, s3, r2, s3compatible
	LocalDir  string `mapstructure:"local_dir"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
}

type IngestConfig struct {
	ChunkSize         int               `mapstructure:"chunk_size"`
	Columns           map[string]string `mapstructure:"columns"`
	Workers           int               `mapstructure:"workers"`
	QueueSize         int               `mapstructure:"queue_size"`
	Timeout           time.Duration     `mapstructure:"timeout"`
	MaxAttempts       int               `mapstructure:"max_attempts"`
	MaxUploadMB       int64             `mapstructure:"max_upload_mb"`
	AllowedExtensions []string          `mapstructure:"allowed_extensions"`
}

type NotifyConfig struct {
	Topic          string        `mapstructure:"topic"`
	Event          string        `mapstructure:"event"`
	WebSocket      bool          `mapstructure:"websocket"`
	WebhookURL     string        `mapstructure:"webhook_url"`
	WebhookTimeout time.Duration `mapstructure:"webhook_timeout"`
	QueueSize      int           `mapstructure:"queue_size"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
}

// DefaultColumns maps catalog fields to the source file's header names.
var DefaultColumns = map[string]string{
	"unique_key":   "UNIQUE_KEY",
	"title":        "PRODUCT_TITLE",
	"description":  "PRODUCT_DESCRIPTION",
	"style_number": "STYLE#",
	"color_family": "SANMAR_MAINFRAME_COLOR",
	"size":         "SIZE",
	"color_name":   "COLOR_NAME",
	"unit_price":   "PIECE_PRICE",
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets are usually injected through the environment
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	v.BindEnv("notify.webhook_url", "NOTIFY_WEBHOOK_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Ingest.Columns = mergeColumns(cfg.Ingest.Columns)

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/catalog.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_dir", "./data/storage")
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.bucket", "uploads")

	v.SetDefault("ingest.chunk_size", 100)
	v.SetDefault("ingest.workers", 2)
	v.SetDefault("ingest.queue_size", 64)
	v.SetDefault("ingest.timeout", 5*time.Minute)
	v.SetDefault("ingest.max_attempts", 3)
	v.SetDefault("ingest.max_upload_mb", 100)
	v.SetDefault("ingest.allowed_extensions", []string{".csv", ".txt"})

	v.SetDefault("notify.topic", "file-processing")
	v.SetDefault("notify.event", "file.processing.update")
	v.SetDefault("notify.websocket", true)
	v.SetDefault("notify.webhook_timeout", 5*time.Second)
	v.SetDefault("notify.queue_size", 256)
	v.SetDefault("notify.publish_timeout", 10*time.Second)
}

// mergeColumns fills any column mapping not present in the config with its default header.
func mergeColumns(columns map[string]string) map[string]string {
	merged := make(map[string]string, len(DefaultColumns))
	for field, header := range DefaultColumns {
		merged[field] = header
	}
	for field, header := range columns {
		if header != "" {
			merged[strings.ToLower(field)] = header
		}
	}
	return merged
}
