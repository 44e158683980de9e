package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type DetectorConfig struct {
	Endpoint      string        `mapstructure:"endpoint"`
	MinConfidence float64       `mapstructure:"min_confidence"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type OCRConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	Language string        `mapstructure:"language"`
	Engine   int           `mapstructure:"engine"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// ScheduleConfig is the raw odd-even calendar as written in the config
// file: weekday names mapped to "odd"/"even"/"none" plus exception dates
// (YYYY-MM-DD) that are always unrestricted.
type ScheduleConfig struct {
	Version    string            `mapstructure:"version"`
	Weekdays   map[string]string `mapstructure:"weekdays"`
	Exceptions []string          `mapstructure:"exceptions"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Detector DetectorConfig `mapstructure:"detector"`
	OCR      OCRConfig      `mapstructure:"ocr"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
}

// Load reads the YAML config at path (or ./config.yaml when empty) with
// ODDEVEN_* environment overrides. The returned viper instance is kept so
// Watch can re-unmarshal on file changes.
func Load(path string) (*Config, *viper.Viper, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("ODDEVEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg, err := unmarshal(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

// Watch re-reads the config file whenever it changes and hands the new
// snapshot to fn. The restriction schedule is the usual reason to edit the
// file at runtime; fn swaps the live schedule without a restart.
func Watch(v *viper.Viper, fn func(*Config)) {
	v.OnConfigChange(func(fsnotify.Event) {
		cfg, err := unmarshal(v)
		if err != nil {
			return
		}
		fn(cfg)
	})
	v.WatchConfig()
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "oddeven")
	v.SetDefault("database.name", "oddeven")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("detector.min_confidence", 0.25)
	v.SetDefault("detector.timeout", 10*time.Second)
	v.SetDefault("ocr.endpoint", "https://api.ocr.space/parse/image")
	v.SetDefault("ocr.language", "eng")
	v.SetDefault("ocr.engine", 2)
	v.SetDefault("ocr.timeout", 15*time.Second)
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("schedule.version", "default")
	v.SetDefault("schedule.weekdays", map[string]string{
		"monday":    "odd",
		"tuesday":   "even",
		"wednesday": "odd",
		"thursday":  "even",
		"friday":    "odd",
		"saturday":  "none",
		"sunday":    "none",
	})
}
