package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	FetcherYTDLP  = "ytdlp"
	FetcherRemote = "remote"
)

type Config struct {
	TelegramToken    string        `mapstructure:"telegram_token"`
	AdminID          int64         `mapstructure:"admin_id"`
	BotHandleTimeout time.Duration `mapstructure:"bot_handle_timeout"`
	SupportURL       string        `mapstructure:"support_url"`

	DatabaseDSN string `mapstructure:"database_dsn"`

	Fetcher       string        `mapstructure:"fetcher"`
	FetchTimeout  time.Duration `mapstructure:"fetch_timeout"`
	FetchWorkers  int           `mapstructure:"fetch_workers"`
	YTDLPPath     string        `mapstructure:"ytdlp_path"`
	FetcherAPIURL string        `mapstructure:"fetcher_api_url"`
	FetcherAPIKey string        `mapstructure:"fetcher_api_key"`

	StagingDir      string        `mapstructure:"staging_dir"`
	StagingTTL      time.Duration `mapstructure:"staging_ttl"`
	CleanupSchedule string        `mapstructure:"cleanup_schedule"`
	SessionTTL      time.Duration `mapstructure:"session_ttl"`

	BroadcastRate float64 `mapstructure:"broadcast_rate"`

	APIListen string `mapstructure:"api_listen"`
}

func New() *Config {
	cfg, err := Load()
	if err != nil {
		logrus.Fatalf("loading config: %v", err)
	}
	return cfg
}

func Load() (*Config, error) {
	if path := viper.GetString("config_file"); path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.TelegramToken == "" {
		errs = append(errs, errors.New("telegram_token is required"))
	}
	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("database_dsn is required"))
	}
	if c.AdminID == 0 {
		errs = append(errs, errors.New("admin_id is required"))
	}
	switch c.Fetcher {
	case FetcherYTDLP:
	case FetcherRemote:
		if c.FetcherAPIURL == "" {
			errs = append(errs, errors.New("fetcher_api_url is required for the remote fetcher"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown fetcher %q", c.Fetcher))
	}
	switch {
	case c.FetchTimeout <= 0:
		errs = append(errs, errors.New("fetch_timeout must be positive"))
	case c.StagingTTL <= c.FetchTimeout:
		errs = append(errs, fmt.Errorf("staging_ttl (%s) must exceed fetch_timeout (%s)", c.StagingTTL, c.FetchTimeout))
	}
	if c.FetchWorkers <= 0 {
		errs = append(errs, errors.New("fetch_workers must be positive"))
	}
	if c.BroadcastRate <= 0 {
		errs = append(errs, errors.New("broadcast_rate must be positive"))
	}
	return errors.Join(errs...)
}

// String hides the credentials so the config can be logged at debug level.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config(admin=%d, fetcher=%s, workers=%d, fetch_timeout=%s, staging=%s, api=%s)",
		c.AdminID,
		c.Fetcher,
		c.FetchWorkers,
		c.FetchTimeout,
		c.StagingDir,
		c.APIListen,
	)
}

func SetupCommon() {
	viper.SetDefault("bot_handle_timeout", "10s")
	viper.SetDefault("fetcher", FetcherYTDLP)
	viper.SetDefault("fetch_timeout", "5m")
	viper.SetDefault("fetch_workers", 4)
	viper.SetDefault("ytdlp_path", "yt-dlp")
	viper.SetDefault("staging_dir", "downloads")
	viper.SetDefault("staging_ttl", "1h")
	viper.SetDefault("cleanup_schedule", "@every 10m")
	viper.SetDefault("session_ttl", "24h")
	viper.SetDefault("broadcast_rate", 25)
	viper.SetDefault("api_listen", ":8080")
	viper.SetEnvPrefix("GRABBER")

	viper.MustBindEnv("telegram_token")
	viper.MustBindEnv("database_dsn")
	viper.MustBindEnv("admin_id")
	viper.MustBindEnv("support_url")
	viper.MustBindEnv("fetcher_api_url")
	viper.MustBindEnv("fetcher_api_key")
	viper.MustBindEnv("config_file")
	viper.AutomaticEnv()
}
