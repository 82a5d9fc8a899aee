package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/DaDevFox/task-systems/household-core/internal/kvstore"
	"github.com/DaDevFox/task-systems/household-core/internal/notify"
	"github.com/DaDevFox/task-systems/household-core/internal/store"
)

// EnvPrefix is prepended to every environment override, e.g. HOUSEHOLD_DB_PATH
const EnvPrefix = "HOUSEHOLD"

// Config holds all service configuration.
type Config struct {
	DB        DBConfig
	State     StateConfig
	Logger    LoggerConfig
	Notify    NotifyConfig
	Scheduler SchedulerConfig
	Health    HealthConfig
	Seed      SeedConfig
}

type DBConfig struct {
	Path          string
	TargetVersion int
}

type StateConfig struct {
	Path    string
	Backend kvstore.Type
}

type LoggerConfig struct {
	Level  string
	Format string
}

type NotifyConfig struct {
	Methods     []notify.Method
	NtfyHost    string
	NtfyTopic   string
	GotifyURL   string
	GotifyToken string
}

type SchedulerConfig struct {
	Interval time.Duration
	Tick     time.Duration
}

type HealthConfig struct {
	Addr string
}

type SeedConfig struct {
	OnStart bool
}

// Load reads configuration from, in increasing priority: defaults, the
// config file, a .env file in the working directory and the environment.
// An empty configFile searches household.yaml in ./config and the working
// directory; a missing file is not an error unless configFile names it.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("household")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	cfg.DB.Path = v.GetString("db.path")
	cfg.DB.TargetVersion = v.GetInt("db.target_version")
	cfg.State.Path = v.GetString("state.path")
	cfg.State.Backend = kvstore.Type(v.GetString("state.backend"))
	cfg.Logger.Level = v.GetString("log.level")
	cfg.Logger.Format = v.GetString("log.format")
	cfg.Notify.Methods = parseMethods(v.GetString("notify.methods"))
	cfg.Notify.NtfyHost = v.GetString("notify.ntfy_host")
	cfg.Notify.NtfyTopic = v.GetString("notify.ntfy_topic")
	cfg.Notify.GotifyURL = v.GetString("notify.gotify_url")
	cfg.Notify.GotifyToken = v.GetString("notify.gotify_token")
	cfg.Scheduler.Interval = v.GetDuration("scheduler.interval")
	cfg.Scheduler.Tick = v.GetDuration("scheduler.tick")
	cfg.Health.Addr = v.GetString("health.addr")
	cfg.Seed.OnStart = v.GetBool("seed.on_start")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db.path", "data/"+store.DefaultDBFile)
	v.SetDefault("db.target_version", store.LatestVersion)
	v.SetDefault("state.path", "data/state")
	v.SetDefault("state.backend", string(kvstore.TypeBolt))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("notify.methods", "log,inbox")
	v.SetDefault("notify.ntfy_host", "ntfy.sh")
	v.SetDefault("notify.ntfy_topic", "")
	v.SetDefault("notify.gotify_url", "")
	v.SetDefault("notify.gotify_token", "")
	v.SetDefault("scheduler.interval", "24h")
	v.SetDefault("scheduler.tick", "1m")
	v.SetDefault("health.addr", ":50061")
	v.SetDefault("seed.on_start", true)
}

// parseMethods splits a comma separated method list, dropping blanks
func parseMethods(raw string) []notify.Method {
	var methods []notify.Method
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		if part != "" {
			methods = append(methods, notify.Method(part))
		}
	}
	return methods
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.DB.Path == "" {
		return errors.New("db.path is required")
	}
	if c.DB.TargetVersion < 1 || c.DB.TargetVersion > store.LatestVersion {
		return fmt.Errorf("db.target_version must be between 1 and %d, got %d", store.LatestVersion, c.DB.TargetVersion)
	}
	if c.State.Path == "" {
		return errors.New("state.path is required")
	}
	if _, ok := kvstore.Info()[c.State.Backend]; !ok {
		return fmt.Errorf("state.backend must be one of bolt, badger; got %q", c.State.Backend)
	}
	if c.Scheduler.Interval <= 0 {
		return errors.New("scheduler.interval must be positive")
	}
	if c.Scheduler.Tick <= 0 {
		return errors.New("scheduler.tick must be positive")
	}
	for _, m := range c.Notify.Methods {
		switch m {
		case notify.MethodLog, notify.MethodInbox, notify.MethodNtfy, notify.MethodGotify:
		default:
			return fmt.Errorf("unsupported notification method: %s", m)
		}
	}
	return nil
}

// NotifierConfig converts the notify section for notify.New
func (c *Config) NotifierConfig() notify.Config {
	return notify.Config{
		Methods:     c.Notify.Methods,
		NtfyHost:    c.Notify.NtfyHost,
		NtfyTopic:   c.Notify.NtfyTopic,
		GotifyURL:   c.Notify.GotifyURL,
		GotifyToken: c.Notify.GotifyToken,
	}
}
