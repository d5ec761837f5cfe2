package app

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	inventory "github.com/matt653/high-life-auto-sub000"
	"github.com/matt653/high-life-auto-sub000/internal/enhancements"
	"github.com/matt653/high-life-auto-sub000/internal/server"
	"github.com/matt653/high-life-auto-sub000/internal/snapshot"
	"github.com/matt653/high-life-auto-sub000/pkg/authority"
	"github.com/matt653/high-life-auto-sub000/pkg/constants"
	"github.com/matt653/high-life-auto-sub000/pkg/errors"
)

// Config holds the application configuration loaded from the config file,
// environment variables and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// LogLevelFlag is the explicit --log-level value; LogLevel comes from
	// the environment or the config file.
	LogLevelFlag string

	ConfigFile string

	Feeds    []inventory.Feed
	DataPath string

	SnapshotDriver string
	SnapshotPath   string

	Enhancements enhancements.Config

	// Authority replaces the default precedence table when non-empty.
	Authority []authority.Field

	ResolveDeadline    time.Duration
	EnhancementTimeout time.Duration
	NavTTL             time.Duration
	AutoUpdatesEnabled bool
	AutoUpdateInterval time.Duration

	Server server.Config

	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables
// 3. .env files
// 4. Config file (--config, or .inventory.yaml in $HOME or the working directory)
// 5. Defaults
func LoadConfig(configFile string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	setDefaults(v)

	if configFile == "" {
		configFile = os.Getenv("INVENTORY_CONFIG")
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewConfigError("config", "reading "+configFile, err)
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".inventory")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.NewConfigError("config", "reading "+v.ConfigFileUsed(), err)
			}
		}
	}

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	srv := server.DefaultConfig()

	v.SetDefault("data_path", constants.DefaultDataPath)
	v.SetDefault("snapshot.driver", snapshot.DriverSQLite)
	v.SetDefault("enhancements.driver", enhancements.DriverFile)
	v.SetDefault("redis.key", "inventory:enhancements")
	v.SetDefault("postgres.max_conns", 4)
	v.SetDefault("loader.deadline", constants.ResolveDeadline)
	v.SetDefault("loader.nav_ttl", constants.CacheTTL)
	v.SetDefault("enhancer.timeout", constants.EnhancementTimeout)
	v.SetDefault("auto_updates", false)
	v.SetDefault("auto_update_interval", constants.DefaultUpdateInterval)
	v.SetDefault("server.host", srv.Host)
	v.SetDefault("server.port", srv.Port)
	v.SetDefault("server.prefix", srv.PathPrefix)
	v.SetDefault("server.auth_header", srv.AuthHeader)
	v.SetDefault("server.ingest_rate_limit", srv.IngestRateLimit)
	v.SetDefault("server.cache_ttl", srv.CacheTTL)
	v.SetDefault("log_format", "auto")
	v.SetDefault("log_output", "stderr")
}

func fromViper(v *viper.Viper) (*Config, error) {
	dataPath := expandPath(v.GetString("data_path"))

	srv := server.DefaultConfig()
	srv.Host = v.GetString("server.host")
	srv.Port = v.GetInt("server.port")
	srv.PathPrefix = v.GetString("server.prefix")
	srv.AuthHeader = v.GetString("server.auth_header")
	srv.APIKey = v.GetString("server.api_key")
	srv.AuthEnabled = srv.APIKey != ""
	srv.IngestRateLimit = v.GetInt("server.ingest_rate_limit")
	srv.CacheTTL = v.GetDuration("server.cache_ttl")
	if origins := v.GetStringSlice("server.cors_origins"); len(origins) > 0 {
		srv.CORSEnabled = true
		srv.CORSOrigins = origins
	}

	config := &Config{
		ConfigFile: v.ConfigFileUsed(),
		DataPath:   dataPath,

		SnapshotDriver: v.GetString("snapshot.driver"),
		SnapshotPath:   expandPath(v.GetString("snapshot.path")),

		Enhancements: enhancements.Config{
			Driver:   v.GetString("enhancements.driver"),
			Path:     expandPath(v.GetString("enhancements.path")),
			Fallback: expandPaths(v.GetStringSlice("enhancements.fallback")),
			Redis: enhancements.RedisOptions{
				Addr:     v.GetString("redis.addr"),
				Password: v.GetString("redis.password"),
				DB:       v.GetInt("redis.db"),
				Key:      v.GetString("redis.key"),
			},
			PostgresDSN:      v.GetString("postgres.dsn"),
			PostgresMaxConns: v.GetInt("postgres.max_conns"),
		},

		ResolveDeadline:    v.GetDuration("loader.deadline"),
		NavTTL:             v.GetDuration("loader.nav_ttl"),
		EnhancementTimeout: v.GetDuration("enhancer.timeout"),
		AutoUpdatesEnabled: v.GetBool("auto_updates"),
		AutoUpdateInterval: v.GetDuration("auto_update_interval"),

		Server: srv,

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
		LogOutput: v.GetString("log_output"),
	}

	if err := v.UnmarshalKey("feeds", &config.Feeds); err != nil {
		return nil, errors.NewConfigError("feeds", "invalid feed list", err)
	}
	if err := v.UnmarshalKey("authority", &config.Authority); err != nil {
		return nil, errors.NewConfigError("authority", "invalid precedence table", err)
	}
	for i := range config.Feeds {
		config.Feeds[i].Path = expandPath(config.Feeds[i].Path)
		config.Feeds[i].Headers = expandPath(config.Feeds[i].Headers)
	}
	for i, f := range config.Authority {
		rule, err := authority.ParseRule(string(f.Rule))
		if err != nil {
			return nil, errors.NewConfigError("authority", "entry "+f.Path, err)
		}
		config.Authority[i].Rule = rule
	}

	if config.SnapshotPath == "" {
		name := constants.DefaultSnapshotFile
		if strings.EqualFold(config.SnapshotDriver, snapshot.DriverYAML) {
			name = "snapshots"
		}
		config.SnapshotPath = filepath.Join(dataPath, name)
	}
	if config.Enhancements.Path == "" {
		config.Enhancements.Path = filepath.Join(dataPath, "enhancements.yaml")
	}
	if config.AutoUpdateInterval <= 0 {
		config.AutoUpdateInterval = constants.DefaultUpdateInterval
	}

	return config, nil
}

// UpdateFromFlags applies parsed persistent flags. Flag values take
// precedence over the config file and the environment.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	c.LogLevelFlag = logLevel
}

// loadEnvFiles loads .env and then .env.local. Variables already set in
// the environment are not overridden.
func loadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Load(envFile)
	}
}

// expandPath expands a leading ~ to the user's home directory.
func expandPaths(paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, expandPath(p))
		}
	}
	return out
}

func expandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
