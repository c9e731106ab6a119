package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mattsolo1/grove-playground/pkg/logging"
	"github.com/mattsolo1/grove-playground/pkg/service"
	"github.com/mattsolo1/grove-playground/pkg/store"
)

var (
	cfgFile           string
	WorkspaceOverride string

	// store.backend is read from PLAYGROUND_STORE_BACKEND.
	envKeyReplacer = strings.NewReplacer(".", "_")
)

// Config is the decoded configuration.
type Config struct {
	DataDir   string         `mapstructure:"data_dir"`
	Workspace string         `mapstructure:"workspace"`
	Store     store.Config   `mapstructure:"store"`
	Autosave  AutosaveConfig `mapstructure:"autosave"`
	Server    ServerConfig   `mapstructure:"server"`
	Log       LogConfig      `mapstructure:"log"`
}

type AutosaveConfig struct {
	Window       time.Duration `mapstructure:"window"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Optimistic   bool          `mapstructure:"optimistic"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Addr is the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func InitConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		configDir := filepath.Join(home, ".config", "playground")
		viper.AddConfigPath(configDir)
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("PLAYGROUND")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	SetDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			logging.NewLogger("grove-playground.config").WithError(err).Warn("Failed to read config file")
		}
	}
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()
	v.SetDefault("data_dir", filepath.Join(home, ".local", "share", "playground"))
	v.SetDefault("workspace", "")
	v.SetDefault("store.backend", store.BackendSQLite)
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("store.redis_prefix", "playground:")
	v.SetDefault("store.base_url", "")
	v.SetDefault("autosave.window", "1s")
	v.SetDefault("autosave.write_timeout", "10s")
	v.SetDefault("autosave.optimistic", false)
	v.SetDefault("autosave.max_attempts", 3)
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.host", "")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("log.level", "warn")
}

// Load decodes v into a Config.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("data_dir cannot be empty")
	}
	if cfg.Autosave.Window <= 0 {
		return nil, fmt.Errorf("autosave.window must be positive, got %s", cfg.Autosave.Window)
	}
	return &cfg, nil
}

// InitService opens the configured store and creates the service with the
// configured (or most recently used) workspace active.
func InitService(ctx context.Context, cfg *Config) (*service.Service, error) {
	st, err := store.Open(ctx, cfg.Store, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}

	svc, err := service.New(&service.Config{
		DataDir:      cfg.DataDir,
		Window:       cfg.Autosave.Window,
		WriteTimeout: cfg.Autosave.WriteTimeout,
		Optimistic:   cfg.Autosave.Optimistic,
		MaxAttempts:  cfg.Autosave.MaxAttempts,
	}, st)
	if err != nil {
		st.Close()
		return nil, err
	}

	key := WorkspaceOverride
	if key == "" {
		key = cfg.Workspace
	}
	if key == "" {
		current, err := svc.Registry.Current()
		if err != nil {
			svc.Close(ctx)
			return nil, fmt.Errorf("find current workspace: %w", err)
		}
		key = current.Key
	}
	if _, err := svc.OpenWorkspace(ctx, key); err != nil {
		svc.Close(ctx)
		return nil, fmt.Errorf("open workspace %s: %w", key, err)
	}
	return svc, nil
}

func AddGlobalFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/playground/config.yaml)")
	flags.StringVarP(&WorkspaceOverride, "workspace", "W", "", "Workspace key to open instead of the most recently used one")
	flags.String("store", "", "Document store backend (memory, sqlite, postgres, redis, afs)")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")

	_ = viper.BindPFlag("store.backend", flags.Lookup("store"))
	_ = viper.BindPFlag("log.level", flags.Lookup("log-level"))
}
