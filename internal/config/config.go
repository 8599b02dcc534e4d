package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. WHITEBOARD_SERVER_ADDR.
const EnvPrefix = "WHITEBOARD"

type Config struct {
	Server ServerConfig
	Admin  AdminConfig
	MDNS   MDNSConfig
	Log    LogConfig
	Board  BoardConfig
}

type ServerConfig struct {
	Addr         string
	MaxLineBytes int
	OutboxSize   int
	WriteTimeout time.Duration
}

// AdminConfig configures the HTTP admin listener. An empty Addr disables it.
type AdminConfig struct {
	Addr string
}

type MDNSConfig struct {
	Enabled  bool
	Instance string
}

type LogConfig struct {
	Level string
	File  string
}

type BoardConfig struct {
	Width  int
	Height int
}

// SetDefaults installs the built-in values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":4444")
	v.SetDefault("server.max_line_bytes", 64*1024)
	v.SetDefault("server.outbox_size", 256)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("admin.addr", "127.0.0.1:8080")
	v.SetDefault("mdns.enabled", false)
	v.SetDefault("mdns.instance", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("board.width", 600)
	v.SetDefault("board.height", 400)
}

// Load reads configuration from v: defaults, then the file named by
// "config" if set, then WHITEBOARD_* environment variables. Flags bound to v
// before Load win over all of these.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Addr:         v.GetString("server.addr"),
			MaxLineBytes: v.GetInt("server.max_line_bytes"),
			OutboxSize:   v.GetInt("server.outbox_size"),
			WriteTimeout: v.GetDuration("server.write_timeout"),
		},
		Admin: AdminConfig{
			Addr: v.GetString("admin.addr"),
		},
		MDNS: MDNSConfig{
			Enabled:  v.GetBool("mdns.enabled"),
			Instance: v.GetString("mdns.instance"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
			File:  v.GetString("log.file"),
		},
		Board: BoardConfig{
			Width:  v.GetInt("board.width"),
			Height: v.GetInt("board.height"),
		},
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	switch {
	case c.Server.Addr == "":
		return errors.New("server.addr must not be empty")
	case c.Server.MaxLineBytes <= 0:
		return errors.Errorf("server.max_line_bytes must be positive, got %d", c.Server.MaxLineBytes)
	case c.Server.OutboxSize <= 0:
		return errors.Errorf("server.outbox_size must be positive, got %d", c.Server.OutboxSize)
	case c.Server.WriteTimeout <= 0:
		return errors.Errorf("server.write_timeout must be positive, got %s", c.Server.WriteTimeout)
	case c.Board.Width <= 0 || c.Board.Height <= 0:
		return errors.Errorf("board size must be positive, got %dx%d", c.Board.Width, c.Board.Height)
	}
	return nil
}
