// Package config loads server configuration from an optional config.yaml and
// TELESTRATIONS_* environment variables, and watches the file for changes.
package config

import (
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/ThakurMayank5/Telestrations-Server/internal/game"
	"github.com/ThakurMayank5/Telestrations-Server/internal/room"
	"github.com/ThakurMayank5/Telestrations-Server/internal/transport"
)

const envPrefix = "TELESTRATIONS"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Game      GameConfig      `mapstructure:"game"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// PublicURL is the client page players open to join a room. QR codes
	// point at PublicURL?room=CODE.
	PublicURL      string   `mapstructure:"public_url"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type WebSocketConfig struct {
	WriteWait      time.Duration `mapstructure:"write_wait"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBuffer     int           `mapstructure:"send_buffer"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	RateBurst      int           `mapstructure:"rate_burst"`
}

type GameConfig struct {
	DrawTime          time.Duration `mapstructure:"draw_time"`
	GuessTime         time.Duration `mapstructure:"guess_time"`
	Grace             time.Duration `mapstructure:"grace"`
	Settle            time.Duration `mapstructure:"settle"`
	DisconnectTimeout time.Duration `mapstructure:"disconnect_timeout"`
	ReconnectWindow   time.Duration `mapstructure:"reconnect_window"`
	VoteTimeout       time.Duration `mapstructure:"vote_timeout"`
	Quorum            int           `mapstructure:"quorum"`
	StrictDeadline    bool          `mapstructure:"strict_deadline"`
	MaxPlayers        int           `mapstructure:"max_players"`
	MinPlayers        int           `mapstructure:"min_players"`
	ChatHistory       int           `mapstructure:"chat_history"`
	// Words replaces the built-in word bank when non-empty.
	Words []string `mapstructure:"words"`
}

type LogConfig struct {
	Level  string        `mapstructure:"level"`
	Format string        `mapstructure:"format"` // json or console
	Output string        `mapstructure:"output"` // stdout, file or both
	File   LogFileConfig `mapstructure:"file"`
}

type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxAge     int    `mapstructure:"max_age"`  // days
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// Loader owns the viper instance behind a Config.
type Loader struct {
	v   *viper.Viper
	mu  sync.RWMutex
	cfg *Config
}

// Load reads configPath, or config.yaml from ./config or the working
// directory when configPath is empty. A missing default file is not an error.
func Load(configPath string) (*Loader, error) {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	cfg, err := unmarshal(v)
	if err != nil {
		return nil, err
	}
	return &Loader{v: v, cfg: cfg}, nil
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.public_url", "http://localhost:5173")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.max_message_size", 2<<20)
	v.SetDefault("websocket.send_buffer", 256)
	v.SetDefault("websocket.rate_limit", 10)
	v.SetDefault("websocket.rate_burst", 20)

	v.SetDefault("game.draw_time", "60s")
	v.SetDefault("game.guess_time", "45s")
	v.SetDefault("game.grace", "1s")
	v.SetDefault("game.settle", "2s")
	v.SetDefault("game.disconnect_timeout", "15s")
	v.SetDefault("game.reconnect_window", "60s")
	v.SetDefault("game.vote_timeout", "30s")
	v.SetDefault("game.quorum", 3)
	v.SetDefault("game.strict_deadline", false)
	v.SetDefault("game.max_players", room.DefaultMaxPlayer)
	v.SetDefault("game.min_players", room.DefaultMinPlayer)
	v.SetDefault("game.chat_history", room.DefaultChatLimit)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file.path", "./logs")
	v.SetDefault("log.file.filename", "telestrations.log")
	v.SetDefault("log.file.max_size", 100)
	v.SetDefault("log.file.max_age", 30)
	v.SetDefault("log.file.max_backups", 7)
	v.SetDefault("log.file.compress", true)
}

func (l *Loader) Get() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}

// File is the config file in use, or "" when running on defaults.
func (l *Loader) File() string {
	return l.v.ConfigFileUsed()
}

// Watch re-reads the file on every change and hands the new Config to
// callback. Unparseable edits are passed to onError and the previous Config
// stays in effect.
func (l *Loader) Watch(callback func(*Config), onError func(error)) {
	if l.File() == "" {
		return
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := unmarshal(l.v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		l.mu.Lock()
		l.cfg = cfg
		l.mu.Unlock()
		if callback != nil {
			callback(cfg)
		}
	})
	l.v.WatchConfig()
}

func (c *Config) GameSettings() game.Settings {
	g := c.Game
	return game.Settings{
		DrawTime:          g.DrawTime,
		GuessTime:         g.GuessTime,
		Grace:             g.Grace,
		Settle:            g.Settle,
		DisconnectTimeout: g.DisconnectTimeout,
		ReconnectWindow:   g.ReconnectWindow,
		VoteTimeout:       g.VoteTimeout,
		Quorum:            g.Quorum,
		StrictDeadline:    g.StrictDeadline,
	}
}

func (c *Config) Limits() room.Limits {
	return room.Limits{
		MaxPlayers:  c.Game.MaxPlayers,
		MinPlayers:  c.Game.MinPlayers,
		ChatHistory: c.Game.ChatHistory,
	}
}

func (c *Config) TransportOptions() transport.Options {
	w := c.WebSocket
	return transport.Options{
		WriteWait:      w.WriteWait,
		PongWait:       w.PongWait,
		MaxMessageSize: w.MaxMessageSize,
		SendBuffer:     w.SendBuffer,
		RateLimit:      w.RateLimit,
		RateBurst:      w.RateBurst,
	}
}

// AllowOrigin reports whether origin may open a websocket. "*" allows all.
func (c *Config) AllowOrigin(origin string) bool {
	for _, o := range c.Server.AllowedOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}
