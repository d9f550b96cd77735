// Package config provides YAML-based configuration loading for btlink.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the root daemon configuration.
type Config struct {
	// AppName optional logical name of the daemon instance
	AppName string `mapstructure:"app_name"`

	// Log holds logging configuration
	Log LogConfig `mapstructure:"log"`

	// Link configures the transport and connection behavior
	Link LinkConfig `mapstructure:"link"`

	// Audio configures the PCM format and the local sources/sinks
	Audio AudioConfig `mapstructure:"audio"`

	// Control configures the local HTTP/WebSocket control surface
	Control ControlConfig `mapstructure:"control"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: console or json
	Format string `mapstructure:"format"`
	// Outputs: list of outputs: stdout, stderr, or file paths
	Outputs []string `mapstructure:"outputs"`

	// Rotation controls file rotation when writing to files
	Rotation RotationConfig `mapstructure:"rotation"`
	// Development toggles development-friendly logging options
	Development bool `mapstructure:"development"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
	Enable     bool   `mapstructure:"enable"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// LinkConfig selects the transport and its addressing.
type LinkConfig struct {
	// Transport: l2cap, tcp or mem
	Transport string `mapstructure:"transport"`

	// PSM is the L2CAP protocol/service multiplexer the link binds and dials.
	PSM uint32 `mapstructure:"psm"`

	// Adapter optionally names the local Bluetooth adapter (e.g. hci0).
	// Empty selects the first powered adapter.
	Adapter string `mapstructure:"adapter"`

	// ListenAddr is the bind address for the tcp transport.
	ListenAddr string `mapstructure:"listen_addr"`
}

// AudioConfig describes the PCM format and which local endpoints are active.
type AudioConfig struct {
	// SampleRate in Hz
	SampleRate int `mapstructure:"sample_rate"`
	// Channels: 1 (mono) or 2 (stereo)
	Channels int `mapstructure:"channels"`
	// SampleWidth in bytes per sample (2 = 16-bit PCM)
	SampleWidth int `mapstructure:"sample_width"`

	// BufferSize is the chunk size in bytes moved per pump iteration.
	BufferSize int `mapstructure:"buffer_size"`
	// DeviceBufferMultiple sizes device-internal buffering as a multiple
	// of BufferSize.
	DeviceBufferMultiple int `mapstructure:"device_buffer_multiple"`

	// Source: capture or file
	Source string `mapstructure:"source"`
	// InputFile is the PCM file read when Source is file
	InputFile string `mapstructure:"input_file"`

	// Playback enables the playback-device sink
	Playback bool `mapstructure:"playback"`
	// ToFile enables the file sink
	ToFile bool `mapstructure:"to_file"`
	// OutputFile is the PCM file written when ToFile is set
	OutputFile string `mapstructure:"output_file"`
	// Loopback echoes received chunks back to the peer. Only honored on
	// the side that is not itself sending.
	Loopback bool `mapstructure:"loopback"`
}

// ControlConfig configures the local control API.
type ControlConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// Default returns a Config populated with sensible defaults.
// The audio defaults match high-quality mono SBC input: 48 kHz, 16-bit,
// one channel, 768-byte chunks.
func Default() *Config {
	return &Config{
		AppName: "btlinkd",
		Log: LogConfig{
			Level:       "info",
			Format:      "console",
			Outputs:     []string{"stdout"},
			Development: true,
			Rotation: RotationConfig{
				Enable:     false,
				Filename:   "logs/btlink.log",
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
				Compress:   true,
			},
		},
		Link: LinkConfig{
			Transport:  "l2cap",
			PSM:        0x20025,
			ListenAddr: ":7355",
		},
		Audio: AudioConfig{
			SampleRate:           48000,
			Channels:             1,
			SampleWidth:          2,
			BufferSize:           768,
			DeviceBufferMultiple: 4,
			Source:               "capture",
			InputFile:            "input.pcm",
			Playback:             true,
			ToFile:               false,
			OutputFile:           "output.pcm",
			Loopback:             false,
		},
		Control: ControlConfig{
			Enabled:    true,
			ListenAddr: "127.0.0.1:8490",
		},
	}
}

// Load reads configuration from the provided path (if non-empty),
// otherwise it searches common locations and supports environment overrides.
// Environment variables use the prefix BTLINK and `.`/`-` are replaced
// with `_`. Example: BTLINK_LOG_LEVEL=debug
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("BTLINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// seed defaults for viper so env-only configs work
	v.SetDefault("app_name", cfg.AppName)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.outputs", cfg.Log.Outputs)
	v.SetDefault("log.development", cfg.Log.Development)
	v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
	v.SetDefault("log.rotation.filename", cfg.Log.Rotation.Filename)
	v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)
	v.SetDefault("link.transport", cfg.Link.Transport)
	v.SetDefault("link.psm", cfg.Link.PSM)
	v.SetDefault("link.adapter", cfg.Link.Adapter)
	v.SetDefault("link.listen_addr", cfg.Link.ListenAddr)
	v.SetDefault("audio.sample_rate", cfg.Audio.SampleRate)
	v.SetDefault("audio.channels", cfg.Audio.Channels)
	v.SetDefault("audio.sample_width", cfg.Audio.SampleWidth)
	v.SetDefault("audio.buffer_size", cfg.Audio.BufferSize)
	v.SetDefault("audio.device_buffer_multiple", cfg.Audio.DeviceBufferMultiple)
	v.SetDefault("audio.source", cfg.Audio.Source)
	v.SetDefault("audio.input_file", cfg.Audio.InputFile)
	v.SetDefault("audio.playback", cfg.Audio.Playback)
	v.SetDefault("audio.to_file", cfg.Audio.ToFile)
	v.SetDefault("audio.output_file", cfg.Audio.OutputFile)
	v.SetDefault("audio.loopback", cfg.Audio.Loopback)
	v.SetDefault("control.enabled", cfg.Control.Enabled)
	v.SetDefault("control.listen_addr", cfg.Control.ListenAddr)

	// Choose config file
	if path == "" {
		// Allow override via env var
		if envPath := os.Getenv("BTLINK_CONFIG"); envPath != "" {
			path = envPath
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		// Search common locations with base name `btlink`
		v.SetConfigName("btlink")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".btlink"))
		}
	}

	// Read config file if present; if not found, continue with defaults/env
	if err := v.ReadInConfig(); err != nil {
		var viperConfigFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &viperConfigFileNotFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	lvl := strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch lvl {
	case "debug", "info", "warn", "warning", "error":
		// ok
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}

	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if len(c.Log.Outputs) == 0 {
		c.Log.Outputs = []string{"stdout"}
	}

	c.Link.Transport = strings.ToLower(strings.TrimSpace(c.Link.Transport))
	switch c.Link.Transport {
	case "l2cap", "tcp", "mem":
		// ok
	default:
		return fmt.Errorf("invalid link.transport: %q", c.Link.Transport)
	}

	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("invalid audio.sample_rate: %d", c.Audio.SampleRate)
	}
	switch c.Audio.Channels {
	case 1, 2:
		// ok
	default:
		return fmt.Errorf("invalid audio.channels: %d", c.Audio.Channels)
	}
	switch c.Audio.SampleWidth {
	case 1, 2, 4:
		// ok
	default:
		return fmt.Errorf("invalid audio.sample_width: %d", c.Audio.SampleWidth)
	}
	if c.Audio.BufferSize <= 0 {
		return fmt.Errorf("invalid audio.buffer_size: %d", c.Audio.BufferSize)
	}
	if c.Audio.DeviceBufferMultiple <= 0 {
		c.Audio.DeviceBufferMultiple = 4
	}
	c.Audio.Source = strings.ToLower(strings.TrimSpace(c.Audio.Source))
	switch c.Audio.Source {
	case "capture", "file":
		// ok
	default:
		return fmt.Errorf("invalid audio.source: %q", c.Audio.Source)
	}
	return nil
}

// MustLoad is a convenience that panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}
