package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

var (
	instance *Config
	once     sync.Once
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Audio    AudioConfig    `mapstructure:"audio"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Advanced AdvancedConfig `mapstructure:"advanced"`
	v        *viper.Viper
	mu       sync.RWMutex
}

type AppConfig struct {
	Name    string `mapstructure:"name"`
	DataDir string `mapstructure:"data_dir"`
	LogDir  string `mapstructure:"log_dir"`
}

type AudioConfig struct {
	OutputDevice string `mapstructure:"output_device"`
	// OutputMode selects the backend: "native" negotiates devices and
	// passthrough through the hardware layer, "simple" plays through the
	// default device with no negotiation.
	OutputMode  string  `mapstructure:"output_mode"`
	Passthrough bool    `mapstructure:"passthrough"`
	SampleRate  int     `mapstructure:"sample_rate"`
	Channels    int     `mapstructure:"channels"`
	BitDepth    int     `mapstructure:"bit_depth"`
	BufferSize  int     `mapstructure:"buffer_size"` // ring capacity in bytes
	Volume      float64 `mapstructure:"volume"`
}

type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
	File    bool   `mapstructure:"file"`
}

type AdvancedConfig struct {
	// ExtraBitstreamTags adds four-character format tags to treat as
	// compressed bitstream formats, for drivers with non-standard tags.
	ExtraBitstreamTags []string `mapstructure:"extra_bitstream_tags"`
}

func Get() *Config {
	once.Do(func() {
		instance = &Config{}
		if err := instance.load(); err != nil {
			fmt.Printf("Failed to load configuration: %v\n", err)
		}
	})
	return instance
}

func (c *Config) load() error {
	c.v = viper.New()
	c.v.SetConfigName("mythaudio")
	c.v.SetConfigType("yaml")
	c.v.AddConfigPath(c.getUserConfigDir())
	c.v.AddConfigPath(".")

	c.setDefaults()

	if err := c.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config: %w", err)
		}
		// No config file is fine; defaults apply.
	}

	if err := c.v.Unmarshal(c); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	c.v.OnConfigChange(func(e fsnotify.Event) {
		c.mu.Lock()
		defer c.mu.Unlock()
		_ = c.v.Unmarshal(c)
	})
	c.v.WatchConfig()

	return nil
}

func (c *Config) setDefaults() {
	c.v.SetDefault("app.name", "MythAudio")
	c.v.SetDefault("app.data_dir", c.getDataDir())
	c.v.SetDefault("app.log_dir", filepath.Join(c.getDataDir(), "logs"))

	c.v.SetDefault("audio.output_device", "")
	c.v.SetDefault("audio.output_mode", "native")
	c.v.SetDefault("audio.passthrough", false)
	c.v.SetDefault("audio.sample_rate", 48000)
	c.v.SetDefault("audio.channels", 2)
	c.v.SetDefault("audio.bit_depth", 16)
	c.v.SetDefault("audio.buffer_size", 256*1024)
	c.v.SetDefault("audio.volume", 0.8)

	c.v.SetDefault("logging.level", "info")
	c.v.SetDefault("logging.console", true)
	c.v.SetDefault("logging.file", true)

	c.v.SetDefault("advanced.extra_bitstream_tags", []string{})
}

func (c *Config) getUserConfigDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), "MythAudio")
	}
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "mythaudio")
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "mythaudio")
}

func (c *Config) getDataDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), "MythAudio")
	}
	return filepath.Join(os.Getenv("HOME"), ".local", "share", "mythaudio")
}

func (c *Config) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.WriteConfig()
}

func (c *Config) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.v.Set(key, value)
	_ = c.v.Unmarshal(c)
}
