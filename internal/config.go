package internal

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/0xRadioAc7iv/go-prespec/core"
)

type Config struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Image    string `mapstructure:"image"`
	Enable   bool   `mapstructure:"enable"`
	LogLevel string `mapstructure:"log_level"`
}

const DEFAULT_HOST = "127.0.0.1"
const DEFAULT_PORT = core.DefaultListenerPort
const DEFAULT_LOG_LEVEL = "info"

// Config keys. PRESPEC_IMAGE and PRESPEC_ENABLE are read by the runtime
// directory as well, so the environment means the same thing to both.
const (
	cfgKeyHost     = "host"
	cfgKeyPort     = "port"
	cfgKeyImage    = "image"
	cfgKeyEnable   = "enable"
	cfgKeyLogLevel = "log_level"
)

func DefaultConfig() *Config {
	return &Config{
		Host:     DEFAULT_HOST,
		Port:     DEFAULT_PORT,
		Enable:   true,
		LogLevel: DEFAULT_LOG_LEVEL,
	}
}

// LoadConfig resolves configuration from, in increasing precedence, the
// defaults, the YAML file at path (skipped when path is empty), PRESPEC_*
// environment variables and any flags in flags that were set explicitly.
func LoadConfig(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	def := DefaultConfig()
	v.SetDefault(cfgKeyHost, def.Host)
	v.SetDefault(cfgKeyPort, def.Port)
	v.SetDefault(cfgKeyImage, def.Image)
	v.SetDefault(cfgKeyEnable, def.Enable)
	v.SetDefault(cfgKeyLogLevel, def.LogLevel)

	v.SetEnvPrefix("PRESPEC")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if flags != nil {
		for _, key := range []string{cfgKeyHost, cfgKeyPort, cfgKeyImage, cfgKeyEnable, cfgKeyLogLevel} {
			f := flags.Lookup(strings.ReplaceAll(key, "_", "-"))
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", f.Name, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", cfg.Port)
	}

	return cfg, nil
}
