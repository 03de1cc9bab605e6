package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load builds configuration from defaults, an optional yaml config file, and
// STARFIELD_* environment variables. Precedence: defaults < file < env.
func Load(path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetDefault("addr", cfg.Addr)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("store_path", cfg.StorePath)
	v.SetDefault("shutdown_timeout", cfg.ShutdownTimeout)
	v.SetDefault("tick_rate", cfg.TickRate)
	v.SetDefault("map_capacity", cfg.MapCapacity)
	v.SetDefault("world_bound", cfg.WorldBound)
	v.SetDefault("max_speed", cfg.MaxSpeed)
	v.SetDefault("speed_tolerance", cfg.SpeedTolerance)
	v.SetDefault("broadcast_epsilon", cfg.BroadcastEpsilon)

	v.SetEnvPrefix("STARFIELD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return cfg, fmt.Errorf("read config: %w", err)
			}
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.TickRate <= 0 {
		return cfg, fmt.Errorf("tick_rate must be positive, got %d", cfg.TickRate)
	}
	if cfg.MapCapacity <= 0 {
		return cfg, fmt.Errorf("map_capacity must be positive, got %d", cfg.MapCapacity)
	}

	return cfg, nil
}
