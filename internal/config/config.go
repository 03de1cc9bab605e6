package config

import "time"

// Config holds server configuration values. The movement tolerance and the
// broadcast epsilon are tuned constants carried over from production; they
// are exposed here rather than hard-coded so operators can adjust them
// without a rebuild.
type Config struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	LogLevel        string        `mapstructure:"log_level" yaml:"log_level"`
	StorePath       string        `mapstructure:"store_path" yaml:"store_path"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	TickRate         int     `mapstructure:"tick_rate" yaml:"tick_rate"`
	MapCapacity      int     `mapstructure:"map_capacity" yaml:"map_capacity"`
	WorldBound       float64 `mapstructure:"world_bound" yaml:"world_bound"`
	MaxSpeed         float64 `mapstructure:"max_speed" yaml:"max_speed"`
	SpeedTolerance   float64 `mapstructure:"speed_tolerance" yaml:"speed_tolerance"`
	BroadcastEpsilon float64 `mapstructure:"broadcast_epsilon" yaml:"broadcast_epsilon"`
}

// Default returns the configuration the server ships with.
func Default() Config {
	return Config{
		Addr:             ":8080",
		LogLevel:         "info",
		StorePath:        "starfield.db",
		ShutdownTimeout:  5 * time.Second,
		TickRate:         15,
		MapCapacity:      15,
		WorldBound:       50000,
		MaxSpeed:         1000,
		SpeedTolerance:   0.20,
		BroadcastEpsilon: 0.5,
	}
}
