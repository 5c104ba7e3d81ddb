// Package config loads pubsubd's layered configuration: defaults, then an
// optional configs/config.yaml, then PUBSUB_-prefixed environment
// variables, following the teacher's viper-based setup.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config is the fully-resolved runtime configuration.
type Config struct {
	Server struct {
		ListenAddr        string `mapstructure:"listen_addr"`
		ShutdownTimeoutS  int    `mapstructure:"shutdown_timeout_s"`
		HeartbeatInterval int    `mapstructure:"heartbeat_interval_ms"`
	} `mapstructure:"server"`

	Bus struct {
		RingBufferSize      int `mapstructure:"ring_buffer_size"`
		SubscriberQueueSize int `mapstructure:"subscriber_queue_size"`
	} `mapstructure:"bus"`
}

// ShutdownTimeout is Server.ShutdownTimeoutS as a time.Duration.
func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutS) * time.Second
}

// HeartbeatIntervalDuration is Server.HeartbeatInterval as a time.Duration.
func (c Config) HeartbeatIntervalDuration() time.Duration {
	return time.Duration(c.Server.HeartbeatInterval) * time.Millisecond
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen_addr", ":4000")
	v.SetDefault("server.shutdown_timeout_s", 10)
	v.SetDefault("server.heartbeat_interval_ms", 30000)
	v.SetDefault("bus.ring_buffer_size", 100)
	v.SetDefault("bus.subscriber_queue_size", 512)
}

// Load reads configuration from (in increasing precedence) built-in
// defaults, a config file, and PUBSUB_-prefixed environment variables. The
// config file is configPath when non-empty (a missing file is then an
// error); otherwise configs/config.* is read if present.
func Load(configPath string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PUBSUB")
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath("configs")
		v.SetConfigName("config")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
