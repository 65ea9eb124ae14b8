// Package config provides configuration loading with layered overrides.
// Load order: defaults -> YAML file -> environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	configloader "github.com/GabrielNunesIT/go-libs/config-loader"
)

// Logging modes understood by the sampler registry.
const (
	ModeForceTorque = "ft-sensor"
	ModeJointAngles = "joint-angles"
)

// Source kinds.
const (
	SourceSim  = "sim"
	SourceMQTT = "mqtt"
)

// Config is the root configuration structure for the data logger.
type Config struct {
	LogLevel string        `koanf:"loglevel" yaml:"log_level" json:"log_level"`
	LogFile  LogFileConfig `koanf:"logfile" yaml:"log_file" json:"log_file"`
	Worker   WorkerConfig  `koanf:"worker"`
	Sampler  SamplerConfig `koanf:"sampler"`
	Source   SourceConfig  `koanf:"source"`
	Sinks    SinkConfig    `koanf:"sinks"`
	Metrics  MetricsConfig `koanf:"metrics"`
}

// LogFileConfig configures an optional rotating diagnostic log file.
type LogFileConfig struct {
	Path       string `koanf:"path"`
	MaxSizeMB  int    `koanf:"maxsizemb" yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `koanf:"maxbackups" yaml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `koanf:"maxagedays" yaml:"max_age_days" json:"max_age_days"`
	Compress   bool   `koanf:"compress"`
}

// WorkerConfig describes one logging session.
type WorkerConfig struct {
	Name     string   `koanf:"name"`
	Mode     string   `koanf:"mode"`
	Channels []string `koanf:"channels"`
	// LogLevel gates this worker's diagnostics on top of the process level.
	LogLevel         string        `koanf:"loglevel" yaml:"log_level" json:"log_level"`
	StartupTimeout   time.Duration `koanf:"startuptimeout" yaml:"startup_timeout" json:"startup_timeout"`
	TerminateTimeout time.Duration `koanf:"terminatetimeout" yaml:"terminate_timeout" json:"terminate_timeout"`
	// Duration stops the worker automatically; zero means run until signalled.
	Duration time.Duration `koanf:"duration"`
}

// SamplerConfig tunes the sampling strategies.
type SamplerConfig struct {
	ReadTimeout  time.Duration `koanf:"readtimeout" yaml:"read_timeout" json:"read_timeout"`
	IdleInterval time.Duration `koanf:"idleinterval" yaml:"idle_interval" json:"idle_interval"`
	// PollRateHz caps the poll cadence; zero means as fast as the source delivers.
	PollRateHz float64 `koanf:"pollratehz" yaml:"poll_rate_hz" json:"poll_rate_hz"`
}

// SourceConfig selects and configures the data source driver.
type SourceConfig struct {
	Kind string     `koanf:"kind"`
	MQTT MQTTConfig `koanf:"mqtt"`
	Sim  SimConfig  `koanf:"sim"`
}

// MQTTConfig configures the MQTT driver.
type MQTTConfig struct {
	Broker           string        `koanf:"broker"`
	ClientID         string        `koanf:"clientid" yaml:"client_id" json:"client_id"`
	Username         string        `koanf:"username"`
	Password         string        `koanf:"password"`
	ForceTorqueTopic string        `koanf:"forcetorquetopic" yaml:"force_torque_topic" json:"force_torque_topic"`
	JointTopic       string        `koanf:"jointtopic" yaml:"joint_topic" json:"joint_topic"`
	QoS              byte          `koanf:"qos"`
	ConnectTimeout   time.Duration `koanf:"connecttimeout" yaml:"connect_timeout" json:"connect_timeout"`
	ConnectRetries   uint64        `koanf:"connectretries" yaml:"connect_retries" json:"connect_retries"`
	QueueSize        int           `koanf:"queuesize" yaml:"queue_size" json:"queue_size"`
}

// SimConfig configures the simulated driver.
type SimConfig struct {
	RateHz          float64 `koanf:"ratehz" yaml:"rate_hz" json:"rate_hz"`
	SamplesPerBatch int     `koanf:"samplesperbatch" yaml:"samples_per_batch" json:"samples_per_batch"`
	Joints          int     `koanf:"joints"`
}

// SinkConfig holds configuration for all sinks.
type SinkConfig struct {
	File          FileSinkConfig          `koanf:"file"`
	Stdout        StdoutSinkConfig        `koanf:"stdout"`
	Influx        InfluxSinkConfig        `koanf:"influx"`
	Elasticsearch ElasticsearchSinkConfig `koanf:"elasticsearch"`
}

// FileSinkConfig configures the one-file-per-channel sink.
type FileSinkConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Dir       string `koanf:"dir"`
	Extension string `koanf:"extension"`
}

// StdoutSinkConfig configures the stdout sink.
type StdoutSinkConfig struct {
	Enabled bool   `koanf:"enabled"`
	Format  string `koanf:"format"` // "json" or "text"
}

// InfluxSinkConfig configures the InfluxDB sink.
type InfluxSinkConfig struct {
	Enabled     bool   `koanf:"enabled"`
	URL         string `koanf:"url"`
	Token       string `koanf:"token"`
	Org         string `koanf:"org"`
	Bucket      string `koanf:"bucket"`
	Measurement string `koanf:"measurement"`
}

// ElasticsearchSinkConfig configures the Elasticsearch sink.
type ElasticsearchSinkConfig struct {
	Enabled       bool          `koanf:"enabled"`
	Addresses     []string      `koanf:"addresses"`
	Index         string        `koanf:"index"`
	Username      string        `koanf:"username"`
	Password      string        `koanf:"password"`
	FlushInterval time.Duration `koanf:"flushinterval" yaml:"flush_interval" json:"flush_interval"`
}

// MetricsConfig configures the Prometheus and health endpoint.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Address string `koanf:"address"`
}

// defaults returns the default configuration values.
func defaults() Config {
	return Config{
		LogLevel: "info",
		LogFile: LogFileConfig{
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
		Worker: WorkerConfig{
			Name:             "logging_instance",
			Mode:             ModeForceTorque,
			LogLevel:         "info",
			StartupTimeout:   5 * time.Second,
			TerminateTimeout: 30 * time.Second,
		},
		Sampler: SamplerConfig{
			ReadTimeout:  1 * time.Second,
			IdleInterval: 1 * time.Second,
		},
		Source: SourceConfig{
			Kind: SourceSim,
			MQTT: MQTTConfig{
				Broker:           "tcp://localhost:1883",
				ClientID:         "data-logger",
				ForceTorqueTopic: "sensors/ft",
				JointTopic:       "robot/joints",
				QoS:              1,
				ConnectTimeout:   10 * time.Second,
				ConnectRetries:   5,
				QueueSize:        256,
			},
			Sim: SimConfig{
				RateHz:          10,
				SamplesPerBatch: 4,
				Joints:          6,
			},
		},
		Sinks: SinkConfig{
			File: FileSinkConfig{
				Enabled:   true,
				Dir:       ".",
				Extension: ".txt",
			},
			Stdout: StdoutSinkConfig{
				Enabled: false,
				Format:  "text",
			},
			Influx: InfluxSinkConfig{
				Enabled:     false,
				URL:         "http://localhost:8086",
				Measurement: "datalogger",
			},
			Elasticsearch: ElasticsearchSinkConfig{
				Enabled:       false,
				Index:         "datalogger",
				FlushInterval: 5 * time.Second,
			},
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: ":9102",
		},
	}
}

// Load reads configuration from all sources with proper override order.
// Order: defaults -> config file -> environment variables.
func Load(configPath string) (*Config, error) {
	opts := []configloader.Option[Config]{
		configloader.WithDefaults[Config](defaults()),
	}

	// Add file source if path provided or if default config exists
	if configPath != "" {
		opts = append(opts, configloader.WithFile[Config](configPath))
	} else {
		for _, path := range []string{"./config.yaml", "/etc/data-logger/config.yaml"} {
			if _, err := os.Stat(path); err == nil {
				opts = append(opts, configloader.WithFile[Config](path))
				break
			}
		}
	}

	opts = append(opts, configloader.WithEnv[Config]("DATA_LOGGER_"))

	loader := configloader.NewConfigLoader[Config](opts...)
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the values that cannot be expressed by defaults alone.
// Mode resolution itself belongs to the sampler registry; only the shape is checked here.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Worker.Name) == "" {
		return fmt.Errorf("worker.name must not be empty")
	}
	if strings.TrimSpace(c.Worker.Mode) == "" {
		return fmt.Errorf("worker.mode must not be empty")
	}
	if c.Worker.StartupTimeout < 0 || c.Worker.TerminateTimeout < 0 {
		return fmt.Errorf("worker timeouts must not be negative")
	}

	seen := make(map[string]struct{}, len(c.Worker.Channels))
	for _, ch := range c.Worker.Channels {
		if strings.TrimSpace(ch) == "" {
			return fmt.Errorf("worker.channels contains an empty name")
		}
		if _, dup := seen[ch]; dup {
			return fmt.Errorf("duplicate channel %q", ch)
		}
		seen[ch] = struct{}{}
	}

	switch c.Source.Kind {
	case SourceSim, SourceMQTT:
	default:
		return fmt.Errorf("unknown source kind %q", c.Source.Kind)
	}

	if c.Sampler.ReadTimeout <= 0 {
		return fmt.Errorf("sampler.read_timeout must be positive")
	}
	if c.Sampler.IdleInterval <= 0 {
		return fmt.Errorf("sampler.idle_interval must be positive")
	}
	if c.Sampler.PollRateHz < 0 {
		return fmt.Errorf("sampler.poll_rate_hz must not be negative")
	}

	if !c.Sinks.File.Enabled && !c.Sinks.Stdout.Enabled &&
		!c.Sinks.Influx.Enabled && !c.Sinks.Elasticsearch.Enabled {
		return fmt.Errorf("no sinks enabled")
	}

	return nil
}
