package config

import (
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-converter/internal/model"
)

// EnvPrefix prefixes every environment override, e.g. IMGCONV_JOB_WORKERS.
const EnvPrefix = "IMGCONV"

// Config holds the main configuration for the application.
type Config struct {
	Job       Job       `mapstructure:"job"`
	Converter Converter `mapstructure:"converter"`
	Storage   Storage   `mapstructure:"storage"`
	Kafka     Kafka     `mapstructure:"kafka"`
	Retry     Retry     `mapstructure:"retry"`
	Server    Server    `mapstructure:"server"`
}

// Job holds the default parameters of a conversion run.
type Job struct {
	Input     string `mapstructure:"input"`     // input root
	Output    string `mapstructure:"output"`    // output root, empty = alongside sources
	Format    string `mapstructure:"format"`    // jpg or png
	Overwrite bool   `mapstructure:"overwrite"` // replace existing outputs
	Recursive bool   `mapstructure:"recursive"` // include subfolders
	Workers   int    `mapstructure:"workers"`   // worker pool size
}

// Converter holds encoder settings.
type Converter struct {
	JPEGQuality int    `mapstructure:"jpeg_quality"` // 1..100
	Background  string `mapstructure:"background"`   // hex colour for flattening transparency
}

// Storage holds configuration for the optional MinIO mirror.
type Storage struct {
	Enabled    bool   `mapstructure:"enabled"`
	Endpoint   string `mapstructure:"endpoint"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	BucketName string `mapstructure:"bucket_name"`
	UseSSL     bool   `mapstructure:"use_ssl"`
	Prefix     string `mapstructure:"prefix"`
}

// Kafka holds configuration for run events and job requests.
type Kafka struct {
	Enabled       bool     `mapstructure:"enabled"`
	Brokers       []string `mapstructure:"brokers"`        // List of Kafka broker addresses
	Topic         string   `mapstructure:"topic"`          // run events are published here
	RequestsTopic string   `mapstructure:"requests_topic"` // job requests are consumed from here
	GroupID       string   `mapstructure:"group_id"`       // Consumer group ID
	ProgressEvery int      `mapstructure:"progress_every"` // publish every N processed items
}

// Retry defines retry policy configuration.
type Retry struct {
	Attempts int           `mapstructure:"attempts"` // Number of retry attempts
	Delay    time.Duration `mapstructure:"delay"`    // Initial delay between retries
	Backoff  float64       `mapstructure:"backoff"`  // Backoff multiplier for delays
}

// Server holds the HTTP run API configuration of listen mode.
type Server struct {
	Addr string `mapstructure:"addr"` // listen address, empty disables the API
}

// Strategy converts the retry policy into a wbf retry strategy.
func (r Retry) Strategy() retry.Strategy {
	return retry.Strategy{
		Attempts: r.Attempts,
		Delay:    r.Delay,
		Backoff:  r.Backoff,
	}
}

// JobConfig builds the immutable run configuration from the job section.
func (j Job) JobConfig() (model.JobConfig, error) {
	format, err := model.ParseFormat(j.Format)
	if err != nil {
		return model.JobConfig{}, err
	}

	return model.JobConfig{
		InputRoot:  strings.TrimSpace(j.Input),
		OutputRoot: strings.TrimSpace(j.Output),
		Format:     format,
		Overwrite:  j.Overwrite,
		Recursive:  j.Recursive,
		Workers:    j.Workers,
	}, nil
}

var hexColor = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	if _, err := model.ParseFormat(c.Job.Format); err != nil {
		return err
	}
	if c.Job.Workers < 1 {
		return fmt.Errorf("%w: job.workers must be at least 1", model.ErrInvalidConfig)
	}
	if c.Converter.JPEGQuality < 1 || c.Converter.JPEGQuality > 100 {
		return fmt.Errorf("%w: converter.jpeg_quality must be within 1..100", model.ErrInvalidConfig)
	}
	if !hexColor.MatchString(c.Converter.Background) {
		return fmt.Errorf("%w: converter.background must be a hex colour like #ffffff", model.ErrInvalidConfig)
	}
	if c.Storage.Enabled && (c.Storage.Endpoint == "" || c.Storage.BucketName == "") {
		return fmt.Errorf("%w: storage.endpoint and storage.bucket_name are required", model.ErrInvalidConfig)
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return fmt.Errorf("%w: kafka.brokers and kafka.topic are required", model.ErrInvalidConfig)
	}
	return nil
}

// New returns a viper instance with defaults and environment overrides set up.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("job.format", "jpg")
	v.SetDefault("job.workers", 6)
	v.SetDefault("converter.jpeg_quality", 100)
	v.SetDefault("converter.background", "#ffffff")
	v.SetDefault("storage.bucket_name", "converted")
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "image-converter.events")
	v.SetDefault("kafka.requests_topic", "image-converter.jobs")
	v.SetDefault("kafka.group_id", "image-converter")
	v.SetDefault("kafka.progress_every", 1)
	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.delay", 500*time.Millisecond)
	v.SetDefault("retry.backoff", 2.0)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// bindEnv binds credentials to their conventional environment variables.
func bindEnv(v *viper.Viper) error {
	bindings := map[string]string{
		"storage.access_key": "MINIO_ACCESS_KEY",
		"storage.secret_key": "MINIO_SECRET_KEY",
		"kafka.brokers":      "KAFKA_BROKERS",
	}

	for key, env := range bindings {
		if err := v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return fmt.Errorf("failed to bind env %s: %w", env, err)
		}
	}
	return nil
}

// Load reads the configuration into v and unmarshals it.
//
// A .env file in the working directory is loaded first when present. With
// an explicit path the file must exist; otherwise ./config/config.yml is
// used if it exists.
func Load(v *viper.Viper, path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := bindEnv(v); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad is like Load but panics if the configuration cannot be loaded.
func MustLoad(v *viper.Viper, path string) *Config {
	cfg, err := Load(v, path)
	if err != nil {
		zlog.Logger.Panic().Err(err).Msg("failed to load config")
	}

	return cfg
}
