package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultMongoDatabase    = "test"
	defaultMongoTimeout     = 10 * time.Second
	defaultMongoMaxPoolSize = 100
	defaultPeriod           = "month"
	defaultPeriodCount      = 1
	defaultCreatedField     = "createdAt"
	defaultUpdatedField     = "updatedAt"
	defaultParallelism      = 4
	defaultSampleSize       = 1000
	defaultKafkaTopic       = "mongolens-changes"
	defaultHTTPAddress      = ":8080"
	defaultLogLevel         = "info"
	defaultLogFormat        = "console"
	defaultLogFileEnabled   = false
	defaultLogDirectory     = "log"
	defaultLogFilename      = "mongolens.log"
	defaultLogMaxSizeMB     = 100
	defaultLogMaxBackups    = 3
	defaultLogMaxAgeDays    = 7
	defaultLogCompress      = false

	// Environment variable prefix
	envPrefix = "MONGOLENS"
)

// Periods accepted by AnalysisConfig.Period.
const (
	PeriodDay   = "day"
	PeriodMonth = "month"
	PeriodYear  = "year"
)

type Config struct {
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Log      LogConfig      `mapstructure:"log"`
}

type MongoConfig struct {
	URI         string        `mapstructure:"uri"`
	Database    string        `mapstructure:"database"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxPoolSize uint64        `mapstructure:"maxPoolSize"`
}

type AnalysisConfig struct {
	Period       string   `mapstructure:"period"`      // day, month or year
	PeriodCount  int      `mapstructure:"periodCount"` // bucket width in periods
	Collections  []string `mapstructure:"collections"` // empty means every collection
	CreatedField string   `mapstructure:"createdField"`
	UpdatedField string   `mapstructure:"updatedField"`
	Parallelism  int      `mapstructure:"parallelism"`
	SampleSize   int64    `mapstructure:"sampleSize"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type HTTPConfig struct {
	Address string `mapstructure:"address"`
}

type LogConfig struct {
	Level              string `mapstructure:"level"`
	Format             string `mapstructure:"format"`
	FileLoggingEnabled bool   `mapstructure:"fileLoggingEnabled"`
	Directory          string `mapstructure:"directory"`
	Filename           string `mapstructure:"filename"`
	MaxSize            int    `mapstructure:"maxSize"`    // Max size in MB
	MaxBackups         int    `mapstructure:"maxBackups"` // Max backup files
	MaxAge             int    `mapstructure:"maxAge"`     // Max days to retain
	Compress           bool   `mapstructure:"compress"`   // Compress rotated files?
}

// Load initializes viper, reads config, applies defaults, unmarshals, and validates.
// An empty configPath skips the file and relies on defaults and the environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	configureViper(v, configPath)

	// Set default values before reading config source .yaml
	setDefaults(v)

	if configPath != "" {
		if err := readConfigFile(v); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnmarshallingConfig, err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// configureViper sets up viper instance for file and environment variables.
func configureViper(v *viper.Viper, configPath string) {
	if configPath != "" {
		v.SetConfigFile(configPath)
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults applies default configuration values using Viper. Every key is
// registered here so AutomaticEnv can override it even without a file entry.
func setDefaults(v *viper.Viper) {
	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.database", defaultMongoDatabase)
	v.SetDefault("mongo.timeout", defaultMongoTimeout)
	v.SetDefault("mongo.maxPoolSize", defaultMongoMaxPoolSize)
	v.SetDefault("analysis.period", defaultPeriod)
	v.SetDefault("analysis.periodCount", defaultPeriodCount)
	v.SetDefault("analysis.collections", []string{})
	v.SetDefault("analysis.createdField", defaultCreatedField)
	v.SetDefault("analysis.updatedField", defaultUpdatedField)
	v.SetDefault("analysis.parallelism", defaultParallelism)
	v.SetDefault("analysis.sampleSize", defaultSampleSize)
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", defaultKafkaTopic)
	v.SetDefault("http.address", defaultHTTPAddress)
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("log.format", defaultLogFormat)
	v.SetDefault("log.fileLoggingEnabled", defaultLogFileEnabled)
	v.SetDefault("log.directory", defaultLogDirectory)
	v.SetDefault("log.filename", defaultLogFilename)
	v.SetDefault("log.maxSize", defaultLogMaxSizeMB)
	v.SetDefault("log.maxBackups", defaultLogMaxBackups)
	v.SetDefault("log.maxAge", defaultLogMaxAgeDays)
	v.SetDefault("log.compress", defaultLogCompress)
}

// readConfigFile attempts to read the configuration file specified in viper.
func readConfigFile(v *viper.Viper) error {
	err := v.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return ErrConfigFileMissing
		}
		return fmt.Errorf("%w: %w", ErrReadingConfigFile, err)
	}
	return nil
}

// Validate checks the invariants the rest of the program relies on.
func Validate(cfg *Config) error {
	if cfg.Mongo.URI == "" {
		return ErrEmptyMongoURI
	}
	if cfg.Mongo.Database == "" {
		return ErrEmptyMongoDatabase
	}
	if cfg.Mongo.Timeout <= 0 {
		return ErrInvalidMongoTimeout
	}
	switch cfg.Analysis.Period {
	case PeriodDay, PeriodMonth, PeriodYear:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPeriod, cfg.Analysis.Period)
	}
	if cfg.Analysis.PeriodCount < 1 {
		return ErrInvalidPeriodCount
	}
	if cfg.Analysis.Parallelism < 1 {
		return ErrInvalidParallelism
	}
	if cfg.Kafka.Enabled {
		if len(cfg.Kafka.Brokers) == 0 {
			return ErrEmptyKafkaBrokers
		}
		if cfg.Kafka.Topic == "" {
			return ErrEmptyKafkaTopic
		}
	}
	return nil
}
