package config

import "errors"

var (
	ErrReadingConfigFile   = errors.New("failed to read config file")
	ErrUnmarshallingConfig = errors.New("failed to unmarshal config")
	ErrConfigFileMissing   = errors.New("config file not found")
	ErrEmptyMongoURI       = errors.New("mongo uri cannot be empty")
	ErrEmptyMongoDatabase  = errors.New("mongo database cannot be empty")
	ErrInvalidMongoTimeout = errors.New("mongo timeout must be positive")
	ErrInvalidPeriod       = errors.New("analysis period must be one of day, month, year")
	ErrInvalidPeriodCount  = errors.New("analysis periodCount must be at least 1")
	ErrInvalidParallelism  = errors.New("analysis parallelism must be at least 1")
	ErrEmptyKafkaBrokers   = errors.New("kafka brokers list cannot be empty when kafka is enabled")
	ErrEmptyKafkaTopic     = errors.New("kafka topic cannot be empty when kafka is enabled")
)
