package config

import (
	"encoding/json"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const ConfigurationTemplate = `{
  "log_directory_path": "./logs",
  "log_severity_level": "INFO",
  "server_port": 8080,
  "cache_capacity_count": 40000,
  "cache_size_variance": 2,
  "retry_log_interval": 100,
  "authentication_secret": "CHANGE_ME",
  "maximum_cpu_count": 0,
  "metrics_sample_interval_in_seconds": 2,
  "enable_pprof_profiling": false
}`

const (
	DefaultServerPort                     = 8080
	DefaultCacheCapacityCount             = 40000
	DefaultCacheSizeVariance              = 2
	DefaultRetryLogInterval               = 100
	DefaultMetricsSampleIntervalInSeconds = 2

	// EnvironmentPrefix is prepended to every override variable, e.g. LCC_SERVER_PORT.
	EnvironmentPrefix = "LCC_"
)

var ErrInvalidConfiguration = errors.New("invalid configuration")

type SystemConfiguration struct {
	LogDirectoryPath               string `json:"log_directory_path" env:"LOG_DIRECTORY_PATH"`
	LogSeverityLevel               string `json:"log_severity_level" env:"LOG_SEVERITY_LEVEL"`
	ServerPort                     int    `json:"server_port" env:"SERVER_PORT"`
	CacheCapacityCount             int    `json:"cache_capacity_count" env:"CACHE_CAPACITY_COUNT"`
	CacheSizeVariance              int    `json:"cache_size_variance" env:"CACHE_SIZE_VARIANCE"`
	RetryLogInterval               int    `json:"retry_log_interval" env:"RETRY_LOG_INTERVAL"`
	AuthenticationToken            string `json:"authentication_token" env:"AUTHENTICATION_TOKEN"`
	AuthenticationSecret           string `json:"authentication_secret" env:"AUTHENTICATION_SECRET"`
	MaximumCpuCount                int    `json:"maximum_cpu_count" env:"MAXIMUM_CPU_COUNT"`
	MetricsSampleIntervalInSeconds int    `json:"metrics_sample_interval_in_seconds" env:"METRICS_SAMPLE_INTERVAL_IN_SECONDS"`
	EnablePprofProfiling           bool   `json:"enable_pprof_profiling" env:"ENABLE_PPROF_PROFILING"`
}

func DefaultConfiguration() SystemConfiguration {
	return SystemConfiguration{
		LogDirectoryPath:               "./logs",
		LogSeverityLevel:               "INFO",
		ServerPort:                     DefaultServerPort,
		CacheCapacityCount:             DefaultCacheCapacityCount,
		CacheSizeVariance:              DefaultCacheSizeVariance,
		RetryLogInterval:               DefaultRetryLogInterval,
		AuthenticationSecret:           "DEFAULT_SECRET_CHANGE_ME_IN_PROD",
		MaximumCpuCount:                0,
		MetricsSampleIntervalInSeconds: DefaultMetricsSampleIntervalInSeconds,
		EnablePprofProfiling:           false,
	}
}

// LoadConfigurationFromFile layers defaults, the JSON file (when filePath is
// set), a .env file in the working directory (when present) and LCC_*
// environment variables, in that order, then validates the result.
func LoadConfigurationFromFile(filePath string) (SystemConfiguration, error) {
	config := DefaultConfiguration()

	if filePath != "" {
		file, err := os.Open(filePath)
		if err != nil {
			return config, errors.Wrap(err, "failed to open configuration file")
		}
		defer file.Close()

		if err := json.NewDecoder(file).Decode(&config); err != nil {
			return config, errors.Wrap(err, "failed to decode configuration json")
		}
	}

	if err := ApplyEnvironmentOverrides(&config); err != nil {
		return config, err
	}
	return config, config.Validate()
}

// ApplyEnvironmentOverrides loads ./.env if it exists and then overwrites
// every field whose LCC_* variable is set. Unset variables leave fields alone.
func ApplyEnvironmentOverrides(config *SystemConfiguration) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(errors.Cause(err)) {
		return errors.Wrap(err, "failed to load .env file")
	}
	if err := env.ParseWithOptions(config, env.Options{Prefix: EnvironmentPrefix}); err != nil {
		return errors.Wrap(err, "failed to parse environment overrides")
	}
	return nil
}

func (c SystemConfiguration) Validate() error {
	if c.CacheCapacityCount < 1 {
		return errors.Wrapf(ErrInvalidConfiguration, "cache_capacity_count must be at least 1, got %d", c.CacheCapacityCount)
	}
	if c.CacheSizeVariance < 0 {
		return errors.Wrapf(ErrInvalidConfiguration, "cache_size_variance must not be negative, got %d", c.CacheSizeVariance)
	}
	if c.ServerPort < 0 || c.ServerPort > 65535 {
		return errors.Wrapf(ErrInvalidConfiguration, "server_port out of range: %d", c.ServerPort)
	}
	return nil
}
