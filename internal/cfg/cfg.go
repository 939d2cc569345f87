package cfg

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/edadso/IncomeGauge-Predicting-Economic-Disparities-Using-ML/internal/model"
)

type Settings struct {
	ModelsDir      string
	ModelsBaseURL  string
	DefaultModel   string
	DataPath       string
	InbuiltDataset string
	ChunkSize      int
	HistoryDir     string
	ServerPort     int
	MetricsPort    int
	RESTTimeout    time.Duration
}

type ConfigFile struct {
	Models struct {
		Dir          string `yaml:"dir"`
		BaseURL      string `yaml:"baseURL"`
		DefaultModel string `yaml:"defaultModel"`
	} `yaml:"models"`

	Data struct {
		Path           string `yaml:"path"`
		InbuiltDataset string `yaml:"inbuiltDataset"`
		ChunkSize      int    `yaml:"chunkSize"`
	} `yaml:"data"`

	History struct {
		Dir string `yaml:"dir"`
	} `yaml:"history"`

	System struct {
		ServerPort  int    `yaml:"serverPort"`
		MetricsPort int    `yaml:"metricsPort"`
		RESTTimeout string `yaml:"restTimeout"`
	} `yaml:"system"`
}

func Load() (Settings, error) {
	// Try to load from YAML file first
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	restTimeout, err := time.ParseDuration(config.System.RESTTimeout)
	if err != nil {
		restTimeout = 10 * time.Second
	}

	settings := Settings{
		ModelsDir:      getEnvOrDefault("MODELS_DIR", orDefault(config.Models.Dir, "models")),
		ModelsBaseURL:  getEnvOrDefault("MODELS_BASE_URL", config.Models.BaseURL),
		DefaultModel:   getEnvOrDefault("DEFAULT_MODEL", orDefault(config.Models.DefaultModel, model.GradientBoostedTrees)),
		DataPath:       getEnvOrDefault("DATA_PATH", orDefault(config.Data.Path, "data")),
		InbuiltDataset: getEnvOrDefault("INBUILT_DATASET", config.Data.InbuiltDataset),
		ChunkSize:      getIntFromEnvOrConfig("CHUNK_SIZE", config.Data.ChunkSize, 500),
		HistoryDir:     getEnvOrDefault("HISTORY_DIR", orDefault(config.History.Dir, "history")),
		ServerPort:     getIntFromEnvOrConfig("SERVER_PORT", config.System.ServerPort, 8080),
		MetricsPort:    getIntFromEnvOrConfig("METRICS_PORT", config.System.MetricsPort, 9090),
		RESTTimeout:    restTimeout,
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		ModelsDir:      getEnvOrDefault("MODELS_DIR", "models"),
		ModelsBaseURL:  os.Getenv("MODELS_BASE_URL"), // optional, empty disables remote fetch
		DefaultModel:   getEnvOrDefault("DEFAULT_MODEL", model.GradientBoostedTrees),
		DataPath:       getEnvOrDefault("DATA_PATH", "data"),
		InbuiltDataset: os.Getenv("INBUILT_DATASET"), // optional
		ChunkSize:      getIntOrDefault("CHUNK_SIZE", 500),
		HistoryDir:     getEnvOrDefault("HISTORY_DIR", "history"),
		ServerPort:     getIntOrDefault("SERVER_PORT", 8080),
		MetricsPort:    getIntOrDefault("METRICS_PORT", 9090),
		RESTTimeout:    getDurationOrDefault("REST_TIMEOUT", 10*time.Second),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

// validateSettings performs comprehensive validation of configuration values
func validateSettings(settings *Settings) error {
	if settings.ModelsDir == "" {
		return fmt.Errorf("models directory cannot be empty")
	}
	if !model.KnownModel(settings.DefaultModel) {
		return fmt.Errorf("unknown default model %q", settings.DefaultModel)
	}
	if settings.DataPath == "" {
		return fmt.Errorf("data path cannot be empty")
	}
	if settings.HistoryDir == "" {
		return fmt.Errorf("history directory cannot be empty")
	}

	if settings.ChunkSize <= 0 || settings.ChunkSize > 100000 {
		return fmt.Errorf("chunk size must be between 1 and 100000, got %d", settings.ChunkSize)
	}
	if settings.ServerPort < 1024 || settings.ServerPort > 65535 {
		return fmt.Errorf("server port must be between 1024 and 65535, got %d", settings.ServerPort)
	}
	if settings.MetricsPort < 1024 || settings.MetricsPort > 65535 {
		return fmt.Errorf("metrics port must be between 1024 and 65535, got %d", settings.MetricsPort)
	}
	if settings.ServerPort == settings.MetricsPort {
		return fmt.Errorf("server and metrics ports must differ, both are %d", settings.ServerPort)
	}
	if settings.RESTTimeout < time.Second || settings.RESTTimeout > time.Minute {
		return fmt.Errorf("REST timeout must be between 1s and 1m, got %v", settings.RESTTimeout)
	}

	return nil
}
