package config

import (
	"os"
	"strconv"

	"ticket2ics/internal/models"
)

type ImageConfig struct {
	AutoRotate bool
	Resize     bool
	MaxWidth   int
	MaxHeight  int
	Quality    int
	Denoise    bool
}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type Config struct {
	Port          string
	Env           string
	StoragePath   string
	MaxFileSize   int64
	WorkerCount   int
	APIToken      string
	OpenAI        OpenAIConfig
	Image         ImageConfig
	ReminderHours map[models.TicketType]int
}

func Load() *Config {
	return &Config{
		Port:        getEnv("SERVICE_PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		StoragePath: getEnv("STORAGE_PATH", "./storage"),
		MaxFileSize: getEnvAsInt64("MAX_FILE_SIZE", 20*1024*1024),
		WorkerCount: getEnvAsInt("WORKER_COUNT", 4),
		APIToken:    getEnv("API_AUTH_TOKEN", ""),
		OpenAI: OpenAIConfig{
			APIKey:  getEnv("OPENAI_API_KEY", ""),
			BaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:   getEnv("OPENAI_MODEL", "gpt-4o"),
		},
		Image: ImageConfig{
			AutoRotate: getEnvAsBool("IMAGE_AUTO_ROTATE", true),
			Resize:     getEnvAsBool("IMAGE_RESIZE", true),
			MaxWidth:   getEnvAsInt("IMAGE_MAX_WIDTH", 1024),
			MaxHeight:  getEnvAsInt("IMAGE_MAX_HEIGHT", 1024),
			Quality:    getEnvAsInt("IMAGE_QUALITY", 85),
			Denoise:    getEnvAsBool("IMAGE_DENOISE", false),
		},
		ReminderHours: map[models.TicketType]int{
			models.TypeFlight:  getEnvAsInt("REMINDER_HOURS_FLIGHT", 3),
			models.TypeTrain:   getEnvAsInt("REMINDER_HOURS_TRAIN", 2),
			models.TypeConcert: getEnvAsInt("REMINDER_HOURS_CONCERT", 1),
			models.TypeTheater: getEnvAsInt("REMINDER_HOURS_THEATER", 1),
			models.TypeGeneric: getEnvAsInt("REMINDER_HOURS_GENERIC", 1),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
