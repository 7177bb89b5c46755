package config

import (
	"os"
	"time"
)

type Config struct {
	ListenAddr     string
	DBPath         string
	PhotoPath      string
	OpenAIBaseURL  string
	OpenAIModel    string
	OpenAIAPIKey   string
	PromptID       string
	PromptVersion  string
	RequestTimeout time.Duration
	LogLevel       string
	LogFile        string
}

func Load() *Config {
	return &Config{
		ListenAddr:     getEnv("LISTEN_ADDR", ":8080"),
		DBPath:         getEnv("DB_PATH", "/data/mealcontrol.db"),
		PhotoPath:      getEnv("PHOTO_LOCAL_PATH", "/data/photos"),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-5-mini-2025-08-07"),
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		PromptID:       getEnv("DETECTION_PROMPT_ID", ""),
		PromptVersion:  getEnv("DETECTION_PROMPT_VERSION", "3"),
		RequestTimeout: getDuration("REQUEST_TIMEOUT", 120*time.Second),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFile:        getEnv("LOG_FILE", ""),
	}
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}
