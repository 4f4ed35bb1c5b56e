package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIURL       string
	Token        string
	HTTPTimeout  time.Duration
	PreviewPath  string
	DBPath       string
	LogLevel     string
	LogFile      string
	AllowedRoles []string
}

// Load reads settings from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		APIURL:       strings.TrimRight(getEnv("TORII_API_URL", "http://localhost:5000/api/v1"), "/"),
		Token:        getEnv("TORII_TOKEN", ""),
		HTTPTimeout:  getEnvDuration("TORII_HTTP_TIMEOUT", 30*time.Second),
		PreviewPath:  getEnv("TORII_PREVIEW_PATH", "previews"),
		DBPath:       getEnv("TORII_DB_PATH", "torii.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFile:      getEnv("TORII_LOG_FILE", "torii.log"),
		AllowedRoles: splitList(getEnv("TORII_ALLOWED_ROLES", "landlord")),
	}
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
