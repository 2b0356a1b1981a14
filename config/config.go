package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"musicbridge/internal/model"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Load loads configuration from built-in defaults, an optional YAML file
// named by CONFIG_FILE, and environment variables, in increasing priority.
func Load() (*model.Config, error) {
	godotenv.Load()

	base := Defaults()
	if path := getEnvStr("CONFIG_FILE", ""); path != "" {
		if err := loadFile(path, base); err != nil {
			return nil, err
		}
	}

	return &model.Config{
		Server: model.ServerConfig{
			Port:    getEnvInt("SERVER_PORT", base.Server.Port),
			Host:    getEnvStr("SERVER_HOST", base.Server.Host),
			Timeout: getEnvInt("SERVER_TIMEOUT", base.Server.Timeout),
		},
		Storage: model.StorageConfig{
			DownloadDir:     getEnvStr("DOWNLOAD_DIR", base.Storage.DownloadDir),
			CleanupInterval: getEnvInt("STORAGE_CLEANUP_INTERVAL", base.Storage.CleanupInterval),
			FileTTLSeconds:  getEnvInt("FILE_TTL_SECONDS", base.Storage.FileTTLSeconds),
		},
		Spotify: model.SpotifyConfig{
			ClientID:     getEnvStr("SPOTIFY_CLIENT_ID", base.Spotify.ClientID),
			ClientSecret: getEnvStr("SPOTIFY_CLIENT_SECRET", base.Spotify.ClientSecret),
		},
		YouTube: model.YouTubeConfig{
			APIKey: getEnvStr("YOUTUBE_API_KEY", base.YouTube.APIKey),
		},
		Media: model.MediaConfig{
			Timeout:       getEnvInt("MEDIA_TIMEOUT", base.Media.Timeout),
			MaxConcurrent: getEnvInt("MEDIA_MAX_CONCURRENT", base.Media.MaxConcurrent),
			AudioFormat:   getEnvStr("AUDIO_FORMAT", base.Media.AudioFormat),
			AudioQuality:  getEnvStr("AUDIO_QUALITY", base.Media.AudioQuality),
		},
		Cache: model.CacheConfig{
			RedisAddr:     getEnvStr("REDIS_ADDR", base.Cache.RedisAddr),
			RedisPassword: getEnvStr("REDIS_PASSWORD", base.Cache.RedisPassword),
			RedisDB:       getEnvInt("REDIS_DB", base.Cache.RedisDB),
			TTLSeconds:    getEnvInt("CACHE_TTL_SECONDS", base.Cache.TTLSeconds),
		},
		Client: model.ClientConfig{
			Endpoint:   getEnvStr("DOWNLOAD_ENDPOINT", base.Client.Endpoint),
			OutputPath: getEnvStr("OUTPUT_PATH", base.Client.OutputPath),
			SaveDir:    getEnvStr("SAVE_DIR", base.Client.SaveDir),
			TempDir:    getEnvStr("TEMP_DIR", base.Client.TempDir),
		},
		Logging: model.LoggingConfig{
			Level:    getEnvStr("LOG_LEVEL", base.Logging.Level),
			FilePath: getEnvStr("LOG_FILE", base.Logging.FilePath),
		},
		Security: model.SecurityConfig{
			AllowedOrigins: getEnvList("ALLOWED_ORIGINS", base.Security.AllowedOrigins),
		},
		RateLimit: model.RateLimitConfig{
			Enabled:           getEnvBool("RATELIMIT_ENABLED", base.RateLimit.Enabled),
			RequestsPerMinute: getEnvInt("RATELIMIT_REQUESTS_PER_MINUTE", base.RateLimit.RequestsPerMinute),
			CleanupInterval:   getEnvInt("RATELIMIT_CLEANUP_INTERVAL", base.RateLimit.CleanupInterval),
		},
	}, nil
}

// Defaults returns the built-in configuration
func Defaults() *model.Config {
	return &model.Config{
		Server: model.ServerConfig{
			Port:    5000,
			Host:    "127.0.0.1",
			Timeout: 0,
		},
		Storage: model.StorageConfig{
			DownloadDir:     "./downloads",
			CleanupInterval: 3600,
			FileTTLSeconds:  0,
		},
		Media: model.MediaConfig{
			Timeout:       600,
			MaxConcurrent: 2,
			AudioFormat:   "mp3",
			AudioQuality:  "192K",
		},
		Cache: model.CacheConfig{
			TTLSeconds: 7 * 24 * 3600,
		},
		Client: model.ClientConfig{
			Endpoint:   "http://localhost:5000/download",
			OutputPath: "C:/VideoSongsOutput",
			SaveDir:    "./saved",
		},
		Logging: model.LoggingConfig{
			Level:    "info",
			FilePath: "./log/app.log",
		},
		Security: model.SecurityConfig{
			AllowedOrigins: []string{"*"},
		},
		RateLimit: model.RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 30,
			CleanupInterval:   1800,
		},
	}
}

// loadFile overlays the YAML file at path onto cfg
func loadFile(path string, cfg *model.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func getEnvStr(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	valStr := getEnvStr(key, "")
	if val, err := strconv.Atoi(valStr); err == nil {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	valStr := strings.ToLower(getEnvStr(key, ""))
	if valStr == "true" || valStr == "1" || valStr == "yes" {
		return true
	}
	if valStr == "false" || valStr == "0" || valStr == "no" {
		return false
	}
	return defaultVal
}

func getEnvList(key string, defaultVal []string) []string {
	valStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	var res []string
	for _, p := range strings.Split(valStr, ",") {
		if p = strings.TrimSpace(p); p != "" {
			res = append(res, p)
		}
	}
	return res
}
