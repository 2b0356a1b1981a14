package model

// Config holds application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Spotify   SpotifyConfig   `yaml:"spotify"`
	YouTube   YouTubeConfig   `yaml:"youtube"`
	Media     MediaConfig     `yaml:"media"`
	Cache     CacheConfig     `yaml:"cache"`
	Client    ClientConfig    `yaml:"client"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port    int    `yaml:"port"`
	Host    string `yaml:"host"`
	Timeout int    `yaml:"timeout"` // seconds, 0 disables read/write timeouts
}

// StorageConfig holds storage configuration for backend output files
type StorageConfig struct {
	DownloadDir     string `yaml:"download_dir"`
	CleanupInterval int    `yaml:"cleanup_interval"` // seconds
	FileTTLSeconds  int    `yaml:"file_ttl_seconds"` // 0 keeps files forever
}

// SpotifyConfig holds Spotify Web API credentials
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// YouTubeConfig holds YouTube Data API settings.
// An empty APIKey switches search to yt-dlp.
type YouTubeConfig struct {
	APIKey string `yaml:"api_key"`
}

// MediaConfig controls yt-dlp invocations
type MediaConfig struct {
	Timeout       int    `yaml:"timeout"` // seconds per track
	MaxConcurrent int    `yaml:"max_concurrent"`
	AudioFormat   string `yaml:"audio_format"`
	AudioQuality  string `yaml:"audio_quality"`
}

// CacheConfig holds the video id cache configuration.
// An empty RedisAddr uses the in-memory cache.
type CacheConfig struct {
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	TTLSeconds    int    `yaml:"ttl_seconds"`
}

// ClientConfig holds settings of the download controller used by the form UI and CLI
type ClientConfig struct {
	Endpoint   string `yaml:"endpoint"`
	OutputPath string `yaml:"output_path"` // sent to the backend as output_path
	SaveDir    string `yaml:"save_dir"`
	TempDir    string `yaml:"temp_dir"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level"`
	FilePath string `yaml:"file_path"`
}

// SecurityConfig holds security configuration
type SecurityConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// RateLimitConfig holds per-IP rate limiting configuration for the API
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	CleanupInterval   int  `yaml:"cleanup_interval"` // seconds
}
