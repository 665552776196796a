package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port               string
	AIAPIKey           string
	GenModel           string
	DefaultTextbookURL string
	DefaultVideoURLs   []string
	UploadPollInterval time.Duration
	UploadPollAttempts int
	MaxUploadBytes     int64
	AwsAccessKey       string
	AwsSecretKey       string
	AwsRegion          string
	BucketName         string
}

// ArchiveEnabled reports whether raw uploads should also be copied to the
// object-storage archive bucket.
func (c *Config) ArchiveEnabled() bool {
	return c.AwsAccessKey != "" && c.AwsSecretKey != "" && c.BucketName != ""
}

// LoadConfig loads the environment variables and returns config
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		AIAPIKey:           getEnv("GEMINI_API_KEY", ""),
		GenModel:           getEnv("GEN_MODEL", "gemini-1.5-flash"),
		DefaultTextbookURL: getEnv("DEFAULT_TEXTBOOK_URL", ""),
		UploadPollInterval: getEnvDuration("UPLOAD_POLL_INTERVAL", 2*time.Second),
		UploadPollAttempts: getEnvInt("UPLOAD_POLL_ATTEMPTS", 45),
		MaxUploadBytes:     int64(getEnvInt("MAX_UPLOAD_MB", 10)) << 20,
		AwsAccessKey:       getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey:       getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:          getEnv("AWS_REGION", "us-east-2"),
		BucketName:         getEnv("BUCKET_NAME", ""),
	}

	for _, key := range []string{"DEFAULT_VIDEO_URL_1", "DEFAULT_VIDEO_URL_2"} {
		if v := getEnv(key, ""); v != "" {
			cfg.DefaultVideoURLs = append(cfg.DefaultVideoURLs, v)
		}
	}

	if cfg.AIAPIKey == "" {
		log.Fatal("GEMINI_API_KEY not set")
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("WARN: %s=%q not a duration, using default %s", key, v, def)
		return def
	}
	return d
}
