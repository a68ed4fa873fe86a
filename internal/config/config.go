package config

import (
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BatchStoreMemory = "memory"
	BatchStoreRedis  = "redis"

	maxDefaultWorkers = 8
)

type Config struct {
	Server      ServerConfig
	Supabase    SupabaseConfig
	Redis       RedisConfig
	RabbitMQ    RabbitMQConfig
	Storage     StorageConfig
	Compression CompressionConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type SupabaseConfig struct {
	URL    string
	KEY    string
	BUCKET string
}

// Enabled reports whether archives should be mirrored to Supabase.
func (c SupabaseConfig) Enabled() bool {
	return c.URL != "" && c.BUCKET != ""
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RabbitMQConfig struct {
	URL       string
	QueueName string
}

type StorageConfig struct {
	MaxFileSize  int64
	MaxFiles     int
	AllowedTypes []string
	WorkDir      string
	ArchiveName  string
	BatchStore   string
	BatchTTL     time.Duration
}

type CompressionConfig struct {
	DefaultQuality int
	Workers        int
	BatchTimeout   time.Duration
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getDuration("READ_TIMEOUT", 60*time.Second),
			WriteTimeout: getDuration("WRITE_TIMEOUT", 5*time.Minute),
		},
		Supabase: SupabaseConfig{
			URL:    getEnv("SUPABASE_URL", ""),
			KEY:    getEnv("SUPABASE_KEY", ""),
			BUCKET: getEnv("SUPABASE_BUCKET", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		RabbitMQ: RabbitMQConfig{
			URL:       getEnv("RABBITMQ_URL", ""),
			QueueName: getEnv("RABBITMQ_QUEUE", "image_compression_events"),
		},
		Storage: StorageConfig{
			MaxFileSize:  getEnvAsInt64("MAX_FILE_SIZE", 10*1024*1024), // 10MB
			MaxFiles:     getEnvAsInt("MAX_FILES", 50),
			AllowedTypes: getEnvAsSlice("ALLOWED_TYPES", []string{"image/jpeg", "image/jpg", "image/png", "image/webp"}),
			WorkDir:      getEnv("WORK_DIR", filepath.Join(os.TempDir(), "image-compressor")),
			ArchiveName:  getEnv("ARCHIVE_NAME", "compressed_images.zip"),
			BatchStore:   getEnv("BATCH_STORE", BatchStoreMemory),
			BatchTTL:     getDuration("BATCH_TTL", 24*time.Hour),
		},
		Compression: CompressionConfig{
			DefaultQuality: getEnvAsInt("DEFAULT_QUALITY", 95),
			Workers:        getEnvAsInt("WORKERS", defaultWorkers()),
			BatchTimeout:   getDuration("BATCH_TIMEOUT", 5*time.Minute),
		},
	}

	return cfg, nil
}

func defaultWorkers() int {
	return min(runtime.NumCPU(), maxDefaultWorkers)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsInt64(key string, defaultVal int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultVal
}

// getEnvAsSlice splits a comma separated value, dropping empty entries.
func getEnvAsSlice(key string, defaultVal []string) []string {
	var values []string
	for _, value := range strings.Split(os.Getenv(key), ",") {
		if value = strings.TrimSpace(value); value != "" {
			values = append(values, value)
		}
	}
	if len(values) == 0 {
		return defaultVal
	}
	return values
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}
