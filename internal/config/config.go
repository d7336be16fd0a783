package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション設定を表す
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Booking  BookingConfig
	Worker   WorkerConfig
}

// ServerConfig はサーバー設定
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig はデータベース設定
type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig はRedis設定
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// BookingConfig は予約処理の設定
type BookingConfig struct {
	// LockTTL はツアー単位の分散ロックの有効期限
	LockTTL time.Duration
	// LockRetries はロック取得のリトライ回数
	LockRetries int
	// LockRetryDelay はロック取得リトライの間隔
	LockRetryDelay time.Duration
	// ContentionRetries はストア競合時のリトライ回数
	ContentionRetries int
	// ContentionRetryDelay はストア競合リトライの間隔
	ContentionRetryDelay time.Duration
}

// WorkerConfig はバックグラウンドワーカーの設定
type WorkerConfig struct {
	// DepartureBackfillInterval は旧形式出発日時の正規化パスの実行間隔
	DepartureBackfillInterval time.Duration
	// DepartureBackfillBatch は1パスあたりの処理件数
	DepartureBackfillBatch int
}

// Load は環境変数から設定を読み込む
// .env ファイルが存在する場合は先に読み込む（ローカル開発用）
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			DBName:       getEnv("DB_NAME", "travel_booking"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getIntEnv("DB_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Booking: BookingConfig{
			LockTTL:              getDurationEnv("BOOKING_LOCK_TTL", 10*time.Second),
			LockRetries:          getIntEnv("BOOKING_LOCK_RETRIES", 3),
			LockRetryDelay:       getDurationEnv("BOOKING_LOCK_RETRY_DELAY", 100*time.Millisecond),
			ContentionRetries:    getIntEnv("BOOKING_CONTENTION_RETRIES", 3),
			ContentionRetryDelay: getDurationEnv("BOOKING_CONTENTION_RETRY_DELAY", 50*time.Millisecond),
		},
		Worker: WorkerConfig{
			DepartureBackfillInterval: getDurationEnv("DEPARTURE_BACKFILL_INTERVAL", 10*time.Minute),
			DepartureBackfillBatch:    getIntEnv("DEPARTURE_BACKFILL_BATCH", 500),
		},
	}
}

// DSN はPostgreSQL接続文字列を返す
func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" port=" + c.Port +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.DBName +
		" sslmode=" + c.SSLMode
}

// Addr はRedis接続アドレスを返す
func (c *RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
