package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                    string
	Env                     string
	LogLevel                string
	JWTSecret               string
	FirebaseCredentialsPath string
	FirebaseStorageBucket   string
	PostgresConnStr         string
	MongoURI                string
	MongoDatabase           string
	ValkeyAddr              string
	ExpoPushHost            string
	DispatchQueueSize       int
	DispatchWorkers         int
}

// Load reads configuration from the environment, after loading .env if present
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		JWTSecret:               getEnv("JWT_SECRET", "supersecretjwtkey"),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		FirebaseStorageBucket:   getEnv("FIREBASE_STORAGE_BUCKET", ""),
		PostgresConnStr:         getEnv("POSTGRES_CONN_STR", ""),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDatabase:           getEnv("MONGO_DATABASE", "socialmedia"),
		ValkeyAddr:              getEnv("VALKEY_ADDR", ""),
		ExpoPushHost:            getEnv("EXPO_PUSH_HOST", "https://exp.host"),
		DispatchQueueSize:       getEnvInt("DISPATCH_QUEUE_SIZE", 256),
		DispatchWorkers:         getEnvInt("DISPATCH_WORKERS", 2),
	}
}

// IsProduction reports whether ENV is production
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
