package config

import (
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Config is loaded from the environment (.env is auto-loaded).
type Config struct {
	Env          string
	HTTPPort     string
	DBKind       string // sqlite or postgres
	DBDSN        string
	RedisAddr    string
	KafkaBrokers string // empty disables the event emitter
	Compression  string // codec for version snapshots
	GraphTTL     time.Duration
}

func LoadConfig() *Config {
	cnf := &Config{
		Env:          getEnv("ENV", "development"),
		HTTPPort:     getEnv("HTTP_PORT", "4030"),
		DBKind:       getEnv("PAGECHAIN_DB", "sqlite"),
		DBDSN:        getEnv("PAGECHAIN_DSN", ".db/pagechain.db"),
		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
		KafkaBrokers: getEnv("KAFKA_BROKERS", ""),
		Compression:  getEnv("PAGECHAIN_COMPRESSION", "nop"),
	}

	ttl, err := time.ParseDuration(getEnv("GRAPH_CACHE_TTL", "1h"))
	if err != nil {
		logrus.Warnf("invalid GRAPH_CACHE_TTL, using 1h: %v", err)
		ttl = time.Hour
	}
	cnf.GraphTTL = ttl

	return cnf
}

// GetDb opens the configured database.
func GetDb(cnf *Config) *gorm.DB {
	var db *gorm.DB
	var err error

	switch cnf.DBKind {
	case "postgres":
		db, err = gorm.Open(postgres.Open(cnf.DBDSN), &gorm.Config{})
	default:
		if mkerr := os.MkdirAll(".db", os.ModePerm); mkerr != nil {
			logrus.Fatalf("error creating db directory: %v", mkerr)
		}
		db, err = gorm.Open(sqlite.Open(cnf.DBDSN), &gorm.Config{})
	}
	if err != nil {
		logrus.Fatalf("error connecting to database: %v", err)
	}

	return db
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
