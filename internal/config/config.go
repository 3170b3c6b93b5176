// Package config loads application configuration from environment variables.
package config

import (
	"log"
	"os"
	"time"
)

// Config holds the core runtime settings. Each field corresponds to an
// environment variable.
type Config struct {
	Env           string        // application environment ("dev", "prod")
	Port          string        // HTTP port to listen on
	DBUser        string        // database username
	DBPass        string        // database password (optional)
	DBHost        string        // database host address
	DBPort        string        // database port number
	DBName        string        // database name
	DBMigrate     bool          // apply embedded migrations at startup
	JWTSecret     string        // secret used to sign access tokens
	TokenTTL      time.Duration // access token lifetime
	EventsEnabled bool          // publish catalog events to RabbitMQ
}

// Load reads configuration values from environment variables. Required
// variables are enforced by must(); a missing one stops the program.
func Load() Config {
	return Config{
		Env:           must("APP_ENV"),
		Port:          must("APP_PORT"),
		DBUser:        must("DB_USER"),
		DBPass:        os.Getenv("DB_PASS"), // empty allowed
		DBHost:        must("DB_HOST"),
		DBPort:        must("DB_PORT"),
		DBName:        must("DB_NAME"),
		DBMigrate:     envBool("DB_MIGRATE", true),
		JWTSecret:     must("JWT_SECRET"),
		TokenTTL:      time.Duration(envInt("TOKEN_TTL_HOURS", 24)) * time.Hour,
		EventsEnabled: envBool("EVENTS_ENABLED", true),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
