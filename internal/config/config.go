// Package config provides application configuration loaded from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `validate:"required"`
	Database DatabaseConfig `validate:"required"`
	App      AppConfig
	Log      LogConfig `validate:"required"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string `validate:"required,numeric"`
	ReadTimeout  int    `validate:"min=1"` // seconds
	WriteTimeout int    `validate:"min=1"` // seconds
	IdleTimeout  int    `validate:"min=1"` // seconds
}

// DatabaseConfig holds connection settings. Driver "sqlite" only uses Path;
// driver "postgres" uses the remaining fields.
type DatabaseConfig struct {
	Driver   string `validate:"required,oneof=sqlite postgres"`
	Path     string `validate:"required_if=Driver sqlite"`
	Host     string `validate:"required_if=Driver postgres"`
	Port     int    `validate:"required_if=Driver postgres"`
	User     string `validate:"required_if=Driver postgres"`
	Password string
	DBName   string `validate:"required_if=Driver postgres"`
	SSLMode  string
	Debug    bool
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Migrations bool
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `validate:"required,oneof=debug info warn error"`
}

// DSN returns the PostgreSQL connection string in key=value format.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// URL returns the PostgreSQL connection string in URL format.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// Load reads configuration from environment variables.
// It uses sensible defaults for local development.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8000"),
			ReadTimeout:  getEnvInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "sqlite"),
			Path:     getEnv("DB_PATH", "invoices.db"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "invoices"),
			Password: getEnv("DB_PASSWORD", "invoices123"),
			DBName:   getEnv("DB_NAME", "invoices"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			Debug:    getEnvBool("DB_DEBUG", false),
		},
		App: AppConfig{
			Migrations: getEnvBool("MIGRATIONS", false),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}
}

// Validate checks the loaded values against the struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvBool returns the boolean value of an environment variable or a default.
// Accepts "1", "true", "yes" as true; everything else is false.
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "1" || value == "true" || value == "yes"
}
