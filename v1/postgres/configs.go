package postgres

import (
	"errors"
	"fmt"
	"time"
)

// Config defines the connection to the database holding ingestion runs.
type Config struct {
	Connection Connection `yaml:"connection"`

	ConnectionDetails ConnectionDetails `yaml:"connection_details"`

	// AutoMigrate creates or updates the run and step tables on start.
	AutoMigrate bool `yaml:"auto_migrate" envconfig:"POSTGRES_AUTO_MIGRATE"`
}

// Connection holds the server address and credentials.
type Connection struct {
	Host     string `yaml:"host" envconfig:"POSTGRES_HOST"`
	Port     int    `yaml:"port" envconfig:"POSTGRES_PORT"`
	User     string `yaml:"user" envconfig:"POSTGRES_USER"`
	Password string `yaml:"password" envconfig:"POSTGRES_PASSWORD"`
	DbName   string `yaml:"db_name" envconfig:"POSTGRES_DB_NAME"`

	// SSLMode is passed through to the driver: disable, require, verify-full...
	SSLMode string `yaml:"ssl_mode" envconfig:"POSTGRES_SSL_MODE"`
}

// ConnectionDetails tunes the connection pool. Zero values select the defaults.
type ConnectionDetails struct {
	MaxOpenConns    int           `yaml:"max_open_conns" envconfig:"POSTGRES_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" envconfig:"POSTGRES_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" envconfig:"POSTGRES_CONN_MAX_LIFETIME"`
}

const (
	DefaultPort            = 5432
	DefaultSSLMode         = "disable"
	DefaultMaxOpenConns    = 50
	DefaultMaxIdleConns    = 25
	DefaultConnMaxLifetime = time.Minute
)

// Validate requires a host, a user and a database name.
func (c Config) Validate() error {
	switch {
	case c.Connection.Host == "":
		return errors.New("postgres: host is required")
	case c.Connection.User == "":
		return errors.New("postgres: user is required")
	case c.Connection.DbName == "":
		return errors.New("postgres: db_name is required")
	case c.Connection.Port < 0 || c.Connection.Port > 65535:
		return errors.New("postgres: port out of range")
	}
	return nil
}

// DSN renders the connection as a libpq keyword/value string.
func (c Config) DSN() string {
	port := c.Connection.Port
	if port == 0 {
		port = DefaultPort
	}
	sslMode := c.Connection.SSLMode
	if sslMode == "" {
		sslMode = DefaultSSLMode
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Connection.Host, port, c.Connection.User, c.Connection.Password, c.Connection.DbName, sslMode)
}
