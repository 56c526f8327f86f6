package redis

import (
	"errors"
	"time"
)

// Config defines the connection and key layout of the Redis step store.
type Config struct {
	// Host is the Redis server hostname or IP address
	// Default: "localhost"
	Host string `yaml:"host" envconfig:"REDIS_HOST"`

	// Port is the Redis server port
	// Default: 6379
	Port int `yaml:"port" envconfig:"REDIS_PORT"`

	// Username is the Redis username for ACL authentication (Redis 6.0+)
	Username string `yaml:"username" envconfig:"REDIS_USERNAME"`

	// Password is the Redis password for authentication
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`

	// DB is the Redis database number to use
	DB int `yaml:"db" envconfig:"REDIS_DB"`

	// PoolSize is the maximum number of socket connections
	// Default: 10 per CPU (set by go-redis)
	PoolSize int `yaml:"pool_size" envconfig:"REDIS_POOL_SIZE"`

	// MaxRetries is the maximum number of command retries before giving up
	// Default: 3
	MaxRetries int `yaml:"max_retries" envconfig:"REDIS_MAX_RETRIES"`

	// DialTimeout is the timeout for establishing new connections
	// Default: 5 seconds
	DialTimeout time.Duration `yaml:"dial_timeout" envconfig:"REDIS_DIAL_TIMEOUT"`

	// ReadTimeout is the timeout for socket reads
	// Default: 3 seconds
	ReadTimeout time.Duration `yaml:"read_timeout" envconfig:"REDIS_READ_TIMEOUT"`

	// WriteTimeout is the timeout for socket writes
	// Default: ReadTimeout
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"REDIS_WRITE_TIMEOUT"`

	// KeyPrefix namespaces every key written by the store and the throttle
	// Default: "trackindex"
	KeyPrefix string `yaml:"key_prefix" envconfig:"REDIS_KEY_PREFIX"`

	// StepTTL expires the runs and step results of terminal runs. Zero keeps them.
	StepTTL time.Duration `yaml:"step_ttl" envconfig:"REDIS_STEP_TTL"`

	// TLS contains TLS/SSL configuration
	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig contains TLS/SSL configuration parameters.
type TLSConfig struct {
	Enabled bool `yaml:"enabled" envconfig:"REDIS_TLS_ENABLED"`

	// CACertPath is the file path to the CA certificate for verifying the server
	CACertPath string `yaml:"ca_cert_path" envconfig:"REDIS_TLS_CA_CERT_PATH"`

	ClientCertPath string `yaml:"client_cert_path" envconfig:"REDIS_TLS_CLIENT_CERT_PATH"`
	ClientKeyPath  string `yaml:"client_key_path" envconfig:"REDIS_TLS_CLIENT_KEY_PATH"`

	// InsecureSkipVerify controls whether to skip verification of the server's certificate
	// WARNING: Setting this to true is insecure and should only be used in testing
	InsecureSkipVerify bool `yaml:"insecure_skip_verify" envconfig:"REDIS_TLS_INSECURE_SKIP_VERIFY"`

	// ServerName is used to verify the hostname on the returned certificates
	// If empty, the Host from the main config is used
	ServerName string `yaml:"server_name" envconfig:"REDIS_TLS_SERVER_NAME"`
}

// Logger is an interface that matches the trackindex/v1/logger.Logger
type Logger interface {
	Error(msg string, err error, fields ...map[string]interface{})
	Info(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
}

// Default values for configuration
const (
	DefaultHost        = "localhost"
	DefaultPort        = 6379
	DefaultMaxRetries  = 3
	DefaultDialTimeout = 5 * time.Second
	DefaultReadTimeout = 3 * time.Second
	DefaultKeyPrefix   = "trackindex"
)

// Validate rejects configurations that cannot address a server.
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return errors.New("redis: port out of range")
	}
	if c.DB < 0 {
		return errors.New("redis: db must not be negative")
	}
	if c.StepTTL < 0 {
		return errors.New("redis: step_ttl must not be negative")
	}
	if c.TLS.ClientCertPath != "" && c.TLS.ClientKeyPath == "" {
		return errors.New("redis: tls client_key_path is required with client_cert_path")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = DefaultKeyPrefix
	}
}
