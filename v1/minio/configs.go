package minio

import (
	"errors"
	"time"
)

// connectionHealthCheckInterval is how often the monitor validates the connection.
const connectionHealthCheckInterval = 30 * time.Second

// DefaultPrefix is the object key prefix of archived documents.
const DefaultPrefix = "documents"

// Config defines the object store holding archived track documents.
type Config struct {
	Connection ConnectionConfig `yaml:"connection"`

	// Prefix is prepended to every object key, without a trailing slash.
	Prefix string `yaml:"prefix" envconfig:"MINIO_PREFIX"`
}

// ConnectionConfig holds the endpoint, credentials and bucket.
type ConnectionConfig struct {
	Endpoint        string `yaml:"endpoint" envconfig:"MINIO_ENDPOINT"`
	AccessKeyID     string `yaml:"access_key_id" envconfig:"MINIO_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" envconfig:"MINIO_SECRET_ACCESS_KEY"`
	UseSSL          bool   `yaml:"use_ssl" envconfig:"MINIO_USE_SSL"`
	Region          string `yaml:"region" envconfig:"MINIO_REGION"`
	BucketName      string `yaml:"bucket_name" envconfig:"MINIO_BUCKET_NAME"`

	// AccessBucketCreation allows the client to create the bucket when missing.
	AccessBucketCreation bool `yaml:"access_bucket_creation" envconfig:"MINIO_ACCESS_BUCKET_CREATION"`
}

// Validate requires an endpoint and a bucket.
func (c Config) Validate() error {
	if c.Connection.Endpoint == "" {
		return errors.New("minio: endpoint is required")
	}
	if c.Connection.BucketName == "" {
		return errors.New("minio: bucket_name is required")
	}
	return nil
}

func (c Config) prefix() string {
	if c.Prefix == "" {
		return DefaultPrefix
	}
	return c.Prefix
}
