package minio

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Aleph-Alpha/trackindex/v1/observability"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Logger is the subset of the logger package used here.
type Logger interface {
	InfoWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}

// MinioClient wraps the MinIO client with connection monitoring and reconnection.
type MinioClient struct {
	// client is stored in an atomic pointer so it can be swapped during reconnection
	// without racing with concurrent operations.
	client atomic.Pointer[minio.Client]

	cfg      Config
	observer observability.Observer
	logger   Logger

	shutdownSignal  chan struct{}
	reconnectSignal chan error

	// bufferPool holds the encode buffers of archived documents.
	bufferPool *BufferPool

	closeShutdownOnce sync.Once
}

// BufferPool is a sync.Pool of bytes.Buffers that drops buffers grown past maxSize.
type BufferPool struct {
	pool    sync.Pool
	maxSize int

	created   int64
	discarded int64
}

// NewBufferPool returns a pool of buffers starting at initialSize bytes.
func NewBufferPool(initialSize, maxSize int) *BufferPool {
	bp := &BufferPool{maxSize: maxSize}
	bp.pool.New = func() interface{} {
		atomic.AddInt64(&bp.created, 1)
		return bytes.NewBuffer(make([]byte, 0, initialSize))
	}
	return bp
}

// Get returns an empty buffer.
func (bp *BufferPool) Get() *bytes.Buffer {
	buf := bp.pool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// Put returns b to the pool unless it grew too large.
func (bp *BufferPool) Put(b *bytes.Buffer) {
	if b == nil {
		return
	}
	if b.Cap() > bp.maxSize {
		atomic.AddInt64(&bp.discarded, 1)
		return
	}
	bp.pool.Put(b)
}

// BufferPoolStats reports buffer allocation counters.
type BufferPoolStats struct {
	TotalBuffersCreated   int64 `json:"totalBuffersCreated"`
	TotalBuffersDiscarded int64 `json:"totalBuffersDiscarded"`
}

// GetStats returns the current counters.
func (bp *BufferPool) GetStats() BufferPoolStats {
	return BufferPoolStats{
		TotalBuffersCreated:   atomic.LoadInt64(&bp.created),
		TotalBuffersDiscarded: atomic.LoadInt64(&bp.discarded),
	}
}

// NewClient creates and validates a new MinIO client.
// It validates the connection and ensures the configured bucket exists.
//
// Example:
//
//	client, err := minio.NewClient(config)
//	if err != nil {
//	    return fmt.Errorf("failed to initialize MinIO client: %w", err)
//	}
//	defer client.GracefulShutdown()
func NewClient(config Config) (*MinioClient, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	client, err := connectToMinio(config)
	if err != nil {
		return nil, err
	}

	minioClient := &MinioClient{
		cfg:             config,
		shutdownSignal:  make(chan struct{}),
		reconnectSignal: make(chan error, 1),
		bufferPool:      NewBufferPool(16*1024, 4*1024*1024),
	}
	minioClient.client.Store(client)

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := minioClient.validateConnection(timeoutCtx); err != nil {
		return nil, err
	}
	if err := minioClient.ensureBucketExists(timeoutCtx); err != nil {
		return nil, err
	}

	return minioClient, nil
}

// monitorConnection periodically checks the MinIO connection and triggers
// reconnecting if needed.
func (m *MinioClient) monitorConnection(ctx context.Context) {
	ticker := time.NewTicker(connectionHealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := m.validateConnection(checkCtx)
			cancel()

			if err != nil {
				m.logError(ctx, "MinIO connection health check failed", err, map[string]interface{}{
					"endpoint": m.cfg.Connection.Endpoint,
				})

				select {
				case m.reconnectSignal <- err:
				default:
				}
			}

		case <-m.shutdownSignal:
			return

		case <-ctx.Done():
			return
		}
	}
}

// retryConnection reconnects to MinIO when the monitor reports a problem.
func (m *MinioClient) retryConnection(ctx context.Context) {
outerLoop:
	for {
		select {
		case <-m.shutdownSignal:
			return

		case <-ctx.Done():
			return

		case err := <-m.reconnectSignal:
			m.logWarn(ctx, "MinIO connection issue detected, attempting reconnection", err, map[string]interface{}{
				"endpoint": m.cfg.Connection.Endpoint,
			})

		reconnectLoop:
			for {
				select {
				case <-m.shutdownSignal:
					return

				case <-ctx.Done():
					return

				default:
					newClient, err := connectToMinio(m.cfg)
					if err == nil {
						ctxReconnect, cancel := context.WithTimeout(ctx, 10*time.Second)
						_, err = newClient.BucketExists(ctxReconnect, m.cfg.Connection.BucketName)
						cancel()
					}
					if err != nil {
						m.logError(ctx, "MinIO reconnection failed", err, map[string]interface{}{
							"endpoint":      m.cfg.Connection.Endpoint,
							"will_retry_in": "1s",
						})
						time.Sleep(time.Second)
						continue reconnectLoop
					}

					m.client.Store(newClient)
					m.logInfo(ctx, "Successfully reconnected to MinIO", map[string]interface{}{
						"endpoint": m.cfg.Connection.Endpoint,
						"bucket":   m.cfg.Connection.BucketName,
					})
					continue outerLoop
				}
			}
		}
	}
}

// connectToMinio creates a new standard MinIO client.
func connectToMinio(cfg Config) (*minio.Client, error) {
	if cfg.Connection.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint cannot be empty")
	}

	return minio.New(cfg.Connection.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Connection.AccessKeyID, cfg.Connection.SecretAccessKey, ""),
		Secure: cfg.Connection.UseSSL,
		Region: cfg.Connection.Region,
	})
}

// validateConnection checks that the configured bucket is reachable. It avoids
// ListBuckets so the credentials do not need ListAllMyBuckets.
func (m *MinioClient) validateConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	c := m.client.Load()
	if c == nil {
		return ErrConnectionFailed
	}
	_, err := c.BucketExists(ctx, m.cfg.Connection.BucketName)
	return err
}

// ensureBucketExists creates the configured bucket when it is missing and creation
// is allowed.
func (m *MinioClient) ensureBucketExists(ctx context.Context) error {
	bucketName := m.cfg.Connection.BucketName

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	c := m.client.Load()
	if c == nil {
		return ErrConnectionFailed
	}

	exists, err := c.BucketExists(ctx, bucketName)
	if err != nil {
		return fmt.Errorf("failed to check if bucket exists, bucket: %v, err: %w", bucketName, err)
	}
	if exists {
		return nil
	}
	if !m.cfg.Connection.AccessBucketCreation {
		return fmt.Errorf("bucket %s does not exist, please create it manually", bucketName)
	}

	m.logInfo(ctx, "Bucket does not exist, creating it", map[string]interface{}{
		"bucket": bucketName,
		"region": m.cfg.Connection.Region,
	})
	return c.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{Region: m.cfg.Connection.Region})
}

// GracefulShutdown stops the connection monitor.
func (m *MinioClient) GracefulShutdown() {
	m.closeShutdownOnce.Do(func() {
		close(m.shutdownSignal)
	})
}

// GetBufferPoolStats returns buffer pool statistics.
func (m *MinioClient) GetBufferPoolStats() BufferPoolStats {
	if m.bufferPool == nil {
		return BufferPoolStats{}
	}
	return m.bufferPool.GetStats()
}

// WithObserver attaches an observer and returns the client for chaining.
func (m *MinioClient) WithObserver(observer observability.Observer) *MinioClient {
	m.observer = observer
	return m
}

// WithLogger attaches a logger and returns the client for chaining.
func (m *MinioClient) WithLogger(logger Logger) *MinioClient {
	m.logger = logger
	return m
}

func (m *MinioClient) logInfo(ctx context.Context, msg string, fields map[string]interface{}) {
	if m.logger != nil {
		m.logger.InfoWithContext(ctx, msg, nil, fields)
	}
}

func (m *MinioClient) logWarn(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if m.logger != nil {
		m.logger.WarnWithContext(ctx, msg, err, fields)
	}
}

// logError is only used for errors in background goroutines that can't be
// returned to the caller.
func (m *MinioClient) logError(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if m.logger != nil {
		m.logger.ErrorWithContext(ctx, msg, err, fields)
	}
}
