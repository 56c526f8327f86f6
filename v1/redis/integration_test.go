package redis

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Aleph-Alpha/trackindex/v1/pipeline"
	"github.com/Aleph-Alpha/trackindex/v1/pipeline/storetest"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

// TestRedisStepStore runs the store conformance suite against a Redis container.
func TestRedisStepStore(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	host, port, containerInstance := initializeRedis(ctx, t)
	defer func() {
		if err := containerInstance.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}()

	var (
		client *RedisClient
		store  pipeline.Store
	)
	app := fxtest.New(t,
		FXModule,
		StoreFXModule,
		fx.Provide(
			func() Config { return Config{Host: host, Port: port} },
			func() pipeline.Config { return pipeline.DefaultConfig() },
		),
		fx.Populate(&client, &store),
	)
	app.RequireStart()
	defer app.RequireStop()

	n := 0
	storetest.Run(t, func(t *testing.T) pipeline.Store {
		n++
		c, err := NewClient(Config{Host: host, Port: port, KeyPrefix: fmt.Sprintf("conformance-%d", n)})
		require.NoError(t, err)
		t.Cleanup(func() { _ = c.Close() })
		return NewStepStore(c)
	})

	t.Run("TerminalRunsExpire", func(t *testing.T) {
		c, err := NewClient(Config{Host: host, Port: port, KeyPrefix: "ttl", StepTTL: time.Minute})
		require.NoError(t, err)
		defer c.Close()
		s := NewStepStore(c)

		now := time.Now().UTC()
		run, _, err := s.Claim(ctx, pipeline.Run{
			ISRC: "USRC17607839", RunID: "r1", Status: pipeline.StatusPending, CreatedAt: now, UpdatedAt: now,
		}, func(*pipeline.Run) bool { return false })
		require.NoError(t, err)

		run.Status = pipeline.StatusCompleted
		require.NoError(t, s.UpdateRun(ctx, run))

		ttl, err := c.Client().TTL(ctx, s.runKey(run.ISRC, run.RunID)).Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))

		members, err := c.Client().ZRange(ctx, s.activeKey(), 0, -1).Result()
		require.NoError(t, err)
		assert.Empty(t, members)
	})

	require.NotNil(t, store)
	require.NoError(t, client.Ping(ctx))
}

// TestRedisThrottle verifies the shared sliding log bounds starts across clients.
func TestRedisThrottle(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	host, port, containerInstance := initializeRedis(ctx, t)
	defer func() {
		if err := containerInstance.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}()

	const limit = 3
	window := 500 * time.Millisecond

	throttles := make([]*Throttle, 2)
	for i := range throttles {
		c, err := NewClient(Config{Host: host, Port: port})
		require.NoError(t, err)
		defer c.Close()
		throttles[i] = NewThrottle(c, "test", limit, window)
	}

	var (
		mu     sync.Mutex
		starts []time.Time
		wg     sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(th *Throttle) {
			defer wg.Done()
			waitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			if !assert.NoError(t, th.Wait(waitCtx)) {
				return
			}
			mu.Lock()
			starts = append(starts, time.Now())
			mu.Unlock()
		}(throttles[i%2])
	}
	wg.Wait()

	require.Len(t, starts, 8)
	first := starts[0]
	for _, s := range starts {
		if s.Before(first) {
			first = s
		}
	}
	inFirstWindow := 0
	for _, s := range starts {
		if s.Sub(first) < window-50*time.Millisecond {
			inFirstWindow++
		}
	}
	assert.LessOrEqual(t, inFirstWindow, limit)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, throttles[0].Wait(cancelled), context.Canceled)
}

func initializeRedis(ctx context.Context, t *testing.T) (string, int, testcontainers.Container) {
	hostPort, err := getFreePort()
	require.NoError(t, err)

	containerInstance, err := createRedisContainer(ctx, hostPort)
	require.NoError(t, err)

	port, err := containerInstance.MappedPort(ctx, "6379")
	require.NoError(t, err)

	host, err := containerInstance.Host(ctx)
	require.NoError(t, err)

	// Wait for Redis to be ready
	require.Eventually(t, func() bool {
		conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, port.Port()), 2*time.Second)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}, 30*time.Second, 500*time.Millisecond, "Redis port not ready")

	return host, port.Int(), containerInstance
}

func createRedisContainer(ctx context.Context, hostPort string) (testcontainers.Container, error) {
	portBindings := nat.PortMap{
		"6379/tcp": []nat.PortBinding{{HostPort: hostPort}},
	}

	req := testcontainers.ContainerRequest{
		Image: "redis:7-alpine",
		ExposedPorts: []string{
			"6379/tcp",
		},
		HostConfigModifier: func(cfg *container.HostConfig) {
			cfg.PortBindings = portBindings
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("6379/tcp").WithStartupTimeout(30*time.Second),
			wait.ForLog("Ready to accept connections").WithStartupTimeout(30*time.Second),
		),
	}

	var containerInstance testcontainers.Container
	var lastErr error

	for attempt := 0; attempt < 3; attempt++ {
		containerInstance, lastErr = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
		if lastErr == nil {
			return containerInstance, nil
		}

		if strings.Contains(lastErr.Error(), "docker.sock") {
			time.Sleep(time.Duration(attempt+1) * time.Second)
			continue
		}

		break
	}

	return nil, fmt.Errorf("failed to start Redis container after 3 attempts: %w", lastErr)
}

func getFreePort() (string, error) {
	l, err := net.Listen("tcp", ":0")
	if err != nil {
		return "", err
	}
	defer l.Close()
	addr := l.Addr().(*net.TCPAddr)
	return strconv.Itoa(addr.Port), nil
}
