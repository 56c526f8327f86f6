package rabbit

import (
	"context"
	"testing"
	"time"

	"github.com/Aleph-Alpha/trackindex/v1/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

// TestPublishConsumeRoundTrip routes completion events back into the trigger
// queue, so every published event must reach the handler as a trigger.
func TestPublishConsumeRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	containerInstance, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "rabbitmq:3-alpine",
			ExposedPorts: []string{"5672/tcp"},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("5672/tcp").WithStartupTimeout(90*time.Second),
				wait.ForLog("Server startup complete").WithStartupTimeout(90*time.Second),
			),
		},
		Started: true,
	})
	require.NoError(t, err)
	defer func() {
		if err := containerInstance.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}()

	host, err := containerInstance.Host(ctx)
	require.NoError(t, err)
	port, err := containerInstance.MappedPort(ctx, "5672")
	require.NoError(t, err)

	cfg := Config{
		Connection: Connection{Host: host, Port: uint(port.Int()), User: "guest", Password: "guest"},
		Channel: Channel{
			ExchangeName:  "tracks",
			RoutingKey:    "track",
			QueueName:     "track-requests",
			BindingKey:    "track",
			PrefetchCount: 4,
		},
	}

	received := make(chan events.Trigger, 4)
	var publisher events.Publisher
	app := fxtest.New(t,
		FXModule,
		PublisherFXModule,
		fx.Provide(
			func() Config { return cfg },
			func() events.TriggerHandler {
				return func(ctx context.Context, tr events.Trigger) error {
					received <- tr
					return nil
				}
			},
		),
		fx.Invoke(RegisterTriggerConsumer),
		fx.Populate(&publisher),
	)
	app.RequireStart()
	defer app.RequireStop()

	for _, code := range []string{"USRC17607839", "GBAYE0000351"} {
		require.NoError(t, publisher.Publish(ctx, events.CompletionEvent{
			ISRC: code, RunID: "r-" + code, Status: events.StatusCompleted, OccurredAt: time.Now().UTC(),
		}))
	}

	got := map[string]bool{}
	timeout := time.After(30 * time.Second)
	for len(got) < 2 {
		select {
		case tr := <-received:
			got[tr.ISRC] = true
		case <-timeout:
			t.Fatalf("received %d of 2 triggers", len(got))
		}
	}
	assert.True(t, got["USRC17607839"])
	assert.True(t, got["GBAYE0000351"])
}
