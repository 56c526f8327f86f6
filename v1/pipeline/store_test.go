package pipeline_test

import (
	"testing"
	"time"

	"github.com/Aleph-Alpha/trackindex/v1/pipeline"
	"github.com/Aleph-Alpha/trackindex/v1/pipeline/storetest"
	"github.com/stretchr/testify/assert"
)

func TestMemoryStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) pipeline.Store { return pipeline.NewMemoryStore() })
}

func TestShouldCoalesce(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	window := 24 * time.Hour

	tests := []struct {
		name   string
		latest *pipeline.Run
		force  bool
		want   bool
	}{
		{name: "no previous run", latest: nil, want: false},
		{name: "pending", latest: &pipeline.Run{Status: pipeline.StatusPending}, want: true},
		{name: "running ignores force", latest: &pipeline.Run{Status: pipeline.StatusRunning}, force: true, want: true},
		{
			name:   "completed inside window",
			latest: &pipeline.Run{Status: pipeline.StatusCompleted, CompletedAt: now.Add(-time.Hour)},
			want:   true,
		},
		{
			name:   "completed inside window with force",
			latest: &pipeline.Run{Status: pipeline.StatusCompleted, CompletedAt: now.Add(-time.Hour)},
			force:  true,
			want:   false,
		},
		{
			name:   "completed outside window",
			latest: &pipeline.Run{Status: pipeline.StatusCompleted, CompletedAt: now.Add(-25 * time.Hour)},
			want:   false,
		},
		{
			name:   "completed without completion time falls back to creation",
			latest: &pipeline.Run{Status: pipeline.StatusCompleted, CreatedAt: now.Add(-time.Minute)},
			want:   true,
		},
		{
			name:   "failed",
			latest: &pipeline.Run{Status: pipeline.StatusFailed, CompletedAt: now.Add(-time.Minute)},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pipeline.ShouldCoalesce(tt.latest, tt.force, window, now))
		})
	}
}
