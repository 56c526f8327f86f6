package postgres

import (
	"testing"
	"time"

	"github.com/Aleph-Alpha/trackindex/v1/pipeline"
	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	valid := Config{Connection: Connection{Host: "localhost", User: "u", DbName: "d"}}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing host", mutate: func(c *Config) { c.Connection.Host = "" }, wantErr: true},
		{name: "missing user", mutate: func(c *Config) { c.Connection.User = "" }, wantErr: true},
		{name: "missing db", mutate: func(c *Config) { c.Connection.DbName = "" }, wantErr: true},
		{name: "bad port", mutate: func(c *Config) { c.Connection.Port = 70000 }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}

func TestDSNDefaults(t *testing.T) {
	cfg := Config{Connection: Connection{Host: "db", User: "u", Password: "p", DbName: "tracks"}}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=tracks sslmode=disable", cfg.DSN())

	cfg.Connection.Port = 6543
	cfg.Connection.SSLMode = "require"
	assert.Equal(t, "host=db port=6543 user=u password=p dbname=tracks sslmode=require", cfg.DSN())
}

func TestRunRecordRoundTrip(t *testing.T) {
	local := time.FixedZone("CET", 3600)
	run := pipeline.Run{
		ISRC:          "USRC17607839",
		RunID:         "r1",
		Status:        pipeline.StatusPending,
		Attempts:      2,
		ErrorKind:     pipeline.KindAdapter,
		Error:         "lyrics: status 503",
		CreatedAt:     time.Date(2026, 3, 1, 13, 0, 0, 0, local),
		UpdatedAt:     time.Date(2026, 3, 1, 13, 5, 0, 0, local),
		NextAttemptAt: time.Date(2026, 3, 1, 13, 20, 0, 0, local),
	}

	rec := toRunRecord(run)
	assert.Nil(t, rec.CompletedAt)
	if assert.NotNil(t, rec.NextAttemptAt) {
		assert.Equal(t, time.UTC, rec.NextAttemptAt.Location())
	}

	got := rec.toRun()
	assert.True(t, got.CompletedAt.IsZero())
	assert.True(t, run.NextAttemptAt.Equal(got.NextAttemptAt))
	assert.True(t, run.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, run.ErrorKind, got.ErrorKind)
	assert.Equal(t, run.Attempts, got.Attempts)
}

func TestStepRecordEmptyValueIsNull(t *testing.T) {
	rec := toStepRecord(pipeline.StepResult{ISRC: "USRC17607839", RunID: "r1", Step: pipeline.StepFetchLyrics})
	assert.Equal(t, "null", string(rec.Value))
	assert.Equal(t, pipeline.StepFetchLyrics, rec.toStepResult().Step)
}
