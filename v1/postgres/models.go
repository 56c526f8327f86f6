package postgres

import (
	"time"

	"github.com/Aleph-Alpha/trackindex/v1/pipeline"
)

// runRecord is one row of ingestion_runs. Timestamps are set explicitly so the
// stored values are the orchestrator's clock, not the database's.
type runRecord struct {
	ISRC          string     `gorm:"column:isrc;primaryKey;size:12"`
	RunID         string     `gorm:"column:run_id;primaryKey;size:64"`
	Status        string     `gorm:"column:status;size:16;not null;index:idx_runs_status_created,priority:1"`
	Force         bool       `gorm:"column:force;not null;default:false"`
	Attempts      int        `gorm:"column:attempts;not null;default:0"`
	ErrorKind     string     `gorm:"column:error_kind;size:32"`
	Error         string     `gorm:"column:error;type:text"`
	Created       time.Time  `gorm:"column:created_at;not null;autoCreateTime:false;index:idx_runs_status_created,priority:2"`
	Updated       time.Time  `gorm:"column:updated_at;not null;autoUpdateTime:false"`
	NextAttemptAt *time.Time `gorm:"column:next_attempt_at"`
	CompletedAt   *time.Time `gorm:"column:completed_at"`
}

func (runRecord) TableName() string { return "ingestion_runs" }

// latestRecord points an ISRC at its most recently claimed run.
type latestRecord struct {
	ISRC  string `gorm:"column:isrc;primaryKey;size:12"`
	RunID string `gorm:"column:run_id;size:64;not null"`
}

func (latestRecord) TableName() string { return "ingestion_latest" }

// stepRecord is the memoized output of one step.
type stepRecord struct {
	ISRC        string         `gorm:"column:isrc;primaryKey;size:12"`
	RunID       string         `gorm:"column:run_id;primaryKey;size:64"`
	Step        string         `gorm:"column:step;primaryKey;size:32"`
	Value       []byte         `gorm:"column:value;type:jsonb;not null"`
	CompletedAt time.Time      `gorm:"column:completed_at;not null"`
}

func (stepRecord) TableName() string { return "ingestion_steps" }

func toRunRecord(r pipeline.Run) runRecord {
	return runRecord{
		ISRC:          r.ISRC,
		RunID:         r.RunID,
		Status:        string(r.Status),
		Force:         r.Force,
		Attempts:      r.Attempts,
		ErrorKind:     string(r.ErrorKind),
		Error:         r.Error,
		Created:       r.CreatedAt.UTC(),
		Updated:       r.UpdatedAt.UTC(),
		NextAttemptAt: nullable(r.NextAttemptAt),
		CompletedAt:   nullable(r.CompletedAt),
	}
}

func (r runRecord) toRun() pipeline.Run {
	return pipeline.Run{
		ISRC:          r.ISRC,
		RunID:         r.RunID,
		Status:        pipeline.Status(r.Status),
		Force:         r.Force,
		Attempts:      r.Attempts,
		ErrorKind:     pipeline.ErrorKind(r.ErrorKind),
		Error:         r.Error,
		CreatedAt:     r.Created.UTC(),
		UpdatedAt:     r.Updated.UTC(),
		NextAttemptAt: deref(r.NextAttemptAt),
		CompletedAt:   deref(r.CompletedAt),
	}
}

func toStepRecord(s pipeline.StepResult) stepRecord {
	value := []byte(s.Value)
	if len(value) == 0 {
		value = []byte("null")
	}
	return stepRecord{
		ISRC:        s.ISRC,
		RunID:       s.RunID,
		Step:        string(s.Step),
		Value:       value,
		CompletedAt: s.CompletedAt.UTC(),
	}
}

func (s stepRecord) toStepResult() pipeline.StepResult {
	return pipeline.StepResult{
		ISRC:        s.ISRC,
		RunID:       s.RunID,
		Step:        pipeline.Step(s.Step),
		Value:       append([]byte(nil), s.Value...),
		CompletedAt: s.CompletedAt.UTC(),
	}
}

func nullable(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

func deref(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}

// Migrate creates or updates the tables backing the step store.
func (p *Postgres) Migrate() error {
	return p.DB().AutoMigrate(&runRecord{}, &latestRecord{}, &stepRecord{})
}
