package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/Aleph-Alpha/trackindex/v1/pipeline"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StepStore is a pipeline.Store in PostgreSQL. Claims on the same ISRC are
// serialized with a transaction-scoped advisory lock.
type StepStore struct {
	pg *Postgres
}

var _ pipeline.Store = (*StepStore)(nil)

// NewStepStore returns a store on pg. Call pg.Migrate first, or enable AutoMigrate.
func NewStepStore(pg *Postgres) *StepStore {
	return &StepStore{pg: pg}
}

func (s *StepStore) db(ctx context.Context) *gorm.DB {
	return s.pg.DB().WithContext(ctx)
}

func (s *StepStore) Claim(ctx context.Context, candidate pipeline.Run, coalesce pipeline.CoalesceFunc) (pipeline.Run, bool, error) {
	start := time.Now()
	var (
		result    pipeline.Run
		coalesced bool
	)
	err := s.pg.Transaction(ctx, func(tx *gorm.DB) error {
		if err := lockKey(tx, "claim:"+candidate.ISRC); err != nil {
			return err
		}

		latest, err := latestRun(tx, candidate.ISRC)
		switch {
		case err == nil:
			if coalesce(&latest) {
				result, coalesced = latest, true
				return nil
			}
		case !errors.Is(err, pipeline.ErrRunNotFound):
			return err
		}

		rec := toRunRecord(candidate)
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		pointer := latestRecord{ISRC: candidate.ISRC, RunID: candidate.RunID}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "isrc"}},
			DoUpdates: clause.AssignmentColumns([]string{"run_id"}),
		}).Create(&pointer).Error; err != nil {
			return err
		}
		result, coalesced = candidate, false
		return nil
	})
	s.pg.observeOperation("claim", candidate.ISRC, "", start, err, map[string]interface{}{"coalesced": coalesced})
	if err != nil {
		return pipeline.Run{}, false, err
	}
	return result, coalesced, nil
}

func (s *StepStore) Run(ctx context.Context, isrc, runID string) (pipeline.Run, error) {
	return findRun(s.db(ctx), isrc, runID)
}

func (s *StepStore) Latest(ctx context.Context, isrc string) (pipeline.Run, error) {
	return latestRun(s.db(ctx), isrc)
}

func (s *StepStore) UpdateRun(ctx context.Context, run pipeline.Run) error {
	start := time.Now()
	rec := toRunRecord(run)
	res := s.db(ctx).Model(&runRecord{}).
		Where("isrc = ? AND run_id = ?", run.ISRC, run.RunID).
		Select("*").
		Omit("isrc", "run_id").
		Updates(&rec)
	err := res.Error
	if err == nil && res.RowsAffected == 0 {
		err = pipeline.ErrRunNotFound
	}
	s.pg.observeOperation("update_run", run.ISRC, string(run.Status), start, err, nil)
	return err
}

func (s *StepStore) Active(ctx context.Context) ([]pipeline.Run, error) {
	start := time.Now()
	var recs []runRecord
	err := s.db(ctx).
		Where("status IN ?", []string{string(pipeline.StatusPending), string(pipeline.StatusRunning)}).
		Order("created_at ASC").
		Find(&recs).Error
	s.pg.observeOperation("active", "ingestion_runs", "", start, err, map[string]interface{}{"count": len(recs)})
	if err != nil {
		return nil, err
	}
	out := make([]pipeline.Run, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.toRun())
	}
	return out, nil
}

func (s *StepStore) SaveStep(ctx context.Context, result pipeline.StepResult) error {
	start := time.Now()
	rec := toStepRecord(result)
	err := s.db(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error
	s.pg.observeOperation("save_step", result.ISRC, string(result.Step), start, err, nil)
	return err
}

func (s *StepStore) LoadSteps(ctx context.Context, isrc, runID string) (map[pipeline.Step]pipeline.StepResult, error) {
	start := time.Now()
	var recs []stepRecord
	err := s.db(ctx).Where("isrc = ? AND run_id = ?", isrc, runID).Find(&recs).Error
	s.pg.observeOperation("load_steps", isrc, runID, start, err, nil)
	if err != nil {
		return nil, err
	}
	out := make(map[pipeline.Step]pipeline.StepResult, len(recs))
	for _, r := range recs {
		res := r.toStepResult()
		out[res.Step] = res
	}
	return out, nil
}

func findRun(db *gorm.DB, isrc, runID string) (pipeline.Run, error) {
	var rec runRecord
	err := db.Where("isrc = ? AND run_id = ?", isrc, runID).Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pipeline.Run{}, pipeline.ErrRunNotFound
		}
		return pipeline.Run{}, err
	}
	return rec.toRun(), nil
}

func latestRun(db *gorm.DB, isrc string) (pipeline.Run, error) {
	var pointer latestRecord
	err := db.Where("isrc = ?", isrc).Take(&pointer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pipeline.Run{}, pipeline.ErrRunNotFound
		}
		return pipeline.Run{}, err
	}
	return findRun(db, isrc, pointer.RunID)
}
