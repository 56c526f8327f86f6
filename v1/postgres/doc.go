// Package postgres stores ingestion runs and their step results in PostgreSQL.
//
// The package wraps a GORM connection with health monitoring and automatic
// reconnection, and implements pipeline.Store on top of three tables:
//
//	ingestion_runs    one row per (isrc, run_id)
//	ingestion_latest  the most recently claimed run of each ISRC
//	ingestion_steps   memoized step output, jsonb, write-once per (isrc, run_id, step)
//
// Claim takes a transaction-scoped advisory lock on the ISRC, so concurrent
// triggers for the same track from any number of processes resolve to one run.
//
// Basic Usage:
//
//	pg, err := postgres.NewPostgres(postgres.Config{
//		Connection: postgres.Connection{
//			Host:     "localhost",
//			Port:     5432,
//			User:     "trackindex",
//			Password: "secret",
//			DbName:   "trackindex",
//		},
//	})
//	if err != nil {
//		return err
//	}
//	defer pg.GracefulShutdown()
//
//	if err := pg.Migrate(); err != nil {
//		return err
//	}
//	store := postgres.NewStepStore(pg)
//
// FX Integration:
//
//	app := fx.New(
//		postgres.FXModule,
//		fx.Provide(func() postgres.Config { return cfg.Postgres }),
//	)
//
// The module exposes *Postgres and binds *StepStore as pipeline.Store. With
// AutoMigrate set the tables are created when the connection is established.
package postgres
