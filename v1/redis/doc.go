// Package redis stores ingestion runs in Redis so that several trackindexer
// processes can share them.
//
// StepStore implements pipeline.Store. Claim runs inside an optimistic WATCH/MULTI
// transaction on the ISRC's latest-run key, so concurrent triggers for one ISRC
// start at most one run. Step results are written with HSETNX and are therefore
// write-once. Runs and steps of terminal runs can be expired with Config.StepTTL.
//
// Throttle implements pipeline.Throttle with a sliding log kept in a sorted set and
// updated by a Lua script, bounding attempt starts across all processes.
//
// Basic usage:
//
//	client, err := redis.NewClient(redis.Config{Host: "localhost"})
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	store := redis.NewStepStore(client)
//	throttle := redis.NewThrottle(client, "attempts", 10, time.Minute)
//	orch, err := pipeline.New(cfg, ports, store, pipeline.WithThrottle(throttle))
//
// With fx, combine FXModule and StoreFXModule.
package redis
