package badger

import (
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// gcDiscardRatio is the share of stale data a value log file needs to be rewritten.
const gcDiscardRatio = 0.5

// StartGC runs value log garbage collection every Config.GCInterval until StopGC.
// It does nothing for in-memory stores or a zero interval.
func (s *Store) StartGC() {
	if s.cfg.InMemory || s.cfg.GCInterval <= 0 || s.stopGC != nil {
		return
	}
	s.stopGC = make(chan struct{})
	s.gcDone = make(chan struct{})

	go func() {
		defer close(s.gcDone)
		ticker := time.NewTicker(s.cfg.GCInterval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stopGC:
				return
			case <-ticker.C:
				s.collect()
			}
		}
	}()
}

// StopGC stops the loop started by StartGC and waits for it.
func (s *Store) StopGC() {
	if s.stopGC == nil {
		return
	}
	close(s.stopGC)
	<-s.gcDone
	s.stopGC = nil
}

func (s *Store) collect() {
	start := time.Now()
	rewrites := 0
	var err error
	for {
		if err = s.db.RunValueLogGC(gcDiscardRatio); err != nil {
			break
		}
		rewrites++
	}
	if errors.Is(err, badger.ErrNoRewrite) {
		err = nil
	}
	s.observeOperation("gc", s.cfg.Dir, "", start, err, map[string]interface{}{"rewrites": rewrites})
	if err != nil && s.logger != nil {
		s.logger.Warn("Value log garbage collection failed", err, map[string]interface{}{"dir": s.cfg.Dir})
	}
}
