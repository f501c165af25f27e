package service

import (
	"sync/atomic"
	"time"
)

type State struct {
	ready     atomic.Bool
	startedAt time.Time

	lastAnalysisUnix atomic.Int64 // unix seconds
	analysesServed   atomic.Int64
}

func NewState() *State {
	s := &State{startedAt: time.Now()}
	s.ready.Store(false)
	return s
}

// SetReady: true после старта long polling.
func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

// TouchAnalysis отмечает доставленный пользователю результат.
func (s *State) TouchAnalysis(t time.Time) {
	s.lastAnalysisUnix.Store(t.Unix())
	s.analysesServed.Add(1)
}

func (s *State) LastAnalysis() time.Time {
	u := s.lastAnalysisUnix.Load()
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(u, 0)
}

func (s *State) AnalysesServed() int64 { return s.analysesServed.Load() }

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
