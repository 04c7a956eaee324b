package health

import "sync/atomic"

// State tracks whether the server is ready to serve requests.
type State struct {
	healthy atomic.Bool
}

func (s *State) SetHealthy() {
	s.healthy.Store(true)
}

func (s *State) SetUnhealthy() {
	s.healthy.Store(false)
}

func (s *State) IsHealthy() bool {
	return s.healthy.Load()
}
