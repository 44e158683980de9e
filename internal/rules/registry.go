package rules

import "sync"

// Registry holds the live schedule snapshot. The pipeline asks for the
// current snapshot on every evaluation so a config reload takes effect
// immediately, while records already written keep the class that was in
// force when they were appended.
type Registry struct {
	mu       sync.RWMutex
	schedule *Schedule
}

func NewRegistry(s *Schedule) *Registry {
	return &Registry{schedule: s}
}

func (r *Registry) Current() *Schedule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.schedule
}

func (r *Registry) Swap(s *Schedule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schedule = s
}
