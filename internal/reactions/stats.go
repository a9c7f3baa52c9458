package reactions

import "sync"

// Stats counts how many times each trigger fired since startup or the last
// reset. Process-lifetime only; nothing is persisted.
type Stats struct {
	mu     sync.RWMutex
	counts map[string]uint64
}

func NewStats() *Stats {
	return &Stats{counts: map[string]uint64{}}
}

func (s *Stats) Increment(trigger string) {
	s.mu.Lock()
	s.counts[trigger]++
	s.mu.Unlock()
}

// All returns a copy of the current counts.
func (s *Stats) All() map[string]uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]uint64, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out
}

// Reset clears every counter in one step; concurrent increments land either
// entirely before or entirely after the reset.
func (s *Stats) Reset() {
	s.mu.Lock()
	s.counts = map[string]uint64{}
	s.mu.Unlock()
}
