package engine

import (
	"sync"
	"time"
)

// phaseMetric accumulates wall time spent in one phase of the sweep.
type phaseMetric struct {
	mu      *sync.Mutex
	total   int64
	elapsed time.Duration
}

func (m *phaseMetric) add(elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total++
	m.elapsed += elapsed
}

func (m *phaseMetric) avg() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.total == 0 {
		return 0
	}

	return time.Duration(float64(m.elapsed) / float64(m.total))
}

// sweepMetrics tracks how long a sweep spends generating data, running
// experiments and persisting progress.
type sweepMetrics struct {
	generate *phaseMetric
	run      *phaseMetric
	persist  *phaseMetric
}

func newSweepMetrics() *sweepMetrics {
	return &sweepMetrics{
		generate: &phaseMetric{mu: &sync.Mutex{}},
		run:      &phaseMetric{mu: &sync.Mutex{}},
		persist:  &phaseMetric{mu: &sync.Mutex{}},
	}
}
