package measure

import (
	"sync"
)

type DefaultMeasure struct {
	mu    sync.Mutex
	steps map[string]Metric
	order []string
}

func NewDefaultMeasure() *DefaultMeasure {
	return &DefaultMeasure{
		steps: make(map[string]Metric),
	}
}

func (m *DefaultMeasure) AddMetric(id string) Metric {
	m.mu.Lock()
	defer m.mu.Unlock()

	if mt, ok := m.steps[id]; ok {
		return mt
	}

	mt := &DefaultMetric{mu: &sync.Mutex{}}
	m.steps[id] = mt
	m.order = append(m.order, id)

	return mt
}

func (m *DefaultMeasure) GetMetric(id string) Metric {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.steps[id]
}

func (m *DefaultMeasure) AllMetrics() map[string]Metric {
	m.mu.Lock()
	defer m.mu.Unlock()

	res := make(map[string]Metric, len(m.steps))
	for id, mt := range m.steps {
		res[id] = mt
	}

	return res
}

func (m *DefaultMeasure) Order() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	res := make([]string, len(m.order))
	copy(res, m.order)

	return res
}

var _ Measure = (*DefaultMeasure)(nil)
