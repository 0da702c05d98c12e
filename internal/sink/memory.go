package sink

import (
	"context"
	"sort"
	"sync"

	"github.com/hetulpatel/arbscan/internal/markets"
)

// Memory is an in-process Store for dry runs.
type Memory struct {
	mu   sync.Mutex
	rows []markets.Opportunity
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) InsertOpportunities(_ context.Context, opps []markets.Opportunity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, opps...)
	return nil
}

func (m *Memory) ListRecent(_ context.Context, limit int) ([]markets.Opportunity, error) {
	m.mu.Lock()
	out := make([]markets.Opportunity, len(m.rows))
	copy(out, m.rows)
	m.mu.Unlock()

	// Later inserts win ties.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DetectedAt.After(out[j].DetectedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}
