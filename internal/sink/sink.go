// Package sink fans detected opportunities out to a primary store and
// best-effort mirrors.
package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/hetulpatel/arbscan/internal/logging"
	"github.com/hetulpatel/arbscan/internal/markets"
	"github.com/hetulpatel/arbscan/internal/metrics"
)

var ErrNoPrimary = errors.New("sink: primary store is required")

// Store is the durable record of opportunities.
type Store interface {
	InsertOpportunities(ctx context.Context, opps []markets.Opportunity) error
	ListRecent(ctx context.Context, limit int) ([]markets.Opportunity, error)
}

// MirrorFunc receives a copy of every persisted batch.
type MirrorFunc func(ctx context.Context, opps []markets.Opportunity) error

type mirror struct {
	name string
	fn   MirrorFunc
}

// RecentReader serves recency reads ahead of the primary store.
type RecentReader interface {
	Recent(ctx context.Context, limit int) ([]markets.Opportunity, error)
}

type Option func(*Multi)

func WithMirror(name string, fn MirrorFunc) Option {
	return func(m *Multi) {
		if fn != nil {
			m.mirrors = append(m.mirrors, mirror{name: name, fn: fn})
		}
	}
}

// WithRecentCache puts r in front of the primary for ListRecent. The cache
// answers only when it holds a full page.
func WithRecentCache(name string, r RecentReader) Option {
	return func(m *Multi) {
		if r != nil {
			m.cache, m.cacheName = r, name
		}
	}
}

// Multi writes to the primary first. A primary failure is returned and skips
// the mirrors; mirror failures are logged only.
type Multi struct {
	primary     Store
	primaryName string
	mirrors     []mirror
	cache       RecentReader
	cacheName   string
}

func New(primaryName string, primary Store, opts ...Option) (*Multi, error) {
	if primary == nil {
		return nil, ErrNoPrimary
	}
	m := &Multi{primary: primary, primaryName: primaryName}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *Multi) Persist(ctx context.Context, opps []markets.Opportunity) error {
	if len(opps) == 0 {
		return nil
	}
	err := m.primary.InsertOpportunities(ctx, opps)
	metrics.SinkResult(m.primaryName, err)
	if err != nil {
		return fmt.Errorf("sink: %s write: %w", m.primaryName, err)
	}
	for _, mr := range m.mirrors {
		err := mr.fn(ctx, opps)
		metrics.SinkResult(mr.name, err)
		if err != nil {
			logging.Errorf("[sink] mirror %s failed for %d opportunities: %v", mr.name, len(opps), err)
		}
	}
	return nil
}

func (m *Multi) ListRecent(ctx context.Context, limit int) ([]markets.Opportunity, error) {
	if m.cache != nil && limit > 0 {
		opps, err := m.cache.Recent(ctx, limit)
		switch {
		case err != nil:
			logging.Errorf("[sink] %s recent read failed, using %s: %v", m.cacheName, m.primaryName, err)
		case len(opps) >= limit:
			return opps[:limit], nil
		default:
			logging.Debugf("[sink] %s holds %d of %d, using %s", m.cacheName, len(opps), limit, m.primaryName)
		}
	}
	return m.primary.ListRecent(ctx, limit)
}
