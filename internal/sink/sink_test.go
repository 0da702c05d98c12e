package sink

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hetulpatel/arbscan/internal/markets"
)

type failingStore struct{ err error }

func (f failingStore) InsertOpportunities(context.Context, []markets.Opportunity) error { return f.err }
func (f failingStore) ListRecent(context.Context, int) ([]markets.Opportunity, error) {
	return nil, f.err
}

func TestNewRequiresPrimary(t *testing.T) {
	if _, err := New("sqlite", nil); !errors.Is(err, ErrNoPrimary) {
		t.Fatalf("err = %v", err)
	}
}

func TestPersistMirrorsAfterPrimary(t *testing.T) {
	mem := NewMemory()
	var mirrored int
	m, err := New("memory", mem,
		WithMirror("ok", func(_ context.Context, opps []markets.Opportunity) error {
			mirrored += len(opps)
			return nil
		}),
		WithMirror("broken", func(context.Context, []markets.Opportunity) error {
			return errors.New("redis down")
		}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	opps := []markets.Opportunity{{ID: "a"}, {ID: "b"}}
	if err := m.Persist(context.Background(), opps); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if mem.Len() != 2 || mirrored != 2 {
		t.Fatalf("primary=%d mirrored=%d", mem.Len(), mirrored)
	}
}

func TestPersistPrimaryFailureSkipsMirrors(t *testing.T) {
	boom := errors.New("disk full")
	called := false
	m, _ := New("sqlite", failingStore{err: boom}, WithMirror("kafka", func(context.Context, []markets.Opportunity) error {
		called = true
		return nil
	}))

	err := m.Persist(context.Background(), []markets.Opportunity{{ID: "a"}})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if called {
		t.Fatal("mirror ran after primary failure")
	}
}

func TestPersistEmptyIsNoop(t *testing.T) {
	m, _ := New("sqlite", failingStore{err: errors.New("should not be called")})
	if err := m.Persist(context.Background(), nil); err != nil {
		t.Fatalf("err = %v", err)
	}
}

func TestMemoryListRecent(t *testing.T) {
	mem := NewMemory()
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_ = mem.InsertOpportunities(context.Background(), []markets.Opportunity{
		{ID: "old", DetectedAt: at},
		{ID: "new", DetectedAt: at.Add(time.Hour)},
		{ID: "same-later", DetectedAt: at},
	})
	got, _ := mem.ListRecent(context.Background(), 2)
	if len(got) != 2 || got[0].ID != "new" || got[1].ID != "same-later" {
		t.Fatalf("got %+v", got)
	}
}

type stubRecent struct {
	out   []markets.Opportunity
	err   error
	calls int
}

func (s *stubRecent) Recent(_ context.Context, limit int) ([]markets.Opportunity, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.out[:min(limit, len(s.out))], nil
}

func TestListRecentPrefersFullCachePage(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	mem.InsertOpportunities(ctx, []markets.Opportunity{{ID: "db"}})

	cases := []struct {
		name    string
		cache   *stubRecent
		limit   int
		wantIDs []string
	}{
		{"full page from cache", &stubRecent{out: []markets.Opportunity{{ID: "c1"}, {ID: "c2"}, {ID: "c3"}}}, 2, []string{"c1", "c2"}},
		{"short cache falls back", &stubRecent{out: []markets.Opportunity{{ID: "c1"}}}, 2, []string{"db"}},
		{"cache error falls back", &stubRecent{err: errors.New("redis down")}, 2, []string{"db"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, _ := New("memory", mem, WithRecentCache("redis", tc.cache))
			got, err := m.ListRecent(ctx, tc.limit)
			if err != nil {
				t.Fatalf("ListRecent: %v", err)
			}
			if tc.cache.calls != 1 {
				t.Errorf("cache calls = %d, want 1", tc.cache.calls)
			}
			if len(got) != len(tc.wantIDs) {
				t.Fatalf("got %+v, want ids %v", got, tc.wantIDs)
			}
			for i, id := range tc.wantIDs {
				if got[i].ID != id {
					t.Errorf("got[%d] = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}
