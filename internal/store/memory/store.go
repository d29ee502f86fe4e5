// Package memory provides an in-memory store implementation for
// development and testing.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/bryceloomis/Capstone-Recall-Alert/internal/recall"
)

type recallKey struct {
	productID string
	date      string
}

type alertKey struct {
	watcherID int64
	recallID  int64
}

// Store implements the recall and alert store interfaces with maps guarded
// by a single mutex, mirroring the unique constraints the relational store
// enforces.
type Store struct {
	mu           sync.RWMutex
	clock        recall.Clock
	nextRecallID int64
	nextAlertID  int64
	recalls      map[recallKey]recall.Recall
	watchlist    []recall.WatchlistEntry
	alerts       map[alertKey]recall.Alert
}

// New constructs an empty Store. The clock stamps alert creation times.
func New(clock recall.Clock) *Store {
	return &Store{
		clock:   clock,
		recalls: make(map[recallKey]recall.Recall),
		alerts:  make(map[alertKey]recall.Alert),
	}
}

func keyFor(rec recall.Recall) recallKey {
	return recallKey{productID: rec.ProductID, date: rec.RecallDate.Format("2006-01-02")}
}

// Upsert inserts the recall or overwrites every non-key field of the
// existing (product_id, recall_date) row.
func (s *Store) Upsert(_ context.Context, rec recall.Recall) (recall.UpsertOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := keyFor(rec)
	if existing, ok := s.recalls[key]; ok {
		rec.ID = existing.ID
		s.recalls[key] = rec
		return recall.OutcomeUpdated, nil
	}
	s.nextRecallID++
	rec.ID = s.nextRecallID
	s.recalls[key] = rec
	return recall.OutcomeInserted, nil
}

// List returns recalls newest first, narrowed by the filter.
func (s *Store) List(_ context.Context, filter recall.RecallFilter) ([]recall.Recall, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []recall.Recall
	for _, rec := range s.recalls {
		if filter.Source != "" && rec.Source != filter.Source {
			continue
		}
		if !filter.Since.IsZero() && rec.RecallDate.Before(filter.Since) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RecallDate.Equal(out[j].RecallDate) {
			return out[i].RecallDate.After(out[j].RecallDate)
		}
		return out[i].ID > out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// LatestByProductID returns the newest recall for a product identifier.
func (s *Store) LatestByProductID(_ context.Context, productID string) (recall.Recall, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest recall.Recall
	found := false
	for _, rec := range s.recalls {
		if rec.ProductID != productID {
			continue
		}
		if !found || rec.RecallDate.After(latest.RecallDate) {
			latest = rec
			found = true
		}
	}
	return latest, found, nil
}

// CountRecalls returns the number of recall rows.
func (s *Store) CountRecalls(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.recalls)), nil
}

// AddWatchlistEntry seeds a watchlist row. The watchlist is owned by the
// grocery-list feature; this helper exists for dev mode and tests only.
func (s *Store) AddWatchlistEntry(entry recall.WatchlistEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.watchlist {
		if existing.WatcherID == entry.WatcherID && existing.ProductID == entry.ProductID {
			return
		}
	}
	s.watchlist = append(s.watchlist, entry)
}

// GenerateAlerts computes the watchlist-recall join minus existing alerts
// and creates one alert per missing pair.
func (s *Store) GenerateAlerts(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := 0
	for _, entry := range s.watchlist {
		for _, rec := range s.recalls {
			if rec.ProductID != entry.ProductID {
				continue
			}
			key := alertKey{watcherID: entry.WatcherID, recallID: rec.ID}
			if _, exists := s.alerts[key]; exists {
				continue
			}
			s.nextAlertID++
			s.alerts[key] = recall.Alert{
				ID:        s.nextAlertID,
				WatcherID: entry.WatcherID,
				RecallID:  rec.ID,
				ProductID: entry.ProductID,
				CreatedAt: s.clock.Now(),
			}
			created++
		}
	}
	return created, nil
}

// CountAlerts returns the number of alert rows.
func (s *Store) CountAlerts(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.alerts)), nil
}

// Alerts returns a copy of all alert rows, for tests and dev inspection.
func (s *Store) Alerts() []recall.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]recall.Alert, 0, len(s.alerts))
	for _, a := range s.alerts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
