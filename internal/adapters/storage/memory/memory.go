// Package memory is an in-memory StoragePort used in test data mode and by
// the use case tests. It mirrors the postgresql adapter's semantics, upsert
// identity and pruning included.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/FalkoBaeker/tonie-app/internal/domain/models"
)

type Storage struct {
	mu       sync.Mutex
	nextID   int64
	listings []models.MarketListing
	run      *models.RefreshRun
	events   []models.PricingEvent
}

func New() *Storage {
	return &Storage{nextID: 1}
}

func upsertKey(itemID, source, url string, price float64) string {
	cents := int64(math.Round(price * 100))
	return fmt.Sprintf("%s|%s|%s|%d", itemID, strings.ToLower(strings.TrimSpace(source)), strings.TrimSpace(url), cents)
}

func (s *Storage) SaveListings(ctx context.Context, itemID, source string, listings []models.MarketListing) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	saved := 0

	for _, l := range listings {
		if l.Price <= 0 || strings.TrimSpace(l.Title) == "" {
			continue
		}

		key := upsertKey(itemID, source, l.URL, l.Price)
		replaced := false
		for i := range s.listings {
			e := &s.listings[i]
			if upsertKey(e.ItemID, e.Source, e.URL, e.Price) == key {
				e.Title = l.Title
				e.SoldAt = l.SoldAt
				e.FetchedAt = now
				replaced = true
				break
			}
		}
		if !replaced {
			stored := l
			stored.ID = s.nextID
			s.nextID++
			stored.ItemID = itemID
			stored.Source = source
			stored.FetchedAt = now
			s.listings = append(s.listings, stored)
		}
		saved++
	}
	return saved, nil
}

func (s *Storage) GetListings(ctx context.Context, itemID string, maxAge time.Duration, limit int) ([]models.MarketListing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var cutoff time.Time
	if maxAge > 0 {
		cutoff = time.Now().UTC().Add(-maxAge)
	}

	out := make([]models.MarketListing, 0)
	for _, l := range s.listings {
		if l.ItemID != itemID {
			continue
		}
		if maxAge > 0 && l.FetchedAt.Before(cutoff) {
			continue
		}
		out = append(out, l)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].FetchedAt.After(out[j].FetchedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Storage) ListListingsForSource(ctx context.Context, source string) ([]models.MarketListing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	source = strings.ToLower(strings.TrimSpace(source))
	out := make([]models.MarketListing, 0)
	for _, l := range s.listings {
		if strings.ToLower(l.Source) == source {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *Storage) DeleteListingsByID(ctx context.Context, ids []int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	drop := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	kept := s.listings[:0]
	deleted := 0
	for _, l := range s.listings {
		if _, gone := drop[l.ID]; gone {
			deleted++
			continue
		}
		kept = append(kept, l)
	}
	s.listings = kept
	return deleted, nil
}

func (s *Storage) PruneOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.listings[:0]
	pruned := 0
	for _, l := range s.listings {
		if l.FetchedAt.Before(cutoff) {
			pruned++
			continue
		}
		kept = append(kept, l)
	}
	s.listings = kept
	return pruned, nil
}

func (s *Storage) RecordRunState(ctx context.Context, run models.RefreshRun) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := run
	snapshot.Failures = append([]string(nil), run.Failures...)
	s.run = &snapshot
	return nil
}

func (s *Storage) GetRunState(ctx context.Context) (*models.RefreshRun, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.run == nil {
		return nil, nil
	}
	snapshot := *s.run
	snapshot.Failures = append([]string(nil), s.run.Failures...)
	return &snapshot, nil
}

func (s *Storage) FreshSampleCounts(ctx context.Context, maxAge time.Duration) (map[string]map[string]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var cutoff time.Time
	if maxAge > 0 {
		cutoff = time.Now().UTC().Add(-maxAge)
	}

	out := make(map[string]map[string]int)
	for _, l := range s.listings {
		if maxAge > 0 && l.FetchedAt.Before(cutoff) {
			continue
		}
		bySource := out[l.ItemID]
		if bySource == nil {
			bySource = make(map[string]int)
			out[l.ItemID] = bySource
		}
		bySource[strings.ToLower(l.Source)]++
	}
	return out, nil
}

func (s *Storage) RecordPricingEvent(ctx context.Context, event models.PricingEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	s.events = append(s.events, event)
	return nil
}

// PricingEvents returns a copy of the recorded telemetry, oldest first.
func (s *Storage) PricingEvents() []models.PricingEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.PricingEvent(nil), s.events...)
}

func (s *Storage) Close() error { return nil }
