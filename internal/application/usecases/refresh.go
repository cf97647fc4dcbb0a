package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FalkoBaeker/tonie-app/internal/application/ports"
	"github.com/FalkoBaeker/tonie-app/internal/catalog"
	"github.com/FalkoBaeker/tonie-app/internal/config"
	"github.com/FalkoBaeker/tonie-app/internal/domain/models"
)

// ErrRefreshConflict is returned when a refresh run is already in progress.
var ErrRefreshConflict = errors.New("refresh already running")

// maxStoredFailures caps the failure list carried in run state. Beyond the
// cap only the counter grows.
const maxStoredFailures = 50

// RefreshOptions tune one catalog refresh run.
type RefreshOptions struct {
	// Limit bounds how many catalog items are processed; <= 0 means all.
	Limit int
	// Delay is the pause between items, a politeness budget toward the
	// scraped marketplaces.
	Delay time.Duration
	// MaxItems bounds listings fetched per item and source.
	MaxItems int
}

// RefreshService walks the catalog and refreshes stored market data item by
// item. At most one run may be active per process.
type RefreshService struct {
	catalog  *catalog.Catalog
	storage  ports.StoragePort
	ingester *Ingester
	market   config.MarketConfig
	logger   *slog.Logger

	mu      sync.Mutex
	running bool

	stateMu sync.Mutex
	state   models.RefreshRun
}

func NewRefreshService(cat *catalog.Catalog, storage ports.StoragePort, ingester *Ingester, market config.MarketConfig, logger *slog.Logger) *RefreshService {
	return &RefreshService{
		catalog:  cat,
		storage:  storage,
		ingester: ingester,
		market:   market,
		logger:   logger,
		state:    models.RefreshRun{Status: models.RunStatusIdle},
	}
}

// Status returns a snapshot of the current (or last) run state.
func (s *RefreshService) Status() models.RefreshRun {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return snapshotRun(s.state)
}

// Running reports whether a refresh run is active.
func (s *RefreshService) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Run executes one refresh synchronously. Returns ErrRefreshConflict when a
// run is already active. Cancellation finishes the run early but still
// records a terminal state.
func (s *RefreshService) Run(ctx context.Context, opts RefreshOptions) (models.RefreshRun, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return s.Status(), ErrRefreshConflict
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	items := s.catalog.Items()
	if opts.Limit > 0 && opts.Limit < len(items) {
		items = items[:opts.Limit]
	}

	delay := opts.Delay
	if delay < 0 {
		delay = 0
	}
	maxItems := opts.MaxItems
	if maxItems <= 0 {
		maxItems = s.market.RefreshMaxItems
	} else if maxItems < 10 {
		maxItems = 10
	}

	runID := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]

	s.setState(models.RefreshRun{
		RunID:     runID,
		Status:    models.RunStatusRunning,
		StartedAt: time.Now().UTC(),
		Total:     len(items),
		Limit:     opts.Limit,
		DelayMs:   int(delay / time.Millisecond),
		MaxItems:  maxItems,
		Failures:  []string{},
	})

	s.logger.Info("market refresh started",
		"run_id", runID, "total", len(items), "limit", opts.Limit,
		"delay_ms", int(delay/time.Millisecond), "max_items", maxItems)
	s.persistState(ctx)

	canceled := false

	for idx, item := range items {
		if ctx.Err() != nil {
			canceled = true
			break
		}

		saved, err := s.ingester.IngestItem(ctx, item, maxItems)

		s.stateMu.Lock()
		s.state.Processed = idx + 1
		if err != nil {
			s.state.Failed++
			if len(s.state.Failures) < maxStoredFailures {
				s.state.Failures = append(s.state.Failures, fmt.Sprintf("%s: %v", item.ID, err))
			}
			s.logger.Warn("market refresh item failed", "run_id", runID, "item_id", item.ID, "error", err)
		} else {
			s.state.Successful++
			s.state.SavedRows += saved
		}
		processed := s.state.Processed
		successful := s.state.Successful
		failed := s.state.Failed
		s.stateMu.Unlock()

		if processed%10 == 0 || processed == len(items) {
			s.logger.Info("market refresh progress",
				"run_id", runID, "processed", processed, "total", len(items),
				"successful", successful, "failed", failed)
			s.persistState(ctx)
		}

		if delay > 0 && idx < len(items)-1 {
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				canceled = true
			case <-t.C:
			}
			if canceled {
				break
			}
		}
	}

	// Prune with a background context so that a canceled run still leaves
	// consistent storage and a terminal state behind.
	pruneCtx := ctx
	if canceled {
		var cancel context.CancelFunc
		pruneCtx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -s.market.HistoryDays)
	pruned, err := s.storage.PruneOlderThan(pruneCtx, cutoff)
	if err != nil {
		s.logger.Warn("market refresh prune failed", "run_id", runID, "error", err)
	}

	s.stateMu.Lock()
	s.state.PrunedRows = pruned
	now := time.Now().UTC()
	s.state.FinishedAt = &now
	if s.state.Failed > 0 || canceled {
		s.state.Status = models.RunStatusCompletedWithErrors
	} else {
		s.state.Status = models.RunStatusCompleted
	}
	final := snapshotRun(s.state)
	s.stateMu.Unlock()

	s.logger.Info("market refresh finished",
		"run_id", runID, "status", final.Status, "processed", final.Processed,
		"successful", final.Successful, "failed", final.Failed,
		"saved_rows", final.SavedRows, "pruned_rows", final.PrunedRows)
	s.persistState(pruneCtx)

	if canceled {
		return final, ctx.Err()
	}
	return final, nil
}

func (s *RefreshService) setState(run models.RefreshRun) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.state = run
}

func (s *RefreshService) persistState(ctx context.Context) {
	snapshot := s.Status()
	if err := s.storage.RecordRunState(ctx, snapshot); err != nil {
		s.logger.Warn("refresh run state persistence failed", "run_id", snapshot.RunID, "error", err)
	}
}

func snapshotRun(run models.RefreshRun) models.RefreshRun {
	out := run
	out.Failures = append([]string(nil), run.Failures...)
	if run.FinishedAt != nil {
		t := *run.FinishedAt
		out.FinishedAt = &t
	}
	return out
}
