package usecases

import (
	"context"
	"log/slog"

	"github.com/FalkoBaeker/tonie-app/internal/application/ports"
	"github.com/FalkoBaeker/tonie-app/internal/catalog"
	"github.com/FalkoBaeker/tonie-app/internal/domain/models"
	"github.com/FalkoBaeker/tonie-app/internal/relevance"
)

// CleanupOptions tune one stored-data hygiene pass.
type CleanupOptions struct {
	// ItemID restricts the pass to one catalog item; empty means all.
	ItemID string
	// Limit caps how many stored rows are inspected.
	Limit int
	// MaxDelete is the safety cap on deletions per apply run.
	MaxDelete int
	// Apply actually deletes; the default is a dry-run preview.
	Apply bool
}

// CleanupReport is the outcome of a hygiene pass.
type CleanupReport struct {
	Inspected int                    `json:"inspected"`
	Flagged   int                    `json:"flagged"`
	Deleted   int                    `json:"deleted"`
	Examples  []models.MarketListing `json:"examples"`
}

// HygieneService re-applies the current relevance filter to stored
// classifieds rows and removes the ones that no longer pass. Filter rules
// get stricter over time; rows saved under older rules stay behind otherwise.
type HygieneService struct {
	catalog *catalog.Catalog
	storage ports.StoragePort
	logger  *slog.Logger
}

func NewHygieneService(cat *catalog.Catalog, storage ports.StoragePort, logger *slog.Logger) *HygieneService {
	return &HygieneService{catalog: cat, storage: storage, logger: logger}
}

// CleanupPolluted flags stored classifieds rows failing the relevance filter
// for their own item, and deletes them when opts.Apply is set, up to
// opts.MaxDelete rows.
func (s *HygieneService) CleanupPolluted(ctx context.Context, opts CleanupOptions) (CleanupReport, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 2000
	}
	maxDelete := opts.MaxDelete
	if maxDelete <= 0 {
		maxDelete = 250
	}

	rows, err := s.storage.ListListingsForSource(ctx, models.SourceClassifieds)
	if err != nil {
		return CleanupReport{}, err
	}

	var report CleanupReport
	var flagged []models.MarketListing

	for _, row := range rows {
		if opts.ItemID != "" && row.ItemID != opts.ItemID {
			continue
		}
		if report.Inspected >= limit {
			break
		}
		report.Inspected++

		item, ok := s.catalog.ByID(row.ItemID)
		if !ok {
			continue
		}

		if !relevance.IsRelevant(row.Title, item, true) {
			flagged = append(flagged, row)
		}
	}

	report.Flagged = len(flagged)
	if n := len(flagged); n > 0 {
		exampleCount := min(10, n)
		report.Examples = append(report.Examples, flagged[:exampleCount]...)
	}

	if !opts.Apply || len(flagged) == 0 {
		return report, nil
	}

	toDelete := flagged
	if len(toDelete) > maxDelete {
		toDelete = toDelete[:maxDelete]
	}
	ids := make([]int64, 0, len(toDelete))
	for _, row := range toDelete {
		ids = append(ids, row.ID)
	}

	deleted, err := s.storage.DeleteListingsByID(ctx, ids)
	if err != nil {
		return report, err
	}
	report.Deleted = deleted

	s.logger.Info("polluted listings cleanup applied",
		"inspected", report.Inspected, "flagged", report.Flagged,
		"deleted", report.Deleted, "cap", maxDelete)
	return report, nil
}
