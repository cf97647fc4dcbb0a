package usecases

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/FalkoBaeker/tonie-app/internal/application/ports"
	"github.com/FalkoBaeker/tonie-app/internal/catalog"
	"github.com/FalkoBaeker/tonie-app/internal/concurrency"
	"github.com/FalkoBaeker/tonie-app/internal/config"
	"github.com/FalkoBaeker/tonie-app/internal/domain/models"
)

// CoverageReport summarizes how much of the catalog has fresh market data.
type CoverageReport struct {
	Covered int                 `json:"covered_items"`
	Total   int                 `json:"total_items"`
	Items   []models.CoverageRow `json:"items"`
}

// CoverageService reports fresh-data coverage per catalog item and drives
// targeted refreshes of the worst covered ones.
type CoverageService struct {
	catalog  *catalog.Catalog
	storage  ports.StoragePort
	ingester *Ingester
	market   config.MarketConfig
	logger   *slog.Logger
}

func NewCoverageService(cat *catalog.Catalog, storage ports.StoragePort, ingester *Ingester, market config.MarketConfig, logger *slog.Logger) *CoverageService {
	return &CoverageService{
		catalog:  cat,
		storage:  storage,
		ingester: ingester,
		market:   market,
		logger:   logger,
	}
}

// Snapshot computes effective samples per item from the fresh listing counts
// and the source trust weights. Every catalog item appears, zero rows
// included; the list is sorted worst coverage first.
func (s *CoverageService) Snapshot(ctx context.Context) (CoverageReport, error) {
	freshAge := time.Duration(s.market.CacheTTLMinutes) * time.Minute

	counts, err := s.storage.FreshSampleCounts(ctx, freshAge)
	if err != nil {
		return CoverageReport{}, err
	}

	target := s.market.MinEffectiveSamples

	report := CoverageReport{Total: s.catalog.Len()}
	for _, item := range s.catalog.Items() {
		row := models.CoverageRow{ItemID: item.ID, Title: item.Title}
		for source, n := range counts[item.ID] {
			row.RawSamples += n
			row.EffectiveSamples += float64(n) * s.market.SourceWeight(source)
		}
		row.MeetsTarget = row.EffectiveSamples >= target
		if row.MeetsTarget {
			report.Covered++
		}
		report.Items = append(report.Items, row)
	}

	sort.Slice(report.Items, func(i, j int) bool {
		a, b := report.Items[i], report.Items[j]
		if a.EffectiveSamples != b.EffectiveSamples {
			return a.EffectiveSamples < b.EffectiveSamples
		}
		if a.RawSamples != b.RawSamples {
			return a.RawSamples < b.RawSamples
		}
		return a.ItemID < b.ItemID
	})
	return report, nil
}

// RefreshLowest refreshes the batchSize worst-covered items that miss the
// target, with bounded parallelism. Returns how many items were refreshed.
func (s *CoverageService) RefreshLowest(ctx context.Context, batchSize, workers int) (int, error) {
	if batchSize <= 0 {
		batchSize = 40
	}
	if workers <= 0 {
		workers = 2
	}

	report, err := s.Snapshot(ctx)
	if err != nil {
		return 0, err
	}

	var targets []catalog.Item
	for _, row := range report.Items {
		if row.MeetsTarget {
			continue
		}
		if item, ok := s.catalog.ByID(row.ItemID); ok {
			targets = append(targets, item)
		}
		if len(targets) == batchSize {
			break
		}
	}
	if len(targets) == 0 {
		return 0, nil
	}

	runner := concurrency.NewRunner(workers)
	err = runner.ForEach(ctx, len(targets), func(ctx context.Context, i int) {
		item := targets[i]
		saved, err := s.ingester.IngestItem(ctx, item, s.market.RefreshMaxItems)
		if err != nil {
			s.logger.Warn("coverage refresh item failed", "item_id", item.ID, "error", err)
			return
		}
		s.logger.Debug("coverage refresh item done", "item_id", item.ID, "saved_rows", saved)
	})
	return len(targets), err
}
