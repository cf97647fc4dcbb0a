// Package postgresql implements the StoragePort on PostgreSQL.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/FalkoBaeker/tonie-app/internal/config"
	"github.com/FalkoBaeker/tonie-app/internal/domain/models"
)

// Adapter implements the StoragePort and TelemetryPort interfaces for PostgreSQL
type Adapter struct {
	db *sql.DB
}

// New creates a new PostgreSQL adapter and ensures the schema exists
func New(cfg config.DatabaseConfig) (*Adapter, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	a := &Adapter{db: db}
	if err := a.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return a, nil
}

func (a *Adapter) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS market_listings (
			id BIGSERIAL PRIMARY KEY,
			item_id TEXT NOT NULL,
			source TEXT NOT NULL,
			title TEXT NOT NULL,
			price_eur DOUBLE PRECISION NOT NULL,
			url TEXT NOT NULL DEFAULT '',
			sold_at TIMESTAMPTZ,
			fetched_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (item_id, source, url, price_eur)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_market_listings_item_fetched
			ON market_listings (item_id, fetched_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_market_listings_source
			ON market_listings (source)`,
		`CREATE TABLE IF NOT EXISTS refresh_runs (
			run_id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ,
			total INTEGER NOT NULL DEFAULT 0,
			processed INTEGER NOT NULL DEFAULT 0,
			successful INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			saved_rows INTEGER NOT NULL DEFAULT 0,
			pruned_rows INTEGER NOT NULL DEFAULT 0,
			item_limit INTEGER NOT NULL DEFAULT 0,
			delay_ms INTEGER NOT NULL DEFAULT 0,
			max_items INTEGER NOT NULL DEFAULT 0,
			failures TEXT[] NOT NULL DEFAULT '{}'
		)`,
		`CREATE TABLE IF NOT EXISTS pricing_events (
			id BIGSERIAL PRIMARY KEY,
			item_id TEXT NOT NULL,
			condition TEXT NOT NULL,
			source_tag TEXT NOT NULL,
			sample_size INTEGER NOT NULL,
			latency_ms BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}

	for _, stmt := range statements {
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveListings upserts listings for one item and source
func (a *Adapter) SaveListings(ctx context.Context, itemID, source string, listings []models.MarketListing) (int, error) {
	if len(listings) == 0 {
		return 0, nil
	}

	query := `INSERT INTO market_listings (item_id, source, title, price_eur, url, sold_at, fetched_at)
			  VALUES ($1, $2, $3, $4, $5, $6, now())
			  ON CONFLICT (item_id, source, url, price_eur)
			  DO UPDATE SET title = EXCLUDED.title, sold_at = EXCLUDED.sold_at, fetched_at = now()`

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	saved := 0
	for _, l := range listings {
		if l.Price <= 0 || strings.TrimSpace(l.Title) == "" {
			continue
		}
		var soldAt sql.NullTime
		if l.SoldAt != nil {
			soldAt = sql.NullTime{Time: *l.SoldAt, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, itemID, strings.ToLower(source), l.Title, l.Price, l.URL, soldAt); err != nil {
			return 0, err
		}
		saved++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return saved, nil
}

// GetListings retrieves listings for an item, newest first
func (a *Adapter) GetListings(ctx context.Context, itemID string, maxAge time.Duration, limit int) ([]models.MarketListing, error) {
	query := `SELECT id, item_id, source, title, price_eur, url, sold_at, fetched_at
			  FROM market_listings
			  WHERE item_id = $1 AND ($2::timestamptz IS NULL OR fetched_at >= $2)
			  ORDER BY fetched_at DESC
			  LIMIT $3`

	var cutoff sql.NullTime
	if maxAge > 0 {
		cutoff = sql.NullTime{Time: time.Now().UTC().Add(-maxAge), Valid: true}
	}
	if limit <= 0 {
		limit = 400
	}

	rows, err := a.db.QueryContext(ctx, query, itemID, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanListings(rows)
}

// ListListingsForSource retrieves all listings for one source across items
func (a *Adapter) ListListingsForSource(ctx context.Context, source string) ([]models.MarketListing, error) {
	query := `SELECT id, item_id, source, title, price_eur, url, sold_at, fetched_at
			  FROM market_listings
			  WHERE source = $1
			  ORDER BY fetched_at DESC`

	rows, err := a.db.QueryContext(ctx, query, strings.ToLower(source))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanListings(rows)
}

func scanListings(rows *sql.Rows) ([]models.MarketListing, error) {
	var out []models.MarketListing
	for rows.Next() {
		var l models.MarketListing
		var soldAt sql.NullTime
		if err := rows.Scan(&l.ID, &l.ItemID, &l.Source, &l.Title, &l.Price, &l.URL, &soldAt, &l.FetchedAt); err != nil {
			return nil, err
		}
		if soldAt.Valid {
			t := soldAt.Time
			l.SoldAt = &t
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// DeleteListingsByID removes listings by row ID
func (a *Adapter) DeleteListingsByID(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	res, err := a.db.ExecContext(ctx,
		`DELETE FROM market_listings WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// PruneOlderThan deletes listings fetched before the cutoff
func (a *Adapter) PruneOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := a.db.ExecContext(ctx,
		`DELETE FROM market_listings WHERE fetched_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// RecordRunState persists a refresh run snapshot
func (a *Adapter) RecordRunState(ctx context.Context, run models.RefreshRun) error {
	query := `INSERT INTO refresh_runs (run_id, status, started_at, finished_at, total, processed,
				successful, failed, saved_rows, pruned_rows, item_limit, delay_ms, max_items, failures)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			  ON CONFLICT (run_id) DO UPDATE SET
				status = EXCLUDED.status,
				finished_at = EXCLUDED.finished_at,
				total = EXCLUDED.total,
				processed = EXCLUDED.processed,
				successful = EXCLUDED.successful,
				failed = EXCLUDED.failed,
				saved_rows = EXCLUDED.saved_rows,
				pruned_rows = EXCLUDED.pruned_rows,
				failures = EXCLUDED.failures`

	var finishedAt sql.NullTime
	if run.FinishedAt != nil {
		finishedAt = sql.NullTime{Time: *run.FinishedAt, Valid: true}
	}

	failures := run.Failures
	if failures == nil {
		failures = []string{}
	}

	_, err := a.db.ExecContext(ctx, query,
		run.RunID, string(run.Status), run.StartedAt, finishedAt,
		run.Total, run.Processed, run.Successful, run.Failed,
		run.SavedRows, run.PrunedRows, run.Limit, run.DelayMs, run.MaxItems,
		pq.Array(failures))
	return err
}

// GetRunState returns the most recent refresh run, or nil when none exists
func (a *Adapter) GetRunState(ctx context.Context) (*models.RefreshRun, error) {
	query := `SELECT run_id, status, started_at, finished_at, total, processed,
				successful, failed, saved_rows, pruned_rows, item_limit, delay_ms, max_items, failures
			  FROM refresh_runs
			  ORDER BY started_at DESC
			  LIMIT 1`

	var run models.RefreshRun
	var status string
	var finishedAt sql.NullTime
	var failures pq.StringArray

	err := a.db.QueryRowContext(ctx, query).Scan(
		&run.RunID, &status, &run.StartedAt, &finishedAt,
		&run.Total, &run.Processed, &run.Successful, &run.Failed,
		&run.SavedRows, &run.PrunedRows, &run.Limit, &run.DelayMs, &run.MaxItems,
		&failures)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	run.Status = models.RunStatus(status)
	if finishedAt.Valid {
		t := finishedAt.Time
		run.FinishedAt = &t
	}
	run.Failures = []string(failures)
	return &run, nil
}

// FreshSampleCounts returns per item and source listing counts within maxAge
func (a *Adapter) FreshSampleCounts(ctx context.Context, maxAge time.Duration) (map[string]map[string]int, error) {
	query := `SELECT item_id, source, COUNT(*)
			  FROM market_listings
			  WHERE $1::timestamptz IS NULL OR fetched_at >= $1
			  GROUP BY item_id, source`

	var cutoff sql.NullTime
	if maxAge > 0 {
		cutoff = sql.NullTime{Time: time.Now().UTC().Add(-maxAge), Valid: true}
	}

	rows, err := a.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]map[string]int)
	for rows.Next() {
		var itemID, source string
		var count int
		if err := rows.Scan(&itemID, &source, &count); err != nil {
			return nil, err
		}
		bySource := out[itemID]
		if bySource == nil {
			bySource = make(map[string]int)
			out[itemID] = bySource
		}
		bySource[source] = count
	}
	return out, rows.Err()
}

// RecordPricingEvent writes one telemetry row per price computation
func (a *Adapter) RecordPricingEvent(ctx context.Context, event models.PricingEvent) error {
	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := a.db.ExecContext(ctx,
		`INSERT INTO pricing_events (item_id, condition, source_tag, sample_size, latency_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		event.ItemID, event.Condition, event.SourceTag, event.SampleSize, event.LatencyMs, createdAt)
	return err
}

// Close closes the database connection
func (a *Adapter) Close() error {
	return a.db.Close()
}
