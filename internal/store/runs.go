package store

import (
	"context"
	"fmt"
	"time"
)

// Run statuses. A run row is created as running and always moves to
// exactly one terminal status.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// RunParams describes the scope of a crawl run as recorded on its row.
type RunParams struct {
	Source      string
	Category    string
	Subcategory string
	Region      string
	MaxPages    int
}

// CreateRun opens a run row in running state and returns its id.
func (s *Store) CreateRun(ctx context.Context, params RunParams) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO crawl_runs (source, category, subcategory, region, max_pages)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), $5)
		RETURNING id`,
		params.Source, params.Category, params.Subcategory, params.Region, params.MaxPages,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create crawl run: %w", err)
	}
	return id, nil
}

// FinishRun moves a run to a terminal status exactly once. Every
// aggregate except the page counter is derived from the tables over
// the run's time window; a second call for the same run is a no-op.
func (s *Store) FinishRun(ctx context.Context, runID int64, status string, errMsg string, pagesCrawled int) error {
	var startedAt time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT started_at FROM crawl_runs WHERE id = $1 AND status = $2`,
		runID, RunStatusRunning,
	).Scan(&startedAt)
	if err != nil {
		// Already finalized, or the row vanished. Either way there is
		// nothing left to write.
		return nil
	}

	_, err = s.pool.Exec(ctx, `
		UPDATE crawl_runs SET
			status = $2,
			error_message = NULLIF($3, ''),
			pages_crawled = $4,
			details_crawled = (SELECT count(*) FROM listings
			                   WHERE detail_crawled_at >= $5),
			errors = (SELECT count(*) FROM crawl_errors WHERE run_id = $1),
			new_listings = (SELECT count(*) FROM listings WHERE created_at >= $5),
			price_changes = (SELECT count(*) FROM price_history
			                 WHERE source = $6 AND recorded_at >= $5),
			finished_at = now()
		WHERE id = $1 AND status = $7`,
		runID, status, errMsg, pagesCrawled,
		startedAt, historySourceCrawl, RunStatusRunning,
	)
	if err != nil {
		return fmt.Errorf("failed to finish crawl run %d: %w", runID, err)
	}
	return nil
}

// RecordCrawlError appends one failed request to the run's error log.
func (s *Store) RecordCrawlError(ctx context.Context, runID int64, url, label, errType string, statusCode int, message string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO crawl_errors (run_id, url, label, error_type, status_code, message)
		VALUES ($1, $2, $3, $4, NULLIF($5, 0), $6)`,
		runID, url, label, errType, statusCode, message,
	)
	if err != nil {
		return fmt.Errorf("failed to record crawl error: %w", err)
	}
	return nil
}
