package repository

import (
	"context"
	"fmt"
	"strings"

	"grocerygenius-api/internal/model"
	"grocerygenius-api/pkg/uid"
)

const maxRunErrorLength = 2000

const syncRunColumns = `id, zip_code, deal_count, message, stores, flyers_seen, flyers_matched,
	flyers_failed, purged, error_message, started_at, finished_at`

// InsertSyncRun records a finished sync run.
func (r *SQLRepository) InsertSyncRun(ctx context.Context, run *model.SyncResult) error {
	if run.ID == "" {
		run.ID = uid.New()
	}

	errMsg := run.Error
	if len(errMsg) > maxRunErrorLength {
		errMsg = errMsg[:maxRunErrorLength]
	}

	defer r.lockWrite()()
	_, err := r.db.ExecContext(ctx, r.dialect.rebind(`INSERT INTO sync_runs (`+syncRunColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		run.ID, run.ZipCode, run.Count, run.Message, strings.Join(run.Stores, ","),
		run.FlyersSeen, run.FlyersMatched, run.FlyersFailed, run.Purged, errMsg,
		run.StartedAt.UTC(), run.FinishedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert sync run: %w", err)
	}
	return nil
}

// ListSyncRuns returns runs newest first with the total run count.
func (r *SQLRepository) ListSyncRuns(ctx context.Context, limit, offset int) ([]model.SyncResult, int64, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	defer r.lockRead()()

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_runs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count sync runs: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, r.dialect.rebind(`SELECT `+syncRunColumns+`
		FROM sync_runs ORDER BY started_at DESC LIMIT ? OFFSET ?`), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sync runs: %w", err)
	}
	defer rows.Close()

	runs := []model.SyncResult{}
	for rows.Next() {
		var (
			run    model.SyncResult
			stores string
		)
		if err := rows.Scan(&run.ID, &run.ZipCode, &run.Count, &run.Message, &stores,
			&run.FlyersSeen, &run.FlyersMatched, &run.FlyersFailed, &run.Purged, &run.Error,
			&run.StartedAt, &run.FinishedAt); err != nil {
			return nil, 0, err
		}
		if stores != "" {
			run.Stores = strings.Split(stores, ",")
		}
		runs = append(runs, run)
	}
	return runs, total, rows.Err()
}
