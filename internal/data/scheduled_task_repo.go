package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/dealerops/rentd/internal/data/pgxutil"
	"github.com/dealerops/rentd/internal/domain/model"
)

// ScheduledTaskRepo provides database operations for recurring background tasks.
type ScheduledTaskRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewScheduledTaskRepo creates a new ScheduledTaskRepo.
func NewScheduledTaskRepo(db *sql.DB) *ScheduledTaskRepo {
	return &ScheduledTaskRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewScheduledTaskRepoWithTimeProvider creates a ScheduledTaskRepo with a custom TimeProvider.
func NewScheduledTaskRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *ScheduledTaskRepo {
	return &ScheduledTaskRepo{DB: db, timeProvider: tp}
}

// fnvHash computes FNV-1a 64-bit hash of the given string for use as advisory lock key.
func fnvHash(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	// Advisory locks accept BIGINT; constrain the unsigned hash into int64 range before casting.
	u := h.Sum64()
	if u > uint64(math.MaxInt64) {
		u %= uint64(math.MaxInt64)
	}
	return int64(u) // #nosec G115 -- value is explicitly bounded to <= MaxInt64 before casting to int64.
}

const scheduledTaskColumns = `
  id,
  task_name,
  payload,
  EXTRACT(EPOCH FROM scheduled_interval)::bigint AS interval_seconds,
  last_queued_at,
  updated_at
`

// FindDueTx finds tasks due for execution within an existing transaction.
// FOR UPDATE SKIP LOCKED keeps concurrent scheduler instances from grabbing
// the same rows; pair it with MarkQueuedTx in the same transaction.
func (r *ScheduledTaskRepo) FindDueTx(
	ctx context.Context,
	tx *sql.Tx,
	now time.Time,
	limit int,
) ([]model.ScheduledTask, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	query := `
		SELECT ` + scheduledTaskColumns + `
		FROM scheduled_tasks
		WHERE (last_queued_at IS NULL OR last_queued_at + scheduled_interval <= $1)
		ORDER BY
			CASE WHEN last_queued_at IS NULL THEN 0 ELSE 1 END,
			last_queued_at ASC,
			created_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`

	rows, err := tx.QueryContext(ctx, query, now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("query due scheduled tasks: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			// best-effort close; nothing further to do
			_ = closeErr
		}
	}()

	var tasks []model.ScheduledTask
	for rows.Next() {
		task, scanErr := scanScheduledTask(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan scheduled task: %w", scanErr)
		}
		tasks = append(tasks, task)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("iterate scheduled tasks: %w", rowsErr)
	}
	return tasks, nil
}

// MarkQueuedTx stamps last_queued_at within an existing transaction.
// Use with FindDueTx so selection and update happen under the same locks.
func (r *ScheduledTaskRepo) MarkQueuedTx(ctx context.Context, tx *sql.Tx, id string, now time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE scheduled_tasks SET last_queued_at = $2, updated_at = $3 WHERE id = $1`,
		id, now.UTC(), r.timeProvider.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("update scheduled task: %w", err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// UpsertByTaskName registers a recurring task or updates its interval/payload.
func (r *ScheduledTaskRepo) UpsertByTaskName(
	ctx context.Context,
	taskName string,
	interval time.Duration,
	payload json.RawMessage,
) error {
	now := r.timeProvider.Now().UTC()
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO scheduled_tasks (id, task_name, payload, scheduled_interval, created_at, updated_at)
		VALUES ($1, $2, $3, make_interval(secs => $4), $5, $5)
		ON CONFLICT (task_name) DO UPDATE
		SET payload = EXCLUDED.payload,
		    scheduled_interval = EXCLUDED.scheduled_interval,
		    updated_at = EXCLUDED.updated_at`,
		uuid.NewString(), taskName, []byte(payload), interval.Seconds(), now,
	)
	if err != nil {
		return fmt.Errorf("upsert scheduled task %s: %w", taskName, err)
	}
	return nil
}

// DeleteByTaskName removes a recurring task.
func (r *ScheduledTaskRepo) DeleteByTaskName(ctx context.Context, taskName string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM scheduled_tasks WHERE task_name = $1`, taskName)
	if err != nil {
		return false, fmt.Errorf("delete scheduled task %s: %w", taskName, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// TryWithTaskLock attempts to acquire an advisory lock for the given task name
// and, if acquired, executes fn within the same transaction.
// Return semantics:
//   - (false, nil): lock not acquired; fn was not executed
//   - (true, nil): lock acquired; fn executed and succeeded
//   - (true, err): lock acquired; fn executed and failed with err
func (r *ScheduledTaskRepo) TryWithTaskLock(
	ctx context.Context,
	taskName string,
	fn func(context.Context, *sql.Tx) error,
) (bool, error) {
	lockKey := fnvHash(taskName)

	var locked bool
	var fnErr error

	err := pgxutil.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1)", lockKey).Scan(&locked); err != nil {
			return fmt.Errorf("acquire advisory lock for task %s: %w", taskName, err)
		}
		if !locked {
			return nil
		}
		// Commit regardless of fn's outcome; its error is surfaced separately.
		fnErr = fn(ctx, tx)
		return nil
	})
	if err != nil {
		return false, err
	}
	return locked, fnErr
}

func scanScheduledTask(rows *sql.Rows) (model.ScheduledTask, error) {
	var (
		task            model.ScheduledTask
		payload         []byte
		intervalSeconds sql.NullInt64
		lastQueuedAt    sql.NullTime
	)
	if err := rows.Scan(
		&task.ID,
		&task.TaskName,
		&payload,
		&intervalSeconds,
		&lastQueuedAt,
		&task.UpdatedAt,
	); err != nil {
		return model.ScheduledTask{}, err
	}
	if payload != nil {
		task.Payload = json.RawMessage(payload)
	}
	if intervalSeconds.Valid {
		task.Interval = time.Duration(intervalSeconds.Int64) * time.Second
	}
	if lastQueuedAt.Valid {
		t := lastQueuedAt.Time
		task.LastQueuedAt = &t
	}
	return task, nil
}
