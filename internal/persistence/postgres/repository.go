// Package postgres provides pgx-backed persistence for the activity
// ledger, the footprint cache, outbox events, and reports.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/greentrace/internal/domain"
	"example.com/greentrace/internal/emission"
	"example.com/greentrace/internal/observability"
	"example.com/greentrace/internal/outbox"
	"example.com/greentrace/internal/report"
)

const activityColumns = `activity_id, user_id, service, duration_min, data_used_gb, resolution, co2e_kg, created_at`

// Repository implements domain.ActivityRepository and report.Store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindByIdempotency checks whether an activity already exists for the
// supplied idempotency key.
func (r *Repository) FindByIdempotency(ctx context.Context, userID, idempotencyKey string) (*domain.Activity, error) {
	if idempotencyKey == "" {
		return nil, nil
	}

	query := `SELECT ` + activityColumns + ` FROM activities WHERE user_id=$1 AND idempotency_key=$2`
	row := r.pool.QueryRow(ctx, query, userID, idempotencyKey)
	return scanActivity(row)
}

// Create persists the activity and, in the same transaction, recomputes the
// owner's footprint cache from the ledger and records outbox events. The
// recompute reads the authoritative sum rather than incrementing the old
// cache value, so any prior drift heals on the next write.
func (r *Repository) Create(ctx context.Context, activity domain.Activity, idempotencyKey string) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	// Per-user writers are serialized with a transaction-scoped advisory
	// lock: the recompute below must see every other writer's committed
	// rows, which READ COMMITTED alone does not guarantee when two
	// transactions for the same user interleave.
	if _, err = tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, activity.UserID); err != nil {
		return err
	}

	const insertActivity = `INSERT INTO activities (activity_id, user_id, service, duration_min, data_used_gb, resolution, co2e_kg, idempotency_key, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	_, err = tx.Exec(ctx, insertActivity,
		activity.ID,
		activity.UserID,
		string(activity.Service),
		activity.DurationMin,
		activity.DataUsedGB,
		resolutionValue(activity.Resolution),
		activity.CO2eKg,
		nullIfEmpty(idempotencyKey),
		activity.CreatedAt,
	)
	if err != nil {
		return err
	}

	footprint, err := r.refreshCache(ctx, tx, activity.UserID, activity.CreatedAt)
	if err != nil {
		return err
	}

	if err = r.insertOutbox(ctx, tx, activity.ID, activity.UserID, outbox.EventActivityRecorded, outbox.ActivityRecorded{
		ActivityID:  activity.ID,
		UserID:      activity.UserID,
		Service:     string(activity.Service),
		DurationMin: activity.DurationMin,
		DataUsedGB:  activity.DataUsedGB,
		Resolution:  resolutionString(activity.Resolution),
		CO2eKg:      activity.CO2eKg,
		RecordedAt:  activity.CreatedAt,
	}); err != nil {
		return err
	}

	if err = r.insertOutbox(ctx, tx, activity.ID, activity.UserID, outbox.EventFootprintUpdated, outbox.FootprintUpdated{
		UserID:        activity.UserID,
		TotalCO2eKg:   footprint.TotalCO2eKg,
		ActivityCount: footprint.ActivityCount,
		UpdatedAt:     activity.CreatedAt,
	}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return err
	}

	observability.RecordActivityPersisted(string(activity.Service), activity.CreatedAt)
	return nil
}

// refreshCache recomputes the user's aggregate inside the caller's
// transaction and upserts the cache row.
func (r *Repository) refreshCache(ctx context.Context, tx pgx.Tx, userID string, now time.Time) (domain.Footprint, error) {
	start := time.Now()

	var fp domain.Footprint
	const aggregate = `SELECT COALESCE(SUM(co2e_kg), 0), COUNT(*) FROM activities WHERE user_id=$1`
	if err := tx.QueryRow(ctx, aggregate, userID).Scan(&fp.TotalCO2eKg, &fp.ActivityCount); err != nil {
		return domain.Footprint{}, err
	}

	const upsert = `INSERT INTO footprint_cache (user_id, total_co2e_kg, activity_count, updated_at)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (user_id) DO UPDATE
        SET total_co2e_kg = EXCLUDED.total_co2e_kg,
            activity_count = EXCLUDED.activity_count,
            updated_at = EXCLUDED.updated_at`
	if _, err := tx.Exec(ctx, upsert, userID, fp.TotalCO2eKg, fp.ActivityCount, now); err != nil {
		return domain.Footprint{}, err
	}

	fp.UpdatedAt = now
	observability.ObserveCacheRefresh(time.Since(start))
	return fp, nil
}

func (r *Repository) insertOutbox(ctx context.Context, tx pgx.Tx, activityID, userID, eventType string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	topic := outbox.TopicFor(eventType)
	if topic == "" {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	dedupeKey := fmt.Sprintf("%s:%s", activityID, eventType)

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`

	_, err = tx.Exec(ctx, stmt, "activity", activityID, eventType, topic, userID, body, dedupeKey)
	return err
}

// Get retrieves an activity by ID. Returns nil when not found.
func (r *Repository) Get(ctx context.Context, activityID string) (*domain.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE activity_id=$1`
	row := r.pool.QueryRow(ctx, query, activityID)
	return scanActivity(row)
}

// ListByUser returns activities for a user, newest first, with keyset
// pagination.
func (r *Repository) ListByUser(ctx context.Context, userID string, cursor *domain.Cursor, limit int) ([]domain.Activity, *domain.Cursor, error) {
	args := []interface{}{userID, limit}
	query := `SELECT ` + activityColumns + ` FROM activities WHERE user_id=$1`

	if cursor != nil {
		query += ` AND (created_at, activity_id) < ($3, $4)`
		args = append(args, cursor.CreatedAt, cursor.ID)
	}

	query += ` ORDER BY created_at DESC, activity_id DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	results := make([]domain.Activity, 0, limit)
	for rows.Next() {
		activity, err := scanActivityRow(rows)
		if err != nil {
			return nil, nil, err
		}
		results = append(results, *activity)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var nextCursor *domain.Cursor
	if len(results) == limit {
		last := results[len(results)-1]
		nextCursor = &domain.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}

	return results, nextCursor, nil
}

// FootprintCache returns the cached aggregate, or nil when no cache row
// exists for the user.
func (r *Repository) FootprintCache(ctx context.Context, userID string) (*domain.Footprint, error) {
	const query = `SELECT total_co2e_kg, activity_count, updated_at FROM footprint_cache WHERE user_id=$1`

	var fp domain.Footprint
	err := r.pool.QueryRow(ctx, query, userID).Scan(&fp.TotalCO2eKg, &fp.ActivityCount, &fp.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &fp, nil
}

// AggregateFootprint computes the aggregate directly from the ledger.
func (r *Repository) AggregateFootprint(ctx context.Context, userID string) (domain.Footprint, error) {
	const query = `SELECT COALESCE(SUM(co2e_kg), 0), COUNT(*) FROM activities WHERE user_id=$1`

	var fp domain.Footprint
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&fp.TotalCO2eKg, &fp.ActivityCount); err != nil {
		return domain.Footprint{}, err
	}
	return fp, nil
}

// BreakdownByService groups the user's ledger rows by service from the
// lower bound to now. Ordered by service name for deterministic output.
func (r *Repository) BreakdownByService(ctx context.Context, userID string, since time.Time) ([]domain.BreakdownRow, error) {
	const query = `SELECT service, SUM(co2e_kg), SUM(duration_min), SUM(data_used_gb)
        FROM activities
        WHERE user_id=$1 AND created_at >= $2
        GROUP BY service
        ORDER BY service`

	rows, err := r.pool.Query(ctx, query, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.BreakdownRow, 0)
	for rows.Next() {
		var row domain.BreakdownRow
		var service string
		if err := rows.Scan(&service, &row.CO2eKg, &row.DurationMin, &row.DataUsedGB); err != nil {
			return nil, err
		}
		row.Service = emission.Service(service)
		results = append(results, row)
	}
	return results, rows.Err()
}

// DailyEmissions sums emissions per UTC day from the lower bound to now.
func (r *Repository) DailyEmissions(ctx context.Context, userID string, since time.Time) ([]domain.DailyEmission, error) {
	const query = `SELECT (created_at AT TIME ZONE 'UTC')::date AS day, SUM(co2e_kg)
        FROM activities
        WHERE user_id=$1 AND created_at >= $2
        GROUP BY day
        ORDER BY day ASC`

	rows, err := r.pool.Query(ctx, query, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.DailyEmission, 0)
	for rows.Next() {
		var entry domain.DailyEmission
		if err := rows.Scan(&entry.Date, &entry.TotalCO2eKg); err != nil {
			return nil, err
		}
		results = append(results, entry)
	}
	return results, rows.Err()
}

// SaveReport persists a generated report.
func (r *Repository) SaveReport(ctx context.Context, rep report.Report) error {
	metrics, err := json.Marshal(rep.Metrics)
	if err != nil {
		return err
	}
	suggestions, err := json.Marshal(rep.Suggestions)
	if err != nil {
		return err
	}

	const stmt = `INSERT INTO reports (report_id, user_id, metrics, suggestions, generated_at)
        VALUES ($1,$2,$3,$4,$5)`
	_, err = r.pool.Exec(ctx, stmt, rep.ID, rep.UserID, metrics, suggestions, rep.GeneratedAt)
	return err
}

// ListReports returns the user's reports, newest first.
func (r *Repository) ListReports(ctx context.Context, userID string, limit int) ([]report.Report, error) {
	const query = `SELECT report_id, user_id, metrics, suggestions, generated_at
        FROM reports
        WHERE user_id=$1
        ORDER BY generated_at DESC
        LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]report.Report, 0, limit)
	for rows.Next() {
		var rep report.Report
		var metrics, suggestions []byte
		if err := rows.Scan(&rep.ID, &rep.UserID, &metrics, &suggestions, &rep.GeneratedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(metrics, &rep.Metrics); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(suggestions, &rep.Suggestions); err != nil {
			return nil, err
		}
		results = append(results, rep)
	}
	return results, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanActivity(row rowScanner) (*domain.Activity, error) {
	activity, err := scanActivityRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return activity, nil
}

func scanActivityRow(row rowScanner) (*domain.Activity, error) {
	var activity domain.Activity
	var service string
	var resolution *string
	if err := row.Scan(&activity.ID, &activity.UserID, &service, &activity.DurationMin, &activity.DataUsedGB, &resolution, &activity.CO2eKg, &activity.CreatedAt); err != nil {
		return nil, err
	}
	activity.Service = emission.Service(service)
	if resolution != nil {
		res := emission.Resolution(*resolution)
		activity.Resolution = &res
	}
	return &activity, nil
}

func resolutionValue(r *emission.Resolution) interface{} {
	if r == nil {
		return nil
	}
	return string(*r)
}

func resolutionString(r *emission.Resolution) *string {
	if r == nil {
		return nil
	}
	s := string(*r)
	return &s
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}
