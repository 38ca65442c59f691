// Package domain defines the business logic for the footprint service.
package domain

import (
	"context"
	"errors"
	"time"

	"example.com/greentrace/internal/emission"
)

// ErrActivityNotFound is returned when an activity cannot be located.
var ErrActivityNotFound = errors.New("activity not found")

// Activity is one logged unit of digital behavior with its derived
// emissions. Rows are append-only: co2e is set once at creation from the
// calculator and never recomputed, even if factors later change.
type Activity struct {
	ID          string
	UserID      string
	Service     emission.Service
	DurationMin int
	DataUsedGB  float64
	Resolution  *emission.Resolution
	CO2eKg      float64
	CreatedAt   time.Time
}

// Footprint is the per-user aggregate served on reads.
type Footprint struct {
	TotalCO2eKg   float64
	ActivityCount int64
	UpdatedAt     time.Time
	Cached        bool
}

// BreakdownRow is one service group in an emissions breakdown.
type BreakdownRow struct {
	Service     emission.Service
	CO2eKg      float64
	DurationMin int64
	DataUsedGB  float64
	Percentage  float64
}

// DailyEmission is the total CO2e attributed to one UTC day.
type DailyEmission struct {
	Date        time.Time
	TotalCO2eKg float64
}

// Cursor models the keyset pagination token for activity listings.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// TimeRange selects the lower bound of a breakdown window. The upper bound
// is always now.
type TimeRange string

const (
	RangeDay   TimeRange = "day"
	RangeWeek  TimeRange = "week"
	RangeMonth TimeRange = "month"
	RangeYear  TimeRange = "year"
	RangeAll   TimeRange = "all"
)

// ParseTimeRange converts a raw string into a TimeRange, defaulting to all
// when empty.
func ParseTimeRange(raw string) (TimeRange, error) {
	if raw == "" {
		return RangeAll, nil
	}
	r := TimeRange(raw)
	switch r {
	case RangeDay, RangeWeek, RangeMonth, RangeYear, RangeAll:
		return r, nil
	}
	return "", &emission.ValidationError{Field: "range", Reason: "must be one of day, week, month, year, all"}
}

// LowerBound returns the inclusive start of the window ending at now.
func (r TimeRange) LowerBound(now time.Time) time.Time {
	switch r {
	case RangeDay:
		return now.AddDate(0, 0, -1)
	case RangeWeek:
		return now.AddDate(0, 0, -7)
	case RangeMonth:
		return now.AddDate(0, -1, 0)
	case RangeYear:
		return now.AddDate(-1, 0, 0)
	default:
		return time.Unix(0, 0).UTC()
	}
}

// ActivityRepository captures persistence operations over the activity
// ledger and the footprint cache.
type ActivityRepository interface {
	FindByIdempotency(ctx context.Context, userID, idempotencyKey string) (*Activity, error)
	// Create persists the activity, recomputes the owner's footprint cache
	// from the ledger, and records outbox events, all in one transaction.
	Create(ctx context.Context, activity Activity, idempotencyKey string) error
	Get(ctx context.Context, activityID string) (*Activity, error)
	ListByUser(ctx context.Context, userID string, cursor *Cursor, limit int) ([]Activity, *Cursor, error)
	FootprintCache(ctx context.Context, userID string) (*Footprint, error)
	AggregateFootprint(ctx context.Context, userID string) (Footprint, error)
	BreakdownByService(ctx context.Context, userID string, since time.Time) ([]BreakdownRow, error)
	DailyEmissions(ctx context.Context, userID string, since time.Time) ([]DailyEmission, error)
}
