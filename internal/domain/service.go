package domain

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"example.com/greentrace/internal/emission"
)

// Service orchestrates footprint workflows on top of the repository.
type Service struct {
	repo ActivityRepository
	now  func() time.Time
}

// Option customises Service construction.
type Option func(*Service)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService constructs a Service.
func NewService(repo ActivityRepository, opts ...Option) *Service {
	s := &Service{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordActivityInput captures the payload from the API layer.
type RecordActivityInput struct {
	UserID         string
	Service        emission.Service
	DurationMin    int
	DataUsedGB     float64
	Resolution     *emission.Resolution
	IdempotencyKey string
}

// RecordActivity validates the input, derives its emissions, and persists
// the activity together with the owner's refreshed footprint cache. The
// returned bool reports an idempotent replay of an earlier request.
//
// Validation failures surface before any store interaction; a store error
// means nothing was recorded and the whole call can be retried.
func (s *Service) RecordActivity(ctx context.Context, input RecordActivityInput) (*Activity, bool, error) {
	co2e, err := emission.Compute(input.Service, input.DurationMin, input.DataUsedGB, input.Resolution)
	if err != nil {
		return nil, false, err
	}

	if input.IdempotencyKey != "" {
		if existing, err := s.repo.FindByIdempotency(ctx, input.UserID, input.IdempotencyKey); err == nil && existing != nil {
			return existing, true, nil
		}
	}

	resolution := input.Resolution
	if !input.Service.Streaming() {
		// Quality tiers only apply to video streaming; anything else is
		// stored without one.
		resolution = nil
	}

	activity := Activity{
		ID:          uuid.NewString(),
		UserID:      input.UserID,
		Service:     input.Service,
		DurationMin: input.DurationMin,
		DataUsedGB:  input.DataUsedGB,
		Resolution:  resolution,
		CO2eKg:      co2e,
		CreatedAt:   s.now().UTC(),
	}

	if err := s.repo.Create(ctx, activity, input.IdempotencyKey); err != nil {
		return nil, false, err
	}

	return &activity, false, nil
}

// GetActivity fetches a single activity by ID.
func (s *Service) GetActivity(ctx context.Context, activityID string) (*Activity, error) {
	activity, err := s.repo.Get(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if activity == nil {
		return nil, ErrActivityNotFound
	}
	return activity, nil
}

// ListActivities fetches a user's activities with cursor pagination.
func (s *Service) ListActivities(ctx context.Context, userID string, cursor *Cursor, limit int) ([]Activity, *Cursor, error) {
	return s.repo.ListByUser(ctx, userID, cursor, limit)
}

// GetFootprint returns the user's aggregate emissions, cache-first. A user
// with no recorded activity gets a zeroed footprint, never an error.
func (s *Service) GetFootprint(ctx context.Context, userID string) (Footprint, error) {
	cached, err := s.repo.FootprintCache(ctx, userID)
	if err != nil {
		return Footprint{}, err
	}
	if cached != nil {
		cached.Cached = true
		return *cached, nil
	}

	fresh, err := s.repo.AggregateFootprint(ctx, userID)
	if err != nil {
		return Footprint{}, err
	}
	fresh.Cached = false
	return fresh, nil
}

// GetBreakdown groups the user's emissions by service over the range and
// weights each group against the in-range total. When the total is zero
// every percentage is zero. Groups come back sorted by service name so the
// order is deterministic regardless of store behavior.
func (s *Service) GetBreakdown(ctx context.Context, userID string, timeRange TimeRange) ([]BreakdownRow, error) {
	rows, err := s.repo.BreakdownByService(ctx, userID, timeRange.LowerBound(s.now().UTC()))
	if err != nil {
		return nil, err
	}

	var total float64
	for _, row := range rows {
		total += row.CO2eKg
	}

	for i := range rows {
		if total > 0 {
			rows[i].Percentage = rows[i].CO2eKg / total * 100
		} else {
			rows[i].Percentage = 0
		}
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Service < rows[j].Service })
	return rows, nil
}

// GetDailyEmissions returns per-UTC-day emission totals over the range.
func (s *Service) GetDailyEmissions(ctx context.Context, userID string, timeRange TimeRange) ([]DailyEmission, error) {
	return s.repo.DailyEmissions(ctx, userID, timeRange.LowerBound(s.now().UTC()))
}
