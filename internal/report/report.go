// Package report assembles sustainability reports from the footprint
// aggregate and emission breakdowns.
package report

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"example.com/greentrace/internal/domain"
	"example.com/greentrace/internal/emission"
	"example.com/greentrace/internal/observability"
	"example.com/greentrace/internal/suggest"
)

// Report is a persisted snapshot of metrics and suggestions for a user.
type Report struct {
	ID          string
	UserID      string
	Metrics     suggest.Metrics
	Suggestions []string
	GeneratedAt time.Time
}

// Store persists generated reports.
type Store interface {
	SaveReport(ctx context.Context, r Report) error
	ListReports(ctx context.Context, userID string, limit int) ([]Report, error)
}

// Assembler derives metrics for a user and turns them into a report. The
// external provider is a pure enhancement: any failure falls back to the
// deterministic rules and is never surfaced to the caller.
type Assembler struct {
	core     *domain.Service
	store    Store
	provider suggest.Provider
	logger   zerolog.Logger
	now      func() time.Time
}

// NewAssembler constructs an Assembler. provider may be nil, in which case
// only the rule-based suggestions are used.
func NewAssembler(core *domain.Service, store Store, provider suggest.Provider, logger zerolog.Logger) *Assembler {
	return &Assembler{
		core:     core,
		store:    store,
		provider: provider,
		logger:   logger,
		now:      time.Now,
	}
}

// DeriveMetrics folds the footprint aggregate and all-time breakdown into
// the metric set that suggestion rules operate on. Pure.
func DeriveMetrics(fp domain.Footprint, rows []domain.BreakdownRow) suggest.Metrics {
	m := suggest.Metrics{TotalCO2eKg: fp.TotalCO2eKg}
	for _, row := range rows {
		m.ScreenTimeHours += float64(row.DurationMin) / 60
		if row.Service.Streaming() {
			m.VideoHours += float64(row.DurationMin) / 60
		}
		if row.Service == emission.ServiceGoogleDrive {
			m.CloudStorageGB += row.DataUsedGB
		}
	}
	return m
}

// Generate builds, persists, and returns a report for the user.
func (a *Assembler) Generate(ctx context.Context, userID string) (*Report, error) {
	fp, err := a.core.GetFootprint(ctx, userID)
	if err != nil {
		return nil, err
	}
	rows, err := a.core.GetBreakdown(ctx, userID, domain.RangeAll)
	if err != nil {
		return nil, err
	}

	metrics := DeriveMetrics(fp, rows)

	r := Report{
		ID:          uuid.NewString(),
		UserID:      userID,
		Metrics:     metrics,
		Suggestions: a.suggestions(ctx, metrics),
		GeneratedAt: a.now().UTC(),
	}

	if err := a.store.SaveReport(ctx, r); err != nil {
		return nil, err
	}
	return &r, nil
}

// List returns the user's most recent reports.
func (a *Assembler) List(ctx context.Context, userID string, limit int) ([]Report, error) {
	return a.store.ListReports(ctx, userID, limit)
}

func (a *Assembler) suggestions(ctx context.Context, m suggest.Metrics) []string {
	if a.provider != nil {
		got, err := a.provider.Suggestions(ctx, m)
		if err == nil {
			return got
		}
		observability.RecordSuggestionFallback()
		a.logger.Warn().Err(err).Msg("suggestion provider unavailable, using rule-based fallback")
	}
	return suggest.BuildSuggestions(m)
}
