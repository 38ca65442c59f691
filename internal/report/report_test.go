package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"example.com/greentrace/internal/domain"
	"example.com/greentrace/internal/emission"
	"example.com/greentrace/internal/suggest"
)

type stubRepo struct {
	cache     *domain.Footprint
	breakdown []domain.BreakdownRow
}

func (s *stubRepo) FindByIdempotency(context.Context, string, string) (*domain.Activity, error) {
	return nil, nil
}
func (s *stubRepo) Create(context.Context, domain.Activity, string) error { return nil }
func (s *stubRepo) Get(context.Context, string) (*domain.Activity, error) { return nil, nil }
func (s *stubRepo) ListByUser(context.Context, string, *domain.Cursor, int) ([]domain.Activity, *domain.Cursor, error) {
	return nil, nil, nil
}
func (s *stubRepo) FootprintCache(context.Context, string) (*domain.Footprint, error) {
	return s.cache, nil
}
func (s *stubRepo) AggregateFootprint(context.Context, string) (domain.Footprint, error) {
	return domain.Footprint{}, nil
}
func (s *stubRepo) BreakdownByService(context.Context, string, time.Time) ([]domain.BreakdownRow, error) {
	return s.breakdown, nil
}
func (s *stubRepo) DailyEmissions(context.Context, string, time.Time) ([]domain.DailyEmission, error) {
	return nil, nil
}

type stubStore struct {
	saved []Report
}

func (s *stubStore) SaveReport(_ context.Context, r Report) error {
	s.saved = append(s.saved, r)
	return nil
}

func (s *stubStore) ListReports(_ context.Context, userID string, _ int) ([]Report, error) {
	return s.saved, nil
}

type stubProvider struct {
	suggestions []string
	err         error
	calls       int
}

func (p *stubProvider) Suggestions(context.Context, suggest.Metrics) ([]string, error) {
	p.calls++
	return p.suggestions, p.err
}

func TestDeriveMetrics(t *testing.T) {
	fp := domain.Footprint{TotalCO2eKg: 42.5}
	rows := []domain.BreakdownRow{
		{Service: emission.ServiceYouTube, DurationMin: 300, DataUsedGB: 4},
		{Service: emission.ServiceNetflix, DurationMin: 120, DataUsedGB: 2},
		{Service: emission.ServiceGoogleDrive, DurationMin: 30, DataUsedGB: 60},
		{Service: emission.ServiceSpotify, DurationMin: 90},
	}

	m := DeriveMetrics(fp, rows)
	require.InDelta(t, 42.5, m.TotalCO2eKg, 1e-9)
	require.InDelta(t, 7.0, m.VideoHours, 1e-9)
	require.InDelta(t, 60.0, m.CloudStorageGB, 1e-9)
	require.InDelta(t, 9.0, m.ScreenTimeHours, 1e-9)
}

func TestGeneratePersistsReportWithProviderSuggestions(t *testing.T) {
	repo := &stubRepo{
		cache: &domain.Footprint{TotalCO2eKg: 10, ActivityCount: 3},
		breakdown: []domain.BreakdownRow{
			{Service: emission.ServiceSpotify, CO2eKg: 10, DurationMin: 60},
		},
	}
	store := &stubStore{}
	provider := &stubProvider{suggestions: []string{"Use wifi instead of mobile data"}}

	assembler := NewAssembler(domain.NewService(repo), store, provider, zerolog.Nop())

	r, err := assembler.Generate(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, []string{"Use wifi instead of mobile data"}, r.Suggestions)
	require.Equal(t, "u1", r.UserID)
	require.NotEmpty(t, r.ID)
	require.Len(t, store.saved, 1)
	require.Equal(t, 1, provider.calls)
}

func TestGenerateFallsBackWhenProviderFails(t *testing.T) {
	repo := &stubRepo{
		cache: &domain.Footprint{TotalCO2eKg: 25},
		breakdown: []domain.BreakdownRow{
			{Service: emission.ServiceYouTube, CO2eKg: 25, DurationMin: 600},
		},
	}
	store := &stubStore{}
	provider := &stubProvider{err: errors.New("status 502")}

	assembler := NewAssembler(domain.NewService(repo), store, provider, zerolog.Nop())

	r, err := assembler.Generate(context.Background(), "u1")
	require.NoError(t, err, "provider failures must be absorbed")
	require.NotEmpty(t, r.Suggestions)
	// 10 video hours, 10 screen-time hours, and 25kg total fire three rules.
	require.Len(t, r.Suggestions, 3)
}

func TestGenerateWithoutProviderUsesRules(t *testing.T) {
	repo := &stubRepo{cache: nil, breakdown: nil}
	store := &stubStore{}

	assembler := NewAssembler(domain.NewService(repo), store, nil, zerolog.Nop())

	r, err := assembler.Generate(context.Background(), "fresh-user")
	require.NoError(t, err)
	require.Len(t, r.Suggestions, 1)
	require.Contains(t, r.Suggestions[0], "eco-friendly")
}
