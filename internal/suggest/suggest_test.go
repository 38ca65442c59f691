package suggest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildSuggestionsNeverEmpty(t *testing.T) {
	got := BuildSuggestions(Metrics{})
	require.Len(t, got, 1)
	require.Contains(t, got[0], "eco-friendly")
}

func TestBuildSuggestionsThresholds(t *testing.T) {
	cases := []struct {
		name    string
		metrics Metrics
		want    int
		keyword string
	}{
		{"heavy video", Metrics{VideoHours: 5.1}, 1, "video quality"},
		{"heavy storage", Metrics{CloudStorageGB: 51}, 1, "cloud files"},
		{"heavy screen time", Metrics{ScreenTimeHours: 6.5}, 1, "screen breaks"},
		{"heavy total", Metrics{TotalCO2eKg: 20.5}, 1, "offsetting"},
		{"at threshold does not fire", Metrics{VideoHours: 5, CloudStorageGB: 50, ScreenTimeHours: 6, TotalCO2eKg: 20}, 1, "eco-friendly"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := BuildSuggestions(tc.metrics)
			require.Len(t, got, tc.want)
			require.Contains(t, got[0], tc.keyword)
		})
	}
}

func TestBuildSuggestionsRulesAreIndependent(t *testing.T) {
	got := BuildSuggestions(Metrics{
		TotalCO2eKg:     25,
		VideoHours:      12,
		CloudStorageGB:  80,
		ScreenTimeHours: 9,
	})
	require.Len(t, got, 4)
}

func TestBuildSuggestionsDeterministic(t *testing.T) {
	m := Metrics{VideoHours: 7.3, ScreenTimeHours: 8}
	require.Equal(t, BuildSuggestions(m), BuildSuggestions(m))
}
