// Package suggest produces sustainability suggestions from derived usage
// metrics. The rule-based assembler here is the always-available fallback;
// an external provider may be consulted first.
package suggest

import "fmt"

// Metrics are the derived usage figures suggestions are based on.
type Metrics struct {
	TotalCO2eKg     float64 `json:"total_co2e_kg"`
	VideoHours      float64 `json:"video_hours"`
	CloudStorageGB  float64 `json:"cloud_storage_gb"`
	ScreenTimeHours float64 `json:"screen_time_hours"`
}

// Rule thresholds. Each rule is independent; any subset may fire.
const (
	videoHoursThreshold   = 5
	cloudStorageThreshold = 50
	screenTimeThreshold   = 6
	totalCO2eThreshold    = 20
)

// BuildSuggestions maps metrics to recommendation strings using fixed
// threshold rules. Pure, no I/O. The result is never empty: when no rule
// fires a single positive-reinforcement message is returned.
func BuildSuggestions(m Metrics) []string {
	var suggestions []string

	if m.VideoHours > videoHoursThreshold {
		suggestions = append(suggestions, fmt.Sprintf(
			"Try reducing video quality from 4K to HD - you streamed %.1f hours of video, and HD uses about 70%% less energy", m.VideoHours))
	}
	if m.CloudStorageGB > cloudStorageThreshold {
		suggestions = append(suggestions,
			"Clean up unused cloud files - each GB stored emits about 0.2kg CO2 per year")
	}
	if m.ScreenTimeHours > screenTimeThreshold {
		suggestions = append(suggestions, fmt.Sprintf(
			"Take regular screen breaks - your tracked screen time is %.1f hours", m.ScreenTimeHours))
	}
	if m.TotalCO2eKg > totalCO2eThreshold {
		suggestions = append(suggestions,
			"Consider carbon offsetting for your digital activities")
	}

	if len(suggestions) == 0 {
		return []string{"Your digital habits are eco-friendly!"}
	}
	return suggestions
}
