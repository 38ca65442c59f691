package api

import (
	"errors"
	"strings"
	"time"

	"example.com/greentrace/internal/suggest"
)

// RecordActivityRequest is the payload for POST /v1/activities.
type RecordActivityRequest struct {
	UserID      string  `json:"user_id"`
	Service     string  `json:"service"`
	DurationMin int     `json:"duration_min"`
	DataUsedGB  float64 `json:"data_used_gb"`
	Resolution  *string `json:"resolution,omitempty"`
}

// Validate ensures the request is structurally sound. Range and
// resolution rules are enforced by the emission calculator.
func (r RecordActivityRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return errors.New("user_id is required")
	}
	if strings.TrimSpace(r.Service) == "" {
		return errors.New("service is required")
	}
	return nil
}

// RecordActivityResponse describes the response body for create.
type RecordActivityResponse struct {
	Activity ActivityView `json:"activity"`
	Replay   bool         `json:"idempotent_replay"`
}

// ActivityView exposes full details about an activity.
type ActivityView struct {
	ActivityID  string    `json:"activity_id"`
	UserID      string    `json:"user_id"`
	Service     string    `json:"service"`
	DurationMin int       `json:"duration_min"`
	DataUsedGB  float64   `json:"data_used_gb"`
	Resolution  *string   `json:"resolution,omitempty"`
	CO2eKg      float64   `json:"co2e_kg"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListActivitiesResponse packages list results.
type ListActivitiesResponse struct {
	Items      []ActivityView `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// FootprintResponse is the per-user aggregate view.
type FootprintResponse struct {
	TotalCO2eKg   float64    `json:"total_co2e_kg"`
	ActivityCount int64      `json:"activity_count"`
	LastUpdated   *time.Time `json:"last_updated,omitempty"`
	IsCached      bool       `json:"is_cached"`
}

// BreakdownItem is one service group in the breakdown response.
type BreakdownItem struct {
	Service     string  `json:"service"`
	CO2eKg      float64 `json:"co2e_kg"`
	DurationMin int64   `json:"duration_min"`
	DataUsedGB  float64 `json:"data_used_gb"`
	Percentage  float64 `json:"percentage"`
}

// BreakdownResponse packages a ranged breakdown.
type BreakdownResponse struct {
	Range string          `json:"range"`
	Items []BreakdownItem `json:"items"`
}

// DailyEmissionItem is one day's total in the time series.
type DailyEmissionItem struct {
	Date        string  `json:"date"`
	TotalCO2eKg float64 `json:"total_co2e_kg"`
}

// DailyEmissionsResponse packages the daily emission series.
type DailyEmissionsResponse struct {
	Timeframe string              `json:"timeframe"`
	Items     []DailyEmissionItem `json:"items"`
}

// GenerateReportRequest is the payload for POST /v1/reports.
type GenerateReportRequest struct {
	UserID string `json:"user_id"`
}

// ReportView exposes a generated report.
type ReportView struct {
	ReportID    string          `json:"report_id"`
	UserID      string          `json:"user_id"`
	Metrics     suggest.Metrics `json:"metrics"`
	Suggestions []string        `json:"suggestions"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// ListReportsResponse packages report history.
type ListReportsResponse struct {
	Items []ReportView `json:"items"`
}
