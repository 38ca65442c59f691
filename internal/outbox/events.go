// Package outbox persists and delivers domain events to Kafka.
package outbox

import "time"

// Event types written by the activity repository.
const (
	EventActivityRecorded = "activity.recorded"
	EventFootprintUpdated = "footprint.updated"
)

// ActivityRecorded is emitted once per recorded activity.
type ActivityRecorded struct {
	ActivityID  string    `json:"activity_id"`
	UserID      string    `json:"user_id"`
	Service     string    `json:"service"`
	DurationMin int       `json:"duration_min"`
	DataUsedGB  float64   `json:"data_used_gb"`
	Resolution  *string   `json:"resolution,omitempty"`
	CO2eKg      float64   `json:"co2e_kg"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// FootprintUpdated is emitted with the refreshed per-user aggregate.
type FootprintUpdated struct {
	UserID        string    `json:"user_id"`
	TotalCO2eKg   float64   `json:"total_co2e_kg"`
	ActivityCount int64     `json:"activity_count"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic string
}

var eventCatalog = map[string]EventMetadata{
	EventActivityRecorded: {Topic: "footprint_activity_events"},
	EventFootprintUpdated: {Topic: "footprint_updates"},
}

// TopicFor returns the Kafka topic for the event type, or "" when unknown.
func TopicFor(eventType string) string {
	return eventCatalog[eventType].Topic
}
