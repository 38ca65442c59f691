package emission

import (
	"fmt"
	"math"
)

// Input bounds for a single activity.
const (
	MaxDurationMinutes = 1440
	MaxDataUsedGB      = 10240
)

// ValidationError reports a malformed or out-of-range activity field. It is
// terminal: callers must not retry without correcting the input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ParseService converts a raw string into a Service.
func ParseService(raw string) (Service, error) {
	s := Service(raw)
	if !s.Valid() {
		return "", &ValidationError{Field: "service", Reason: fmt.Sprintf("unknown service %q", raw)}
	}
	return s, nil
}

// ParseResolution converts a raw string into a Resolution.
func ParseResolution(raw string) (Resolution, error) {
	r := Resolution(raw)
	if !r.Valid() {
		return "", &ValidationError{Field: "resolution", Reason: fmt.Sprintf("unknown resolution %q", raw)}
	}
	return r, nil
}

// Compute converts one activity into kg CO2e. It is pure and deterministic:
// identical inputs always produce identical output. The result is rounded
// to two decimals exactly once, here.
func Compute(service Service, durationMin int, dataUsedGB float64, resolution *Resolution) (float64, error) {
	if err := validate(service, durationMin, dataUsedGB, resolution); err != nil {
		return 0, err
	}

	var co2e float64
	switch service {
	case ServiceYouTube, ServiceNetflix:
		co2e = streamingFactors[service][*resolution] * float64(durationMin)
	case ServiceSpotify:
		co2e = audioFactorPerMinute * float64(durationMin)
	case ServiceGoogleDrive:
		co2e = dataUsedGB * dataTransferPerGB
	case ServiceWebBrowsing:
		co2e = browsingAveragePerMinute * float64(durationMin)
	default:
		return 0, &ValidationError{Field: "service", Reason: fmt.Sprintf("unknown service %q", service)}
	}

	return round2(co2e), nil
}

func validate(service Service, durationMin int, dataUsedGB float64, resolution *Resolution) error {
	if !service.Valid() {
		return &ValidationError{Field: "service", Reason: fmt.Sprintf("unknown service %q", service)}
	}
	if durationMin <= 0 {
		return &ValidationError{Field: "duration_min", Reason: "must be greater than zero"}
	}
	if durationMin > MaxDurationMinutes {
		return &ValidationError{Field: "duration_min", Reason: fmt.Sprintf("must not exceed %d", MaxDurationMinutes)}
	}
	if math.IsNaN(dataUsedGB) || math.IsInf(dataUsedGB, 0) {
		return &ValidationError{Field: "data_used_gb", Reason: "must be a finite number"}
	}
	if dataUsedGB < 0 {
		return &ValidationError{Field: "data_used_gb", Reason: "must not be negative"}
	}
	if dataUsedGB > MaxDataUsedGB {
		return &ValidationError{Field: "data_used_gb", Reason: fmt.Sprintf("must not exceed %d", MaxDataUsedGB)}
	}
	if service == ServiceGoogleDrive && dataUsedGB == 0 {
		return &ValidationError{Field: "data_used_gb", Reason: "must be greater than zero for data transfer services"}
	}
	if service.Streaming() {
		if resolution == nil {
			return &ValidationError{Field: "resolution", Reason: fmt.Sprintf("required for %s", service)}
		}
		if !resolution.Valid() {
			return &ValidationError{Field: "resolution", Reason: fmt.Sprintf("unknown resolution %q", *resolution)}
		}
	}
	return nil
}

// round2 rounds half away from zero to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
