// Package api exposes HTTP handlers for the footprint service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"example.com/greentrace/internal/domain"
	"example.com/greentrace/internal/emission"
	"example.com/greentrace/internal/persistence"
	"example.com/greentrace/internal/report"
)

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
	reports *report.Assembler
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, reports *report.Assembler) *Handler {
	return &Handler{service: service, reports: reports}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/activities", h.activities)
	mux.HandleFunc("/v1/activities/", h.activityByID)
	mux.HandleFunc("/v1/footprint", h.footprint)
	mux.HandleFunc("/v1/breakdown", h.breakdown)
	mux.HandleFunc("/v1/emissions/daily", h.dailyEmissions)
	mux.HandleFunc("/v1/reports", h.reportsEndpoint)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) activities(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.recordActivity(w, r)
	case http.MethodGet:
		h.listActivities(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) activityByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/activities/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing activity id")
		return
	}

	activity, err := h.service.GetActivity(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toActivityView(*activity))
}

func (h *Handler) recordActivity(w http.ResponseWriter, r *http.Request) {
	var req RecordActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	service, err := emission.ParseService(req.Service)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var resolution *emission.Resolution
	if req.Resolution != nil && *req.Resolution != "" {
		parsed, err := emission.ParseResolution(*req.Resolution)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		resolution = &parsed
	}

	activity, replay, err := h.service.RecordActivity(r.Context(), domain.RecordActivityInput{
		UserID:         req.UserID,
		Service:        service,
		DurationMin:    req.DurationMin,
		DataUsedGB:     req.DataUsedGB,
		Resolution:     resolution,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := RecordActivityResponse{
		Activity: toActivityView(*activity),
		Replay:   replay,
	}

	status := http.StatusCreated
	if replay {
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}

func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "missing user_id parameter")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			if parsed > 100 {
				parsed = 100
			}
			limit = parsed
		}
	}

	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	activities, next, err := h.service.ListActivities(r.Context(), userID, cursor, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	items := make([]ActivityView, 0, len(activities))
	for _, activity := range activities {
		items = append(items, toActivityView(activity))
	}

	writeJSON(w, http.StatusOK, ListActivitiesResponse{
		Items:      items,
		NextCursor: persistence.EncodeCursor(next),
	})
}

func (h *Handler) footprint(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "missing user_id parameter")
		return
	}

	fp, err := h.service.GetFootprint(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := FootprintResponse{
		TotalCO2eKg:   fp.TotalCO2eKg,
		ActivityCount: fp.ActivityCount,
		IsCached:      fp.Cached,
	}
	if !fp.UpdatedAt.IsZero() {
		updated := fp.UpdatedAt
		resp.LastUpdated = &updated
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) breakdown(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "missing user_id parameter")
		return
	}

	timeRange, err := domain.ParseTimeRange(r.URL.Query().Get("range"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	rows, err := h.service.GetBreakdown(r.Context(), userID, timeRange)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	items := make([]BreakdownItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, BreakdownItem{
			Service:     string(row.Service),
			CO2eKg:      row.CO2eKg,
			DurationMin: row.DurationMin,
			DataUsedGB:  row.DataUsedGB,
			Percentage:  row.Percentage,
		})
	}

	writeJSON(w, http.StatusOK, BreakdownResponse{Range: string(timeRange), Items: items})
}

func (h *Handler) dailyEmissions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "missing user_id parameter")
		return
	}

	raw := r.URL.Query().Get("timeframe")
	if raw == "" {
		raw = string(domain.RangeWeek)
	}
	timeRange, err := domain.ParseTimeRange(raw)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	entries, err := h.service.GetDailyEmissions(r.Context(), userID, timeRange)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	items := make([]DailyEmissionItem, 0, len(entries))
	for _, entry := range entries {
		items = append(items, DailyEmissionItem{
			Date:        entry.Date.UTC().Format("2006-01-02"),
			TotalCO2eKg: entry.TotalCO2eKg,
		})
	}

	writeJSON(w, http.StatusOK, DailyEmissionsResponse{Timeframe: string(timeRange), Items: items})
}

func (h *Handler) reportsEndpoint(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.generateReport(w, r)
	case http.MethodGet:
		h.listReports(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) generateReport(w http.ResponseWriter, r *http.Request) {
	var req GenerateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "user_id is required")
		return
	}

	generated, err := h.reports.Generate(r.Context(), req.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReportView(*generated))
}

func (h *Handler) listReports(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "missing user_id parameter")
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			if parsed > 100 {
				parsed = 100
			}
			limit = parsed
		}
	}

	reports, err := h.reports.List(r.Context(), userID, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	items := make([]ReportView, 0, len(reports))
	for _, rep := range reports {
		items = append(items, toReportView(rep))
	}
	writeJSON(w, http.StatusOK, ListReportsResponse{Items: items})
}

func writeServiceError(w http.ResponseWriter, err error) {
	var verr *emission.ValidationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, "validation_failed", verr.Error())
		return
	}
	if errors.Is(err, domain.ErrActivityNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "activity not found")
		return
	}
	writeError(w, http.StatusInternalServerError, "store_error", err.Error())
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func toActivityView(activity domain.Activity) ActivityView {
	view := ActivityView{
		ActivityID:  activity.ID,
		UserID:      activity.UserID,
		Service:     string(activity.Service),
		DurationMin: activity.DurationMin,
		DataUsedGB:  activity.DataUsedGB,
		CO2eKg:      activity.CO2eKg,
		CreatedAt:   activity.CreatedAt,
	}
	if activity.Resolution != nil {
		res := string(*activity.Resolution)
		view.Resolution = &res
	}
	return view
}

func toReportView(rep report.Report) ReportView {
	return ReportView{
		ReportID:    rep.ID,
		UserID:      rep.UserID,
		Metrics:     rep.Metrics,
		Suggestions: rep.Suggestions,
		GeneratedAt: rep.GeneratedAt,
	}
}
