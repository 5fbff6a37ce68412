package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/policy"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/scheduling"
)

// Engine is the surface the HTTP layer needs from the booking engine.
type Engine interface {
	ComputeSlots(ctx context.Context, businessID, serviceID string, day time.Time, slotMinutes int) (scheduling.SlotsResult, error)
	CreateAppointment(ctx context.Context, req scheduling.CreateRequest) (model.Appointment, error)
	TransitionStatus(ctx context.Context, appointmentID string, to model.Status, actor policy.Actor) (model.Appointment, error)
	CancelAppointment(ctx context.Context, appointmentID string, actor policy.Actor) (model.Appointment, error)
	RescheduleAppointment(ctx context.Context, appointmentID string, newStart time.Time, actor policy.Actor) (model.Appointment, error)
	GetAppointment(ctx context.Context, appointmentID string) (model.Appointment, error)
	ListAppointments(ctx context.Context, businessID string, status model.Status) ([]model.Appointment, error)
	GetStats(ctx context.Context, businessID string, start, end time.Time) (model.StatsSummary, error)
}

type SchedulingHandler struct {
	engine Engine
	logger *slog.Logger
}

func NewSchedulingHandler(engine Engine, logger *slog.Logger) *SchedulingHandler {
	return &SchedulingHandler{engine: engine, logger: logger}
}

// Register wires the handler's routes onto mux.
func (h *SchedulingHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/public/slots", h.Slots)
	mux.HandleFunc("/api/v1/public/book", h.Book)
	mux.HandleFunc("/api/v1/appointments", h.List)
	mux.HandleFunc("/api/v1/appointments/transition", h.Transition)
	mux.HandleFunc("/api/v1/appointments/cancel", h.Cancel)
	mux.HandleFunc("/api/v1/appointments/reschedule", h.Reschedule)
	mux.HandleFunc("/api/v1/stats", h.Stats)
}

type slotItem struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

type slotsResponse struct {
	Date            string                `json:"date"`
	ServiceID       string                `json:"service_id"`
	DurationMinutes int                   `json:"duration_minutes"`
	Slots           []slotItem            `json:"slots"`
	SlotsByHour     map[string][]slotItem `json:"slots_by_hour"`
}

func (h *SchedulingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	businessID := strings.TrimSpace(r.URL.Query().Get("business_id"))
	serviceID := strings.TrimSpace(r.URL.Query().Get("service_id"))
	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if businessID == "" || dateStr == "" {
		http.Error(w, "business_id and date are required", http.StatusBadRequest)
		return
	}
	day, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
	if err != nil {
		http.Error(w, "invalid date (want YYYY-MM-DD)", http.StatusBadRequest)
		return
	}
	slotMinutes := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("slot_duration_minutes")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 8*60 {
			http.Error(w, "invalid slot_duration_minutes", http.StatusBadRequest)
			return
		}
		slotMinutes = n
	}

	result, err := h.engine.ComputeSlots(r.Context(), businessID, serviceID, day, slotMinutes)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	resp := slotsResponse{
		Date:            dateStr,
		ServiceID:       result.Service.ID,
		DurationMinutes: result.DurationMinutes,
		Slots:           make([]slotItem, 0, len(result.Slots)),
		SlotsByHour:     make(map[string][]slotItem, len(result.ByHour)),
	}
	for _, s := range result.Slots {
		resp.Slots = append(resp.Slots, slotItem{
			Time:      s.Start.UTC().Format(time.RFC3339),
			Available: s.Available,
		})
	}
	for hour, slots := range result.ByHour {
		items := make([]slotItem, 0, len(slots))
		for _, s := range slots {
			items = append(items, slotItem{
				Time:      s.Start.UTC().Format(time.RFC3339),
				Available: s.Available,
			})
		}
		resp.SlotsByHour[hour] = items
	}
	h.writeJSON(w, http.StatusOK, resp)
}

type bookRequest struct {
	BusinessID string `json:"business_id"`
	CustomerID string `json:"customer_id"`
	ServiceID  string `json:"service_id"`
	StartTime  string `json:"start_time"`
	Notes      string `json:"notes"`
}

func (h *SchedulingHandler) Book(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.BusinessID = strings.TrimSpace(req.BusinessID)
	req.CustomerID = strings.TrimSpace(req.CustomerID)
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	if req.BusinessID == "" || req.CustomerID == "" || req.ServiceID == "" {
		http.Error(w, "business_id, customer_id and service_id are required", http.StatusBadRequest)
		return
	}
	startTime, err := time.Parse(time.RFC3339, strings.TrimSpace(req.StartTime))
	if err != nil {
		http.Error(w, "invalid start_time", http.StatusBadRequest)
		return
	}

	appt, err := h.engine.CreateAppointment(r.Context(), scheduling.CreateRequest{
		BusinessID: req.BusinessID,
		CustomerID: req.CustomerID,
		ServiceID:  req.ServiceID,
		StartTime:  startTime,
		Notes:      req.Notes,
	})
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, appointmentItemFrom(appt))
}

type transitionRequest struct {
	AppointmentID string `json:"appointment_id"`
	Status        string `json:"status"`
	Actor         string `json:"actor"`
}

func (h *SchedulingHandler) Transition(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return
	}
	status, err := model.ParseStatus(strings.TrimSpace(req.Status))
	if err != nil {
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}
	actor, err := parseActorDefault(req.Actor, policy.ActorBusiness)
	if err != nil {
		http.Error(w, "invalid actor", http.StatusBadRequest)
		return
	}

	appt, err := h.engine.TransitionStatus(r.Context(), req.AppointmentID, status, actor)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, appointmentItemFrom(appt))
}

type cancelRequest struct {
	AppointmentID string `json:"appointment_id"`
	Actor         string `json:"actor"`
}

func (h *SchedulingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return
	}
	actor, err := parseActorDefault(req.Actor, policy.ActorCustomer)
	if err != nil {
		http.Error(w, "invalid actor", http.StatusBadRequest)
		return
	}

	appt, err := h.engine.CancelAppointment(r.Context(), req.AppointmentID, actor)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, appointmentItemFrom(appt))
}

type rescheduleRequest struct {
	AppointmentID string `json:"appointment_id"`
	StartTime     string `json:"start_time"`
	Actor         string `json:"actor"`
}

func (h *SchedulingHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return
	}
	startTime, err := time.Parse(time.RFC3339, strings.TrimSpace(req.StartTime))
	if err != nil {
		http.Error(w, "invalid start_time", http.StatusBadRequest)
		return
	}
	actor, err := parseActorDefault(req.Actor, policy.ActorCustomer)
	if err != nil {
		http.Error(w, "invalid actor", http.StatusBadRequest)
		return
	}

	appt, err := h.engine.RescheduleAppointment(r.Context(), req.AppointmentID, startTime, actor)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, appointmentItemFrom(appt))
}

func (h *SchedulingHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	businessID := strings.TrimSpace(r.URL.Query().Get("business_id"))
	if businessID == "" {
		http.Error(w, "business_id required", http.StatusBadRequest)
		return
	}
	status, err := model.ParseStatus(strings.TrimSpace(r.URL.Query().Get("status")))
	if err != nil {
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}

	appts, err := h.engine.ListAppointments(r.Context(), businessID, status)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	items := make([]appointmentItem, 0, len(appts))
	for _, appt := range appts {
		items = append(items, appointmentItemFrom(appt))
	}
	h.writeJSON(w, http.StatusOK, items)
}

type statsResponse struct {
	TotalAppointments     int64  `json:"total_appointments"`
	CompletedAppointments int64  `json:"completed_appointments"`
	CanceledAppointments  int64  `json:"canceled_appointments"`
	TotalRevenue          string `json:"total_revenue"`
}

func (h *SchedulingHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	businessID := strings.TrimSpace(r.URL.Query().Get("business_id"))
	if businessID == "" {
		http.Error(w, "business_id required", http.StatusBadRequest)
		return
	}
	start, err := parseDateParam(r, "start_date", time.Time{})
	if err != nil {
		http.Error(w, "invalid start_date (want YYYY-MM-DD)", http.StatusBadRequest)
		return
	}
	end, err := parseDateParam(r, "end_date", time.Now().UTC())
	if err != nil {
		http.Error(w, "invalid end_date (want YYYY-MM-DD)", http.StatusBadRequest)
		return
	}
	// Inclusive end date: extend to the final instant of that day.
	if raw := strings.TrimSpace(r.URL.Query().Get("end_date")); raw != "" {
		end = end.Add(24*time.Hour - time.Nanosecond)
	}

	summary, err := h.engine.GetStats(r.Context(), businessID, start, end)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, statsResponse{
		TotalAppointments:     summary.TotalAppointments,
		CompletedAppointments: summary.CompletedAppointments,
		CanceledAppointments:  summary.CanceledAppointments,
		TotalRevenue:          summary.TotalRevenue.StringFixed(2),
	})
}

type appointmentItem struct {
	AppointmentID   string `json:"appointment_id"`
	BusinessID      string `json:"business_id"`
	CustomerID      string `json:"customer_id"`
	ServiceID       string `json:"service_id"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	DurationMinutes int    `json:"duration_minutes"`
	Status          string `json:"status"`
	CustomerName    string `json:"customer_name"`
	CustomerPhone   string `json:"customer_phone,omitempty"`
	ServiceName     string `json:"service_name"`
	ServicePrice    string `json:"service_price"`
	Notes           string `json:"notes,omitempty"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
	CanceledAt      string `json:"canceled_at,omitempty"`
}

func appointmentItemFrom(appt model.Appointment) appointmentItem {
	item := appointmentItem{
		AppointmentID:   appt.ID,
		BusinessID:      appt.BusinessID,
		CustomerID:      appt.CustomerID,
		ServiceID:       appt.ServiceID,
		StartTime:       appt.StartTime.UTC().Format(time.RFC3339),
		EndTime:         appt.EndTime().UTC().Format(time.RFC3339),
		DurationMinutes: appt.DurationMinutes,
		Status:          string(appt.Status),
		CustomerName:    appt.CustomerName,
		CustomerPhone:   appt.CustomerPhone,
		ServiceName:     appt.ServiceName,
		ServicePrice:    appt.ServicePrice.StringFixed(2),
		Notes:           appt.Notes,
		CreatedAt:       appt.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       appt.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if appt.CanceledAt != nil {
		item.CanceledAt = appt.CanceledAt.UTC().Format(time.RFC3339)
	}
	return item
}

// writeEngineError maps the engine's error taxonomy onto HTTP status codes.
// Unclassified errors stay opaque to the client.
func (h *SchedulingHandler) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scheduling.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, scheduling.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, scheduling.ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, scheduling.ErrPolicyViolation):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, scheduling.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, scheduling.ErrStoreUnavailable):
		w.Header().Set("Retry-After", "1")
		http.Error(w, "temporarily unavailable, retry", http.StatusServiceUnavailable)
	default:
		h.logger.Error("request failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (h *SchedulingHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func parseActorDefault(raw string, fallback policy.Actor) (policy.Actor, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	return policy.ParseActor(raw)
}

func parseDateParam(r *http.Request, name string, fallback time.Time) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	return time.ParseInLocation("2006-01-02", raw, time.UTC)
}
