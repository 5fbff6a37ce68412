package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/policy"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/scheduling"
)

type stubEngine struct {
	slotsResult scheduling.SlotsResult
	appt        model.Appointment
	appts       []model.Appointment
	stats       model.StatsSummary
	err         error

	gotCreate scheduling.CreateRequest
	gotStatus model.Status
	gotActor  policy.Actor
	gotStart  time.Time
}

func (s *stubEngine) ComputeSlots(_ context.Context, _, _ string, _ time.Time, _ int) (scheduling.SlotsResult, error) {
	return s.slotsResult, s.err
}

func (s *stubEngine) CreateAppointment(_ context.Context, req scheduling.CreateRequest) (model.Appointment, error) {
	s.gotCreate = req
	return s.appt, s.err
}

func (s *stubEngine) TransitionStatus(_ context.Context, _ string, to model.Status, actor policy.Actor) (model.Appointment, error) {
	s.gotStatus = to
	s.gotActor = actor
	return s.appt, s.err
}

func (s *stubEngine) CancelAppointment(_ context.Context, _ string, actor policy.Actor) (model.Appointment, error) {
	s.gotActor = actor
	return s.appt, s.err
}

func (s *stubEngine) RescheduleAppointment(_ context.Context, _ string, newStart time.Time, actor policy.Actor) (model.Appointment, error) {
	s.gotStart = newStart
	s.gotActor = actor
	return s.appt, s.err
}

func (s *stubEngine) GetAppointment(_ context.Context, _ string) (model.Appointment, error) {
	return s.appt, s.err
}

func (s *stubEngine) ListAppointments(_ context.Context, _ string, _ model.Status) ([]model.Appointment, error) {
	return s.appts, s.err
}

func (s *stubEngine) GetStats(_ context.Context, _ string, _, _ time.Time) (model.StatsSummary, error) {
	return s.stats, s.err
}

func testAppointment() model.Appointment {
	start := time.Date(2026, 9, 4, 10, 0, 0, 0, time.UTC)
	return model.Appointment{
		ID:              "appt-1",
		BusinessID:      "biz-1",
		CustomerID:      "cust-1",
		ServiceID:       "svc-1",
		StartTime:       start,
		DurationMinutes: 45,
		Status:          model.StatusApproved,
		CustomerName:    "Dana Reyes",
		ServiceName:     "Haircut",
		ServicePrice:    decimal.RequireFromString("50"),
		CreatedAt:       start.Add(-time.Hour),
		UpdatedAt:       start.Add(-time.Hour),
	}
}

func newHandler(engine Engine) *SchedulingHandler {
	return NewSchedulingHandler(engine, slog.Default())
}

func TestSlots_OK(t *testing.T) {
	slotStart := time.Date(2026, 9, 4, 9, 0, 0, 0, time.UTC)
	stub := &stubEngine{
		slotsResult: scheduling.SlotsResult{
			Service:         model.Service{ID: "svc-1", DurationMinutes: 60},
			DurationMinutes: 60,
			Slots: []availability.Slot{
				{Start: slotStart, Available: true},
				{Start: slotStart.Add(time.Hour), Available: false},
			},
			ByHour: map[string][]availability.Slot{
				"09": {{Start: slotStart, Available: true}},
				"10": {{Start: slotStart.Add(time.Hour), Available: false}},
			},
		},
	}
	h := newHandler(stub)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/slots?business_id=biz-1&service_id=svc-1&date=2026-09-04", nil)
	rec := httptest.NewRecorder()
	h.Slots(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Date        string `json:"date"`
		ServiceID   string `json:"service_id"`
		Slots       []struct {
			Time      string `json:"time"`
			Available bool   `json:"available"`
		} `json:"slots"`
		SlotsByHour map[string][]struct {
			Time      string `json:"time"`
			Available bool   `json:"available"`
		} `json:"slots_by_hour"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Date != "2026-09-04" || resp.ServiceID != "svc-1" {
		t.Fatalf("resp = %+v", resp)
	}
	if len(resp.Slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(resp.Slots))
	}
	if resp.Slots[0].Time != "2026-09-04T09:00:00Z" {
		t.Fatalf("slot time = %q", resp.Slots[0].Time)
	}
	if len(resp.SlotsByHour["09"]) != 1 || !resp.SlotsByHour["09"][0].Available {
		t.Fatalf("hour buckets = %+v", resp.SlotsByHour)
	}
}

func TestSlots_MissingParams(t *testing.T) {
	h := newHandler(&stubEngine{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/slots?business_id=biz-1", nil)
	rec := httptest.NewRecorder()
	h.Slots(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSlots_BadDurationOverride(t *testing.T) {
	h := newHandler(&stubEngine{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/slots?business_id=biz-1&date=2026-09-04&slot_duration_minutes=-5", nil)
	rec := httptest.NewRecorder()
	h.Slots(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestBook_Created(t *testing.T) {
	stub := &stubEngine{appt: testAppointment()}
	h := newHandler(stub)

	body := `{"business_id":"biz-1","customer_id":"cust-1","service_id":"svc-1","start_time":"2026-09-04T10:00:00Z","notes":"hi"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/public/book", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Book(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if stub.gotCreate.BusinessID != "biz-1" || stub.gotCreate.Notes != "hi" {
		t.Fatalf("engine request = %+v", stub.gotCreate)
	}
	var resp struct {
		AppointmentID string `json:"appointment_id"`
		Status        string `json:"status"`
		ServicePrice  string `json:"service_price"`
		EndTime       string `json:"end_time"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.AppointmentID != "appt-1" || resp.Status != "approved" {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.ServicePrice != "50.00" {
		t.Fatalf("price = %q", resp.ServicePrice)
	}
	if resp.EndTime != "2026-09-04T10:45:00Z" {
		t.Fatalf("end_time = %q", resp.EndTime)
	}
}

func TestBook_BadTime(t *testing.T) {
	h := newHandler(&stubEngine{})
	body := `{"business_id":"biz-1","customer_id":"cust-1","service_id":"svc-1","start_time":"tomorrow"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/public/book", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Book(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestBook_MethodNotAllowed(t *testing.T) {
	h := newHandler(&stubEngine{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/book", nil)
	rec := httptest.NewRecorder()
	h.Book(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestEngineErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{scheduling.ErrNotFound, http.StatusNotFound},
		{scheduling.ErrValidation, http.StatusBadRequest},
		{scheduling.ErrConflict, http.StatusConflict},
		{scheduling.ErrPolicyViolation, http.StatusUnprocessableEntity},
		{scheduling.ErrInvalidTransition, http.StatusConflict},
		{scheduling.ErrStoreUnavailable, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		h := newHandler(&stubEngine{err: tc.err})
		body := `{"business_id":"biz-1","customer_id":"cust-1","service_id":"svc-1","start_time":"2026-09-04T10:00:00Z"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/public/book", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.Book(rec, req)
		if rec.Code != tc.want {
			t.Errorf("%v: status = %d, want %d", tc.err, rec.Code, tc.want)
		}
	}
}

func TestCancel_DefaultsToCustomerActor(t *testing.T) {
	appt := testAppointment()
	appt.Status = model.StatusCanceled
	stub := &stubEngine{appt: appt}
	h := newHandler(stub)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments/cancel", strings.NewReader(`{"appointment_id":"appt-1"}`))
	rec := httptest.NewRecorder()
	h.Cancel(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if stub.gotActor != policy.ActorCustomer {
		t.Fatalf("actor = %s, want customer", stub.gotActor)
	}
}

func TestTransition_DefaultsToBusinessActor(t *testing.T) {
	appt := testAppointment()
	appt.Status = model.StatusCompleted
	stub := &stubEngine{appt: appt}
	h := newHandler(stub)

	body := `{"appointment_id":"appt-1","status":"completed"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments/transition", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Transition(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if stub.gotStatus != model.StatusCompleted {
		t.Fatalf("status = %s", stub.gotStatus)
	}
	if stub.gotActor != policy.ActorBusiness {
		t.Fatalf("actor = %s, want business", stub.gotActor)
	}
}

func TestTransition_UnknownStatus(t *testing.T) {
	h := newHandler(&stubEngine{})
	body := `{"appointment_id":"appt-1","status":"archived"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments/transition", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Transition(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestReschedule_PassesStartAndActor(t *testing.T) {
	appt := testAppointment()
	appt.Status = model.StatusPending
	stub := &stubEngine{appt: appt}
	h := newHandler(stub)

	body := `{"appointment_id":"appt-1","start_time":"2026-09-05T11:00:00Z","actor":"business"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments/reschedule", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Reschedule(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	want := time.Date(2026, 9, 5, 11, 0, 0, 0, time.UTC)
	if !stub.gotStart.Equal(want) {
		t.Fatalf("start = %s, want %s", stub.gotStart, want)
	}
	if stub.gotActor != policy.ActorBusiness {
		t.Fatalf("actor = %s", stub.gotActor)
	}
}

func TestList_OK(t *testing.T) {
	stub := &stubEngine{appts: []model.Appointment{testAppointment()}}
	h := newHandler(stub)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments?business_id=biz-1&status=approved", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var items []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
}

func TestStats_OK(t *testing.T) {
	stub := &stubEngine{stats: model.StatsSummary{
		TotalAppointments:     10,
		CompletedAppointments: 6,
		CanceledAppointments:  1,
		TotalRevenue:          decimal.RequireFromString("300.5"),
	}}
	h := newHandler(stub)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats?business_id=biz-1&start_date=2026-09-01&end_date=2026-09-30", nil)
	rec := httptest.NewRecorder()
	h.Stats(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		TotalAppointments int64  `json:"total_appointments"`
		TotalRevenue      string `json:"total_revenue"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.TotalAppointments != 10 || resp.TotalRevenue != "300.50" {
		t.Fatalf("resp = %+v", resp)
	}
}
