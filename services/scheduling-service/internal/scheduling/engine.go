// Package scheduling implements the booking engine: availability
// computation, conflict-guarded appointment creation, the status lifecycle
// and the read-side aggregates.
package scheduling

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/lifecycle"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/outbox"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/policy"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/storage"
)

type Engine struct {
	db         db.DB
	appts      *storage.AppointmentRepository
	businesses *storage.BusinessRepository
	customers  *storage.CustomerRepository
	outbox     *outbox.Repository
	logger     *slog.Logger
	now        func() time.Time
}

func NewEngine(database db.DB, logger *slog.Logger) *Engine {
	return &Engine{
		db:         database,
		appts:      storage.NewAppointmentRepository(database),
		businesses: storage.NewBusinessRepository(database),
		customers:  storage.NewCustomerRepository(database),
		outbox:     outbox.NewRepository(database),
		logger:     logger,
		now:        time.Now,
	}
}

// serializableTx applies to booking and reschedule, where the overlap check
// and the write must observe a consistent view of active appointments. The
// exclusion constraint on the appointments table is the backstop for
// anything serializability misses.
var serializableTx = pgx.TxOptions{IsoLevel: pgx.Serializable}

// SlotsResult carries both the ordered slot sequence and the hour-bucketed
// view that booking UIs render.
type SlotsResult struct {
	Date            time.Time
	Service         model.Service
	DurationMinutes int
	Slots           []availability.Slot
	ByHour          map[string][]availability.Slot
}

// ComputeSlots derives the candidate slots for a calendar day. The slot
// length comes from the named service, or from slotMinutes when the caller
// overrides it (serviceID may then be empty). A closed day yields an empty
// result, not an error. Slots are never persisted; every call recomputes
// them from working hours and the active appointments overlapping the day's
// window.
func (e *Engine) ComputeSlots(ctx context.Context, businessID, serviceID string, day time.Time, slotMinutes int) (SlotsResult, error) {
	if err := validateID(businessID, "business_id"); err != nil {
		return SlotsResult{}, err
	}
	if serviceID == "" && slotMinutes <= 0 {
		return SlotsResult{}, fmt.Errorf("%w: service_id or slot_duration_minutes required", ErrValidation)
	}
	if serviceID != "" {
		if err := validateID(serviceID, "service_id"); err != nil {
			return SlotsResult{}, err
		}
	}

	biz, err := e.businesses.Get(ctx, e.db, businessID)
	if err != nil {
		return SlotsResult{}, classifyStoreErr(err)
	}
	var svc model.Service
	if serviceID != "" {
		var ok bool
		svc, ok = biz.ServiceByID(serviceID)
		if !ok {
			return SlotsResult{}, fmt.Errorf("%w: service %s", ErrNotFound, serviceID)
		}
	}
	duration := svc.DurationMinutes
	if slotMinutes > 0 {
		duration = slotMinutes
	}

	hours, ok := biz.Hours[day.UTC().Weekday()]
	if !ok || !hours.Open {
		return SlotsResult{
			Date:            day,
			Service:         svc,
			DurationMinutes: duration,
			Slots:           nil,
			ByHour:          map[string][]availability.Slot{},
		}, nil
	}

	open, close := availability.WindowOn(day, hours.OpenMinute, hours.CloseMinute)
	active, err := e.appts.ListActiveBetween(ctx, e.db, businessID, open, close)
	if err != nil {
		return SlotsResult{}, classifyStoreErr(err)
	}
	busy := make([]availability.Interval, 0, len(active))
	for _, a := range active {
		busy = append(busy, availability.Interval{Start: a.StartTime, End: a.EndTime()})
	}

	slots := availability.DaySlots(open, close, time.Duration(duration)*time.Minute, busy, e.now().UTC())
	return SlotsResult{
		Date:            day,
		Service:         svc,
		DurationMinutes: duration,
		Slots:           slots,
		ByHour:          availability.ByHour(slots),
	}, nil
}

type CreateRequest struct {
	BusinessID string
	CustomerID string
	ServiceID  string
	StartTime  time.Time
	Notes      string
}

// CreateAppointment books a slot atomically. Inside one serializable
// transaction it re-derives the snapshot fields from the live customer and
// service records, re-checks the requested interval against active
// appointments, and writes the row together with its outbox event. The
// initial status follows the business's auto-approve setting.
func (e *Engine) CreateAppointment(ctx context.Context, req CreateRequest) (model.Appointment, error) {
	if err := validateID(req.BusinessID, "business_id"); err != nil {
		return model.Appointment{}, err
	}
	if err := validateID(req.CustomerID, "customer_id"); err != nil {
		return model.Appointment{}, err
	}
	if err := validateID(req.ServiceID, "service_id"); err != nil {
		return model.Appointment{}, err
	}
	now := e.now().UTC()
	start := req.StartTime.UTC()
	if !start.After(now) {
		return model.Appointment{}, fmt.Errorf("%w: start_time must be in the future", ErrValidation)
	}

	tx, err := e.db.BeginTx(ctx, serializableTx)
	if err != nil {
		return model.Appointment{}, classifyStoreErr(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	biz, err := e.businesses.Get(ctx, tx, req.BusinessID)
	if err != nil {
		return model.Appointment{}, classifyStoreErr(err)
	}
	svc, ok := biz.ServiceByID(req.ServiceID)
	if !ok {
		return model.Appointment{}, fmt.Errorf("%w: service %s", ErrNotFound, req.ServiceID)
	}
	cust, err := e.customers.Get(ctx, tx, req.CustomerID)
	if err != nil {
		return model.Appointment{}, classifyStoreErr(err)
	}

	if err := e.checkWithinHours(biz, start, svc.DurationMinutes); err != nil {
		return model.Appointment{}, err
	}

	end := start.Add(time.Duration(svc.DurationMinutes) * time.Minute)
	taken, err := e.appts.HasActiveOverlap(ctx, tx, req.BusinessID, start, end, "")
	if err != nil {
		return model.Appointment{}, classifyStoreErr(err)
	}
	if taken {
		return model.Appointment{}, ErrConflict
	}

	status := model.StatusPending
	if biz.Settings.AutoApprove {
		status = model.StatusApproved
	}
	appt := model.Appointment{
		ID:              uuid.NewString(),
		BusinessID:      req.BusinessID,
		CustomerID:      req.CustomerID,
		ServiceID:       req.ServiceID,
		StartTime:       start,
		DurationMinutes: svc.DurationMinutes,
		Status:          status,
		CustomerName:    cust.Name,
		CustomerPhone:   cust.Phone,
		ServiceName:     svc.Name,
		ServicePrice:    svc.Price,
		Notes:           strings.TrimSpace(req.Notes),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := e.appts.Insert(ctx, tx, &appt); err != nil {
		return model.Appointment{}, classifyStoreErr(err)
	}

	evt, err := outbox.NewBooked(appt)
	if err != nil {
		return model.Appointment{}, err
	}
	if err := e.outbox.Insert(ctx, tx, evt); err != nil {
		return model.Appointment{}, classifyStoreErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, classifyStoreErr(err)
	}
	e.logger.Info("appointment booked",
		"appointment_id", appt.ID,
		"business_id", appt.BusinessID,
		"status", string(appt.Status),
		"start_time", appt.StartTime,
	)
	return appt, nil
}

// TransitionStatus applies an explicit lifecycle transition. A canceled
// target is routed through the cancellation path so the policy checks are
// never bypassed, and a pending target is rejected outright: the only way
// back to pending is a reschedule, which carries a new start time and
// re-runs the overlap check. Approvals and completions are owner actions
// only.
func (e *Engine) TransitionStatus(ctx context.Context, appointmentID string, to model.Status, actor policy.Actor) (model.Appointment, error) {
	if to == model.StatusCanceled {
		return e.CancelAppointment(ctx, appointmentID, actor)
	}
	if to == model.StatusPending {
		return model.Appointment{}, fmt.Errorf("%w: reschedule to return an appointment to %s", ErrInvalidTransition, to)
	}
	if err := validateID(appointmentID, "appointment_id"); err != nil {
		return model.Appointment{}, err
	}
	if (to == model.StatusApproved || to == model.StatusCompleted) && actor != policy.ActorBusiness {
		return model.Appointment{}, fmt.Errorf("%w: only the business may set status %s", ErrPolicyViolation, to)
	}

	tx, err := e.db.Begin(ctx)
	if err != nil {
		return model.Appointment{}, classifyStoreErr(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := e.appts.GetForUpdate(ctx, tx, appointmentID)
	if err != nil {
		return model.Appointment{}, classifyStoreErr(err)
	}
	if !lifecycle.CanTransition(appt.Status, to) {
		return model.Appointment{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, appt.Status, to)
	}

	now := e.now().UTC()
	if err := e.appts.UpdateStatus(ctx, tx, appointmentID, to, now, nil); err != nil {
		return model.Appointment{}, classifyStoreErr(err)
	}

	previous := appt.Status
	appt.Status = to
	appt.UpdatedAt = now
	evt, err := outbox.NewStatusChanged(appt, previous, string(actor), now)
	if err != nil {
		return model.Appointment{}, err
	}
	if err := e.outbox.Insert(ctx, tx, evt); err != nil {
		return model.Appointment{}, classifyStoreErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, classifyStoreErr(err)
	}
	e.logger.Info("appointment status changed",
		"appointment_id", appt.ID,
		"from", string(previous),
		"to", string(to),
		"actor", string(actor),
	)
	return appt, nil
}

// CancelAppointment cancels after enforcing the business's cancellation
// policy. The business actor bypasses the policy but not the lifecycle
// table: terminal appointments stay terminal.
func (e *Engine) CancelAppointment(ctx context.Context, appointmentID string, actor policy.Actor) (model.Appointment, error) {
	if err := validateID(appointmentID, "appointment_id"); err != nil {
		return model.Appointment{}, err
	}

	tx, err := e.db.Begin(ctx)
	if err != nil {
		return model.Appointment{}, classifyStoreErr(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := e.appts.GetForUpdate(ctx, tx, appointmentID)
	if err != nil {
		return model.Appointment{}, classifyStoreErr(err)
	}
	if !lifecycle.CanTransition(appt.Status, model.StatusCanceled) {
		return model.Appointment{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, appt.Status, model.StatusCanceled)
	}

	biz, err := e.businesses.Get(ctx, tx, appt.BusinessID)
	if err != nil {
		return model.Appointment{}, classifyStoreErr(err)
	}
	now := e.now().UTC()
	if err := policy.CheckCancellation(biz.Settings, appt.StartTime, now, actor); err != nil {
		return model.Appointment{}, fmt.Errorf("%w: %s", ErrPolicyViolation, err)
	}

	if err := e.appts.UpdateStatus(ctx, tx, appointmentID, model.StatusCanceled, now, &now); err != nil {
		return model.Appointment{}, classifyStoreErr(err)
	}

	previous := appt.Status
	appt.Status = model.StatusCanceled
	appt.UpdatedAt = now
	appt.CanceledAt = &now
	evt, err := outbox.NewStatusChanged(appt, previous, string(actor), now)
	if err != nil {
		return model.Appointment{}, err
	}
	if err := e.outbox.Insert(ctx, tx, evt); err != nil {
		return model.Appointment{}, classifyStoreErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, classifyStoreErr(err)
	}
	e.logger.Info("appointment canceled",
		"appointment_id", appt.ID,
		"actor", string(actor),
	)
	return appt, nil
}

// RescheduleAppointment moves an active appointment to a new start and
// resets it to pending for re-approval. The new interval is conflict-checked
// against all other active appointments under the same serializable
// transaction as the write.
func (e *Engine) RescheduleAppointment(ctx context.Context, appointmentID string, newStart time.Time, actor policy.Actor) (model.Appointment, error) {
	if err := validateID(appointmentID, "appointment_id"); err != nil {
		return model.Appointment{}, err
	}
	now := e.now().UTC()
	newStart = newStart.UTC()
	if !newStart.After(now) {
		return model.Appointment{}, fmt.Errorf("%w: start_time must be in the future", ErrValidation)
	}

	tx, err := e.db.BeginTx(ctx, serializableTx)
	if err != nil {
		return model.Appointment{}, classifyStoreErr(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := e.appts.GetForUpdate(ctx, tx, appointmentID)
	if err != nil {
		return model.Appointment{}, classifyStoreErr(err)
	}
	if !lifecycle.CanTransition(appt.Status, model.StatusPending) {
		return model.Appointment{}, fmt.Errorf("%w: %s appointments cannot be rescheduled", ErrInvalidTransition, appt.Status)
	}

	biz, err := e.businesses.Get(ctx, tx, appt.BusinessID)
	if err != nil {
		return model.Appointment{}, classifyStoreErr(err)
	}
	if err := e.checkWithinHours(biz, newStart, appt.DurationMinutes); err != nil {
		return model.Appointment{}, err
	}

	newEnd := newStart.Add(time.Duration(appt.DurationMinutes) * time.Minute)
	taken, err := e.appts.HasActiveOverlap(ctx, tx, appt.BusinessID, newStart, newEnd, appt.ID)
	if err != nil {
		return model.Appointment{}, classifyStoreErr(err)
	}
	if taken {
		return model.Appointment{}, ErrConflict
	}

	if err := e.appts.UpdateSchedule(ctx, tx, appointmentID, newStart, now); err != nil {
		return model.Appointment{}, classifyStoreErr(err)
	}

	previous := appt.Status
	appt.StartTime = newStart
	appt.Status = model.StatusPending
	appt.UpdatedAt = now
	evt, err := outbox.NewStatusChanged(appt, previous, string(actor), now)
	if err != nil {
		return model.Appointment{}, err
	}
	if err := e.outbox.Insert(ctx, tx, evt); err != nil {
		return model.Appointment{}, classifyStoreErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, classifyStoreErr(err)
	}
	e.logger.Info("appointment rescheduled",
		"appointment_id", appt.ID,
		"new_start", newStart,
	)
	return appt, nil
}

// GetAppointment returns a single appointment by id.
func (e *Engine) GetAppointment(ctx context.Context, appointmentID string) (model.Appointment, error) {
	if err := validateID(appointmentID, "appointment_id"); err != nil {
		return model.Appointment{}, err
	}
	appt, err := e.appts.Get(ctx, e.db, appointmentID)
	if err != nil {
		return model.Appointment{}, classifyStoreErr(err)
	}
	return appt, nil
}

// ListAppointments returns the owner view for one status. Approved and
// canceled lists are windowed to today onward; completed is recent-first.
func (e *Engine) ListAppointments(ctx context.Context, businessID string, status model.Status) ([]model.Appointment, error) {
	if err := validateID(businessID, "business_id"); err != nil {
		return nil, err
	}
	now := e.now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	appts, err := e.appts.ListByBusiness(ctx, e.db, businessID, status, dayStart)
	if err != nil {
		return nil, classifyStoreErr(err)
	}
	return appts, nil
}

// GetStats aggregates appointment counts and completed revenue over an
// inclusive date range.
func (e *Engine) GetStats(ctx context.Context, businessID string, start, end time.Time) (model.StatsSummary, error) {
	if err := validateID(businessID, "business_id"); err != nil {
		return model.StatsSummary{}, err
	}
	if end.Before(start) {
		return model.StatsSummary{}, fmt.Errorf("%w: end before start", ErrValidation)
	}
	summary, err := e.appts.Stats(ctx, e.db, businessID, start.UTC(), end.UTC())
	if err != nil {
		return model.StatsSummary{}, classifyStoreErr(err)
	}
	return summary, nil
}

// checkWithinHours rejects intervals outside the business's working window
// for that weekday. Closed days reject everything.
func (e *Engine) checkWithinHours(biz model.Business, start time.Time, durationMinutes int) error {
	hours, ok := biz.Hours[start.UTC().Weekday()]
	if !ok || !hours.Open {
		return fmt.Errorf("%w: business is closed on %s", ErrValidation, start.UTC().Weekday())
	}
	open, close := availability.WindowOn(start, hours.OpenMinute, hours.CloseMinute)
	end := start.Add(time.Duration(durationMinutes) * time.Minute)
	if start.Before(open) || end.After(close) {
		return fmt.Errorf("%w: requested time is outside working hours", ErrValidation)
	}
	return nil
}

func validateID(raw, field string) error {
	if _, err := uuid.Parse(raw); err != nil {
		return fmt.Errorf("%w: %s must be a uuid", ErrValidation, field)
	}
	return nil
}
