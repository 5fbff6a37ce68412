package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/model"
)

const appointmentColumns = `id::text, business_id::text, customer_id::text, service_id::text,
		start_time, duration_minutes, status, customer_name, customer_phone,
		service_name, service_price::text, COALESCE(notes, ''), created_at, updated_at, canceled_at`

type AppointmentRepository struct {
	db db.DB
}

func NewAppointmentRepository(database db.DB) *AppointmentRepository {
	return &AppointmentRepository{db: database}
}

// Insert writes a fully populated appointment record. The caller owns the
// transaction; the exclusion constraint on active appointments fires here
// when a concurrent booking won the slot (classified by IsConflict).
func (r *AppointmentRepository) Insert(ctx context.Context, q db.Querier, appt *model.Appointment) error {
	_, err := q.Exec(ctx, `
		INSERT INTO appointments
			(id, business_id, customer_id, service_id, start_time, duration_minutes, status,
			customer_name, customer_phone, service_name, service_price, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::numeric, NULLIF($12, ''), $13, $14)
	`, appt.ID, appt.BusinessID, appt.CustomerID, appt.ServiceID, appt.StartTime, appt.DurationMinutes,
		string(appt.Status), appt.CustomerName, appt.CustomerPhone, appt.ServiceName,
		appt.ServicePrice.String(), appt.Notes, appt.CreatedAt, appt.UpdatedAt)
	return err
}

func (r *AppointmentRepository) Get(ctx context.Context, q db.Querier, appointmentID string) (model.Appointment, error) {
	row := q.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, appointmentID)
	return scanAppointment(row)
}

// GetForUpdate locks the appointment row for the remainder of the transaction.
func (r *AppointmentRepository) GetForUpdate(ctx context.Context, q db.Querier, appointmentID string) (model.Appointment, error) {
	row := q.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, appointmentID)
	return scanAppointment(row)
}

// HasActiveOverlap applies the half-open overlap predicate against active
// (pending/approved) appointments of the business. It must run inside the
// same transaction as the write it guards. excludeID skips the appointment
// being rescheduled; pass "" for new bookings.
func (r *AppointmentRepository) HasActiveOverlap(ctx context.Context, q db.Querier, businessID string, start, end time.Time, excludeID string) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM appointments
			WHERE business_id = $1
				AND status IN ('pending', 'approved')
				AND start_time < $3
				AND start_time + make_interval(mins => duration_minutes) > $2
				AND id::text <> $4
		)
	`, businessID, start, end, excludeID).Scan(&exists)
	return exists, err
}

func (r *AppointmentRepository) UpdateStatus(ctx context.Context, q db.Querier, appointmentID string, status model.Status, updatedAt time.Time, canceledAt *time.Time) error {
	_, err := q.Exec(ctx, `
		UPDATE appointments
		SET status = $2,
			updated_at = $3,
			canceled_at = $4
		WHERE id = $1
	`, appointmentID, string(status), updatedAt, canceledAt)
	return err
}

// UpdateSchedule moves the appointment to a new start and resets it to
// pending for re-approval.
func (r *AppointmentRepository) UpdateSchedule(ctx context.Context, q db.Querier, appointmentID string, newStart, updatedAt time.Time) error {
	_, err := q.Exec(ctx, `
		UPDATE appointments
		SET start_time = $2,
			status = 'pending',
			updated_at = $3
		WHERE id = $1
	`, appointmentID, newStart, updatedAt)
	return err
}

// ListActiveBetween returns pending/approved appointments whose interval
// intersects [windowStart, windowEnd), ordered by start time.
func (r *AppointmentRepository) ListActiveBetween(ctx context.Context, q db.Querier, businessID string, windowStart, windowEnd time.Time) ([]model.Appointment, error) {
	rows, err := q.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE business_id = $1
			AND status IN ('pending', 'approved')
			AND start_time < $3
			AND start_time + make_interval(mins => duration_minutes) > $2
		ORDER BY start_time ASC
	`, businessID, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

// ListByBusiness returns appointments for the owner views. Completed
// appointments come newest-first capped at 100; approved and canceled are
// filtered to today or later; everything else is oldest-first.
func (r *AppointmentRepository) ListByBusiness(ctx context.Context, q db.Querier, businessID string, status model.Status, dayStart time.Time) ([]model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE business_id = $1 AND status = $2
		ORDER BY start_time ASC`
	args := []any{businessID, string(status)}
	switch status {
	case model.StatusCompleted:
		query = `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE business_id = $1 AND status = $2
		ORDER BY start_time DESC
		LIMIT 100`
	case model.StatusApproved, model.StatusCanceled:
		query = `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE business_id = $1 AND status = $2 AND start_time >= $3
		ORDER BY start_time ASC`
		args = append(args, dayStart)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

// Stats aggregates counts and completed revenue over [start, end].
func (r *AppointmentRepository) Stats(ctx context.Context, q db.Querier, businessID string, start, end time.Time) (model.StatsSummary, error) {
	var summary model.StatsSummary
	var revenue string
	err := q.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'canceled'),
			COALESCE(SUM(service_price) FILTER (WHERE status = 'completed'), 0)::text
		FROM appointments
		WHERE business_id = $1
			AND start_time >= $2
			AND start_time <= $3
	`, businessID, start, end).Scan(
		&summary.TotalAppointments,
		&summary.CompletedAppointments,
		&summary.CanceledAppointments,
		&revenue,
	)
	if err != nil {
		return model.StatsSummary{}, err
	}
	summary.TotalRevenue, err = decimal.NewFromString(revenue)
	if err != nil {
		return model.StatsSummary{}, err
	}
	return summary, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (model.Appointment, error) {
	var appt model.Appointment
	var status string
	var price string
	var canceledAt *time.Time
	err := row.Scan(
		&appt.ID,
		&appt.BusinessID,
		&appt.CustomerID,
		&appt.ServiceID,
		&appt.StartTime,
		&appt.DurationMinutes,
		&status,
		&appt.CustomerName,
		&appt.CustomerPhone,
		&appt.ServiceName,
		&price,
		&appt.Notes,
		&appt.CreatedAt,
		&appt.UpdatedAt,
		&canceledAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	appt.Status = model.Status(status)
	appt.CanceledAt = canceledAt
	appt.ServicePrice, err = decimal.NewFromString(price)
	if err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}
