package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Appointment is the persisted booking record. CustomerName, CustomerPhone,
// ServiceName, ServicePrice and DurationMinutes are a point-in-time copy
// taken when the booking is created; they are never re-derived from the live
// customer or service records.
type Appointment struct {
	ID              string
	BusinessID      string
	CustomerID      string
	ServiceID       string
	StartTime       time.Time
	DurationMinutes int
	Status          Status
	CustomerName    string
	CustomerPhone   string
	ServiceName     string
	ServicePrice    decimal.Decimal
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CanceledAt      *time.Time
}

func (a Appointment) EndTime() time.Time {
	return a.StartTime.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// StatsSummary is the read-only aggregate over a date range. TotalRevenue
// sums ServicePrice over completed appointments only.
type StatsSummary struct {
	TotalAppointments     int64
	CompletedAppointments int64
	CanceledAppointments  int64
	TotalRevenue          decimal.Decimal
}
