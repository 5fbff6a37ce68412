package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DayHours is one weekday's working window, in minutes from midnight.
// Closed days have Open=false.
type DayHours struct {
	Open        bool
	OpenMinute  int
	CloseMinute int
}

// ScheduleSettings are the business-configured booking rules.
type ScheduleSettings struct {
	AutoApprove              bool
	AllowCancellation        bool
	CancellationTimeLimitHrs int
}

type Service struct {
	ID              string
	BusinessID      string
	Name            string
	DurationMinutes int
	Price           decimal.Decimal
	Position        int
}

type Business struct {
	ID       string
	Name     string
	Hours    map[time.Weekday]DayHours
	Services []Service
	Settings ScheduleSettings
}

// ServiceByID looks a service up in the catalogue; ok is false when absent.
func (b Business) ServiceByID(serviceID string) (Service, bool) {
	for _, s := range b.Services {
		if s.ID == serviceID {
			return s, true
		}
	}
	return Service{}, false
}

type Customer struct {
	ID    string
	Name  string
	Phone string
	Email string
}
