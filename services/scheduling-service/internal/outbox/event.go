package outbox

import (
	"encoding/json"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/model"
)

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType (event per topic).
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const (
	EventAppointmentBooked        = "scheduling.appointment.booked.v1"
	EventAppointmentStatusChanged = "scheduling.appointment.status_changed.v1"
)

// StatusChangedPayload is consumed by the external notification dispatcher.
// Delivery failure is not observable to this service.
type StatusChangedPayload struct {
	AppointmentID  string `json:"appointment_id"`
	BusinessID     string `json:"business_id"`
	CustomerID     string `json:"customer_id"`
	PreviousStatus string `json:"previous_status"`
	NewStatus      string `json:"new_status"`
	Actor          string `json:"actor"`
	OccurredAt     string `json:"occurred_at"`
}

// NewStatusChanged builds the status transition event for an appointment.
func NewStatusChanged(appt model.Appointment, previous model.Status, actor string, occurredAt time.Time) (Event, error) {
	payload, err := json.Marshal(StatusChangedPayload{
		AppointmentID:  appt.ID,
		BusinessID:     appt.BusinessID,
		CustomerID:     appt.CustomerID,
		PreviousStatus: string(previous),
		NewStatus:      string(appt.Status),
		Actor:          actor,
		OccurredAt:     occurredAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: "appointment",
		AggregateID:   appt.ID,
		EventType:     EventAppointmentStatusChanged,
		Payload:       payload,
	}, nil
}

// NewBooked builds the creation event carrying the initial status.
func NewBooked(appt model.Appointment) (Event, error) {
	payload, err := json.Marshal(map[string]any{
		"appointment_id": appt.ID,
		"business_id":    appt.BusinessID,
		"customer_id":    appt.CustomerID,
		"service_id":     appt.ServiceID,
		"start_time":     appt.StartTime.UTC().Format(time.RFC3339),
		"end_time":       appt.EndTime().UTC().Format(time.RFC3339),
		"status":         string(appt.Status),
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: "appointment",
		AggregateID:   appt.ID,
		EventType:     EventAppointmentBooked,
		Payload:       payload,
	}, nil
}
