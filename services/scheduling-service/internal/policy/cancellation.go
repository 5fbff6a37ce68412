// Package policy enforces the business-configured cancellation rules.
package policy

import (
	"fmt"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/model"
)

// Actor identifies who initiates a lifecycle action.
type Actor string

const (
	ActorCustomer Actor = "customer"
	ActorBusiness Actor = "business"
)

func ParseActor(raw string) (Actor, error) {
	switch Actor(raw) {
	case ActorCustomer, ActorBusiness:
		return Actor(raw), nil
	}
	return "", fmt.Errorf("unknown actor %q", raw)
}

// Violation describes a rejected cancellation.
type Violation struct {
	Reason string
}

func (v *Violation) Error() string {
	return v.Reason
}

// CheckCancellation decides whether the acting party may cancel an
// appointment starting at startTime, given the business settings and the
// current instant. The business can always cancel its own appointments;
// customers are bound by allowCancellation and the time limit.
func CheckCancellation(settings model.ScheduleSettings, startTime, now time.Time, actor Actor) error {
	if actor == ActorBusiness {
		return nil
	}
	if !settings.AllowCancellation {
		return &Violation{Reason: "cancellation is not allowed by this business"}
	}
	hoursUntil := startTime.Sub(now).Hours()
	if hoursUntil < float64(settings.CancellationTimeLimitHrs) {
		return &Violation{Reason: fmt.Sprintf(
			"appointments cannot be canceled less than %d hours before start",
			settings.CancellationTimeLimitHrs,
		)}
	}
	return nil
}
