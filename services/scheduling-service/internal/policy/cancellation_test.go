package policy

import (
	"errors"
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/model"
)

func TestCheckCancellation_CustomerWithinLimit(t *testing.T) {
	settings := model.ScheduleSettings{AllowCancellation: true, CancellationTimeLimitHrs: 24}
	now := time.Date(2026, 9, 2, 10, 0, 0, 0, time.UTC)
	start := now.Add(2 * time.Hour)

	err := CheckCancellation(settings, start, now, ActorCustomer)
	if err == nil {
		t.Fatal("expected violation 2h before start with a 24h limit")
	}
	var v *Violation
	if !errors.As(err, &v) {
		t.Fatalf("expected *Violation, got %T", err)
	}
}

func TestCheckCancellation_CustomerOutsideLimit(t *testing.T) {
	settings := model.ScheduleSettings{AllowCancellation: true, CancellationTimeLimitHrs: 24}
	now := time.Date(2026, 9, 2, 10, 0, 0, 0, time.UTC)
	start := now.Add(48 * time.Hour)

	if err := CheckCancellation(settings, start, now, ActorCustomer); err != nil {
		t.Fatalf("expected cancellation allowed 48h out, got %v", err)
	}
}

func TestCheckCancellation_ExactBoundaryAllowed(t *testing.T) {
	settings := model.ScheduleSettings{AllowCancellation: true, CancellationTimeLimitHrs: 24}
	now := time.Date(2026, 9, 2, 10, 0, 0, 0, time.UTC)
	start := now.Add(24 * time.Hour)

	if err := CheckCancellation(settings, start, now, ActorCustomer); err != nil {
		t.Fatalf("exactly at the limit should be allowed, got %v", err)
	}
}

func TestCheckCancellation_NotAllowedByBusiness(t *testing.T) {
	settings := model.ScheduleSettings{AllowCancellation: false, CancellationTimeLimitHrs: 0}
	now := time.Date(2026, 9, 2, 10, 0, 0, 0, time.UTC)
	start := now.Add(100 * time.Hour)

	if err := CheckCancellation(settings, start, now, ActorCustomer); err == nil {
		t.Fatal("expected violation when the business disables cancellation")
	}
}

func TestCheckCancellation_BusinessBypassesPolicy(t *testing.T) {
	settings := model.ScheduleSettings{AllowCancellation: false, CancellationTimeLimitHrs: 24}
	now := time.Date(2026, 9, 2, 10, 0, 0, 0, time.UTC)
	start := now.Add(time.Minute)

	if err := CheckCancellation(settings, start, now, ActorBusiness); err != nil {
		t.Fatalf("business actor should bypass the policy, got %v", err)
	}
}

func TestParseActor(t *testing.T) {
	if _, err := ParseActor("customer"); err != nil {
		t.Fatalf("customer: %v", err)
	}
	if _, err := ParseActor("business"); err != nil {
		t.Fatalf("business: %v", err)
	}
	if _, err := ParseActor("admin"); err == nil {
		t.Fatal("expected error for unknown actor")
	}
}
