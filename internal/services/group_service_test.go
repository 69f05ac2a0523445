package services

import (
	"context"
	"errors"
	"testing"

	"github.com/groupdreaming/rosca-backend/internal/models"
)

func TestCreateGroupDerivesSeats(t *testing.T) {
	env := newTestEnv(t, 1)
	ctx := context.Background()

	group, err := env.groupSvc.CreateGroup(ctx, "g", 12000, 24)
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if group.TotalSeats != 48 {
		t.Errorf("TotalSeats = %d, want 48 (24 periods x 2 seats)", group.TotalSeats)
	}
	if group.Status != models.GroupStatusRecruiting {
		t.Errorf("Status = %s, want RECRUITING", group.Status)
	}

	_, err = env.groupSvc.CreateGroup(ctx, "bad", 0, 24)
	if !errors.Is(err, models.ErrInvalidScheduleInput) {
		t.Fatalf("zero capital error = %v, want ErrInvalidScheduleInput", err)
	}
}

func TestCreateFromTemplate(t *testing.T) {
	env := newTestEnv(t, 1)
	ctx := context.Background()

	group, err := env.groupSvc.CreateFromTemplate(ctx, "classic-24")
	if err != nil {
		t.Fatalf("CreateFromTemplate: %v", err)
	}
	if group.Capital != 12000 || group.Term != 24 {
		t.Errorf("template group = %.0f/%d, want 12000/24", group.Capital, group.Term)
	}

	_, err = env.groupSvc.CreateFromTemplate(ctx, "no-such-template")
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("unknown template error = %v, want ErrNotFound", err)
	}
}

func TestScheduleGainsDueDatesOnActivation(t *testing.T) {
	env := newTestEnv(t, 1)
	ctx := context.Background()

	group, err := env.groupSvc.CreateGroup(ctx, "g", 12000, 24)
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	schedule, err := env.groupSvc.Schedule(ctx, group.ID)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if schedule[0].DueDate != nil {
		t.Error("recruiting group schedule has due dates")
	}

	full, _ := env.newFullGroup(t, 12000, 24)
	schedule, err = env.groupSvc.Schedule(ctx, full.ID)
	if err != nil {
		t.Fatalf("Schedule after activation: %v", err)
	}
	if schedule[0].DueDate == nil {
		t.Fatal("active group schedule missing due dates")
	}
	second := full.ActivationDate.AddDate(0, 1, 0)
	if !schedule[1].DueDate.Equal(second) {
		t.Errorf("installment 2 due %s, want one month after activation %s", schedule[1].DueDate, second)
	}
}
