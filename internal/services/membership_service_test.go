package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/groupdreaming/rosca-backend/internal/models"
)

func TestJoinAssignsSequentialOrderNumbers(t *testing.T) {
	env := newTestEnv(t, 1)
	ctx := context.Background()
	group, err := env.groupSvc.CreateGroup(ctx, "g", 6000, 12)
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if group.TotalSeats != 24 {
		t.Fatalf("TotalSeats = %d, want 24", group.TotalSeats)
	}

	m1, err := env.membershipSvc.Join(ctx, group.ID, "alice")
	if err != nil {
		t.Fatalf("Join alice: %v", err)
	}
	m2, err := env.membershipSvc.Join(ctx, group.ID, "bob")
	if err != nil {
		t.Fatalf("Join bob: %v", err)
	}
	if m1.OrderNumber != 1 || m2.OrderNumber != 2 {
		t.Fatalf("order numbers = %d, %d; want 1, 2", m1.OrderNumber, m2.OrderNumber)
	}
	if m1.InstallmentsPaid != 1 {
		t.Fatalf("InstallmentsPaid at join = %d, want 1", m1.InstallmentsPaid)
	}
	if m1.AwardState != models.AwardStateNotAwarded {
		t.Fatalf("AwardState at join = %s", m1.AwardState)
	}
}

// Joining pays installment 1, so its reserve shares land at join time:
// half the admin fee plus half the subscription right.
func TestJoinCreditsInstallmentOneShares(t *testing.T) {
	env := newTestEnv(t, 1)
	ctx := context.Background()
	group, _ := env.groupSvc.CreateGroup(ctx, "g", 12000, 24)

	if _, err := env.membershipSvc.Join(ctx, group.ID, "alice"); err != nil {
		t.Fatalf("Join: %v", err)
	}

	// Admin fee 60.50 -> 30.25; subscription right 290.40 -> 145.20.
	balance, _ := env.reserve.Balance(ctx, group.ID)
	if balance != 175.45 {
		t.Errorf("reserve after join = %.2f, want 175.45", balance)
	}

	entries, err := env.reserve.Entries(ctx, group.ID)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	var adminShare, subscriptionShare float64
	for _, e := range entries {
		switch e.Type {
		case models.ReserveCreditAdminFee:
			adminShare += e.Amount
		case models.ReserveCreditSubscription:
			subscriptionShare += e.Amount
		}
	}
	if adminShare != 30.25 {
		t.Errorf("admin fee share = %.2f, want 30.25", adminShare)
	}
	if subscriptionShare != 145.2 {
		t.Errorf("subscription share = %.2f, want 145.20", subscriptionShare)
	}
}

func TestJoinRejectsDuplicateMember(t *testing.T) {
	env := newTestEnv(t, 1)
	ctx := context.Background()
	group, _ := env.groupSvc.CreateGroup(ctx, "g", 6000, 12)

	if _, err := env.membershipSvc.Join(ctx, group.ID, "alice"); err != nil {
		t.Fatalf("first join: %v", err)
	}
	_, err := env.membershipSvc.Join(ctx, group.ID, "alice")
	if !errors.Is(err, models.ErrAlreadyMember) {
		t.Fatalf("second join error = %v, want ErrAlreadyMember", err)
	}
}

func TestJoinRejectsWhenFull(t *testing.T) {
	env := newTestEnv(t, 1)
	ctx := context.Background()
	group, _ := env.newFullGroup(t, 6000, 3)

	_, err := env.membershipSvc.Join(ctx, group.ID, "latecomer")
	if !errors.Is(err, models.ErrGroupFull) {
		t.Fatalf("join full group error = %v, want ErrGroupFull", err)
	}
}

func TestJoinActivatesFullGroup(t *testing.T) {
	env := newTestEnv(t, 1)
	group, _ := env.newFullGroup(t, 6000, 3)

	if group.Status != models.GroupStatusActive {
		t.Fatalf("Status = %s, want ACTIVE", group.Status)
	}
	if group.ActivationDate == nil {
		t.Fatal("ActivationDate not set on activation")
	}
}

// Concurrent joins must partition the order numbers exactly: every joiner
// gets one, none repeats, none is skipped.
func TestConcurrentJoinsYieldDistinctOrderNumbers(t *testing.T) {
	env := newTestEnv(t, 1)
	ctx := context.Background()
	group, err := env.groupSvc.CreateGroup(ctx, "g", 6000, 10)
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	n := group.TotalSeats

	var wg sync.WaitGroup
	orders := make([]int, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			member, err := env.membershipSvc.Join(ctx, group.ID, fmt.Sprintf("joiner-%02d", i))
			if err != nil {
				errs[i] = err
				return
			}
			orders[i] = member.OrderNumber
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("join %d: %v", i, err)
		}
	}
	sort.Ints(orders)
	for i, got := range orders {
		if got != i+1 {
			t.Fatalf("order numbers = %v, want 1..%d", orders, n)
		}
	}
}

func TestLeaveWithholdsExitPenalty(t *testing.T) {
	env := newTestEnv(t, 1)
	ctx := context.Background()
	group, members := env.newFullGroup(t, 12000, 24)

	// Two more payments on top of the one made at join: 3 x 500 pure.
	env.payInstallment(t, group.ID, members[0])
	env.payInstallment(t, group.ID, members[0])

	statement, err := env.membershipSvc.Leave(ctx, group.ID, members[0])
	if err != nil {
		t.Fatalf("Leave: %v", err)
	}
	if statement.PureCapitalContributed != 1500 {
		t.Errorf("PureCapitalContributed = %.2f, want 1500.00", statement.PureCapitalContributed)
	}
	// 5% of 1500 with VAT: 1500 * 0.05 * 1.21 = 90.75
	if statement.Penalty != 90.75 {
		t.Errorf("Penalty = %.2f, want 90.75", statement.Penalty)
	}
	if statement.Refund != 1409.25 {
		t.Errorf("Refund = %.2f, want 1409.25", statement.Refund)
	}

	member := env.member(t, group.ID, members[0])
	if member.Status != models.MemberStatusExited {
		t.Errorf("Status after leave = %s, want EXITED", member.Status)
	}
	if member.OrderNumber != 1 {
		t.Errorf("OrderNumber after leave = %d, want preserved 1", member.OrderNumber)
	}

	balance, _ := env.reserve.Balance(ctx, group.ID)
	if balance < statement.Penalty {
		t.Errorf("reserve balance %.2f missing the exit penalty %.2f", balance, statement.Penalty)
	}
}

func TestLeaveRejectsAwardedMember(t *testing.T) {
	env := newTestEnv(t, 1)
	ctx := context.Background()
	group, members := env.newFullGroup(t, 12000, 24)

	member := env.member(t, group.ID, members[0])
	now := env.clock.Now()
	if err := env.members.SetAwardState(ctx, member.ID, models.AwardStateNotAwarded, models.AwardStatePendingAcceptance, 1, &now); err != nil {
		t.Fatalf("SetAwardState: %v", err)
	}

	_, err := env.membershipSvc.Leave(ctx, group.ID, members[0])
	if !errors.Is(err, models.ErrNotEligible) {
		t.Fatalf("Leave awarded member error = %v, want ErrNotEligible", err)
	}
}
