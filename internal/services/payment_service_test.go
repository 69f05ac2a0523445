package services

import (
	"context"
	"errors"
	"testing"

	"github.com/groupdreaming/rosca-backend/internal/models"
)

func TestRecordPaymentIncrementsPaidCounter(t *testing.T) {
	env := newTestEnv(t, 1)
	group, members := env.newFullGroup(t, 12000, 24)

	env.payInstallment(t, group.ID, members[0])

	member := env.member(t, group.ID, members[0])
	if member.InstallmentsPaid != 2 {
		t.Fatalf("InstallmentsPaid = %d, want 2 (one at join, one recorded)", member.InstallmentsPaid)
	}

	payments, err := env.payments.FindByGroupAndMember(context.Background(), group.ID, members[0])
	if err != nil {
		t.Fatalf("FindByGroupAndMember: %v", err)
	}
	if len(payments) != 1 || payments[0].PaymentID == "" {
		t.Errorf("payment record missing its payment id: %+v", payments)
	}
}

// Installment 1 is collected at join; a payment event for it must not
// move the paid counter or the reserve a second time.
func TestRecordPaymentInstallmentOneIsNoOp(t *testing.T) {
	env := newTestEnv(t, 1)
	ctx := context.Background()
	group, members := env.newFullGroup(t, 12000, 24)

	balanceBefore, _ := env.reserve.Balance(ctx, group.ID)
	err := env.paymentSvc.RecordPayment(ctx, models.PaymentConfirmed{
		GroupID:           group.ID.Hex(),
		MemberID:          members[0],
		InstallmentNumber: 1,
		Amount:            860.5,
	})
	if err != nil {
		t.Fatalf("installment-1 event: %v", err)
	}

	member := env.member(t, group.ID, members[0])
	if member.InstallmentsPaid != 1 {
		t.Errorf("InstallmentsPaid = %d, want 1 (join already counted it)", member.InstallmentsPaid)
	}
	balanceAfter, _ := env.reserve.Balance(ctx, group.ID)
	if balanceAfter != balanceBefore {
		t.Errorf("reserve moved on installment-1 event: %.2f -> %.2f", balanceBefore, balanceAfter)
	}
}

// Redelivery of the same PaymentConfirmed event must be a no-op: the paid
// counter and the reserve fund move exactly once.
func TestRecordPaymentIsIdempotent(t *testing.T) {
	env := newTestEnv(t, 1)
	ctx := context.Background()
	group, members := env.newFullGroup(t, 12000, 24)

	event := models.PaymentConfirmed{
		GroupID:           group.ID.Hex(),
		MemberID:          members[0],
		InstallmentNumber: 2,
		Amount:            569.7,
	}
	if err := env.paymentSvc.RecordPayment(ctx, event); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	balanceAfterFirst, _ := env.reserve.Balance(ctx, group.ID)

	for i := 0; i < 3; i++ {
		if err := env.paymentSvc.RecordPayment(ctx, event); err != nil {
			t.Fatalf("redelivery %d: %v", i, err)
		}
	}

	member := env.member(t, group.ID, members[0])
	if member.InstallmentsPaid != 2 {
		t.Errorf("InstallmentsPaid = %d, want 2 after redeliveries", member.InstallmentsPaid)
	}
	balance, _ := env.reserve.Balance(ctx, group.ID)
	if balance != balanceAfterFirst {
		t.Errorf("reserve balance moved on redelivery: %.2f -> %.2f", balanceAfterFirst, balance)
	}
}

func TestRecordPaymentCreditsReserveShares(t *testing.T) {
	env := newTestEnv(t, 1)
	ctx := context.Background()
	group, members := env.newFullGroup(t, 12000, 24)

	balanceBefore, _ := env.reserve.Balance(ctx, group.ID)
	env.payInstallment(t, group.ID, members[0])
	balanceAfter, _ := env.reserve.Balance(ctx, group.ID)

	// Installment 2 of 12000/24: admin fee 60.50, half goes to reserve.
	if got := balanceAfter - balanceBefore; got != 30.25 {
		t.Errorf("reserve credit = %.2f, want 30.25", got)
	}

	entries, err := env.reserve.Entries(ctx, group.ID)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	found := false
	for _, e := range entries {
		if e.Type == models.ReserveCreditAdminFee && e.Amount == 30.25 {
			found = true
		}
	}
	if !found {
		t.Error("no CREDIT_ADMIN_FEE entry of 30.25 in the ledger")
	}
}

func TestRecordPaymentRejectsOutOfRangeInstallment(t *testing.T) {
	env := newTestEnv(t, 1)
	ctx := context.Background()
	group, members := env.newFullGroup(t, 12000, 24)

	err := env.paymentSvc.RecordPayment(ctx, models.PaymentConfirmed{
		GroupID:           group.ID.Hex(),
		MemberID:          members[0],
		InstallmentNumber: 25,
		Amount:            1,
	})
	if !errors.Is(err, models.ErrNotEligible) {
		t.Fatalf("installment 25 of 24 error = %v, want ErrNotEligible", err)
	}
}

func TestReceiptMatchesSchedule(t *testing.T) {
	env := newTestEnv(t, 1)
	ctx := context.Background()
	group, members := env.newFullGroup(t, 12000, 24)
	env.payInstallment(t, group.ID, members[0])

	receipt, err := env.paymentSvc.Receipt(ctx, group.ID, members[0], 2)
	if err != nil {
		t.Fatalf("Receipt: %v", err)
	}
	if receipt.Breakdown.PureQuota != 500 {
		t.Errorf("PureQuota = %.2f, want 500.00", receipt.Breakdown.PureQuota)
	}
	if receipt.Breakdown.AdminFee != 60.5 {
		t.Errorf("AdminFee = %.2f, want 60.50", receipt.Breakdown.AdminFee)
	}
	if receipt.Breakdown.SubscriptionRight != 0 {
		t.Errorf("SubscriptionRight on installment 2 = %.2f, want 0", receipt.Breakdown.SubscriptionRight)
	}
	if receipt.Total != 569.7 {
		t.Errorf("Total = %.2f, want 569.70", receipt.Total)
	}

	// Installment 3 is unpaid: no receipt.
	if _, err := env.paymentSvc.Receipt(ctx, group.ID, members[0], 3); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("unpaid receipt error = %v, want ErrNotFound", err)
	}
}

func TestRecordPaymentUnknownGroup(t *testing.T) {
	env := newTestEnv(t, 1)
	err := env.paymentSvc.RecordPayment(context.Background(), models.PaymentConfirmed{
		GroupID:           "not-a-hex-id",
		MemberID:          "alice",
		InstallmentNumber: 1,
		Amount:            1,
	})
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}
