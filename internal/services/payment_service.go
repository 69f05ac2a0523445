package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/groupdreaming/rosca-backend/internal/calculator"
	"github.com/groupdreaming/rosca-backend/internal/config"
	"github.com/groupdreaming/rosca-backend/internal/models"
	"github.com/groupdreaming/rosca-backend/internal/repositories"
	"github.com/groupdreaming/rosca-backend/pkg/clock"
	"github.com/groupdreaming/rosca-backend/pkg/metrics"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Compile-time check to ensure PaymentServiceImpl implements PaymentService
var _ PaymentService = (*PaymentServiceImpl)(nil)

// PaymentServiceImpl consumes PaymentConfirmed events from the payment
// collaborator and keeps the member counters and reserve fund in step
type PaymentServiceImpl struct {
	groupRepo   repositories.GroupRepository
	memberRepo  repositories.MemberRepository
	paymentRepo repositories.PaymentRepository
	reserveRepo repositories.ReserveFundRepository
	cfg         *config.Config
	clock       clock.Clock
}

// NewPaymentService creates a new PaymentServiceImpl
func NewPaymentService(
	groupRepo repositories.GroupRepository,
	memberRepo repositories.MemberRepository,
	paymentRepo repositories.PaymentRepository,
	reserveRepo repositories.ReserveFundRepository,
	cfg *config.Config,
	clk clock.Clock,
) *PaymentServiceImpl {
	return &PaymentServiceImpl{
		groupRepo:   groupRepo,
		memberRepo:  memberRepo,
		paymentRepo: paymentRepo,
		reserveRepo: reserveRepo,
		cfg:         cfg,
		clock:       clk,
	}
}

// RecordPayment processes one confirmed installment payment. The durable
// payment record is written first; its unique (group, member, installment)
// index makes redelivery of the same event a no-op, so the paid counter
// and the reserve credits are applied exactly once.
func (s *PaymentServiceImpl) RecordPayment(ctx context.Context, event models.PaymentConfirmed) error {
	groupID, err := primitive.ObjectIDFromHex(event.GroupID)
	if err != nil {
		return fmt.Errorf("invalid group id %q: %w", event.GroupID, models.ErrNotFound)
	}
	group, err := s.groupRepo.FindByID(ctx, groupID)
	if err != nil {
		return err
	}
	member, err := s.memberRepo.FindByGroupAndMember(ctx, groupID, event.MemberID)
	if err != nil {
		return err
	}
	if event.InstallmentNumber < 1 || event.InstallmentNumber > group.Term {
		return fmt.Errorf("installment %d out of range 1..%d: %w", event.InstallmentNumber, group.Term, models.ErrNotEligible)
	}
	// Installment 1 is collected at join and already counted there; an
	// event for it is a replay, not a new payment.
	if event.InstallmentNumber == 1 {
		metrics.PaymentsTotal.WithLabelValues("replay").Inc()
		slog.Info("Installment 1 covered at join, event ignored", "groupId", event.GroupID, "memberId", event.MemberID)
		return nil
	}

	payment := &models.Payment{
		PaymentID:         uuid.NewString(),
		GroupID:           groupID,
		MemberID:          event.MemberID,
		InstallmentNumber: event.InstallmentNumber,
		Amount:            event.Amount,
		ReceivedAt:        s.clock.Now(),
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			metrics.PaymentsTotal.WithLabelValues("replay").Inc()
			slog.Info("Payment replay ignored", "groupId", event.GroupID, "memberId", event.MemberID, "installment", event.InstallmentNumber)
			return nil
		}
		metrics.PaymentsTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to record payment: %w", err)
	}

	if err := s.memberRepo.IncrementInstallmentsPaid(ctx, member.ID, 1, group.Term); err != nil {
		metrics.PaymentsTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to increment paid counter: %w", err)
	}

	if err := creditInstallmentShares(ctx, s.reserveRepo, s.cfg, group, event.InstallmentNumber); err != nil {
		slog.Error("Failed to credit reserve fund", "groupId", event.GroupID, "installment", event.InstallmentNumber, "error", err)
	}

	metrics.PaymentsTotal.WithLabelValues("recorded").Inc()
	slog.Info("Payment recorded", "groupId", event.GroupID, "memberId", event.MemberID, "installment", event.InstallmentNumber, "amount", event.Amount)
	return nil
}

// creditInstallmentShares routes the configured shares of an installment's
// admin fee and subscription right into the group's reserve fund. Both the
// join (installment 1) and every recorded payment go through it.
func creditInstallmentShares(ctx context.Context, reserveRepo repositories.ReserveFundRepository, cfg *config.Config, group *models.Group, installmentNumber int) error {
	schedule, err := calculator.GenerateSchedule(group.Capital, group.Term, group.ActivationDate, calculator.Rates{
		AdminFeeRate:          cfg.Engine.AdminFeeRate,
		LifeInsuranceRate:     cfg.Engine.LifeInsuranceRate,
		SubscriptionRightRate: cfg.Engine.SubscriptionRightRate,
		VATRate:               cfg.Engine.VATRate,
	})
	if err != nil {
		return err
	}
	breakdown := schedule[installmentNumber-1].Breakdown

	credit := func(amount float64, entryType models.ReserveEntryType) error {
		if amount <= 0 {
			return nil
		}
		if err := reserveRepo.Credit(ctx, group.ID, amount); err != nil {
			return err
		}
		return reserveRepo.AppendEntry(ctx, &models.ReserveEntry{
			GroupID:   group.ID,
			Type:      entryType,
			Amount:    amount,
			Reference: fmt.Sprintf("installment:%d", installmentNumber),
		})
	}

	adminShare := calculator.RoundCents(breakdown.AdminFee * cfg.Engine.ReserveAdminFeeShare)
	if err := credit(adminShare, models.ReserveCreditAdminFee); err != nil {
		return err
	}
	subscriptionShare := calculator.RoundCents(breakdown.SubscriptionRight * cfg.Engine.ReserveSubscriptionShare)
	return credit(subscriptionShare, models.ReserveCreditSubscription)
}

// GetPayments retrieves a member's processed payments
func (s *PaymentServiceImpl) GetPayments(ctx context.Context, groupID primitive.ObjectID, memberID string) ([]*models.Payment, error) {
	return s.paymentRepo.FindByGroupAndMember(ctx, groupID, memberID)
}

// Receipt builds the structured receipt for a paid installment. The line
// items come from the derived schedule, so a receipt can be regenerated
// at any time and always matches what was charged.
func (s *PaymentServiceImpl) Receipt(ctx context.Context, groupID primitive.ObjectID, memberID string, installmentNumber int) (*models.Receipt, error) {
	group, err := s.groupRepo.FindByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	member, err := s.memberRepo.FindByGroupAndMember(ctx, groupID, memberID)
	if err != nil {
		return nil, err
	}
	if installmentNumber < 1 || installmentNumber > member.InstallmentsPaid {
		return nil, fmt.Errorf("installment %d not paid by %s: %w", installmentNumber, memberID, models.ErrNotFound)
	}
	schedule, err := calculator.GenerateSchedule(group.Capital, group.Term, group.ActivationDate, calculator.Rates{
		AdminFeeRate:          s.cfg.Engine.AdminFeeRate,
		LifeInsuranceRate:     s.cfg.Engine.LifeInsuranceRate,
		SubscriptionRightRate: s.cfg.Engine.SubscriptionRightRate,
		VATRate:               s.cfg.Engine.VATRate,
	})
	if err != nil {
		return nil, err
	}
	inst := schedule[installmentNumber-1]

	// Installment 1 is collected at join; later ones have a payment record.
	paidAt := member.JoinedAt
	payments, err := s.paymentRepo.FindByGroupAndMember(ctx, groupID, memberID)
	if err != nil {
		return nil, err
	}
	for _, p := range payments {
		if p.InstallmentNumber == installmentNumber {
			paidAt = p.ReceivedAt
		}
	}

	return &models.Receipt{
		GroupID:           groupID.Hex(),
		MemberID:          memberID,
		OrderNumber:       member.OrderNumber,
		InstallmentNumber: installmentNumber,
		Term:              group.Term,
		Breakdown:         inst.Breakdown,
		Total:             inst.Total,
		DueDate:           inst.DueDate,
		PaidAt:            paidAt,
	}, nil
}
