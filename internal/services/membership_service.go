package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/groupdreaming/rosca-backend/internal/calculator"
	"github.com/groupdreaming/rosca-backend/internal/config"
	"github.com/groupdreaming/rosca-backend/internal/models"
	"github.com/groupdreaming/rosca-backend/internal/repositories"
	"github.com/groupdreaming/rosca-backend/internal/utils"
	"github.com/groupdreaming/rosca-backend/pkg/clock"
	"github.com/groupdreaming/rosca-backend/pkg/metrics"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Compile-time check to ensure MembershipServiceImpl implements MembershipService
var _ MembershipService = (*MembershipServiceImpl)(nil)

// MembershipServiceImpl handles joining and leaving groups
type MembershipServiceImpl struct {
	groupRepo   repositories.GroupRepository
	memberRepo  repositories.MemberRepository
	reserveRepo repositories.ReserveFundRepository
	cfg         *config.Config
	clock       clock.Clock
}

// NewMembershipService creates a new MembershipServiceImpl
func NewMembershipService(
	groupRepo repositories.GroupRepository,
	memberRepo repositories.MemberRepository,
	reserveRepo repositories.ReserveFundRepository,
	cfg *config.Config,
	clk clock.Clock,
) *MembershipServiceImpl {
	return &MembershipServiceImpl{
		groupRepo:   groupRepo,
		memberRepo:  memberRepo,
		reserveRepo: reserveRepo,
		cfg:         cfg,
		clock:       clk,
	}
}

// Join atomically claims the next seat. The seat claim is a single
// guarded update on the group document, so two concurrent joins can
// never receive the same order number; the member row is created after
// the claim succeeded. Joining counts as paying the first installment.
func (s *MembershipServiceImpl) Join(ctx context.Context, groupID primitive.ObjectID, memberID string) (*models.Member, error) {
	var result *repositories.JoinResult
	err := utils.WithRetry(ctx, s.cfg.Engine.RetryAttempts, s.cfg.Engine.RetryBaseBackoff, func() error {
		var claimErr error
		result, claimErr = s.groupRepo.ClaimSeat(ctx, groupID, memberID)
		return claimErr
	})
	if err != nil {
		metrics.JoinsTotal.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("failed to claim seat in group %s: %w", groupID.Hex(), err)
	}

	member := &models.Member{
		GroupID:          groupID,
		MemberID:         memberID,
		OrderNumber:      result.OrderNumber,
		JoinedAt:         s.clock.Now(),
		Status:           models.MemberStatusActive,
		InstallmentsPaid: 1,
		AwardState:       models.AwardStateNotAwarded,
		SubscriptionPaid: true,
	}
	if err := s.memberRepo.Create(ctx, member); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, fmt.Errorf("member %s in group %s: %w", memberID, groupID.Hex(), models.ErrAlreadyMember)
		}
		return nil, fmt.Errorf("failed to create member row: %w", err)
	}
	metrics.JoinsTotal.WithLabelValues("joined").Inc()
	slog.Info("Member joined group", "groupId", groupID.Hex(), "memberId", memberID, "orderNumber", result.OrderNumber)

	// Joining pays installment 1, so its reserve shares are credited here;
	// payment events only arrive for installments two onward.
	if group, err := s.groupRepo.FindByID(ctx, groupID); err == nil {
		if err := creditInstallmentShares(ctx, s.reserveRepo, s.cfg, group, 1); err != nil {
			slog.Error("Failed to credit join shares to reserve", "groupId", groupID.Hex(), "memberId", memberID, "error", err)
		}
	}

	if result.SeatsRemaining == 0 {
		activation := s.clock.Now()
		if err := s.groupRepo.Activate(ctx, groupID, activation); err != nil {
			// Another joiner may have activated it in between; that is fine.
			if !errors.Is(err, models.ErrTransientConflict) {
				slog.Error("Failed to activate full group", "groupId", groupID.Hex(), "error", err)
			}
		} else {
			slog.Info("Group activated", "groupId", groupID.Hex(), "activationDate", activation)
		}
	}
	return member, nil
}

// Leave exits a not-awarded member. The exit penalty is charged on the
// pure capital contributed so far and credited to the group's reserve;
// the remainder is refunded. The order number is preserved so the
// group's adjudication order stays intact.
func (s *MembershipServiceImpl) Leave(ctx context.Context, groupID primitive.ObjectID, memberID string) (*ExitStatement, error) {
	group, err := s.groupRepo.FindByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	member, err := s.memberRepo.FindByGroupAndMember(ctx, groupID, memberID)
	if err != nil {
		return nil, err
	}
	if member.Status != models.MemberStatusActive || member.AwardState != models.AwardStateNotAwarded {
		return nil, fmt.Errorf("member %s cannot exit: %w", memberID, models.ErrNotEligible)
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
	contributed := calculator.PureQuotaTotal(schedule[:member.InstallmentsPaid])
	penalty := calculator.ExitPenalty(contributed, s.cfg.Engine.ExitPenaltyRate, s.cfg.Engine.VATRate)

	if err := s.memberRepo.SetStatus(ctx, member.ID, models.MemberStatusExited); err != nil {
		return nil, fmt.Errorf("failed to mark member exited: %w", err)
	}
	if err := s.groupRepo.ReleaseSeat(ctx, groupID); err != nil {
		slog.Error("Failed to release seat after exit", "groupId", groupID.Hex(), "memberId", memberID, "error", err)
	}
	if err := s.creditPenalty(ctx, groupID, penalty, fmt.Sprintf("exit:%s", memberID)); err != nil {
		slog.Error("Failed to credit exit penalty to reserve", "groupId", groupID.Hex(), "error", err)
	}

	slog.Info("Member exited group", "groupId", groupID.Hex(), "memberId", memberID, "penalty", penalty)
	return &ExitStatement{
		PureCapitalContributed: contributed,
		Penalty:                penalty,
		Refund:                 calculator.RoundCents(contributed - penalty),
	}, nil
}

func (s *MembershipServiceImpl) creditPenalty(ctx context.Context, groupID primitive.ObjectID, amount float64, ref string) error {
	if amount <= 0 {
		return nil
	}
	if err := s.reserveRepo.Credit(ctx, groupID, amount); err != nil {
		return err
	}
	return s.reserveRepo.AppendEntry(ctx, &models.ReserveEntry{
		GroupID:   groupID,
		Type:      models.ReserveCreditPenalty,
		Amount:    amount,
		Reference: ref,
	})
}

// GetMember retrieves a member row
func (s *MembershipServiceImpl) GetMember(ctx context.Context, groupID primitive.ObjectID, memberID string) (*models.Member, error) {
	return s.memberRepo.FindByGroupAndMember(ctx, groupID, memberID)
}

// GetMembers retrieves a group's members ordered by order number
func (s *MembershipServiceImpl) GetMembers(ctx context.Context, groupID primitive.ObjectID) ([]*models.Member, error) {
	return s.memberRepo.FindByGroup(ctx, groupID)
}
