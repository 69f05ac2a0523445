package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sort"

	"github.com/groupdreaming/rosca-backend/internal/calculator"
	"github.com/groupdreaming/rosca-backend/internal/config"
	"github.com/groupdreaming/rosca-backend/internal/models"
	"github.com/groupdreaming/rosca-backend/internal/repositories"
	"github.com/groupdreaming/rosca-backend/pkg/clock"
	"github.com/groupdreaming/rosca-backend/pkg/metrics"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Compile-time check to ensure AdjudicationServiceImpl implements AdjudicationService
var _ AdjudicationService = (*AdjudicationServiceImpl)(nil)

// AdjudicationServiceImpl runs the monthly capital adjudication: the
// raffle draw, the bid ranking and the award state machine
type AdjudicationServiceImpl struct {
	groupRepo  repositories.GroupRepository
	memberRepo repositories.MemberRepository
	awardRepo  repositories.AwardRepository
	bidRepo    repositories.BidRepository
	cfg        *config.Config
	clock      clock.Clock
	rand       *rand.Rand
}

// NewAdjudicationService creates a new AdjudicationServiceImpl. The
// generator is injected so the raffle is reproducible under test.
func NewAdjudicationService(
	groupRepo repositories.GroupRepository,
	memberRepo repositories.MemberRepository,
	awardRepo repositories.AwardRepository,
	bidRepo repositories.BidRepository,
	cfg *config.Config,
	clk clock.Clock,
	rng *rand.Rand,
) *AdjudicationServiceImpl {
	return &AdjudicationServiceImpl{
		groupRepo:  groupRepo,
		memberRepo: memberRepo,
		awardRepo:  awardRepo,
		bidRepo:    bidRepo,
		cfg:        cfg,
		clock:      clk,
		rand:       rng,
	}
}

// minimumBid computes the lowest acceptable offer: the configured floor,
// raised by the increment rate over the previous period's lowest winning
// offer once there is one.
func (s *AdjudicationServiceImpl) minimumBid(group *models.Group) int {
	floor := s.cfg.Engine.BidFloorInstallments
	if group.MinWinningOffer == 0 {
		return floor
	}
	raised := int(math.Ceil(float64(group.MinWinningOffer) * (1 + s.cfg.Engine.BidIncrementRate)))
	if raised < floor {
		return floor
	}
	return raised
}

// MinimumBid returns the lowest offer currently accepted for the group
func (s *AdjudicationServiceImpl) MinimumBid(ctx context.Context, groupID primitive.ObjectID) (int, error) {
	group, err := s.groupRepo.FindByID(ctx, groupID)
	if err != nil {
		return 0, err
	}
	return s.minimumBid(group), nil
}

// SubmitBid records an offer to prepay installments for the current
// period's bid seat. One bid per member per period.
func (s *AdjudicationServiceImpl) SubmitBid(ctx context.Context, groupID primitive.ObjectID, memberID string, installmentsOffered int, mode models.BidMode) (*models.Bid, error) {
	group, err := s.groupRepo.FindByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.Status != models.GroupStatusActive {
		return nil, fmt.Errorf("group %s is not active: %w", groupID.Hex(), models.ErrNotEligible)
	}
	member, err := s.memberRepo.FindByGroupAndMember(ctx, groupID, memberID)
	if err != nil {
		return nil, err
	}
	if member.Status != models.MemberStatusActive || member.AwardState != models.AwardStateNotAwarded {
		return nil, fmt.Errorf("member %s may not bid: %w", memberID, models.ErrNotEligible)
	}
	if member.InstallmentsPaid < s.cfg.Engine.MinPaidForBidding {
		return nil, fmt.Errorf("member %s has paid %d of required %d installments: %w",
			memberID, member.InstallmentsPaid, s.cfg.Engine.MinPaidForBidding, models.ErrNotEligible)
	}
	period := group.PeriodsResolved + 1
	if member.InstallmentsPaid < period {
		return nil, fmt.Errorf("member %s is in arrears (%d paid, period %d): %w",
			memberID, member.InstallmentsPaid, period, models.ErrNotEligible)
	}
	if installmentsOffered > member.RemainingInstallments(group.Term) {
		return nil, fmt.Errorf("offered %d with %d remaining: %w",
			installmentsOffered, member.RemainingInstallments(group.Term), models.ErrInsufficientRemainingTerm)
	}
	if minBid := s.minimumBid(group); installmentsOffered < minBid {
		return nil, fmt.Errorf("offered %d below minimum %d: %w", installmentsOffered, minBid, models.ErrBidTooLow)
	}
	if mode == "" {
		mode = models.BidModeStandard
	}

	bid := &models.Bid{
		GroupID:             groupID,
		Period:              period,
		MemberID:            memberID,
		OrderNumber:         member.OrderNumber,
		InstallmentsOffered: installmentsOffered,
		Mode:                mode,
		Status:              models.BidStatusPending,
		SubmittedAt:         s.clock.Now(),
	}
	if err := s.bidRepo.Create(ctx, bid); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, fmt.Errorf("member %s already bid in period %d: %w", memberID, bid.Period, models.ErrNotEligible)
		}
		return nil, fmt.Errorf("failed to record bid: %w", err)
	}
	slog.Info("Bid submitted", "groupId", groupID.Hex(), "memberId", memberID, "period", bid.Period, "offered", installmentsOffered, "mode", mode)
	return bid, nil
}

// ResolvePeriod runs the period's adjudication. The award records carry a
// unique (group, period, order) index and the group's resolved-period
// counter only advances from period-1, so a concurrent or repeated call
// lands on the replay path and returns the recorded awards without
// drawing a second time.
func (s *AdjudicationServiceImpl) ResolvePeriod(ctx context.Context, groupID primitive.ObjectID, period int) ([]*models.Award, error) {
	group, err := s.groupRepo.FindByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if period <= group.PeriodsResolved {
		metrics.ResolutionsTotal.WithLabelValues("idempotent_replay").Inc()
		return s.awardRepo.FindByGroupAndPeriod(ctx, groupID, period)
	}
	if group.Status != models.GroupStatusActive && group.Status != models.GroupStatusInAuction {
		return nil, fmt.Errorf("group %s is not active: %w", groupID.Hex(), models.ErrNotEligible)
	}
	if period != group.PeriodsResolved+1 {
		return nil, fmt.Errorf("period %d resolved out of order (next is %d): %w",
			period, group.PeriodsResolved+1, models.ErrInvalidTransition)
	}
	if period > group.Term {
		return nil, fmt.Errorf("period %d beyond term %d: %w", period, group.Term, models.ErrNotEligible)
	}

	members, err := s.memberRepo.FindActiveByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	awards := make([]*models.Award, 0, group.SeatsPerPeriod())
	awarded := make(map[string]bool)
	current := make(map[string]*models.Member, len(members))
	for _, m := range members {
		current[m.MemberID] = m
	}

	// Eligibility is the same for both seats: not yet awarded and paid
	// through the period being resolved.
	eligibleMember := func(id string) bool {
		m, ok := current[id]
		return ok && m.AwardState == models.AwardStateNotAwarded && m.InstallmentsPaid >= period
	}

	// Raffle seats: uniform draw over the eligible pool.
	pool := make([]*models.Member, 0, len(members))
	for _, m := range members {
		if eligibleMember(m.MemberID) {
			pool = append(pool, m)
		}
	}
	for i := 0; i < group.RafflesPerPeriod && len(pool) > 0; i++ {
		idx := s.rand.Intn(len(pool))
		winner := pool[idx]
		pool = append(pool[:idx], pool[idx+1:]...)
		awarded[winner.MemberID] = true
		awards = append(awards, &models.Award{
			GroupID:         groupID,
			Period:          period,
			OrderNumber:     winner.OrderNumber,
			MemberID:        winner.MemberID,
			Type:            models.AwardTypeRaffle,
			Status:          models.AwardStatusPending,
			AcceptanceDueAt: now.Add(s.cfg.Engine.AcceptanceWindow),
			AwardedAt:       now,
		})
	}

	// Bid seats: highest offer wins; earlier submission, then lower order
	// number, break ties. The ordering is total, so the outcome does not
	// depend on iteration order.
	bids, err := s.bidRepo.FindByGroupAndPeriod(ctx, groupID, period)
	if err != nil {
		return nil, err
	}
	eligible := make([]*models.Bid, 0, len(bids))
	for _, b := range bids {
		if b.Status == models.BidStatusPending && !awarded[b.MemberID] && eligibleMember(b.MemberID) {
			eligible = append(eligible, b)
		}
	}
	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].InstallmentsOffered != eligible[j].InstallmentsOffered {
			return eligible[i].InstallmentsOffered > eligible[j].InstallmentsOffered
		}
		if !eligible[i].SubmittedAt.Equal(eligible[j].SubmittedAt) {
			return eligible[i].SubmittedAt.Before(eligible[j].SubmittedAt)
		}
		return eligible[i].OrderNumber < eligible[j].OrderNumber
	})

	minWinningOffer := 0
	bidWinners := make([]*models.Bid, 0, group.BidsPerPeriod)
	for i, b := range eligible {
		if i < group.BidsPerPeriod {
			bidWinners = append(bidWinners, b)
			awarded[b.MemberID] = true
			if minWinningOffer == 0 || b.InstallmentsOffered < minWinningOffer {
				minWinningOffer = b.InstallmentsOffered
			}
			award := &models.Award{
				GroupID:             groupID,
				Period:              period,
				OrderNumber:         b.OrderNumber,
				MemberID:            b.MemberID,
				Type:                models.AwardTypeBid,
				Status:              models.AwardStatusPending,
				InstallmentsOffered: b.InstallmentsOffered,
				AcceptanceDueAt:     now.Add(s.cfg.Engine.AcceptanceWindow),
				AwardedAt:           now,
			}
			if b.Mode == models.BidModeCapitalRetention {
				surcharge, err := s.retentionSurcharge(group, current[b.MemberID], b.InstallmentsOffered)
				if err != nil {
					return nil, err
				}
				award.RetentionSurcharge = surcharge
			}
			awards = append(awards, award)
		}
	}

	if err := s.awardRepo.CreateMany(ctx, awards); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			metrics.ResolutionsTotal.WithLabelValues("idempotent_replay").Inc()
			return s.awardRepo.FindByGroupAndPeriod(ctx, groupID, period)
		}
		metrics.ResolutionsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("failed to record awards for period %d: %w", period, err)
	}

	for _, award := range awards {
		member, err := s.memberRepo.FindByGroupAndMember(ctx, groupID, award.MemberID)
		if err != nil {
			return nil, err
		}
		if err := s.memberRepo.SetAwardState(ctx, member.ID,
			models.AwardStateNotAwarded, models.AwardStatePendingAcceptance, period, &now); err != nil {
			return nil, fmt.Errorf("failed to mark member %s awarded: %w", award.MemberID, err)
		}
		metrics.AwardsTotal.WithLabelValues(string(award.Type)).Inc()
	}

	// A winning bid prepays the offered installments at pure-quota value.
	for _, b := range bidWinners {
		member, err := s.memberRepo.FindByGroupAndMember(ctx, groupID, b.MemberID)
		if err != nil {
			return nil, err
		}
		if err := s.memberRepo.IncrementInstallmentsPaid(ctx, member.ID, b.InstallmentsOffered, group.Term); err != nil {
			return nil, fmt.Errorf("failed to credit prepaid installments for %s: %w", b.MemberID, err)
		}
	}
	for _, b := range bids {
		status := models.BidStatusLost
		if awarded[b.MemberID] && b.Status == models.BidStatusPending {
			for _, w := range bidWinners {
				if w.ID == b.ID {
					status = models.BidStatusWon
				}
			}
		}
		if err := s.bidRepo.UpdateStatus(ctx, b.ID, status); err != nil {
			slog.Error("Failed to update bid status", "bidId", b.ID.Hex(), "error", err)
		}
	}

	if err := s.groupRepo.MarkPeriodResolved(ctx, groupID, period, minWinningOffer); err != nil {
		if errors.Is(err, models.ErrTransientConflict) {
			metrics.ResolutionsTotal.WithLabelValues("idempotent_replay").Inc()
			return s.awardRepo.FindByGroupAndPeriod(ctx, groupID, period)
		}
		metrics.ResolutionsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("failed to advance resolved period: %w", err)
	}

	metrics.ResolutionsTotal.WithLabelValues("resolved").Inc()
	slog.Info("Period resolved", "groupId", groupID.Hex(), "period", period, "awards", len(awards), "minWinningOffer", minWinningOffer)

	// Return the awards in the stores' (period, orderNumber) order so the
	// fresh and replay paths yield the same slice.
	sort.Slice(awards, func(i, j int) bool { return awards[i].OrderNumber < awards[j].OrderNumber })
	return awards, nil
}

// retentionSurcharge prices the capital-retention mode: the configured
// rate with VAT over the pure quota of the installments the win prepays.
func (s *AdjudicationServiceImpl) retentionSurcharge(group *models.Group, member *models.Member, installmentsOffered int) (float64, error) {
	schedule, err := calculator.GenerateSchedule(group.Capital, group.Term, group.ActivationDate, calculator.Rates{
		AdminFeeRate:          s.cfg.Engine.AdminFeeRate,
		LifeInsuranceRate:     s.cfg.Engine.LifeInsuranceRate,
		SubscriptionRightRate: s.cfg.Engine.SubscriptionRightRate,
		VATRate:               s.cfg.Engine.VATRate,
	})
	if err != nil {
		return 0, err
	}
	var prepaid float64
	for n := member.InstallmentsPaid + 1; n <= member.InstallmentsPaid+installmentsOffered && n <= group.Term; n++ {
		prepaid += schedule[n-1].Breakdown.PureQuota
	}
	return calculator.RetentionSurcharge(calculator.RoundCents(prepaid), s.cfg.Engine.RetentionSurchargeRate, s.cfg.Engine.VATRate), nil
}

// AcceptAward moves an awarded member to pending guarantee. Accepting
// after the window closed forfeits instead.
func (s *AdjudicationServiceImpl) AcceptAward(ctx context.Context, groupID primitive.ObjectID, memberID string) error {
	member, err := s.memberRepo.FindByGroupAndMember(ctx, groupID, memberID)
	if err != nil {
		return err
	}
	if member.AwardState != models.AwardStatePendingAcceptance {
		return fmt.Errorf("member %s is %s: %w", memberID, member.AwardState, models.ErrInvalidTransition)
	}
	award, err := s.awardRepo.FindPendingByGroupAndOrder(ctx, groupID, member.OrderNumber)
	if err != nil {
		return err
	}
	now := s.clock.Now()
	if now.After(award.AcceptanceDueAt) {
		if err := s.forfeit(ctx, member, award); err != nil {
			return err
		}
		return fmt.Errorf("acceptance window closed at %s: %w", award.AcceptanceDueAt, models.ErrNotEligible)
	}

	if err := s.memberRepo.SetAwardState(ctx, member.ID,
		models.AwardStatePendingAcceptance, models.AwardStatePendingGuarantee, 0, nil); err != nil {
		return err
	}
	guaranteeDue := now.Add(s.cfg.Engine.GuaranteeWindow)
	member.AwardState = models.AwardStatePendingGuarantee
	member.GuaranteeDueAt = &guaranteeDue
	if err := s.memberRepo.Update(ctx, member); err != nil {
		slog.Error("Failed to stamp guarantee deadline", "memberId", memberID, "error", err)
	}
	if err := s.awardRepo.UpdateStatus(ctx, award.ID, models.AwardStatusAccepted); err != nil {
		return err
	}
	slog.Info("Award accepted", "groupId", groupID.Hex(), "memberId", memberID, "guaranteeDueAt", guaranteeDue)
	return nil
}

// ApproveAward finalizes an award once guarantees are verified
func (s *AdjudicationServiceImpl) ApproveAward(ctx context.Context, groupID primitive.ObjectID, memberID string) error {
	member, err := s.memberRepo.FindByGroupAndMember(ctx, groupID, memberID)
	if err != nil {
		return err
	}
	if member.AwardState != models.AwardStatePendingGuarantee {
		return fmt.Errorf("member %s is %s: %w", memberID, member.AwardState, models.ErrInvalidTransition)
	}
	award, err := s.awardRepo.FindPendingByGroupAndOrder(ctx, groupID, member.OrderNumber)
	if err != nil {
		return err
	}
	if err := s.memberRepo.SetAwardState(ctx, member.ID,
		models.AwardStatePendingGuarantee, models.AwardStateApproved, 0, nil); err != nil {
		return err
	}
	if err := s.awardRepo.UpdateStatus(ctx, award.ID, models.AwardStatusApproved); err != nil {
		return err
	}
	slog.Info("Award approved", "groupId", groupID.Hex(), "memberId", memberID)
	return nil
}

// ExpireStaleAwards forfeits awards whose acceptance window closed and
// returns the members to the eligible pool
func (s *AdjudicationServiceImpl) ExpireStaleAwards(ctx context.Context) (int, error) {
	stale, err := s.memberRepo.FindStaleAwards(ctx, s.clock.Now().Add(-s.cfg.Engine.AcceptanceWindow))
	if err != nil {
		return 0, err
	}
	forfeited := 0
	for _, member := range stale {
		award, err := s.awardRepo.FindPendingByGroupAndOrder(ctx, member.GroupID, member.OrderNumber)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				continue
			}
			return forfeited, err
		}
		if err := s.forfeit(ctx, member, award); err != nil {
			slog.Error("Failed to forfeit stale award", "groupId", member.GroupID.Hex(), "memberId", member.MemberID, "error", err)
			continue
		}
		forfeited++
	}
	return forfeited, nil
}

func (s *AdjudicationServiceImpl) forfeit(ctx context.Context, member *models.Member, award *models.Award) error {
	if err := s.memberRepo.SetAwardState(ctx, member.ID,
		models.AwardStatePendingAcceptance, models.AwardStateNotAwarded, 0, nil); err != nil {
		return err
	}
	if err := s.awardRepo.UpdateStatus(ctx, award.ID, models.AwardStatusForfeited); err != nil {
		return err
	}
	slog.Info("Award forfeited", "groupId", member.GroupID.Hex(), "memberId", member.MemberID, "period", award.Period)
	return nil
}

// GetAwards retrieves a group's award history
func (s *AdjudicationServiceImpl) GetAwards(ctx context.Context, groupID primitive.ObjectID) ([]*models.Award, error) {
	return s.awardRepo.FindByGroup(ctx, groupID)
}
