package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/groupdreaming/rosca-backend/internal/models"
)

// bidReady makes a member eligible to bid by recording one extra payment
// (two paid including the one at join).
func (env *testEnv) bidReady(t *testing.T, group *models.Group, memberID string) {
	t.Helper()
	env.payInstallment(t, group.ID, memberID)
}

func TestSubmitBidValidation(t *testing.T) {
	env := newTestEnv(t, 1)
	ctx := context.Background()
	group, members := env.newFullGroup(t, 12000, 24)

	// Only one installment paid: below the bidding threshold.
	_, err := env.adjudication.SubmitBid(ctx, group.ID, members[0], 5, models.BidModeStandard)
	if !errors.Is(err, models.ErrNotEligible) {
		t.Fatalf("bid with 1 paid error = %v, want ErrNotEligible", err)
	}

	env.bidReady(t, group, members[0])

	// Below the floor of 2 installments.
	_, err = env.adjudication.SubmitBid(ctx, group.ID, members[0], 1, models.BidModeStandard)
	if !errors.Is(err, models.ErrBidTooLow) {
		t.Fatalf("bid of 1 error = %v, want ErrBidTooLow", err)
	}

	// More than the member's remaining unpaid installments (24 - 2 = 22).
	_, err = env.adjudication.SubmitBid(ctx, group.ID, members[0], 23, models.BidModeStandard)
	if !errors.Is(err, models.ErrInsufficientRemainingTerm) {
		t.Fatalf("bid of 23 error = %v, want ErrInsufficientRemainingTerm", err)
	}

	bid, err := env.adjudication.SubmitBid(ctx, group.ID, members[0], 5, models.BidModeStandard)
	if err != nil {
		t.Fatalf("valid bid: %v", err)
	}
	if bid.Period != 1 {
		t.Errorf("bid period = %d, want 1", bid.Period)
	}

	// One bid per member per period.
	_, err = env.adjudication.SubmitBid(ctx, group.ID, members[0], 6, models.BidModeStandard)
	if !errors.Is(err, models.ErrNotEligible) {
		t.Fatalf("second bid error = %v, want ErrNotEligible", err)
	}
}

// The bid ranking is a total order: offered installments descending,
// submission time ascending, order number ascending. expectedBidWinner
// applies it to the three test bids, skipping a raffle winner.
func expectedBidWinner(ranked []string, raffleWinner string) string {
	for _, id := range ranked {
		if id != raffleWinner {
			return id
		}
	}
	return ""
}

func TestResolvePeriodAwardsRaffleAndBidSeats(t *testing.T) {
	env := newTestEnv(t, 42)
	ctx := context.Background()
	group, members := env.newFullGroup(t, 12000, 24)

	a, b, c := members[0], members[1], members[2]
	env.bidReady(t, group, a)
	env.bidReady(t, group, b)
	env.bidReady(t, group, c)

	// a and b tie on 10; a submitted first and wins the tie. c offers 12
	// and outranks both.
	if _, err := env.adjudication.SubmitBid(ctx, group.ID, a, 10, models.BidModeStandard); err != nil {
		t.Fatalf("bid a: %v", err)
	}
	env.clock.Advance(time.Minute)
	if _, err := env.adjudication.SubmitBid(ctx, group.ID, b, 10, models.BidModeStandard); err != nil {
		t.Fatalf("bid b: %v", err)
	}
	env.clock.Advance(time.Minute)
	if _, err := env.adjudication.SubmitBid(ctx, group.ID, c, 12, models.BidModeStandard); err != nil {
		t.Fatalf("bid c: %v", err)
	}

	awards, err := env.adjudication.ResolvePeriod(ctx, group.ID, 1)
	if err != nil {
		t.Fatalf("ResolvePeriod: %v", err)
	}
	if len(awards) != 2 {
		t.Fatalf("awards = %d, want 2 (one raffle, one bid)", len(awards))
	}

	var raffle, bid *models.Award
	for _, award := range awards {
		switch award.Type {
		case models.AwardTypeRaffle:
			raffle = award
		case models.AwardTypeBid:
			bid = award
		}
	}
	if raffle == nil || bid == nil {
		t.Fatalf("missing seat: raffle=%v bid=%v", raffle, bid)
	}
	if raffle.MemberID == bid.MemberID {
		t.Error("raffle and bid seats went to the same member")
	}

	want := expectedBidWinner([]string{c, a, b}, raffle.MemberID)
	if bid.MemberID != want {
		t.Errorf("bid seat went to %s, want %s", bid.MemberID, want)
	}

	// Both winners leave the eligible pool.
	for _, award := range awards {
		m := env.member(t, group.ID, award.MemberID)
		if m.AwardState != models.AwardStatePendingAcceptance {
			t.Errorf("%s AwardState = %s, want PENDING_ACCEPTANCE", award.MemberID, m.AwardState)
		}
	}

	// The winning bid prepays the offered installments at pure-quota value.
	winner := env.member(t, group.ID, bid.MemberID)
	if winner.InstallmentsPaid != 2+bid.InstallmentsOffered {
		t.Errorf("bid winner InstallmentsPaid = %d, want %d", winner.InstallmentsPaid, 2+bid.InstallmentsOffered)
	}
}

// A member in arrears (paid through less than the current period) may not
// take the bid seat, at submit time or at resolution.
func TestSubmitBidRejectsMemberInArrears(t *testing.T) {
	env := newTestEnv(t, 7)
	ctx := context.Background()
	env.cfg.Engine.RafflesPerPeriod = 0
	group, members := env.newFullGroup(t, 12000, 24)

	if _, err := env.adjudication.ResolvePeriod(ctx, group.ID, 1); err != nil {
		t.Fatalf("resolve 1: %v", err)
	}
	if _, err := env.adjudication.ResolvePeriod(ctx, group.ID, 2); err != nil {
		t.Fatalf("resolve 2: %v", err)
	}

	// Two paid, period 3 current: one installment behind.
	env.bidReady(t, group, members[0])
	_, err := env.adjudication.SubmitBid(ctx, group.ID, members[0], 5, models.BidModeStandard)
	if !errors.Is(err, models.ErrNotEligible) {
		t.Fatalf("bid in arrears error = %v, want ErrNotEligible", err)
	}

	env.payInstallment(t, group.ID, members[0])
	if _, err := env.adjudication.SubmitBid(ctx, group.ID, members[0], 5, models.BidModeStandard); err != nil {
		t.Fatalf("bid after catching up: %v", err)
	}
}

func TestResolvePeriodSkipsOverdueBidders(t *testing.T) {
	env := newTestEnv(t, 7)
	ctx := context.Background()
	env.cfg.Engine.RafflesPerPeriod = 0
	group, members := env.newFullGroup(t, 12000, 24)

	if _, err := env.adjudication.ResolvePeriod(ctx, group.ID, 1); err != nil {
		t.Fatalf("resolve 1: %v", err)
	}

	// A recorded bid whose member has fallen behind by resolution time is
	// not ranked.
	overdue := env.member(t, group.ID, members[1])
	if err := env.bids.Create(ctx, &models.Bid{
		GroupID:             group.ID,
		Period:              2,
		MemberID:            overdue.MemberID,
		OrderNumber:         overdue.OrderNumber,
		InstallmentsOffered: 5,
		Mode:                models.BidModeStandard,
		Status:              models.BidStatusPending,
		SubmittedAt:         env.clock.Now(),
	}); err != nil {
		t.Fatalf("Create bid: %v", err)
	}

	awards, err := env.adjudication.ResolvePeriod(ctx, group.ID, 2)
	if err != nil {
		t.Fatalf("resolve 2: %v", err)
	}
	if len(awards) != 0 {
		t.Fatalf("awards = %d, want 0 (only bidder is overdue)", len(awards))
	}
	m := env.member(t, group.ID, members[1])
	if m.AwardState != models.AwardStateNotAwarded || m.InstallmentsPaid != 1 {
		t.Errorf("overdue bidder mutated: state=%s paid=%d", m.AwardState, m.InstallmentsPaid)
	}
}

func TestResolvePeriodIsIdempotent(t *testing.T) {
	env := newTestEnv(t, 7)
	ctx := context.Background()
	group, members := env.newFullGroup(t, 12000, 24)

	env.bidReady(t, group, members[0])
	if _, err := env.adjudication.SubmitBid(ctx, group.ID, members[0], 5, models.BidModeStandard); err != nil {
		t.Fatalf("bid: %v", err)
	}

	first, err := env.adjudication.ResolvePeriod(ctx, group.ID, 1)
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	second, err := env.adjudication.ResolvePeriod(ctx, group.ID, 1)
	if err != nil {
		t.Fatalf("replay resolve: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("replay returned %d awards, want %d", len(second), len(first))
	}
	for i := range first {
		if first[i].MemberID != second[i].MemberID || first[i].Type != second[i].Type {
			t.Errorf("replay award %d differs: %s/%s vs %s/%s",
				i, first[i].MemberID, first[i].Type, second[i].MemberID, second[i].Type)
		}
	}

	// The bid winner's prepaid installments were not credited twice.
	for _, award := range first {
		if award.Type == models.AwardTypeBid {
			m := env.member(t, group.ID, award.MemberID)
			if m.InstallmentsPaid != 2+award.InstallmentsOffered {
				t.Errorf("bid winner InstallmentsPaid = %d after replay, want %d",
					m.InstallmentsPaid, 2+award.InstallmentsOffered)
			}
		}
	}
}

func TestResolvePeriodRejectsOutOfOrder(t *testing.T) {
	env := newTestEnv(t, 7)
	group, _ := env.newFullGroup(t, 12000, 24)

	_, err := env.adjudication.ResolvePeriod(context.Background(), group.ID, 3)
	if !errors.Is(err, models.ErrInvalidTransition) {
		t.Fatalf("resolve period 3 first error = %v, want ErrInvalidTransition", err)
	}
}

func TestMinimumBidRisesAfterWinningOffer(t *testing.T) {
	env := newTestEnv(t, 7)
	ctx := context.Background()
	// Bid seats only, so the winning offer is not at the mercy of the
	// raffle drawing the bidder.
	env.cfg.Engine.RafflesPerPeriod = 0
	group, members := env.newFullGroup(t, 12000, 24)

	minBid, err := env.adjudication.MinimumBid(ctx, group.ID)
	if err != nil {
		t.Fatalf("MinimumBid: %v", err)
	}
	if minBid != 2 {
		t.Fatalf("initial minimum bid = %d, want floor 2", minBid)
	}

	env.bidReady(t, group, members[0])
	if _, err := env.adjudication.SubmitBid(ctx, group.ID, members[0], 12, models.BidModeStandard); err != nil {
		t.Fatalf("bid: %v", err)
	}
	if _, err := env.adjudication.ResolvePeriod(ctx, group.ID, 1); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	// ceil(12 * 1.03) = 13
	minBid, err = env.adjudication.MinimumBid(ctx, group.ID)
	if err != nil {
		t.Fatalf("MinimumBid: %v", err)
	}
	if minBid != 13 {
		t.Fatalf("minimum bid after winning offer of 12 = %d, want 13", minBid)
	}

	env.bidReady(t, group, members[5])
	_, err = env.adjudication.SubmitBid(ctx, group.ID, members[5], 12, models.BidModeStandard)
	if !errors.Is(err, models.ErrBidTooLow) {
		t.Fatalf("bid at previous minimum error = %v, want ErrBidTooLow", err)
	}
}

// A period that produces no bid winner leaves the raised minimum in
// place; it never falls back to the floor once an offer has won.
func TestMinimumBidSurvivesEmptyPeriod(t *testing.T) {
	env := newTestEnv(t, 7)
	ctx := context.Background()
	env.cfg.Engine.RafflesPerPeriod = 0
	group, members := env.newFullGroup(t, 12000, 24)

	env.bidReady(t, group, members[0])
	if _, err := env.adjudication.SubmitBid(ctx, group.ID, members[0], 12, models.BidModeStandard); err != nil {
		t.Fatalf("bid: %v", err)
	}
	if _, err := env.adjudication.ResolvePeriod(ctx, group.ID, 1); err != nil {
		t.Fatalf("resolve 1: %v", err)
	}
	if _, err := env.adjudication.ResolvePeriod(ctx, group.ID, 2); err != nil {
		t.Fatalf("resolve 2: %v", err)
	}

	minBid, err := env.adjudication.MinimumBid(ctx, group.ID)
	if err != nil {
		t.Fatalf("MinimumBid: %v", err)
	}
	if minBid != 13 {
		t.Fatalf("minimum after empty period = %d, want 13", minBid)
	}
}

// A capital-retention win keeps the prepaid capital on deposit and is
// charged the surcharge over the prepaid pure quota.
func TestCapitalRetentionBidCarriesSurcharge(t *testing.T) {
	env := newTestEnv(t, 7)
	ctx := context.Background()
	env.cfg.Engine.RafflesPerPeriod = 0
	group, members := env.newFullGroup(t, 12000, 24)

	env.bidReady(t, group, members[0])
	if _, err := env.adjudication.SubmitBid(ctx, group.ID, members[0], 3, models.BidModeCapitalRetention); err != nil {
		t.Fatalf("bid: %v", err)
	}
	awards, err := env.adjudication.ResolvePeriod(ctx, group.ID, 1)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(awards) != 1 {
		t.Fatalf("awards = %d, want 1", len(awards))
	}

	// Prepaid pure quota 3 x 500 = 1500; 1500 * 0.05 * 1.21 = 90.75.
	if awards[0].RetentionSurcharge != 90.75 {
		t.Errorf("RetentionSurcharge = %.2f, want 90.75", awards[0].RetentionSurcharge)
	}
	winner := env.member(t, group.ID, members[0])
	if winner.InstallmentsPaid != 5 {
		t.Errorf("winner InstallmentsPaid = %d, want 5", winner.InstallmentsPaid)
	}
}

func TestAcceptAndApproveAward(t *testing.T) {
	env := newTestEnv(t, 7)
	ctx := context.Background()
	group, _ := env.newFullGroup(t, 12000, 24)

	awards, err := env.adjudication.ResolvePeriod(ctx, group.ID, 1)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	winner := awards[0].MemberID

	if err := env.adjudication.AcceptAward(ctx, group.ID, winner); err != nil {
		t.Fatalf("AcceptAward: %v", err)
	}
	m := env.member(t, group.ID, winner)
	if m.AwardState != models.AwardStatePendingGuarantee {
		t.Fatalf("AwardState after accept = %s, want PENDING_GUARANTEE", m.AwardState)
	}
	if m.GuaranteeDueAt == nil {
		t.Fatal("GuaranteeDueAt not stamped on accept")
	}

	if err := env.adjudication.ApproveAward(ctx, group.ID, winner); err != nil {
		t.Fatalf("ApproveAward: %v", err)
	}
	m = env.member(t, group.ID, winner)
	if m.AwardState != models.AwardStateApproved {
		t.Fatalf("AwardState after approve = %s, want APPROVED", m.AwardState)
	}

	// Approving twice is an invalid transition.
	err = env.adjudication.ApproveAward(ctx, group.ID, winner)
	if !errors.Is(err, models.ErrInvalidTransition) {
		t.Fatalf("double approve error = %v, want ErrInvalidTransition", err)
	}
}

func TestAcceptAfterWindowForfeits(t *testing.T) {
	env := newTestEnv(t, 7)
	ctx := context.Background()
	group, _ := env.newFullGroup(t, 12000, 24)

	awards, err := env.adjudication.ResolvePeriod(ctx, group.ID, 1)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	winner := awards[0].MemberID

	env.clock.Advance(env.cfg.Engine.AcceptanceWindow + time.Hour)

	err = env.adjudication.AcceptAward(ctx, group.ID, winner)
	if !errors.Is(err, models.ErrNotEligible) {
		t.Fatalf("late accept error = %v, want ErrNotEligible", err)
	}
	m := env.member(t, group.ID, winner)
	if m.AwardState != models.AwardStateNotAwarded {
		t.Fatalf("AwardState after forfeit = %s, want NOT_AWARDED", m.AwardState)
	}
}

func TestExpireStaleAwards(t *testing.T) {
	env := newTestEnv(t, 7)
	ctx := context.Background()
	group, _ := env.newFullGroup(t, 12000, 24)

	awards, err := env.adjudication.ResolvePeriod(ctx, group.ID, 1)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	env.clock.Advance(env.cfg.Engine.AcceptanceWindow + time.Hour)

	forfeited, err := env.adjudication.ExpireStaleAwards(ctx)
	if err != nil {
		t.Fatalf("ExpireStaleAwards: %v", err)
	}
	if forfeited != len(awards) {
		t.Fatalf("forfeited = %d, want %d", forfeited, len(awards))
	}

	// Forfeited members are eligible again: the next period can award them.
	for _, award := range awards {
		m := env.member(t, group.ID, award.MemberID)
		if m.AwardState != models.AwardStateNotAwarded {
			t.Errorf("%s AwardState = %s, want NOT_AWARDED", award.MemberID, m.AwardState)
		}
	}
}
