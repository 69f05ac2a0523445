package services

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/groupdreaming/rosca-backend/internal/config"
	"github.com/groupdreaming/rosca-backend/internal/models"
	"github.com/groupdreaming/rosca-backend/internal/repositories/memory"
	"github.com/groupdreaming/rosca-backend/pkg/clock"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// testEnv wires every service against the in-memory repositories, a fake
// clock and a seeded generator so each test is fully deterministic.
type testEnv struct {
	groups   *memory.GroupRepository
	members  *memory.MemberRepository
	awards   *memory.AwardRepository
	bids     *memory.BidRepository
	auctions *memory.AuctionRepository
	reserve  *memory.ReserveFundRepository
	payments *memory.PaymentRepository

	cfg   *config.Config
	clock *clock.Fake

	groupSvc      *GroupServiceImpl
	membershipSvc *MembershipServiceImpl
	paymentSvc    *PaymentServiceImpl
	adjudication  *AdjudicationServiceImpl
	auctionSvc    *AuctionServiceImpl
}

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{Secret: "test-secret", ExpiresIn: 3600},
		Engine: config.EngineConfig{
			AdminFeeRate:             0.10,
			LifeInsuranceRate:        0.0008,
			SubscriptionRightRate:    0.02,
			VATRate:                  0.21,
			ReserveAdminFeeShare:     0.5,
			ReserveSubscriptionShare: 0.5,
			SaleCommissionRate:       0.02,
			BuyerCommissionRate:      0.02,
			BuyerDefaultPenaltyRate:  0.10,
			ExitPenaltyRate:          0.05,
			RetentionSurchargeRate:   0.05,
			BidIncrementRate:         0.03,
			BidFloorInstallments:     2,
			RafflesPerPeriod:         1,
			BidsPerPeriod:            1,
			MinPaidForListing:        3,
			MinPaidForBidding:        2,
			AcceptanceWindow:         48 * time.Hour,
			SettlementWindow:         24 * time.Hour,
			GuaranteeWindow:          72 * time.Hour,
			AuctionWindow:            7 * 24 * time.Hour,
			RetryAttempts:            3,
			RetryBaseBackoff:         time.Millisecond,
		},
	}
}

func newTestEnv(t *testing.T, seed int64) *testEnv {
	t.Helper()
	env := &testEnv{
		groups:   memory.NewGroupRepository(),
		members:  memory.NewMemberRepository(),
		awards:   memory.NewAwardRepository(),
		bids:     memory.NewBidRepository(),
		auctions: memory.NewAuctionRepository(),
		reserve:  memory.NewReserveFundRepository(),
		payments: memory.NewPaymentRepository(),
		cfg:      testConfig(),
		clock:    clock.NewFake(time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)),
	}
	env.groupSvc = NewGroupService(env.groups, env.cfg)
	env.membershipSvc = NewMembershipService(env.groups, env.members, env.reserve, env.cfg, env.clock)
	env.paymentSvc = NewPaymentService(env.groups, env.members, env.payments, env.reserve, env.cfg, env.clock)
	env.adjudication = NewAdjudicationService(env.groups, env.members, env.awards, env.bids, env.cfg, env.clock, rand.New(rand.NewSource(seed)))
	env.auctionSvc = NewAuctionService(env.groups, env.members, env.auctions, env.reserve, env.cfg, env.clock)
	return env
}

// newFullGroup creates a group and joins enough members to activate it.
// Member IDs are member-01 .. member-NN in join order.
func (env *testEnv) newFullGroup(t *testing.T, capital float64, term int) (*models.Group, []string) {
	t.Helper()
	ctx := context.Background()
	group, err := env.groupSvc.CreateGroup(ctx, "test-group", capital, term)
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	memberIDs := make([]string, 0, group.TotalSeats)
	for i := 1; i <= group.TotalSeats; i++ {
		id := fmt.Sprintf("member-%02d", i)
		if _, err := env.membershipSvc.Join(ctx, group.ID, id); err != nil {
			t.Fatalf("Join %s: %v", id, err)
		}
		memberIDs = append(memberIDs, id)
	}
	group, err = env.groups.FindByID(ctx, group.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	return group, memberIDs
}

// payInstallment records one confirmed payment for the member's next
// unpaid installment.
func (env *testEnv) payInstallment(t *testing.T, groupID primitive.ObjectID, memberID string) {
	t.Helper()
	ctx := context.Background()
	member, err := env.members.FindByGroupAndMember(ctx, groupID, memberID)
	if err != nil {
		t.Fatalf("FindByGroupAndMember %s: %v", memberID, err)
	}
	event := models.PaymentConfirmed{
		GroupID:           groupID.Hex(),
		MemberID:          memberID,
		InstallmentNumber: member.InstallmentsPaid + 1,
		Amount:            1,
	}
	if err := env.paymentSvc.RecordPayment(ctx, event); err != nil {
		t.Fatalf("RecordPayment %s #%d: %v", memberID, event.InstallmentNumber, err)
	}
}

func (env *testEnv) member(t *testing.T, groupID primitive.ObjectID, memberID string) *models.Member {
	t.Helper()
	member, err := env.members.FindByGroupAndMember(context.Background(), groupID, memberID)
	if err != nil {
		t.Fatalf("FindByGroupAndMember %s: %v", memberID, err)
	}
	return member
}
