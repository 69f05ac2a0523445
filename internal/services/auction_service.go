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
	"github.com/groupdreaming/rosca-backend/pkg/clock"
	"github.com/groupdreaming/rosca-backend/pkg/metrics"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Compile-time check to ensure AuctionServiceImpl implements AuctionService
var _ AuctionService = (*AuctionServiceImpl)(nil)

// AuctionServiceImpl runs the secondary market: pricing, listing,
// buyer bidding, settlement and platform absorption
type AuctionServiceImpl struct {
	groupRepo   repositories.GroupRepository
	memberRepo  repositories.MemberRepository
	auctionRepo repositories.AuctionRepository
	reserveRepo repositories.ReserveFundRepository
	cfg         *config.Config
	clock       clock.Clock
}

// NewAuctionService creates a new AuctionServiceImpl
func NewAuctionService(
	groupRepo repositories.GroupRepository,
	memberRepo repositories.MemberRepository,
	auctionRepo repositories.AuctionRepository,
	reserveRepo repositories.ReserveFundRepository,
	cfg *config.Config,
	clk clock.Clock,
) *AuctionServiceImpl {
	return &AuctionServiceImpl{
		groupRepo:   groupRepo,
		memberRepo:  memberRepo,
		auctionRepo: auctionRepo,
		reserveRepo: reserveRepo,
		cfg:         cfg,
		clock:       clk,
	}
}

func (s *AuctionServiceImpl) rates() calculator.Rates {
	return calculator.Rates{
		AdminFeeRate:          s.cfg.Engine.AdminFeeRate,
		LifeInsuranceRate:     s.cfg.Engine.LifeInsuranceRate,
		SubscriptionRightRate: s.cfg.Engine.SubscriptionRightRate,
		VATRate:               s.cfg.Engine.VATRate,
	}
}

// quote prices a member's position: the base price is half the cumulative
// total of the installments they have paid; installments the group has
// already resolved but the member has not paid are withheld as debt.
func (s *AuctionServiceImpl) quote(group *models.Group, member *models.Member) (*calculator.AuctionQuote, error) {
	schedule, err := calculator.GenerateSchedule(group.Capital, group.Term, group.ActivationDate, s.rates())
	if err != nil {
		return nil, err
	}
	paidTotal := calculator.CumulativeIssuedTotal(schedule, member.InstallmentsPaid)

	var debt float64
	for n := member.InstallmentsPaid + 1; n <= group.PeriodsResolved && n <= group.Term; n++ {
		debt += schedule[n-1].Total
	}
	debt = calculator.RoundCents(debt)

	q := calculator.PriceListing(paidTotal, debt, s.cfg.Engine.SaleCommissionRate, s.cfg.Engine.VATRate)
	return &q, nil
}

// QuoteListing computes the seller-side economics without listing
func (s *AuctionServiceImpl) QuoteListing(ctx context.Context, groupID primitive.ObjectID, memberID string) (*calculator.AuctionQuote, error) {
	group, err := s.groupRepo.FindByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	member, err := s.memberRepo.FindByGroupAndMember(ctx, groupID, memberID)
	if err != nil {
		return nil, err
	}
	return s.quote(group, member)
}

// ListForSale puts an eligible member's position on the market
func (s *AuctionServiceImpl) ListForSale(ctx context.Context, groupID primitive.ObjectID, memberID string) (*models.AuctionListing, error) {
	group, err := s.groupRepo.FindByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	member, err := s.memberRepo.FindByGroupAndMember(ctx, groupID, memberID)
	if err != nil {
		return nil, err
	}
	if member.Status != models.MemberStatusActive || member.AwardState != models.AwardStateNotAwarded {
		return nil, fmt.Errorf("member %s may not list: %w", memberID, models.ErrNotEligible)
	}
	if member.InstallmentsPaid < s.cfg.Engine.MinPaidForListing {
		return nil, fmt.Errorf("member %s has paid %d of required %d installments: %w",
			memberID, member.InstallmentsPaid, s.cfg.Engine.MinPaidForListing, models.ErrNotEligible)
	}
	if existing, err := s.auctionRepo.FindByGroupAndMember(ctx, groupID, memberID); err == nil {
		if existing.Status == models.ListingStatusOpen || existing.Status == models.ListingStatusPendingSettlement {
			return nil, fmt.Errorf("position already listed: %w", models.ErrNotEligible)
		}
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	q, err := s.quote(group, member)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	listing := &models.AuctionListing{
		GroupID:          groupID,
		MemberID:         memberID,
		OrderNumber:      member.OrderNumber,
		BasePrice:        q.BasePrice,
		SellerCommission: q.SellerCommission,
		OutstandingDebt:  calculator.RoundCents(q.BasePrice - q.SellerCommission - q.NetProceeds),
		Status:           models.ListingStatusOpen,
		ListedAt:         now,
		WindowEndsAt:     now.Add(s.cfg.Engine.AuctionWindow),
	}
	if err := s.auctionRepo.Create(ctx, listing); err != nil {
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}

	if err := s.groupRepo.SetStatus(ctx, groupID, models.GroupStatusActive, models.GroupStatusInAuction); err != nil {
		// The group may already be in auction from another listing.
		if !errors.Is(err, models.ErrTransientConflict) {
			slog.Error("Failed to flag group in auction", "groupId", groupID.Hex(), "error", err)
		}
	}
	slog.Info("Position listed", "groupId", groupID.Hex(), "memberId", memberID, "basePrice", q.BasePrice, "windowEndsAt", listing.WindowEndsAt)
	return listing, nil
}

// PlaceBid records a buyer's offer on an open listing. Offers start at
// the base price and must improve on the current winning offer; a buyer
// who defaulted on this listing is blocked until the penalty is paid.
func (s *AuctionServiceImpl) PlaceBid(ctx context.Context, listingID primitive.ObjectID, buyerID string, amount float64) (*models.AuctionListing, error) {
	listing, err := s.auctionRepo.FindByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.Status != models.ListingStatusOpen {
		return nil, fmt.Errorf("listing is %s: %w", listing.Status, models.ErrNotEligible)
	}
	now := s.clock.Now()
	if now.After(listing.WindowEndsAt) {
		return nil, fmt.Errorf("bidding closed at %s: %w", listing.WindowEndsAt, models.ErrAuctionWindowExpired)
	}
	if listing.BuyerBlocked(buyerID) {
		return nil, fmt.Errorf("buyer %s defaulted on this listing: %w", buyerID, models.ErrNotEligible)
	}
	if amount < listing.BasePrice {
		return nil, fmt.Errorf("offer %.2f below base price %.2f: %w", amount, listing.BasePrice, models.ErrBidTooLow)
	}
	if listing.WinningBid != nil && amount <= listing.WinningBid.Amount {
		return nil, fmt.Errorf("offer %.2f does not improve %.2f: %w", amount, listing.WinningBid.Amount, models.ErrBidTooLow)
	}

	listing.WinningBid = &models.AuctionBid{BuyerID: buyerID, Amount: amount, PlacedAt: now}
	if err := s.auctionRepo.Update(ctx, listing); err != nil {
		return nil, fmt.Errorf("failed to record offer: %w", err)
	}
	slog.Info("Auction offer placed", "listingId", listingID.Hex(), "buyerId", buyerID, "amount", amount)
	return listing, nil
}

// CloseBidding ends an expired window: with a winning offer the listing
// moves to pending settlement, without one the platform absorbs the
// position at base price and carries it on the reserve fund.
func (s *AuctionServiceImpl) CloseBidding(ctx context.Context, listingID primitive.ObjectID) (*models.AuctionListing, error) {
	listing, err := s.auctionRepo.FindByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.Status != models.ListingStatusOpen {
		return nil, fmt.Errorf("listing is %s: %w", listing.Status, models.ErrInvalidTransition)
	}
	now := s.clock.Now()
	if now.Before(listing.WindowEndsAt) {
		return nil, fmt.Errorf("bidding open until %s: %w", listing.WindowEndsAt, models.ErrNotEligible)
	}

	if listing.WinningBid == nil {
		return s.absorb(ctx, listing)
	}

	settlementDue := now.Add(s.cfg.Engine.SettlementWindow)
	listing.Status = models.ListingStatusPendingSettlement
	listing.SettlementDueAt = &settlementDue
	if err := s.auctionRepo.Update(ctx, listing); err != nil {
		return nil, fmt.Errorf("failed to close bidding: %w", err)
	}
	slog.Info("Bidding closed", "listingId", listingID.Hex(), "buyerId", listing.WinningBid.BuyerID, "settlementDueAt", settlementDue)
	return listing, nil
}

// Settle confirms the buyer paid within the settlement window and
// transfers the position: the seller's row goes terminal, the buyer takes
// over the order number with the paid history intact.
func (s *AuctionServiceImpl) Settle(ctx context.Context, listingID primitive.ObjectID) (*SettlementStatement, error) {
	listing, err := s.auctionRepo.FindByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.Status != models.ListingStatusPendingSettlement || listing.WinningBid == nil {
		return nil, fmt.Errorf("listing is %s: %w", listing.Status, models.ErrInvalidTransition)
	}
	now := s.clock.Now()
	if listing.SettlementDueAt != nil && now.After(*listing.SettlementDueAt) {
		return nil, fmt.Errorf("settlement window closed at %s: %w", listing.SettlementDueAt, models.ErrBuyerDefault)
	}

	seller, err := s.memberRepo.FindByGroupAndMember(ctx, listing.GroupID, listing.MemberID)
	if err != nil {
		return nil, err
	}
	if err := s.memberRepo.SetStatus(ctx, seller.ID, models.MemberStatusSold); err != nil {
		return nil, fmt.Errorf("failed to retire seller row: %w", err)
	}

	buyer := &models.Member{
		GroupID:           listing.GroupID,
		MemberID:          listing.WinningBid.BuyerID,
		OrderNumber:       listing.OrderNumber,
		JoinedAt:          now,
		Status:            models.MemberStatusActive,
		InstallmentsPaid:  seller.InstallmentsPaid,
		AwardState:        models.AwardStateNotAwarded,
		SubscriptionPaid:  true,
		AcquiredInAuction: true,
	}
	if err := s.memberRepo.Create(ctx, buyer); err != nil {
		// Roll the seller back so a failed insert leaves no half-sale.
		if undoErr := s.memberRepo.SetStatus(ctx, seller.ID, models.MemberStatusActive); undoErr != nil {
			slog.Error("Failed to restore seller after aborted settlement", "listingId", listingID.Hex(), "error", undoErr)
		}
		return nil, fmt.Errorf("failed to create buyer row: %w", err)
	}

	if err := s.groupRepo.ReplaceRosterEntry(ctx, listing.GroupID, listing.MemberID, listing.WinningBid.BuyerID); err != nil {
		slog.Error("Failed to update roster after sale", "groupId", listing.GroupID.Hex(), "error", err)
	}

	listing.Status = models.ListingStatusSold
	if err := s.auctionRepo.Update(ctx, listing); err != nil {
		return nil, fmt.Errorf("failed to mark listing sold: %w", err)
	}

	price := listing.WinningBid.Amount
	commission := calculator.BuyerCommission(price, s.cfg.Engine.BuyerCommissionRate, s.cfg.Engine.VATRate)
	metrics.AuctionSettlementsTotal.WithLabelValues("sold").Inc()
	slog.Info("Position sold", "listingId", listingID.Hex(), "buyerId", listing.WinningBid.BuyerID, "price", price)
	return &SettlementStatement{
		Price:           price,
		BuyerCommission: commission,
		SellerNet:       calculator.RoundCents(listing.BasePrice - listing.SellerCommission - listing.OutstandingDebt),
		BuyerID:         listing.WinningBid.BuyerID,
	}, nil
}

// RecordBuyerDefault penalizes a buyer who missed the settlement window.
// The penalty is credited to the group's reserve and the listing re-opens
// for a fresh bidding window with the defaulter blocked.
func (s *AuctionServiceImpl) RecordBuyerDefault(ctx context.Context, listingID primitive.ObjectID) (*models.AuctionListing, error) {
	listing, err := s.auctionRepo.FindByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.Status != models.ListingStatusPendingSettlement || listing.WinningBid == nil {
		return nil, fmt.Errorf("listing is %s: %w", listing.Status, models.ErrInvalidTransition)
	}
	now := s.clock.Now()
	if listing.SettlementDueAt != nil && now.Before(*listing.SettlementDueAt) {
		return nil, fmt.Errorf("settlement open until %s: %w", listing.SettlementDueAt, models.ErrNotEligible)
	}

	defaulter := listing.WinningBid.BuyerID
	penalty := calculator.BuyerDefaultPenalty(listing.WinningBid.Amount, s.cfg.Engine.BuyerDefaultPenaltyRate, s.cfg.Engine.VATRate)
	if err := s.reserveRepo.Credit(ctx, listing.GroupID, penalty); err != nil {
		return nil, fmt.Errorf("failed to credit default penalty: %w", err)
	}
	if err := s.reserveRepo.AppendEntry(ctx, &models.ReserveEntry{
		GroupID:   listing.GroupID,
		Type:      models.ReserveCreditPenalty,
		Amount:    penalty,
		Reference: fmt.Sprintf("buyer-default:%s", defaulter),
	}); err != nil {
		slog.Error("Failed to append penalty entry", "listingId", listingID.Hex(), "error", err)
	}

	listing.Status = models.ListingStatusOpen
	listing.WinningBid = nil
	listing.SettlementDueAt = nil
	listing.DefaultedBuyers = append(listing.DefaultedBuyers, defaulter)
	listing.WindowEndsAt = now.Add(s.cfg.Engine.AuctionWindow)
	if err := s.auctionRepo.Update(ctx, listing); err != nil {
		return nil, fmt.Errorf("failed to re-open listing: %w", err)
	}
	metrics.AuctionSettlementsTotal.WithLabelValues("buyer_default").Inc()
	slog.Warn("Buyer defaulted on settlement", "listingId", listingID.Hex(), "buyerId", defaulter, "penalty", penalty)
	return listing, nil
}

func (s *AuctionServiceImpl) absorb(ctx context.Context, listing *models.AuctionListing) (*models.AuctionListing, error) {
	seller, err := s.memberRepo.FindByGroupAndMember(ctx, listing.GroupID, listing.MemberID)
	if err != nil {
		return nil, err
	}
	if err := s.memberRepo.SetStatus(ctx, seller.ID, models.MemberStatusSold); err != nil {
		return nil, fmt.Errorf("failed to retire seller row: %w", err)
	}
	listing.Status = models.ListingStatusAbsorbed
	if err := s.auctionRepo.Update(ctx, listing); err != nil {
		return nil, fmt.Errorf("failed to mark listing absorbed: %w", err)
	}
	metrics.AuctionSettlementsTotal.WithLabelValues("absorbed").Inc()
	slog.Info("Position absorbed at base price", "listingId", listing.ID.Hex(), "basePrice", listing.BasePrice)
	return listing, nil
}

// AbsorbInstallment pays an absorbed position's pure quota out of the
// group's reserve fund while the platform carries it
func (s *AuctionServiceImpl) AbsorbInstallment(ctx context.Context, listingID primitive.ObjectID, installmentNumber int) error {
	listing, err := s.auctionRepo.FindByID(ctx, listingID)
	if err != nil {
		return err
	}
	if listing.Status != models.ListingStatusAbsorbed {
		return fmt.Errorf("listing is %s: %w", listing.Status, models.ErrNotEligible)
	}
	group, err := s.groupRepo.FindByID(ctx, listing.GroupID)
	if err != nil {
		return err
	}
	if installmentNumber < 1 || installmentNumber > group.Term {
		return fmt.Errorf("installment %d out of range 1..%d: %w", installmentNumber, group.Term, models.ErrNotEligible)
	}
	schedule, err := calculator.GenerateSchedule(group.Capital, group.Term, group.ActivationDate, s.rates())
	if err != nil {
		return err
	}
	pureQuota := schedule[installmentNumber-1].Breakdown.PureQuota

	if err := s.reserveRepo.Debit(ctx, listing.GroupID, pureQuota); err != nil {
		if errors.Is(err, models.ErrReserveFundInsufficient) {
			metrics.ReserveDebitsRefused.Inc()
		}
		return err
	}
	if err := s.reserveRepo.AppendEntry(ctx, &models.ReserveEntry{
		GroupID:   listing.GroupID,
		Type:      models.ReserveDebitAbsorption,
		Amount:    pureQuota,
		Reference: fmt.Sprintf("listing:%s installment:%d", listingID.Hex(), installmentNumber),
	}); err != nil {
		slog.Error("Failed to append absorption entry", "listingId", listingID.Hex(), "error", err)
	}
	slog.Info("Absorbed installment covered by reserve", "listingId", listingID.Hex(), "installment", installmentNumber, "pureQuota", pureQuota)
	return nil
}

// GetOpenListings retrieves listings currently accepting bids
func (s *AuctionServiceImpl) GetOpenListings(ctx context.Context) ([]*models.AuctionListing, error) {
	return s.auctionRepo.FindOpen(ctx)
}
