package services

import (
	"context"
	"time"

	"github.com/groupdreaming/rosca-backend/internal/calculator"
	"github.com/groupdreaming/rosca-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GroupService defines the interface for group lifecycle and schedule operations
type GroupService interface {
	// CreateGroup creates a recruiting group from explicit parameters
	CreateGroup(ctx context.Context, name string, capital float64, term int) (*models.Group, error)

	// CreateFromTemplate creates a recruiting group from a catalogue template
	CreateFromTemplate(ctx context.Context, templateName string) (*models.Group, error)

	// Templates returns the catalogue of group templates
	Templates() []models.GroupTemplate

	// GetGroup retrieves a group by its ID
	GetGroup(ctx context.Context, id primitive.ObjectID) (*models.Group, error)

	// GetGroups retrieves all groups, optionally filtered by status
	GetGroups(ctx context.Context, status models.GroupStatus) ([]*models.Group, error)

	// Schedule returns the group's installment schedule. Before activation
	// the due dates are omitted.
	Schedule(ctx context.Context, id primitive.ObjectID) ([]models.Installment, error)

	// PreviewSchedule derives a schedule for arbitrary terms without a group
	PreviewSchedule(capital float64, term int) ([]models.Installment, error)
}

// MembershipService defines the interface for joining and leaving groups
type MembershipService interface {
	// Join atomically claims the next seat for memberID. The first
	// installment is considered paid on joining. When the last seat is
	// claimed the group activates.
	Join(ctx context.Context, groupID primitive.ObjectID, memberID string) (*models.Member, error)

	// Leave exits a not-awarded member voluntarily, withholding the exit
	// penalty from the refund of contributed pure capital.
	Leave(ctx context.Context, groupID primitive.ObjectID, memberID string) (*ExitStatement, error)

	// GetMember retrieves a member row
	GetMember(ctx context.Context, groupID primitive.ObjectID, memberID string) (*models.Member, error)

	// GetMembers retrieves a group's members ordered by order number
	GetMembers(ctx context.Context, groupID primitive.ObjectID) ([]*models.Member, error)
}

// ExitStatement is the financial outcome of a voluntary exit
type ExitStatement struct {
	PureCapitalContributed float64 `json:"pureCapitalContributed"`
	Penalty                float64 `json:"penalty"`
	Refund                 float64 `json:"refund"`
}

// PaymentService defines the interface for processing payment events
type PaymentService interface {
	// RecordPayment processes a confirmed installment payment. Replays of
	// the same (group, member, installment) triple are no-ops.
	RecordPayment(ctx context.Context, event models.PaymentConfirmed) error

	// GetPayments retrieves a member's processed payments
	GetPayments(ctx context.Context, groupID primitive.ObjectID, memberID string) ([]*models.Payment, error)

	// Receipt builds the structured receipt for a paid installment
	Receipt(ctx context.Context, groupID primitive.ObjectID, memberID string, installmentNumber int) (*models.Receipt, error)
}

// AdjudicationService defines the interface for the monthly capital
// adjudication: raffle draw, bidding and the award state machine.
type AdjudicationService interface {
	// SubmitBid records a member's offer to prepay installments for the
	// current period's bid seat
	SubmitBid(ctx context.Context, groupID primitive.ObjectID, memberID string, installmentsOffered int, mode models.BidMode) (*models.Bid, error)

	// MinimumBid returns the lowest offer currently accepted for the group
	MinimumBid(ctx context.Context, groupID primitive.ObjectID) (int, error)

	// ResolvePeriod runs the period's raffle and bid adjudication. Calling
	// it again for an already-resolved period returns the recorded awards
	// without drawing again.
	ResolvePeriod(ctx context.Context, groupID primitive.ObjectID, period int) ([]*models.Award, error)

	// AcceptAward moves an awarded member from pending acceptance to
	// pending guarantee, provided the acceptance window is still open
	AcceptAward(ctx context.Context, groupID primitive.ObjectID, memberID string) error

	// ApproveAward finalizes an award once guarantees are verified
	ApproveAward(ctx context.Context, groupID primitive.ObjectID, memberID string) error

	// ExpireStaleAwards forfeits awards whose acceptance window closed,
	// returning the awarded members to the eligible pool. Returns how
	// many awards were forfeited.
	ExpireStaleAwards(ctx context.Context) (int, error)

	// GetAwards retrieves a group's award history
	GetAwards(ctx context.Context, groupID primitive.ObjectID) ([]*models.Award, error)
}

// AuctionService defines the interface for the secondary market
type AuctionService interface {
	// QuoteListing computes the seller-side economics of listing a
	// position without creating the listing
	QuoteListing(ctx context.Context, groupID primitive.ObjectID, memberID string) (*calculator.AuctionQuote, error)

	// ListForSale puts an eligible member's position on the market
	ListForSale(ctx context.Context, groupID primitive.ObjectID, memberID string) (*models.AuctionListing, error)

	// PlaceBid records a buyer's offer on an open listing
	PlaceBid(ctx context.Context, listingID primitive.ObjectID, buyerID string, amount float64) (*models.AuctionListing, error)

	// CloseBidding ends an expired bidding window: with a winning bid the
	// listing moves to pending settlement, without one it is absorbed by
	// the platform at base price
	CloseBidding(ctx context.Context, listingID primitive.ObjectID) (*models.AuctionListing, error)

	// Settle confirms the buyer paid within the settlement window and
	// transfers the position
	Settle(ctx context.Context, listingID primitive.ObjectID) (*SettlementStatement, error)

	// RecordBuyerDefault penalizes a buyer who missed the settlement
	// window and re-opens the listing
	RecordBuyerDefault(ctx context.Context, listingID primitive.ObjectID) (*models.AuctionListing, error)

	// AbsorbInstallment pays an absorbed position's pure quota out of the
	// group's reserve fund
	AbsorbInstallment(ctx context.Context, listingID primitive.ObjectID, installmentNumber int) error

	// GetOpenListings retrieves listings currently accepting bids
	GetOpenListings(ctx context.Context) ([]*models.AuctionListing, error)
}

// SettlementStatement is the financial outcome of a completed sale
type SettlementStatement struct {
	Price           float64 `json:"price"`
	BuyerCommission float64 `json:"buyerCommission"`
	SellerNet       float64 `json:"sellerNet"`
	BuyerID         string  `json:"buyerId"`
}

// ReserveFundService defines the read interface over the per-group
// solvency fund. Credits and debits happen inside the owning operations.
type ReserveFundService interface {
	Balance(ctx context.Context, groupID primitive.ObjectID) (float64, error)
	Entries(ctx context.Context, groupID primitive.ObjectID) ([]*models.ReserveEntry, error)
}

// AuthService defines the interface for admin authentication
type AuthService interface {
	// Login verifies credentials and returns a signed token with its expiry
	Login(ctx context.Context, email, password string) (string, time.Time, error)

	// CreateAdmin registers an admin operator account
	CreateAdmin(ctx context.Context, email, password, role string) (*models.AdminUser, error)
}
