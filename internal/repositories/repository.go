package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/groupdreaming/rosca-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrDuplicate is returned by Create methods when a unique constraint is
// violated. Services translate it into the domain error that fits the
// operation (AlreadyMember, idempotent payment replay, ...).
var ErrDuplicate = errors.New("duplicate record")

// JoinResult is what the atomic seat claim on the group document yields.
type JoinResult struct {
	OrderNumber    int
	SeatsRemaining int
}

// GroupRepository defines the interface for group data operations
type GroupRepository interface {
	Create(ctx context.Context, group *models.Group) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Group, error)
	FindAll(ctx context.Context) ([]*models.Group, error)
	FindByStatus(ctx context.Context, status models.GroupStatus) ([]*models.Group, error)
	Update(ctx context.Context, group *models.Group) error

	// ClaimSeat atomically assigns the next order number to memberID:
	// in one guarded update it verifies the group is joinable, that
	// memberID is not already on the roster, increments the member
	// counters and appends memberID. Two concurrent claims can never
	// receive the same order number. Returns models.ErrGroupFull,
	// models.ErrAlreadyMember or models.ErrNotEligible as appropriate.
	ClaimSeat(ctx context.Context, id primitive.ObjectID, memberID string) (*JoinResult, error)

	// ReleaseSeat decrements the active-member counter; the order number
	// and roster entry are preserved.
	ReleaseSeat(ctx context.Context, id primitive.ObjectID) error

	// Activate transitions Recruiting -> Active and stamps the
	// activation date, guarded on the current status.
	Activate(ctx context.Context, id primitive.ObjectID, activationDate time.Time) error

	// MarkPeriodResolved advances periodsResolved from period-1 to
	// period and records the period's minimum winning bid offer. The
	// guard makes concurrent resolutions of the same period collide
	// instead of both committing.
	MarkPeriodResolved(ctx context.Context, id primitive.ObjectID, period int, minWinningOffer int) error

	// SetStatus performs a guarded status transition.
	SetStatus(ctx context.Context, id primitive.ObjectID, from, to models.GroupStatus) error

	// ReplaceRosterEntry swaps oldMemberID for newMemberID on the roster
	// in one targeted update, so it cannot clobber a concurrent join.
	ReplaceRosterEntry(ctx context.Context, id primitive.ObjectID, oldMemberID, newMemberID string) error
}

// MemberRepository defines the interface for member data operations
type MemberRepository interface {
	Create(ctx context.Context, member *models.Member) error
	FindByGroupAndMember(ctx context.Context, groupID primitive.ObjectID, memberID string) (*models.Member, error)
	FindByGroupAndOrder(ctx context.Context, groupID primitive.ObjectID, orderNumber int) (*models.Member, error)
	FindByGroup(ctx context.Context, groupID primitive.ObjectID) ([]*models.Member, error)
	FindActiveByGroup(ctx context.Context, groupID primitive.ObjectID) ([]*models.Member, error)
	Update(ctx context.Context, member *models.Member) error

	// IncrementInstallmentsPaid adds delta to the paid counter, guarded
	// so the counter never exceeds term.
	IncrementInstallmentsPaid(ctx context.Context, id primitive.ObjectID, delta int, term int) error

	// SetAwardState performs a guarded state-machine transition; the
	// update only applies while the member is still in from.
	SetAwardState(ctx context.Context, id primitive.ObjectID, from, to models.AwardState, awardPeriod int, awardedAt *time.Time) error

	// SetStatus marks the member terminal (EXITED or SOLD) or active.
	SetStatus(ctx context.Context, id primitive.ObjectID, status models.MemberStatus) error

	// FindStaleAwards returns members stuck in PendingAcceptance whose
	// acceptance window closed before the cutoff.
	FindStaleAwards(ctx context.Context, cutoff time.Time) ([]*models.Member, error)
}

// AwardRepository defines the interface for award data operations.
// Awards are append-only.
type AwardRepository interface {
	CreateMany(ctx context.Context, awards []*models.Award) error
	FindByGroupAndPeriod(ctx context.Context, groupID primitive.ObjectID, period int) ([]*models.Award, error)
	FindByGroup(ctx context.Context, groupID primitive.ObjectID) ([]*models.Award, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.AwardStatus) error
	FindPendingByGroupAndOrder(ctx context.Context, groupID primitive.ObjectID, orderNumber int) (*models.Award, error)
}

// BidRepository defines the interface for adjudication bid operations
type BidRepository interface {
	Create(ctx context.Context, bid *models.Bid) error
	FindByGroupAndPeriod(ctx context.Context, groupID primitive.ObjectID, period int) ([]*models.Bid, error)
	FindByGroupPeriodAndMember(ctx context.Context, groupID primitive.ObjectID, period int, memberID string) (*models.Bid, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.BidStatus) error
}

// AuctionRepository defines the interface for secondary-market listings
type AuctionRepository interface {
	Create(ctx context.Context, listing *models.AuctionListing) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.AuctionListing, error)
	FindOpen(ctx context.Context) ([]*models.AuctionListing, error)
	FindAbsorbed(ctx context.Context) ([]*models.AuctionListing, error)
	FindByGroupAndMember(ctx context.Context, groupID primitive.ObjectID, memberID string) (*models.AuctionListing, error)
	Update(ctx context.Context, listing *models.AuctionListing) error
}

// ReserveFundRepository defines the interface for the per-group solvency
// fund. Credit and Debit move the balance atomically; Debit is guarded so
// the balance can never go negative.
type ReserveFundRepository interface {
	Credit(ctx context.Context, groupID primitive.ObjectID, amount float64) error
	Debit(ctx context.Context, groupID primitive.ObjectID, amount float64) error
	Balance(ctx context.Context, groupID primitive.ObjectID) (float64, error)
	AppendEntry(ctx context.Context, entry *models.ReserveEntry) error
	Entries(ctx context.Context, groupID primitive.ObjectID) ([]*models.ReserveEntry, error)
}

// PaymentRepository defines the interface for processed payment records
type PaymentRepository interface {
	// Create inserts the payment; ErrDuplicate signals the
	// (group, member, installment) triple was already processed.
	Create(ctx context.Context, payment *models.Payment) error
	FindByGroupAndMember(ctx context.Context, groupID primitive.ObjectID, memberID string) ([]*models.Payment, error)
}

// AdminUserRepository defines the interface for admin operator accounts
type AdminUserRepository interface {
	Create(ctx context.Context, adminUser *models.AdminUser) error
	FindByEmail(ctx context.Context, email string) (*models.AdminUser, error)
}
