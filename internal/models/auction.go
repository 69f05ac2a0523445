package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ListingStatus represents the lifecycle of a secondary-market listing
type ListingStatus string

const (
	ListingStatusOpen              ListingStatus = "OPEN"
	ListingStatusPendingSettlement ListingStatus = "PENDING_SETTLEMENT"
	ListingStatusSold              ListingStatus = "SOLD"
	ListingStatusAbsorbed          ListingStatus = "ABSORBED" // platform bought the position at base price
	ListingStatusCancelled         ListingStatus = "CANCELLED"
)

// listingTransitions is the closed transition table for ListingStatus.
// PendingSettlement -> Open covers a buyer default followed by re-listing.
var listingTransitions = map[ListingStatus][]ListingStatus{
	ListingStatusOpen:              {ListingStatusPendingSettlement, ListingStatusAbsorbed, ListingStatusCancelled},
	ListingStatusPendingSettlement: {ListingStatusSold, ListingStatusOpen},
	ListingStatusSold:              {},
	ListingStatusAbsorbed:          {ListingStatusSold}, // absorbed positions may be resold later
	ListingStatusCancelled:         {},
}

// CanTransition reports whether a transition from s to next is permitted.
func (s ListingStatus) CanTransition(next ListingStatus) bool {
	for _, allowed := range listingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AuctionBid is a buyer's offer on a listing
type AuctionBid struct {
	BuyerID  string    `bson:"buyerId" json:"buyerId"`
	Amount   float64   `bson:"amount" json:"amount"`
	PlacedAt time.Time `bson:"placedAt" json:"placedAt"`
}

// AuctionListing represents a member's position offered on the secondary market
type AuctionListing struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	GroupID          primitive.ObjectID `bson:"groupId" json:"groupId"`
	MemberID         string             `bson:"memberId" json:"memberId"`
	OrderNumber      int                `bson:"orderNumber" json:"orderNumber"`
	BasePrice        float64            `bson:"basePrice" json:"basePrice"`
	SellerCommission float64            `bson:"sellerCommission" json:"sellerCommission"`
	OutstandingDebt  float64            `bson:"outstandingDebt" json:"outstandingDebt"`
	Status           ListingStatus      `bson:"status" json:"status"`
	ListedAt         time.Time          `bson:"listedAt" json:"listedAt"`
	WindowEndsAt     time.Time          `bson:"windowEndsAt" json:"windowEndsAt"`
	WinningBid       *AuctionBid        `bson:"winningBid,omitempty" json:"winningBid,omitempty"`
	SettlementDueAt  *time.Time         `bson:"settlementDueAt,omitempty" json:"settlementDueAt,omitempty"`
	DefaultedBuyers  []string           `bson:"defaultedBuyers,omitempty" json:"defaultedBuyers,omitempty"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// BuyerBlocked reports whether the buyer previously defaulted on this
// listing and has not yet paid the re-entry penalty.
func (l *AuctionListing) BuyerBlocked(buyerID string) bool {
	for _, b := range l.DefaultedBuyers {
		if b == buyerID {
			return true
		}
	}
	return false
}
