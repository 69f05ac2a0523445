package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReserveEntryType classifies a reserve-fund ledger movement
type ReserveEntryType string

const (
	ReserveCreditAdminFee     ReserveEntryType = "CREDIT_ADMIN_FEE"
	ReserveCreditSubscription ReserveEntryType = "CREDIT_SUBSCRIPTION"
	ReserveCreditPenalty      ReserveEntryType = "CREDIT_PENALTY"
	ReserveDebitAbsorption    ReserveEntryType = "DEBIT_ABSORPTION"
)

// ReserveFund holds the per-group solvency balance
type ReserveFund struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	GroupID   primitive.ObjectID `bson:"groupId" json:"groupId"`
	Balance   float64            `bson:"balance" json:"balance"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ReserveEntry is one append-only movement of a group's reserve fund.
// Amount is always positive; Type determines the direction.
type ReserveEntry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	GroupID   primitive.ObjectID `bson:"groupId" json:"groupId"`
	Type      ReserveEntryType   `bson:"type" json:"type"`
	Amount    float64            `bson:"amount" json:"amount"`
	Reference string             `bson:"reference,omitempty" json:"reference,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
