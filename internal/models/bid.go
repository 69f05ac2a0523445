package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BidMode selects how a winning bid is settled
type BidMode string

const (
	// BidModeStandard prepays the offered installments at pure-quota value.
	BidModeStandard BidMode = "STANDARD"
	// BidModeCapitalRetention keeps the prepaid capital on deposit and
	// carries a configured surcharge over the prepaid pure-quota total.
	BidModeCapitalRetention BidMode = "CAPITAL_RETENTION"
)

// BidStatus tracks a bid's outcome within its period
type BidStatus string

const (
	BidStatusPending BidStatus = "PENDING"
	BidStatusWon     BidStatus = "WON"
	BidStatusLost    BidStatus = "LOST"
)

// Bid represents an offer to prepay future installments in exchange for
// this period's adjudication
type Bid struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	GroupID             primitive.ObjectID `bson:"groupId" json:"groupId"`
	Period              int                `bson:"period" json:"period"`
	MemberID            string             `bson:"memberId" json:"memberId"`
	OrderNumber         int                `bson:"orderNumber" json:"orderNumber"`
	InstallmentsOffered int                `bson:"installmentsOffered" json:"installmentsOffered"`
	Mode                BidMode            `bson:"mode" json:"mode"`
	Status              BidStatus          `bson:"status" json:"status"`
	SubmittedAt         time.Time          `bson:"submittedAt" json:"submittedAt"`
	CreatedAt           time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt           time.Time          `bson:"updatedAt" json:"updatedAt"`
}
