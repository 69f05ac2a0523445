package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AwardType distinguishes how the capital was adjudicated
type AwardType string

const (
	AwardTypeRaffle AwardType = "RAFFLE"
	AwardTypeBid    AwardType = "BID"
)

// AwardStatus tracks the award record itself. Awards are append-only;
// a forfeited award stays on record but frees the member to win again.
type AwardStatus string

const (
	AwardStatusPending   AwardStatus = "PENDING"
	AwardStatusAccepted  AwardStatus = "ACCEPTED"
	AwardStatusApproved  AwardStatus = "APPROVED"
	AwardStatusForfeited AwardStatus = "FORFEITED"
)

// Award represents one period's capital adjudication to a member
type Award struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	GroupID             primitive.ObjectID `bson:"groupId" json:"groupId"`
	Period              int                `bson:"period" json:"period"`
	OrderNumber         int                `bson:"orderNumber" json:"orderNumber"`
	MemberID            string             `bson:"memberId" json:"memberId"`
	Type                AwardType          `bson:"type" json:"type"`
	Status              AwardStatus        `bson:"status" json:"status"`
	InstallmentsOffered int                `bson:"installmentsOffered,omitempty" json:"installmentsOffered,omitempty"` // bid awards only
	RetentionSurcharge  float64            `bson:"retentionSurcharge,omitempty" json:"retentionSurcharge,omitempty"`   // capital-retention bids only
	AcceptanceDueAt     time.Time          `bson:"acceptanceDueAt" json:"acceptanceDueAt"`
	AwardedAt           time.Time          `bson:"awardedAt" json:"awardedAt"`
	CreatedAt           time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt           time.Time          `bson:"updatedAt" json:"updatedAt"`
}
