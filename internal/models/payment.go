package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaymentConfirmed is the event emitted by the payment collaborator once a
// member's installment payment has cleared. The engine never calls out to
// a gateway; this event is its only payment input.
type PaymentConfirmed struct {
	GroupID           string  `json:"groupId"`
	MemberID          string  `json:"memberId"`
	InstallmentNumber int     `json:"installmentNumber"`
	Amount            float64 `json:"amount"`
}

// Payment is the durable record of a processed PaymentConfirmed event.
// (groupId, memberId, installmentNumber) is unique, which is what makes
// record-payment idempotent under retries.
type Payment struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	PaymentID         string             `bson:"paymentId" json:"paymentId"`
	GroupID           primitive.ObjectID `bson:"groupId" json:"groupId"`
	MemberID          string             `bson:"memberId" json:"memberId"`
	InstallmentNumber int                `bson:"installmentNumber" json:"installmentNumber"`
	Amount            float64            `bson:"amount" json:"amount"`
	ReceivedAt        time.Time          `bson:"receivedAt" json:"receivedAt"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
}
