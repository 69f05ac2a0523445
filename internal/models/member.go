package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AwardState represents a member's position in the adjudication state machine
type AwardState string

const (
	AwardStateNotAwarded        AwardState = "NOT_AWARDED"
	AwardStatePendingAcceptance AwardState = "AWARDED_PENDING_ACCEPTANCE"
	AwardStatePendingGuarantee  AwardState = "AWARDED_PENDING_GUARANTEE"
	AwardStateApproved          AwardState = "AWARDED_APPROVED"
)

// awardTransitions is the closed transition table for AwardState. The
// reverse edge PendingAcceptance -> NotAwarded covers forfeiture of an
// award that was not accepted within the acceptance window.
var awardTransitions = map[AwardState][]AwardState{
	AwardStateNotAwarded:        {AwardStatePendingAcceptance},
	AwardStatePendingAcceptance: {AwardStatePendingGuarantee, AwardStateNotAwarded},
	AwardStatePendingGuarantee:  {AwardStateApproved},
	AwardStateApproved:          {},
}

// CanTransition reports whether a transition from s to next is permitted.
func (s AwardState) CanTransition(next AwardState) bool {
	for _, allowed := range awardTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// MemberStatus represents whether a member still participates in the group
type MemberStatus string

const (
	MemberStatusActive MemberStatus = "ACTIVE"
	MemberStatusExited MemberStatus = "EXITED" // voluntary leave, order number preserved
	MemberStatusSold   MemberStatus = "SOLD"   // position transferred on the secondary market
)

// Member represents a participant in a group. A member is never deleted:
// exit and sale mark it terminal so historical order numbers stay intact.
type Member struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	GroupID           primitive.ObjectID `bson:"groupId" json:"groupId"`
	MemberID          string             `bson:"memberId" json:"memberId"` // opaque identity from the identity collaborator
	OrderNumber       int                `bson:"orderNumber" json:"orderNumber"`
	JoinedAt          time.Time          `bson:"joinedAt" json:"joinedAt"`
	Status            MemberStatus       `bson:"status" json:"status"`
	InstallmentsPaid  int                `bson:"installmentsPaid" json:"installmentsPaid"`
	AwardState        AwardState         `bson:"awardState" json:"awardState"`
	AwardPeriod       int                `bson:"awardPeriod,omitempty" json:"awardPeriod,omitempty"`
	AwardedAt         *time.Time         `bson:"awardedAt,omitempty" json:"awardedAt,omitempty"`
	GuaranteeDueAt    *time.Time         `bson:"guaranteeDueAt,omitempty" json:"guaranteeDueAt,omitempty"`
	SubscriptionPaid  bool               `bson:"subscriptionPaid" json:"subscriptionPaid"`
	AcquiredInAuction bool               `bson:"acquiredInAuction,omitempty" json:"acquiredInAuction,omitempty"` // position bought on the secondary market
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// RemainingInstallments returns how many installments the member has not
// yet paid for a group with the given term.
func (m *Member) RemainingInstallments(term int) int {
	remaining := term - m.InstallmentsPaid
	if remaining < 0 {
		return 0
	}
	return remaining
}
