package models

import "time"

// InstallmentBreakdown is the cost decomposition of a single installment.
// SubscriptionRight is non-zero only on installment 1.
type InstallmentBreakdown struct {
	PureQuota         float64 `bson:"pureQuota" json:"pureQuota"`
	AdminFee          float64 `bson:"adminFee" json:"adminFee"`
	LifeInsurance     float64 `bson:"lifeInsurance" json:"lifeInsurance"`
	SubscriptionRight float64 `bson:"subscriptionRight,omitempty" json:"subscriptionRight,omitempty"`
}

// Installment is one entry of a group's payment schedule. Installments are
// derived deterministically from (capital, term, activationDate) and are
// never persisted as mutable state; only the per-member paid counter moves.
type Installment struct {
	Number    int                  `json:"number"`
	DueDate   *time.Time           `json:"dueDate,omitempty"`
	Label     string               `json:"label"` // "Period n" when the group has no activation date yet
	Breakdown InstallmentBreakdown `json:"breakdown"`
	Total     float64              `json:"total"`
}

// Receipt is the computed payload for a paid installment. Rendering is out
// of scope; this is the structured result only.
type Receipt struct {
	GroupID           string               `json:"groupId"`
	MemberID          string               `json:"memberId"`
	OrderNumber       int                  `json:"orderNumber"`
	InstallmentNumber int                  `json:"installmentNumber"`
	Term              int                  `json:"term"`
	Breakdown         InstallmentBreakdown `json:"breakdown"`
	Total             float64              `json:"total"`
	DueDate           *time.Time           `json:"dueDate,omitempty"`
	PaidAt            time.Time            `json:"paidAt"`
}
