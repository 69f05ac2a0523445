package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GroupStatus represents the lifecycle status of a savings group
type GroupStatus string

const (
	GroupStatusRecruiting GroupStatus = "RECRUITING"
	GroupStatusActive     GroupStatus = "ACTIVE"
	GroupStatusInAuction  GroupStatus = "IN_AUCTION"
	GroupStatusClosed     GroupStatus = "CLOSED"
)

// groupTransitions is the closed transition table for GroupStatus.
var groupTransitions = map[GroupStatus][]GroupStatus{
	GroupStatusRecruiting: {GroupStatusActive, GroupStatusClosed},
	GroupStatusActive:     {GroupStatusInAuction, GroupStatusClosed},
	GroupStatusInAuction:  {GroupStatusActive, GroupStatusClosed},
	GroupStatusClosed:     {},
}

// CanTransition reports whether a transition from s to next is permitted.
func (s GroupStatus) CanTransition(next GroupStatus) bool {
	for _, allowed := range groupTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Group represents a rotating savings group
type Group struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name              string             `bson:"name" json:"name"`
	Capital           float64            `bson:"capital" json:"capital"`
	Term              int                `bson:"term" json:"term"`
	RafflesPerPeriod  int                `bson:"rafflesPerPeriod" json:"rafflesPerPeriod"`
	BidsPerPeriod     int                `bson:"bidsPerPeriod" json:"bidsPerPeriod"`
	TotalSeats        int                `bson:"totalSeats" json:"totalSeats"`
	MembersCount      int                `bson:"membersCount" json:"membersCount"`
	ActiveMembers     int                `bson:"activeMembers" json:"activeMembers"`
	MemberIDs         []string           `bson:"memberIds,omitempty" json:"-"` // roster kept on the group document so joins are one atomic update
	Status            GroupStatus        `bson:"status" json:"status"`
	ActivationDate    *time.Time         `bson:"activationDate,omitempty" json:"activationDate,omitempty"`
	PeriodsResolved   int                `bson:"periodsResolved" json:"periodsResolved"`
	MinWinningOffer   int                `bson:"minWinningOffer" json:"minWinningOffer"` // installments offered by last period's lowest bid winner
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// SeatsPerPeriod returns the number of adjudication seats each period.
func (g *Group) SeatsPerPeriod() int {
	return g.RafflesPerPeriod + g.BidsPerPeriod
}

// IsFull reports whether every seat in the group is taken.
func (g *Group) IsFull() bool {
	return g.MembersCount >= g.TotalSeats
}

// GroupTemplate represents a catalogue template a group is created from
type GroupTemplate struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name    string             `bson:"name" json:"name"`
	Capital float64            `bson:"capital" json:"capital"`
	Term    int                `bson:"term" json:"term"`
}
