// Package memory provides in-memory implementations of the repository
// interfaces. They back the service tests; the mutex per repository gives
// the same effective guarantees as the guarded Mongo updates.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/groupdreaming/rosca-backend/internal/models"
	"github.com/groupdreaming/rosca-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GroupRepository is an in-memory repositories.GroupRepository
type GroupRepository struct {
	mu     sync.Mutex
	groups map[primitive.ObjectID]*models.Group
}

// NewGroupRepository creates an empty in-memory group repository
func NewGroupRepository() *GroupRepository {
	return &GroupRepository{groups: make(map[primitive.ObjectID]*models.Group)}
}

func copyGroup(g *models.Group) *models.Group {
	cp := *g
	cp.MemberIDs = append([]string(nil), g.MemberIDs...)
	return &cp
}

func (r *GroupRepository) Create(ctx context.Context, group *models.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if group.ID.IsZero() {
		group.ID = primitive.NewObjectID()
	}
	group.CreatedAt = time.Now()
	group.UpdatedAt = time.Now()
	r.groups[group.ID] = copyGroup(group)
	return nil
}

func (r *GroupRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	group, ok := r.groups[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return copyGroup(group), nil
}

func (r *GroupRepository) FindAll(ctx context.Context) ([]*models.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Group, 0, len(r.groups))
	for _, g := range r.groups {
		out = append(out, copyGroup(g))
	}
	return out, nil
}

func (r *GroupRepository) FindByStatus(ctx context.Context, status models.GroupStatus) ([]*models.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.Group{}
	for _, g := range r.groups {
		if g.Status == status {
			out = append(out, copyGroup(g))
		}
	}
	return out, nil
}

func (r *GroupRepository) Update(ctx context.Context, group *models.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.groups[group.ID]; !ok {
		return models.ErrNotFound
	}
	group.UpdatedAt = time.Now()
	r.groups[group.ID] = copyGroup(group)
	return nil
}

func (r *GroupRepository) ClaimSeat(ctx context.Context, id primitive.ObjectID, memberID string) (*repositories.JoinResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	group, ok := r.groups[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	for _, m := range group.MemberIDs {
		if m == memberID {
			return nil, models.ErrAlreadyMember
		}
	}
	if group.Status != models.GroupStatusRecruiting && group.Status != models.GroupStatusActive {
		return nil, models.ErrNotEligible
	}
	if group.MembersCount >= group.TotalSeats {
		return nil, models.ErrGroupFull
	}
	group.MembersCount++
	group.ActiveMembers++
	group.MemberIDs = append(group.MemberIDs, memberID)
	group.UpdatedAt = time.Now()
	return &repositories.JoinResult{
		OrderNumber:    group.MembersCount,
		SeatsRemaining: group.TotalSeats - group.MembersCount,
	}, nil
}

func (r *GroupRepository) ReleaseSeat(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	group, ok := r.groups[id]
	if !ok {
		return models.ErrNotFound
	}
	if group.ActiveMembers <= 0 {
		return models.ErrTransientConflict
	}
	group.ActiveMembers--
	group.UpdatedAt = time.Now()
	return nil
}

func (r *GroupRepository) Activate(ctx context.Context, id primitive.ObjectID, activationDate time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	group, ok := r.groups[id]
	if !ok {
		return models.ErrNotFound
	}
	if group.Status != models.GroupStatusRecruiting {
		return models.ErrTransientConflict
	}
	group.Status = models.GroupStatusActive
	group.ActivationDate = &activationDate
	group.UpdatedAt = time.Now()
	return nil
}

func (r *GroupRepository) MarkPeriodResolved(ctx context.Context, id primitive.ObjectID, period int, minWinningOffer int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	group, ok := r.groups[id]
	if !ok {
		return models.ErrNotFound
	}
	if group.PeriodsResolved != period-1 {
		return models.ErrTransientConflict
	}
	group.PeriodsResolved = period
	// A period with no bid winner leaves the raised minimum in place.
	if minWinningOffer > 0 {
		group.MinWinningOffer = minWinningOffer
	}
	group.UpdatedAt = time.Now()
	return nil
}

func (r *GroupRepository) SetStatus(ctx context.Context, id primitive.ObjectID, from, to models.GroupStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	group, ok := r.groups[id]
	if !ok {
		return models.ErrNotFound
	}
	if !from.CanTransition(to) {
		return models.ErrInvalidTransition
	}
	if group.Status != from {
		return models.ErrTransientConflict
	}
	group.Status = to
	group.UpdatedAt = time.Now()
	return nil
}

func (r *GroupRepository) ReplaceRosterEntry(ctx context.Context, id primitive.ObjectID, oldMemberID, newMemberID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	group, ok := r.groups[id]
	if !ok {
		return models.ErrNotFound
	}
	for i, m := range group.MemberIDs {
		if m == oldMemberID {
			group.MemberIDs[i] = newMemberID
			group.UpdatedAt = time.Now()
			return nil
		}
	}
	return models.ErrNotFound
}
