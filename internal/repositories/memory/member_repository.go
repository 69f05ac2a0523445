package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/groupdreaming/rosca-backend/internal/models"
	"github.com/groupdreaming/rosca-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemberRepository is an in-memory repositories.MemberRepository
type MemberRepository struct {
	mu      sync.Mutex
	members map[primitive.ObjectID]*models.Member
}

// NewMemberRepository creates an empty in-memory member repository
func NewMemberRepository() *MemberRepository {
	return &MemberRepository{members: make(map[primitive.ObjectID]*models.Member)}
}

func copyMember(m *models.Member) *models.Member {
	cp := *m
	return &cp
}

func (r *MemberRepository) Create(ctx context.Context, member *models.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members {
		if m.GroupID == member.GroupID && m.MemberID == member.MemberID {
			return repositories.ErrDuplicate
		}
		// Order numbers are unique among active rows only; a retired
		// seller's row keeps its number alongside the buyer's.
		if m.GroupID == member.GroupID && m.OrderNumber == member.OrderNumber &&
			m.Status == models.MemberStatusActive && member.Status == models.MemberStatusActive {
			return repositories.ErrDuplicate
		}
	}
	if member.ID.IsZero() {
		member.ID = primitive.NewObjectID()
	}
	member.CreatedAt = time.Now()
	member.UpdatedAt = time.Now()
	r.members[member.ID] = copyMember(member)
	return nil
}

func (r *MemberRepository) FindByGroupAndMember(ctx context.Context, groupID primitive.ObjectID, memberID string) (*models.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members {
		if m.GroupID == groupID && m.MemberID == memberID {
			return copyMember(m), nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *MemberRepository) FindByGroupAndOrder(ctx context.Context, groupID primitive.ObjectID, orderNumber int) (*models.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members {
		if m.GroupID == groupID && m.OrderNumber == orderNumber {
			return copyMember(m), nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *MemberRepository) FindByGroup(ctx context.Context, groupID primitive.ObjectID) ([]*models.Member, error) {
	return r.findByGroup(groupID, false), nil
}

func (r *MemberRepository) FindActiveByGroup(ctx context.Context, groupID primitive.ObjectID) ([]*models.Member, error) {
	return r.findByGroup(groupID, true), nil
}

func (r *MemberRepository) findByGroup(groupID primitive.ObjectID, activeOnly bool) []*models.Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.Member{}
	for _, m := range r.members {
		if m.GroupID != groupID {
			continue
		}
		if activeOnly && m.Status != models.MemberStatusActive {
			continue
		}
		out = append(out, copyMember(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderNumber < out[j].OrderNumber })
	return out
}

func (r *MemberRepository) Update(ctx context.Context, member *models.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[member.ID]; !ok {
		return models.ErrNotFound
	}
	member.UpdatedAt = time.Now()
	r.members[member.ID] = copyMember(member)
	return nil
}

func (r *MemberRepository) IncrementInstallmentsPaid(ctx context.Context, id primitive.ObjectID, delta int, term int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	member, ok := r.members[id]
	if !ok {
		return models.ErrNotFound
	}
	if member.Status != models.MemberStatusActive || member.InstallmentsPaid+delta > term {
		return models.ErrNotEligible
	}
	member.InstallmentsPaid += delta
	member.UpdatedAt = time.Now()
	return nil
}

func (r *MemberRepository) SetAwardState(ctx context.Context, id primitive.ObjectID, from, to models.AwardState, awardPeriod int, awardedAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	member, ok := r.members[id]
	if !ok {
		return models.ErrNotFound
	}
	if !from.CanTransition(to) {
		return models.ErrInvalidTransition
	}
	if member.AwardState != from {
		return models.ErrTransientConflict
	}
	member.AwardState = to
	if awardPeriod > 0 {
		member.AwardPeriod = awardPeriod
	}
	if awardedAt != nil {
		member.AwardedAt = awardedAt
	}
	member.UpdatedAt = time.Now()
	return nil
}

func (r *MemberRepository) SetStatus(ctx context.Context, id primitive.ObjectID, status models.MemberStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	member, ok := r.members[id]
	if !ok {
		return models.ErrNotFound
	}
	member.Status = status
	member.UpdatedAt = time.Now()
	return nil
}

func (r *MemberRepository) FindStaleAwards(ctx context.Context, cutoff time.Time) ([]*models.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.Member{}
	for _, m := range r.members {
		if m.AwardState == models.AwardStatePendingAcceptance && m.AwardedAt != nil && m.AwardedAt.Before(cutoff) {
			out = append(out, copyMember(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderNumber < out[j].OrderNumber })
	return out, nil
}
