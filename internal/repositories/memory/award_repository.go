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

// AwardRepository is an in-memory repositories.AwardRepository
type AwardRepository struct {
	mu     sync.Mutex
	awards []*models.Award
}

// NewAwardRepository creates an empty in-memory award repository
func NewAwardRepository() *AwardRepository {
	return &AwardRepository{}
}

func copyAward(a *models.Award) *models.Award {
	cp := *a
	return &cp
}

func (r *AwardRepository) CreateMany(ctx context.Context, awards []*models.Award) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, award := range awards {
		for _, existing := range r.awards {
			if existing.GroupID == award.GroupID && existing.Period == award.Period && existing.OrderNumber == award.OrderNumber {
				return repositories.ErrDuplicate
			}
		}
	}
	now := time.Now()
	for _, award := range awards {
		if award.ID.IsZero() {
			award.ID = primitive.NewObjectID()
		}
		award.CreatedAt = now
		award.UpdatedAt = now
		r.awards = append(r.awards, copyAward(award))
	}
	return nil
}

func (r *AwardRepository) FindByGroupAndPeriod(ctx context.Context, groupID primitive.ObjectID, period int) ([]*models.Award, error) {
	return r.find(func(a *models.Award) bool { return a.GroupID == groupID && a.Period == period }), nil
}

func (r *AwardRepository) FindByGroup(ctx context.Context, groupID primitive.ObjectID) ([]*models.Award, error) {
	return r.find(func(a *models.Award) bool { return a.GroupID == groupID }), nil
}

func (r *AwardRepository) find(match func(*models.Award) bool) []*models.Award {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.Award{}
	for _, a := range r.awards {
		if match(a) {
			out = append(out, copyAward(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Period != out[j].Period {
			return out[i].Period < out[j].Period
		}
		return out[i].OrderNumber < out[j].OrderNumber
	})
	return out
}

func (r *AwardRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.AwardStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.awards {
		if a.ID == id {
			a.Status = status
			a.UpdatedAt = time.Now()
			return nil
		}
	}
	return models.ErrNotFound
}

func (r *AwardRepository) FindPendingByGroupAndOrder(ctx context.Context, groupID primitive.ObjectID, orderNumber int) (*models.Award, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.awards {
		if a.GroupID == groupID && a.OrderNumber == orderNumber &&
			(a.Status == models.AwardStatusPending || a.Status == models.AwardStatusAccepted) {
			return copyAward(a), nil
		}
	}
	return nil, models.ErrNotFound
}
