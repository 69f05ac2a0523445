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

// BidRepository is an in-memory repositories.BidRepository
type BidRepository struct {
	mu   sync.Mutex
	bids []*models.Bid
}

// NewBidRepository creates an empty in-memory bid repository
func NewBidRepository() *BidRepository {
	return &BidRepository{}
}

func copyBid(b *models.Bid) *models.Bid {
	cp := *b
	return &cp
}

func (r *BidRepository) Create(ctx context.Context, bid *models.Bid) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.bids {
		if existing.GroupID == bid.GroupID && existing.Period == bid.Period && existing.MemberID == bid.MemberID {
			return repositories.ErrDuplicate
		}
	}
	if bid.ID.IsZero() {
		bid.ID = primitive.NewObjectID()
	}
	bid.CreatedAt = time.Now()
	bid.UpdatedAt = time.Now()
	r.bids = append(r.bids, copyBid(bid))
	return nil
}

func (r *BidRepository) FindByGroupAndPeriod(ctx context.Context, groupID primitive.ObjectID, period int) ([]*models.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.Bid{}
	for _, b := range r.bids {
		if b.GroupID == groupID && b.Period == period {
			out = append(out, copyBid(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out, nil
}

func (r *BidRepository) FindByGroupPeriodAndMember(ctx context.Context, groupID primitive.ObjectID, period int, memberID string) (*models.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bids {
		if b.GroupID == groupID && b.Period == period && b.MemberID == memberID {
			return copyBid(b), nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *BidRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.BidStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bids {
		if b.ID == id {
			b.Status = status
			b.UpdatedAt = time.Now()
			return nil
		}
	}
	return models.ErrNotFound
}
