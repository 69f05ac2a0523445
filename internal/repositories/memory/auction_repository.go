package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/groupdreaming/rosca-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuctionRepository is an in-memory repositories.AuctionRepository
type AuctionRepository struct {
	mu       sync.Mutex
	listings map[primitive.ObjectID]*models.AuctionListing
}

// NewAuctionRepository creates an empty in-memory auction repository
func NewAuctionRepository() *AuctionRepository {
	return &AuctionRepository{listings: make(map[primitive.ObjectID]*models.AuctionListing)}
}

func copyListing(l *models.AuctionListing) *models.AuctionListing {
	cp := *l
	cp.DefaultedBuyers = append([]string(nil), l.DefaultedBuyers...)
	if l.WinningBid != nil {
		bid := *l.WinningBid
		cp.WinningBid = &bid
	}
	return &cp
}

func (r *AuctionRepository) Create(ctx context.Context, listing *models.AuctionListing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if listing.ID.IsZero() {
		listing.ID = primitive.NewObjectID()
	}
	listing.CreatedAt = time.Now()
	listing.UpdatedAt = time.Now()
	r.listings[listing.ID] = copyListing(listing)
	return nil
}

func (r *AuctionRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.AuctionListing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	listing, ok := r.listings[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return copyListing(listing), nil
}

func (r *AuctionRepository) FindOpen(ctx context.Context) ([]*models.AuctionListing, error) {
	return r.findByStatus(models.ListingStatusOpen), nil
}

func (r *AuctionRepository) FindAbsorbed(ctx context.Context) ([]*models.AuctionListing, error) {
	return r.findByStatus(models.ListingStatusAbsorbed), nil
}

func (r *AuctionRepository) findByStatus(status models.ListingStatus) []*models.AuctionListing {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.AuctionListing{}
	for _, l := range r.listings {
		if l.Status == status {
			out = append(out, copyListing(l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ListedAt.Before(out[j].ListedAt) })
	return out
}

func (r *AuctionRepository) FindByGroupAndMember(ctx context.Context, groupID primitive.ObjectID, memberID string) (*models.AuctionListing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.listings {
		if l.GroupID == groupID && l.MemberID == memberID {
			return copyListing(l), nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *AuctionRepository) Update(ctx context.Context, listing *models.AuctionListing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.listings[listing.ID]; !ok {
		return models.ErrNotFound
	}
	listing.UpdatedAt = time.Now()
	r.listings[listing.ID] = copyListing(listing)
	return nil
}
