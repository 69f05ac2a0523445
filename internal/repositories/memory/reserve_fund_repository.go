package memory

import (
	"context"
	"sync"
	"time"

	"github.com/groupdreaming/rosca-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReserveFundRepository is an in-memory repositories.ReserveFundRepository
type ReserveFundRepository struct {
	mu       sync.Mutex
	balances map[primitive.ObjectID]float64
	entries  []*models.ReserveEntry
}

// NewReserveFundRepository creates an empty in-memory reserve-fund repository
func NewReserveFundRepository() *ReserveFundRepository {
	return &ReserveFundRepository{balances: make(map[primitive.ObjectID]float64)}
}

func (r *ReserveFundRepository) Credit(ctx context.Context, groupID primitive.ObjectID, amount float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[groupID] += amount
	return nil
}

func (r *ReserveFundRepository) Debit(ctx context.Context, groupID primitive.ObjectID, amount float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.balances[groupID] < amount {
		return models.ErrReserveFundInsufficient
	}
	r.balances[groupID] -= amount
	return nil
}

func (r *ReserveFundRepository) Balance(ctx context.Context, groupID primitive.ObjectID) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balances[groupID], nil
}

func (r *ReserveFundRepository) AppendEntry(ctx context.Context, entry *models.ReserveEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	entry.CreatedAt = time.Now()
	cp := *entry
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *ReserveFundRepository) Entries(ctx context.Context, groupID primitive.ObjectID) ([]*models.ReserveEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.ReserveEntry{}
	for _, e := range r.entries {
		if e.GroupID == groupID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}
