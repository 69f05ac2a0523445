package services

import (
	"context"

	"github.com/groupdreaming/rosca-backend/internal/models"
	"github.com/groupdreaming/rosca-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Compile-time check to ensure ReserveFundServiceImpl implements ReserveFundService
var _ ReserveFundService = (*ReserveFundServiceImpl)(nil)

// ReserveFundServiceImpl exposes the reserve fund read-only. Credits and
// debits are owned by the payment, membership and auction flows.
type ReserveFundServiceImpl struct {
	reserveRepo repositories.ReserveFundRepository
}

// NewReserveFundService creates a new ReserveFundServiceImpl
func NewReserveFundService(reserveRepo repositories.ReserveFundRepository) *ReserveFundServiceImpl {
	return &ReserveFundServiceImpl{reserveRepo: reserveRepo}
}

// Balance returns the group's current reserve balance
func (s *ReserveFundServiceImpl) Balance(ctx context.Context, groupID primitive.ObjectID) (float64, error) {
	return s.reserveRepo.Balance(ctx, groupID)
}

// Entries returns the group's reserve ledger, oldest first
func (s *ReserveFundServiceImpl) Entries(ctx context.Context, groupID primitive.ObjectID) ([]*models.ReserveEntry, error) {
	return s.reserveRepo.Entries(ctx, groupID)
}
