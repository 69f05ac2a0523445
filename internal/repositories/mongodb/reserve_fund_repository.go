package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/groupdreaming/rosca-backend/internal/models"
	"github.com/groupdreaming/rosca-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ReserveFundRepository implements the repositories.ReserveFundRepository
// interface. Balances and ledger entries live in separate collections;
// the balance document is the transactional record, entries are the
// append-only audit trail.
type ReserveFundRepository struct {
	funds   *mongo.Collection
	entries *mongo.Collection
}

// NewReserveFundRepository creates a new ReserveFundRepository
func NewReserveFundRepository(db *mongo.Database) repositories.ReserveFundRepository {
	return &ReserveFundRepository{
		funds:   db.Collection("reserve_funds"),
		entries: db.Collection("reserve_entries"),
	}
}

// Credit atomically adds to the group's reserve balance, creating the
// fund document on first credit.
func (r *ReserveFundRepository) Credit(ctx context.Context, groupID primitive.ObjectID, amount float64) error {
	opts := options.Update().SetUpsert(true)
	_, err := r.funds.UpdateOne(ctx,
		bson.M{"groupId": groupID},
		bson.M{
			"$inc":         bson.M{"balance": amount},
			"$set":         bson.M{"updatedAt": time.Now()},
			"$setOnInsert": bson.M{"groupId": groupID, "createdAt": time.Now()},
		},
		opts,
	)
	return err
}

// Debit atomically subtracts from the balance, guarded so the balance can
// never go negative. A refused debit leaves the balance unchanged.
func (r *ReserveFundRepository) Debit(ctx context.Context, groupID primitive.ObjectID, amount float64) error {
	res, err := r.funds.UpdateOne(ctx,
		bson.M{"groupId": groupID, "balance": bson.M{"$gte": amount}},
		bson.M{
			"$inc": bson.M{"balance": -amount},
			"$set": bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrReserveFundInsufficient
	}
	return nil
}

// Balance returns the group's current reserve balance
func (r *ReserveFundRepository) Balance(ctx context.Context, groupID primitive.ObjectID) (float64, error) {
	var fund models.ReserveFund
	err := r.funds.FindOne(ctx, bson.M{"groupId": groupID}).Decode(&fund)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, nil // no movements yet
		}
		return 0, err
	}
	return fund.Balance, nil
}

// AppendEntry appends a ledger entry
func (r *ReserveFundRepository) AppendEntry(ctx context.Context, entry *models.ReserveEntry) error {
	entry.CreatedAt = time.Now()
	res, err := r.entries.InsertOne(ctx, entry)
	if err != nil {
		return err
	}
	entry.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// Entries returns a group's ledger entries, oldest first
func (r *ReserveFundRepository) Entries(ctx context.Context, groupID primitive.ObjectID) ([]*models.ReserveEntry, error) {
	opts := options.Find().SetSort(bson.M{"createdAt": 1})
	cursor, err := r.entries.Find(ctx, bson.M{"groupId": groupID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []*models.ReserveEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*models.ReserveEntry{}
	}
	return entries, nil
}
