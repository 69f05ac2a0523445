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

// BidRepository implements the repositories.BidRepository interface
type BidRepository struct {
	collection *mongo.Collection
}

// NewBidRepository creates a new BidRepository
func NewBidRepository(db *mongo.Database) repositories.BidRepository {
	return &BidRepository{
		collection: db.Collection("bids"),
	}
}

// Create records a bid for the period
func (r *BidRepository) Create(ctx context.Context, bid *models.Bid) error {
	bid.CreatedAt = time.Now()
	bid.UpdatedAt = time.Now()
	res, err := r.collection.InsertOne(ctx, bid)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repositories.ErrDuplicate
		}
		return err
	}
	bid.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// FindByGroupAndPeriod finds a period's bids ordered by submission time
func (r *BidRepository) FindByGroupAndPeriod(ctx context.Context, groupID primitive.ObjectID, period int) ([]*models.Bid, error) {
	opts := options.Find().SetSort(bson.M{"submittedAt": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"groupId": groupID, "period": period}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var bids []*models.Bid
	if err := cursor.All(ctx, &bids); err != nil {
		return nil, err
	}
	if bids == nil {
		bids = []*models.Bid{}
	}
	return bids, nil
}

// FindByGroupPeriodAndMember finds a member's bid for the period
func (r *BidRepository) FindByGroupPeriodAndMember(ctx context.Context, groupID primitive.ObjectID, period int, memberID string) (*models.Bid, error) {
	var bid models.Bid
	err := r.collection.FindOne(ctx, bson.M{"groupId": groupID, "period": period, "memberId": memberID}).Decode(&bid)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &bid, nil
}

// UpdateStatus marks a bid won or lost after resolution
func (r *BidRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.BidStatus) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}
