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

// AwardRepository implements the repositories.AwardRepository interface
type AwardRepository struct {
	collection *mongo.Collection
}

// NewAwardRepository creates a new AwardRepository
func NewAwardRepository(db *mongo.Database) repositories.AwardRepository {
	return &AwardRepository{
		collection: db.Collection("awards"),
	}
}

// CreateMany appends the period's award records
func (r *AwardRepository) CreateMany(ctx context.Context, awards []*models.Award) error {
	if len(awards) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(awards))
	now := time.Now()
	for _, award := range awards {
		award.CreatedAt = now
		award.UpdatedAt = now
		docs = append(docs, award)
	}
	res, err := r.collection.InsertMany(ctx, docs)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repositories.ErrDuplicate
		}
		return err
	}
	for i, id := range res.InsertedIDs {
		awards[i].ID = id.(primitive.ObjectID)
	}
	return nil
}

// FindByGroupAndPeriod finds a period's awards
func (r *AwardRepository) FindByGroupAndPeriod(ctx context.Context, groupID primitive.ObjectID, period int) ([]*models.Award, error) {
	return r.find(ctx, bson.M{"groupId": groupID, "period": period})
}

// FindByGroup finds all awards of a group
func (r *AwardRepository) FindByGroup(ctx context.Context, groupID primitive.ObjectID) ([]*models.Award, error) {
	return r.find(ctx, bson.M{"groupId": groupID})
}

func (r *AwardRepository) find(ctx context.Context, filter bson.M) ([]*models.Award, error) {
	opts := options.Find().SetSort(bson.D{{Key: "period", Value: 1}, {Key: "orderNumber", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var awards []*models.Award
	if err := cursor.All(ctx, &awards); err != nil {
		return nil, err
	}
	if awards == nil {
		awards = []*models.Award{}
	}
	return awards, nil
}

// UpdateStatus updates an award record's status
func (r *AwardRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.AwardStatus) error {
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

// FindPendingByGroupAndOrder finds the live (non-forfeited, non-approved)
// award for an order number, if any.
func (r *AwardRepository) FindPendingByGroupAndOrder(ctx context.Context, groupID primitive.ObjectID, orderNumber int) (*models.Award, error) {
	filter := bson.M{
		"groupId":     groupID,
		"orderNumber": orderNumber,
		"status":      bson.M{"$in": []models.AwardStatus{models.AwardStatusPending, models.AwardStatusAccepted}},
	}
	var award models.Award
	err := r.collection.FindOne(ctx, filter).Decode(&award)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &award, nil
}
