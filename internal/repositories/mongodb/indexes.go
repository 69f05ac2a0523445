package mongodb

import (
	"context"

	"github.com/groupdreaming/rosca-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the unique indexes the write paths depend on.
// Idempotent payment recording, one bid per member per period and one
// membership row per (group, member) are all enforced here rather than
// in application code.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	unique := options.Index().SetUnique(true)

	specs := map[string][]mongo.IndexModel{
		"members": {
			{Keys: bson.D{{Key: "groupId", Value: 1}, {Key: "memberId", Value: 1}}, Options: unique},
			// Partial: a retired row (EXITED, SOLD) keeps its order number
			// while the buyer's active row takes it over on settlement.
			{Keys: bson.D{{Key: "groupId", Value: 1}, {Key: "orderNumber", Value: 1}},
				Options: options.Index().SetUnique(true).SetPartialFilterExpression(
					bson.D{{Key: "status", Value: models.MemberStatusActive}})},
		},
		"payments": {
			{Keys: bson.D{{Key: "groupId", Value: 1}, {Key: "memberId", Value: 1}, {Key: "installmentNumber", Value: 1}}, Options: unique},
		},
		"awards": {
			{Keys: bson.D{{Key: "groupId", Value: 1}, {Key: "period", Value: 1}, {Key: "orderNumber", Value: 1}}, Options: unique},
		},
		"bids": {
			{Keys: bson.D{{Key: "groupId", Value: 1}, {Key: "period", Value: 1}, {Key: "memberId", Value: 1}}, Options: unique},
		},
		"reserve_funds": {
			{Keys: bson.D{{Key: "groupId", Value: 1}}, Options: unique},
		},
		"admin_users": {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
		},
		"reserve_entries": {
			{Keys: bson.D{{Key: "groupId", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
		"auction_listings": {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "listedAt", Value: 1}}},
		},
	}

	for collection, models := range specs {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}
	return nil
}
