package mongodb

import (
	"context"
	"time"

	"github.com/groupdreaming/rosca-backend/internal/models"
	"github.com/groupdreaming/rosca-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PaymentRepository implements the repositories.PaymentRepository interface
type PaymentRepository struct {
	collection *mongo.Collection
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(db *mongo.Database) repositories.PaymentRepository {
	return &PaymentRepository{
		collection: db.Collection("payments"),
	}
}

// Create inserts a payment record. The unique index on
// (groupId, memberId, installmentNumber) turns duplicate deliveries of
// the same PaymentConfirmed event into ErrDuplicate.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	payment.CreatedAt = time.Now()
	res, err := r.collection.InsertOne(ctx, payment)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repositories.ErrDuplicate
		}
		return err
	}
	payment.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// FindByGroupAndMember returns a member's processed payments
func (r *PaymentRepository) FindByGroupAndMember(ctx context.Context, groupID primitive.ObjectID, memberID string) ([]*models.Payment, error) {
	opts := options.Find().SetSort(bson.M{"installmentNumber": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"groupId": groupID, "memberId": memberID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var payments []*models.Payment
	if err := cursor.All(ctx, &payments); err != nil {
		return nil, err
	}
	if payments == nil {
		payments = []*models.Payment{}
	}
	return payments, nil
}
