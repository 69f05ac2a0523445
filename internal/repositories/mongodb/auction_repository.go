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

// AuctionRepository implements the repositories.AuctionRepository interface
type AuctionRepository struct {
	collection *mongo.Collection
}

// NewAuctionRepository creates a new AuctionRepository
func NewAuctionRepository(db *mongo.Database) repositories.AuctionRepository {
	return &AuctionRepository{
		collection: db.Collection("auction_listings"),
	}
}

// Create creates a new listing
func (r *AuctionRepository) Create(ctx context.Context, listing *models.AuctionListing) error {
	listing.CreatedAt = time.Now()
	listing.UpdatedAt = time.Now()
	res, err := r.collection.InsertOne(ctx, listing)
	if err != nil {
		return err
	}
	listing.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// FindByID finds a listing by ID
func (r *AuctionRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.AuctionListing, error) {
	var listing models.AuctionListing
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&listing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &listing, nil
}

// FindOpen finds listings currently accepting buyer bids
func (r *AuctionRepository) FindOpen(ctx context.Context) ([]*models.AuctionListing, error) {
	return r.find(ctx, bson.M{"status": models.ListingStatusOpen})
}

// FindAbsorbed finds listings the platform carries on the reserve fund
func (r *AuctionRepository) FindAbsorbed(ctx context.Context) ([]*models.AuctionListing, error) {
	return r.find(ctx, bson.M{"status": models.ListingStatusAbsorbed})
}

// FindByGroupAndMember finds the listing for a member's position, if any
func (r *AuctionRepository) FindByGroupAndMember(ctx context.Context, groupID primitive.ObjectID, memberID string) (*models.AuctionListing, error) {
	var listing models.AuctionListing
	err := r.collection.FindOne(ctx, bson.M{"groupId": groupID, "memberId": memberID}).Decode(&listing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &listing, nil
}

func (r *AuctionRepository) find(ctx context.Context, filter bson.M) ([]*models.AuctionListing, error) {
	opts := options.Find().SetSort(bson.M{"listedAt": 1})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var listings []*models.AuctionListing
	if err := cursor.All(ctx, &listings); err != nil {
		return nil, err
	}
	if listings == nil {
		listings = []*models.AuctionListing{}
	}
	return listings, nil
}

// Update updates a listing
func (r *AuctionRepository) Update(ctx context.Context, listing *models.AuctionListing) error {
	listing.UpdatedAt = time.Now()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": listing.ID}, listing)
	return err
}
