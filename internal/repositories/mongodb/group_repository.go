package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/groupdreaming/rosca-backend/internal/models"
	"github.com/groupdreaming/rosca-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GroupRepository implements the repositories.GroupRepository interface
type GroupRepository struct {
	collection *mongo.Collection
}

// NewGroupRepository creates a new GroupRepository
func NewGroupRepository(db *mongo.Database) repositories.GroupRepository {
	return &GroupRepository{
		collection: db.Collection("groups"),
	}
}

// Create creates a new group
func (r *GroupRepository) Create(ctx context.Context, group *models.Group) error {
	group.CreatedAt = time.Now()
	group.UpdatedAt = time.Now()
	res, err := r.collection.InsertOne(ctx, group)
	if err != nil {
		return err
	}
	group.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// FindByID finds a group by ID
func (r *GroupRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Group, error) {
	var group models.Group
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&group)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &group, nil
}

// FindAll finds all groups, newest first
func (r *GroupRepository) FindAll(ctx context.Context) ([]*models.Group, error) {
	opts := options.Find().SetSort(bson.M{"createdAt": -1})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var groups []*models.Group
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, err
	}
	if groups == nil {
		groups = []*models.Group{}
	}
	return groups, nil
}

// FindByStatus finds groups by status
func (r *GroupRepository) FindByStatus(ctx context.Context, status models.GroupStatus) ([]*models.Group, error) {
	opts := options.Find().SetSort(bson.M{"createdAt": -1})
	cursor, err := r.collection.Find(ctx, bson.M{"status": status}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var groups []*models.Group
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, err
	}
	if groups == nil {
		groups = []*models.Group{}
	}
	return groups, nil
}

// Update updates a group document wholesale. Counter and status fields
// should go through the guarded methods below instead.
func (r *GroupRepository) Update(ctx context.Context, group *models.Group) error {
	group.UpdatedAt = time.Now()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": group.ID}, group)
	return err
}

// ClaimSeat atomically assigns the next order number. The whole check —
// joinable status, open seat, member not already on the roster — and the
// counter increment happen in one FindOneAndUpdate, so concurrent joins
// serialize on the group document and can never share an order number.
func (r *GroupRepository) ClaimSeat(ctx context.Context, id primitive.ObjectID, memberID string) (*repositories.JoinResult, error) {
	filter := bson.M{
		"_id":       id,
		"status":    bson.M{"$in": []models.GroupStatus{models.GroupStatusRecruiting, models.GroupStatusActive}},
		"memberIds": bson.M{"$ne": memberID},
		"$expr":     bson.M{"$lt": bson.A{"$membersCount", "$totalSeats"}},
	}
	update := bson.M{
		"$inc":  bson.M{"membersCount": 1, "activeMembers": 1},
		"$push": bson.M{"memberIds": memberID},
		"$set":  bson.M{"updatedAt": time.Now()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Group
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err == nil {
		return &repositories.JoinResult{
			OrderNumber:    updated.MembersCount,
			SeatsRemaining: updated.TotalSeats - updated.MembersCount,
		}, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	// The guarded update matched nothing; fetch the group once to report
	// the precise reason.
	group, ferr := r.FindByID(ctx, id)
	if ferr != nil {
		return nil, ferr
	}
	for _, m := range group.MemberIDs {
		if m == memberID {
			return nil, models.ErrAlreadyMember
		}
	}
	if group.IsFull() {
		return nil, models.ErrGroupFull
	}
	if group.Status != models.GroupStatusRecruiting && group.Status != models.GroupStatusActive {
		return nil, fmt.Errorf("group status %s: %w", group.Status, models.ErrNotEligible)
	}
	return nil, models.ErrTransientConflict
}

// ReleaseSeat decrements the active-member counter. Order numbers are
// never reclaimed.
func (r *GroupRepository) ReleaseSeat(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "activeMembers": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"activeMembers": -1}, "$set": bson.M{"updatedAt": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Activate transitions Recruiting -> Active and stamps the activation date
func (r *GroupRepository) Activate(ctx context.Context, id primitive.ObjectID, activationDate time.Time) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.GroupStatusRecruiting},
		bson.M{"$set": bson.M{
			"status":         models.GroupStatusActive,
			"activationDate": activationDate,
			"updatedAt":      time.Now(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrTransientConflict
	}
	return nil
}

// MarkPeriodResolved advances the resolved-period counter, guarded so two
// concurrent resolutions of the same period cannot both commit.
func (r *GroupRepository) MarkPeriodResolved(ctx context.Context, id primitive.ObjectID, period int, minWinningOffer int) error {
	set := bson.M{"periodsResolved": period, "updatedAt": time.Now()}
	if minWinningOffer > 0 {
		set["minWinningOffer"] = minWinningOffer
	}
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "periodsResolved": period - 1},
		bson.M{"$set": set},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrTransientConflict
	}
	return nil
}

// SetStatus performs a guarded status transition
func (r *GroupRepository) SetStatus(ctx context.Context, id primitive.ObjectID, from, to models.GroupStatus) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("%s -> %s: %w", from, to, models.ErrInvalidTransition)
	}
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updatedAt": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrTransientConflict
	}
	return nil
}

// ReplaceRosterEntry swaps one roster entry with a positional update; the
// filter matches the old entry so a concurrent join's $push is untouched.
func (r *GroupRepository) ReplaceRosterEntry(ctx context.Context, id primitive.ObjectID, oldMemberID, newMemberID string) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "memberIds": oldMemberID},
		bson.M{"$set": bson.M{"memberIds.$": newMemberID, "updatedAt": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}
