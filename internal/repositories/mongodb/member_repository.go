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

// MemberRepository implements the repositories.MemberRepository interface
type MemberRepository struct {
	collection *mongo.Collection
}

// NewMemberRepository creates a new MemberRepository
func NewMemberRepository(db *mongo.Database) repositories.MemberRepository {
	return &MemberRepository{
		collection: db.Collection("members"),
	}
}

// Create creates a new member record
func (r *MemberRepository) Create(ctx context.Context, member *models.Member) error {
	member.CreatedAt = time.Now()
	member.UpdatedAt = time.Now()
	res, err := r.collection.InsertOne(ctx, member)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repositories.ErrDuplicate
		}
		return err
	}
	member.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// FindByGroupAndMember finds a member by group and external member id
func (r *MemberRepository) FindByGroupAndMember(ctx context.Context, groupID primitive.ObjectID, memberID string) (*models.Member, error) {
	var member models.Member
	err := r.collection.FindOne(ctx, bson.M{"groupId": groupID, "memberId": memberID}).Decode(&member)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &member, nil
}

// FindByGroupAndOrder finds a member by group and order number
func (r *MemberRepository) FindByGroupAndOrder(ctx context.Context, groupID primitive.ObjectID, orderNumber int) (*models.Member, error) {
	var member models.Member
	err := r.collection.FindOne(ctx, bson.M{"groupId": groupID, "orderNumber": orderNumber}).Decode(&member)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &member, nil
}

// FindByGroup finds all members of a group ordered by order number
func (r *MemberRepository) FindByGroup(ctx context.Context, groupID primitive.ObjectID) ([]*models.Member, error) {
	return r.find(ctx, bson.M{"groupId": groupID})
}

// FindActiveByGroup finds the non-terminal members of a group
func (r *MemberRepository) FindActiveByGroup(ctx context.Context, groupID primitive.ObjectID) ([]*models.Member, error) {
	return r.find(ctx, bson.M{"groupId": groupID, "status": models.MemberStatusActive})
}

func (r *MemberRepository) find(ctx context.Context, filter bson.M) ([]*models.Member, error) {
	opts := options.Find().SetSort(bson.M{"orderNumber": 1})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var members []*models.Member
	if err := cursor.All(ctx, &members); err != nil {
		return nil, err
	}
	if members == nil {
		members = []*models.Member{}
	}
	return members, nil
}

// Update updates a member record
func (r *MemberRepository) Update(ctx context.Context, member *models.Member) error {
	member.UpdatedAt = time.Now()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": member.ID}, member)
	return err
}

// IncrementInstallmentsPaid atomically advances the paid counter, guarded
// so it can never exceed the group's term.
func (r *MemberRepository) IncrementInstallmentsPaid(ctx context.Context, id primitive.ObjectID, delta int, term int) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{
			"_id":              id,
			"status":           models.MemberStatusActive,
			"installmentsPaid": bson.M{"$lte": term - delta},
		},
		bson.M{
			"$inc": bson.M{"installmentsPaid": delta},
			"$set": bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("cannot credit %d installments: %w", delta, models.ErrNotEligible)
	}
	return nil
}

// SetAwardState performs a guarded adjudication state transition
func (r *MemberRepository) SetAwardState(ctx context.Context, id primitive.ObjectID, from, to models.AwardState, awardPeriod int, awardedAt *time.Time) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("%s -> %s: %w", from, to, models.ErrInvalidTransition)
	}
	set := bson.M{"awardState": to, "updatedAt": time.Now()}
	if awardPeriod > 0 {
		set["awardPeriod"] = awardPeriod
	}
	if awardedAt != nil {
		set["awardedAt"] = *awardedAt
	}
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "awardState": from},
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

// SetStatus updates the member's participation status
func (r *MemberRepository) SetStatus(ctx context.Context, id primitive.ObjectID, status models.MemberStatus) error {
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

// FindStaleAwards returns members whose acceptance window closed before
// the cutoff while still pending acceptance.
func (r *MemberRepository) FindStaleAwards(ctx context.Context, cutoff time.Time) ([]*models.Member, error) {
	return r.find(ctx, bson.M{
		"awardState": models.AwardStatePendingAcceptance,
		"awardedAt":  bson.M{"$lt": cutoff},
	})
}
