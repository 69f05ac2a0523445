package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/groupdreaming/rosca-backend/internal/calculator"
	"github.com/groupdreaming/rosca-backend/internal/config"
	"github.com/groupdreaming/rosca-backend/internal/models"
	"github.com/groupdreaming/rosca-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Compile-time check to ensure GroupServiceImpl implements GroupService
var _ GroupService = (*GroupServiceImpl)(nil)

// groupTemplates is the built-in catalogue. Groups are always created
// from explicit parameters under the hood; templates are a convenience.
var groupTemplates = []models.GroupTemplate{
	{Name: "starter-12", Capital: 6000, Term: 12},
	{Name: "classic-24", Capital: 12000, Term: 24},
	{Name: "extended-48", Capital: 24000, Term: 48},
}

// GroupServiceImpl handles group lifecycle and schedule derivation
type GroupServiceImpl struct {
	groupRepo repositories.GroupRepository
	cfg       *config.Config
}

// NewGroupService creates a new GroupServiceImpl
func NewGroupService(groupRepo repositories.GroupRepository, cfg *config.Config) *GroupServiceImpl {
	return &GroupServiceImpl{groupRepo: groupRepo, cfg: cfg}
}

func (s *GroupServiceImpl) rates() calculator.Rates {
	return calculator.Rates{
		AdminFeeRate:          s.cfg.Engine.AdminFeeRate,
		LifeInsuranceRate:     s.cfg.Engine.LifeInsuranceRate,
		SubscriptionRightRate: s.cfg.Engine.SubscriptionRightRate,
		VATRate:               s.cfg.Engine.VATRate,
	}
}

// CreateGroup creates a recruiting group. Seats are term multiplied by
// the adjudication seats per period, so every member is awarded exactly
// once over the life of the group.
func (s *GroupServiceImpl) CreateGroup(ctx context.Context, name string, capital float64, term int) (*models.Group, error) {
	if capital <= 0 || term <= 0 {
		return nil, fmt.Errorf("capital=%.2f term=%d: %w", capital, term, models.ErrInvalidScheduleInput)
	}

	group := &models.Group{
		Name:             name,
		Capital:          capital,
		Term:             term,
		RafflesPerPeriod: s.cfg.Engine.RafflesPerPeriod,
		BidsPerPeriod:    s.cfg.Engine.BidsPerPeriod,
		Status:           models.GroupStatusRecruiting,
	}
	group.TotalSeats = term * group.SeatsPerPeriod()

	if err := s.groupRepo.Create(ctx, group); err != nil {
		slog.Error("Failed to create group", "name", name, "error", err)
		return nil, fmt.Errorf("failed to create group: %w", err)
	}
	slog.Info("Group created", "groupId", group.ID.Hex(), "name", name, "totalSeats", group.TotalSeats)
	return group, nil
}

// CreateFromTemplate creates a recruiting group from the catalogue
func (s *GroupServiceImpl) CreateFromTemplate(ctx context.Context, templateName string) (*models.Group, error) {
	for _, tpl := range groupTemplates {
		if tpl.Name == templateName {
			return s.CreateGroup(ctx, tpl.Name, tpl.Capital, tpl.Term)
		}
	}
	return nil, fmt.Errorf("template %q: %w", templateName, models.ErrNotFound)
}

// Templates returns the catalogue of group templates
func (s *GroupServiceImpl) Templates() []models.GroupTemplate {
	out := make([]models.GroupTemplate, len(groupTemplates))
	copy(out, groupTemplates)
	return out
}

// GetGroup retrieves a group by its ID
func (s *GroupServiceImpl) GetGroup(ctx context.Context, id primitive.ObjectID) (*models.Group, error) {
	return s.groupRepo.FindByID(ctx, id)
}

// GetGroups retrieves all groups, optionally filtered by status
func (s *GroupServiceImpl) GetGroups(ctx context.Context, status models.GroupStatus) ([]*models.Group, error) {
	if status == "" {
		return s.groupRepo.FindAll(ctx)
	}
	return s.groupRepo.FindByStatus(ctx, status)
}

// Schedule returns the group's installment schedule, with due dates once
// the group has activated
func (s *GroupServiceImpl) Schedule(ctx context.Context, id primitive.ObjectID) ([]models.Installment, error) {
	group, err := s.groupRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return calculator.GenerateSchedule(group.Capital, group.Term, group.ActivationDate, s.rates())
}

// PreviewSchedule derives a schedule without a group, due dates omitted
func (s *GroupServiceImpl) PreviewSchedule(capital float64, term int) ([]models.Installment, error) {
	return calculator.GenerateSchedule(capital, term, nil, s.rates())
}
