package memory

import (
	"context"
	"sync"
	"time"

	"github.com/groupdreaming/rosca-backend/internal/models"
	"github.com/groupdreaming/rosca-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AdminUserRepository is an in-memory repositories.AdminUserRepository
type AdminUserRepository struct {
	mu    sync.Mutex
	users map[string]*models.AdminUser
}

// NewAdminUserRepository creates an empty in-memory admin-user repository
func NewAdminUserRepository() *AdminUserRepository {
	return &AdminUserRepository{users: make(map[string]*models.AdminUser)}
}

func (r *AdminUserRepository) Create(ctx context.Context, adminUser *models.AdminUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[adminUser.Email]; ok {
		return repositories.ErrDuplicate
	}
	if adminUser.ID.IsZero() {
		adminUser.ID = primitive.NewObjectID()
	}
	adminUser.CreatedAt = time.Now()
	adminUser.UpdatedAt = time.Now()
	cp := *adminUser
	r.users[adminUser.Email] = &cp
	return nil
}

func (r *AdminUserRepository) FindByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[email]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *user
	return &cp, nil
}
