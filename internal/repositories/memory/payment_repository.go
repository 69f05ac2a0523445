package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/groupdreaming/rosca-backend/internal/models"
	"github.com/groupdreaming/rosca-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaymentRepository is an in-memory repositories.PaymentRepository
type PaymentRepository struct {
	mu       sync.Mutex
	payments []*models.Payment
}

// NewPaymentRepository creates an empty in-memory payment repository
func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{}
}

func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.GroupID == payment.GroupID && p.MemberID == payment.MemberID && p.InstallmentNumber == payment.InstallmentNumber {
			return repositories.ErrDuplicate
		}
	}
	if payment.ID.IsZero() {
		payment.ID = primitive.NewObjectID()
	}
	payment.CreatedAt = time.Now()
	cp := *payment
	r.payments = append(r.payments, &cp)
	return nil
}

func (r *PaymentRepository) FindByGroupAndMember(ctx context.Context, groupID primitive.ObjectID, memberID string) ([]*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.Payment{}
	for _, p := range r.payments {
		if p.GroupID == groupID && p.MemberID == memberID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InstallmentNumber < out[j].InstallmentNumber })
	return out, nil
}
