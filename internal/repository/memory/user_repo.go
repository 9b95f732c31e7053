package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yourorg/portfolio-tracker/internal/domain"
)

type UserRepo struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]domain.User
	byEmail map[string]uuid.UUID
}

func NewUserRepo() *UserRepo {
	return &UserRepo{
		byID:    make(map[uuid.UUID]domain.User),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	email := strings.ToLower(u.Email)
	if _, exists := r.byEmail[email]; exists {
		return domain.Duplicatef("email %s is already registered", email)
	}
	now := time.Now().UTC()
	u.ID = uuid.New()
	u.Email = email
	u.CreatedAt, u.UpdatedAt = now, now
	r.byID[u.ID] = *u
	r.byEmail[email] = u.ID
	return nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, domain.NotFoundf("user not found")
	}
	u := r.byID[id]
	return &u, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.NotFoundf("user not found")
	}
	return &u, nil
}
