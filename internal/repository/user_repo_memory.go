package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"estate-api/internal/model"
)

type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]model.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: map[string]model.User{}}
}

func (r *MemoryUserRepository) FindByID(_ context.Context, id string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return u, nil
}

func (r *MemoryUserRepository) FindByEmail(_ context.Context, email string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	email = strings.TrimSpace(email)
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

func (r *MemoryUserRepository) Create(_ context.Context, u model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.ID == u.ID || strings.EqualFold(existing.Email, u.Email) {
			return model.ErrUserAlreadyExists
		}
	}
	r.users[u.ID] = u
	return nil
}

func (r *MemoryUserRepository) Activate(_ context.Context, id string) (model.User, error) {
	return r.mutate(id, func(u *model.User) {
		u.Status = model.AccountStatusActive
		u.IsConfirmed = true
	})
}

func (r *MemoryUserRepository) UpdateRole(_ context.Context, id string, role model.Role) (model.User, error) {
	return r.mutate(id, func(u *model.User) {
		u.Role = role
	})
}

func (r *MemoryUserRepository) mutate(id string, fn func(*model.User)) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	fn(&u)
	u.UpdatedAt = time.Now().UTC()
	r.users[id] = u
	return u, nil
}
