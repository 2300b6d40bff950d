package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"estate-api/internal/model"
)

type MemoryPreAuthRepository struct {
	mu       sync.Mutex
	sessions map[string]model.PreAuthSession
}

func NewMemoryPreAuthRepository() *MemoryPreAuthRepository {
	return &MemoryPreAuthRepository{sessions: map[string]model.PreAuthSession{}}
}

func (r *MemoryPreAuthRepository) Create(_ context.Context, p model.PreAuthSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, existing := range r.sessions {
		if strings.EqualFold(existing.Email, p.Email) {
			delete(r.sessions, id)
		}
	}
	r.sessions[p.ID] = p
	return nil
}

func (r *MemoryPreAuthRepository) FindByID(_ context.Context, id string) (model.PreAuthSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.sessions[id]
	if !ok {
		return model.PreAuthSession{}, model.ErrPreAuthSessionNotFound
	}
	return p, nil
}

func (r *MemoryPreAuthRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
	return nil
}

func (r *MemoryPreAuthRepository) DeleteExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	var n int64
	for id, p := range r.sessions {
		if !p.ExpiresAt.After(now) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}
