package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"estate-api/internal/model"
)

type deviceKey struct {
	userID   string
	deviceID string
}

// MemorySessionRepository mirrors SessionRepository in process memory. It is
// selected with STORAGE_DRIVER=memory and backs the service tests.
type MemorySessionRepository struct {
	mu       sync.Mutex
	byID     map[string]model.Session
	byDevice map[deviceKey]string
	now      func() time.Time
}

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{
		byID:     map[string]model.Session{},
		byDevice: map[deviceKey]string{},
		now:      time.Now,
	}
}

func (r *MemorySessionRepository) Create(_ context.Context, s model.NewSession) (model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := deviceKey{userID: s.UserID, deviceID: s.DeviceID}
	if prior, ok := r.byDevice[key]; ok {
		delete(r.byID, prior)
	}

	now := r.now().UTC()
	created := model.Session{
		ID:           uuid.NewString(),
		UserID:       s.UserID,
		DeviceID:     s.DeviceID,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    s.ExpiresAt.UTC(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.byID[created.ID] = created
	r.byDevice[key] = created.ID
	return created, nil
}

func (r *MemorySessionRepository) GetByUserAndDevice(_ context.Context, userID string, deviceID string) (model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byDevice[deviceKey{userID: userID, deviceID: deviceID}]
	if !ok {
		return model.Session{}, model.ErrSessionNotFound
	}
	return r.liveLocked(id)
}

func (r *MemorySessionRepository) GetByID(_ context.Context, sessionID string) (model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.liveLocked(sessionID)
}

func (r *MemorySessionRepository) GetByRefreshToken(_ context.Context, refreshToken string) (model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, s := range r.byID {
		if s.RefreshToken == refreshToken {
			return r.liveLocked(id)
		}
	}
	return model.Session{}, model.ErrSessionNotFound
}

func (r *MemorySessionRepository) PeekByUserAndDevice(_ context.Context, userID string, deviceID string) (model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byDevice[deviceKey{userID: userID, deviceID: deviceID}]
	if !ok {
		return model.Session{}, model.ErrSessionNotFound
	}
	return r.peekLocked(id)
}

func (r *MemorySessionRepository) PeekByID(_ context.Context, sessionID string) (model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.peekLocked(sessionID)
}

func (r *MemorySessionRepository) PeekByRefreshToken(_ context.Context, refreshToken string) (model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.byID {
		if s.RefreshToken == refreshToken {
			return s, nil
		}
	}
	return model.Session{}, model.ErrSessionNotFound
}

func (r *MemorySessionRepository) ListActiveForUser(_ context.Context, userID string) ([]model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	sessions := make([]model.Session, 0)
	for _, s := range r.byID {
		if s.UserID == userID && !s.Expired(now) {
			sessions = append(sessions, s)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	return sessions, nil
}

func (r *MemorySessionRepository) Delete(_ context.Context, sessionID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.deleteLocked(sessionID), nil
}

func (r *MemorySessionRepository) DeleteAllForUser(_ context.Context, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := false
	for id, s := range r.byID {
		if s.UserID == userID {
			removed = r.deleteLocked(id) || removed
		}
	}
	return removed, nil
}

func (r *MemorySessionRepository) DeleteExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var n int64
	for id, s := range r.byID {
		if s.Expired(now) && r.deleteLocked(id) {
			n++
		}
	}
	return n, nil
}

// Count reports physically stored rows, expired ones included.
func (r *MemorySessionRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

func (r *MemorySessionRepository) peekLocked(id string) (model.Session, error) {
	s, ok := r.byID[id]
	if !ok {
		return model.Session{}, model.ErrSessionNotFound
	}
	return s, nil
}

func (r *MemorySessionRepository) liveLocked(id string) (model.Session, error) {
	s, err := r.peekLocked(id)
	if err != nil {
		return model.Session{}, err
	}
	if s.Expired(r.now()) {
		r.deleteLocked(id)
		return model.Session{}, model.ErrSessionExpired
	}
	return s, nil
}

func (r *MemorySessionRepository) deleteLocked(id string) bool {
	s, ok := r.byID[id]
	if !ok {
		return false
	}
	delete(r.byID, id)
	key := deviceKey{userID: s.UserID, deviceID: s.DeviceID}
	if r.byDevice[key] == id {
		delete(r.byDevice, key)
	}
	return true
}
