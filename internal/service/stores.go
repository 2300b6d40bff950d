package service

import (
	"context"

	"estate-api/internal/model"
)

// UserStore is the credential store. Both the pgx and the in-memory
// repositories satisfy it.
type UserStore interface {
	FindByID(ctx context.Context, id string) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	Create(ctx context.Context, u model.User) error
	Activate(ctx context.Context, id string) (model.User, error)
	UpdateRole(ctx context.Context, id string, role model.Role) (model.User, error)
}

// SessionStore Get reads return model.ErrSessionExpired (after removing the
// row) instead of ever handing back an expired session. Peek reads return the
// stored row, expired or not, and never delete.
type SessionStore interface {
	Create(ctx context.Context, s model.NewSession) (model.Session, error)
	GetByUserAndDevice(ctx context.Context, userID string, deviceID string) (model.Session, error)
	GetByID(ctx context.Context, sessionID string) (model.Session, error)
	GetByRefreshToken(ctx context.Context, refreshToken string) (model.Session, error)
	PeekByUserAndDevice(ctx context.Context, userID string, deviceID string) (model.Session, error)
	PeekByID(ctx context.Context, sessionID string) (model.Session, error)
	PeekByRefreshToken(ctx context.Context, refreshToken string) (model.Session, error)
	ListActiveForUser(ctx context.Context, userID string) ([]model.Session, error)
	Delete(ctx context.Context, sessionID string) (bool, error)
	DeleteAllForUser(ctx context.Context, userID string) (bool, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type PreAuthStore interface {
	Create(ctx context.Context, p model.PreAuthSession) error
	FindByID(ctx context.Context, id string) (model.PreAuthSession, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

type AuditStore interface {
	Log(ctx context.Context, entry model.AuditEntry) error
	Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, model.Meta, error)
}
