package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"estate-api/internal/model"
)

const sessionColumns = `id, user_id, device_id, refresh_token, expires_at, created_at, updated_at`

// SessionRepository stores one row per (user, device). Get reads never return
// an expired row: a lookup that hits one deletes it and reports
// model.ErrSessionExpired. Peek reads return the row as stored and leave
// expiry handling to the caller.
type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create inserts a session under a fresh id, replacing any session already held
// by the same (user, device). The unique index on (user_id, device_id) makes
// concurrent sign-ins for one device resolve as last write wins.
func (r *SessionRepository) Create(ctx context.Context, s model.NewSession) (model.Session, error) {
	now := time.Now().UTC()
	row := r.pool.QueryRow(ctx,
		`INSERT INTO sessions (id, user_id, device_id, refresh_token, expires_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6)
		 ON CONFLICT (user_id, device_id) DO UPDATE
		 SET id = EXCLUDED.id,
		     refresh_token = EXCLUDED.refresh_token,
		     expires_at = EXCLUDED.expires_at,
		     created_at = EXCLUDED.created_at,
		     updated_at = EXCLUDED.updated_at
		 RETURNING `+sessionColumns,
		uuid.NewString(), s.UserID, s.DeviceID, s.RefreshToken, s.ExpiresAt.UTC(), now)

	created, err := scanSession(row)
	if err != nil {
		return model.Session{}, fmt.Errorf("create session: %w", err)
	}
	return created, nil
}

func (r *SessionRepository) GetByUserAndDevice(ctx context.Context, userID string, deviceID string) (model.Session, error) {
	return r.findOne(ctx, "get session by user and device",
		`user_id = $1 AND device_id = $2`, userID, deviceID)
}

func (r *SessionRepository) GetByID(ctx context.Context, sessionID string) (model.Session, error) {
	return r.findOne(ctx, "get session by id", `id = $1`, sessionID)
}

func (r *SessionRepository) GetByRefreshToken(ctx context.Context, refreshToken string) (model.Session, error) {
	return r.findOne(ctx, "get session by refresh token", `refresh_token = $1`, refreshToken)
}

func (r *SessionRepository) PeekByUserAndDevice(ctx context.Context, userID string, deviceID string) (model.Session, error) {
	return r.findRaw(ctx, "peek session by user and device",
		`user_id = $1 AND device_id = $2`, userID, deviceID)
}

func (r *SessionRepository) PeekByID(ctx context.Context, sessionID string) (model.Session, error) {
	return r.findRaw(ctx, "peek session by id", `id = $1`, sessionID)
}

func (r *SessionRepository) PeekByRefreshToken(ctx context.Context, refreshToken string) (model.Session, error) {
	return r.findRaw(ctx, "peek session by refresh token", `refresh_token = $1`, refreshToken)
}

func (r *SessionRepository) ListActiveForUser(ctx context.Context, userID string) ([]model.Session, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE user_id = $1 AND expires_at > $2
		 ORDER BY created_at DESC`, userID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]model.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *SessionRepository) Delete(ctx context.Context, sessionID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, sessionID)
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *SessionRepository) DeleteAllForUser(ctx context.Context, userID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return false, fmt.Errorf("delete user sessions: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("clean expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *SessionRepository) findRaw(ctx context.Context, op string, where string, args ...any) (model.Session, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE `+where, args...)
	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Session{}, model.ErrSessionNotFound
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}

func (r *SessionRepository) findOne(ctx context.Context, op string, where string, args ...any) (model.Session, error) {
	s, err := r.findRaw(ctx, op, where, args...)
	if err != nil {
		return model.Session{}, err
	}

	if s.Expired(time.Now()) {
		if _, err := r.Delete(ctx, s.ID); err != nil {
			return model.Session{}, err
		}
		return model.Session{}, model.ErrSessionExpired
	}
	return s, nil
}

func scanSession(row rowScanner) (model.Session, error) {
	var s model.Session
	err := row.Scan(&s.ID, &s.UserID, &s.DeviceID, &s.RefreshToken, &s.ExpiresAt, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}
