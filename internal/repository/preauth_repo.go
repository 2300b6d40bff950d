package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"estate-api/internal/model"
)

const preAuthColumns = `id, email, device_id, code, expires_at, created_at`

// PreAuthRepository holds pending signup verifications, at most one per email.
// Expiry is judged by the caller so it can answer with a dedicated error.
type PreAuthRepository struct {
	pool *pgxpool.Pool
}

func NewPreAuthRepository(pool *pgxpool.Pool) *PreAuthRepository {
	return &PreAuthRepository{pool: pool}
}

func (r *PreAuthRepository) Create(ctx context.Context, p model.PreAuthSession) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO pre_auth_sessions (id, email, device_id, code, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (email) DO UPDATE
		 SET id = EXCLUDED.id,
		     device_id = EXCLUDED.device_id,
		     code = EXCLUDED.code,
		     expires_at = EXCLUDED.expires_at,
		     created_at = EXCLUDED.created_at`,
		p.ID, p.Email, p.DeviceID, p.Code, p.ExpiresAt.UTC(), p.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("create pre-auth session: %w", err)
	}
	return nil
}

func (r *PreAuthRepository) FindByID(ctx context.Context, id string) (model.PreAuthSession, error) {
	var p model.PreAuthSession
	err := r.pool.QueryRow(ctx,
		`SELECT `+preAuthColumns+` FROM pre_auth_sessions WHERE id = $1`, id).
		Scan(&p.ID, &p.Email, &p.DeviceID, &p.Code, &p.ExpiresAt, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.PreAuthSession{}, model.ErrPreAuthSessionNotFound
	}
	if err != nil {
		return model.PreAuthSession{}, fmt.Errorf("find pre-auth session: %w", err)
	}
	return p, nil
}

func (r *PreAuthRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM pre_auth_sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete pre-auth session: %w", err)
	}
	return nil
}

func (r *PreAuthRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM pre_auth_sessions WHERE expires_at <= $1`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("clean expired pre-auth sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
