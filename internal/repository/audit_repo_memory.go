package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"estate-api/internal/model"
)

// MemoryAuditRepository keeps entries newest first.
type MemoryAuditRepository struct {
	mu      sync.RWMutex
	entries []model.AuditEntry
}

func NewMemoryAuditRepository() *MemoryAuditRepository {
	return &MemoryAuditRepository{}
}

func (r *MemoryAuditRepository) Log(_ context.Context, entry model.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append([]model.AuditEntry{entry}, r.entries...)
	return nil
}

func (r *MemoryAuditRepository) Query(_ context.Context, query model.AuditQuery) ([]model.AuditEntry, model.Meta, error) {
	query = normalizeAuditQuery(query)

	r.mu.RLock()
	defer r.mu.RUnlock()

	from, hasFrom := parseBound(query.From)
	to, hasTo := parseBound(query.To)

	matched := make([]model.AuditEntry, 0)
	for _, e := range r.entries {
		if query.Action != "" && !strings.EqualFold(e.Action, strings.TrimSpace(query.Action)) {
			continue
		}
		if query.ActorID != "" && e.Actor.UserID != strings.TrimSpace(query.ActorID) {
			continue
		}
		if query.Status != "" && !strings.EqualFold(e.Status, strings.TrimSpace(query.Status)) {
			continue
		}
		if hasFrom || hasTo {
			at, err := time.Parse(time.RFC3339Nano, e.OccurredAt)
			if err != nil || (hasFrom && at.Before(from)) || (hasTo && at.After(to)) {
				continue
			}
		}
		matched = append(matched, e)
	}

	meta := pageMeta(query, len(matched))
	start := (query.Page - 1) * query.Limit
	if start >= len(matched) {
		return []model.AuditEntry{}, meta, nil
	}
	end := min(start+query.Limit, len(matched))
	return matched[start:end], meta, nil
}

func parseBound(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, value)
	return t, err == nil
}
