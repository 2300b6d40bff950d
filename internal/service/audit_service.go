package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"estate-api/internal/model"
	"estate-api/pkg/apierror"
)

type AuditService struct {
	store AuditStore
}

func NewAuditService(store AuditStore) *AuditService {
	return &AuditService{store: store}
}

// Log records an auth event. Failures are logged and never reach the caller,
// and the write outlives a cancelled request.
func (s *AuditService) Log(ctx context.Context, action string, actor model.AuditActor, resource string, opErr error) {
	if s == nil {
		return
	}

	entry := model.AuditEntry{
		Action:     action,
		OccurredAt: time.Now().UTC().Format(time.RFC3339Nano),
		Actor:      actor,
		Status:     model.AuditSuccess,
		Resource:   resource,
	}
	if opErr != nil {
		entry.Status = model.AuditFailure
		entry.Error = auditErrorText(opErr)
	}

	if err := s.store.Log(context.WithoutCancel(ctx), entry); err != nil {
		slog.Warn("audit write failed", "action", action, "error", err)
	}
}

func (s *AuditService) Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, model.Meta, error) {
	if err := validateAuditTime(query.From); err != nil {
		return nil, model.Meta{}, apierror.BadRequest(apierror.CodeBadRequest, "invalid 'from' datetime format", query.From)
	}
	if err := validateAuditTime(query.To); err != nil {
		return nil, model.Meta{}, apierror.BadRequest(apierror.CodeBadRequest, "invalid 'to' datetime format", query.To)
	}

	return s.store.Query(ctx, query)
}

// auditErrorText keeps the machine-readable code for typed errors so internal
// details stay out of the audit table.
func auditErrorText(err error) string {
	if apiErr, ok := apierror.As(err); ok {
		return apiErr.Code
	}
	return apierror.CodeInternal
}

func validateAuditTime(raw string) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	_, err := time.Parse(time.RFC3339, trimmed)
	return err
}
