package service

import (
	"context"

	"backend/internal/repository"

	"github.com/google/uuid"
)

type AuditLogResponse struct {
	ID         uuid.UUID  `json:"id"`
	UserID     *uuid.UUID `json:"user_id"`
	UserName   string     `json:"user_name,omitempty"`
	Action     string     `json:"action"`
	EntityID   string     `json:"entity_id"`
	EntityName string     `json:"entity_name"`
	Details    string     `json:"details"`
	CreatedAt  string     `json:"created_at"`
}

type AuditService interface {
	List(ctx context.Context, action string, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
}

func NewAuditService(auditRepo repository.AuditRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

func (s *auditService) List(ctx context.Context, action string, page, limit int) ([]AuditLogResponse, int64, error) {
	logs, total, err := s.auditRepo.List(ctx, action, page, limit)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]AuditLogResponse, 0, len(logs))
	for _, entry := range logs {
		resp := AuditLogResponse{
			ID:         entry.ID,
			UserID:     entry.UserID,
			Action:     entry.Action,
			EntityID:   entry.EntityID,
			EntityName: entry.EntityName,
			Details:    entry.Details,
			CreatedAt:  entry.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
		if entry.User != nil {
			resp.UserName = entry.User.Name
		}
		responses = append(responses, resp)
	}
	return responses, total, nil
}
