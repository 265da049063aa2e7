package service

import (
	"context"
	"errors"

	"backend/internal/model"
	"backend/internal/rbac"
	"backend/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// snapshotGate fetches the current role table and builds a gate over
// it. One snapshot serves every authorization decision of a request.
func snapshotGate(ctx context.Context, roles repository.RoleRepository) (*rbac.Gate, []model.Role, error) {
	all, err := roles.ListAll(ctx)
	if err != nil {
		return nil, nil, err
	}
	return rbac.NewGate(all), all, nil
}

// recordView builds the tagged record view the fine-grained gate
// decides over, resolving the creator's role from the user table.
func recordView(ctx context.Context, users repository.UserRepository, resource rbac.Resource, id uuid.UUID, createdByID *uuid.UUID) rbac.Record {
	rec := rbac.Record{Resource: resource, ID: id, CreatedByID: createdByID}
	if createdByID != nil {
		if creator, err := users.FindByID(ctx, *createdByID); err == nil {
			rec.CreatorRoleID = creator.RoleID
		}
	}
	return rec
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
