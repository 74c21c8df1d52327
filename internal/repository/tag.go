package repository

import (
	"context"

	"github.com/billcraft/billcraft/internal/domain/tag"
	ierr "github.com/billcraft/billcraft/internal/errors"
	"github.com/billcraft/billcraft/internal/logger"
	"github.com/billcraft/billcraft/internal/postgres"
	"github.com/billcraft/billcraft/internal/types"
)

type tagRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

// NewTagRepository builds the control tag store. Adding an existing tag and
// removing an absent one are both no-ops.
func NewTagRepository(db postgres.IClient, log *logger.Logger) tag.Repository {
	return &tagRepository{db: db, logger: log}
}

func (r *tagRepository) AddTag(ctx context.Context, entityType, entityID, tagName string) error {
	t := tag.New(ctx, entityType, entityID, tagName)

	// The unique index absorbs duplicate adds
	_, err := r.db.Querier(ctx).ExecContext(ctx, `
		INSERT INTO tags (id, entity_type, entity_id, tag_name,
			tenant_id, environment_id, status, created_at, updated_at, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (tenant_id, environment_id, entity_type, entity_id, tag_name) DO NOTHING`,
		t.ID, t.EntityType, t.EntityID, t.TagName,
		t.TenantID, t.EnvironmentID, string(t.Status),
		t.CreatedAt, t.UpdatedAt, t.CreatedBy, t.UpdatedBy)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to add tag").
			WithReportableDetails(map[string]any{
				"entity_type": entityType,
				"entity_id":   entityID,
				"tag_name":    tagName,
			}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *tagRepository) RemoveTag(ctx context.Context, entityType, entityID, tagName string) error {
	_, err := r.db.Querier(ctx).ExecContext(ctx, `
		DELETE FROM tags
		WHERE entity_type = $1 AND entity_id = $2 AND tag_name = $3
			AND tenant_id = $4 AND environment_id = $5`,
		entityType, entityID, tagName,
		types.GetTenantID(ctx), types.GetEnvironmentID(ctx))
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to remove tag").
			WithReportableDetails(map[string]any{
				"entity_type": entityType,
				"entity_id":   entityID,
				"tag_name":    tagName,
			}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *tagRepository) ListByEntity(ctx context.Context, entityType, entityID string) ([]*tag.Tag, error) {
	rows, err := r.db.Querier(ctx).QueryContext(ctx, `
		SELECT id, entity_type, entity_id, tag_name,
			tenant_id, environment_id, status, created_at, updated_at, created_by, updated_by
		FROM tags
		WHERE entity_type = $1 AND entity_id = $2
			AND tenant_id = $3 AND environment_id = $4
		ORDER BY tag_name`,
		entityType, entityID, types.GetTenantID(ctx), types.GetEnvironmentID(ctx))
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list tags").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var tags []*tag.Tag
	for rows.Next() {
		var t tag.Tag
		var status string
		if err := rows.Scan(
			&t.ID, &t.EntityType, &t.EntityID, &t.TagName,
			&t.TenantID, &t.EnvironmentID, &status,
			&t.CreatedAt, &t.UpdatedAt, &t.CreatedBy, &t.UpdatedBy,
		); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan tag row").
				Mark(ierr.ErrDatabase)
		}
		t.Status = types.Status(status)
		tags = append(tags, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list tags").
			Mark(ierr.ErrDatabase)
	}
	return tags, nil
}
