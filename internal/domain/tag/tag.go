package tag

import (
	"context"

	"github.com/billcraft/billcraft/internal/types"
)

// Tag is a control tag attached to an entity, e.g. written_off on an invoice
type Tag struct {
	ID            string `json:"id"`
	EntityType    string `json:"entity_type"`
	EntityID      string `json:"entity_id"`
	TagName       string `json:"tag_name"`
	EnvironmentID string `json:"environment_id"`

	types.BaseModel
}

// New creates a tag for an entity
func New(ctx context.Context, entityType, entityID, tagName string) *Tag {
	return &Tag{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TAG),
		EntityType:    entityType,
		EntityID:      entityID,
		TagName:       tagName,
		EnvironmentID: types.GetEnvironmentID(ctx),
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}
}

// Repository is the tagging collaborator. Adding an existing tag and
// removing an absent one are both no-ops, tagging is pass-through state.
type Repository interface {
	AddTag(ctx context.Context, entityType, entityID, tagName string) error
	RemoveTag(ctx context.Context, entityType, entityID, tagName string) error
	ListByEntity(ctx context.Context, entityType, entityID string) ([]*Tag, error)
}
