package testutil

import (
	"context"

	"github.com/billcraft/billcraft/internal/domain/tag"
	"github.com/samber/lo"
)

// InMemoryTagStore implements tag.Repository
type InMemoryTagStore struct {
	store *InMemoryStore[*tag.Tag]
}

// NewInMemoryTagStore creates a new in-memory tag store
func NewInMemoryTagStore() *InMemoryTagStore {
	return &InMemoryTagStore{
		store: NewInMemoryStore[*tag.Tag](),
	}
}

// Clear drops all tags
func (s *InMemoryTagStore) Clear() {
	s.store.Clear()
}

func tagKey(entityType, entityID, tagName string) string {
	return entityType + ":" + entityID + ":" + tagName
}

func (s *InMemoryTagStore) AddTag(ctx context.Context, entityType, entityID, tagName string) error {
	t := tag.New(ctx, entityType, entityID, tagName)
	err := s.store.Create(ctx, tagKey(entityType, entityID, tagName), t)
	if err != nil {
		// Duplicate add is a no-op
		return nil
	}
	return nil
}

func (s *InMemoryTagStore) RemoveTag(ctx context.Context, entityType, entityID, tagName string) error {
	// Removing an absent tag is a no-op
	_ = s.store.Delete(ctx, tagKey(entityType, entityID, tagName))
	return nil
}

func (s *InMemoryTagStore) ListByEntity(ctx context.Context, entityType, entityID string) ([]*tag.Tag, error) {
	matches := s.store.List(ctx, func(_ context.Context, t *tag.Tag) bool {
		return t.EntityType == entityType && t.EntityID == entityID
	})
	return lo.Map(matches, func(t *tag.Tag, _ int) *tag.Tag {
		copied := *t
		return &copied
	}), nil
}
