package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/webherbas/taskflow/internal/domain"
)

// ItemsKey is the canonical key holding the task list.
const ItemsKey = "taskflowItems"

// legacyKeys hold task lists written by earlier board versions, newest first.
// They are read once when ItemsKey is absent and then removed.
var legacyKeys = []string{"workflowItems", "kanbanTasks"}

// LegacyKeys returns the import-only keys in lookup order.
func LegacyKeys() []string {
	return append([]string(nil), legacyKeys...)
}

// Storage persists the task list as one JSON array in a KeyValueStore.
type Storage struct {
	store  KeyValueStore
	logger Logger
}

// NewStorage constructs a storage adapter over store.
func NewStorage(store KeyValueStore, logger Logger) *Storage {
	if logger == nil {
		logger = NopLogger()
	}
	return &Storage{store: store, logger: logger}
}

// Load returns the persisted list. Missing or unreadable data yields an
// empty list; failures are logged, never returned.
func (s *Storage) Load(ctx context.Context) []domain.TaskItem {
	raw, ok, err := s.store.Get(ctx, ItemsKey)
	if err != nil {
		s.logger.Error("task list read failed", "key", ItemsKey, "err", err)
		return []domain.TaskItem{}
	}
	if !ok {
		return s.migrateLegacy(ctx)
	}
	items, err := domain.DecodeItems([]byte(raw))
	if err != nil {
		s.logger.Error("task list corrupt, starting empty", "key", ItemsKey, "err", err)
		return []domain.TaskItem{}
	}
	return items
}

// Save overwrites the persisted list.
func (s *Storage) Save(ctx context.Context, items []domain.TaskItem) error {
	encoded, err := domain.EncodeItems(items, false)
	if err != nil {
		return fmt.Errorf("encode task list: %w", err)
	}
	if err := s.store.Set(ctx, ItemsKey, string(encoded)); err != nil {
		return fmt.Errorf("write task list: %w", err)
	}
	return nil
}

// Clear removes the canonical and legacy keys.
func (s *Storage) Clear(ctx context.Context) error {
	var errs []error
	for _, key := range append([]string{ItemsKey}, legacyKeys...) {
		if err := s.store.Remove(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// migrateLegacy imports the first readable legacy list into ItemsKey.
func (s *Storage) migrateLegacy(ctx context.Context) []domain.TaskItem {
	for _, key := range legacyKeys {
		raw, ok, err := s.store.Get(ctx, key)
		if err != nil {
			s.logger.Warn("legacy task list read failed", "key", key, "err", err)
			continue
		}
		if !ok {
			continue
		}
		items, err := domain.DecodeItems([]byte(raw))
		if err != nil {
			s.logger.Warn("legacy task list unreadable, skipping", "key", key, "err", err)
			continue
		}
		if err := s.Save(ctx, items); err != nil {
			s.logger.Error("legacy task list migration failed", "key", key, "err", err)
			return items
		}
		for _, legacy := range legacyKeys {
			if err := s.store.Remove(ctx, legacy); err != nil {
				s.logger.Warn("legacy key cleanup failed", "key", legacy, "err", err)
			}
		}
		s.logger.Info("legacy task list migrated", "from", key, "to", ItemsKey, "items", len(items))
		return items
	}
	return []domain.TaskItem{}
}
