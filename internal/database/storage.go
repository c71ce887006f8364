package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cache-countdown-api/internal/cache"
	"cache-countdown-api/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Storage persists cache values as JSON rows in SQLite. It outlives the
// process, but lifetimes are not persisted: after a restart a stored value is
// served until it is removed or overwritten.
type Storage[T any] struct {
	db        *gorm.DB
	namespace string
}

// NewStorage returns a Storage scoped to namespace.
func NewStorage[T any](db *gorm.DB, namespace string) *Storage[T] {
	return &Storage[T]{db: db, namespace: namespace}
}

func (s *Storage[T]) scoped(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.CachedValue{}).Where("namespace = ?", s.namespace)
}

// Exists implements cache.Storage.
func (s *Storage[T]) Exists(ctx context.Context, tag string) (bool, error) {
	var count int64
	if err := s.scoped(ctx).Where("tag = ?", tag).Count(&count).Error; err != nil {
		return false, fmt.Errorf("count cached value: %w", err)
	}
	return count > 0, nil
}

// Retrieve implements cache.Storage. A missing row maps to cache.ErrCacheMiss.
func (s *Storage[T]) Retrieve(ctx context.Context, tag string) (T, error) {
	var zero T
	var row models.CachedValue
	err := s.scoped(ctx).Where("tag = ?", tag).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return zero, cache.ErrCacheMiss
	}
	if err != nil {
		return zero, fmt.Errorf("load cached value: %w", err)
	}

	var v T
	if err := json.Unmarshal(row.Payload, &v); err != nil {
		return zero, fmt.Errorf("decode cached value %q: %w", tag, err)
	}
	return v, nil
}

// Store implements cache.Storage as an upsert.
func (s *Storage[T]) Store(ctx context.Context, tag string, value T) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cached value %q: %w", tag, err)
	}
	row := models.CachedValue{
		Namespace: s.namespace,
		Tag:       tag,
		Payload:   payload,
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}, {Name: "tag"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save cached value: %w", err)
	}
	return nil
}

// Remove implements cache.Storage.
func (s *Storage[T]) Remove(ctx context.Context, tag string) error {
	err := s.db.WithContext(ctx).
		Where("namespace = ? AND tag = ?", s.namespace, tag).
		Delete(&models.CachedValue{}).Error
	if err != nil {
		return fmt.Errorf("delete cached value: %w", err)
	}
	return nil
}

// Clear implements cache.Storage. Only rows in the storage's namespace are
// deleted.
func (s *Storage[T]) Clear(ctx context.Context) error {
	err := s.db.WithContext(ctx).
		Where("namespace = ?", s.namespace).
		Delete(&models.CachedValue{}).Error
	if err != nil {
		return fmt.Errorf("clear cached values: %w", err)
	}
	return nil
}

// Ensure Storage implements cache.Storage at compile time.
var _ cache.Storage[any] = (*Storage[any])(nil)
