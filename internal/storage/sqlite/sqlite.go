package sqlite

import (
	"clipboard-sync/internal/storage"
	"clipboard-sync/pkg/types"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type SQLiteStorage struct {
	db  *gorm.DB
	now func() time.Time
}

// New creates a new SQLite storage instance
func New(config storage.Config) (*SQLiteStorage, error) {
	if dir := filepath.Dir(config.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(config.DBPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Auto-migrate the schema
	if err := db.AutoMigrate(&storage.ClipModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &SQLiteStorage{db: db, now: time.Now}, nil
}

// Close releases the underlying connection
func (s *SQLiteStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	return sqlDB.Close()
}

// Store implements storage.Storage interface
func (s *SQLiteStorage) Store(ctx context.Context, clip types.Clip) (*types.Clip, bool, error) {
	if clip.Content == "" {
		return nil, false, storage.ErrEmptyContent
	}
	if len(clip.Content) > storage.MaxContentSize {
		return nil, false, storage.ErrContentTooLarge
	}

	model := storage.FromClip(&clip)
	db := s.db.WithContext(ctx)

	// Check for existing content with same hash
	var existing storage.ClipModel
	err := db.Where("content_hash = ?", model.ContentHash).First(&existing).Error
	if err == nil {
		// Content exists, bump it to the top and refresh provenance
		existing.UpdatedAt = s.now()
		existing.AppName = model.AppName
		existing.WindowTitle = model.WindowTitle
		existing.AutoTags = model.AutoTags
		if err := db.Save(&existing).Error; err != nil {
			return nil, false, fmt.Errorf("failed to update existing clip: %w", err)
		}
		return existing.ToClip(), false, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("failed to check for existing content: %w", err)
	}

	now := s.now()
	model.CreatedAt = now
	model.UpdatedAt = now
	if err := db.Create(model).Error; err != nil {
		return nil, false, fmt.Errorf("failed to create clip: %w", err)
	}

	return model.ToClip(), true, nil
}

// Get implements storage.Storage interface
func (s *SQLiteStorage) Get(ctx context.Context, id int64) (*types.Clip, error) {
	var model storage.ClipModel
	if err := s.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get clip: %w", err)
	}
	return model.ToClip(), nil
}

// Delete implements storage.Storage interface
func (s *SQLiteStorage) Delete(ctx context.Context, id int64) error {
	result := s.db.WithContext(ctx).Delete(&storage.ClipModel{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete clip: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// List implements storage.Storage interface
func (s *SQLiteStorage) List(ctx context.Context, filter storage.ListFilter) ([]types.Clip, error) {
	query := s.db.WithContext(ctx).Model(&storage.ClipModel{})

	if filter.Pinned != nil {
		query = query.Where("is_pinned = ?", *filter.Pinned)
	}

	// Apply pagination
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	// Most recently changed clips first
	query = query.Order("updated_at DESC").Order("id DESC")

	var models []storage.ClipModel
	if err := query.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list clips: %w", err)
	}

	clips := make([]types.Clip, len(models))
	for i := range models {
		clips[i] = *models[i].ToClip()
	}
	return clips, nil
}

// SetPinned implements storage.Storage interface
func (s *SQLiteStorage) SetPinned(ctx context.Context, id int64, pinned bool) (*types.Clip, error) {
	result := s.db.WithContext(ctx).Model(&storage.ClipModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_pinned": pinned, "updated_at": s.now()})

	if result.Error != nil {
		return nil, fmt.Errorf("failed to update pin state: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, storage.ErrNotFound
	}
	return s.Get(ctx, id)
}

// Clear implements storage.Storage interface
func (s *SQLiteStorage) Clear(ctx context.Context) error {
	err := s.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&storage.ClipModel{}).Error
	if err != nil {
		return fmt.Errorf("failed to clear clips: %w", err)
	}
	return nil
}

// Trim implements storage.Storage interface
func (s *SQLiteStorage) Trim(ctx context.Context, keep int) ([]int64, error) {
	if keep < 0 {
		keep = 0
	}

	var ids []int64
	err := s.db.WithContext(ctx).Model(&storage.ClipModel{}).
		Where("is_pinned = ?", false).
		Order("updated_at DESC").Order("id DESC").
		Offset(keep).Limit(-1).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find clips to trim: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	if err := s.db.WithContext(ctx).Delete(&storage.ClipModel{}, ids).Error; err != nil {
		return nil, fmt.Errorf("failed to trim clips: %w", err)
	}
	return ids, nil
}
