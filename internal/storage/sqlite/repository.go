package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/channel-agent/internal/models"
	"github.com/channel-agent/internal/storage"
)

// Repository implements storage.Repository using SQLite
type Repository struct {
	db *gorm.DB
}

// New creates a new SQLite repository
func New(dsn string) (*Repository, error) {
	// Ensure directory exists
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Repository{db: db}, nil
}

// Migrate runs database migrations
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(&models.GeneratedPost{})
}

// Close closes the database connection
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var orderColumns = map[string]bool{
	"id":           true,
	"created_at":   true,
	"published_at": true,
}

func (r *Repository) CreatePost(ctx context.Context, post *models.GeneratedPost) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *Repository) GetPostByID(ctx context.Context, id uint) (*models.GeneratedPost, error) {
	var post models.GeneratedPost
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("post %d: %w", id, storage.ErrNotFound)
		}
		return nil, err
	}
	return &post, nil
}

func (r *Repository) ListPosts(ctx context.Context, filter storage.PostFilter) ([]*models.GeneratedPost, error) {
	var posts []*models.GeneratedPost
	query := r.db.WithContext(ctx).Model(&models.GeneratedPost{})

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.BonusName != "" {
		query = query.Where("bonus_name = ?", filter.BonusName)
	}
	if filter.Template != "" {
		query = query.Where("template = ?", filter.Template)
	}

	// Ordering
	orderCol := "created_at"
	if orderColumns[filter.OrderBy] {
		orderCol = filter.OrderBy
	}
	if filter.OrderDesc {
		query = query.Order(orderCol + " DESC").Order("id DESC")
	} else {
		query = query.Order(orderCol + " ASC").Order("id ASC")
	}

	// Pagination
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *Repository) UpdatePost(ctx context.Context, post *models.GeneratedPost) error {
	return r.db.WithContext(ctx).Save(post).Error
}

func (r *Repository) DeletePost(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.GeneratedPost{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("post %d: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (r *Repository) RecentPosts(ctx context.Context, limit int) ([]*models.GeneratedPost, error) {
	var posts []*models.GeneratedPost
	query := r.db.WithContext(ctx).
		Where("status <> ?", models.GeneratedStatusFailed).
		Order("created_at DESC").
		Order("id DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}
