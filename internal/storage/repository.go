package storage

import (
	"context"
	"errors"

	"github.com/channel-agent/internal/models"
)

// ErrNotFound is returned when a post does not exist
var ErrNotFound = errors.New("not found")

// Repository defines the interface for generated post history
type Repository interface {
	CreatePost(ctx context.Context, post *models.GeneratedPost) error
	GetPostByID(ctx context.Context, id uint) (*models.GeneratedPost, error)
	ListPosts(ctx context.Context, filter PostFilter) ([]*models.GeneratedPost, error)
	UpdatePost(ctx context.Context, post *models.GeneratedPost) error
	DeletePost(ctx context.Context, id uint) error

	// RecentPosts returns the newest posts first. Failed posts are skipped.
	RecentPosts(ctx context.Context, limit int) ([]*models.GeneratedPost, error)

	// Maintenance
	Close() error
	Migrate() error
}

// PostFilter defines filtering options for posts
type PostFilter struct {
	Status    *models.GeneratedStatus
	BonusName string
	Template  string
	Limit     int
	Offset    int
	OrderBy   string // "created_at", "published_at" or "id"
	OrderDesc bool
}

// DefaultPostFilter returns a filter with sensible defaults
func DefaultPostFilter() PostFilter {
	return PostFilter{
		Limit:     50,
		OrderBy:   "created_at",
		OrderDesc: true,
	}
}
