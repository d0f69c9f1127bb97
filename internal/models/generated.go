package models

import (
	"time"
)

// GeneratedStatus represents the state of a generated post
type GeneratedStatus string

const (
	GeneratedStatusDraft     GeneratedStatus = "draft"
	GeneratedStatusPublished GeneratedStatus = "published"
	GeneratedStatusFailed    GeneratedStatus = "failed"
)

// GeneratedPost is an AI-generated post kept in the rolling history
type GeneratedPost struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	Content           string          `gorm:"type:text;not null" json:"content"`
	Template          string          `gorm:"index" json:"template"`
	LinkFormat        LinkFormat      `json:"link_format"`
	BonusName         string          `gorm:"index" json:"bonus_name"`
	BonusURL          string          `json:"bonus_url"`
	Attempts          int             `json:"attempts"`
	Fallback          bool            `json:"fallback"`
	Status            GeneratedStatus `gorm:"default:'draft';index" json:"status"`
	TelegramMessageID int             `json:"telegram_message_id"`
	ErrorMessage      string          `json:"error_message"`
	PublishedAt       *time.Time      `json:"published_at"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// CanPublish returns true if the post has not reached the channel yet
func (p *GeneratedPost) CanPublish() bool {
	return p.Status != GeneratedStatusPublished
}
