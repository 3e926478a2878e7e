// internal/models/blog.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

type BlogPost struct {
	BaseModel
	AuthorID    uuid.UUID      `json:"author_id" gorm:"type:uuid;not null;index"`
	Title       string         `json:"title" gorm:"uniqueIndex;size:255;not null"`
	Slug        string         `json:"slug" gorm:"uniqueIndex;size:255;not null"`
	Excerpt     string         `json:"excerpt" gorm:"size:500"`
	Content     string         `json:"content" gorm:"type:text"`
	Tags        pq.StringArray `json:"tags" gorm:"type:text[]"`
	Published   bool           `json:"published" gorm:"default:false;index"`
	PublishedAt *time.Time     `json:"published_at,omitempty"`

	Author *User `json:"author,omitempty" gorm:"foreignKey:AuthorID"`
}

func (p *BlogPost) BeforeSave(tx *gorm.DB) error {
	if p.Slug == "" {
		p.Slug = Slugify(p.Title)
	}
	if p.Published && p.PublishedAt == nil {
		now := time.Now()
		p.PublishedAt = &now
	}
	return nil
}
