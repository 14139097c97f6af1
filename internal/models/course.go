package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Course is a purchasable unit of content.
type Course struct {
	ID           string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Slug         string          `json:"slug" gorm:"uniqueIndex;type:varchar(150);not null"`
	Title        string          `json:"title" gorm:"type:varchar(200);not null"`
	Description  string          `json:"description" gorm:"type:text"`
	Category     string          `json:"category" gorm:"type:varchar(100);index"`
	ThumbnailURL string          `json:"thumbnail_url"`
	Price        decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
	IsPublished  bool            `json:"is_published" gorm:"default:false;index"`
	Modules      []CourseModule  `json:"modules,omitempty" gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// CourseModule is one lesson within a course. Content is either inline
// markdown or an s3:// reference into the content bucket.
type CourseModule struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CourseID  string    `json:"course_id" gorm:"type:varchar(36);index;not null"`
	Title     string    `json:"title" gorm:"type:varchar(200);not null"`
	Order     int       `json:"order" gorm:"column:sort_order;not null;default:0"`
	Duration  int       `json:"duration"` // minutes
	IsPreview bool      `json:"is_preview" gorm:"default:false"`
	Content   string    `json:"-" gorm:"type:text"`
	Course    *Course   `json:"-" gorm:"foreignKey:CourseID"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ModuleSummary is the anonymous preview listing of a module. It never
// carries content.
type ModuleSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Order     int    `json:"order"`
	Duration  int    `json:"duration"`
	IsPreview bool   `json:"is_preview"`
}

// Summary strips the module down to its public listing.
func (m CourseModule) Summary() ModuleSummary {
	return ModuleSummary{
		ID:        m.ID,
		Title:     m.Title,
		Order:     m.Order,
		Duration:  m.Duration,
		IsPreview: m.IsPreview,
	}
}
