package models

import "time"

// UserProgress tracks one user's engagement with one module.
type UserProgress struct {
	UserID         string        `json:"user_id" gorm:"primaryKey;type:varchar(36)"`
	CourseID       string        `json:"course_id" gorm:"primaryKey;type:varchar(36)"`
	ModuleID       string        `json:"module_id" gorm:"primaryKey;type:varchar(36)"`
	CompletedAt    *time.Time    `json:"completed_at"`
	TimeSpent      int64         `json:"time_spent" gorm:"not null;default:0"` // seconds
	LastAccessedAt time.Time     `json:"last_accessed_at" gorm:"index"`
	Course         *Course       `json:"course,omitempty" gorm:"foreignKey:CourseID"`
	Module         *CourseModule `json:"module,omitempty" gorm:"foreignKey:ModuleID"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

func (UserProgress) TableName() string { return "user_progress" }
