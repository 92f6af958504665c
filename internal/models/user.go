package models

import (
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID          uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	Username    string    `json:"username" gorm:"unique"`
	Email       string    `json:"email" gorm:"unique;not null"`
	DisplayName string    `json:"display_name"`
	IsActive    bool      `json:"is_active" gorm:"default:true"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.Must(uuid.NewV4())
	}
	return nil
}

type AuditLog struct {
	ID          uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	WorkspaceID uuid.UUID `json:"workspace_id" gorm:"type:uuid;index"`
	UserID      uuid.UUID `json:"user_id" gorm:"type:uuid"`
	Action      string    `json:"action" gorm:"not null"`
	Resource    string    `json:"resource" gorm:"not null"`
	ResourceID  uuid.UUID `json:"resource_id" gorm:"type:uuid"`
	Decision    string    `json:"decision" gorm:"not null"`
	Reason      string    `json:"reason"`
	Context     string    `json:"context" gorm:"type:text"`
	Timestamp   time.Time `json:"timestamp"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.Must(uuid.NewV4())
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}
	return nil
}
