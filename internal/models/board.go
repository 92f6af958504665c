package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type Workspace struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	Name      string    `json:"name" gorm:"not null"`
	OwnerID   uuid.UUID `json:"owner_id" gorm:"type:uuid;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Members []WorkspaceMember `json:"members,omitempty" gorm:"foreignKey:WorkspaceID"`
	Columns []Column          `json:"columns,omitempty" gorm:"foreignKey:WorkspaceID"`
}

type WorkspaceMember struct {
	WorkspaceID uuid.UUID `json:"workspace_id" gorm:"type:uuid;not null;primaryKey"`
	UserID      uuid.UUID `json:"user_id" gorm:"type:uuid;not null;primaryKey"`
	Role        Role      `json:"role" gorm:"not null;default:'member'"`
	IsActive    bool      `json:"is_active" gorm:"not null;default:true"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Column struct {
	ID          uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	WorkspaceID uuid.UUID `json:"workspace_id" gorm:"type:uuid;not null;index:idx_columns_workspace_position"`
	Name        string    `json:"name" gorm:"not null"`
	Color       string    `json:"color"`
	Position    int       `json:"position" gorm:"not null;index:idx_columns_workspace_position"`
	IsDefault   bool      `json:"is_default" gorm:"not null;default:false"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Task struct {
	ID          uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid"`
	WorkspaceID uuid.UUID  `json:"workspace_id" gorm:"type:uuid;not null;index:idx_tasks_workspace"`
	Title       string     `json:"title" gorm:"not null"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status" gorm:"not null;default:'todo'"`
	ColumnID    *uuid.UUID `json:"column_id,omitempty" gorm:"type:uuid;index:idx_tasks_column_position"`
	Priority    Priority   `json:"priority" gorm:"not null;default:'medium'"`
	Assignees   StringList `json:"assignees,omitempty" gorm:"type:text"`
	CreatedBy   uuid.UUID  `json:"created_by" gorm:"type:uuid;not null"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Tags        StringList `json:"tags,omitempty" gorm:"type:text"`
	Attachments StringList `json:"attachments,omitempty" gorm:"type:text"`
	Links       StringList `json:"links,omitempty" gorm:"type:text"`
	Position    float64    `json:"position" gorm:"not null;default:0;index:idx_tasks_column_position"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	IsArchived  bool       `json:"is_archived" gorm:"not null;default:false"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// InColumn reports whether the task currently sits in the given column.
func (t *Task) InColumn(id uuid.UUID) bool {
	return t.ColumnID != nil && *t.ColumnID == id
}

func (w *Workspace) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.Must(uuid.NewV4())
	}
	return nil
}

func (c *Column) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.Must(uuid.NewV4())
	}
	return nil
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.Must(uuid.NewV4())
	}
	return nil
}

// StringList is stored as a JSON array in a text column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	data, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (l *StringList) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}
	if len(data) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(data, (*[]string)(l))
}
