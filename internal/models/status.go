package models

import (
	"fmt"

	"github.com/gofrs/uuid"
)

type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusReview     Status = "review"
	StatusDone       Status = "done"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

// canonicalColumns is the only place the legacy status set is tied to column
// names. Both directions of the mapping are derived from it.
var canonicalColumns = []struct {
	Status Status
	Name   string
	Color  string
}{
	{StatusTodo, "To Do", "gray"},
	{StatusInProgress, "In Progress", "blue"},
	{StatusReview, "Review", "yellow"},
	{StatusDone, "Done", "green"},
}

func (s Status) Valid() bool {
	_, ok := ColumnNameForStatus(s)
	return ok
}

// ColumnNameForStatus returns the canonical column name for a legacy status.
func ColumnNameForStatus(s Status) (string, bool) {
	for _, c := range canonicalColumns {
		if c.Status == s {
			return c.Name, true
		}
	}
	return "", false
}

// StatusForColumnName is the inverse lookup. Only exact canonical names map;
// custom column names leave status alone.
func StatusForColumnName(name string) (Status, bool) {
	for _, c := range canonicalColumns {
		if c.Name == name {
			return c.Status, true
		}
	}
	return "", false
}

// DefaultColumns returns the column set seeded into a new workspace.
func DefaultColumns(workspaceID uuid.UUID) []Column {
	cols := make([]Column, 0, len(canonicalColumns))
	for i, c := range canonicalColumns {
		cols = append(cols, Column{
			ID:          uuid.Must(uuid.NewV4()),
			WorkspaceID: workspaceID,
			Name:        c.Name,
			Color:       c.Color,
			Position:    i,
			IsDefault:   true,
		})
	}
	return cols
}

func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q", v)
	}
	return s, nil
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember, RoleViewer:
		return true
	}
	return false
}

// CanManageColumns reports whether the role may create, rename, delete or
// reorder columns.
func (r Role) CanManageColumns() bool {
	return r == RoleOwner || r == RoleAdmin
}

// CanEditTasks reports whether the role may create or move tasks.
func (r Role) CanEditTasks() bool {
	return r == RoleOwner || r == RoleAdmin || r == RoleMember
}

// Placement is where a task is being put: either one of the legacy statuses
// or a concrete column. Exactly one side is set.
type Placement struct {
	status   Status
	columnID uuid.UUID
}

func LegacyStatus(s Status) Placement {
	return Placement{status: s}
}

func CustomColumn(id uuid.UUID) Placement {
	return Placement{columnID: id}
}

func (p Placement) Status() (Status, bool) {
	return p.status, p.status != ""
}

func (p Placement) ColumnID() (uuid.UUID, bool) {
	return p.columnID, p.columnID != uuid.Nil
}

func (p Placement) IsZero() bool {
	return p.status == "" && p.columnID == uuid.Nil
}

func (p Placement) String() string {
	if id, ok := p.ColumnID(); ok {
		return "column:" + id.String()
	}
	if s, ok := p.Status(); ok {
		return "status:" + string(s)
	}
	return "unplaced"
}
