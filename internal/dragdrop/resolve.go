package dragdrop

import (
	"taskboard/backend/internal/models"

	"github.com/gofrs/uuid"
)

// BoardColumn is a column as the client renders it: tasks in display order.
type BoardColumn struct {
	ID    uuid.UUID   `json:"id"`
	Tasks []uuid.UUID `json:"tasks"`
}

type Board struct {
	Columns []BoardColumn `json:"columns"`
}

// locate returns the column index and index within it of taskID.
func (b Board) locate(taskID uuid.UUID) (int, int, bool) {
	for ci, col := range b.Columns {
		for ti, id := range col.Tasks {
			if id == taskID {
				return ci, ti, true
			}
		}
	}
	return 0, 0, false
}

func (b Board) column(id uuid.UUID) (int, bool) {
	for ci, col := range b.Columns {
		if col.ID == id {
			return ci, true
		}
	}
	return 0, false
}

// DropTarget is what the pointer was released over.
type DropTarget struct {
	Kind Kind
	ID   uuid.UUID
}

// TaskMove is the reorder request body. BeforeTaskID precedes the moved task
// after the move and AfterTaskID follows it.
type TaskMove struct {
	NewColumnID  *uuid.UUID     `json:"new_column_id,omitempty"`
	NewStatus    *models.Status `json:"new_status,omitempty"`
	BeforeTaskID *uuid.UUID     `json:"before_task_id,omitempty"`
	AfterTaskID  *uuid.UUID     `json:"after_task_id,omitempty"`
}

func without(ids []uuid.UUID, drop uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}

func idAt(ids []uuid.UUID, i int) *uuid.UUID {
	if i < 0 || i >= len(ids) {
		return nil
	}
	id := ids[i]
	return &id
}

// ResolveTaskDrop picks the neighbors for dropping taskID on target.
//
// A column drop lands at the head of that column. A task drop lands next to
// the target: after it when moving down within the same column, before it
// otherwise. It reports false when the drop changes nothing or the target is
// unknown.
func ResolveTaskDrop(board Board, taskID uuid.UUID, target DropTarget) (TaskMove, bool) {
	srcCol, _, ok := board.locate(taskID)
	if !ok {
		return TaskMove{}, false
	}

	var move TaskMove
	switch target.Kind {
	case KindColumn:
		ci, ok := board.column(target.ID)
		if !ok {
			return TaskMove{}, false
		}
		rest := without(board.Columns[ci].Tasks, taskID)
		move.AfterTaskID = idAt(rest, 0)
		if ci != srcCol {
			move.NewColumnID = &board.Columns[ci].ID
		}
		return move, true

	case KindTask:
		if target.ID == taskID {
			return TaskMove{}, false
		}
		ci, ti, ok := board.locate(target.ID)
		if !ok {
			return TaskMove{}, false
		}
		rest := without(board.Columns[ci].Tasks, taskID)
		// The dragged task takes the target's display slot. Moving down the
		// same column, the target has shifted up one in rest and so ends up
		// before the dragged task; otherwise it ends up after it.
		move.BeforeTaskID = idAt(rest, ti-1)
		move.AfterTaskID = idAt(rest, ti)
		if ci != srcCol {
			move.NewColumnID = &board.Columns[ci].ID
		}
		return move, true
	}
	return TaskMove{}, false
}
