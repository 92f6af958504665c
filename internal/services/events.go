package services

import (
	"context"
	"time"

	"github.com/gofrs/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "taskboard/backend/internal/services"

type EventType string

const (
	EventWorkspaceCreated   EventType = "workspace.created"
	EventColumnCreated      EventType = "column.created"
	EventColumnUpdated      EventType = "column.updated"
	EventColumnDeleted      EventType = "column.deleted"
	EventColumnsReordered   EventType = "columns.reordered"
	EventColumnRenormalized EventType = "column.renormalized"
	EventTaskCreated        EventType = "task.created"
	EventTaskUpdated        EventType = "task.updated"
	EventTaskMoved          EventType = "task.moved"
	EventTaskArchived       EventType = "task.archived"
)

// BoardEvent tells other sessions on a workspace that the board changed and
// should be refetched. It carries no board state.
type BoardEvent struct {
	Type        EventType `json:"type"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	ResourceID  uuid.UUID `json:"resource_id"`
	ActorID     uuid.UUID `json:"actor_id"`
	At          time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, event BoardEvent)
}

// Publishers fans one event out to several publishers in order.
type Publishers []Publisher

func (p Publishers) Publish(ctx context.Context, event BoardEvent) {
	for _, pub := range p {
		if pub != nil {
			pub.Publish(ctx, event)
		}
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, BoardEvent) {}

// RenormalizeScheduler queues a rewrite of a column's task positions once
// fractional keys have worn too thin to split.
type RenormalizeScheduler interface {
	ScheduleRenormalize(ctx context.Context, workspaceID, columnID uuid.UUID) error
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
