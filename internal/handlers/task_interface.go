package handlers

import (
	"assignmentTracker/internal/models/task"
	"assignmentTracker/internal/service"
	"assignmentTracker/internal/visibility"
	"context"
	"time"

	"github.com/google/uuid"
)

type Service interface {
	HealthCheck(ctx context.Context) error
	Location() *time.Location

	ListTasks(ctx context.Context, user string, q service.ListQuery) ([]visibility.Entry, error)
	ListByLecture(ctx context.Context, user string, q service.ListQuery) ([]visibility.LectureGroup, error)
	Calendar(ctx context.Context, user string, month time.Time) ([]visibility.Day, error)
	GetTask(ctx context.Context, user string, id uuid.UUID) (visibility.Entry, error)

	CreateTask(ctx context.Context, user string, in service.NewTask) (visibility.Entry, error)
	UpdateTask(ctx context.Context, user string, id uuid.UUID, options ...task.TaskOption) (visibility.Entry, error)
	DeleteTask(ctx context.Context, user string, id uuid.UUID) error
	SetCompletion(ctx context.Context, user string, id uuid.UUID, done bool) error
}

var _ Service = (*service.TaskService)(nil)
