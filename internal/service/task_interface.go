package service

import (
	"assignmentTracker/internal/models/task"
	"context"

	"github.com/google/uuid"
)

// TaskRepository - построчные операции над таблицей задач
type TaskRepository interface {
	HealthCheck(context.Context) error
	ListAll(context.Context) ([]*task.Task, error)
	GetByID(context.Context, uuid.UUID) (*task.Task, error)
	Insert(context.Context, *task.Task) error
	Update(context.Context, uuid.UUID, task.Fields) (*task.Task, error)
	// Delete удаляет задачу вместе с отметками всех пользователей; отсутствующий id не ошибка
	Delete(context.Context, uuid.UUID) error
}

// StatusRepository - отметки о выполнении (пользователь, задача) -> bool
type StatusRepository interface {
	GetStatuses(context.Context, string) (map[uuid.UUID]bool, error)
	SetStatus(context.Context, string, uuid.UUID, bool) error
}
