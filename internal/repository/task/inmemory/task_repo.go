package inmemory

import (
	"assignmentTracker/internal/logger"
	"assignmentTracker/internal/models/task"
	repo "assignmentTracker/internal/repository"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type TaskStorage struct {
	storage  map[uuid.UUID]*task.Task
	statuses map[string]map[uuid.UUID]bool
	mtx      *sync.RWMutex
	ids      []uuid.UUID
}

func NewTaskStorage() *TaskStorage {
	return &TaskStorage{
		storage:  make(map[uuid.UUID]*task.Task),
		statuses: make(map[string]map[uuid.UUID]bool),
		mtx:      &sync.RWMutex{},
		ids:      []uuid.UUID{},
	}
}

func (s *TaskStorage) HealthCheck(ctx context.Context) error {
	logger.Debug("Repository: Соединение стабильно")
	return nil
}

func (s *TaskStorage) Close() error {
	return nil
}

// наружу отдаём копии, чтобы вызывающий код не менял хранилище в обход мьютекса
func clone(t *task.Task) *task.Task {
	c := *t
	if t.UpdatedAt != nil {
		updated := *t.UpdatedAt
		c.UpdatedAt = &updated
	}
	return &c
}

func (s *TaskStorage) Insert(ctx context.Context, taskToCreate *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if taskToCreate.CreatedAt.IsZero() {
		taskToCreate.CreatedAt = time.Now()
	}

	if _, exists := s.storage[taskToCreate.UUID]; !exists {
		s.ids = append(s.ids, taskToCreate.UUID)
	}
	s.storage[taskToCreate.UUID] = clone(taskToCreate)
	return nil
}

func (s *TaskStorage) Update(ctx context.Context, id uuid.UUID, fields task.Fields) (*task.Task, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existing, ok := s.storage[id]
	if !ok {
		return nil, repo.ErrNotFound
	}

	fields.Apply(existing)
	now := time.Now()
	existing.UpdatedAt = &now

	return clone(existing), nil
}

func (s *TaskStorage) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	taskToGet, ok := s.storage[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return clone(taskToGet), nil
}

// ListAll - в порядке добавления
func (s *TaskStorage) ListAll(ctx context.Context) ([]*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := make([]*task.Task, 0, len(s.ids))
	for _, id := range s.ids {
		res = append(res, clone(s.storage[id]))
	}
	return res, nil
}

// удаление задачи вместе с отметками всех пользователей
func (s *TaskStorage) Delete(ctx context.Context, id uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.storage[id]; !ok {
		return nil
	}

	delete(s.storage, id)
	for ind, val := range s.ids {
		if val == id {
			s.ids = append(s.ids[:ind], s.ids[ind+1:]...)
			break
		}
	}

	for _, marks := range s.statuses {
		delete(marks, id)
	}
	return nil
}

func (s *TaskStorage) GetStatuses(ctx context.Context, user string) (map[uuid.UUID]bool, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := make(map[uuid.UUID]bool, len(s.statuses[user]))
	for id, done := range s.statuses[user] {
		res[id] = done
	}
	return res, nil
}

func (s *TaskStorage) SetStatus(ctx context.Context, user string, id uuid.UUID, done bool) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	marks, ok := s.statuses[user]
	if !ok {
		marks = make(map[uuid.UUID]bool)
		s.statuses[user] = marks
	}
	marks[id] = done
	return nil
}

// PurgeOrphans удаляет отметки о задачах, которых больше нет
func (s *TaskStorage) PurgeOrphans(ctx context.Context) (int, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	removed := 0
	for user, marks := range s.statuses {
		for id := range marks {
			if _, ok := s.storage[id]; !ok {
				delete(marks, id)
				removed++
			}
		}
		if len(marks) == 0 {
			delete(s.statuses, user)
		}
	}
	return removed, nil
}
