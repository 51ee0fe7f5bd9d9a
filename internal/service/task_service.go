package service

import (
	"assignmentTracker/internal/logger"
	"assignmentTracker/internal/models/task"
	rep "assignmentTracker/internal/repository"
	"assignmentTracker/internal/visibility"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// здесь происходит проверка прав и ошибок бизнес-логики

type NewTask struct {
	Lecture string
	Title   string
	DueTime time.Time
	Shared  bool
}

type ListQuery struct {
	Lecture  string
	From     time.Time // включительно
	To       time.Time // не включительно
	HideDone bool
}

type TaskService struct {
	tasks    TaskRepository
	statuses StatusRepository
	filter   visibility.Filter
	location *time.Location
	now      func() time.Time
}

func NewTaskService(tasks TaskRepository, statuses StatusRepository, policy visibility.Policy, opts ...ServiceOption) *TaskService {
	s := &TaskService{
		tasks:    tasks,
		statuses: statuses,
		filter:   visibility.NewFilter(policy),
		location: time.UTC,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TaskService) Location() *time.Location {
	return s.location
}

func (s *TaskService) HealthCheck(ctx context.Context) error {
	if err := s.tasks.HealthCheck(ctx); err != nil {
		return fmt.Errorf("проверка здоровья сервиса: %w", err)
	}
	return nil
}

func (s *TaskService) identity(user string) (string, error) {
	user = task.NormalizeIdentity(user)
	if user == "" {
		return "", NewValidationError("passphrase", "значение не может быть пустым")
	}
	if user == task.Shared {
		return "", NewReservedIdentity(user)
	}
	return user, nil
}

// snapshot читает все задачи и отметки пользователя.
// Ошибка хранилища не пробрасывается: пользователь видит пустой список.
func (s *TaskService) snapshot(ctx context.Context, user string) []visibility.Entry {
	tasks, err := s.tasks.ListAll(ctx)
	if err != nil {
		logger.Warn("Service: Хранилище задач недоступно, отдаём пустой список",
			zap.Error(err),
			zap.String("user", user))
		return []visibility.Entry{}
	}

	statuses, err := s.statuses.GetStatuses(ctx, user)
	if err != nil {
		logger.Warn("Service: Не удалось получить отметки, считаем задачи невыполненными",
			zap.Error(err),
			zap.String("user", user))
		statuses = map[uuid.UUID]bool{}
	}

	return s.filter.Join(tasks, user, statuses)
}

func (s *TaskService) ListTasks(ctx context.Context, user string, q ListQuery) ([]visibility.Entry, error) {
	user, err := s.identity(user)
	if err != nil {
		return nil, err
	}

	lecture := strings.TrimSpace(q.Lecture)
	res := []visibility.Entry{}
	for _, e := range s.snapshot(ctx, user) {
		if lecture != "" && !strings.EqualFold(e.Task.Lecture, lecture) {
			continue
		}
		if !q.From.IsZero() && e.Task.DueTime.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && !e.Task.DueTime.Before(q.To) {
			continue
		}
		if q.HideDone && e.Done {
			continue
		}
		res = append(res, e)
	}

	visibility.SortByDue(res)
	return res, nil
}

func (s *TaskService) ListByLecture(ctx context.Context, user string, q ListQuery) ([]visibility.LectureGroup, error) {
	entries, err := s.ListTasks(ctx, user, q)
	if err != nil {
		return nil, err
	}
	return visibility.GroupByLecture(entries), nil
}

// Calendar - задачи месяца month, разложенные по дням в часовом поясе сервиса
func (s *TaskService) Calendar(ctx context.Context, user string, month time.Time) ([]visibility.Day, error) {
	if month.IsZero() {
		month = s.now()
	}
	from := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, s.location)
	to := from.AddDate(0, 1, 0)

	entries, err := s.ListTasks(ctx, user, ListQuery{From: from, To: to})
	if err != nil {
		return nil, err
	}
	return visibility.GroupByDay(entries, s.location), nil
}

func (s *TaskService) GetTask(ctx context.Context, user string, id uuid.UUID) (visibility.Entry, error) {
	user, err := s.identity(user)
	if err != nil {
		return visibility.Entry{}, err
	}

	current, err := s.loadVisible(ctx, user, id)
	if err != nil {
		return visibility.Entry{}, err
	}

	return s.entry(ctx, user, current), nil
}

func (s *TaskService) CreateTask(ctx context.Context, user string, in NewTask) (visibility.Entry, error) {
	user, err := s.identity(user)
	if err != nil {
		return visibility.Entry{}, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return visibility.Entry{}, NewValidationError("title", "название не может быть пустым")
	}
	if in.DueTime.IsZero() {
		return visibility.Entry{}, NewValidationError("due_time", "дедлайн должен быть задан")
	}

	createdBy := user
	if in.Shared {
		createdBy = task.Shared
	}

	newTask := &task.Task{
		UUID:      uuid.New(),
		Lecture:   strings.TrimSpace(in.Lecture),
		Title:     title,
		DueTime:   in.DueTime,
		CreatedBy: createdBy,
		Author:    user,
		CreatedAt: s.now(),
	}

	if err := s.tasks.Insert(ctx, newTask); err != nil {
		return visibility.Entry{}, NewStoreUnavailable("create_task", fmt.Errorf("создание задачи: %w", err))
	}

	logger.Info("Service: Задача создана",
		zap.String("task_id", newTask.UUID.String()),
		zap.Bool("shared", in.Shared))

	return visibility.Entry{Task: newTask, Editable: s.filter.CanEdit(newTask, user)}, nil
}

func (s *TaskService) UpdateTask(ctx context.Context, user string, id uuid.UUID, options ...task.TaskOption) (visibility.Entry, error) {
	user, err := s.identity(user)
	if err != nil {
		return visibility.Entry{}, err
	}

	fields := task.BuildFields(options...)
	if fields.Empty() {
		return visibility.Entry{}, NewValidationError("fields", "нет полей для обновления")
	}
	if fields.Title != nil && *fields.Title == "" {
		return visibility.Entry{}, NewValidationError("title", "название не может быть пустым")
	}

	current, err := s.loadVisible(ctx, user, id)
	if err != nil {
		return visibility.Entry{}, err
	}
	if !s.filter.CanEdit(current, user) {
		logger.Warn("Service: Попытка изменить чужую задачу",
			zap.String("task_id", id.String()),
			zap.String("user", user))
		return visibility.Entry{}, NewNotEditable(id.String())
	}

	updated, err := s.tasks.Update(ctx, id, fields)
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			return visibility.Entry{}, NewNotFound("задача", id.String())
		}
		return visibility.Entry{}, NewStoreUnavailable("update_task", fmt.Errorf("обновление задачи: %w", err))
	}

	return s.entry(ctx, user, updated), nil
}

// DeleteTask удаляет задачу и все отметки о ней. Удаление несуществующей или невидимой задачи - не ошибка.
func (s *TaskService) DeleteTask(ctx context.Context, user string, id uuid.UUID) error {
	user, err := s.identity(user)
	if err != nil {
		return err
	}

	current, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			logger.Info("Service: Задача уже удалена", zap.String("task_id", id.String()))
			return nil
		}
		return NewStoreUnavailable("delete_task", fmt.Errorf("получение задачи: %w", err))
	}

	// чужая личная задача для пользователя не существует, удаление такой же no-op, как и отсутствующей
	if !s.filter.CanView(current, user) {
		logger.Info("Service: Задача не найдена", zap.String("target_id", id.String()))
		return nil
	}
	if !s.filter.CanEdit(current, user) {
		logger.Warn("Service: Попытка удалить чужую задачу",
			zap.String("task_id", id.String()),
			zap.String("user", user))
		return NewNotEditable(id.String())
	}

	if err := s.tasks.Delete(ctx, id); err != nil {
		return NewStoreUnavailable("delete_task", fmt.Errorf("удаление задачи: %w", err))
	}

	logger.Info("Service: Задача удалена", zap.String("task_id", id.String()))
	return nil
}

// SetCompletion - upsert отметки пользователя, последняя запись побеждает
func (s *TaskService) SetCompletion(ctx context.Context, user string, id uuid.UUID, done bool) error {
	user, err := s.identity(user)
	if err != nil {
		return err
	}

	if _, err := s.loadVisible(ctx, user, id); err != nil {
		return err
	}

	if err := s.statuses.SetStatus(ctx, user, id, done); err != nil {
		return NewStoreUnavailable("set_completion", fmt.Errorf("сохранение отметки: %w", err))
	}
	return nil
}

// loadVisible возвращает задачу, если пользователь может её видеть; чужие задачи выглядят как отсутствующие
func (s *TaskService) loadVisible(ctx context.Context, user string, id uuid.UUID) (*task.Task, error) {
	current, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			logger.Info("Service: Задача не найдена", zap.String("target_id", id.String()))
			return nil, NewNotFound("задача", id.String())
		}
		return nil, NewStoreUnavailable("get_task", fmt.Errorf("получение задачи: %w", err))
	}

	if !s.filter.CanView(current, user) {
		return nil, NewNotFound("задача", id.String())
	}
	return current, nil
}

func (s *TaskService) entry(ctx context.Context, user string, t *task.Task) visibility.Entry {
	statuses, err := s.statuses.GetStatuses(ctx, user)
	if err != nil {
		logger.Warn("Service: Не удалось получить отметки", zap.Error(err))
		statuses = nil
	}

	return visibility.Entry{
		Task:     t,
		Editable: s.filter.CanEdit(t, user),
		Done:     statuses[t.UUID],
	}
}
