package sheet

import (
	"assignmentTracker/internal/logger"
	"assignmentTracker/internal/models/task"
	repo "assignmentTracker/internal/repository"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const timeLayout = time.RFC3339

// Storage хранит задачи и отметки в файле-таблице с двумя листами.
// Каждая операция перечитывает файл, так что правки, сделанные руками, видны сразу.
type Storage struct {
	path string
	mtx  sync.Mutex
}

func Open(path string) (*Storage, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("пустой путь к таблице")
	}

	s := &Storage{path: path}
	wb, err := readWorkbook(path)
	if err != nil {
		logger.Error("Repository: Таблица недоступна", err, zap.String("path", path))
		return nil, err
	}
	if err := writeWorkbook(path, wb); err != nil {
		logger.Error("Repository: Не удалось записать таблицу", err, zap.String("path", path))
		return nil, err
	}

	logger.Info("Repository: Таблица готова", zap.String("path", path))
	return s, nil
}

func (s *Storage) Close() error {
	return nil
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	if _, err := readWorkbook(s.path); err != nil {
		logger.Error("Repository: Таблица недоступна", err)
		return err
	}
	return nil
}

// modify применяет изменение к свежей копии таблицы и сохраняет её, если fn вернул true
func (s *Storage) modify(ctx context.Context, fn func(wb *Workbook) (bool, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	wb, err := readWorkbook(s.path)
	if err != nil {
		return err
	}

	changed, err := fn(wb)
	if err != nil || !changed {
		return err
	}
	return writeWorkbook(s.path, wb)
}

func (s *Storage) read(ctx context.Context) (*Workbook, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()
	return readWorkbook(s.path)
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

// испорченное значение флага считается "не выполнено"
func parseBool(raw string) bool {
	done, err := strconv.ParseBool(strings.ToLower(raw))
	if err != nil {
		return false
	}
	return done
}

func taskFromRow(sh *Sheet, row []string) (*task.Task, error) {
	id, err := uuid.Parse(sh.Cell(row, "id"))
	if err != nil {
		return nil, fmt.Errorf("разбор идентификатора: %w", err)
	}

	t := &task.Task{
		UUID:      id,
		Lecture:   sh.Cell(row, "lecture"),
		Title:     sh.Cell(row, "title"),
		DueTime:   parseTime(sh.Cell(row, "due_time")),
		CreatedBy: sh.Cell(row, "created_by"),
		Author:    sh.Cell(row, "author"),
		CreatedAt: parseTime(sh.Cell(row, "created_at")),
	}
	if updated := parseTime(sh.Cell(row, "updated_at")); !updated.IsZero() {
		t.UpdatedAt = &updated
	}
	return t, nil
}

func rowValues(t *task.Task) map[string]string {
	values := map[string]string{
		"id":         t.UUID.String(),
		"lecture":    t.Lecture,
		"title":      t.Title,
		"due_time":   formatTime(t.DueTime),
		"created_by": t.CreatedBy,
		"author":     t.Author,
		"created_at": formatTime(t.CreatedAt),
	}
	if t.UpdatedAt != nil {
		values["updated_at"] = formatTime(*t.UpdatedAt)
	}
	return values
}

func findTaskRow(sh *Sheet, id uuid.UUID) int {
	for i, row := range sh.Rows {
		if rowID, err := uuid.Parse(sh.Cell(row, "id")); err == nil && rowID == id {
			return i
		}
	}
	return -1
}

func (s *Storage) ListAll(ctx context.Context) ([]*task.Task, error) {
	wb, err := s.read(ctx)
	if err != nil {
		logger.Error("Repository: Не удалось прочитать задачи", err)
		return nil, fmt.Errorf("получение задач: %w", err)
	}

	sh := wb.sheet(tasksSheet, tasksHeader)
	tasks := make([]*task.Task, 0, len(sh.Rows))
	for i, row := range sh.Rows {
		t, err := taskFromRow(sh, row)
		if err != nil {
			logger.Warn("Repository: Пропуск испорченной строки",
				zap.Int("row", i+2),
				zap.Error(err))
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (s *Storage) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	wb, err := s.read(ctx)
	if err != nil {
		logger.Error("Repository: Не удалось прочитать задачу", err)
		return nil, fmt.Errorf("получение задачи: %w", err)
	}

	sh := wb.sheet(tasksSheet, tasksHeader)
	i := findTaskRow(sh, id)
	if i < 0 {
		return nil, repo.ErrNotFound
	}
	return taskFromRow(sh, sh.Rows[i])
}

func (s *Storage) Insert(ctx context.Context, taskToCreate *task.Task) error {
	if taskToCreate.CreatedAt.IsZero() {
		taskToCreate.CreatedAt = time.Now()
	}

	err := s.modify(ctx, func(wb *Workbook) (bool, error) {
		sh := wb.sheet(tasksSheet, tasksHeader)
		if findTaskRow(sh, taskToCreate.UUID) >= 0 {
			return false, fmt.Errorf("задача %s уже существует", taskToCreate.UUID)
		}
		sh.Rows = append(sh.Rows, sh.Row(rowValues(taskToCreate)))
		return true, nil
	})
	if err != nil {
		logger.Error("Repository: Не удалось добавить задачу", err)
		return fmt.Errorf("добавление задачи: %w", err)
	}
	return nil
}

// Update переписывает только ячейки переданных полей в строке задачи
func (s *Storage) Update(ctx context.Context, id uuid.UUID, fields task.Fields) (*task.Task, error) {
	var updated *task.Task

	err := s.modify(ctx, func(wb *Workbook) (bool, error) {
		sh := wb.sheet(tasksSheet, tasksHeader)
		i := findTaskRow(sh, id)
		if i < 0 {
			return false, repo.ErrNotFound
		}

		row := sh.Rows[i]
		if fields.Lecture != nil {
			row = sh.SetCell(row, "lecture", *fields.Lecture)
		}
		if fields.Title != nil {
			row = sh.SetCell(row, "title", *fields.Title)
		}
		if fields.DueTime != nil {
			row = sh.SetCell(row, "due_time", formatTime(*fields.DueTime))
		}
		row = sh.SetCell(row, "updated_at", formatTime(time.Now()))
		sh.Rows[i] = row

		t, err := taskFromRow(sh, row)
		if err != nil {
			return false, err
		}
		updated = t
		return true, nil
	})
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}
		logger.Error("Repository: Не удалось обновить задачу", err)
		return nil, fmt.Errorf("обновление задачи: %w", err)
	}
	return updated, nil
}

// Delete удаляет строку задачи и все строки отметок о ней
func (s *Storage) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.modify(ctx, func(wb *Workbook) (bool, error) {
		tasks := wb.sheet(tasksSheet, tasksHeader)
		i := findTaskRow(tasks, id)
		if i >= 0 {
			tasks.Rows = append(tasks.Rows[:i], tasks.Rows[i+1:]...)
		}

		removed := removeStatuses(wb.sheet(statusSheet, statusHeader), func(taskID uuid.UUID, valid bool) bool {
			return valid && taskID == id
		})
		return i >= 0 || removed > 0, nil
	})
	if err != nil {
		logger.Error("Repository: Не удалось удалить задачу", err)
		return fmt.Errorf("удаление задачи: %w", err)
	}
	return nil
}

// removeStatuses сравнивает task_id так же, как GetStatuses: через uuid.Parse,
// поэтому {uuid}, urn:uuid:... и запись без дефисов означают одну задачу
func removeStatuses(sh *Sheet, match func(taskID uuid.UUID, valid bool) bool) int {
	kept := sh.Rows[:0]
	removed := 0
	for _, row := range sh.Rows {
		taskID, err := uuid.Parse(sh.Cell(row, "task_id"))
		if match(taskID, err == nil) {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	sh.Rows = kept
	return removed
}

func (s *Storage) GetStatuses(ctx context.Context, user string) (map[uuid.UUID]bool, error) {
	wb, err := s.read(ctx)
	if err != nil {
		logger.Error("Repository: Не удалось прочитать отметки", err)
		return nil, fmt.Errorf("получение отметок: %w", err)
	}

	sh := wb.sheet(statusSheet, statusHeader)
	res := map[uuid.UUID]bool{}
	for _, row := range sh.Rows {
		if sh.Cell(row, "user") != user {
			continue
		}
		id, err := uuid.Parse(sh.Cell(row, "task_id"))
		if err != nil {
			logger.Warn("Repository: Пропуск отметки с испорченным идентификатором",
				zap.String("task_id", sh.Cell(row, "task_id")))
			continue
		}
		res[id] = parseBool(sh.Cell(row, "is_done"))
	}
	return res, nil
}

// SetStatus - upsert одной строки листа status
func (s *Storage) SetStatus(ctx context.Context, user string, id uuid.UUID, done bool) error {
	err := s.modify(ctx, func(wb *Workbook) (bool, error) {
		sh := wb.sheet(statusSheet, statusHeader)
		value := strconv.FormatBool(done)

		for i, row := range sh.Rows {
			if sh.Cell(row, "user") != user {
				continue
			}
			if rowID, err := uuid.Parse(sh.Cell(row, "task_id")); err != nil || rowID != id {
				continue
			}
			if sh.Cell(row, "is_done") == value {
				return false, nil
			}
			sh.Rows[i] = sh.SetCell(row, "is_done", value)
			return true, nil
		}

		sh.Rows = append(sh.Rows, sh.Row(map[string]string{
			"user":    user,
			"task_id": id.String(),
			"is_done": value,
		}))
		return true, nil
	})
	if err != nil {
		logger.Error("Repository: Не удалось сохранить отметку", err)
		return fmt.Errorf("сохранение отметки: %w", err)
	}
	return nil
}

// PurgeOrphans удаляет отметки о задачах, строк которых больше нет
func (s *Storage) PurgeOrphans(ctx context.Context) (int, error) {
	removed := 0
	err := s.modify(ctx, func(wb *Workbook) (bool, error) {
		tasks := wb.sheet(tasksSheet, tasksHeader)
		known := make(map[uuid.UUID]struct{}, len(tasks.Rows))
		for _, row := range tasks.Rows {
			if id, err := uuid.Parse(tasks.Cell(row, "id")); err == nil {
				known[id] = struct{}{}
			}
		}

		// отметка с нечитаемым task_id не принадлежит ни одной задаче
		removed = removeStatuses(wb.sheet(statusSheet, statusHeader), func(taskID uuid.UUID, valid bool) bool {
			if !valid {
				return true
			}
			_, ok := known[taskID]
			return !ok
		})
		return removed > 0, nil
	})
	if err != nil {
		logger.Error("Repository: Не удалось удалить отметки-сироты", err)
		return 0, fmt.Errorf("удаление отметок-сирот: %w", err)
	}
	return removed, nil
}
