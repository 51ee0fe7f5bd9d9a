package sqlite

import (
	"assignmentTracker/internal/logger"
	"assignmentTracker/internal/models/task"
	repo "assignmentTracker/internal/repository"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// время хранится текстом в UTC с дробной частью фиксированной ширины:
// только так сортировка строк совпадает с хронологической
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const slowQuery = time.Millisecond * 100

type Storage struct {
	db *sql.DB
}

// Open открывает файл базы (создавая каталог) и применяет схему
func Open(dbPath string) (*Storage, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("пустой путь к базе")
	}

	if err := ensureDir(dbPath); err != nil {
		logger.Error("Repository: Не удалось создать каталог базы", err)
		return nil, fmt.Errorf("создание каталога: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=ON", dbPath))
	if err != nil {
		logger.Error("Repository: Не удалось открыть SQLite", err)
		return nil, fmt.Errorf("открытие sqlite: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	s := &Storage{db: conn}
	if err := s.migrate(); err != nil {
		_ = conn.Close()
		logger.Error("Repository: Ошибка миграции SQLite", err)
		return nil, err
	}

	logger.Info("Repository: SQLite готова", zap.String("path", dbPath))
	return s, nil
}

func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	return nil
}

func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *Storage) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
            uuid TEXT PRIMARY KEY,
            lecture TEXT NOT NULL DEFAULT '',
            title TEXT NOT NULL,
            due_time TEXT NOT NULL,
            created_by TEXT NOT NULL,
            author TEXT NOT NULL DEFAULT '',
            created_at TEXT NOT NULL,
            updated_at TEXT
        );`,
		`CREATE TABLE IF NOT EXISTS task_status (
            user_id TEXT NOT NULL,
            task_id TEXT NOT NULL,
            is_done INTEGER NOT NULL DEFAULT 0,
            PRIMARY KEY (user_id, task_id),
            FOREIGN KEY(task_id) REFERENCES tasks(uuid) ON DELETE CASCADE
        );`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_created_by ON tasks(created_by);`,
		`CREATE INDEX IF NOT EXISTS idx_task_status_task ON task_status(task_id);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("миграция: %w", err)
		}
	}
	return nil
}

func warnIfSlow(op string, start time.Time) {
	if time.Since(start) > slowQuery {
		logger.Warn("Repository: Медленный запрос",
			zap.String("operation", op),
			zap.Duration("ms", time.Since(start)))
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime возвращает нулевое время для испорченной ячейки
func parseTime(raw string) time.Time {
	// RFC3339 при разборе принимает дробную часть любой длины, в том числе записанную руками
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

type scanner interface {
	Scan(dest ...any) error
}

const taskColumns = `uuid, lecture, title, due_time, created_by, author, created_at, updated_at`

func scanTask(row scanner) (*task.Task, error) {
	var (
		rawID, due, created string
		updated             sql.NullString
		t                   task.Task
	)
	if err := row.Scan(&rawID, &t.Lecture, &t.Title, &due, &t.CreatedBy, &t.Author, &created, &updated); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("разбор идентификатора %q: %w", rawID, err)
	}
	t.UUID = id
	t.DueTime = parseTime(due)
	t.CreatedAt = parseTime(created)
	if updated.Valid {
		u := parseTime(updated.String)
		t.UpdatedAt = &u
	}
	return &t, nil
}

func (s *Storage) Insert(ctx context.Context, taskToCreate *task.Task) error {
	start := time.Now()

	if taskToCreate.CreatedAt.IsZero() {
		taskToCreate.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks(uuid, lecture, title, due_time, created_by, author, created_at) VALUES(?, ?, ?, ?, ?, ?, ?)`,
		taskToCreate.UUID.String(),
		taskToCreate.Lecture,
		taskToCreate.Title,
		formatTime(taskToCreate.DueTime),
		taskToCreate.CreatedBy,
		taskToCreate.Author,
		formatTime(taskToCreate.CreatedAt),
	)
	if err != nil {
		logger.Error("Repository: Не удалось добавить задачу", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("добавление задачи: %w", err)
	}

	warnIfSlow("insert", start)
	return nil
}

func (s *Storage) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	start := time.Now()

	t, err := scanTask(s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE uuid = ?`, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repo.ErrNotFound
	}
	if err != nil {
		logger.Error("Repository: Не удалось получить задачу", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задачи: %w", err)
	}

	warnIfSlow("get_by_id", start)
	return t, nil
}

func (s *Storage) ListAll(ctx context.Context) ([]*task.Task, error) {
	start := time.Now()

	rows, err := s.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at ASC, rowid ASC`)
	if err != nil {
		logger.Error("Repository: Не удалось получить задачи", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задач: %w", err)
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			logger.Warn("Repository: Пропуск испорченной строки", zap.Error(err))
			continue
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}

	warnIfSlow("list_all", start)
	return tasks, nil
}

func (s *Storage) Update(ctx context.Context, id uuid.UUID, fields task.Fields) (*task.Task, error) {
	start := time.Now()

	var due any
	if fields.DueTime != nil {
		due = formatTime(*fields.DueTime)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET
            lecture = COALESCE(?, lecture),
            title = COALESCE(?, title),
            due_time = COALESCE(?, due_time),
            updated_at = ?
        WHERE uuid = ?`,
		fields.Lecture,
		fields.Title,
		due,
		formatTime(time.Now()),
		id.String(),
	)
	if err != nil {
		logger.Error("Repository: Не удалось обновить задачу", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("обновление задачи: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("обновление задачи: %w", err)
	}
	if affected == 0 {
		return nil, repo.ErrNotFound
	}

	warnIfSlow("update", start)
	return s.GetByID(ctx, id)
}

// Delete удаляет задачу и отметки о ней в одной транзакции
func (s *Storage) Delete(ctx context.Context, id uuid.UUID) error {
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("Repository: Не удалось начать транзакцию", err)
		return fmt.Errorf("начало транзакции: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM task_status WHERE task_id = ?`, id.String()); err != nil {
		return fmt.Errorf("удаление отметок: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE uuid = ?`, id.String()); err != nil {
		return fmt.Errorf("удаление задачи: %w", err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("Repository: Не удалось зафиксировать транзакцию", err)
		return fmt.Errorf("фиксация транзакции: %w", err)
	}

	warnIfSlow("delete", start)
	return nil
}

func (s *Storage) GetStatuses(ctx context.Context, user string) (map[uuid.UUID]bool, error) {
	start := time.Now()

	rows, err := s.db.QueryContext(ctx, `SELECT task_id, is_done FROM task_status WHERE user_id = ?`, user)
	if err != nil {
		logger.Error("Repository: Не удалось получить отметки", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение отметок: %w", err)
	}
	defer rows.Close()

	res := map[uuid.UUID]bool{}
	for rows.Next() {
		var (
			rawID string
			done  bool
		)
		if err := rows.Scan(&rawID, &done); err != nil {
			logger.Warn("Repository: Ошибка сканирования отметки", zap.Error(err))
			continue
		}
		id, err := uuid.Parse(rawID)
		if err != nil {
			logger.Warn("Repository: Пропуск отметки с испорченным идентификатором", zap.String("task_id", rawID))
			continue
		}
		res[id] = done
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}

	warnIfSlow("get_statuses", start)
	return res, nil
}

func (s *Storage) SetStatus(ctx context.Context, user string, id uuid.UUID, done bool) error {
	start := time.Now()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO task_status(user_id, task_id, is_done) VALUES(?, ?, ?)
        ON CONFLICT(user_id, task_id) DO UPDATE SET is_done = excluded.is_done`,
		user, id.String(), done)
	if err != nil {
		logger.Error("Repository: Не удалось сохранить отметку", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("сохранение отметки: %w", err)
	}

	warnIfSlow("set_status", start)
	return nil
}

func (s *Storage) PurgeOrphans(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM task_status WHERE task_id NOT IN (SELECT uuid FROM tasks)`)
	if err != nil {
		logger.Error("Repository: Не удалось удалить отметки-сироты", err)
		return 0, fmt.Errorf("удаление отметок-сирот: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}
