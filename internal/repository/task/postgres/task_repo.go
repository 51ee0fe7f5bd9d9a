package postgres

import (
	"assignmentTracker/internal/logger"
	"assignmentTracker/internal/models/task"
	repo "assignmentTracker/internal/repository"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const slowQuery = time.Millisecond * 100

type Storage struct {
	pool *pgxpool.Pool
}

type PoolOption func(*pgxpool.Config)

func WithMaxConns(n int32) PoolOption {
	return func(c *pgxpool.Config) {
		if n > 0 {
			c.MaxConns = n
		}
	}
}

func WithMinConns(n int32) PoolOption {
	return func(c *pgxpool.Config) {
		if n >= 0 {
			c.MinConns = n
		}
	}
}

func WithMaxConnIdleTime(d time.Duration) PoolOption {
	return func(c *pgxpool.Config) {
		if d > 0 {
			c.MaxConnIdleTime = d
		}
	}
}

func New(ctx context.Context, connString string, opts ...PoolOption) (*Storage, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		logger.Error("Repository: Ошибка загрузки конфига", err)
		return nil, fmt.Errorf("загрузка конфига: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnIdleTime = time.Minute * 5
	for _, opt := range opts {
		opt(config)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		logger.Error("Repository: Ошибка создания пула", err)
		return nil, fmt.Errorf("создание пула: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		logger.Error("Repository: Неудачная проверка ping", err)
		return nil, fmt.Errorf("проверка соединения ping: %w", err)
	}

	logger.Info("Repository: Успешное создание подключения к PostgreSQL")
	return &Storage{pool: pool}, nil
}

func (s *Storage) Close() error {
	if s.pool == nil {
		return nil
	}
	s.pool.Close()
	logger.Info("Repository: Закрытие всех соединений PostgreSQL")
	return nil
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	err := s.pool.Ping(ctx)
	if err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	logger.Debug("Repository: Соединение стабильно")
	return nil
}

func warnIfSlow(op string, start time.Time) {
	if time.Since(start) > slowQuery {
		logger.Warn("Repository: Медленный запрос",
			zap.String("operation", op),
			zap.Duration("ms", time.Since(start)))
	}
}

const taskColumns = `uuid, lecture, title, due_time, created_by, author, created_at, updated_at`

func scanTask(row pgx.Row) (*task.Task, error) {
	t := &task.Task{}
	err := row.Scan(
		&t.UUID,
		&t.Lecture,
		&t.Title,
		&t.DueTime,
		&t.CreatedBy,
		&t.Author,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	return t, err
}

func (s *Storage) Insert(ctx context.Context, taskToCreate *task.Task) error {
	start := time.Now()

	if taskToCreate.CreatedAt.IsZero() {
		taskToCreate.CreatedAt = time.Now()
	}

	query := `INSERT INTO tasks
				(uuid, lecture, title, due_time, created_by, author, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.pool.Exec(ctx, query,
		taskToCreate.UUID,
		taskToCreate.Lecture,
		taskToCreate.Title,
		taskToCreate.DueTime,
		taskToCreate.CreatedBy,
		taskToCreate.Author,
		taskToCreate.CreatedAt,
	)
	if err != nil {
		logger.Error("Repository: Не удалось добавить задачу", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("добавление задачи: %w", err)
	}

	warnIfSlow("insert", start)
	return nil
}

// Update меняет только переданные поля, created_by и author не трогаются
func (s *Storage) Update(ctx context.Context, id uuid.UUID, fields task.Fields) (*task.Task, error) {
	start := time.Now()

	query := `UPDATE tasks
			SET lecture = COALESCE($1, lecture),
				title = COALESCE($2, title),
				due_time = COALESCE($3, due_time),
				updated_at = NOW()
			WHERE uuid = $4
			RETURNING ` + taskColumns

	updated, err := scanTask(s.pool.QueryRow(ctx, query,
		fields.Lecture,
		fields.Title,
		fields.DueTime,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось обновить задачу", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("обновление задачи: %w", err)
	}

	warnIfSlow("update", start)
	return updated, nil
}

func (s *Storage) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	start := time.Now()

	query := `SELECT ` + taskColumns + `
				FROM tasks
				WHERE uuid = $1`

	t, err := scanTask(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить задачу", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задачи: %w", err)
	}

	warnIfSlow("get_by_id", start)
	return t, nil
}

func (s *Storage) ListAll(ctx context.Context) ([]*task.Task, error) {
	start := time.Now()

	query := `SELECT ` + taskColumns + `
				FROM tasks
				ORDER BY created_at, uuid`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		logger.Error("Repository: Не удалось получить задачи", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задач: %w", err)
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			logger.Warn("Repository: Ошибка сканирования задачи", zap.Error(err))
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

// Delete удаляет задачу и отметки о ней в одной транзакции
func (s *Storage) Delete(ctx context.Context, id uuid.UUID) error {
	start := time.Now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		logger.Error("Repository: Не удалось начать транзакцию", err)
		return fmt.Errorf("начало транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM task_status WHERE task_id = $1`, id); err != nil {
		logger.Error("Repository: Удаление отметок задачи", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("удаление отметок: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM tasks WHERE uuid = $1`, id); err != nil {
		logger.Error("Repository: Удаление задачи", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("удаление задачи: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		logger.Error("Repository: Не удалось зафиксировать транзакцию", err)
		return fmt.Errorf("фиксация транзакции: %w", err)
	}

	warnIfSlow("delete", start)
	return nil
}

func (s *Storage) GetStatuses(ctx context.Context, user string) (map[uuid.UUID]bool, error) {
	start := time.Now()

	rows, err := s.pool.Query(ctx, `SELECT task_id, is_done FROM task_status WHERE user_id = $1`, user)
	if err != nil {
		logger.Error("Repository: Не удалось получить отметки", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение отметок: %w", err)
	}
	defer rows.Close()

	res := map[uuid.UUID]bool{}
	for rows.Next() {
		var (
			id   uuid.UUID
			done bool
		)
		if err := rows.Scan(&id, &done); err != nil {
			logger.Warn("Repository: Ошибка сканирования отметки", zap.Error(err))
			continue
		}
		res[id] = done
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}

	warnIfSlow("get_statuses", start)
	return res, nil
}

func (s *Storage) SetStatus(ctx context.Context, user string, id uuid.UUID, done bool) error {
	start := time.Now()

	query := `INSERT INTO task_status (user_id, task_id, is_done, updated_at)
				VALUES ($1, $2, $3, NOW())
				ON CONFLICT (user_id, task_id)
				DO UPDATE SET is_done = EXCLUDED.is_done, updated_at = NOW()`

	if _, err := s.pool.Exec(ctx, query, user, id, done); err != nil {
		logger.Error("Repository: Не удалось сохранить отметку", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("сохранение отметки: %w", err)
	}

	warnIfSlow("set_status", start)
	return nil
}

func (s *Storage) PurgeOrphans(ctx context.Context) (int, error) {
	start := time.Now()

	tag, err := s.pool.Exec(ctx, `DELETE FROM task_status st
				WHERE NOT EXISTS (SELECT 1 FROM tasks t WHERE t.uuid = st.task_id)`)
	if err != nil {
		logger.Error("Repository: Не удалось удалить отметки-сироты", err, zap.Duration("ms", time.Since(start)))
		return 0, fmt.Errorf("удаление отметок-сирот: %w", err)
	}

	warnIfSlow("purge_orphans", start)
	return int(tag.RowsAffected()), nil
}
