package inmemory_test

import (
	"assignmentTracker/internal/models/task"
	"assignmentTracker/internal/repository"
	"assignmentTracker/internal/repository/task/inmemory"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTask(title, createdBy string) *task.Task {
	return &task.Task{
		UUID:      uuid.New(),
		Lecture:   "Algorithms",
		Title:     title,
		DueTime:   time.Now().Add(24 * time.Hour),
		CreatedBy: createdBy,
		Author:    createdBy,
	}
}

// TestTaskStorage_HealthCheck тестирует проверку здоровья
func TestTaskStorage_HealthCheck(t *testing.T) {
	storage := inmemory.NewTaskStorage()
	assert.NoError(t, storage.HealthCheck(context.Background()))
	assert.NoError(t, storage.Close())
}

// TestTaskStorage_Insert тестирует создание задачи
func TestTaskStorage_Insert(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()

	taskToCreate := newTask("Test Task", "alice")
	err := storage.Insert(ctx, taskToCreate)
	require.NoError(t, err)

	assert.False(t, taskToCreate.CreatedAt.IsZero())

	retrievedTask, err := storage.GetByID(ctx, taskToCreate.UUID)
	require.NoError(t, err)
	assert.Equal(t, "Test Task", retrievedTask.Title)
	assert.Equal(t, "alice", retrievedTask.CreatedBy)

	// Изменение полученной копии не должно влиять на хранилище
	retrievedTask.Title = "changed outside"
	again, err := storage.GetByID(ctx, taskToCreate.UUID)
	require.NoError(t, err)
	assert.Equal(t, "Test Task", again.Title)
}

// TestTaskStorage_GetByID тестирует получение несуществующей задачи
func TestTaskStorage_GetByID(t *testing.T) {
	storage := inmemory.NewTaskStorage()

	_, err := storage.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

// TestTaskStorage_Update тестирует построчное обновление
func TestTaskStorage_Update(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()

	taskToCreate := newTask("Original Title", "alice")
	require.NoError(t, storage.Insert(ctx, taskToCreate))

	due := time.Now().Add(72 * time.Hour).Truncate(time.Second)
	updated, err := storage.Update(ctx, taskToCreate.UUID, task.BuildFields(
		task.WithTitle("Updated Title"),
		task.WithDueTime(due),
	))
	require.NoError(t, err)
	assert.Equal(t, "Updated Title", updated.Title)
	assert.Equal(t, "Algorithms", updated.Lecture)
	assert.True(t, updated.DueTime.Equal(due))
	assert.NotNil(t, updated.UpdatedAt)
	assert.Equal(t, "alice", updated.CreatedBy)

	_, err = storage.Update(ctx, uuid.New(), task.BuildFields(task.WithTitle("x")))
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

// TestTaskStorage_ListAll тестирует порядок выдачи
func TestTaskStorage_ListAll(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()

	tasks, err := storage.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	for i := 1; i <= 3; i++ {
		require.NoError(t, storage.Insert(ctx, newTask(fmt.Sprintf("Task %d", i), task.Shared)))
	}

	tasks, err = storage.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "Task 1", tasks[0].Title)
	assert.Equal(t, "Task 3", tasks[2].Title)
}

// TestTaskStorage_DeleteCascade тестирует удаление вместе с отметками
func TestTaskStorage_DeleteCascade(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()

	kept := newTask("Kept", task.Shared)
	removed := newTask("Removed", task.Shared)
	require.NoError(t, storage.Insert(ctx, kept))
	require.NoError(t, storage.Insert(ctx, removed))

	require.NoError(t, storage.SetStatus(ctx, "alice", removed.UUID, true))
	require.NoError(t, storage.SetStatus(ctx, "bob", removed.UUID, false))
	require.NoError(t, storage.SetStatus(ctx, "alice", kept.UUID, true))

	require.NoError(t, storage.Delete(ctx, removed.UUID))

	_, err := storage.GetByID(ctx, removed.UUID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	aliceMarks, err := storage.GetStatuses(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]bool{kept.UUID: true}, aliceMarks)

	bobMarks, err := storage.GetStatuses(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, bobMarks)

	// Повторное удаление - не ошибка
	assert.NoError(t, storage.Delete(ctx, removed.UUID))
	assert.NoError(t, storage.Delete(ctx, uuid.New()))

	orphans, err := storage.PurgeOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, orphans)
}

// TestTaskStorage_Statuses тестирует отметки по пользователям
func TestTaskStorage_Statuses(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()
	id := uuid.New()

	marks, err := storage.GetStatuses(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, marks)

	require.NoError(t, storage.SetStatus(ctx, "alice", id, true))
	require.NoError(t, storage.SetStatus(ctx, "alice", id, true))

	marks, err = storage.GetStatuses(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]bool{id: true}, marks)

	marks, err = storage.GetStatuses(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, marks[id])

	// отметка о задаче, которой нет в хранилище, - сирота
	removed, err := storage.PurgeOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

// TestTaskStorage_ConcurrentAccess тестирует конкурентный доступ
func TestTaskStorage_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()
	taskCount := 100
	goroutines := 10

	var wg sync.WaitGroup
	errs := make(chan error, taskCount)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for j := 0; j < taskCount/goroutines; j++ {
				tk := newTask(fmt.Sprintf("Task %d-%d", workerID, j), task.Shared)
				if err := storage.Insert(ctx, tk); err != nil {
					errs <- err
					continue
				}
				if err := storage.SetStatus(ctx, fmt.Sprintf("user-%d", workerID), tk.UUID, true); err != nil {
					errs <- err
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	tasks, err := storage.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, taskCount)
}
