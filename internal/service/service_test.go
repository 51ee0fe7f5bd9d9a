package service_test

import (
	"assignmentTracker/internal/models/task"
	"assignmentTracker/internal/repository"
	"assignmentTracker/internal/repository/task/inmemory"
	"assignmentTracker/internal/service"
	"assignmentTracker/internal/visibility"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockTaskRepository - мок репозитория задач и отметок
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTaskRepository) ListAll(ctx context.Context) ([]*task.Task, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Task), args.Error(1)
}

func (m *MockTaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskRepository) Insert(ctx context.Context, t *task.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTaskRepository) Update(ctx context.Context, id uuid.UUID, fields task.Fields) (*task.Task, error) {
	args := m.Called(ctx, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTaskRepository) GetStatuses(ctx context.Context, user string) (map[uuid.UUID]bool, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]bool), args.Error(1)
}

func (m *MockTaskRepository) SetStatus(ctx context.Context, user string, id uuid.UUID, done bool) error {
	args := m.Called(ctx, user, id, done)
	return args.Error(0)
}

var _ service.TaskRepository = (*MockTaskRepository)(nil)
var _ service.StatusRepository = (*MockTaskRepository)(nil)

func newService(repo *MockTaskRepository) *service.TaskService {
	return service.NewTaskService(repo, repo, visibility.PolicyOwner)
}

func businessCode(t *testing.T, err error) string {
	t.Helper()
	var busErr *service.BusinessError
	require.True(t, errors.As(err, &busErr), "expected BusinessError, got %v", err)
	return busErr.Code
}

// TestTaskService_HealthCheck тестирует HealthCheck
func TestTaskService_HealthCheck(t *testing.T) {
	tests := []struct {
		name        string
		setupMock   func(*MockTaskRepository)
		expectError bool
	}{
		{
			name: "success - health check passes",
			setupMock: func(m *MockTaskRepository) {
				m.On("HealthCheck", mock.Anything).Return(nil)
			},
		},
		{
			name: "error - health check fails",
			setupMock: func(m *MockTaskRepository) {
				m.On("HealthCheck", mock.Anything).Return(errors.New("db connection failed"))
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockTaskRepository)
			tt.setupMock(mockRepo)

			err := newService(mockRepo).HealthCheck(context.Background())

			if tt.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "проверка здоровья сервиса")
			} else {
				assert.NoError(t, err)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

// TestTaskService_Identity тестирует проверку пароля-идентификатора
func TestTaskService_Identity(t *testing.T) {
	svc := newService(new(MockTaskRepository))
	ctx := context.Background()

	_, err := svc.ListTasks(ctx, "   ", service.ListQuery{})
	assert.Equal(t, service.CodeValidation, businessCode(t, err))

	_, err = svc.ListTasks(ctx, task.Shared, service.ListQuery{})
	assert.Equal(t, service.CodeReservedIdentity, businessCode(t, err))

	err = svc.SetCompletion(ctx, "", uuid.New(), true)
	assert.Equal(t, service.CodeValidation, businessCode(t, err))
}

// TestTaskService_ListTasks_StoreFailure тестирует деградацию до пустого списка
func TestTaskService_ListTasks_StoreFailure(t *testing.T) {
	t.Run("tasks unavailable", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockRepo.On("ListAll", mock.Anything).Return(nil, errors.New("sheet unreachable"))

		entries, err := newService(mockRepo).ListTasks(context.Background(), "alice", service.ListQuery{})

		require.NoError(t, err)
		assert.NotNil(t, entries)
		assert.Empty(t, entries)
		mockRepo.AssertExpectations(t)
	})

	t.Run("statuses unavailable", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		shared := &task.Task{UUID: uuid.New(), Title: "Shared", CreatedBy: task.Shared, DueTime: time.Now()}
		mockRepo.On("ListAll", mock.Anything).Return([]*task.Task{shared}, nil)
		mockRepo.On("GetStatuses", mock.Anything, "alice").Return(nil, errors.New("timeout"))

		entries, err := newService(mockRepo).ListTasks(context.Background(), "alice", service.ListQuery{})

		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.False(t, entries[0].Done)
		mockRepo.AssertExpectations(t)
	})
}

// TestTaskService_ListTasks_Query тестирует фильтры и сортировку
func TestTaskService_ListTasks_Query(t *testing.T) {
	base := time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC)
	math2 := &task.Task{UUID: uuid.New(), Lecture: "Math", Title: "Set 2", DueTime: base.Add(48 * time.Hour), CreatedBy: task.Shared}
	math1 := &task.Task{UUID: uuid.New(), Lecture: "Math", Title: "Set 1", DueTime: base, CreatedBy: "alice"}
	physics := &task.Task{UUID: uuid.New(), Lecture: "Physics", Title: "Lab", DueTime: base.Add(24 * time.Hour), CreatedBy: task.Shared}
	private := &task.Task{UUID: uuid.New(), Lecture: "Math", Title: "Bob's", DueTime: base, CreatedBy: "bob"}

	tests := []struct {
		name     string
		query    service.ListQuery
		expected []string
	}{
		{name: "all visible sorted by due", query: service.ListQuery{}, expected: []string{"Set 1", "Lab", "Set 2"}},
		{name: "by lecture", query: service.ListQuery{Lecture: "math"}, expected: []string{"Set 1", "Set 2"}},
		{name: "date range", query: service.ListQuery{From: base.Add(time.Hour), To: base.Add(48 * time.Hour)}, expected: []string{"Lab"}},
		{name: "hide done", query: service.ListQuery{HideDone: true}, expected: []string{"Set 1", "Set 2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockTaskRepository)
			mockRepo.On("ListAll", mock.Anything).Return([]*task.Task{math2, math1, physics, private}, nil)
			mockRepo.On("GetStatuses", mock.Anything, "alice").Return(map[uuid.UUID]bool{physics.UUID: true}, nil)

			entries, err := newService(mockRepo).ListTasks(context.Background(), "alice", tt.query)
			require.NoError(t, err)

			titles := []string{}
			for _, e := range entries {
				titles = append(titles, e.Task.Title)
			}
			assert.Equal(t, tt.expected, titles)
		})
	}
}

// TestTaskService_CreateTask тестирует создание задачи
func TestTaskService_CreateTask(t *testing.T) {
	ctx := context.Background()
	due := time.Now().Add(48 * time.Hour)

	tests := []struct {
		name              string
		input             service.NewTask
		setupMock         func(*MockTaskRepository)
		expectedCode      string
		expectedCreatedBy string
		expectedEditable  bool
	}{
		{
			name:  "private task",
			input: service.NewTask{Lecture: " Math ", Title: "Homework", DueTime: due},
			setupMock: func(m *MockTaskRepository) {
				m.On("Insert", mock.Anything, mock.MatchedBy(func(t *task.Task) bool {
					return t.CreatedBy == "alice" && t.Author == "alice" && t.Lecture == "Math" && t.UUID != uuid.Nil
				})).Return(nil)
			},
			expectedCreatedBy: "alice",
			expectedEditable:  true,
		},
		{
			name:  "shared task",
			input: service.NewTask{Lecture: "Math", Title: "Exam", DueTime: due, Shared: true},
			setupMock: func(m *MockTaskRepository) {
				m.On("Insert", mock.Anything, mock.MatchedBy(func(t *task.Task) bool {
					return t.CreatedBy == task.Shared && t.Author == "alice"
				})).Return(nil)
			},
			expectedCreatedBy: task.Shared,
			expectedEditable:  false,
		},
		{
			name:         "missing title",
			input:        service.NewTask{Title: "  ", DueTime: due},
			setupMock:    func(m *MockTaskRepository) {},
			expectedCode: service.CodeValidation,
		},
		{
			name:         "missing due time",
			input:        service.NewTask{Title: "Homework"},
			setupMock:    func(m *MockTaskRepository) {},
			expectedCode: service.CodeValidation,
		},
		{
			name:  "store failure",
			input: service.NewTask{Title: "Homework", DueTime: due},
			setupMock: func(m *MockTaskRepository) {
				m.On("Insert", mock.Anything, mock.Anything).Return(errors.New("disk full"))
			},
			expectedCode: service.CodeStoreUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockTaskRepository)
			tt.setupMock(mockRepo)

			entry, err := newService(mockRepo).CreateTask(ctx, "alice", tt.input)

			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, businessCode(t, err))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedCreatedBy, entry.Task.CreatedBy)
				assert.Equal(t, tt.expectedEditable, entry.Editable)
				assert.False(t, entry.Done)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

// TestTaskService_UpdateTask тестирует шлюз изменений
func TestTaskService_UpdateTask(t *testing.T) {
	ctx := context.Background()
	taskID := uuid.New()

	tests := []struct {
		name         string
		options      []task.TaskOption
		setupMock    func(*MockTaskRepository)
		expectedCode string
	}{
		{
			name:    "success - owner updates",
			options: []task.TaskOption{task.WithTitle("New Title")},
			setupMock: func(m *MockTaskRepository) {
				m.On("GetByID", mock.Anything, taskID).Return(&task.Task{UUID: taskID, Title: "Old", CreatedBy: "alice"}, nil)
				m.On("Update", mock.Anything, taskID, mock.MatchedBy(func(f task.Fields) bool {
					return f.Title != nil && *f.Title == "New Title" && f.Lecture == nil
				})).Return(&task.Task{UUID: taskID, Title: "New Title", CreatedBy: "alice"}, nil)
				m.On("GetStatuses", mock.Anything, "alice").Return(map[uuid.UUID]bool{taskID: true}, nil)
			},
		},
		{
			name:         "error - no fields",
			options:      nil,
			setupMock:    func(m *MockTaskRepository) {},
			expectedCode: service.CodeValidation,
		},
		{
			name:         "error - empty title",
			options:      []task.TaskOption{task.WithTitle(" ")},
			setupMock:    func(m *MockTaskRepository) {},
			expectedCode: service.CodeValidation,
		},
		{
			name:    "error - not found",
			options: []task.TaskOption{task.WithTitle("New")},
			setupMock: func(m *MockTaskRepository) {
				m.On("GetByID", mock.Anything, taskID).Return(nil, repository.ErrNotFound)
			},
			expectedCode: service.CodeNotFound,
		},
		{
			name:    "error - private task of another user looks missing",
			options: []task.TaskOption{task.WithTitle("New")},
			setupMock: func(m *MockTaskRepository) {
				m.On("GetByID", mock.Anything, taskID).Return(&task.Task{UUID: taskID, CreatedBy: "bob"}, nil)
			},
			expectedCode: service.CodeNotFound,
		},
		{
			name:    "error - shared task is read only",
			options: []task.TaskOption{task.WithTitle("New")},
			setupMock: func(m *MockTaskRepository) {
				m.On("GetByID", mock.Anything, taskID).Return(&task.Task{UUID: taskID, CreatedBy: task.Shared, Author: "bob"}, nil)
			},
			expectedCode: service.CodeNotEditable,
		},
		{
			name:    "error - deleted concurrently",
			options: []task.TaskOption{task.WithLecture("Physics")},
			setupMock: func(m *MockTaskRepository) {
				m.On("GetByID", mock.Anything, taskID).Return(&task.Task{UUID: taskID, CreatedBy: "alice"}, nil)
				m.On("Update", mock.Anything, taskID, mock.Anything).Return(nil, repository.ErrNotFound)
			},
			expectedCode: service.CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockTaskRepository)
			tt.setupMock(mockRepo)

			entry, err := newService(mockRepo).UpdateTask(ctx, "alice", taskID, tt.options...)

			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, businessCode(t, err))
			} else {
				require.NoError(t, err)
				assert.Equal(t, "New Title", entry.Task.Title)
				assert.True(t, entry.Editable)
				assert.True(t, entry.Done)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

// TestTaskService_DeleteTask тестирует удаление
func TestTaskService_DeleteTask(t *testing.T) {
	ctx := context.Background()
	taskID := uuid.New()

	tests := []struct {
		name         string
		setupMock    func(*MockTaskRepository)
		expectedCode string
	}{
		{
			name: "success - owner deletes",
			setupMock: func(m *MockTaskRepository) {
				m.On("GetByID", mock.Anything, taskID).Return(&task.Task{UUID: taskID, CreatedBy: "alice"}, nil)
				m.On("Delete", mock.Anything, taskID).Return(nil)
			},
		},
		{
			name: "success - missing task is a no-op",
			setupMock: func(m *MockTaskRepository) {
				m.On("GetByID", mock.Anything, taskID).Return(nil, repository.ErrNotFound)
			},
		},
		{
			name: "success - someone else's private task behaves like a missing one",
			setupMock: func(m *MockTaskRepository) {
				m.On("GetByID", mock.Anything, taskID).Return(&task.Task{UUID: taskID, CreatedBy: "bob"}, nil)
			},
		},
		{
			name: "error - shared task is read-only",
			setupMock: func(m *MockTaskRepository) {
				m.On("GetByID", mock.Anything, taskID).Return(&task.Task{UUID: taskID, CreatedBy: task.Shared, Author: "bob"}, nil)
			},
			expectedCode: service.CodeNotEditable,
		},
		{
			name: "error - store failure",
			setupMock: func(m *MockTaskRepository) {
				m.On("GetByID", mock.Anything, taskID).Return(&task.Task{UUID: taskID, CreatedBy: "alice"}, nil)
				m.On("Delete", mock.Anything, taskID).Return(errors.New("locked"))
			},
			expectedCode: service.CodeStoreUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockTaskRepository)
			tt.setupMock(mockRepo)

			err := newService(mockRepo).DeleteTask(ctx, "alice", taskID)

			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, businessCode(t, err))
			} else {
				assert.NoError(t, err)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

// TestTaskService_CompletionIsPerUser - отметка одного пользователя не видна другому
func TestTaskService_CompletionIsPerUser(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()
	svc := service.NewTaskService(storage, storage, visibility.PolicyOwner)

	created, err := svc.CreateTask(ctx, "lecturer", service.NewTask{
		Lecture: "Math",
		Title:   "Shared homework",
		DueTime: time.Now().Add(24 * time.Hour),
		Shared:  true,
	})
	require.NoError(t, err)
	id := created.Task.UUID

	require.NoError(t, svc.SetCompletion(ctx, "alice", id, true))
	require.NoError(t, svc.SetCompletion(ctx, "alice", id, true))

	aliceView, err := svc.GetTask(ctx, "alice", id)
	require.NoError(t, err)
	assert.True(t, aliceView.Done)
	assert.False(t, aliceView.Editable)

	bobView, err := svc.GetTask(ctx, "bob", id)
	require.NoError(t, err)
	assert.False(t, bobView.Done)
}

// TestTaskService_DeleteRemovesStatuses - после удаления не остаётся отметок-сирот
func TestTaskService_DeleteRemovesStatuses(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()
	svc := service.NewTaskService(storage, storage, visibility.PolicyAuthor)

	created, err := svc.CreateTask(ctx, "alice", service.NewTask{
		Title:   "Group project",
		DueTime: time.Now().Add(24 * time.Hour),
		Shared:  true,
	})
	require.NoError(t, err)
	id := created.Task.UUID
	assert.True(t, created.Editable, "author policy lets the author edit their shared task")

	require.NoError(t, svc.SetCompletion(ctx, "alice", id, true))
	require.NoError(t, svc.SetCompletion(ctx, "bob", id, true))

	err = svc.DeleteTask(ctx, "bob", id)
	assert.Equal(t, service.CodeNotEditable, businessCode(t, err))

	require.NoError(t, svc.DeleteTask(ctx, "alice", id))
	require.NoError(t, svc.DeleteTask(ctx, "alice", id))

	for _, user := range []string{"alice", "bob"} {
		marks, err := storage.GetStatuses(ctx, user)
		require.NoError(t, err)
		assert.Empty(t, marks)
	}

	err = svc.SetCompletion(ctx, "alice", id, false)
	assert.Equal(t, service.CodeNotFound, businessCode(t, err))
}

// TestTaskService_Calendar тестирует раскладку по дням месяца
func TestTaskService_Calendar(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()
	jst := time.FixedZone("JST", 9*60*60)
	svc := service.NewTaskService(storage, storage, visibility.PolicyOwner, service.WithLocation(jst))

	dues := []time.Time{
		time.Date(2026, 10, 31, 16, 0, 0, 0, time.UTC), // 1 ноября по JST
		time.Date(2026, 10, 31, 1, 0, 0, 0, time.UTC),
		time.Date(2026, 10, 5, 1, 0, 0, 0, time.UTC),
	}
	for i, due := range dues {
		_, err := svc.CreateTask(ctx, "alice", service.NewTask{Title: string(rune('A' + i)), DueTime: due})
		require.NoError(t, err)
	}

	days, err := svc.Calendar(ctx, "alice", time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, 5, days[0].Date.Day())
	assert.Equal(t, 31, days[1].Date.Day())
	assert.Equal(t, "B", days[1].Entries[0].Task.Title)

	november, err := svc.Calendar(ctx, "alice", time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, november, 1)
	assert.Equal(t, "A", november[0].Entries[0].Task.Title)
}

// TestTaskService_PrivateTaskHiddenFromOthers - по ответам на чужую личную задачу нельзя понять, что она есть
func TestTaskService_PrivateTaskHiddenFromOthers(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()
	svc := service.NewTaskService(storage, storage, visibility.PolicyOwner)

	created, err := svc.CreateTask(ctx, "bob", service.NewTask{
		Title:   "Diary",
		DueTime: time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)
	private, missing := created.Task.UUID, uuid.New()

	for _, id := range []uuid.UUID{private, missing} {
		_, err := svc.GetTask(ctx, "alice", id)
		assert.Equal(t, service.CodeNotFound, businessCode(t, err))

		_, err = svc.UpdateTask(ctx, "alice", id, task.WithTitle("mine now"))
		assert.Equal(t, service.CodeNotFound, businessCode(t, err))

		err = svc.SetCompletion(ctx, "alice", id, true)
		assert.Equal(t, service.CodeNotFound, businessCode(t, err))

		assert.NoError(t, svc.DeleteTask(ctx, "alice", id))
	}

	still, err := svc.GetTask(ctx, "bob", private)
	require.NoError(t, err)
	assert.Equal(t, "Diary", still.Task.Title)
}

// TestTaskService_IdentityIgnoresSurroundingSpaces - пробелы вокруг пароля не создают нового пользователя,
// так же как и в заголовке X-Passphrase, который HTTP обрезает сам
func TestTaskService_IdentityIgnoresSurroundingSpaces(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()
	svc := service.NewTaskService(storage, storage, visibility.PolicyOwner)

	created, err := svc.CreateTask(ctx, "  alice\t", service.NewTask{
		Title:   "Lab report",
		DueTime: time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", created.Task.CreatedBy)

	got, err := svc.GetTask(ctx, "alice", created.Task.UUID)
	require.NoError(t, err)
	assert.True(t, got.Editable)

	// внутренние пробелы значимы
	_, err = svc.GetTask(ctx, "al ice", created.Task.UUID)
	assert.Equal(t, service.CodeNotFound, businessCode(t, err))
}
