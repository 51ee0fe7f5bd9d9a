package handlers

import (
	"assignmentTracker/internal/handlers/dto"
	"assignmentTracker/internal/logger"
	"assignmentTracker/internal/middleware"
	"assignmentTracker/internal/models/task"
	"assignmentTracker/internal/service"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const serviceName = "assignment-tracker"

type TaskHandler struct {
	TaskService Service
	now         func() time.Time
}

func NewTaskHandler(taskService Service) *TaskHandler {
	return &TaskHandler{
		TaskService: taskService,
		now:         time.Now,
	}
}

// Register вешает маршруты на роутер. Пароль-идентификатор нужен только для /tasks
func (h *TaskHandler) Register(r chi.Router) {
	r.Get("/health", h.HealthCheck)

	r.Route("/tasks", func(r chi.Router) {
		r.Use(middleware.Identity)

		r.Get("/", h.ListTasks)             // GET /tasks
		r.Post("/", h.PostTask)             // POST /tasks
		r.Get("/lectures", h.ListByLecture) // GET /tasks/lectures
		r.Get("/calendar", h.Calendar)      // GET /tasks/calendar

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetTaskByID)             // GET /tasks/{id}
			r.Put("/", h.UpdateTaskByID)          // PUT /tasks/{id}
			r.Delete("/", h.DeleteTaskByID)       // DELETE /tasks/{id}
			r.Put("/completion", h.SetCompletion) // PUT /tasks/{id}/completion
		})
	})
}

func (h *TaskHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP: Health check")

	if err := h.TaskService.HealthCheck(r.Context()); err != nil {
		logger.Error("HTTP: Сервис нездоров", err)
		responseWithJSON(w, http.StatusServiceUnavailable,
			toPayload("status", "unavailable"),
			toPayload("service", serviceName),
		)
		return
	}

	responseWithJSON(w, http.StatusOK,
		toPayload("status", "ok"),
		toPayload("service", serviceName),
	)
}

func (h *TaskHandler) listQuery(w http.ResponseWriter, r *http.Request) (service.ListQuery, bool) {
	loc := h.TaskService.Location()
	query := r.URL.Query()

	from, err := parseTimeParam(query.Get("from"), loc)
	if err != nil {
		logger.Warn("HTTP: Неверное значение параметра", zap.String("query", "from"), zap.Error(err))
		responseWithError(w, http.StatusBadRequest, "неверное значение from")
		return service.ListQuery{}, false
	}

	to, err := parseTimeParam(query.Get("to"), loc)
	if err != nil {
		logger.Warn("HTTP: Неверное значение параметра", zap.String("query", "to"), zap.Error(err))
		responseWithError(w, http.StatusBadRequest, "неверное значение to")
		return service.ListQuery{}, false
	}

	hideDone, err := parseBoolParam(query.Get("hide_done"))
	if err != nil {
		logger.Warn("HTTP: Неверное значение параметра", zap.String("query", "hide_done"), zap.Error(err))
		responseWithError(w, http.StatusBadRequest, "неверное значение hide_done")
		return service.ListQuery{}, false
	}

	return service.ListQuery{
		Lecture:  query.Get("lecture"),
		From:     from,
		To:       to,
		HideDone: hideDone,
	}, true
}

func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	q, ok := h.listQuery(w, r)
	if !ok {
		return
	}

	entries, err := h.TaskService.ListTasks(r.Context(), middleware.GetUser(r.Context()), q)
	if err != nil {
		handleServiceError(w, r, err, "list_tasks")
		return
	}

	logger.Info("HTTP_OUT: Задачи получены",
		zap.Int("count", len(entries)),
		zap.Duration("ms", time.Since(start)))

	writeJSON(w, http.StatusOK, dto.FromEntries(entries, h.now()))
}

func (h *TaskHandler) ListByLecture(w http.ResponseWriter, r *http.Request) {
	q, ok := h.listQuery(w, r)
	if !ok {
		return
	}

	groups, err := h.TaskService.ListByLecture(r.Context(), middleware.GetUser(r.Context()), q)
	if err != nil {
		handleServiceError(w, r, err, "list_by_lecture")
		return
	}

	writeJSON(w, http.StatusOK, dto.FromLectureGroups(groups, h.now()))
}

func (h *TaskHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonthParam(r.URL.Query().Get("month"), h.TaskService.Location())
	if err != nil {
		logger.Warn("HTTP: Неверное значение параметра", zap.String("query", "month"), zap.Error(err))
		responseWithError(w, http.StatusBadRequest, "month должен быть в формате YYYY-MM")
		return
	}

	days, err := h.TaskService.Calendar(r.Context(), middleware.GetUser(r.Context()), month)
	if err != nil {
		handleServiceError(w, r, err, "calendar")
		return
	}

	writeJSON(w, http.StatusOK, dto.FromDays(days, h.now()))
}

func (h *TaskHandler) PostTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if !checkContentType(r, "application/json") {
		logger.Warn("HTTP: Неверный тип контента",
			zap.String("expected", "application/json"),
			zap.String("received", r.Header.Get("Content-Type")),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusUnsupportedMediaType, "Content-Type должен быть application/json")
		return
	}

	var request dto.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		logger.Warn("HTTP: ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "неверное тело запроса: "+err.Error())
		return
	}

	entry, err := h.TaskService.CreateTask(r.Context(), middleware.GetUser(r.Context()), service.NewTask{
		Lecture: request.Lecture,
		Title:   request.Title,
		DueTime: request.DueTime,
		Shared:  request.Shared,
	})
	if err != nil {
		handleServiceError(w, r, err, "create_task")
		return
	}

	logger.Info("HTTP_OUT: Задача создана",
		zap.String("task_id", entry.Task.UUID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	writeJSON(w, http.StatusCreated, dto.FromEntry(entry, h.now()))
}

func (h *TaskHandler) GetTaskByID(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		logger.Warn("HTTP: Не удалось получить id",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "не удалось получить id: "+err.Error())
		return
	}

	entry, err := h.TaskService.GetTask(r.Context(), middleware.GetUser(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err, "get_task")
		return
	}

	writeJSON(w, http.StatusOK, dto.FromEntry(entry, h.now()))
}

func (h *TaskHandler) UpdateTaskByID(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if !checkContentType(r, "application/json") {
		responseWithError(w, http.StatusUnsupportedMediaType, "Content-Type должен быть application/json")
		return
	}

	id, err := parseID(r)
	if err != nil {
		logger.Warn("HTTP: Не удалось получить id",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "не удалось получить id: "+err.Error())
		return
	}

	var request dto.UpdateTaskRequest
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		logger.Warn("HTTP: ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "неверно переданы параметры обновления: "+err.Error())
		return
	}

	options := []task.TaskOption{}
	if request.Lecture != nil {
		options = append(options, task.WithLecture(*request.Lecture))
	}
	if request.Title != nil {
		options = append(options, task.WithTitle(*request.Title))
	}
	if request.DueTime != nil {
		options = append(options, task.WithDueTime(*request.DueTime))
	}

	entry, err := h.TaskService.UpdateTask(r.Context(), middleware.GetUser(r.Context()), id, options...)
	if err != nil {
		handleServiceError(w, r, err, "update_task")
		return
	}

	logger.Info("HTTP_OUT: Задача обновлена",
		zap.String("task_id", id.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	writeJSON(w, http.StatusOK, dto.FromEntry(entry, h.now()))
}

func (h *TaskHandler) DeleteTaskByID(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id, err := parseID(r)
	if err != nil {
		logger.Warn("HTTP: Не удалось получить id",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "не удалось получить id: "+err.Error())
		return
	}

	if err := h.TaskService.DeleteTask(r.Context(), middleware.GetUser(r.Context()), id); err != nil {
		handleServiceError(w, r, err, "delete_task")
		return
	}

	logger.Info("HTTP_OUT: Задача удалена",
		zap.String("task_id", id.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusNoContent))

	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) SetCompletion(w http.ResponseWriter, r *http.Request) {
	if !checkContentType(r, "application/json") {
		responseWithError(w, http.StatusUnsupportedMediaType, "Content-Type должен быть application/json")
		return
	}

	id, err := parseID(r)
	if err != nil {
		responseWithError(w, http.StatusBadRequest, "не удалось получить id: "+err.Error())
		return
	}

	var request dto.CompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil || request.Done == nil {
		logger.Warn("HTTP: Ошибка валидации",
			zap.String("field", "done"),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "поле done обязательно")
		return
	}

	user := middleware.GetUser(r.Context())
	if err := h.TaskService.SetCompletion(r.Context(), user, id, *request.Done); err != nil {
		handleServiceError(w, r, err, "set_completion")
		return
	}

	entry, err := h.TaskService.GetTask(r.Context(), user, id)
	if err != nil {
		handleServiceError(w, r, err, "get_task")
		return
	}

	writeJSON(w, http.StatusOK, dto.FromEntry(entry, h.now()))
}
