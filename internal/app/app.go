package app

import (
	"assignmentTracker/internal/config"
	"assignmentTracker/internal/handlers"
	"assignmentTracker/internal/logger"
	"assignmentTracker/internal/middleware"
	"assignmentTracker/internal/repository/task/inmemory"
	"assignmentTracker/internal/repository/task/postgres"
	"assignmentTracker/internal/repository/task/sheet"
	"assignmentTracker/internal/repository/task/sqlite"
	"assignmentTracker/internal/service"
	"assignmentTracker/internal/worker"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const serviceName = "assignment-tracker"

// Storage - всё, что требуется от хранилища: задачи, отметки и чистка
type Storage interface {
	service.TaskRepository
	service.StatusRepository
	worker.OrphanPurger
	Close() error
}

type App struct {
	config  *config.Config
	server  *http.Server
	router  chi.Router
	storage Storage
	service *service.TaskService
	worker  *worker.OrphanWorker
}

func New(cfg *config.Config) *App {
	return &App{config: cfg}
}

// InitService поднимает логгер, хранилище и сервис без HTTP-части
func (a *App) InitService(ctx context.Context) error {
	if err := logger.Init(a.config.Logging.Development); err != nil {
		return fmt.Errorf("инициализация логгера: %w", err)
	}

	storage, err := a.openStorage(ctx)
	if err != nil {
		return err
	}
	a.storage = storage

	loc, err := a.config.Location()
	if err != nil {
		return err
	}
	a.service = service.NewTaskService(storage, storage, a.config.Policy(), service.WithLocation(loc))

	logger.Info("App: Сервис готов",
		zap.String("repository", a.config.Repository.Type),
		zap.String("shared_edit", string(a.config.Policy())),
		zap.String("timezone", loc.String()))
	return nil
}

func (a *App) Init(ctx context.Context) error {
	if err := a.InitService(ctx); err != nil {
		return err
	}

	a.router = a.newRouter()
	a.server = &http.Server{
		Addr:         a.config.GetServerAddr(),
		Handler:      otelhttp.NewHandler(a.router, serviceName),
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
	}

	if a.config.Worker.Enabled {
		interval := a.config.Worker.Interval
		a.worker = worker.NewOrphanWorker(a.storage, &interval)
	}
	return nil
}

func (a *App) Service() *service.TaskService {
	return a.service
}

func (a *App) Handler() http.Handler {
	return a.server.Handler
}

func (a *App) openStorage(ctx context.Context) (Storage, error) {
	switch a.config.Repository.Type {
	case config.RepositoryInMemory:
		logger.Warn("App: Данные хранятся в памяти и пропадут после остановки")
		return inmemory.NewTaskStorage(), nil
	case config.RepositoryPostgres:
		return a.openPostgres(ctx)
	case config.RepositorySQLite:
		return sqlite.Open(a.config.SQLite.Path)
	case config.RepositorySheet:
		return sheet.Open(a.config.Sheet.Path)
	default:
		return nil, fmt.Errorf("неизвестный тип хранилища: %q", a.config.Repository.Type)
	}
}

// openPostgres повторяет подключение с экспоненциальной паузой, затем применяет миграции
func (a *App) openPostgres(ctx context.Context) (*postgres.Storage, error) {
	db := a.config.Database
	attempts := db.ConnectAttempts
	if attempts < 1 {
		attempts = 1
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(attempts-1)),
		ctx,
	)
	notify := func(err error, next time.Duration) {
		logger.Warn("App: PostgreSQL недоступен, повтор",
			zap.Error(err),
			zap.Duration("next_attempt_in", next))
	}

	storage, err := backoff.RetryNotifyWithData(func() (*postgres.Storage, error) {
		return postgres.New(ctx, db.URL,
			postgres.WithMaxConns(int32(db.MaxConnections)),
			postgres.WithMinConns(int32(db.MinConnections)),
			postgres.WithMaxConnIdleTime(db.IdleTimeout),
		)
	}, policy, notify)
	if err != nil {
		return nil, fmt.Errorf("подключение к PostgreSQL: %w", err)
	}

	if err := postgres.Migrate(db.URL); err != nil {
		return nil, multierr.Append(err, storage.Close())
	}
	return storage, nil
}

func (a *App) newRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(middleware.Timeout(a.config.Server.RequestTimeout))
	r.Use(middleware.RateLimit(a.config.Server.RateLimit))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: a.config.CORS.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.PassphraseHeader, "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	handlers.NewTaskHandler(a.service).Register(r)
	return r
}

// Run блокируется до отмены ctx или падения сервера, затем плавно останавливает сервер
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("App: Сервер запущен", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("работа сервера: %w", err)
		}
		return nil
	})

	if a.worker != nil {
		g.Go(func() error {
			a.worker.Check(gctx)
			a.worker.Start(gctx)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("App: Остановка сервера")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("остановка сервера: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func (a *App) Close() error {
	var err error
	if a.storage != nil {
		err = multierr.Append(err, a.storage.Close())
	}
	logger.Info("App: Завершение работы")
	logger.Sync()
	return err
}
