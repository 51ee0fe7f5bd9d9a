package worker

import (
	"assignmentTracker/internal/logger"
	"context"
	"time"

	"go.uber.org/zap"
)

// OrphanPurger удаляет отметки о выполнении, задачи которых уже исчезли из хранилища
type OrphanPurger interface {
	PurgeOrphans(context.Context) (int, error)
}

type OrphanWorker struct {
	repo     OrphanPurger
	interval time.Duration
}

func NewOrphanWorker(repo OrphanPurger, interval *time.Duration) *OrphanWorker {
	var intervalToSet time.Duration
	if interval == nil || *interval <= 0 {
		intervalToSet = time.Hour
	} else {
		intervalToSet = *interval
	}

	return &OrphanWorker{
		repo:     repo,
		interval: intervalToSet,
	}
}

func (w *OrphanWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			logger.Info("Worker: Фоновая чистка отметок", zap.Time("started_at", time.Now()))
			w.Check(ctx)
		case <-ctx.Done():
			logger.Info("Worker: Фоновая чистка останавливается")
			return
		}
	}
}

// Check возвращает число удалённых отметок; ошибка хранилища только логируется
func (w *OrphanWorker) Check(ctx context.Context) int {
	start := time.Now()

	purged, err := w.repo.PurgeOrphans(ctx)
	if err != nil {
		logger.Warn("Worker: ошибка чистки отметок", zap.Error(err))
		return 0
	}

	logger.Info("Worker: Завершение чистки отметок",
		zap.Duration("ms", time.Since(start)),
		zap.Int("purged", purged),
	)
	return purged
}
