package services

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"basin-research-platform/internal/logger"
)

// MaintenanceScheduler runs the periodic housekeeping jobs: expired
// session cleanup and corpus stats refresh.
type MaintenanceScheduler struct {
	scheduler *gocron.Scheduler
}

func NewMaintenanceScheduler(sessions *SessionService, stats *StatsService, cleanupInterval time.Duration) (*MaintenanceScheduler, error) {
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()

	if _, err := s.Every(cleanupInterval).Tag("session-cleanup").Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		removed, err := sessions.CleanupExpired(ctx)
		if err != nil {
			logger.Error("Session cleanup failed", "error", err)
			return
		}
		if removed > 0 {
			logger.Info("Cleaned up expired sessions", "removed", removed)
		}
	}); err != nil {
		return nil, err
	}

	if _, err := s.Every(15 * time.Minute).Tag("stats-refresh").Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		if _, err := stats.Refresh(ctx); err != nil {
			logger.Error("Stats refresh failed", "error", err)
		}
	}); err != nil {
		return nil, err
	}

	return &MaintenanceScheduler{scheduler: s}, nil
}

func (m *MaintenanceScheduler) Start() {
	m.scheduler.StartAsync()
	logger.Info("Maintenance scheduler started", "jobs", len(m.scheduler.Jobs()))
}

func (m *MaintenanceScheduler) Stop() {
	m.scheduler.Stop()
}
