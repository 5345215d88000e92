// Package jobs runs the periodic background work of the service.
package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"sitepulse/internal/abuse"
	"sitepulse/internal/config"
	"sitepulse/internal/database"
)

// Scheduler is responsible for running background jobs
type Scheduler struct {
	dbManager *database.DBManager
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	enabled   bool
	isRunning bool
	cfg       *config.Config

	// Mutex to prevent concurrent job executions
	processingMutex sync.Mutex
	isProcessing    bool

	tracker     *abuse.Tracker
	sweepTicker *time.Ticker
}

func NewScheduler(dbManager *database.DBManager, tracker *abuse.Tracker, logger *slog.Logger) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := config.GetConfig()

	s := &Scheduler{
		dbManager: dbManager,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		enabled:   true,
		isRunning: false,
		cfg:       cfg,
		tracker:   tracker,
	}

	return s, nil
}

// executeJobSafely runs a job only if no other job is currently executing
func (s *Scheduler) executeJobSafely(jobName string, jobFunc func() error) {
	s.processingMutex.Lock()
	if s.isProcessing {
		s.logger.Debug("Skipping job execution - previous job still running", slog.String("job", jobName))
		s.processingMutex.Unlock()
		return
	}
	s.isProcessing = true
	s.processingMutex.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic recovered in background job",
				slog.String("job", jobName),
				slog.Any("panic", r))
		}

		s.processingMutex.Lock()
		s.isProcessing = false
		s.processingMutex.Unlock()
	}()

	if err := jobFunc(); err != nil {
		s.logger.Error("Error executing job", slog.String("job", jobName), slog.Any("error", err))
	}
}

// Start begins all background jobs
func (s *Scheduler) Start() error {
	if !s.enabled {
		s.logger.Info("Background jobs are disabled.")
		return nil
	}

	if s.isRunning {
		s.logger.Info("Background jobs already running.")
		return nil
	}

	s.logger.Info("Starting background jobs...")

	s.isRunning = true

	s.startAbuseSweepJob()

	s.logger.Info("Background jobs started",
		slog.Bool("enabled", s.enabled),
		slog.Bool("isRunning", s.isRunning))

	return nil
}

func (s *Scheduler) startAbuseSweepJob() {
	interval := time.Duration(s.cfg.AbuseSweepInterval()) * time.Minute
	s.logger.Info("Starting abuse sweep job", slog.Duration("interval", interval))
	s.sweepTicker = time.NewTicker(interval)

	go func() {
		// Run initial sweep
		s.logger.Info("Running initial abuse sweep...")
		s.executeJobSafely("abuse_sweep", s.runSweep)

		for {
			select {
			case <-s.sweepTicker.C:
				s.executeJobSafely("abuse_sweep", s.runSweep)
			case <-s.ctx.Done():
				s.logger.Info("Abuse sweep job stopped")
				return
			}
		}
	}()
}

func (s *Scheduler) runSweep() error {
	removed, err := s.tracker.Sweep()
	if err != nil {
		return err
	}
	if removed > 0 {
		s.logger.Info("Abuse sweep completed", slog.Int64("removed", removed))
	}

	flagged, err := s.tracker.FlaggedIPs()
	if err != nil {
		return err
	}
	if len(flagged) > 0 {
		s.logger.Warn("IPs reporting for multiple sites",
			slog.Int("count", len(flagged)),
			slog.Any("ips", flagged))
	}
	return nil
}

// Stop halts all background jobs.
// Implements cartridge.BackgroundWorker interface.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background jobs...")
	s.enabled = false

	if s.sweepTicker != nil {
		s.sweepTicker.Stop()
	}

	s.cancel()
	s.isRunning = false
	s.logger.Info("Background jobs stopped")
}

// IsRunning returns whether jobs are currently running
func (s *Scheduler) IsRunning() bool {
	return s.isRunning
}
