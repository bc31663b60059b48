package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/kitahub/kita-api/internal/models"
)

type purgeRunner interface {
	Run(ctx context.Context, actor *models.ActorClaims, overrideMonths *int) (*models.PurgeResult, error)
}

type backupVerifier interface {
	Verify(ctx context.Context, actor *models.ActorClaims) (*models.BackupVerification, error)
}

// PurgeScheduler triggers retention purges and backup checks on a cron
// schedule, attributed to the system actor. The purge service's own lock
// keeps overlapping instances from double-purging.
type PurgeScheduler struct {
	cron    *cron.Cron
	purge   purgeRunner
	backups backupVerifier
	logger  *zap.Logger
}

// NewPurgeScheduler creates a new instance of PurgeScheduler. backups may
// be nil to skip scheduled verification.
func NewPurgeScheduler(purge purgeRunner, backups backupVerifier, logger *zap.Logger) *PurgeScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PurgeScheduler{
		cron:    cron.New(),
		purge:   purge,
		backups: backups,
		logger:  logger,
	}
}

// Start registers the jobs and starts the cron loop. An empty schedule
// disables scheduling entirely.
func (s *PurgeScheduler) Start(schedule string) error {
	if schedule == "" {
		s.logger.Info("scheduled purge disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(schedule, s.runPurge); err != nil {
		return err
	}
	if s.backups != nil {
		if _, err := s.cron.AddFunc(schedule, s.runBackupCheck); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.Info("purge scheduler started", zap.String("schedule", schedule))
	return nil
}

// Stop halts the cron loop and waits for running jobs to finish.
func (s *PurgeScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *PurgeScheduler) runPurge() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	result, err := s.purge.Run(ctx, models.SystemActor(), nil)
	if err != nil {
		s.logger.Error("scheduled purge failed", zap.Error(err))
		return
	}
	s.logger.Info("scheduled purge finished",
		zap.Int64("total_purged", result.TotalPurged),
		zap.Int("failures", len(result.Failures)))
}

func (s *PurgeScheduler) runBackupCheck() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	verification, err := s.backups.Verify(ctx, models.SystemActor())
	if err != nil {
		s.logger.Error("scheduled backup verification failed", zap.Error(err))
		return
	}
	if !verification.Success {
		s.logger.Warn("scheduled backup verification reported failures",
			zap.Int("checks", len(verification.Results)))
	}
}
