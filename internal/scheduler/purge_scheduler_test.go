package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kitahub/kita-api/internal/models"
)

type purgeRunnerStub struct {
	actor *models.ActorClaims
	err   error
	calls int
}

func (s *purgeRunnerStub) Run(ctx context.Context, actor *models.ActorClaims, overrideMonths *int) (*models.PurgeResult, error) {
	s.calls++
	s.actor = actor
	if s.err != nil {
		return nil, s.err
	}
	return &models.PurgeResult{}, nil
}

func TestPurgeSchedulerEmptyScheduleDisables(t *testing.T) {
	s := NewPurgeScheduler(&purgeRunnerStub{}, nil, nil)
	require.NoError(t, s.Start(""))
	s.Stop()
}

func TestPurgeSchedulerRejectsBadSpec(t *testing.T) {
	s := NewPurgeScheduler(&purgeRunnerStub{}, nil, nil)
	require.Error(t, s.Start("not a cron spec"))
}

func TestPurgeSchedulerRunsAsSystemActor(t *testing.T) {
	runner := &purgeRunnerStub{}
	s := NewPurgeScheduler(runner, nil, nil)

	s.runPurge()
	require.Equal(t, 1, runner.calls)
	require.Equal(t, models.SystemActorID, runner.actor.UserID)
}

func TestPurgeSchedulerSurvivesRunErrors(t *testing.T) {
	runner := &purgeRunnerStub{err: errors.New("lock held")}
	s := NewPurgeScheduler(runner, nil, nil)

	s.runPurge()
	require.Equal(t, 1, runner.calls)
}
