package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerops/rentd/config"
	"github.com/dealerops/rentd/internal/domain/model"
)

func TestTickRunsDueTasks(t *testing.T) {
	tasks := newStubTaskRepo(
		model.ScheduledTask{ID: "t1", TaskName: "custom_job"},
		model.ScheduledTask{ID: "t2", TaskName: "unknown_job"},
	)
	svc := NewSchedulerService(SchedulerServiceOptions{
		Tasks:  tasks,
		Config: config.SchedulerConfig{BatchSize: 10},
	})

	ran := 0
	svc.RegisterHandler("custom_job", func(context.Context) error {
		ran++
		return nil
	})

	require.NoError(t, svc.Tick(context.Background(), time.Now()))

	assert.Equal(t, 1, ran)
	// Both tasks get stamped even when one has no handler, so an
	// unknown task cannot wedge the schedule.
	assert.ElementsMatch(t, []string{"t1", "t2"}, tasks.queued)
}

func TestTickSkipsWhenLockHeld(t *testing.T) {
	tasks := newStubTaskRepo(model.ScheduledTask{ID: "t1", TaskName: "custom_job"})
	tasks.locked = true

	svc := NewSchedulerService(SchedulerServiceOptions{
		Tasks:  tasks,
		Config: config.SchedulerConfig{BatchSize: 10},
	})
	ran := false
	svc.RegisterHandler("custom_job", func(context.Context) error {
		ran = true
		return nil
	})

	require.NoError(t, svc.Tick(context.Background(), time.Now()))

	assert.False(t, ran)
	assert.Empty(t, tasks.queued)
}

func TestTickSurvivesHandlerError(t *testing.T) {
	tasks := newStubTaskRepo(
		model.ScheduledTask{ID: "t1", TaskName: "failing_job"},
		model.ScheduledTask{ID: "t2", TaskName: "healthy_job"},
	)
	svc := NewSchedulerService(SchedulerServiceOptions{
		Tasks:  tasks,
		Config: config.SchedulerConfig{BatchSize: 10},
	})

	healthyRan := false
	svc.RegisterHandler("failing_job", func(context.Context) error {
		return errors.New("boom")
	})
	svc.RegisterHandler("healthy_job", func(context.Context) error {
		healthyRan = true
		return nil
	})

	require.NoError(t, svc.Tick(context.Background(), time.Now()))
	assert.True(t, healthyRan)
}

func TestEnsureDefaultTasks(t *testing.T) {
	t.Run("sync enabled", func(t *testing.T) {
		tasks := newStubTaskRepo()
		svc := NewSchedulerService(SchedulerServiceOptions{
			Tasks:        tasks,
			SyncInterval: 15 * time.Minute,
			SyncEnabled:  true,
		})

		require.NoError(t, svc.EnsureDefaultTasks(context.Background()))

		assert.Equal(t, 15*time.Minute, tasks.upserted[model.TaskCloudSync])
		assert.Contains(t, tasks.upserted, model.TaskReservationRollover)
		assert.Contains(t, tasks.upserted, model.TaskListingsCacheWarm)
		assert.Empty(t, tasks.deleted)
	})

	t.Run("sync disabled", func(t *testing.T) {
		tasks := newStubTaskRepo()
		svc := NewSchedulerService(SchedulerServiceOptions{Tasks: tasks})

		require.NoError(t, svc.EnsureDefaultTasks(context.Background()))

		assert.NotContains(t, tasks.upserted, model.TaskCloudSync)
		assert.Contains(t, tasks.deleted, model.TaskCloudSync)
	})
}
