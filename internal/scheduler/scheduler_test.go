package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	return New(time.UTC, nil)
}

// farFuture is a schedule that never fires during a test.
const farFuture = "0 0 1 1 *"

func waitRuns(t *testing.T, s *Scheduler, n int) []RunRecord {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(s.Runs()) >= n
	}, 2*time.Second, 5*time.Millisecond)
	return s.Runs()
}

func TestRegisterRejectsDuplicateName(t *testing.T) {
	s := newTestScheduler(t)
	j := Job{Name: "compare", Spec: farFuture, Run: func(context.Context) error { return nil }}
	require.NoError(t, s.Register(j))
	err := s.Register(j)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegisterRejectsBadSpec(t *testing.T) {
	s := newTestScheduler(t)
	err := s.Register(Job{Name: "broken", Spec: "not a cron spec", Run: func(context.Context) error { return nil }})
	require.Error(t, err)
}

func TestTriggerUnknownJob(t *testing.T) {
	s := newTestScheduler(t)
	id, err := s.Trigger("no-such-job")
	require.Error(t, err)
	assert.Equal(t, uuid.Nil, id)
}

func TestTriggerRunsJobAndRecordsOutcome(t *testing.T) {
	s := newTestScheduler(t)
	ran := make(chan struct{}, 1)
	require.NoError(t, s.Register(Job{
		Name: "scrape:steam",
		Spec: farFuture,
		Run: func(context.Context) error {
			ran <- struct{}{}
			return nil
		},
	}))

	id, err := s.Trigger("scrape:steam")
	require.NoError(t, err)

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job never ran")
	}

	runs := waitRuns(t, s, 1)
	assert.Equal(t, id, runs[0].ID)
	assert.Equal(t, "scrape:steam", runs[0].Job)
	assert.Empty(t, runs[0].Error)
	assert.False(t, runs[0].Skipped)
}

func TestFailedRunIsRecordedNotRetried(t *testing.T) {
	s := newTestScheduler(t)
	calls := 0
	require.NoError(t, s.Register(Job{
		Name: "compare",
		Spec: farFuture,
		Run: func(context.Context) error {
			calls++
			return errors.New("rate source down")
		},
	}))

	_, err := s.Trigger("compare")
	require.NoError(t, err)

	runs := waitRuns(t, s, 1)
	assert.Equal(t, "rate source down", runs[0].Error)
	assert.Equal(t, 1, calls)
}

func TestOverlappingStoreJobIsSkipped(t *testing.T) {
	s := newTestScheduler(t)
	block := make(chan struct{})
	started := make(chan struct{})

	require.NoError(t, s.Register(Job{
		Name:     "scrape:steam",
		Spec:     farFuture,
		StoreKey: "steam",
		Run: func(context.Context) error {
			close(started)
			<-block
			return nil
		},
	}))
	require.NoError(t, s.Register(Job{
		Name:     "enrich:steam",
		Spec:     farFuture,
		StoreKey: "steam",
		Run: func(context.Context) error {
			t.Error("enrich ran while scrape held the store lock")
			return nil
		},
	}))

	_, err := s.Trigger("scrape:steam")
	require.NoError(t, err)
	<-started

	_, err = s.Trigger("enrich:steam")
	require.NoError(t, err)

	runs := waitRuns(t, s, 1)
	assert.Equal(t, "enrich:steam", runs[0].Job)
	assert.True(t, runs[0].Skipped)

	close(block)
	runs = waitRuns(t, s, 2)
	assert.Equal(t, "scrape:steam", runs[0].Job)
	assert.False(t, runs[0].Skipped)
}

func TestDifferentStoresRunConcurrently(t *testing.T) {
	s := newTestScheduler(t)
	block := make(chan struct{})
	started := make(chan struct{})

	require.NoError(t, s.Register(Job{
		Name:     "scrape:steam",
		Spec:     farFuture,
		StoreKey: "steam",
		Run: func(context.Context) error {
			close(started)
			<-block
			return nil
		},
	}))
	require.NoError(t, s.Register(Job{
		Name:     "scrape:gog",
		Spec:     farFuture,
		StoreKey: "gog",
		Run:      func(context.Context) error { return nil },
	}))

	_, err := s.Trigger("scrape:steam")
	require.NoError(t, err)
	<-started

	_, err = s.Trigger("scrape:gog")
	require.NoError(t, err)

	runs := waitRuns(t, s, 1)
	assert.Equal(t, "scrape:gog", runs[0].Job)
	assert.False(t, runs[0].Skipped)

	close(block)
	waitRuns(t, s, 2)
}

type fakeLocker struct {
	mu            sync.Mutex
	held          map[string]bool
	unlocks       int
	unlockCtxErrs []error
}

func (l *fakeLocker) TryAdvisoryLock(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return false, nil
	}
	return true, nil
}

func (l *fakeLocker) AdvisoryUnlock(ctx context.Context, _ string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unlocks++
	l.unlockCtxErrs = append(l.unlockCtxErrs, ctx.Err())
	return nil
}

func (l *fakeLocker) unlockCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.unlocks
}

func TestAdvisoryLockHeldElsewhereSkipsRun(t *testing.T) {
	locker := &fakeLocker{held: map[string]bool{"steam": true}}
	s := New(time.UTC, locker)

	require.NoError(t, s.Register(Job{
		Name:     "scrape:steam",
		Spec:     farFuture,
		StoreKey: "steam",
		Run: func(context.Context) error {
			t.Error("ran despite foreign advisory lock")
			return nil
		},
	}))

	_, err := s.Trigger("scrape:steam")
	require.NoError(t, err)

	runs := waitRuns(t, s, 1)
	assert.True(t, runs[0].Skipped)
	assert.Zero(t, locker.unlockCount())
}

func TestAdvisoryLockReleasedAfterRun(t *testing.T) {
	locker := &fakeLocker{held: map[string]bool{}}
	s := New(time.UTC, locker)

	require.NoError(t, s.Register(Job{
		Name:     "scrape:gog",
		Spec:     farFuture,
		StoreKey: "gog",
		Run:      func(context.Context) error { return nil },
	}))

	_, err := s.Trigger("scrape:gog")
	require.NoError(t, err)

	waitRuns(t, s, 1)
	require.Eventually(t, func() bool {
		return locker.unlockCount() == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestAdvisoryUnlockSurvivesShutdown(t *testing.T) {
	locker := &fakeLocker{held: map[string]bool{}}
	s := New(time.UTC, locker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Register(Job{
		Name:     "scrape:steam",
		Spec:     farFuture,
		StoreKey: "steam",
		Run: func(context.Context) error {
			// сигнал остановки приходит, пока задача ещё работает
			cancel()
			return nil
		},
	}))
	s.Start(ctx)

	_, err := s.Trigger("scrape:steam")
	require.NoError(t, err)

	waitRuns(t, s, 1)
	require.Eventually(t, func() bool {
		return locker.unlockCount() == 1
	}, 2*time.Second, 5*time.Millisecond)

	locker.mu.Lock()
	defer locker.mu.Unlock()
	require.Len(t, locker.unlockCtxErrs, 1)
	assert.NoError(t, locker.unlockCtxErrs[0])
}

func TestJobsReportsLastRun(t *testing.T) {
	s := newTestScheduler(t)
	require.NoError(t, s.Register(Job{Name: "compare", Spec: farFuture, Run: func(context.Context) error { return nil }}))
	require.NoError(t, s.Register(Job{Name: "search-vector", Spec: farFuture, Run: func(context.Context) error { return nil }}))

	statuses := s.Jobs()
	require.Len(t, statuses, 2)
	assert.Equal(t, "compare", statuses[0].Name)
	assert.Nil(t, statuses[0].LastRun)

	id, err := s.Trigger("compare")
	require.NoError(t, err)
	waitRuns(t, s, 1)

	statuses = s.Jobs()
	require.NotNil(t, statuses[0].LastRun)
	assert.Equal(t, id, statuses[0].LastRun.ID)
	assert.Nil(t, statuses[1].LastRun)
}

func TestRunsNewestFirstAndBounded(t *testing.T) {
	s := newTestScheduler(t)
	for i := 0; i < historyLimit+10; i++ {
		s.record(RunRecord{ID: uuid.New(), Job: "compare", Started: time.Now(), Finished: time.Now()})
	}
	last := RunRecord{ID: uuid.New(), Job: "search-vector", Started: time.Now(), Finished: time.Now()}
	s.record(last)

	runs := s.Runs()
	require.Len(t, runs, historyLimit)
	assert.Equal(t, last.ID, runs[0].ID)
}
