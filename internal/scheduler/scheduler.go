// Package scheduler drives the recurring pipeline jobs on crontab-style
// schedules in the local time zone.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// Job is one named, schedulable pipeline stage. Jobs take no arguments;
// their configuration is baked in at wiring time.
type Job struct {
	Name string
	// Spec is a crontab expression evaluated in the scheduler's time zone.
	Spec string
	// StoreKey serializes jobs touching the same store: the reconciler and
	// the enricher both mutate product rows without row-level coordination,
	// so overlapping runs per store are skipped, not queued. Empty means no
	// per-store serialization.
	StoreKey string
	Run      func(ctx context.Context) error
}

// Locker guards one store's jobs across processes. Optional.
type Locker interface {
	TryAdvisoryLock(ctx context.Context, key string) (bool, error)
	AdvisoryUnlock(ctx context.Context, key string) error
}

// RunRecord is the bookkeeping for one job execution. A failed run is
// recorded and logged; it is not retried before the next scheduled tick.
type RunRecord struct {
	ID       uuid.UUID `json:"id"`
	Job      string    `json:"job"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	Error    string    `json:"error,omitempty"`
	Skipped  bool      `json:"skipped,omitempty"`
}

const historyLimit = 200

type Scheduler struct {
	cron   *cron.Cron
	locker Locker

	mu         sync.Mutex
	jobs       map[string]Job
	order      []string
	storeLocks map[string]*sync.Mutex
	history    []RunRecord

	baseCtx context.Context
}

func New(loc *time.Location, locker Locker) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithLocation(loc)),
		locker:     locker,
		jobs:       make(map[string]Job),
		storeLocks: make(map[string]*sync.Mutex),
		baseCtx:    context.Background(),
	}
}

func (s *Scheduler) Register(j Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[j.Name]; exists {
		return fmt.Errorf("scheduler: job %q already registered", j.Name)
	}
	if j.StoreKey != "" {
		if _, ok := s.storeLocks[j.StoreKey]; !ok {
			s.storeLocks[j.StoreKey] = &sync.Mutex{}
		}
	}

	if _, err := s.cron.AddFunc(j.Spec, func() { s.execute(j) }); err != nil {
		return fmt.Errorf("scheduler: bad schedule %q for job %q: %w", j.Spec, j.Name, err)
	}

	s.jobs[j.Name] = j
	s.order = append(s.order, j.Name)
	return nil
}

// Start begins firing schedules. Jobs run with the given base context, so
// cancelling it stops in-flight work.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.baseCtx = ctx
	n := len(s.jobs)
	s.mu.Unlock()

	s.cron.Start()
	log.Printf("scheduler: started with %d jobs", n)
}

// Stop halts scheduling and waits for running jobs, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
	}
	log.Println("scheduler: stopped")
}

// Trigger runs a job out of schedule, asynchronously. The same single-flight
// rules apply as for scheduled runs.
func (s *Scheduler) Trigger(name string) (uuid.UUID, error) {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return uuid.Nil, fmt.Errorf("scheduler: unknown job %q", name)
	}

	id := uuid.New()
	go s.executeAs(id, j)
	return id, nil
}

func (s *Scheduler) execute(j Job) {
	s.executeAs(uuid.New(), j)
}

func (s *Scheduler) executeAs(id uuid.UUID, j Job) {
	s.mu.Lock()
	ctx := s.baseCtx
	var storeLock *sync.Mutex
	if j.StoreKey != "" {
		storeLock = s.storeLocks[j.StoreKey]
	}
	s.mu.Unlock()

	rec := RunRecord{ID: id, Job: j.Name, Started: time.Now()}

	if storeLock != nil {
		if !storeLock.TryLock() {
			log.Printf("scheduler: %s skipped, another job for store %q is still running", j.Name, j.StoreKey)
			rec.Skipped = true
			rec.Finished = time.Now()
			s.record(rec)
			return
		}
		defer storeLock.Unlock()

		if s.locker != nil {
			ok, err := s.locker.TryAdvisoryLock(ctx, j.StoreKey)
			if err != nil {
				log.Printf("scheduler: %s advisory lock failed: %v", j.Name, err)
				rec.Error = err.Error()
				rec.Finished = time.Now()
				s.record(rec)
				return
			}
			if !ok {
				log.Printf("scheduler: %s skipped, store %q locked by another process", j.Name, j.StoreKey)
				rec.Skipped = true
				rec.Finished = time.Now()
				s.record(rec)
				return
			}
			defer func() {
				// к этому моменту baseCtx может быть уже отменён
				// (shutdown), а блокировку вернуть всё равно нужно
				unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := s.locker.AdvisoryUnlock(unlockCtx, j.StoreKey); err != nil {
					log.Printf("scheduler: %s advisory unlock failed: %v", j.Name, err)
				}
			}()
		}
	}

	log.Printf("scheduler: %s started", j.Name)
	if err := j.Run(ctx); err != nil {
		log.Printf("scheduler: %s failed: %v", j.Name, err)
		rec.Error = err.Error()
	} else {
		log.Printf("scheduler: %s finished", j.Name)
	}
	rec.Finished = time.Now()
	s.record(rec)
}

func (s *Scheduler) record(rec RunRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, rec)
	if len(s.history) > historyLimit {
		s.history = s.history[len(s.history)-historyLimit:]
	}
}

// JobStatus describes a registered job and its most recent run.
type JobStatus struct {
	Name     string     `json:"name"`
	Spec     string     `json:"spec"`
	StoreKey string     `json:"store_key,omitempty"`
	LastRun  *RunRecord `json:"last_run,omitempty"`
}

func (s *Scheduler) Jobs() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.order))
	for _, name := range s.order {
		j := s.jobs[name]
		st := JobStatus{Name: j.Name, Spec: j.Spec, StoreKey: j.StoreKey}
		for i := len(s.history) - 1; i >= 0; i-- {
			if s.history[i].Job == name {
				rec := s.history[i]
				st.LastRun = &rec
				break
			}
		}
		out = append(out, st)
	}
	return out
}

// Runs returns recent run records, newest first.
func (s *Scheduler) Runs() []RunRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]RunRecord, len(s.history))
	for i, rec := range s.history {
		out[len(s.history)-1-i] = rec
	}
	return out
}
