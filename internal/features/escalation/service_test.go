package escalation

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeTimerRepo struct {
	mu     sync.Mutex
	timers map[string]*EscalationTimer
}

func newFakeTimerRepo() *fakeTimerRepo {
	return &fakeTimerRepo{timers: map[string]*EscalationTimer{}}
}

func (f *fakeTimerRepo) Schedule(ctx context.Context, tenantID, requestID string, stepNumber int, deadline time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.timers {
		if t.RequestID == requestID && t.StepNumber == stepNumber {
			return nil
		}
	}
	id := primitive.NewObjectID()
	f.timers[id.Hex()] = &EscalationTimer{
		ID:         id,
		TenantID:   tenantID,
		RequestID:  requestID,
		StepNumber: stepNumber,
		Deadline:   deadline,
		CreatedAt:  time.Now(),
	}
	return nil
}

func (f *fakeTimerRepo) FindDue(ctx context.Context, now time.Time, limit int64) ([]EscalationTimer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var due []EscalationTimer
	for _, t := range f.timers {
		if !t.Fired && !t.Deadline.After(now) {
			due = append(due, *t)
		}
	}
	return due, nil
}

func (f *fakeTimerRepo) Claim(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.timers[id]
	if !ok || t.Fired {
		return false, nil
	}
	t.Fired = true
	now := time.Now()
	t.FiredAt = &now
	return true, nil
}

func (f *fakeTimerRepo) EnsureIndexes(ctx context.Context) error { return nil }

type countingEscalator struct {
	mu    sync.Mutex
	fired map[string]int
}

func (c *countingEscalator) Escalate(ctx context.Context, requestID string, stepNumber int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fired == nil {
		c.fired = map[string]int{}
	}
	c.fired[requestID]++
	return nil
}

func newTestSweeper(repo TimerRepository, escalator Escalator) *EscalationService {
	return &EscalationService{
		Repo:      repo,
		Escalator: escalator,
		Log:       zap.NewNop(),
		interval:  time.Minute,
	}
}

func TestSweepFiresOnlyDueTimers(t *testing.T) {
	repo := newFakeTimerRepo()
	escalator := &countingEscalator{}
	svc := newTestSweeper(repo, escalator)
	ctx := context.Background()

	repo.Schedule(ctx, "t1", "req-due", 1, time.Now().Add(-time.Minute))
	repo.Schedule(ctx, "t1", "req-future", 1, time.Now().Add(time.Hour))

	svc.Sweep(ctx)

	if escalator.fired["req-due"] != 1 {
		t.Errorf("due timer fired %d times, want 1", escalator.fired["req-due"])
	}
	if escalator.fired["req-future"] != 0 {
		t.Errorf("future timer fired")
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	repo := newFakeTimerRepo()
	escalator := &countingEscalator{}
	svc := newTestSweeper(repo, escalator)
	ctx := context.Background()

	repo.Schedule(ctx, "t1", "req-1", 1, time.Now().Add(-time.Minute))

	svc.Sweep(ctx)
	svc.Sweep(ctx)
	svc.Sweep(ctx)

	if escalator.fired["req-1"] != 1 {
		t.Errorf("timer fired %d times across repeated sweeps, want 1", escalator.fired["req-1"])
	}
}

func TestConcurrentSweepersFireExactlyOnce(t *testing.T) {
	repo := newFakeTimerRepo()
	escalator := &countingEscalator{}
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		repo.Schedule(ctx, "t1", "req-"+string(rune('a'+i)), 1, time.Now().Add(-time.Minute))
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			newTestSweeper(repo, escalator).Sweep(ctx)
		}()
	}
	wg.Wait()

	for requestID, count := range escalator.fired {
		if count != 1 {
			t.Errorf("request %s escalated %d times, want exactly 1", requestID, count)
		}
	}
	if len(escalator.fired) != 20 {
		t.Errorf("fired %d distinct timers, want 20", len(escalator.fired))
	}
}

func TestScheduleIsAtMostOncePerStep(t *testing.T) {
	repo := newFakeTimerRepo()
	escalator := &countingEscalator{}
	svc := newTestSweeper(repo, escalator)
	ctx := context.Background()

	deadline := time.Now().Add(-time.Minute)
	svc.Schedule(ctx, "t1", "req-1", 1, deadline)
	svc.Schedule(ctx, "t1", "req-1", 1, deadline.Add(time.Hour))
	svc.Schedule(ctx, "t1", "req-1", 2, deadline)

	svc.Sweep(ctx)
	if escalator.fired["req-1"] != 2 {
		t.Errorf("fired %d times, want 2 (one per step)", escalator.fired["req-1"])
	}
}
