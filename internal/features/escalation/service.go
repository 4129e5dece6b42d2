package escalation

import (
	"context"
	"fmt"
	"time"

	"go-onboard/internal/config"

	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Escalator is what the sweeper drives once it has claimed a timer. The
// workflow orchestrator implements it.
type Escalator interface {
	Escalate(ctx context.Context, requestID string, stepNumber int) error
}

const sweepBatchSize = 100

// EscalationService schedules timers for the orchestrator and sweeps due
// ones on a fixed interval. Multiple instances may sweep concurrently: the
// claim is atomic, so each timer fires exactly once.
type EscalationService struct {
	Repo      TimerRepository
	Escalator Escalator
	Log       *zap.Logger
	scheduler *cron.Cron
	interval  time.Duration
}

func NewEscalationService(repo TimerRepository, cfg *config.Config, log *zap.Logger) *EscalationService {
	return &EscalationService{
		Repo:     repo,
		Log:      log,
		interval: cfg.SweepInterval,
	}
}

// SetEscalator is called once at wiring time. The orchestrator depends on
// this service for scheduling, so the reverse edge is set after construction.
func (s *EscalationService) SetEscalator(escalator Escalator) {
	s.Escalator = escalator
}

// Schedule satisfies the orchestrator's timer dependency.
func (s *EscalationService) Schedule(ctx context.Context, tenantID, requestID string, stepNumber int, deadline time.Time) error {
	return s.Repo.Schedule(ctx, tenantID, requestID, stepNumber, deadline)
}

// Sweep claims and fires every due timer. A timer whose claim is lost to a
// concurrent sweeper is skipped silently.
func (s *EscalationService) Sweep(ctx context.Context) {
	if s.Escalator == nil {
		return
	}
	timers, err := s.Repo.FindDue(ctx, time.Now(), sweepBatchSize)
	if err != nil {
		s.Log.Error("escalation sweep failed to list due timers", zap.Error(err))
		return
	}

	for _, timer := range timers {
		claimed, err := s.Repo.Claim(ctx, timer.ID.Hex())
		if err != nil {
			s.Log.Error("failed to claim escalation timer",
				zap.String("timer_id", timer.ID.Hex()), zap.Error(err))
			continue
		}
		if !claimed {
			continue
		}

		if err := s.Escalator.Escalate(ctx, timer.RequestID, timer.StepNumber); err != nil {
			s.Log.Error("escalation failed",
				zap.String("request_id", timer.RequestID),
				zap.Int("step", timer.StepNumber),
				zap.Error(err))
			continue
		}
		s.Log.Info("escalation fired",
			zap.String("request_id", timer.RequestID),
			zap.Int("step", timer.StepNumber))
	}
}

// InitializeScheduler wires the sweep into the process lifecycle.
func (s *EscalationService) InitializeScheduler(lc fx.Lifecycle) {
	s.scheduler = cron.New()

	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.scheduler.AddFunc(spec, func() {
		s.Sweep(context.Background())
	}); err != nil {
		s.Log.Fatal("failed to register escalation sweep", zap.Error(err))
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.scheduler.Start()
			s.Log.Info("escalation sweeper started", zap.String("interval", s.interval.String()))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopCtx := s.scheduler.Stop()
			select {
			case <-stopCtx.Done():
			case <-ctx.Done():
			}
			s.Log.Info("escalation sweeper stopped")
			return nil
		},
	})
}
