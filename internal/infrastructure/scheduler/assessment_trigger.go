package scheduler

import (
	"context"
	"sync"
	"time"

	contributionapp "github.com/welfare/backend/internal/application/contribution"
	"go.uber.org/zap"
)

// AssessmentRunner is the slice of the penalty service the trigger drives
type AssessmentRunner interface {
	AssessPenalties(ctx context.Context, req contributionapp.AssessmentRequest) (*contributionapp.AssessmentResult, error)
}

// TriggerConfig holds configuration for the assessment trigger
type TriggerConfig struct {
	// RunHour and RunMinute set the daily run time in 24h local time
	RunHour   int
	RunMinute int

	// CheckInterval is how often to check whether it is time to run
	CheckInterval time.Duration

	// Actor is recorded as the acting user on scheduled runs
	Actor string
}

// DefaultTriggerConfig returns the default trigger configuration
func DefaultTriggerConfig() TriggerConfig {
	return TriggerConfig{
		RunHour:       2,
		RunMinute:     0,
		CheckInterval: time.Minute,
		Actor:         "scheduler",
	}
}

// AssessmentTrigger fires the penalty assessment once per day at the
// configured time. The assessment itself decides whether the calendar day
// is a due day, so the trigger runs unconditionally and cheap no-op runs
// are expected on most days.
type AssessmentTrigger struct {
	config TriggerConfig
	runner AssessmentRunner
	logger *zap.Logger

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastRunDate string
}

// NewAssessmentTrigger creates a new assessment trigger
func NewAssessmentTrigger(config TriggerConfig, runner AssessmentRunner, logger *zap.Logger) *AssessmentTrigger {
	return &AssessmentTrigger{
		config: config,
		runner: runner,
		logger: logger,
	}
}

// Start starts the trigger loop
func (t *AssessmentTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Assessment trigger started",
		zap.Int("run_hour", t.config.RunHour),
		zap.Int("run_minute", t.config.RunMinute),
		zap.Duration("check_interval", t.config.CheckInterval),
	)

	return nil
}

// Stop stops the trigger loop, waiting for an in-flight run to finish
func (t *AssessmentTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Assessment trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *AssessmentTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.checkAndTrigger(ctx)
		}
	}
}

func (t *AssessmentTrigger) checkAndTrigger(ctx context.Context) {
	now := time.Now()
	currentDate := now.Format("2006-01-02")

	t.mu.Lock()
	if t.lastRunDate == currentDate {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	// The check interval may land past the configured minute, so fire on
	// any tick within the run hour at or after the run minute.
	if now.Hour() != t.config.RunHour || now.Minute() < t.config.RunMinute {
		return
	}

	t.mu.Lock()
	t.lastRunDate = currentDate
	t.mu.Unlock()

	t.logger.Info("Triggering scheduled penalty assessment", zap.String("date", currentDate))

	result, err := t.runner.AssessPenalties(ctx, contributionapp.AssessmentRequest{
		RunDate: now,
		Actor:   t.config.Actor,
	})
	if err != nil {
		t.logger.Error("Scheduled penalty assessment failed", zap.Error(err))
		return
	}

	t.logger.Info("Scheduled penalty assessment finished",
		zap.Int("processed", result.Processed),
		zap.Int("created", result.Created),
		zap.Bool("skipped", result.Skipped),
		zap.Int("errors", len(result.Errors)),
	)
}
