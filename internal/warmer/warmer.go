// Package warmer refreshes cached calculation parameters on a schedule so
// request handlers rarely wait on the upstream source.
package warmer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/iwvelando/ltvcalc/internal/params"
	"github.com/iwvelando/ltvcalc/pkg/constants"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrAlreadyStarted is returned when Start is called twice.
var ErrAlreadyStarted = errors.New("warmer already started")

// Refresher reloads the parameters of one business path.
type Refresher interface {
	Refresh(ctx context.Context, path params.BusinessPath) error
}

// Warmer periodically refreshes every configured business path.
type Warmer struct {
	logger    *zap.Logger
	refresher Refresher
	paths     []params.BusinessPath
	schedule  string
	timeout   time.Duration

	mu      sync.Mutex
	cron    *cron.Cron
	baseCtx context.Context
}

// New builds a Warmer. An empty schedule uses constants.DefaultWarmSchedule
// and no paths means every known business path.
func New(logger *zap.Logger, refresher Refresher, schedule string, timeout time.Duration, paths ...params.BusinessPath) *Warmer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if schedule == "" {
		schedule = constants.DefaultWarmSchedule
	}
	if timeout <= 0 {
		timeout = constants.DefaultParametersTimeout
	}
	if len(paths) == 0 {
		paths = params.BusinessPaths()
	}
	return &Warmer{
		logger:    logger,
		refresher: refresher,
		paths:     paths,
		schedule:  schedule,
		timeout:   timeout,
	}
}

// Schedule returns the cron expression the warmer runs on.
func (w *Warmer) Schedule() string {
	return w.schedule
}

// RunOnce refreshes all paths concurrently. Every path is attempted; the
// first failure is returned.
func (w *Warmer) RunOnce(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	var g errgroup.Group
	for _, path := range w.paths {
		path := path
		g.Go(func() error {
			if err := w.refresher.Refresh(ctx, path); err != nil {
				w.logger.Warn("failed to warm calculation parameters",
					zap.String("op", "warmer.RunOnce"),
					zap.String("business_path", string(path)),
					zap.Error(err),
				)
				return fmt.Errorf("failed to warm %s: %w", path, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Start registers the refresh job and starts the scheduler. Jobs run with a
// context derived from ctx.
func (w *Warmer) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cron != nil {
		return ErrAlreadyStarted
	}

	c := cron.New()
	if _, err := c.AddFunc(w.schedule, w.tick); err != nil {
		return fmt.Errorf("invalid warm schedule %q: %w", w.schedule, err)
	}
	w.baseCtx = ctx
	w.cron = c
	c.Start()

	w.logger.Info("parameters warmer started",
		zap.String("op", "warmer.Start"),
		zap.String("schedule", w.schedule),
		zap.Int("paths", len(w.paths)),
	)
	return nil
}

func (w *Warmer) tick() {
	w.mu.Lock()
	ctx := w.baseCtx
	w.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	if err := w.RunOnce(ctx); err == nil {
		w.logger.Debug("calculation parameters warmed", zap.String("op", "warmer.tick"))
	}
}

// Stop halts the scheduler and waits for a running job, or for ctx.
func (w *Warmer) Stop(ctx context.Context) error {
	w.mu.Lock()
	c := w.cron
	w.cron = nil
	w.mu.Unlock()
	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
		w.logger.Info("parameters warmer stopped", zap.String("op", "warmer.Stop"))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed waiting for warm job: %w", ctx.Err())
	}
}

// Running reports whether the scheduler is active.
func (w *Warmer) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cron != nil
}
