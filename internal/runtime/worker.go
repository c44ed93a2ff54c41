// Package runtime is the shared worker-process scaffold every cmd/
// binary builds on: heartbeat, incident-mode/maintenance gating, and
// execution-log recording (§4.3). Graceful shutdown follows the
// context-cancel-plus-signal.Notify idiom from the pack's closest
// worker-process example (DESIGN.md).
package runtime

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/coinsensei/chain-workers/internal/log"
	"github.com/coinsensei/chain-workers/internal/store"
)

const heartbeatInterval = 15 * time.Second

// Worker drives one cycle-on-a-ticker loop for a single role/chain pair.
type Worker struct {
	ID      string
	Role    string
	ChainID *int64

	Interval time.Duration
	Cycle    func(ctx context.Context) error

	control *store.ControlRepo
	guard   *Guard
	execlog *ExecutionLog
}

// New builds a Worker. cycle is called once per tick; its error (if any)
// is classified and recorded to the execution log, never panics the
// loop.
func New(id, role string, chainID *int64, interval time.Duration, control *store.ControlRepo, cycle func(ctx context.Context) error) *Worker {
	return &Worker{
		ID:       id,
		Role:     role,
		ChainID:  chainID,
		Interval: interval,
		Cycle:    cycle,
		control:  control,
		guard:    NewGuard(control),
		execlog:  NewExecutionLog(control, id, role),
	}
}

// Run loops until ctx is cancelled: heartbeat on its own ticker, served
// by the same loop as the cycle (a cycle that runs long delays the next
// beat until it returns), and the cycle itself gated by the
// maintenance/incident-mode guard before every tick.
func (w *Worker) Run(ctx context.Context) error {
	logger := log.NewModuleLogger(log.Runtime)
	logger.Infow("worker starting", "worker_id", w.ID, "role", w.Role)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	w.beat(logger, "running")

	for {
		select {
		case <-ctx.Done():
			logger.Infow("worker stopping", "worker_id", w.ID)
			w.beat(logger, "stopped")
			return nil

		case <-heartbeat.C:
			w.beat(logger, "running")

		case <-ticker.C:
			w.runCycle(ctx, logger)
		}
	}
}

func (w *Worker) beat(logger *zap.SugaredLogger, state string) {
	if err := w.control.Heartbeat(w.ID, w.Role, w.ChainID, state); err != nil {
		logger.Warnw("heartbeat failed", "worker_id", w.ID, "error", err)
	}
}

func (w *Worker) runCycle(ctx context.Context, logger *zap.SugaredLogger) {
	allowed, reason, err := w.guard.Allow(w.Role)
	if err != nil {
		logger.Warnw("guard check failed, running cycle anyway", "worker_id", w.ID, "error", err)
	} else if !allowed {
		logger.Infow("cycle skipped", "worker_id", w.ID, "reason", reason)
		return
	}

	start := time.Now()
	cycleErr := w.Cycle(ctx)
	duration := time.Since(start)

	w.execlog.Record(duration, cycleErr)
	if cycleErr != nil {
		logger.Errorw("cycle failed", "worker_id", w.ID, "error", cycleErr, "duration_ms", duration.Milliseconds())
	}
}
