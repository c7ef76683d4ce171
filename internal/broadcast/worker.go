package broadcast

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/pscheid92/pushcast/internal/metrics"
	"github.com/pscheid92/pushcast/internal/platform/correlation"
)

const DefaultInterval = 1 * time.Second

// slowTick is logged when scheduling a single tick takes longer than this.
const slowTick = 50 * time.Millisecond

// Target receives one payload per tick. session.Registry implements it.
type Target interface {
	Broadcast(payload []byte) int
}

// State of the worker's lifecycle.
type State int32

const (
	StateIdle State = iota
	StateWaiting
	StateBroadcasting
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaiting:
		return "waiting"
	case StateBroadcasting:
		return "broadcasting"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Worker pushes a payload to its target on a fixed interval until its context is cancelled.
type Worker struct {
	target   Target
	payload  PayloadFunc
	clock    clockwork.Clock
	interval time.Duration

	state atomic.Int32
	ticks atomic.Uint64
	sends atomic.Uint64
}

// NewWorker creates an idle worker. A non-positive interval falls back to DefaultInterval.
func NewWorker(target Target, payload PayloadFunc, clock clockwork.Clock, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Worker{
		target:   target,
		payload:  payload,
		clock:    clock,
		interval: interval,
	}
}

// Run blocks, broadcasting on every tick, and returns nil once ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()
	defer w.state.Store(int32(StateStopped))

	w.state.Store(int32(StateWaiting))
	slog.Debug("Broadcast worker started", "interval", w.interval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Broadcast worker stopped", "ticks", w.ticks.Load(), "sends", w.sends.Load())
			return nil
		case <-ticker.Chan():
			w.tick(ctx)
		}
	}
}

// State returns the current lifecycle state.
func (w *Worker) State() State {
	return State(w.state.Load())
}

// Ticks returns the number of completed ticks.
func (w *Worker) Ticks() uint64 {
	return w.ticks.Load()
}

// Sends returns the number of sends scheduled across all ticks.
func (w *Worker) Sends() uint64 {
	return w.sends.Load()
}

func (w *Worker) tick(ctx context.Context) {
	w.state.Store(int32(StateBroadcasting))
	defer w.state.Store(int32(StateWaiting))

	n := w.ticks.Load() + 1
	tickCtx := correlation.WithTick(ctx, n)
	start := w.clock.Now()

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(tickCtx, "Broadcast tick panic recovered", "panic", r)
			metrics.BroadcastWorkerPanicsTotal.Inc()
		}
		w.ticks.Add(1)
		metrics.BroadcastTicksTotal.Inc()
	}()

	sent := w.target.Broadcast(w.payload(n))
	w.sends.Add(uint64(sent))
	metrics.BroadcastSendsTotal.Add(float64(sent))

	elapsed := w.clock.Since(start)
	metrics.BroadcastTickDuration.Observe(elapsed.Seconds())
	if elapsed > slowTick {
		slog.WarnContext(tickCtx, "Broadcast tick exceeded budget", "duration", elapsed, "budget", slowTick, "sessions", sent)
	} else {
		slog.DebugContext(tickCtx, "Broadcast tick", "sessions", sent)
	}
}
