// Package timer accumulates elapsed wall-clock time across start, pause and
// resume, and recovers a running timer after a restart.
package timer

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sadopc/tasktimer/internal/store"
	"github.com/sadopc/tasktimer/internal/util"
)

// DefaultInterval is how often CurrentTime is recomputed while running.
const DefaultInterval = 100 * time.Millisecond

// SnapshotStore is the slice of the persistence gateway the engine needs.
type SnapshotStore interface {
	LoadTimer() store.TimerSnapshot
	SaveTimer(store.TimerSnapshot)
}

// Engine is the timer. All fields live behind mu; the periodic updater
// re-reads them on every tick so it always sees the latest start/fixed time.
type Engine struct {
	mu    sync.Mutex
	state store.TimerSnapshot

	store    SnapshotStore
	clock    util.Clock
	interval time.Duration
	onUpdate func(store.TimerSnapshot)
	log      util.Logger

	// stop/done belong to the single live updater goroutine; nil when idle.
	stop     chan struct{}
	done     chan struct{}
	updaters atomic.Int32
}

type Option func(*Engine)

func WithClock(c util.Clock) Option { return func(e *Engine) { e.clock = c } }

func WithInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.interval = d
		}
	}
}

// WithOnUpdate registers a callback run after every periodic recompute.
// It is called without the engine lock held.
func WithOnUpdate(fn func(store.TimerSnapshot)) Option {
	return func(e *Engine) { e.onUpdate = fn }
}

func WithLogger(l util.Logger) Option { return func(e *Engine) { e.log = l } }

// New rehydrates the engine from s. A snapshot that was running when it was
// saved keeps its persisted StartTime, so time spent while the process was
// down is included.
func New(s SnapshotStore, opts ...Option) *Engine {
	e := &Engine{
		store:    s,
		clock:    util.SystemClock(),
		interval: DefaultInterval,
		log:      util.L(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With(util.F("component", "timer"))

	e.state = s.LoadTimer()
	if e.state.IsRunning {
		e.state.CurrentTime = e.liveLocked()
		e.startTickerLocked()
		e.log.Info("resumed running timer after reload",
			util.F("start_time", e.state.StartTime),
			util.F("fixed_time", e.state.FixedTime))
	}
	return e
}

// Start begins a fresh run on top of initialAccumulated milliseconds.
func (e *Engine) Start(initialAccumulated int64) {
	e.mu.Lock()
	e.stopTickerLocked()
	if initialAccumulated < 0 {
		initialAccumulated = 0
	}
	e.state = store.TimerSnapshot{
		CurrentTime: 0,
		FixedTime:   initialAccumulated,
		IsRunning:   true,
		StartTime:   util.NowMillis(e.clock),
	}
	e.startTickerLocked()
	snap := e.state
	e.mu.Unlock()

	e.log.Debug("timer started", util.F("fixed_time", initialAccumulated))
	e.store.SaveTimer(snap)
}

// Pause freezes the current run into FixedTime. No-op when not running.
func (e *Engine) Pause() {
	e.mu.Lock()
	if !e.state.IsRunning {
		e.mu.Unlock()
		return
	}
	e.stopTickerLocked()
	total := e.liveLocked()
	e.state.CurrentTime = total
	e.state.FixedTime = total
	e.state.IsRunning = false
	snap := e.state
	e.mu.Unlock()

	e.log.Debug("timer paused", util.F("fixed_time", total))
	e.store.SaveTimer(snap)
}

// Resume starts a new run from now. No-op when already running.
func (e *Engine) Resume() {
	e.mu.Lock()
	if e.state.IsRunning {
		e.mu.Unlock()
		return
	}
	e.state.StartTime = util.NowMillis(e.clock)
	e.state.IsRunning = true
	e.startTickerLocked()
	snap := e.state
	e.mu.Unlock()

	e.log.Debug("timer resumed", util.F("fixed_time", snap.FixedTime))
	e.store.SaveTimer(snap)
}

// Restore stops the timer and sets it, paused, to fixed milliseconds.
func (e *Engine) Restore(fixed int64) {
	e.mu.Lock()
	e.stopTickerLocked()
	if fixed < 0 {
		fixed = 0
	}
	e.state.CurrentTime = fixed
	e.state.FixedTime = fixed
	e.state.IsRunning = false
	snap := e.state
	e.mu.Unlock()

	e.log.Debug("timer restored", util.F("fixed_time", fixed))
	e.store.SaveTimer(snap)
}

// Reset stops the timer and zeroes all accumulated time.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.stopTickerLocked()
	e.state.CurrentTime = 0
	e.state.FixedTime = 0
	e.state.IsRunning = false
	snap := e.state
	e.mu.Unlock()

	e.log.Debug("timer reset")
	e.store.SaveTimer(snap)
}

// CurrentTime is the authoritative elapsed time in milliseconds: computed
// live while running, the cached value otherwise.
func (e *Engine) CurrentTime() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.state.IsRunning {
		return e.state.CurrentTime
	}
	return e.liveLocked()
}

func (e *Engine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.IsRunning
}

// Snapshot returns a copy of the cached state. CurrentTime may lag by up to
// one interval while running.
func (e *Engine) Snapshot() store.TimerSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Close stops the periodic updater without changing or persisting state,
// and waits for it to exit.
func (e *Engine) Close() {
	e.mu.Lock()
	done := e.stopTickerLocked()
	e.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (e *Engine) liveLocked() int64 {
	d := util.NowMillis(e.clock) - e.state.StartTime
	if d < 0 {
		d = 0
	}
	return d + e.state.FixedTime
}

func (e *Engine) startTickerLocked() {
	e.stopTickerLocked()
	stop := make(chan struct{})
	done := make(chan struct{})
	e.stop, e.done = stop, done
	e.updaters.Add(1)
	go e.run(stop, done)
}

// stopTickerLocked signals the live updater and returns its done channel.
// stop is closed under mu and tick checks it under mu, so a signalled
// updater never writes state again even before it has exited.
func (e *Engine) stopTickerLocked() <-chan struct{} {
	if e.stop == nil {
		return nil
	}
	close(e.stop)
	done := e.done
	e.stop, e.done = nil, nil
	return done
}

func (e *Engine) run(stop, done chan struct{}) {
	defer close(done)
	defer e.updaters.Add(-1)
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			e.tick(stop)
		}
	}
}

func (e *Engine) tick(stop chan struct{}) {
	e.mu.Lock()
	select {
	case <-stop:
		e.mu.Unlock()
		return
	default:
	}
	if !e.state.IsRunning {
		e.mu.Unlock()
		return
	}
	e.state.CurrentTime = e.liveLocked()
	snap := e.state
	fn := e.onUpdate
	e.mu.Unlock()

	if fn != nil {
		fn(snap)
	}
}
