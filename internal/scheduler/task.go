package scheduler

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"MarketLens/internal/domain/models"
	"MarketLens/pkg/logger"
)

// State is the lifecycle phase of one (venue, kind) polling task.
type State int

const (
	StateIdle State = iota
	StatePolling
	StateBackoff
	StateDegraded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StateBackoff:
		return "backoff"
	case StateDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// BackoffConfig controls per-task retry behavior. After MaxAttempts
// consecutive failures the task goes degraded and pauses for Cooldown,
// then resumes its normal schedule.
type BackoffConfig struct {
	Base        time.Duration `yaml:"base"`
	Cap         time.Duration `yaml:"cap"`
	MaxAttempts int           `yaml:"max_attempts"`
	Cooldown    time.Duration `yaml:"cooldown"`
}

func (b *BackoffConfig) applyDefaults() {
	if b.Base <= 0 {
		b.Base = 2 * time.Second
	}
	if b.Cap <= 0 {
		b.Cap = 60 * time.Second
	}
	if b.MaxAttempts <= 0 {
		b.MaxAttempts = 5
	}
	if b.Cooldown <= 0 {
		b.Cooldown = 2 * time.Minute
	}
}

// delay returns the jittered backoff delay for the given consecutive
// failure count (1-based).
func (b BackoffConfig) delay(attempt int) time.Duration {
	d := b.Base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= b.Cap {
			d = b.Cap
			break
		}
	}
	// jitter in [0.5, 1.5)
	return time.Duration(float64(d) * (0.5 + rand.Float64()))
}

// task polls one (venue, kind) stream on its own timer. Tasks never
// share mutable state; a failing venue backs off without touching the
// schedules of any other task.
type task struct {
	venue    string
	kind     models.Kind
	interval time.Duration
	backoff  BackoffConfig
	poll     func(ctx context.Context) error

	force chan struct{}
	log   *logger.Logger

	mu          sync.Mutex
	state       State
	attempts    int
	lastSuccess time.Time
	failures    int64
}

func newTask(venue string, kind models.Kind, interval time.Duration, backoff BackoffConfig, log *logger.Logger, poll func(ctx context.Context) error) *task {
	backoff.applyDefaults()
	return &task{
		venue:    venue,
		kind:     kind,
		interval: interval,
		backoff:  backoff,
		poll:     poll,
		force:    make(chan struct{}, 1),
		log:      log,
	}
}

func (t *task) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

func (t *task) snapshot() (State, time.Time, int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state, t.lastSuccess, t.failures
}

// run drives the task until ctx is done. The scheduled timer keeps its
// cadence across forced polls; a force request runs one extra cycle
// without resetting it.
func (t *task) run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.cycle(ctx)
		case <-t.force:
			t.cycle(ctx)
		}
	}
}

// cycle runs one poll and walks the state machine on failure: retry with
// jittered exponential backoff, then degrade and cool down after too
// many consecutive misses.
func (t *task) cycle(ctx context.Context) {
	t.setState(StatePolling)
	err := t.poll(ctx)
	if err == nil {
		t.mu.Lock()
		t.state = StateIdle
		t.attempts = 0
		t.lastSuccess = time.Now().UTC()
		t.mu.Unlock()
		return
	}

	t.mu.Lock()
	t.attempts++
	t.failures++
	attempts := t.attempts
	t.mu.Unlock()

	t.log.Warn("poll failed",
		logger.String("venue", t.venue),
		logger.String("kind", string(t.kind)),
		logger.Int("attempt", attempts),
		logger.Error(err))

	if attempts >= t.backoff.MaxAttempts {
		t.degrade(ctx)
		return
	}

	t.setState(StateBackoff)
	select {
	case <-ctx.Done():
	case <-time.After(t.backoff.delay(attempts)):
		t.setState(StateIdle)
	}
}

func (t *task) degrade(ctx context.Context) {
	t.setState(StateDegraded)
	t.log.Error("venue task degraded, cooling down",
		logger.String("venue", t.venue),
		logger.String("kind", string(t.kind)),
		logger.Duration("cooldown", t.backoff.Cooldown))

	select {
	case <-ctx.Done():
		return
	case <-time.After(t.backoff.Cooldown):
	}

	t.mu.Lock()
	t.state = StateIdle
	t.attempts = 0
	t.mu.Unlock()
}

// requestForce enqueues one immediate poll; a pending request is enough.
func (t *task) requestForce() {
	select {
	case t.force <- struct{}{}:
	default:
	}
}
