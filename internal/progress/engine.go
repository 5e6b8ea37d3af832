package progress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultLoadTimeout bounds a single fetch+aggregate attempt.
	DefaultLoadTimeout = 10 * time.Second

	checkInLookbackMonths   = 6
	checkInFetchConcurrency = 4
)

// Option customises an Engine.
type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(clock Clock) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithLocation sets the calendar used for day boundaries.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithLoadTimeout overrides DefaultLoadTimeout.
func WithLoadTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithLogger sets the logger used for attempt diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithObserver registers a callback invoked with a copy of the state after
// every publish. It runs on the attempt goroutine and must not block.
func WithObserver(fn func(State)) Option {
	return func(e *Engine) {
		e.observer = fn
	}
}

// Result is the outcome of one load attempt.
type Result struct {
	AttemptID string
	Status    Status
	Metrics   DerivedMetrics
	Err       error
}

// Attempt is a handle on a started load.
type Attempt struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
	result Result
}

// ID identifies the attempt in logs.
func (a *Attempt) ID() string { return a.id }

// Done is closed once the attempt has resolved.
func (a *Attempt) Done() <-chan struct{} { return a.done }

// Wait blocks until the attempt resolves or ctx ends.
func (a *Attempt) Wait(ctx context.Context) (Result, error) {
	select {
	case <-a.done:
		return a.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (a *Attempt) complete(res Result) {
	a.result = res
	close(a.done)
}

// Engine coordinates loading a user's records and publishing derived metrics.
// At most one attempt is active at a time; the published State only changes
// at attempt boundaries.
type Engine struct {
	auth     AuthProvider
	store    DocumentStore
	clock    Clock
	loc      *time.Location
	timeout  time.Duration
	logger   *slog.Logger
	observer func(State)

	mu      sync.Mutex
	current *Attempt
	state   State
}

// NewEngine wires an engine to its collaborators.
func NewEngine(auth AuthProvider, store DocumentStore, opts ...Option) (*Engine, error) {
	if auth == nil {
		return nil, errors.New("auth provider is required")
	}
	if store == nil {
		return nil, errors.New("document store is required")
	}

	e := &Engine{
		auth:    auth,
		store:   store,
		clock:   NewSystemClock(),
		loc:     time.Local,
		timeout: DefaultLoadTimeout,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		state:   State{Status: StatusIdle, Metrics: emptyMetrics()},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// State returns a copy of the currently published state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.clone()
}

// Load starts a new attempt. While an attempt is in flight a non-forced call
// returns that attempt unchanged; a forced call cancels and replaces it.
// The attempt runs until it resolves or ctx is cancelled; callers that must
// not tie it to a request should pass context.WithoutCancel.
func (e *Engine) Load(ctx context.Context, forceRefresh bool) *Attempt {
	e.mu.Lock()
	if e.state.Status == StatusLoading && e.current != nil && !forceRefresh {
		inFlight := e.current
		e.mu.Unlock()
		return inFlight
	}
	if e.current != nil {
		e.current.cancel()
	}

	attemptCtx, cancel := context.WithCancel(ctx)
	a := &Attempt{id: newAttemptID(), cancel: cancel, done: make(chan struct{})}
	e.current = a
	e.state.Status = StatusLoading
	e.state.ErrorMessage = nil
	snapshot := e.state.clone()
	e.mu.Unlock()

	e.notify(snapshot)
	go e.run(attemptCtx, a)
	return a
}

// Cancel stops the in-flight attempt, if any. Published metrics are untouched.
func (e *Engine) Cancel() {
	e.mu.Lock()
	a := e.current
	e.mu.Unlock()
	if a != nil {
		a.cancel()
	}
}

type outcome struct {
	metrics DerivedMetrics
	err     error
}

func (e *Engine) run(ctx context.Context, a *Attempt) {
	defer a.cancel()
	logger := e.logger.With(slog.String("attempt_id", a.id))

	userID, ok := e.auth.CurrentUserID(ctx)
	if !ok || userID == "" {
		e.finish(a, Result{Status: StatusFailed, Err: ErrAuthRequired}, logger)
		return
	}
	logger = logger.With(slog.String("user_id", userID))

	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	done := make(chan outcome, 1)
	go func() {
		metrics, err := e.pipeline(ctx, userID, logger)
		done <- outcome{metrics: metrics, err: err}
	}()

	var res Result
	select {
	case out := <-done:
		switch {
		case out.err != nil:
			res = failed(out.err)
		case ctx.Err() != nil:
			res = Result{Status: StatusCancelled, Err: ErrCancelled}
		default:
			res = Result{Status: StatusSucceeded, Metrics: out.metrics}
		}
	case <-timer.C:
		a.cancel()
		res = Result{Status: StatusFailed, Err: fmt.Errorf("%w after %s", ErrTimeout, e.timeout)}
	case <-ctx.Done():
		res = Result{Status: StatusCancelled, Err: ErrCancelled}
	}

	e.finish(a, res, logger)
}

func failed(err error) Result {
	if KindOf(err) == KindCancellation {
		return Result{Status: StatusCancelled, Err: ErrCancelled}
	}
	return Result{Status: StatusFailed, Err: err}
}

// pipeline fetches challenges, then each challenge's check-ins, and aggregates.
// A failed check-in fetch only drops that challenge's check-ins.
func (e *Engine) pipeline(ctx context.Context, userID string, logger *slog.Logger) (DerivedMetrics, error) {
	if err := ctx.Err(); err != nil {
		return DerivedMetrics{}, err
	}

	challenges, err := e.store.ListChallenges(ctx, userID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return DerivedMetrics{}, ctxErr
		}
		if !errors.Is(err, ErrNetworkFailure) {
			err = fmt.Errorf("%w: %w", ErrNetworkFailure, err)
		}
		return DerivedMetrics{}, fmt.Errorf("list challenges: %w", err)
	}

	now := e.clock.Now().In(e.loc)
	since := startOfDay(now).AddDate(0, -checkInLookbackMonths, 0)
	perChallenge := make([][]CheckInRecord, len(challenges))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(checkInFetchConcurrency)
	for i, challenge := range challenges {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records, err := e.store.ListCheckIns(gctx, userID, challenge.ID, since)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				logger.Warn("skipping challenge check-ins",
					slog.String("challenge_id", challenge.ID),
					slog.Any("error", fmt.Errorf("%w: %w", ErrPerRecord, err)))
				return nil
			}
			perChallenge[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return DerivedMetrics{}, err
	}
	if err := ctx.Err(); err != nil {
		return DerivedMetrics{}, err
	}

	var checkIns []CheckInRecord
	for _, records := range perChallenge {
		checkIns = append(checkIns, records...)
	}

	return Aggregate(challenges, checkIns, now), nil
}

// finish publishes res if a is still the current attempt. Superseded
// attempts resolve as cancelled without touching the published state.
func (e *Engine) finish(a *Attempt, res Result, logger *slog.Logger) {
	res.AttemptID = a.id

	e.mu.Lock()
	if e.current != a {
		e.mu.Unlock()
		logger.Info("load superseded")
		a.complete(Result{AttemptID: a.id, Status: StatusCancelled, Err: ErrCancelled})
		return
	}

	switch res.Status {
	case StatusSucceeded:
		e.state = State{
			Status:  StatusSucceeded,
			Metrics: res.Metrics,
			HasData: res.Metrics.TotalChallenges > 0,
		}
		res.Metrics = res.Metrics.Clone()
	case StatusFailed:
		msg := UserMessage(res.Err)
		e.state.Status = StatusFailed
		e.state.ErrorMessage = &msg
	default:
		e.state.Status = StatusCancelled
	}
	snapshot := e.state.clone()
	e.mu.Unlock()

	switch res.Status {
	case StatusSucceeded:
		logger.Info("load succeeded",
			slog.Int("challenges", res.Metrics.TotalChallenges),
			slog.Int("current_streak", res.Metrics.CurrentStreak),
			slog.Int("badges", len(res.Metrics.EarnedBadges)))
	case StatusFailed:
		logger.Error("load failed", slog.String("kind", string(KindOf(res.Err))), slog.Any("error", res.Err))
	default:
		logger.Info("load cancelled")
	}

	a.complete(res)
	e.notify(snapshot)
}

func (e *Engine) notify(s State) {
	if e.observer != nil {
		e.observer(s)
	}
}
