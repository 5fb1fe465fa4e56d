package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	domainsession "github.com/sprintdeck/sprintdeck-go/internal/domain/session"
	"github.com/sprintdeck/sprintdeck-go/internal/observability/metrics"
	"github.com/sprintdeck/sprintdeck-go/internal/observability/statsd"
	"github.com/sprintdeck/sprintdeck-go/internal/ports"
)

const defaultInitDeadline = 3 * time.Second

// SessionServiceOptions groups dependencies for SessionService.
type SessionServiceOptions struct {
	API       ports.AuthAPI
	Tokens    ports.TokenStore
	Navigator ports.Navigator // optional; called on monitor-forced logout

	// InitDeadline bounds how long initialization may wait for the
	// current-user fetch before committing to unauthenticated.
	InitDeadline time.Duration

	// MonitorInterval is how often an active session is revalidated.
	MonitorInterval time.Duration

	Logger  *slog.Logger
	Metrics statsd.Sink
}

// SessionService is the authoritative session state machine. It owns the
// initialization race between the current-user fetch and a deadline timer,
// exposes login and logout operations, and broadcasts every state transition
// to subscribers in order.
//
// All mutations go through a single mutex so no observer ever sees a
// half-updated state; a second notify mutex keeps broadcast order equal to
// transition order.
type SessionService struct {
	api     ports.AuthAPI
	tokens  ports.TokenStore
	nav     ports.Navigator
	logger  *slog.Logger
	metrics statsd.Sink

	initDeadline    time.Duration
	monitorInterval time.Duration

	mu    sync.Mutex
	state domainsession.State

	subs    map[uint64]func(domainsession.State)
	nextSub uint64

	// notifyMu serializes subscriber callbacks so snapshots arrive in the
	// same relative order as transitions. Always acquired while holding mu,
	// released after mu.
	notifyMu sync.Mutex

	// generation increases once per initialization cycle. A cycle's fetch
	// and deadline branches may only resolve while initGen still matches;
	// anything arriving later is stale and discarded.
	generation uint64
	initGen    uint64
	initTimer  *time.Timer
	initStart  time.Time

	// monitorGen increases whenever a monitor is started or stopped. An
	// OnInvalid callback from an older monitor is stale and ignored.
	monitorGen    uint64
	monitorCancel context.CancelFunc
	monitorDone   chan struct{}

	settled     chan struct{}
	settledOnce sync.Once

	closed bool
}

// NewSessionService constructs a new SessionService in the initializing state.
func NewSessionService(opts SessionServiceOptions) (*SessionService, error) {
	if opts.API == nil {
		return nil, errors.New("auth API is required")
	}
	if opts.Tokens == nil {
		return nil, errors.New("token store is required")
	}
	if opts.InitDeadline <= 0 {
		opts.InitDeadline = defaultInitDeadline
	}
	if opts.MonitorInterval <= 0 {
		opts.MonitorInterval = defaultMonitorInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &SessionService{
		api:             opts.API,
		tokens:          opts.Tokens,
		nav:             opts.Navigator,
		logger:          opts.Logger,
		metrics:         opts.Metrics,
		initDeadline:    opts.InitDeadline,
		monitorInterval: opts.MonitorInterval,
		state:           domainsession.Initial(),
		subs:            make(map[uint64]func(domainsession.State)),
		settled:         make(chan struct{}),
	}, nil
}

// Snapshot returns a deep copy of the current state.
func (s *SessionService) Snapshot() domainsession.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Settled returns a channel that is closed once the session has left the
// initializing state for the first time.
func (s *SessionService) Settled() <-chan struct{} {
	return s.settled
}

// Subscribe registers fn to receive every subsequent state transition, after
// first delivering the current state synchronously. The returned function
// removes the subscription. Callbacks run on the transitioning goroutine and
// must not call back into the service synchronously.
func (s *SessionService) Subscribe(fn func(domainsession.State)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	snap := s.state.Clone()
	s.notifyMu.Lock()
	s.mu.Unlock()

	fn(snap)
	s.notifyMu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Initialize resolves the initial session state exactly once.
//
// With no stored token it commits unauthenticated immediately and makes no
// network call. With a token it races the current-user fetch against the
// deadline timer; whichever settles first decides the state, and the loser
// is discarded via the generation guard. The fetch keeps running in the
// background after the deadline branch commits, but its result is dropped.
func (s *SessionService) Initialize(ctx context.Context) {
	s.mu.Lock()
	if s.closed || s.initGen != 0 || s.state.Status != domainsession.StatusInitializing {
		s.mu.Unlock()
		return
	}
	s.generation++
	gen := s.generation
	s.initGen = gen
	s.initStart = time.Now()
	s.mu.Unlock()

	_, err := s.tokens.Get(ctx)
	if err != nil {
		if !errors.Is(err, ports.ErrTokenNotFound) {
			s.logger.WarnContext(ctx, "read stored token failed", "error", err)
		}
		s.resolveInit(ctx, gen, initOutcome{trigger: "init_no_token"})
		return
	}

	timer := time.AfterFunc(s.initDeadline, func() {
		s.resolveInit(context.Background(), gen, initOutcome{
			trigger:    "init_deadline",
			clearToken: true,
		})
	})

	s.mu.Lock()
	if s.initGen == gen && !s.closed {
		s.initTimer = timer
	} else {
		timer.Stop()
	}
	s.mu.Unlock()

	go s.initFetch(ctx, gen)
}

// initOutcome describes one resolved branch of the initialization race.
type initOutcome struct {
	user       *domainsession.User // non-nil means authenticated
	trigger    string
	clearToken bool
	err        error
}

func (s *SessionService) initFetch(ctx context.Context, gen uint64) {
	user, err := s.api.CurrentUser(ctx)
	if err != nil {
		// Startup never surfaces raw errors: every failure kind folds into
		// unauthenticated with the token cleared. This includes timeouts and
		// network failures, where the token might still be valid; an
		// unreachable auth server reads as logged out.
		s.resolveInit(ctx, gen, initOutcome{
			trigger:    "init_fetch_failed",
			clearToken: true,
			err:        err,
		})
		return
	}

	s.resolveInit(ctx, gen, initOutcome{user: user, trigger: "init_fetch"})
}

// resolveInit commits one branch of the initialization race. Only the first
// branch of the active generation wins; later arrivals are no-ops.
func (s *SessionService) resolveInit(ctx context.Context, gen uint64, out initOutcome) {
	s.mu.Lock()
	if s.closed || s.initGen != gen {
		s.mu.Unlock()
		return
	}
	s.initGen = 0
	if s.initTimer != nil {
		s.initTimer.Stop()
		s.initTimer = nil
	}
	elapsed := time.Since(s.initStart)

	// Cleared while mu is held and the generation check has passed. Once a
	// later login commits, this branch is stale and can no longer wipe the
	// token that login just persisted.
	if out.clearToken {
		if err := s.tokens.Clear(ctx); err != nil {
			s.logger.WarnContext(ctx, "clear token failed", "error", err)
		}
	}

	status := domainsession.StatusUnauthenticated
	if out.user != nil {
		status = domainsession.StatusAuthenticated
	}
	s.commitLocked(ctx, domainsession.State{Status: status, User: out.user, Loading: false}, commitInfo{
		trigger:  out.trigger,
		duration: elapsed,
		err:      out.err,
	})
}

// Login authenticates with an email address (legacy path). Errors are not
// swallowed: they propagate so the UI can render the specific message.
func (s *SessionService) Login(ctx context.Context, email, password string) error {
	return s.runLogin(ctx, "login", false, func(ctx context.Context) (domainsession.LoginResult, error) {
		return s.api.Login(ctx, email, password)
	})
}

// LoginUnified authenticates with an email address or username (preferred).
// Any stale token is cleared before the attempt so the server cannot treat a
// half-expired token as implicit context.
func (s *SessionService) LoginUnified(ctx context.Context, identifier, password string) error {
	return s.runLogin(ctx, "login_unified", true, func(ctx context.Context) (domainsession.LoginResult, error) {
		return s.api.LoginUnified(ctx, identifier, password)
	})
}

func (s *SessionService) runLogin(
	ctx context.Context,
	trigger string,
	clearStale bool,
	call func(context.Context) (domainsession.LoginResult, error),
) error {
	s.beginLogin(ctx, trigger)

	if clearStale {
		if err := s.tokens.Clear(ctx); err != nil {
			s.logger.WarnContext(ctx, "clear stale token failed", "error", err)
		}
	}

	result, err := call(ctx)
	if err != nil {
		s.failLogin(ctx, trigger, err)
		return err
	}

	// Hydrate the full user; fall back to the user embedded in the login
	// response when the follow-up fetch fails.
	user, userErr := s.api.CurrentUser(ctx)
	if userErr != nil {
		if result.User == nil {
			s.failLogin(ctx, trigger, userErr)
			return userErr
		}
		s.logger.DebugContext(ctx, "current user fetch after login failed, using embedded user", "error", userErr)
		user = result.User
	}

	s.transition(ctx, domainsession.State{
		Status:  domainsession.StatusAuthenticated,
		User:    user,
		Loading: false,
	}, commitInfo{trigger: trigger})
	return nil
}

func (s *SessionService) failLogin(ctx context.Context, trigger string, cause error) {
	if err := s.tokens.Clear(ctx); err != nil {
		s.logger.WarnContext(ctx, "clear token after failed login", "error", err)
	}
	s.transition(ctx, domainsession.State{
		Status:  domainsession.StatusUnauthenticated,
		User:    nil,
		Loading: false,
	}, commitInfo{trigger: trigger, err: cause})
}

// Logout ends the session. It is idempotent, never fails, and always
// succeeds locally: the server notification is best effort and the token is
// cleared regardless.
func (s *SessionService) Logout(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.stopMonitorLocked()
	s.mu.Unlock()

	if err := s.api.Logout(ctx); err != nil {
		s.logger.DebugContext(ctx, "server logout failed", "error", err)
	}
	if err := s.tokens.Clear(ctx); err != nil {
		s.logger.WarnContext(ctx, "clear token on logout failed", "error", err)
	}

	s.transition(ctx, domainsession.State{
		Status:  domainsession.StatusUnauthenticated,
		User:    nil,
		Loading: false,
	}, commitInfo{trigger: "logout"})
}

// Close stops the deadline timer and monitor so no timers leak past
// teardown. An in-flight current-user fetch is not cancelled; its result is
// discarded by the generation guard.
func (s *SessionService) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.initGen = 0
	if s.initTimer != nil {
		s.initTimer.Stop()
		s.initTimer = nil
	}
	cancel := s.monitorCancel
	done := s.monitorDone
	s.monitorCancel = nil
	s.monitorDone = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// commitInfo carries transition metadata for logging and metrics.
type commitInfo struct {
	trigger  string
	duration time.Duration
	err      error
}

// beginLogin flips on the loading flag and supersedes any pending
// initialization cycle, so a still-racing deadline or fetch cannot clear the
// token this login is about to persist.
func (s *SessionService) beginLogin(ctx context.Context, trigger string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.initGen = 0
	if s.initTimer != nil {
		s.initTimer.Stop()
		s.initTimer = nil
	}
	next := s.state.Clone()
	next.Loading = true
	s.commitLocked(ctx, next, commitInfo{trigger: trigger})
}

// transition commits a full target state, superseding any unresolved
// initialization cycle.
func (s *SessionService) transition(ctx context.Context, next domainsession.State, info commitInfo) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	// A committed login/logout is more authoritative than a pending
	// initialization; invalidate the cycle so its branches become stale.
	s.initGen = 0
	if s.initTimer != nil {
		s.initTimer.Stop()
		s.initTimer = nil
	}
	s.commitLocked(ctx, next, info)
}

// commitLocked applies the new state, manages the monitor lifecycle, and
// broadcasts to subscribers. Called with mu held; releases it.
func (s *SessionService) commitLocked(ctx context.Context, next domainsession.State, info commitInfo) {
	from := s.state.Status
	changed := s.state.Status != next.Status ||
		s.state.Loading != next.Loading ||
		!sameUser(s.state.User, next.User)

	s.state = next

	switch next.Status {
	case domainsession.StatusAuthenticated:
		s.startMonitorLocked()
	case domainsession.StatusUnauthenticated:
		s.stopMonitorLocked()
	case domainsession.StatusInitializing:
		// unreachable after construction
	}

	if next.Status != domainsession.StatusInitializing {
		s.settledOnce.Do(func() { close(s.settled) })
	}

	if !changed {
		s.mu.Unlock()
		return
	}

	snap := s.state.Clone()
	subs := s.orderedSubsLocked()
	s.notifyMu.Lock()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
	s.notifyMu.Unlock()

	s.logger.DebugContext(ctx, "session transition",
		"from", from,
		"to", next.Status,
		"trigger", info.trigger,
		"loading", next.Loading,
		"error", info.err)
	metrics.EmitSessionTransition(s.metrics, metrics.SessionTransition{
		From:     string(from),
		To:       string(next.Status),
		Trigger:  info.trigger,
		Duration: info.duration,
		Err:      info.err,
	})
}

// orderedSubsLocked returns subscriber callbacks in subscription order.
func (s *SessionService) orderedSubsLocked() []func(domainsession.State) {
	ids := make([]uint64, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]func(domainsession.State), len(ids))
	for i, id := range ids {
		out[i] = s.subs[id]
	}
	return out
}

// startMonitorLocked starts a fresh monitor, cancelling any previous one so
// at most one runs at a time. Called with mu held.
func (s *SessionService) startMonitorLocked() {
	s.stopMonitorLocked()
	gen := s.monitorGen

	mon, err := NewMonitor(MonitorOptions{
		API:       s.api,
		Interval:  s.monitorInterval,
		Logger:    s.logger,
		Metrics:   s.metrics,
		OnInvalid: func() { s.handleInvalidToken(gen) },
	})
	if err != nil {
		s.logger.Error("construct session monitor failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.monitorCancel = cancel
	s.monitorDone = done

	go func() {
		defer close(done)
		if runErr := mon.Run(ctx); runErr != nil {
			s.logger.Error("session monitor stopped", "error", runErr)
		}
	}()
}

// stopMonitorLocked cancels the active monitor, if any. Called with mu held;
// does not wait for the monitor goroutine to exit.
func (s *SessionService) stopMonitorLocked() {
	s.monitorGen++
	if s.monitorCancel != nil {
		s.monitorCancel()
		s.monitorCancel = nil
		s.monitorDone = nil
	}
}

// handleInvalidToken runs on the monitor goroutine when revalidation fails.
// A callback from a monitor that has since been stopped or replaced is
// ignored; it was guarding a session that no longer exists. Otherwise the
// session ends exactly as an explicit logout would, then the hosting shell
// is told to navigate to the login entry point.
func (s *SessionService) handleInvalidToken(gen uint64) {
	s.mu.Lock()
	if s.closed || s.monitorGen != gen {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.Logout(context.Background())
	if s.nav != nil {
		s.nav.NavigateToLogin()
	}
}

func sameUser(a, b *domainsession.User) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID && a.Email == b.Email && a.Username == b.Username
}
