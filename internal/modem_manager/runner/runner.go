// Package runner owns the goroutine that drives a sm5100b.Session: it polls
// the transport, turns silence into ticks and maps a finished request cycle
// into a Result or an error.
package runner

import (
	"context"
	"net/netip"
	"time"

	"github.com/LeoCommon/gprsclient/internal/modem_manager/modem/sm5100b"
	"github.com/LeoCommon/gprsclient/pkg/log"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultIdleDelay is the pause after a poll that returned nothing
	DefaultIdleDelay = 10 * time.Millisecond
	// DefaultWatchdogInterval limits how often the watchdog is entertained
	DefaultWatchdogInterval = 10 * time.Second
)

// Session is the part of sm5100b.Session the runner drives
type Session interface {
	BeginRequest(host, path string) sm5100b.ErrorKind
	ReadyForCommands() bool
	LastError() sm5100b.ErrorKind
	ResolvedAddress() [4]byte
	Poll() bool
	Kill()
	Restart()
}

// Resetter power cycles the modem
type Resetter interface {
	Reset() error
}

// Watchdog is entertained while the runner is alive
type Watchdog func() error

type Result struct {
	ID       uuid.UUID
	Host     string
	Path     string
	Address  netip.Addr
	Duration time.Duration
}

type Runner struct {
	session  Session
	resetter Resetter
	watchdog Watchdog

	idleDelay        time.Duration
	watchdogInterval time.Duration
	lastWatchdog     time.Time
}

type Option func(r *Runner)

// WithResetter resets the modem whenever a request cycle times out
func WithResetter(resetter Resetter) Option {
	return func(r *Runner) {
		r.resetter = resetter
	}
}

func WithWatchdog(watchdog Watchdog) Option {
	return func(r *Runner) {
		r.watchdog = watchdog
	}
}

func WithIdleDelay(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.idleDelay = d
		}
	}
}

func WithWatchdogInterval(d time.Duration) Option {
	return func(r *Runner) {
		r.watchdogInterval = d
	}
}

func New(session Session, options ...Option) *Runner {
	r := &Runner{
		session:          session,
		idleDelay:        DefaultIdleDelay,
		watchdogInterval: DefaultWatchdogInterval,
	}

	for _, option := range options {
		option(r)
	}
	return r
}

// WaitReady drives the session until the module bring-up finished and returns its outcome
func (r *Runner) WaitReady(ctx context.Context) error {
	if err := r.drive(ctx); err != nil {
		return err
	}

	kind := r.session.LastError()
	if kind != sm5100b.NoError {
		log.Error("modem bring-up failed", zap.Stringer("error", kind))
		r.handleTimeout(kind)
	}
	return kind.Err()
}

// Do resolves host and requests path, it blocks until the request cycle ended
func (r *Runner) Do(ctx context.Context, host, path string) (Result, error) {
	result := Result{ID: uuid.New(), Host: host, Path: path}
	logger := log.Logger().With(
		zap.String("request_id", result.ID.String()),
		zap.String("host", host),
		zap.String("path", path),
	)
	started := time.Now()

	kind := r.session.BeginRequest(host, path)
	if kind == sm5100b.ErrPrerequisitesNotReady {
		logger.Info("modem still coming up, waiting")
		if err := r.WaitReady(ctx); err != nil {
			return result, err
		}
		kind = r.session.BeginRequest(host, path)
	}
	if kind != sm5100b.NoError {
		logger.Error("request rejected", zap.Stringer("error", kind))
		return result, kind
	}

	logger.Debug("request started")
	if err := r.drive(ctx); err != nil {
		logger.Warn("request aborted", zap.Error(err))
		return result, err
	}
	result.Duration = time.Since(started)

	kind = r.session.LastError()
	if kind != sm5100b.NoError {
		logger.Error("request failed", zap.Stringer("error", kind), zap.Duration("after", result.Duration))
		r.handleTimeout(kind)
		return result, kind
	}

	result.Address = netip.AddrFrom4(r.session.ResolvedAddress())
	logger.Info("request completed", zap.Stringer("address", result.Address), zap.Duration("after", result.Duration))
	return result, nil
}

// drive polls the session until it is ready for commands, a cancelled
// context kills whatever is in flight
func (r *Runner) drive(ctx context.Context) error {
	idle := time.NewTimer(r.idleDelay)
	defer idle.Stop()

	for !r.session.ReadyForCommands() {
		if err := ctx.Err(); err != nil {
			r.session.Kill()
			return err
		}

		r.entertainWatchdog()
		if r.session.Poll() {
			continue
		}

		idle.Reset(r.idleDelay)
		select {
		case <-ctx.Done():
			r.session.Kill()
			return ctx.Err()
		case <-idle.C:
		}
	}

	return nil
}

func (r *Runner) entertainWatchdog() {
	if r.watchdog == nil || time.Since(r.lastWatchdog) < r.watchdogInterval {
		return
	}
	r.lastWatchdog = time.Now()

	if err := r.watchdog(); err != nil {
		log.Debug("watchdog not entertained", zap.Error(err))
	}
}

func (r *Runner) handleTimeout(kind sm5100b.ErrorKind) {
	if kind != sm5100b.ErrTimeout || r.resetter == nil {
		return
	}

	log.Warn("modem did not answer in time, resetting it")
	if err := r.resetter.Reset(); err != nil {
		log.Error("modem reset failed", zap.Error(err))
		return
	}
	r.session.Restart()
}
