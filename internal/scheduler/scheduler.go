// Package scheduler triggers push and pull runs on demand and periodically.
//
// Overlapping triggers of the same kind collapse into the running execution, runs are
// only attempted while the remote store is reachable, and a failed run is retried with
// exponential backoff.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/allisson/ledgersync/internal/errors"
	outboxUsecase "github.com/allisson/ledgersync/internal/outbox/usecase"
	reconcileUsecase "github.com/allisson/ledgersync/internal/reconcile/usecase"
)

// ErrOffline indicates a run was skipped because the remote store is unreachable.
var ErrOffline = apperrors.Wrap(apperrors.ErrUnavailable, "remote store offline")

// Kind identifies a sync job.
type Kind string

// Sync job kinds.
const (
	KindPush Kind = "push"
	KindPull Kind = "pull"
)

// ParseKind converts a string into a Kind.
func ParseKind(value string) (Kind, error) {
	switch Kind(value) {
	case KindPush, KindPull:
		return Kind(value), nil
	}
	return "", apperrors.Wrapf(apperrors.ErrInvalidInput, "unknown sync kind %q", value)
}

// Pusher drains the outbox.
type Pusher interface {
	Push(ctx context.Context) (outboxUsecase.PushResult, error)
}

// Puller reconciles the local store from the remote store.
type Puller interface {
	Pull(ctx context.Context) (reconcileUsecase.PullResult, error)
}

// Connectivity reports whether the remote store can be reached.
type Connectivity interface {
	Online(ctx context.Context) bool
}

// Maintainer performs outbox housekeeping.
type Maintainer interface {
	ResetStale(ctx context.Context) (int, error)
	CleanupDone(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Config holds the scheduling configuration.
type Config struct {
	PushSchedule    string
	PullSchedule    string
	CleanupSchedule string
	DoneRetention   time.Duration
	BackoffInitial  time.Duration
	BackoffMax      time.Duration
}

// Result is the outcome of a single run. Exactly one of Push and Pull is set.
type Result struct {
	Kind Kind                         `json:"kind"`
	Push *outboxUsecase.PushResult    `json:"push,omitempty"`
	Pull *reconcileUsecase.PullResult `json:"pull,omitempty"`
}

// Scheduler coordinates push and pull runs.
type Scheduler struct {
	config       Config
	pusher       Pusher
	puller       Puller
	connectivity Connectivity
	maintainer   Maintainer
	logger       *slog.Logger

	group singleflight.Group

	mu       sync.Mutex
	runCtx   context.Context
	backoffs map[Kind]*backoff.ExponentialBackOff
	retries  map[Kind]*time.Timer
	wg       sync.WaitGroup
}

// New creates a Scheduler.
func New(
	config Config,
	pusher Pusher,
	puller Puller,
	connectivity Connectivity,
	maintainer Maintainer,
	logger *slog.Logger,
) *Scheduler {
	if config.CleanupSchedule == "" {
		config.CleanupSchedule = "@daily"
	}
	return &Scheduler{
		config:       config,
		pusher:       pusher,
		puller:       puller,
		connectivity: connectivity,
		maintainer:   maintainer,
		logger:       logger,
		backoffs:     make(map[Kind]*backoff.ExponentialBackOff),
		retries:      make(map[Kind]*time.Timer),
	}
}

// Trigger runs a job of the given kind now. When a run of the same kind is already in
// flight the caller waits for it and receives its result instead of starting another.
// A caller that gives up returns its own context error; the run keeps going for the
// other waiters and stops only when the scheduler does.
func (s *Scheduler) Trigger(ctx context.Context, kind Kind) (Result, error) {
	ch := s.group.DoChan(string(kind), func() (any, error) {
		runCtx, cancel := s.detach(ctx)
		defer cancel()
		return s.run(runCtx, kind)
	})

	select {
	case res := <-ch:
		if res.Shared {
			s.logger.Debug("sync trigger joined running execution", slog.String("kind", string(kind)))
		}
		result, _ := res.Val.(Result)
		return result, res.Err
	case <-ctx.Done():
		return Result{Kind: kind}, ctx.Err()
	}
}

// detach strips the caller's cancellation from ctx and bounds it by the context Run was
// started with, when Run is active.
func (s *Scheduler) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	s.mu.Lock()
	base := s.runCtx
	s.mu.Unlock()
	if base == nil {
		return runCtx, cancel
	}

	stop := context.AfterFunc(base, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (s *Scheduler) run(ctx context.Context, kind Kind) (Result, error) {
	result := Result{Kind: kind}

	if !s.connectivity.Online(ctx) {
		s.logger.Info("skipping sync run, remote store offline", slog.String("kind", string(kind)))
		return result, ErrOffline
	}

	var err error
	switch kind {
	case KindPush:
		var push outboxUsecase.PushResult
		push, err = s.pusher.Push(ctx)
		result.Push = &push
	case KindPull:
		var pull reconcileUsecase.PullResult
		pull, err = s.puller.Pull(ctx)
		result.Pull = &pull
	default:
		return result, apperrors.Wrapf(apperrors.ErrInvalidInput, "unknown sync kind %q", kind)
	}

	switch {
	case err == nil:
		s.resetBackoff(kind)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// cancelled runs are not retried
	default:
		s.logger.Error("sync run failed", slog.String("kind", string(kind)), slog.Any("error", err))
		s.scheduleRetry(kind)
	}

	return result, err
}

// Run performs the startup sweep, registers the periodic jobs and blocks until ctx is
// cancelled. It waits for running jobs before returning.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("starting sync scheduler",
		slog.String("push_schedule", s.config.PushSchedule),
		slog.String("pull_schedule", s.config.PullSchedule),
	)

	reset, err := s.maintainer.ResetStale(ctx)
	if err != nil {
		return fmt.Errorf("failed to reset stale outbox entries: %w", err)
	}
	if reset > 0 {
		s.logger.Warn("requeued orphaned in-progress outbox entries", slog.Int("count", reset))
	}

	c := cron.New(cron.WithLogger(newCronLogger(s.logger)))

	jobs := []struct {
		name string
		spec string
		fn   func()
	}{
		{"push", s.config.PushSchedule, func() { s.runScheduled(ctx, KindPush) }},
		{"pull", s.config.PullSchedule, func() { s.runScheduled(ctx, KindPull) }},
		{"cleanup", s.config.CleanupSchedule, func() { s.cleanup(ctx) }},
	}
	for _, job := range jobs {
		if job.spec == "" {
			continue
		}
		if _, err := c.AddFunc(job.spec, job.fn); err != nil {
			return fmt.Errorf("invalid %s schedule %q: %w", job.name, job.spec, err)
		}
	}

	s.mu.Lock()
	s.runCtx = ctx
	s.mu.Unlock()

	c.Start()
	<-ctx.Done()

	s.logger.Info("stopping sync scheduler")
	<-c.Stop().Done()

	s.mu.Lock()
	s.runCtx = nil
	for kind, timer := range s.retries {
		if timer.Stop() {
			s.wg.Done()
		}
		delete(s.retries, kind)
	}
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

func (s *Scheduler) runScheduled(ctx context.Context, kind Kind) {
	if _, err := s.Trigger(ctx, kind); err != nil && !errors.Is(err, ErrOffline) {
		s.logger.Debug("scheduled sync run did not complete", slog.String("kind", string(kind)), slog.Any("error", err))
	}
}

func (s *Scheduler) cleanup(ctx context.Context) {
	if s.config.DoneRetention <= 0 {
		return
	}
	deleted, err := s.maintainer.CleanupDone(ctx, s.config.DoneRetention)
	if err != nil {
		s.logger.Error("failed to clean up done outbox entries", slog.Any("error", err))
		return
	}
	if deleted > 0 {
		s.logger.Info("cleaned up done outbox entries", slog.Int64("count", deleted))
	}
}

// scheduleRetry arms a one-shot retry for kind. Retries are only armed while Run is active.
func (s *Scheduler) scheduleRetry(kind Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runCtx == nil || s.runCtx.Err() != nil {
		return
	}
	if _, pending := s.retries[kind]; pending {
		return
	}

	b, ok := s.backoffs[kind]
	if !ok {
		b = backoff.NewExponentialBackOff()
		if s.config.BackoffInitial > 0 {
			b.InitialInterval = s.config.BackoffInitial
		}
		if s.config.BackoffMax > 0 {
			b.MaxInterval = s.config.BackoffMax
		}
		b.MaxElapsedTime = 0
		b.Reset()
		s.backoffs[kind] = b
	}

	delay := b.NextBackOff()
	ctx := s.runCtx
	s.logger.Info("sync retry scheduled", slog.String("kind", string(kind)), slog.Duration("delay", delay))

	s.wg.Add(1)
	s.retries[kind] = time.AfterFunc(delay, func() {
		defer s.wg.Done()

		s.mu.Lock()
		delete(s.retries, kind)
		s.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		s.runScheduled(ctx, kind)
	})
}

func (s *Scheduler) resetBackoff(kind Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.backoffs[kind]; ok {
		b.Reset()
	}
	if timer, ok := s.retries[kind]; ok && timer.Stop() {
		delete(s.retries, kind)
		s.wg.Done()
	}
}
