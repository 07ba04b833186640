// Package scheduler is the scheduler loop: a single-threaded cooperative
// loop that drains the task queue, dispatches
// each task by kind, arms a timer for the next wake, and runs a periodic
// "find updates" sweep.
//
// golang.org/x/sync/errgroup fans out the sweep's per-entity staleness
// checks so one slow check never blocks the rest.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jellywatch/core/internal/activity"
	"github.com/jellywatch/core/internal/catalog"
	"github.com/jellywatch/core/internal/id"
	"github.com/jellywatch/core/internal/ingest"
	"github.com/jellywatch/core/internal/ledger"
	"github.com/jellywatch/core/internal/logging"
	"github.com/jellywatch/core/internal/persist"
	"github.com/jellywatch/core/internal/queue"
	"github.com/jellywatch/core/internal/status"
	"github.com/jellywatch/core/internal/store"
)

const (
	sweepInterval  = 60 * time.Second
	saveDebounce   = 5 * time.Second
	staleThreshold = 12 * time.Hour
)

// Scheduler owns the task queue, store, catalog, and persistence driver
// and runs the drain/dispatch/sleep loop.
type Scheduler struct {
	q      *queue.Queue
	st     *store.Store
	ledger *ledger.Ledger
	rec    *ingest.Reconciler
	cat    catalog.Catalog
	driver *persist.Driver
	errs   *status.Ring
	logger *logging.Logger

	// act, when set, journals every dispatched task to the durable
	// activity log alongside the in-memory ring.
	act *activity.Logger

	mu       sync.Mutex
	lastSave time.Time

	// anchor is the cached "now" the schedule window is computed against:
	// captured at construction and advanced only by the 60-second sweep,
	// not per call.
	anchor time.Time
}

// New builds a Scheduler wiring together the queue, store, catalog, and
// persistence driver. l must be the same ledger st was constructed with
// (store.New(l)), since the store does not expose its ledger directly.
func New(q *queue.Queue, st *store.Store, l *ledger.Ledger, cat catalog.Catalog, driver *persist.Driver, errs *status.Ring, logger *logging.Logger) *Scheduler {
	return &Scheduler{
		q:      q,
		st:     st,
		ledger: l,
		rec:    ingest.New(cat, st),
		cat:    cat,
		driver: driver,
		errs:   errs,
		logger: logger,
		anchor: time.Now(),
	}
}

// SetActivityLog attaches the durable activity journal; nil leaves task
// dispatch unjournaled (tests, read-only tools).
func (s *Scheduler) SetActivityLog(act *activity.Logger) {
	s.act = act
}

// Now returns the cached schedule anchor, refreshed once per sweep tick
// rather than per call.
func (s *Scheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.anchor
}

// Run blocks, executing the drain/dispatch/sleep loop until ctx is
// cancelled. A sweep ticker fires independently every 60 seconds.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler", "loop starting")

	sweep := time.NewTicker(sweepInterval)
	defer sweep.Stop()

	save := time.NewTicker(saveDebounce)
	defer save.Stop()

	var timer *time.Timer
	var timerTaskID id.TaskID
	armTimer := func() {
		delay, taskID, ok := s.q.NextSleep(time.Now())
		if !ok {
			timer = nil
			return
		}
		if timer != nil {
			timer.Stop()
		}
		timer = time.NewTimer(delay)
		timerTaskID = taskID
	}

	s.drainReady(ctx, nil)
	armTimer()

	for {
		var timerC <-chan time.Time
		if timer != nil {
			timerC = timer.C
		}

		select {
		case <-ctx.Done():
			s.maybeSave()
			s.logger.Info("scheduler", "loop stopped")
			return nil
		case <-timerC:
			woken := timerTaskID
			s.drainReady(ctx, &woken)
			armTimer()
		case <-sweep.C:
			s.runSweep(ctx)
			armTimer()
		case <-save.C:
			s.maybeSave()
		}
	}
}

// drainReady pops and dispatches every ready task.
func (s *Scheduler) drainReady(ctx context.Context, timedOutID *id.TaskID) {
	for {
		task, ok := s.q.NextTask(time.Now(), timedOutID)
		if !ok {
			return
		}
		timedOutID = nil
		s.dispatch(ctx, task)
	}
}

func (s *Scheduler) dispatch(ctx context.Context, task queue.Task) {
	defer func() {
		if r := recover(); r != nil {
			s.errs.RecordError(status.KindIO, task.ID.String(), "task dispatch panicked", fmt.Errorf("%v", r))
		}
	}()

	started := time.Now()

	var dispatchErr error
	switch task.Kind.Kind {
	case queue.KindCheckForUpdates:
		dispatchErr = s.dispatchCheckForUpdates(ctx, task)
	case queue.KindDownloadSeries, queue.KindDownloadSeriesByRemote:
		dispatchErr = s.dispatchDownloadSeries(ctx, task)
	case queue.KindDownloadMovie, queue.KindDownloadMovieByRemote:
		dispatchErr = s.dispatchDownloadMovie(ctx, task)
	}

	if dispatchErr != nil {
		s.errs.RecordError(status.KindRemote, task.ID.String(), "task dispatch failed", dispatchErr)
	}
	s.q.Complete(time.Now(), task)
	s.journal(task, started, dispatchErr)
}

// journal records one dispatched task into the durable activity log.
func (s *Scheduler) journal(task queue.Task, started time.Time, dispatchErr error) {
	if s.act == nil {
		return
	}
	entry := activity.Entry{
		Action:     taskAction(task.Kind.Kind),
		TaskID:     task.ID.String(),
		Remote:     task.Kind.Remote.Display(),
		Success:    dispatchErr == nil,
		DurationMs: time.Since(started).Milliseconds(),
	}
	if dispatchErr != nil {
		entry.Error = dispatchErr.Error()
	}
	if err := s.act.Log(entry); err != nil {
		s.logger.Warn("scheduler", "activity journal write failed", logging.F("error", err.Error()))
	}
}

func taskAction(k queue.Kind) string {
	switch k {
	case queue.KindCheckForUpdates:
		return "check_for_updates"
	case queue.KindDownloadSeries:
		return "download_series"
	case queue.KindDownloadMovie:
		return "download_movie"
	case queue.KindDownloadSeriesByRemote:
		return "download_series_by_remote"
	case queue.KindDownloadMovieByRemote:
		return "download_movie_by_remote"
	default:
		return "unknown"
	}
}

// dispatchCheckForUpdates issues the HEAD-equivalent and, if the remote has
// moved, schedules a non-forced DownloadSeries.
func (s *Scheduler) dispatchCheckForUpdates(ctx context.Context, task queue.Task) error {
	remote := task.Kind.Remote
	modified, err := s.cat.SeriesLastModified(ctx, remote)
	if err != nil {
		return err
	}

	// Even a "no change" answer counts as a successful sync.
	now := time.Now()
	sync, _ := s.st.GetSyncState(remote)
	sync.LastSyncTime = &now
	s.st.SetSyncState(remote, sync)

	if modified == nil {
		return nil
	}

	known := sync.LastModified
	if known == nil {
		known = task.Kind.LastModified
	}
	if known != nil && !modified.After(*known) {
		return nil
	}

	s.q.PushWithoutDelay(queue.DownloadSeries(task.Kind.Series, remote, modified, false))
	return nil
}

// dispatchDownloadSeries resolves the series (explicit id for
// DownloadSeries, remote-only for DownloadSeriesByRemote) and ingests it.
// A non-forced DownloadSeriesByRemote whose remote already names a local
// series marks that series tracked instead of ingesting.
func (s *Scheduler) dispatchDownloadSeries(ctx context.Context, task queue.Task) error {
	remote := task.Kind.Remote
	if task.Kind.Kind == queue.KindDownloadSeriesByRemote && !task.Kind.Force {
		if ref, ok := s.st.RemoteIndex().Lookup(remote); ok && ref.Kind == store.LocalSeries {
			s.st.Track(ref.SeriesID)
			return nil
		}
	}
	_, err := s.rec.IngestSeries(ctx, remote, task.Kind.Series)
	return err
}

func (s *Scheduler) dispatchDownloadMovie(ctx context.Context, task queue.Task) error {
	remote := task.Kind.Remote
	if task.Kind.Kind == queue.KindDownloadMovieByRemote && !task.Kind.Force {
		if ref, ok := s.st.RemoteIndex().Lookup(remote); ok && ref.Kind == store.LocalMovie {
			return nil
		}
	}
	_, err := s.rec.IngestMovie(ctx, remote, task.Kind.Movie)
	return err
}

// runSweep implements the periodic "find updates" sweep: for each
// tracked series and every movie with a canonical remote, if both
// last-sync and last-modified are stale (older than 12 hours), enqueue a
// check/download task. Series and movies are checked concurrently via
// errgroup, bounded by however many are stored; a single slow/erroring
// staleness check never blocks the others.
func (s *Scheduler) runSweep(ctx context.Context) {
	s.mu.Lock()
	s.anchor = time.Now()
	s.mu.Unlock()

	var g errgroup.Group
	_ = ctx

	for _, sr := range s.st.SeriesByName() {
		sr := sr
		if !sr.Tracked || sr.CanonicalRemote == nil {
			continue
		}
		g.Go(func() error {
			if s.isStale(*sr.CanonicalRemote) {
				sync, _ := s.st.GetSyncState(*sr.CanonicalRemote)
				s.q.PushWithDelay(queue.CheckForUpdates(sr.ID, *sr.CanonicalRemote, sync.LastModified), time.Now())
			}
			return nil
		})
	}
	for _, m := range s.st.MoviesByName() {
		m := m
		if m.CanonicalRemote == nil {
			continue
		}
		g.Go(func() error {
			if s.isStale(*m.CanonicalRemote) {
				sync, _ := s.st.GetSyncState(*m.CanonicalRemote)
				s.q.PushWithDelay(queue.DownloadMovie(m.ID, *m.CanonicalRemote, sync.LastModified, false), time.Now())
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Scheduler) isStale(remote id.RemoteID) bool {
	sync, ok := s.st.GetSyncState(remote)
	if !ok {
		return true
	}
	now := time.Now()
	syncStale := sync.LastSyncTime == nil || now.Sub(*sync.LastSyncTime) > staleThreshold
	modStale := sync.LastModified == nil || now.Sub(*sync.LastModified) > staleThreshold
	return syncStale && modStale
}

// maybeSave flushes the store to disk via the persistence driver if the
// ledger has anything dirty, debounced to once per saveDebounce tick.
func (s *Scheduler) maybeSave() {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.ledger.Flush()
	if snap.Empty() {
		return
	}
	if err := s.driver.Save(snap, s.st); err != nil {
		s.ledger.Restore(snap)
		s.errs.RecordError(status.KindIO, "persist", "periodic save failed", err)
		return
	}
	s.lastSave = time.Now()
}
