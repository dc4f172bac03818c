package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/JFreegman/toxstats/internal/core/aggregation"
	"github.com/JFreegman/toxstats/internal/core/storage"
	"github.com/JFreegman/toxstats/internal/metrics"
	"github.com/JFreegman/toxstats/internal/snapshot"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
)

var (
	// ErrOutOfOrder is returned when the backlog is not strictly ascending by timestamp.
	ErrOutOfOrder = errors.New("snapshot out of chronological order")
	// ErrRunInProgress is returned when Run is called while another run is active.
	ErrRunInProgress = errors.New("ingestion run already in progress")
)

// Source lists and reads snapshots.
type Source interface {
	ListSince(ctx context.Context, ts int64) ([]snapshot.Snapshot, error)
	Read(ctx context.Context, snap snapshot.Snapshot) (snapshot.IdentifierSet, error)
	Fs() afero.Fs
}

// Locker guards a snapshot root against concurrent ingesters.
type Locker interface {
	Acquire(ctx context.Context) error
	Release() error
}

type Options struct {
	TickMinutes int
	// MinActivity is the identifier count below which a snapshot is noise.
	MinActivity int
	// Cleanup enables compaction: one file per tick is kept and marked files are deleted.
	Cleanup bool
}

func (o Options) normalized() Options {
	n := o
	if n.TickMinutes <= 0 {
		n.TickMinutes = aggregation.DefaultTickMinutes
	}
	if n.MinActivity < 0 {
		n.MinActivity = 0
	}
	return n
}

type Option func(*Service)

func WithMetrics(sink metrics.Sink) Option {
	return func(s *Service) {
		if sink != nil {
			s.sink = sink
		}
	}
}

func WithLocker(l Locker) Option {
	return func(s *Service) { s.locker = l }
}

// Service replays snapshots into the store. Runs never overlap.
type Service struct {
	source Source
	store  storage.Store
	rollup *aggregation.Rollup
	sink   metrics.Sink
	locker Locker
	opts   Options
	nowFn  func() time.Time

	running sync.Mutex

	mu    sync.RWMutex
	state State
	last  *Report
}

func NewService(source Source, store storage.Store, resolver aggregation.Resolver, opts Options, options ...Option) *Service {
	if source == nil {
		panic("ingestion: source must not be nil")
	}
	if store == nil {
		panic("ingestion: store must not be nil")
	}
	s := &Service{
		source: source,
		store:  store,
		rollup: aggregation.NewRollup(resolver),
		sink:   metrics.NewNoopSink(),
		opts:   opts.normalized(),
		nowFn:  time.Now,
		state:  StateIdle,
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// Status is a point-in-time view of the service for the status endpoint.
type Status struct {
	State      State   `json:"state"`
	LastReport *Report `json:"last_report,omitempty"`
}

func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{State: s.state, LastReport: s.last}
}

func (s *Service) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// errSuperseded stops a run whose checkpoint another writer already passed.
var errSuperseded = errors.New("superseded by another writer")

// Run processes every snapshot newer than the durable checkpoint.
func (s *Service) Run(ctx context.Context) (*Report, error) {
	if !s.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.running.Unlock()

	start := s.nowFn()
	report := newReport(uuid.NewString(), start.UTC())
	log := slog.With("run_id", report.RunID)
	s.setState(StateInit)

	err := s.lockAndRun(ctx, log, report)
	if errors.Is(err, errSuperseded) {
		report.Superseded = true
		err = nil
	}
	report.Elapsed = s.nowFn().Sub(start)
	if err != nil {
		report.Error = err.Error()
		log.Error("[Ingest] Run failed", "error", err, "processed", report.Processed)
	}

	s.sink.RunCompleted(report.Elapsed, err)
	s.mu.Lock()
	s.state = StateDone
	s.last = report
	s.mu.Unlock()

	return report, err
}

func (s *Service) lockAndRun(ctx context.Context, log *slog.Logger, report *Report) error {
	if s.locker != nil {
		if err := s.locker.Acquire(ctx); err != nil {
			return fmt.Errorf("lock snapshot root: %w", err)
		}
		defer func() {
			if err := s.locker.Release(); err != nil {
				log.Warn("[Ingest] Failed to release snapshot root lock", "error", err)
			}
		}()
	}
	return s.run(ctx, log, report)
}

// runState is what carries over from one snapshot to the next within a run.
type runState struct {
	checkpoint int64
	previous   aggregation.Period
	compactor  *snapshot.Compactor
}

func (s *Service) run(ctx context.Context, log *slog.Logger, report *Report) error {
	s.setState(StateLoadingCheckpoint)
	checkpoint, ok, err := s.store.LoadCheckpoint(ctx)
	if err != nil {
		return fmt.Errorf("load checkpoint: %w", err)
	}
	if !ok {
		checkpoint = 0
	}
	report.Checkpoint = checkpoint

	snaps, err := s.source.ListSince(ctx, checkpoint)
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}
	report.Listed = len(snaps)

	log.Info("[Ingest] Starting run",
		"checkpoint", checkpoint,
		"backlog", len(snaps),
		"cleanup", s.opts.Cleanup,
		"min_activity", s.opts.MinActivity,
		"tick_minutes", s.opts.TickMinutes)

	if len(snaps) == 0 {
		log.Info("[Ingest] No new snapshots")
		return nil
	}

	s.setState(StateStreaming)
	rs := &runState{checkpoint: checkpoint, compactor: snapshot.NewCompactor()}
	if ok && checkpoint > 0 {
		rs.previous = aggregation.PeriodFor(checkpoint, s.opts.TickMinutes)
	}

	lastTS := checkpoint
	var loopErr error
	for i, snap := range snaps {
		if err := ctx.Err(); err != nil {
			loopErr = err
			break
		}
		if snap.Timestamp <= lastTS {
			loopErr = fmt.Errorf("%w: %s (%d) does not follow %d", ErrOutOfOrder, snap.Path, snap.Timestamp, lastTS)
			break
		}
		lastTS = snap.Timestamp

		current := aggregation.PeriodFor(snap.Timestamp, s.opts.TickMinutes)
		if s.opts.Cleanup && s.redundant(current, rs.previous, snaps, i) {
			rs.compactor.MarkRedundant(snap)
			s.skip(report, metrics.SkipRedundantTick)
			log.Debug("[Ingest] Redundant snapshot for tick", "snapshot", snap.Path, "tick", current)
			continue
		}

		if err := s.apply(ctx, log, report, rs, snap, current); err != nil {
			loopErr = err
			break
		}

		log.Info("[Ingest] Progress",
			"complete", aggregation.Percent(i+1, len(snaps)).String()+"%",
			"count", i+1,
			"total", len(snaps))
	}

	report.Marked = len(rs.compactor.Marked())
	if s.opts.Cleanup && loopErr == nil {
		s.deleteMarked(log, report, rs.compactor)
	}
	report.Checkpoint = rs.checkpoint

	if loopErr != nil {
		return loopErr
	}
	log.Info("[Ingest] Run complete",
		"processed", report.Processed,
		"skipped", report.TotalSkipped(),
		"increments", report.Increments,
		"purged", report.Purged,
		"deleted", report.Deleted,
		"checkpoint", report.Checkpoint)
	return nil
}

// redundant reports whether current shares its tick with the last retained
// snapshot or with the next snapshot in the backlog. The latest file of a tick wins.
func (s *Service) redundant(current, previous aggregation.Period, snaps []snapshot.Snapshot, i int) bool {
	if !previous.IsZero() && current == previous {
		return true
	}
	if i+1 < len(snaps) {
		next := aggregation.PeriodFor(snaps[i+1].Timestamp, s.opts.TickMinutes)
		return next == current
	}
	return false
}

// apply runs one snapshot through a single storage unit.
func (s *Service) apply(ctx context.Context, log *slog.Logger, report *Report, rs *runState, snap snapshot.Snapshot, current aggregation.Period) error {
	unit, err := s.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin unit for %s: %w", snap.Path, err)
	}
	defer unit.Rollback() //nolint:errcheck

	closed, purged, err := aggregation.ClosePeriods(ctx, unit, rs.previous, current)
	if err != nil {
		return fmt.Errorf("close periods before %s: %w", snap.Path, err)
	}
	rs.previous = current

	commitPurges := func(reason string) error {
		if err := unit.Commit(ctx); err != nil {
			return fmt.Errorf("commit purges for %s: %w", snap.Path, err)
		}
		s.purged(report, closed, purged, log)
		s.skip(report, reason)
		return nil
	}

	ids, err := s.source.Read(ctx, snap)
	if err != nil {
		if !errors.Is(err, snapshot.ErrMalformedSnapshot) {
			return fmt.Errorf("read %s: %w", snap.Path, err)
		}
		log.Warn("[Ingest] Skipping malformed snapshot", "snapshot", snap.Path, "error", err)
		return commitPurges(metrics.SkipMalformed)
	}

	if ids.Len() < s.opts.MinActivity {
		log.Info("[Ingest] Snapshot below activity threshold",
			"snapshot", snap.Path,
			"identifiers", ids.Len(),
			"min_activity", s.opts.MinActivity)
		rs.compactor.MarkNoise(snap)
		return commitPurges(metrics.SkipBelowActivity)
	}

	if snap.Timestamp <= rs.checkpoint {
		log.Debug("[Ingest] Snapshot already processed", "snapshot", snap.Path, "checkpoint", rs.checkpoint)
		return commitPurges(metrics.SkipAlreadyDone)
	}

	unit.AdvanceCheckpoint(snap.Timestamp)
	var increments int64
	for _, id := range ids.Sorted() {
		n, err := s.rollup.ProcessIdentifier(ctx, unit, id, current)
		if err != nil {
			return fmt.Errorf("process %s: %w", snap.Path, err)
		}
		increments += int64(n)
	}

	if err := unit.Commit(ctx); err != nil {
		if errors.Is(err, storage.ErrStaleCheckpoint) {
			log.Warn("[Ingest] Checkpoint moved by another writer, stopping", "snapshot", snap.Path)
			return errSuperseded
		}
		return fmt.Errorf("commit %s: %w", snap.Path, err)
	}

	rs.checkpoint = snap.Timestamp
	report.Processed++
	report.Increments += increments
	s.purged(report, closed, purged, log)
	s.sink.SnapshotProcessed(ids.Len())
	s.sink.IncrementsApplied(int(increments))
	s.sink.CheckpointUpdate(snap.Timestamp)

	log.Debug("[Ingest] Snapshot committed",
		"snapshot", snap.Path,
		"tick", current,
		"identifiers", ids.Len(),
		"increments", increments)
	return nil
}

func (s *Service) purged(report *Report, closed []aggregation.Period, n int64, log *slog.Logger) {
	if len(closed) == 0 {
		return
	}
	report.Purged += n
	s.sink.EntriesPurged(n)
	log.Debug("[Ingest] Closed periods", "periods", closed, "entries", n)
}

func (s *Service) skip(report *Report, reason string) {
	report.Skipped[reason]++
	s.sink.SnapshotSkipped(reason)
}

func (s *Service) deleteMarked(log *slog.Logger, report *Report, c *snapshot.Compactor) {
	if report.Marked == 0 {
		return
	}
	deleted, err := c.DeleteMarked(s.source.Fs())
	report.Deleted = deleted
	if err != nil {
		var merr *multierror.Error
		if errors.As(err, &merr) {
			report.DeleteFailures = len(merr.Errors)
		} else {
			report.DeleteFailures = 1
		}
		log.Warn("[Ingest] Some snapshots could not be deleted", "failures", report.DeleteFailures, "error", err)
	}
	s.sink.FilesDeleted(deleted, report.DeleteFailures)
	log.Info("[Ingest] Compaction complete", "deleted", deleted, "failed", report.DeleteFailures)
}
