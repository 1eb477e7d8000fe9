package tasks

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"launchpad/internal/adapter"
	"launchpad/internal/lease"
	"launchpad/internal/models"
	"launchpad/internal/queue"
	"launchpad/internal/repository"
)

// errPersistence marks failures to record an outcome. They go back to the
// queue for redelivery and never consume an application retry.
var errPersistence = errors.New("persisting job outcome failed")

// errLeaseBusy is returned when another handler owns the record right now.
var errLeaseBusy = errors.New("record is being handled elsewhere")

// Repos bundles repositories needed by task handlers.
type Repos struct {
	Posts        *repository.PostRepository
	Schedules    *repository.ScheduleRepository
	Interactions *repository.InteractionRepository
	Agents       *repository.AgentRepository
	Campaigns    *repository.CampaignRepository
}

// Dispatcher executes job records: it owns the attempt bookkeeping shared by
// every job kind.
type Dispatcher struct {
	repos    *Repos
	registry *adapter.Registry
	queue    queue.Queue
	leases   lease.Locker
	policy   Policy
	logger   *zap.Logger
	now      func() time.Time
}

func NewDispatcher(repos *Repos, registry *adapter.Registry, q queue.Queue, leases lease.Locker, policy Policy, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		repos:    repos,
		registry: registry,
		queue:    q,
		leases:   leases,
		policy:   policy.withDefaults(),
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock replaces the time source.
func (d *Dispatcher) SetClock(now func() time.Time) {
	d.now = now
}

// Register binds the handlers to their task names.
func (d *Dispatcher) Register(p *queue.Pool) {
	p.Handle(TaskPublishPost, d.HandlePublish)
	p.Handle(TaskGenerateContent, d.HandleGenerate)
}

// job is one kind of job record as seen by the attempt loop.
type job interface {
	kind() string
	load(ctx context.Context, id string) (models.JobState, error)
	begin(ctx context.Context, st models.JobState) (models.JobState, error)
	// perform calls the external adapter and records success. Adapter errors
	// come back tagged; failures to record success are marked errPersistence.
	perform(ctx context.Context, st models.JobState) error
	retry(ctx context.Context, st models.JobState, next time.Time, msg string) (models.JobState, error)
	fail(ctx context.Context, st models.JobState, msg string) error
	// failed runs after the record reached FAILED.
	failed(ctx context.Context, st models.JobState, msg string)
}

func (d *Dispatcher) run(ctx context.Context, t *queue.Task, j job) error {
	log := d.logger.With(zap.String("kind", j.kind()), zap.String("record_id", t.RecordID), zap.String("task_id", t.ID))

	release, ok, err := d.leases.Acquire(ctx, j.kind()+":"+t.RecordID, d.policy.LeaseTTL)
	if err != nil {
		return errors.Wrap(err, "acquire record lease")
	}
	if !ok {
		return errLeaseBusy
	}
	defer release()

	st, err := j.load(ctx, t.RecordID)
	if errors.Is(err, repository.ErrNotFound) {
		log.Warn("Job record not found, dropping task")
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "load job record")
	}
	if st.Status.IsTerminal() {
		log.Debug("Job record already terminal, nothing to do", zap.String("status", string(st.Status)))
		return nil
	}

	now := d.now()
	if st.NextRetryAt != nil && st.NextRetryAt.After(now) {
		log.Debug("Task arrived before retry time, deferring", zap.Time("next_retry_at", *st.NextRetryAt))
		return d.queue.Defer(ctx, t, *st.NextRetryAt)
	}
	if st.Exhausted() {
		msg := "max retries exceeded"
		if err := j.fail(ctx, st, msg); err != nil {
			return d.persistErr(err)
		}
		j.failed(ctx, st, msg)
		log.Error("Job failed: attempts exhausted without an outcome", zap.Int("attempts", st.Attempts))
		return nil
	}

	st, err = j.begin(ctx, st)
	if err != nil {
		return d.persistErr(err)
	}

	callCtx, cancel := context.WithTimeout(ctx, d.policy.AttemptTimeout)
	err = j.perform(callCtx, st)
	cancel()
	if err == nil {
		log.Info("Job completed", zap.Int("attempts", st.Attempts))
		return nil
	}
	if errors.Is(err, errPersistence) {
		return err
	}

	msg := repository.TrimError(err.Error())
	if adapter.IsPermanent(err) {
		if ferr := j.fail(ctx, st, msg); ferr != nil {
			return d.persistErr(ferr)
		}
		j.failed(ctx, st, msg)
		log.Error("Job failed permanently", zap.Error(err))
		return nil
	}

	if st.RetriesLeft() {
		n := st.RetryCount
		delay := d.policy.Backoff(n)
		if _, rerr := j.retry(ctx, st, d.now().Add(delay), msg); rerr != nil {
			return d.persistErr(rerr)
		}
		if qerr := d.queue.RetryAfter(ctx, t, delay, err); qerr != nil {
			// The retry time is persisted; a redelivered task defers to it.
			return errors.Wrap(qerr, "schedule retry")
		}
		log.Warn("Job attempt failed, retry scheduled",
			zap.Int("retry", n+1),
			zap.Int("max_retries", st.MaxRetries),
			zap.Duration("delay", delay),
			zap.Error(err))
		return nil
	}

	if ferr := j.fail(ctx, st, msg); ferr != nil {
		return d.persistErr(ferr)
	}
	j.failed(ctx, st, msg)
	log.Error("Job failed after max retries", zap.Int("retries", st.RetryCount), zap.Error(err))
	return nil
}

func (d *Dispatcher) persistErr(err error) error {
	return errors.Mark(err, errPersistence)
}

// IsLeaseBusy reports whether a handler error only means the record was busy.
func IsLeaseBusy(err error) bool {
	return errors.Is(err, errLeaseBusy)
}
