package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// HandlerFunc processes one task. A returned error means the task could not be
// handled for infrastructure reasons and is redelivered.
type HandlerFunc func(ctx context.Context, t *Task) error

type PoolOptions struct {
	Workers         int
	PollInterval    time.Duration
	RedeliveryDelay time.Duration
}

// Pool runs a fixed number of workers that pull tasks and dispatch them to
// the handler registered for the task name.
type Pool struct {
	q        Queue
	opts     PoolOptions
	logger   *zap.Logger
	handlers map[string]HandlerFunc
}

func NewPool(q Queue, opts PoolOptions, logger *zap.Logger) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.RedeliveryDelay <= 0 {
		opts.RedeliveryDelay = 30 * time.Second
	}
	return &Pool{
		q:        q,
		opts:     opts,
		logger:   logger,
		handlers: make(map[string]HandlerFunc),
	}
}

// Handle registers h for tasks named name. Register before Run.
func (p *Pool) Handle(name string, h HandlerFunc) {
	p.handlers[name] = h
}

// Run blocks until ctx is cancelled.
func (p *Pool) Run(ctx context.Context) error {
	p.logger.Info("Starting task workers", zap.Int("workers", p.opts.Workers))
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.opts.Workers; i++ {
		worker := i
		g.Go(func() error {
			p.loop(ctx, worker)
			return nil
		})
	}
	err := g.Wait()
	p.logger.Info("Task workers stopped")
	return err
}

func (p *Pool) loop(ctx context.Context, worker int) {
	ticker := time.NewTicker(p.opts.PollInterval)
	defer ticker.Stop()

	for {
		processed, err := p.ProcessNext(ctx)
		if err != nil {
			p.logger.Error("Failed to dequeue task", zap.Int("worker", worker), zap.Error(err))
		}
		if processed && err == nil {
			if ctx.Err() != nil {
				return
			}
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ProcessNext handles at most one due task and reports whether it found one.
func (p *Pool) ProcessNext(ctx context.Context) (bool, error) {
	t, err := p.q.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if t == nil {
		return false, nil
	}
	p.dispatch(ctx, t)
	return true, nil
}

// Drain processes due tasks until none is left or limit is reached.
func (p *Pool) Drain(ctx context.Context, limit int) (int, error) {
	n := 0
	for n < limit {
		ok, err := p.ProcessNext(ctx)
		if err != nil {
			return n, err
		}
		if !ok {
			break
		}
		n++
	}
	return n, nil
}

func (p *Pool) dispatch(ctx context.Context, t *Task) {
	log := p.logger.With(
		zap.String("task_id", t.ID),
		zap.String("task", t.Name),
		zap.String("record_id", t.RecordID),
		zap.Int("attempt", t.Attempt),
	)

	h, ok := p.handlers[t.Name]
	if !ok {
		log.Error("No handler registered for task, dropping")
		_ = p.q.Ack(ctx, t)
		return
	}

	if err := p.invoke(ctx, h, t); err != nil {
		log.Warn("Task handling failed, redelivering", zap.Int("deliveries", t.Deliveries+1), zap.Error(err))
		// The worker context may already be cancelled on shutdown.
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if rerr := p.q.Redeliver(rctx, t, p.opts.RedeliveryDelay, err); rerr != nil {
			if errors.Is(rerr, ErrDeadLettered) {
				log.Error("Task dead-lettered", zap.Error(err))
				return
			}
			log.Error("Failed to redeliver task", zap.Error(rerr))
		}
		return
	}

	if err := p.q.Ack(ctx, t); err != nil {
		log.Error("Failed to ack task", zap.Error(err))
	}
}

func (p *Pool) invoke(ctx context.Context, h HandlerFunc, t *Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return h(ctx, t)
}
