package paymentgateway

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	paymentgatewaytypes "github.com/jarvis4everyone/jarvis-backend/internal/core/datamodel/paymentgateway"
)

var (
	ErrQueueFull    = errors.New("webhook queue full")
	ErrPoolShutdown = errors.New("webhook worker pool is shut down")
)

// WebhookJob is one verified webhook event waiting to be applied.
type WebhookJob struct {
	Event      paymentgatewaytypes.WebhookEvent
	ReceivedAt time.Time
}

type ProcessFunc func(ctx context.Context, job WebhookJob)

type Worker struct {
	ID         int
	WorkerPool chan chan WebhookJob
	JobChannel chan WebhookJob
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan WebhookJob, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan WebhookJob),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, process ProcessFunc) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("worker processing webhook",
					"worker_id", w.ID,
					"event", job.Event.Event,
					"order_id", job.Event.Payload.Payment.Entity.OrderID)
				w.run(ctx, job, process)
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

func (w *Worker) run(ctx context.Context, job WebhookJob, process ProcessFunc) {
	defer func() {
		if rec := recover(); rec != nil {
			w.Logger.Error("webhook job panicked", "worker_id", w.ID, "panic", rec)
		}
	}()
	process(ctx, job)
}

type PoolConfig struct {
	MaxWorkers   int
	JobQueueSize int
}

// WorkerPool applies webhook events off the request path. A dispatcher
// hands queued jobs to whichever worker is idle.
type WorkerPool struct {
	process ProcessFunc
	logger  *slog.Logger

	jobQueue   chan WebhookJob
	workerPool chan chan WebhookJob
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
	stopOnce   sync.Once
}

func NewWorkerPool(config PoolConfig, process ProcessFunc, logger *slog.Logger) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}

	jobQueueSize := config.JobQueueSize
	if jobQueueSize <= 0 {
		jobQueueSize = 100
	}

	return &WorkerPool{
		process:    process,
		logger:     logger,
		maxWorkers: maxWorkers,
		jobQueue:   make(chan WebhookJob, jobQueueSize),
		workerPool: make(chan chan WebhookJob, maxWorkers),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start launches the workers and the dispatcher. Calling it again is a no-op.
func (p *WorkerPool) Start() {
	p.once.Do(func() {
		for i := 0; i < p.maxWorkers; i++ {
			worker := NewWorker(i, p.workerPool, p.logger)
			worker.Start(p.ctx, &p.wg, p.process)
		}

		p.wg.Add(1)
		go p.dispatch()

		p.logger.Info("webhook worker pool started",
			"max_workers", p.maxWorkers,
			"queue_size", cap(p.jobQueue))
	})
}

func (p *WorkerPool) dispatch() {
	defer p.wg.Done()

	for {
		select {
		case job := <-p.jobQueue:
			select {
			case jobChannel := <-p.workerPool:
				select {
				case jobChannel <- job:
				case <-p.ctx.Done():
					p.logger.Info("dispatcher shutting down")
					return
				}
			case <-p.ctx.Done():
				p.logger.Info("dispatcher shutting down")
				return
			}
		case <-p.ctx.Done():
			p.logger.Info("dispatcher shutting down")
			return
		}
	}
}

// Submit queues a job without blocking.
func (p *WorkerPool) Submit(job WebhookJob) error {
	if p.ctx.Err() != nil {
		return ErrPoolShutdown
	}
	if job.ReceivedAt.IsZero() {
		job.ReceivedAt = time.Now().UTC()
	}

	select {
	case p.jobQueue <- job:
		p.logger.Info("webhook job queued",
			"event", job.Event.Event,
			"order_id", job.Event.Payload.Payment.Entity.OrderID,
			"queue_length", len(p.jobQueue))
		return nil
	default:
		p.logger.Warn("webhook queue full, rejecting job",
			"event", job.Event.Event,
			"queue_capacity", cap(p.jobQueue))
		return ErrQueueFull
	}
}

func (p *WorkerPool) Shutdown() {
	p.stopOnce.Do(func() {
		p.logger.Info("shutting down webhook worker pool")
		p.cancel()
		p.wg.Wait()
		p.logger.Info("webhook worker pool shutdown complete")
	})
}
