package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/comitanigiacomo/regen-engine/internal/metrics"
	"go.uber.org/zap"
)

const (
	KindEntryCreated   = "entry.created"
	KindJournalCreated = "journal.created"
	KindEntryDeleted   = "entry.deleted"
	KindUserCreated    = "user.created"
	KindPostGenerate   = "post.generate"
)

// Job is one unit of background work. Fields are populated according to Kind.
type Job struct {
	Kind      string
	UserID    string
	TrackerID string
	EntryID   string
	Date      string
	Category  string
	Value     float64
	PostKind  string
	Variant   string
	Force     bool
}

type HandlerFunc func(ctx context.Context, job Job) error

// EventWorker runs jobs from a buffered queue on a fixed number of goroutines.
type EventWorker struct {
	jobs        chan Job
	concurrency int
	timeout     time.Duration
	logger      *zap.Logger

	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	wg       sync.WaitGroup
}

func NewEventWorker(queueSize, concurrency int, logger *zap.Logger) *EventWorker {
	if queueSize < 1 {
		queueSize = 100
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &EventWorker{
		jobs:        make(chan Job, queueSize),
		concurrency: concurrency,
		timeout:     time.Minute,
		logger:      logger,
		handlers:    make(map[string]HandlerFunc),
	}
}

// Handle registers the handler for a job kind, replacing any previous one.
func (w *EventWorker) Handle(kind string, h HandlerFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[kind] = h
}

// Start launches the workers. Cancelling ctx stops them once the queue is
// drained; jobs run detached from ctx and are bounded by the per-job timeout.
func (w *EventWorker) Start(ctx context.Context) {
	jobCtx := context.WithoutCancel(ctx)
	w.logger.Info("event worker started", zap.Int("concurrency", w.concurrency), zap.Int("queue_size", cap(w.jobs)))
	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			for {
				select {
				case job := <-w.jobs:
					metrics.WorkerQueueDepth.Set(float64(len(w.jobs)))
					w.process(jobCtx, job)
				case <-ctx.Done():
					w.drain(jobCtx)
					return
				}
			}
		}()
	}
}

// drain runs the jobs still queued when the start context ends.
func (w *EventWorker) drain(ctx context.Context) {
	for {
		select {
		case job := <-w.jobs:
			metrics.WorkerQueueDepth.Set(float64(len(w.jobs)))
			w.process(ctx, job)
		default:
			return
		}
	}
}

// Wait blocks until every worker goroutine has drained the queue and returned
// after the start context ends.
func (w *EventWorker) Wait() {
	w.wg.Wait()
	w.logger.Info("event worker stopped", zap.Int("pending", len(w.jobs)))
}

// Enqueue queues the job and reports true. When the queue is full the job runs
// on the caller's goroutine instead and Enqueue reports false.
func (w *EventWorker) Enqueue(job Job) bool {
	select {
	case w.jobs <- job:
		metrics.WorkerQueueDepth.Set(float64(len(w.jobs)))
		return true
	default:
	}

	metrics.WorkerJobs.WithLabelValues(job.Kind, "inline").Inc()
	w.logger.Warn("event queue full, running job inline",
		zap.String("kind", job.Kind),
		zap.String("user_id", job.UserID),
	)
	w.process(context.Background(), job)
	return false
}

func (w *EventWorker) process(ctx context.Context, job Job) {
	w.mu.RLock()
	h, ok := w.handlers[job.Kind]
	w.mu.RUnlock()
	if !ok {
		metrics.WorkerJobs.WithLabelValues(job.Kind, "unhandled").Inc()
		w.logger.Error("no handler for job kind", zap.String("kind", job.Kind))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	err := w.run(ctx, h, job)
	metrics.WorkerJobs.WithLabelValues(job.Kind, metrics.Result(err)).Inc()
	if err != nil {
		w.logger.Error("job failed",
			zap.String("kind", job.Kind),
			zap.String("user_id", job.UserID),
			zap.String("tracker_id", job.TrackerID),
			zap.Error(err),
		)
	}
}

func (w *EventWorker) run(ctx context.Context, h HandlerFunc, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, job)
}
