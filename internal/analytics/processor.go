package analytics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"shortlink-backend/internal/domain"
	"shortlink-backend/internal/repository"
	"shortlink-backend/pkg/metrics"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var (
	ErrNotStarted   = errors.New("processor not started")
	ErrQueueFull    = errors.New("analytics queue is full")
	ErrShuttingDown = errors.New("processor is shutting down")
)

// Store is the persistence the processor writes clicks to
type Store interface {
	InsertClick(ctx context.Context, click *domain.Click) error
	IncrementClickCount(ctx context.Context, linkID string) error
}

// Publisher forwards persisted clicks to downstream consumers
type Publisher interface {
	Publish(ctx context.Context, shortCode string, click *domain.Click) error
}

// ProcessorConfig holds configuration for the analytics processor
type ProcessorConfig struct {
	WorkerCount     int           // Number of worker goroutines
	BufferSize      int           // Size of the job queue buffer
	RetryAttempts   int           // Number of attempts for a failed click write
	RetryDelay      time.Duration // Base delay between retries
	AttemptTimeout  time.Duration // Timeout of a single write attempt
	ShutdownTimeout time.Duration // Time to wait for the queue to drain on Stop
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() ProcessorConfig {
	return ProcessorConfig{
		WorkerCount:     3,
		BufferSize:      1000,
		RetryAttempts:   3,
		RetryDelay:      time.Second,
		AttemptTimeout:  10 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Stats is a snapshot of the processor state
type Stats struct {
	Started       bool `json:"started"`
	QueueLength   int  `json:"queue_length"`
	QueueCapacity int  `json:"queue_capacity"`
	WorkerCount   int  `json:"worker_count"`
	RetryAttempts int  `json:"retry_attempts"`
}

type job struct {
	linkID string
	event  *Event
}

// Processor records clicks asynchronously with a bounded queue and retries
type Processor struct {
	config    ProcessorConfig
	store     Store
	publisher Publisher
	log       *zap.Logger
	tracer    trace.Tracer
	jobQueue  chan job
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	started   bool
	stopped   bool
	mu        sync.RWMutex
}

// NewProcessor creates a new analytics processor. publisher may be nil.
func NewProcessor(store Store, publisher Publisher, log *zap.Logger, config ProcessorConfig) *Processor {
	defaults := DefaultConfig()
	if config.WorkerCount <= 0 {
		config.WorkerCount = defaults.WorkerCount
	}
	if config.BufferSize <= 0 {
		config.BufferSize = defaults.BufferSize
	}
	if config.RetryAttempts <= 0 {
		config.RetryAttempts = 1
	}
	if config.AttemptTimeout <= 0 {
		config.AttemptTimeout = defaults.AttemptTimeout
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = defaults.ShutdownTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Processor{
		config:    config,
		store:     store,
		publisher: publisher,
		log:       log.With(zap.String("component", "analytics_processor")),
		tracer:    otel.Tracer("shortlink-backend/analytics"),
		jobQueue:  make(chan job, config.BufferSize),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start begins processing analytics data
func (p *Processor) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("processor already started")
	}
	if p.stopped {
		return ErrShuttingDown
	}

	p.log.Info("starting analytics processor",
		zap.Int("workers", p.config.WorkerCount),
		zap.Int("buffer_size", p.config.BufferSize),
		zap.Int("retry_attempts", p.config.RetryAttempts),
	)

	for i := 0; i < p.config.WorkerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	p.started = true
	return nil
}

// Stop stops accepting clicks and waits for queued ones to be written.
// When ShutdownTimeout passes first, in-flight writes are cancelled.
func (p *Processor) Stop() error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return ErrNotStarted
	}
	p.started = false
	p.stopped = true
	// Submit holds the read lock while sending, so closing under the write lock is safe
	close(p.jobQueue)
	p.mu.Unlock()

	p.log.Info("stopping analytics processor", zap.Int("pending", len(p.jobQueue)))

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	defer p.cancel()

	select {
	case <-done:
		p.log.Info("analytics processor stopped gracefully")
		return nil
	case <-time.After(p.config.ShutdownTimeout):
		p.log.Warn("analytics processor shutdown timeout reached", zap.Int("dropped", len(p.jobQueue)))
		return fmt.Errorf("shutdown timeout reached")
	}
}

// Submit enqueues a click for linkID without blocking. A full queue drops the click.
func (p *Processor) Submit(linkID string, event *Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.started {
		metrics.ClickStages.WithLabelValues(metrics.StageDropped).Inc()
		return ErrNotStarted
	}

	select {
	case p.jobQueue <- job{linkID: linkID, event: event}:
		metrics.ClickStages.WithLabelValues(metrics.StageSubmitted).Inc()
		metrics.ClickQueueLength.Set(float64(len(p.jobQueue)))
		p.log.Debug("click submitted for processing", zap.String("short_code", event.ShortCode))
		return nil
	default:
		metrics.ClickStages.WithLabelValues(metrics.StageDropped).Inc()
		p.log.Error("analytics queue is full, dropping click",
			zap.String("short_code", event.ShortCode),
			zap.Int("queue_size", len(p.jobQueue)),
		)
		return ErrQueueFull
	}
}

// Stats returns processor statistics
func (p *Processor) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return Stats{
		Started:       p.started,
		QueueLength:   len(p.jobQueue),
		QueueCapacity: cap(p.jobQueue),
		WorkerCount:   p.config.WorkerCount,
		RetryAttempts: p.config.RetryAttempts,
	}
}

// worker drains the queue until it is closed
func (p *Processor) worker(workerID int) {
	defer p.wg.Done()

	log := p.log.With(zap.Int("worker_id", workerID))
	log.Debug("analytics worker started")

	for j := range p.jobQueue {
		metrics.ClickQueueLength.Set(float64(len(p.jobQueue)))
		p.process(log, j)
	}

	log.Debug("analytics worker stopped")
}

// process records one click: insert with retries, then counter, then publish
func (p *Processor) process(log *zap.Logger, j job) {
	start := time.Now()
	defer func() {
		metrics.ClickProcessingDuration.Observe(time.Since(start).Seconds())
	}()

	ctx, span := p.tracer.Start(p.ctx, "analytics.record_click", trace.WithAttributes(
		attribute.String("link.id", j.linkID),
		attribute.String("link.short_code", j.event.ShortCode),
	))
	defer span.End()

	click := j.event.Click(j.linkID)
	// ID назначается до первой попытки: повтор после таймаута не создаст дубль
	click.ID = uuid.NewString()

	if err := p.insertWithRetry(ctx, log, click); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "click not recorded")
		metrics.ClickStages.WithLabelValues(metrics.StageFailed).Inc()
		log.Error("click processing failed after all retries",
			zap.String("short_code", j.event.ShortCode),
			zap.String("link_id", j.linkID),
			zap.Int("attempts", p.config.RetryAttempts),
			zap.Error(err),
		)
		return
	}
	metrics.ClickStages.WithLabelValues(metrics.StageRecorded).Inc()

	// Счетчик вспомогательный: источник истины - журнал кликов
	if err := p.withTimeout(ctx, func(ctx context.Context) error {
		return p.store.IncrementClickCount(ctx, j.linkID)
	}); err != nil {
		log.Warn("failed to increment click counter", zap.String("link_id", j.linkID), zap.Error(err))
	}

	if p.publisher != nil {
		if err := p.withTimeout(ctx, func(ctx context.Context) error {
			return p.publisher.Publish(ctx, j.event.ShortCode, click)
		}); err != nil {
			metrics.ClickStages.WithLabelValues(metrics.StagePublishFailed).Inc()
			log.Warn("failed to publish click", zap.String("click_id", click.ID), zap.Error(err))
		} else {
			metrics.ClickStages.WithLabelValues(metrics.StagePublished).Inc()
		}
	}

	log.Debug("click recorded successfully",
		zap.String("short_code", j.event.ShortCode),
		zap.String("click_id", click.ID),
	)
}

// insertWithRetry writes the click with exponential backoff between attempts
func (p *Processor) insertWithRetry(ctx context.Context, log *zap.Logger, click *domain.Click) error {
	var lastErr error

	for attempt := 1; attempt <= p.config.RetryAttempts; attempt++ {
		err := p.withTimeout(ctx, func(ctx context.Context) error {
			return p.store.InsertClick(ctx, click)
		})
		// предыдущая попытка успела записать клик
		if err == nil || errors.Is(err, repository.ErrClickExists) {
			if attempt > 1 {
				log.Info("click processing succeeded after retry",
					zap.String("click_id", click.ID),
					zap.Int("attempt", attempt),
				)
			}
			return nil
		}

		lastErr = err
		log.Warn("click processing failed",
			zap.String("click_id", click.ID),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", p.config.RetryAttempts),
			zap.Error(err),
		)

		if attempt == p.config.RetryAttempts {
			break
		}

		// Exponential backoff delay
		delay := p.config.RetryDelay * time.Duration(1<<(attempt-1))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("retry aborted: %w", ctx.Err())
		}
	}

	return lastErr
}

func (p *Processor) withTimeout(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, p.config.AttemptTimeout)
	defer cancel()
	return fn(ctx)
}
