// Package worker implements the buffered worker pool that lands plate
// appearances in ClickHouse. HTTP handlers enqueue and return; workers batch
// inserts and flush on size, on a timer, and on shutdown.
package worker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/diamondline/props-api/internal/logic"
	"github.com/diamondline/props-api/internal/models"
)

// Prometheus metrics
var (
	eventsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "props_events_ingested_total",
		Help: "Total number of plate appearances accepted for ingestion",
	})

	eventsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "props_events_processed_total",
		Help: "Total number of plate appearances written by workers",
	})

	eventsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "props_events_failed_total",
		Help: "Total number of plate appearances that failed to write",
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "props_worker_queue_depth",
		Help: "Current depth of the worker queue",
	})

	batchInsertDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "props_batch_insert_duration_seconds",
		Help:    "Duration of batch inserts to ClickHouse",
		Buckets: prometheus.DefBuckets,
	})

	eventsLoadShed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "props_events_load_shed_total",
		Help: "Total number of plate appearances dropped due to load shedding",
	})
)

const insertPlateAppearances = `
	INSERT INTO mlb.plate_appearances (
		game_date, game_pk, at_bat_number, batter, pitcher,
		events, des, stand, p_throws, home_team, away_team, inning_topbot, ingested_at
	)
`

// Job represents a unit of work for the worker pool
type Job struct {
	Event    *models.PlateAppearance
	Received time.Time
}

// PoolConfig configures the worker pool
type PoolConfig struct {
	WorkerCount   int
	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration
	ClickHouse    driver.Conn
	Logger        *zap.Logger
}

// Pool manages a pool of workers for async event ingestion
type Pool struct {
	config   PoolConfig
	jobQueue chan Job
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *zap.SugaredLogger

	mu      sync.RWMutex
	stopped bool
}

// NewPool creates a new worker pool
func NewPool(cfg PoolConfig) *Pool {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 10000
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Pool{
		config:   cfg,
		jobQueue: make(chan Job, cfg.QueueSize),
		logger:   cfg.Logger.Sugar(),
	}
}

// Start launches the worker goroutines
func (p *Pool) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)

	for i := 0; i < p.config.WorkerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	go p.reportQueueDepth()

	p.logger.Infow("Worker pool started",
		"workers", p.config.WorkerCount,
		"queueSize", p.config.QueueSize,
		"batchSize", p.config.BatchSize,
	)
}

// Stop closes the queue, waits for workers to flush what they hold, then
// cancels the pool context.
func (p *Pool) Stop() {
	p.logger.Info("Stopping worker pool...")

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobQueue)
	p.mu.Unlock()

	p.wg.Wait()
	if p.cancel != nil {
		p.cancel()
	}
	p.logger.Info("Worker pool stopped")
}

// Enqueue normalizes event and queues it. It never blocks: a full queue or a
// stopped pool sheds the event and returns false.
func (p *Pool) Enqueue(event *models.PlateAppearance) bool {
	normalizeEvent(event)
	job := Job{Event: event, Received: time.Now()}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		eventsLoadShed.Inc()
		return false
	}

	select {
	case p.jobQueue <- job:
		eventsIngested.Inc()
		return true
	default:
		eventsLoadShed.Inc()
		p.logger.Warnw("Worker queue full, dropping plate appearance",
			"gamePk", event.GamePK,
			"atBat", event.AtBatNumber,
		)
		return false
	}
}

// QueueDepth returns current queue size
func (p *Pool) QueueDepth() int {
	return len(p.jobQueue)
}

// worker processes jobs from the queue in batches
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	p.logger.Debugw("Worker started", "worker", id)

	batch := make([]Job, 0, p.config.BatchSize)
	ticker := time.NewTicker(p.config.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}

		start := time.Now()
		if err := p.processBatch(batch); err != nil {
			p.logger.Errorw("Batch insert failed",
				"worker", id,
				"batchSize", len(batch),
				"error", err,
			)
			eventsFailed.Add(float64(len(batch)))
		} else {
			p.logger.Debugw("Batch inserted", "worker", id, "batchSize", len(batch), "duration", time.Since(start))
			eventsProcessed.Add(float64(len(batch)))
		}
		batchInsertDuration.Observe(time.Since(start).Seconds())

		batch = batch[:0]
	}

	for {
		select {
		case job, ok := <-p.jobQueue:
			if !ok {
				flush()
				return
			}
			batch = append(batch, job)
			if len(batch) >= p.config.BatchSize {
				flush()
			}

		case <-ticker.C:
			flush()

		case <-p.ctx.Done():
			flush()
			return
		}
	}
}

// processBatch appends every job to one ClickHouse batch and sends it.
func (p *Pool) processBatch(batch []Job) error {
	if len(batch) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	chBatch, err := p.config.ClickHouse.PrepareBatch(ctx, insertPlateAppearances)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	appended := 0
	for _, job := range batch {
		e := job.Event
		err := chBatch.Append(
			e.GameDate,
			e.GamePK,
			int32(e.AtBatNumber),
			e.BatterID,
			e.PitcherID,
			e.Outcome,
			e.Description,
			e.Stand,
			e.PThrows,
			e.HomeTeam,
			e.AwayTeam,
			e.InningHalf,
			job.Received.UTC(),
		)
		if err != nil {
			p.logger.Warnw("Failed to append plate appearance to batch", "error", err, "gamePk", e.GamePK)
			eventsFailed.Inc()
			continue
		}
		appended++
	}
	if appended == 0 {
		return chBatch.Abort()
	}

	if err := chBatch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

func (p *Pool) reportQueueDepth() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			queueDepth.Set(float64(len(p.jobQueue)))
		case <-p.ctx.Done():
			return
		}
	}
}

// Helper functions

// normalizeEvent puts an accepted event into the canonical form the
// aggregator expects: UTC calendar date, canonical team codes, upper-case
// hands, "Top"/"Bot" half-innings and clean text.
func normalizeEvent(e *models.PlateAppearance) {
	if !e.GameDate.IsZero() {
		d := e.GameDate.UTC()
		e.GameDate = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	}
	e.HomeTeam = logic.NormalizeTeam(e.HomeTeam)
	e.AwayTeam = logic.NormalizeTeam(e.AwayTeam)
	e.Stand = strings.ToUpper(strings.TrimSpace(e.Stand))
	e.PThrows = strings.ToUpper(strings.TrimSpace(e.PThrows))
	e.Outcome = strings.ToLower(strings.TrimSpace(e.Outcome))
	if half, err := logic.ParseInningHalf(e.InningHalf); err == nil {
		e.InningHalf = string(half)
	}
	e.Description = sanitizeText(e.Description)
}

// sanitizeText drops control characters and collapses runs of whitespace.
func sanitizeText(s string) string {
	// Fast path: nothing to strip
	clean := true
	prevSpace := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x20 || c == 0x7f {
			clean = false
			break
		}
		if c == ' ' && (prevSpace || i == 0 || i == len(s)-1) {
			clean = false
			break
		}
		prevSpace = c == ' '
	}
	if clean {
		return s
	}

	var sb strings.Builder
	sb.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			pendingSpace = sb.Len() > 0
		case r < 0x20 || r == 0x7f:
		default:
			if pendingSpace {
				sb.WriteByte(' ')
				pendingSpace = false
			}
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
