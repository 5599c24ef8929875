package logic

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/diamondline/props-api/internal/models"
)

var (
	eventsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "props_derive_events_skipped_total",
		Help: "Plate appearances skipped as malformed during derivation",
	})

	derivationRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "props_derivation_runs_total",
		Help: "Derivation runs by result",
	}, []string{"result"})

	derivationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "props_derivation_duration_seconds",
		Help:    "Wall time of a full derivation run",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	derivedRows = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "props_derived_rows",
		Help: "Rows written by the last derivation run",
	}, []string{"table"})
)

// Derive runs the full feature chain over an in-memory event snapshot:
// game aggregates, rolling windows, then career and per-season summaries.
func Derive(events []models.PlateAppearance, window int, logger *zap.SugaredLogger) (*DerivedSnapshot, error) {
	agg := NewGameAggregator(logger)
	for i := range events {
		agg.Add(&events[i])
	}
	return buildSnapshot(agg.Result(), window)
}

func buildSnapshot(res AggregateResult, window int) (*DerivedSnapshot, error) {
	snap := &DerivedSnapshot{
		Batters:  DeriveBatterRolling(res.Batters, window),
		Pitchers: DerivePitcherRolling(res.Pitchers, window),
		Events:   res.Events,
		Skipped:  res.Skipped,
	}
	snap.Seasons = seasonsIn(snap.Batters, snap.Pitchers)

	scopes := []string{models.ScopeCareer}
	for _, y := range snap.Seasons {
		scopes = append(scopes, SeasonScope(y))
	}
	for _, scope := range scopes {
		bs, ps, err := DeriveSummaryStats(snap.Batters, snap.Pitchers, scope)
		if err != nil {
			return nil, err
		}
		snap.BatterSummaries = append(snap.BatterSummaries, bs...)
		snap.PitcherSummaries = append(snap.PitcherSummaries, ps...)
	}
	return snap, nil
}

// DeriverConfig wires a FeatureDeriver.
type DeriverConfig struct {
	Events EventSource
	Store  FeatureStore
	Cache  FeatureCache
	Window int
	Logger *zap.SugaredLogger
}

// FeatureDeriver is the sole writer of the derived tables.
type FeatureDeriver struct {
	events EventSource
	store  FeatureStore
	cache  FeatureCache
	window int
	logger *zap.SugaredLogger
	mu     sync.Mutex
}

func NewFeatureDeriver(cfg DeriverConfig) *FeatureDeriver {
	if cfg.Window <= 0 {
		cfg.Window = DefaultRollingWindow
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	return &FeatureDeriver{
		events: cfg.Events,
		store:  cfg.Store,
		cache:  cfg.Cache,
		window: cfg.Window,
		logger: cfg.Logger,
	}
}

// DeriveAll rebuilds every derived table from the raw event store. Running it
// twice over the same snapshot writes identical tables.
func (d *FeatureDeriver) DeriveAll(ctx context.Context) (*models.DeriveReport, error) {
	if !d.mu.TryLock() {
		return nil, ErrDerivationActive
	}
	defer d.mu.Unlock()

	start := time.Now()
	runID := uuid.New()
	d.logger.Infow("Derivation started", "runId", runID)

	agg := NewGameAggregator(d.logger)
	if err := d.events.StreamEvents(ctx, func(e *models.PlateAppearance) error {
		agg.Add(e)
		return ctx.Err()
	}); err != nil {
		derivationRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("read events: %w", err)
	}

	snap, err := buildSnapshot(agg.Result(), d.window)
	if err != nil {
		derivationRuns.WithLabelValues("error").Inc()
		return nil, err
	}
	snap.RunID = runID

	if err := d.store.ReplaceAll(ctx, snap); err != nil {
		derivationRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("replace derived tables: %w", err)
	}

	if d.cache != nil {
		if err := d.cache.Invalidate(ctx, time.Now()); err != nil {
			d.logger.Warnw("Feature cache invalidation failed", "error", err, "runId", runID)
		}
	}

	elapsed := time.Since(start)
	derivationRuns.WithLabelValues("ok").Inc()
	derivationDuration.Observe(elapsed.Seconds())
	derivedRows.WithLabelValues("batter_games").Set(float64(len(snap.Batters)))
	derivedRows.WithLabelValues("pitcher_games").Set(float64(len(snap.Pitchers)))
	derivedRows.WithLabelValues("batter_summaries").Set(float64(len(snap.BatterSummaries)))
	derivedRows.WithLabelValues("pitcher_summaries").Set(float64(len(snap.PitcherSummaries)))

	report := &models.DeriveReport{
		RunID:        runID.String(),
		Events:       snap.Events,
		Skipped:      snap.Skipped,
		BatterGames:  len(snap.Batters),
		PitcherGames: len(snap.Pitchers),
		Summaries:    len(snap.BatterSummaries) + len(snap.PitcherSummaries),
		Seasons:      snap.Seasons,
		Duration:     elapsed,
	}
	d.logger.Infow("Derivation finished",
		"runId", runID,
		"events", report.Events,
		"skipped", report.Skipped,
		"batterGames", report.BatterGames,
		"pitcherGames", report.PitcherGames,
		"duration", elapsed,
	)
	return report, nil
}
