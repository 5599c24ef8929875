package logic

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/diamondline/props-api/internal/models"
)

// FeatureResolver is the resolve half of the chain.
type FeatureResolver interface {
	Resolve(ctx context.Context, playerID int64, prop models.PropType, asOf time.Time) (*models.FeatureVector, error)
}

// Predictor is the predict half of the chain.
type Predictor interface {
	Predict(ctx context.Context, fv *models.FeatureVector, prop models.PropType, line models.Line) (*models.Prediction, error)
}

// IdentityLookup maps a provider name to a player.
type IdentityLookup interface {
	Resolve(ctx context.Context, name string) (*models.PlayerMatch, error)
}

// BatchConfig wires a BatchPredictor.
type BatchConfig struct {
	Props       PropSource
	Identity    IdentityLookup
	Resolver    FeatureResolver
	Predictor   Predictor
	Concurrency int
	Logger      *zap.SugaredLogger
}

// BatchPredictor predicts every prop listed for a date.
type BatchPredictor struct {
	props       PropSource
	identity    IdentityLookup
	resolver    FeatureResolver
	predictor   Predictor
	concurrency int
	logger      *zap.SugaredLogger
}

func NewBatchPredictor(cfg BatchConfig) *BatchPredictor {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	return &BatchPredictor{
		props:       cfg.Props,
		identity:    cfg.Identity,
		resolver:    cfg.Resolver,
		predictor:   cfg.Predictor,
		concurrency: cfg.Concurrency,
		logger:      cfg.Logger,
	}
}

type propOutcome int

const (
	outcomePredicted propOutcome = iota
	outcomeNotFound
	outcomeMissingFeature
	outcomeInvalidOdds
	outcomeUnresolved
	outcomeFailed
)

// Run predicts each prop on date. One prop failing never stops the others;
// only a failure to list props or a canceled context fails the run.
func (b *BatchPredictor) Run(ctx context.Context, date time.Time) (*models.BatchReport, error) {
	props, err := b.props.PropsForDate(ctx, date)
	if err != nil {
		return nil, err
	}

	report := &models.BatchReport{Date: date.Format("2006-01-02"), Props: len(props)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for _, p := range props {
		p := p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcome, stale := b.predictOne(gctx, &p, date)

			mu.Lock()
			defer mu.Unlock()
			if stale {
				report.Stale++
			}
			switch outcome {
			case outcomePredicted:
				report.Predicted++
			case outcomeNotFound:
				report.NotFound++
			case outcomeMissingFeature:
				report.MissingFeature++
			case outcomeInvalidOdds:
				report.InvalidOdds++
			case outcomeUnresolved:
				report.UnresolvedIdentity++
			default:
				report.Failed++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	b.logger.Infow("Batch prediction finished",
		"date", report.Date,
		"props", report.Props,
		"predicted", report.Predicted,
		"notFound", report.NotFound,
		"unresolved", report.UnresolvedIdentity,
		"failed", report.Failed,
	)
	return report, nil
}

func (b *BatchPredictor) predictOne(ctx context.Context, p *models.Prop, date time.Time) (propOutcome, bool) {
	playerID := p.PlayerID
	if playerID == 0 {
		if b.identity == nil {
			return outcomeUnresolved, false
		}
		match, err := b.identity.Resolve(ctx, p.PlayerName)
		if err != nil {
			b.logger.Infow("Skipping prop with unresolved player", "prop", p.ID, "name", p.PlayerName, "error", err)
			return outcomeUnresolved, false
		}
		playerID = match.PlayerID
	}

	odds, err := ParseOdds(p.Odds)
	if err != nil {
		b.logger.Warnw("Skipping prop with invalid odds", "prop", p.ID, "odds", p.Odds, "error", err)
		return outcomeInvalidOdds, false
	}

	fv, err := b.resolver.Resolve(ctx, playerID, p.PropType, date)
	if err != nil {
		return b.classify(p, playerID, err), false
	}

	if _, err := b.predictor.Predict(ctx, fv, p.PropType, models.Line{Value: p.Line, AmericanOdds: &odds}); err != nil {
		return b.classify(p, playerID, err), fv.Stale
	}
	return outcomePredicted, fv.Stale
}

func (b *BatchPredictor) classify(p *models.Prop, playerID int64, err error) propOutcome {
	switch {
	case errors.Is(err, ErrNotFound):
		b.logger.Infow("No history for player", "prop", p.ID, "player", playerID)
		return outcomeNotFound
	case errors.Is(err, ErrMissingFeature):
		b.logger.Errorw("Feature vector incomplete", "prop", p.ID, "player", playerID, "error", err)
		return outcomeMissingFeature
	case errors.Is(err, ErrInvalidOdds):
		return outcomeInvalidOdds
	}
	b.logger.Errorw("Prediction failed", "prop", p.ID, "player", playerID, "error", err)
	return outcomeFailed
}
