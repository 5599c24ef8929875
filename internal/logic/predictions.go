package logic

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/diamondline/props-api/internal/models"
)

var (
	predictionsIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "props_predictions_issued_total",
		Help: "Predictions appended to the log",
	}, []string{"prop_type", "verdict"})

	predictionsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "props_predictions_rejected_total",
		Help: "Prediction attempts rejected before reaching the log",
	}, []string{"prop_type", "reason"})
)

// PredictionSink appends predictions to the log.
type PredictionSink interface {
	Append(ctx context.Context, p *models.Prediction) error
}

// PredictionPublisher fans issued predictions out to downstream consumers.
type PredictionPublisher interface {
	PublishPrediction(ctx context.Context, p *models.Prediction) error
}

// EngineConfig wires a PredictionEngine.
type EngineConfig struct {
	Registry *ModelRegistry
	Log      PredictionSink
	// Publisher is optional.
	Publisher PredictionPublisher
	Logger    *zap.SugaredLogger
	Now       func() time.Time
}

// PredictionEngine scores feature vectors and records the result.
type PredictionEngine struct {
	registry  *ModelRegistry
	log       PredictionSink
	publisher PredictionPublisher
	logger    *zap.SugaredLogger
	now       func() time.Time
}

func NewPredictionEngine(cfg EngineConfig) *PredictionEngine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &PredictionEngine{
		registry:  cfg.Registry,
		log:       cfg.Log,
		publisher: cfg.Publisher,
		logger:    cfg.Logger,
		now:       cfg.Now,
	}
}

// VerdictFor applies the single over/under rule used for every prop type:
// OVER when the estimate meets or beats the line.
func VerdictFor(estimate, line float64) models.Verdict {
	if estimate >= line {
		return models.VerdictOver
	}
	return models.VerdictUnder
}

// ValidateLine checks the numeric line and, when present, the price.
func ValidateLine(line models.Line) error {
	if math.IsNaN(line.Value) || math.IsInf(line.Value, 0) || line.Value < 0 {
		return fmt.Errorf("%w: line %v", ErrInvalidOdds, line.Value)
	}
	if line.AmericanOdds != nil {
		return ValidateAmericanOdds(*line.AmericanOdds)
	}
	return nil
}

// OrderedFeatures lays fv out in the order names requires.
func OrderedFeatures(fv *models.FeatureVector, names []string) ([]float64, error) {
	x := make([]float64, len(names))
	for i, name := range names {
		v, ok := fv.Values[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingFeature, name)
		}
		x[i] = v
	}
	return x, nil
}

// Predict scores fv with the model registered for prop, compares the estimate
// with line and appends exactly one prediction. Nothing is appended when any
// step fails.
func (e *PredictionEngine) Predict(ctx context.Context, fv *models.FeatureVector, prop models.PropType, line models.Line) (*models.Prediction, error) {
	if err := ValidateLine(line); err != nil {
		predictionsRejected.WithLabelValues(string(prop), "invalid_odds").Inc()
		return nil, err
	}
	model, err := e.registry.Lookup(prop)
	if err != nil {
		predictionsRejected.WithLabelValues(string(prop), "no_model").Inc()
		return nil, err
	}
	x, err := OrderedFeatures(fv, model.Features())
	if err != nil {
		predictionsRejected.WithLabelValues(string(prop), "missing_feature").Inc()
		return nil, fmt.Errorf("player %d %s: %w", fv.PlayerID, prop, err)
	}
	estimate, err := model.Score(x)
	if err != nil {
		predictionsRejected.WithLabelValues(string(prop), "score_error").Inc()
		return nil, fmt.Errorf("score %s: %w", prop, err)
	}
	if math.IsNaN(estimate) || math.IsInf(estimate, 0) {
		predictionsRejected.WithLabelValues(string(prop), "score_error").Inc()
		return nil, fmt.Errorf("score %s: non-finite estimate", prop)
	}

	p := &models.Prediction{
		ID:              uuid.New(),
		CreatedAt:       e.now().UTC(),
		PlayerID:        fv.PlayerID,
		PropType:        prop,
		GameDate:        fv.AsOf,
		Line:            line.Value,
		AmericanOdds:    line.AmericanOdds,
		Estimate:        estimate,
		DisplayEstimate: round3(estimate),
		Verdict:         VerdictFor(estimate, line.Value),
		Fallbacks:       fv.Fallbacks,
		ModelVersion:    model.Version(),
	}

	if err := e.log.Append(ctx, p); err != nil {
		return nil, fmt.Errorf("append prediction: %w", err)
	}
	predictionsIssued.WithLabelValues(string(prop), string(p.Verdict)).Inc()

	if e.publisher != nil {
		if err := e.publisher.PublishPrediction(ctx, p); err != nil {
			e.logger.Warnw("Failed to publish prediction", "error", err, "id", p.ID)
		}
	}

	e.logger.Infow("Prediction issued",
		"id", p.ID,
		"player", p.PlayerID,
		"prop", prop,
		"line", p.Line,
		"estimate", p.DisplayEstimate,
		"verdict", p.Verdict,
	)
	return p, nil
}
