package handlers

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/diamondline/props-api/internal/models"
)

// MaxBodySize limits the size of request bodies to 1MB
const MaxBodySize = 1048576

// IngestQueue defines the interface for the event ingestion worker pool
type IngestQueue interface {
	Enqueue(event *models.PlateAppearance) bool
	QueueDepth() int
}

// Deriver rebuilds the derived feature tables.
type Deriver interface {
	DeriveAll(ctx context.Context) (*models.DeriveReport, error)
}

// FeatureResolver assembles feature vectors and summaries.
type FeatureResolver interface {
	Resolve(ctx context.Context, playerID int64, prop models.PropType, asOf time.Time) (*models.FeatureVector, error)
	ResolveSummary(ctx context.Context, playerID int64, role models.Role, season int) (*models.PlayerSummary, error)
}

// Predictor scores a feature vector against a line.
type Predictor interface {
	Predict(ctx context.Context, fv *models.FeatureVector, prop models.PropType, line models.Line) (*models.Prediction, error)
}

// PredictionReader reads the prediction log.
type PredictionReader interface {
	LatestPerPlayer(ctx context.Context, prop models.PropType, since time.Time) ([]models.PredictionEdge, error)
}

// IdentityService maps provider names onto roster ids.
type IdentityService interface {
	Resolve(ctx context.Context, name string) (*models.PlayerMatch, error)
	Unresolved() []string
}

// HealthCheck pings one backing store.
type HealthCheck func(ctx context.Context) error

type Config struct {
	WorkerPool IngestQueue
	Logger     *zap.Logger
	// Readiness checks keyed by dependency name
	Checks map[string]HealthCheck
	// Services
	Deriver     Deriver
	Resolver    FeatureResolver
	Predictor   Predictor
	Predictions PredictionReader
	Identity    IdentityService
}

type Handler struct {
	pool        IngestQueue
	logger      *zap.SugaredLogger
	validator   *validator.Validate
	checks      map[string]HealthCheck
	deriver     Deriver
	resolver    FeatureResolver
	predictor   Predictor
	predictions PredictionReader
	identity    IdentityService
}

func New(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		pool:        cfg.WorkerPool,
		logger:      logger.Sugar(),
		validator:   validator.New(),
		checks:      cfg.Checks,
		deriver:     cfg.Deriver,
		resolver:    cfg.Resolver,
		predictor:   cfg.Predictor,
		predictions: cfg.Predictions,
		identity:    cfg.Identity,
	}
}
