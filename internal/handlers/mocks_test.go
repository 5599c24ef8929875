package handlers

import (
	"context"
	"time"

	"github.com/diamondline/props-api/internal/models"
)

// MockIngestQueue implements IngestQueue for testing
type MockIngestQueue struct {
	EnqueueFunc func(event *models.PlateAppearance) bool
	Enqueued    []models.PlateAppearance
	Depth       int
}

func (m *MockIngestQueue) Enqueue(event *models.PlateAppearance) bool {
	if m.EnqueueFunc != nil && !m.EnqueueFunc(event) {
		return false
	}
	m.Enqueued = append(m.Enqueued, *event)
	return true
}

func (m *MockIngestQueue) QueueDepth() int { return m.Depth }

type MockDeriver struct {
	DeriveAllFunc func(ctx context.Context) (*models.DeriveReport, error)
}

func (m *MockDeriver) DeriveAll(ctx context.Context) (*models.DeriveReport, error) {
	if m.DeriveAllFunc != nil {
		return m.DeriveAllFunc(ctx)
	}
	return &models.DeriveReport{}, nil
}

type MockResolver struct {
	ResolveFunc        func(ctx context.Context, playerID int64, prop models.PropType, asOf time.Time) (*models.FeatureVector, error)
	ResolveSummaryFunc func(ctx context.Context, playerID int64, role models.Role, season int) (*models.PlayerSummary, error)
}

func (m *MockResolver) Resolve(ctx context.Context, playerID int64, prop models.PropType, asOf time.Time) (*models.FeatureVector, error) {
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, playerID, prop, asOf)
	}
	return &models.FeatureVector{PlayerID: playerID, PropType: prop, AsOf: asOf}, nil
}

func (m *MockResolver) ResolveSummary(ctx context.Context, playerID int64, role models.Role, season int) (*models.PlayerSummary, error) {
	if m.ResolveSummaryFunc != nil {
		return m.ResolveSummaryFunc(ctx, playerID, role, season)
	}
	return &models.PlayerSummary{Role: role}, nil
}

type MockPredictor struct {
	PredictFunc func(ctx context.Context, fv *models.FeatureVector, prop models.PropType, line models.Line) (*models.Prediction, error)
}

func (m *MockPredictor) Predict(ctx context.Context, fv *models.FeatureVector, prop models.PropType, line models.Line) (*models.Prediction, error) {
	if m.PredictFunc != nil {
		return m.PredictFunc(ctx, fv, prop, line)
	}
	return &models.Prediction{PlayerID: fv.PlayerID, PropType: prop, Line: line.Value}, nil
}

type MockPredictionReader struct {
	LatestPerPlayerFunc func(ctx context.Context, prop models.PropType, since time.Time) ([]models.PredictionEdge, error)
}

func (m *MockPredictionReader) LatestPerPlayer(ctx context.Context, prop models.PropType, since time.Time) ([]models.PredictionEdge, error) {
	if m.LatestPerPlayerFunc != nil {
		return m.LatestPerPlayerFunc(ctx, prop, since)
	}
	return nil, nil
}

type MockIdentity struct {
	ResolveFunc func(ctx context.Context, name string) (*models.PlayerMatch, error)
	Names       []string
}

func (m *MockIdentity) Resolve(ctx context.Context, name string) (*models.PlayerMatch, error) {
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, name)
	}
	return &models.PlayerMatch{FullName: name, Confidence: 1}, nil
}

func (m *MockIdentity) Unresolved() []string { return m.Names }
