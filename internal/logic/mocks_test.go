package logic

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/diamondline/props-api/internal/models"
)

type MockFeatureStore struct {
	ReplaceAllFunc            func(ctx context.Context, snap *DerivedSnapshot) error
	LatestBatterGameFunc      func(ctx context.Context, playerID int64, asOf time.Time) (*models.BatterGame, error)
	LatestPitcherGameFunc     func(ctx context.Context, playerID int64, asOf time.Time) (*models.PitcherGame, error)
	BatterSummaryFunc         func(ctx context.Context, playerID int64, scope string) (*models.BatterSummary, error)
	PitcherSummaryFunc        func(ctx context.Context, playerID int64, scope string) (*models.PitcherSummary, error)
	LatestDerivedGameDateFunc func(ctx context.Context) (time.Time, error)
}

func (m *MockFeatureStore) ReplaceAll(ctx context.Context, snap *DerivedSnapshot) error {
	if m.ReplaceAllFunc != nil {
		return m.ReplaceAllFunc(ctx, snap)
	}
	return nil
}

func (m *MockFeatureStore) LatestBatterGame(ctx context.Context, playerID int64, asOf time.Time) (*models.BatterGame, error) {
	if m.LatestBatterGameFunc != nil {
		return m.LatestBatterGameFunc(ctx, playerID, asOf)
	}
	return nil, fmt.Errorf("batter %d: %w", playerID, ErrNotFound)
}

func (m *MockFeatureStore) LatestPitcherGame(ctx context.Context, playerID int64, asOf time.Time) (*models.PitcherGame, error) {
	if m.LatestPitcherGameFunc != nil {
		return m.LatestPitcherGameFunc(ctx, playerID, asOf)
	}
	return nil, fmt.Errorf("pitcher %d: %w", playerID, ErrNotFound)
}

func (m *MockFeatureStore) BatterSummary(ctx context.Context, playerID int64, scope string) (*models.BatterSummary, error) {
	if m.BatterSummaryFunc != nil {
		return m.BatterSummaryFunc(ctx, playerID, scope)
	}
	return nil, ErrNotFound
}

func (m *MockFeatureStore) PitcherSummary(ctx context.Context, playerID int64, scope string) (*models.PitcherSummary, error) {
	if m.PitcherSummaryFunc != nil {
		return m.PitcherSummaryFunc(ctx, playerID, scope)
	}
	return nil, ErrNotFound
}

func (m *MockFeatureStore) LatestDerivedGameDate(ctx context.Context) (time.Time, error) {
	if m.LatestDerivedGameDateFunc != nil {
		return m.LatestDerivedGameDateFunc(ctx)
	}
	return time.Time{}, nil
}

type MockSchedule struct {
	Games map[string]*models.ScheduledGame // keyed by team
	Err   error
}

func (m *MockSchedule) GameForTeam(ctx context.Context, date time.Time, team string) (*models.ScheduledGame, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if g, ok := m.Games[team]; ok {
		return g, nil
	}
	return nil, ErrNotFound
}

type MockEventSource struct {
	Events     []models.PlateAppearance
	LatestDate time.Time
}

func (m *MockEventSource) StreamEvents(ctx context.Context, fn func(*models.PlateAppearance) error) error {
	for i := range m.Events {
		e := m.Events[i]
		if err := fn(&e); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockEventSource) LatestGameDate(ctx context.Context, asOf time.Time) (time.Time, error) {
	return m.LatestDate, nil
}

// MemoryPredictionSink records appended predictions.
type MemoryPredictionSink struct {
	mu   sync.Mutex
	Rows []models.Prediction
	Err  error
}

func (m *MemoryPredictionSink) Append(ctx context.Context, p *models.Prediction) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p.Seq = int64(len(m.Rows) + 1)
	m.Rows = append(m.Rows, *p)
	return nil
}

type MockRoster struct {
	mu          sync.Mutex
	PlayersList []models.Player
	Calls       int
}

func (m *MockRoster) Players(ctx context.Context) ([]models.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	return m.PlayersList, nil
}

type MockPropSource struct {
	Props []models.Prop
}

func (m *MockPropSource) PropsForDate(ctx context.Context, date time.Time) ([]models.Prop, error) {
	return m.Props, nil
}

func day(y int, mo time.Month, d int) time.Time {
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

func int64Ptr(v int64) *int64 { return &v }

func intPtr(v int) *int { return &v }
