package logic

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/diamondline/props-api/internal/models"
)

func judgeGame() *models.BatterGame {
	return &models.BatterGame{
		PlayerID:          592450,
		GameDate:          day(2024, 6, 2),
		Hits:              2,
		Team:              "NYY",
		OpponentTeam:      "BOS",
		IsHome:            true,
		DayOfWeek:         6,
		ParkFactor:        1.02,
		Stand:             "R",
		PThrows:           "L",
		OpposingPitcherID: 111,
		Hits5G:            1.4,
		TotalBases5G:      2.6,
		Runs5G:            0.8,
	}
}

func TestResolve_BatterFromLastGame(t *testing.T) {
	asOf := day(2024, 6, 4)
	store := &MockFeatureStore{
		LatestBatterGameFunc: func(ctx context.Context, id int64, at time.Time) (*models.BatterGame, error) {
			if !at.Equal(asOf) {
				t.Errorf("asOf passed to store = %s, want %s", at, asOf)
			}
			return judgeGame(), nil
		},
		LatestPitcherGameFunc: func(ctx context.Context, id int64, at time.Time) (*models.PitcherGame, error) {
			if id != 111 {
				t.Errorf("pitcher lookup for %d, want 111", id)
			}
			return &models.PitcherGame{PlayerID: 111, HitsAllowed5G: 5.4, PThrows: "R"}, nil
		},
	}
	r := NewMatchupResolver(ResolverConfig{Features: store})

	fv, err := r.Resolve(context.Background(), 592450, models.PropHits, asOf.Add(13*time.Hour))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	want := map[string]float64{
		models.FeatureBatterHits5G:         1.4,
		models.FeatureBatterTotalBases5G:   2.6,
		models.FeaturePitcherHitsAllowed5G: 5.4,
		models.FeatureIsSameSide:           0,
		models.FeatureStand:                1,
		models.FeaturePThrows:              0,
		models.FeatureBatterTeam:           18,
		models.FeaturePitcherTeam:          3,
		models.FeatureIsHomeGame:           1,
		models.FeatureDayOfWeek:            6,
		models.FeatureParkFactor:           1.02,
	}
	for name, v := range want {
		if got, ok := fv.Values[name]; !ok || got != v {
			t.Errorf("%s = %v (present %v), want %v", name, got, ok, v)
		}
	}
	if len(fv.Fallbacks) != 0 {
		t.Errorf("fallbacks = %v, want none", fv.Fallbacks)
	}
	if fv.PropType != models.PropHits || fv.Role != models.RoleBatter || fv.ScheduleContext {
		t.Errorf("vector meta = %s %s schedule=%v", fv.PropType, fv.Role, fv.ScheduleContext)
	}
	if !fv.AsOf.Equal(asOf) {
		t.Errorf("AsOf = %s, want truncated date", fv.AsOf)
	}
}

func TestResolve_NoHistory(t *testing.T) {
	r := NewMatchupResolver(ResolverConfig{Features: &MockFeatureStore{}})
	_, err := r.Resolve(context.Background(), 1, models.PropHits, day(2024, 6, 4))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	_, err = r.Resolve(context.Background(), 1, models.PropStrikeouts, day(2024, 6, 4))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("pitcher err = %v, want ErrNotFound", err)
	}
}

func TestResolve_UnsupportedProp(t *testing.T) {
	r := NewMatchupResolver(ResolverConfig{Features: &MockFeatureStore{}})
	if _, err := r.Resolve(context.Background(), 1, "stolen_bases", day(2024, 6, 4)); !errors.Is(err, ErrUnsupportedProp) {
		t.Errorf("err = %v, want ErrUnsupportedProp", err)
	}
}

func TestResolve_UnknownCategoriesFallBack(t *testing.T) {
	store := &MockFeatureStore{
		LatestBatterGameFunc: func(ctx context.Context, id int64, at time.Time) (*models.BatterGame, error) {
			g := judgeGame()
			g.OpponentTeam = "XXX"
			g.Stand = "S"
			g.OpposingPitcherID = 0
			return g, nil
		},
	}
	r := NewMatchupResolver(ResolverConfig{Features: store})

	fv, err := r.Resolve(context.Background(), 592450, models.PropHits, day(2024, 6, 4))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	for _, name := range []string{models.FeaturePitcherTeam, models.FeatureStand, models.FeaturePitcherHitsAllowed5G} {
		if !fv.IsFallback(name) {
			t.Errorf("%s not flagged as fallback; fallbacks = %v", name, fv.Fallbacks)
		}
		if fv.Values[name] != 0 {
			t.Errorf("%s = %v, want code 0", name, fv.Values[name])
		}
	}
	if fv.IsFallback(models.FeatureBatterTeam) {
		t.Error("known team flagged as fallback")
	}
}

func TestResolve_ScheduleOverlayAndProbablePitcher(t *testing.T) {
	asOf := day(2024, 6, 5) // Wednesday
	schedule := &MockSchedule{Games: map[string]*models.ScheduledGame{
		"NYY": {
			GamePK:                746000,
			GameDate:              asOf,
			HomeTeam:              "TOR",
			AwayTeam:              "NYY",
			HomeProbablePitcherID: int64Ptr(222),
		},
	}}
	var pitcherLookups []int64
	store := &MockFeatureStore{
		LatestBatterGameFunc: func(ctx context.Context, id int64, at time.Time) (*models.BatterGame, error) {
			return judgeGame(), nil
		},
		LatestPitcherGameFunc: func(ctx context.Context, id int64, at time.Time) (*models.PitcherGame, error) {
			pitcherLookups = append(pitcherLookups, id)
			return &models.PitcherGame{PlayerID: id, HitsAllowed5G: 4.2, PThrows: "R"}, nil
		},
	}
	r := NewMatchupResolver(ResolverConfig{Features: store, Schedule: schedule})

	fv, err := r.Resolve(context.Background(), 592450, models.PropHits, asOf)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !fv.ScheduleContext || fv.OpposingPitcherID != 222 {
		t.Errorf("schedule=%v opposing=%d, want scheduled probable 222", fv.ScheduleContext, fv.OpposingPitcherID)
	}
	if len(pitcherLookups) != 1 || pitcherLookups[0] != 222 {
		t.Errorf("pitcher lookups = %v", pitcherLookups)
	}
	checks := map[string]float64{
		models.FeatureIsHomeGame:           0,
		models.FeatureDayOfWeek:            2,
		models.FeatureParkFactor:           1.03,
		models.FeaturePitcherTeam:          28,
		models.FeaturePThrows:              1,
		models.FeatureIsSameSide:           1,
		models.FeaturePitcherHitsAllowed5G: 4.2,
	}
	for name, v := range checks {
		if fv.Values[name] != v {
			t.Errorf("%s = %v, want %v", name, fv.Values[name], v)
		}
	}
}

func TestResolve_NoProbableKeepsLastOpponent(t *testing.T) {
	schedule := &MockSchedule{Games: map[string]*models.ScheduledGame{
		"NYY": {GamePK: 1, HomeTeam: "NYY", AwayTeam: "TB"},
	}}
	store := &MockFeatureStore{
		LatestBatterGameFunc: func(ctx context.Context, id int64, at time.Time) (*models.BatterGame, error) {
			return judgeGame(), nil
		},
		LatestPitcherGameFunc: func(ctx context.Context, id int64, at time.Time) (*models.PitcherGame, error) {
			return &models.PitcherGame{PlayerID: id, HitsAllowed5G: 6}, nil
		},
	}
	r := NewMatchupResolver(ResolverConfig{Features: store, Schedule: schedule})
	fv, err := r.Resolve(context.Background(), 592450, models.PropHits, day(2024, 6, 5))
	if err != nil {
		t.Fatal(err)
	}
	if fv.OpposingPitcherID != 111 {
		t.Errorf("opposing = %d, want last faced 111", fv.OpposingPitcherID)
	}
	if fv.Values[models.FeaturePitcherTeam] != 26 {
		t.Errorf("pitcher_team = %v, want TB from schedule", fv.Values[models.FeaturePitcherTeam])
	}
}

func TestOpposingProbablePitcher(t *testing.T) {
	tests := []struct {
		name   string
		game   models.ScheduledGame
		team   string
		want   int64
		wantOK bool
	}{
		{"home team faces away starter", models.ScheduledGame{HomeTeam: "NYY", AwayTeam: "BOS", HomeProbablePitcherID: int64Ptr(1), AwayProbablePitcherID: int64Ptr(2)}, "NYY", 2, true},
		{"away team faces home starter", models.ScheduledGame{HomeTeam: "NYY", AwayTeam: "BOS", HomeProbablePitcherID: int64Ptr(1), AwayProbablePitcherID: int64Ptr(2)}, "bos", 1, true},
		{"opposing unset falls back to home", models.ScheduledGame{HomeTeam: "NYY", AwayTeam: "BOS", HomeProbablePitcherID: int64Ptr(1)}, "NYY", 1, true},
		{"opposing unset falls back to away", models.ScheduledGame{HomeTeam: "NYY", AwayTeam: "BOS", AwayProbablePitcherID: int64Ptr(2)}, "BOS", 2, true},
		{"none announced", models.ScheduledGame{HomeTeam: "NYY", AwayTeam: "BOS"}, "NYY", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := OpposingProbablePitcher(&tt.game, tt.team)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("got (%d, %v), want (%d, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestResolve_Pitcher(t *testing.T) {
	store := &MockFeatureStore{
		LatestPitcherGameFunc: func(ctx context.Context, id int64, at time.Time) (*models.PitcherGame, error) {
			return &models.PitcherGame{
				PlayerID: id, GameDate: day(2024, 6, 1), Team: "LAD", OpponentTeam: "SF",
				DayOfWeek: 5, ParkFactor: 0.98, IsHome: true, PThrows: "R",
				HitsAllowed5G: 5.2, Strikeouts5G: 7.4, Outs5G: 17.2,
			}, nil
		},
	}
	r := NewMatchupResolver(ResolverConfig{Features: store})
	fv, err := r.Resolve(context.Background(), 808967, models.PropStrikeouts, day(2024, 6, 6))
	if err != nil {
		t.Fatal(err)
	}
	if fv.Role != models.RolePitcher {
		t.Errorf("role = %s", fv.Role)
	}
	if fv.Values[models.FeaturePitcherStrikeouts5G] != 7.4 || fv.Values[models.FeaturePitcherTeam] != 13 || fv.Values[models.FeatureBatterTeam] != 24 {
		t.Errorf("values = %v", fv.Values)
	}
	if _, err := OrderedFeatures(fv, PitcherModelFeatures); err != nil {
		t.Errorf("pitcher vector incomplete for trained order: %v", err)
	}
}

func TestResolve_Staleness(t *testing.T) {
	store := &MockFeatureStore{
		LatestBatterGameFunc: func(ctx context.Context, id int64, at time.Time) (*models.BatterGame, error) {
			return judgeGame(), nil
		},
		LatestDerivedGameDateFunc: func(ctx context.Context) (time.Time, error) {
			return day(2024, 6, 2), nil
		},
	}
	events := &MockEventSource{LatestDate: day(2024, 6, 9)}

	lenient := NewMatchupResolver(ResolverConfig{Features: store, Events: events})
	fv, err := lenient.Resolve(context.Background(), 592450, models.PropHits, day(2024, 6, 10))
	if err != nil {
		t.Fatalf("lenient Resolve: %v", err)
	}
	if !fv.Stale {
		t.Error("vector not flagged stale")
	}

	strict := NewMatchupResolver(ResolverConfig{Features: store, Events: events, StrictStaleness: true})
	if _, err := strict.Resolve(context.Background(), 592450, models.PropHits, day(2024, 6, 10)); !errors.Is(err, ErrStaleDerivation) {
		t.Errorf("strict err = %v, want ErrStaleDerivation", err)
	}

	events.LatestDate = day(2024, 6, 3)
	fv, err = strict.Resolve(context.Background(), 592450, models.PropHits, day(2024, 6, 10))
	if err != nil || fv.Stale {
		t.Errorf("fresh derivation: stale=%v err=%v", fv != nil && fv.Stale, err)
	}
}

func TestResolveSummary_SeasonFallsBackToCareer(t *testing.T) {
	career := &models.BatterSummary{PlayerID: 9, Scope: models.ScopeCareer, Avg: 0.281}
	store := &MockFeatureStore{
		BatterSummaryFunc: func(ctx context.Context, id int64, scope string) (*models.BatterSummary, error) {
			if scope == models.ScopeCareer {
				return career, nil
			}
			return nil, ErrNotFound
		},
	}
	r := NewMatchupResolver(ResolverConfig{Features: store})

	got, err := r.ResolveSummary(context.Background(), 9, models.RoleBatter, 2025)
	if err != nil {
		t.Fatalf("ResolveSummary: %v", err)
	}
	if !got.Fallback || got.Scope != models.ScopeCareer || got.Batter != career {
		t.Errorf("summary = %+v, want career fallback", got)
	}
}

func TestResolveSummary_SeasonPresent(t *testing.T) {
	store := &MockFeatureStore{
		PitcherSummaryFunc: func(ctx context.Context, id int64, scope string) (*models.PitcherSummary, error) {
			return &models.PitcherSummary{PlayerID: id, Scope: scope, ERA: 2.9}, nil
		},
	}
	r := NewMatchupResolver(ResolverConfig{Features: store})
	got, err := r.ResolveSummary(context.Background(), 9, models.RolePitcher, 2024)
	if err != nil {
		t.Fatal(err)
	}
	if got.Fallback || got.Scope != "2024" || got.Pitcher.ERA != 2.9 {
		t.Errorf("summary = %+v", got)
	}

	if _, err := r.ResolveSummary(context.Background(), 9, models.RoleBatter, 2024); !errors.Is(err, ErrNotFound) {
		t.Errorf("no batter rows err = %v, want ErrNotFound", err)
	}
}

type memoryCache struct {
	entries map[string]*models.FeatureVector
	gets    int
}

func (m *memoryCache) k(id int64, prop models.PropType, at time.Time) string {
	return fmt.Sprintf("%d:%s:%s", id, prop, at.Format("2006-01-02"))
}

func (m *memoryCache) Get(ctx context.Context, id int64, prop models.PropType, at time.Time) (*models.FeatureVector, bool) {
	m.gets++
	fv, ok := m.entries[m.k(id, prop, at)]
	return fv, ok
}

func (m *memoryCache) Put(ctx context.Context, fv *models.FeatureVector) {
	m.entries[m.k(fv.PlayerID, fv.PropType, fv.AsOf)] = fv
}

func (m *memoryCache) Invalidate(ctx context.Context, at time.Time) error {
	m.entries = make(map[string]*models.FeatureVector)
	return nil
}

func TestResolve_UsesCache(t *testing.T) {
	calls := 0
	store := &MockFeatureStore{
		LatestBatterGameFunc: func(ctx context.Context, id int64, at time.Time) (*models.BatterGame, error) {
			calls++
			return judgeGame(), nil
		},
	}
	cache := &memoryCache{entries: make(map[string]*models.FeatureVector)}
	r := NewMatchupResolver(ResolverConfig{Features: store, Cache: cache})

	for i := 0; i < 3; i++ {
		if _, err := r.Resolve(context.Background(), 592450, models.PropHits, day(2024, 6, 4)); err != nil {
			t.Fatal(err)
		}
	}
	if calls != 1 {
		t.Errorf("store hit %d times, want 1", calls)
	}
	if cache.gets != 3 {
		t.Errorf("cache consulted %d times, want 3", cache.gets)
	}
}
