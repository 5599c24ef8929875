package logic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/diamondline/props-api/internal/models"
)

// DefaultStaleAfter is how far derived data may trail the raw store before a
// vector is flagged stale.
const DefaultStaleAfter = 72 * time.Hour

// ResolverConfig wires a MatchupResolver.
type ResolverConfig struct {
	Features FeatureStore
	Schedule ScheduleSource
	// Events is optional; without it staleness is not checked.
	Events EventSource
	// Cache is optional.
	Cache           FeatureCache
	StaleAfter      time.Duration
	StrictStaleness bool
	Logger          *zap.SugaredLogger
}

// MatchupResolver assembles feature vectors from derived tables and the
// schedule. It only reads.
type MatchupResolver struct {
	features        FeatureStore
	schedule        ScheduleSource
	events          EventSource
	cache           FeatureCache
	staleAfter      time.Duration
	strictStaleness bool
	logger          *zap.SugaredLogger
}

func NewMatchupResolver(cfg ResolverConfig) *MatchupResolver {
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = DefaultStaleAfter
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	return &MatchupResolver{
		features:        cfg.Features,
		schedule:        cfg.Schedule,
		events:          cfg.Events,
		cache:           cfg.Cache,
		staleAfter:      cfg.StaleAfter,
		strictStaleness: cfg.StrictStaleness,
		logger:          cfg.Logger,
	}
}

// matchupContext is the game context a vector is built against.
type matchupContext struct {
	team         string
	opponent     string
	isHome       bool
	dayOfWeek    int
	parkFactor   float64
	fromSchedule bool
	opposingID   int64
}

// Resolve builds the feature vector for playerID's prop on asOf from the
// player's latest game on or before asOf. It returns ErrNotFound when the
// player has no derived history at all.
func (r *MatchupResolver) Resolve(ctx context.Context, playerID int64, prop models.PropType, asOf time.Time) (*models.FeatureVector, error) {
	if !prop.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProp, prop)
	}
	asOf = time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)

	if r.cache != nil {
		if fv, ok := r.cache.Get(ctx, playerID, prop, asOf); ok {
			return fv, nil
		}
	}

	var (
		fv  *models.FeatureVector
		err error
	)
	switch prop.Role() {
	case models.RolePitcher:
		fv, err = r.resolvePitcher(ctx, playerID, asOf)
	default:
		fv, err = r.resolveBatter(ctx, playerID, asOf)
	}
	if err != nil {
		return nil, err
	}
	fv.PropType = prop

	if len(fv.Fallbacks) > 0 {
		r.logger.Warnw("Categorical features fell back to default code",
			"player", playerID,
			"prop", prop,
			"features", fv.Fallbacks,
		)
	}
	if fv.Stale {
		r.logger.Warnw("Derived features trail the event store",
			"player", playerID,
			"asOf", asOf.Format("2006-01-02"),
		)
		if r.strictStaleness {
			return nil, fmt.Errorf("player %d as of %s: %w", playerID, asOf.Format("2006-01-02"), ErrStaleDerivation)
		}
	}

	if r.cache != nil {
		r.cache.Put(ctx, fv)
	}
	return fv, nil
}

func (r *MatchupResolver) resolveBatter(ctx context.Context, playerID int64, asOf time.Time) (*models.FeatureVector, error) {
	g, err := r.features.LatestBatterGame(ctx, playerID, asOf)
	if err != nil {
		return nil, err
	}

	var (
		mc    matchupContext
		stale bool
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		mc, err = r.matchupFor(egCtx, g.Team, asOf, matchupContext{
			team:       g.Team,
			opponent:   g.OpponentTeam,
			isHome:     g.IsHome,
			dayOfWeek:  g.DayOfWeek,
			parkFactor: g.ParkFactor,
			opposingID: g.OpposingPitcherID,
		})
		return err
	})
	eg.Go(func() error {
		var err error
		stale, err = r.isStale(egCtx, asOf)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	fv := newVector(playerID, models.RoleBatter, asOf, g.GameDate, mc, stale)

	pThrows := g.PThrows
	pitcherHits5G, pitcherKnown := 0.0, false
	if mc.opposingID > 0 {
		pg, err := r.features.LatestPitcherGame(ctx, mc.opposingID, asOf)
		switch {
		case err == nil:
			pitcherHits5G, pitcherKnown = pg.HitsAllowed5G, true
			if mc.fromSchedule && pg.PThrows != "" {
				pThrows = pg.PThrows
			}
		case errors.Is(err, ErrNotFound):
		default:
			return nil, err
		}
	}
	fv.Values[models.FeaturePitcherHitsAllowed5G] = pitcherHits5G
	if !pitcherKnown {
		fv.Fallbacks = append(fv.Fallbacks, models.FeaturePitcherHitsAllowed5G)
	}

	fv.Values[models.FeatureBatterHits5G] = g.Hits5G
	fv.Values[models.FeatureBatterTotalBases5G] = g.TotalBases5G
	fv.Values[models.FeatureBatterRuns5G] = g.Runs5G
	fv.Values[models.FeatureIsSameSide] = boolFeature(g.Stand != "" && g.Stand == pThrows)
	fv.encodeHand(models.FeatureStand, g.Stand)
	fv.encodeHand(models.FeaturePThrows, pThrows)
	fv.encodeTeam(models.FeatureBatterTeam, mc.team)
	fv.encodeTeam(models.FeaturePitcherTeam, mc.opponent)
	return fv.FeatureVector, nil
}

func (r *MatchupResolver) resolvePitcher(ctx context.Context, playerID int64, asOf time.Time) (*models.FeatureVector, error) {
	g, err := r.features.LatestPitcherGame(ctx, playerID, asOf)
	if err != nil {
		return nil, err
	}

	var (
		mc    matchupContext
		stale bool
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		mc, err = r.matchupFor(egCtx, g.Team, asOf, matchupContext{
			team:       g.Team,
			opponent:   g.OpponentTeam,
			isHome:     g.IsHome,
			dayOfWeek:  g.DayOfWeek,
			parkFactor: g.ParkFactor,
		})
		return err
	})
	eg.Go(func() error {
		var err error
		stale, err = r.isStale(egCtx, asOf)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	fv := newVector(playerID, models.RolePitcher, asOf, g.GameDate, mc, stale)
	fv.Values[models.FeaturePitcherHitsAllowed5G] = g.HitsAllowed5G
	fv.Values[models.FeaturePitcherStrikeouts5G] = g.Strikeouts5G
	fv.Values[models.FeaturePitcherOuts5G] = g.Outs5G
	fv.encodeHand(models.FeaturePThrows, g.PThrows)
	fv.encodeTeam(models.FeaturePitcherTeam, mc.team)
	fv.encodeTeam(models.FeatureBatterTeam, mc.opponent)
	return fv.FeatureVector, nil
}

// matchupFor overlays the scheduled game for team on asOf onto the context
// carried by the player's last game. Without a scheduled game the last game's
// context stands.
func (r *MatchupResolver) matchupFor(ctx context.Context, team string, asOf time.Time, last matchupContext) (matchupContext, error) {
	if r.schedule == nil || team == "" {
		return last, nil
	}
	game, err := r.schedule.GameForTeam(ctx, asOf, team)
	if errors.Is(err, ErrNotFound) {
		return last, nil
	}
	if err != nil {
		return last, err
	}

	home := NormalizeTeam(game.HomeTeam)
	mc := matchupContext{
		team:         NormalizeTeam(team),
		isHome:       NormalizeTeam(team) == home,
		dayOfWeek:    mondayFirstWeekday(asOf),
		parkFactor:   ParkFactor(home),
		fromSchedule: true,
	}
	if mc.isHome {
		mc.opponent = NormalizeTeam(game.AwayTeam)
	} else {
		mc.opponent = home
	}
	if id, ok := OpposingProbablePitcher(game, team); ok {
		mc.opposingID = id
	} else {
		mc.opposingID = last.opposingID
	}
	return mc, nil
}

// isStale reports whether the newest derived game trails the newest raw game
// on or before asOf by more than staleAfter.
func (r *MatchupResolver) isStale(ctx context.Context, asOf time.Time) (bool, error) {
	if r.events == nil {
		return false, nil
	}
	derived, err := r.features.LatestDerivedGameDate(ctx)
	if err != nil {
		return false, err
	}
	raw, err := r.events.LatestGameDate(ctx, asOf)
	if err != nil {
		return false, err
	}
	if raw.IsZero() {
		return false, nil
	}
	return raw.Sub(derived) > r.staleAfter, nil
}

// ResolveSummary returns the player's season summary, or the career summary
// when the season has no rows yet.
func (r *MatchupResolver) ResolveSummary(ctx context.Context, playerID int64, role models.Role, season int) (*models.PlayerSummary, error) {
	scope := SeasonScope(season)
	out := &models.PlayerSummary{Role: role, Scope: scope}

	switch role {
	case models.RoleBatter:
		s, err := r.features.BatterSummary(ctx, playerID, scope)
		if errors.Is(err, ErrNotFound) {
			out.Scope, out.Fallback = models.ScopeCareer, true
			s, err = r.features.BatterSummary(ctx, playerID, models.ScopeCareer)
		}
		if err != nil {
			return nil, err
		}
		out.Batter = s
	case models.RolePitcher:
		s, err := r.features.PitcherSummary(ctx, playerID, scope)
		if errors.Is(err, ErrNotFound) {
			out.Scope, out.Fallback = models.ScopeCareer, true
			s, err = r.features.PitcherSummary(ctx, playerID, models.ScopeCareer)
		}
		if err != nil {
			return nil, err
		}
		out.Pitcher = s
	default:
		return nil, fmt.Errorf("unknown role %q", role)
	}
	return out, nil
}

// vectorBuilder tracks which categorical values fell back to code 0.
type vectorBuilder struct {
	*models.FeatureVector
}

func newVector(playerID int64, role models.Role, asOf, lastGame time.Time, mc matchupContext, stale bool) *vectorBuilder {
	fv := &models.FeatureVector{
		PlayerID:          playerID,
		Role:              role,
		AsOf:              asOf,
		Values:            make(map[string]float64, 12),
		LastGameDate:      lastGame,
		OpposingPitcherID: mc.opposingID,
		ScheduleContext:   mc.fromSchedule,
		Stale:             stale,
	}
	fv.Values[models.FeatureIsHomeGame] = boolFeature(mc.isHome)
	fv.Values[models.FeatureDayOfWeek] = float64(mc.dayOfWeek)
	fv.Values[models.FeatureParkFactor] = mc.parkFactor
	return &vectorBuilder{fv}
}

func (b *vectorBuilder) encodeTeam(name, team string) {
	code, ok := encodeTeam(team)
	b.Values[name] = code
	if !ok {
		b.Fallbacks = append(b.Fallbacks, name)
	}
}

func (b *vectorBuilder) encodeHand(name, hand string) {
	code, ok := encodeHand(hand)
	b.Values[name] = code
	if !ok {
		b.Fallbacks = append(b.Fallbacks, name)
	}
}

func boolFeature(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
