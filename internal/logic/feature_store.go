package logic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/diamondline/props-api/internal/models"
)

// DerivedSnapshot is the full output of one derivation run.
type DerivedSnapshot struct {
	RunID            uuid.UUID
	Batters          []models.BatterGame
	Pitchers         []models.PitcherGame
	BatterSummaries  []models.BatterSummary
	PitcherSummaries []models.PitcherSummary
	Events           int
	Skipped          int
	Seasons          []int
}

// FeatureStore persists and serves derived tables.
type FeatureStore interface {
	ReplaceAll(ctx context.Context, snap *DerivedSnapshot) error
	LatestBatterGame(ctx context.Context, playerID int64, asOf time.Time) (*models.BatterGame, error)
	LatestPitcherGame(ctx context.Context, playerID int64, asOf time.Time) (*models.PitcherGame, error)
	BatterSummary(ctx context.Context, playerID int64, scope string) (*models.BatterSummary, error)
	PitcherSummary(ctx context.Context, playerID int64, scope string) (*models.PitcherSummary, error)
	LatestDerivedGameDate(ctx context.Context) (time.Time, error)
}

type featureStore struct {
	pg PgPool
}

func NewFeatureStore(pg PgPool) FeatureStore {
	return &featureStore{pg: pg}
}

var batterGameColumns = []string{
	"player_id", "game_date", "plate_appearances", "at_bats", "hits", "total_bases", "runs",
	"strikeouts", "walks", "team", "opponent_team", "is_home", "day_of_week", "park_factor",
	"stand", "p_throws", "is_same_side", "opposing_pitcher_id", "hits_5g", "total_bases_5g", "runs_5g",
}

var pitcherGameColumns = []string{
	"player_id", "game_date", "batters_faced", "at_bats_against", "outs", "innings_pitched",
	"strikeouts", "hits_allowed", "walks_allowed", "runs_allowed", "team", "opponent_team",
	"is_home", "day_of_week", "park_factor", "p_throws", "hits_allowed_5g", "strikeouts_5g", "outs_5g",
}

var batterSummaryColumns = []string{
	"player_id", "scope", "games", "plate_appearances", "at_bats", "hits", "walks", "strikeouts",
	"runs", "total_bases", "avg", "obp", "slg", "ops",
}

var pitcherSummaryColumns = []string{
	"player_id", "scope", "games", "outs", "innings_pitched", "strikeouts", "hits_allowed",
	"walks_allowed", "runs_allowed", "at_bats_against", "era", "whip", "h9", "baa",
}

// ReplaceAll swaps every derived table in one transaction. TRUNCATE holds an
// ACCESS EXCLUSIVE lock until commit, so concurrent readers wait for the swap
// and then see the new run; a failed run rolls back to the previous tables.
func (s *featureStore) ReplaceAll(ctx context.Context, snap *DerivedSnapshot) error {
	tx, err := s.pg.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `TRUNCATE batter_games, pitcher_games, batter_summaries, pitcher_summaries`); err != nil {
		return fmt.Errorf("truncate derived tables: %w", err)
	}

	batterRows := make([][]any, len(snap.Batters))
	for i, g := range snap.Batters {
		batterRows[i] = []any{
			g.PlayerID, g.GameDate, g.PlateAppearances, g.AtBats, g.Hits, g.TotalBases, g.Runs,
			g.Strikeouts, g.Walks, g.Team, g.OpponentTeam, g.IsHome, g.DayOfWeek, g.ParkFactor,
			g.Stand, g.PThrows, g.IsSameSide, g.OpposingPitcherID, g.Hits5G, g.TotalBases5G, g.Runs5G,
		}
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"batter_games"}, batterGameColumns, pgx.CopyFromRows(batterRows)); err != nil {
		return fmt.Errorf("copy batter games: %w", err)
	}

	pitcherRows := make([][]any, len(snap.Pitchers))
	for i, g := range snap.Pitchers {
		pitcherRows[i] = []any{
			g.PlayerID, g.GameDate, g.BattersFaced, g.AtBatsAgainst, g.Outs, g.InningsPitched,
			g.Strikeouts, g.HitsAllowed, g.WalksAllowed, g.RunsAllowed, g.Team, g.OpponentTeam,
			g.IsHome, g.DayOfWeek, g.ParkFactor, g.PThrows, g.HitsAllowed5G, g.Strikeouts5G, g.Outs5G,
		}
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"pitcher_games"}, pitcherGameColumns, pgx.CopyFromRows(pitcherRows)); err != nil {
		return fmt.Errorf("copy pitcher games: %w", err)
	}

	bsRows := make([][]any, len(snap.BatterSummaries))
	for i, b := range snap.BatterSummaries {
		bsRows[i] = []any{
			b.PlayerID, b.Scope, b.Games, b.PlateAppearances, b.AtBats, b.Hits, b.Walks, b.Strikeouts,
			b.Runs, b.TotalBases, b.Avg, b.OBP, b.SLG, b.OPS,
		}
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"batter_summaries"}, batterSummaryColumns, pgx.CopyFromRows(bsRows)); err != nil {
		return fmt.Errorf("copy batter summaries: %w", err)
	}

	psRows := make([][]any, len(snap.PitcherSummaries))
	for i, p := range snap.PitcherSummaries {
		psRows[i] = []any{
			p.PlayerID, p.Scope, p.Games, p.Outs, p.InningsPitched, p.Strikeouts, p.HitsAllowed,
			p.WalksAllowed, p.RunsAllowed, p.AtBatsAgainst, p.ERA, p.WHIP, p.H9, p.BAA,
		}
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"pitcher_summaries"}, pitcherSummaryColumns, pgx.CopyFromRows(psRows)); err != nil {
		return fmt.Errorf("copy pitcher summaries: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO derivation_runs (id, finished_at, events, skipped, batter_games, pitcher_games)
		VALUES ($1, now(), $2, $3, $4, $5)
	`, snap.RunID, snap.Events, snap.Skipped, len(snap.Batters), len(snap.Pitchers)); err != nil {
		return fmt.Errorf("record derivation run: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

func (s *featureStore) LatestBatterGame(ctx context.Context, playerID int64, asOf time.Time) (*models.BatterGame, error) {
	var g models.BatterGame
	err := s.pg.QueryRow(ctx, `
		SELECT player_id, game_date, plate_appearances, at_bats, hits, total_bases, runs,
			strikeouts, walks, team, opponent_team, is_home, day_of_week, park_factor,
			stand, p_throws, is_same_side, opposing_pitcher_id, hits_5g, total_bases_5g, runs_5g
		FROM batter_games
		WHERE player_id = $1 AND game_date <= $2
		ORDER BY game_date DESC
		LIMIT 1
	`, playerID, asOf).Scan(
		&g.PlayerID, &g.GameDate, &g.PlateAppearances, &g.AtBats, &g.Hits, &g.TotalBases, &g.Runs,
		&g.Strikeouts, &g.Walks, &g.Team, &g.OpponentTeam, &g.IsHome, &g.DayOfWeek, &g.ParkFactor,
		&g.Stand, &g.PThrows, &g.IsSameSide, &g.OpposingPitcherID, &g.Hits5G, &g.TotalBases5G, &g.Runs5G,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("batter %d games through %s: %w", playerID, asOf.Format("2006-01-02"), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("latest batter game: %w", err)
	}
	return &g, nil
}

func (s *featureStore) LatestPitcherGame(ctx context.Context, playerID int64, asOf time.Time) (*models.PitcherGame, error) {
	var g models.PitcherGame
	err := s.pg.QueryRow(ctx, `
		SELECT player_id, game_date, batters_faced, at_bats_against, outs, innings_pitched,
			strikeouts, hits_allowed, walks_allowed, runs_allowed, team, opponent_team,
			is_home, day_of_week, park_factor, p_throws, hits_allowed_5g, strikeouts_5g, outs_5g
		FROM pitcher_games
		WHERE player_id = $1 AND game_date <= $2
		ORDER BY game_date DESC
		LIMIT 1
	`, playerID, asOf).Scan(
		&g.PlayerID, &g.GameDate, &g.BattersFaced, &g.AtBatsAgainst, &g.Outs, &g.InningsPitched,
		&g.Strikeouts, &g.HitsAllowed, &g.WalksAllowed, &g.RunsAllowed, &g.Team, &g.OpponentTeam,
		&g.IsHome, &g.DayOfWeek, &g.ParkFactor, &g.PThrows, &g.HitsAllowed5G, &g.Strikeouts5G, &g.Outs5G,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("pitcher %d games through %s: %w", playerID, asOf.Format("2006-01-02"), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("latest pitcher game: %w", err)
	}
	return &g, nil
}

func (s *featureStore) BatterSummary(ctx context.Context, playerID int64, scope string) (*models.BatterSummary, error) {
	var b models.BatterSummary
	err := s.pg.QueryRow(ctx, `
		SELECT player_id, scope, games, plate_appearances, at_bats, hits, walks, strikeouts,
			runs, total_bases, avg, obp, slg, ops
		FROM batter_summaries
		WHERE player_id = $1 AND scope = $2
	`, playerID, scope).Scan(
		&b.PlayerID, &b.Scope, &b.Games, &b.PlateAppearances, &b.AtBats, &b.Hits, &b.Walks, &b.Strikeouts,
		&b.Runs, &b.TotalBases, &b.Avg, &b.OBP, &b.SLG, &b.OPS,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("batter %d %s summary: %w", playerID, scope, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("batter summary: %w", err)
	}
	return &b, nil
}

func (s *featureStore) PitcherSummary(ctx context.Context, playerID int64, scope string) (*models.PitcherSummary, error) {
	var p models.PitcherSummary
	err := s.pg.QueryRow(ctx, `
		SELECT player_id, scope, games, outs, innings_pitched, strikeouts, hits_allowed,
			walks_allowed, runs_allowed, at_bats_against, era, whip, h9, baa
		FROM pitcher_summaries
		WHERE player_id = $1 AND scope = $2
	`, playerID, scope).Scan(
		&p.PlayerID, &p.Scope, &p.Games, &p.Outs, &p.InningsPitched, &p.Strikeouts, &p.HitsAllowed,
		&p.WalksAllowed, &p.RunsAllowed, &p.AtBatsAgainst, &p.ERA, &p.WHIP, &p.H9, &p.BAA,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("pitcher %d %s summary: %w", playerID, scope, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("pitcher summary: %w", err)
	}
	return &p, nil
}

// LatestDerivedGameDate returns the newest game date across both roles, or
// the zero time when nothing has been derived.
func (s *featureStore) LatestDerivedGameDate(ctx context.Context) (time.Time, error) {
	var latest *time.Time
	err := s.pg.QueryRow(ctx, `
		SELECT GREATEST((SELECT max(game_date) FROM batter_games), (SELECT max(game_date) FROM pitcher_games))
	`).Scan(&latest)
	if err != nil {
		return time.Time{}, fmt.Errorf("latest derived date: %w", err)
	}
	if latest == nil {
		return time.Time{}, nil
	}
	return *latest, nil
}
