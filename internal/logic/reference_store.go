package logic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/diamondline/props-api/internal/models"
)

// ScheduleSource looks up scheduled games.
type ScheduleSource interface {
	GameForTeam(ctx context.Context, date time.Time, team string) (*models.ScheduledGame, error)
}

// PropSource lists betting lines for a date.
type PropSource interface {
	PropsForDate(ctx context.Context, date time.Time) ([]models.Prop, error)
}

// RosterSource lists known players.
type RosterSource interface {
	Players(ctx context.Context) ([]models.Player, error)
}

// referenceStore reads the tables maintained by the schedule, odds and roster
// ingestion jobs. It never writes.
type referenceStore struct {
	pg PgPool
}

// ReferenceStore bundles the read-only reference lookups.
type ReferenceStore interface {
	ScheduleSource
	PropSource
	RosterSource
}

func NewReferenceStore(pg PgPool) ReferenceStore {
	return &referenceStore{pg: pg}
}

func (s *referenceStore) GameForTeam(ctx context.Context, date time.Time, team string) (*models.ScheduledGame, error) {
	var g models.ScheduledGame
	err := s.pg.QueryRow(ctx, `
		SELECT game_pk, game_date, home_team, away_team, home_probable_pitcher_id, away_probable_pitcher_id
		FROM scheduled_games
		WHERE game_date = $1 AND (home_team = $2 OR away_team = $2)
		ORDER BY game_pk
		LIMIT 1
	`, date, NormalizeTeam(team)).Scan(
		&g.GamePK, &g.GameDate, &g.HomeTeam, &g.AwayTeam, &g.HomeProbablePitcherID, &g.AwayProbablePitcherID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("game for %s on %s: %w", team, date.Format("2006-01-02"), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scheduled game: %w", err)
	}
	return &g, nil
}

func (s *referenceStore) PropsForDate(ctx context.Context, date time.Time) ([]models.Prop, error) {
	rows, err := s.pg.Query(ctx, `
		SELECT id, COALESCE(player_id, 0), player_name, prop_type, game_date, line, odds, COALESCE(bookmaker, '')
		FROM props
		WHERE game_date = $1
		ORDER BY id
	`, date)
	if err != nil {
		return nil, fmt.Errorf("query props: %w", err)
	}
	defer rows.Close()

	var props []models.Prop
	for rows.Next() {
		var p models.Prop
		var propType string
		if err := rows.Scan(&p.ID, &p.PlayerID, &p.PlayerName, &propType, &p.GameDate, &p.Line, &p.Odds, &p.Bookmaker); err != nil {
			return nil, fmt.Errorf("scan prop: %w", err)
		}
		p.PropType = models.PropType(propType)
		props = append(props, p)
	}
	return props, rows.Err()
}

func (s *referenceStore) Players(ctx context.Context) ([]models.Player, error) {
	rows, err := s.pg.Query(ctx, `SELECT id, full_name, COALESCE(team, '') FROM players ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query players: %w", err)
	}
	defer rows.Close()

	var players []models.Player
	for rows.Next() {
		var p models.Player
		if err := rows.Scan(&p.ID, &p.FullName, &p.Team); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// OpposingProbablePitcher returns the probable starter facing team. When the
// opposing side is unset it falls back to whichever probable is known.
func OpposingProbablePitcher(g *models.ScheduledGame, team string) (int64, bool) {
	team = NormalizeTeam(team)
	var opposing *int64
	switch team {
	case NormalizeTeam(g.HomeTeam):
		opposing = g.AwayProbablePitcherID
	case NormalizeTeam(g.AwayTeam):
		opposing = g.HomeProbablePitcherID
	}
	if opposing != nil {
		return *opposing, true
	}
	if g.HomeProbablePitcherID != nil {
		return *g.HomeProbablePitcherID, true
	}
	if g.AwayProbablePitcherID != nil {
		return *g.AwayProbablePitcherID, true
	}
	return 0, false
}
