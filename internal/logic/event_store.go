package logic

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/diamondline/props-api/internal/models"
)

// EventSource reads the raw plate appearance store.
type EventSource interface {
	// StreamEvents calls fn for every stored event in (date, game, at-bat) order.
	StreamEvents(ctx context.Context, fn func(*models.PlateAppearance) error) error
	// LatestGameDate returns the newest game date on or before asOf, or the
	// zero time when the store holds nothing that old.
	LatestGameDate(ctx context.Context, asOf time.Time) (time.Time, error)
}

type eventStore struct {
	ch driver.Conn
}

func NewEventStore(ch driver.Conn) EventSource {
	return &eventStore{ch: ch}
}

func (s *eventStore) StreamEvents(ctx context.Context, fn func(*models.PlateAppearance) error) error {
	rows, err := s.ch.Query(ctx, `
		SELECT
			game_date, game_pk, at_bat_number, batter, pitcher,
			events, des, stand, p_throws, home_team, away_team, inning_topbot
		FROM mlb.plate_appearances
		ORDER BY game_date, game_pk, at_bat_number, batter, pitcher
	`)
	if err != nil {
		return fmt.Errorf("query plate appearances: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e     models.PlateAppearance
			atBat int32
		)
		if err := rows.Scan(
			&e.GameDate, &e.GamePK, &atBat, &e.BatterID, &e.PitcherID,
			&e.Outcome, &e.Description, &e.Stand, &e.PThrows,
			&e.HomeTeam, &e.AwayTeam, &e.InningHalf,
		); err != nil {
			return fmt.Errorf("scan plate appearance: %w", err)
		}
		e.AtBatNumber = int(atBat)
		if err := fn(&e); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *eventStore) LatestGameDate(ctx context.Context, asOf time.Time) (time.Time, error) {
	var (
		latest time.Time
		count  uint64
	)
	err := s.ch.QueryRow(ctx, `
		SELECT max(game_date), count()
		FROM mlb.plate_appearances
		WHERE game_date <= ?
	`, asOf).Scan(&latest, &count)
	if err != nil {
		return time.Time{}, fmt.Errorf("latest event date: %w", err)
	}
	if count == 0 {
		return time.Time{}, nil
	}
	return latest, nil
}
