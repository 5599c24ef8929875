package models

import "time"

// InningHalf identifies which side is batting.
type InningHalf string

const (
	InningTop    InningHalf = "Top"
	InningBottom InningHalf = "Bot"
)

// Outcome categories reported on a plate appearance (Statcast `events` values).
const (
	OutcomeSingle                 = "single"
	OutcomeDouble                 = "double"
	OutcomeTriple                 = "triple"
	OutcomeHomeRun                = "home_run"
	OutcomeStrikeout              = "strikeout"
	OutcomeStrikeoutDoublePlay    = "strikeout_double_play"
	OutcomeWalk                   = "walk"
	OutcomeHitByPitch             = "hit_by_pitch"
	OutcomeSacFly                 = "sac_fly"
	OutcomeSacBunt                = "sac_bunt"
	OutcomeCatcherInterference    = "catcher_interference"
	OutcomeFieldOut               = "field_out"
	OutcomeForceOut               = "force_out"
	OutcomeGroundedIntoDoublePlay = "grounded_into_double_play"
	OutcomeDoublePlay             = "double_play"
	OutcomeTriplePlay             = "triple_play"
)

// PlateAppearance is one raw outcome row as stored in the event store.
// Rows are immutable once written.
type PlateAppearance struct {
	GameDate    time.Time `json:"game_date" validate:"required"`
	GamePK      int64     `json:"game_pk,omitempty"`
	AtBatNumber int       `json:"at_bat_number,omitempty"`
	BatterID    int64     `json:"batter" validate:"required,gt=0"`
	PitcherID   int64     `json:"pitcher" validate:"required,gt=0"`
	Outcome     string    `json:"events" validate:"required"`
	Description string    `json:"des,omitempty"`
	Stand       string    `json:"stand,omitempty"`
	PThrows     string    `json:"p_throws,omitempty"`
	HomeTeam    string    `json:"home_team" validate:"required"`
	AwayTeam    string    `json:"away_team" validate:"required"`
	InningHalf  string    `json:"inning_topbot" validate:"required"`
}

// Sequence orders plate appearances within a date: game first, then at-bat.
func (p *PlateAppearance) Sequence() (int64, int) {
	return p.GamePK, p.AtBatNumber
}
