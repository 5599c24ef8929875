package models

import "time"

// Role is the side of a matchup a player is evaluated in.
type Role string

const (
	RoleBatter  Role = "batter"
	RolePitcher Role = "pitcher"
)

// ScopeCareer is the summary scope covering every season.
// Season scopes use the four digit year ("2024").
const ScopeCareer = "career"

// BatterGame is the per-(batter, game_date) aggregate with its rolling features.
type BatterGame struct {
	PlayerID          int64     `json:"player_id"`
	GameDate          time.Time `json:"game_date"`
	PlateAppearances  int       `json:"plate_appearances"`
	AtBats            int       `json:"at_bats"`
	Hits              int       `json:"hits"`
	TotalBases        int       `json:"total_bases"`
	Runs              int       `json:"runs"`
	Strikeouts        int       `json:"strikeouts"`
	Walks             int       `json:"walks"`
	Team              string    `json:"team"`
	OpponentTeam      string    `json:"opponent_team"`
	IsHome            bool      `json:"is_home"`
	DayOfWeek         int       `json:"day_of_week"`
	ParkFactor        float64   `json:"park_factor"`
	Stand             string    `json:"stand"`
	PThrows           string    `json:"p_throws"`
	IsSameSide        bool      `json:"is_same_side"`
	OpposingPitcherID int64     `json:"opposing_pitcher_id"`

	Hits5G       float64 `json:"hits_5g"`
	TotalBases5G float64 `json:"total_bases_5g"`
	Runs5G       float64 `json:"runs_5g"`
}

// PitcherGame is the per-(pitcher, game_date) aggregate with its rolling features.
type PitcherGame struct {
	PlayerID       int64     `json:"player_id"`
	GameDate       time.Time `json:"game_date"`
	BattersFaced   int       `json:"batters_faced"`
	AtBatsAgainst  int       `json:"at_bats_against"`
	Outs           int       `json:"outs"`
	InningsPitched float64   `json:"innings_pitched"`
	Strikeouts     int       `json:"strikeouts"`
	HitsAllowed    int       `json:"hits_allowed"`
	WalksAllowed   int       `json:"walks_allowed"`
	RunsAllowed    int       `json:"runs_allowed"`
	Team           string    `json:"team"`
	OpponentTeam   string    `json:"opponent_team"`
	IsHome         bool      `json:"is_home"`
	DayOfWeek      int       `json:"day_of_week"`
	ParkFactor     float64   `json:"park_factor"`
	PThrows        string    `json:"p_throws"`

	HitsAllowed5G float64 `json:"hits_allowed_5g"`
	Strikeouts5G  float64 `json:"strikeouts_5g"`
	Outs5G        float64 `json:"outs_5g"`
}

// BatterSummary holds cumulative batting rates for one scope.
type BatterSummary struct {
	PlayerID         int64   `json:"player_id"`
	Scope            string  `json:"scope"`
	Games            int     `json:"games"`
	PlateAppearances int     `json:"plate_appearances"`
	AtBats           int     `json:"at_bats"`
	Hits             int     `json:"hits"`
	Walks            int     `json:"walks"`
	Strikeouts       int     `json:"strikeouts"`
	Runs             int     `json:"runs"`
	TotalBases       int     `json:"total_bases"`
	Avg              float64 `json:"avg"`
	OBP              float64 `json:"obp"`
	SLG              float64 `json:"slg"`
	OPS              float64 `json:"ops"`
}

// PitcherSummary holds cumulative pitching rates for one scope.
type PitcherSummary struct {
	PlayerID       int64   `json:"player_id"`
	Scope          string  `json:"scope"`
	Games          int     `json:"games"`
	Outs           int     `json:"outs"`
	InningsPitched float64 `json:"innings_pitched"`
	Strikeouts     int     `json:"strikeouts"`
	HitsAllowed    int     `json:"hits_allowed"`
	WalksAllowed   int     `json:"walks_allowed"`
	RunsAllowed    int     `json:"runs_allowed"`
	AtBatsAgainst  int     `json:"at_bats_against"`
	ERA            float64 `json:"era"`
	WHIP           float64 `json:"whip"`
	H9             float64 `json:"h9"`
	BAA            float64 `json:"baa"`
}

// PlayerSummary is what a summary lookup returns: exactly one of the two
// role-specific rows is set.
type PlayerSummary struct {
	Role     Role            `json:"role"`
	Scope    string          `json:"scope"`
	Fallback bool            `json:"fallback"`
	Batter   *BatterSummary  `json:"batter,omitempty"`
	Pitcher  *PitcherSummary `json:"pitcher,omitempty"`
}
