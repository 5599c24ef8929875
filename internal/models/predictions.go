package models

import (
	"time"

	"github.com/google/uuid"
)

// PropType is a betting market category.
type PropType string

const (
	PropHits           PropType = "hits"
	PropTotalBases     PropType = "total_bases"
	PropRuns           PropType = "runs"
	PropStrikeouts     PropType = "strikeouts"
	PropInningsPitched PropType = "innings_pitched"
)

// AllPropTypes lists every supported market.
var AllPropTypes = []PropType{PropHits, PropTotalBases, PropRuns, PropStrikeouts, PropInningsPitched}

// Valid reports whether p is a supported market.
func (p PropType) Valid() bool {
	for _, t := range AllPropTypes {
		if p == t {
			return true
		}
	}
	return false
}

// Role returns which side of the matchup the market is about.
func (p PropType) Role() Role {
	switch p {
	case PropStrikeouts, PropInningsPitched:
		return RolePitcher
	default:
		return RoleBatter
	}
}

// Verdict is the over/under call against a line.
type Verdict string

const (
	VerdictOver  Verdict = "OVER"
	VerdictUnder Verdict = "UNDER"
)

// Feature names carried in a FeatureVector.
const (
	FeatureBatterHits5G         = "batter_hits_5g"
	FeatureBatterTotalBases5G   = "batter_total_bases_5g"
	FeatureBatterRuns5G         = "batter_runs_5g"
	FeaturePitcherHitsAllowed5G = "pitcher_hits_allowed_5g"
	FeaturePitcherStrikeouts5G  = "pitcher_strikeouts_5g"
	FeaturePitcherOuts5G        = "pitcher_outs_5g"
	FeatureIsSameSide           = "is_same_side"
	FeatureStand                = "stand"
	FeaturePThrows              = "p_throws"
	FeatureBatterTeam           = "batter_team"
	FeaturePitcherTeam          = "pitcher_team"
	FeatureIsHomeGame           = "is_home_game"
	FeatureDayOfWeek            = "day_of_week"
	FeatureParkFactor           = "park_factor"
)

// Prop is an externally sourced betting line.
type Prop struct {
	ID         int64     `json:"id"`
	PlayerID   int64     `json:"player_id,omitempty"`
	PlayerName string    `json:"player_name"`
	PropType   PropType  `json:"prop_type"`
	GameDate   time.Time `json:"game_date"`
	Line       float64   `json:"line"`
	Odds       string    `json:"odds"`
	Bookmaker  string    `json:"bookmaker,omitempty"`
}

// ScheduledGame is one game on the schedule with its probable starters.
type ScheduledGame struct {
	GamePK                int64     `json:"game_pk"`
	GameDate              time.Time `json:"game_date"`
	HomeTeam              string    `json:"home_team"`
	AwayTeam              string    `json:"away_team"`
	HomeProbablePitcherID *int64    `json:"home_probable_pitcher_id,omitempty"`
	AwayProbablePitcherID *int64    `json:"away_probable_pitcher_id,omitempty"`
}

// Player is a roster entry used for identity resolution.
type Player struct {
	ID       int64  `json:"id"`
	FullName string `json:"full_name"`
	Team     string `json:"team,omitempty"`
}

// PlayerMatch is a resolved identity.
type PlayerMatch struct {
	PlayerID   int64   `json:"player_id"`
	FullName   string  `json:"full_name"`
	Confidence float64 `json:"confidence"`
}

// FeatureVector is the model input assembled for one player, market and date.
type FeatureVector struct {
	PlayerID          int64              `json:"player_id"`
	Role              Role               `json:"role"`
	PropType          PropType           `json:"prop_type"`
	AsOf              time.Time          `json:"as_of"`
	Values            map[string]float64 `json:"values"`
	Fallbacks         []string           `json:"fallbacks,omitempty"`
	LastGameDate      time.Time          `json:"last_game_date"`
	OpposingPitcherID int64              `json:"opposing_pitcher_id,omitempty"`
	ScheduleContext   bool               `json:"schedule_context"`
	Stale             bool               `json:"stale"`
}

// IsFallback reports whether the named feature was filled with the default code.
func (fv *FeatureVector) IsFallback(name string) bool {
	for _, f := range fv.Fallbacks {
		if f == name {
			return true
		}
	}
	return false
}

// Line is the threshold and price a prediction is issued against.
type Line struct {
	Value        float64 `json:"value"`
	AmericanOdds *int    `json:"american_odds,omitempty"`
}

// Prediction is one append-only log row.
type Prediction struct {
	ID              uuid.UUID `json:"id"`
	Seq             int64     `json:"seq,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	PlayerID        int64     `json:"player_id"`
	PropType        PropType  `json:"prop_type"`
	GameDate        time.Time `json:"game_date"`
	Line            float64   `json:"line"`
	AmericanOdds    *int      `json:"american_odds,omitempty"`
	Estimate        float64   `json:"estimate_raw"`
	DisplayEstimate float64   `json:"estimate"`
	Verdict         Verdict   `json:"verdict"`
	Fallbacks       []string  `json:"fallbacks,omitempty"`
	ModelVersion    string    `json:"model_version"`
}

// PredictionEdge is a Prediction ranked by its edge over the market.
type PredictionEdge struct {
	Prediction
	DecimalOdds        *float64 `json:"decimal_odds,omitempty"`
	ImpliedProbability *float64 `json:"implied_probability,omitempty"`
	Edge               *float64 `json:"edge,omitempty"`
}
