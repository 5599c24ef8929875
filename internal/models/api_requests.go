package models

import "time"

type PredictRequest struct {
	PlayerID     int64    `json:"player_id" validate:"required,gt=0"`
	PropType     PropType `json:"prop_type" validate:"required"`
	Date         string   `json:"date" validate:"required,datetime=2006-01-02"`
	Line         float64  `json:"line" validate:"gte=0"`
	AmericanOdds *int     `json:"american_odds,omitempty"`
}

type PredictResponse struct {
	Prediction *Prediction    `json:"prediction"`
	Features   *FeatureVector `json:"features"`
}

// DeriveReport summarizes one full derivation run.
type DeriveReport struct {
	RunID        string        `json:"run_id"`
	Events       int           `json:"events"`
	Skipped      int           `json:"skipped"`
	BatterGames  int           `json:"batter_games"`
	PitcherGames int           `json:"pitcher_games"`
	Summaries    int           `json:"summaries"`
	Seasons      []int         `json:"seasons"`
	Duration     time.Duration `json:"duration"`
}

// BatchReport summarizes one batch prediction run.
type BatchReport struct {
	Date               string `json:"date"`
	Props              int    `json:"props"`
	Predicted          int    `json:"predicted"`
	NotFound           int    `json:"not_found"`
	MissingFeature     int    `json:"missing_feature"`
	InvalidOdds        int    `json:"invalid_odds"`
	UnresolvedIdentity int    `json:"unresolved_identity"`
	Stale              int    `json:"stale"`
	Failed             int    `json:"failed"`
}
