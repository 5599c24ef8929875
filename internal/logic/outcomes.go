package logic

import (
	"fmt"
	"strings"

	"github.com/diamondline/props-api/internal/models"
)

var hitOutcomes = map[string]struct{}{
	models.OutcomeSingle:  {},
	models.OutcomeDouble:  {},
	models.OutcomeTriple:  {},
	models.OutcomeHomeRun: {},
}

var basesByOutcome = map[string]int{
	models.OutcomeSingle:  1,
	models.OutcomeDouble:  2,
	models.OutcomeTriple:  3,
	models.OutcomeHomeRun: 4,
}

var strikeoutOutcomes = map[string]struct{}{
	models.OutcomeStrikeout:           {},
	models.OutcomeStrikeoutDoublePlay: {},
}

// Outcomes that end a plate appearance without charging an at-bat.
var nonAtBatOutcomes = map[string]struct{}{
	models.OutcomeWalk:                {},
	models.OutcomeHitByPitch:          {},
	models.OutcomeSacFly:              {},
	models.OutcomeSacBunt:             {},
	models.OutcomeCatcherInterference: {},
}

var pitcherOutOutcomes = map[string]struct{}{
	models.OutcomeStrikeout:              {},
	models.OutcomeFieldOut:               {},
	models.OutcomeForceOut:               {},
	models.OutcomeGroundedIntoDoublePlay: {},
	models.OutcomeDoublePlay:             {},
	models.OutcomeTriplePlay:             {},
}

func isHit(outcome string) bool {
	_, ok := hitOutcomes[outcome]
	return ok
}

func totalBases(outcome string) int {
	return basesByOutcome[outcome]
}

func isStrikeout(outcome string) bool {
	_, ok := strikeoutOutcomes[outcome]
	return ok
}

func isAtBat(outcome string) bool {
	_, ok := nonAtBatOutcomes[outcome]
	return !ok
}

func isPitcherOut(outcome string) bool {
	_, ok := pitcherOutOutcomes[outcome]
	return ok
}

// batterScored credits a run on a home run or when the play description
// reports a runner scoring.
func batterScored(outcome, description string) bool {
	if outcome == models.OutcomeHomeRun {
		return true
	}
	return strings.Contains(strings.ToLower(description), "score")
}

// halfInningBatsHome maps the half-inning to whether the home club is batting.
// Top: visitors bat, home pitches. Bottom: home bats, visitors pitch.
var halfInningBatsHome = map[models.InningHalf]bool{
	models.InningTop:    false,
	models.InningBottom: true,
}

// ParseInningHalf accepts the Statcast spellings of the half-inning.
func ParseInningHalf(s string) (models.InningHalf, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "top", "t":
		return models.InningTop, nil
	case "bot", "bottom", "b":
		return models.InningBottom, nil
	}
	return "", fmt.Errorf("unknown inning half %q", s)
}

// sidesFor resolves the batting and pitching clubs of a plate appearance.
func sidesFor(e *models.PlateAppearance) (batting, pitching string, err error) {
	half, err := ParseInningHalf(e.InningHalf)
	if err != nil {
		return "", "", err
	}
	home, away := NormalizeTeam(e.HomeTeam), NormalizeTeam(e.AwayTeam)
	if halfInningBatsHome[half] {
		return home, away, nil
	}
	return away, home, nil
}
