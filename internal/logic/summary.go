package logic

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/diamondline/props-api/internal/models"
)

// safeDiv returns 0 for a zero denominator instead of NaN or Inf.
func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}

// scopeYear returns the season year of a scope, or 0 for career.
func scopeYear(scope string) (int, error) {
	if scope == models.ScopeCareer {
		return 0, nil
	}
	year, err := strconv.Atoi(scope)
	if err != nil || year < 1871 {
		return 0, fmt.Errorf("invalid summary scope %q", scope)
	}
	return year, nil
}

// SeasonScope formats a season year as a summary scope.
func SeasonScope(year int) string {
	return strconv.Itoa(year)
}

// SummarizeBatters sums batter games per player within scope and derives
// rate stats from the sums.
func SummarizeBatters(games []models.BatterGame, scope string) ([]models.BatterSummary, error) {
	year, err := scopeYear(scope)
	if err != nil {
		return nil, err
	}

	acc := make(map[int64]*models.BatterSummary)
	for _, g := range games {
		if year != 0 && g.GameDate.Year() != year {
			continue
		}
		s, ok := acc[g.PlayerID]
		if !ok {
			s = &models.BatterSummary{PlayerID: g.PlayerID, Scope: scope}
			acc[g.PlayerID] = s
		}
		s.Games++
		s.PlateAppearances += g.PlateAppearances
		s.AtBats += g.AtBats
		s.Hits += g.Hits
		s.Walks += g.Walks
		s.Strikeouts += g.Strikeouts
		s.Runs += g.Runs
		s.TotalBases += g.TotalBases
	}

	out := make([]models.BatterSummary, 0, len(acc))
	for _, s := range acc {
		ab, h, bb := float64(s.AtBats), float64(s.Hits), float64(s.Walks)
		obp := safeDiv(h+bb, ab+bb)
		slg := safeDiv(float64(s.TotalBases), ab)
		s.Avg = round3(safeDiv(h, ab))
		s.OBP = round3(obp)
		s.SLG = round3(slg)
		s.OPS = round3(obp + slg)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out, nil
}

// SummarizePitchers sums pitcher games per player within scope and derives
// ERA, WHIP, H9 and BAA.
func SummarizePitchers(games []models.PitcherGame, scope string) ([]models.PitcherSummary, error) {
	year, err := scopeYear(scope)
	if err != nil {
		return nil, err
	}

	acc := make(map[int64]*models.PitcherSummary)
	for _, g := range games {
		if year != 0 && g.GameDate.Year() != year {
			continue
		}
		s, ok := acc[g.PlayerID]
		if !ok {
			s = &models.PitcherSummary{PlayerID: g.PlayerID, Scope: scope}
			acc[g.PlayerID] = s
		}
		s.Games++
		s.Outs += g.Outs
		s.Strikeouts += g.Strikeouts
		s.HitsAllowed += g.HitsAllowed
		s.WalksAllowed += g.WalksAllowed
		s.RunsAllowed += g.RunsAllowed
		s.AtBatsAgainst += g.AtBatsAgainst
	}

	out := make([]models.PitcherSummary, 0, len(acc))
	for _, s := range acc {
		ip := float64(s.Outs) / 3.0
		h := float64(s.HitsAllowed)
		s.InningsPitched = ip
		s.ERA = round3(safeDiv(9*float64(s.RunsAllowed), ip))
		s.WHIP = round3(safeDiv(float64(s.WalksAllowed)+h, ip))
		s.H9 = round3(safeDiv(9*h, ip))
		s.BAA = round3(safeDiv(h, float64(s.AtBatsAgainst)))
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out, nil
}

// DeriveSummaryStats computes batter and pitcher summaries for one scope:
// "career" or a season year.
func DeriveSummaryStats(batters []models.BatterGame, pitchers []models.PitcherGame, scope string) ([]models.BatterSummary, []models.PitcherSummary, error) {
	bs, err := SummarizeBatters(batters, scope)
	if err != nil {
		return nil, nil, err
	}
	ps, err := SummarizePitchers(pitchers, scope)
	if err != nil {
		return nil, nil, err
	}
	return bs, ps, nil
}

// seasonsIn lists the distinct years present across both roles, ascending.
func seasonsIn(batters []models.BatterGame, pitchers []models.PitcherGame) []int {
	seen := make(map[int]struct{})
	for _, g := range batters {
		seen[g.GameDate.Year()] = struct{}{}
	}
	for _, g := range pitchers {
		seen[g.GameDate.Year()] = struct{}{}
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}
