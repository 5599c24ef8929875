package logic

import (
	"sort"

	"github.com/diamondline/props-api/internal/models"
)

// DefaultRollingWindow is the trailing game count for rolling features.
const DefaultRollingWindow = 5

// RollingMean returns the trailing mean of values over window entries with
// a minimum of one period, so the first value is its own mean. values must
// already be in chronological order.
func RollingMean(values []float64, window int) []float64 {
	if window <= 0 {
		window = DefaultRollingWindow
	}
	out := make([]float64, len(values))
	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		n := i + 1
		if n > window {
			n = window
		}
		out[i] = sum / float64(n)
	}
	return out
}

// playerSpans returns [start, end) index pairs for each run of equal player ids.
func playerSpans(n int, playerAt func(int) int64) [][2]int {
	var spans [][2]int
	start := 0
	for i := 1; i <= n; i++ {
		if i == n || playerAt(i) != playerAt(start) {
			if n > 0 {
				spans = append(spans, [2]int{start, i})
			}
			start = i
		}
	}
	return spans
}

// DeriveBatterRolling attaches rolling features to a copy of games. Rows are
// sorted by (player, game_date) before any window is computed.
func DeriveBatterRolling(games []models.BatterGame, window int) []models.BatterGame {
	out := make([]models.BatterGame, len(games))
	copy(out, games)
	sort.SliceStable(out, func(i, j int) bool {
		return lessPlayerDate(out[i].PlayerID, out[i].GameDate, out[j].PlayerID, out[j].GameDate)
	})

	for _, span := range playerSpans(len(out), func(i int) int64 { return out[i].PlayerID }) {
		rows := out[span[0]:span[1]]
		hits := make([]float64, len(rows))
		bases := make([]float64, len(rows))
		runs := make([]float64, len(rows))
		for i, r := range rows {
			hits[i] = float64(r.Hits)
			bases[i] = float64(r.TotalBases)
			runs[i] = float64(r.Runs)
		}
		hits, bases, runs = RollingMean(hits, window), RollingMean(bases, window), RollingMean(runs, window)
		for i := range rows {
			rows[i].Hits5G = hits[i]
			rows[i].TotalBases5G = bases[i]
			rows[i].Runs5G = runs[i]
		}
	}
	return out
}

// DerivePitcherRolling attaches rolling features to a copy of games.
func DerivePitcherRolling(games []models.PitcherGame, window int) []models.PitcherGame {
	out := make([]models.PitcherGame, len(games))
	copy(out, games)
	sort.SliceStable(out, func(i, j int) bool {
		return lessPlayerDate(out[i].PlayerID, out[i].GameDate, out[j].PlayerID, out[j].GameDate)
	})

	for _, span := range playerSpans(len(out), func(i int) int64 { return out[i].PlayerID }) {
		rows := out[span[0]:span[1]]
		hits := make([]float64, len(rows))
		ks := make([]float64, len(rows))
		outs := make([]float64, len(rows))
		for i, r := range rows {
			hits[i] = float64(r.HitsAllowed)
			ks[i] = float64(r.Strikeouts)
			outs[i] = float64(r.Outs)
		}
		hits, ks, outs = RollingMean(hits, window), RollingMean(ks, window), RollingMean(outs, window)
		for i := range rows {
			rows[i].HitsAllowed5G = hits[i]
			rows[i].Strikeouts5G = ks[i]
			rows[i].Outs5G = outs[i]
		}
	}
	return out
}
