package logic

import (
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/diamondline/props-api/internal/models"
)

// gameKey identifies one player on one calendar date. Doubleheaders collapse
// into a single key.
type gameKey struct {
	playerID int64
	day      int64
}

// paSeq orders plate appearances inside a date.
type paSeq struct {
	gamePK int64
	atBat  int
}

func (s paSeq) after(o paSeq) bool {
	if s.gamePK != o.gamePK {
		return s.gamePK > o.gamePK
	}
	return s.atBat >= o.atBat
}

type batterAcc struct {
	game   models.BatterGame
	seq    paSeq
	hasCtx bool
}

type pitcherAcc struct {
	game   models.PitcherGame
	seq    paSeq
	hasCtx bool
}

// AggregateResult is the output of a GameAggregator.
type AggregateResult struct {
	Batters  []models.BatterGame
	Pitchers []models.PitcherGame
	Events   int
	Skipped  int
}

// GameAggregator folds plate appearances into per-game batter and pitcher
// rows. It accepts events one at a time so callers can stream from the store.
type GameAggregator struct {
	batters  map[gameKey]*batterAcc
	pitchers map[gameKey]*pitcherAcc
	events   int
	skipped  int
	logger   *zap.SugaredLogger
}

func NewGameAggregator(logger *zap.SugaredLogger) *GameAggregator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &GameAggregator{
		batters:  make(map[gameKey]*batterAcc),
		pitchers: make(map[gameKey]*pitcherAcc),
		logger:   logger,
	}
}

var (
	errNoGameDate = errors.New("missing game date")
	errNoBatter   = errors.New("missing batter id")
	errNoPitcher  = errors.New("missing pitcher id")
	errNoTeams    = errors.New("missing home or away team")
	errNoOutcome  = errors.New("missing outcome")
)

func checkPlateAppearance(e *models.PlateAppearance) error {
	switch {
	case e.GameDate.IsZero():
		return errNoGameDate
	case e.BatterID <= 0:
		return errNoBatter
	case e.PitcherID <= 0:
		return errNoPitcher
	case e.HomeTeam == "" || e.AwayTeam == "":
		return errNoTeams
	case e.Outcome == "":
		return errNoOutcome
	}
	return nil
}

// Add folds one plate appearance. Malformed rows are counted, logged and
// skipped; they never fail the run.
func (a *GameAggregator) Add(e *models.PlateAppearance) {
	a.events++

	if err := checkPlateAppearance(e); err != nil {
		a.skip(e, err)
		return
	}
	batting, pitching, err := sidesFor(e)
	if err != nil {
		a.skip(e, err)
		return
	}

	home := NormalizeTeam(e.HomeTeam)
	date := time.Date(e.GameDate.Year(), e.GameDate.Month(), e.GameDate.Day(), 0, 0, 0, 0, time.UTC)
	gamePK, atBat := e.Sequence()
	seq := paSeq{gamePK: gamePK, atBat: atBat}
	dow := mondayFirstWeekday(date)
	park := ParkFactor(home)

	hit := isHit(e.Outcome)
	scored := batterScored(e.Outcome, e.Description)
	strikeout := isStrikeout(e.Outcome)
	walk := e.Outcome == models.OutcomeWalk
	countsAB := isAtBat(e.Outcome)

	bk := gameKey{playerID: e.BatterID, day: date.Unix()}
	b, ok := a.batters[bk]
	if !ok {
		b = &batterAcc{game: models.BatterGame{PlayerID: e.BatterID, GameDate: date}}
		a.batters[bk] = b
	}
	bg := &b.game
	bg.PlateAppearances++
	if countsAB {
		bg.AtBats++
	}
	if hit {
		bg.Hits++
	}
	bg.TotalBases += totalBases(e.Outcome)
	if scored {
		bg.Runs++
	}
	if strikeout {
		bg.Strikeouts++
	}
	if walk {
		bg.Walks++
	}
	if !b.hasCtx || seq.after(b.seq) {
		b.seq, b.hasCtx = seq, true
		bg.Team = batting
		bg.OpponentTeam = pitching
		bg.IsHome = batting == home
		bg.DayOfWeek = dow
		bg.ParkFactor = park
		bg.Stand = e.Stand
		bg.PThrows = e.PThrows
		bg.IsSameSide = e.Stand != "" && e.Stand == e.PThrows
		bg.OpposingPitcherID = e.PitcherID
	}

	pk := gameKey{playerID: e.PitcherID, day: date.Unix()}
	p, ok := a.pitchers[pk]
	if !ok {
		p = &pitcherAcc{game: models.PitcherGame{PlayerID: e.PitcherID, GameDate: date}}
		a.pitchers[pk] = p
	}
	pg := &p.game
	pg.BattersFaced++
	if countsAB {
		pg.AtBatsAgainst++
	}
	if isPitcherOut(e.Outcome) {
		pg.Outs++
	}
	if strikeout {
		pg.Strikeouts++
	}
	if hit {
		pg.HitsAllowed++
	}
	if walk {
		pg.WalksAllowed++
	}
	if scored {
		pg.RunsAllowed++
	}
	if !p.hasCtx || seq.after(p.seq) {
		p.seq, p.hasCtx = seq, true
		pg.Team = pitching
		pg.OpponentTeam = batting
		pg.IsHome = pitching == home
		pg.DayOfWeek = dow
		pg.ParkFactor = park
		pg.PThrows = e.PThrows
	}
}

func (a *GameAggregator) skip(e *models.PlateAppearance, err error) {
	a.skipped++
	eventsSkipped.Inc()
	a.logger.Warnw("Skipping malformed plate appearance",
		"error", err,
		"gameDate", e.GameDate,
		"gamePk", e.GamePK,
		"batter", e.BatterID,
		"pitcher", e.PitcherID,
	)
}

// Result returns the aggregates sorted by (player, game_date).
func (a *GameAggregator) Result() AggregateResult {
	res := AggregateResult{
		Batters:  make([]models.BatterGame, 0, len(a.batters)),
		Pitchers: make([]models.PitcherGame, 0, len(a.pitchers)),
		Events:   a.events,
		Skipped:  a.skipped,
	}
	for _, b := range a.batters {
		res.Batters = append(res.Batters, b.game)
	}
	for _, p := range a.pitchers {
		g := p.game
		g.InningsPitched = float64(g.Outs) / 3.0
		res.Pitchers = append(res.Pitchers, g)
	}

	sort.Slice(res.Batters, func(i, j int) bool {
		return lessPlayerDate(res.Batters[i].PlayerID, res.Batters[i].GameDate, res.Batters[j].PlayerID, res.Batters[j].GameDate)
	})
	sort.Slice(res.Pitchers, func(i, j int) bool {
		return lessPlayerDate(res.Pitchers[i].PlayerID, res.Pitchers[i].GameDate, res.Pitchers[j].PlayerID, res.Pitchers[j].GameDate)
	})
	return res
}

// DeriveGameAggregates folds a full event snapshot into game aggregates.
func DeriveGameAggregates(events []models.PlateAppearance, logger *zap.SugaredLogger) AggregateResult {
	agg := NewGameAggregator(logger)
	for i := range events {
		agg.Add(&events[i])
	}
	return agg.Result()
}

func lessPlayerDate(p1 int64, d1 time.Time, p2 int64, d2 time.Time) bool {
	if p1 != p2 {
		return p1 < p2
	}
	return d1.Before(d2)
}

// mondayFirstWeekday returns 0 for Monday through 6 for Sunday.
func mondayFirstWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
