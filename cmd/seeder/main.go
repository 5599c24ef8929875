// Command seeder posts synthetic plate appearances to a running API so the
// derivation and prediction chain has data to work with in development.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/diamondline/props-api/internal/models"
)

type team struct {
	code     string
	batters  []int64
	starters []int64
}

var teams = []team{
	{"NYY", []int64{592450, 665742, 650402, 683011, 596142, 624431, 668939, 669224, 691176}, []int64{543037, 641482}},
	{"BOS", []int64{646240, 680776, 671213, 657077, 666915, 596019, 643217, 678882, 682663}, []int64{678394, 676979}},
	{"LAD", []int64{660271, 605141, 518692, 571970, 681546, 669257, 608369, 666158, 677551}, []int64{808967, 607192}},
	{"SF", []int64{808982, 670623, 666182, 571657, 663694, 641313, 670712, 657557, 681296}, []int64{657277, 605483}},
}

// Outcome mix loosely shaped like a league-average plate appearance.
var outcomeWeights = []struct {
	outcome string
	weight  int
}{
	{models.OutcomeFieldOut, 38},
	{models.OutcomeStrikeout, 22},
	{models.OutcomeSingle, 14},
	{models.OutcomeWalk, 8},
	{models.OutcomeDouble, 4},
	{models.OutcomeHomeRun, 3},
	{models.OutcomeGroundedIntoDoublePlay, 2},
	{models.OutcomeForceOut, 2},
	{models.OutcomeHitByPitch, 1},
	{models.OutcomeSacFly, 1},
	{models.OutcomeTriple, 1},
}

func main() {
	apiURL := flag.String("url", "http://localhost:8080/api/v1/ingest/events", "ingest endpoint")
	days := flag.Int("days", 20, "number of game days to generate")
	end := flag.String("end", time.Now().UTC().Format("2006-01-02"), "last game date (YYYY-MM-DD)")
	seed := flag.Int64("seed", 42, "random seed")
	chunk := flag.Int("chunk", 500, "plate appearances per request")
	flag.Parse()

	last, err := models.ParseDate(*end)
	if err != nil {
		log.Fatalf("Invalid end date: %v", err)
	}

	rng := rand.New(rand.NewSource(*seed))
	events := generate(rng, last.AddDate(0, 0, -(*days-1)), *days)
	log.Printf("Generated %d plate appearances over %d days", len(events), *days)

	client := &http.Client{Timeout: 10 * time.Second}
	accepted := 0
	for start := 0; start < len(events); start += *chunk {
		stop := min(start+*chunk, len(events))
		n, err := post(client, *apiURL, events[start:stop])
		if err != nil {
			log.Fatalf("Failed to post batch at %d: %v", start, err)
		}
		accepted += n
	}
	log.Printf("Injection finished: %d of %d accepted", accepted, len(events))
}

// generate plays one game per team pairing each day, alternating home and
// away.
func generate(rng *rand.Rand, first time.Time, days int) []models.PlateAppearance {
	var out []models.PlateAppearance
	gamePK := int64(800000)
	for d := 0; d < days; d++ {
		date := first.AddDate(0, 0, d)
		for pair := 0; pair < len(teams); pair += 2 {
			home, away := teams[pair], teams[pair+1]
			if d%2 == 1 {
				home, away = away, home
			}
			gamePK++
			out = append(out, playGame(rng, date, gamePK, home, away, d)...)
		}
	}
	return out
}

func playGame(rng *rand.Rand, date time.Time, gamePK int64, home, away team, day int) []models.PlateAppearance {
	var out []models.PlateAppearance
	atBat := 0
	lineup := map[string]int{}
	for inning := 1; inning <= 9; inning++ {
		for _, half := range []models.InningHalf{models.InningTop, models.InningBottom} {
			batting, pitching := away, home
			if half == models.InningBottom {
				batting, pitching = home, away
			}
			pitcher := pitching.starters[day%len(pitching.starters)]
			outs := 0
			for outs < 3 {
				atBat++
				slot := lineup[batting.code] % len(batting.batters)
				lineup[batting.code]++

				outcome := pickOutcome(rng)
				pa := models.PlateAppearance{
					GameDate:    date,
					GamePK:      gamePK,
					AtBatNumber: atBat,
					BatterID:    batting.batters[slot],
					PitcherID:   pitcher,
					Outcome:     outcome,
					Stand:       hand(batting.batters[slot], 5),
					PThrows:     hand(pitcher, 3),
					HomeTeam:    home.code,
					AwayTeam:    away.code,
					InningHalf:  string(half),
				}
				if outcome != models.OutcomeHomeRun && outcome != models.OutcomeStrikeout && rng.Intn(6) == 0 {
					pa.Description = fmt.Sprintf("Batter %d reaches; runner scores.", pa.BatterID)
				}
				out = append(out, pa)

				switch outcome {
				case models.OutcomeGroundedIntoDoublePlay:
					outs += 2
				case models.OutcomeFieldOut, models.OutcomeStrikeout, models.OutcomeForceOut, models.OutcomeSacFly:
					outs++
				}
			}
		}
	}
	return out
}

func pickOutcome(rng *rand.Rand) string {
	total := 0
	for _, w := range outcomeWeights {
		total += w.weight
	}
	n := rng.Intn(total)
	for _, w := range outcomeWeights {
		if n < w.weight {
			return w.outcome
		}
		n -= w.weight
	}
	return models.OutcomeFieldOut
}

// hand gives every player a fixed side: one in every n ids is left-handed.
func hand(id int64, n int64) string {
	if id%n == 0 {
		return "L"
	}
	return "R"
}

func post(client *http.Client, url string, events []models.PlateAppearance) (int, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range events {
		if err := enc.Encode(&events[i]); err != nil {
			return 0, err
		}
	}

	req, err := http.NewRequest("POST", url, &buf)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/x-ndjson")

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusAccepted {
		return 0, fmt.Errorf("status %s: %s", resp.Status, body)
	}
	var result struct {
		Processed int `json:"processed"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	return result.Processed, nil
}
