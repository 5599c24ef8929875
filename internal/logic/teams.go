package logic

import "strings"

// parkFactors holds run-environment multipliers keyed by home club.
var parkFactors = map[string]float64{
	"ARI": 1.02, "ATL": 0.99, "BAL": 0.95, "BOS": 1.03, "CHC": 1.01,
	"CIN": 1.04, "CLE": 1.00, "COL": 1.15, "CWS": 0.98, "DET": 0.99,
	"HOU": 1.01, "KC": 1.02, "LAA": 1.00, "LAD": 0.98, "MIA": 0.95,
	"MIL": 1.00, "MIN": 1.01, "NYM": 0.97, "NYY": 1.02, "OAK": 0.94,
	"PHI": 1.01, "PIT": 0.98, "SD": 0.95, "SEA": 0.97, "SF": 0.96,
	"STL": 1.00, "TB": 0.94, "TEX": 1.04, "TOR": 1.03, "WSH": 0.99,
}

const defaultParkFactor = 1.00

// teamCodes is the categorical encoding the models were trained with.
var teamCodes = map[string]int{
	"ARI": 0, "ATL": 1, "BAL": 2, "BOS": 3, "CHC": 4,
	"CIN": 5, "CLE": 6, "COL": 7, "CWS": 8, "DET": 9,
	"HOU": 10, "KC": 11, "LAA": 12, "LAD": 13, "MIA": 14,
	"MIL": 15, "MIN": 16, "NYM": 17, "NYY": 18, "OAK": 19,
	"PHI": 20, "PIT": 21, "SD": 22, "SEA": 23, "SF": 24,
	"STL": 25, "TB": 26, "TEX": 27, "TOR": 28, "WSH": 29,
}

var handCodes = map[string]int{
	"L": 0,
	"R": 1,
}

// Alternate abbreviations seen across Statcast, the Stats API and books.
var teamAliases = map[string]string{
	"AZ":  "ARI",
	"CHW": "CWS",
	"KCR": "KC",
	"SDP": "SD",
	"SFG": "SF",
	"TBR": "TB",
	"WSN": "WSH",
	"WAS": "WSH",
	"ATH": "OAK",
}

// NormalizeTeam upper-cases an abbreviation and folds known aliases.
func NormalizeTeam(team string) string {
	t := strings.ToUpper(strings.TrimSpace(team))
	if canonical, ok := teamAliases[t]; ok {
		return canonical
	}
	return t
}

// ParkFactor returns the factor for a home club, 1.00 when unknown.
func ParkFactor(homeTeam string) float64 {
	if f, ok := parkFactors[NormalizeTeam(homeTeam)]; ok {
		return f
	}
	return defaultParkFactor
}

// encodeTeam returns the team code and whether it was a real lookup.
// Unknown teams encode as 0.
func encodeTeam(team string) (float64, bool) {
	code, ok := teamCodes[NormalizeTeam(team)]
	return float64(code), ok
}

// encodeHand returns the handedness code and whether it was a real lookup.
// Unknown hands encode as 0.
func encodeHand(hand string) (float64, bool) {
	code, ok := handCodes[strings.ToUpper(strings.TrimSpace(hand))]
	return float64(code), ok
}
