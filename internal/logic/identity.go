package logic

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/diamondline/props-api/internal/models"
)

// Match confidences by tier.
const (
	ConfidenceExact     = 1.0
	ConfidenceInitial   = 0.8
	ConfidenceSubstring = 0.6
)

var nameReplacer = strings.NewReplacer(".", "", "'", "", "-", " ")

// NormalizeName folds a player name for matching: accents stripped, lower
// case, periods and apostrophes dropped, hyphens turned into spaces.
func NormalizeName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	folded = nameReplacer.Replace(strings.ToLower(folded))
	return strings.Join(strings.Fields(folded), " ")
}

type rosterEntry struct {
	player models.Player
	norm   string
	tokens []string
}

// IdentityResolver maps odds-provider names onto roster ids.
type IdentityResolver struct {
	roster RosterSource
	logger *zap.SugaredLogger

	mu         sync.Mutex
	entries    []rosterEntry
	loaded     bool
	unresolved map[string]struct{}
}

func NewIdentityResolver(roster RosterSource, logger *zap.SugaredLogger) *IdentityResolver {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &IdentityResolver{
		roster:     roster,
		logger:     logger,
		unresolved: make(map[string]struct{}),
	}
}

// Refresh reloads the roster.
func (r *IdentityResolver) Refresh(ctx context.Context) error {
	players, err := r.roster.Players(ctx)
	if err != nil {
		return err
	}
	entries := make([]rosterEntry, 0, len(players))
	for _, p := range players {
		n := NormalizeName(p.FullName)
		if n == "" {
			continue
		}
		entries = append(entries, rosterEntry{player: p, norm: n, tokens: strings.Fields(n)})
	}

	r.mu.Lock()
	r.entries, r.loaded = entries, true
	r.mu.Unlock()
	return nil
}

func (r *IdentityResolver) snapshot(ctx context.Context) ([]rosterEntry, error) {
	r.mu.Lock()
	loaded := r.loaded
	r.mu.Unlock()
	if !loaded {
		if err := r.Refresh(ctx); err != nil {
			return nil, fmt.Errorf("load roster: %w", err)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries, nil
}

// Resolve returns the roster player for name with a confidence score. Names
// matching nothing return ErrNotFound; names matching several players at the
// best tier return ErrAmbiguous. Both are remembered in Unresolved.
func (r *IdentityResolver) Resolve(ctx context.Context, name string) (*models.PlayerMatch, error) {
	entries, err := r.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	q := NormalizeName(name)
	if q == "" {
		return nil, fmt.Errorf("empty name: %w", ErrNotFound)
	}
	qTokens := strings.Fields(q)

	tiers := []struct {
		confidence float64
		match      func(e *rosterEntry) bool
	}{
		{ConfidenceExact, func(e *rosterEntry) bool { return e.norm == q }},
		{ConfidenceInitial, func(e *rosterEntry) bool { return initialMatch(qTokens, e.tokens) }},
		{ConfidenceSubstring, func(e *rosterEntry) bool {
			return strings.Contains(e.norm, q) || strings.Contains(q, e.norm)
		}},
	}

	for _, tier := range tiers {
		var hits []*rosterEntry
		for i := range entries {
			if tier.match(&entries[i]) {
				hits = append(hits, &entries[i])
			}
		}
		switch {
		case len(hits) == 1:
			return &models.PlayerMatch{
				PlayerID:   hits[0].player.ID,
				FullName:   hits[0].player.FullName,
				Confidence: tier.confidence,
			}, nil
		case len(hits) > 1:
			r.markUnresolved(name)
			r.logger.Warnw("Ambiguous player name", "name", name, "candidates", len(hits))
			return nil, fmt.Errorf("%q matches %d players: %w", name, len(hits), ErrAmbiguous)
		}
	}

	r.markUnresolved(name)
	r.logger.Warnw("Unresolved player name", "name", name)
	return nil, fmt.Errorf("player %q: %w", name, ErrNotFound)
}

// initialMatch accepts "J. Rodriguez" or "Jul Rodriguez" against "julio
// rodriguez": same last token, and one first token is an initial or prefix of
// the other. A conflicting full first name never matches.
func initialMatch(q, c []string) bool {
	if len(q) < 2 || len(c) < 2 {
		return false
	}
	if q[len(q)-1] != c[len(c)-1] {
		return false
	}
	qFirst, cFirst := q[0], c[0]
	if len(qFirst) == 1 {
		return qFirst[0] == cFirst[0]
	}
	return strings.HasPrefix(cFirst, qFirst) || strings.HasPrefix(qFirst, cFirst)
}

func (r *IdentityResolver) markUnresolved(name string) {
	r.mu.Lock()
	r.unresolved[name] = struct{}{}
	r.mu.Unlock()
}

// Unresolved lists every name that failed to resolve, sorted.
func (r *IdentityResolver) Unresolved() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.unresolved))
	for n := range r.unresolved {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
