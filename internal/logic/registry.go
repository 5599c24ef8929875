package logic

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"

	"github.com/diamondline/props-api/internal/models"
)

// ScoringFunc is a trained model: a pure mapping from an ordered feature
// vector to an estimate.
type ScoringFunc interface {
	Version() string
	// Features lists the inputs Score expects, in order.
	Features() []string
	Score(x []float64) (float64, error)
}

// Feature orders the shipped models were trained on.
var (
	BatterModelFeatures = []string{
		models.FeatureBatterHits5G,
		models.FeaturePitcherHitsAllowed5G,
		models.FeatureIsSameSide,
		models.FeatureStand,
		models.FeaturePThrows,
		models.FeatureBatterTeam,
		models.FeaturePitcherTeam,
		models.FeatureIsHomeGame,
		models.FeatureDayOfWeek,
		models.FeatureParkFactor,
	}
	PitcherModelFeatures = []string{
		models.FeaturePitcherHitsAllowed5G,
		models.FeaturePThrows,
		models.FeaturePitcherTeam,
		models.FeatureBatterTeam,
		models.FeatureIsHomeGame,
		models.FeatureDayOfWeek,
		models.FeatureParkFactor,
	}
)

// DefaultFeatures returns the trained feature order for a prop type.
func DefaultFeatures(prop models.PropType) []string {
	if prop.Role() == models.RolePitcher {
		return PitcherModelFeatures
	}
	return BatterModelFeatures
}

// Rolling features the resolver also fills, beyond the trained order.
var extraFeatures = map[models.Role][]string{
	models.RoleBatter:  {models.FeatureBatterTotalBases5G, models.FeatureBatterRuns5G},
	models.RolePitcher: {models.FeaturePitcherStrikeouts5G, models.FeaturePitcherOuts5G},
}

// resolvedFeature reports whether the resolver fills name for prop's role.
func resolvedFeature(prop models.PropType, name string) bool {
	return slices.Contains(DefaultFeatures(prop), name) || slices.Contains(extraFeatures[prop.Role()], name)
}

// Link functions applied to the linear predictor.
const (
	LinkIdentity   = "identity"
	LinkLog        = "log"
	LinkLogistic   = "logistic"
	LinkPoissonHit = "poisson_hit"
)

// LinearModel is a generalized linear model artifact.
type LinearModel struct {
	PropType     models.PropType `json:"prop_type"`
	ModelVersion string          `json:"version"`
	FeatureNames []string        `json:"features"`
	Coefficients []float64       `json:"coefficients"`
	Intercept    float64         `json:"intercept"`
	Link         string          `json:"link"`
}

func (m *LinearModel) Version() string    { return m.ModelVersion }
func (m *LinearModel) Features() []string { return m.FeatureNames }

func (m *LinearModel) validate() error {
	if !m.PropType.Valid() {
		return fmt.Errorf("%w: %q", ErrUnsupportedProp, m.PropType)
	}
	if len(m.FeatureNames) == 0 || len(m.FeatureNames) != len(m.Coefficients) {
		return fmt.Errorf("model %s: %d features but %d coefficients", m.PropType, len(m.FeatureNames), len(m.Coefficients))
	}
	for _, name := range m.FeatureNames {
		if !resolvedFeature(m.PropType, name) {
			return fmt.Errorf("model %s: feature %q is never resolved for a %s: %w", m.PropType, name, m.PropType.Role(), ErrMissingFeature)
		}
	}
	switch m.Link {
	case "", LinkIdentity, LinkLog, LinkLogistic, LinkPoissonHit:
		return nil
	}
	return fmt.Errorf("model %s: unknown link %q", m.PropType, m.Link)
}

func (m *LinearModel) Score(x []float64) (float64, error) {
	if len(x) != len(m.Coefficients) {
		return 0, fmt.Errorf("model %s expects %d features, got %d", m.PropType, len(m.Coefficients), len(x))
	}
	z := m.Intercept
	for i, c := range m.Coefficients {
		z += c * x[i]
	}

	switch m.Link {
	case LinkLog:
		return math.Exp(z), nil
	case LinkLogistic:
		return 1 / (1 + math.Exp(-z)), nil
	case LinkPoissonHit:
		// z is the expected hit count; the estimate is P(at least one hit).
		return 1 - math.Exp(-math.Max(z, 0)), nil
	default:
		return z, nil
	}
}

// ScorerFunc adapts a plain function to ScoringFunc.
type ScorerFunc struct {
	Names []string
	Ver   string
	Fn    func(x []float64) float64
}

func (s ScorerFunc) Version() string                    { return s.Ver }
func (s ScorerFunc) Features() []string                 { return s.Names }
func (s ScorerFunc) Score(x []float64) (float64, error) { return s.Fn(x), nil }

// ModelRegistry maps prop types to scoring functions. It is built once at
// startup and handed to the PredictionEngine.
type ModelRegistry struct {
	mu     sync.RWMutex
	models map[models.PropType]ScoringFunc
}

func NewModelRegistry() *ModelRegistry {
	return &ModelRegistry{models: make(map[models.PropType]ScoringFunc)}
}

// Register installs fn for prop, replacing any previous model.
func (r *ModelRegistry) Register(prop models.PropType, fn ScoringFunc) error {
	if !prop.Valid() {
		return fmt.Errorf("%w: %q", ErrUnsupportedProp, prop)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[prop] = fn
	return nil
}

// Lookup returns the scoring function registered for prop.
func (r *ModelRegistry) Lookup(prop models.PropType) (ScoringFunc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.models[prop]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModelNotLoaded, prop)
	}
	return fn, nil
}

// PropTypes lists registered prop types in sorted order.
func (r *ModelRegistry) PropTypes() []models.PropType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.PropType, 0, len(r.models))
	for p := range r.models {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// LoadModelRegistry reads every *.json LinearModel artifact in dir.
func LoadModelRegistry(dir string) (*ModelRegistry, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	reg := NewModelRegistry()
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read model %s: %w", path, err)
		}
		var m LinearModel
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("parse model %s: %w", path, err)
		}
		if err := m.validate(); err != nil {
			return nil, fmt.Errorf("model %s: %w", path, err)
		}
		if err := reg.Register(m.PropType, &m); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
