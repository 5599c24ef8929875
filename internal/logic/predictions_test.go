package logic

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/diamondline/props-api/internal/models"
)

type mockPublisher struct {
	published []*models.Prediction
	err       error
}

func (m *mockPublisher) PublishPrediction(ctx context.Context, p *models.Prediction) error {
	m.published = append(m.published, p)
	return m.err
}

func constantModel(estimate float64, names ...string) ScorerFunc {
	return ScorerFunc{Names: names, Ver: "test-1", Fn: func([]float64) float64 { return estimate }}
}

func newTestEngine(t *testing.T, prop models.PropType, model ScoringFunc) (*PredictionEngine, *MemoryPredictionSink, *mockPublisher) {
	t.Helper()
	reg := NewModelRegistry()
	if err := reg.Register(prop, model); err != nil {
		t.Fatalf("Register: %v", err)
	}
	sink := &MemoryPredictionSink{}
	pub := &mockPublisher{}
	engine := NewPredictionEngine(EngineConfig{
		Registry:  reg,
		Log:       sink,
		Publisher: pub,
		Now:       func() time.Time { return time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC) },
	})
	return engine, sink, pub
}

func batterVector() *models.FeatureVector {
	return &models.FeatureVector{
		PlayerID: 660271,
		Role:     models.RoleBatter,
		AsOf:     day(2024, 6, 1),
		Values: map[string]float64{
			models.FeatureBatterHits5G:         1.2,
			models.FeaturePitcherHitsAllowed5G: 6,
			models.FeatureParkFactor:           1.02,
		},
		Fallbacks: []string{models.FeaturePitcherTeam},
	}
}

func TestVerdictFor(t *testing.T) {
	tests := []struct {
		estimate, line float64
		want           models.Verdict
	}{
		{3.2, 3.2, models.VerdictOver},
		{3.3, 3.2, models.VerdictOver},
		{3.19, 3.2, models.VerdictUnder},
		{0, 0.5, models.VerdictUnder},
	}
	for _, tt := range tests {
		if got := VerdictFor(tt.estimate, tt.line); got != tt.want {
			t.Errorf("VerdictFor(%v, %v) = %s, want %s", tt.estimate, tt.line, got, tt.want)
		}
	}
}

func TestPredict_EqualLineIsOver(t *testing.T) {
	engine, sink, pub := newTestEngine(t, models.PropStrikeouts, constantModel(3.2, models.FeaturePitcherHitsAllowed5G))
	fv := batterVector()

	p, err := engine.Predict(context.Background(), fv, models.PropStrikeouts, models.Line{Value: 3.2, AmericanOdds: intPtr(-115)})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if p.Verdict != models.VerdictOver {
		t.Errorf("verdict = %s, want OVER", p.Verdict)
	}
	if len(sink.Rows) != 1 {
		t.Fatalf("log rows = %d, want 1", len(sink.Rows))
	}
	row := sink.Rows[0]
	if row.Seq != 1 || row.ModelVersion != "test-1" || row.Line != 3.2 || *row.AmericanOdds != -115 {
		t.Errorf("logged row = %+v", row)
	}
	if len(row.Fallbacks) != 1 || row.Fallbacks[0] != models.FeaturePitcherTeam {
		t.Errorf("fallbacks = %v, want pitcher_team carried through", row.Fallbacks)
	}
	if !row.GameDate.Equal(fv.AsOf) {
		t.Errorf("game date = %s, want %s", row.GameDate, fv.AsOf)
	}
	if len(pub.published) != 1 {
		t.Errorf("published %d predictions, want 1", len(pub.published))
	}
}

func TestPredict_DisplayEstimateRounded(t *testing.T) {
	engine, sink, _ := newTestEngine(t, models.PropHits, constantModel(0.61234, models.FeatureBatterHits5G))
	p, err := engine.Predict(context.Background(), batterVector(), models.PropHits, models.Line{Value: 0.5})
	if err != nil {
		t.Fatal(err)
	}
	if p.Estimate != 0.61234 || p.DisplayEstimate != 0.612 {
		t.Errorf("estimate = %v display = %v", p.Estimate, p.DisplayEstimate)
	}
	if sink.Rows[0].AmericanOdds != nil {
		t.Error("unpriced line logged with odds")
	}
}

func TestPredict_RejectsWithoutAppending(t *testing.T) {
	tests := []struct {
		name    string
		model   ScoringFunc
		prop    models.PropType
		lookup  models.PropType
		line    models.Line
		wantErr error
	}{
		{
			name:    "missing feature",
			model:   constantModel(1, models.FeatureBatterHits5G, models.FeatureStand),
			prop:    models.PropHits,
			lookup:  models.PropHits,
			line:    models.Line{Value: 0.5},
			wantErr: ErrMissingFeature,
		},
		{
			name:    "odds inside the dead zone",
			model:   constantModel(1, models.FeatureBatterHits5G),
			prop:    models.PropHits,
			lookup:  models.PropHits,
			line:    models.Line{Value: 0.5, AmericanOdds: intPtr(50)},
			wantErr: ErrInvalidOdds,
		},
		{
			name:    "zero odds",
			model:   constantModel(1, models.FeatureBatterHits5G),
			prop:    models.PropHits,
			lookup:  models.PropHits,
			line:    models.Line{Value: 0.5, AmericanOdds: intPtr(0)},
			wantErr: ErrInvalidOdds,
		},
		{
			name:    "negative line",
			model:   constantModel(1, models.FeatureBatterHits5G),
			prop:    models.PropHits,
			lookup:  models.PropHits,
			line:    models.Line{Value: -1},
			wantErr: ErrInvalidOdds,
		},
		{
			name:    "no model for prop",
			model:   constantModel(1, models.FeatureBatterHits5G),
			prop:    models.PropHits,
			lookup:  models.PropRuns,
			line:    models.Line{Value: 0.5},
			wantErr: ErrModelNotLoaded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, sink, pub := newTestEngine(t, tt.prop, tt.model)
			_, err := engine.Predict(context.Background(), batterVector(), tt.lookup, tt.line)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if len(sink.Rows) != 0 {
				t.Errorf("log has %d rows after a rejected prediction", len(sink.Rows))
			}
			if len(pub.published) != 0 {
				t.Error("rejected prediction was published")
			}
		})
	}
}

func TestPredict_NonFiniteEstimate(t *testing.T) {
	engine, sink, _ := newTestEngine(t, models.PropHits, constantModel(math.NaN(), models.FeatureBatterHits5G))
	if _, err := engine.Predict(context.Background(), batterVector(), models.PropHits, models.Line{Value: 0.5}); err == nil {
		t.Fatal("NaN estimate accepted")
	}
	if len(sink.Rows) != 0 {
		t.Error("NaN estimate was logged")
	}
}

func TestPredict_PublisherFailureIsNotFatal(t *testing.T) {
	engine, sink, pub := newTestEngine(t, models.PropHits, constantModel(0.7, models.FeatureBatterHits5G))
	pub.err = errors.New("broker down")
	if _, err := engine.Predict(context.Background(), batterVector(), models.PropHits, models.Line{Value: 0.5}); err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(sink.Rows) != 1 {
		t.Errorf("log rows = %d, want 1", len(sink.Rows))
	}
}

func TestPredict_SinkFailure(t *testing.T) {
	engine, sink, pub := newTestEngine(t, models.PropHits, constantModel(0.7, models.FeatureBatterHits5G))
	sink.Err = errors.New("connection reset")
	if _, err := engine.Predict(context.Background(), batterVector(), models.PropHits, models.Line{Value: 0.5}); err == nil {
		t.Fatal("sink failure swallowed")
	}
	if len(pub.published) != 0 {
		t.Error("prediction published without being logged")
	}
}

func TestOrderedFeatures(t *testing.T) {
	fv := batterVector()
	x, err := OrderedFeatures(fv, []string{models.FeatureParkFactor, models.FeatureBatterHits5G})
	if err != nil {
		t.Fatal(err)
	}
	if x[0] != 1.02 || x[1] != 1.2 {
		t.Errorf("ordered = %v, want [1.02 1.2]", x)
	}
}

func TestLinearModel_Links(t *testing.T) {
	tests := []struct {
		link string
		want float64
	}{
		{LinkIdentity, 1.5},
		{"", 1.5},
		{LinkLog, math.Exp(1.5)},
		{LinkLogistic, 1 / (1 + math.Exp(-1.5))},
		{LinkPoissonHit, 1 - math.Exp(-1.5)},
	}
	for _, tt := range tests {
		m := &LinearModel{
			PropType:     models.PropHits,
			FeatureNames: []string{"a", "b"},
			Coefficients: []float64{0.5, 1},
			Intercept:    0.5,
			Link:         tt.link,
		}
		got, err := m.Score([]float64{2, 0})
		if err != nil {
			t.Fatalf("link %q: %v", tt.link, err)
		}
		if !approxEqual(got, tt.want) {
			t.Errorf("link %q = %v, want %v", tt.link, got, tt.want)
		}
	}

	m := &LinearModel{PropType: models.PropHits, FeatureNames: []string{"a"}, Coefficients: []float64{1}}
	if _, err := m.Score([]float64{1, 2}); err == nil {
		t.Error("Score accepted a vector of the wrong width")
	}

	neg := &LinearModel{PropType: models.PropHits, FeatureNames: []string{"a"}, Coefficients: []float64{1}, Link: LinkPoissonHit}
	if got, _ := neg.Score([]float64{-3}); got != 0 {
		t.Errorf("poisson_hit with negative rate = %v, want 0", got)
	}
}

func TestLoadModelRegistry(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("hits.json", `{"prop_type":"hits","version":"hits-2024.1","features":["batter_hits_5g","park_factor"],"coefficients":[0.4,0.1],"intercept":-0.2,"link":"poisson_hit"}`)
	write("strikeouts.json", `{"prop_type":"strikeouts","version":"k-2024.1","features":["pitcher_hits_allowed_5g"],"coefficients":[0.1],"intercept":4.5}`)
	write("notes.txt", "ignored")

	reg, err := LoadModelRegistry(dir)
	if err != nil {
		t.Fatalf("LoadModelRegistry: %v", err)
	}
	got := reg.PropTypes()
	if len(got) != 2 || got[0] != models.PropHits || got[1] != models.PropStrikeouts {
		t.Errorf("prop types = %v", got)
	}
	m, err := reg.Lookup(models.PropHits)
	if err != nil {
		t.Fatal(err)
	}
	if m.Version() != "hits-2024.1" || len(m.Features()) != 2 {
		t.Errorf("hits model = %s %v", m.Version(), m.Features())
	}

	write("bad.json", `{"prop_type":"hits","version":"x","features":["a","b"],"coefficients":[1]}`)
	if _, err := LoadModelRegistry(dir); err == nil {
		t.Error("mismatched coefficients accepted")
	}
}

func TestModelRegistry_RejectsUnknownProp(t *testing.T) {
	reg := NewModelRegistry()
	if err := reg.Register("home_runs_allowed", constantModel(1)); !errors.Is(err, ErrUnsupportedProp) {
		t.Errorf("err = %v, want ErrUnsupportedProp", err)
	}
}

func TestDefaultFeatures(t *testing.T) {
	if got := DefaultFeatures(models.PropInningsPitched); got[0] != models.FeaturePitcherHitsAllowed5G {
		t.Errorf("pitcher features start with %s", got[0])
	}
	if got := DefaultFeatures(models.PropTotalBases); got[0] != models.FeatureBatterHits5G {
		t.Errorf("batter features start with %s", got[0])
	}
}

func TestLoadModelRegistry_RejectsUnresolvedFeature(t *testing.T) {
	tests := []struct {
		name     string
		artifact string
		wantErr  bool
	}{
		{"trained order", `{"prop_type":"runs","version":"r1","features":["batter_hits_5g","is_same_side"],"coefficients":[0.2,0.1]}`, false},
		{"role rolling extra", `{"prop_type":"strikeouts","version":"k1","features":["pitcher_strikeouts_5g","park_factor"],"coefficients":[0.9,0.5]}`, false},
		{"other role feature", `{"prop_type":"strikeouts","version":"k2","features":["batter_hits_5g"],"coefficients":[0.3]}`, true},
		{"unknown feature", `{"prop_type":"hits","version":"h1","features":["launch_angle"],"coefficients":[0.3]}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, "model.json"), []byte(tt.artifact), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadModelRegistry(dir)
			if tt.wantErr && !errors.Is(err, ErrMissingFeature) {
				t.Errorf("err = %v, want ErrMissingFeature", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
