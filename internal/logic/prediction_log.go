package logic

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/diamondline/props-api/internal/models"
)

// PredictionLog is the append-only prediction table. Rows are never updated;
// "latest" and "best edge" views are computed on read.
type PredictionLog struct {
	pg PgPool
}

func NewPredictionLog(pg PgPool) *PredictionLog {
	return &PredictionLog{pg: pg}
}

// Append inserts p as a single row and fills in its sequence number.
func (l *PredictionLog) Append(ctx context.Context, p *models.Prediction) error {
	err := l.pg.QueryRow(ctx, `
		INSERT INTO predictions (
			id, created_at, player_id, prop_type, game_date, line, american_odds,
			estimate, display_estimate, verdict, fallbacks, model_version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING seq
	`,
		p.ID, p.CreatedAt, p.PlayerID, string(p.PropType), p.GameDate, p.Line, p.AmericanOdds,
		p.Estimate, p.DisplayEstimate, string(p.Verdict), p.Fallbacks, p.ModelVersion,
	).Scan(&p.Seq)
	if err != nil {
		return fmt.Errorf("insert prediction: %w", err)
	}
	return nil
}

// List returns every prediction for prop created at or after since.
func (l *PredictionLog) List(ctx context.Context, prop models.PropType, since time.Time) ([]models.Prediction, error) {
	rows, err := l.pg.Query(ctx, `
		SELECT seq, id, created_at, player_id, prop_type, game_date, line, american_odds,
			estimate, display_estimate, verdict, COALESCE(fallbacks, '{}'), model_version
		FROM predictions
		WHERE prop_type = $1 AND created_at >= $2
		ORDER BY seq
	`, string(prop), since)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	var out []models.Prediction
	for rows.Next() {
		var (
			p                 models.Prediction
			propType, verdict string
		)
		if err := rows.Scan(
			&p.Seq, &p.ID, &p.CreatedAt, &p.PlayerID, &propType, &p.GameDate, &p.Line, &p.AmericanOdds,
			&p.Estimate, &p.DisplayEstimate, &verdict, &p.Fallbacks, &p.ModelVersion,
		); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		p.PropType = models.PropType(propType)
		p.Verdict = models.Verdict(verdict)
		out = append(out, p)
	}
	return out, rows.Err()
}

// LatestPerPlayer loads predictions for prop since the given time and ranks
// each player's most recent one by edge.
func (l *PredictionLog) LatestPerPlayer(ctx context.Context, prop models.PropType, since time.Time) ([]models.PredictionEdge, error) {
	rows, err := l.List(ctx, prop, since)
	if err != nil {
		return nil, err
	}
	return LatestPerPlayer(rows, prop), nil
}

func newerPrediction(a, b *models.Prediction) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.Seq > b.Seq
}

// LatestPerPlayer keeps each player's most recent prediction for prop and
// sorts by edge = estimate - implied probability, highest first. Rows without
// a price have no edge and sort last.
func LatestPerPlayer(rows []models.Prediction, prop models.PropType) []models.PredictionEdge {
	latest := make(map[int64]*models.Prediction)
	for i := range rows {
		r := &rows[i]
		if r.PropType != prop {
			continue
		}
		if cur, ok := latest[r.PlayerID]; !ok || newerPrediction(r, cur) {
			latest[r.PlayerID] = r
		}
	}

	out := make([]models.PredictionEdge, 0, len(latest))
	for _, p := range latest {
		pe := models.PredictionEdge{Prediction: *p}
		if p.AmericanOdds != nil {
			if implied, err := ImpliedProbability(*p.AmericanOdds); err == nil {
				edge, _ := Edge(p.Estimate, *p.AmericanOdds)
				dec, _ := AmericanToDecimal(*p.AmericanOdds)
				decOdds := dec.Round(3).InexactFloat64()
				pe.ImpliedProbability = &implied
				pe.Edge = &edge
				pe.DecimalOdds = &decOdds
			}
		}
		out = append(out, pe)
	}

	sort.Slice(out, func(i, j int) bool {
		ei, ej := out[i].Edge, out[j].Edge
		switch {
		case ei != nil && ej != nil && *ei != *ej:
			return *ei > *ej
		case ei != nil && ej == nil:
			return true
		case ei == nil && ej != nil:
			return false
		}
		return out[i].PlayerID < out[j].PlayerID
	})
	return out
}
