package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/diamondline/props-api/internal/models"
)

// CreatePrediction resolves features for a player and issues one prediction
// @Summary Predict Prop
// @Tags Predictions
// @Accept json
// @Produce json
// @Param body body models.PredictRequest true "Player, market, date and line"
// @Success 201 {object} models.PredictResponse
// @Failure 400 {object} map[string]string "Invalid request or odds"
// @Failure 404 {object} map[string]string "No history"
// @Failure 422 {object} map[string]string "Missing feature"
// @Router /predictions [post]
func (h *Handler) CreatePrediction(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)
	var req models.PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}
	prop, err := propParam(string(req.PropType))
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	asOf, err := models.ParseDate(req.Date)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	fv, err := h.resolver.Resolve(ctx, req.PlayerID, prop, asOf)
	if err != nil {
		h.serviceError(w, err, "Failed to resolve features", "player", req.PlayerID, "prop", prop)
		return
	}

	pred, err := h.predictor.Predict(ctx, fv, prop, models.Line{Value: req.Line, AmericanOdds: req.AmericanOdds})
	if err != nil {
		h.serviceError(w, err, "Failed to predict", "player", req.PlayerID, "prop", prop)
		return
	}

	h.jsonResponse(w, http.StatusCreated, models.PredictResponse{Prediction: pred, Features: fv})
}

// GetLatestPredictions returns the newest prediction per player ranked by edge
// @Summary Latest Predictions
// @Tags Predictions
// @Produce json
// @Param propType path string true "Prop type"
// @Param since query string false "Only predictions created on or after (YYYY-MM-DD)" default(today)
// @Success 200 {object} map[string]interface{}
// @Router /predictions/latest/{propType} [get]
func (h *Handler) GetLatestPredictions(w http.ResponseWriter, r *http.Request) {
	prop, err := propParam(chi.URLParam(r, "propType"))
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	since, err := dateParam(r, "since")
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := h.predictions.LatestPerPlayer(r.Context(), prop, since)
	if err != nil {
		h.serviceError(w, err, "Failed to load predictions", "prop", prop)
		return
	}
	if rows == nil {
		rows = []models.PredictionEdge{}
	}

	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"prop_type":   prop,
		"since":       since.Format(time.DateOnly),
		"count":       len(rows),
		"predictions": rows,
	})
}
