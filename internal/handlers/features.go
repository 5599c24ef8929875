package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/diamondline/props-api/internal/models"
)

// DeriveFeatures rebuilds every derived table from the raw event store
// @Summary Run Derivation
// @Tags Features
// @Produce json
// @Success 200 {object} models.DeriveReport
// @Failure 409 {object} map[string]string "Derivation already running"
// @Router /derive [post]
func (h *Handler) DeriveFeatures(w http.ResponseWriter, r *http.Request) {
	report, err := h.deriver.DeriveAll(r.Context())
	if err != nil {
		h.serviceError(w, err, "Derivation failed")
		return
	}
	h.jsonResponse(w, http.StatusOK, report)
}

// GetPlayerFeatures returns the resolved feature vector for one market
// @Summary Get Feature Vector
// @Tags Features
// @Produce json
// @Param playerID path int true "MLBAM player id"
// @Param prop query string true "Prop type"
// @Param date query string false "As-of date (YYYY-MM-DD)"
// @Success 200 {object} models.FeatureVector
// @Failure 404 {object} map[string]string "No history"
// @Router /players/{playerID}/features [get]
func (h *Handler) GetPlayerFeatures(w http.ResponseWriter, r *http.Request) {
	playerID, err := playerIDParam(r)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	prop, err := propParam(r.URL.Query().Get("prop"))
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	asOf, err := dateParam(r, "date")
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	fv, err := h.resolver.Resolve(r.Context(), playerID, prop, asOf)
	if err != nil {
		h.serviceError(w, err, "Failed to resolve features", "player", playerID, "prop", prop)
		return
	}
	h.jsonResponse(w, http.StatusOK, fv)
}

// GetPlayerSummary returns season stats, falling back to career
// @Summary Get Player Summary
// @Tags Features
// @Produce json
// @Param playerID path int true "MLBAM player id"
// @Param role query string false "batter or pitcher" default(batter)
// @Param season query int false "Season year" default(current year)
// @Success 200 {object} models.PlayerSummary
// @Failure 404 {object} map[string]string "No history"
// @Router /players/{playerID}/summary [get]
func (h *Handler) GetPlayerSummary(w http.ResponseWriter, r *http.Request) {
	playerID, err := playerIDParam(r)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	role := models.RoleBatter
	switch q := r.URL.Query().Get("role"); q {
	case "", string(models.RoleBatter):
	case string(models.RolePitcher):
		role = models.RolePitcher
	default:
		h.errorResponse(w, http.StatusBadRequest, "role must be batter or pitcher")
		return
	}

	season := time.Now().UTC().Year()
	if s := r.URL.Query().Get("season"); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil || len(s) != 4 {
			h.errorResponse(w, http.StatusBadRequest, "season must be a four digit year")
			return
		}
		season = parsed
	}

	summary, err := h.resolver.ResolveSummary(r.Context(), playerID, role, season)
	if err != nil {
		h.serviceError(w, err, "Failed to load summary", "player", playerID, "season", season)
		return
	}
	h.jsonResponse(w, http.StatusOK, summary)
}

// ResolveIdentity maps an odds-provider name onto a roster player
// @Summary Resolve Player Name
// @Tags Identity
// @Produce json
// @Param name query string true "Player name as listed by the provider"
// @Success 200 {object} models.PlayerMatch
// @Failure 404 {object} map[string]string "Unresolved"
// @Failure 409 {object} map[string]string "Ambiguous"
// @Router /identity [get]
func (h *Handler) ResolveIdentity(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		h.errorResponse(w, http.StatusBadRequest, "name is required")
		return
	}
	match, err := h.identity.Resolve(r.Context(), name)
	if err != nil {
		h.serviceError(w, err, "Failed to resolve identity", "name", name)
		return
	}
	h.jsonResponse(w, http.StatusOK, match)
}

// GetUnresolvedIdentities lists names that failed to resolve
// @Summary Unresolved Names
// @Tags Identity
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /identity/unresolved [get]
func (h *Handler) GetUnresolvedIdentities(w http.ResponseWriter, r *http.Request) {
	names := h.identity.Unresolved()
	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"count": len(names),
		"names": names,
	})
}
