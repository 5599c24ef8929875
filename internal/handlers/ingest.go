package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/diamondline/props-api/internal/logic"
	"github.com/diamondline/props-api/internal/models"
)

// IngestEvents handles POST /api/v1/ingest/events
// @Summary Ingest Plate Appearances
// @Description Accepts a JSON array, newline-separated JSON objects, or URL-encoded lines
// @Tags Ingestion
// @Accept json
// @Produce json
// @Param body body []models.PlateAppearance true "Plate appearances"
// @Success 202 {object} map[string]interface{} "Accepted"
// @Failure 413 {object} map[string]string "Request Entity Too Large"
// @Router /ingest/events [post]
func (h *Handler) IngestEvents(w http.ResponseWriter, r *http.Request) {
	// Limit request body to 1MB to prevent DoS
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.errorResponse(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}
	defer r.Body.Close()

	events, rejected := h.decodeEvents(body)

	processed := 0
	queueFull := false
	for i := range events {
		e := &events[i]
		if err := h.validateEvent(e); err != nil {
			h.logger.Warnw("Validation failed for plate appearance", "error", err, "gamePk", e.GamePK, "atBat", e.AtBatNumber)
			rejected++
			continue
		}
		if !h.pool.Enqueue(e) {
			h.logger.Warn("Worker pool queue full, dropping remaining plate appearances in batch")
			queueFull = true
			break
		}
		processed++
	}

	h.jsonResponse(w, http.StatusAccepted, map[string]interface{}{
		"status":    "accepted",
		"processed": processed,
		"rejected":  rejected,
		"queueFull": queueFull,
	})
}

// decodeEvents splits a request body into plate appearances. Lines or array
// elements that fail to parse are counted and skipped.
func (h *Handler) decodeEvents(body []byte) ([]models.PlateAppearance, int) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var raws []json.RawMessage
		if err := json.Unmarshal(trimmed, &raws); err != nil {
			h.logger.Warnw("Failed to unmarshal plate appearance array", "error", err)
			return nil, 1
		}
		events := make([]models.PlateAppearance, 0, len(raws))
		rejected := 0
		for i, raw := range raws {
			var event models.PlateAppearance
			if err := json.Unmarshal(raw, &event); err != nil {
				h.logger.Warnw("Failed to unmarshal plate appearance array element", "error", err, "index", i)
				rejected++
				continue
			}
			events = append(events, event)
		}
		return events, rejected
	}

	var events []models.PlateAppearance
	rejected := 0
	for i, line := range strings.Split(string(trimmed), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var event models.PlateAppearance
		// Support both JSON (if line starts with {) and URL-encoded
		if strings.HasPrefix(line, "{") {
			if err := json.Unmarshal([]byte(line), &event); err != nil {
				h.logger.Warnw("Failed to unmarshal JSON plate appearance", "error", err, "lineNum", i)
				rejected++
				continue
			}
		} else {
			values, err := url.ParseQuery(line)
			if err != nil {
				h.logger.Warnw("Failed to parse URL-encoded plate appearance", "error", err, "lineNum", i)
				rejected++
				continue
			}
			event, err = parseFormToEvent(values)
			if err != nil {
				h.logger.Warnw("Failed to parse plate appearance fields", "error", err, "lineNum", i)
				rejected++
				continue
			}
		}
		events = append(events, event)
	}
	return events, rejected
}

func (h *Handler) validateEvent(e *models.PlateAppearance) error {
	if err := h.validator.Struct(e); err != nil {
		return err
	}
	if _, err := logic.ParseInningHalf(e.InningHalf); err != nil {
		return err
	}
	return nil
}

type eventParser struct {
	err error
}

func (p *eventParser) parseInt(s string) int {
	if p.err != nil || s == "" {
		return 0
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		p.err = fmt.Errorf("invalid int %q: %w", s, err)
		return 0
	}
	return i
}

func (p *eventParser) parseInt64(s string) int64 {
	if p.err != nil || s == "" {
		return 0
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		p.err = fmt.Errorf("invalid int64 %q: %w", s, err)
		return 0
	}
	return i
}

// parseFormToEvent converts URL-encoded form data to a PlateAppearance
func parseFormToEvent(form url.Values) (models.PlateAppearance, error) {
	p := &eventParser{}
	event := models.PlateAppearance{
		Outcome:     form.Get("events"),
		Description: form.Get("des"),
		Stand:       form.Get("stand"),
		PThrows:     form.Get("p_throws"),
		HomeTeam:    form.Get("home_team"),
		AwayTeam:    form.Get("away_team"),
		InningHalf:  form.Get("inning_topbot"),
	}

	event.GamePK = p.parseInt64(form.Get("game_pk"))
	event.AtBatNumber = p.parseInt(form.Get("at_bat_number"))
	event.BatterID = p.parseInt64(form.Get("batter"))
	event.PitcherID = p.parseInt64(form.Get("pitcher"))

	if d := form.Get("game_date"); d != "" && p.err == nil {
		t, err := models.ParseDate(d)
		if err != nil {
			p.err = err
		}
		event.GameDate = t
	}

	if p.err != nil {
		return event, p.err
	}
	return event, nil
}
