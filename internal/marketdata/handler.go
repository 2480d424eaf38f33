package marketdata

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"grid-broker/internal/httputil"
)

// Handler serves the recorded midpoint candles.
type Handler struct {
	recorder *CandleRecorder
}

func NewHandler(recorder *CandleRecorder) *Handler {
	return &Handler{recorder: recorder}
}

func (h *Handler) Candles(w http.ResponseWriter, r *http.Request) {
	interval := time.Minute
	if tf := r.URL.Query().Get("timeframe"); tf != "" {
		interval = parseInterval(tf)
		if interval == 0 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid timeframe"})
			return
		}
	}
	limit := 500
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = n
	}
	candles, err := h.recorder.Candles(interval, limit)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"items": candles})
}

func parseInterval(v string) time.Duration {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1m":
		return time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "30m":
		return 30 * time.Minute
	case "1h":
		return time.Hour
	}
	return 0
}
