package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/hetulpatel/arbscan/internal/arb"
	"github.com/hetulpatel/arbscan/internal/logging"
	"github.com/hetulpatel/arbscan/internal/markets"
	"github.com/hetulpatel/arbscan/internal/pipeline"
)

const maxListLimit = 500

type Detector interface {
	Run(ctx context.Context, minProfit float64) pipeline.Result
	ListRecent(ctx context.Context, limit int) []markets.Opportunity
}

type Handler struct {
	detector         Detector
	defaultMinProfit float64
}

// NewHandler serves d. defaultMinProfit applies when a request carries no
// threshold; <= 0 means arb.DefaultMinProfitPct.
func NewHandler(d Detector, defaultMinProfit float64) *Handler {
	if defaultMinProfit <= 0 {
		defaultMinProfit = arb.DefaultMinProfitPct
	}
	return &Handler{detector: d, defaultMinProfit: defaultMinProfit}
}

type detectRequest struct {
	MinProfitThreshold float64 `json:"minProfitThreshold"`
}

type opportunitiesResponse struct {
	Success       bool                  `json:"success"`
	Count         int                   `json:"count"`
	Opportunities []markets.Opportunity `json:"opportunities"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) DetectStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ready",
		"message":  "Send a POST request to trigger arbitrage detection",
		"endpoint": "/api/arbitrage/detect",
	})
}

// Detect runs one pass. A missing, unreadable or zero threshold uses the
// configured default.
func (h *Handler) Detect(w http.ResponseWriter, r *http.Request) {
	var req detectRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil && err != io.EOF {
		logging.Debugf("[server] ignoring unreadable detect body: %v", err)
	}
	threshold := req.MinProfitThreshold
	if threshold <= 0 {
		threshold = h.defaultMinProfit
	}

	res := h.detector.Run(r.Context(), threshold)
	writeJSON(w, statusCode(res.Status), res)
}

func (h *Handler) Opportunities(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r.URL.Query().Get("limit"), pipeline.DefaultListLimit, maxListLimit)
	opps := h.detector.ListRecent(r.Context(), limit)
	writeJSON(w, http.StatusOK, opportunitiesResponse{
		Success:       true,
		Count:         len(opps),
		Opportunities: opps,
	})
}

func statusCode(s pipeline.Status) int {
	switch s {
	case pipeline.StatusInsufficientData:
		return http.StatusBadRequest
	case pipeline.StatusFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}

func parseLimit(raw string, def, max int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Errorf("[server] encode response: %v", err)
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logging.Infof("[server] %s %s %d %s req=%s", r.Method, r.URL.Path, ww.Status(),
			time.Since(start).Round(time.Millisecond), chimiddleware.GetReqID(r.Context()))
	})
}
