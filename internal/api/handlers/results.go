package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/singleflight"

	"eisim-progress/internal/aggregate"
	"eisim-progress/internal/analysis"
	"eisim-progress/internal/api/models"
	"eisim-progress/internal/data"
	"eisim-progress/internal/logger"
	"eisim-progress/internal/model"
	"eisim-progress/internal/report"
)

// ResultsHandler serves the aggregated tables of one results directory.
type ResultsHandler struct {
	dir      string
	parser   *aggregate.Parser
	cache    *data.ResultsCache
	cacheKey string
	window   int
	log      logger.Logger

	group singleflight.Group
}

// ResultsConfig configures a ResultsHandler.
type ResultsConfig struct {
	Dir      string
	Parser   *aggregate.Parser
	Cache    *data.ResultsCache
	CacheKey string
	// Window is the trend window when the request does not set one.
	Window int
	Logger logger.Logger
}

// NewResultsHandler creates a new results handler
func NewResultsHandler(cfg ResultsConfig) *ResultsHandler {
	h := &ResultsHandler{
		dir:      cfg.Dir,
		parser:   cfg.Parser,
		cache:    cfg.Cache,
		cacheKey: cfg.CacheKey,
		window:   cfg.Window,
		log:      logger.OrNop(cfg.Logger),
	}
	if h.parser == nil {
		h.parser = aggregate.NewParser(aggregate.WithLogger(h.log))
	}
	if h.window < 1 {
		h.window = analysis.DefaultWindow
	}
	return h
}

// outcomeError carries a parse mismatch out of the singleflight call.
type outcomeError struct {
	mismatch *aggregate.Mismatch
}

func (e *outcomeError) Error() string { return e.mismatch.Error() }

// load returns cached results or parses the directory. Concurrent misses
// share one parse, which outlives the request that started it. On failure
// the error response has been written.
func (h *ResultsHandler) load(c *gin.Context) (*model.Results, bool) {
	if r, ok := h.cache.Get(h.cacheKey); ok {
		return r, true
	}
	v, err, _ := h.group.Do(h.cacheKey, func() (interface{}, error) {
		out, err := h.parser.Parse(context.WithoutCancel(c.Request.Context()), h.dir)
		if err != nil {
			return nil, err
		}
		if !out.OK() {
			return nil, &outcomeError{mismatch: out.Mismatch}
		}
		h.cache.Set(h.cacheKey, out.Results)
		return out.Results, nil
	})
	if err != nil {
		var oe *outcomeError
		if errors.As(err, &oe) {
			respondMismatch(c, oe.mismatch)
			return nil, false
		}
		h.log.Error(c.Request.Context(), "parse results", logger.String("dir", h.dir), logger.Error(err))
		respondError(c, http.StatusInternalServerError, "PARSE_ERROR", err.Error(), nil)
		return nil, false
	}
	return v.(*model.Results), true
}

// scenario loads results and the table named by the :name path parameter.
func (h *ResultsHandler) scenario(c *gin.Context) (*model.Results, *model.ScenarioTable, bool) {
	r, ok := h.load(c)
	if !ok {
		return nil, nil, false
	}
	name := c.Param("name")
	t, ok := r.Table(name)
	if !ok {
		respondError(c, http.StatusNotFound, "SCENARIO_NOT_FOUND", "unknown scenario "+name, map[string]interface{}{
			"scenarios": r.Scenarios,
		})
		return nil, nil, false
	}
	return r, t, true
}

// GetResults handles GET /api/v1/results
func (h *ResultsHandler) GetResults(c *gin.Context) {
	r, ok := h.load(c)
	if !ok {
		return
	}
	episodes := make([]models.EpisodeInfo, len(r.Episodes))
	for i, ep := range r.Episodes {
		episodes[i] = models.EpisodeInfo{Index: i + 1, Name: ep.Name, Start: ep.Start}
	}
	c.JSON(http.StatusOK, models.ResultsResponse{
		SourceDir: h.dir,
		Episodes:  episodes,
		Agents:    r.Agents,
		Scenarios: r.Scenarios,
	})
}

// GetScenario handles GET /api/v1/scenarios/:name
func (h *ResultsHandler) GetScenario(c *gin.Context) {
	r, t, ok := h.scenario(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, models.ScenarioResponse{
		Scenario:         t.Scenario,
		Episodes:         model.EpisodeNames(r.Episodes),
		Agents:           r.Agents,
		CumulativeReturn: model.Rows(t.CumulativeReturn),
		AvgPrice:         model.Rows(t.AvgPrice),
	})
}

// GetTrend handles GET /api/v1/scenarios/:name/trend
func (h *ResultsHandler) GetTrend(c *gin.Context) {
	var req models.TrendRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}
	window := req.Window
	if window == 0 {
		window = h.window
	}

	r, t, ok := h.scenario(c)
	if !ok {
		return
	}
	tr, err := analysis.PlatformTrend(t, window)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}
	points := make([]models.TrendPoint, len(tr.TotalReturns))
	for i := range tr.TotalReturns {
		points[i] = models.TrendPoint{
			Episode:     i + 1,
			Name:        r.Episodes[i].Name,
			TotalReturn: tr.TotalReturns[i],
			SMA:         tr.Smoothed[i],
			Label:       report.FormatMillions(tr.Smoothed[i]),
		}
	}
	c.JSON(http.StatusOK, models.TrendResponse{Scenario: tr.Scenario, Window: window, Points: points})
}

// RankAgents handles GET /api/v1/scenarios/:name/rank
func (h *ResultsHandler) RankAgents(c *gin.Context) {
	var req models.RankRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}

	r, t, ok := h.scenario(c)
	if !ok {
		return
	}
	stats, err := analysis.ComputeAgentStats(r, t.Scenario)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ANALYSIS_ERROR", err.Error(), nil)
		return
	}
	ranked := analysis.RankAgents(stats)
	if req.Limit > 0 && req.Limit < len(ranked) {
		ranked = ranked[:req.Limit]
	}
	c.JSON(http.StatusOK, models.RankResponse{Scenario: t.Scenario, Rankings: ranked})
}

// Reload handles POST /api/v1/reload
func (h *ResultsHandler) Reload(c *gin.Context) {
	n := h.cache.Clear()
	h.log.Info(c.Request.Context(), "results cache cleared", logger.Int("entries", n))
	c.JSON(http.StatusOK, models.ReloadResponse{Cleared: n})
}

func respondMismatch(c *gin.Context, m *aggregate.Mismatch) {
	respondError(c, http.StatusUnprocessableEntity, mismatchCode(m.Reason), m.Error(), map[string]interface{}{
		"reason": string(m.Reason),
		"path":   m.Path,
		"want":   m.Want,
		"got":    m.Got,
	})
}

func mismatchCode(r aggregate.Reason) string {
	switch r {
	case aggregate.ReasonScenarioCount:
		return "SCENARIO_COUNT_MISMATCH"
	case aggregate.ReasonAgentCount:
		return "AGENT_COUNT_MISMATCH"
	case aggregate.ReasonNoScenarios:
		return "NO_SCENARIOS"
	default:
		return "NO_EPISODES"
	}
}

func respondError(c *gin.Context, status int, code, message string, details map[string]interface{}) {
	c.JSON(status, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}
