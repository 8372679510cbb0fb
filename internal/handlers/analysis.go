package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/dco-chess/analysis-service/internal/apperr"
	"github.com/dco-chess/analysis-service/internal/engine"
	"github.com/dco-chess/analysis-service/internal/jobs"
	"github.com/dco-chess/analysis-service/internal/storage"
	"github.com/dco-chess/analysis-service/internal/ws"
)

// AnalysisHandler handles analysis-related HTTP requests
type AnalysisHandler struct {
	store  *storage.Store
	runner *jobs.Runner
	pool   *engine.Pool
	hub    *ws.Hub

	acquireTimeout time.Duration
	maxDepth       int
	maxTimeMS      int
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(store *storage.Store, runner *jobs.Runner, pool *engine.Pool, hub *ws.Hub, acquireTimeout time.Duration, maxDepth, maxTimeMS int) *AnalysisHandler {
	return &AnalysisHandler{
		store:          store,
		runner:         runner,
		pool:           pool,
		hub:            hub,
		acquireTimeout: acquireTimeout,
		maxDepth:       maxDepth,
		maxTimeMS:      maxTimeMS,
	}
}

// AnalyzeGame starts (or joins) an asynchronous re-analysis of a stored game
// POST /api/games/:id/analyze
func (h *AnalysisHandler) AnalyzeGame(c *gin.Context) {
	gameID := c.Param("id")
	if _, err := h.store.GetGame(gameID); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	jobID := h.runner.StartGameAnalysis(gameID)
	c.JSON(http.StatusAccepted, gin.H{
		"job_id": jobID,
		"status": "queued",
	})
}

// GetJob reports an analysis job's progress
// GET /api/jobs/:jobId
func (h *AnalysisHandler) GetJob(c *gin.Context) {
	job, ok := h.runner.Job(c.Param("jobId"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active job with that id"})
		return
	}
	c.JSON(http.StatusOK, job.Snapshot())
}

// ServeJobWS subscribes the caller to a job's progress events over a
// websocket, the push-style alternative to polling GetJob
// GET /api/jobs/:jobId/ws
func (h *AnalysisHandler) ServeJobWS(c *gin.Context) {
	if err := h.hub.ServeWS(c.Writer, c.Request, c.Param("jobId")); err != nil {
		logrus.WithError(err).Warn("websocket upgrade failed")
	}
}

// BatchAnalyzeRequest is the body for POST /api/games/analyze-batch
type BatchAnalyzeRequest struct {
	GameIDs []string `json:"game_ids"`
	All     bool     `json:"all"`
	Workers int      `json:"workers"`
}

// BatchAnalyze starts a multi-game analysis run
// POST /api/games/analyze-batch
func (h *AnalysisHandler) BatchAnalyze(c *gin.Context) {
	var request BatchAnalyzeRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
		return
	}

	gameIDs := request.GameIDs
	if request.All {
		games, err := h.store.ListGames()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		gameIDs = gameIDs[:0]
		for _, g := range games {
			gameIDs = append(gameIDs, g.ID)
		}
	}
	if len(gameIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no games to analyze"})
		return
	}

	batch := h.runner.StartBatchAnalysis(gameIDs, request.Workers)
	c.JSON(http.StatusAccepted, batch.Snapshot())
}

// GetBatch reports a batch run's progress
// GET /api/batches/:batchId
func (h *AnalysisHandler) GetBatch(c *gin.Context) {
	batch, ok := h.runner.Batch(c.Param("batchId"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no batch with that id"})
		return
	}
	c.JSON(http.StatusOK, batch.Snapshot())
}

// CancelBatch requests a cooperative stop of a batch run
// DELETE /api/batches/:batchId
func (h *AnalysisHandler) CancelBatch(c *gin.Context) {
	batch, ok := h.runner.Batch(c.Param("batchId"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no batch with that id"})
		return
	}
	batch.Cancel()
	c.JSON(http.StatusOK, batch.Snapshot())
}

// GetAnalysis returns a game's stored analysis, move list, and analytics
// GET /api/games/:id/analysis
func (h *AnalysisHandler) GetAnalysis(c *gin.Context) {
	gameID := c.Param("id")

	analysis, err := h.store.GetAnalysis(gameID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "game has not been analysed"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	moves, err := h.store.GetMovesByGame(gameID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	response := gin.H{
		"analysis": analysis,
		"moves":    moves,
	}
	if analytics, err := h.store.GetAnalytics(gameID); err == nil {
		response["analytics"] = analytics
	}
	c.JSON(http.StatusOK, response)
}

// AnalyzePositionRequest is the body for POST /api/positions/analyze
type AnalyzePositionRequest struct {
	FEN     string `json:"fen" binding:"required"`
	Depth   int    `json:"depth"`
	TimeMS  int    `json:"time_ms"`
	MultiPV int    `json:"multipv"`
}

// AnalyzePosition evaluates a single position synchronously
// POST /api/positions/analyze
func (h *AnalysisHandler) AnalyzePosition(c *gin.Context) {
	var request AnalyzePositionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
		return
	}
	if request.Depth > h.maxDepth {
		request.Depth = h.maxDepth
	}
	if request.TimeMS > h.maxTimeMS {
		request.TimeMS = h.maxTimeMS
	}

	sess, err := h.pool.Acquire(h.acquireTimeout)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	defer h.pool.Release(sess)

	limit := engine.Limit{Depth: request.Depth}
	if request.TimeMS > 0 {
		limit.Time = time.Duration(request.TimeMS) * time.Millisecond
	}

	if request.MultiPV > 1 {
		lines, err := sess.EvaluateMultiPV(request.FEN, limit, request.MultiPV)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"lines": lines})
		return
	}

	eval, err := sess.Evaluate(request.FEN, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, eval)
}
