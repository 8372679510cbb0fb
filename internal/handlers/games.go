package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/dco-chess/analysis-service/internal/apperr"
	"github.com/dco-chess/analysis-service/internal/importer"
	"github.com/dco-chess/analysis-service/internal/jobs"
	"github.com/dco-chess/analysis-service/internal/storage"
)

// GamesHandler handles game ingestion and retrieval HTTP requests
type GamesHandler struct {
	store       *storage.Store
	importer    *importer.Importer
	runner      *jobs.Runner
	autoAnalyze bool
	autoDedupe  bool
}

// NewGamesHandler creates a new games handler
func NewGamesHandler(store *storage.Store, imp *importer.Importer, runner *jobs.Runner, autoAnalyze, autoDedupe bool) *GamesHandler {
	return &GamesHandler{store: store, importer: imp, runner: runner, autoAnalyze: autoAnalyze, autoDedupe: autoDedupe}
}

// ImportPGNRequest is the body for POST /api/games/import
type ImportPGNRequest struct {
	PGN            string `json:"pgn" binding:"required"`
	SkipDuplicates *bool  `json:"skip_duplicates"`
}

// ImportPGN imports one or more games from PGN text
// POST /api/games/import
func (h *GamesHandler) ImportPGN(c *gin.Context) {
	var request ImportPGNRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request format",
			"details": err.Error(),
		})
		return
	}

	skipDuplicates := h.autoDedupe
	if request.SkipDuplicates != nil {
		skipDuplicates = *request.SkipDuplicates
	}

	result := h.importer.ImportPGNText(request.PGN, skipDuplicates)
	logrus.WithFields(logrus.Fields{
		"imported": len(result.Imported),
		"skipped":  len(result.Skipped),
		"errors":   len(result.Errors),
	}).Info("pgn import finished")

	h.maybeAnalyze(result)

	c.JSON(http.StatusOK, gin.H{
		"imported": result.Imported,
		"skipped":  result.Skipped,
		"errors":   result.Errors,
	})
}

// maybeAnalyze queues a background analysis for each freshly imported game
// when the auto-analyze-on-import setting is on.
func (h *GamesHandler) maybeAnalyze(result importer.Result) {
	if !h.autoAnalyze || h.runner == nil {
		return
	}
	for _, g := range result.Imported {
		h.runner.StartGameAnalysis(g.ID)
	}
}

// ImportChessComRequest is the body for POST /api/import/chesscom
type ImportChessComRequest struct {
	Username       string `json:"username" binding:"required"`
	StartDate      string `json:"start_date"` // YYYY-MM-DD, inclusive
	EndDate        string `json:"end_date"`   // YYYY-MM-DD, inclusive
	RatedOnly      bool   `json:"rated_only"`
	TimeClass      string `json:"time_class"`
	Rules          string `json:"rules"`
	SkipDuplicates *bool  `json:"skip_duplicates"`
}

// ImportChessCom imports a player's games from the chess.com web archive
// POST /api/import/chesscom
func (h *GamesHandler) ImportChessCom(c *gin.Context) {
	var request ImportChessComRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request format",
			"details": err.Error(),
		})
		return
	}

	opts := importer.FetchOptions{
		RatedOnly: request.RatedOnly,
		TimeClass: request.TimeClass,
		Rules:     request.Rules,
	}
	if request.StartDate != "" {
		t, err := time.ParseInLocation("2006-01-02", request.StartDate, time.UTC)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "start_date must be YYYY-MM-DD"})
			return
		}
		opts.StartDate = &t
	}
	if request.EndDate != "" {
		t, err := time.ParseInLocation("2006-01-02", request.EndDate, time.UTC)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "end_date must be YYYY-MM-DD"})
			return
		}
		end := t.Add(24*time.Hour - time.Second)
		opts.EndDate = &end
	}

	skipDuplicates := h.autoDedupe
	if request.SkipDuplicates != nil {
		skipDuplicates = *request.SkipDuplicates
	}

	result, err := h.importer.ImportChessCom(request.Username, opts, skipDuplicates)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	logrus.WithFields(logrus.Fields{
		"username": request.Username,
		"imported": len(result.Imported),
		"errors":   len(result.Errors),
	}).Info("chess.com import finished")

	h.maybeAnalyze(result)

	c.JSON(http.StatusOK, gin.H{
		"imported": result.Imported,
		"skipped":  result.Skipped,
		"errors":   result.Errors,
	})
}

// ListGames returns every stored game, newest first
// GET /api/games
func (h *GamesHandler) ListGames(c *gin.Context) {
	games, err := h.store.ListGames()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"games": games, "count": len(games)})
}

// GetGame returns one game by ID
// GET /api/games/:id
func (h *GamesHandler) GetGame(c *gin.Context) {
	game, err := h.store.GetGame(c.Param("id"))
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, game)
}

// DeleteGame removes a game and everything derived from it
// DELETE /api/games/:id
func (h *GamesHandler) DeleteGame(c *gin.Context) {
	if err := h.store.DeleteGame(c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id")})
}
