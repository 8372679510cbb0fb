package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dco-chess/analysis-service/internal/apperr"
	"github.com/dco-chess/analysis-service/internal/eco"
	"github.com/dco-chess/analysis-service/internal/storage"
)

// OpeningHandler handles opening-detection HTTP requests
type OpeningHandler struct {
	detector *eco.Detector
	store    *storage.Store
}

// NewOpeningHandler creates a new opening handler
func NewOpeningHandler(detector *eco.Detector, store *storage.Store) *OpeningHandler {
	return &OpeningHandler{detector: detector, store: store}
}

// DetectOpening resolves a SAN move sequence to its ECO entry
// GET /api/openings/detect?moves=e4+c5+Nf3
func (h *OpeningHandler) DetectOpening(c *gin.Context) {
	movesStr := c.Query("moves")
	if movesStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "moves query parameter is required"})
		return
	}

	entry, ok := h.detector.Detect(strings.Fields(movesStr), 0)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no opening matches that move sequence"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"eco":       entry.ECO,
		"name":      entry.Name,
		"variation": entry.Variation,
		"display":   eco.DisplayName(entry),
	})
}

// GetGameOpening returns the opening stored on a game by its last analysis
// GET /api/games/:id/opening
func (h *OpeningHandler) GetGameOpening(c *gin.Context) {
	game, err := h.store.GetGame(c.Param("id"))
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if game.ECOCode == nil {
		c.JSON(http.StatusOK, gin.H{"detected": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"detected":  true,
		"eco":       game.ECOCode,
		"name":      game.OpeningName,
		"variation": game.OpeningVariation,
	})
}
