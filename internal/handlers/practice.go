package handlers

import (
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dco-chess/analysis-service/internal/apperr"
	"github.com/dco-chess/analysis-service/internal/models"
	"github.com/dco-chess/analysis-service/internal/scheduler"
	"github.com/dco-chess/analysis-service/internal/storage"
)

// PracticeHandler serves spaced-repetition practice sessions and records
// attempt outcomes against item progress.
type PracticeHandler struct {
	store *storage.Store

	defaultLimit int
	dueOnly      bool

	mu       sync.Mutex
	sessions map[string]*scheduler.Session
	rng      *rand.Rand
}

// NewPracticeHandler creates a new practice handler
func NewPracticeHandler(store *storage.Store, defaultLimit int, dueOnly bool) *PracticeHandler {
	return &PracticeHandler{
		store:        store,
		defaultLimit: defaultLimit,
		dueOnly:      dueOnly,
		sessions:     make(map[string]*scheduler.Session),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// StartSessionRequest is the body for POST /api/practice/session
type StartSessionRequest struct {
	Categories []models.PracticeCategory `json:"categories"`
	Limit      int                       `json:"limit"`
	DueOnly    *bool                     `json:"due_only"`
}

// StartSession selects a shuffled set of practice items for one sitting
// POST /api/practice/session
func (h *PracticeHandler) StartSession(c *gin.Context) {
	var request StartSessionRequest
	if err := c.ShouldBindJSON(&request); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
		return
	}

	limit := request.Limit
	if limit <= 0 {
		limit = h.defaultLimit
	}
	dueOnly := h.dueOnly
	if request.DueOnly != nil {
		dueOnly = *request.DueOnly
	}

	pool, err := h.loadDuePool()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.mu.Lock()
	selected := scheduler.Select(pool, scheduler.SelectConfig{
		Categories: request.Categories,
		Limit:      limit,
		DueOnly:    dueOnly,
	}, time.Now(), h.rng)
	sessionID := uuid.NewString()
	h.sessions[sessionID] = scheduler.NewSession()
	h.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"session": sessionID,
		"items":   len(selected),
	}).Info("practice session started")

	c.JSON(http.StatusOK, gin.H{
		"session_id": sessionID,
		"items":      selected,
	})
}

// loadDuePool joins every practice item with its progress row. An item
// whose progress row is missing is skipped; generation always inserts the
// pair together, so a lone item indicates a partially deleted game.
func (h *PracticeHandler) loadDuePool() ([]scheduler.Due, error) {
	items, err := h.store.ListAllPracticeItems()
	if err != nil {
		return nil, err
	}
	progressByItem, err := h.store.ListAllProgress()
	if err != nil {
		return nil, err
	}

	pool := make([]scheduler.Due, 0, len(items))
	for _, item := range items {
		progress, ok := progressByItem[item.ID]
		if !ok {
			continue
		}
		pool = append(pool, scheduler.Due{Item: item, Progress: progress})
	}
	return pool, nil
}

// AttemptRequest is the body for POST /api/practice/items/:itemId/attempt
type AttemptRequest struct {
	SessionID string                `json:"session_id"`
	Result    models.PracticeResult `json:"result" binding:"required"`
}

// SubmitAttempt records one attempt's outcome and reports whether the
// session may re-queue the item
// POST /api/practice/items/:itemId/attempt
func (h *PracticeHandler) SubmitAttempt(c *gin.Context) {
	itemID := c.Param("itemId")

	var request AttemptRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
		return
	}
	switch request.Result {
	case models.ResultPassFirstTry, models.ResultPass, models.ResultFail:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "result must be pass_first_try, pass, or fail"})
		return
	}

	progress, err := h.store.GetProgress(itemID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			// The item was regenerated or its game deleted while the
			// session was open; the attempt is simply dropped.
			c.JSON(http.StatusOK, gin.H{"updated": false})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	updated := scheduler.Update(progress, request.Result, time.Now())
	if err := h.store.SaveProgress(updated); err != nil {
		logrus.WithError(err).WithField("item", itemID).Warn("practice progress update failed")
		c.JSON(http.StatusOK, gin.H{"updated": false})
		return
	}

	requeue := false
	if request.Result != models.ResultPassFirstTry && request.SessionID != "" {
		h.mu.Lock()
		if session, ok := h.sessions[request.SessionID]; ok {
			requeue = session.ShouldRequeue(itemID)
		}
		h.mu.Unlock()
	}

	c.JSON(http.StatusOK, gin.H{
		"updated":  true,
		"progress": updated,
		"requeue":  requeue,
	})
}

// ListGameItems returns the practice items generated from one game
// GET /api/games/:id/practice
func (h *PracticeHandler) ListGameItems(c *gin.Context) {
	items, err := h.store.GetPracticeItemsByGame(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}
