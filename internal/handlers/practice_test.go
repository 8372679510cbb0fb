package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dco-chess/analysis-service/internal/models"
	"github.com/dco-chess/analysis-service/internal/storage"
)

func newTestRouter(t *testing.T) (*gin.Engine, *storage.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir, err := os.MkdirTemp("", "handlers-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	store, err := storage.Open(dir, "")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := NewPracticeHandler(store, 20, true)
	router := gin.New()
	router.POST("/api/practice/session", h.StartSession)
	router.POST("/api/practice/items/:itemId/attempt", h.SubmitAttempt)
	router.GET("/api/games/:id/practice", h.ListGameItems)
	return router, store
}

func seedItem(t *testing.T, store *storage.Store, itemID string, consecutive int) {
	t.Helper()
	err := store.ReplacePracticeForGame("g1",
		[]models.PracticeItem{{
			ID:           itemID,
			SourceGameID: "g1",
			FENStart:     "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
			SideToMove:   models.White,
			TargetUCI:    []string{"e2e4"},
			TargetSAN:    []string{"e4"},
			Category:     models.CategoryBlunder,
		}},
		[]models.PracticeProgress{{
			ID:                  "prog-" + itemID,
			PracticeItemID:      itemID,
			DueDate:             time.Now().Add(-time.Hour),
			IntervalDays:        1,
			EaseFactor:          2.5,
			ConsecutiveFirstTry: consecutive,
		}},
	)
	require.NoError(t, err)
}

func TestStartSessionReturnsSeededItem(t *testing.T) {
	router, store := newTestRouter(t)
	seedItem(t, store, "item1", 0)

	req := httptest.NewRequest(http.MethodPost, "/api/practice/session",
		bytes.NewBufferString(`{"limit": 5}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		SessionID string `json:"session_id"`
		Items     []struct {
			Item models.PracticeItem `json:"Item"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body.SessionID)
	require.Len(t, body.Items, 1)
	assert.Equal(t, "item1", body.Items[0].Item.ID)
}

func TestStartSessionExcludesMasteredItem(t *testing.T) {
	router, store := newTestRouter(t)
	seedItem(t, store, "mastered", 3)

	req := httptest.NewRequest(http.MethodPost, "/api/practice/session",
		bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Items []json.RawMessage `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Empty(t, body.Items, "a mastered item must not be served")
}

func TestSubmitAttemptUpdatesProgress(t *testing.T) {
	router, store := newTestRouter(t)
	seedItem(t, store, "item1", 0)

	req := httptest.NewRequest(http.MethodPost, "/api/practice/items/item1/attempt",
		bytes.NewBufferString(`{"result": "pass_first_try"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	progress, err := store.GetProgress("item1")
	require.NoError(t, err)
	assert.Equal(t, 1, progress.Repetitions)
	assert.Equal(t, 1, progress.AttemptsTotal)
	assert.Equal(t, 1, progress.ConsecutiveFirstTry)
}

func TestSubmitAttemptOnMissingItemIsIgnored(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/practice/items/gone/attempt",
		bytes.NewBufferString(`{"result": "fail"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["updated"])
}

func TestSubmitAttemptRequeuesFailedItemOncePerSession(t *testing.T) {
	router, store := newTestRouter(t)
	seedItem(t, store, "item1", 0)

	startReq := httptest.NewRequest(http.MethodPost, "/api/practice/session",
		bytes.NewBufferString(`{}`))
	startReq.Header.Set("Content-Type", "application/json")
	startW := httptest.NewRecorder()
	router.ServeHTTP(startW, startReq)
	var started struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(startW.Body.Bytes(), &started))

	attempt := func() map[string]interface{} {
		payload, _ := json.Marshal(map[string]string{
			"session_id": started.SessionID,
			"result":     "fail",
		})
		req := httptest.NewRequest(http.MethodPost, "/api/practice/items/item1/attempt",
			bytes.NewBuffer(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		return body
	}

	first := attempt()
	assert.Equal(t, true, first["requeue"], "first failure should re-queue")

	second := attempt()
	assert.Equal(t, false, second["requeue"], "an item re-queues at most once per session")
}
