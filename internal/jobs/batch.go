package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dco-chess/analysis-service/internal/ws"
)

// BatchJob tracks one multi-game analysis run. Games are processed
// sequentially by a fixed set of workers; cancellation is observed between
// games, never mid-game, so a cancelled batch leaves no partially analysed
// game behind.
type BatchJob struct {
	ID        string
	GameIDs   []string
	CreatedAt time.Time

	cancel context.CancelFunc

	mu        sync.RWMutex
	status    Status
	done      int
	current   string
	succeeded int
	errors    []string
}

// BatchSnapshot is a safe-to-serialize copy of a batch's current state.
type BatchSnapshot struct {
	ID        string   `json:"id"`
	Status    Status   `json:"status"`
	Done      int      `json:"done"`
	Total     int      `json:"total"`
	Current   string   `json:"current,omitempty"`
	Succeeded int      `json:"succeeded"`
	Errors    []string `json:"errors,omitempty"`
}

func (b *BatchJob) Snapshot() BatchSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	errs := make([]string, len(b.errors))
	copy(errs, b.errors)
	return BatchSnapshot{
		ID:        b.ID,
		Status:    b.status,
		Done:      b.done,
		Total:     len(b.GameIDs),
		Current:   b.current,
		Succeeded: b.succeeded,
		Errors:    errs,
	}
}

// Cancel requests a cooperative stop. Workers finish the game they are on
// and then drain.
func (b *BatchJob) Cancel() {
	b.cancel()
}

// StartBatchAnalysis runs a full re-analysis over every game in gameIDs
// using `workers` concurrent workers (minimum 1), each drawing its own
// engine session per game from the pool. Per-game failures are collected on
// the batch rather than aborting it. Returns the batch for status polling
// and cancellation.
func (r *Runner) StartBatchAnalysis(gameIDs []string, workers int) *BatchJob {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	batch := &BatchJob{
		ID:        r.NewID(),
		GameIDs:   gameIDs,
		CreatedAt: time.Now(),
		cancel:    cancel,
		status:    StatusAnalyzing,
	}

	r.jobsMutex.Lock()
	r.batches[batch.ID] = batch
	r.jobsMutex.Unlock()

	queue := make(chan string)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for gameID := range queue {
				r.runBatchGame(batch, gameID)
			}
		}()
	}

	go func() {
		defer close(queue)
		for _, id := range gameIDs {
			select {
			case <-ctx.Done():
				return
			case queue <- id:
			}
		}
	}()

	go func() {
		wg.Wait()
		batch.mu.Lock()
		if ctx.Err() != nil {
			batch.status = StatusFailed
			batch.errors = append(batch.errors, "batch cancelled")
		} else {
			batch.status = StatusCompleted
		}
		done, total := batch.done, len(batch.GameIDs)
		batch.mu.Unlock()

		r.Hub.Publish(ws.Event{JobID: batch.ID, Type: ws.EventCompleted, Current: done, Total: total})
		logrus.WithFields(logrus.Fields{
			"batch": batch.ID,
			"done":  done,
			"total": total,
		}).Info("jobs: batch analysis finished")
	}()

	return batch
}

func (r *Runner) runBatchGame(batch *BatchJob, gameID string) {
	batch.mu.Lock()
	batch.current = gameID
	batch.mu.Unlock()

	job := &Job{ID: r.NewID(), GameID: gameID, Status: StatusAnalyzing, CreatedAt: time.Now()}
	err := r.analyseAndPersist(job)

	batch.mu.Lock()
	batch.done++
	batch.current = ""
	if err != nil {
		batch.errors = append(batch.errors, gameID+": "+err.Error())
	} else {
		batch.succeeded++
	}
	done, total := batch.done, len(batch.GameIDs)
	batch.mu.Unlock()

	if err != nil {
		logrus.WithError(err).WithField("game", gameID).Error("jobs: batch game failed")
	}
	r.Hub.Publish(ws.Event{JobID: batch.ID, Type: ws.EventProgress, Current: done, Total: total, Message: gameID})
}

// Batch looks up an in-flight or finished batch by ID.
func (r *Runner) Batch(batchID string) (*BatchJob, bool) {
	r.jobsMutex.RLock()
	defer r.jobsMutex.RUnlock()
	b, ok := r.batches[batchID]
	return b, ok
}
