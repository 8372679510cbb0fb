// Package jobs orchestrates a full re-analysis run (analyser, estimator,
// aggregator, and practice generator) as a background job a caller can
// start and poll, following the previous analysis service's asynchronous
// job-plus-progress-callback shape. The moves, analysis and analytics rows
// are written in one storage transaction; the opening tags and the
// regenerated practice items are written afterwards in separate
// transactions, so the analysis and the practice regeneration are not
// committed as one atomic unit.
package jobs

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dco-chess/analysis-service/internal/accuracy"
	"github.com/dco-chess/analysis-service/internal/analyser"
	"github.com/dco-chess/analysis-service/internal/analytics"
	"github.com/dco-chess/analysis-service/internal/engine"
	"github.com/dco-chess/analysis-service/internal/models"
	"github.com/dco-chess/analysis-service/internal/practice"
	"github.com/dco-chess/analysis-service/internal/storage"
	"github.com/dco-chess/analysis-service/internal/ws"
)

// Status is a job's lifecycle state.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusAnalyzing Status = "analyzing"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Job tracks one game's in-flight (or finished) re-analysis run.
type Job struct {
	ID        string
	GameID    string
	Status    Status
	Current   int
	Total     int
	Error     string
	CreatedAt time.Time

	mu sync.RWMutex
}

func (j *Job) setStatus(s Status) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = s
}

func (j *Job) setProgress(current, total int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Current, j.Total = current, total
}

func (j *Job) setError(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = StatusFailed
	j.Error = msg
}

// Snapshot is a safe-to-serialize copy of a Job's current state.
type Snapshot struct {
	ID      string `json:"id"`
	GameID  string `json:"game_id"`
	Status  Status `json:"status"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Error   string `json:"error,omitempty"`
}

func (j *Job) Snapshot() Snapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return Snapshot{ID: j.ID, GameID: j.GameID, Status: j.Status, Current: j.Current, Total: j.Total, Error: j.Error}
}

// Runner wires the analysis pipeline's stages together and tracks active
// jobs so duplicate analysis requests for the same game are coalesced.
type Runner struct {
	Store        *storage.Store
	Pool         *engine.Pool
	Analyser     *analyser.Analyser
	PracticeGen  *practice.Generator
	Hub          *ws.Hub
	NewID        func() string
	EngineVersion string

	activeJobs map[string]*Job
	batches    map[string]*BatchJob
	jobsMutex  sync.RWMutex
}

func NewRunner(store *storage.Store, pool *engine.Pool, an *analyser.Analyser, pg *practice.Generator, hub *ws.Hub, newID func() string, engineVersion string) *Runner {
	return &Runner{
		Store:         store,
		Pool:          pool,
		Analyser:      an,
		PracticeGen:   pg,
		Hub:           hub,
		NewID:         newID,
		EngineVersion: engineVersion,
		activeJobs:    make(map[string]*Job),
		batches:       make(map[string]*BatchJob),
	}
}

// StartGameAnalysis enqueues a re-analysis run for gameID, returning the job
// ID. If a run for that game is already active, its ID is returned instead
// of starting a second run, mirroring the previous analysis service's
// in-flight de-duplication.
func (r *Runner) StartGameAnalysis(gameID string) string {
	r.jobsMutex.RLock()
	if job, exists := r.activeJobs[gameID]; exists {
		r.jobsMutex.RUnlock()
		return job.ID
	}
	r.jobsMutex.RUnlock()

	job := &Job{ID: r.NewID(), GameID: gameID, Status: StatusQueued, CreatedAt: time.Now()}
	r.jobsMutex.Lock()
	r.activeJobs[gameID] = job
	r.jobsMutex.Unlock()

	go r.run(job)

	logrus.Infof("jobs: started analysis job %s for game %s", job.ID, gameID)
	return job.ID
}

// Job looks up an active job by its ID, for status polling. A job is
// removed from the table as soon as its run ends.
func (r *Runner) Job(jobID string) (*Job, bool) {
	r.jobsMutex.RLock()
	defer r.jobsMutex.RUnlock()
	for _, j := range r.activeJobs {
		if j.ID == jobID {
			return j, true
		}
	}
	return nil, false
}

func (r *Runner) run(job *Job) {
	defer func() {
		r.jobsMutex.Lock()
		delete(r.activeJobs, job.GameID)
		r.jobsMutex.Unlock()
	}()

	job.setStatus(StatusAnalyzing)

	if err := r.analyseAndPersist(job); err != nil {
		logrus.Errorf("jobs: analysis failed for game %s: %v", job.GameID, err)
		job.setError(err.Error())
		r.Hub.Publish(ws.Event{JobID: job.ID, Type: ws.EventFailed, Message: err.Error()})
		return
	}

	job.setStatus(StatusCompleted)
	r.Hub.Publish(ws.Event{JobID: job.ID, Type: ws.EventCompleted})
}

func (r *Runner) analyseAndPersist(job *Job) error {
	game, err := r.Store.GetGame(job.GameID)
	if err != nil {
		return fmt.Errorf("load game: %w", err)
	}

	progress := func(current, total int) {
		job.setProgress(current, total)
		r.Hub.Publish(ws.Event{JobID: job.ID, Type: ws.EventProgress, Current: current, Total: total})
	}

	result, err := r.Analyser.AnalyseGame(game.PGNText, progress)
	if err != nil {
		return fmt.Errorf("analyse game: %w", err)
	}
	for i := range result.Moves {
		result.Moves[i].ID = r.NewID()
		result.Moves[i].GameID = job.GameID
	}

	whiteAccuracy, blackAccuracy, whiteElo, blackElo := summariseByColor(result.Moves, game.WhiteElo, game.BlackElo)

	analysisRow := models.Analysis{
		ID:            r.NewID(),
		GameID:        job.GameID,
		EngineVersion: r.EngineVersion,
		Depth:         r.Analyser.Config.Depth,
		TimePerMoveMS: r.Analyser.Config.TimeMS,
		AccuracyWhite: whiteAccuracy,
		AccuracyBlack: blackAccuracy,
		PerfEloWhite:  whiteElo,
		PerfEloBlack:  blackElo,
		CreatedAt:     time.Now(),
	}
	gameAnalytics := analytics.Aggregate(job.GameID, result.Moves)
	gameAnalytics.ID = r.NewID()

	if err := r.Store.ReplaceGameAnalysis(job.GameID, analysisRow, result.Moves, gameAnalytics); err != nil {
		return fmt.Errorf("persist analysis: %w", err)
	}

	game.ECOCode = result.ECOCode
	game.OpeningName = result.OpeningName
	game.OpeningVariation = result.OpeningVariation
	if err := r.Store.SaveGame(game); err != nil {
		return fmt.Errorf("save opening tags: %w", err)
	}

	if err := r.generatePractice(job.GameID, result.Moves); err != nil {
		return fmt.Errorf("generate practice items: %w", err)
	}
	return nil
}

func (r *Runner) generatePractice(gameID string, moves []models.Move) error {
	sess, err := r.Pool.Acquire(r.Analyser.Config.AcquireTimeout)
	if err != nil {
		return fmt.Errorf("acquire engine session: %w", err)
	}
	defer r.Pool.Release(sess)

	generated, err := r.PracticeGen.GenerateForGame(gameID, moves, sess)
	if err != nil {
		return err
	}

	items := make([]models.PracticeItem, 0, len(generated))
	progressRows := make([]models.PracticeProgress, 0, len(generated))
	for _, g := range generated {
		items = append(items, g.Item)
		progressRows = append(progressRows, g.Progress)
	}
	return r.Store.ReplacePracticeForGame(gameID, items, progressRows)
}

// summariseByColor splits moves by color and runs the Accuracy & Elo
// Estimator independently for each side, using the other side's Elo (when
// known) as the blowout cap.
func summariseByColor(moves []models.Move, whiteElo, blackElo *int) (whiteAcc, blackAcc float64, whitePerfElo, blackPerfElo int) {
	var whiteMoves, blackMoves []accuracy.MoveInput
	for _, m := range moves {
		in := accuracy.MoveInput{IsBook: m.IsBook, Classification: m.Classification}
		if m.CPL != nil {
			in.CPL = *m.CPL
		}
		if m.Color == models.White {
			whiteMoves = append(whiteMoves, in)
		} else {
			blackMoves = append(blackMoves, in)
		}
	}
	white := accuracy.Estimate(whiteMoves, blackElo)
	black := accuracy.Estimate(blackMoves, whiteElo)
	return white.Accuracy, black.Accuracy, white.PerfElo, black.PerfElo
}
