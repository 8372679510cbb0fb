// Package analyser implements the per-ply walk that drives the engine
// pool through before/best/after evaluations, feeds the classifier, and
// detects the game's opening.
package analyser

import (
	"fmt"
	"time"

	"github.com/dco-chess/analysis-service/internal/apperr"
	"github.com/dco-chess/analysis-service/internal/chessutil"
	"github.com/dco-chess/analysis-service/internal/classify"
	"github.com/dco-chess/analysis-service/internal/eco"
	"github.com/dco-chess/analysis-service/internal/engine"
	"github.com/dco-chess/analysis-service/internal/evaluation"
	"github.com/dco-chess/analysis-service/internal/models"
	"github.com/notnil/chess"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Config controls search depth/time and the book-move prefix length.
type Config struct {
	Depth          int
	TimeMS         int
	BookPlies      int // ply index < BookPlies => is_book. Default 12.
	AcquireTimeout time.Duration
	ECOMaxPlies    int
}

func DefaultConfig() Config {
	return Config{Depth: 16, BookPlies: 12, AcquireTimeout: 30 * time.Second, ECOMaxPlies: 20}
}

// Result is everything the analyser produces for one game, ready for the
// storage layer to persist.
type Result struct {
	Headers          chessutil.Headers
	Moves            []models.Move
	ECOCode          *string
	OpeningName      *string
	OpeningVariation *string
}

// ProgressFunc is called before each ply is analysed, with the zero-based
// ply index and the total ply count, mirroring the prior service's
// (current, total) progress callback contract.
type ProgressFunc func(current, total int)

// Analyser wires the engine pool, classifier, and opening detector together.
// The classifier is built per game around the checked-out session, so its
// Critical/Brilliant probes run on the same engine the walk already holds
// rather than competing for a second one.
type Analyser struct {
	Pool       *engine.Pool
	Thresholds classify.Thresholds
	ECO        *eco.Detector
	Config     Config
}

func New(pool *engine.Pool, thresholds classify.Thresholds, ecoDetector *eco.Detector, cfg Config) *Analyser {
	return &Analyser{Pool: pool, Thresholds: thresholds, ECO: ecoDetector, Config: cfg}
}

// AnalyseGame runs the full per-ply walk over a PGN's move list.
func (a *Analyser) AnalyseGame(pgnText string, progress ProgressFunc) (*Result, error) {
	headers, parsedMoves, err := chessutil.ParsePGN(pgnText)
	if err != nil {
		return nil, apperr.New(apperr.KindPositionParseFailed, "parse pgn", err)
	}

	sess, err := a.Pool.Acquire(a.Config.AcquireTimeout)
	if err != nil {
		return nil, fmt.Errorf("acquire engine session: %w", err)
	}
	defer a.Pool.Release(sess)

	classifier := classify.New(sess, a.Thresholds)

	limit := engine.Limit{Depth: a.Config.Depth}
	if a.Config.TimeMS > 0 {
		limit.Time = time.Duration(a.Config.TimeMS) * time.Millisecond
	}

	moves := make([]models.Move, 0, len(parsedMoves))
	sanSequence := make([]string, 0, len(parsedMoves))

	fenBefore := startFEN
	var prevAfter *evaluation.Evaluation
	var prevMove *chess.Move

	for i, pm := range parsedMoves {
		if progress != nil {
			progress(i, len(parsedMoves))
		}

		var before *evaluation.Evaluation
		if i == 0 || prevAfter == nil {
			before, err = sess.Evaluate(fenBefore, limit)
			if err != nil {
				return nil, fmt.Errorf("evaluate before, ply %d: %w", i, err)
			}
		} else {
			before = prevAfter
		}

		best, _, err := a.evaluateBestLine(sess, fenBefore, before, limit)
		if err != nil {
			return nil, fmt.Errorf("evaluate best, ply %d: %w", i, err)
		}

		after, err := sess.Evaluate(pm.FENAfter, limit)
		if err != nil {
			return nil, fmt.Errorf("evaluate after, ply %d: %w", i, err)
		}

		mover := models.ColorForPly(i)
		isBook := i < a.Config.BookPlies

		result, err := classifier.Classify(classify.Input{
			Before:      before,
			Best:        best,
			After:       after,
			Mover:       mover,
			IsBook:      isBook,
			PlyIndex:    i,
			FENBefore:   fenBefore,
			FENAfter:    pm.FENAfter,
			PlayedMove:  pm.Move,
			PlayedUCI:   pm.UCI,
			PrevMove:    prevMove,
			SearchDepth: a.Config.Depth,
		})
		if err != nil {
			return nil, fmt.Errorf("classify ply %d: %w", i, err)
		}

		move := models.Move{
			PlyIndex:       i,
			Color:          mover,
			SAN:            pm.SAN,
			UCI:            pm.UCI,
			FENBefore:      fenBefore,
			FENAfter:       pm.FENAfter,
			EvalBeforeCP:   before.ScoreCP,
			EvalBestCP:     best.ScoreCP,
			EvalAfterCP:    after.ScoreCP,
			BestUCI:        before.BestMove,
			Classification: result.Classification,
			IsBook:         isBook,
			IsCritical:     result.IsCritical,
			IsBrilliant:    result.IsBrilliant,
			CPL:            intPtr(result.CPL),
			Comment:        result.Comment,
		}
		moves = append(moves, move)
		sanSequence = append(sanSequence, pm.SAN)

		fenBefore = pm.FENAfter
		prevAfter = after
		prevMove = pm.Move
	}

	res := &Result{Headers: headers, Moves: moves}
	if entry, ok := a.ECO.Detect(sanSequence, a.Config.ECOMaxPlies); ok {
		code, name, variation := entry.ECO, entry.Name, entry.Variation
		res.ECOCode = &code
		res.OpeningName = &name
		if variation != "" {
			res.OpeningVariation = &variation
		}
	}
	return res, nil
}

// evaluateBestLine applies the engine's preferred move at fenBefore to a
// scratch position and evaluates the result, giving the `best` scalar.
func (a *Analyser) evaluateBestLine(sess *engine.Session, fenBefore string, before *evaluation.Evaluation, limit engine.Limit) (*evaluation.Evaluation, string, error) {
	if before.BestMove == "" {
		return &evaluation.Evaluation{}, fenBefore, nil
	}
	game, err := chessutil.GameFromFEN(fenBefore)
	if err != nil {
		return nil, "", err
	}
	mv, err := chessutil.FindMoveByUCI(game, before.BestMove)
	if err != nil {
		return nil, "", fmt.Errorf("engine best move %q not legal: %w", before.BestMove, err)
	}
	if err := game.Move(mv); err != nil {
		return nil, "", err
	}
	fenAfterBest := game.Position().String()
	best, err := sess.Evaluate(fenAfterBest, limit)
	if err != nil {
		return nil, "", err
	}
	return best, fenAfterBest, nil
}

func intPtr(v int) *int { return &v }
