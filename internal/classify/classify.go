// Package classify implements the per-move decision that turns three
// evaluation probes plus policy inputs into one of nine move categories,
// including the multi-PV Critical-position probe and the
// material-persistence Brilliant gate.
package classify

import (
	"fmt"
	"sort"

	"github.com/notnil/chess"

	"github.com/dco-chess/analysis-service/internal/chessutil"
	"github.com/dco-chess/analysis-service/internal/engine"
	"github.com/dco-chess/analysis-service/internal/evaluation"
	"github.com/dco-chess/analysis-service/internal/models"
)

// Thresholds are the configurable centipawn boundaries between the
// delta-based categories.
type Thresholds struct {
	ExcellentCP  int
	GoodCP       int
	InaccuracyCP int
	MistakeCP    int
}

func DefaultThresholds() Thresholds {
	return Thresholds{ExcellentCP: 15, GoodCP: 50, InaccuracyCP: 100, MistakeCP: 200}
}

const (
	uniqueGap        = 120
	breadthGap       = 150
	worstGap         = 250
	decidedSuppress  = 600
	brilliantMargin  = 30
	brilliantMinSac  = 2
	pvHorizonPlies   = 8
	criticalMultiPV  = 5
	mateCPEquivalent = 100000
)

// Prober is the subset of an engine Session the classifier needs: a normal
// evaluate and a multi-PV probe. *engine.Session satisfies it structurally.
type Prober interface {
	Evaluate(fen string, limit engine.Limit) (*evaluation.Evaluation, error)
	EvaluateMultiPV(fen string, limit engine.Limit, multiPV int) ([]evaluation.Evaluation, error)
}

// Input bundles everything one ply's classification needs.
type Input struct {
	Before, Best, After *evaluation.Evaluation
	Mover               models.Color
	IsBook              bool
	PlyIndex            int
	FENBefore           string
	FENAfter            string
	PlayedMove          *chess.Move
	PlayedUCI           string
	PrevMove            *chess.Move // nil on the game's first ply
	SearchDepth         int         // depth used for After's evaluation
}

// Result is the classifier's verdict for one ply.
type Result struct {
	Classification models.Classification
	CPL            int
	IsCritical     bool
	IsBrilliant    bool
	Comment        string
}

// Classifier holds the configured thresholds and the engine used for the
// Critical/Brilliant gates' extra probes.
type Classifier struct {
	Thresholds Thresholds
	Prober     Prober
}

func New(prober Prober, thresholds Thresholds) *Classifier {
	return &Classifier{Thresholds: thresholds, Prober: prober}
}

// Classify runs the nine-way decision for one ply.
func (c *Classifier) Classify(in Input) (Result, error) {
	// 1. Book check.
	if in.IsBook {
		return Result{Classification: models.ClassBook}, nil
	}

	// 2. Mover-perspective delta, clamped to >= 0. This value is also the
	// move's stored CPL.
	delta := moverDelta(in.Best, in.After, in.Mover)

	// 3. Mate handling.
	bestMate := evaluation.MoverMateScore(in.Best, in.Mover)
	afterMate := evaluation.MoverMateScore(in.After, in.Mover)
	if bestMate != nil && *bestMate > 0 {
		moverStillMates := afterMate != nil && *afterMate > 0
		if !moverStillMates {
			return Result{Classification: models.ClassCritical, CPL: delta, IsCritical: true,
				Comment: "missed forced mate"}, nil
		}
	}
	if afterMate != nil && *afterMate < 0 {
		return Result{Classification: models.ClassBlunder, CPL: delta,
			Comment: "allows forced mate for the opponent"}, nil
	}

	// 4. Played move equals the engine's best move for this position (the
	// best-move string rides on the before-evaluation; Best is the position
	// after that move, so its own BestMove field is the opponent's reply).
	if in.PlayedUCI != "" && in.Before != nil && in.PlayedUCI == in.Before.BestMove {
		critical, err := c.isCriticalPosition(in)
		if err != nil {
			return Result{}, fmt.Errorf("critical-position probe: %w", err)
		}
		if critical {
			return Result{Classification: models.ClassCritical, CPL: delta, IsCritical: true}, nil
		}

		brilliant, err := c.isBrilliantMove(in, delta)
		if err != nil {
			return Result{}, fmt.Errorf("brilliant-move probe: %w", err)
		}
		if brilliant {
			return Result{Classification: models.ClassBrilliant, CPL: delta, IsBrilliant: true}, nil
		}
		return Result{Classification: models.ClassBest, CPL: delta}, nil
	}

	// 5. Delta-threshold classification.
	class := c.classifyByDelta(delta)

	// 6. The Brilliant gate may upgrade an Excellent classification.
	if class == models.ClassExcellent {
		brilliant, err := c.isBrilliantMove(in, delta)
		if err != nil {
			return Result{}, fmt.Errorf("brilliant-move probe: %w", err)
		}
		if brilliant {
			return Result{Classification: models.ClassBrilliant, CPL: delta, IsBrilliant: true}, nil
		}
	}
	return Result{Classification: class, CPL: delta}, nil
}

func (c *Classifier) classifyByDelta(delta int) models.Classification {
	t := c.Thresholds
	switch {
	case delta <= t.ExcellentCP:
		return models.ClassExcellent
	case delta <= t.GoodCP:
		return models.ClassGood
	case delta <= t.InaccuracyCP:
		return models.ClassInaccuracy
	case delta <= t.MistakeCP:
		return models.ClassMistake
	default:
		return models.ClassBlunder
	}
}

// moverDelta computes Δ = score_best - score_after from the mover's
// perspective, clamped to >= 0, with mate scores expressed on the same cp
// scale so the clamp and downstream CPL storage remain total: a mate value
// n plies from the mover's perspective maps to sign(n)*(100000-|n|), placing
// forced mates far outside any realistic centipawn evaluation without ever
// leaving the scalar undefined.
func moverDelta(best, after *evaluation.Evaluation, mover models.Color) int {
	b := moverCPEquivalent(best, mover)
	a := moverCPEquivalent(after, mover)
	if b == nil || a == nil {
		return 0
	}
	d := *b - *a
	if d < 0 {
		d = 0
	}
	return d
}

func moverCPEquivalent(e *evaluation.Evaluation, mover models.Color) *int {
	if e == nil {
		return nil
	}
	if e.ScoreCP != nil {
		return evaluation.MoverScore(e, mover)
	}
	if e.ScoreMate != nil {
		m := evaluation.MoverMateScore(e, mover)
		n := *m
		var val int
		if n >= 0 {
			val = mateCPEquivalent - n
		} else {
			val = -(mateCPEquivalent + n)
		}
		return &val
	}
	return nil
}

// isCriticalPosition runs the multi-PV=5 probe and checks the gates in
// order: decided-suppress, uniqueness, breadth collapse, worst-alternative
// collapse.
func (c *Classifier) isCriticalPosition(in Input) (bool, error) {
	lines, err := c.Prober.EvaluateMultiPV(in.FENBefore, engine.Limit{Depth: in.SearchDepth}, criticalMultiPV)
	if err != nil {
		return false, err
	}
	if len(lines) < 2 {
		return false, nil
	}

	scores := make([]int, 0, len(lines))
	for _, l := range lines {
		v := moverCPEquivalent(&l, in.Mover)
		if v == nil {
			break
		}
		scores = append(scores, *v)
	}
	if len(scores) < 2 {
		return false, nil
	}

	e1 := scores[0]
	mateRelated := lines[0].IsMate()
	if !(abs(e1) < decidedSuppress || mateRelated) {
		return false, nil
	}
	if e1-scores[1] < uniqueGap {
		return false, nil
	}
	if len(scores) >= 3 {
		if e1-median(scores[1:]) < breadthGap {
			return false, nil
		}
	}
	if len(scores) >= 5 {
		if e1-scores[4] < worstGap {
			return false, nil
		}
	}
	return true, nil
}

// isBrilliantMove checks the four Brilliant-gate conditions: a persistent
// material sacrifice by a non-recapture, non-forced, non-check move whose
// deeper re-score still holds up.
func (c *Classifier) isBrilliantMove(in Input, delta int) (bool, error) {
	playedEngineBest := in.Before != nil && in.PlayedUCI != "" && in.PlayedUCI == in.Before.BestMove
	isCandidate := playedEngineBest || delta <= c.Thresholds.ExcellentCP
	if !isCandidate {
		return false, nil
	}
	if isRecapture(in.PlayedMove, in.PrevMove) {
		return false, nil
	}
	if in.PlayedMove != nil && chessutil.IsCheck(in.PlayedMove) {
		return false, nil
	}

	gameBefore, err := chessutil.GameFromFEN(in.FENBefore)
	if err != nil {
		return false, err
	}
	if chessutil.LegalMoveCount(gameBefore) <= 1 {
		return false, nil
	}

	posAfter, err := chessutil.GameFromFEN(in.FENAfter)
	if err != nil {
		return false, err
	}
	moverChess := chessutil.ToColor(in.Mover)
	materialBefore := chessutil.Material(gameBefore.Position(), moverChess)
	materialImmediate := chessutil.Material(posAfter.Position(), moverChess)
	if materialImmediate >= materialBefore {
		return false, nil
	}

	var pv []string
	if in.After != nil && len(in.After.PVLines) > 0 {
		pv = in.After.PVLines[0]
	}
	_, played, finalMaterial := chessutil.PushUCILine(in.FENAfter, pv, pvHorizonPlies)
	moverMaterialHorizon := materialImmediate
	if in.Mover == models.White {
		moverMaterialHorizon = finalMaterial.White
	} else {
		moverMaterialHorizon = finalMaterial.Black
	}

	if len(played) >= 4 {
		if moverMaterialHorizon >= materialBefore-1 {
			return false, nil // recovered: it was a trade
		}
		if materialBefore-moverMaterialHorizon < brilliantMinSac {
			return false, nil
		}
	} else {
		if materialBefore-materialImmediate < brilliantMinSac {
			return false, nil
		}
	}

	deeper, err := c.Prober.Evaluate(in.FENAfter, engine.Limit{Depth: in.SearchDepth + 5})
	if err != nil {
		return false, err
	}
	deeperScore := moverCPEquivalent(deeper, in.Mover)
	bestScore := moverCPEquivalent(in.Best, in.Mover)
	if deeperScore == nil || bestScore == nil {
		return false, nil
	}
	if *deeperScore < *bestScore-brilliantMargin {
		return false, nil
	}
	return true, nil
}

// isRecapture reports whether a previous move exists, it captured on
// square t, and the current move captures on the same square t.
func isRecapture(played, prev *chess.Move) bool {
	if played == nil || prev == nil {
		return false
	}
	if !chessutil.IsCapture(prev) || !chessutil.IsCapture(played) {
		return false
	}
	return played.S2() == prev.S2()
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func median(vals []int) int {
	sorted := append([]int(nil), vals...)
	sort.Ints(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
