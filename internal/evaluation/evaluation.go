// Package evaluation defines the per-position result returned by an
// engine query, always expressed from a
// fixed reference side (White), plus the conversions to a mover's
// perspective that the classifier and estimator need at their call sites.
package evaluation

import "github.com/dco-chess/analysis-service/internal/models"

// Evaluation is a single position's engine result. Exactly one of ScoreCP /
// ScoreMate is populated for a definite evaluation. Scores are always from
// White's perspective; callers convert to mover-perspective explicitly.
type Evaluation struct {
	ScoreCP  *int
	ScoreMate *int
	BestMove string
	PVLines  [][]string
	Depth    int
}

// IsMate reports whether this evaluation is a forced-mate score.
func (e *Evaluation) IsMate() bool {
	return e != nil && e.ScoreMate != nil
}

// MateForColor reports whether the mate score favours the given color
// (positive mate count = White mates; negative = Black mates).
func (e *Evaluation) MateForColor(c models.Color) bool {
	if e == nil || e.ScoreMate == nil {
		return false
	}
	if c == models.White {
		return *e.ScoreMate > 0
	}
	return *e.ScoreMate < 0
}

// MoverScore converts the White-relative score to the perspective of the
// side to move, flipping sign for Black. Returns nil when no cp score is
// present (e.g. a pure mate score).
func MoverScore(e *Evaluation, mover models.Color) *int {
	if e == nil || e.ScoreCP == nil {
		return nil
	}
	v := *e.ScoreCP
	if mover == models.Black {
		v = -v
	}
	return &v
}

// MoverMateScore is the mate-in-N count from the mover's perspective
// (positive = mover mates, negative = mover gets mated), or nil if this
// evaluation carries no mate score.
func MoverMateScore(e *Evaluation, mover models.Color) *int {
	if e == nil || e.ScoreMate == nil {
		return nil
	}
	v := *e.ScoreMate
	if mover == models.Black {
		v = -v
	}
	return &v
}
