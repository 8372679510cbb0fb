package classify

import (
	"testing"

	"github.com/dco-chess/analysis-service/internal/engine"
	"github.com/dco-chess/analysis-service/internal/evaluation"
	"github.com/dco-chess/analysis-service/internal/models"
)

func cp(v int) *int { return &v }

const (
	startFEN  = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
	afterE4FEN = "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1"
)

type fakeProber struct {
	multiPVLines []evaluation.Evaluation
	deeperEval   *evaluation.Evaluation
}

func (f *fakeProber) Evaluate(fen string, limit engine.Limit) (*evaluation.Evaluation, error) {
	if f.deeperEval != nil {
		return f.deeperEval, nil
	}
	return &evaluation.Evaluation{}, nil
}

func (f *fakeProber) EvaluateMultiPV(fen string, limit engine.Limit, multiPV int) ([]evaluation.Evaluation, error) {
	return f.multiPVLines, nil
}

func TestClassifyBookTakesPriority(t *testing.T) {
	c := New(&fakeProber{}, DefaultThresholds())
	res, err := c.Classify(Input{
		IsBook: true,
		Before: &evaluation.Evaluation{ScoreCP: cp(500)},
		Best:   &evaluation.Evaluation{ScoreCP: cp(500)},
		After:  &evaluation.Evaluation{ScoreCP: cp(-800)},
		Mover:  models.White,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Classification != models.ClassBook {
		t.Errorf("classification = %v, want Book", res.Classification)
	}
}

func TestClassifyMissedForcedMateIsCritical(t *testing.T) {
	c := New(&fakeProber{}, DefaultThresholds())
	res, err := c.Classify(Input{
		Best:  &evaluation.Evaluation{ScoreMate: cp(3)},
		After: &evaluation.Evaluation{ScoreCP: cp(50)},
		Mover: models.White,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Classification != models.ClassCritical || !res.IsCritical {
		t.Errorf("classification = %v (critical=%v), want Critical", res.Classification, res.IsCritical)
	}
}

func TestClassifyAllowingMateForOpponentIsBlunder(t *testing.T) {
	c := New(&fakeProber{}, DefaultThresholds())
	res, err := c.Classify(Input{
		Best:  &evaluation.Evaluation{ScoreCP: cp(20)},
		After: &evaluation.Evaluation{ScoreMate: cp(-4)},
		Mover: models.White,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Classification != models.ClassBlunder {
		t.Errorf("classification = %v, want Blunder", res.Classification)
	}
}

func TestClassifyByDeltaThresholds(t *testing.T) {
	c := New(&fakeProber{}, DefaultThresholds())
	cases := []struct {
		cplLoss int
		want    models.Classification
	}{
		{0, models.ClassExcellent},
		{15, models.ClassExcellent},
		{16, models.ClassGood},
		{50, models.ClassGood},
		{51, models.ClassInaccuracy},
		{100, models.ClassInaccuracy},
		{101, models.ClassMistake},
		{200, models.ClassMistake},
		{201, models.ClassBlunder},
	}
	for _, tc := range cases {
		res, err := c.Classify(Input{
			Before:    &evaluation.Evaluation{ScoreCP: cp(100), BestMove: "e2e4"},
			Best:      &evaluation.Evaluation{ScoreCP: cp(100)},
			After:     &evaluation.Evaluation{ScoreCP: cp(100 - tc.cplLoss)},
			Mover:     models.White,
			PlayedUCI: "d2d4", // never equals the engine best, forces threshold path
			FENBefore: startFEN,
			FENAfter:  afterE4FEN,
		})
		if err != nil {
			t.Fatal(err)
		}
		if res.Classification != tc.want {
			t.Errorf("cpl=%d: classification = %v, want %v", tc.cplLoss, res.Classification, tc.want)
		}
		if res.CPL != tc.cplLoss {
			t.Errorf("cpl=%d: stored CPL = %d, want %d", tc.cplLoss, res.CPL, tc.cplLoss)
		}
	}
}

func TestClassifyBestMoveWithoutGatesIsBest(t *testing.T) {
	prober := &fakeProber{
		multiPVLines: []evaluation.Evaluation{
			{ScoreCP: cp(50)},
			{ScoreCP: cp(45)},
		},
	}
	c := New(prober, DefaultThresholds())
	res, err := c.Classify(Input{
		Before:    &evaluation.Evaluation{ScoreCP: cp(50), BestMove: "e2e4"},
		Best:      &evaluation.Evaluation{ScoreCP: cp(50)},
		After:     &evaluation.Evaluation{ScoreCP: cp(50)},
		Mover:     models.White,
		PlayedUCI: "e2e4",
		FENBefore: startFEN,
		FENAfter:  afterE4FEN,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Classification != models.ClassBest {
		t.Errorf("classification = %v, want Best (gap too small for Critical)", res.Classification)
	}
}

func TestClassifyCriticalGateTriggersOnBestMove(t *testing.T) {
	prober := &fakeProber{
		multiPVLines: []evaluation.Evaluation{
			{ScoreCP: cp(100)},
			{ScoreCP: cp(-30)},  // E1-E2 = 130 >= 120
			{ScoreCP: cp(-60)},  // E1-median(E2..E5) = 170 >= 150
			{ScoreCP: cp(-80)},
			{ScoreCP: cp(-160)}, // E1-E5 = 260 >= 250
		},
	}
	c := New(prober, DefaultThresholds())
	res, err := c.Classify(Input{
		Before:    &evaluation.Evaluation{ScoreCP: cp(100), BestMove: "e2e4"},
		Best:      &evaluation.Evaluation{ScoreCP: cp(100)},
		After:     &evaluation.Evaluation{ScoreCP: cp(100)},
		Mover:     models.White,
		PlayedUCI: "e2e4",
		FENBefore: startFEN,
		FENAfter:  afterE4FEN,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Classification != models.ClassCritical || !res.IsCritical {
		t.Errorf("classification = %v, want Critical", res.Classification)
	}
}

func TestClassifyCriticalGateSuppressedWhenDecided(t *testing.T) {
	prober := &fakeProber{
		multiPVLines: []evaluation.Evaluation{
			{ScoreCP: cp(900)}, // |E1| >= 600 and not mate => decided, suppressed
			{ScoreCP: cp(100)},
			{ScoreCP: cp(50)},
			{ScoreCP: cp(0)},
			{ScoreCP: cp(-100)},
		},
	}
	c := New(prober, DefaultThresholds())
	res, err := c.Classify(Input{
		Before:    &evaluation.Evaluation{ScoreCP: cp(900), BestMove: "e2e4"},
		Best:      &evaluation.Evaluation{ScoreCP: cp(900)},
		After:     &evaluation.Evaluation{ScoreCP: cp(900)},
		Mover:     models.White,
		PlayedUCI: "e2e4",
		FENBefore: startFEN,
		FENAfter:  afterE4FEN,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Classification == models.ClassCritical {
		t.Error("decided position (|E1|>=600, not mate) must not be Critical")
	}
}

func TestIsRecaptureDetection(t *testing.T) {
	if isRecapture(nil, nil) {
		t.Error("nil moves can never be a recapture")
	}
}

func TestMedianHelper(t *testing.T) {
	if got := median([]int{1, 2, 3}); got != 2 {
		t.Errorf("median([1,2,3]) = %d, want 2", got)
	}
	if got := median([]int{1, 2, 3, 4}); got != 2 {
		t.Errorf("median([1,2,3,4]) = %d, want 2 (integer average of 2,3)", got)
	}
}

const (
	// Start position missing White's queenside knight: mover material 36
	// against the full 39 of startFEN.
	minusKnightFEN       = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/R1BQKBNR b KQkq - 0 1"
	minusKnightWhiteToMove = "rnbqkbnr/Pppppppp/8/8/8/8/1PPPPPPP/R1BQKBNR w KQkq - 0 1"
)

func TestClassifyBrilliantSacrificePersists(t *testing.T) {
	prober := &fakeProber{
		multiPVLines: []evaluation.Evaluation{
			{ScoreCP: cp(50)},
			{ScoreCP: cp(45)}, // small gap keeps the Critical gate quiet
		},
		deeperEval: &evaluation.Evaluation{ScoreCP: cp(40)}, // within 30cp of best
	}
	c := New(prober, DefaultThresholds())
	res, err := c.Classify(Input{
		Before:    &evaluation.Evaluation{ScoreCP: cp(50), BestMove: "b1c3"},
		Best:      &evaluation.Evaluation{ScoreCP: cp(50)},
		After:     &evaluation.Evaluation{ScoreCP: cp(50)}, // no PV: deficit judged immediately
		Mover:     models.White,
		PlayedUCI: "b1c3",
		FENBefore: startFEN,
		FENAfter:  minusKnightFEN,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Classification != models.ClassBrilliant || !res.IsBrilliant {
		t.Errorf("classification = %v (brilliant=%v), want Brilliant for a persisting knight sacrifice",
			res.Classification, res.IsBrilliant)
	}
}

func TestClassifyTradeIsNotBrilliant(t *testing.T) {
	// The playout promotes the a7 pawn, recovering the deficit: a trade,
	// not a sacrifice.
	prober := &fakeProber{
		multiPVLines: []evaluation.Evaluation{
			{ScoreCP: cp(50)},
			{ScoreCP: cp(45)},
		},
		deeperEval: &evaluation.Evaluation{ScoreCP: cp(40)},
	}
	c := New(prober, DefaultThresholds())
	res, err := c.Classify(Input{
		Before: &evaluation.Evaluation{ScoreCP: cp(50), BestMove: "b1c3"},
		Best:   &evaluation.Evaluation{ScoreCP: cp(50)},
		After: &evaluation.Evaluation{ScoreCP: cp(50),
			PVLines: [][]string{{"a7b8q", "h7h6", "h2h3", "h6h5"}}},
		Mover:     models.White,
		PlayedUCI: "b1c3",
		FENBefore: startFEN,
		FENAfter:  minusKnightWhiteToMove,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Classification != models.ClassBest {
		t.Errorf("classification = %v, want Best (material recovered over the playout)", res.Classification)
	}
	if res.IsBrilliant {
		t.Error("a recovered deficit must not be flagged brilliant")
	}
}
