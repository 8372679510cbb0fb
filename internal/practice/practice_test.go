package practice

import (
	"testing"
	"time"

	"github.com/dco-chess/analysis-service/internal/engine"
	"github.com/dco-chess/analysis-service/internal/evaluation"
	"github.com/dco-chess/analysis-service/internal/models"
)

type fakeProber struct {
	pv []string
}

func (f *fakeProber) Evaluate(fen string, limit engine.Limit) (*evaluation.Evaluation, error) {
	if len(f.pv) == 0 {
		return &evaluation.Evaluation{}, nil
	}
	return &evaluation.Evaluation{PVLines: [][]string{f.pv}}, nil
}

func newID() func() string {
	n := 0
	return func() string {
		n++
		return "id-" + string(rune('a'+n))
	}
}

func sampleMoves() []models.Move {
	return []models.Move{
		{PlyIndex: 0, Color: models.White, FENBefore: "fen0", Classification: models.ClassBest},
		{PlyIndex: 1, Color: models.Black, FENBefore: "fen1", Classification: models.ClassGood},
		{PlyIndex: 2, Color: models.White, FENBefore: "fen2", Classification: models.ClassBlunder},
	}
}

func TestGenerateForGameSkipsUndrilledClassifications(t *testing.T) {
	g := New(DefaultConfig(), newID())
	sess := &fakeProber{pv: []string{"e2e4"}}
	out, err := g.GenerateForGame("game-1", sampleMoves(), sess)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d drills, want 1 (only the Blunder)", len(out))
	}
	if out[0].Item.Category != models.CategoryBlunder {
		t.Errorf("category = %v, want Blunder", out[0].Item.Category)
	}
}

func TestGenerateForGameUsesOffsetStartPly(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OffsetPlies = 2
	g := New(cfg, newID())
	sess := &fakeProber{pv: []string{"e2e4"}}
	out, err := g.GenerateForGame("game-1", sampleMoves(), sess)
	if err != nil {
		t.Fatal(err)
	}
	if out[0].Item.SourcePlyIndex != 2 {
		t.Errorf("source ply = %d, want the mistake ply 2", out[0].Item.SourcePlyIndex)
	}
	if out[0].Item.FENStart != "fen0" {
		t.Errorf("start FEN = %q, want fen0 (two plies before the mistake)", out[0].Item.FENStart)
	}
}

func TestGenerateForGameSkipsEmptyPV(t *testing.T) {
	g := New(DefaultConfig(), newID())
	sess := &fakeProber{pv: nil}
	out, err := g.GenerateForGame("game-1", sampleMoves(), sess)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Fatalf("got %d drills, want 0 when PV is empty", len(out))
	}
}

func TestGenerateForGameSeedsFreshProgress(t *testing.T) {
	g := New(DefaultConfig(), newID())
	sess := &fakeProber{pv: []string{"e2e4"}}
	out, _ := g.GenerateForGame("game-1", sampleMoves(), sess)
	p := out[0].Progress
	if p.IntervalDays != initialIntervalDays || p.EaseFactor != initialEaseFactor || p.Repetitions != 0 {
		t.Errorf("fresh progress = %+v, want interval %v ease %v reps 0", p, initialIntervalDays, initialEaseFactor)
	}
	if p.DueDate.After(time.Now().Add(time.Second)) {
		t.Errorf("due date should be now, got %v", p.DueDate)
	}
}
