package uci

import "testing"

func TestParseInfoLineCPScore(t *testing.T) {
	line := "info depth 20 seldepth 28 multipv 1 score cp 35 nodes 1500000 nps 900000 pv e2e4 e7e5 g1f3"
	pv, ok := parseInfoLine(line)
	if !ok {
		t.Fatal("expected a parseable info line")
	}
	if pv.Depth != 20 || pv.MultiPV != 1 {
		t.Errorf("depth/multipv = %d/%d, want 20/1", pv.Depth, pv.MultiPV)
	}
	if pv.ScoreCP == nil || *pv.ScoreCP != 35 {
		t.Errorf("ScoreCP = %v, want 35", pv.ScoreCP)
	}
	if pv.ScoreMate != nil {
		t.Error("ScoreMate should be nil for a cp score")
	}
	if len(pv.Moves) != 3 || pv.Moves[0] != "e2e4" {
		t.Errorf("Moves = %v, want the 3-ply pv starting e2e4", pv.Moves)
	}
}

func TestParseInfoLineMateScore(t *testing.T) {
	line := "info depth 12 multipv 2 score mate -3 pv d8h4 g2g3 h4g3"
	pv, ok := parseInfoLine(line)
	if !ok {
		t.Fatal("expected a parseable info line")
	}
	if pv.MultiPV != 2 {
		t.Errorf("MultiPV = %d, want 2", pv.MultiPV)
	}
	if pv.ScoreMate == nil || *pv.ScoreMate != -3 {
		t.Errorf("ScoreMate = %v, want -3", pv.ScoreMate)
	}
}

func TestParseInfoLineIgnoresNonSearchLines(t *testing.T) {
	for _, line := range []string{
		"info string NNUE evaluation using nn-abc.nnue enabled",
		"info depth 5 currmove e2e4 currmovenumber 1",
		"bestmove e2e4",
	} {
		if _, ok := parseInfoLine(line); ok {
			t.Errorf("line %q should not parse as a PV line", line)
		}
	}
}

func TestBestLinePrefersRankOne(t *testing.T) {
	one := 1
	two := 2
	r := &SearchResult{Lines: []PVLine{
		{MultiPV: 2, ScoreCP: &two, Moves: []string{"d2d4"}},
		{MultiPV: 1, ScoreCP: &one, Moves: []string{"e2e4"}},
	}}
	if got := r.BestLine(); got.MultiPV != 1 || got.Moves[0] != "e2e4" {
		t.Errorf("BestLine() = %+v, want the rank-1 line", got)
	}
}
