package jobs

import (
	"testing"

	"github.com/dco-chess/analysis-service/internal/models"
)

func cplPtr(v int) *int { return &v }

func TestSummariseByColorSplitsMovesAndUsesOpponentCap(t *testing.T) {
	elo1200 := 1200
	moves := []models.Move{
		{Color: models.White, Classification: models.ClassBest, CPL: cplPtr(0)},
		{Color: models.Black, Classification: models.ClassBlunder, CPL: cplPtr(300)},
	}
	for i := 0; i < 25; i++ {
		moves = append(moves,
			models.Move{Color: models.White, Classification: models.ClassBest, CPL: cplPtr(0)},
			models.Move{Color: models.Black, Classification: models.ClassBlunder, CPL: cplPtr(300)},
		)
	}

	whiteAcc, blackAcc, whiteElo, blackElo := summariseByColor(moves, nil, &elo1200)

	if whiteAcc <= blackAcc {
		t.Errorf("white (no blunders) should score higher accuracy than black, got white=%v black=%v", whiteAcc, blackAcc)
	}
	if whiteElo > elo1200+400 {
		t.Errorf("white perf elo %d exceeds opponent+400 cap of %d", whiteElo, elo1200+400)
	}
	if blackElo >= whiteElo {
		t.Errorf("black (all blunders) should have a lower perf elo than white, got white=%d black=%d", whiteElo, blackElo)
	}
}

func TestSummariseByColorEmptyMovesIsNeutral(t *testing.T) {
	whiteAcc, blackAcc, whiteElo, blackElo := summariseByColor(nil, nil, nil)
	if whiteAcc != 100 || blackAcc != 100 {
		t.Errorf("accuracy with no moves should default to 100 (all-book semantics), got white=%v black=%v", whiteAcc, blackAcc)
	}
	if whiteElo != 1500 || blackElo != 1500 {
		t.Errorf("perf elo with fewer than 20 plies should be neutral 1500, got white=%d black=%d", whiteElo, blackElo)
	}
}

func TestJobSnapshotReflectsProgress(t *testing.T) {
	j := &Job{ID: "j1", GameID: "g1", Status: StatusAnalyzing}
	j.setProgress(5, 10)

	snap := j.Snapshot()
	if snap.Current != 5 || snap.Total != 10 || snap.Status != StatusAnalyzing {
		t.Errorf("got %+v, want current=5 total=10 status=analyzing", snap)
	}
}

func TestJobSetErrorMarksFailed(t *testing.T) {
	j := &Job{ID: "j1", GameID: "g1", Status: StatusAnalyzing}
	j.setError("boom")

	snap := j.Snapshot()
	if snap.Status != StatusFailed || snap.Error != "boom" {
		t.Errorf("got %+v, want status=failed error=boom", snap)
	}
}
