package analytics

import (
	"testing"

	"github.com/dco-chess/analysis-service/internal/models"
)

func cpl(v int) *int { return &v }

func TestAggregateCountsPhasesAndCriticalOutcomes(t *testing.T) {
	moves := []models.Move{
		{PlyIndex: 0, Color: models.White, Classification: models.ClassBook, IsBook: true, CPL: cpl(0)},
		{PlyIndex: 1, Color: models.Black, Classification: models.ClassBest, CPL: cpl(0)},
		{PlyIndex: 20, Color: models.White, Classification: models.ClassCritical, IsCritical: true, CPL: cpl(0)},
		{PlyIndex: 21, Color: models.Black, Classification: models.ClassCritical, IsCritical: true, CPL: cpl(80)},
		{PlyIndex: 70, Color: models.White, Classification: models.ClassBlunder, CPL: cpl(400)},
	}

	g := Aggregate("game-1", moves)

	if g.Overall.BookCount != 1 {
		t.Errorf("BookCount = %d, want 1", g.Overall.BookCount)
	}
	if g.CriticalFaced != 2 || g.CriticalSolved != 1 || g.CriticalFailed != 1 {
		t.Errorf("critical stats = faced %d solved %d failed %d, want 2/1/1",
			g.CriticalFaced, g.CriticalSolved, g.CriticalFailed)
	}
	if g.Endgame.BlunderCount != 1 {
		t.Errorf("Endgame.BlunderCount = %d, want 1", g.Endgame.BlunderCount)
	}
	if g.Middle.CriticalCount != 2 {
		t.Errorf("Middle.CriticalCount = %d, want 2", g.Middle.CriticalCount)
	}
	if g.CPLTotal != 4 {
		t.Errorf("CPLTotal = %d, want 4 (book move excluded)", g.CPLTotal)
	}
	if rate := g.CriticalRate(); rate != 0.5 {
		t.Errorf("CriticalRate() = %v, want 0.5", rate)
	}
	if g.ACPLInCritical != 40 {
		t.Errorf("ACPLInCritical = %v, want 40 (CPL 0 and 80 over 2 faced)", g.ACPLInCritical)
	}

	bucketSum := 0
	for _, b := range g.Buckets {
		bucketSum += b.Count
	}
	if bucketSum != g.CPLTotal {
		t.Errorf("bucket counts sum to %d, want CPLTotal %d", bucketSum, g.CPLTotal)
	}
	if g.Buckets[0].Count != 2 || g.Buckets[2].Count != 1 || g.Buckets[4].Count != 1 {
		t.Errorf("bucket spread = %+v, want CPL 0,0 in 0-20, 80 in 50-100, 400 in 200+", g.Buckets)
	}
}

func TestAggregateEmptyMoves(t *testing.T) {
	g := Aggregate("game-2", nil)
	if g.CriticalRate() != 0 {
		t.Errorf("CriticalRate() on no moves = %v, want 0", g.CriticalRate())
	}
	if g.ACPLInCritical != 0 {
		t.Errorf("ACPLInCritical on no moves = %v, want 0", g.ACPLInCritical)
	}
}
