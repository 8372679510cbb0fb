package accuracy

import (
	"math"
	"testing"

	"github.com/dco-chess/analysis-service/internal/models"
)

func TestMoveScorePerfectIsHundred(t *testing.T) {
	if got := MoveScore(0); got != 100 {
		t.Fatalf("MoveScore(0) = %v, want 100", got)
	}
}

func TestMoveScoreClampsAtZero(t *testing.T) {
	if got := MoveScore(1_000_000); got != 0 {
		t.Fatalf("MoveScore(huge) = %v, want 0", got)
	}
}

func TestEstimateAllBookIsPerfect(t *testing.T) {
	moves := []MoveInput{
		{IsBook: true, CPL: 500},
		{IsBook: true, CPL: 900},
	}
	s := Estimate(moves, nil)
	if s.Accuracy != 100 {
		t.Fatalf("accuracy = %v, want 100 for all-book game", s.Accuracy)
	}
	if s.PerfElo != neutralElo {
		t.Fatalf("perf elo = %v, want neutral %v below ply floor", s.PerfElo, neutralElo)
	}
}

func TestEstimatePerfEloBelowPlyFloorIsNeutral(t *testing.T) {
	moves := make([]MoveInput, minPliesForElo-1)
	for i := range moves {
		moves[i] = MoveInput{Classification: models.ClassBest, CPL: 0}
	}
	s := Estimate(moves, nil)
	if s.PerfElo != neutralElo {
		t.Fatalf("perf elo = %v, want neutral %v", s.PerfElo, neutralElo)
	}
}

func TestEstimatePerfEloPenalisesBlundersMoreThanMistakes(t *testing.T) {
	base := make([]MoveInput, minPliesForElo)
	for i := range base {
		base[i] = MoveInput{Classification: models.ClassGood, CPL: 20}
	}
	withBlunder := append([]MoveInput{}, base...)
	withBlunder[0] = MoveInput{Classification: models.ClassBlunder, CPL: 400}
	withMistake := append([]MoveInput{}, base...)
	withMistake[0] = MoveInput{Classification: models.ClassMistake, CPL: 150}

	blunderElo := Estimate(withBlunder, nil).PerfElo
	mistakeElo := Estimate(withMistake, nil).PerfElo
	if blunderElo >= mistakeElo {
		t.Fatalf("blunder elo %d should be lower than mistake elo %d", blunderElo, mistakeElo)
	}
}

func TestEstimateCapsAtOpponentEloPlus400(t *testing.T) {
	moves := make([]MoveInput, minPliesForElo)
	for i := range moves {
		moves[i] = MoveInput{Classification: models.ClassBest, CPL: 0}
	}
	opp := 1000
	s := Estimate(moves, &opp)
	if s.PerfElo > opp+400 {
		t.Fatalf("perf elo %d exceeds opponent+400 cap %d", s.PerfElo, opp+400)
	}
}

func TestMoveScoreHundredCPLBoundary(t *testing.T) {
	// 100 - 28.85*log10(101) is roughly 42.2
	got := MoveScore(100)
	if got < 42.0 || got > 42.4 {
		t.Fatalf("MoveScore(100) = %v, want ~42.2", got)
	}
}

func TestEstimateAccuracyBoundsAndZeroCPLElo(t *testing.T) {
	moves := make([]MoveInput, minPliesForElo)
	for i := range moves {
		moves[i] = MoveInput{Classification: models.ClassBest, CPL: 0}
	}
	s := Estimate(moves, nil)
	if s.Accuracy != 100 {
		t.Errorf("accuracy = %v, want 100.00 for twenty zero-CPL moves", s.Accuracy)
	}
	if s.PerfElo < 2000 {
		t.Errorf("perf elo = %d, want >= 2000 on the zero-ACPL base curve", s.PerfElo)
	}
	if s.PerfElo > maxElo {
		t.Errorf("perf elo = %d exceeds the %d cap", s.PerfElo, maxElo)
	}
}

func TestEstimatePerfEloGatesOnTotalSidePlies(t *testing.T) {
	// 12 book plies plus 10 scored plies: 22 total clears the floor even
	// though fewer than 20 moves carry a CPL.
	moves := make([]MoveInput, 0, 22)
	for i := 0; i < 12; i++ {
		moves = append(moves, MoveInput{IsBook: true})
	}
	for i := 0; i < 10; i++ {
		moves = append(moves, MoveInput{Classification: models.ClassBest, CPL: 0})
	}
	s := Estimate(moves, nil)
	if s.PerfElo == neutralElo {
		t.Fatalf("perf elo = neutral %d; a side with %d total plies should be rated", neutralElo, len(moves))
	}
	if s.PerfElo < 2000 {
		t.Errorf("perf elo = %d, want >= 2000 for zero ACPL", s.PerfElo)
	}
}

func TestEstimateAccuracyRoundsToTwoDecimals(t *testing.T) {
	moves := []MoveInput{
		{Classification: models.ClassExcellent, CPL: 3},
		{Classification: models.ClassGood, CPL: 17},
	}
	s := Estimate(moves, nil)
	if got := math.Round(s.Accuracy*100) / 100; got != s.Accuracy {
		t.Errorf("accuracy %v carries more than two decimals", s.Accuracy)
	}
}
