package scheduler

import (
	"math/rand"
	"testing"
	"time"

	"github.com/dco-chess/analysis-service/internal/models"
)

func freshProgress() models.PracticeProgress {
	return models.PracticeProgress{
		ID:           "p1",
		IntervalDays: 1,
		EaseFactor:   2.5,
	}
}

func TestUpdateFailResetsRepetitionsAndLowersEase(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p := freshProgress()
	p.Repetitions = 3
	p.ConsecutiveFirstTry = 2

	got := Update(p, models.ResultFail, now)

	if got.Repetitions != 0 {
		t.Errorf("Repetitions = %d, want 0", got.Repetitions)
	}
	if got.IntervalDays != 1 {
		t.Errorf("IntervalDays = %v, want 1", got.IntervalDays)
	}
	if got.EaseFactor != 2.3 {
		t.Errorf("EaseFactor = %v, want 2.3", got.EaseFactor)
	}
	if got.Lapses != 1 {
		t.Errorf("Lapses = %d, want 1", got.Lapses)
	}
	if got.ConsecutiveFirstTry != 0 {
		t.Errorf("ConsecutiveFirstTry = %d, want 0", got.ConsecutiveFirstTry)
	}
	if !got.DueDate.Equal(now.Add(24 * time.Hour)) {
		t.Errorf("DueDate = %v, want now+1d", got.DueDate)
	}
}

func TestUpdateEaseFactorFloorsAtMinimum(t *testing.T) {
	now := time.Now()
	p := freshProgress()
	p.EaseFactor = minEaseFactor + 0.05
	got := Update(p, models.ResultFail, now)
	if got.EaseFactor != minEaseFactor {
		t.Errorf("EaseFactor = %v, want floor %v", got.EaseFactor, minEaseFactor)
	}
}

func TestUpdatePassFirstRepetitionIsOneDay(t *testing.T) {
	now := time.Now()
	p := freshProgress()
	got := Update(p, models.ResultPass, now)
	if got.Repetitions != 1 || got.IntervalDays != 1 {
		t.Errorf("got reps %d interval %v, want 1/1", got.Repetitions, got.IntervalDays)
	}
}

func TestUpdatePassSecondRepetitionIsSixDays(t *testing.T) {
	now := time.Now()
	p := freshProgress()
	p.Repetitions = 1
	got := Update(p, models.ResultPass, now)
	if got.Repetitions != 2 || got.IntervalDays != 6 {
		t.Errorf("got reps %d interval %v, want 2/6", got.Repetitions, got.IntervalDays)
	}
}

func TestUpdatePassThirdRepetitionMultipliesByEase(t *testing.T) {
	now := time.Now()
	p := freshProgress()
	p.Repetitions = 2
	p.IntervalDays = 6
	p.EaseFactor = 2.5
	got := Update(p, models.ResultPass, now)
	if got.Repetitions != 3 {
		t.Fatalf("Repetitions = %d, want 3", got.Repetitions)
	}
	if got.IntervalDays != 15 {
		t.Errorf("IntervalDays = %v, want 6*2.5=15", got.IntervalDays)
	}
}

func TestUpdatePassFirstTryIncrementsConsecutive(t *testing.T) {
	now := time.Now()
	p := freshProgress()
	p.ConsecutiveFirstTry = 2
	got := Update(p, models.ResultPassFirstTry, now)
	if got.ConsecutiveFirstTry != 3 {
		t.Errorf("ConsecutiveFirstTry = %d, want 3", got.ConsecutiveFirstTry)
	}
	if !got.Mastered() {
		t.Error("expected item to be mastered at 3 consecutive first-tries")
	}
}

func TestUpdatePassWithoutFirstTryResetsConsecutive(t *testing.T) {
	now := time.Now()
	p := freshProgress()
	p.ConsecutiveFirstTry = 2
	got := Update(p, models.ResultPass, now)
	if got.ConsecutiveFirstTry != 0 {
		t.Errorf("ConsecutiveFirstTry = %d, want reset to 0", got.ConsecutiveFirstTry)
	}
}

func dueItem(id string, cat models.PracticeCategory, due time.Time, consecutive int) Due {
	return Due{
		Item:     models.PracticeItem{ID: id, Category: cat},
		Progress: models.PracticeProgress{PracticeItemID: id, DueDate: due, ConsecutiveFirstTry: consecutive},
	}
}

func TestSelectExcludesMastered(t *testing.T) {
	now := time.Now()
	items := []Due{
		dueItem("a", models.CategoryBlunder, now.Add(-time.Hour), 0),
		dueItem("b", models.CategoryBlunder, now.Add(-time.Hour), 3),
	}
	got := Select(items, SelectConfig{}, now, rand.New(rand.NewSource(1)))
	if len(got) != 1 || got[0].Item.ID != "a" {
		t.Errorf("got %v, want only item a (b is mastered)", got)
	}
}

func TestSelectPrefersDueButFallsBackWhenNoneDue(t *testing.T) {
	now := time.Now()
	items := []Due{
		dueItem("a", models.CategoryBlunder, now.Add(time.Hour), 0), // not due yet
	}
	got := Select(items, SelectConfig{DueOnly: true}, now, rand.New(rand.NewSource(1)))
	if len(got) != 1 {
		t.Fatalf("expected fallback to the non-mastered set when nothing is due, got %d items", len(got))
	}
}

func TestSelectFiltersByCategory(t *testing.T) {
	now := time.Now()
	items := []Due{
		dueItem("a", models.CategoryBlunder, now.Add(-time.Hour), 0),
		dueItem("b", models.CategoryMistake, now.Add(-time.Hour), 0),
	}
	got := Select(items, SelectConfig{Categories: []models.PracticeCategory{models.CategoryBlunder}}, now, rand.New(rand.NewSource(1)))
	if len(got) != 1 || got[0].Item.ID != "a" {
		t.Errorf("got %v, want only the Blunder item", got)
	}
}

func TestSessionShouldRequeueOnlyOnce(t *testing.T) {
	s := NewSession()
	if !s.ShouldRequeue("item-1") {
		t.Fatal("first requeue should be allowed")
	}
	if s.ShouldRequeue("item-1") {
		t.Fatal("second requeue of the same item should be denied")
	}
}
