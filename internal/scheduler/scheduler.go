// Package scheduler implements SM-2-derived spaced repetition over
// PracticeItems, plus due-item selection for a practice session.
package scheduler

import (
	"math/rand"
	"time"

	"github.com/dco-chess/analysis-service/internal/models"
)

const (
	minEaseFactor = 1.3

	qualityFail         = 1
	qualityPass         = 3
	qualityPassFirstTry = 5
)

// qualityFor maps a practice result to the SM-2 quality scale used by
// Update.
func qualityFor(result models.PracticeResult) int {
	switch result {
	case models.ResultPassFirstTry:
		return qualityPassFirstTry
	case models.ResultPass:
		return qualityPass
	default:
		return qualityFail
	}
}

// Update applies one attempt's outcome to a PracticeProgress row, returning
// the updated row. now is injected so callers control the due-date anchor
// without this package depending on wall-clock time directly.
func Update(p models.PracticeProgress, result models.PracticeResult, now time.Time) models.PracticeProgress {
	quality := qualityFor(result)

	p.AttemptsTotal++
	if result == models.ResultPassFirstTry {
		p.AttemptsFirstTryCorrect++
	}

	if quality < qualityPass {
		p.Repetitions = 0
		p.IntervalDays = 1
		p.EaseFactor = maxFloat(minEaseFactor, p.EaseFactor-0.2)
		p.Lapses++
		p.ConsecutiveFirstTry = 0
	} else {
		p.Repetitions++
		switch p.Repetitions {
		case 1:
			p.IntervalDays = 1
		case 2:
			p.IntervalDays = 6
		default:
			p.IntervalDays *= p.EaseFactor
		}
		p.EaseFactor = maxFloat(minEaseFactor, p.EaseFactor+0.1)
		if result == models.ResultPassFirstTry {
			p.ConsecutiveFirstTry++
		} else {
			p.ConsecutiveFirstTry = 0
		}
	}

	p.LastResult = &result
	p.DueDate = now.Add(time.Duration(p.IntervalDays * float64(24*time.Hour)))
	return p
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// Due is an item paired with its progress row, the unit the session
// selector hands back to the caller.
type Due struct {
	Item     models.PracticeItem
	Progress models.PracticeProgress
}

// SelectConfig controls category filtering and session size.
type SelectConfig struct {
	Categories []models.PracticeCategory // empty = all categories
	Limit      int                       // 0 = no limit
	DueOnly    bool
}

// Select is the session query: filters by category, excludes mastered
// items, prefers due items but falls back to the full non-mastered set
// when none are due, shuffles, and truncates.
func Select(items []Due, cfg SelectConfig, now time.Time, rng *rand.Rand) []Due {
	byCategory := filterByCategory(items, cfg.Categories)

	eligible := make([]Due, 0, len(byCategory))
	for _, d := range byCategory {
		if !d.Progress.Mastered() {
			eligible = append(eligible, d)
		}
	}

	pool := eligible
	if cfg.DueOnly {
		due := make([]Due, 0, len(eligible))
		for _, d := range eligible {
			if !d.Progress.DueDate.After(now) {
				due = append(due, d)
			}
		}
		if len(due) > 0 {
			pool = due
		}
		// else fall back to the full non-mastered set.
	}

	shuffled := make([]Due, len(pool))
	copy(shuffled, pool)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	if cfg.Limit > 0 && cfg.Limit < len(shuffled) {
		shuffled = shuffled[:cfg.Limit]
	}
	return shuffled
}

func filterByCategory(items []Due, categories []models.PracticeCategory) []Due {
	if len(categories) == 0 {
		return items
	}
	want := make(map[models.PracticeCategory]bool, len(categories))
	for _, c := range categories {
		want[c] = true
	}
	out := make([]Due, 0, len(items))
	for _, d := range items {
		if want[d.Item.Category] {
			out = append(out, d)
		}
	}
	return out
}

// Session tracks at-most-once-per-session re-queueing of items not passed
// on the first try, so a single practice session never serves the same
// item more than twice.
type Session struct {
	requeued map[string]bool
}

func NewSession() *Session {
	return &Session{requeued: make(map[string]bool)}
}

// ShouldRequeue reports whether an item may be appended back onto the
// session's remaining queue, and records that it has now used its one
// allowed re-queue.
func (s *Session) ShouldRequeue(itemID string) bool {
	if s.requeued[itemID] {
		return false
	}
	s.requeued[itemID] = true
	return true
}
