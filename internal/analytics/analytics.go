// Package analytics derives a game's aggregate statistics (per-phase,
// per-color, histogram, critical-position) as a pure function of its
// persisted Move rows.
package analytics

import "github.com/dco-chess/analysis-service/internal/models"

const (
	openingMaxPly   = 12
	middlegameMaxPly = 60
)

var cplBucketBounds = []struct {
	label string
	max   int // inclusive upper bound; last bucket catches everything above
}{
	{"0-20", 20},
	{"20-50", 50},
	{"50-100", 100},
	{"100-200", 200},
	{"200+", -1},
}

// Aggregate computes the GameAnalytics row for one game's moves, in ply
// order.
func Aggregate(gameID string, moves []models.Move) models.GameAnalytics {
	g := models.GameAnalytics{GameID: gameID}
	bucketCounts := make([]int, len(cplBucketBounds))
	criticalCPLSum := 0

	for _, m := range moves {
		phase := phaseStatsFor(&g, m.PlyIndex)
		colorStats := colorStatsFor(&g, m.Color)
		accumulateClass(&g.Overall, m.Classification)
		accumulateClass(phase, m.Classification)
		accumulateClass(colorStats, m.Classification)

		if !m.IsBook && m.CPL != nil {
			addCPL(&g.Overall, *m.CPL)
			addCPL(phase, *m.CPL)
			addCPL(colorStats, *m.CPL)
			g.CPLTotal++
			bucketCounts[bucketIndex(*m.CPL)]++
		}

		if m.IsCritical {
			g.CriticalFaced++
			if m.CPL != nil {
				criticalCPLSum += *m.CPL
			}
			if m.CPL != nil && *m.CPL == 0 {
				g.CriticalSolved++
			} else {
				g.CriticalFailed++
			}
		}
	}

	for _, s := range []*models.PhaseStats{&g.Overall, &g.Opening, &g.Middle, &g.Endgame, &g.White, &g.Black} {
		if s.CPLCount > 0 {
			s.ACPL = float64(s.CPLSum) / float64(s.CPLCount)
		}
	}

	if g.CriticalFaced > 0 {
		g.ACPLInCritical = float64(criticalCPLSum) / float64(g.CriticalFaced)
	}

	g.Buckets = make([]models.CPLBucket, len(cplBucketBounds))
	for i, b := range cplBucketBounds {
		g.Buckets[i] = models.CPLBucket{Label: b.label, Count: bucketCounts[i]}
	}

	return g
}

func phaseStatsFor(g *models.GameAnalytics, ply int) *models.PhaseStats {
	switch {
	case ply <= openingMaxPly:
		return &g.Opening
	case ply <= middlegameMaxPly:
		return &g.Middle
	default:
		return &g.Endgame
	}
}

func colorStatsFor(g *models.GameAnalytics, c models.Color) *models.PhaseStats {
	if c == models.White {
		return &g.White
	}
	return &g.Black
}

func accumulateClass(s *models.PhaseStats, class models.Classification) {
	switch class {
	case models.ClassBook:
		s.BookCount++
	case models.ClassBest:
		s.BestCount++
	case models.ClassExcellent:
		s.ExcellentCount++
	case models.ClassGood:
		s.GoodCount++
	case models.ClassInaccuracy:
		s.InaccuracyCount++
	case models.ClassMistake:
		s.MistakeCount++
	case models.ClassBlunder:
		s.BlunderCount++
	case models.ClassCritical:
		s.CriticalCount++
	case models.ClassBrilliant:
		s.BrilliantCount++
	}
}

func addCPL(s *models.PhaseStats, cpl int) {
	s.CPLSum += cpl
	s.CPLCount++
}

func bucketIndex(cpl int) int {
	for i, b := range cplBucketBounds {
		if b.max < 0 || cpl <= b.max {
			return i
		}
	}
	return len(cplBucketBounds) - 1
}
