// Package practice turns a game's mistakes into standalone drills, each
// seeded with fresh spaced-repetition progress.
package practice

import (
	"fmt"
	"time"

	"github.com/dco-chess/analysis-service/internal/chessutil"
	"github.com/dco-chess/analysis-service/internal/engine"
	"github.com/dco-chess/analysis-service/internal/evaluation"
	"github.com/dco-chess/analysis-service/internal/models"
)

// Prober is the minimal engine access the generator needs: a single fresh
// evaluation of a drill's start position. *engine.Session satisfies it
// structurally.
type Prober interface {
	Evaluate(fen string, limit engine.Limit) (*evaluation.Evaluation, error)
}

const (
	defaultOffsetPlies     = 2
	defaultTargetLinePlies = 1

	initialIntervalDays = 1.0
	initialEaseFactor   = 2.5
)

// DefaultCategories are the classifications that generate a drill unless the
// caller opts into more (Inaccuracy) or fewer.
func DefaultCategories() map[models.Classification]models.PracticeCategory {
	return map[models.Classification]models.PracticeCategory{
		models.ClassBlunder:  models.CategoryBlunder,
		models.ClassMistake:  models.CategoryMistake,
		models.ClassCritical: models.CategoryCritical,
	}
}

// WithInaccuracy returns DefaultCategories plus the opt-in Inaccuracy
// mapping.
func WithInaccuracy(base map[models.Classification]models.PracticeCategory) map[models.Classification]models.PracticeCategory {
	out := make(map[models.Classification]models.PracticeCategory, len(base)+1)
	for k, v := range base {
		out[k] = v
	}
	out[models.ClassInaccuracy] = models.CategoryInaccuracy
	return out
}

// Config controls the offset and target-line length, and which
// classifications become drills.
type Config struct {
	OffsetPlies     int
	TargetLinePlies int
	Categories      map[models.Classification]models.PracticeCategory
	SearchDepth     int
}

func DefaultConfig() Config {
	return Config{
		OffsetPlies:     defaultOffsetPlies,
		TargetLinePlies: defaultTargetLinePlies,
		Categories:      DefaultCategories(),
		SearchDepth:     16,
	}
}

// IDGenerator produces new unique identifiers for items and progress rows;
// satisfied by google/uuid's NewString at the call site.
type IDGenerator func() string

// Generator builds PracticeItem/PracticeProgress pairs from a game's moves.
type Generator struct {
	Config Config
	NewID  IDGenerator
}

func New(cfg Config, newID IDGenerator) *Generator {
	return &Generator{Config: cfg, NewID: newID}
}

// Generated is one drill's item plus its freshly seeded progress row, ready
// for the storage layer to insert inside the re-analysis transaction.
type Generated struct {
	Item     models.PracticeItem
	Progress models.PracticeProgress
}

// GenerateForGame walks a game's classified moves and, for every one whose
// classification is configured to be drilled, evaluates a fresh principal
// variation from its start position and builds the drill. sess is checked
// out and released by the caller; one session serves the whole game.
func (g *Generator) GenerateForGame(gameID string, moves []models.Move, sess Prober) ([]Generated, error) {
	limit := engine.Limit{Depth: g.Config.SearchDepth}

	var out []Generated
	for _, move := range moves {
		category, drilled := g.Config.Categories[move.Classification]
		if !drilled {
			continue
		}

		startPly := move.PlyIndex - g.Config.OffsetPlies
		if startPly < 0 {
			startPly = 0
		}
		start := moves[startPly]

		eval, err := sess.Evaluate(start.FENBefore, limit)
		if err != nil {
			return nil, fmt.Errorf("evaluate start position at ply %d: %w", startPly, err)
		}
		if len(eval.PVLines) == 0 || len(eval.PVLines[0]) == 0 {
			continue // no PV to drill against
		}

		targetUCI := truncate(eval.PVLines[0], g.Config.TargetLinePlies)
		targetSAN, _, _ := chessutil.PushUCILine(start.FENBefore, targetUCI, len(targetUCI))

		now := timeNow()
		item := models.PracticeItem{
			ID:             g.NewID(),
			SourceGameID:   gameID,
			SourcePlyIndex: move.PlyIndex,
			FENStart:       start.FENBefore,
			SideToMove:     start.Color,
			TargetUCI:      targetUCI,
			TargetSAN:      targetSAN,
			Category:       category,
		}
		progress := models.PracticeProgress{
			ID:             g.NewID(),
			PracticeItemID: item.ID,
			DueDate:        now,
			IntervalDays:   initialIntervalDays,
			EaseFactor:     initialEaseFactor,
			Repetitions:    0,
			Lapses:         0,
		}
		out = append(out, Generated{Item: item, Progress: progress})
	}
	return out, nil
}

func truncate(s []string, n int) []string {
	if n <= 0 || n > len(s) {
		n = len(s)
	}
	out := make([]string, n)
	copy(out, s[:n])
	return out
}

// timeNow is a seam so tests can verify without depending on wall-clock
// time; production code always calls time.Now.
var timeNow = time.Now
