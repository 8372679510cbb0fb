// Package models holds the plain record types persisted and exchanged by the
// analysis-and-practice pipeline. None of these types carry behaviour beyond
// small accessors; the decision logic that produces and consumes them lives
// in the sibling internal packages (classify, accuracy, analyser, ...).
package models

import "time"

// Classification is the tagged variant of the nine move categories the
// classifier can produce. Stored in uppercase canonical form.
type Classification string

const (
	ClassBook        Classification = "BOOK"
	ClassBest        Classification = "BEST"
	ClassExcellent   Classification = "EXCELLENT"
	ClassGood        Classification = "GOOD"
	ClassInaccuracy  Classification = "INACCURACY"
	ClassMistake     Classification = "MISTAKE"
	ClassBlunder     Classification = "BLUNDER"
	ClassCritical    Classification = "CRITICAL"
	ClassBrilliant   Classification = "BRILLIANT"
)

// Color is the mover's side, stored alongside every Move row so that
// per-color aggregation never has to re-derive parity from the ply index.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

func ColorForPly(plyIndex int) Color {
	if plyIndex%2 == 0 {
		return White
	}
	return Black
}

// GameSource tags how a Game entered the store.
type GameSource string

const (
	SourcePGN      GameSource = "pgn"
	SourceChessCom GameSource = "chesscom"
)

// Game is immutable after insert except for the opening tags and the
// relations (Analysis, Moves, GameAnalytics, PracticeItems) that hang off it.
type Game struct {
	ID               string
	PGNText          string
	White            string
	Black            string
	WhiteElo         *int
	BlackElo         *int
	Date             string
	Event            string
	TimeControl      string
	Result           string
	Termination      string
	Source           GameSource
	ECOCode          *string
	OpeningName      *string
	OpeningVariation *string
	CreatedAt        time.Time
}

// Move is one ply of an analysed game. Created by the Game Analyser, never
// mutated afterwards.
type Move struct {
	ID             string
	GameID         string
	PlyIndex       int
	Color          Color
	SAN            string
	UCI            string
	FENBefore      string
	FENAfter       string
	EvalBeforeCP   *int
	EvalBestCP     *int
	EvalAfterCP    *int
	BestUCI        string
	Classification Classification
	IsBook         bool
	IsCritical     bool
	IsBrilliant    bool
	CPL            *int
	Comment        string
}

// Analysis is the 1:1 per-game summary produced by the accuracy/Elo
// estimator.
type Analysis struct {
	ID              string
	GameID          string
	EngineVersion   string
	Depth           int
	TimePerMoveMS   int
	AccuracyWhite   float64
	AccuracyBlack   float64
	PerfEloWhite    int
	PerfEloBlack    int
	CreatedAt       time.Time
}

// CPLBucket is one bin of the CPL histogram.
type CPLBucket struct {
	Label string
	Count int
}

// PhaseStats accumulates error counts and CPL sums for one game phase or
// color slice.
type PhaseStats struct {
	ACPL            float64
	CPLSum          int
	CPLCount        int
	BookCount       int
	BestCount       int
	ExcellentCount  int
	GoodCount       int
	InaccuracyCount int
	MistakeCount    int
	BlunderCount    int
	CriticalCount   int
	BrilliantCount  int
}

// GameAnalytics is the 1:1 aggregate row derived from a game's persisted
// Move rows.
type GameAnalytics struct {
	ID       string
	GameID   string
	Overall  PhaseStats
	Opening  PhaseStats
	Middle   PhaseStats
	Endgame  PhaseStats
	White    PhaseStats
	Black    PhaseStats
	Buckets  []CPLBucket
	CPLTotal int

	CriticalFaced  int
	CriticalSolved int
	CriticalFailed int

	// ACPLInCritical is the average centipawn loss over the moves played in
	// critical positions, 0 when none were faced.
	ACPLInCritical float64
}

// CriticalRate returns solved/faced, or 0 when none were faced.
func (g *GameAnalytics) CriticalRate() float64 {
	if g.CriticalFaced == 0 {
		return 0
	}
	return float64(g.CriticalSolved) / float64(g.CriticalFaced)
}

// PracticeCategory is the subset of classifications the practice generator
// will turn into drills.
type PracticeCategory string

const (
	CategoryBlunder    PracticeCategory = "BLUNDER"
	CategoryMistake    PracticeCategory = "MISTAKE"
	CategoryInaccuracy PracticeCategory = "INACCURACY"
	CategoryCritical   PracticeCategory = "CRITICAL"
)

// PracticeItem is a drill extracted from a mistake; its lifetime is bound
// to the source game.
type PracticeItem struct {
	ID             string
	SourceGameID   string
	SourcePlyIndex int
	FENStart       string
	SideToMove     Color
	TargetUCI      []string
	TargetSAN      []string
	Category       PracticeCategory
	MotifTags      []string
}

// PracticeResult is the outcome of one attempt at an item.
type PracticeResult string

const (
	ResultPassFirstTry PracticeResult = "pass_first_try"
	ResultPass         PracticeResult = "pass"
	ResultFail         PracticeResult = "fail"
)

// PracticeProgress is the 1:1 spaced-repetition state for a PracticeItem.
type PracticeProgress struct {
	ID                        string
	PracticeItemID            string
	DueDate                   time.Time
	IntervalDays              float64
	EaseFactor                float64
	Repetitions               int
	Lapses                    int
	LastResult                *PracticeResult
	AttemptsTotal             int
	AttemptsFirstTryCorrect   int
	ConsecutiveFirstTry       int
}

// Mastered reports whether three consecutive first-try passes have retired
// this item from standard scheduling.
func (p *PracticeProgress) Mastered() bool {
	return p.ConsecutiveFirstTry >= 3
}
