// Package importer brings games into the store from PGN text and from
// chess.com's public web archive, applying the same White/Black/Date plus
// opening-moves duplicate check either entry point can trigger.
package importer

import (
	"strings"
	"time"

	"github.com/dco-chess/analysis-service/internal/chessutil"
	"github.com/dco-chess/analysis-service/internal/models"
	"github.com/dco-chess/analysis-service/internal/storage"
)

const duplicateSANWindow = 10

// IDGenerator mints a new row ID, injected so this package never calls
// uuid.New directly and tests can supply deterministic IDs.
type IDGenerator func() string

// Importer turns PGN text or a chess.com username into stored Game rows.
type Importer struct {
	Store   *storage.Store
	NewID   IDGenerator
	ChessCom *ChessComClient // nil disables ImportChessCom
}

func New(store *storage.Store, newID IDGenerator, cc *ChessComClient) *Importer {
	return &Importer{Store: store, NewID: newID, ChessCom: cc}
}

// Result reports one import run's outcome.
type Result struct {
	Imported []models.Game
	Skipped  []string // human-readable duplicate notices
	Errors   []string
}

// ImportPGNText decodes pgnText, which may hold one or more concatenated
// games, and stores each one that isn't a duplicate of an already-stored
// game. Per-game failures are accumulated as errors rather than aborting
// the batch, following the original importer's behaviour.
func (im *Importer) ImportPGNText(pgnText string, skipDuplicates bool) Result {
	return im.importText(pgnText, models.SourcePGN, skipDuplicates)
}

func (im *Importer) importText(pgnText string, source models.GameSource, skipDuplicates bool) Result {
	var res Result

	existing, err := im.Store.ListGames()
	if err != nil {
		res.Errors = append(res.Errors, "could not load existing games for duplicate check: "+err.Error())
		existing = nil
	}

	for _, gameText := range SplitPGNText(pgnText) {
		headers, moves, err := chessutil.ParsePGN(gameText)
		if err != nil {
			res.Errors = append(res.Errors, "error parsing game: "+err.Error())
			continue
		}

		sanMoves := sanPrefix(moves, duplicateSANWindow)
		if skipDuplicates && isDuplicate(existing, headers, sanMoves) {
			res.Skipped = append(res.Skipped, "skipped duplicate: "+headers.White+" vs "+headers.Black+" on "+headers.Date)
			continue
		}

		g := models.Game{
			ID:          im.NewID(),
			PGNText:     gameText,
			White:       headers.White,
			Black:       headers.Black,
			WhiteElo:    headers.WhiteElo,
			BlackElo:    headers.BlackElo,
			Date:        headers.Date,
			Event:       headers.Event,
			TimeControl: headers.TimeControl,
			Result:      headers.Result,
			Termination: headers.Termination,
			Source:      source,
			CreatedAt:   time.Now(),
		}
		if err := im.Store.SaveGame(g); err != nil {
			res.Errors = append(res.Errors, "error saving game: "+err.Error())
			continue
		}
		existing = append(existing, g)
		res.Imported = append(res.Imported, g)
	}

	return res
}

// SplitPGNText splits a blob of one or more PGN games into the individual
// per-game texts, breaking before each "[Event " tag that isn't the very
// first one in the blob.
func SplitPGNText(text string) []string {
	var games []string
	var current strings.Builder

	lines := strings.Split(text, "\n")
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "[Event ") && current.Len() > 0 {
			if chunk := strings.TrimSpace(current.String()); chunk != "" {
				games = append(games, chunk)
			}
			current.Reset()
		}
		current.WriteString(line)
		current.WriteString("\n")
	}
	if chunk := strings.TrimSpace(current.String()); chunk != "" {
		games = append(games, chunk)
	}
	return games
}

func sanPrefix(moves []chessutil.ParsedMove, n int) []string {
	if len(moves) > n {
		moves = moves[:n]
	}
	out := make([]string, len(moves))
	for i, m := range moves {
		out[i] = m.SAN
	}
	return out
}

// isDuplicate matches the original importer's heuristic: same White,
// Black, and Date, and the same opening ten SAN plies.
func isDuplicate(existing []models.Game, headers chessutil.Headers, sanMoves []string) bool {
	if headers.White == "" || headers.Black == "" || headers.Date == "" {
		return false
	}
	want := strings.Join(sanMoves, " ")

	for _, g := range existing {
		if g.White != headers.White || g.Black != headers.Black || g.Date != headers.Date {
			continue
		}
		_, gMoves, err := chessutil.ParsePGN(g.PGNText)
		if err != nil {
			continue
		}
		if strings.Join(sanPrefix(gMoves, duplicateSANWindow), " ") == want {
			return true
		}
	}
	return false
}
