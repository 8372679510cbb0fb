package importer

import "github.com/dco-chess/analysis-service/internal/models"

// ImportChessCom fetches username's matching games from chess.com and
// stores each one, applying the same duplicate check as ImportPGNText.
// Returns an error only when the ChessCom client was never configured;
// per-archive and per-game problems are reported through Result instead.
func (im *Importer) ImportChessCom(username string, opts FetchOptions, skipDuplicates bool) (Result, error) {
	if im.ChessCom == nil {
		return Result{}, errChessComDisabled
	}

	pgns, fetchErrs := im.ChessCom.FetchPGNs(username, opts)

	var res Result
	res.Errors = append(res.Errors, fetchErrs...)

	for _, pgn := range pgns {
		sub := im.importText(pgn, models.SourceChessCom, skipDuplicates)
		res.Imported = append(res.Imported, sub.Imported...)
		res.Skipped = append(res.Skipped, sub.Skipped...)
		res.Errors = append(res.Errors, sub.Errors...)
	}
	return res, nil
}
