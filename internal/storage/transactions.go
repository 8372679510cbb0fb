package storage

import (
	"github.com/dgraph-io/badger/v4"

	"github.com/dco-chess/analysis-service/internal/models"
)

// ReplaceGameAnalysis implements the re-analysis transaction: it deletes a
// game's prior Moves, Analysis, GameAnalytics, PracticeItems, and the
// Progress rows those items owned, then inserts the freshly computed rows,
// all inside one Badger transaction. A re-run of the Game Analyser against
// the same game therefore leaves no orphaned practice state behind.
func (s *Store) ReplaceGameAnalysis(gameID string, analysis models.Analysis, moves []models.Move, analytics models.GameAnalytics) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := deleteByPrefix(txn, movePrefix(gameID)); err != nil {
			return err
		}
		if err := txn.Delete(analysisKey(gameID)); err != nil && err != badger.ErrKeyNotFound {
			return err
		}
		if err := txn.Delete(analyticsKey(gameID)); err != nil && err != badger.ErrKeyNotFound {
			return err
		}
		itemIDs, err := collectPracticeItemIDs(txn, gameID)
		if err != nil {
			return err
		}
		if err := deleteByPrefix(txn, practiceItemPrefix(gameID)); err != nil {
			return err
		}
		for _, itemID := range itemIDs {
			if err := txn.Delete(progressKey(itemID)); err != nil && err != badger.ErrKeyNotFound {
				return err
			}
		}

		if err := putMoves(txn, moves); err != nil {
			return err
		}
		if err := putAnalysis(txn, analysis); err != nil {
			return err
		}
		return putAnalytics(txn, analytics)
	})
}

// ReplacePracticeForGame implements the practice generator's per-game
// idempotency: delete this game's existing PracticeItems and their
// Progress rows, then insert the freshly generated ones, in one
// transaction, so re-running generation for a game never duplicates drills.
func (s *Store) ReplacePracticeForGame(gameID string, items []models.PracticeItem, progress []models.PracticeProgress) error {
	return s.db.Update(func(txn *badger.Txn) error {
		itemIDs, err := collectPracticeItemIDs(txn, gameID)
		if err != nil {
			return err
		}
		if err := deleteByPrefix(txn, practiceItemPrefix(gameID)); err != nil {
			return err
		}
		for _, itemID := range itemIDs {
			if err := txn.Delete(progressKey(itemID)); err != nil && err != badger.ErrKeyNotFound {
				return err
			}
		}

		for _, item := range items {
			if err := putPracticeItem(txn, gameID, item); err != nil {
				return err
			}
		}
		for _, p := range progress {
			if err := putProgress(txn, p); err != nil {
				return err
			}
		}
		return nil
	})
}
