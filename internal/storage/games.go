package storage

import (
	"encoding/json"

	"github.com/dgraph-io/badger/v4"

	"github.com/dco-chess/analysis-service/internal/models"
)

// SaveGame inserts or overwrites a Game row.
func (s *Store) SaveGame(g models.Game) error {
	data, err := json.Marshal(g)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(gameKey(g.ID), data)
	})
}

// GetGame fetches a Game by ID. Returns ErrNotFound if absent.
func (s *Store) GetGame(id string) (models.Game, error) {
	var g models.Game
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(gameKey(id))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &g)
		})
	})
	return g, err
}

// ListGames returns every stored game, newest first by CreatedAt.
func (s *Store) ListGames() ([]models.Game, error) {
	var games []models.Game
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = gamePrefix()
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var g models.Game
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &g)
			}); err != nil {
				return err
			}
			games = append(games, g)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortGamesByCreatedAtDesc(games)
	return games, nil
}

func sortGamesByCreatedAtDesc(games []models.Game) {
	for i := 1; i < len(games); i++ {
		for j := i; j > 0 && games[j].CreatedAt.After(games[j-1].CreatedAt); j-- {
			games[j], games[j-1] = games[j-1], games[j]
		}
	}
}

// DeleteGame removes a Game row along with everything derived from it:
// its Moves, Analysis, GameAnalytics, PracticeItems, and the Progress rows
// for those items. All in one transaction.
func (s *Store) DeleteGame(id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := deleteByPrefix(txn, movePrefix(id)); err != nil {
			return err
		}
		if err := txn.Delete(analysisKey(id)); err != nil && err != badger.ErrKeyNotFound {
			return err
		}
		if err := txn.Delete(analyticsKey(id)); err != nil && err != badger.ErrKeyNotFound {
			return err
		}
		itemIDs, err := collectPracticeItemIDs(txn, id)
		if err != nil {
			return err
		}
		if err := deleteByPrefix(txn, practiceItemPrefix(id)); err != nil {
			return err
		}
		for _, itemID := range itemIDs {
			if err := txn.Delete(progressKey(itemID)); err != nil && err != badger.ErrKeyNotFound {
				return err
			}
		}
		return txn.Delete(gameKey(id))
	})
}

func deleteByPrefix(txn *badger.Txn, prefix []byte) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	var keys [][]byte
	for it.Rewind(); it.Valid(); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	for _, k := range keys {
		if err := txn.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func collectPracticeItemIDs(txn *badger.Txn, gameID string) ([]string, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = practiceItemPrefix(gameID)
	it := txn.NewIterator(opts)
	defer it.Close()

	var ids []string
	for it.Rewind(); it.Valid(); it.Next() {
		var item models.PracticeItem
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &item)
		}); err != nil {
			return nil, err
		}
		ids = append(ids, item.ID)
	}
	return ids, nil
}
