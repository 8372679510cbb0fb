package storage

import (
	"encoding/json"

	"github.com/dgraph-io/badger/v4"

	"github.com/dco-chess/analysis-service/internal/models"
)

func putPracticeItem(txn *badger.Txn, gameID string, item models.PracticeItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return txn.Set(practiceItemKey(gameID, item.ID), data)
}

func putProgress(txn *badger.Txn, p models.PracticeProgress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return txn.Set(progressKey(p.PracticeItemID), data)
}

// GetPracticeItemsByGame returns every drill generated from one game.
func (s *Store) GetPracticeItemsByGame(gameID string) ([]models.PracticeItem, error) {
	var items []models.PracticeItem
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = practiceItemPrefix(gameID)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var item models.PracticeItem
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &item)
			}); err != nil {
				return err
			}
			items = append(items, item)
		}
		return nil
	})
	return items, err
}

// ListAllPracticeItems returns every drill across every game, for the
// scheduler's selection pool.
func (s *Store) ListAllPracticeItems() ([]models.PracticeItem, error) {
	var items []models.PracticeItem
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = practiceItemAllPrefix()
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var item models.PracticeItem
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &item)
			}); err != nil {
				return err
			}
			items = append(items, item)
		}
		return nil
	})
	return items, err
}

// GetProgress fetches one item's spaced-repetition state. Returns
// ErrNotFound if no progress row exists for itemID; items are always
// stored together with their initial progress, so that means the item
// itself is gone.
func (s *Store) GetProgress(itemID string) (models.PracticeProgress, error) {
	var p models.PracticeProgress
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(progressKey(itemID))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &p)
		})
	})
	return p, err
}

// SaveProgress upserts one item's spaced-repetition state, the write side
// of the Scheduler's Update step.
func (s *Store) SaveProgress(p models.PracticeProgress) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return putProgress(txn, p)
	})
}

// ListAllProgress returns every tracked progress row, keyed by item ID, for
// the scheduler's due-item query.
func (s *Store) ListAllProgress() (map[string]models.PracticeProgress, error) {
	out := make(map[string]models.PracticeProgress)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = progressPrefix()
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var p models.PracticeProgress
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &p)
			}); err != nil {
				return err
			}
			out[p.PracticeItemID] = p
		}
		return nil
	})
	return out, err
}
