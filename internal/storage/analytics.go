package storage

import (
	"encoding/json"

	"github.com/dgraph-io/badger/v4"

	"github.com/dco-chess/analysis-service/internal/models"
)

// GetAnalytics fetches the per-game analytics aggregate. Returns
// ErrNotFound if the game has never been analysed.
func (s *Store) GetAnalytics(gameID string) (models.GameAnalytics, error) {
	var a models.GameAnalytics
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(analyticsKey(gameID))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &a)
		})
	})
	return a, err
}

func putAnalytics(txn *badger.Txn, a models.GameAnalytics) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return txn.Set(analyticsKey(a.GameID), data)
}
