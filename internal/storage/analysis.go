package storage

import (
	"encoding/json"

	"github.com/dgraph-io/badger/v4"

	"github.com/dco-chess/analysis-service/internal/models"
)

// GetAnalysis fetches the per-game Analysis summary. Returns ErrNotFound if
// the game has never been analysed.
func (s *Store) GetAnalysis(gameID string) (models.Analysis, error) {
	var a models.Analysis
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(analysisKey(gameID))
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

func putAnalysis(txn *badger.Txn, a models.Analysis) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return txn.Set(analysisKey(a.GameID), data)
}
