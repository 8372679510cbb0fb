package storage

import (
	"encoding/json"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/dco-chess/analysis-service/internal/models"
)

// GetMovesByGame returns a game's moves ordered by ply index.
func (s *Store) GetMovesByGame(gameID string) ([]models.Move, error) {
	var moves []models.Move
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = movePrefix(gameID)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var m models.Move
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &m)
			}); err != nil {
				return err
			}
			moves = append(moves, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(moves, func(i, j int) bool { return moves[i].PlyIndex < moves[j].PlyIndex })
	return moves, nil
}

func putMoves(txn *badger.Txn, moves []models.Move) error {
	for _, m := range moves {
		data, err := json.Marshal(m)
		if err != nil {
			return err
		}
		if err := txn.Set(moveKey(m.GameID, m.PlyIndex), data); err != nil {
			return err
		}
	}
	return nil
}
