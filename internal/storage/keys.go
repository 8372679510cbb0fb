package storage

import "fmt"

// Key layout. Every row type gets its own prefix; rows that belong to a
// game are keyed game-id-first so a prefix scan recovers them in one pass
// without a secondary index.
const (
	prefixGame          = "game:"
	prefixMove          = "move:"     // move:<gameID>:<plyIndex zero-padded>
	prefixAnalysis      = "analysis:" // analysis:<gameID>
	prefixAnalytics     = "analytics:" // analytics:<gameID>
	prefixPracticeItem  = "practice_item:"  // practice_item:<gameID>:<itemID>
	prefixProgress      = "progress:"       // progress:<itemID>
)

func gameKey(id string) []byte {
	return []byte(prefixGame + id)
}

func gamePrefix() []byte {
	return []byte(prefixGame)
}

func movePrefix(gameID string) []byte {
	return []byte(prefixMove + gameID + ":")
}

func moveKey(gameID string, plyIndex int) []byte {
	return []byte(fmt.Sprintf("%s%s:%04d", prefixMove, gameID, plyIndex))
}

func analysisKey(gameID string) []byte {
	return []byte(prefixAnalysis + gameID)
}

func analyticsKey(gameID string) []byte {
	return []byte(prefixAnalytics + gameID)
}

func practiceItemPrefix(gameID string) []byte {
	return []byte(prefixPracticeItem + gameID + ":")
}

func practiceItemKey(gameID, itemID string) []byte {
	return []byte(prefixPracticeItem + gameID + ":" + itemID)
}

func progressKey(itemID string) []byte {
	return []byte(prefixProgress + itemID)
}

func progressPrefix() []byte {
	return []byte(prefixProgress)
}

func practiceItemAllPrefix() []byte {
	return []byte(prefixPracticeItem)
}
