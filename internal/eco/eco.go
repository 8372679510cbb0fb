// Package eco detects the opening of a game by longest-prefix match of its
// SAN move list against a static ECO table, grounded in the same table
// shape the prior service's opening database used (ECO/Name/Variation/Moves)
// but fixed to try the longest candidate prefix first.
package eco

import "strings"

// Entry is one ECO table row: an exact SAN move-sequence together with the
// opening it identifies.
type Entry struct {
	ECO       string
	Name      string
	Variation string
	Moves     []string
}

// Detector resolves a SAN move list to the most specific ECO entry whose
// move sequence is a prefix of it.
type Detector struct {
	byMoves map[string]Entry
	maxLen  int
}

// NewDetector builds a Detector from a table of entries, keyed by the exact
// space-joined SAN sequence so lookups are O(1) per candidate prefix length.
func NewDetector(entries []Entry) *Detector {
	d := &Detector{byMoves: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		key := strings.Join(e.Moves, " ")
		d.byMoves[key] = e
		if len(e.Moves) > d.maxLen {
			d.maxLen = len(e.Moves)
		}
	}
	return d
}

// Detect returns the longest-prefix match against sanMoves, trying the
// longest candidate first so a more specific variation always wins over a
// shorter, more general entry that happens to also match.
func (d *Detector) Detect(sanMoves []string, maxPlies int) (Entry, bool) {
	limit := len(sanMoves)
	if maxPlies > 0 && maxPlies < limit {
		limit = maxPlies
	}
	if limit > d.maxLen {
		limit = d.maxLen
	}
	for length := limit; length > 0; length-- {
		key := strings.Join(sanMoves[:length], " ")
		if e, ok := d.byMoves[key]; ok {
			return e, true
		}
	}
	return Entry{}, false
}

// DisplayName formats an entry the way the practice UI and game header
// surface it: "ECO: Name, Variation", "ECO: Name", or "ECO" depending on
// which fields the entry carries.
func DisplayName(e Entry) string {
	if e.Name == "" {
		return e.ECO
	}
	if e.Variation != "" {
		return e.ECO + ": " + e.Name + ", " + e.Variation
	}
	return e.ECO + ": " + e.Name
}

// DefaultTable is a small seed ECO table covering the most common opening
// families. A production deployment would load a complete table (several
// thousand rows) from a data file at startup; this set keeps the detector
// exercised without requiring that external file.
var DefaultTable = []Entry{
	{ECO: "B00", Name: "King's Pawn Game", Moves: []string{"e4"}},
	{ECO: "B01", Name: "Scandinavian Defense", Moves: []string{"e4", "d5"}},
	{ECO: "B02", Name: "Alekhine's Defense", Moves: []string{"e4", "Nf6"}},
	{ECO: "B10", Name: "Caro-Kann Defense", Moves: []string{"e4", "c6"}},
	{ECO: "B20", Name: "Sicilian Defense", Moves: []string{"e4", "c5"}},
	{ECO: "B22", Name: "Sicilian Defense", Variation: "Alapin Variation", Moves: []string{"e4", "c5", "c3"}},
	{ECO: "B27", Name: "Sicilian Defense", Variation: "Hyperaccelerated Dragon", Moves: []string{"e4", "c5", "Nf3", "g6"}},
	{ECO: "C00", Name: "French Defense", Moves: []string{"e4", "e6"}},
	{ECO: "C20", Name: "King's Pawn Game", Moves: []string{"e4", "e5"}},
	{ECO: "C42", Name: "Petrov's Defense", Moves: []string{"e4", "e5", "Nf3", "Nf6"}},
	{ECO: "C50", Name: "Italian Game", Moves: []string{"e4", "e5", "Nf3", "Nc6", "Bc4"}},
	{ECO: "C60", Name: "Ruy Lopez", Moves: []string{"e4", "e5", "Nf3", "Nc6", "Bb5"}},
	{ECO: "D00", Name: "Queen's Pawn Game", Moves: []string{"d4"}},
	{ECO: "D02", Name: "Queen's Pawn Game", Variation: "London System", Moves: []string{"d4", "d5", "Bf4"}},
	{ECO: "D06", Name: "Queen's Gambit", Moves: []string{"d4", "d5", "c4"}},
	{ECO: "D30", Name: "Queen's Gambit Declined", Moves: []string{"d4", "d5", "c4", "e6"}},
	{ECO: "D85", Name: "Grünfeld Defense", Moves: []string{"d4", "Nf6", "c4", "g6", "Nc3", "d5"}},
	{ECO: "E60", Name: "King's Indian Defense", Moves: []string{"d4", "Nf6", "c4", "g6"}},
	{ECO: "E20", Name: "Nimzo-Indian Defense", Moves: []string{"d4", "Nf6", "c4", "e6", "Nc3", "Bb4"}},
	{ECO: "A00", Name: "Uncommon Opening", Moves: []string{}},
	{ECO: "A04", Name: "Reti Opening", Moves: []string{"Nf3"}},
	{ECO: "A10", Name: "English Opening", Moves: []string{"c4"}},
	{ECO: "A45", Name: "Queen's Pawn Game", Variation: "Trompowsky Attack", Moves: []string{"d4", "Nf6", "Bg5"}},
}
