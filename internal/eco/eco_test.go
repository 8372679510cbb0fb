package eco

import "testing"

func TestDetectPrefersLongestMatch(t *testing.T) {
	d := NewDetector(DefaultTable)
	moves := []string{"e4", "c5", "c3", "d5"}
	entry, ok := d.Detect(moves, 0)
	if !ok {
		t.Fatal("expected a match")
	}
	if entry.ECO != "B22" {
		t.Fatalf("ECO = %s, want B22 (longest prefix), got shorter match instead", entry.ECO)
	}
}

func TestDetectFallsBackToShorterPrefix(t *testing.T) {
	d := NewDetector(DefaultTable)
	moves := []string{"e4", "c5", "Nc3"} // no entry for this exact third move
	entry, ok := d.Detect(moves, 0)
	if !ok {
		t.Fatal("expected a match")
	}
	if entry.ECO != "B20" {
		t.Fatalf("ECO = %s, want B20 (two-move Sicilian fallback)", entry.ECO)
	}
}

func TestDetectNoMatch(t *testing.T) {
	d := NewDetector(DefaultTable)
	_, ok := d.Detect([]string{"a4"}, 0)
	if ok {
		t.Fatal("expected no match for an unlisted first move")
	}
}

func TestDisplayNameFormats(t *testing.T) {
	cases := []struct {
		entry Entry
		want  string
	}{
		{Entry{ECO: "B00", Name: "King's Pawn Game"}, "B00: King's Pawn Game"},
		{Entry{ECO: "B22", Name: "Sicilian Defense", Variation: "Alapin Variation"}, "B22: Sicilian Defense, Alapin Variation"},
		{Entry{ECO: "A00"}, "A00"},
	}
	for _, c := range cases {
		if got := DisplayName(c.entry); got != c.want {
			t.Errorf("DisplayName(%+v) = %q, want %q", c.entry, got, c.want)
		}
	}
}
