// Package chessutil wraps github.com/notnil/chess with the small set of
// position/move operations the analysis pipeline needs: PGN decoding,
// FEN round-tripping, material counting, and the recapture/check/only-move
// predicates the classifier's gates depend on.
package chessutil

import (
	"fmt"
	"strings"

	"github.com/notnil/chess"

	"github.com/dco-chess/analysis-service/internal/models"
)

// Headers is the subset of PGN tag pairs the pipeline persists on Game.
type Headers struct {
	White, Black, Date, Event, TimeControl, Result, Termination string
	WhiteElo, BlackElo                                           *int
}

// ParsedMove is one ply of a decoded game, carrying both notations and the
// FEN of the position immediately after it was played.
type ParsedMove struct {
	PlyIndex int
	SAN      string
	UCI      string
	FENAfter string
	Move     *chess.Move
}

// ParsePGN decodes a PGN string into its header tags and full move list.
// Callers wrap failures as position-parse errors; this package only
// reports the raw cause.
func ParsePGN(pgnText string) (Headers, []ParsedMove, error) {
	pgnFn, err := chess.PGN(strings.NewReader(pgnText))
	if err != nil {
		return Headers{}, nil, fmt.Errorf("decode PGN: %w", err)
	}
	game := chess.NewGame(pgnFn)

	headers := extractHeaders(game)

	replay := chess.NewGame()
	moves := game.Moves()
	parsed := make([]ParsedMove, 0, len(moves))
	for i, mv := range moves {
		sanStr := chess.AlgebraicNotation{}.Encode(replay.Position(), mv)
		if err := replay.Move(mv); err != nil {
			return Headers{}, nil, fmt.Errorf("replay move %d: %w", i, err)
		}
		parsed = append(parsed, ParsedMove{
			PlyIndex: i,
			SAN:      sanStr,
			UCI:      EncodeUCI(mv),
			FENAfter: replay.Position().String(),
			Move:     mv,
		})
	}
	return headers, parsed, nil
}

func extractHeaders(game *chess.Game) Headers {
	h := Headers{Result: "*"}
	for _, tp := range game.TagPairs() {
		switch tp.Key {
		case "White":
			h.White = tp.Value
		case "Black":
			h.Black = tp.Value
		case "Date":
			h.Date = tp.Value
		case "Event":
			h.Event = tp.Value
		case "TimeControl":
			h.TimeControl = tp.Value
		case "Result":
			h.Result = tp.Value
		case "Termination":
			h.Termination = tp.Value
		case "WhiteElo":
			h.WhiteElo = parseIntPtr(tp.Value)
		case "BlackElo":
			h.BlackElo = parseIntPtr(tp.Value)
		}
	}
	return h
}

func parseIntPtr(s string) *int {
	var v int
	if _, err := fmt.Sscanf(s, "%d", &v); err != nil || v == 0 {
		return nil
	}
	return &v
}

// EncodeUCI renders a move in "from-to[promotion]" form.
func EncodeUCI(m *chess.Move) string {
	s := m.S1().String() + m.S2().String()
	switch m.Promo() {
	case chess.Queen:
		s += "q"
	case chess.Rook:
		s += "r"
	case chess.Bishop:
		s += "b"
	case chess.Knight:
		s += "n"
	}
	return s
}

// GameFromFEN builds a fresh game positioned at fen.
func GameFromFEN(fen string) (*chess.Game, error) {
	fenFn, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("invalid FEN %q: %w", fen, err)
	}
	return chess.NewGame(fenFn), nil
}

// FindMoveByUCI locates the legal move matching a UCI string at the given
// position. Used instead of a notation decoder so the pipeline only
// depends on APIs already exercised elsewhere (ValidMoves + manual UCI
// encoding), never an unverified notation-decode entry point.
func FindMoveByUCI(game *chess.Game, uci string) (*chess.Move, error) {
	for _, m := range game.ValidMoves() {
		if EncodeUCI(m) == uci {
			return m, nil
		}
	}
	return nil, fmt.Errorf("no legal move matches UCI %q", uci)
}

var pieceValues = map[chess.PieceType]int{
	chess.Pawn:   1,
	chess.Knight: 3,
	chess.Bishop: 3,
	chess.Rook:   5,
	chess.Queen:  9,
	chess.King:   0,
}

// Material sums piece point-values (1/3/3/5/9, not centipawns) for one
// side, the scale the Brilliant-gate sacrifice arithmetic works in.
func Material(position *chess.Position, color chess.Color) int {
	total := 0
	board := position.Board()
	for sq := chess.A1; sq <= chess.H8; sq++ {
		p := board.Piece(sq)
		if p.Color() == color {
			total += pieceValues[p.Type()]
		}
	}
	return total
}

// LegalMoveCount returns the number of legal moves at a position, used by
// the Brilliant gate's "not the single legal move" condition.
func LegalMoveCount(game *chess.Game) int {
	return len(game.ValidMoves())
}

// IsCheck reports whether the move, once played, leaves the opponent in
// check.
func IsCheck(m *chess.Move) bool {
	return m.HasTag(chess.Check)
}

// IsCapture reports whether the move captures a piece.
func IsCapture(m *chess.Move) bool {
	return m.HasTag(chess.Capture)
}

// ToColor maps the model's Color enum to notnil/chess's Color.
func ToColor(c models.Color) chess.Color {
	if c == models.White {
		return chess.White
	}
	return chess.Black
}

// ActiveColor returns the side to move at a FEN position.
func ActiveColor(fen string) (models.Color, error) {
	g, err := GameFromFEN(fen)
	if err != nil {
		return "", err
	}
	if g.Position().Turn() == chess.White {
		return models.White, nil
	}
	return models.Black, nil
}

// PushUCILine plays a sequence of UCI moves starting at fen, returning the
// SAN and UCI strings actually played (stopping early, without error, at
// the first move that cannot be decoded or is illegal, matching the
// PV-playout semantics of the Brilliant gate and the target-line builder,
// both of which silently truncate a principal variation that runs past a
// legal continuation).
func PushUCILine(fen string, uciMoves []string, maxPlies int) (san []string, playedUCI []string, finalMaterial struct{ White, Black int }) {
	game, err := GameFromFEN(fen)
	if err != nil {
		return nil, nil, finalMaterial
	}
	for i, u := range uciMoves {
		if i >= maxPlies {
			break
		}
		mv, err := FindMoveByUCI(game, u)
		if err != nil {
			break
		}
		sanStr := chess.AlgebraicNotation{}.Encode(game.Position(), mv)
		if err := game.Move(mv); err != nil {
			break
		}
		san = append(san, sanStr)
		playedUCI = append(playedUCI, u)
	}
	finalMaterial.White = Material(game.Position(), chess.White)
	finalMaterial.Black = Material(game.Position(), chess.Black)
	return san, playedUCI, finalMaterial
}
