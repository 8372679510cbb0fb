// Package uci is a minimal client for the Universal Chess Interface
// subprocess protocol: it writes "position"/"go" commands to the engine's
// stdin and parses "info"/"bestmove" lines off its stdout.
package uci

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// Engine is a single UCI subprocess. No operation may be invoked
// concurrently on the same Engine; callers serialise access (the engine
// pool does this by construction, one goroutine per checked-out Engine).
type Engine struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stdout  io.ReadCloser
	scanner *bufio.Scanner
	mutex   sync.Mutex
	ready   bool
	alive   bool
	path    string
}

// Option describes one UCI "option" line advertised by the engine.
type Option struct {
	Name    string
	Type    string
	Default string
	Min     int
	Max     int
	Var     []string
}

// PVLine is one line of a multi-PV search result: its rank (1-based, as
// reported by the engine's "multipv" field), its score, and its move list.
type PVLine struct {
	MultiPV  int
	ScoreCP  *int
	ScoreMate *int
	Moves    []string
	Depth    int
}

// SearchResult is the terminal state of one "go" search: the engine's
// chosen move plus every PV line seen at the final depth reported for it.
type SearchResult struct {
	BestMove   string
	PonderMove string
	Lines      []PVLine // ordered by MultiPV rank, 1 first
}

// BestLine returns the rank-1 PV line, or a zero value if the engine never
// reported one (can happen if the search is stopped before any "info pv").
func (r *SearchResult) BestLine() PVLine {
	for _, l := range r.Lines {
		if l.MultiPV == 1 {
			return l
		}
	}
	if len(r.Lines) > 0 {
		return r.Lines[0]
	}
	return PVLine{}
}

// New starts the engine subprocess at binaryPath without blocking on
// handshake; call Initialize to complete the UCI handshake.
func New(binaryPath string) (*Engine, error) {
	cmd := exec.Command(binaryPath)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start engine subprocess: %w", err)
	}

	return &Engine{
		cmd:     cmd,
		stdin:   stdin,
		stdout:  stdout,
		scanner: bufio.NewScanner(stdout),
		alive:   true,
		path:    binaryPath,
	}, nil
}

// Initialize performs the uci/uciok, isready/readyok handshake.
func (e *Engine) Initialize() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if err := e.sendCommand("uci"); err != nil {
		return err
	}
	for e.scanner.Scan() {
		if strings.TrimSpace(e.scanner.Text()) == "uciok" {
			break
		}
	}

	if err := e.sendCommand("isready"); err != nil {
		return err
	}
	for e.scanner.Scan() {
		if strings.TrimSpace(e.scanner.Text()) == "readyok" {
			e.ready = true
			break
		}
	}
	return nil
}

func (e *Engine) SetOption(name, value string) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.sendCommand(fmt.Sprintf("setoption name %s value %s", name, value))
}

func (e *Engine) NewGame() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.sendCommand("ucinewgame")
}

func (e *Engine) SetPosition(fen string, moves []string) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	var cmd string
	if fen == "" || fen == "startpos" {
		cmd = "position startpos"
	} else {
		cmd = fmt.Sprintf("position fen %s", fen)
	}
	if len(moves) > 0 {
		cmd += " moves " + strings.Join(moves, " ")
	}
	return e.sendCommand(cmd)
}

// Search runs "go depth N" or "go movetime ms" (movetime wins if both are
// positive, mirroring the session's "S takes precedence" contract) at the
// given MultiPV width and blocks until "bestmove". Every PV line at the
// deepest depth seen for each rank is retained, not just the single most
// recent info line. A naive UCI client keeps
// only the last line parsed and loses the lower-ranked variations.
func (e *Engine) Search(depth int, moveTimeMs int, multiPV int) (*SearchResult, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if !e.alive {
		return nil, fmt.Errorf("engine process is not alive")
	}

	if multiPV < 1 {
		multiPV = 1
	}
	if err := e.sendCommand(fmt.Sprintf("setoption name MultiPV value %d", multiPV)); err != nil {
		return nil, err
	}

	var searchCmd strings.Builder
	searchCmd.WriteString("go")
	if moveTimeMs > 0 {
		fmt.Fprintf(&searchCmd, " movetime %d", moveTimeMs)
	} else if depth > 0 {
		fmt.Fprintf(&searchCmd, " depth %d", depth)
	} else {
		searchCmd.WriteString(" depth 15")
	}
	if err := e.sendCommand(searchCmd.String()); err != nil {
		return nil, err
	}

	lines := make(map[int]PVLine)
	result := &SearchResult{}

	for e.scanner.Scan() {
		line := strings.TrimSpace(e.scanner.Text())

		if strings.HasPrefix(line, "info") {
			if pv, ok := parseInfoLine(line); ok {
				if existing, has := lines[pv.MultiPV]; !has || pv.Depth >= existing.Depth {
					lines[pv.MultiPV] = pv
				}
			}
			continue
		}
		if strings.HasPrefix(line, "bestmove") {
			parts := strings.Fields(line)
			if len(parts) >= 2 {
				result.BestMove = parts[1]
			}
			if len(parts) >= 4 && parts[2] == "ponder" {
				result.PonderMove = parts[3]
			}
			break
		}
	}
	if err := e.scanner.Err(); err != nil {
		e.alive = false
		return nil, fmt.Errorf("engine stream error: %w", err)
	}
	if result.BestMove == "" {
		e.alive = false
	}

	for rank := 1; rank <= multiPV; rank++ {
		if l, ok := lines[rank]; ok {
			result.Lines = append(result.Lines, l)
		}
	}
	return result, nil
}

func (e *Engine) Stop() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.sendCommand("stop")
}

func (e *Engine) Quit() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if err := e.sendCommand("quit"); err != nil {
		return err
	}
	return e.cmd.Wait()
}

func (e *Engine) IsReady() bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.ready
}

// Alive reports whether the last Search completed normally. A false result
// means the caller should discard this Engine and start a fresh one.
func (e *Engine) Alive() bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.alive
}

func (e *Engine) Path() string {
	return e.path
}

func (e *Engine) sendCommand(cmd string) error {
	_, err := fmt.Fprintln(e.stdin, cmd)
	if err != nil {
		e.alive = false
	}
	return err
}

// parseInfoLine extracts one PV line from a single "info ... pv ..." line.
// Lines without both a score and a pv are not useful search output (e.g.
// "info string ...") and are ignored.
func parseInfoLine(line string) (PVLine, bool) {
	parts := strings.Fields(line)
	if len(parts) < 2 || parts[0] != "info" {
		return PVLine{}, false
	}

	pv := PVLine{MultiPV: 1}
	haveScore := false

	for i := 1; i < len(parts); i++ {
		switch parts[i] {
		case "depth":
			if i+1 < len(parts) {
				if v, err := strconv.Atoi(parts[i+1]); err == nil {
					pv.Depth = v
					i++
				}
			}
		case "multipv":
			if i+1 < len(parts) {
				if v, err := strconv.Atoi(parts[i+1]); err == nil {
					pv.MultiPV = v
					i++
				}
			}
		case "score":
			if i+1 < len(parts) {
				i++
				if parts[i] == "cp" && i+1 < len(parts) {
					if v, err := strconv.Atoi(parts[i+1]); err == nil {
						pv.ScoreCP = &v
						haveScore = true
						i++
					}
				} else if parts[i] == "mate" && i+1 < len(parts) {
					if v, err := strconv.Atoi(parts[i+1]); err == nil {
						pv.ScoreMate = &v
						haveScore = true
						i++
					}
				}
			}
		case "pv":
			var moves []string
			for j := i + 1; j < len(parts); j++ {
				if isUCIKeyword(parts[j]) {
					break
				}
				moves = append(moves, parts[j])
			}
			pv.Moves = moves
			i = len(parts)
		}
	}

	if !haveScore || len(pv.Moves) == 0 {
		return PVLine{}, false
	}
	return pv, true
}

func isUCIKeyword(s string) bool {
	switch s {
	case "depth", "seldepth", "time", "nodes", "pv", "multipv", "score", "cp", "mate", "nps", "hashfull", "tbhits":
		return true
	}
	return false
}
