// Package engine owns the engine side of the pipeline: a scoped UCI
// subprocess session plus a pool of such sessions for concurrent game
// analysis. Pooling follows the checked-out-channel pattern of the prior
// Stockfish service, generalised so a session's MultiPV width can be
// raised for a probe and is guaranteed to be restored.
package engine

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dco-chess/analysis-service/internal/apperr"
	"github.com/dco-chess/analysis-service/internal/evaluation"
	"github.com/dco-chess/analysis-service/internal/uci"
)

// Config controls how every pooled session is started and configured.
type Config struct {
	BinaryPath    string
	MaxWorkers    int
	Threads       int
	HashMB        int
	SkillLevel    *int // nil = maximum strength, no "Skill Level" option set
	DefaultDepth  int
	DefaultTimeMS int
	DefaultMultiPV int
}

// Limit is one evaluate call's search bound. Time takes precedence over
// Depth when both are set.
type Limit struct {
	Depth int
	Time  time.Duration
}

// Session owns one UCI engine subprocess. It is not safe for concurrent
// use; the Pool hands out at most one caller per Session at a time.
type Session struct {
	eng     *uci.Engine
	cfg     Config
	mu      sync.Mutex
	multiPV int
}

// Pool is a fixed-size set of Sessions checked out via a buffered channel,
// mirroring the prior service's available-channel pooling idiom.
type Pool struct {
	cfg       Config
	available chan *Session
	sessions  []*Session
	mu        sync.Mutex
	closed    bool
}

// NewPool constructs a Pool without starting any subprocess; call
// Initialize to spawn the configured number of engine sessions.
func NewPool(cfg Config) *Pool {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 1
	}
	if cfg.DefaultMultiPV <= 0 {
		cfg.DefaultMultiPV = 3
	}
	return &Pool{
		cfg:       cfg,
		available: make(chan *Session, cfg.MaxWorkers),
	}
}

// Initialize locates the engine binary, spawns MaxWorkers subprocesses,
// performs the UCI handshake on each, and applies Threads/Hash/Skill Level.
// Returns an apperr EngineUnavailable error if the binary cannot be found
// or started anywhere.
func (p *Pool) Initialize() error {
	path, err := resolveEnginePath(p.cfg.BinaryPath)
	if err != nil {
		return apperr.EngineUnavailable("could not locate a Stockfish binary", err)
	}
	p.cfg.BinaryPath = path

	for i := 0; i < p.cfg.MaxWorkers; i++ {
		sess, err := p.newSession()
		if err != nil {
			return apperr.EngineUnavailable(fmt.Sprintf("failed to start engine worker %d", i), err)
		}
		p.sessions = append(p.sessions, sess)
		p.available <- sess
	}

	logrus.WithFields(logrus.Fields{
		"binary":  path,
		"workers": p.cfg.MaxWorkers,
		"threads": p.cfg.Threads,
		"hash_mb": p.cfg.HashMB,
	}).Info("engine pool initialized")
	return nil
}

func (p *Pool) newSession() (*Session, error) {
	eng, err := uci.New(p.cfg.BinaryPath)
	if err != nil {
		return nil, err
	}
	if err := eng.Initialize(); err != nil {
		return nil, err
	}
	sess := &Session{eng: eng, cfg: p.cfg, multiPV: p.cfg.DefaultMultiPV}
	if err := sess.configure(); err != nil {
		return nil, err
	}
	return sess, nil
}

// restart replaces a dead subprocess with a freshly configured one. Must
// be called with s.mu held.
func (s *Session) restart() error {
	eng, err := uci.New(s.cfg.BinaryPath)
	if err != nil {
		return err
	}
	if err := eng.Initialize(); err != nil {
		return err
	}
	s.eng = eng
	return s.configure()
}

func (s *Session) configure() error {
	if s.cfg.Threads > 0 {
		if err := s.eng.SetOption("Threads", fmt.Sprintf("%d", s.cfg.Threads)); err != nil {
			return err
		}
	}
	if s.cfg.HashMB > 0 {
		if err := s.eng.SetOption("Hash", fmt.Sprintf("%d", s.cfg.HashMB)); err != nil {
			return err
		}
	}
	if s.cfg.SkillLevel != nil {
		if err := s.eng.SetOption("Skill Level", fmt.Sprintf("%d", *s.cfg.SkillLevel)); err != nil {
			return err
		}
	}
	return s.eng.NewGame()
}

// Acquire blocks (subject to the timeout) until a Session is available.
func (p *Pool) Acquire(timeout time.Duration) (*Session, error) {
	select {
	case sess, ok := <-p.available:
		if !ok {
			return nil, apperr.EngineUnavailable("engine pool is shut down", nil)
		}
		return sess, nil
	case <-time.After(timeout):
		return nil, apperr.EngineUnavailable("timed out waiting for an available engine", nil)
	}
}

// Release returns a Session to the pool, restarting it first if the last
// query left it dead (one restart, then the next failure propagates).
func (p *Pool) Release(sess *Session) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return
	}

	if !sess.eng.Alive() {
		if fresh, err := p.newSession(); err == nil {
			sess = fresh
		} else {
			logrus.WithError(err).Error("failed to restart dead engine session; returning it anyway")
		}
	} else {
		sess.eng.NewGame()
	}
	p.available <- sess
}

// Shutdown quits every session and closes the pool.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	close(p.available)
	for _, sess := range p.sessions {
		sess.eng.Quit()
	}
}

// Evaluate runs one search at the session's current MultiPV width and
// returns the Evaluation Model for the position's best line. fen must be a
// full FEN string ("startpos" is not accepted here; callers resolve that at
// the chess-position layer).
func (s *Session) Evaluate(fen string, limit Limit) (*evaluation.Evaluation, error) {
	return s.evaluateMultiPV(fen, limit, s.multiPV)
}

// EvaluateMultiPV runs a probe at an explicit width K, temporarily raising
// (or lowering) the session's MultiPV option and restoring it afterwards on
// every exit path. It returns every PV line observed, not just the best
// one, so the critical-position gate can read E1..EK off directly.
func (s *Session) EvaluateMultiPV(fen string, limit Limit, multiPV int) ([]evaluation.Evaluation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prior := s.multiPV
	defer func() { s.multiPV = prior }()
	s.multiPV = multiPV

	return s.searchLines(fen, limit, multiPV)
}

func (s *Session) evaluateMultiPV(fen string, limit Limit, multiPV int) (*evaluation.Evaluation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines, err := s.searchLines(fen, limit, multiPV)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return &evaluation.Evaluation{}, nil
	}
	return &lines[0], nil
}

// searchLines must be called with s.mu held. A session whose subprocess
// died on the previous query gets one restart attempt here; if that also
// fails, the error propagates as engine-unavailable.
func (s *Session) searchLines(fen string, limit Limit, multiPV int) ([]evaluation.Evaluation, error) {
	if !s.eng.Alive() {
		if err := s.restart(); err != nil {
			return nil, apperr.EngineUnavailable("engine process died and could not be restarted", err)
		}
	}
	if err := s.eng.SetPosition(fen, nil); err != nil {
		return nil, apperr.New(apperr.KindEngineDiedMidQuery, "failed to set position", err)
	}
	blackToMove := fenBlackToMove(fen)

	depth := limit.Depth
	timeMs := 0
	if limit.Time > 0 {
		timeMs = int(limit.Time.Milliseconds())
	} else if depth <= 0 {
		depth = s.cfg.DefaultDepth
		if depth <= 0 {
			depth = 15
		}
	}

	result, err := s.eng.Search(depth, timeMs, multiPV)
	if err != nil {
		return nil, apperr.New(apperr.KindEngineDiedMidQuery, "search failed", err)
	}

	out := make([]evaluation.Evaluation, 0, len(result.Lines))
	for _, l := range result.Lines {
		eval := evaluation.Evaluation{
			ScoreCP:   whitePerspective(l.ScoreCP, blackToMove),
			ScoreMate: whitePerspective(l.ScoreMate, blackToMove),
			Depth:     l.Depth,
		}
		if len(l.Moves) > 0 {
			eval.BestMove = l.Moves[0]
		}
		eval.PVLines = [][]string{l.Moves}
		out = append(out, eval)
	}
	if len(out) > 0 {
		out[0].BestMove = result.BestMove
	}
	return out, nil
}

// whitePerspective converts a UCI score, which the engine reports from the
// side to move, into the White-relative frame the Evaluation contract fixes
// for the lifetime of the process.
func whitePerspective(v *int, blackToMove bool) *int {
	if v == nil || !blackToMove {
		return v
	}
	flipped := -*v
	return &flipped
}

func fenBlackToMove(fen string) bool {
	fields := strings.Fields(fen)
	return len(fields) >= 2 && fields[1] == "b"
}

// resolveEnginePath follows the discovery order: explicit
// path, PATH lookup, a fixed list of OS-conventional locations, then the
// user's home directory as a last resort.
func resolveEnginePath(configured string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err == nil {
			return configured, nil
		}
		if p, err := exec.LookPath(configured); err == nil {
			return p, nil
		}
	}

	if p, err := exec.LookPath("stockfish"); err == nil {
		return p, nil
	}

	candidates := []string{
		"/usr/bin/stockfish",
		"/usr/local/bin/stockfish",
		"/opt/homebrew/bin/stockfish",
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(home, "stockfish", "src", "stockfish"),
			filepath.Join(home, "Downloads", "stockfish"),
		)
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}

	return "", fmt.Errorf("stockfish binary not found at %q, on PATH, or in any known install location", configured)
}
