// Package protocol implements the engine's line-oriented command loop: an abstract
// service protocol exposing exactly five verbs (set position, set options, request
// search, stop, report), without attempting bit-exact compatibility with any existing
// engine protocol (UCI, XBoard, ...).
//
// The read-eval loop is a bufio.Reader pulling whitespace-split command lines and
// dispatching each to the matching verb handler, reporting search progress through
// this module's report.Broadcaster/Consumer convention instead of a bespoke output
// schema.
package protocol

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/abapaengine/core/internal/game"
	"github.com/abapaengine/core/internal/report"
	"github.com/abapaengine/core/internal/timecontrol"
)

// Engine is the search capability the protocol drives. Both internal/negamax.Engine and
// internal/uct.Engine can satisfy it through a thin adapter (see cmd/abapa), since their
// own Set*/AttachConsumer methods return a fluent *Engine rather than nothing.
type Engine interface {
	ComputeBestMove(g game.Game) (game.Move, error)
	ComputeBestScore() game.Score
	AbortComputation()
	SetMoveTime(d time.Duration)
	SetDepth(d game.Depth)
	SetContempt(c game.Score)
	AttachConsumer(c report.Consumer)
}

// Server runs the command loop described above. It is not safe for concurrent use by
// more than one reader goroutine, matching the single-threaded search core;
// the "stop" verb is the one thing that must work while a search is in flight, and it
// does so via the engine's own atomic abort signal, not by touching Server state.
type Server struct {
	engine  Engine
	newGame func() game.Game

	out io.Writer
	mu  sync.Mutex // guards position, clock and searching, held only briefly per command

	position  game.Game
	searching bool

	// clock feeds the per-move time budget computed at every "go". It stays untimed
	// (no SetMoveTime issued at all) until the first clock-related option arrives, so
	// a pure fixed-depth search is never handed a deadline it didn't ask for.
	clock timecontrol.Manager
	timed bool
}

// NewServer returns a Server with a freshly-created starting position obtained from
// newGame, reporting to out.
func NewServer(engine Engine, newGame func() game.Game, out io.Writer) *Server {
	s := &Server{
		engine:   engine,
		newGame:  newGame,
		out:      out,
		position: newGame(),
	}
	engine.AttachConsumer(s.onReport)
	return s
}

// Serve reads commands from in until EOF, "quit", or a read error, dispatching each
// line to the matching verb handler. "quit" is not one of the five protocol verbs; it
// exists purely so this loop has a way to end when driven interactively.
func (s *Server) Serve(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		verb, args := fields[0], fields[1:]

		switch strings.ToLower(verb) {
		case "quit", "exit":
			return nil
		case "position":
			s.handlePosition(args)
		case "setoption":
			s.handleSetOption(args)
		case "go":
			s.handleGo()
		case "stop":
			s.handleStop()
		default:
			fmt.Fprintf(s.out, "error unknown command %q\n", verb)
		}
	}
	return errors.Wrap(scanner.Err(), "protocol: reading command stream")
}

// handlePosition implements "set position": replay a notation move
// sequence from a freshly-created starting position. An empty argument list resets to
// the start position with no moves played.
func (s *Server) handlePosition(args []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.newGame()
	if len(args) > 0 {
		moves, err := g.Board().ToMoves(strings.Join(args, " "))
		if err != nil {
			fmt.Fprintf(s.out, "error parsing position: %+v\n", err)
			return
		}
		for _, m := range moves {
			if err := g.MakeMove(m); err != nil {
				fmt.Fprintf(s.out, "error replaying move %v: %+v\n", m, err)
				return
			}
		}
	}
	s.position = g
	if resetter, ok := s.engine.(interface{ NewMatch() }); ok {
		// Clears transient UCT tree state for the fresh position; negamax has no
		// such state and won't implement this.
		resetter.NewMatch()
	}
	fmt.Fprintln(s.out, "ok")
}

// handleSetOption implements "set options": each argument is a key=value
// pair. Unrecognized keys are reported as textual diagnostics, never aborting the
// service.
//
// The clock options (southtime/northtime/southinc/northinc in milliseconds, plus
// movestogo) feed the time manager; the per-move budget itself is only computed at
// "go", when it is known whose turn it is. "movetime" is the fixed override: it
// bypasses the budget formula with a constant.
func (s *Server) handleSetOption(args []string) {
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			fmt.Fprintf(s.out, "error malformed option %q, expected key=value\n", arg)
			continue
		}
		switch strings.ToLower(key) {
		case "movetime":
			s.setClock(key, value, func(d time.Duration) { s.clock.FixedMoveTime = d })
		case "southtime":
			s.setClock(key, value, func(d time.Duration) { s.clock.SetTimeLeft(game.SOUTH, d) })
		case "northtime":
			s.setClock(key, value, func(d time.Duration) { s.clock.SetTimeLeft(game.NORTH, d) })
		case "southinc":
			s.setClock(key, value, func(d time.Duration) { s.clock.SetIncrement(game.SOUTH, d) })
		case "northinc":
			s.setClock(key, value, func(d time.Duration) { s.clock.SetIncrement(game.NORTH, d) })
		case "movestogo":
			n, err := strconv.Atoi(value)
			if err != nil {
				fmt.Fprintf(s.out, "error parsing movestogo=%q: %+v\n", value, err)
				continue
			}
			s.mu.Lock()
			s.clock.MovesToGo = n
			s.timed = true
			s.mu.Unlock()
		case "depth":
			d, err := strconv.Atoi(value)
			if err != nil {
				fmt.Fprintf(s.out, "error parsing depth=%q: %+v\n", value, err)
				continue
			}
			s.engine.SetDepth(game.Depth(d))
		case "contempt":
			c, err := strconv.Atoi(value)
			if err != nil {
				fmt.Fprintf(s.out, "error parsing contempt=%q: %+v\n", value, err)
				continue
			}
			s.engine.SetContempt(game.Score(c))
		default:
			fmt.Fprintf(s.out, "error unknown option %q\n", key)
		}
	}
}

// setClock parses value as a millisecond count and applies it to the time manager,
// marking the session as timed.
func (s *Server) setClock(key, value string, apply func(time.Duration)) {
	ms, err := strconv.Atoi(value)
	if err != nil {
		fmt.Fprintf(s.out, "error parsing %s=%q: %+v\n", key, value, err)
		return
	}
	s.mu.Lock()
	apply(time.Duration(ms) * time.Millisecond)
	s.timed = true
	s.mu.Unlock()
}

// handleGo implements "request search": runs compute_best_move on a copy
// of the current position in its own goroutine, so a concurrently-received "stop" can
// still reach the engine's single-writer atomic abort signal. When the session is
// timed, the time manager converts the clock state into this move's budget for the
// side to move before the search starts. Emits "bestmove <move>" on completion.
func (s *Server) handleGo() {
	s.mu.Lock()
	if s.searching {
		s.mu.Unlock()
		fmt.Fprintln(s.out, "error search already in progress")
		return
	}
	s.searching = true
	g := s.position.Clone()
	if s.timed {
		s.engine.SetMoveTime(s.clock.GetMoveTimeAdvice(g.Turn()))
	}
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.searching = false
			s.mu.Unlock()
		}()
		move, err := s.engine.ComputeBestMove(g)
		if err != nil {
			klog.Errorf("protocol: search failed: %+v", err)
			fmt.Fprintf(s.out, "error search failed: %+v\n", err)
			return
		}
		fmt.Fprintf(s.out, "bestmove %s\n", move)
	}()
}

// handleStop implements "stop": requests the in-flight search abort
// immediately. It is a no-op, not an error, when nothing is searching.
func (s *Server) handleStop() {
	s.engine.AbortComputation()
}

// onReport implements "report": the engine invokes this synchronously
// between iterations, and it must return quickly.
func (s *Server) onReport(r report.Report) {
	fmt.Fprintf(s.out, "info %s\n", r)
}
