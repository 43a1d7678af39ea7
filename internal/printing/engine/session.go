// Package engine streams documents into a renderer. It owns page breaking:
// manual breaks with partial totals, a forced break between documents of a
// batch, and the overflow probe that keeps the totals block on one page.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/odyssey-erp/docrender/internal/printing/render"
	"github.com/odyssey-erp/docrender/internal/printing/totals"
)

// ErrInvalidTransition is returned when an operation does not fit the
// session state.
var ErrInvalidTransition = errors.New("engine: invalid state transition")

// State is the position of a session in its render.
type State int

const (
	StateInit State = iota
	StateHeaderEmitted
	StateLinesStreaming
	StateForcedBreak
	StateTotalsProbing
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateHeaderEmitted:
		return "header_emitted"
	case StateLinesStreaming:
		return "lines_streaming"
	case StateForcedBreak:
		return "forced_break"
	case StateTotalsProbing:
		return "totals_probing"
	case StateFinalized:
		return "finalized"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// transitions lists the legal moves. TotalsProbing back to HeaderEmitted
// starts the next document of a batch.
var transitions = map[State][]State{
	StateInit:           {StateHeaderEmitted},
	StateHeaderEmitted:  {StateLinesStreaming},
	StateLinesStreaming: {StateForcedBreak, StateTotalsProbing},
	StateForcedBreak:    {StateLinesStreaming},
	StateTotalsProbing:  {StateHeaderEmitted, StateFinalized},
}

// Break reasons reported to the Observer.
const (
	ReasonManual   = "manual"
	ReasonOverflow = "overflow"
	ReasonDocument = "document"
)

// TableChunk is the number of list rows sent per append.
const TableChunk = 500

// Observer is notified of every forced page break.
type Observer interface {
	ObserveBreak(reason string)
}

// Option configures a Session.
type Option func(*Session)

// WithCalculator sets the calculator used for partial totals.
func WithCalculator(c *totals.Calculator) Option {
	return func(s *Session) { s.calc = c }
}

// WithObserver reports forced breaks to o.
func WithObserver(o Observer) Option {
	return func(s *Session) { s.observer = o }
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// Session drives one renderer from Init to Finalized. It is not safe for
// concurrent use.
type Session struct {
	r        render.Renderer
	calc     *totals.Calculator
	observer Observer
	logger   *slog.Logger
	state    State
	sections int
}

// NewSession wraps r.
func NewSession(r render.Renderer, opts ...Option) *Session {
	s := &Session{r: r, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current state.
func (s *Session) State() State {
	return s.state
}

// Finalize closes the render and returns the output bytes. Nothing may be
// appended afterwards.
func (s *Session) Finalize(ctx context.Context, filename string) ([]byte, error) {
	if err := s.to(StateFinalized); err != nil {
		return nil, err
	}
	data, err := s.r.Finalize(ctx, filename)
	if err != nil {
		return nil, fmt.Errorf("engine: finalize: %w", err)
	}
	s.logger.Debug("render finalized", slog.String("filename", filename), slog.Int("sections", s.sections), slog.Int("bytes", len(data)))
	return data, nil
}

// begin opens a new section. A section after the first starts on a new page.
func (s *Session) begin(ctx context.Context) error {
	if s.state == StateTotalsProbing {
		if err := s.forceBreak(ctx, ReasonDocument); err != nil {
			return err
		}
	}
	if err := s.to(StateHeaderEmitted); err != nil {
		return err
	}
	s.sections++
	return nil
}

func (s *Session) to(next State) error {
	for _, allowed := range transitions[s.state] {
		if allowed == next {
			s.state = next
			return nil
		}
	}
	return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, s.state, next)
}

func (s *Session) append(ctx context.Context, markup string) error {
	if markup == "" {
		return nil
	}
	if err := s.r.AppendMarkup(ctx, markup); err != nil {
		return fmt.Errorf("engine: append: %w", err)
	}
	return nil
}

func (s *Session) forceBreak(ctx context.Context, reason string) error {
	if err := s.r.ForcePageBreak(ctx); err != nil {
		return fmt.Errorf("engine: page break: %w", err)
	}
	if s.observer != nil {
		s.observer.ObserveBreak(reason)
	}
	s.logger.Debug("forced page break", slog.String("reason", reason))
	return nil
}

// probe appends markup, breaking first when it would not fit on the
// current page. The speculative copy takes the candidate so the original is
// only written once.
func (s *Session) probe(ctx context.Context, markup string) error {
	if markup == "" {
		return nil
	}
	before, err := s.r.PageCount(ctx)
	if err != nil {
		return fmt.Errorf("engine: probe: %w", err)
	}
	cp := s.r.SpeculativeCopy()
	if err := cp.AppendMarkup(ctx, markup); err != nil {
		return fmt.Errorf("engine: probe: %w", err)
	}
	after, err := cp.PageCount(ctx)
	if err != nil {
		return fmt.Errorf("engine: probe: %w", err)
	}
	if after > before {
		if err := s.forceBreak(ctx, ReasonOverflow); err != nil {
			return err
		}
	}
	return s.append(ctx, markup)
}
