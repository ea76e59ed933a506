package review

import (
	"context"
	"io"
	"log/slog"
	"slices"

	"github.com/hpungsan/sift/internal/errors"
)

// DefaultMaxIterations is the proposer-call cap when none is configured.
const DefaultMaxIterations = 3

// State is a review loop state.
type State string

const (
	StateProposing        State = "proposing"
	StateAwaitingFeedback State = "awaiting_feedback"
	StateApproved         State = "approved"
	StateExhausted        State = "exhausted"
	StateAborted          State = "aborted"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateApproved || s == StateExhausted || s == StateAborted
}

// LoopState is the whole state of one note's review. Loop methods take a
// LoopState and return the next one; nothing is kept between calls, so a
// transport can park a loop while it waits for a reply.
type LoopState struct {
	RawText       string `json:"raw_text"`
	State         State  `json:"state"`
	Iteration     int    `json:"iteration"`
	MaxIterations int    `json:"max_iterations"`

	// Current is the proposal awaiting feedback, or the approved proposal.
	Current *Proposal `json:"current,omitempty"`
	// LastDecision is the decision that produced the current state, if any.
	LastDecision *Decision      `json:"last_decision,omitempty"`
	History      []HistoryEntry `json:"history"`

	// Err explains an Exhausted or Aborted state.
	Err error `json:"-"`
}

// Loop drives Proposer and Approver through bounded rounds.
type Loop struct {
	proposer      Proposer
	approver      Approver
	maxIterations int
	logger        *slog.Logger
}

// Option configures a Loop.
type Option func(*Loop)

// WithMaxIterations caps proposer invocations. Values below 1 keep the default.
func WithMaxIterations(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.maxIterations = n
		}
	}
}

// WithLogger sets the loop logger. Transitions are logged at debug.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoop creates a review loop.
func NewLoop(proposer Proposer, approver Approver, opts ...Option) *Loop {
	l := &Loop{
		proposer:      proposer,
		approver:      approver,
		maxIterations: DefaultMaxIterations,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// MaxIterations returns the configured cap.
func (l *Loop) MaxIterations() int { return l.maxIterations }

// Start seeds a loop for rawText with an empty history.
func (l *Loop) Start(rawText string) LoopState {
	return LoopState{
		RawText:       rawText,
		State:         StateProposing,
		MaxIterations: l.maxIterations,
		History:       []HistoryEntry{},
	}
}

// Propose runs one proposer call. It is a no-op outside StateProposing.
// A failed call aborts the loop and leaves the history untouched.
func (l *Loop) Propose(ctx context.Context, st LoopState) LoopState {
	if st.State != StateProposing {
		return st
	}
	if err := ctx.Err(); err != nil {
		return l.abort(st, errors.NewReviewInterrupted(err))
	}
	if st.Iteration >= st.MaxIterations {
		return l.exhaust(st)
	}

	p, err := l.proposer.Propose(ctx, st.RawText, slices.Clone(st.History))
	if err != nil {
		if !errors.Is(err, errors.ErrProposerFailed) {
			err = errors.NewProposerFailed(err)
		}
		return l.abort(st, err)
	}
	p = p.Clean()
	if err := p.Validate(); err != nil {
		return l.abort(st, errors.NewProposerFailed(err))
	}

	st.Iteration++
	st.LastDecision = nil

	// Self-approval only counts once a reply has been fed back.
	if p.Approved && len(st.History) > 0 {
		st.Current = &p
		st.State = StateApproved
		l.logger.Debug("proposal self-approved", "iteration", st.Iteration)
		return st
	}

	p.Approved = false
	st.Current = &p
	st.State = StateAwaitingFeedback
	l.logger.Debug("proposal ready",
		"iteration", st.Iteration,
		"informations", len(p.Informations),
		"ideas", len(p.Ideas),
		"tasks", len(p.Tasks),
	)
	return st
}

// Resume feeds the human reply to the approver. It is a no-op outside
// StateAwaitingFeedback. A revise decision goes into the history and the
// loop either proposes again or, at the cap, is exhausted.
func (l *Loop) Resume(ctx context.Context, st LoopState, reply string) LoopState {
	if st.State != StateAwaitingFeedback || st.Current == nil {
		return st
	}
	if err := ctx.Err(); err != nil {
		return l.abort(st, errors.NewReviewInterrupted(err))
	}

	l.logger.Debug("reply received", "iteration", st.Iteration, "reply", reply)

	d, err := l.approver.Decide(ctx, reply, *st.Current)
	if err != nil {
		if !errors.Is(err, errors.ErrApproverFailed) {
			err = errors.NewApproverFailed(err)
		}
		return l.abort(st, err)
	}
	st.LastDecision = &d

	if d.Approved() {
		st.State = StateApproved
		l.logger.Debug("proposal approved", "iteration", st.Iteration)
		return st
	}

	st.History = append(slices.Clone(st.History), HistoryEntry{
		Proposal:   *st.Current,
		HumanReply: reply,
		Decision:   d,
	})
	st.Current = nil
	l.logger.Debug("revision requested", "iteration", st.Iteration, "reason", d.Reason)

	if st.Iteration >= st.MaxIterations {
		return l.exhaust(st)
	}
	st.State = StateProposing
	return st
}

// Run drives a loop to a terminal state, asking reviewer for each reply.
func (l *Loop) Run(ctx context.Context, rawText string, reviewer Reviewer) LoopState {
	st := l.Start(rawText)
	for !st.State.Terminal() {
		switch st.State {
		case StateProposing:
			st = l.Propose(ctx, st)
		case StateAwaitingFeedback:
			reply, err := reviewer.Review(ctx, st)
			if err != nil {
				if !errors.Is(err, errors.ErrReviewInterrupted) {
					err = errors.NewReviewInterrupted(err)
				}
				return l.abort(st, err)
			}
			st = l.Resume(ctx, st, reply)
		default:
			return l.abort(st, errors.NewInternal(nil))
		}
	}
	return st
}

func (l *Loop) abort(st LoopState, err error) LoopState {
	st.State = StateAborted
	st.Err = err
	l.logger.Debug("loop aborted", "iteration", st.Iteration, "error", err)
	return st
}

func (l *Loop) exhaust(st LoopState) LoopState {
	st.State = StateExhausted
	st.Current = nil
	st.Err = errors.NewExhausted(st.Iteration)
	l.logger.Debug("loop exhausted", "iteration", st.Iteration)
	return st
}
