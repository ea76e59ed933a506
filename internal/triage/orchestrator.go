// Package triage drains the inbox one note at a time through the review
// loop, committing approved proposals before dequeuing their notes.
package triage

import (
	"context"
	"io"
	"log/slog"

	"github.com/hpungsan/sift/internal/db"
	"github.com/hpungsan/sift/internal/errors"
	"github.com/hpungsan/sift/internal/record"
	"github.com/hpungsan/sift/internal/review"
)

// InboxStore is the queue side the orchestrator consumes.
type InboxStore interface {
	PeekOldest(ctx context.Context) (*record.InboxItem, error)
	List(ctx context.Context) ([]record.InboxItem, error)
	Remove(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// RecordStore persists approved proposals.
type RecordStore interface {
	SaveProposal(ctx context.Context, in db.SaveInput) (*db.SaveResult, error)
}

// Recorder receives outcome observations. The metrics package implements it.
type Recorder interface {
	ObserveOutcome(outcome string, iterations int)
	SetInboxDepth(n int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveOutcome(string, int) {}
func (nopRecorder) SetInboxDepth(int)          {}

// Outcome is the result of processing one inbox item.
type Outcome string

const (
	OutcomeEmpty         Outcome = "empty"
	OutcomeSaved         Outcome = "saved"
	OutcomeExhausted     Outcome = "exhausted"
	OutcomeAborted       Outcome = "aborted"
	OutcomeSaveFailed    Outcome = "save_failed"
	OutcomeDequeueFailed Outcome = "dequeue_failed"
	// OutcomeGone means the item left the inbox while under review, so
	// nothing was saved for it.
	OutcomeGone Outcome = "gone"
)

// Report describes what happened to one item.
type Report struct {
	ItemID     string         `json:"item_id,omitempty"`
	Outcome    Outcome        `json:"outcome"`
	Iterations int            `json:"iterations"`
	Saved      *db.SaveResult `json:"saved,omitempty"`
	// Reason is the operator-facing explanation for anything but saved.
	Reason string `json:"reason,omitempty"`
	Err    error  `json:"-"`
}

// Queued reports whether the item is still in the inbox after processing.
func (r *Report) Queued() bool {
	switch r.Outcome {
	case OutcomeExhausted, OutcomeAborted, OutcomeSaveFailed, OutcomeDequeueFailed:
		return true
	}
	return false
}

// Orchestrator runs the review loop over inbox items, strictly one at a time.
type Orchestrator struct {
	inbox        InboxStore
	records      RecordStore
	loop         *review.Loop
	reviewer     review.Reviewer
	logger       *slog.Logger
	recorder     Recorder
	linkSiblings bool
	retryAll     bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger. Outcomes are logged at info, failures at warn.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRecorder sets the outcome recorder.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithLinkSiblings links each saved Information to its sibling Ideas and Tasks.
func WithLinkSiblings(enabled bool) Option {
	return func(o *Orchestrator) { o.linkSiblings = enabled }
}

// WithRetryAll makes Drain attempt every queued item once instead of
// stopping at the first item that was not saved.
func WithRetryAll(enabled bool) Option {
	return func(o *Orchestrator) { o.retryAll = enabled }
}

// New creates an orchestrator.
func New(inbox InboxStore, records RecordStore, loop *review.Loop, reviewer review.Reviewer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		inbox:    inbox,
		records:  records,
		loop:     loop,
		reviewer: reviewer,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunOnce processes the oldest queued item. An empty inbox yields an
// OutcomeEmpty report. The error is non-nil only when the inbox cannot be
// read; per-item failures are reported, not returned.
func (o *Orchestrator) RunOnce(ctx context.Context) (*Report, error) {
	item, err := o.inbox.PeekOldest(ctx)
	if err != nil {
		return nil, asStoreUnavailable(err)
	}
	if item == nil {
		o.logger.Info("inbox empty")
		return &Report{Outcome: OutcomeEmpty}, nil
	}
	return o.process(ctx, *item), nil
}

// Drain processes items until the inbox is empty or, unless retry-all is
// set, until one item is not saved. Only processed items are reported.
func (o *Orchestrator) Drain(ctx context.Context) ([]Report, error) {
	if o.retryAll {
		return o.drainAll(ctx)
	}

	reports := []Report{}
	for {
		if err := ctx.Err(); err != nil {
			return reports, errors.NewReviewInterrupted(err)
		}
		rep, err := o.RunOnce(ctx)
		if err != nil {
			return reports, err
		}
		if rep.Outcome == OutcomeEmpty {
			return reports, nil
		}
		reports = append(reports, *rep)
		if rep.Outcome != OutcomeSaved {
			o.logger.Warn("stopping drain", "item_id", rep.ItemID, "outcome", rep.Outcome)
			return reports, nil
		}
	}
}

// drainAll attempts each item queued at start exactly once.
func (o *Orchestrator) drainAll(ctx context.Context) ([]Report, error) {
	items, err := o.inbox.List(ctx)
	if err != nil {
		return nil, asStoreUnavailable(err)
	}

	reports := []Report{}
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return reports, errors.NewReviewInterrupted(err)
		}
		rep := o.process(ctx, item)
		reports = append(reports, *rep)

		// Nothing further can succeed without the store or the reviewer.
		if errors.Is(rep.Err, errors.ErrStoreUnavailable) || errors.Is(rep.Err, errors.ErrReviewInterrupted) {
			o.logger.Warn("stopping drain", "item_id", rep.ItemID, "outcome", rep.Outcome, "error", rep.Err)
			return reports, nil
		}
	}
	return reports, nil
}

// process runs one item to a terminal loop state.
func (o *Orchestrator) process(ctx context.Context, item record.InboxItem) *Report {
	o.logger.Info("processing item", "item_id", item.ID)

	return o.finish(ctx, item, o.loop.Run(ctx, item.RawText, o.reviewer))
}

// finish applies the commit-then-dequeue rule to a terminal loop state.
func (o *Orchestrator) finish(ctx context.Context, item record.InboxItem, st review.LoopState) *Report {
	rep := &Report{ItemID: item.ID, Iterations: st.Iteration}

	switch st.State {
	case review.StateApproved:
		saved, err := o.records.SaveProposal(ctx, db.SaveInput{
			Proposal:     *st.Current,
			SourceItemID: item.ID,
			LinkSiblings: o.linkSiblings,
		})
		if errors.Is(err, errors.ErrNotFound) {
			rep.Outcome = OutcomeGone
			rep.Err = err
			rep.Reason = "item was removed during review; nothing saved"
			break
		}
		if err != nil {
			rep.Outcome = OutcomeSaveFailed
			rep.Err = err
			rep.Reason = reasonOf(err)
			break
		}
		rep.Saved = saved

		// The records are committed, so an interrupt must not skip the dequeue.
		if err := o.inbox.Remove(context.WithoutCancel(ctx), item.ID); err != nil {
			// Records are committed; the item must not be saved again.
			rep.Outcome = OutcomeDequeueFailed
			rep.Err = err
			rep.Reason = "records saved but item could not be removed: " + reasonOf(err)
			break
		}
		rep.Outcome = OutcomeSaved
	case review.StateExhausted:
		rep.Outcome = OutcomeExhausted
		rep.Err = st.Err
		rep.Reason = reasonOf(st.Err)
	default:
		rep.Outcome = OutcomeAborted
		rep.Err = st.Err
		rep.Reason = reasonOf(st.Err)
	}

	o.record(ctx, rep)
	return rep
}

func (o *Orchestrator) record(ctx context.Context, rep *Report) {
	o.recorder.ObserveOutcome(string(rep.Outcome), rep.Iterations)
	if n, err := o.inbox.Count(ctx); err == nil {
		o.recorder.SetInboxDepth(n)
	}

	if rep.Outcome == OutcomeSaved {
		o.logger.Info("item saved",
			"item_id", rep.ItemID,
			"iterations", rep.Iterations,
			"records", rep.Saved.Total(),
		)
		return
	}
	o.logger.Warn("item left in inbox",
		"item_id", rep.ItemID,
		"outcome", rep.Outcome,
		"iterations", rep.Iterations,
		"reason", rep.Reason,
	)
}

// reasonOf renders an error for operators without implementation detail.
func reasonOf(err error) string {
	if err == nil {
		return ""
	}
	if sErr, ok := errors.As(err); ok {
		return sErr.Message
	}
	return "unexpected error"
}

func asStoreUnavailable(err error) error {
	if _, ok := errors.As(err); ok {
		return err
	}
	return errors.NewStoreUnavailable(err)
}
