package triage

import (
	"context"

	"github.com/hpungsan/sift/internal/record"
	"github.com/hpungsan/sift/internal/review"
)

// Session is a review parked between replies. Transports that cannot block
// on a reader (MCP, HTTP) hold it and hand it back with the next reply.
type Session struct {
	Item  record.InboxItem `json:"item"`
	State review.LoopState `json:"state"`
}

// Begin takes the oldest queued item and runs the first proposal. The
// session is nil when the item is already finished (empty inbox or an
// aborted first proposal); the report is nil while the review is open.
func (o *Orchestrator) Begin(ctx context.Context) (*Session, *Report, error) {
	item, err := o.inbox.PeekOldest(ctx)
	if err != nil {
		return nil, nil, asStoreUnavailable(err)
	}
	if item == nil {
		return nil, &Report{Outcome: OutcomeEmpty}, nil
	}
	return o.BeginItem(ctx, *item)
}

// BeginItem is Begin for a specific queued item.
func (o *Orchestrator) BeginItem(ctx context.Context, item record.InboxItem) (*Session, *Report, error) {
	o.logger.Info("review started", "item_id", item.ID)
	st := o.loop.Propose(ctx, o.loop.Start(item.RawText))
	if st.State.Terminal() {
		return nil, o.finish(ctx, item, st), nil
	}
	return &Session{Item: item, State: st}, nil, nil
}

// Reply feeds one human reply and, on a revision, runs the next proposal.
// A terminal state is committed or reported exactly as Drain would.
func (o *Orchestrator) Reply(ctx context.Context, s Session, reply string) (*Session, *Report) {
	st := o.loop.Resume(ctx, s.State, reply)
	st = o.loop.Propose(ctx, st)
	if st.State.Terminal() {
		return nil, o.finish(ctx, s.Item, st)
	}
	return &Session{Item: s.Item, State: st}, nil
}
