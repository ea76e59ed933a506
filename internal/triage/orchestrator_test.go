package triage

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/sift/internal/agent"
	"github.com/hpungsan/sift/internal/db"
	"github.com/hpungsan/sift/internal/errors"
	"github.com/hpungsan/sift/internal/record"
	"github.com/hpungsan/sift/internal/review"
)

// journal records store calls in order across both fakes.
type journal struct {
	calls []string
}

type fakeInbox struct {
	j         *journal
	items     []record.InboxItem
	peekErr   error
	removeErr error
}

func (f *fakeInbox) PeekOldest(context.Context) (*record.InboxItem, error) {
	if f.peekErr != nil {
		return nil, f.peekErr
	}
	if len(f.items) == 0 {
		return nil, nil
	}
	item := f.items[0]
	return &item, nil
}

func (f *fakeInbox) List(context.Context) ([]record.InboxItem, error) {
	return append([]record.InboxItem(nil), f.items...), nil
}

func (f *fakeInbox) Remove(ctx context.Context, id string) error {
	f.j.calls = append(f.j.calls, "remove:"+id)
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.removeErr != nil {
		return f.removeErr
	}
	for i, item := range f.items {
		if item.ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return errors.NewNotFound("inbox", id)
}

func (f *fakeInbox) Count(context.Context) (int, error) { return len(f.items), nil }

type fakeRecords struct {
	j       *journal
	err     error
	inputs  []db.SaveInput
	failFor map[string]bool
	// afterSave runs once the save has succeeded.
	afterSave func()
}

func (f *fakeRecords) SaveProposal(_ context.Context, in db.SaveInput) (*db.SaveResult, error) {
	f.j.calls = append(f.j.calls, "save:"+in.SourceItemID)
	f.inputs = append(f.inputs, in)
	if f.afterSave != nil {
		defer f.afterSave()
	}
	if f.err != nil || f.failFor[in.SourceItemID] {
		if f.err != nil {
			return nil, f.err
		}
		return nil, errors.NewDuplicateInformation("x")
	}
	return &db.SaveResult{Tasks: []record.Task{{ID: "t"}}}, nil
}

type countingRecorder struct {
	outcomes map[string]int
	depth    int
}

func (c *countingRecorder) ObserveOutcome(outcome string, _ int) { c.outcomes[outcome]++ }
func (c *countingRecorder) SetInboxDepth(n int)                  { c.depth = n }

var travel = review.Proposal{
	Ideas: []string{"Viajar para um destino a definir"},
	Tasks: []string{"Pesquisar sobre viagens", "Preparar o carro"},
}

func fixedProposer(p review.Proposal) review.ProposerFunc {
	return func(context.Context, string, []review.HistoryEntry) (review.Proposal, error) {
		return p, nil
	}
}

func constantReply(reply string) review.ReviewerFunc {
	return func(context.Context, review.LoopState) (string, error) { return reply, nil }
}

func newFixture(items ...string) (*journal, *fakeInbox, *fakeRecords) {
	j := &journal{}
	inbox := &fakeInbox{j: j}
	for _, id := range items {
		inbox.items = append(inbox.items, record.InboxItem{ID: id, RawText: "note " + id})
	}
	return j, inbox, &fakeRecords{j: j, failFor: map[string]bool{}}
}

func TestRunOnce_CommitThenDequeue(t *testing.T) {
	j, inbox, records := newFixture("A")
	recorder := &countingRecorder{outcomes: map[string]int{}}
	loop := review.NewLoop(fixedProposer(travel), agent.NewRuleApprover())
	o := New(inbox, records, loop, constantReply("sim"), WithRecorder(recorder), WithLinkSiblings(true))

	rep, err := o.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomeSaved, rep.Outcome)
	require.False(t, rep.Queued())
	require.Equal(t, []string{"save:A", "remove:A"}, j.calls)
	require.Equal(t, "A", records.inputs[0].SourceItemID)
	require.True(t, records.inputs[0].LinkSiblings)
	require.Equal(t, 1, recorder.outcomes["saved"])
	require.Equal(t, 0, recorder.depth)
}

func TestRunOnce_SaveFailureKeepsItem(t *testing.T) {
	j, inbox, records := newFixture("A")
	records.err = errors.NewDuplicateInformation("Dia 25/12/2025 será feriado")
	loop := review.NewLoop(fixedProposer(travel), agent.NewRuleApprover())
	o := New(inbox, records, loop, constantReply("ok"))

	rep, err := o.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomeSaveFailed, rep.Outcome)
	require.True(t, rep.Queued())
	require.True(t, errors.Is(rep.Err, errors.ErrConstraintViolation))
	require.Contains(t, rep.Reason, "already exists")

	// remove is never called after a failed save
	require.Equal(t, []string{"save:A"}, j.calls)
	require.Len(t, inbox.items, 1)
}

func TestRunOnce_ExhaustionKeepsItem(t *testing.T) {
	j, inbox, records := newFixture("A")
	loop := review.NewLoop(fixedProposer(travel), agent.NewRuleApprover(), review.WithMaxIterations(3))
	o := New(inbox, records, loop, constantReply("não"))

	rep, err := o.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomeExhausted, rep.Outcome)
	require.Equal(t, 3, rep.Iterations)
	require.Empty(t, j.calls)
	require.Len(t, inbox.items, 1)
}

func TestRunOnce_ProposerFailureAborts(t *testing.T) {
	j, inbox, records := newFixture("A")
	failing := review.ProposerFunc(func(context.Context, string, []review.HistoryEntry) (review.Proposal, error) {
		return review.Proposal{}, fmt.Errorf("connection refused")
	})
	o := New(inbox, records, review.NewLoop(failing, agent.NewRuleApprover()), constantReply("sim"))

	rep, err := o.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomeAborted, rep.Outcome)
	require.True(t, errors.Is(rep.Err, errors.ErrProposerFailed))
	require.Empty(t, j.calls)
}

func TestRunOnce_DequeueFailure(t *testing.T) {
	_, inbox, records := newFixture("A")
	inbox.removeErr = errors.NewStoreUnavailable(fmt.Errorf("disk I/O error"))
	o := New(inbox, records, review.NewLoop(fixedProposer(travel), agent.NewRuleApprover()), constantReply("sim"))

	rep, err := o.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomeDequeueFailed, rep.Outcome)
	require.NotNil(t, rep.Saved)
	require.Contains(t, rep.Reason, "records saved")
}

func TestRunOnce_InterruptAfterSaveStillDequeues(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	j, inbox, records := newFixture("A")
	records.afterSave = cancel
	o := New(inbox, records, review.NewLoop(fixedProposer(travel), agent.NewRuleApprover()), constantReply("sim"))

	rep, err := o.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, OutcomeSaved, rep.Outcome)
	require.Equal(t, []string{"save:A", "remove:A"}, j.calls)
	require.Empty(t, inbox.items)
}

func TestRunOnce_ItemGoneDuringReview(t *testing.T) {
	j, inbox, records := newFixture("A")
	records.err = errors.NewNotFound("inbox", "A")
	o := New(inbox, records, review.NewLoop(fixedProposer(travel), agent.NewRuleApprover()), constantReply("sim"))

	rep, err := o.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomeGone, rep.Outcome)
	require.False(t, rep.Queued())
	require.Nil(t, rep.Saved)
	require.Equal(t, []string{"save:A"}, j.calls)
}

func TestRunOnce_Empty(t *testing.T) {
	j, inbox, records := newFixture()
	o := New(inbox, records, review.NewLoop(fixedProposer(travel), agent.NewRuleApprover()), constantReply("sim"))

	rep, err := o.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomeEmpty, rep.Outcome)
	require.Empty(t, j.calls)
}

func TestRunOnce_StoreUnavailable(t *testing.T) {
	_, inbox, records := newFixture("A")
	inbox.peekErr = fmt.Errorf("database is locked")
	o := New(inbox, records, review.NewLoop(fixedProposer(travel), agent.NewRuleApprover()), constantReply("sim"))

	_, err := o.RunOnce(context.Background())
	require.True(t, errors.Is(err, errors.ErrStoreUnavailable))
}

func TestDrain_StopsAtFirstFailure(t *testing.T) {
	j, inbox, records := newFixture("A", "B", "C")
	records.failFor["B"] = true
	o := New(inbox, records, review.NewLoop(fixedProposer(travel), agent.NewRuleApprover()), constantReply("sim"))

	reports, err := o.Drain(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 2)
	require.Equal(t, OutcomeSaved, reports[0].Outcome)
	require.Equal(t, OutcomeSaveFailed, reports[1].Outcome)
	require.Equal(t, []string{"save:A", "remove:A", "save:B"}, j.calls)
	require.Len(t, inbox.items, 2)
}

func TestDrain_UntilEmpty(t *testing.T) {
	_, inbox, records := newFixture("A", "B")
	o := New(inbox, records, review.NewLoop(fixedProposer(travel), agent.NewRuleApprover()), constantReply("sim"))

	reports, err := o.Drain(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 2)
	require.Empty(t, inbox.items)
}

func TestDrain_RetryAllAttemptsEachOnce(t *testing.T) {
	j, inbox, records := newFixture("A", "B", "C")
	records.failFor["A"] = true
	o := New(inbox, records, review.NewLoop(fixedProposer(travel), agent.NewRuleApprover()), constantReply("sim"), WithRetryAll(true))

	reports, err := o.Drain(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 3)
	require.Equal(t, OutcomeSaveFailed, reports[0].Outcome)
	require.Equal(t, OutcomeSaved, reports[1].Outcome)
	require.Equal(t, OutcomeSaved, reports[2].Outcome)
	require.Equal(t, []string{"save:A", "save:B", "remove:B", "save:C", "remove:C"}, j.calls)
	require.Len(t, inbox.items, 1)
	require.Equal(t, "A", inbox.items[0].ID)
}

func TestDrain_RetryAllStopsWhenReviewerGone(t *testing.T) {
	_, inbox, records := newFixture("A", "B")
	closed := review.ReviewerFunc(func(context.Context, review.LoopState) (string, error) {
		return "", fmt.Errorf("EOF")
	})
	o := New(inbox, records, review.NewLoop(fixedProposer(travel), agent.NewRuleApprover()), closed, WithRetryAll(true))

	reports, err := o.Drain(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 1)
	require.Equal(t, OutcomeAborted, reports[0].Outcome)
}

// End to end against SQLite: one note, one idea, two tasks, no informations.
func TestEndToEnd_SQLite(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Init(t.TempDir())
	require.NoError(t, err)
	defer conn.Close()

	inbox := db.NewInbox(conn)
	records := db.NewRecords(conn)

	item, err := inbox.Enqueue(ctx, "Preciso pesquisar sobre viagens e preparar o carro antes")
	require.NoError(t, err)

	var seen string
	proposer := review.ProposerFunc(func(_ context.Context, raw string, _ []review.HistoryEntry) (review.Proposal, error) {
		seen = raw
		return review.Proposal{
			Informations: []string{},
			Ideas:        []string{"Viajar para um destino a definir"},
			Tasks:        []string{"Pesquisar sobre viagens", "Preparar o carro"},
		}, nil
	})
	loop := review.NewLoop(proposer, agent.NewRuleApprover())
	o := New(inbox, records, loop, constantReply("sim"), WithLinkSiblings(true))

	rep, err := o.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, OutcomeSaved, rep.Outcome)
	require.Equal(t, item.RawText, seen)

	infos, err := records.ListInformations(ctx)
	require.NoError(t, err)
	require.Empty(t, infos)

	ideas, err := records.ListIdeas(ctx)
	require.NoError(t, err)
	require.Len(t, ideas, 1)
	require.Equal(t, item.ID, ideas[0].SourceItemID)

	tasks, err := records.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	n, err := inbox.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

// A duplicate information rolls back and the note stays queued.
func TestEndToEnd_DuplicateInformationStaysQueued(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Init(t.TempDir())
	require.NoError(t, err)
	defer conn.Close()

	inbox := db.NewInbox(conn)
	records := db.NewRecords(conn)

	_, err = records.SaveProposal(ctx, db.SaveInput{
		Proposal: review.Proposal{Informations: []string{"Dia 25/12/2025 será feriado"}},
	})
	require.NoError(t, err)

	_, err = inbox.Enqueue(ctx, "Dia 25/12/2025 será feriado, comprar presentes")
	require.NoError(t, err)

	p := review.Proposal{
		Informations: []string{"Dia 25/12/2025 será feriado"},
		Tasks:        []string{"Comprar presentes"},
	}
	o := New(inbox, records, review.NewLoop(fixedProposer(p), agent.NewRuleApprover()), constantReply("ok"))

	rep, err := o.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, OutcomeSaveFailed, rep.Outcome)

	tasks, err := records.ListTasks(ctx)
	require.NoError(t, err)
	require.Empty(t, tasks)

	n, err := inbox.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}
