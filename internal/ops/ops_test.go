package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/sift/internal/errors"
	"github.com/hpungsan/sift/internal/prompts"
	"github.com/hpungsan/sift/internal/record"
	"github.com/hpungsan/sift/internal/review"
)

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	page, p := paginate(items, 2, 1)
	require.Equal(t, []int{2, 3}, page)
	require.Equal(t, Pagination{Limit: 2, Offset: 1, HasMore: true, Total: 5}, p)

	page, p = paginate(items, 0, -3)
	require.Equal(t, items, page)
	require.Equal(t, DefaultListLimit, p.Limit)
	require.Zero(t, p.Offset)
	require.False(t, p.HasMore)

	page, p = paginate(items, 1000, 10)
	require.Empty(t, page)
	require.Equal(t, MaxListLimit, p.Limit)
}

func TestInboxOps(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)

	_, err := InboxAdd(ctx, database, InboxAddInput{RawText: "   "})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))

	first, err := InboxAdd(ctx, database, InboxAddInput{RawText: "Primeira"})
	require.NoError(t, err)
	_, err = InboxAdd(ctx, database, InboxAddInput{RawText: "Segunda"})
	require.NoError(t, err)

	count, err := InboxCount(ctx, database)
	require.NoError(t, err)
	require.Equal(t, 2, count.Count)

	list, err := InboxList(ctx, database, InboxListInput{Limit: 1})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	require.Equal(t, first.ID, list.Items[0].ID)
	require.True(t, list.Pagination.HasMore)

	removed, err := InboxRemove(ctx, database, InboxRemoveInput{ID: first.ID})
	require.NoError(t, err)
	require.True(t, removed.Removed)

	_, err = InboxRemove(ctx, database, InboxRemoveInput{ID: first.ID})
	require.True(t, errors.Is(err, errors.ErrNotFound))
	_, err = InboxRemove(ctx, database, InboxRemoveInput{})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestList_AllKinds(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)

	_, err := InboxAdd(ctx, database, InboxAddInput{RawText: "nota solta"})
	require.NoError(t, err)
	seedProposal(t, database, review.Proposal{
		Informations: []string{"A feira abre sábado"},
		Ideas:        []string{"Montar uma banca"},
		Tasks:        []string{"Comprar lona"},
	})

	for kind, want := range map[string]int{"inbox": 1, "infos": 1, "ideas": 1, "task": 1, "plans": 0} {
		out, err := List(ctx, database, ListInput{Kind: kind})
		require.NoError(t, err, kind)
		require.Len(t, out.Items, want, kind)
		require.Equal(t, want, out.Pagination.Total, kind)
	}

	_, err = List(ctx, database, ListInput{Kind: "gadgets"})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestDelete_RoutesInboxAndRecords(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)

	item, err := InboxAdd(ctx, database, InboxAddInput{RawText: "descartar"})
	require.NoError(t, err)
	out, err := Delete(ctx, database, DeleteInput{Kind: "inbox", ID: item.ID})
	require.NoError(t, err)
	require.Equal(t, record.KindInbox, out.Kind)

	res := seedProposal(t, database, review.Proposal{
		Ideas: []string{"Reformar a sala"},
		Tasks: []string{"Medir parede", "Comprar tinta"},
	})
	plan, err := ComposePlan(ctx, database, ComposePlanInput{
		IdeaID:  res.Ideas[0].ID,
		TaskIDs: []string{res.Tasks[0].ID, res.Tasks[1].ID},
	})
	require.NoError(t, err)

	out, err = Delete(ctx, database, DeleteInput{Kind: "plan", ID: plan.ID})
	require.NoError(t, err)
	require.Equal(t, 2, out.CascadedTasks)

	tasks, err := List(ctx, database, ListInput{Kind: "tasks"})
	require.NoError(t, err)
	require.Empty(t, tasks.Items)

	_, err = Delete(ctx, database, DeleteInput{Kind: "idea"})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestLink_Validation(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	res := seedProposal(t, database, review.Proposal{
		Informations: []string{"O museu fecha segunda"},
		Ideas:        []string{"Visitar o museu"},
	})
	infoID, ideaID := res.Informations[0].ID, res.Ideas[0].ID

	out, err := Link(ctx, database, LinkInput{InformationID: infoID, IdeaID: ideaID})
	require.NoError(t, err)
	require.Equal(t, record.KindIdea, out.TargetKind)

	_, err = Link(ctx, database, LinkInput{InformationID: infoID, IdeaID: ideaID, TaskID: "x"})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
	_, err = Link(ctx, database, LinkInput{InformationID: infoID})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
	_, err = Link(ctx, database, LinkInput{InformationID: infoID, TaskID: "01MISSING"})
	require.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestComposePlan_NeedsTwoTasks(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	res := seedProposal(t, database, review.Proposal{
		Ideas: []string{"Aprender a nadar"},
		Tasks: []string{"Procurar piscina"},
	})

	_, err := ComposePlan(ctx, database, ComposePlanInput{IdeaID: res.Ideas[0].ID, TaskIDs: []string{res.Tasks[0].ID}})
	require.True(t, errors.Is(err, errors.ErrValidationFailed))

	_, err = ComposePlan(ctx, database, ComposePlanInput{TaskIDs: []string{"a", "b"}})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestSuggestAndAccept(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	tmpl := prompts.Default()

	res := seedProposal(t, database, review.Proposal{
		Informations: []string{"Passagens para o Japão estão em promoção"},
		Ideas:        []string{"Viajar para o Japão", "Aprender violão"},
	})
	infoID := res.Informations[0].ID
	japan, guitar := res.Ideas[0].ID, res.Ideas[1].ID

	out, err := Suggest(ctx, database, tmpl, SuggestInput{InformationID: infoID})
	require.NoError(t, err)
	require.Len(t, out.Suggestions, 1)
	require.Equal(t, japan, out.Suggestions[0].IdeaID)
	require.Equal(t, []string{"japao", "para"}, out.Suggestions[0].SharedTerms)

	_, err = AcceptSuggestion(ctx, database, tmpl, AcceptSuggestionInput{InformationID: infoID, IdeaID: guitar})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = AcceptSuggestion(ctx, database, tmpl, AcceptSuggestionInput{InformationID: infoID, IdeaID: "01MISSING"})
	require.True(t, errors.Is(err, errors.ErrNotFound))

	accepted, err := AcceptSuggestion(ctx, database, tmpl, AcceptSuggestionInput{InformationID: infoID, IdeaID: japan})
	require.NoError(t, err)
	require.Equal(t, out.Suggestions[0].TaskContent, accepted.Task.Content)
	require.Equal(t, []string{infoID}, accepted.Task.InformationIDs)

	_, err = Suggest(ctx, database, tmpl, SuggestInput{InformationID: "01MISSING"})
	require.True(t, errors.Is(err, errors.ErrNotFound))
}
