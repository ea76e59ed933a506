package record

import (
	"testing"

	"github.com/hpungsan/sift/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"idea", KindIdea},
		{"Ideas", KindIdea},
		{" tasks ", KindTask},
		{"info", KindInformation},
		{"plans", KindPlan},
		{"inbox", KindInbox},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		require.NoError(t, err, tt.in)
		require.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseKind("gadget")
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestNewPlan_MinimumSize(t *testing.T) {
	idea := Idea{ID: "idea-1", Content: "Viajar para um destino a definir"}

	for _, n := range []int{0, 1} {
		tasks := make([]Task, n)
		for i := range tasks {
			tasks[i] = Task{ID: string(rune('a' + i))}
		}
		_, err := NewPlan("plan-1", idea, tasks, 0)
		require.True(t, errors.Is(err, errors.ErrValidationFailed), "n=%d", n)
	}

	tasks := []Task{{ID: "t1"}, {ID: "t2"}, {ID: "t3"}}
	plan, err := NewPlan("plan-1", idea, tasks, 42)
	require.NoError(t, err)
	require.Len(t, plan.Tasks, len(tasks))
	require.Equal(t, []string{"t1", "t2", "t3"}, plan.TaskIDs())
	for _, task := range plan.Tasks {
		require.Equal(t, "plan-1", task.PlanID)
	}
	// Construction copies: the caller's slice is untouched
	require.Empty(t, tasks[0].PlanID)
}

func TestRecordInterface(t *testing.T) {
	records := []Record{
		InboxItem{ID: "i", RawText: "raw"},
		Information{ID: "f", Content: "fact"},
		Idea{ID: "d", Content: "idea", InformationIDs: []string{"f"}},
		Task{ID: "t", Content: "task"},
		Plan{ID: "p", IdeaContent: "idea", Tasks: []Task{{ID: "t"}, {ID: "u"}}},
	}
	wantKinds := []Kind{KindInbox, KindInformation, KindIdea, KindTask, KindPlan}

	for i, r := range records {
		require.Equal(t, wantKinds[i], r.RecordKind())
		require.NotEmpty(t, r.RecordID())
		require.NotEmpty(t, r.DisplayContent())
	}

	require.Equal(t, "linked informations: 1", records[2].DisplayDetails())
	require.Equal(t, "plan: n/a | linked informations: 0", records[3].DisplayDetails())
	require.Equal(t, "Plan for idea: idea", records[4].DisplayContent())
	require.Equal(t, "tasks: 2", records[4].DisplayDetails())
}

func TestFold(t *testing.T) {
	require.Equal(t, "nao concordo", Fold("  Não   CONCORDO "))
	require.Equal(t, "patagonia e selvagem", Fold("Patagônia é selvagem"))
}

func TestTokenize(t *testing.T) {
	got := Tokenize("A Patagônia é um local selvagem, e ideal para aventuras! Selvagem.")
	require.Equal(t, []string{"patagonia", "local", "selvagem", "ideal", "para", "aventuras"}, got)
	require.Empty(t, Tokenize("a é de"))
}

func TestCleanItems(t *testing.T) {
	require.Equal(t, []string{"a", "b"}, CleanItems([]string{" a ", "", "  ", "b"}))
	require.NotNil(t, CleanItems(nil))
}
