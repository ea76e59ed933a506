package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/sift/internal/errors"
	"github.com/hpungsan/sift/internal/llm"
	"github.com/hpungsan/sift/internal/review"
)

// fakeCompleter answers every request with a fixed JSON body.
type fakeCompleter struct {
	body     string
	err      error
	requests []llm.Request
}

func (f *fakeCompleter) CompleteJSON(_ context.Context, req llm.Request, out any) error {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return f.err
	}
	return json.Unmarshal([]byte(f.body), out)
}

func TestRuleApprover_Classify(t *testing.T) {
	tests := []struct {
		reply      string
		want       review.Verdict
		wantReason string
	}{
		{"Ok, mas remova a tarefa", review.VerdictRevise, "remova a tarefa"},
		{"looks good, but remove the task", review.VerdictRevise, "remove the task"},
		{"sim", review.VerdictApprove, ""},
		{"S", review.VerdictApprove, ""},
		{"ok", review.VerdictApprove, ""},
		{"Está bom, pode seguir", review.VerdictApprove, ""},
		{"yes", review.VerdictApprove, ""},
		{"não", review.VerdictRevise, NoCorrectionReason},
		{"n", review.VerdictRevise, NoCorrectionReason},
		{"reject", review.VerdictRevise, NoCorrectionReason},
		{"", review.VerdictRevise, NoCorrectionReason},
		{"   ", review.VerdictRevise, NoCorrectionReason},
		{"Não gostei", review.VerdictRevise, "Não gostei"},
		{"Separe a viagem em duas ideias", review.VerdictRevise, "Separe a viagem em duas ideias"},
		{"Adicione uma tarefa para trocar o óleo", review.VerdictRevise, "Adicione uma tarefa para trocar o óleo"},
		{"Aprovado, exceto a ideia", review.VerdictRevise, "exceto a ideia"},
		{"fine, except the second task", review.VerdictRevise, "except the second task"},
		{"Ok, tudo certo no geral", review.VerdictApprove, ""},
		{"looks good, no changes needed", review.VerdictApprove, ""},
		{"No, remove the car task", review.VerdictRevise, "No, remove the car task"},
	}

	approver := NewRuleApprover()
	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			d, err := approver.Decide(context.Background(), tt.reply, review.Proposal{})
			require.NoError(t, err)
			require.Equal(t, tt.want, d.Verdict)
			if tt.wantReason != "" {
				require.Equal(t, tt.wantReason, d.Reason)
			}
		})
	}
}

func TestHasRevisionCue(t *testing.T) {
	require.True(t, HasRevisionCue("Ok, mas remova a tarefa"))
	require.True(t, HasRevisionCue("PORÉM falta algo"))
	require.False(t, HasRevisionCue("sim, perfeito"))
	require.False(t, HasRevisionCue("tudo certo no geral"))
	require.False(t, HasRevisionCue("yes, no change needed"))
	require.True(t, HasRevisionCue("no"))
	require.True(t, HasRevisionCue("change the idea"))
}

func TestLLMProposer(t *testing.T) {
	completer := &fakeCompleter{body: `{"informations":[],"ideas":["Viajar para um destino a definir"],"tasks":["Pesquisar sobre viagens"," Preparar o carro "],"approved":false}`}
	proposer := NewLLMProposer(completer, "classify")

	p, err := proposer.Propose(context.Background(), "Preciso pesquisar sobre viagens", []review.HistoryEntry{{
		Proposal:   review.Proposal{Tasks: []string{"Viajar"}},
		HumanReply: "separe em tarefas",
		Decision:   review.Decision{Verdict: review.VerdictRevise, Reason: "separe em tarefas"},
	}})
	require.NoError(t, err)
	require.Empty(t, p.Informations)
	require.Equal(t, []string{"Pesquisar sobre viagens", "Preparar o carro"}, p.Tasks)

	require.Len(t, completer.requests, 1)
	req := completer.requests[0]
	require.Equal(t, "classify", req.System)
	require.Equal(t, "proposal", req.Schema.Name)
	require.Contains(t, req.User, `"separe em tarefas"`)
}

func TestLLMProposer_Failure(t *testing.T) {
	proposer := NewLLMProposer(&fakeCompleter{err: fmt.Errorf("timeout")}, "x")

	_, err := proposer.Propose(context.Background(), "note", nil)
	require.True(t, errors.Is(err, errors.ErrProposerFailed))
}

func TestLLMApprover(t *testing.T) {
	tests := []struct {
		body       string
		want       review.Verdict
		wantReason string
	}{
		{`{"decision":"approve","reason":"user agreed"}`, review.VerdictApprove, "user agreed"},
		{`{"decision":"revisar","reason":"remova a tarefa"}`, review.VerdictRevise, "remova a tarefa"},
		{`{"decision":"revise","reason":""}`, review.VerdictRevise, NoCorrectionReason},
	}
	for _, tt := range tests {
		completer := &fakeCompleter{body: tt.body}
		d, err := NewLLMApprover(completer, "judge").Decide(context.Background(), "reply", review.Proposal{Tasks: []string{"t"}})
		require.NoError(t, err)
		require.Equal(t, tt.want, d.Verdict)
		require.Equal(t, tt.wantReason, d.Reason)
		require.Contains(t, completer.requests[0].User, `User reply: "reply"`)
		require.Contains(t, completer.requests[0].User, "Tasks: t")
	}
}

func TestLLMApprover_UnknownDecision(t *testing.T) {
	completer := &fakeCompleter{body: `{"decision":"maybe","reason":""}`}

	_, err := NewLLMApprover(completer, "judge").Decide(context.Background(), "hmm", review.Proposal{})
	require.True(t, errors.Is(err, errors.ErrApproverFailed))
}

func TestPrecedenceApprover(t *testing.T) {
	// A model that approves anything containing "ok"
	naive := review.ApproverFunc(func(context.Context, string, review.Proposal) (review.Decision, error) {
		return review.Decision{Verdict: review.VerdictApprove, Reason: "contains ok"}, nil
	})
	approver := WithRevisionPrecedence(naive)

	d, err := approver.Decide(context.Background(), "Ok, mas remova a tarefa", review.Proposal{})
	require.NoError(t, err)
	require.Equal(t, review.VerdictRevise, d.Verdict)
	require.Equal(t, "remova a tarefa", d.Reason)

	d, err = approver.Decide(context.Background(), "ok", review.Proposal{})
	require.NoError(t, err)
	require.Equal(t, review.VerdictApprove, d.Verdict)
}

func TestPrecedenceApprover_PassesErrors(t *testing.T) {
	failing := review.ApproverFunc(func(context.Context, string, review.Proposal) (review.Decision, error) {
		return review.Decision{}, errors.NewApproverFailed(fmt.Errorf("down"))
	})

	_, err := WithRevisionPrecedence(failing).Decide(context.Background(), "ok", review.Proposal{})
	require.True(t, errors.Is(err, errors.ErrApproverFailed))
}
