package prompts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	set := Default()
	require.NoError(t, set.Validate())
	require.Contains(t, set.Approver, "Ok, mas remova a tarefa")
	require.Contains(t, set.Proposer, "approved")
}

func TestLoad_EmptyPath(t *testing.T) {
	set, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), set)
}

func TestLoad_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	body := `
suggestion_template: "Pesquisar sobre a conexão de '{terms}' com a ideia '{idea}'"
approver: |
  Classifique a resposta do usuário.
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))

	set, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "Classifique a resposta do usuário.", set.Approver)
	// Untouched fields keep defaults
	require.Equal(t, Default().Proposer, set.Proposer)
	require.Equal(t,
		"Pesquisar sobre a conexão de 'patagonia, selvagem' com a ideia 'Viajar para a Patagônia'",
		set.Suggestion([]string{"patagonia", "selvagem"}, "Viajar para a Patagônia"),
	)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("proposer: [unclosed"), 0600))
	_, err = Load(bad)
	require.Error(t, err)

	noIdea := filepath.Join(dir, "noidea.yaml")
	require.NoError(t, os.WriteFile(noIdea, []byte(`suggestion_template: "look at {terms}"`), 0600))
	_, err = Load(noIdea)
	require.ErrorContains(t, err, "{idea}")
}
