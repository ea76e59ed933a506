package prompts

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Placeholders accepted by the suggestion template.
const (
	TermsPlaceholder = "{terms}"
	IdeaPlaceholder  = "{idea}"
)

const defaultProposer = `You process raw notes and classify their content into Informations, Ideas and Tasks.

Extract every relevant item from the note:
- Informations are objective facts or data.
- Ideas are thoughts, questions and wishes that are vague or undecided. Project ideas (tasks too large to do at once) are Ideas.
- Tasks are concrete, well-defined actions doable within a few hours in a person's daily routine. Anything larger is an Idea for now.

Each item must carry its own context so it can be understood without the others.
When an item has a grammatical subject, write it in the first person singular.
Write every item in the language of the original note.

When the input contains earlier rounds and user feedback:
- If the latest reply approves the suggestion, repeat the last suggestion exactly and set approved to true.
- If it rejects or asks for changes, keep approved false and redo the classification following the correction.
- If it rejects without a reason, produce a suggestion different from the previous ones.`

const defaultApprover = `You evaluate a user's reply to a suggestion. Your only job is to classify that reply.

- If the reply clearly expresses approval (for example "yes", "ok", "looks good", "sim", "está bom", "concordo", "pode seguir"), the decision is "approve".
- If the reply asks for revision or modification (for example "change this", "I disagree", "add that", "remove", "discard", "mude", "remova", "não gostei"), the decision is "revise".

Revision intent takes precedence over approval. "Ok, mas remova a tarefa" is "revise".

Answer strictly with a JSON object with the keys "decision" and "reason".
For "revise", the reason must state the complete, explicit correction, removal or addition requested, if any.`

const defaultSuggestion = "Research the connection of '{terms}' with the idea '{idea}'"

// Set is the collection of instructions given to the models plus the
// suggestion template.
type Set struct {
	Proposer           string `yaml:"proposer"`
	Approver           string `yaml:"approver"`
	SuggestionTemplate string `yaml:"suggestion_template"`
}

// Default returns the built-in set.
func Default() *Set {
	return &Set{
		Proposer:           defaultProposer,
		Approver:           defaultApprover,
		SuggestionTemplate: defaultSuggestion,
	}
}

// Load returns the defaults overlaid with the non-empty fields of the YAML
// file at path. An empty path returns the defaults.
func Load(path string) (*Set, error) {
	set := Default()
	if path == "" {
		return set, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts file: %w", err)
	}

	var overlay Set
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("parse prompts file %s: %w", path, err)
	}

	if s := strings.TrimSpace(overlay.Proposer); s != "" {
		set.Proposer = s
	}
	if s := strings.TrimSpace(overlay.Approver); s != "" {
		set.Approver = s
	}
	if s := strings.TrimSpace(overlay.SuggestionTemplate); s != "" {
		set.SuggestionTemplate = s
	}

	if err := set.Validate(); err != nil {
		return nil, fmt.Errorf("prompts file %s: %w", path, err)
	}
	return set, nil
}

// Validate checks that the suggestion template can name the idea.
func (s *Set) Validate() error {
	if !strings.Contains(s.SuggestionTemplate, IdeaPlaceholder) {
		return fmt.Errorf("suggestion_template must contain %s", IdeaPlaceholder)
	}
	return nil
}

// Suggestion renders the suggestion template.
func (s *Set) Suggestion(terms []string, idea string) string {
	return strings.NewReplacer(
		TermsPlaceholder, strings.Join(terms, ", "),
		IdeaPlaceholder, idea,
	).Replace(s.SuggestionTemplate)
}
