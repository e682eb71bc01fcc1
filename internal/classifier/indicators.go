package classifier

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Lexicons holds the phrase lists the rule classifier looks for.
// Phrases are lowercase and matched as substrings of the normalized request.
type Lexicons struct {
	ScopeCreep    []string `yaml:"scope_creep"`
	Revision      []string `yaml:"revision"`
	Clarification []string `yaml:"clarification"`
}

// DefaultLexicons returns the built-in phrase lists.
func DefaultLexicons() Lexicons {
	return Lexicons{
		// Casual-addition language: the client slipping in extra work.
		ScopeCreep: []string{
			"also",
			"one more thing",
			"quick addition",
			"while you're at it",
			"shouldn't take long",
			"real quick",
			"easy change",
			"small tweak",
			"just add",
			"can you also",
			"by the way",
			"oh and",
			"almost forgot",
			"one more request",
			"tiny favor",
			"simple addition",
			"minor update",
			"additionally",
		},
		// Changes to work that is already in scope.
		Revision: []string{
			"change",
			"update",
			"modify",
			"revise",
			"adjust",
			"tweak",
			"different",
			"instead",
			"actually",
			"on second thought",
		},
		// Questions rather than requests.
		Clarification: []string{
			"what do you mean",
			"can you explain",
			"not sure about",
			"question about",
			"clarify",
			"confused",
			"understand",
		},
	}
}

// LoadLexicons reads phrase lists from a YAML file. Lists missing from the
// file keep their defaults; lists present replace them.
func LoadLexicons(path string) (Lexicons, error) {
	lex := DefaultLexicons()
	if path == "" {
		return lex, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Lexicons{}, fmt.Errorf("reading lexicon file: %w", err)
	}

	var override Lexicons
	if err := yaml.Unmarshal(data, &override); err != nil {
		return Lexicons{}, fmt.Errorf("parsing lexicon file %s: %w", path, err)
	}

	if override.ScopeCreep != nil {
		lex.ScopeCreep = override.ScopeCreep
	}
	if override.Revision != nil {
		lex.Revision = override.Revision
	}
	if override.Clarification != nil {
		lex.Clarification = override.Clarification
	}
	return lex.normalized(), nil
}

func (l Lexicons) normalized() Lexicons {
	return Lexicons{
		ScopeCreep:    cleanPhrases(l.ScopeCreep),
		Revision:      cleanPhrases(l.Revision),
		Clarification: cleanPhrases(l.Clarification),
	}
}

func cleanPhrases(phrases []string) []string {
	out := make([]string, 0, len(phrases))
	seen := make(map[string]struct{}, len(phrases))
	for _, p := range phrases {
		p = Normalize(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
