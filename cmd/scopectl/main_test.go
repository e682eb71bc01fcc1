package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/project-shield/internal/classifier"
	"gopkg.in/yaml.v3"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	// Keep a developer's API key from switching tests to the advanced analyzer.
	t.Setenv("USE_AI_ANALYZER", "false")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestAnalyzeCommand(t *testing.T) {
	out, err := execute(t, "",
		"analyze",
		"--item", "Build homepage",
		"--item", "Create contact form | Name, email and message",
		"Can you also build a mobile app?")
	require.NoError(t, err)

	var result classifier.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, classifier.OutOfScope, result.Classification)
	assert.InDelta(t, 0.8, result.Confidence, 1e-9)
	assert.Equal(t, []string{"also", "can you also"}, result.ScopeCreepIndicators)
	assert.Contains(t, out, `"matched_scope_item_index": null`)
}

func TestAnalyzeCommand_StdinAndItemsFile(t *testing.T) {
	id := uuid.New()
	scope, err := yaml.Marshal(map[string]any{
		"project_context": "Acme portal",
		"scope_items": []map[string]string{
			{"id": id.String(), "title": "Build login page", "description": "Create user authentication UI"},
			{"title": "Create user dashboard"},
		},
	})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "scope.yaml")
	require.NoError(t, os.WriteFile(path, scope, 0o600))

	out, err := execute(t, "Working on the login page design\n",
		"analyze", "--items-file", path, "--rules-only")
	require.NoError(t, err)

	var result classifier.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, classifier.InScope, result.Classification)
	require.NotNil(t, result.MatchedScopeItemIndex)
	assert.Equal(t, 0, *result.MatchedScopeItemIndex)
	require.NotNil(t, result.MatchedScopeItemID)
	assert.Equal(t, id, *result.MatchedScopeItemID)
}

func TestAnalyzeCommand_Errors(t *testing.T) {
	_, err := execute(t, "   ", "analyze", "--item", "Build homepage")
	assert.ErrorIs(t, err, classifier.ErrInvalidRequest)

	_, err = execute(t, "", "analyze", "--item", " | no title", "hello")
	assert.ErrorIs(t, err, classifier.ErrInvalidRequest)

	_, err = execute(t, "", "analyze", "--items-file", filepath.Join(t.TempDir(), "missing.yaml"), "hello")
	assert.Error(t, err)
}

func TestLoadScope(t *testing.T) {
	scope, err := loadScope(&analyzeOptions{
		items:          []string{"Design logo | Company logo design", "Business cards"},
		projectContext: "Branding",
	})
	require.NoError(t, err)

	assert.Equal(t, "Branding", scope.ProjectContext)
	require.Len(t, scope.ScopeItems, 2)
	assert.Equal(t, classifier.ScopeItem{Title: "Design logo", Description: "Company logo design"}, scope.ScopeItems[0])
	assert.Equal(t, classifier.ScopeItem{Title: "Business cards", Order: 1}, scope.ScopeItems[1])
}

func TestLexiconsCommand(t *testing.T) {
	out, err := execute(t, "", "lexicons")
	require.NoError(t, err)

	var lex classifier.Lexicons
	require.NoError(t, yaml.Unmarshal([]byte(out), &lex))
	assert.Equal(t, classifier.DefaultLexicons(), lex)
}
