package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/xaenox/project-shield/internal/classifier"
	"gopkg.in/yaml.v3"
)

type analyzeOptions struct {
	items          []string
	itemsFile      string
	projectContext string
	rulesOnly      bool
}

// scopeFile is the layout accepted by --items-file.
type scopeFile struct {
	ProjectContext string                 `yaml:"project_context"`
	ScopeItems     []classifier.ScopeItem `yaml:"scope_items"`
}

func newAnalyzeCmd(configPath *string) *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze [request text]",
		Short: "Classify a client request against scope items",
		Long: `Classify a client request against the given scope items and print the
result as JSON. The request is read from stdin when no text is given.

Examples:
  scopectl analyze --item "Build login page | Email sign-in" "Can you also add SSO?"
  scopectl analyze --items-file scope.yaml --rules-only < request.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, *configPath, opts, args)
		},
	}

	cmd.Flags().StringArrayVar(&opts.items, "item", nil, `Scope item as "title | description" (repeatable)`)
	cmd.Flags().StringVar(&opts.itemsFile, "items-file", "", "YAML file with project_context and scope_items")
	cmd.Flags().StringVar(&opts.projectContext, "context", "", "Project context passed to the advanced analyzer")
	cmd.Flags().BoolVar(&opts.rulesOnly, "rules-only", false, "Use the rule classifier even when the advanced analyzer is configured")
	return cmd
}

func runAnalyze(cmd *cobra.Command, configPath string, opts *analyzeOptions, args []string) error {
	content := strings.Join(args, " ")
	if content == "" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read request from stdin: %w", err)
		}
		content = string(data)
	}

	scope, err := loadScope(opts)
	if err != nil {
		return err
	}

	req, err := classifier.NewRequest(strings.TrimSpace(content), scope.ScopeItems, scope.ProjectContext)
	if err != nil {
		return err
	}

	analyzer, log, err := newAnalyzer(configPath)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	var result classifier.Result
	if opts.rulesOnly {
		result, err = analyzer.AnalyzeScopeSync(req)
	} else {
		result, err = analyzer.AnalyzeScope(cmd.Context(), req)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// loadScope merges the items file with --item flags; flag items come last.
func loadScope(opts *analyzeOptions) (scopeFile, error) {
	var scope scopeFile
	if opts.itemsFile != "" {
		data, err := os.ReadFile(opts.itemsFile)
		if err != nil {
			return scopeFile{}, fmt.Errorf("failed to read items file: %w", err)
		}
		if err := yaml.Unmarshal(data, &scope); err != nil {
			return scopeFile{}, fmt.Errorf("failed to parse items file %s: %w", opts.itemsFile, err)
		}
	}

	for _, raw := range opts.items {
		title, description, _ := strings.Cut(raw, "|")
		scope.ScopeItems = append(scope.ScopeItems, classifier.ScopeItem{
			Title:       strings.TrimSpace(title),
			Description: strings.TrimSpace(description),
		})
	}
	for i := range scope.ScopeItems {
		scope.ScopeItems[i].Order = i
	}

	if opts.projectContext != "" {
		scope.ProjectContext = opts.projectContext
	}
	return scope, nil
}
