package main

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newLexiconsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "lexicons",
		Short: "Print the phrase lists the rule classifier uses",
		Long: `Print the effective scope creep, revision and clarification phrase lists as
YAML. The output can be edited and pointed to with analyzer.lexicon_path.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			analyzer, log, err := newAnalyzer(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(analyzer.Lexicons()); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}
