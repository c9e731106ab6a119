package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-playground/pkg/language"
	"github.com/mattsolo1/grove-playground/pkg/logging"
	"github.com/mattsolo1/grove-playground/pkg/service"
)

var searchLog = logging.NewLogger("grove-playground.cmd.search")

func NewSearchCmd(svc **service.Service) *cobra.Command {
	var (
		searchLang  string
		searchLimit int
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search files in the active workspace",
		Long: `Search the saved content and paths of files in the active workspace.

Examples:
  playground search "handleRequest"   # Search all files
  playground search "import" -l python # Only Python files`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			query := strings.Join(args, " ")

			hits, err := s.Search(query, language.Language(searchLang), searchLimit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(hits) == 0 {
				fmt.Fprintln(out, "No results found")
				return nil
			}

			searchLog.WithField("query", query).WithField("result_count", len(hits)).Debug("Search results")
			fmt.Fprintf(out, "Found %d results:\n\n", len(hits))
			for i, hit := range hits {
				fmt.Fprintf(out, "%d. %s (%s)\n", i+1, hit.Path, hit.Language.DisplayName())
				fmt.Fprintf(out, "   id: %s\n", hit.FileID)
				if hit.Snippet != "" {
					fmt.Fprintf(out, "   %s\n", strings.ReplaceAll(hit.Snippet, "\n", " "))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&searchLang, "lang", "l", "", "Filter by language (e.g. go, python)")
	cmd.Flags().IntVar(&searchLimit, "limit", 50, "Maximum results")

	return cmd
}
