package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-playground/pkg/autosave"
	"github.com/mattsolo1/grove-playground/pkg/logging"
	"github.com/mattsolo1/grove-playground/pkg/service"
	"github.com/mattsolo1/grove-playground/pkg/tree"
)

var filesLog = logging.NewLogger("grove-playground.cmd.files")

func NewTreeCmd(svc **service.Service) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Show the file tree of the active workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc

			key, doc, err := s.Document(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(doc)
			}

			fmt.Fprintf(out, "%s\n", key)
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			printItems(w, doc.Items, 1)
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the workspace document as JSON")
	return cmd
}

func printItems(w *tabwriter.Writer, items []tree.Item, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, it := range items {
		if it.IsFolder() {
			fmt.Fprintf(w, "%s%s/\t%s\n", indent, it.Name, it.ID)
			printItems(w, it.Items, depth+1)
			continue
		}
		fmt.Fprintf(w, "%s%s\t%s\n", indent, it.Name, it.ID)
	}
}

func NewCatCmd(svc **service.Service) *cobra.Command {
	return &cobra.Command{
		Use:   "cat <file-id>",
		Short: "Print the stored content of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc

			f, err := s.GetFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), f.Content)
			return nil
		},
	}
}

func NewEditCmd(svc **service.Service) *cobra.Command {
	var (
		content  string
		fromFile string
	)

	cmd := &cobra.Command{
		Use:   "edit <file-id>",
		Short: "Replace the content of a file",
		Long: `Replace the content of a file and save it.

The edit goes through the same buffer and autosave path the editor uses; the
save is flushed before the command exits.

Examples:
  playground edit <id> --content "package main"
  playground edit <id> --file ./main.go
  go fmt < main.go | playground edit <id>`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			fileID := args[0]

			body, ok, err := readContent(content, cmd.Flags().Changed("content"), fromFile)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no content given: use --content, --file or stdin")
			}

			if _, err := s.OpenFile(cmd.Context(), fileID); err != nil {
				return err
			}
			revision, err := s.Edit(fileID, body)
			if err != nil {
				return err
			}

			for _, res := range s.Flush(cmd.Context()) {
				if res.FileID != fileID {
					continue
				}
				switch res.Outcome {
				case autosave.OutcomeFailed:
					return fmt.Errorf("save %s: %w", fileID, res.Err)
				case autosave.OutcomeSkipped:
					return fmt.Errorf("save %s skipped: %s", fileID, res.Reason)
				}
			}

			filesLog.WithField("file_id", fileID).WithField("revision", revision).Info("File edited")
			return nil
		},
	}

	cmd.Flags().StringVarP(&content, "content", "c", "", "New content")
	cmd.Flags().StringVarP(&fromFile, "file", "f", "", "Read the new content from a local file")
	return cmd
}

func NewRmCmd(svc **service.Service) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <item-id>",
		Aliases: []string{"remove"},
		Short:   "Delete a file or folder (with its contents)",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			if err := s.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			filesLog.WithField("item_id", args[0]).Info("Item deleted")
			return nil
		},
	}
}

func NewMvCmd(svc **service.Service) *cobra.Command {
	return &cobra.Command{
		Use:     "mv <item-id> <new-name>",
		Aliases: []string{"rename"},
		Short:   "Rename a file or folder",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			if err := s.Rename(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			filesLog.WithField("item_id", args[0]).WithField("name", args[1]).Info("Item renamed")
			return nil
		},
	}
}

func NewExportCmd(svc **service.Service) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the active workspace as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc

			w := cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}
			return s.ExportWorkspace(cmd.Context(), w)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}

func NewImportCmd(svc **service.Service) *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Import a workspace exported with 'export'",
		Long: `Replace a workspace's tree with an exported one.

By default the workspace named in the export is replaced; use --as to import
under another key.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer f.Close()

			imported, err := s.ImportWorkspace(cmd.Context(), f, key)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported workspace %s\n", imported)
			return nil
		},
	}

	cmd.Flags().StringVar(&key, "as", "", "Workspace key to import into")
	return cmd
}
