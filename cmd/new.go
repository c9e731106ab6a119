package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-playground/pkg/logging"
	"github.com/mattsolo1/grove-playground/pkg/service"
)

var newLog = logging.NewLogger("grove-playground.cmd.new")

func NewNewCmd(svc **service.Service) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a file or folder in the active workspace",
	}

	cmd.AddCommand(newNewFileCmd(svc), newNewFolderCmd(svc))
	return cmd
}

func newNewFileCmd(svc **service.Service) *cobra.Command {
	var (
		parentID string
		content  string
		fromFile string
	)

	cmd := &cobra.Command{
		Use:   "file <name>",
		Short: "Create a file",
		Long: `Create a file in the active workspace.

Examples:
  playground new file main.go                      # Empty file at the root
  playground new file util.go --parent <folder-id> # Inside a folder
  playground new file notes.md --content "# Notes"
  cat app.js | playground new file app.js          # Content from stdin`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc

			body, _, err := readContent(content, cmd.Flags().Changed("content"), fromFile)
			if err != nil {
				return err
			}

			item, err := s.CreateFile(cmd.Context(), parentID, args[0], body)
			if err != nil {
				return err
			}

			newLog.WithField("file_id", item.ID).WithField("workspace", s.Active()).Info("File created")
			fmt.Fprintln(cmd.OutOrStdout(), item.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&parentID, "parent", "p", "", "ID of the folder to create the file in (default: root)")
	cmd.Flags().StringVarP(&content, "content", "c", "", "Initial content")
	cmd.Flags().StringVarP(&fromFile, "file", "f", "", "Read initial content from a local file")
	return cmd
}

func newNewFolderCmd(svc **service.Service) *cobra.Command {
	var parentID string

	cmd := &cobra.Command{
		Use:   "folder <name>",
		Short: "Create a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc

			item, err := s.CreateFolder(cmd.Context(), parentID, args[0])
			if err != nil {
				return err
			}

			newLog.WithField("folder_id", item.ID).WithField("workspace", s.Active()).Info("Folder created")
			fmt.Fprintln(cmd.OutOrStdout(), item.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&parentID, "parent", "p", "", "ID of the parent folder (default: root)")
	return cmd
}
