package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-playground/pkg/logging"
	"github.com/mattsolo1/grove-playground/pkg/service"
)

var workspaceLog = logging.NewLogger("grove-playground.cmd.workspace")

func NewWorkspaceCmd(svc **service.Service) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workspace",
		Aliases: []string{"ws"},
		Short:   "Manage workspaces",
	}

	cmd.AddCommand(newWorkspaceListCmd(svc))
	cmd.AddCommand(newWorkspaceAddCmd(svc))
	cmd.AddCommand(newWorkspaceRemoveCmd(svc))
	cmd.AddCommand(newWorkspaceCurrentCmd(svc))

	return cmd
}

func newWorkspaceListCmd(svc **service.Service) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered workspaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc

			list, err := s.ListWorkspaces(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "\tKEY\tTITLE\tLAST USED")
			active := s.Active()
			for _, ws := range list {
				marker := ""
				if ws.Key == active {
					marker = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", marker, ws.Key, ws.DisplayName(), ws.LastUsed.Local().Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
}

func newWorkspaceAddCmd(svc **service.Service) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "add <key>",
		Short: "Register a workspace and create its empty tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc

			ws, err := s.AddWorkspace(cmd.Context(), args[0], title)
			if err != nil {
				return err
			}
			workspaceLog.WithField("workspace", ws.Key).Info("Workspace added")
			fmt.Fprintf(cmd.OutOrStdout(), "Added workspace %s\n", ws.Key)
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Display title")
	return cmd
}

func newWorkspaceRemoveCmd(svc **service.Service) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <key>",
		Aliases: []string{"rm"},
		Short:   "Forget a workspace (its stored tree is kept)",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			if err := s.RemoveWorkspace(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed workspace %s\n", args[0])
			return nil
		},
	}
}

func newWorkspaceCurrentCmd(svc **service.Service) *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Print the active workspace key",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), (*svc).Active())
			return nil
		},
	}
}
