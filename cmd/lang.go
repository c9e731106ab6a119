package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-playground/pkg/language"
)

func NewLangCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lang <file-name>...",
		Short: "Show the editor language for file names",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range args {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, language.ExtensionOf(name))
			}
			return nil
		},
	}
}
