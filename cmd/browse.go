package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-playground/internal/tui/browser"
	"github.com/mattsolo1/grove-playground/pkg/service"
)

func NewBrowseCmd(svc **service.Service) *cobra.Command {
	return &cobra.Command{
		Use:     "browse",
		Aliases: []string{"tui"},
		Short:   "Browse the active workspace in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := tea.NewProgram(browser.New(*svc), tea.WithAltScreen())
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("error running browser: %w", err)
			}
			return nil
		},
	}
}
