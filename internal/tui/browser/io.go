package browser

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mattsolo1/grove-playground/pkg/service"
	"github.com/mattsolo1/grove-playground/pkg/tree"
)

type treeLoadedMsg struct {
	workspace string
	items     []tree.Item
	err       error
}

type fileLoadedMsg struct {
	file *service.File
	err  error
}

func fetchTreeCmd(svc *service.Service) tea.Cmd {
	return func() tea.Msg {
		key, doc, err := svc.Document(context.Background())
		if err != nil {
			return treeLoadedMsg{err: err}
		}
		return treeLoadedMsg{workspace: key, items: doc.Items}
	}
}

// fetchFileCmd reads through the service so buffered edits win over the
// stored content.
func fetchFileCmd(svc *service.Service, fileID string) tea.Cmd {
	return func() tea.Msg {
		f, err := svc.GetFile(context.Background(), fileID)
		return fileLoadedMsg{file: f, err: err}
	}
}
