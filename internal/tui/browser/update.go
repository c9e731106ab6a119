package browser

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.preview.Width = m.width - m.treeWidth() - 2
		m.preview.Height = m.getViewportHeight()
		m.ensureCursorVisible()
		return m, nil

	case treeLoadedMsg:
		if msg.err != nil {
			m.statusMessage = fmt.Sprintf("Error loading workspace: %v", msg.err)
			return m, nil
		}
		m.loaded = true
		m.workspace = msg.workspace
		m.items = msg.items
		m.buildDisplayTree()
		m.ensureCursorVisible()
		return m, m.previewSelected()

	case fileLoadedMsg:
		if msg.err != nil {
			m.statusMessage = fmt.Sprintf("Error loading file: %v", msg.err)
			return m, nil
		}
		m.previewF = msg.file.ID
		m.preview.SetContent(expandTabs(msg.file.Content))
		m.preview.GotoTop()
		m.statusMessage = fmt.Sprintf("%s · %s · %s", msg.file.Path, msg.file.Language.DisplayName(), msg.file.Status)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.help.ShowAll {
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		m.help.ShowAll = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = true
		return m, nil
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.displayNodes)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.GoToTop):
		m.cursor = 0
	case key.Matches(msg, m.keys.GoToBottom):
		m.cursor = len(m.displayNodes) - 1
	case key.Matches(msg, m.keys.Toggle):
		node, ok := m.selected()
		if !ok {
			return m, nil
		}
		if node.item.IsFolder() {
			m.collapsed[node.item.ID] = !m.collapsed[node.item.ID]
			m.buildDisplayTree()
			m.ensureCursorVisible()
			return m, nil
		}
	case key.Matches(msg, m.keys.Preview):
		m.showPrev = !m.showPrev
		m.preview.Width = m.width - m.treeWidth() - 2
		return m, nil
	case key.Matches(msg, m.keys.Reload):
		m.statusMessage = "Reloading..."
		return m, fetchTreeCmd(m.service)
	default:
		return m, nil
	}

	m.ensureCursorVisible()
	return m, m.previewSelected()
}

// previewSelected loads the file under the cursor unless it is already shown.
func (m Model) previewSelected() tea.Cmd {
	node, ok := m.selected()
	if !ok || !node.item.IsFile() || !m.showPrev || node.item.ID == m.previewF {
		return nil
	}
	return fetchFileCmd(m.service, node.item.ID)
}
