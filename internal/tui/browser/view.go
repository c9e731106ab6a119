package browser

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mattsolo1/grove-playground/pkg/language"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	cursorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	folderStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	previewBorder  = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderLeft(true).PaddingLeft(1)
	statusBarStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
)

func (m Model) View() string {
	if !m.loaded {
		if m.statusMessage != "" {
			return m.statusMessage
		}
		return "Loading..."
	}

	if m.help.ShowAll {
		return m.help.View(m.keys)
	}

	header := headerStyle.Render(fmt.Sprintf("Workspace: %s", m.workspace))

	content := m.renderTreeView()
	if m.showPrev {
		treeCol := lipgloss.NewStyle().Width(m.treeWidth()).Render(content)
		content = lipgloss.JoinHorizontal(lipgloss.Top, treeCol, previewBorder.Render(m.preview.View()))
	}

	footer := m.help.View(m.keys)
	if m.statusMessage != "" {
		footer = statusBarStyle.Render(m.statusMessage) + "  " + footer
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		content,
		"",
		footer,
	)
}

func (m Model) renderTreeView() string {
	if len(m.displayNodes) == 0 {
		return mutedStyle.Render("(empty workspace)")
	}

	var b strings.Builder
	start := m.scrollOffset
	end := m.scrollOffset + m.getViewportHeight()
	if end > len(m.displayNodes) {
		end = len(m.displayNodes)
	}

	for i := start; i < end; i++ {
		node := m.displayNodes[i]
		cursor := "  "
		if i == m.cursor {
			cursor = cursorStyle.Render("▶ ")
		}

		var name string
		if node.item.IsFolder() {
			fold := "▾"
			if m.collapsed[node.item.ID] {
				fold = "▸"
			}
			name = folderStyle.Render(fmt.Sprintf("%s %s/", fold, node.item.Name))
		} else {
			lang := language.ExtensionOf(node.item.Name)
			name = node.item.Name + " " + mutedStyle.Render(string(lang))
		}

		b.WriteString(cursor + mutedStyle.Render(node.prefix) + name)
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
