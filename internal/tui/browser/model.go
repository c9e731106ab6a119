// Package browser is a read-only terminal browser for the active workspace.
package browser

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mattsolo1/grove-playground/pkg/service"
	"github.com/mattsolo1/grove-playground/pkg/tree"
)

// displayNode represents a single line in the tree view.
type displayNode struct {
	item   tree.Item
	prefix string
	depth  int
}

// Model is the main model for the workspace browser TUI
type Model struct {
	service      *service.Service
	workspace    string
	items        []tree.Item
	displayNodes []displayNode
	collapsed    map[string]bool
	cursor       int
	scrollOffset int

	keys     KeyMap
	help     help.Model
	preview  viewport.Model
	showPrev bool
	previewF string

	width         int
	height        int
	loaded        bool
	statusMessage string
}

func New(svc *service.Service) Model {
	return Model{
		service:   svc,
		collapsed: make(map[string]bool),
		keys:      keys,
		help:      help.New(),
		preview:   viewport.New(0, 0),
		showPrev:  true,
	}
}

func (m Model) Init() tea.Cmd {
	return fetchTreeCmd(m.service)
}

// buildDisplayTree flattens the visible part of the tree, skipping the
// children of collapsed folders.
func (m *Model) buildDisplayTree() {
	m.displayNodes = nil
	m.appendNodes(m.items, 0, "")
	if m.cursor >= len(m.displayNodes) {
		m.cursor = len(m.displayNodes) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) appendNodes(items []tree.Item, depth int, indent string) {
	for i, it := range items {
		last := i == len(items)-1
		branch := "├── "
		next := indent + "│   "
		if last {
			branch = "└── "
			next = indent + "    "
		}
		m.displayNodes = append(m.displayNodes, displayNode{item: it, prefix: indent + branch, depth: depth})
		if it.IsFolder() && !m.collapsed[it.ID] {
			m.appendNodes(it.Items, depth+1, next)
		}
	}
}

func (m Model) selected() (displayNode, bool) {
	if m.cursor < 0 || m.cursor >= len(m.displayNodes) {
		return displayNode{}, false
	}
	return m.displayNodes[m.cursor], true
}

func (m Model) getViewportHeight() int {
	// header, blank, blank, footer
	h := m.height - 4
	if h < 1 {
		return 1
	}
	return h
}

func (m *Model) ensureCursorVisible() {
	h := m.getViewportHeight()
	if m.cursor < m.scrollOffset {
		m.scrollOffset = m.cursor
	}
	if m.cursor >= m.scrollOffset+h {
		m.scrollOffset = m.cursor - h + 1
	}
}

func (m Model) treeWidth() int {
	if !m.showPrev || m.width == 0 {
		return m.width
	}
	return m.width / 2
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", "    ")
}
