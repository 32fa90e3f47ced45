// Package tui is the interactive bubbletea front end for the todo store.
package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/store"
	"github.com/Makepad-fr/tada/internal/ui"
)

// listItem adapts model.Item to bubbles/list.Item
type listItem struct {
	model.Item
}

func (i listItem) FilterValue() string { return i.Title }

// single-line delegate rendered with the ui package
type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(listItem)
	if !ok {
		return
	}
	prefix := "  "
	if index == m.Index() {
		prefix = ui.Current().Selected.Render(">") + " "
	}
	fmt.Fprint(w, prefix+ui.ItemLine(it.Item))
}

type mode int

const (
	modeBrowse mode = iota
	modeAdd
	modeEdit
	modeSearch
)

type keyMap struct {
	toggle, add, edit, del, search, clear, quit key.Binding
}

var keys = keyMap{
	toggle: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
	add:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
	edit:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
	del:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
	search: key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
	clear:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear done")),
	quit:   key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
}

type modelTUI struct {
	store *store.Store
	list  list.Model
	mode  mode

	// add/edit share the two inputs; focusDesc selects which one types
	title     textinput.Model
	desc      textinput.Model
	focusDesc bool
	editID    string
	inputErr  string

	search textinput.Model
}

func newModel(s *store.Store) modelTUI {
	l := list.New(nil, itemDelegate{}, 0, 0)
	l.SetShowHelp(true)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = lipgloss.NewStyle()
	l.Styles.HelpStyle = ui.Current().Muted
	l.Styles.PaginationStyle = ui.Current().Muted
	l.KeyMap.Quit.SetEnabled(false)
	extra := func() []key.Binding {
		return []key.Binding{keys.toggle, keys.add, keys.edit, keys.del, keys.search, keys.clear}
	}
	l.AdditionalShortHelpKeys = extra
	l.AdditionalFullHelpKeys = extra

	m := modelTUI{store: s, list: l}

	m.title = textinput.New()
	m.title.Prompt = "title > "
	m.title.CharLimit = 200
	m.desc = textinput.New()
	m.desc.Prompt = "desc  > "
	m.desc.CharLimit = 500
	m.search = textinput.New()
	m.search.Prompt = "/ "
	m.search.Placeholder = "search titles..."

	m.refresh()
	return m
}

// Run starts the program on the alternate screen. Every change is written
// through the store as it happens, so there is nothing to save on quit.
func Run(s *store.Store) error {
	_, err := tea.NewProgram(newModel(s), tea.WithAltScreen()).Run()
	return err
}

// refresh rebuilds the list from the store's filtered view.
func (m *modelTUI) refresh() {
	idx := m.list.Index()
	items := m.store.Filtered()
	li := make([]list.Item, 0, len(items))
	for _, it := range items {
		li = append(li, listItem{it})
	}
	m.list.SetItems(li)
	if idx >= len(li) {
		idx = len(li) - 1
	}
	if idx >= 0 {
		m.list.Select(idx)
	}
	m.list.Title = ui.Header(m.store.Stats())
	if f := m.store.SearchFilter(); f != "" {
		m.list.Title += "  " + ui.Current().Muted.Render(fmt.Sprintf("filter: %q (%d shown)", f, len(items)))
	}
}

func (m modelTUI) selected() (model.Item, bool) {
	it, ok := m.list.SelectedItem().(listItem)
	if !ok {
		return model.Item{}, false
	}
	return it.Item, true
}

func (m modelTUI) Init() tea.Cmd { return nil }

func (m modelTUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if ws, ok := msg.(tea.WindowSizeMsg); ok {
		m.list.SetSize(ws.Width-4, ws.Height-6)
		return m, nil
	}

	switch m.mode {
	case modeAdd, modeEdit:
		return m.updateInput(msg)
	case modeSearch:
		return m.updateSearch(msg)
	}

	km, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch {
	case km.String() == "esc" && m.store.SearchFilter() != "":
		m.store.SetSearchFilter("")
		m.refresh()
		return m, nil
	case key.Matches(km, keys.quit):
		return m, tea.Quit
	case key.Matches(km, keys.toggle):
		if it, ok := m.selected(); ok {
			m.store.Toggle(it.ID)
			m.refresh()
		}
		return m, nil
	case key.Matches(km, keys.del):
		if it, ok := m.selected(); ok {
			m.store.Delete(it.ID)
			m.refresh()
		}
		return m, nil
	case key.Matches(km, keys.clear):
		m.store.ClearCompleted()
		m.refresh()
		return m, nil
	case key.Matches(km, keys.add):
		m.mode = modeAdd
		m.editID = ""
		m.title.SetValue("")
		m.desc.SetValue("")
		m.title.Placeholder = "New item title..."
		return m, m.focusInputs(false)
	case key.Matches(km, keys.edit):
		it, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.mode = modeEdit
		m.editID = it.ID
		m.title.SetValue(it.Title)
		m.title.CursorEnd()
		m.desc.SetValue(it.Description)
		m.desc.CursorEnd()
		m.title.Placeholder = "Edit item title..."
		return m, m.focusInputs(false)
	case key.Matches(km, keys.search):
		m.mode = modeSearch
		m.search.SetValue(m.store.SearchFilter())
		m.search.CursorEnd()
		return m, m.search.Focus()
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *modelTUI) focusInputs(desc bool) tea.Cmd {
	m.focusDesc = desc
	if desc {
		m.title.Blur()
		return m.desc.Focus()
	}
	m.desc.Blur()
	return m.title.Focus()
}

func (m *modelTUI) closeInput() {
	m.mode = modeBrowse
	m.inputErr = ""
	m.editID = ""
	m.title.Blur()
	m.desc.Blur()
}

func (m modelTUI) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "tab", "shift+tab":
			return m, m.focusInputs(!m.focusDesc)
		case "esc":
			m.closeInput()
			return m, nil
		case "enter":
			if strings.TrimSpace(m.title.Value()) == "" {
				m.inputErr = "Title cannot be empty"
				return m, nil
			}
			if m.mode == modeAdd {
				m.store.Add(m.title.Value(), m.desc.Value())
				m.closeInput()
				m.refresh()
				if n := len(m.list.Items()); n > 0 {
					m.list.Select(n - 1)
				}
				return m, nil
			}
			// a stale id is ignored by the store
			m.store.Update(m.editID, m.title.Value(), m.desc.Value())
			m.closeInput()
			m.refresh()
			return m, nil
		}
	}
	var cmd tea.Cmd
	if m.focusDesc {
		m.desc, cmd = m.desc.Update(msg)
	} else {
		m.title, cmd = m.title.Update(msg)
	}
	return m, cmd
}

func (m modelTUI) updateSearch(msg tea.Msg) (tea.Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "enter":
			m.mode = modeBrowse
			m.search.Blur()
			return m, nil
		case "esc":
			m.mode = modeBrowse
			m.search.Blur()
			m.search.SetValue("")
			m.store.SetSearchFilter("")
			m.refresh()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() != m.store.SearchFilter() {
		m.store.SetSearchFilter(m.search.Value())
		m.refresh()
	}
	return m, cmd
}

func (m modelTUI) View() string {
	content := m.list.View()
	switch m.mode {
	case modeAdd, modeEdit:
		heading := "Add new item"
		if m.mode == modeEdit {
			heading = "Edit item"
		}
		if m.inputErr != "" {
			heading += " · " + ui.Current().Error.Render(m.inputErr)
		}
		hint := ui.Current().Muted.Render("tab switch field · enter save · esc cancel")
		content += "\n" + ui.Panel([]string{heading, m.title.View(), m.desc.View(), hint})
	case modeSearch:
		content += "\n" + ui.Panel([]string{m.search.View()})
	}
	return ui.Panel([]string{content})
}
