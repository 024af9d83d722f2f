// Package tui provides a terminal user interface for beatsmith
package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/soundfold/beatsmith/pkg/beatmap"
	"github.com/soundfold/beatsmith/pkg/editor"
	"github.com/soundfold/beatsmith/pkg/export"
	"github.com/soundfold/beatsmith/pkg/grid"
	"github.com/soundfold/beatsmith/pkg/history"
)

// Neon color scheme
var (
	neonGreen  = lipgloss.Color("#39FF14")
	neonYellow = lipgloss.Color("#FFFF00")
	silverGray = lipgloss.Color("#C0C0C0")
	darkGray   = lipgloss.Color("#333333")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(neonGreen).
			Background(darkGray).
			Padding(0, 2).
			MarginBottom(1)

	menuStyle = lipgloss.NewStyle().
			Foreground(silverGray).
			PaddingLeft(2)

	selectedStyle = lipgloss.NewStyle().
			Foreground(neonGreen).
			Bold(true).
			PaddingLeft(2)

	statusStyle = lipgloss.NewStyle().
			Foreground(neonYellow).
			PaddingTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	laneStyle = lipgloss.NewStyle().
			Foreground(silverGray)

	cursorStyle = lipgloss.NewStyle().
			Foreground(neonYellow).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(neonGreen).
			Padding(1, 2)
)

// State represents the current TUI state
type State int

const (
	StateMenu State = iota
	StateFilePicker
	StateEditor
	StateSaving
)

// MenuItem represents a menu option
type MenuItem struct {
	Title       string
	Description string
}

var menuItems = []MenuItem{
	{Title: "Open beatmap", Description: "Load a beatmap JSON file for editing"},
	{Title: "New beatmap", Description: "Start an empty beatmap at 120 BPM"},
	{Title: "Exit", Description: "Exit the application"},
}

// editorSlots is the number of grid slots visible per lane row.
const editorSlots = 32

// Model represents the TUI model
type Model struct {
	state      State
	menuIndex  int
	filePicker filepicker.Model
	spinner    spinner.Model

	session    *editor.Session
	cursorLane int
	cursorSlot int
	windowSlot int
	status     string
	err        error
	width      int
	height     int
}

// saveDoneMsg signals save completion
type saveDoneMsg struct {
	path string
	err  error
}

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick)
}

// New creates a new TUI model
func New() Model {
	fp := filepicker.New()
	fp.AllowedTypes = []string{".json"}
	fp.CurrentDirectory, _ = os.Getwd()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(neonGreen)

	return Model{
		state:      StateMenu,
		menuIndex:  0,
		filePicker: fp,
		spinner:    s,
	}
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Handle file picker state first - it needs to receive all messages
	if m.state == StateFilePicker {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "esc":
				m.state = StateMenu
				return m, nil
			case "q", "ctrl+c":
				return m, tea.Quit
			}
		}

		var cmd tea.Cmd
		m.filePicker, cmd = m.filePicker.Update(msg)

		if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
			session := editor.NewSession()
			if err := session.Load(path); err != nil {
				m.err = err
				m.state = StateMenu
				return m, nil
			}
			m.session = session
			m.err = nil
			m.state = StateEditor
			m.cursorLane = 0
			m.cursorSlot = 0
			m.windowSlot = 0
			m.status = fmt.Sprintf("Loaded %s (%d markers)", filepath.Base(path), session.Beatmap.Len())
			return m, nil
		}

		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.filePicker.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case StateMenu:
			return m.updateMenu(msg)
		case StateEditor:
			return m.updateEditor(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case saveDoneMsg:
		m.state = StateEditor
		if msg.err != nil {
			m.status = errorStyle.Render("Save failed: " + msg.err.Error())
		} else {
			m.status = "Saved " + filepath.Base(msg.path)
		}
		return m, nil
	}

	return m, nil
}

func (m Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.menuIndex > 0 {
			m.menuIndex--
		}
	case "down", "j":
		if m.menuIndex < len(menuItems)-1 {
			m.menuIndex++
		}
	case "enter":
		switch m.menuIndex {
		case 0:
			m.state = StateFilePicker
			return m, m.filePicker.Init()
		case 1:
			m.session = editor.NewSession()
			m.session.Beatmap.Meta.TotalDuration = 60
			m.err = nil
			m.state = StateEditor
			m.cursorLane = 0
			m.cursorSlot = 0
			m.windowSlot = 0
			m.status = "New beatmap (120 BPM, 60s)"
			return m, nil
		default:
			return m, tea.Quit
		}
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

// editorGrid is the sixteenth-note grid the editor cursor moves over.
func (m Model) editorGrid() []float64 {
	return grid.Generate(m.session.BPM(), m.session.Duration(), grid.SubdivisionSixteenth)
}

func (m Model) cursorTime(g []float64) (float64, bool) {
	idx := m.windowSlot + m.cursorSlot
	if idx < 0 || idx >= len(g) {
		return 0, false
	}
	return g[idx], true
}

func (m Model) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := m.session
	g := m.editorGrid()

	switch msg.String() {
	case "up", "k":
		if m.cursorLane > 0 {
			m.cursorLane--
		}
	case "down", "j":
		if m.cursorLane < len(beatmap.Lanes)-1 {
			m.cursorLane++
		}
	case "left", "h":
		if m.cursorSlot > 0 {
			m.cursorSlot--
		} else if m.windowSlot > 0 {
			m.windowSlot--
		}
	case "right", "l":
		if m.cursorSlot < editorSlots-1 && m.windowSlot+m.cursorSlot < len(g)-1 {
			m.cursorSlot++
		} else if m.windowSlot+editorSlots < len(g) {
			m.windowSlot++
		}
	case " ", "enter":
		t, ok := m.cursorTime(g)
		if !ok {
			break
		}
		lane := beatmap.Lanes[m.cursorLane]
		if n := s.Beatmap.NoteAt(t, 0.001); n != nil && n.Lane == lane {
			s.History.Execute(history.RemoveNote(n))
			m.status = fmt.Sprintf("Removed %s marker at %.3fs", lane, t)
		} else {
			status, err := s.AddNoteAt(t, beatmap.LevelEasy, lane)
			if err != nil {
				m.status = errorStyle.Render(err.Error())
			} else {
				m.status = status
			}
		}
	case "1", "2", "3":
		level := int(msg.String()[0] - '0')
		status, err := s.ChangeSelectionLevel(level)
		if err != nil {
			m.status = errorStyle.Render(err.Error())
		} else {
			m.status = status
		}
	case "a":
		m.status = s.SelectAll()
	case "d":
		m.status = s.DeselectAll()
	case "x":
		m.status = s.DeleteSelection()
	case "g":
		m.status = s.SnapSelection(grid.SubdivisionQuarter)
	case "c":
		m.status = s.CleanupDuplicates()
	case "u":
		m.status = s.Undo()
	case "r":
		m.status = s.Redo()
	case "b":
		status, err := s.InsertBeatMarkers(beatmap.Lanes[m.cursorLane], 1, beatmap.LevelEasy, false)
		if err != nil {
			m.status = errorStyle.Render(err.Error())
		} else {
			m.status = status
		}
	case "p":
		if t, ok := m.cursorTime(g); ok {
			s.SetPlayhead(t)
			m.status = fmt.Sprintf("Playhead at %.3fs", t)
		}
	case "e":
		path := m.exportPath()
		if err := export.NewMIDIExporter().WriteFile(s.Beatmap, path); err != nil {
			m.status = errorStyle.Render("Export failed: " + err.Error())
		} else {
			m.status = "Exported " + filepath.Base(path)
		}
	case "ctrl+s":
		if s.Path == "" {
			s.Path = "beatmap.json"
		}
		m.state = StateSaving
		return m, tea.Batch(m.spinner.Tick, m.performSave())
	case "esc":
		m.state = StateMenu
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) exportPath() string {
	if m.session.Path == "" {
		return "beatmap.mid"
	}
	return strings.TrimSuffix(m.session.Path, filepath.Ext(m.session.Path)) + ".mid"
}

func (m Model) performSave() tea.Cmd {
	session := m.session
	return func() tea.Msg {
		return saveDoneMsg{path: session.Path, err: session.Save()}
	}
}

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder

	s.WriteString(asciiLogo())
	s.WriteString("\n")

	switch m.state {
	case StateMenu:
		s.WriteString(m.viewMenu())
	case StateFilePicker:
		s.WriteString(m.viewFilePicker())
	case StateEditor:
		s.WriteString(m.viewEditor())
	case StateSaving:
		s.WriteString(m.viewSaving())
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render("↑/↓: navigate • enter: select • q: quit"))

	return s.String()
}

func (m Model) viewMenu() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" BEATSMITH "))
	s.WriteString("\n\n")

	for i, item := range menuItems {
		if i == m.menuIndex {
			s.WriteString(selectedStyle.Render(fmt.Sprintf("▸ %s", item.Title)))
			s.WriteString("\n")
			s.WriteString(lipgloss.NewStyle().Foreground(neonYellow).PaddingLeft(4).Render(item.Description))
		} else {
			s.WriteString(menuStyle.Render(fmt.Sprintf("  %s", item.Title)))
		}
		s.WriteString("\n")
	}

	if m.err != nil {
		s.WriteString("\n")
		s.WriteString(errorStyle.Render("✗ " + m.err.Error()))
	}

	return boxStyle.Render(s.String())
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" SELECT BEATMAP FILE "))
	s.WriteString("\n\n")
	s.WriteString(m.filePicker.View())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("esc: back to menu"))

	return s.String()
}

// markerGlyphs renders marker levels 1..3.
var markerGlyphs = map[int]string{
	beatmap.LevelEasy:   "o",
	beatmap.LevelMedium: "●",
	beatmap.LevelHard:   "◆",
}

func (m Model) viewEditor() string {
	var s strings.Builder
	session := m.session
	g := m.editorGrid()

	title := " EDITOR "
	if session.Path != "" {
		title = fmt.Sprintf(" %s ", filepath.Base(session.Path))
	}
	s.WriteString(titleStyle.Render(title))
	s.WriteString("\n")
	s.WriteString(fmt.Sprintf("BPM %.1f • %.1fs • %d markers • playhead %.3fs\n\n",
		session.BPM(), session.Duration(), session.Beatmap.Len(), session.Playhead))

	// One row per lane over the visible grid window.
	for li, lane := range beatmap.Lanes {
		byTime := make(map[float64]*beatmap.Note)
		for _, n := range session.Beatmap.NotesByLane(lane) {
			byTime[beatmap.RoundTime(n.Time)] = n
		}

		var row strings.Builder
		for slot := 0; slot < editorSlots; slot++ {
			idx := m.windowSlot + slot
			cell := "·"
			if idx < len(g) {
				if n, ok := byTime[beatmap.RoundTime(g[idx])]; ok {
					cell = markerGlyphs[n.Level]
					if n.Selected {
						cell = selectedStyle.UnsetPaddingLeft().Render(cell)
					}
				}
			} else {
				cell = " "
			}
			if li == m.cursorLane && slot == m.cursorSlot {
				cell = cursorStyle.Render("[") + cell + cursorStyle.Render("]")
			} else {
				cell = " " + cell + " "
			}
			row.WriteString(cell)
		}

		label := fmt.Sprintf("%-6s", lane)
		if li == m.cursorLane {
			s.WriteString(cursorStyle.Render(label))
		} else {
			s.WriteString(laneStyle.Render(label))
		}
		s.WriteString(row.String())
		s.WriteString("\n")
	}

	if t, ok := m.cursorTime(g); ok {
		s.WriteString(fmt.Sprintf("\ncursor %.3fs (slot %d/%d)\n", t, m.windowSlot+m.cursorSlot+1, len(g)))
	}

	if m.status != "" {
		s.WriteString(statusStyle.Render(m.status))
		s.WriteString("\n")
	}

	s.WriteString(helpStyle.Render(
		"space: toggle • 1-3: level • a/d: select all/none • x: delete • g: snap\n" +
			"c: cleanup • b: beat markers • p: playhead • u/r: undo/redo • e: export MIDI • ctrl+s: save • esc: menu"))

	return boxStyle.Render(s.String())
}

func (m Model) viewSaving() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" SAVING "))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("%s Writing %s...\n", m.spinner.View(), filepath.Base(m.session.Path)))

	return boxStyle.Render(s.String())
}

func asciiLogo() string {
	logo := `
   ____  _____    _  _____ ____  __  __ ___ _____ _   _
  | __ )| ____|  / \|_   _/ ___||  \/  |_ _|_   _| | | |
  |  _ \|  _|   / _ \ | | \___ \| |\/| || |  | | | |_| |
  | |_) | |___ / ___ \| |  ___) | |  | || |  | | |  _  |
  |____/|_____/_/   \_\_| |____/|_|  |_|___| |_| |_| |_|
`
	return lipgloss.NewStyle().Foreground(neonGreen).Render(logo)
}

// Run starts the TUI application
func Run() error {
	p := tea.NewProgram(New(), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
