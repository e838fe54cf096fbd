package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/DavidWHallberg/iotlab-topologies/pkg/selection"
)

var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorGreen)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// RecordListModel picks one ranked topology to draw. Selected stays nil
// when the user quits without choosing.
type RecordListModel struct {
	Records  []selection.Record
	Cursor   int
	Offset   int
	Height   int
	Selected *selection.Record
}

func NewRecordListModel(records []selection.Record) RecordListModel {
	return RecordListModel{Records: records, Height: 15}
}

func (m RecordListModel) Init() tea.Cmd { return nil }

func (m RecordListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-8, 5)
		m.scrollTo(m.Cursor)
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "enter":
			if len(m.Records) > 0 {
				rec := m.Records[m.Cursor]
				m.Selected = &rec
			}
			return m, tea.Quit
		case "up", "k":
			m.scrollTo(m.Cursor - 1)
		case "down", "j":
			m.scrollTo(m.Cursor + 1)
		case "pgup":
			m.scrollTo(m.Cursor - m.Height)
		case "pgdown":
			m.scrollTo(m.Cursor + m.Height)
		case "home", "g":
			m.scrollTo(0)
		case "end", "G":
			m.scrollTo(len(m.Records) - 1)
		}
	}
	return m, nil
}

// scrollTo moves the cursor to i, clamped to the list, and keeps it inside
// the visible window.
func (m *RecordListModel) scrollTo(i int) {
	m.Cursor = max(0, min(i, len(m.Records)-1))
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
}

func (m RecordListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Topology"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ draw  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Records))
	rows := make([][]string, 0, end-m.Offset)
	for i := m.Offset; i < end; i++ {
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, append([]string{cursor}, rankRow(i, m.Records[i])...))
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(listDimStyle).
		Headers(append([]string{""}, rankHeaders...)...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			if m.Offset+row == m.Cursor {
				return listSelectedStyle
			}
			return lipgloss.NewStyle()
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Records))))

	return b.String()
}

// pickRecord lets the user choose one record. ok is false when the picker
// was closed without a choice.
func pickRecord(ctx context.Context, records []selection.Record) (rec selection.Record, ok bool, err error) {
	final, err := tea.NewProgram(NewRecordListModel(records), tea.WithContext(ctx), tea.WithOutput(os.Stderr)).Run()
	if err != nil {
		return selection.Record{}, false, fmt.Errorf("picker: %w", err)
	}
	m, _ := final.(RecordListModel)
	if m.Selected == nil {
		return selection.Record{}, false, nil
	}
	return *m.Selected, true, nil
}
