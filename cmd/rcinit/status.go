package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/openrc-go/rcsvc/internal/svcstate"
)

var statusWatch bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List every known service and its current state",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusWatch, "watch", false, "live-refresh the status table in a full-screen view")
	rootCmd.AddCommand(statusCmd)
}

type serviceStatus struct {
	Name    string `json:"name"`
	State   string `json:"state"`
	Failed  bool   `json:"failed"`
	Crashed bool   `json:"crashed"`
}

func collectStatus() ([]serviceStatus, error) {
	names, err := runtime.Resolver().List()
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	statuses := make([]serviceStatus, 0, len(names))
	for _, name := range names {
		state, err := runtime.State().CurrentState(name)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, serviceStatus{
			Name:    name,
			State:   string(state),
			Failed:  runtime.State().Is(name, svcstate.Failed),
			Crashed: runtime.State().Is(name, svcstate.Crashed),
		})
	}
	return statuses, nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	if statusWatch && term.IsTerminal(int(os.Stdout.Fd())) {
		p := tea.NewProgram(newStatusModel(), tea.WithAltScreen())
		_, err := p.Run()
		return err
	}

	statuses, err := collectStatus()
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(statuses)
	}
	for _, s := range statuses {
		flags := ""
		if s.Failed {
			flags += " [failed]"
		}
		if s.Crashed {
			flags += " [crashed]"
		}
		fmt.Printf("%-24s %s%s\n", s.Name, s.State, flags)
	}
	return nil
}

const statusRefresh = 1 * time.Second

type statusTickMsg time.Time

type statusModel struct {
	rows []serviceStatus
	err  error

	nameStyle    lipgloss.Style
	startedStyle lipgloss.Style
	stoppedStyle lipgloss.Style
	failedStyle  lipgloss.Style
	headerStyle  lipgloss.Style
}

func newStatusModel() statusModel {
	return statusModel{
		nameStyle:    lipgloss.NewStyle().Bold(true),
		startedStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("86")),
		stoppedStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		failedStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		headerStyle:  lipgloss.NewStyle().Bold(true).Underline(true),
	}
}

func (m statusModel) Init() tea.Cmd {
	return tea.Batch(refreshStatusCmd(), tickStatusCmd())
}

func tickStatusCmd() tea.Cmd {
	return tea.Tick(statusRefresh, func(t time.Time) tea.Msg { return statusTickMsg(t) })
}

type statusResultMsg struct {
	rows []serviceStatus
	err  error
}

func refreshStatusCmd() tea.Cmd {
	return func() tea.Msg {
		rows, err := collectStatus()
		return statusResultMsg{rows: rows, err: err}
	}
}

func (m statusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case statusTickMsg:
		return m, tea.Batch(refreshStatusCmd(), tickStatusCmd())
	case statusResultMsg:
		m.rows, m.err = msg.rows, msg.err
	}
	return m, nil
}

func (m statusModel) View() string {
	var b strings.Builder
	b.WriteString(m.headerStyle.Render(fmt.Sprintf("%-24s %s", "SERVICE", "STATE")) + "\n\n")
	if m.err != nil {
		b.WriteString(m.failedStyle.Render(m.err.Error()) + "\n")
	}
	for _, s := range m.rows {
		style := m.stoppedStyle
		switch {
		case s.Failed || s.Crashed:
			style = m.failedStyle
		case s.State == string(svcstate.Started) || s.State == string(svcstate.Starting):
			style = m.startedStyle
		}
		flags := ""
		if s.Failed {
			flags += " [failed]"
		}
		if s.Crashed {
			flags += " [crashed]"
		}
		b.WriteString(style.Render(fmt.Sprintf("%-24s %s%s", m.nameStyle.Render(s.Name), s.State, flags)) + "\n")
	}
	b.WriteString("\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render("q to quit") + "\n")
	return b.String()
}
