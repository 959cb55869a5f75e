// Package ui implements the interactive terminal view of a scanning run.
// It renders a live header with the current phase, a progress bar over the
// discovered candidates, a short tail of recently classified files, and a
// summary footer.
package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/stackvity/astro-tally/internal/cli/hooks"
	"github.com/stackvity/astro-tally/pkg/scanner"
)

// recentLines bounds how many classified files the activity tail shows.
const recentLines = 8

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)
	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)
	matchedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cachedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	rejectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	failedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	doneStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
)

type recentItem struct {
	path     string
	status   scanner.Status
	message  string
	duration time.Duration
}

// Summary holds the counters displayed in the footer.
type Summary struct {
	Candidates int
	Matched    int
	Cached     int
	Rejected   int
	Failed     int
	StartTime  time.Time
}

// Model is the Bubble Tea model for a scanning run. All mutation happens on
// the Bubble Tea event loop; hook events arrive as messages via
// Program.Send, so no additional locking is needed.
type Model struct {
	spinner  spinner.Model
	progress progress.Model

	width       int
	height      int
	initialized bool

	phaseMessage string
	completed    int
	total        int
	recent       []recentItem
	summary      Summary

	report   *scanner.Report
	quitting bool
}

// NewModel creates the initial model.
func NewModel() *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	p := progress.New(
		progress.WithDefaultGradient(),
		progress.WithoutPercentage(),
	)

	return &Model{
		spinner:      s,
		progress:     p,
		phaseMessage: "Reading session log...",
		summary:      Summary{StartTime: time.Now()},
		recent:       make([]recentItem, 0, recentLines),
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = m.width - 6
		if m.progress.Width > 60 {
			m.progress.Width = 60
		}
		m.initialized = true
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		m.progress = pm.(progress.Model)
		return m, cmd

	case hooks.CandidateDiscoveredMsg:
		m.summary.Candidates++
		m.total = m.summary.Candidates
		m.phaseMessage = "Discovering candidates..."
		return m, nil

	case hooks.FileStatusUpdateMsg:
		return m.applyStatus(msg), nil

	case hooks.ProgressMsg:
		m.completed = msg.Completed
		m.total = msg.Total
		m.phaseMessage = "Classifying headers..."
		if m.total > 0 {
			return m, m.progress.SetPercent(float64(m.completed) / float64(m.total))
		}
		return m, nil

	case hooks.RunCompleteMsg:
		report := msg.Report
		m.report = &report
		m.phaseMessage = "Done"
		return m, m.progress.SetPercent(1)
	}

	return m, nil
}

func (m *Model) applyStatus(msg hooks.FileStatusUpdateMsg) *Model {
	switch msg.Status {
	case scanner.StatusProcessing, scanner.StatusPending:
		return m
	case scanner.StatusMatched:
		m.summary.Matched++
	case scanner.StatusCached:
		m.summary.Matched++
		m.summary.Cached++
	case scanner.StatusRejected:
		m.summary.Rejected++
	case scanner.StatusFailed:
		m.summary.Failed++
	}

	item := recentItem{
		path:     msg.Path,
		status:   msg.Status,
		message:  msg.Message,
		duration: msg.Duration,
	}
	m.recent = append(m.recent, item)
	if len(m.recent) > recentLines {
		m.recent = m.recent[len(m.recent)-recentLines:]
	}
	return m
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.initialized {
		return m.spinner.View() + " Starting..."
	}

	header := headerStyle.Width(max(m.width, 0)).Render(
		fmt.Sprintf("astro-tally  %s %s", m.spinner.View(), m.phaseMessage))

	var bar string
	if m.total > 0 {
		bar = fmt.Sprintf("  %s %d/%d", m.progress.View(), m.completed, m.total)
	} else {
		bar = "  waiting for candidates..."
	}

	var tail strings.Builder
	for _, item := range m.recent {
		tail.WriteString("  ")
		tail.WriteString(renderStatus(item.status))
		tail.WriteString(" ")
		tail.WriteString(filepath.Base(item.path))
		if item.message != "" {
			tail.WriteString("  " + rejectedStyle.Render(item.message))
		}
		tail.WriteString("\n")
	}

	elapsed := time.Since(m.summary.StartTime).Round(time.Millisecond)
	footer := footerStyle.Render(fmt.Sprintf(
		"Light: %d (cached %d) | Rejected: %d | Failed: %d | Candidates: %d | %s | q: quit",
		m.summary.Matched, m.summary.Cached, m.summary.Rejected, m.summary.Failed,
		m.summary.Candidates, elapsed))

	sections := []string{header, "", bar, "", strings.TrimRight(tail.String(), "\n"), "", footer}

	if m.report != nil {
		done := doneStyle.Render(fmt.Sprintf(
			"Tallied %d light frames into %d rows.",
			m.report.Summary.LightFrameCount, len(m.report.Rows)))
		sections = append(sections, done)
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// Report returns the final report once RunCompleteMsg arrived, else nil.
func (m *Model) Report() *scanner.Report { return m.report }

func renderStatus(status scanner.Status) string {
	switch status {
	case scanner.StatusMatched:
		return matchedStyle.Render("LIGHT ")
	case scanner.StatusCached:
		return cachedStyle.Render("CACHED")
	case scanner.StatusRejected:
		return rejectedStyle.Render("SKIP  ")
	case scanner.StatusFailed:
		return failedStyle.Render("FAIL  ")
	default:
		return string(status)
	}
}
