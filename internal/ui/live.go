package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// liveModel is the Bubble Tea model for a periodically refreshed view.
type liveModel struct {
	title      string
	body       string
	lastUpdate time.Time
	interval   time.Duration
	quitting   bool
	loading    bool
	fetcher    func() (string, error)
	err        string
}

type tickMsg time.Time
type bodyFetchedMsg string
type fetchErrorMsg string

// NewLiveView creates a Bubble Tea program that re-renders the output of
// fetcher every interval. r refreshes immediately, q quits.
func NewLiveView(title string, interval time.Duration, fetcher func() (string, error)) *tea.Program {
	return tea.NewProgram(newLiveModel(title, interval, fetcher))
}

func newLiveModel(title string, interval time.Duration, fetcher func() (string, error)) liveModel {
	return liveModel{
		title:    title,
		interval: interval,
		fetcher:  fetcher,
		loading:  true,
	}
}

func (m liveModel) Init() tea.Cmd {
	return tea.Batch(m.fetchCmd(), tick(m.interval))
}

func (m liveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "r":
			if m.loading {
				return m, nil
			}
			m.loading = true
			return m, m.fetchCmd()
		}

	case tickMsg:
		if m.loading {
			return m, tick(m.interval)
		}
		m.loading = true
		return m, tea.Batch(m.fetchCmd(), tick(m.interval))

	case bodyFetchedMsg:
		m.body = string(msg)
		m.lastUpdate = time.Now()
		m.loading = false
		m.err = ""

	case fetchErrorMsg:
		m.loading = false
		m.err = string(msg)
	}

	return m, nil
}

func (m liveModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(StyleTitle.Render(m.title) + "\n")
	updated := "never"
	if !m.lastUpdate.IsZero() {
		updated = m.lastUpdate.Format("15:04:05")
	}
	sb.WriteString(StyleMeta.Render(fmt.Sprintf("Updated: %s · every %s · r refresh · q quit", updated, m.interval)) + "\n\n")

	if m.err != "" {
		sb.WriteString(Err(trimErr(m.err)) + "\n")
	}

	if m.body == "" {
		sb.WriteString(StyleMeta.Render("Loading...") + "\n")
	} else {
		sb.WriteString(m.body)
	}

	return sb.String()
}

func (m liveModel) fetchCmd() tea.Cmd {
	return func() tea.Msg {
		body, err := m.fetcher()
		if err != nil {
			return fetchErrorMsg(err.Error())
		}
		return bodyFetchedMsg(body)
	}
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// trimErr shortens noisy transport errors for a one-line display.
func trimErr(s string) string {
	for _, prefix := range []string{
		"dial tcp", "connection refused", "context deadline", "Get \"", "Post \"",
	} {
		if idx := strings.Index(s, prefix); idx >= 0 {
			s = s[idx:]
			break
		}
	}
	if len(s) > 60 {
		return s[:60] + "…"
	}
	return s
}
