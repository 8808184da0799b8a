package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/ytmproxy/internal/formatter"
	"github.com/desertthunder/ytmproxy/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	WarmView ViewState = iota
	ResultView
)

// recentLines is how many progress messages stay on screen during a run.
const recentLines = 8

// RunFunc performs a warm run, reporting through progress. It must not close progress.
type RunFunc func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.WarmResult, error)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	cancel       context.CancelFunc
	title        string
	view         ViewState
	run          RunFunc
	progressChan chan tasks.ProgressUpdate
	doneChan     chan Msg
	started      bool
	progress     tasks.ProgressUpdate
	recent       []string
	result       *tasks.WarmResult
	err          error
	width        int
	height       int
	spinner      spinner.Model
	results      list.Model
	help         help.Model
	keys         keyMap
	palette      *formatter.Palette
}

// NewModel creates a TUI model that performs run when started. Quitting cancels the run.
func NewModel(ctx context.Context, title string, run RunFunc) *Model {
	ctx, cancel := context.WithCancel(ctx)
	return &Model{
		ctx:     ctx,
		cancel:  cancel,
		title:   title,
		view:    WarmView,
		run:     run,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:    help.New(),
		keys:    newKeyMap(),
		palette: formatter.DefaultPalette,
	}
}

// Result returns the outcome of the run once it has completed.
func (m *Model) Result() (*tasks.WarmResult, error) {
	return m.result, m.err
}

// Init starts the run and the spinner.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startWarm())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.view == ResultView {
			m.results.SetSize(max(msg.Width-4, 0), max(msg.Height-8, 0))
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			m.cancel()
			return m, tea.Quit
		}
		if m.view == ResultView {
			var cmd tea.Cmd
			m.results, cmd = m.results.Update(msg)
			return m, cmd
		}
		return m, nil

	case spinner.TickMsg:
		if m.view != WarmView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		switch msg.kind {
		case MsgProgressUpdate:
			update := msg.data.(tasks.ProgressUpdate)
			m.started = true
			m.progress = update
			m.recent = append(m.recent, update.Message)
			if len(m.recent) > recentLines {
				m.recent = m.recent[len(m.recent)-recentLines:]
			}
			return m, waitForProgress(m.progressChan, m.doneChan)

		case MsgWarmComplete:
			outcome := msg.data.(warmOutcome)
			m.result, m.err = outcome.result, outcome.err
			m.view = ResultView
			m.results = list.New(resultItems(m.result), list.NewDefaultDelegate(), max(m.width-4, 0), max(m.height-8, 0))
			m.results.Title = "Outcomes"
			m.results.SetFilteringEnabled(false)
			return m, nil
		}
	}

	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case ResultView:
		return m.renderResult()
	default:
		return m.renderWarm()
	}
}

func (m *Model) startWarm() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	m.doneChan = make(chan Msg, 1)

	progress, done := m.progressChan, m.doneChan
	go func() {
		result, err := m.run(m.ctx, progress)
		close(progress)
		done <- warmCompleteMsg(result, err)
	}()

	return waitForProgress(progress, done)
}

// waitForProgress yields the next progress update, then the completion message once progress is closed.
func waitForProgress(progress <-chan tasks.ProgressUpdate, done <-chan Msg) tea.Cmd {
	return func() tea.Msg {
		if update, ok := <-progress; ok {
			return progressUpdateMsg(update)
		}
		return <-done
	}
}

func (m *Model) phase() string {
	if !m.started {
		return "Starting..."
	}
	switch m.progress.Phase {
	case tasks.FetchPlaylist:
		return "Fetching playlist..."
	case tasks.ResolveStreams:
		return fmt.Sprintf("Resolving streams (%d/%d)", m.progress.Step, m.progress.Total)
	default:
		return "Processing..."
	}
}

func (m *Model) renderWarm() string {
	title := m.palette.Title(m.title)
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.quit})
	return fmt.Sprintf("%s\n\n%s %s\n\n%s\n\n%s", title, m.spinner.View(), m.phase(), strings.Join(m.recent, "\n"), helpView)
}

func (m *Model) renderResult() string {
	helpKeys := []key.Binding{m.keys.up, m.keys.down, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	if m.result == nil {
		msg := "Warm failed"
		if m.err != nil {
			msg = fmt.Sprintf("Warm failed: %v", m.err)
		}
		return fmt.Sprintf("%s\n\n%s", m.palette.Err(msg), helpView)
	}

	title := m.palette.OK("✓ Warm complete")
	if m.result.Failed > 0 {
		title = m.palette.Warn(fmt.Sprintf("Warm complete with %d failures", m.result.Failed))
	}
	summary := fmt.Sprintf("%s %d  %s %d", m.palette.OK("resolved"), m.result.Succeeded, m.palette.Err("failed"), m.result.Failed)
	if m.err != nil {
		summary += "\n" + m.palette.Err(fmt.Sprintf("stopped early: %v", m.err))
	}

	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s", title, summary, m.results.View(), helpView)
}
