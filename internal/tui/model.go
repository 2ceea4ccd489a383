package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"ragconsole/internal/chart"
	"ragconsole/internal/domain"
	"ragconsole/internal/filter"
	"ragconsole/internal/service"
	"ragconsole/internal/telemetry"
)

// Port is the TUI-facing subset of the orchestrator.
type Port interface {
	Snapshot() service.Snapshot
	IsAuthenticated() bool
	Claims() (domain.Claims, bool)
	Login(ctx context.Context, username, password string) error
	Logout()
	Upload(ctx context.Context, doc domain.Document) (domain.UploadReceipt, error)
	Ask(ctx context.Context, question string) (domain.QueryResult, error)
	RefreshComparison(ctx context.Context, f domain.Filters) error
	Bootstrap(ctx context.Context) error
	DismissError()
}

// StateChangedMsg tells the model the orchestrator state moved on.
type StateChangedMsg struct{}

type (
	loginDoneMsg   struct{ err error }
	uploadDoneMsg  struct{ err error }
	askDoneMsg     struct{ err error }
	refreshDoneMsg struct{ err error }
	exportDoneMsg  struct {
		paths []string
		err   error
	}
)

const (
	fieldPath = iota
	fieldQuestion
	fieldChunk
	fieldTopK
	fieldCount
)

const (
	loginUser = iota
	loginPass
)

// Options configures a new Model.
type Options struct {
	DarkMode  bool
	ExportDir string
	Context   context.Context
	Now       func() time.Time
}

// Model is the Bubble Tea model for the client. It reads state from the
// orchestrator and re-derives chart series when that state or the grouping mode changes.
type Model struct {
	port    Port
	filters *filter.State
	opts    Options

	login      [2]textinput.Model
	loginFocus int
	loggingIn  bool

	inputs   [fieldCount]textinput.Model
	focus    int
	viewport viewport.Model
	spinner  spinner.Model
	help     help.Model

	snap       service.Snapshot
	mode       domain.GroupingMode
	latency    telemetry.Series
	comparison telemetry.Series
	derived    bool
	derivedAt  uint64
	derivedFor domain.GroupingMode

	dark     bool
	localErr error
	info     string
	width    int
	ready    bool
}

// New creates a new TUI model instance.
func New(port Port, filters *filter.State, opts Options) Model {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ExportDir == "" {
		opts.ExportDir = "charts"
	}

	m := Model{
		port:     port,
		filters:  filters,
		opts:     opts,
		dark:     opts.DarkMode,
		viewport: viewport.New(0, 0),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:     help.New(),
	}

	m.login[loginUser] = newInput("Username", "> ")
	m.login[loginPass] = newInput("Password", "> ")
	m.login[loginPass].EchoMode = textinput.EchoPassword
	m.login[loginPass].EchoCharacter = '•'
	m.login[loginUser].Focus()

	m.inputs[fieldPath] = newInput("Path to PDF, enter to upload", "file> ")
	m.inputs[fieldQuestion] = newInput("Type a question and press Enter", "ask> ")
	m.inputs[fieldChunk] = newInput("any", "chunk size> ")
	m.inputs[fieldTopK] = newInput("any", "top k> ")
	m.inputs[fieldChunk].CharLimit = 6
	m.inputs[fieldTopK].CharLimit = 4
	m.focus = fieldQuestion
	m.inputs[fieldQuestion].Focus()

	m.sync()
	return m
}

func newInput(placeholder, prompt string) textinput.Model {
	ti := textinput.New()
	ti.Prompt = prompt
	ti.Placeholder = placeholder
	ti.CharLimit = 0
	return ti
}

// Init starts the cursor blink and the spinner, and loads both metrics views.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.bootstrapCmd())
}

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.help.Width = msg.Width
		m.viewport.Width = max(20, msg.Width-6)
		m.viewport.Height = max(3, msg.Height/4)
		m.viewport.SetContent(m.renderAnswer())
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case StateChangedMsg:
		m.sync()
		return m, nil
	case loginDoneMsg:
		m.loggingIn = false
		if msg.err == nil {
			m.login[loginPass].Reset()
		}
		m.sync()
		return m, nil
	case uploadDoneMsg, askDoneMsg, refreshDoneMsg:
		m.sync()
		return m, nil
	case exportDoneMsg:
		m.localErr = msg.err
		if len(msg.paths) > 0 {
			m.info = "Saved " + strings.Join(msg.paths, ", ")
		}
		return m, nil
	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			return m, tea.Quit
		}
		if !m.port.IsAuthenticated() {
			return m.updateLogin(msg)
		}
		return m.updateMain(msg)
	}
	return m, nil
}

func (m Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Next), key.Matches(msg, keys.Prev):
		m.login[m.loginFocus].Blur()
		m.loginFocus = (m.loginFocus + 1) % len(m.login)
		return m, m.login[m.loginFocus].Focus()
	case key.Matches(msg, keys.Submit):
		if m.loggingIn {
			return m, nil
		}
		user := strings.TrimSpace(m.login[loginUser].Value())
		pass := m.login[loginPass].Value()
		m.loggingIn = true
		m.localErr = nil
		return m, m.loginCmd(user, pass)
	case key.Matches(msg, keys.Dismiss):
		m.dismiss()
		return m, nil
	case key.Matches(msg, keys.Theme):
		m.toggleTheme()
		return m, nil
	}
	var cmd tea.Cmd
	m.login[m.loginFocus], cmd = m.login[m.loginFocus].Update(msg)
	return m, cmd
}

func (m Model) updateMain(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Next):
		return m, m.focusField((m.focus + 1) % fieldCount)
	case key.Matches(msg, keys.Prev):
		return m, m.focusField((m.focus + fieldCount - 1) % fieldCount)
	case key.Matches(msg, keys.Submit):
		return m.submit()
	case key.Matches(msg, keys.Grouping):
		m.mode = m.mode.Toggle()
		m.derive()
		return m, nil
	case key.Matches(msg, keys.Theme):
		m.toggleTheme()
		return m, nil
	case key.Matches(msg, keys.Refresh):
		return m, m.bootstrapCmd()
	case key.Matches(msg, keys.Export):
		return m, m.exportCmd()
	case key.Matches(msg, keys.Logout):
		m.port.Logout()
		m.loginFocus = loginUser
		m.login[loginPass].Blur()
		m.sync()
		return m, m.login[loginUser].Focus()
	case key.Matches(msg, keys.Dismiss):
		m.dismiss()
		return m, nil
	}
	switch msg.String() {
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

// submit runs the action bound to the focused field.
// A trigger whose workflow is already in flight is ignored.
func (m Model) submit() (tea.Model, tea.Cmd) {
	switch m.focus {
	case fieldPath:
		path := strings.TrimSpace(m.inputs[fieldPath].Value())
		if m.snap.Loading.Uploading || path == "" {
			return m, nil
		}
		m.inputs[fieldPath].Reset()
		return m, m.uploadCmd(domain.Document{Path: path})
	case fieldQuestion:
		if m.snap.Loading.Querying {
			return m, nil
		}
		return m, m.askCmd(m.inputs[fieldQuestion].Value())
	default:
		f, err := filter.Parse(m.inputs[fieldChunk].Value(), m.inputs[fieldTopK].Value())
		if err != nil {
			m.localErr = err
			return m, nil
		}
		m.localErr = nil
		m.filters.Set(f)
		return m, m.refreshCmd(f)
	}
}

func (m *Model) focusField(i int) tea.Cmd {
	m.inputs[m.focus].Blur()
	m.focus = i
	return m.inputs[i].Focus()
}

func (m *Model) toggleTheme() {
	m.dark = !m.dark
	m.viewport.SetContent(m.renderAnswer())
}

func (m *Model) dismiss() {
	m.localErr = nil
	m.info = ""
	m.port.DismissError()
	m.sync()
}

// sync reads the latest snapshot and re-derives series if anything changed.
func (m *Model) sync() {
	m.snap = m.port.Snapshot()
	if !m.derived || m.derivedAt != m.snap.Version || m.derivedFor != m.mode {
		m.derive()
	}
}

func (m *Model) derive() {
	m.latency = telemetry.LatencySeries(m.snap.Experiments)
	m.comparison = telemetry.ComparisonSeries(m.snap.Comparison, m.mode)
	m.derived = true
	m.derivedAt = m.snap.Version
	m.derivedFor = m.mode
	m.viewport.SetContent(m.renderAnswer())
}

func (m Model) loginCmd(user, pass string) tea.Cmd {
	port, ctx := m.port, m.opts.Context
	return func() tea.Msg {
		return loginDoneMsg{err: port.Login(ctx, user, pass)}
	}
}

func (m Model) uploadCmd(doc domain.Document) tea.Cmd {
	port, ctx := m.port, m.opts.Context
	return func() tea.Msg {
		_, err := port.Upload(ctx, doc)
		return uploadDoneMsg{err: err}
	}
}

func (m Model) askCmd(question string) tea.Cmd {
	port, ctx := m.port, m.opts.Context
	return func() tea.Msg {
		_, err := port.Ask(ctx, question)
		return askDoneMsg{err: err}
	}
}

func (m Model) refreshCmd(f domain.Filters) tea.Cmd {
	port, ctx := m.port, m.opts.Context
	return func() tea.Msg {
		return refreshDoneMsg{err: port.RefreshComparison(ctx, f)}
	}
}

func (m Model) bootstrapCmd() tea.Cmd {
	port, ctx := m.port, m.opts.Context
	return func() tea.Msg {
		return refreshDoneMsg{err: port.Bootstrap(ctx)}
	}
}

func (m Model) exportCmd() tea.Cmd {
	latency, comparison := m.latency, m.comparison
	dir, now := m.opts.ExportDir, m.opts.Now()
	return func() tea.Msg {
		paths, err := chart.Export(dir, latency, comparison, now)
		return exportDoneMsg{paths: paths, err: err}
	}
}
