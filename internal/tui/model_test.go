package tui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragconsole/internal/domain"
	"ragconsole/internal/filter"
	"ragconsole/internal/service"
	"ragconsole/internal/telemetry"
)

type fakePort struct {
	mu      sync.Mutex
	snap    service.Snapshot
	authed  bool
	claims  domain.Claims
	calls   []string
	asked   []string
	docs    []domain.Document
	filters []domain.Filters
}

func (p *fakePort) record(op string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, op)
}

func (p *fakePort) Snapshot() service.Snapshot    { return p.snap }
func (p *fakePort) IsAuthenticated() bool         { return p.authed }
func (p *fakePort) Claims() (domain.Claims, bool) { return p.claims, p.claims.Subject != "" }
func (p *fakePort) DismissError()                 { p.record("dismiss"); p.snap.Err = nil; p.snap.Version++ }
func (p *fakePort) Logout()                       { p.record("logout"); p.authed = false }

func (p *fakePort) Login(ctx context.Context, u, pw string) error {
	p.record("login")
	if pw != "admin" {
		return domain.ErrAuth
	}
	p.authed = true
	return nil
}

func (p *fakePort) Upload(ctx context.Context, doc domain.Document) (domain.UploadReceipt, error) {
	p.record("upload")
	p.docs = append(p.docs, doc)
	return domain.UploadReceipt{}, nil
}

func (p *fakePort) Ask(ctx context.Context, q string) (domain.QueryResult, error) {
	p.record("ask")
	p.asked = append(p.asked, q)
	return domain.QueryResult{}, nil
}

func (p *fakePort) RefreshComparison(ctx context.Context, f domain.Filters) error {
	p.record("compare")
	p.filters = append(p.filters, f)
	return nil
}

func (p *fakePort) Bootstrap(ctx context.Context) error {
	p.record("bootstrap")
	return nil
}

func (p *fakePort) count(op string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		if c == op {
			n++
		}
	}
	return n
}

func newModel(t *testing.T, p *fakePort, opts Options) Model {
	t.Helper()
	m := New(p, filter.NewState(), opts)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(Model)
}

func press(t *testing.T, m Model, msgs ...tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(Model)
	}
	return m, cmd
}

func typed(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	tab   = tea.KeyMsg{Type: tea.KeyTab}
)

// run executes cmd and feeds its message back into the model.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	next, _ := m.Update(cmd())
	return next.(Model)
}

func TestLoginScreenUntilAuthenticated(t *testing.T) {
	p := &fakePort{}
	m := newModel(t, p, Options{DarkMode: true})
	assert.Contains(t, m.View(), "Login")

	m, _ = press(t, m, typed("admin"), tab, typed("admin"))
	m, cmd := press(t, m, enter)
	assert.True(t, m.loggingIn)

	// a second enter while signing in is ignored
	_, again := press(t, m, enter)
	assert.Nil(t, again)

	m = run(t, m, cmd)
	assert.False(t, m.loggingIn)
	assert.Equal(t, 1, p.count("login"))
	assert.Empty(t, m.login[loginPass].Value())
	assert.Contains(t, m.View(), "Distributed RAG Platform")
}

func TestLoginFailureStaysOnLoginScreen(t *testing.T) {
	p := &fakePort{}
	m := newModel(t, p, Options{})
	m, _ = press(t, m, typed("admin"), tab, typed("nope"))
	m, cmd := press(t, m, enter)
	p.snap.Err = domain.ErrAuth
	m = run(t, m, cmd)

	view := m.View()
	assert.Contains(t, view, "Login")
	assert.Contains(t, view, "Login failed")
}

func TestAskDispatchesQuestion(t *testing.T) {
	p := &fakePort{authed: true}
	m := newModel(t, p, Options{})
	m, cmd := press(t, m, typed("What is X?"), enter)
	m = run(t, m, cmd)
	assert.Equal(t, []string{"What is X?"}, p.asked)
}

func TestAskIgnoredWhileQuerying(t *testing.T) {
	p := &fakePort{authed: true}
	p.snap.Loading.Querying = true
	m := newModel(t, p, Options{})

	_, cmd := press(t, m, typed("again"), enter)
	assert.Nil(t, cmd)
	assert.Zero(t, p.count("ask"))
	assert.Contains(t, m.View(), "Processing...")
}

func TestUploadConsumesPath(t *testing.T) {
	p := &fakePort{authed: true}
	m := newModel(t, p, Options{})
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyShiftTab}, typed("/tmp/paper.pdf"))
	require.Equal(t, fieldPath, m.focus)

	m, cmd := press(t, m, enter)
	assert.Empty(t, m.inputs[fieldPath].Value())
	m = run(t, m, cmd)
	assert.Equal(t, []domain.Document{{Path: "/tmp/paper.pdf"}}, p.docs)

	p.snap.Loading.Uploading = true
	m.sync()
	_, cmd = press(t, m, typed("/tmp/other.pdf"), enter)
	assert.Nil(t, cmd)
	assert.Equal(t, 1, p.count("upload"))
}

func TestApplyFilter(t *testing.T) {
	p := &fakePort{authed: true}
	fs := filter.NewState()
	m := New(p, fs, Options{})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m = next.(Model)

	m, _ = press(t, m, tab, typed("300"))
	require.Equal(t, fieldChunk, m.focus)
	m, cmd := press(t, m, enter)
	m = run(t, m, cmd)

	require.Len(t, p.filters, 1)
	require.NotNil(t, p.filters[0].ChunkSize)
	assert.Equal(t, 300, *p.filters[0].ChunkSize)
	assert.Nil(t, p.filters[0].TopK)
	assert.Equal(t, p.filters[0], fs.Current())
	assert.Contains(t, m.View(), "chunk_size=300")
}

func TestApplyInvalidFilter(t *testing.T) {
	p := &fakePort{authed: true}
	m := newModel(t, p, Options{})
	m, _ = press(t, m, tab, tab, typed("abc"), enter)
	assert.ErrorIs(t, m.localErr, filter.ErrInvalidFilter)
	assert.Zero(t, p.count("compare"))

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.NoError(t, m.localErr)
}

func TestGroupingToggleRelabelsWithoutFetch(t *testing.T) {
	p := &fakePort{authed: true}
	p.snap.Version = 1
	p.snap.Comparison = []domain.ComparisonRow{
		{ChunkSize: 300, TopK: 3, AvgTotalLatency: 1.0},
		{ChunkSize: 500, TopK: 3, AvgTotalLatency: 1.5},
	}
	m := newModel(t, p, Options{})
	assert.Equal(t, []string{"k=3", "k=3"}, m.comparison.Labels)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlG})
	assert.Equal(t, []string{"chunk=300", "chunk=500"}, m.comparison.Labels)
	assert.Equal(t, []float64{1.0, 1.5}, m.comparison.Values)
	assert.Contains(t, m.View(), "chunk=500")
	assert.Zero(t, p.count("compare"))
	assert.Zero(t, p.count("bootstrap"))
}

func TestStateChangeRederivesSeries(t *testing.T) {
	p := &fakePort{authed: true}
	m := newModel(t, p, Options{})
	assert.Zero(t, m.latency.Len())

	p.snap.Version = 2
	p.snap.Experiments = []domain.Experiment{{ID: 1, TotalLatency: 1.2}, {ID: 2, TotalLatency: 0.8}}
	next, _ := m.Update(StateChangedMsg{})
	m = next.(Model)
	assert.Equal(t, []string{"Exp 1", "Exp 2"}, m.latency.Labels)
	assert.Contains(t, m.View(), "Exp 2")
}

func TestAnswerRendered(t *testing.T) {
	p := &fakePort{authed: true, claims: domain.Claims{Subject: "admin"}}
	p.snap.Version = 1
	p.snap.Result = &domain.QueryResult{Answer: "Forty two.", Passages: []string{"passage one"}}
	m := newModel(t, p, Options{})
	view := m.View()
	assert.Contains(t, view, "Forty two.")
	assert.Contains(t, view, "passage one")
	assert.Contains(t, view, "signed in as admin")
}

func TestThemeToggle(t *testing.T) {
	p := &fakePort{authed: true}
	m := newModel(t, p, Options{DarkMode: true})
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlT})
	assert.False(t, m.dark)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlT})
	assert.True(t, m.dark)
	assert.Equal(t, darkTheme, themeFor(m.dark))
}

func TestLogoutReturnsToLogin(t *testing.T) {
	p := &fakePort{authed: true}
	m := newModel(t, p, Options{})
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlO})
	assert.Equal(t, 1, p.count("logout"))
	assert.Contains(t, m.View(), "Login")
}

func TestErrorShownAndDismissed(t *testing.T) {
	p := &fakePort{authed: true}
	p.snap.Err = domain.ErrUnauthorized
	m := newModel(t, p, Options{})
	assert.Contains(t, m.View(), "Please login first")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.NotContains(t, m.View(), "Please login first")
	assert.Equal(t, 1, p.count("dismiss"))
}

func TestExportWritesCharts(t *testing.T) {
	dir := t.TempDir()
	p := &fakePort{authed: true}
	p.snap.Version = 1
	p.snap.Experiments = []domain.Experiment{{ID: 1, TotalLatency: 1.2}}
	p.snap.Comparison = []domain.ComparisonRow{{ChunkSize: 300, TopK: 3, AvgTotalLatency: 1.2}}
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	m := newModel(t, p, Options{ExportDir: dir, Now: func() time.Time { return now }})

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlE})
	m = run(t, m, cmd)
	assert.NoError(t, m.localErr)
	assert.FileExists(t, filepath.Join(dir, "latency-20240501-090000.png"))
	assert.FileExists(t, filepath.Join(dir, "comparison-20240501-090000.png"))
	assert.Contains(t, m.View(), "Saved")
}

func TestExportKeepsSavedChartOnPartialFailure(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "latency-20240501-090000.png"), 0o755))
	p := &fakePort{authed: true}
	p.snap.Version = 1
	p.snap.Experiments = []domain.Experiment{{ID: 1, TotalLatency: 1.2}}
	p.snap.Comparison = []domain.ComparisonRow{{ChunkSize: 300, TopK: 3, AvgTotalLatency: 1.2}}
	m := newModel(t, p, Options{ExportDir: dir, Now: func() time.Time { return now }})

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlE})
	m = run(t, m, cmd)
	assert.Error(t, m.localErr)
	assert.FileExists(t, filepath.Join(dir, "comparison-20240501-090000.png"))
	assert.Contains(t, m.info, "comparison-20240501-090000.png")
}

func TestExportWithoutData(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	p := &fakePort{authed: true}
	m := newModel(t, p, Options{ExportDir: dir})
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlE})
	m = run(t, m, cmd)
	assert.Error(t, m.localErr)
	_, err := os.Stat(dir)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestRenderBars(t *testing.T) {
	st := themeFor(true).styles()
	assert.Equal(t, "No data yet.", renderBars(telemetry.Series{}, st.latency, "s"))

	out := renderBars(telemetry.Series{Labels: []string{"Exp 1", "Exp 10"}, Values: []float64{2, 1}}, st.latency, "s")
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, maxBarWidth, strings.Count(lines[0], "█"))
	assert.Equal(t, maxBarWidth/2, strings.Count(lines[1], "█"))
	assert.True(t, strings.HasPrefix(lines[0], "Exp 1  "))
	assert.True(t, strings.HasSuffix(lines[1], "1.00s"))
}
