package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"ragconsole/internal/domain"
	"ragconsole/internal/telemetry"
)

const maxBarWidth = 40

// View renders the login card or the main dashboard.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	st := themeFor(m.dark).styles()
	var body string
	if !m.port.IsAuthenticated() {
		body = m.viewLogin(st)
	} else {
		body = m.viewMain(st)
	}
	return st.app.Width(m.width).Render(body)
}

func (m Model) viewLogin(st styles) string {
	var b strings.Builder
	b.WriteString(st.title.Render("Login") + "\n\n")
	b.WriteString(m.login[loginUser].View() + "\n")
	b.WriteString(m.login[loginPass].View() + "\n")
	if m.loggingIn {
		b.WriteString("\n" + m.spinner.View() + " Signing in...")
	}
	card := st.card.Width(min(48, max(20, m.width-4))).Render(b.String())
	return card + "\n" + m.statusLine(st)
}

func (m Model) viewMain(st styles) string {
	cardWidth := max(20, m.width-4)
	card := st.card.Width(cardWidth)

	header := st.title.Render("Distributed RAG Platform")
	if c, ok := m.port.Claims(); ok && c.Subject != "" {
		who := "signed in as " + c.Subject
		if !c.ExpiresAt.IsZero() {
			who += ", expires " + c.ExpiresAt.Local().Format("15:04")
		}
		header += "  " + st.muted.Render(who)
	}

	upload := st.title.Render("Upload PDF") + "\n" + m.inputs[fieldPath].View()
	if m.snap.Loading.Uploading {
		upload += "\n" + m.spinner.View() + " Uploading..."
	} else if r := m.snap.LastUpload; r != nil {
		upload += "\n" + st.muted.Render(fmt.Sprintf("%d chunks, %d vectors in %.2fs", r.ChunksCreated, r.TotalVectors, r.ProcessingLatency))
	}

	ask := st.title.Render("Ask Question") + "\n" + m.inputs[fieldQuestion].View()
	if m.snap.Loading.Querying {
		ask += "\n" + m.spinner.View() + " Processing..."
	}
	if m.snap.Result != nil {
		ask += "\n" + m.viewport.View()
	}

	filters := st.title.Render("Filter Experiments") + "\n" +
		lipgloss.JoinHorizontal(lipgloss.Top, m.inputs[fieldChunk].View(), "   ", m.inputs[fieldTopK].View()) +
		"\n" + st.muted.Render("active: "+describeFilters(m.filters.Current()))

	latency := st.title.Render("Latency Over Experiments") + "\n" +
		renderBars(m.latency, st.latency, "s")
	comparison := st.title.Render(fmt.Sprintf("Experiment Comparison (by %s)", m.mode)) + "\n" +
		renderBars(m.comparison, st.compare, "s")

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		card.Render(upload),
		card.Render(ask),
		card.Render(filters),
		card.Render(latency),
		card.Render(comparison),
		m.statusLine(st),
		m.help.View(keys),
	)
}

func (m Model) statusLine(st styles) string {
	switch {
	case m.localErr != nil:
		return st.err.Render("Error: " + m.localErr.Error())
	case m.snap.Err != nil:
		return st.err.Render("Error: " + capitalize(m.snap.Err.Error()))
	case m.info != "":
		return st.notice.Render(m.info)
	case m.snap.Notice != "":
		return st.notice.Render(m.snap.Notice)
	}
	return st.muted.Render("Ready.")
}

func (m Model) renderAnswer() string {
	r := m.snap.Result
	if r == nil {
		return "No answer yet."
	}
	st := themeFor(m.dark).styles()
	width := max(10, m.viewport.Width-2)
	var b strings.Builder
	b.WriteString(st.title.Render("Answer") + "\n")
	b.WriteString(lipgloss.NewStyle().Width(width).Render(r.Answer) + "\n")
	if r.TotalLatency > 0 {
		b.WriteString(st.muted.Render(fmt.Sprintf("retrieval %.2fs, generation %.2fs, total %.2fs, context %d chars",
			r.RetrievalLatency, r.GenerationLatency, r.TotalLatency, r.ContextLength)) + "\n")
	}
	b.WriteString("\n" + st.title.Render("Retrieved Context") + "\n")
	for _, p := range r.Passages {
		b.WriteString(st.passage.Width(width).Render(p) + "\n\n")
	}
	return b.String()
}

// renderBars draws a horizontal bar per point, scaled to the largest value.
func renderBars(s telemetry.Series, bar lipgloss.Style, unit string) string {
	if s.Len() == 0 {
		return "No data yet."
	}
	labelWidth := 0
	for _, l := range s.Labels {
		labelWidth = max(labelWidth, lipgloss.Width(l))
	}
	top := s.Max()
	lines := make([]string, s.Len())
	for i, v := range s.Values {
		n := 0
		if top > 0 && v > 0 {
			n = max(1, int(v/top*maxBarWidth+0.5))
		}
		lines[i] = fmt.Sprintf("%-*s %s %.2f%s", labelWidth, s.Labels[i], bar.Render(strings.Repeat("█", n)), v, unit)
	}
	return strings.Join(lines, "\n")
}

func describeFilters(f domain.Filters) string {
	if f.IsZero() {
		return "none"
	}
	var parts []string
	if f.ChunkSize != nil {
		parts = append(parts, fmt.Sprintf("chunk_size=%d", *f.ChunkSize))
	}
	if f.TopK != nil {
		parts = append(parts, fmt.Sprintf("top_k=%d", *f.TopK))
	}
	return strings.Join(parts, ", ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
