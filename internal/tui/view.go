package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"yt-tutor-console/internal/session"
)

func (m model) View() string {
	if !m.ready {
		return "starting up..."
	}

	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n")
	b.WriteString(m.playerView())
	b.WriteString("\n")
	b.WriteString(m.tabsView())
	b.WriteString("\n")
	b.WriteString(m.paneView())
	b.WriteString("\n")
	b.WriteString(m.inputView())
	b.WriteString("\n")
	b.WriteString(m.footerView())
	return b.String()
}

func (m model) headerView() string {
	title := "yt-tutor-console"
	if m.title != "" {
		title = m.title
	}
	line := titleStyle.Render(title)
	if m.opening {
		line += mutedStyle.Render("  opening...")
	}
	if note := m.jobNote; note != "" {
		line += "  " + mutedStyle.Render(note)
	}
	return line
}

func (m model) playerView() string {
	if m.videoID == "" {
		return mutedStyle.Render("no video loaded - press ctrl+o to open one")
	}
	if m.widgetErr != "" {
		return errorStyle.Render(m.widgetErr)
	}

	pos := m.playback.SliderPos
	if m.mode == modeScrub {
		pos = m.scrubPos
	}
	dur := m.playback.RenderDuration()

	icon := "||"
	if m.playback.Playing {
		icon = " >"
	}
	line := fmt.Sprintf("%s %s %s / %s", icon,
		renderSlider(pos, dur, 30), fmtTime(pos), fmtTime(dur))
	if m.playback.Muted {
		line += mutedStyle.Render("  [muted]")
	}
	if m.mode == modeScrub {
		line += titleStyle.Render("  [scrubbing: arrows move, enter seeks, esc cancels]")
	} else if m.playback.UserSeeking {
		line += mutedStyle.Render("  [seeking]")
	}
	return line
}

func (m model) tabsView() string {
	var tabs []string
	for _, p := range []pane{paneChat, paneTranscript, paneQuiz} {
		label := p.String()
		if p == paneQuiz && len(m.quiz) > 0 {
			label = fmt.Sprintf("%s (%d)", label, len(m.quiz))
		}
		if p == m.pane {
			tabs = append(tabs, activeTab.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m model) paneView() string {
	switch m.pane {
	case paneTranscript:
		if m.transcript == "" {
			text := "No transcript available for this video."
			if m.jobNote != "" {
				text = m.jobNote
			}
			return panelStyle.Render(mutedStyle.Render(text))
		}
		return panelStyle.Render(m.transcriptView.View())
	case paneQuiz:
		return panelStyle.Render(m.quizView())
	default:
		return panelStyle.Render(m.chatView.View())
	}
}

func (m model) quizView() string {
	if len(m.quiz) == 0 {
		return mutedStyle.Render("no quiz yet - press g in this pane to generate one")
	}
	var b strings.Builder
	for i, q := range m.quiz {
		cursor := "  "
		if i == m.quizCursor {
			cursor = "> "
		}
		fmt.Fprintf(&b, "%s%d. %s %s\n", cursor, i+1, q.Question,
			mutedStyle.Render("["+q.Difficulty+"]"))
		if i != m.quizCursor {
			continue
		}
		picked, answered := m.quizPicked[i]
		for j, opt := range q.Options {
			marker := "   "
			if answered && j == picked {
				marker = " * "
			}
			line := fmt.Sprintf("%s%d) %s", marker, j+1, opt)
			if m.quizRevealed[i] {
				if opt == q.Answer {
					line = okStyle.Render(line)
				} else if answered && j == picked {
					line = errorStyle.Render(line)
				}
			}
			b.WriteString(line + "\n")
		}
	}
	if answered := len(m.quizPicked); answered > 0 {
		correct := 0
		for i, pick := range m.quizPicked {
			if pick < len(m.quiz[i].Options) && m.quiz[i].Options[pick] == m.quiz[i].Answer {
				correct++
			}
		}
		fmt.Fprintf(&b, "\nscore: %d/%d (answered %d of %d)\n",
			correct, answered, answered, len(m.quiz))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m model) inputView() string {
	prompt := "ask"
	if m.mode == modeOpen {
		prompt = "open"
	}
	line := titleStyle.Render(prompt+":") + " " + m.input.View()
	if m.imageQuery {
		line += mutedStyle.Render("  [frame question]")
	}
	if m.app.Coord.InFlight() {
		line += mutedStyle.Render("  thinking...")
	}
	return line
}

func (m model) footerView() string {
	help := "tab panes - ctrl+o open - ctrl+p play/pause - ctrl+t frame question - ctrl+c quit"
	if m.pane != paneChat {
		help = "tab panes - space play - m mute - arrows skip 10s - s scrub - g quiz - q quit"
	}
	line := mutedStyle.Render(help)
	if m.statusLine != "" {
		line = m.statusLine + "\n" + line
	}
	return line
}

// refreshChatView rebuilds the chat pane content, keeping the view pinned
// to the bottom when it already was there.
func (m *model) refreshChatView() {
	if !m.ready {
		return
	}
	atBottom := m.chatView.AtBottom()
	m.chatView.SetContent(m.chatContent())
	if atBottom {
		m.chatView.GotoBottom()
	}
}

func (m *model) chatContent() string {
	msgs := m.app.Coord.Messages()
	if len(msgs) == 0 {
		return mutedStyle.Render("ask anything about the video")
	}
	width := m.chatView.Width
	var b strings.Builder
	for _, msg := range msgs {
		var label string
		style := botStyle
		switch msg.Sender {
		case session.SenderUser:
			label = "you"
			style = userStyle
		case session.SenderAssistant:
			label = "tutor"
		default:
			label = "system"
			style = systemStyle
		}
		if msg.IsError {
			style = errorStyle
		}
		header := style.Render(label)
		if msg.Timestamp != nil {
			header += mutedStyle.Render(" @ " + fmtTime(*msg.Timestamp))
		}
		b.WriteString(header + "\n")
		b.WriteString(wrapText(msg.Text, width) + "\n")
		if msg.IsDownloading {
			b.WriteString(mutedStyle.Render("(the video is still downloading; answers may be partial)") + "\n")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderSlider draws a progress bar of the given cell width.
func renderSlider(pos, duration float64, width int) string {
	if width < 3 {
		width = 3
	}
	frac := 0.0
	if duration > 0 {
		frac = pos / duration
	}
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	knob := int(frac * float64(width-1))
	var b strings.Builder
	b.WriteString("[")
	for i := 0; i < width; i++ {
		switch {
		case i == knob:
			b.WriteString("o")
		case i < knob:
			b.WriteString("=")
		default:
			b.WriteString("-")
		}
	}
	b.WriteString("]")
	return b.String()
}

// fmtTime renders seconds as m:ss, or h:mm:ss past the hour mark.
func fmtTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	h := total / 3600
	min := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, min, s)
	}
	return fmt.Sprintf("%d:%02d", min, s)
}

// wrapText hard-wraps text to width columns, preserving paragraph breaks.
func wrapText(text string, width int) string {
	if width < 10 {
		width = 10
	}
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if len(line) <= width {
			out = append(out, line)
			continue
		}
		var cur strings.Builder
		for _, word := range strings.Fields(line) {
			if cur.Len() > 0 && cur.Len()+1+len(word) > width {
				out = append(out, cur.String())
				cur.Reset()
			}
			if cur.Len() > 0 {
				cur.WriteString(" ")
			}
			cur.WriteString(word)
		}
		if cur.Len() > 0 {
			out = append(out, cur.String())
		}
	}
	return strings.Join(out, "\n")
}
