package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"yt-tutor-console/internal/backend"
	"yt-tutor-console/internal/playback"
)

type pane int

const (
	paneChat pane = iota
	paneTranscript
	paneQuiz
)

func (p pane) String() string {
	switch p {
	case paneChat:
		return "chat"
	case paneTranscript:
		return "transcript"
	case paneQuiz:
		return "quiz"
	}
	return "unknown"
}

type inputMode int

const (
	// modeChat routes typed text to the question input.
	modeChat inputMode = iota
	// modeOpen routes typed text to the video URL / path prompt.
	modeOpen
	// modeScrub routes arrow keys to the seek slider.
	modeScrub
)

const scrubStep = 5.0

type model struct {
	app *App

	input          textinput.Model
	chatView       viewport.Model
	transcriptView viewport.Model

	width  int
	height int
	ready  bool

	pane pane
	mode inputMode

	playback  playback.State
	scrubPos  float64
	widgetErr string

	videoID    string
	title      string
	transcript string

	quiz         []backend.QuizQuestion
	quizCursor   int
	quizPicked   map[int]int
	quizRevealed map[int]bool

	// jobNote is a one-line progress readout for the busiest current job.
	jobNote    string
	statusLine string
	imageQuery bool
	opening    bool
}

func newModel(app *App) model {
	ti := textinput.New()
	ti.Placeholder = "ask about the video"
	ti.CharLimit = 500
	ti.Focus()

	return model{
		app:          app,
		input:        ti,
		pane:         paneChat,
		mode:         modeChat,
		quizPicked:   make(map[int]int),
		quizRevealed: make(map[int]bool),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, tickCmd(), restoreCmd(m.app))
}

// layout recomputes the viewports for a new terminal size.
func (m *model) layout() {
	contentWidth := max(20, m.width-4)
	contentHeight := max(5, m.height-10)
	if !m.ready {
		m.chatView = viewport.New(contentWidth, contentHeight)
		m.transcriptView = viewport.New(contentWidth, contentHeight)
		m.ready = true
	} else {
		m.chatView.Width = contentWidth
		m.chatView.Height = contentHeight
		m.transcriptView.Width = contentWidth
		m.transcriptView.Height = contentHeight
	}
	m.input.Width = contentWidth
	m.refreshChatView()
	m.transcriptView.SetContent(wrapText(m.transcript, contentWidth))
}
