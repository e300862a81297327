package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"yt-tutor-console/internal/backend"
	"yt-tutor-console/internal/jobs"
	"yt-tutor-console/internal/session"
)

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		if m.mode != modeScrub {
			m.playback = m.app.Loop.State()
		}
		return m, tickCmd()

	case widgetLiveMsg:
		m.widgetErr = ""
		m.playback = m.app.Loop.State()
		m.statusLine = "player ready"
		return m, nil

	case widgetStateMsg:
		m.playback = m.app.Loop.State()
		return m, nil

	case widgetFailedMsg:
		m.widgetErr = msg.Msg
		m.statusLine = ""
		return m, nil

	case chatChangedMsg:
		m.refreshChatView()
		return m, saveChatCmd(m.app, m.videoID)

	case chatScrollMsg:
		m.chatView.GotoBottom()
		return m, nil

	case jobUpdateMsg:
		return m.handleJobUpdate(msg.Record)

	case videoOpenedMsg:
		m.opening = false
		if msg.Err != nil {
			m.statusLine = errorStyle.Render(backend.UserMessage(msg.Err))
			return m, nil
		}
		return m.openSession(msg.Sess, msg.Transcript)

	case restoredMsg:
		if msg.Sess != nil {
			return m.openRestored(msg.Sess, msg.Transcript, msg.Messages)
		}
		if msg.Hint != "" {
			m.opening = true
			m.statusLine = "opening " + msg.Hint
			return m, openVideoCmd(m.app, msg.Hint)
		}
		return m, nil

	case chatSavedMsg:
		if msg.Err != nil {
			m.app.Log.Warn("chat log save failed", "err", msg.Err)
		}
		return m, nil
	}

	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Bindings that work regardless of focus.
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "ctrl+p":
		m.togglePlay()
		return m, nil
	case "ctrl+o":
		return m.enterOpenMode(), nil
	case "ctrl+t":
		m.imageQuery = !m.imageQuery
		m.app.Coord.SetImageQuery(m.imageQuery)
		return m, nil
	}

	switch m.mode {
	case modeOpen:
		return m.handleOpenKey(msg)
	case modeScrub:
		return m.handleScrubKey(msg)
	}

	switch msg.String() {
	case "tab":
		m.pane = (m.pane + 1) % 3
		m.syncFocus()
		return m, nil
	}

	if m.pane == paneChat {
		return m.handleChatKey(msg)
	}
	return m.handleBrowseKey(msg)
}

// handleChatKey routes input while the question box has focus.
func (m model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "enter" {
		if m.app.Coord.Submit(m.input.Value()) {
			m.input.SetValue("")
		} else if m.app.Coord.InFlight() {
			m.statusLine = "still waiting for the previous answer"
		} else if m.app.Coord.Current() == nil {
			m.statusLine = "open a video first (ctrl+o)"
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleBrowseKey routes input while a read-only pane has focus.
func (m model) handleBrowseKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case " ":
		m.togglePlay()
		return m, nil
	case "m":
		m.toggleMute()
		return m, nil
	case "left":
		m.app.Loop.SkipBy(-10)
		m.playback = m.app.Loop.State()
		return m, nil
	case "right":
		m.app.Loop.SkipBy(10)
		m.playback = m.app.Loop.State()
		return m, nil
	case "s":
		if m.videoID != "" {
			m.mode = modeScrub
			m.scrubPos = m.playback.CurrentTime
			m.app.Loop.OnSliderMove(m.scrubPos)
		}
		return m, nil
	case "o":
		return m.enterOpenMode(), nil
	case "g":
		if m.videoID != "" && len(m.quiz) == 0 {
			m.statusLine = "generating quiz"
			return m, generateQuizCmd(m.app, m.videoID)
		}
		return m, nil
	}

	if m.pane == paneQuiz {
		return m.handleQuizKey(msg)
	}

	var cmd tea.Cmd
	if m.pane == paneTranscript {
		m.transcriptView, cmd = m.transcriptView.Update(msg)
	} else {
		m.chatView, cmd = m.chatView.Update(msg)
	}
	return m, cmd
}

func (m model) handleOpenKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		raw := m.input.Value()
		m = m.leaveOpenMode()
		if raw == "" {
			return m, nil
		}
		m.opening = true
		m.statusLine = "opening " + raw
		return m, openVideoCmd(m.app, raw)
	case "esc":
		return m.leaveOpenMode(), nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleScrubKey adjusts the pending slider position. The reconciliation
// loop leaves the slider alone for as long as the scrub is active.
func (m model) handleScrubKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "left":
		m.scrubPos -= scrubStep
		if m.scrubPos < 0 {
			m.scrubPos = 0
		}
		m.app.Loop.OnSliderMove(m.scrubPos)
	case "right":
		m.scrubPos += scrubStep
		if d := m.playback.RenderDuration(); m.scrubPos > d {
			m.scrubPos = d
		}
		m.app.Loop.OnSliderMove(m.scrubPos)
	case "enter":
		m.app.Loop.OnSliderRelease()
		m.mode = modeChat
		m.playback = m.app.Loop.State()
	case "esc", "s":
		// Cancel: put the slider back before releasing.
		m.app.Loop.OnSliderMove(m.playback.CurrentTime)
		m.app.Loop.OnSliderRelease()
		m.mode = modeChat
		m.playback = m.app.Loop.State()
	}
	return m, nil
}

func (m model) handleQuizKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.quizCursor > 0 {
			m.quizCursor--
		}
	case "down", "j":
		if m.quizCursor < len(m.quiz)-1 {
			m.quizCursor++
		}
	case "1", "2", "3", "4":
		if len(m.quiz) == 0 {
			break
		}
		pick := int(msg.String()[0] - '1')
		if pick < len(m.quiz[m.quizCursor].Options) {
			m.quizPicked[m.quizCursor] = pick
			m.quizRevealed[m.quizCursor] = true
		}
	}
	return m, nil
}

func (m *model) togglePlay() {
	if m.playback.Playing {
		m.app.Controller.Pause()
	} else {
		m.app.Controller.Play()
	}
	m.app.Loop.Reconcile()
	m.playback = m.app.Loop.State()
}

func (m *model) toggleMute() {
	if m.playback.Muted {
		m.app.Controller.UnMute()
	} else {
		m.app.Controller.Mute()
	}
	m.app.Loop.Reconcile()
	m.playback = m.app.Loop.State()
}

func (m model) enterOpenMode() model {
	m.mode = modeOpen
	m.pane = paneChat
	m.input.SetValue("")
	m.input.Placeholder = "YouTube URL, video ID, or file path"
	m.input.Focus()
	return m
}

func (m model) leaveOpenMode() model {
	m.mode = modeChat
	m.input.SetValue("")
	m.input.Placeholder = "ask about the video"
	m.syncFocus()
	return m
}

func (m *model) syncFocus() {
	if m.pane == paneChat || m.mode == modeOpen {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}

// openSession installs a freshly resolved session and attaches the player.
func (m model) openSession(sess *session.Session, transcript string) (tea.Model, tea.Cmd) {
	m.app.Coord.Replace(sess)
	return m.afterSessionInstall(sess, transcript)
}

// openRestored is openSession for cache-recovered state: the prior chat
// log survives.
func (m model) openRestored(sess *session.Session, transcript string, msgs []session.Message) (tea.Model, tea.Cmd) {
	m.app.Coord.Restore(sess, msgs)
	return m.afterSessionInstall(sess, transcript)
}

func (m model) afterSessionInstall(sess *session.Session, transcript string) (tea.Model, tea.Cmd) {
	// Pollers and playback ticks for the previous video are moot once the
	// session is replaced. Stopping the loop also zeroes its state, so the
	// staging window never shows (or stamps queries with) the old video's
	// position; WidgetLive restarts it once the new widget is up.
	m.app.Tracker.CancelAll()
	m.app.Loop.Stop()
	m.videoID = sess.VideoID
	m.title = sess.Title
	m.transcript = transcript
	m.quiz = nil
	m.quizCursor = 0
	m.quizPicked = make(map[int]int)
	m.quizRevealed = make(map[int]bool)
	m.widgetErr = ""
	m.jobNote = ""
	m.statusLine = "loaded " + sess.Title
	if m.ready {
		m.transcriptView.SetContent(wrapText(m.transcript, m.transcriptView.Width))
	}
	m.refreshChatView()

	if m.app.Store != nil {
		if err := m.app.Store.SaveSession(sess); err != nil {
			m.app.Log.Warn("session save failed", "err", err)
		}
		if transcript != "" {
			if err := m.app.Store.SaveTranscript(sess.VideoID, transcript); err != nil {
				m.app.Log.Warn("transcript save failed", "err", err)
			}
		}
		if quiz, ok, err := m.app.Store.LoadQuiz(sess.VideoID); err == nil && ok {
			if qs, err := backend.DecodeQuiz(quiz); err == nil {
				m.quiz = qs
			}
		}
	}

	m.app.Controller.Attach(sess.VideoID)

	firstJob := jobs.Key{VideoID: sess.VideoID, Type: jobs.TypeFormatting}
	if sess.Kind == session.KindUpload {
		firstJob.Type = jobs.TypeUpload
	}
	return m, resumeJobCmd(m.app, firstJob)
}

func (m model) handleJobUpdate(rec jobs.Record) (tea.Model, tea.Cmd) {
	switch rec.Key.Type {
	case jobs.TypeFormatting:
		return m.handleFormattingUpdate(rec)
	case jobs.TypeUpload:
		return m.handleUploadUpdate(rec)
	case jobs.TypeQuiz:
		return m.handleQuizUpdate(rec)
	}
	return m, nil
}

func (m model) handleFormattingUpdate(rec jobs.Record) (tea.Model, tea.Cmd) {
	switch rec.Status {
	case jobs.StatusRunning:
		m.jobNote = fmt.Sprintf("formatting transcript %d%%", rec.ProgressPercent)
		if rec.TotalUnits > 0 {
			m.jobNote += fmt.Sprintf(" (chunk %d/%d)", rec.CurrentUnit, rec.TotalUnits)
		}
	case jobs.StatusCompleted:
		m.jobNote = ""
		body, err := backend.DecodeFormattedTranscript(rec.Result)
		if err != nil {
			m.app.Log.Warn("transcript decode failed", "err", err)
			m.statusLine = errorStyle.Render("transcript arrived malformed")
			break
		}
		m.transcript = body
		if m.ready {
			m.transcriptView.SetContent(wrapText(body, m.transcriptView.Width))
		}
		m.statusLine = okStyle.Render("transcript ready")
		if m.app.Store != nil && m.videoID != "" {
			if err := m.app.Store.SaveTranscript(m.videoID, body); err != nil {
				m.app.Log.Warn("transcript save failed", "err", err)
			}
		}
	case jobs.StatusFailed, jobs.StatusTimedOut:
		m.jobNote = ""
		m.app.Coord.AppendSystem(rec.ErrorMessage, true)
	}
	return m, nil
}

func (m model) handleUploadUpdate(rec jobs.Record) (tea.Model, tea.Cmd) {
	switch rec.Status {
	case jobs.StatusRunning:
		m.jobNote = fmt.Sprintf("processing upload %d%%", rec.ProgressPercent)
		if rec.TotalUnits > 0 {
			m.jobNote += fmt.Sprintf(" (step %d/%d)", rec.CurrentUnit, rec.TotalUnits)
		}
	case jobs.StatusCompleted:
		m.jobNote = ""
		m.statusLine = okStyle.Render("upload processed")
		// The transcript pipeline runs next; start watching it.
		key := jobs.Key{VideoID: rec.Key.VideoID, Type: jobs.TypeFormatting}
		return m, resumeJobCmd(m.app, key)
	case jobs.StatusFailed, jobs.StatusTimedOut:
		m.jobNote = ""
		m.app.Coord.AppendSystem(rec.ErrorMessage, true)
	}
	return m, nil
}

func (m model) handleQuizUpdate(rec jobs.Record) (tea.Model, tea.Cmd) {
	switch rec.Status {
	case jobs.StatusRunning:
		m.statusLine = fmt.Sprintf("quiz generating %d%%", rec.ProgressPercent)
	case jobs.StatusCompleted:
		qs, err := backend.DecodeQuiz(rec.Result)
		if err != nil {
			m.app.Log.Warn("quiz decode failed", "err", err)
			m.statusLine = errorStyle.Render("quiz arrived malformed")
			break
		}
		m.quiz = qs
		m.statusLine = okStyle.Render(fmt.Sprintf("quiz ready: %d questions", len(qs)))
		if m.app.Store != nil && m.videoID != "" && len(rec.Result) > 0 {
			if err := m.app.Store.SaveQuiz(m.videoID, rec.Result); err != nil {
				m.app.Log.Warn("quiz save failed", "err", err)
			}
		}
	case jobs.StatusFailed, jobs.StatusTimedOut:
		m.statusLine = errorStyle.Render(rec.ErrorMessage)
	}
	return m, nil
}
