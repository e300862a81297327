package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"yt-tutor-console/internal/backend"
	"yt-tutor-console/internal/jobs"
	"yt-tutor-console/internal/session"
	"yt-tutor-console/internal/video"
)

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg{At: t}
	})
}

// restoreCmd loads the saved session and its caches. It always returns a
// restoredMsg; a load failure just means starting fresh.
func restoreCmd(app *App) tea.Cmd {
	return func() tea.Msg {
		out := restoredMsg{Hint: app.Cfg.StartupVideo}
		if app.Store == nil {
			return out
		}
		sess, ok, err := app.Store.LoadSession()
		if err != nil {
			app.Log.Warn("session restore failed", "err", err)
			return out
		}
		if !ok {
			return out
		}
		out.Sess = sess
		if body, ok, err := app.Store.LoadTranscript(sess.VideoID); err == nil && ok {
			out.Transcript = body
		}
		if msgs, ok, err := app.Store.LoadChatLog(sess.VideoID); err == nil && ok {
			out.Messages = msgs
		}
		return out
	}
}

// openVideoCmd resolves raw (URL, bare ID, or local file path) into a
// session. Local files go through the upload flow first.
func openVideoCmd(app *App, raw string) tea.Cmd {
	return func() tea.Msg {
		if video.IsLocalFile(raw) {
			return uploadVideo(app, raw)
		}
		id, err := video.ExtractID(raw)
		if err != nil {
			return videoOpenedMsg{Err: err}
		}
		info, err := app.Client.FetchVideoInfo(context.Background(), "https://www.youtube.com/watch?v="+id)
		if err != nil {
			return videoOpenedMsg{Err: fmt.Errorf("fetch video info: %w", err)}
		}
		title := info.Title
		if title == "" {
			title = id
		}
		return videoOpenedMsg{
			Sess:       &session.Session{VideoID: id, Kind: session.KindEmbedded, Title: title},
			Transcript: info.Transcript,
		}
	}
}

func uploadVideo(app *App, path string) tea.Msg {
	f, err := os.Open(path)
	if err != nil {
		return videoOpenedMsg{Err: fmt.Errorf("open upload: %w", err)}
	}
	defer f.Close()

	id, err := app.Client.UploadVideo(context.Background(), filepath.Base(path), f)
	if err != nil {
		return videoOpenedMsg{Err: fmt.Errorf("upload video: %w", err)}
	}
	return videoOpenedMsg{
		Sess: &session.Session{VideoID: id, Kind: session.KindUpload, Title: filepath.Base(path)},
	}
}

// resumeJobCmd kicks the tracker for key. Resume performs one status check
// inline, so it runs as a command rather than in Update.
func resumeJobCmd(app *App, key jobs.Key) tea.Cmd {
	src := sourceFor(app, key.Type)
	return func() tea.Msg {
		app.Tracker.Resume(context.Background(), key, src)
		return nil
	}
}

func sourceFor(app *App, t jobs.Type) jobs.Source {
	switch t {
	case jobs.TypeUpload:
		return backend.UploadSource{Client: app.Client}
	case jobs.TypeQuiz:
		return backend.QuizSource{Client: app.Client}
	default:
		return backend.FormattingSource{Client: app.Client}
	}
}

// generateQuizCmd requests quiz generation, then hands the wait to the
// tracker. Failures surface in the chat log as system messages.
func generateQuizCmd(app *App, videoID string) tea.Cmd {
	return func() tea.Msg {
		if err := app.Client.GenerateQuiz(context.Background(), videoID); err != nil {
			app.Coord.AppendSystem("quiz generation failed: "+backend.UserMessage(err), true)
			return nil
		}
		key := jobs.Key{VideoID: videoID, Type: jobs.TypeQuiz}
		app.Tracker.Resume(context.Background(), key, backend.QuizSource{Client: app.Client})
		return nil
	}
}

// saveChatCmd persists the current chat log for videoID, best effort.
func saveChatCmd(app *App, videoID string) tea.Cmd {
	if app.Store == nil || videoID == "" {
		return nil
	}
	msgs := app.Coord.Messages()
	return func() tea.Msg {
		return chatSavedMsg{Err: app.Store.SaveChatLog(videoID, msgs)}
	}
}
