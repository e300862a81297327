// Package tui is the interactive shell: a Bubble Tea program wrapped around
// the playback, job-polling, and chat engines. The engines own all timing
// and state; the shell renders snapshots and forwards input.
package tui

import (
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"yt-tutor-console/internal/backend"
	"yt-tutor-console/internal/config"
	"yt-tutor-console/internal/jobs"
	"yt-tutor-console/internal/playback"
	"yt-tutor-console/internal/sched"
	"yt-tutor-console/internal/session"
	"yt-tutor-console/internal/store"
	"yt-tutor-console/internal/widget"
)

// App bundles the engines behind the shell. Store may be nil when the
// cache could not be opened; everything else is always present.
type App struct {
	Cfg    config.Config
	Log    *slog.Logger
	Client *backend.Client
	Store  *store.Store

	Controller *widget.Controller
	Loop       *playback.Loop
	Tracker    *jobs.Tracker
	Coord      *session.Coordinator

	program *tea.Program
}

func NewApp(cfg config.Config, logger *slog.Logger, st *store.Store) *App {
	if logger == nil {
		logger = slog.Default()
	}
	clock := sched.System()
	client := backend.NewClient(cfg.BackendURL)

	sim := widget.NewSimSDK(clock)
	loader := widget.NewLoader(sim)
	ctrl := widget.NewController(sim, loader, clock, logger)
	loop := playback.NewLoop(ctrl, clock, logger)

	tracker := jobs.NewTracker(clock, logger)
	tracker.SetBounds(cfg.PollInterval, cfg.PollMaxAttempts)

	coord := session.NewCoordinator(client, clock, logger)
	coord.Now = loop.CurrentTime

	app := &App{
		Cfg:        cfg,
		Log:        logger,
		Client:     client,
		Store:      st,
		Controller: ctrl,
		Loop:       loop,
		Tracker:    tracker,
		Coord:      coord,
	}

	ctrl.SetSink(app)
	tracker.OnUpdate = func(rec jobs.Record) { app.send(jobUpdateMsg{Record: rec}) }
	coord.OnChange = func() { app.send(chatChangedMsg{}) }
	coord.OnScroll = func() { app.send(chatScrollMsg{}) }

	return app
}

// send forwards an engine event into the tea program. Safe to call before
// Run; events raised before the program exists are dropped.
func (a *App) send(msg tea.Msg) {
	if a.program != nil {
		a.program.Send(msg)
	}
}

// WidgetLive implements widget.Sink. The reconciliation loop starts here,
// seeded with the duration reported at ready time.
func (a *App) WidgetLive(durationSeconds float64) {
	a.Loop.Start(durationSeconds)
	a.send(widgetLiveMsg{Duration: durationSeconds})
}

func (a *App) WidgetStateChanged(s widget.PlayerState) {
	a.Loop.Reconcile()
	a.send(widgetStateMsg{State: s})
}

func (a *App) WidgetFailed(msg string) {
	a.Loop.Stop()
	a.send(widgetFailedMsg{Msg: msg})
}

// Run blocks until the user quits, then tears the engines down.
func (a *App) Run() error {
	p := tea.NewProgram(newModel(a), tea.WithAltScreen())
	a.program = p
	_, err := p.Run()

	a.Tracker.CancelAll()
	a.Loop.Stop()
	a.Controller.Destroy()
	if a.Store != nil {
		_ = a.Store.Close()
	}
	return err
}
