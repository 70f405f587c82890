// Package app wires the shared services of a server process: the game
// server, the lobby, the connection hub and the settings file.
package app

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/tomz197/arcade/internal/config"
	"github.com/tomz197/arcade/internal/lobby"
	"github.com/tomz197/arcade/internal/loop/server"
	"github.com/tomz197/arcade/internal/network"
)

// App holds the services shared by every connection of one process.
type App struct {
	Hub      *network.Hub
	Games    *server.Server
	Lobby    *lobby.Service
	Settings *config.SettingsStore

	settingsPath string
	logger       *log.Logger
	cancelGames  context.CancelFunc
}

// New builds the services. settingsPath may be empty; a file that cannot be
// read is an error.
func New(settingsPath string, logger *log.Logger) (*App, error) {
	var settings *config.Settings
	if settingsPath != "" {
		s, err := config.LoadSettings(settingsPath)
		if err != nil {
			return nil, err
		}
		settings = s
	}
	store := config.NewSettingsStore(settings)

	var lobbyOpts lobby.Options
	if settings != nil {
		lobbyOpts.ChallengeTTL = settings.Lobby.ChallengeTTL
		lobbyOpts.ScanInterval = settings.Lobby.ScanInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	hub := network.NewHub(logger.WithPrefix("hub"))
	games := server.NewServer(ctx, hub, logger.WithPrefix("game"))

	lobbyOpts.Runner = games
	lobbyOpts.Notifier = hub
	lobbyOpts.Overrider = store
	lobbyOpts.Logger = logger.WithPrefix("lobby")
	l := lobby.New(lobbyOpts)
	hub.Bind(l, games)

	return &App{
		Hub:          hub,
		Games:        games,
		Lobby:        l,
		Settings:     store,
		settingsPath: settingsPath,
		logger:       logger,
		cancelGames:  cancel,
	}, nil
}

// Run drives the lobby timers and the settings watcher until ctx is done.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ignoreCanceled(a.Lobby.Run(ctx))
	})
	if a.settingsPath != "" {
		g.Go(func() error {
			return config.Watch(ctx, a.settingsPath, a.Settings, a.logger.WithPrefix("settings"))
		})
	}
	return g.Wait()
}

// Shutdown tells every connection that the server is going away, then stops
// the running games. Their results still reach the lobby.
func (a *App) Shutdown(timeout time.Duration) {
	a.logger.Info("notifying connected players about shutdown", "users", a.Hub.Users())
	a.Hub.Shutdown()
	a.Games.Shutdown(timeout)
	a.cancelGames()
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
