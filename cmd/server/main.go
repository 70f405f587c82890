package main

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomz197/arcade/internal/app"
	"github.com/tomz197/arcade/internal/config"
	"github.com/tomz197/arcade/internal/lobby"
	loopconfig "github.com/tomz197/arcade/internal/loop/config"
	"github.com/tomz197/arcade/internal/loop/server"
)

const (
	defaultHost = "0.0.0.0"
	defaultPort = "8080"
)

func main() {
	logger := config.NewLogger("arcade")
	if err := config.LoadDotenv(); err != nil {
		logger.Fatal("failed to load .env", "err", err)
	}

	host := config.GetEnv("WEB_HOST", defaultHost)
	port := config.GetEnv("WEB_PORT", defaultPort)
	settingsPath := config.GetEnv("ARCADE_SETTINGS", "")
	shutdownTimeout := config.GetEnvDuration("SHUTDOWN_TIMEOUT", loopconfig.ShutdownTimeout)

	a, err := app.New(settingsPath, logger)
	if err != nil {
		logger.Fatal("failed to start", "err", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", a.Hub.ServeWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	mux.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, sessionsResponse{
			Online: a.Hub.Users(),
			Lobby:  a.Lobby.Stats(),
			Games:  a.Games.List(),
		})
	})

	addr := net.JoinHostPort(host, port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: loopconfig.HandshakeTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting websocket server", "addr", "http://"+addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return a.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")
		a.Shutdown(shutdownTimeout)

		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server error", "err", err)
	}
	logger.Info("server stopped")
}

type sessionsResponse struct {
	Online int           `json:"online"`
	Lobby  lobby.Stats   `json:"lobby"`
	Games  []server.Info `json:"games"`
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
