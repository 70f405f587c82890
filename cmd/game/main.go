package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"golang.org/x/term"

	"github.com/tomz197/arcade/internal/config"
	"github.com/tomz197/arcade/internal/loop/client"
)

func main() {
	logger := config.NewLogger("arcade")
	// The terminal belongs to the game; only errors go to stderr.
	if logger.GetLevel() < log.ErrorLevel {
		logger.SetLevel(log.ErrorLevel)
	}

	var settings *config.Settings
	if path := config.GetEnv("ARCADE_SETTINGS", ""); path != "" {
		s, err := config.LoadSettings(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load settings: %v\n", err)
			os.Exit(1)
		}
		settings = s
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to enable raw mode: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = term.Restore(fd, oldState)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	conn := client.NewHotSeat(ctx, settings, logger)

	reader := bufio.NewReader(os.Stdin)
	c := client.NewClient(conn, reader, os.Stdout, client.ClientOptions{Logger: logger})
	if err := c.Run(); err != nil {
		_ = term.Restore(fd, oldState)
		fmt.Fprintf(os.Stderr, "game error: %v\n", err)
		os.Exit(1)
	}
}
