// Package main is the entry point for the tripboard CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"tripboard/internal/backend/tripapi"
	"tripboard/internal/cli"
	"tripboard/internal/commands"
	"tripboard/internal/config"
	"tripboard/internal/session"
)

func main() {
	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	factory := func(ctx context.Context, cfg *config.Config, sess *session.Session, logger log.FieldLogger) (cli.Backend, error) {
		return tripapi.New(ctx, cfg.APIURL, sess, tripapi.WithLogger(logger)), nil
	}

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)
	dispatcher.Stdin = os.Stdin

	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	os.Exit(code)
}
