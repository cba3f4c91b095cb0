package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-auth-session/apiclient"
	"github.com/jrsteele09/go-auth-session/internal/config"
	"github.com/jrsteele09/go-auth-session/refresh"
	"github.com/jrsteele09/go-auth-session/scheduler"
	"github.com/jrsteele09/go-auth-session/server"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the client routes and keep the session fresh",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	log.Logger = logger
	displayAppname(cfg.GetAppName())

	repo, err := openRepo(cfg)
	if err != nil {
		return err
	}
	agent, err := refresh.NewFromConfig(ctx, cfg, refresh.WithLogger(logger))
	if err != nil {
		return err
	}
	store := session.New(repo, agent, session.WithLogger(logger))
	api := apiclient.New(cfg.GetAPIBaseURL(), store, apiclient.WithLogger(logger))

	handler, err := server.New(cfg, store, agent, api, server.WithLogger(logger))
	if err != nil {
		return err
	}

	refresher := scheduler.New(store, scheduler.WithPolicy(refreshPolicy(cfg)), scheduler.WithLogger(logger))
	detach := refresher.Attach(ctx, store)
	defer detach()

	// Long lived event streams end when baseCtx is cancelled at shutdown
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpServer := &http.Server{
		Addr:              cfg.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- listenAndServe(httpServer, logger)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	cancelBase()
	returnError = shutdown(httpServer)
	logger.Info().Msg("Server stopped")
	return returnError
}

func refreshPolicy(cfg config.RefreshConfig) scheduler.Policy {
	return scheduler.Policy{
		Interval: cfg.GetRefreshInterval(),
		Fraction: cfg.GetRefreshFraction(),
		MinDelay: cfg.GetRefreshMinDelay(),
	}
}

func listenAndServe(server *http.Server, logger zerolog.Logger) error {
	logger.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
