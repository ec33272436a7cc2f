package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sfbridge/sfbridge/auth"
	"github.com/sfbridge/sfbridge/internal/config"
	"github.com/sfbridge/sfbridge/salesforce"
	"github.com/sfbridge/sfbridge/server"
	"github.com/sfbridge/sfbridge/sessions"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

func run() error {
	_ = godotenv.Load()

	c := config.New()
	configureLogging(c)
	displayAppname(c.GetAppName())

	sessionRepo := connectSessionStore(c)
	defer func() {
		if err := sessionRepo.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close session store")
		}
	}()

	exchanger := salesforce.NewExchanger(
		c.GetClientID(),
		c.GetClientSecret(),
		c.GetRedirectURI(),
		c.GetScopes(),
		c.GetExchangeTimeout(),
	)
	identity := salesforce.NewIdentityClient(c.GetExchangeTimeout())
	flow := auth.NewService(sessionRepo, exchanger, identity)

	httpServer := &http.Server{
		Addr:    c.GetPort(),
		Handler: server.New(c, sessionRepo, flow),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server.ListenAndServe: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case sig := <-stopSignal():
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return shutdown(httpServer)
}

// connectSessionStore dials Redis with bounded retries and falls back to the
// in-process store when it stays unreachable. The fallback is a durability
// downgrade: sessions will not survive a restart, so it is logged loudly.
func connectSessionStore(c config.Config) sessions.Repo {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, err := sessions.Connect(ctx, c)
	if err != nil {
		log.Error().Err(err).Msg("session store unavailable, falling back to in-memory sessions; NOT suitable for production")
		return sessions.NewInMemoryRepo(c.GetSessionTTL())
	}
	log.Info().Str("addr", c.GetRedisAddr()).Msg("connected to session store")
	return repo
}

func configureLogging(c config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func stopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
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
