package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/lingo-web/apiclient"
	"github.com/jrsteele09/lingo-web/guard"
	"github.com/jrsteele09/lingo-web/identity"
	"github.com/jrsteele09/lingo-web/internal/config"
	apperrors "github.com/jrsteele09/lingo-web/internal/errors"
	"github.com/jrsteele09/lingo-web/server"
	"github.com/jrsteele09/lingo-web/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	setupLogging(c.GetEnv())
	displayAppname(c.GetAppName())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	kv, closeKV, err := newStorage(ctx, c)
	if err != nil {
		return err
	}
	defer closeKV()

	policy, err := guard.LoadPolicyFile(c.GetRoutePolicyFile())
	if err != nil {
		return fmt.Errorf("loading route policy: %w", err)
	}

	api, err := apiclient.New(c.GetBackendURL(), apiclient.WithUserAgent(c.GetAppName()))
	if err != nil {
		return err
	}

	srv, err := server.New(c, api, kv,
		server.WithPolicy(policy),
		server.WithIdentityProvider(newIdentityProvider(ctx, c)),
	)
	if err != nil {
		return err
	}

	go sweep(ctx, srv, c.GetSweepInterval())

	httpServer := &http.Server{Addr: c.GetPort(), Handler: srv, ReadHeaderTimeout: 10 * time.Second}
	errs := make(chan error, 1)
	go func() { errs <- listenAndServe(httpServer) }()

	select {
	case err := <-errs:
		return err
	case <-waitForStopSignal():
	}

	returnError = shutdown(httpServer)
	srv.Wait()
	return returnError
}

func setupLogging(env string) {
	zerolog.TimeFieldFormat = time.RFC3339
	if env == "DEV" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// newStorage uses Redis when an address is configured so credentials survive restarts.
func newStorage(ctx context.Context, c config.Config) (storage.KV, func(), error) {
	if c.GetRedisAddr() == "" {
		log.Info().Msg("browser storage: in memory")
		return storage.NewMemoryKV(), func() {}, nil
	}
	client, err := storage.NewRedisClient(ctx, c.GetRedisAddr(), c.GetRedisPassword())
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to redis: %w", err)
	}
	log.Info().Str("addr", c.GetRedisAddr()).Msg("browser storage: redis")
	return storage.NewRedisKV(client), func() { _ = client.Close() }, nil
}

func newIdentityProvider(ctx context.Context, c config.Config) identity.Provider {
	if !c.GoogleConfigured() {
		return identity.Unconfigured{}
	}
	p, err := identity.NewGoogleProvider(ctx, c.GetGoogleClientID(), c.GetGoogleClientSecret(), c.GetGoogleRedirectURL())
	if err != nil {
		log.Warn().Err(err).Msg("Google sign-in disabled")
		return identity.Unconfigured{Err: apperrors.Configuration("identity", "Google sign-in is temporarily unavailable")}
	}
	return p
}

func sweep(ctx context.Context, srv *server.Server, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			srv.Sweep()
		}
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
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
