// Package main is the entrypoint of the bookmark API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mateconpizza/bmd/internal/config"
	"github.com/mateconpizza/bmd/internal/db"
	"github.com/mateconpizza/bmd/internal/server"
)

const shutdownTimeout = 5 * time.Second

var verboseFlag bool

var rootCmd = &cobra.Command{
	Use:          "bmd",
	Short:        "bookmark management API server",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging")
}

func run(cmd *cobra.Command, _ []string) error {
	if verboseFlag {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := db.New(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	ln, err := listen(cfg)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           server.New(cfg, store),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("listening", "addr", cfg.Addr, "prefix", cfg.Prefix, "db", cfg.DBPath)

		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutCtx)
	})

	return g.Wait()
}

// listen opens the configured listener, a TCP address or a unix socket.
func listen(cfg *config.Config) (net.Listener, error) {
	if sock, ok := cfg.UnixSocket(); ok {
		// a socket file left over from a previous run blocks the bind
		if err := os.Remove(sock); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("removing stale socket: %w", err)
		}

		ln, err := net.Listen("unix", sock)
		if err != nil {
			return nil, fmt.Errorf("listen unix: %w", err)
		}

		return ln, nil
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen tcp: %w", err)
	}

	return ln, nil
}
