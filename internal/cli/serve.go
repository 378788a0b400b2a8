package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mugiliam/hatchdockstore/internal/config"
	"github.com/mugiliam/hatchdockstore/internal/db"
	"github.com/mugiliam/hatchdockstore/internal/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(log.Logger.WithContext(ctx), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "listen", "", "listen address, overrides the configuration")
	return cmd
}

func runServe(ctx context.Context, addr string) error {
	c := config.Config()
	if addr == "" {
		addr = c.Server.ListenAddr
	}
	if err := db.Init(ctx, c.DB); err != nil {
		return err
	}
	defer db.Shutdown(ctx)

	m, err := newManager(c)
	if err != nil {
		return err
	}
	s, err := server.CreateNewServer(m)
	if err != nil {
		return err
	}
	s.MountHandlers()

	srv := &http.Server{
		Addr:        addr,
		Handler:     s.Router,
		ReadTimeout: time.Duration(c.Server.ReadTimeout) * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Ctx(ctx).Info().Str("addr", addr).Msg("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	log.Ctx(ctx).Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
