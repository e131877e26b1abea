package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/noticepanel/dbopen"
	"github.com/hazyhaar/noticepanel/noticestate"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dismissal and settings service",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		if cfg.Server.Secret == "" {
			return errors.New("server.secret is required (NOTICEPANEL_SERVER__SECRET)")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		db, err := dbopen.Open(cfg.Server.DBPath, dbopen.WithMkdirAll(), dbopen.WithSchema(noticestate.Schema))
		if err != nil {
			return err
		}
		defer db.Close()

		svc, err := noticestate.New(noticestate.Config{
			DB:      db,
			Secret:  []byte(cfg.Server.Secret),
			RESTURL: cfg.Server.RESTURL,
			Logger:  logger,
		})
		if err != nil {
			return err
		}
		if err := svc.Settings().EnsureDefaults(ctx); err != nil {
			return err
		}
		go svc.Settings().Watch(ctx, noticestate.ReloadOptions{Debounce: 200 * time.Millisecond})

		srv := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           svc.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		return listen(ctx, srv)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// listen serves until ctx ends, then drains for up to ten seconds.
func listen(ctx context.Context, srv *http.Server) error {
	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	slog.Info("noticepanel: listening", "addr", srv.Addr)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen %s: %w", srv.Addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	slog.Info("noticepanel: stopped")
	return nil
}
