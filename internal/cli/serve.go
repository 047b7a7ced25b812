package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.io/infrasutra/speedydraft/internal/api"
	"github.io/infrasutra/speedydraft/internal/draft"
	"github.io/infrasutra/speedydraft/internal/extract"
	"github.io/infrasutra/speedydraft/internal/pdftext"
	"github.io/infrasutra/speedydraft/internal/records"
	"github.io/infrasutra/speedydraft/internal/spool"
	"github.io/infrasutra/speedydraft/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		db, err := store.Open(ctx, store.Options{
			Driver:      cfg.Store.Driver,
			DataDir:     cfg.Store.DataDir,
			DBPath:      cfg.Store.DBPath,
			DatabaseURL: cfg.Store.DatabaseURL,
		}, logger)
		if err != nil {
			logger.Error("open store", "error", err)
			return err
		}
		defer db.Close()

		uploads, err := spool.New(cfg.Spool.UploadDir, cfg.Spool.TTL, logger)
		if err != nil {
			logger.Error("open upload spool", "error", err)
			return err
		}
		outbox, err := spool.New(cfg.Spool.DraftDir, cfg.Spool.TTL, logger)
		if err != nil {
			logger.Error("open draft outbox", "error", err)
			return err
		}

		apiServer := api.NewServer(
			cfg,
			records.NewService(db, logger),
			extract.NewService(pdftext.New(logger), uploads, cfg.Extract.Workers, logger),
			draft.NewAssembler(outbox, logger),
			logger,
		)

		var sweepers sync.WaitGroup
		for _, s := range []*spool.Spool{uploads, outbox} {
			s := s
			sweepers.Add(1)
			go func() {
				defer sweepers.Done()
				s.Run(ctx, cfg.Spool.SweepInterval)
			}()
		}

		httpSrv := &http.Server{
			Addr:              cfg.Addr(),
			Handler:           apiServer,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("http server listening", "addr", httpSrv.Addr, "store", cfg.Store.Driver, "data_dir", cfg.Store.DataDir)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case <-ctx.Done():
		case err, ok := <-errCh:
			if ok {
				logger.Error("http server stopped", "error", err)
				stop()
				sweepers.Wait()
				return err
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown http", "error", err)
		}
		stop()
		sweepers.Wait()
		logger.Info("speedydraft stopped")
		return nil
	},
}
