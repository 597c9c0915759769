package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/Veraticus/finsight/internal/api"
	"github.com/Veraticus/finsight/internal/certs"
	"github.com/Veraticus/finsight/internal/common"
	"github.com/Veraticus/finsight/internal/config"
	"github.com/Veraticus/finsight/internal/scheduler"
	"github.com/Veraticus/finsight/internal/sheets"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API and the background scheduler",
		Long: `Serve the JSON API on server.addr and run the scheduled jobs: daily health
snapshots, automatic goal contributions and, when scheduler.export_spec is
set, a spreadsheet export.

Requests need a bearer token from "finsight token".`,
		RunE: runServe,
	}
	cmd.Flags().String("addr", "", "listen address (default: server.addr)")
	cmd.Flags().Bool("no-scheduler", false, "do not run background jobs")
	cmd.Flags().Bool("tls", false, "serve HTTPS with a self-signed certificate")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("server.tls", cmd.Flags().Lookup("tls"))
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	v := viper.GetViper()

	srvCfg, err := config.LoadServerConfig(v)
	if err != nil {
		return err
	}
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	assistant, err := loadAssistant()
	if err != nil {
		return err
	}
	eng, err := newEngine(store, assistant)
	if err != nil {
		return err
	}

	opts := []api.Option{api.WithLogger(slog.Default())}
	if assistant != nil {
		opts = append(opts, api.WithAssistant(assistant))
	}
	handler := api.New(eng, []byte(srvCfg.JWTSecret), opts...)

	if skip, _ := cmd.Flags().GetBool("no-scheduler"); !skip {
		sched, err := newScheduler(ctx, eng, v)
		if err != nil {
			return err
		}
		sched.Start(ctx)
		defer sched.Stop()
	}

	server := &http.Server{
		Addr:              srvCfg.Addr,
		Handler:           handler,
		ReadTimeout:       srvCfg.ReadTimeout,
		ReadHeaderTimeout: srvCfg.ReadTimeout,
		WriteTimeout:      srvCfg.WriteTimeout,
	}

	if srvCfg.TLS {
		cert, err := certs.NewStore(filepath.Join(config.DefaultConfigDir(), "certs"), slog.Default()).Load(srvCfg.TLSHosts...)
		if err != nil {
			return err
		}
		server.TLSConfig = &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
	}

	errChan := make(chan error, 1)
	go func() {
		var err error
		if srvCfg.TLS {
			err = server.ListenAndServeTLS("", "")
		} else {
			err = server.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("failed to start server: %w", err)
		}
		close(errChan)
	}()
	slog.Info("API listening", "addr", srvCfg.Addr, "tls", srvCfg.TLS, "assistant", assistant != nil)

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

// newScheduler builds the job runner. The export job only gets a writer when
// Google Sheets credentials are configured.
func newScheduler(ctx context.Context, jobs scheduler.Jobs, v *viper.Viper) (*scheduler.Scheduler, error) {
	cfg, err := config.LoadSchedulerConfig(v)
	if err != nil {
		return nil, err
	}

	if cfg.ExportSpec == "" {
		return scheduler.New(jobs, cfg, nil, slog.Default())
	}

	sheetsCfg, err := config.LoadSheetsConfig(v)
	if errors.Is(err, common.ErrMissingConfig) {
		slog.Warn("Scheduled export disabled, Google Sheets is not configured", "error", err)
		return scheduler.New(jobs, cfg, nil, slog.Default())
	}
	if err != nil {
		return nil, err
	}
	writer, err := sheets.NewWriter(ctx, *sheetsCfg, slog.Default())
	if err != nil {
		return nil, err
	}
	return scheduler.New(jobs, cfg, writer, slog.Default())
}
