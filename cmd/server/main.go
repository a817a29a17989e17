package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/config"
	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/pkg/logger"
	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/pkg/tracing"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configFile string
	cmd := &cobra.Command{
		Use:           "powerdesk-gateway",
		Short:         "Authentication and access control gateway for the JSPro PowerDesk dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, configFile)
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "config file (default: ./config.yaml, $HOME/.powerdesk, /etc/powerdesk)")
	return cmd
}

func serve(ctx context.Context, configFile string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Error("Invalid configuration", zap.Error(err))
		return err
	}
	log.Info("PowerDesk gateway starting",
		zap.Int("port", cfg.Port),
		zap.String("site", cfg.SiteName),
		zap.Bool("upstream", cfg.UpstreamURL != ""),
		zap.Bool("audit_db", cfg.AuditDBPath != ""),
	)

	shutdownTracing, err := tracing.Init(ctx, cfg.TracingEndpoint, cfg.TracingSamplingRate)
	if err != nil {
		log.Error("Tracing init failed", zap.Error(err))
		return err
	}
	defer shutdownTracing(context.Background())

	a, err := newApp(cfg, log)
	if err != nil {
		log.Error("Startup failed", zap.Error(err))
		return err
	}
	defer a.close()

	if err := a.run(ctx); err != nil {
		log.Error("Server stopped with error", zap.Error(err))
		return err
	}
	log.Info("Server exited gracefully")
	return nil
}
