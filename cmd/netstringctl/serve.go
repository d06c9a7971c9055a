package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/netstring/internal/config"
	"github.com/danmuck/netstring/internal/logging"
	"github.com/danmuck/netstring/internal/server"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

type serveFlags struct {
	configPath  string
	name        string
	network     string
	addr        string
	mode        string
	metricsAddr string
}

func newServeCmd() *cobra.Command {
	var f serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Accept connections and answer each netstring message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveServeConfig(cmd, f)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, cfg)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.configPath, "config", "", "serve config file (.toml, .yaml)")
	flags.StringVar(&f.name, "name", "", "service name used in logs and metrics")
	flags.StringVar(&f.network, "network", "", "listen network: tcp or unix")
	flags.StringVar(&f.addr, "addr", "", "listen address")
	flags.StringVar(&f.mode, "mode", "", "reply mode: echo, upper or print")
	flags.StringVar(&f.metricsAddr, "metrics-addr", "", "serve /health and /metrics on this address")
	return cmd
}

// resolveServeConfig layers explicitly set flags over the config file.
func resolveServeConfig(cmd *cobra.Command, f serveFlags) (config.ServeConfig, error) {
	cfg := config.DefaultServeConfig()
	if f.configPath != "" {
		loaded, err := config.LoadServeConfig(f.configPath)
		if err != nil {
			return config.ServeConfig{}, err
		}
		cfg = loaded
	}
	flags := cmd.Flags()
	if flags.Changed("name") {
		cfg.Name = f.name
	}
	if flags.Changed("network") {
		cfg.Network = f.network
	}
	if flags.Changed("addr") {
		cfg.Addr = f.addr
	}
	if flags.Changed("mode") {
		cfg.Mode = f.mode
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = f.metricsAddr
	}
	if err := config.ValidateServeConfig(cfg); err != nil {
		return config.ServeConfig{}, err
	}
	return cfg, nil
}

func runServe(ctx context.Context, cmd *cobra.Command, cfg config.ServeConfig) error {
	log := logging.Component("serve")
	handler, err := server.HandlerFor(cfg.Mode, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	svc := server.NewService(server.Config{
		Name:          cfg.Name,
		Channel:       cfg.Channel.ChannelOptions(cfg.Name),
		InboxCapacity: cfg.Channel.InboxCapacity,
		Handler:       handler,
	})

	ln, err := net.Listen(cfg.Network, cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s %s: %w", cfg.Network, cfg.Addr, err)
	}

	metricsErr := make(chan error, 1)
	if cfg.MetricsAddr != "" {
		gin.SetMode(gin.ReleaseMode)
		httpSrv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           server.MetricsRouter(cfg.Name, svc),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listening")
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				metricsErr <- err
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = httpSrv.Shutdown(shutdownCtx)
		}()
	}

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- svc.Serve(serveCtx, ln)
	}()
	select {
	case err := <-serveErr:
		return err
	case err := <-metricsErr:
		cancel()
		<-serveErr
		return fmt.Errorf("metrics server: %w", err)
	}
}
