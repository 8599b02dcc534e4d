package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"WhiteboardServer/internal/admin"
	"WhiteboardServer/internal/config"
	"WhiteboardServer/internal/logger"
	"WhiteboardServer/internal/metrics"
	wbnet "WhiteboardServer/internal/net"
	"WhiteboardServer/internal/state"
)

func serveCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the whiteboard server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("addr", ":4444", "TCP address for whiteboard clients")
	flags.String("admin-addr", "127.0.0.1:8080", "HTTP admin address, empty to disable")
	flags.Bool("mdns", false, "Advertise the server on the LAN")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-file", "", "Also write JSON logs to this file, rotated by size")
	flags.String("config", "", "Config file (yaml, toml or json)")

	for key, flag := range map[string]string{
		"server.addr":  "addr",
		"admin.addr":   "admin-addr",
		"mdns.enabled": "mdns",
		"log.level":    "log-level",
		"log.file":     "log-file",
		"config":       "config",
	} {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	log, err := logger.New(logger.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		return err
	}
	defer log.Sync()

	store := state.NewStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)
	metrics.WatchStore(reg, store.Stats)

	srv := wbnet.NewServer(store, wbnet.Options{
		MaxLineBytes: cfg.Server.MaxLineBytes,
		OutboxSize:   cfg.Server.OutboxSize,
		WriteTimeout: cfg.Server.WriteTimeout,
		Board:        state.BoardOptions{Width: cfg.Board.Width, Height: cfg.Board.Height},
	}, log, m)
	if err := srv.Listen(cfg.Server.Addr); err != nil {
		return err
	}
	log.Info("share this link with clients", zap.String("link", LinkScheme+wbnet.ShareAddr(srv.Addr())))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return srv.Serve(ctx) })

	if cfg.Admin.Addr != "" {
		router := admin.NewRouter(store, reg, log)
		g.Go(func() error { return admin.Serve(ctx, cfg.Admin.Addr, router, log) })
	}

	if cfg.MDNS.Enabled {
		port := srv.Addr().(*net.TCPAddr).Port
		adv, err := wbnet.Advertise(cfg.MDNS.Instance, port)
		if err != nil {
			log.Warn("mdns advertise failed, continuing without it", zap.Error(err))
		} else {
			log.Info("advertising on the LAN", zap.String("service", wbnet.ServiceType), zap.Int("port", port))
			g.Go(func() error {
				<-ctx.Done()
				return adv.Shutdown()
			})
		}
	}

	return g.Wait()
}
