package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"printpanel-go/pkg/api"
	"printpanel-go/pkg/config"
	"printpanel-go/pkg/log"
	"printpanel-go/pkg/metrics"
	"printpanel-go/pkg/panel"
	"printpanel-go/pkg/printer"
)

const simulateInterval = 250 * time.Millisecond

func newServeCmd() *cobra.Command {
	var (
		cfgPath string
		envFile string
		addr    string
		virtual bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Connect to the printer and serve the panel API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnvFile(envFile); err != nil {
				return err
			}
			if cfgPath == "" {
				if p, err := config.DefaultPath(); err == nil {
					cfgPath = p
				}
			}
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if virtual {
				cfg.Connection.Mode = config.ModeVirtual
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config file (default ~/.printpanel/config.yaml)")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.addr")
	cmd.Flags().BoolVar(&virtual, "virtual", false, "use the simulated printer")
	return cmd
}

func setupLogger(cfg config.LogConfig) (*log.Logger, func(), error) {
	logger := log.New("printpanel")
	logger.SetLevel(log.ParseLevel(cfg.Level))
	logger.SetFormat(log.ParseFormat(cfg.Format))
	logger.SetCaller(cfg.Caller)
	log.ConfigureFromEnv(logger)
	log.SetDefaultLogger(logger)

	closeFn := func() {}
	if cfg.File != "" {
		w, err := log.AttachFile(logger, log.RotationConfig{
			Filename:   cfg.File,
			MaxSizeMB:  cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		})
		if err != nil {
			return nil, nil, err
		}
		closeFn = func() { _ = w.Close() }
	}
	return logger, closeFn, nil
}

func serve(ctx context.Context, cfg config.Config) error {
	logger, closeLog, err := setupLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()

	prn := printer.New(cfg.Profile(),
		printer.WithFirmware(cfg.Firmware()),
		printer.WithLogger(logger.WithPrefix("printer")))

	switch cfg.Connection.Mode {
	case config.ModeSerial:
		link, err := printer.OpenSerial(prn, cfg.Connection.Device, cfg.Connection.Baud)
		if err != nil {
			return err
		}
		prn.Connect(link)
	default:
		prn.Connect(printer.NewVirtualLink())
		go simulate(ctx, prn)
	}
	defer prn.Disconnect()

	pm := metrics.NewPanelMetrics()
	pnl := panel.New(prn, cfg.PanelSettings(), panel.WithLogger(logger), panel.WithMetrics(pm))
	srv := api.New(api.Config{
		Addr:           cfg.Server.Addr,
		StatusInterval: cfg.Server.StatusInterval,
		Panel:          pnl,
		Metrics:        pm.Registry,
		Logger:         logger.WithPrefix("api"),
	})

	logger.WithFields(log.Fields{
		"mode":     cfg.Connection.Mode,
		"firmware": cfg.Firmware().String(),
		"addr":     cfg.Server.Addr,
	}).Info("starting")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	panelDone := make(chan error, 1)
	go func() { panelDone <- pnl.Run(ctx) }()

	err = srv.Run(ctx)
	cancel()
	<-panelDone
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

// simulate drives the virtual printer's heaters.
func simulate(ctx context.Context, prn *printer.Printer) {
	ticker := time.NewTicker(simulateInterval)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			prn.Simulate(now.Sub(last))
			last = now
		}
	}
}
