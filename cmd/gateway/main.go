// The gateway binary runs the multi-exchange market-data pipeline: it
// loads a JSON configuration, creates one engine per configured venue
// connection (plus the udp ingress kind), starts them all, and blocks
// until a termination signal.
//
// Usage:
//
//	gateway config.json [--log-level info] [--log-dir /var/log/mdgw]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/alephtx/mdgw/internal/config"
	"github.com/alephtx/mdgw/internal/logging"
	"github.com/alephtx/mdgw/internal/pipeline"
	"github.com/alephtx/mdgw/internal/udpbus"
)

// module is the common lifecycle of a venue engine and the udp ingress.
type module interface {
	Name() string
	Init() error
	Stop()
}

func main() {
	logLevel := pflag.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	logDir := pflag.String("log-dir", "", "optional log directory for file output")
	pflag.Parse()

	if pflag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: gateway <config.json> [--log-level info] [--log-dir dir]")
		os.Exit(2)
	}
	configPath := pflag.Arg(0)

	logger := logging.Init(*logLevel, *logDir)
	logger.Info("gateway starting", "config", configPath, "log_level", *logLevel)

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("config load failed", "err", err)
		os.Exit(1)
	}
	logger.Info("config loaded", "connections", len(cfg.Connections))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var modules []module
	for i := range cfg.Connections {
		conn := &cfg.Connections[i]
		connLogger := logging.New(logger, conn.Exchange)

		if conn.Exchange == "udp" {
			modules = append(modules, udpbus.NewModule(conn, connLogger))
			continue
		}

		engine, err := pipeline.Build(conn, connLogger)
		if err != nil {
			logger.Error("engine build failed", "exchange", conn.Exchange, "err", err)
			os.Exit(1)
		}
		modules = append(modules, engine)
	}

	for _, m := range modules {
		if err := m.Init(); err != nil {
			logger.Error("shm init failed", "module", m.Name(), "err", err)
			os.Exit(1)
		}
	}

	for _, m := range modules {
		switch mod := m.(type) {
		case *pipeline.Engine:
			mod.Start(ctx)
		case *udpbus.Module:
			if err := mod.Start(); err != nil {
				logger.Error("udp module start failed", "err", err)
				os.Exit(1)
			}
		}
		logger.Info("module started", "module", m.Name())
	}

	logger.Info("all modules started", "count", len(modules))

	<-ctx.Done()
	logger.Info("shutdown signal received")

	for _, m := range modules {
		m.Stop()
	}
	logger.Info("all modules stopped")
}
