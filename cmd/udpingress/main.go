// The udpingress binary is the standalone downstream mirror: it reads
// the same JSON configuration the gateway uses, takes the first
// connection carrying a udp_receiver block, and mirrors the UDP bus
// into local shared memory until a termination signal.
//
// Usage:
//
//	udpingress config.json [--log-level info] [--log-dir dir]
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
	"github.com/alephtx/mdgw/internal/udpbus"
)

func main() {
	logLevel := pflag.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	logDir := pflag.String("log-dir", "", "optional log directory for file output")
	pflag.Parse()

	if pflag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: udpingress <config.json> [--log-level info] [--log-dir dir]")
		os.Exit(2)
	}

	logger := logging.Init(*logLevel, *logDir)

	cfg, err := config.Load(pflag.Arg(0))
	if err != nil {
		logger.Error("config load failed", "err", err)
		os.Exit(1)
	}

	var conn *config.ConnectionConfig
	for i := range cfg.Connections {
		if cfg.Connections[i].UDPReceiver != nil {
			conn = &cfg.Connections[i]
			break
		}
	}
	if conn == nil {
		logger.Error("no connection with a udp_receiver block in config")
		os.Exit(1)
	}

	mod := udpbus.NewModule(conn, logging.New(logger, "udp"))
	if err := mod.Init(); err != nil {
		logger.Error("shm init failed", "err", err)
		os.Exit(1)
	}
	if err := mod.Start(); err != nil {
		logger.Error("start failed", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutdown signal received")
	mod.Stop()
}
