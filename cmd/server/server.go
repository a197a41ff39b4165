package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"tradingfloor/internal/common"
	"tradingfloor/internal/config"
	"tradingfloor/internal/engine"
	"tradingfloor/internal/net"
	"tradingfloor/internal/server"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	configFile := flag.String("config", "", "Path to YAML config file")
	envFile := flag.String("env", "", "Path to .env file (defaults to ./.env)")
	flag.Parse()

	cfg, err := config.Load(*configFile, *envFile)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to load config")
	}
	zerolog.SetGlobalLevel(cfg.Level())
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	catalog, err := common.NewCatalog(cfg.Companies...)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid catalog")
	}
	eng, err := engine.New(catalog, cfg.Brokers)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to create engine")
	}

	// Setup the TCP gateway and the tick driven matching engine.
	var gateway *net.Server
	if cfg.Gateway.Enabled {
		gateway = net.New(cfg.Gateway.Address, cfg.Gateway.Port, eng)
	}

	ctx, cancel := context.WithCancel(ctx)
	srv := server.Create(ctx, cancel, eng, cfg.TickPeriod, cfg.Workers, gateway)

	// Block on running the server.
	if err := srv.Run(); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}
