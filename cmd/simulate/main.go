package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"tradingfloor/internal/common"
	"tradingfloor/internal/config"
	"tradingfloor/internal/engine"
	"tradingfloor/internal/server"
	"tradingfloor/internal/simulation"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
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

	t, ctx := tomb.WithContext(ctx)

	// The simulation runs in process, no gateway needed.
	t.Go(func() error {
		srvCtx, cancel := context.WithCancel(ctx)
		return server.Create(srvCtx, cancel, eng, cfg.TickPeriod, cfg.Workers, nil).Run()
	})
	t.Go(func() error {
		return simulation.New(eng, cfg.Simulation).Run(ctx)
	})

	if err := t.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("simulation failed")
	}
}
