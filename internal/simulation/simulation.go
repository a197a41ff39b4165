// Package simulation drives an engine with randomly acting brokers: every
// broker sleeps a random delay, then submits a random offer or price request
// for a random asset.
package simulation

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"tradingfloor/internal/common"
	"tradingfloor/internal/config"
	"tradingfloor/internal/engine"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

var (
	ErrNoAssets  = errors.New("simulation requires at least one asset")
	ErrNoBrokers = errors.New("simulation requires at least one broker")
)

type Simulation struct {
	engine *engine.Engine
	cfg    config.Simulation
	assets []common.Asset
}

func New(eng *engine.Engine, cfg config.Simulation) *Simulation {
	return &Simulation{
		engine: eng,
		cfg:    cfg,
		assets: eng.Assets(),
	}
}

// Run starts one routine per broker and blocks until ctx is done.
func (s *Simulation) Run(ctx context.Context) error {
	if len(s.assets) == 0 {
		return ErrNoAssets
	}
	brokers := s.engine.Brokers()
	if len(brokers) == 0 {
		return ErrNoBrokers
	}

	if err := s.engine.Observe(s); err != nil {
		return err
	}

	// Every subscription is in place before any routine starts.
	simBrokers := make([]*simBroker, 0, len(brokers))
	for _, broker := range brokers {
		b := &simBroker{broker: broker}
		if err := s.observeRandomBooks(b); err != nil {
			return err
		}
		simBrokers = append(simBrokers, b)
	}

	t, _ := tomb.WithContext(ctx)
	for _, b := range simBrokers {
		t.Go(func() error {
			return s.loop(t, b)
		})
	}

	err := t.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Simulation) loop(t *tomb.Tomb, b *simBroker) error {
	for {
		timer := time.NewTimer(s.randomDelay())
		select {
		case <-t.Dying():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		op, err := s.RandomOperation(b.broker)
		if err != nil {
			log.Error().Err(err).Str("broker", b.broker.ID).Msg("unable to create operation")
			continue
		}
		if err := s.engine.RegisterOperation(op); err != nil {
			log.Error().Err(err).Str("broker", b.broker.ID).Msg("unable to register operation")
		}
	}
}

// observeRandomBooks subscribes the broker to a random suffix of the asset
// list.
func (s *Simulation) observeRandomBooks(b *simBroker) error {
	observed := s.assets[rand.IntN(len(s.assets)):]
	symbols := make([]string, 0, len(observed))
	for _, asset := range observed {
		book, err := s.engine.OrderBook(asset)
		if err != nil {
			return err
		}
		if err := book.Observe(b); err != nil {
			return err
		}
		symbols = append(symbols, asset.Symbol)
	}

	log.Info().
		Str("broker", b.broker.ID).
		Strs("assets", symbols).
		Msg("broker is observing books")
	return nil
}

// RandomOperation builds a random offer or price request for a random asset.
func (s *Simulation) RandomOperation(broker common.Broker) (engine.Operation, error) {
	asset := s.assets[rand.IntN(len(s.assets))]
	if rand.Float64() < s.cfg.InfoRatio {
		return s.randomInfo(broker, asset)
	}
	return s.randomOffer(broker, asset)
}

func (s *Simulation) randomInfo(broker common.Broker, asset common.Asset) (*engine.Info, error) {
	var lookback time.Duration
	if s.cfg.InfoLookback > 0 {
		lookback = rand.N(s.cfg.InfoLookback)
	}
	target := time.Now().Add(-lookback)

	info, err := engine.NewInfo(broker, asset, target, func(price float64) {
		event := log.Info().
			Str("broker", broker.ID).
			Str("asset", asset.Symbol).
			Time("at", target)
		if price == engine.NoPrice {
			event.Msg("price request answered with no price")
			return
		}
		event.Float64("price", price).Msg("price request answered")
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("broker", broker.ID).
		Str("asset", asset.Symbol).
		Msg("new price request")
	return info, nil
}

func (s *Simulation) randomOffer(broker common.Broker, asset common.Asset) (*engine.Offer, error) {
	side := common.Buy
	if rand.IntN(2) == 1 {
		side = common.Sell
	}

	var quantity uint64
	if asset.Market == common.CommonMarket {
		quantity = uint64(rand.IntN(15)+1) * 100 // 100 to 1500
	} else {
		quantity = uint64(rand.IntN(99) + 1) // 1 to 99
	}
	price := float64(rand.IntN(10000)+1) / 100 // 0.01 to 100.00

	offer, err := engine.NewOffer(broker, asset, side, quantity, price)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("broker", broker.ID).
		Str("side", side.String()).
		Uint64("quantity", quantity).
		Str("asset", asset.Symbol).
		Float64("price", price).
		Msg("new offer")
	return offer, nil
}

func (s *Simulation) randomDelay() time.Duration {
	if s.cfg.MaxDelay <= s.cfg.MinDelay {
		return s.cfg.MinDelay
	}
	return s.cfg.MinDelay + rand.N(s.cfg.MaxDelay-s.cfg.MinDelay)
}

// OnTransaction logs every settled trade.
func (s *Simulation) OnTransaction(trade common.Trade) {
	log.Info().
		Uint64("quantity", trade.Quantity).
		Str("asset", trade.Asset.Symbol).
		Float64("price", trade.Price).
		Str("from", trade.Seller.ID).
		Str("to", trade.Buyer.ID).
		Msg("new transaction")
}

// simBroker plays the broker role for one catalog broker.
type simBroker struct {
	broker common.Broker
}

func (b *simBroker) OnNewOffer(offer *engine.Offer) {
	log.Debug().
		Str("broker", b.broker.ID).
		Str("offer", offer.ID().String()).
		Str("from", offer.Broker().ID).
		Str("side", offer.Side().String()).
		Str("asset", offer.Asset().Symbol).
		Msg("broker saw offer")
}
