package engine

import (
	"sync"
	"time"

	"tradingfloor/internal/common"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// --- Setup & Helpers --------------------------------------------------------

var (
	alice = common.Broker{ID: "ALICE", Name: "Alice Corretora"}
	bob   = common.Broker{ID: "BOB", Name: "Bob Investimentos"}
	carol = common.Broker{ID: "CAROL", Name: "Carol Capital"}

	petr3  = common.NewCommonAsset("PETR", common.CommonShare)
	petr3f = common.NewFractionalAsset(petr3)
	petr4  = common.NewCommonAsset("PETR", common.PreferredShare)

	epoch = time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)
)

// at returns an instant n milliseconds after the epoch.
func at(n int) time.Time {
	return epoch.Add(time.Duration(n) * time.Millisecond)
}

func createTestEngine(t require.TestingT, brokers ...common.Broker) *Engine {
	if len(brokers) == 0 {
		brokers = []common.Broker{alice, bob, carol}
	}
	catalog, err := common.NewCatalog(common.Company{
		Symbol:       "PETR",
		Name:         "Petrobras",
		ShareClasses: []common.ShareClass{common.CommonShare, common.PreferredShare},
	})
	require.NoError(t, err)

	eng, err := New(catalog, brokers, WithLogger(zerolog.Nop()), WithClock(func() time.Time { return epoch }))
	require.NoError(t, err)
	return eng
}

func placeTestOffer(t require.TestingT, eng *Engine, instant time.Time, broker common.Broker, asset common.Asset, side common.Side, quantity uint64, price float64) *Offer {
	offer, err := NewOfferAt(instant, broker, asset, side, quantity, price)
	require.NoError(t, err)
	require.NoError(t, eng.RegisterOperation(offer))
	return offer
}

// tradeRecorder collects every settled trade.
type tradeRecorder struct {
	mu     sync.Mutex
	trades []common.Trade
}

func (r *tradeRecorder) OnTransaction(trade common.Trade) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trades = append(r.trades, trade)
}

func (r *tradeRecorder) Trades() []common.Trade {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]common.Trade(nil), r.trades...)
}

// offerRecorder collects every announced offer.
type offerRecorder struct {
	mu     sync.Mutex
	offers []*Offer
}

func (r *offerRecorder) OnNewOffer(offer *Offer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.offers = append(r.offers, offer)
}

func (r *offerRecorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.offers)
}

func quantityOf(t require.TestingT, eng *Engine, broker common.Broker, asset common.Asset) int64 {
	w, err := eng.Wallet(broker)
	require.NoError(t, err)
	return w.Quantity(asset)
}
