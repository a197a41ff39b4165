package engine

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"tradingfloor/internal/common"
	"tradingfloor/internal/wallet"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Engine is the exchange. It owns one order book per listed asset and one
// wallet per broker, routes submitted operations to their book and settles
// matches into the wallets.
//
// Nothing runs in the background: a scheduler drives matching by calling
// ProcessAll (or OrderBook.Process) on a fixed period.
type Engine struct {
	log zerolog.Logger
	now func() time.Time

	catalog *common.Catalog
	books   map[string]*OrderBook
	brokers map[string]common.Broker
	wallets map[string]*wallet.Wallet

	observersLock sync.RWMutex
	observers     []TransactionObserver
}

type Option func(*Engine)

func WithLogger(logger zerolog.Logger) Option {
	return func(engine *Engine) {
		engine.log = logger
	}
}

// WithClock overrides the clock stamping settled transactions.
func WithClock(now func() time.Time) Option {
	return func(engine *Engine) {
		engine.now = now
	}
}

func New(catalog *common.Catalog, brokers []common.Broker, opts ...Option) (*Engine, error) {
	if catalog == nil {
		return nil, fmt.Errorf("%w: catalog", common.ErrNullArgument)
	}

	engine := &Engine{
		log:     log.Logger,
		now:     time.Now,
		catalog: catalog,
		books:   make(map[string]*OrderBook),
		brokers: make(map[string]common.Broker, len(brokers)),
		wallets: make(map[string]*wallet.Wallet, len(brokers)),
	}
	for _, opt := range opts {
		opt(engine)
	}

	for _, asset := range catalog.Assets() {
		engine.books[asset.Symbol] = newOrderBook(asset, engine.log)
	}

	for _, broker := range brokers {
		if broker.ID == "" {
			return nil, fmt.Errorf("%w: broker without id", common.ErrValidation)
		}
		if _, ok := engine.brokers[broker.ID]; ok {
			return nil, fmt.Errorf("%w: duplicate broker %s", common.ErrValidation, broker.ID)
		}
		engine.brokers[broker.ID] = broker
		engine.wallets[broker.ID] = wallet.New(broker)
	}

	return engine, nil
}

func (engine *Engine) Catalog() *common.Catalog {
	return engine.catalog
}

// RegisterOperation routes the operation to the book of its asset.
func (engine *Engine) RegisterOperation(op Operation) error {
	if isNil(op) {
		return fmt.Errorf("%w: operation", common.ErrNullArgument)
	}

	book, err := engine.OrderBook(op.Asset())
	if err != nil {
		return err
	}
	if _, err := engine.Broker(op.Broker().ID); err != nil {
		return err
	}

	if err := book.Register(op); err != nil {
		return err
	}

	engine.log.Debug().
		Str("operation", op.ID().String()).
		Str("kind", op.Kind().String()).
		Str("asset", op.Asset().Symbol).
		Str("broker", op.Broker().ID).
		Msg("operation registered")
	return nil
}

func (engine *Engine) OrderBook(asset common.Asset) (*OrderBook, error) {
	return engine.OrderBookBySymbol(asset.Symbol)
}

func (engine *Engine) OrderBookBySymbol(symbol string) (*OrderBook, error) {
	book, ok := engine.books[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrUnknownAsset, symbol)
	}
	return book, nil
}

// OrderBooks returns every book sorted by asset symbol.
func (engine *Engine) OrderBooks() []*OrderBook {
	books := make([]*OrderBook, 0, len(engine.books))
	for _, book := range engine.books {
		books = append(books, book)
	}
	sort.Slice(books, func(i, j int) bool {
		return books[i].asset.Symbol < books[j].asset.Symbol
	})
	return books
}

func (engine *Engine) Assets() []common.Asset {
	return engine.catalog.Assets()
}

func (engine *Engine) Broker(id string) (common.Broker, error) {
	broker, ok := engine.brokers[id]
	if !ok {
		return common.Broker{}, fmt.Errorf("%w: %s", common.ErrUnknownBroker, id)
	}
	return broker, nil
}

// Brokers returns every broker sorted by id.
func (engine *Engine) Brokers() []common.Broker {
	brokers := make([]common.Broker, 0, len(engine.brokers))
	for _, broker := range engine.brokers {
		brokers = append(brokers, broker)
	}
	sort.Slice(brokers, func(i, j int) bool {
		return brokers[i].ID < brokers[j].ID
	})
	return brokers
}

func (engine *Engine) Wallet(broker common.Broker) (*wallet.Wallet, error) {
	w, ok := engine.wallets[broker.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrUnknownBroker, broker.ID)
	}
	return w, nil
}

// Observe subscribes to settled trades. Subscribing twice has no effect.
func (engine *Engine) Observe(observer TransactionObserver) error {
	if observer == nil {
		return fmt.Errorf("%w: transaction observer", common.ErrNullArgument)
	}

	engine.observersLock.Lock()
	defer engine.observersLock.Unlock()

	for _, existing := range engine.observers {
		if existing == observer {
			return nil
		}
	}
	engine.observers = append(engine.observers, observer)
	return nil
}

// Settlement is a trade whose ledger entries are built and whose wallets are
// resolved, ready to be posted.
type Settlement struct {
	trade        common.Trade
	sellerWallet *wallet.Wallet
	buyerWallet  *wallet.Wallet
	debit        wallet.Transaction
	credit       wallet.Transaction
}

func (s *Settlement) Trade() common.Trade {
	return s.trade
}

// Prepare resolves both wallets and builds both ledger entries of a trade
// without posting anything.
func (engine *Engine) Prepare(seller, buyer common.Broker, asset common.Asset, quantity uint64, price float64) (*Settlement, error) {
	sellerWallet, err := engine.Wallet(seller)
	if err != nil {
		return nil, err
	}
	buyerWallet, err := engine.Wallet(buyer)
	if err != nil {
		return nil, err
	}
	if quantity > math.MaxInt64 {
		return nil, fmt.Errorf("%w: trade quantity overflows the ledger: %d", common.ErrValidation, quantity)
	}

	now := engine.now()
	debit, err := wallet.NewTransaction(-int64(quantity), price, now)
	if err != nil {
		return nil, err
	}
	credit, err := wallet.NewTransaction(int64(quantity), price, now)
	if err != nil {
		return nil, err
	}

	return &Settlement{
		trade: common.Trade{
			Seller:    seller,
			Buyer:     buyer,
			Asset:     asset,
			Quantity:  quantity,
			Price:     price,
			Timestamp: now,
		},
		sellerWallet: sellerWallet,
		buyerWallet:  buyerWallet,
		debit:        debit,
		credit:       credit,
	}, nil
}

// Post debits the seller and credits the buyer, then notifies the
// transaction observers.
func (engine *Engine) Post(settlement *Settlement) {
	trade := settlement.trade
	settlement.sellerWallet.RegisterTransaction(trade.Asset, settlement.debit)
	settlement.buyerWallet.RegisterTransaction(trade.Asset, settlement.credit)

	engine.log.Debug().
		Str("asset", trade.Asset.Symbol).
		Str("seller", trade.Seller.ID).
		Str("buyer", trade.Buyer.ID).
		Uint64("quantity", trade.Quantity).
		Float64("price", trade.Price).
		Msg("trade settled")

	engine.notify(trade)
}

// Settle prepares and posts a trade. Nothing is posted if either entry is
// invalid.
func (engine *Engine) Settle(seller, buyer common.Broker, asset common.Asset, quantity uint64, price float64) error {
	settlement, err := engine.Prepare(seller, buyer, asset, quantity, price)
	if err != nil {
		return err
	}
	engine.Post(settlement)
	return nil
}

// notify isolates the ledger from observer failures: the trade is already
// posted when observers run.
func (engine *Engine) notify(trade common.Trade) {
	engine.observersLock.RLock()
	observers := append([]TransactionObserver(nil), engine.observers...)
	engine.observersLock.RUnlock()

	for _, observer := range observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					engine.log.Error().
						Interface("panic", r).
						Str("asset", trade.Asset.Symbol).
						Msg("transaction observer panicked")
				}
			}()
			observer.OnTransaction(trade)
		}()
	}
}

// ProcessAll runs one pass over every book in symbol order.
func (engine *Engine) ProcessAll() TickStats {
	var total TickStats
	for _, book := range engine.OrderBooks() {
		stats, err := book.Process(engine)
		if err != nil {
			engine.log.Error().Err(err).Str("asset", book.asset.Symbol).Msg("unable to process book")
			continue
		}
		total = total.Add(stats)
	}
	return total
}
