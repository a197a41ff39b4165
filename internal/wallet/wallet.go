package wallet

import (
	"sync"

	"tradingfloor/internal/common"

	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"
)

type history = btree.BTreeG[Transaction]

// Wallet is the ledger of a single broker. Transactions are filed under the
// parent asset so the common and fractional markets of an instrument share
// one balance.
type Wallet struct {
	broker common.Broker

	mu      sync.RWMutex
	seq     uint64
	entries map[string]*history // Parent symbol to ordered transactions.
}

func New(broker common.Broker) *Wallet {
	return &Wallet{
		broker:  broker,
		entries: make(map[string]*history),
	}
}

func (w *Wallet) Broker() common.Broker {
	return w.broker
}

// RegisterTransaction files the transaction under the asset's parent.
func (w *Wallet) RegisterTransaction(asset common.Asset, tx Transaction) {
	w.mu.Lock()
	defer w.mu.Unlock()

	entry, ok := w.entries[asset.Parent]
	if !ok {
		// The wallet lock already serializes access.
		entry = btree.NewBTreeGOptions(byInstant, btree.Options{NoLocks: true})
		w.entries[asset.Parent] = entry
	}

	w.seq++
	tx.seq = w.seq
	entry.Set(tx)
}

// Quantity is the net position held in the asset's parent. An asset that
// never traded has a zero position.
func (w *Wallet) Quantity(asset common.Asset) int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()

	entry, ok := w.entries[asset.Parent]
	if !ok {
		return 0
	}

	var total int64
	entry.Scan(func(tx Transaction) bool {
		total += tx.quantity
		return true
	})
	return total
}

// Balance is an alias of Quantity.
func (w *Wallet) Balance(asset common.Asset) int64 {
	return w.Quantity(asset)
}

// NetValue sums the signed notional of every transaction in the asset's
// parent. A broker that bought more than it sold has a positive net value.
func (w *Wallet) NetValue(asset common.Asset) decimal.Decimal {
	w.mu.RLock()
	defer w.mu.RUnlock()

	total := decimal.Zero
	entry, ok := w.entries[asset.Parent]
	if !ok {
		return total
	}
	entry.Scan(func(tx Transaction) bool {
		total = total.Add(tx.Value())
		return true
	})
	return total
}

// Transactions returns the asset's history in instant order.
func (w *Wallet) Transactions(asset common.Asset) []Transaction {
	w.mu.RLock()
	defer w.mu.RUnlock()

	entry, ok := w.entries[asset.Parent]
	if !ok {
		return nil
	}
	return entry.Items()
}

// Holdings maps every parent symbol with a non-zero position to its quantity.
func (w *Wallet) Holdings() map[string]int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()

	holdings := make(map[string]int64, len(w.entries))
	for symbol, entry := range w.entries {
		var total int64
		entry.Scan(func(tx Transaction) bool {
			total += tx.quantity
			return true
		})
		if total != 0 {
			holdings[symbol] = total
		}
	}
	return holdings
}
