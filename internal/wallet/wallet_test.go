package wallet

import (
	"sync"
	"testing"
	"time"

	"tradingfloor/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	broker = common.Broker{ID: "XPI", Name: "XP Investimentos"}

	petr4  = common.NewCommonAsset("PETR", common.PreferredShare)
	petr4f = common.NewFractionalAsset(petr4)
	vale3  = common.NewCommonAsset("VALE", common.CommonShare)

	epoch = time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)
)

func createTestTransaction(t *testing.T, quantity int64, price float64, instant time.Time) Transaction {
	t.Helper()
	tx, err := NewTransaction(quantity, price, instant)
	require.NoError(t, err)
	return tx
}

func TestNewTransaction(t *testing.T) {
	tx := createTestTransaction(t, -30, 12.5, epoch)
	assert.Equal(t, int64(-30), tx.Quantity())
	assert.Equal(t, 12.5, tx.Price())
	assert.Equal(t, epoch, tx.Instant())
	assert.Equal(t, "-375", tx.Value().String())

	_, err := NewTransaction(0, 10, epoch)
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = NewTransaction(10, -1, epoch)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestWalletEmpty(t *testing.T) {
	w := New(broker)

	assert.Equal(t, broker, w.Broker())
	assert.Zero(t, w.Quantity(petr4))
	assert.Zero(t, w.Balance(petr4))
	assert.True(t, w.NetValue(petr4).IsZero())
	assert.Empty(t, w.Transactions(petr4))
	assert.Empty(t, w.Holdings())
}

func TestWalletParentBalance(t *testing.T) {
	w := New(broker)

	// 1. Trades on both markets of PETR4.
	w.RegisterTransaction(petr4, createTestTransaction(t, 100, 10, epoch))
	w.RegisterTransaction(petr4f, createTestTransaction(t, 50, 11, epoch.Add(time.Second)))
	w.RegisterTransaction(petr4f, createTestTransaction(t, -20, 12, epoch.Add(2*time.Second)))

	// 2. A trade on another asset.
	w.RegisterTransaction(vale3, createTestTransaction(t, -200, 60, epoch))

	assert.Equal(t, int64(130), w.Quantity(petr4))
	assert.Equal(t, int64(130), w.Quantity(petr4f))
	assert.Equal(t, int64(-200), w.Quantity(vale3))
	assert.Equal(t, "1310", w.NetValue(petr4f).String())
	assert.Equal(t, map[string]int64{"PETR4": 130, "VALE3": -200}, w.Holdings())
}

func TestWalletTransactionsOrder(t *testing.T) {
	w := New(broker)

	late := createTestTransaction(t, 1, 10, epoch.Add(time.Minute))
	early := createTestTransaction(t, 2, 10, epoch)
	tieA := createTestTransaction(t, 3, 10, epoch.Add(time.Second))
	tieB := createTestTransaction(t, 4, 10, epoch.Add(time.Second))

	for _, tx := range []Transaction{late, early, tieA, tieB} {
		w.RegisterTransaction(petr4f, tx)
	}

	var quantities []int64
	for _, tx := range w.Transactions(petr4) {
		quantities = append(quantities, tx.Quantity())
	}
	// Equal instants keep registration order.
	assert.Equal(t, []int64{2, 3, 4, 1}, quantities)
}

func TestWalletFlatPositionIsNotHeld(t *testing.T) {
	w := New(broker)
	w.RegisterTransaction(petr4, createTestTransaction(t, 100, 10, epoch))
	w.RegisterTransaction(petr4, createTestTransaction(t, -100, 11, epoch))

	assert.Zero(t, w.Quantity(petr4))
	assert.Empty(t, w.Holdings())
	assert.Len(t, w.Transactions(petr4), 2)
	assert.Equal(t, "-100", w.NetValue(petr4).String())
}

func TestWalletConcurrentRegistration(t *testing.T) {
	w := New(broker)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < 100; n++ {
				tx, err := NewTransaction(1, 10, epoch)
				if assert.NoError(t, err) {
					w.RegisterTransaction(petr4f, tx)
				}
				_ = w.Quantity(petr4)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(800), w.Quantity(petr4))
	assert.Len(t, w.Transactions(petr4), 800)
}
