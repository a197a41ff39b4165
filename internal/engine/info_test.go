package engine

import (
	"testing"
	"time"

	"tradingfloor/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInfo(t *testing.T) {
	info, err := NewInfoAt(at(5), alice, petr3, at(2), func(float64) {})
	require.NoError(t, err)

	assert.Equal(t, InfoKind, info.Kind())
	assert.Equal(t, alice, info.Broker())
	assert.Equal(t, petr3, info.Asset())
	assert.Equal(t, at(5), info.Instant())
	assert.Equal(t, at(2), info.Target())
	assert.False(t, info.Answered())
}

func TestNewInfo_Validation(t *testing.T) {
	_, err := NewInfoAt(at(0), alice, petr3, at(0), nil)
	assert.ErrorIs(t, err, common.ErrNullArgument)

	_, err = NewInfoAt(at(0), alice, petr3, time.Time{}, func(float64) {})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = NewInfoAt(at(0), common.Broker{}, petr3, at(0), func(float64) {})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = NewInfoAt(at(0), alice, common.Asset{}, at(0), func(float64) {})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestInfo_AnsweredOnce(t *testing.T) {
	eng := createTestEngine(t)
	book, err := eng.OrderBook(petr3f)
	require.NoError(t, err)

	// 1. A trade happens at t=1, t=2.
	placeTestOffer(t, eng, at(1), alice, petr3f, common.Buy, 10, 10)
	placeTestOffer(t, eng, at(2), bob, petr3f, common.Sell, 10, 8)
	eng.ProcessAll()

	// 2. Request the price at t=3.
	var answers []float64
	info, err := NewInfoAt(at(4), carol, petr3f, at(3), func(price float64) {
		answers = append(answers, price)
	})
	require.NoError(t, err)
	require.NoError(t, eng.RegisterOperation(info))
	assert.False(t, info.Answered())

	// 3. Many ticks, a single answer.
	for i := 0; i < 5; i++ {
		eng.ProcessAll()
	}
	assert.True(t, info.Answered())
	assert.Equal(t, []float64{8}, answers)
	assert.Len(t, book.Infos(), 1)
}

func TestInfo_NoPrice(t *testing.T) {
	eng := createTestEngine(t)

	var answers []float64
	info, err := NewInfoAt(at(1), carol, petr3, at(1), func(price float64) {
		answers = append(answers, price)
	})
	require.NoError(t, err)
	require.NoError(t, eng.RegisterOperation(info))

	eng.ProcessAll()
	eng.ProcessAll()
	assert.Equal(t, []float64{NoPrice}, answers)
}

func TestInfo_PanickingCallbackIsNotRetried(t *testing.T) {
	eng := createTestEngine(t)
	book, err := eng.OrderBook(petr3)
	require.NoError(t, err)

	calls := 0
	info, err := NewInfoAt(at(0), carol, petr3, at(0), func(float64) {
		calls++
		panic("callback failure")
	})
	require.NoError(t, err)
	require.NoError(t, book.Register(info))

	stats, err := book.Process(eng)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)

	stats, err = book.Process(eng)
	require.NoError(t, err)
	assert.Zero(t, stats.Failed)
	assert.Equal(t, 1, calls)
}
