package bitget

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alephtx/mdgw/internal/model"
)

func TestDecodeBooks1(t *testing.T) {
	raw := []byte(`{
		"arg": {"instType": "SPOT", "channel": "books1", "instId": "BTCUSDT"},
		"ts": "1672515782136",
		"data": [{
			"asks": [["30000.1", "0.5"]],
			"bids": [["29999.9", "0.3"]],
			"ts": "1672515782135",
			"seq": "123456789"
		}]
	}`)
	msgs := DecodeText(raw, 7)
	require.Len(t, msgs, 1)
	require.Equal(t, model.KindBookTicker, msgs[0].Kind)

	bbo := msgs[0].Bookticker
	assert.Equal(t, "BTCUSDT", bbo.Symbol.String())
	assert.InDelta(t, 30000.1, bbo.AskPrice, 0.01)
	assert.Equal(t, uint64(123456789), bbo.UpdateID)
	assert.Equal(t, model.ProductSpot, bbo.ProductType)
	assert.Equal(t, int64(1672515782136000), bbo.EventTS)
	assert.Equal(t, int64(1672515782135000), bbo.TradeTS)
}

func TestDecodeTradeBatchReversed(t *testing.T) {
	raw := []byte(`{
		"arg": {"instType": "USDT-FUTURES", "channel": "trade", "instId": "BTCUSDT"},
		"data": [
			{"tradeId": "3", "price": "30002", "size": "0.1", "side": "buy", "ts": "1672515782138"},
			{"tradeId": "2", "price": "30001", "size": "0.2", "side": "sell", "ts": "1672515782137"},
			{"tradeId": "1", "price": "30000", "size": "0.3", "side": "buy", "ts": "1672515782136"}
		]
	}`)
	msgs := DecodeText(raw, 0)
	require.Len(t, msgs, 3)

	// Arrives newest-first, must come out oldest-first.
	assert.Equal(t, uint64(1), msgs[0].Trade.TradeID)
	assert.Equal(t, uint64(2), msgs[1].Trade.TradeID)
	assert.Equal(t, uint64(3), msgs[2].Trade.TradeID)
	assert.True(t, msgs[1].Trade.IsBuyerMaker)
	assert.False(t, msgs[0].Trade.IsBuyerMaker)
	assert.Equal(t, model.ProductFutures, msgs[0].Trade.ProductType)
}

func TestDecodeBooks5(t *testing.T) {
	raw := []byte(`{
		"arg": {"instType": "SPOT", "channel": "books5", "instId": "ETHUSDT"},
		"ts": "1672515782136",
		"data": [{
			"asks": [["2000.1", "1"], ["2000.2", "2"], ["2000.3", "3"]],
			"bids": [["1999.9", "4"]],
			"ts": "1672515782135",
			"seq": "42"
		}]
	}`)
	msgs := DecodeText(raw, 0)
	require.Len(t, msgs, 1)

	d := msgs[0].Depth5
	assert.Equal(t, int32(3), d.AskLevel)
	assert.Equal(t, int32(1), d.BidLevel)
	assert.InDelta(t, 2000.3, d.AskPrices[2], 1e-9)
	assert.Zero(t, d.AskPrices[3])
	assert.Equal(t, uint64(42), d.UpdateID)
}

func TestPongAndGarbageIgnored(t *testing.T) {
	assert.Empty(t, DecodeText([]byte("pong"), 0))
	assert.Empty(t, DecodeText([]byte(`{"event":"subscribe"}`), 0))
	assert.Empty(t, DecodeText([]byte("{"), 0))
}
