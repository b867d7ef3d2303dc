package okx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alephtx/mdgw/internal/model"
)

func TestDecodeBboTbt(t *testing.T) {
	raw := []byte(`{
		"arg": {"channel": "bbo-tbt", "instId": "BTC-USDT"},
		"data": [{
			"asks": [["30000.1", "0.5", "0", "3"]],
			"bids": [["29999.9", "0.3", "0", "2"]],
			"ts": "1672515782136",
			"seqId": "123456789"
		}]
	}`)
	msgs := DecodeText(raw, 42)
	require.Len(t, msgs, 1)
	require.Equal(t, model.KindBookTicker, msgs[0].Kind)

	bbo := msgs[0].Bookticker
	assert.Equal(t, "BTC-USDT", bbo.Symbol.String())
	assert.InDelta(t, 30000.1, bbo.AskPrice, 0.01)
	assert.InDelta(t, 29999.9, bbo.BidPrice, 0.01)
	assert.Equal(t, uint64(123456789), bbo.UpdateID)
	assert.Equal(t, int32(3), bbo.AskOrderCount)
	assert.Equal(t, int32(2), bbo.BidOrderCount)
	assert.Equal(t, model.ProductSpot, bbo.ProductType)
	assert.Equal(t, int64(1672515782136000), bbo.EventTS)
	assert.Equal(t, int64(42), bbo.LocalTS)
}

func TestDecodeTradeSwap(t *testing.T) {
	raw := []byte(`{
		"arg": {"channel": "trades", "instId": "BTC-USDT-SWAP"},
		"data": [{
			"tradeId": "987654321",
			"px": "30001.5",
			"sz": "0.01",
			"side": "sell",
			"ts": "1672515782200"
		}]
	}`)
	msgs := DecodeText(raw, 0)
	require.Len(t, msgs, 1)
	require.Equal(t, model.KindTrade, msgs[0].Kind)

	tr := msgs[0].Trade
	assert.Equal(t, "BTC-USDT-SWAP", tr.Symbol.String())
	assert.InDelta(t, 30001.5, tr.Price, 0.01)
	assert.True(t, tr.IsBuyerMaker)
	assert.Equal(t, model.ProductFutures, tr.ProductType)
	assert.Equal(t, uint64(987654321), tr.TradeID)
}

func TestDecodeBooks5(t *testing.T) {
	raw := []byte(`{
		"arg": {"channel": "books5", "instId": "ETH-USDT"},
		"data": [{
			"asks": [["2000.1", "1", "0", "4"], ["2000.2", "2", "0", "1"]],
			"bids": [["1999.9", "3", "0", "2"]],
			"ts": "1672515782136",
			"seqId": "55"
		}]
	}`)
	msgs := DecodeText(raw, 0)
	require.Len(t, msgs, 1)

	d := msgs[0].Depth5
	assert.Equal(t, int32(2), d.AskLevel)
	assert.Equal(t, int32(1), d.BidLevel)
	assert.InDelta(t, 2000.1, d.AskPrices[0], 1e-9)
	assert.InDelta(t, 1999.9, d.BidPrices[0], 1e-9)
	assert.Equal(t, int32(4), d.AskCounts[0])
	assert.Equal(t, uint64(55), d.UpdateID)
	assert.Zero(t, d.AskPrices[2])
}

func TestPongAndAcksIgnored(t *testing.T) {
	assert.Empty(t, DecodeText([]byte("pong"), 0))
	assert.Empty(t, DecodeText([]byte(`{"event":"subscribe","arg":{"channel":"trades","instId":"BTC-USDT"}}`), 0))
	assert.Empty(t, DecodeText([]byte("not json"), 0))
}

func TestSymbolConversion(t *testing.T) {
	assert.Equal(t, "BTC-USDT", ToInstID("BTCUSDT"))
	assert.Equal(t, "ETH-USDC", ToInstID("ETHUSDC"))
	assert.Equal(t, "BTC-USDT", ToInstID("BTC-USDT"))
	assert.Equal(t, "BTC-USDT-SWAP", ToSwapInstID("BTCUSDT"))
}
