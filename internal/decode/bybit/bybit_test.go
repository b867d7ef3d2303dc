package bybit

import (
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alephtx/mdgw/internal/model"
)

func TestDecodeOrderbook1(t *testing.T) {
	raw := []byte(`{
		"topic": "orderbook.1.BTCUSDT",
		"type": "snapshot",
		"ts": 1672515782136,
		"cts": 1672515782135,
		"data": {
			"s": "BTCUSDT",
			"b": [["29999.9", "0.3"]],
			"a": [["30000.1", "0.5"]],
			"u": 123456789
		}
	}`)
	d := NewDecoder(model.ProductSpot)
	msgs := d.DecodeText(raw, 9)
	require.Len(t, msgs, 1)
	require.Equal(t, model.KindBookTicker, msgs[0].Kind)

	bbo := msgs[0].Bookticker
	assert.Equal(t, "BTCUSDT", bbo.Symbol.String())
	assert.InDelta(t, 29999.9, bbo.BidPrice, 0.01)
	assert.InDelta(t, 30000.1, bbo.AskPrice, 0.01)
	assert.Equal(t, uint64(123456789), bbo.UpdateID)
	assert.Equal(t, int64(1672515782136000), bbo.EventTS)
	assert.Equal(t, int64(1672515782135000), bbo.TradeTS)
}

func TestDecodePublicTradeSpot(t *testing.T) {
	raw := []byte(`{
		"topic": "publicTrade.BTCUSDT",
		"type": "snapshot",
		"ts": 1672515782136,
		"data": [{
			"i": "2100000000007542696",
			"T": 1672515782135,
			"p": "16578.50",
			"v": "0.001",
			"S": "Buy",
			"s": "BTCUSDT"
		}]
	}`)
	d := NewDecoder(model.ProductSpot)
	msgs := d.DecodeText(raw, 0)
	require.Len(t, msgs, 1)

	tr := msgs[0].Trade
	assert.Equal(t, uint64(2100000000007542696), tr.TradeID)
	assert.False(t, tr.IsBuyerMaker)
}

func TestDecodePublicTradeFuturesUUID(t *testing.T) {
	const id = "550e8400-e29b-41d4-a716-446655440000"
	raw := []byte(`{
		"topic": "publicTrade.BTCUSDT",
		"type": "snapshot",
		"ts": 1672515782136,
		"data": [{
			"i": "` + id + `",
			"T": 1672515782135,
			"p": "30000.00",
			"v": "0.01",
			"S": "Sell",
			"s": "BTCUSDT"
		}]
	}`)
	d := NewDecoder(model.ProductFutures)
	msgs := d.DecodeText(raw, 0)
	require.Len(t, msgs, 1)

	tr := msgs[0].Trade
	assert.True(t, tr.IsBuyerMaker)
	assert.Equal(t, xxhash.Sum64String(id), tr.TradeID)
}

func TestTradeIDGeneratedUUIDsHash(t *testing.T) {
	id := uuid.New().String()
	assert.Equal(t, xxhash.Sum64String(id), TradeID(id))
	assert.Equal(t, uint64(42), TradeID("42"))
}

func TestDecodeDepthSnapshotThenDelta(t *testing.T) {
	d := NewDecoder(model.ProductSpot)

	snap := []byte(`{
		"topic": "orderbook.50.BTCUSDT",
		"type": "snapshot",
		"ts": 1000,
		"data": {
			"s": "BTCUSDT",
			"b": [["100", "1"], ["99", "2"]],
			"a": [["101", "1"], ["102", "2"]],
			"u": 1
		}
	}`)
	msgs := d.DecodeText(snap, 0)
	require.Len(t, msgs, 1)
	require.Equal(t, int32(2), msgs[0].Depth5.BidLevel)

	delta := []byte(`{
		"topic": "orderbook.50.BTCUSDT",
		"type": "delta",
		"ts": 1001,
		"data": {
			"s": "BTCUSDT",
			"b": [["100", "5"], ["100.5", "3"]],
			"a": [],
			"u": 2
		}
	}`)
	msgs = d.DecodeText(delta, 0)
	require.Len(t, msgs, 1)

	dep := msgs[0].Depth5
	assert.Equal(t, int32(3), dep.BidLevel)
	assert.InDelta(t, 100.5, dep.BidPrices[0], 1e-9)
	assert.InDelta(t, 3.0, dep.BidVols[0], 1e-9)
	assert.InDelta(t, 100.0, dep.BidPrices[1], 1e-9)
	assert.InDelta(t, 5.0, dep.BidVols[1], 1e-9)
	assert.InDelta(t, 99.0, dep.BidPrices[2], 1e-9)
	assert.InDelta(t, 2.0, dep.BidVols[2], 1e-9)
	assert.Equal(t, uint64(2), dep.UpdateID)
}

func TestNonTopicFramesIgnored(t *testing.T) {
	d := NewDecoder(model.ProductSpot)
	assert.Empty(t, d.DecodeText([]byte(`{"op":"pong","req_id":"3002"}`), 0))
	assert.Empty(t, d.DecodeText([]byte("garbage"), 0))
}
