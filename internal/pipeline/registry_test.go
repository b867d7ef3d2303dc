package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alephtx/mdgw/internal/config"
)

func TestBuildUnknownExchange(t *testing.T) {
	_, err := Build(&config.ConnectionConfig{Exchange: "deribit"}, testLogger())
	require.Error(t, err)
}

func TestBinanceStreamLayout(t *testing.T) {
	conn := &config.ConnectionConfig{
		Exchange:  "binance",
		ShmPrefix: "t_",
		Spot: &config.ProductConfig{
			Symbols: []string{"BTCUSDT"},
			ShmNames: config.ShmNames{
				Bbo: "spot_bbo", Agg: "spot_agg", Trade: "spot_trade", Depth5: "spot_depth5",
			},
		},
		Futures: &config.FuturesConfig{
			UBaseSymbols:   []string{"ETHUSDT"},
			UBaseConnCount: 3,
			ProductConfig: config.ProductConfig{
				ShmNames: config.ShmNames{Bbo: "ubase_bbo"},
			},
		},
	}
	streams := binanceStreams(conn)
	require.Len(t, streams, 3)

	// The spot JSON stream only persists aggregates; bbo/trade/depth
	// come from the SBE stream.
	jsonStream := streams[0]
	assert.Equal(t, "binance_spot_json", jsonStream.Label)
	assert.Equal(t, "t_spot_agg", jsonStream.Shm.Agg)
	assert.Empty(t, jsonStream.Shm.Bbo)
	assert.NotNil(t, jsonStream.TextDecoder)

	sbeStream := streams[1]
	assert.Equal(t, "binance_spot_sbe", sbeStream.Label)
	assert.Empty(t, sbeStream.Shm.Agg)
	assert.Equal(t, "t_spot_bbo", sbeStream.Shm.Bbo)
	assert.NotNil(t, sbeStream.BinaryDecoder)
	assert.Nil(t, sbeStream.TextDecoder)

	ubase := streams[2]
	assert.Equal(t, []string{"ETHUSDT"}, ubase.Symbols)
	assert.Equal(t, 3, ubase.ConnCount)
	assert.Equal(t, uint32(100_000), ubase.RingLen)
}

func TestOkxStreamSymbolConversion(t *testing.T) {
	conn := &config.ConnectionConfig{
		Exchange: "okx",
		Spot:     &config.ProductConfig{Symbols: []string{"BTCUSDT"}},
		Swap:     &config.ProductConfig{Symbols: []string{"ETHUSDT"}},
	}
	streams := okxStreams(conn)
	require.Len(t, streams, 2)
	assert.Equal(t, []string{"BTC-USDT"}, streams[0].Symbols)
	assert.Equal(t, []string{"ETH-USDT-SWAP"}, streams[1].Symbols)
	assert.Equal(t, []byte("ping"), streams[0].KeepAlive.Text)
}

func TestBybitFuturesUsesUUIDTable(t *testing.T) {
	conn := &config.ConnectionConfig{
		Exchange: "bybit",
		Futures: &config.FuturesConfig{
			ProductConfig: config.ProductConfig{Symbols: []string{"BTCUSDT"}},
		},
	}
	streams := bybitStreams(conn)
	require.Len(t, streams, 1)
	def := streams[0]
	require.NotNil(t, def.CustomTradeDedup)

	assert.True(t, def.CustomTradeDedup("BTCUSDT", 12345))
	assert.False(t, def.CustomTradeDedup("BTCUSDT", 12345))
	assert.True(t, def.CustomTradeDedup("BTCUSDT", 54321))
}
