package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWireRoundTrip_Bookticker(t *testing.T) {
	r := Bookticker{
		Symbol: SymbolFromString("BTCUSDT"), ProductType: ProductSpot,
		EventTS: 1672515782136000, TradeTS: 1672515782136000, UpdateID: 42,
		BidPrice: 16500.5, BidVol: 1.2, AskPrice: 16501.0, AskVol: 0.8,
		BidOrderCount: 3, AskOrderCount: 5, LocalTS: 1672515782137000,
	}
	encoded := EncodeBookticker(nil, r)
	require.Len(t, encoded, BookTickerWireSize)
	got, ok := DecodeBookticker(encoded)
	require.True(t, ok)
	require.Equal(t, r, got)
}

func TestWireRoundTrip_Trade(t *testing.T) {
	r := Trade{
		Symbol: SymbolFromString("ETHUSDT"), ProductType: ProductFutures,
		EventTS: 1, TradeTS: 2, TradeID: 123456789,
		Price: 2500.25, Vol: 0.5, IsBuyerMaker: true, LocalTS: 3,
	}
	encoded := EncodeTrade(nil, r)
	got, ok := DecodeTrade(encoded)
	require.True(t, ok)
	require.Equal(t, r, got)
}

func TestWireRoundTrip_AggTrade(t *testing.T) {
	r := AggTrade{
		Trade: Trade{
			Symbol: SymbolFromString("BTCUSDT"), ProductType: ProductSpot,
			EventTS: 1672515782136000, TradeTS: 1672515782136000, TradeID: 100,
			Price: 16500.50, Vol: 0.001, IsBuyerMaker: true, LocalTS: 42,
		},
		AggTradeID: 123456789, FirstTradeID: 100, LastTradeID: 105, Count: 6,
	}
	encoded := EncodeAggTrade(nil, r)
	got, ok := DecodeAggTrade(encoded)
	require.True(t, ok)
	require.Equal(t, r, got)
}

func TestWireRoundTrip_Depth5(t *testing.T) {
	r := Depth5{
		Symbol: SymbolFromString("BTCUSDT"), ProductType: ProductSpot,
		EventTS: 1, TradeTS: 2, UpdateID: 3, BidLevel: 2, AskLevel: 2,
		LastPrice: 100,
		BidPrices: [5]float64{100, 99, 0, 0, 0}, BidVols: [5]float64{1, 2, 0, 0, 0},
		AskPrices: [5]float64{101, 102, 0, 0, 0}, AskVols: [5]float64{1, 1, 0, 0, 0},
		BidCounts: [5]int32{1, 1, 0, 0, 0}, AskCounts: [5]int32{1, 1, 0, 0, 0},
		LocalTS: 4,
	}
	encoded := EncodeDepth5(nil, r)
	require.Len(t, encoded, Depth5WireSize)
	got, ok := DecodeDepth5(encoded)
	require.True(t, ok)
	require.Equal(t, r, got)
}

func TestDecode_ShortBufferRejected(t *testing.T) {
	_, ok := DecodeBookticker(make([]byte, 3))
	require.False(t, ok)
	_, ok = DecodeTrade(make([]byte, 3))
	require.False(t, ok)
	_, ok = DecodeAggTrade(make([]byte, 3))
	require.False(t, ok)
	_, ok = DecodeDepth5(make([]byte, 3))
	require.False(t, ok)
}
