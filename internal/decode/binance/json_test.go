package binance

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alephtx/mdgw/internal/model"
)

func TestDecodeText_AggTrade(t *testing.T) {
	raw := []byte(`{"e":"aggTrade","E":1672515782136,"s":"BTCUSDT","a":123456789,"p":"16500.50","q":"0.001","f":100,"l":105,"T":1672515782136,"m":true}`)
	msgs := DecodeText(raw, 99)
	require.Len(t, msgs, 1)
	require.Equal(t, model.KindAggTrade, msgs[0].Kind)
	rec := msgs[0].AggTrade
	require.Equal(t, "BTCUSDT", rec.Symbol.String())
	require.InDelta(t, 16500.50, rec.Price, 1e-9)
	require.Equal(t, uint64(123456789), rec.AggTradeID)
	require.Equal(t, int64(1672515782136000), rec.EventTS)
	require.True(t, rec.IsBuyerMaker)
	require.Equal(t, model.ProductSpot, rec.ProductType)
}

func TestDecodeText_AggTradeFutures(t *testing.T) {
	raw := []byte(`{"e":"aggTrade","E":1,"s":"BTCUSDT","a":1,"p":"1","q":"1","f":1,"l":1,"T":1,"m":false,"ps":"BOTH"}`)
	msgs := DecodeText(raw, 0)
	require.Len(t, msgs, 1)
	require.Equal(t, model.ProductFutures, msgs[0].AggTrade.ProductType)
}

func TestDecodeText_CombinedStreamEnvelope(t *testing.T) {
	raw := []byte(`{"stream":"btcusdt@aggTrade","data":{"e":"aggTrade","E":1,"s":"BTCUSDT","a":1,"p":"1","q":"1","f":1,"l":1,"T":1,"m":false}}`)
	msgs := DecodeText(raw, 0)
	require.Len(t, msgs, 1)
}

func TestDecodeText_BookTicker(t *testing.T) {
	raw := []byte(`{"e":"bookTicker","u":400900217,"s":"BNBUSDT","b":"25.35190000","B":"31.21000000","a":"25.36520000","A":"40.66000000","E":1,"T":1}`)
	msgs := DecodeText(raw, 5)
	require.Len(t, msgs, 1)
	rec := msgs[0].Bookticker
	require.InDelta(t, 25.35190000, rec.BidPrice, 1e-9)
	require.InDelta(t, 25.36520000, rec.AskPrice, 1e-9)
	require.Equal(t, int64(5), rec.LocalTS)
}

func TestDecodeText_UnknownEventDropped(t *testing.T) {
	require.Nil(t, DecodeText([]byte(`{"e":"unknownEvent"}`), 0))
	require.Nil(t, DecodeText([]byte(`not json`), 0))
}

func TestSubscribePayload(t *testing.T) {
	payload := SubscribePayload([]string{"BTCUSDT", "ETHUSDT"}, 1, "bookTicker")
	require.Contains(t, string(payload), `"btcusdt@bookTicker"`)
	require.Contains(t, string(payload), `"ethusdt@bookTicker"`)
	require.Contains(t, string(payload), `"method":"SUBSCRIBE"`)

	ubase := SubscribeUBasePayload([]string{"BTCUSDT"}, 1)
	require.Contains(t, string(ubase), `"btcusdt@aggTrade"`)
	require.Contains(t, string(ubase), `"btcusdt@depth5@100ms"`)
}
