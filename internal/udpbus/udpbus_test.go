package udpbus

import (
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"github.com/alephtx/mdgw/internal/model"
)

func TestSenderReceiver_RoundTrip(t *testing.T) {
	logger := log.New(io.Discard)

	recv, err := NewReceiver("127.0.0.1:0", Callbacks{}, logger)
	require.NoError(t, err)
	defer recv.Close()

	got := make(chan model.Trade, 1)
	recv.cb.OnTrade = func(r model.Trade) { got <- r }

	go recv.Run()

	sender, err := NewSender(recv.conn.LocalAddr().String(), logger)
	require.NoError(t, err)
	defer sender.Close()

	want := model.Trade{
		Symbol: model.SymbolFromString("BTCUSDT"), ProductType: model.ProductSpot,
		EventTS: 1, TradeTS: 2, TradeID: 99, Price: 100.5, Vol: 0.1,
		IsBuyerMaker: true, LocalTS: 3,
	}
	sender.SendTrade(want)

	select {
	case r := <-got:
		require.Equal(t, want, r)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for datagram")
	}
}

func TestReceiver_UnknownTagDropped(t *testing.T) {
	logger := log.New(io.Discard)
	recv, err := NewReceiver("127.0.0.1:0", Callbacks{}, logger)
	require.NoError(t, err)
	defer recv.Close()

	// must not panic
	recv.dispatch([]byte{250, 1, 2, 3})
	recv.dispatch(nil)
}
