package pipeline

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alephtx/mdgw/internal/model"
	"github.com/alephtx/mdgw/internal/shm"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{Level: log.ErrorLevel})
}

func TestWorkerDedupsRedundantUpdates(t *testing.T) {
	name := fmt.Sprintf("mdgw-test-worker-%d", os.Getpid())
	store, err := shm.New[model.Bookticker](name, []string{"BTCUSDT"}, 16)
	require.NoError(t, err)
	defer func() {
		store.Close()
		os.Remove("/dev/shm/" + name)
	}()

	ch := make(chan model.Message, 64)
	done := make(chan struct{})
	go func() {
		runWorker("test", ch, &Stores{Bbo: store}, nil, nil, nil, testLogger())
		close(done)
	}()

	// Redundant connections deliver duplicates and stale ids; only the
	// strictly increasing subsequence may reach the ring.
	ids := []uint64{1, 2, 2, 1, 3, 3, 4, 5, 4, 6}
	for _, id := range ids {
		ch <- model.Message{Kind: model.KindBookTicker, Bookticker: model.Bookticker{
			Symbol:   model.SymbolFromString("BTCUSDT"),
			UpdateID: id,
			BidPrice: float64(id),
		}}
	}
	close(ch)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not exit on channel close")
	}

	rec, ok := store.ReadLatest("BTCUSDT")
	require.True(t, ok)
	assert.Equal(t, uint64(6), rec.UpdateID)
}

func TestWorkerCustomTradeDedup(t *testing.T) {
	name := fmt.Sprintf("mdgw-test-trade-%d", os.Getpid())
	store, err := shm.New[model.Trade](name, []string{"BTCUSDT"}, 16)
	require.NoError(t, err)
	defer func() {
		store.Close()
		os.Remove("/dev/shm/" + name)
	}()

	var seen []uint64
	custom := func(_ string, tradeID uint64) bool {
		for _, s := range seen {
			if s == tradeID {
				return false
			}
		}
		seen = append(seen, tradeID)
		return true
	}

	ch := make(chan model.Message, 8)
	done := make(chan struct{})
	go func() {
		runWorker("test", ch, &Stores{Trade: store}, nil, custom, nil, testLogger())
		close(done)
	}()

	for _, id := range []uint64{7, 7, 9} {
		ch <- model.Message{Kind: model.KindTrade, Trade: model.Trade{
			Symbol:  model.SymbolFromString("BTCUSDT"),
			TradeID: id,
		}}
	}
	close(ch)
	<-done

	assert.Equal(t, []uint64{7, 9}, seen)
	rec, ok := store.ReadLatest("BTCUSDT")
	require.True(t, ok)
	assert.Equal(t, uint64(9), rec.TradeID)
}
