package pipeline

import (
	"runtime"

	"github.com/charmbracelet/log"

	"github.com/alephtx/mdgw/internal/dedup"
	"github.com/alephtx/mdgw/internal/model"
	"github.com/alephtx/mdgw/internal/udpbus"
)

// runWorker is the decode/dedup/publish loop: one per stream, running on
// a dedicated thread so it can be CPU-pinned. It owns four monotonic
// deduplicators (one per record kind) and terminates when in closes.
func runWorker(label string, in <-chan model.Message, stores *Stores, udp *udpbus.Sender, customTrade TradeDeduper, cpuCore *int, logger *log.Logger) {
	runtime.LockOSThread()
	if cpuCore != nil {
		if err := pinToCore(*cpuCore); err != nil {
			logger.Warn("cpu pin failed, continuing unpinned", "stream", label, "core", *cpuCore, "err", err)
		}
	}

	bboDedup := dedup.NewMonotonic()
	aggDedup := dedup.NewMonotonic()
	tradeDedup := dedup.NewMonotonic()
	depthDedup := dedup.NewMonotonic()

	logger.Info("worker started", "stream", label)

	for msg := range in {
		switch msg.Kind {
		case model.KindBookTicker:
			rec := msg.Bookticker
			sym := rec.Symbol.String()
			if !bboDedup.CheckAndUpdate(sym, rec.UpdateID) {
				continue
			}
			if stores.Bbo != nil {
				stores.Bbo.Write(sym, rec)
			}
			if udp != nil {
				udp.SendBookticker(rec)
			}

		case model.KindAggTrade:
			rec := msg.AggTrade
			sym := rec.Symbol.String()
			if !aggDedup.CheckAndUpdate(sym, rec.AggTradeID) {
				continue
			}
			if stores.Agg != nil {
				stores.Agg.Write(sym, rec)
			}
			if udp != nil {
				udp.SendAggTrade(rec)
			}

		case model.KindTrade:
			rec := msg.Trade
			sym := rec.Symbol.String()
			var fresh bool
			if customTrade != nil {
				fresh = customTrade(sym, rec.TradeID)
			} else {
				fresh = tradeDedup.CheckAndUpdate(sym, rec.TradeID)
			}
			if !fresh {
				continue
			}
			if stores.Trade != nil {
				stores.Trade.Write(sym, rec)
			}
			if udp != nil {
				udp.SendTrade(rec)
			}

		case model.KindDepth5:
			rec := msg.Depth5
			sym := rec.Symbol.String()
			if !depthDedup.CheckAndUpdate(sym, rec.UpdateID) {
				continue
			}
			if stores.Depth5 != nil {
				stores.Depth5.Write(sym, rec)
			}
			if udp != nil {
				udp.SendDepth5(rec)
			}
		}
	}

	logger.Info("worker exited", "stream", label)
}
