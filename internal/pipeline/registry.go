package pipeline

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/alephtx/mdgw/internal/config"
	"github.com/alephtx/mdgw/internal/decode/binance"
	"github.com/alephtx/mdgw/internal/decode/bitget"
	"github.com/alephtx/mdgw/internal/decode/bybit"
	"github.com/alephtx/mdgw/internal/decode/okx"
	"github.com/alephtx/mdgw/internal/dedup"
	"github.com/alephtx/mdgw/internal/model"
	"github.com/alephtx/mdgw/internal/udpbus"
	"github.com/alephtx/mdgw/internal/wsconn"
)

const (
	binanceSpotURL    = "wss://stream.binance.com:443/ws"
	binanceSpotSbeURL = "wss://stream-sbe.binance.com:9443/stream"
	binanceUBaseURL   = "wss://fstream.binance.com:443/ws"
	okxURL            = "wss://ws.okx.com:8443/ws/v5/public"
	bitgetURL         = "wss://ws.bitget.com:443/v2/ws/public"
	bybitSpotURL      = "wss://stream.bybit.com:443/v5/public/spot"
	bybitLinearURL    = "wss://stream.bybit.com:443/v5/public/linear"
)

const defaultPingIntervalSec = 25

// Build creates the engine for one configured venue connection,
// including its optional UDP fan-out sender. The udp exchange kind is
// handled by udpbus.NewModule, not here.
func Build(conn *config.ConnectionConfig, logger *log.Logger) (*Engine, error) {
	var streams []*StreamDef
	var err error

	switch conn.Exchange {
	case "binance":
		streams = binanceStreams(conn)
	case "okx":
		streams = okxStreams(conn)
	case "bitget":
		streams = bitgetStreams(conn)
	case "bybit":
		streams = bybitStreams(conn)
	default:
		return nil, fmt.Errorf("unknown exchange %q", conn.Exchange)
	}

	var sender *udpbus.Sender
	if conn.UDPSender != nil && conn.UDPSender.IsEnabled() {
		addr := net.JoinHostPort(conn.UDPSender.IP, strconv.Itoa(conn.UDPSender.Port))
		if sender, err = udpbus.NewSender(addr, logger); err != nil {
			return nil, fmt.Errorf("udp sender %s: %w", addr, err)
		}
	}

	return NewEngine(conn.Exchange, streams, sender, logger), nil
}

// shared fills the redundancy and sizing fields every stream inherits
// from its connection block.
func shared(conn *config.ConnectionConfig, def *StreamDef, p *config.ProductConfig) *StreamDef {
	def.RingLen = conn.EffectiveMdSize()
	def.HeartbeatInterval = time.Duration(conn.HeartbeatIntervalSec) * time.Second
	def.ReplaceThreshold = uint64(conn.RedunResetOnThreshold)
	def.LatencyPrintInterval = time.Duration(conn.LatencyPrintIntervalMS) * time.Millisecond
	if p != nil {
		def.ConnCount = p.EffectiveConnCount()
		def.DedupCPUCore = p.CPUAffinityDedup
		def.Headers = toHeaders(p.ExtraHeaders)
		def.Shm = ShmNames{
			Bbo:    prefixed(conn.ShmPrefix, p.ShmNames.Bbo),
			Agg:    prefixed(conn.ShmPrefix, p.ShmNames.Agg),
			Trade:  prefixed(conn.ShmPrefix, p.ShmNames.Trade),
			Depth5: prefixed(conn.ShmPrefix, p.ShmNames.Depth5),
		}
	}
	return def
}

func prefixed(prefix, name string) string {
	if name == "" {
		return ""
	}
	return prefix + name
}

func toHeaders(m map[string]string) http.Header {
	if len(m) == 0 {
		return nil
	}
	h := make(http.Header, len(m))
	for k, v := range m {
		h.Set(k, v)
	}
	return h
}

func pingInterval(conn *config.ConnectionConfig) time.Duration {
	sec := conn.PingIntervalSec
	if sec == 0 {
		sec = defaultPingIntervalSec
	}
	return time.Duration(sec) * time.Second
}

// binanceStreams produces up to three streams: spot JSON (aggTrade
// only), spot SBE (bbo/trade/depth over the binary protocol), and the
// USDT-margined futures JSON stream carrying all four kinds. Binance
// pings from the server side, so no keep-alive is configured.
func binanceStreams(conn *config.ConnectionConfig) []*StreamDef {
	var streams []*StreamDef

	if conn.Spot != nil && len(conn.Spot.Symbols) > 0 {
		spot := conn.Spot
		streams = append(streams, shared(conn, &StreamDef{
			Label:       "binance_spot_json",
			URL:         binanceSpotURL,
			Subscribe:   binance.SubscribePayload(spot.Symbols, 1, "aggTrade"),
			Symbols:     spot.Symbols,
			TextDecoder: binance.DecodeText,
		}, spot))
		// JSON stream carries aggregates only; bbo/trade/depth come
		// from the SBE stream below.
		streams[len(streams)-1].Shm.Bbo = ""
		streams[len(streams)-1].Shm.Trade = ""
		streams[len(streams)-1].Shm.Depth5 = ""

		sbe := shared(conn, &StreamDef{
			Label:         "binance_spot_sbe",
			URL:           binanceSpotSbeURL,
			Subscribe:     binance.SubscribeSBEPayload(spot.Symbols, 1),
			Symbols:       spot.Symbols,
			BinaryDecoder: binance.DecodeBinary,
		}, spot)
		sbe.Shm.Agg = ""
		sbe.DedupCPUCore = spot.CPUAffinityDedupSBE
		streams = append(streams, sbe)
	}

	if conn.Futures != nil {
		syms := conn.Futures.EffectiveSymbols()
		if len(syms) > 0 {
			def := shared(conn, &StreamDef{
				Label:       "binance_ubase",
				URL:         binanceUBaseURL,
				Subscribe:   binance.SubscribeUBasePayload(syms, 1),
				Symbols:     syms,
				TextDecoder: binance.DecodeText,
			}, &conn.Futures.ProductConfig)
			def.ConnCount = conn.Futures.EffectiveConnCount()
			streams = append(streams, def)
		}
	}

	return streams
}

// okxStreams produces a spot stream and a swap stream, converting plain
// symbols to OKX instIds at subscription time.
func okxStreams(conn *config.ConnectionConfig) []*StreamDef {
	ka := &wsconn.KeepAlive{Interval: pingInterval(conn), Text: []byte("ping")}
	var streams []*StreamDef

	if conn.Spot != nil && len(conn.Spot.Symbols) > 0 {
		instIDs := make([]string, len(conn.Spot.Symbols))
		for i, s := range conn.Spot.Symbols {
			instIDs[i] = okx.ToInstID(s)
		}
		streams = append(streams, shared(conn, &StreamDef{
			Label:       "okx_spot",
			URL:         okxURL,
			Subscribe:   okx.SubscribePayload(instIDs, "3000"),
			KeepAlive:   ka,
			Symbols:     instIDs,
			TextDecoder: okx.DecodeText,
		}, conn.Spot))
	}

	if conn.Swap != nil && len(conn.Swap.Symbols) > 0 {
		instIDs := make([]string, len(conn.Swap.Symbols))
		for i, s := range conn.Swap.Symbols {
			instIDs[i] = okx.ToSwapInstID(s)
		}
		streams = append(streams, shared(conn, &StreamDef{
			Label:       "okx_swap",
			URL:         okxURL,
			Subscribe:   okx.SubscribePayload(instIDs, "3001"),
			KeepAlive:   ka,
			Symbols:     instIDs,
			TextDecoder: okx.DecodeText,
		}, conn.Swap))
	}

	return streams
}

func bitgetStreams(conn *config.ConnectionConfig) []*StreamDef {
	ka := &wsconn.KeepAlive{Interval: pingInterval(conn), Text: []byte("ping")}
	var streams []*StreamDef

	if conn.Spot != nil && len(conn.Spot.Symbols) > 0 {
		streams = append(streams, shared(conn, &StreamDef{
			Label:       "bitget_spot",
			URL:         bitgetURL,
			Subscribe:   bitget.SubscribePayload(conn.Spot.Symbols, "SPOT"),
			KeepAlive:   ka,
			Symbols:     conn.Spot.Symbols,
			TextDecoder: bitget.DecodeText,
		}, conn.Spot))
	}

	if conn.Futures != nil {
		syms := conn.Futures.EffectiveSymbols()
		if len(syms) > 0 {
			def := shared(conn, &StreamDef{
				Label:       "bitget_futures",
				URL:         bitgetURL,
				Subscribe:   bitget.SubscribePayload(syms, "USDT-FUTURES"),
				KeepAlive:   ka,
				Symbols:     syms,
				TextDecoder: bitget.DecodeText,
			}, &conn.Futures.ProductConfig)
			def.ConnCount = conn.Futures.EffectiveConnCount()
			streams = append(streams, def)
		}
	}

	return streams
}

// bybitStreams produces a spot stream and a linear-futures stream. The
// futures stream routes trade dedup through the fixed UUID table, since
// its trade ids are UUIDs hashed by the decoder rather than monotonic
// integers. The table sits behind a mutex: the closure runs on the
// worker thread while the decoder owns the rest of the stream state.
func bybitStreams(conn *config.ConnectionConfig) []*StreamDef {
	ka := &wsconn.KeepAlive{
		Interval: pingInterval(conn),
		JSON:     map[string]string{"req_id": "3002", "op": "ping"},
	}
	var streams []*StreamDef

	if conn.Spot != nil && len(conn.Spot.Symbols) > 0 {
		dec := bybit.NewDecoder(model.ProductSpot)
		streams = append(streams, shared(conn, &StreamDef{
			Label:       "bybit_spot",
			URL:         bybitSpotURL,
			Subscribe:   bybit.SubscribePayload(conn.Spot.Symbols, "3000"),
			KeepAlive:   ka,
			Symbols:     conn.Spot.Symbols,
			TextDecoder: dec.DecodeText,
		}, conn.Spot))
	}

	if conn.Futures != nil {
		syms := conn.Futures.EffectiveSymbols()
		if len(syms) > 0 {
			dec := bybit.NewDecoder(model.ProductFutures)

			var mu sync.Mutex
			table := dedup.NewUUID()
			customDedup := func(_ string, tradeID uint64) bool {
				mu.Lock()
				defer mu.Unlock()
				return table.CheckAndInsert(strconv.FormatUint(tradeID, 10))
			}

			def := shared(conn, &StreamDef{
				Label:            "bybit_futures",
				URL:              bybitLinearURL,
				Subscribe:        bybit.SubscribePayload(syms, "3001"),
				KeepAlive:        ka,
				Symbols:          syms,
				TextDecoder:      dec.DecodeText,
				CustomTradeDedup: customDedup,
			}, &conn.Futures.ProductConfig)
			def.ConnCount = conn.Futures.EffectiveConnCount()
			streams = append(streams, def)
		}
	}

	return streams
}
