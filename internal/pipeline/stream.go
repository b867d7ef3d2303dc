// Package pipeline wires venue stream definitions to shared-memory
// stores, redundant WebSocket connections, and decode/dedup/publish
// workers. Each exchange contributes a build function returning
// []StreamDef (registry.go); the engine (engine.go) owns the rest.
package pipeline

import (
	"net/http"
	"time"

	"github.com/alephtx/mdgw/internal/model"
	"github.com/alephtx/mdgw/internal/shm"
	"github.com/alephtx/mdgw/internal/wsconn"
)

// TextDecoder turns one text frame into zero or more normalized
// messages. Decoders are pure; localTS is the arrival stamp.
type TextDecoder func(data []byte, localTS int64) []model.Message

// BinaryDecoder is the binary-frame analog of TextDecoder.
type BinaryDecoder func(data []byte, localTS int64) []model.Message

// TradeDeduper overrides the worker's monotonic trade dedup for venues
// whose trade ids are not monotonic (Bybit futures UUIDs). It reports
// whether the trade is new.
type TradeDeduper func(symbol string, tradeID uint64) bool

// ShmNames selects which per-record-kind stores a stream creates; an
// empty name skips that store.
type ShmNames struct {
	Bbo    string
	Agg    string
	Trade  string
	Depth5 string
}

// StreamDef describes one WebSocket-to-shared-memory pipeline. Exactly
// one of TextDecoder/BinaryDecoder must be set.
type StreamDef struct {
	Label     string
	URL       string
	Subscribe []byte
	KeepAlive *wsconn.KeepAlive
	Headers   http.Header

	Shm     ShmNames
	Symbols []string
	RingLen uint32

	ConnCount            int
	HeartbeatInterval    time.Duration
	ReplaceThreshold     uint64
	LatencyPrintInterval time.Duration

	TextDecoder   TextDecoder
	BinaryDecoder BinaryDecoder

	CustomTradeDedup TradeDeduper
	DedupCPUCore     *int
}

// Stores bundles the shared-memory stores one stream writes into. Any
// may be nil when the stream doesn't carry that record kind.
type Stores struct {
	Bbo    *shm.Store[model.Bookticker]
	Agg    *shm.Store[model.AggTrade]
	Trade  *shm.Store[model.Trade]
	Depth5 *shm.Store[model.Depth5]
}

// Close unmaps every store; backing files persist for readers.
func (s *Stores) Close() {
	if s.Bbo != nil {
		s.Bbo.Close()
	}
	if s.Agg != nil {
		s.Agg.Close()
	}
	if s.Trade != nil {
		s.Trade.Close()
	}
	if s.Depth5 != nil {
		s.Depth5.Close()
	}
}
