// Package bybit decodes Bybit v5 market-data messages. Three topics are
// prefix-matched: orderbook.1 maps straight to a Bookticker,
// publicTrade to Trades, and orderbook.50 to a Depth5 derived from an
// incremental per-symbol order book (book.go).
//
// Trade ids are numeric on spot and UUID strings on linear futures; the
// UUID case is hashed with xxhash so the futures stream's table
// deduplicator can key on the same 64-bit value.
package bybit

import (
	"encoding/json"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/alephtx/mdgw/internal/model"
)

type envelope struct {
	Topic string          `json:"topic"`
	Type  string          `json:"type"`
	TS    int64           `json:"ts"`
	CTS   int64           `json:"cts"`
	Data  json.RawMessage `json:"data"`
}

type bookData struct {
	Symbol   string     `json:"s"`
	Bids     [][]string `json:"b"`
	Asks     [][]string `json:"a"`
	UpdateID uint64     `json:"u"`
}

type tradeData struct {
	TradeID string `json:"i"`
	Symbol  string `json:"s"`
	TradeTS int64  `json:"T"`
	Price   string `json:"p"`
	Vol     string `json:"v"`
	Side    string `json:"S"`
}

// Decoder carries the per-symbol order-book state the orderbook.50 topic
// needs. The book map sits behind a mutex because redundant connections
// invoke DecodeText concurrently for the same stream.
type Decoder struct {
	productType model.ProductType

	mu    sync.Mutex
	books map[string]*orderBook
}

// NewDecoder returns a Decoder producing records tagged with the given
// product type (spot or linear futures).
func NewDecoder(pt model.ProductType) *Decoder {
	return &Decoder{
		productType: pt,
		books:       make(map[string]*orderBook),
	}
}

// DecodeText decodes one Bybit JSON frame into zero or more normalized
// messages. Subscription acks and pong responses produce none.
func (d *Decoder) DecodeText(data []byte, localTS int64) []model.Message {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil
	}

	switch {
	case strings.HasPrefix(env.Topic, "orderbook.1."):
		return d.decodeBookTicker(env, localTS)
	case strings.HasPrefix(env.Topic, "publicTrade."):
		return d.decodeTrades(env, localTS)
	case strings.HasPrefix(env.Topic, "orderbook.50."):
		return d.decodeDepth(env, localTS)
	default:
		return nil
	}
}

func (d *Decoder) decodeBookTicker(env envelope, localTS int64) []model.Message {
	var data bookData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil
	}
	if len(data.Bids) == 0 || len(data.Asks) == 0 {
		return nil
	}
	bidPx, bidVol, ok1 := parseLevel(data.Bids[0])
	askPx, askVol, ok2 := parseLevel(data.Asks[0])
	if !ok1 || !ok2 {
		return nil
	}

	cts := env.CTS
	if cts == 0 {
		cts = env.TS
	}
	rec := model.Bookticker{
		Symbol:      model.SymbolFromString(data.Symbol),
		ProductType: d.productType,
		EventTS:     env.TS * 1000,
		TradeTS:     cts * 1000,
		UpdateID:    data.UpdateID,
		BidPrice:    bidPx,
		BidVol:      bidVol,
		AskPrice:    askPx,
		AskVol:      askVol,
		LocalTS:     localTS,
	}
	return []model.Message{{Kind: model.KindBookTicker, Bookticker: rec}}
}

func (d *Decoder) decodeTrades(env envelope, localTS int64) []model.Message {
	var items []tradeData
	if err := json.Unmarshal(env.Data, &items); err != nil {
		return nil
	}

	msgs := make([]model.Message, 0, len(items))
	for _, it := range items {
		price, ok1 := parseFloat(it.Price)
		vol, ok2 := parseFloat(it.Vol)
		if !ok1 || !ok2 || it.TradeID == "" {
			continue
		}
		msgs = append(msgs, model.Message{
			Kind: model.KindTrade,
			Trade: model.Trade{
				Symbol:       model.SymbolFromString(it.Symbol),
				ProductType:  d.productType,
				EventTS:      env.TS * 1000,
				TradeTS:      it.TradeTS * 1000,
				TradeID:      TradeID(it.TradeID),
				Price:        price,
				Vol:          vol,
				IsBuyerMaker: it.Side == "Sell",
				LocalTS:      localTS,
			},
		})
	}
	return msgs
}

func (d *Decoder) decodeDepth(env envelope, localTS int64) []model.Message {
	var data bookData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil
	}
	if data.Symbol == "" {
		return nil
	}

	bids := parseLevels(data.Bids)
	asks := parseLevels(data.Asks)

	d.mu.Lock()
	book, ok := d.books[data.Symbol]
	if !ok {
		book = newOrderBook()
		d.books[data.Symbol] = book
	}
	if env.Type == "delta" {
		book.update(bids, asks)
	} else {
		book.setSnapshot(bids, asks)
	}

	cts := env.CTS
	if cts == 0 {
		cts = env.TS
	}
	rec := model.Depth5{
		Symbol:      model.SymbolFromString(data.Symbol),
		ProductType: d.productType,
		EventTS:     env.TS * 1000,
		TradeTS:     cts * 1000,
		UpdateID:    data.UpdateID,
		LocalTS:     localTS,
	}
	rec.BidLevel, rec.AskLevel = book.top5(&rec.BidPrices, &rec.BidVols, &rec.AskPrices, &rec.AskVols)
	d.mu.Unlock()

	return []model.Message{{Kind: model.KindDepth5, Depth5: rec}}
}

// TradeID maps a raw Bybit trade id to the u64 carried in Trade records:
// numeric ids (spot) parse directly, UUID strings (futures) hash through
// xxhash so the table deduplicator can recover the same key.
func TradeID(raw string) uint64 {
	if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
		return id
	}
	return xxhash.Sum64String(raw)
}

func parseLevel(raw []string) (price, vol float64, ok bool) {
	if len(raw) < 2 {
		return 0, 0, false
	}
	price, ok1 := parseFloat(raw[0])
	vol, ok2 := parseFloat(raw[1])
	return price, vol, ok1 && ok2
}

func parseLevels(raw [][]string) []level {
	out := make([]level, 0, len(raw))
	for _, r := range raw {
		p, v, ok := parseLevel(r)
		if !ok {
			continue
		}
		out = append(out, level{price: p, vol: v})
	}
	return out
}

func parseFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}

// SubscribePayload bundles all three topics for every symbol into one
// subscribe request.
func SubscribePayload(symbols []string, reqID string) []byte {
	args := make([]string, 0, len(symbols)*3)
	for _, sym := range symbols {
		args = append(args, "publicTrade."+sym, "orderbook.1."+sym, "orderbook.50."+sym)
	}
	req := struct {
		ReqID string   `json:"req_id"`
		Op    string   `json:"op"`
		Args  []string `json:"args"`
	}{ReqID: reqID, Op: "subscribe", Args: args}
	out, _ := json.Marshal(req)
	return out
}
