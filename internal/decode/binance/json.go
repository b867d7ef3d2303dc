// Package binance decodes Binance market-data messages: the JSON
// stream shared by spot and USDT-margined futures (this file), and the
// spot-only binary Simple Binary Encoding stream (sbe.go). Messages are
// routed on the top-level "e" event field.
package binance

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/alephtx/mdgw/internal/model"
)

type envelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// rawEvent covers the aggTrade/trade field set, where Binance's "a"
// means AggTradeID and "t" means TradeID — bookTicker and depthUpdate
// reuse "a" for AskPrice/asks respectively, so those are decoded with
// their own structs below rather than overloading one JSON tag.
type rawEvent struct {
	EventType string `json:"e"`
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`

	// aggTrade
	AggTradeID   int64  `json:"a"`
	Price        string `json:"p"`
	Qty          string `json:"q"`
	FirstTradeID int64  `json:"f"`
	LastTradeID  int64  `json:"l"`
	TradeTime    int64  `json:"T"`
	IsBuyerMaker bool   `json:"m"`

	// trade
	TradeID int64 `json:"t"`

	// Futures presence marker: any market-data event carrying a
	// position-side field is treated as futures, spot otherwise.
	PositionSide *string `json:"ps,omitempty"`
}

// bookTickerEvent and depthEvent are decoded into separate structs
// because Binance's "a" field means AskPrice in a bookTicker payload
// but "asks" in a depth payload; rawEvent above can't carry both under
// the same JSON tag, so routing re-unmarshals into the precise shape.
type bookTickerEvent struct {
	EventType string `json:"e"`
	UpdateID  int64  `json:"u"`
	Symbol    string `json:"s"`
	BidPrice  string `json:"b"`
	BidQty    string `json:"B"`
	AskPrice  string `json:"a"`
	AskQty    string `json:"A"`
	EventTime int64  `json:"E"`
	TradeTime int64  `json:"T"`
	PosSide   *string `json:"ps,omitempty"`
}

type depthEvent struct {
	EventType     string     `json:"e"`
	EventTime     int64      `json:"E"`
	Symbol        string     `json:"s"`
	FirstUpdateID int64      `json:"U"`
	FinalUpdateID int64      `json:"u"`
	Bids          [][]string `json:"b"`
	Asks          [][]string `json:"a"`
	PosSide       *string    `json:"ps,omitempty"`
}

// DecodeText decodes one Binance JSON frame into zero or more
// normalized messages. It tolerates both a combined-stream envelope
// ({"stream":...,"data":...}) and a bare event payload.
func DecodeText(data []byte, localTS int64) []model.Message {
	payload := data
	var env envelope
	if err := json.Unmarshal(data, &env); err == nil && len(env.Data) > 0 {
		payload = env.Data
	}

	// EventTime absorbs "E": encoding/json matches keys case-insensitively,
	// so without it "E" would be decoded into the string field for "e".
	var probe struct {
		EventType string          `json:"e"`
		EventTime json.RawMessage `json:"E"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return nil
	}

	switch probe.EventType {
	case "aggTrade":
		return decodeAggTrade(payload, localTS)
	case "trade":
		return decodeTrade(payload, localTS)
	case "bookTicker":
		return decodeBookTicker(payload, localTS)
	case "depthUpdate":
		return decodeDepth(payload, localTS)
	default:
		return nil
	}
}

func decodeAggTrade(payload []byte, localTS int64) []model.Message {
	var ev rawEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil
	}
	price, ok1 := parseFloat(ev.Price)
	qty, ok2 := parseFloat(ev.Qty)
	if !ok1 || !ok2 {
		return nil
	}
	rec := model.AggTrade{
		Trade: model.Trade{
			Symbol:       model.SymbolFromString(ev.Symbol),
			ProductType:  productType(ev.PositionSide),
			EventTS:      ev.EventTime * 1000,
			TradeTS:      ev.TradeTime * 1000,
			TradeID:      uint64(ev.AggTradeID),
			Price:        price,
			Vol:          qty,
			IsBuyerMaker: ev.IsBuyerMaker,
			LocalTS:      localTS,
		},
		AggTradeID:   uint64(ev.AggTradeID),
		FirstTradeID: uint64(ev.FirstTradeID),
		LastTradeID:  uint64(ev.LastTradeID),
		Count:        uint32(ev.LastTradeID - ev.FirstTradeID + 1),
	}
	return []model.Message{{Kind: model.KindAggTrade, AggTrade: rec}}
}

func decodeTrade(payload []byte, localTS int64) []model.Message {
	var ev rawEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil
	}
	price, ok1 := parseFloat(ev.Price)
	qty, ok2 := parseFloat(ev.Qty)
	if !ok1 || !ok2 {
		return nil
	}
	rec := model.Trade{
		Symbol:       model.SymbolFromString(ev.Symbol),
		ProductType:  productType(ev.PositionSide),
		EventTS:      ev.EventTime * 1000,
		TradeTS:      ev.TradeTime * 1000,
		TradeID:      uint64(ev.TradeID),
		Price:        price,
		Vol:          qty,
		IsBuyerMaker: ev.IsBuyerMaker,
		LocalTS:      localTS,
	}
	return []model.Message{{Kind: model.KindTrade, Trade: rec}}
}

func decodeBookTicker(payload []byte, localTS int64) []model.Message {
	var ev bookTickerEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil
	}
	bidPx, ok1 := parseFloat(ev.BidPrice)
	bidQty, ok2 := parseFloat(ev.BidQty)
	askPx, ok3 := parseFloat(ev.AskPrice)
	askQty, ok4 := parseFloat(ev.AskQty)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil
	}
	eventTS := ev.EventTime
	tradeTS := ev.TradeTime
	if tradeTS == 0 {
		tradeTS = eventTS
	}
	rec := model.Bookticker{
		Symbol:      model.SymbolFromString(ev.Symbol),
		ProductType: productType(ev.PosSide),
		EventTS:     eventTS * 1000,
		TradeTS:     tradeTS * 1000,
		UpdateID:    uint64(ev.UpdateID),
		BidPrice:    bidPx,
		BidVol:      bidQty,
		AskPrice:    askPx,
		AskVol:      askQty,
		LocalTS:     localTS,
	}
	return []model.Message{{Kind: model.KindBookTicker, Bookticker: rec}}
}

func decodeDepth(payload []byte, localTS int64) []model.Message {
	var ev depthEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil
	}
	rec := model.Depth5{
		Symbol:      model.SymbolFromString(ev.Symbol),
		ProductType: productType(ev.PosSide),
		EventTS:     ev.EventTime * 1000,
		TradeTS:     ev.EventTime * 1000,
		UpdateID:    uint64(ev.FinalUpdateID),
		LocalTS:     localTS,
	}
	fillLevels(ev.Bids, &rec.BidPrices, &rec.BidVols, &rec.BidLevel)
	fillLevels(ev.Asks, &rec.AskPrices, &rec.AskVols, &rec.AskLevel)
	return []model.Message{{Kind: model.KindDepth5, Depth5: rec}}
}

func fillLevels(raw [][]string, prices, vols *[5]float64, count *int32) {
	n := len(raw)
	if n > 5 {
		n = 5
	}
	for i := 0; i < n; i++ {
		if len(raw[i]) < 2 {
			continue
		}
		p, ok1 := parseFloat(raw[i][0])
		v, ok2 := parseFloat(raw[i][1])
		if !ok1 || !ok2 {
			continue
		}
		prices[i] = p
		vols[i] = v
	}
	*count = int32(n)
}

func productType(ps *string) model.ProductType {
	if ps != nil {
		return model.ProductFutures
	}
	return model.ProductSpot
}

func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}

// SubscribePayload builds the SUBSCRIBE request for a set of symbols and
// one or more stream suffixes (e.g. "aggTrade", "bookTicker", "trade",
// "depth5@100ms"), lowercasing each symbol.
func SubscribePayload(symbols []string, id int, suffixes ...string) []byte {
	params := make([]string, 0, len(symbols)*len(suffixes))
	for _, sym := range symbols {
		lower := strings.ToLower(sym)
		for _, suffix := range suffixes {
			params = append(params, lower+"@"+suffix)
		}
	}
	req := struct {
		Method string   `json:"method"`
		Params []string `json:"params"`
		ID     int      `json:"id"`
	}{Method: "SUBSCRIBE", Params: params, ID: id}
	out, _ := json.Marshal(req)
	return out
}

// SubscribeSBEPayload covers the binary spot stream's three channels.
func SubscribeSBEPayload(symbols []string, id int) []byte {
	return SubscribePayload(symbols, id, "bestBidAsk", "trade", "depth20")
}

// SubscribeUBasePayload covers all four USDT-margined futures channels.
func SubscribeUBasePayload(symbols []string, id int) []byte {
	return SubscribePayload(symbols, id, "aggTrade", "bookTicker", "trade", "depth5@100ms")
}
