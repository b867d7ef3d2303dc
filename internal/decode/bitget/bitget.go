// Package bitget decodes Bitget market-data messages from the spot and
// USDT-futures WebSocket streams, routing on arg.channel: books1, trade,
// books5.
package bitget

import (
	"encoding/json"
	"strconv"

	"github.com/alephtx/mdgw/internal/model"
)

type arg struct {
	InstType string `json:"instType"`
	Channel  string `json:"channel"`
	InstID   string `json:"instId"`
}

type envelope struct {
	Arg  arg               `json:"arg"`
	TS   json.Number       `json:"ts"`
	Data []json.RawMessage `json:"data"`
}

type bookData struct {
	Asks [][]string  `json:"asks"`
	Bids [][]string  `json:"bids"`
	TS   json.Number `json:"ts"`
	Seq  json.Number `json:"seq"`
}

type tradeData struct {
	TradeID string      `json:"tradeId"`
	Price   string      `json:"price"`
	Size    string      `json:"size"`
	Side    string      `json:"side"`
	TS      json.Number `json:"ts"`
}

// DecodeText decodes one Bitget JSON frame into zero or more normalized
// messages. The literal "pong" reply and subscription acks produce none.
func DecodeText(data []byte, localTS int64) []model.Message {
	if string(data) == "pong" {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil
	}
	if env.Arg.InstID == "" || len(env.Data) == 0 {
		return nil
	}

	switch env.Arg.Channel {
	case "books1":
		return decodeBookTicker(env, localTS)
	case "trade":
		return decodeTrades(env, localTS)
	case "books5":
		return decodeDepth5(env, localTS)
	default:
		return nil
	}
}

func decodeBookTicker(env envelope, localTS int64) []model.Message {
	var d bookData
	if err := json.Unmarshal(env.Data[0], &d); err != nil {
		return nil
	}
	if len(d.Asks) == 0 || len(d.Bids) == 0 || len(d.Asks[0]) < 2 || len(d.Bids[0]) < 2 {
		return nil
	}

	// Root-level ts is the event time, data-level ts the trade time.
	eventMS, err1 := env.TS.Int64()
	tradeMS, err2 := d.TS.Int64()
	seq, err3 := d.Seq.Int64()
	if err1 != nil || err2 != nil || err3 != nil {
		return nil
	}
	askPx, ok1 := parseFloat(d.Asks[0][0])
	askVol, ok2 := parseFloat(d.Asks[0][1])
	bidPx, ok3 := parseFloat(d.Bids[0][0])
	bidVol, ok4 := parseFloat(d.Bids[0][1])
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil
	}

	rec := model.Bookticker{
		Symbol:      model.SymbolFromString(env.Arg.InstID),
		ProductType: productType(env.Arg.InstType),
		EventTS:     eventMS * 1000,
		TradeTS:     tradeMS * 1000,
		UpdateID:    uint64(seq),
		BidPrice:    bidPx,
		BidVol:      bidVol,
		AskPrice:    askPx,
		AskVol:      askVol,
		LocalTS:     localTS,
	}
	return []model.Message{{Kind: model.KindBookTicker, Bookticker: rec}}
}

// decodeTrades walks the batch newest-first as delivered and emits oldest
// first, so downstream monotonic dedup sees causal order.
func decodeTrades(env envelope, localTS int64) []model.Message {
	pt := productType(env.Arg.InstType)
	sym := model.SymbolFromString(env.Arg.InstID)

	msgs := make([]model.Message, 0, len(env.Data))
	for i := len(env.Data) - 1; i >= 0; i-- {
		var d tradeData
		if err := json.Unmarshal(env.Data[i], &d); err != nil {
			continue
		}
		tsMS, err := d.TS.Int64()
		if err != nil {
			continue
		}
		tradeID, ok1 := parseUint(d.TradeID)
		price, ok2 := parseFloat(d.Price)
		vol, ok3 := parseFloat(d.Size)
		if !ok1 || !ok2 || !ok3 {
			continue
		}
		msgs = append(msgs, model.Message{
			Kind: model.KindTrade,
			Trade: model.Trade{
				Symbol:       sym,
				ProductType:  pt,
				EventTS:      tsMS * 1000,
				TradeTS:      tsMS * 1000,
				TradeID:      tradeID,
				Price:        price,
				Vol:          vol,
				IsBuyerMaker: d.Side == "sell",
				LocalTS:      localTS,
			},
		})
	}
	return msgs
}

func decodeDepth5(env envelope, localTS int64) []model.Message {
	var d bookData
	if err := json.Unmarshal(env.Data[0], &d); err != nil {
		return nil
	}
	eventMS, err1 := env.TS.Int64()
	tradeMS, err2 := d.TS.Int64()
	seq, err3 := d.Seq.Int64()
	if err1 != nil || err2 != nil || err3 != nil {
		return nil
	}

	rec := model.Depth5{
		Symbol:      model.SymbolFromString(env.Arg.InstID),
		ProductType: productType(env.Arg.InstType),
		EventTS:     eventMS * 1000,
		TradeTS:     tradeMS * 1000,
		UpdateID:    uint64(seq),
		LocalTS:     localTS,
	}
	rec.BidLevel = fillSide(d.Bids, &rec.BidPrices, &rec.BidVols)
	rec.AskLevel = fillSide(d.Asks, &rec.AskPrices, &rec.AskVols)
	return []model.Message{{Kind: model.KindDepth5, Depth5: rec}}
}

func fillSide(raw [][]string, prices, vols *[5]float64) int32 {
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
	return int32(n)
}

func productType(instType string) model.ProductType {
	switch instType {
	case "USDT-FUTURES":
		return model.ProductFutures
	case "COIN-FUTURES":
		return model.ProductCoinMargin
	default:
		return model.ProductSpot
	}
}

func parseFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}

func parseUint(s string) (uint64, bool) {
	v, err := strconv.ParseUint(s, 10, 64)
	return v, err == nil
}

// SubscribePayload builds the subscribe request covering books1, trade,
// and books5 for every symbol under the given instType ("SPOT" or
// "USDT-FUTURES").
func SubscribePayload(symbols []string, instType string) []byte {
	type subArg struct {
		InstType string `json:"instType"`
		Channel  string `json:"channel"`
		InstID   string `json:"instId"`
	}
	args := make([]subArg, 0, len(symbols)*3)
	for _, sym := range symbols {
		for _, ch := range []string{"books1", "trade", "books5"} {
			args = append(args, subArg{InstType: instType, Channel: ch, InstID: sym})
		}
	}
	req := struct {
		Op   string   `json:"op"`
		Args []subArg `json:"args"`
	}{Op: "subscribe", Args: args}
	out, _ := json.Marshal(req)
	return out
}
