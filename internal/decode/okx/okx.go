// Package okx decodes OKX market-data messages from the spot and swap
// WebSocket streams, routing on arg.channel: bbo-tbt, trades, books5.
package okx

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/alephtx/mdgw/internal/model"
)

type arg struct {
	Channel string `json:"channel"`
	InstID  string `json:"instId"`
}

type envelope struct {
	Arg  arg               `json:"arg"`
	Data []json.RawMessage `json:"data"`
}

// bboData carries one bbo-tbt or books5 payload. Level arrays are
// [price, size, liquidated-orders, order-count], all strings.
type bboData struct {
	Asks  [][]string `json:"asks"`
	Bids  [][]string `json:"bids"`
	TS    string     `json:"ts"`
	SeqID json.Number `json:"seqId"`
}

type tradeData struct {
	TradeID string `json:"tradeId"`
	Px      string `json:"px"`
	Sz      string `json:"sz"`
	Side    string `json:"side"`
	TS      string `json:"ts"`
}

// DecodeText decodes one OKX JSON frame into zero or more normalized
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
	case "bbo-tbt":
		return decodeBookTicker(env, localTS)
	case "trades":
		return decodeTrades(env, localTS)
	case "books5":
		return decodeDepth5(env, localTS)
	default:
		return nil
	}
}

func decodeBookTicker(env envelope, localTS int64) []model.Message {
	var d bboData
	if err := json.Unmarshal(env.Data[0], &d); err != nil {
		return nil
	}
	if len(d.Asks) == 0 || len(d.Bids) == 0 {
		return nil
	}
	ask0, bid0 := d.Asks[0], d.Bids[0]
	if len(ask0) < 2 || len(bid0) < 2 {
		return nil
	}

	tsMS, ok := parseInt(d.TS)
	if !ok {
		return nil
	}
	seqID, err := d.SeqID.Int64()
	if err != nil {
		return nil
	}
	askPx, ok1 := parseFloat(ask0[0])
	askVol, ok2 := parseFloat(ask0[1])
	bidPx, ok3 := parseFloat(bid0[0])
	bidVol, ok4 := parseFloat(bid0[1])
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil
	}

	rec := model.Bookticker{
		Symbol:        model.SymbolFromString(env.Arg.InstID),
		ProductType:   productType(env.Arg.InstID),
		EventTS:       tsMS * 1000,
		TradeTS:       tsMS * 1000,
		UpdateID:      uint64(seqID),
		BidPrice:      bidPx,
		BidVol:        bidVol,
		AskPrice:      askPx,
		AskVol:        askVol,
		BidOrderCount: orderCount(bid0),
		AskOrderCount: orderCount(ask0),
		LocalTS:       localTS,
	}
	return []model.Message{{Kind: model.KindBookTicker, Bookticker: rec}}
}

func decodeTrades(env envelope, localTS int64) []model.Message {
	pt := productType(env.Arg.InstID)
	sym := model.SymbolFromString(env.Arg.InstID)

	msgs := make([]model.Message, 0, len(env.Data))
	for _, raw := range env.Data {
		var d tradeData
		if err := json.Unmarshal(raw, &d); err != nil {
			continue
		}
		tsMS, ok1 := parseInt(d.TS)
		tradeID, ok2 := parseUint(d.TradeID)
		price, ok3 := parseFloat(d.Px)
		vol, ok4 := parseFloat(d.Sz)
		if !ok1 || !ok2 || !ok3 || !ok4 {
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
	var d bboData
	if err := json.Unmarshal(env.Data[0], &d); err != nil {
		return nil
	}
	tsMS, ok := parseInt(d.TS)
	if !ok {
		return nil
	}
	seqID, err := d.SeqID.Int64()
	if err != nil {
		return nil
	}

	rec := model.Depth5{
		Symbol:      model.SymbolFromString(env.Arg.InstID),
		ProductType: productType(env.Arg.InstID),
		EventTS:     tsMS * 1000,
		TradeTS:     tsMS * 1000,
		UpdateID:    uint64(seqID),
		LocalTS:     localTS,
	}
	rec.BidLevel = fillSide(d.Bids, &rec.BidPrices, &rec.BidVols, &rec.BidCounts)
	rec.AskLevel = fillSide(d.Asks, &rec.AskPrices, &rec.AskVols, &rec.AskCounts)
	return []model.Message{{Kind: model.KindDepth5, Depth5: rec}}
}

func fillSide(raw [][]string, prices, vols *[5]float64, counts *[5]int32) int32 {
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
		counts[i] = orderCount(raw[i])
	}
	return int32(n)
}

// orderCount reads the per-level order count at index 3, zero when absent.
func orderCount(level []string) int32 {
	if len(level) < 4 {
		return 0
	}
	n, ok := parseInt(level[3])
	if !ok {
		return 0
	}
	return int32(n)
}

// productType maps an instId to a product: -SWAP suffixed ids are swap
// contracts, everything else is spot.
func productType(instID string) model.ProductType {
	if strings.HasSuffix(instID, "-SWAP") {
		return model.ProductFutures
	}
	return model.ProductSpot
}

func parseFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}

func parseInt(s string) (int64, bool) {
	v, err := strconv.ParseInt(s, 10, 64)
	return v, err == nil
}

func parseUint(s string) (uint64, bool) {
	v, err := strconv.ParseUint(s, 10, 64)
	return v, err == nil
}

// ToInstID converts a plain symbol (BTCUSDT) to an OKX spot instId
// (BTC-USDT), recognizing the common quote currencies. Symbols already
// containing a hyphen are returned verbatim.
func ToInstID(symbol string) string {
	if strings.Contains(symbol, "-") {
		return symbol
	}
	for _, q := range []string{"USDT", "USDC", "BTC", "ETH", "BUSD", "DAI"} {
		if base, ok := strings.CutSuffix(symbol, q); ok && base != "" {
			return base + "-" + q
		}
	}
	return symbol
}

// ToSwapInstID converts a plain symbol to an OKX swap instId
// (BTC-USDT-SWAP).
func ToSwapInstID(symbol string) string {
	return ToInstID(symbol) + "-SWAP"
}

// SubscribePayload builds the subscribe request covering bbo-tbt, trades,
// and books5 for every instId.
func SubscribePayload(instIDs []string, reqID string) []byte {
	type subArg struct {
		Channel string `json:"channel"`
		InstID  string `json:"instId"`
	}
	args := make([]subArg, 0, len(instIDs)*3)
	for _, id := range instIDs {
		for _, ch := range []string{"bbo-tbt", "trades", "books5"} {
			args = append(args, subArg{Channel: ch, InstID: id})
		}
	}
	req := struct {
		ID   string   `json:"id"`
		Op   string   `json:"op"`
		Args []subArg `json:"args"`
	}{ID: reqID, Op: "subscribe", Args: args}
	out, _ := json.Marshal(req)
	return out
}
