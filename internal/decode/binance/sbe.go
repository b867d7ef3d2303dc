package binance

import (
	"encoding/binary"

	"github.com/alephtx/mdgw/internal/model"
)

// Binance's spot SBE (Simple Binary Encoding) stream. Every frame opens
// with an 8-byte envelope (block-length, template-id, schema-id,
// version, all u16 little-endian) followed by a template-specific root
// block and, for templates that carry one, a length-prefixed ASCII
// symbol trailer. Field offsets below are byte-exact to that schema;
// tests hand-build frames rather than relying on a live feed.
const (
	envelopeSize = 8

	templateBestBidAsk   = 10001
	templateTradeBatch   = 10000
	templateDepthSnapshot = 10002
)

// pow10 is a 37-entry lookup table for 10^exponent, exponent in
// [-18, 18], indexed by exponent+18.
var pow10 [37]float64

func init() {
	for i := range pow10 {
		exp := i - 18
		v := 1.0
		if exp >= 0 {
			for j := 0; j < exp; j++ {
				v *= 10
			}
		} else {
			for j := 0; j < -exp; j++ {
				v /= 10
			}
		}
		pow10[i] = v
	}
}

func mantissaToFloat(mantissa int64, exponent int8) float64 {
	idx := int(exponent) + 18
	if idx < 0 || idx >= len(pow10) {
		return 0
	}
	return float64(mantissa) * pow10[idx]
}

type envelopeHeader struct {
	BlockLength uint16
	TemplateID  uint16
	SchemaID    uint16
	Version     uint16
}

func readEnvelope(b []byte) (envelopeHeader, bool) {
	if len(b) < envelopeSize {
		return envelopeHeader{}, false
	}
	return envelopeHeader{
		BlockLength: binary.LittleEndian.Uint16(b[0:2]),
		TemplateID:  binary.LittleEndian.Uint16(b[2:4]),
		SchemaID:    binary.LittleEndian.Uint16(b[4:6]),
		Version:     binary.LittleEndian.Uint16(b[6:8]),
	}, true
}

// readSymbol reads a length-prefixed (1-byte length) ASCII symbol
// starting at off and returns the decoded string, or false if the length
// byte or the symbol bytes run past the end of b.
func readSymbol(b []byte, off int) (string, bool) {
	if off >= len(b) {
		return "", false
	}
	n := int(b[off])
	off++
	if off+n > len(b) {
		return "", false
	}
	return string(b[off : off+n]), true
}

// DecodeBinary decodes one SBE frame into zero or more normalized
// messages. Insufficient bytes or an unknown template drop the frame
// silently.
func DecodeBinary(b []byte, localTS int64) []model.Message {
	env, ok := readEnvelope(b)
	if !ok {
		return nil
	}
	body := b[envelopeSize:]

	switch env.TemplateID {
	case templateBestBidAsk:
		return decodeBestBidAsk(body, localTS)
	case templateTradeBatch:
		return decodeTradeBatch(body, localTS)
	case templateDepthSnapshot:
		return decodeDepthSnapshot(body, localTS)
	default:
		return nil
	}
}

// decodeBestBidAsk parses template 10001: a 50-byte root block
// (event-time i64, update-id i64, price-exponent i8, qty-exponent i8,
// bid price mantissa i64, bid qty mantissa i64, ask price mantissa i64,
// ask qty mantissa i64) followed by the length-prefixed symbol.
func decodeBestBidAsk(b []byte, localTS int64) []model.Message {
	const rootSize = 50
	if len(b) < rootSize {
		return nil
	}
	eventTime := int64(binary.LittleEndian.Uint64(b[0:8]))
	updateID := int64(binary.LittleEndian.Uint64(b[8:16]))
	priceExp := int8(b[16])
	qtyExp := int8(b[17])
	bidPriceMant := int64(binary.LittleEndian.Uint64(b[18:26]))
	bidQtyMant := int64(binary.LittleEndian.Uint64(b[26:34]))
	askPriceMant := int64(binary.LittleEndian.Uint64(b[34:42]))
	askQtyMant := int64(binary.LittleEndian.Uint64(b[42:50]))

	symbol, ok := readSymbol(b, rootSize)
	if !ok {
		return nil
	}

	rec := model.Bookticker{
		Symbol:      model.SymbolFromString(symbol),
		ProductType: model.ProductSpot,
		EventTS:     eventTime,
		TradeTS:     eventTime,
		UpdateID:    uint64(updateID),
		BidPrice:    mantissaToFloat(bidPriceMant, priceExp),
		BidVol:      mantissaToFloat(bidQtyMant, qtyExp),
		AskPrice:    mantissaToFloat(askPriceMant, priceExp),
		AskVol:      mantissaToFloat(askQtyMant, qtyExp),
		LocalTS:     localTS,
	}
	return []model.Message{{Kind: model.KindBookTicker, Bookticker: rec}}
}

// decodeTradeBatch parses template 10000: an 18-byte root (event-time
// i64, transact-time i64, price-exponent i8, qty-exponent i8), a 6-byte
// group header (block-length u16, count u32), then count repeated
// entries (trade-id i64, price mantissa i64, qty mantissa i64,
// buyer-maker flag u8), followed by the trailing symbol.
func decodeTradeBatch(b []byte, localTS int64) []model.Message {
	const rootSize = 18
	const groupHeaderSize = 6
	const entrySize = 25 // 8+8+8+1

	if len(b) < rootSize+groupHeaderSize {
		return nil
	}
	eventTime := int64(binary.LittleEndian.Uint64(b[0:8]))
	transactTime := int64(binary.LittleEndian.Uint64(b[8:16]))
	priceExp := int8(b[16])
	qtyExp := int8(b[17])

	off := rootSize
	blockLen := binary.LittleEndian.Uint16(b[off : off+2])
	count := binary.LittleEndian.Uint32(b[off+2 : off+6])
	off += groupHeaderSize
	_ = blockLen

	msgs := make([]model.Message, 0, count)
	for i := uint32(0); i < count; i++ {
		if off+entrySize > len(b) {
			return nil
		}
		tradeID := int64(binary.LittleEndian.Uint64(b[off : off+8]))
		priceMant := int64(binary.LittleEndian.Uint64(b[off+8 : off+16]))
		qtyMant := int64(binary.LittleEndian.Uint64(b[off+16 : off+24]))
		buyerMaker := b[off+24] != 0
		off += entrySize

		msgs = append(msgs, model.Message{
			Kind: model.KindTrade,
			Trade: model.Trade{
				ProductType:  model.ProductSpot,
				EventTS:      eventTime,
				TradeTS:      transactTime,
				TradeID:      uint64(tradeID),
				Price:        mantissaToFloat(priceMant, priceExp),
				Vol:          mantissaToFloat(qtyMant, qtyExp),
				IsBuyerMaker: buyerMaker,
				LocalTS:      localTS,
			},
		})
	}

	symbol, ok := readSymbol(b, off)
	if !ok {
		return nil
	}
	sym := model.SymbolFromString(symbol)
	for i := range msgs {
		msgs[i].Trade.Symbol = sym
	}
	return msgs
}

// decodeDepthSnapshot parses template 10002: an 18-byte root, a bids
// group (4-byte header: block-length u16, count u16, repeated
// price/qty mantissa pairs), an asks group with the same format, then
// the trailing symbol. At most 5 levels per side are materialized;
// extra levels are skipped but consumed to reach the symbol.
func decodeDepthSnapshot(b []byte, localTS int64) []model.Message {
	const rootSize = 18
	if len(b) < rootSize {
		return nil
	}
	eventTime := int64(binary.LittleEndian.Uint64(b[0:8]))
	transactTime := int64(binary.LittleEndian.Uint64(b[8:16]))
	priceExp := int8(b[16])
	qtyExp := int8(b[17])

	off := rootSize
	var rec model.Depth5

	n, newOff, ok := decodeDepthGroup(b, off, priceExp, qtyExp, &rec.BidPrices, &rec.BidVols)
	if !ok {
		return nil
	}
	rec.BidLevel = n
	off = newOff

	n, newOff, ok = decodeDepthGroup(b, off, priceExp, qtyExp, &rec.AskPrices, &rec.AskVols)
	if !ok {
		return nil
	}
	rec.AskLevel = n
	off = newOff

	symbol, ok := readSymbol(b, off)
	if !ok {
		return nil
	}

	rec.Symbol = model.SymbolFromString(symbol)
	rec.ProductType = model.ProductSpot
	rec.EventTS = eventTime
	rec.TradeTS = transactTime
	rec.LocalTS = localTS

	return []model.Message{{Kind: model.KindDepth5, Depth5: rec}}
}

// decodeDepthGroup reads a 4-byte group header (block-length u16, count
// u16) then count (price,qty) mantissa pairs (8+8 bytes each),
// materializing at most 5 levels into prices/vols while consuming every
// level present so the caller can continue reading past the group.
func decodeDepthGroup(b []byte, off int, priceExp, qtyExp int8, prices, vols *[5]float64) (int32, int, bool) {
	const groupHeaderSize = 4
	const pairSize = 16

	if off+groupHeaderSize > len(b) {
		return 0, off, false
	}
	count := binary.LittleEndian.Uint16(b[off+2 : off+4])
	off += groupHeaderSize

	materialized := int32(0)
	for i := uint16(0); i < count; i++ {
		if off+pairSize > len(b) {
			return 0, off, false
		}
		if i < 5 {
			priceMant := int64(binary.LittleEndian.Uint64(b[off : off+8]))
			qtyMant := int64(binary.LittleEndian.Uint64(b[off+8 : off+16]))
			prices[i] = mantissaToFloat(priceMant, priceExp)
			vols[i] = mantissaToFloat(qtyMant, qtyExp)
			materialized++
		}
		off += pairSize
	}
	return materialized, off, true
}
