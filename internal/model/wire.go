package model

import (
	"encoding/binary"
	"math"
)

// Wire encoding is a fixed-layout little-endian serialization of each
// normalized record, used by the UDP bus. Field order
// matches the in-memory struct order so the sender and receiver agree
// without a schema exchange.

// BookTickerWireSize is the encoded size of a Bookticker, in bytes.
const BookTickerWireSize = SymbolLen + 1 + 8 + 8 + 8 + 8 + 8 + 8 + 8 + 4 + 4 + 8

// EncodeBookticker appends the wire encoding of r to dst and returns it.
func EncodeBookticker(dst []byte, r Bookticker) []byte {
	dst = append(dst, r.Symbol[:]...)
	dst = append(dst, byte(r.ProductType))
	dst = appendI64(dst, r.EventTS)
	dst = appendI64(dst, r.TradeTS)
	dst = appendU64(dst, r.UpdateID)
	dst = appendF64(dst, r.BidPrice)
	dst = appendF64(dst, r.BidVol)
	dst = appendF64(dst, r.AskPrice)
	dst = appendF64(dst, r.AskVol)
	dst = appendI32(dst, r.BidOrderCount)
	dst = appendI32(dst, r.AskOrderCount)
	dst = appendI64(dst, r.LocalTS)
	return dst
}

// DecodeBookticker parses a wire-encoded Bookticker from src.
func DecodeBookticker(src []byte) (Bookticker, bool) {
	if len(src) < BookTickerWireSize {
		return Bookticker{}, false
	}
	var r Bookticker
	off := 0
	copy(r.Symbol[:], src[off:off+SymbolLen])
	off += SymbolLen
	r.ProductType = ProductType(src[off])
	off++
	r.EventTS, off = readI64(src, off)
	r.TradeTS, off = readI64(src, off)
	r.UpdateID, off = readU64(src, off)
	r.BidPrice, off = readF64(src, off)
	r.BidVol, off = readF64(src, off)
	r.AskPrice, off = readF64(src, off)
	r.AskVol, off = readF64(src, off)
	r.BidOrderCount, off = readI32(src, off)
	r.AskOrderCount, off = readI32(src, off)
	r.LocalTS, _ = readI64(src, off)
	return r, true
}

// TradeWireSize is the encoded size of a Trade, in bytes.
const TradeWireSize = SymbolLen + 1 + 8 + 8 + 8 + 8 + 8 + 1 + 8

// EncodeTrade appends the wire encoding of r to dst and returns it.
func EncodeTrade(dst []byte, r Trade) []byte {
	dst = append(dst, r.Symbol[:]...)
	dst = append(dst, byte(r.ProductType))
	dst = appendI64(dst, r.EventTS)
	dst = appendI64(dst, r.TradeTS)
	dst = appendU64(dst, r.TradeID)
	dst = appendF64(dst, r.Price)
	dst = appendF64(dst, r.Vol)
	dst = appendBool(dst, r.IsBuyerMaker)
	dst = appendI64(dst, r.LocalTS)
	return dst
}

// DecodeTrade parses a wire-encoded Trade from src.
func DecodeTrade(src []byte) (Trade, bool) {
	if len(src) < TradeWireSize {
		return Trade{}, false
	}
	var r Trade
	off := 0
	copy(r.Symbol[:], src[off:off+SymbolLen])
	off += SymbolLen
	r.ProductType = ProductType(src[off])
	off++
	r.EventTS, off = readI64(src, off)
	r.TradeTS, off = readI64(src, off)
	r.TradeID, off = readU64(src, off)
	r.Price, off = readF64(src, off)
	r.Vol, off = readF64(src, off)
	r.IsBuyerMaker, off = readBool(src, off)
	r.LocalTS, _ = readI64(src, off)
	return r, true
}

// AggTradeWireSize is the encoded size of an AggTrade, in bytes.
const AggTradeWireSize = TradeWireSize + 8 + 8 + 8 + 4

// EncodeAggTrade appends the wire encoding of r to dst and returns it.
func EncodeAggTrade(dst []byte, r AggTrade) []byte {
	dst = EncodeTrade(dst, r.Trade)
	dst = appendU64(dst, r.AggTradeID)
	dst = appendU64(dst, r.FirstTradeID)
	dst = appendU64(dst, r.LastTradeID)
	dst = appendU32(dst, r.Count)
	return dst
}

// DecodeAggTrade parses a wire-encoded AggTrade from src.
func DecodeAggTrade(src []byte) (AggTrade, bool) {
	if len(src) < AggTradeWireSize {
		return AggTrade{}, false
	}
	trade, ok := DecodeTrade(src[:TradeWireSize])
	if !ok {
		return AggTrade{}, false
	}
	var r AggTrade
	r.Trade = trade
	off := TradeWireSize
	r.AggTradeID, off = readU64(src, off)
	r.FirstTradeID, off = readU64(src, off)
	r.LastTradeID, off = readU64(src, off)
	r.Count, _ = readU32(src, off)
	return r, true
}

// Depth5WireSize is the encoded size of a Depth5, in bytes.
const Depth5WireSize = SymbolLen + 1 + 8 + 8 + 8 + 4 + 4 + 8 + 8*5*4 + 4*5*2 + 8

// EncodeDepth5 appends the wire encoding of r to dst and returns it.
func EncodeDepth5(dst []byte, r Depth5) []byte {
	dst = append(dst, r.Symbol[:]...)
	dst = append(dst, byte(r.ProductType))
	dst = appendI64(dst, r.EventTS)
	dst = appendI64(dst, r.TradeTS)
	dst = appendU64(dst, r.UpdateID)
	dst = appendI32(dst, r.BidLevel)
	dst = appendI32(dst, r.AskLevel)
	dst = appendF64(dst, r.LastPrice)
	for _, v := range r.BidPrices {
		dst = appendF64(dst, v)
	}
	for _, v := range r.BidVols {
		dst = appendF64(dst, v)
	}
	for _, v := range r.AskPrices {
		dst = appendF64(dst, v)
	}
	for _, v := range r.AskVols {
		dst = appendF64(dst, v)
	}
	for _, v := range r.BidCounts {
		dst = appendI32(dst, v)
	}
	for _, v := range r.AskCounts {
		dst = appendI32(dst, v)
	}
	dst = appendI64(dst, r.LocalTS)
	return dst
}

// DecodeDepth5 parses a wire-encoded Depth5 from src.
func DecodeDepth5(src []byte) (Depth5, bool) {
	if len(src) < Depth5WireSize {
		return Depth5{}, false
	}
	var r Depth5
	off := 0
	copy(r.Symbol[:], src[off:off+SymbolLen])
	off += SymbolLen
	r.ProductType = ProductType(src[off])
	off++
	r.EventTS, off = readI64(src, off)
	r.TradeTS, off = readI64(src, off)
	r.UpdateID, off = readU64(src, off)
	r.BidLevel, off = readI32(src, off)
	r.AskLevel, off = readI32(src, off)
	r.LastPrice, off = readF64(src, off)
	for i := range r.BidPrices {
		r.BidPrices[i], off = readF64(src, off)
	}
	for i := range r.BidVols {
		r.BidVols[i], off = readF64(src, off)
	}
	for i := range r.AskPrices {
		r.AskPrices[i], off = readF64(src, off)
	}
	for i := range r.AskVols {
		r.AskVols[i], off = readF64(src, off)
	}
	for i := range r.BidCounts {
		r.BidCounts[i], off = readI32(src, off)
	}
	for i := range r.AskCounts {
		r.AskCounts[i], off = readI32(src, off)
	}
	r.LocalTS, _ = readI64(src, off)
	return r, true
}

func appendU64(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

func appendI64(dst []byte, v int64) []byte { return appendU64(dst, uint64(v)) }

func appendU32(dst []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}

func appendI32(dst []byte, v int32) []byte { return appendU32(dst, uint32(v)) }

func appendF64(dst []byte, v float64) []byte {
	return appendU64(dst, math.Float64bits(v))
}

func appendBool(dst []byte, v bool) []byte {
	if v {
		return append(dst, 1)
	}
	return append(dst, 0)
}

func readU64(src []byte, off int) (uint64, int) {
	return binary.LittleEndian.Uint64(src[off : off+8]), off + 8
}

func readI64(src []byte, off int) (int64, int) {
	v, n := readU64(src, off)
	return int64(v), n
}

func readU32(src []byte, off int) (uint32, int) {
	return binary.LittleEndian.Uint32(src[off : off+4]), off + 4
}

func readI32(src []byte, off int) (int32, int) {
	v, n := readU32(src, off)
	return int32(v), n
}

func readF64(src []byte, off int) (float64, int) {
	v, n := readU64(src, off)
	return math.Float64frombits(v), n
}

func readBool(src []byte, off int) (bool, int) {
	return src[off] != 0, off + 1
}
