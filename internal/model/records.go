package model

// All timestamps are microseconds since the Unix epoch. Every record below
// is fixed-size and field-order stable so it can be copied byte-for-byte
// into shared memory or serialized onto the UDP bus without reflection.

// Bookticker is the best bid/offer for a symbol.
type Bookticker struct {
	Symbol        Symbol
	ProductType   ProductType
	EventTS       int64
	TradeTS       int64
	UpdateID      uint64
	BidPrice      float64
	BidVol        float64
	AskPrice      float64
	AskVol        float64
	BidOrderCount int32
	AskOrderCount int32
	LocalTS       int64
}

// Trade is a single executed trade.
type Trade struct {
	Symbol        Symbol
	ProductType   ProductType
	EventTS       int64
	TradeTS       int64
	TradeID       uint64
	Price         float64
	Vol           float64
	IsBuyerMaker  bool
	LocalTS       int64
}

// AggTrade is a Trade plus the native-aggregate fields Binance provides.
// Only the Binance decoder emits AggTrade records; the other venues'
// decoders emit individual Trade records.
type AggTrade struct {
	Trade
	AggTradeID   uint64
	FirstTradeID uint64
	LastTradeID  uint64
	Count        uint32
}

// DepthLevels is the fixed 5-level depth side used by Depth5.
type DepthLevels = [5]float64

// Depth5 is the top-5 price levels per side of the order book.
type Depth5 struct {
	Symbol      Symbol
	ProductType ProductType
	EventTS     int64
	TradeTS     int64
	UpdateID    uint64
	BidLevel    int32
	AskLevel    int32
	LastPrice   float64
	BidPrices   DepthLevels
	BidVols     DepthLevels
	AskPrices   DepthLevels
	AskVols     DepthLevels
	BidCounts   [5]int32
	AskCounts   [5]int32
	LocalTS     int64
}
