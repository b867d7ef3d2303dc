package bybit

import "sort"

// priceEps is the tolerance for matching a delta's price against an
// existing level.
const priceEps = 1e-10

// bookDepth is the number of levels retained per side, matching the
// orderbook.50 subscription.
const bookDepth = 50

type level struct {
	price float64
	vol   float64
}

// orderBook maintains the incremental book for one symbol: bids sorted
// descending, asks ascending, each bounded to bookDepth levels.
type orderBook struct {
	bids []level
	asks []level
}

func newOrderBook() *orderBook {
	return &orderBook{
		bids: make([]level, 0, bookDepth),
		asks: make([]level, 0, bookDepth),
	}
}

// setSnapshot replaces both sides, re-sorting and truncating to
// bookDepth levels.
func (b *orderBook) setSnapshot(bids, asks []level) {
	b.bids = append(b.bids[:0], bids...)
	sort.Slice(b.bids, func(i, j int) bool { return b.bids[i].price > b.bids[j].price })
	if len(b.bids) > bookDepth {
		b.bids = b.bids[:bookDepth]
	}

	b.asks = append(b.asks[:0], asks...)
	sort.Slice(b.asks, func(i, j int) bool { return b.asks[i].price < b.asks[j].price })
	if len(b.asks) > bookDepth {
		b.asks = b.asks[:bookDepth]
	}
}

// update applies one delta: volume zero removes the matched level, a
// matched price updates volume in place, and an unmatched non-zero
// volume inserts at the sorted position, evicting the worst level if the
// side overflows.
func (b *orderBook) update(bids, asks []level) {
	for _, l := range bids {
		b.bids = updateSide(b.bids, l, func(existing, incoming float64) bool { return existing < incoming })
	}
	for _, l := range asks {
		b.asks = updateSide(b.asks, l, func(existing, incoming float64) bool { return existing > incoming })
	}
}

// updateSide applies one level change to a sorted side. worse reports
// whether an existing price sorts after the incoming one, so the same
// code serves both sort orders.
func updateSide(side []level, l level, worse func(existing, incoming float64) bool) []level {
	for i := range side {
		if abs(side[i].price-l.price) < priceEps {
			if l.vol == 0 {
				return append(side[:i], side[i+1:]...)
			}
			side[i].vol = l.vol
			return side
		}
	}
	if l.vol == 0 {
		return side
	}
	pos := len(side)
	for i := range side {
		if worse(side[i].price, l.price) {
			pos = i
			break
		}
	}
	side = append(side, level{})
	copy(side[pos+1:], side[pos:])
	side[pos] = l
	if len(side) > bookDepth {
		side = side[:bookDepth]
	}
	return side
}

// top5 copies the best levels of each side into the fixed arrays and
// returns the populated counts.
func (b *orderBook) top5(bidPrices, bidVols, askPrices, askVols *[5]float64) (int32, int32) {
	nb := len(b.bids)
	if nb > 5 {
		nb = 5
	}
	na := len(b.asks)
	if na > 5 {
		na = 5
	}
	for i := 0; i < nb; i++ {
		bidPrices[i] = b.bids[i].price
		bidVols[i] = b.bids[i].vol
	}
	for i := 0; i < na; i++ {
		askPrices[i] = b.asks[i].price
		askVols[i] = b.asks[i].vol
	}
	return int32(nb), int32(na)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
