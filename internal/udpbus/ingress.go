package udpbus

import (
	"github.com/alephtx/mdgw/internal/model"
	"github.com/alephtx/mdgw/internal/shm"
)

// StoreSet bundles the four per-record-kind shm stores a demuxed product
// type writes into.
type StoreSet struct {
	Bbo    *shm.Store[model.Bookticker]
	Trade  *shm.Store[model.Trade]
	Agg    *shm.Store[model.AggTrade]
	Depth5 *shm.Store[model.Depth5]
}

// Ingress mirrors the UDP bus back into shared memory on a downstream
// host: Spot-product records go to Spot, every other product type goes
// to Futures.
type Ingress struct {
	Spot    StoreSet
	Futures StoreSet
}

// Callbacks returns the per-kind callbacks for a Receiver wired to this
// demultiplex rule.
func (ig *Ingress) Callbacks() Callbacks {
	return Callbacks{
		OnBookticker: func(r model.Bookticker) { ig.storesFor(r.ProductType).writeBbo(r) },
		OnTrade:      func(r model.Trade) { ig.storesFor(r.ProductType).writeTrade(r) },
		OnAggTrade:   func(r model.AggTrade) { ig.storesFor(r.ProductType).writeAgg(r) },
		OnDepth5:     func(r model.Depth5) { ig.storesFor(r.ProductType).writeDepth5(r) },
	}
}

func (ig *Ingress) storesFor(pt model.ProductType) *StoreSet {
	if pt == model.ProductSpot {
		return &ig.Spot
	}
	return &ig.Futures
}

func (s *StoreSet) writeBbo(r model.Bookticker) {
	if s.Bbo != nil {
		s.Bbo.Write(r.Symbol.String(), r)
	}
}

func (s *StoreSet) writeTrade(r model.Trade) {
	if s.Trade != nil {
		s.Trade.Write(r.Symbol.String(), r)
	}
}

func (s *StoreSet) writeAgg(r model.AggTrade) {
	if s.Agg != nil {
		s.Agg.Write(r.Symbol.String(), r)
	}
}

func (s *StoreSet) writeDepth5(r model.Depth5) {
	if s.Depth5 != nil {
		s.Depth5.Write(r.Symbol.String(), r)
	}
}
