package model

// Message is the decoder output: one instance of exactly one populated
// record kind, the vocabulary every decoder and the pipeline worker
// share. Decoders are pure functions producing zero or more Messages
// per input frame (bytes -> []Message).
type Message struct {
	Kind       MessageKind
	Bookticker Bookticker
	Trade      Trade
	AggTrade   AggTrade
	Depth5     Depth5
}

// Symbol returns the populated record's symbol as a string.
func (m Message) Symbol() string {
	switch m.Kind {
	case KindBookTicker:
		return m.Bookticker.Symbol.String()
	case KindTrade:
		return m.Trade.Symbol.String()
	case KindAggTrade:
		return m.AggTrade.Symbol.String()
	case KindDepth5:
		return m.Depth5.Symbol.String()
	default:
		return ""
	}
}
