// Package udpbus implements the UDP fan-out sender and ingress
// receiver: a tagged-datagram codec ([1-byte kind tag][wire record
// payload]) shared by producer and consumer.
package udpbus

import (
	"net"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/alephtx/mdgw/internal/model"
)

// MaxDatagramSize is the largest payload a single UDP datagram holds.
const MaxDatagramSize = 65507

const submitQueueSize = 4096

// Sender is a single UDP socket connected to one destination, with an
// internal bounded submission channel drained by a background goroutine.
// Enqueue failures (queue full) drop the record silently; delivery is
// best-effort.
type Sender struct {
	logger *log.Logger
	conn   net.Conn
	queue  chan []byte
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewSender dials addr (host:port) over UDP and starts the background
// drain loop. Dial failure is returned; callers may retry construction.
func NewSender(addr string, logger *log.Logger) (*Sender, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, err
	}
	s := &Sender{
		logger: logger,
		conn:   conn,
		queue:  make(chan []byte, submitQueueSize),
		done:   make(chan struct{}),
	}
	s.wg.Add(1)
	go s.drain()
	return s, nil
}

func (s *Sender) drain() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case frame := <-s.queue:
			if _, err := s.conn.Write(frame); err != nil {
				s.logger.Warn("udp send failed", "err", err)
			}
		}
	}
}

// SendBookticker enqueues a tagged Bookticker datagram.
func (s *Sender) SendBookticker(r model.Bookticker) {
	s.enqueue(model.KindBookTicker, model.EncodeBookticker(nil, r))
}

// SendTrade enqueues a tagged Trade datagram.
func (s *Sender) SendTrade(r model.Trade) {
	s.enqueue(model.KindTrade, model.EncodeTrade(nil, r))
}

// SendAggTrade enqueues a tagged AggTrade datagram.
func (s *Sender) SendAggTrade(r model.AggTrade) {
	s.enqueue(model.KindAggTrade, model.EncodeAggTrade(nil, r))
}

// SendDepth5 enqueues a tagged Depth5 datagram.
func (s *Sender) SendDepth5(r model.Depth5) {
	s.enqueue(model.KindDepth5, model.EncodeDepth5(nil, r))
}

func (s *Sender) enqueue(kind model.MessageKind, payload []byte) {
	frame := make([]byte, 0, len(payload)+1)
	frame = append(frame, byte(kind))
	frame = append(frame, payload...)
	select {
	case s.queue <- frame:
	default:
		// queue full: drop silently, order preservation is best-effort only
	}
}

// Close stops the drain loop and closes the socket.
func (s *Sender) Close() error {
	close(s.done)
	s.wg.Wait()
	return s.conn.Close()
}

// Callbacks holds the per-kind handlers a Receiver demultiplexes into.
// Any may be nil.
type Callbacks struct {
	OnBookticker func(model.Bookticker)
	OnTrade      func(model.Trade)
	OnAggTrade   func(model.AggTrade)
	OnDepth5     func(model.Depth5)
}

// Receiver binds a UDP address and loops reading datagrams, decoding
// each by its leading tag byte and invoking the matching callback.
// No deduplication is performed here: every datagram was already
// admitted by the producer's dedup stage.
type Receiver struct {
	logger *log.Logger
	conn   *net.UDPConn
	cb     Callbacks
}

// NewReceiver binds addr (host:port) over UDP.
func NewReceiver(addr string, cb Callbacks, logger *log.Logger) (*Receiver, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, err
	}
	return &Receiver{logger: logger, conn: conn, cb: cb}, nil
}

// Run loops reading datagrams until the socket is closed (typically by
// a concurrent call to Close from the shutdown path).
func (r *Receiver) Run() error {
	buf := make([]byte, MaxDatagramSize)
	for {
		n, _, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			return err
		}
		r.dispatch(buf[:n])
	}
}

func (r *Receiver) dispatch(frame []byte) {
	if len(frame) < 1 {
		return
	}
	kind := model.MessageKind(frame[0])
	payload := frame[1:]

	switch kind {
	case model.KindBookTicker:
		rec, ok := model.DecodeBookticker(payload)
		if !ok {
			r.logger.Warn("udp: malformed bookticker datagram")
			return
		}
		if r.cb.OnBookticker != nil {
			r.cb.OnBookticker(rec)
		}
	case model.KindTrade:
		rec, ok := model.DecodeTrade(payload)
		if !ok {
			r.logger.Warn("udp: malformed trade datagram")
			return
		}
		if r.cb.OnTrade != nil {
			r.cb.OnTrade(rec)
		}
	case model.KindAggTrade:
		rec, ok := model.DecodeAggTrade(payload)
		if !ok {
			r.logger.Warn("udp: malformed aggtrade datagram")
			return
		}
		if r.cb.OnAggTrade != nil {
			r.cb.OnAggTrade(rec)
		}
	case model.KindDepth5:
		rec, ok := model.DecodeDepth5(payload)
		if !ok {
			r.logger.Warn("udp: malformed depth5 datagram")
			return
		}
		if r.cb.OnDepth5 != nil {
			r.cb.OnDepth5(rec)
		}
	default:
		r.logger.Warn("udp: unknown tag", "tag", kind)
	}
}

// Close unbinds the receiver's socket, unblocking Run.
func (r *Receiver) Close() error {
	return r.conn.Close()
}
