package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/alephtx/mdgw/internal/model"
	"github.com/alephtx/mdgw/internal/redundancy"
	"github.com/alephtx/mdgw/internal/shm"
	"github.com/alephtx/mdgw/internal/udpbus"
	"github.com/alephtx/mdgw/internal/wsconn"
)

// dedupQueueSize bounds each stream's worker channel. Overflow drops the
// new message with a warning: the hot path never blocks on a stalled
// consumer.
const dedupQueueSize = 8192

// Engine runs the streams of one configured venue connection: for each
// stream, a bundle of shared-memory stores, a bounded channel, a worker
// thread, and a redundant connection manager.
type Engine struct {
	name    string
	streams []*StreamDef
	logger  *log.Logger

	stores []*Stores
	udp    *udpbus.Sender

	cancel context.CancelFunc
	group  *errgroup.Group
	chans  []chan model.Message
	mgrs   []*redundancy.Manager
	wg     sync.WaitGroup
}

// NewEngine returns an engine for the given streams. udp may be nil.
func NewEngine(name string, streams []*StreamDef, udp *udpbus.Sender, logger *log.Logger) *Engine {
	return &Engine{
		name:    name,
		streams: streams,
		logger:  logger,
		stores:  make([]*Stores, len(streams)),
		udp:     udp,
	}
}

// Name returns the engine's connection label.
func (e *Engine) Name() string { return e.name }

// Init creates every requested shared-memory store for streams with a
// non-empty symbol list. A failure aborts startup.
func (e *Engine) Init() error {
	for i, def := range e.streams {
		if len(def.Symbols) == 0 {
			continue
		}
		st := &Stores{}
		var err error
		if def.Shm.Bbo != "" {
			if st.Bbo, err = shm.New[model.Bookticker](def.Shm.Bbo, def.Symbols, def.RingLen); err != nil {
				return err
			}
		}
		if def.Shm.Agg != "" {
			if st.Agg, err = shm.New[model.AggTrade](def.Shm.Agg, def.Symbols, def.RingLen); err != nil {
				return err
			}
		}
		if def.Shm.Trade != "" {
			if st.Trade, err = shm.New[model.Trade](def.Shm.Trade, def.Symbols, def.RingLen); err != nil {
				return err
			}
		}
		if def.Shm.Depth5 != "" {
			if st.Depth5, err = shm.New[model.Depth5](def.Shm.Depth5, def.Symbols, def.RingLen); err != nil {
				return err
			}
		}
		e.stores[i] = st
	}
	e.logger.Info("shm initialized", "engine", e.name, "streams", len(e.streams))
	return nil
}

// Start spawns, per stream, the worker thread and the redundant
// connection manager. It returns immediately; Stop tears everything
// down.
func (e *Engine) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	e.cancel = cancel
	e.group, ctx = errgroup.WithContext(ctx)

	for i, def := range e.streams {
		stores := e.stores[i]
		if stores == nil {
			continue
		}

		ch := make(chan model.Message, dedupQueueSize)
		e.chans = append(e.chans, ch)

		def := def
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			runWorker(def.Label, ch, stores, e.udp, def.CustomTradeDedup, def.DedupCPUCore, e.logger)
		}()

		mgr := redundancy.New(redundancy.Config{
			Count:             def.ConnCount,
			HeartbeatInterval: def.HeartbeatInterval,
			ReplaceThreshold:  def.ReplaceThreshold,
		}, func(id uint64) wsconn.Config {
			return wsconn.Config{
				Label:     def.Label,
				URL:       def.URL,
				Subscribe: def.Subscribe,
				Headers:   def.Headers,
				KeepAlive: def.KeepAlive,
			}
		}, e.logger)
		e.mgrs = append(e.mgrs, mgr)

		onText, onBinary := e.handlers(def, mgr, ch)
		e.group.Go(func() error {
			mgr.Start(ctx, onText, onBinary)
			return nil
		})

		if def.LatencyPrintInterval > 0 {
			e.group.Go(func() error {
				printLatency(ctx, def.Label, mgr, def.LatencyPrintInterval, e.logger)
				return nil
			})
		}
	}

	e.logger.Info("started", "engine", e.name, "streams", len(e.chans))
}

// handlers builds the connection callbacks for one stream: decode on the
// WebSocket task, record the per-connection latency sample, then push
// each message onto the worker channel without blocking.
func (e *Engine) handlers(def *StreamDef, mgr *redundancy.Manager, ch chan<- model.Message) (redundancy.TextHandler, redundancy.BinaryHandler) {
	dispatch := func(connID uint64, msgs []model.Message, localTS int64) {
		for _, msg := range msgs {
			if ts := eventTS(msg); ts > 0 {
				mgr.RecordSample(connID, localTS-ts)
			}
			select {
			case ch <- msg:
			default:
				e.logger.Warn("dedup channel full, dropping message", "stream", def.Label)
			}
		}
	}

	var onText redundancy.TextHandler
	if def.TextDecoder != nil {
		onText = func(connID uint64, data []byte, arrival time.Time) {
			localTS := arrival.UnixMicro()
			dispatch(connID, def.TextDecoder(data, localTS), localTS)
		}
	}
	var onBinary redundancy.BinaryHandler
	if def.BinaryDecoder != nil {
		onBinary = func(connID uint64, data []byte, arrival time.Time) {
			localTS := arrival.UnixMicro()
			dispatch(connID, def.BinaryDecoder(data, localTS), localTS)
		}
	}
	return onText, onBinary
}

func eventTS(msg model.Message) int64 {
	switch msg.Kind {
	case model.KindBookTicker:
		return msg.Bookticker.EventTS
	case model.KindTrade:
		return msg.Trade.EventTS
	case model.KindAggTrade:
		return msg.AggTrade.EventTS
	case model.KindDepth5:
		return msg.Depth5.EventTS
	default:
		return 0
	}
}

func printLatency(ctx context.Context, label string, mgr *redundancy.Manager, interval time.Duration, logger *log.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logger.Info("latency", "stream", label, "avg_us", mgr.Snapshot())
		}
	}
}

// Stop closes every connection, waits for the WebSocket tasks, then
// closes the worker channels so workers drain and exit, and finally
// unmaps the stores. Shared-memory files persist for readers.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	for _, mgr := range e.mgrs {
		mgr.Stop()
	}
	if e.group != nil {
		_ = e.group.Wait()
	}
	for _, ch := range e.chans {
		close(ch)
	}
	e.wg.Wait()

	for _, st := range e.stores {
		if st != nil {
			st.Close()
		}
	}
	if e.udp != nil {
		e.udp.Close()
	}
	e.logger.Info("stopped", "engine", e.name)
}
