// Package redundancy implements the N-connection manager: N parallel
// identical WebSocket subscriptions feeding the same callbacks, with a
// periodic tick that replaces the connection with the highest average
// latency. The venues' edge nodes exhibit transient latency spikes;
// running redundant subscriptions and admitting only first arrivals
// collapses to the minimum delivered latency.
package redundancy

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/alephtx/mdgw/internal/latency"
	"github.com/alephtx/mdgw/internal/wsconn"
)

// ConnFactory builds one connection for the given identifier. The
// returned Config's URL, Subscribe payload, Headers, and KeepAlive are
// identical across every slot; only ID varies.
type ConnFactory func(id uint64) wsconn.Config

// TextHandler is a connection-tagged text frame callback: callers can
// recover which redundant connection delivered a frame in order to
// attribute a later latency sample to it via RecordSample.
type TextHandler func(connID uint64, data []byte, arrival time.Time)

// BinaryHandler is the binary-frame analog of TextHandler.
type BinaryHandler func(connID uint64, data []byte, arrival time.Time)

// Manager owns N wsconn.Connection instances, one latency.Collector per
// slot, and the monotonically increasing identifier allocator. With a
// single connection, replacement is permanently disabled.
type Manager struct {
	factory ConnFactory
	logger  *log.Logger

	heartbeat  time.Duration
	replaceMin uint64 // sample-count threshold, in addition to the heartbeat tick

	mu       sync.Mutex
	nextID   uint64
	slots    []*slot
	onText   TextHandler
	onBinary BinaryHandler
}

type slot struct {
	conn *wsconn.Connection
	coll *latency.Collector
}

// Config configures a Manager.
type Config struct {
	Count             int
	HeartbeatInterval time.Duration
	ReplaceThreshold  uint64 // min sample count across all slots before an eviction is allowed
}

// New returns a Manager with Count slots, all using ids allocated from a
// shared counter starting at 1.
func New(cfg Config, factory ConnFactory, logger *log.Logger) *Manager {
	if cfg.Count < 1 {
		cfg.Count = 1
	}
	return &Manager{
		factory:    factory,
		logger:     logger,
		heartbeat:  cfg.HeartbeatInterval,
		replaceMin: cfg.ReplaceThreshold,
		slots:      make([]*slot, cfg.Count),
	}
}

// Start dials all N connections with the given callbacks and runs the
// replacement loop until ctx is canceled. It blocks the calling
// goroutine until every connection's Start returns (i.e. until ctx is
// canceled or every slot is individually stopped).
func (m *Manager) Start(ctx context.Context, onText TextHandler, onBinary BinaryHandler) {
	m.onText = onText
	m.onBinary = onBinary

	m.mu.Lock()
	var wg sync.WaitGroup
	for i := range m.slots {
		s := m.newSlot()
		m.slots[i] = s
		wg.Add(1)
		go m.runSlot(ctx, &wg, s)
	}
	m.mu.Unlock()

	if len(m.slots) > 1 && m.heartbeat > 0 {
		go m.replacementLoop(ctx)
	}

	wg.Wait()
}

func (m *Manager) runSlot(ctx context.Context, wg *sync.WaitGroup, s *slot) {
	defer wg.Done()
	id := s.conn.ID()
	_ = s.conn.Start(ctx, func(data []byte, arrival time.Time) {
		if m.onText != nil {
			m.onText(id, data, arrival)
		}
	}, func(data []byte, arrival time.Time) {
		if m.onBinary != nil {
			m.onBinary(id, data, arrival)
		}
	})
}

// Stop closes every active connection.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.slots {
		if s != nil {
			s.conn.Stop()
		}
	}
}

func (m *Manager) newSlot() *slot {
	m.nextID++
	id := m.nextID
	cfg := m.factory(id)
	cfg.ID = id
	return &slot{conn: wsconn.New(cfg, m.logger), coll: latency.NewCollector()}
}

// RecordSample records one event_ts/local_ts latency sample (in
// microseconds) against the connection identified by id. Called from the
// connection callbacks the pipeline engine installs, right after a frame
// from that connection has been decoded.
func (m *Manager) RecordSample(id uint64, sampleUS int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.slots {
		if s != nil && s.conn.ID() == id {
			s.coll.Record(sampleUS)
			return
		}
	}
}

// replacementLoop evaluates average latencies on every heartbeat tick
// and replaces the slowest connection. If no collector has recorded
// samples, all collectors are reset and no replacement is performed.
func (m *Manager) replacementLoop(ctx context.Context) {
	ticker := time.NewTicker(m.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *Manager) tick(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.slots) <= 1 {
		return
	}

	var anySamples bool
	var totalSamples uint64
	worstIdx := -1
	var worstAvg float64
	for i, s := range m.slots {
		if s == nil {
			continue
		}
		totalSamples += s.coll.Count()
		if s.coll.Count() == 0 {
			continue
		}
		anySamples = true
		avg := s.coll.Average()
		if worstIdx == -1 || avg > worstAvg {
			worstIdx = i
			worstAvg = avg
		}
	}

	if !anySamples {
		for _, s := range m.slots {
			if s != nil {
				s.coll.Reset()
			}
		}
		return
	}

	if m.replaceMin > 0 && totalSamples < m.replaceMin {
		return
	}

	m.replaceSlot(ctx, worstIdx)
}

// replaceSlot stops the connection at idx, resets its collector,
// allocates a new identifier, and spins up a replacement with the same
// configuration installed at the same slot. The other N-1 connections
// keep delivering during the gap since replacement is sequential but
// confined to one slot.
func (m *Manager) replaceSlot(ctx context.Context, idx int) {
	old := m.slots[idx]
	m.logger.Info("replacing slowest connection", "slot", idx, "old_id", old.conn.ID(), "avg_us", old.coll.Average())
	old.conn.Stop()
	old.coll.Reset()

	next := m.newSlot()
	m.slots[idx] = next

	var wg sync.WaitGroup
	wg.Add(1)
	go m.runSlot(ctx, &wg, next)
}

// Snapshot returns the current average latency (microseconds) of every
// slot, in slot order, for the latency-print ticker. Slots with no
// samples report 0.
func (m *Manager) Snapshot() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]float64, len(m.slots))
	for i, s := range m.slots {
		if s != nil {
			out[i] = s.coll.Average()
		}
	}
	return out
}
