package udpbus

import (
	"net"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/alephtx/mdgw/internal/config"
	"github.com/alephtx/mdgw/internal/model"
	"github.com/alephtx/mdgw/internal/shm"
)

// Module is the udp exchange kind: it binds the configured address and
// mirrors the bus into shared memory on a downstream host. It plays the
// same init/start/stop role a venue engine does.
type Module struct {
	cfg    *config.ConnectionConfig
	logger *log.Logger

	ingress  Ingress
	receiver *Receiver
	wg       sync.WaitGroup
}

// NewModule returns an unstarted Module for a connection whose exchange
// field is "udp".
func NewModule(conn *config.ConnectionConfig, logger *log.Logger) *Module {
	return &Module{cfg: conn, logger: logger}
}

// Name identifies the module in supervisor logs.
func (m *Module) Name() string { return "udp" }

// Init creates the configured spot and futures store sets.
func (m *Module) Init() error {
	recv := m.cfg.UDPReceiver
	if recv == nil {
		return nil
	}
	size := m.cfg.EffectiveMdSize()

	var err error
	if len(recv.SpotSymbols) > 0 {
		if m.ingress.Spot, err = newStoreSet(m.cfg.ShmPrefix, recv.SpotShm, recv.SpotSymbols, size); err != nil {
			return err
		}
	}
	if len(recv.UBaseSymbols) > 0 {
		if m.ingress.Futures, err = newStoreSet(m.cfg.ShmPrefix, recv.UBaseShm, recv.UBaseSymbols, size); err != nil {
			return err
		}
	}
	m.logger.Info("shm initialized", "engine", "udp",
		"spot_symbols", len(recv.SpotSymbols), "ubase_symbols", len(recv.UBaseSymbols))
	return nil
}

func newStoreSet(prefix string, names config.ShmNames, symbols []string, size uint32) (StoreSet, error) {
	var set StoreSet
	var err error
	if names.Bbo != "" {
		if set.Bbo, err = shm.New[model.Bookticker](prefix+names.Bbo, symbols, size); err != nil {
			return set, err
		}
	}
	if names.Agg != "" {
		if set.Agg, err = shm.New[model.AggTrade](prefix+names.Agg, symbols, size); err != nil {
			return set, err
		}
	}
	if names.Trade != "" {
		if set.Trade, err = shm.New[model.Trade](prefix+names.Trade, symbols, size); err != nil {
			return set, err
		}
	}
	if names.Depth5 != "" {
		if set.Depth5, err = shm.New[model.Depth5](prefix+names.Depth5, symbols, size); err != nil {
			return set, err
		}
	}
	return set, nil
}

// Start binds the receiver socket and launches the read loop.
func (m *Module) Start() error {
	recv := m.cfg.UDPReceiver
	if recv == nil {
		return nil
	}
	addr := net.JoinHostPort(recv.IP, strconv.Itoa(recv.Port))
	r, err := NewReceiver(addr, m.ingress.Callbacks(), m.logger)
	if err != nil {
		return err
	}
	m.receiver = r
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		_ = r.Run()
	}()
	m.logger.Info("udp ingress listening", "addr", addr)
	return nil
}

// Stop closes the socket, waits for the read loop, and unmaps stores.
// Backing shm files persist for readers.
func (m *Module) Stop() {
	if m.receiver != nil {
		m.receiver.Close()
	}
	m.wg.Wait()
	m.ingress.Spot.close()
	m.ingress.Futures.close()
	m.logger.Info("stopped", "engine", "udp")
}

func (s *StoreSet) close() {
	if s.Bbo != nil {
		s.Bbo.Close()
	}
	if s.Agg != nil {
		s.Agg.Close()
	}
	if s.Trade != nil {
		s.Trade.Close()
	}
	if s.Depth5 != nil {
		s.Depth5.Close()
	}
}
