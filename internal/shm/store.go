// Package shm implements the named-mmap ring store: one region per
// (stream, record-kind), single-writer many-reader, lock-free publication
// via a release/acquire atomic index.
//
// Region layout:
//
//	[ global header: total-updates u64, instrument-count u32, buffer-size u32 ]
//	[ instrument slot 0: instrument header + T[buffer-size] ]
//	[ instrument slot 1: ... ]
package shm

import (
	"sync/atomic"
	"unsafe"

	"github.com/alephtx/mdgw/internal/model"
)

const globalHeaderSize = 16 // totalUpdates(8) + instrumentCount(4) + bufferSize(4)

// globalHeader is the region-wide header, mapped over the first
// globalHeaderSize bytes of the file.
type globalHeader struct {
	TotalUpdates    uint64
	InstrumentCount uint32
	BufferSize      uint32
}

// instrumentHeader precedes each instrument's ring of records.
type instrumentHeader struct {
	Symbol       model.Symbol
	CurrentIndex int64 // atomic; -1 means "never written"
	RingLen      uint32
	_pad         uint32
}

const instrumentHeaderSize = model.SymbolLen + 8 + 4 + 4

// Store is a single mmap region holding one ring per configured symbol for
// a fixed record type T. T must be a fixed-size, pointer-free struct.
type Store[T any] struct {
	name   string
	region *region

	global *globalHeader
	slots  map[string]*slot[T]

	recordSize  int
	bufferSize  uint32
	symbolOrder []string
}

type slot[T any] struct {
	header *instrumentHeader
	ring   []byte // recordSize * bufferSize bytes, record i at ring[i*recordSize:]
}

// New creates (or truncates and re-creates) the named shm region under
// /dev/shm for the given symbols and per-instrument ring length. Stale
// regions of the same name are removed first; stores are never unlinked
// on Close so readers may outlive the writer. Off Linux, a heap
// allocation substitutes for the mmap (region_other.go).
func New[T any](name string, symbols []string, bufferSize uint32) (*Store[T], error) {
	var zero T
	recordSize := int(unsafe.Sizeof(zero))

	instrumentSize := instrumentHeaderSize + recordSize*int(bufferSize)
	totalSize := globalHeaderSize + instrumentSize*len(symbols)

	region, err := mapRegion(name, totalSize)
	if err != nil {
		return nil, &model.ShmError{Name: name, Err: err}
	}
	data := region.data

	s := &Store[T]{
		name:       name,
		region:     region,
		global:     (*globalHeader)(unsafe.Pointer(&data[0])),
		slots:      make(map[string]*slot[T], len(symbols)),
		recordSize: recordSize,
		bufferSize: bufferSize,
	}
	s.global.InstrumentCount = uint32(len(symbols))
	s.global.BufferSize = bufferSize

	off := globalHeaderSize
	for _, sym := range symbols {
		hdr := (*instrumentHeader)(unsafe.Pointer(&data[off]))
		hdr.Symbol = model.SymbolFromString(sym)
		atomic.StoreInt64(&hdr.CurrentIndex, -1)
		hdr.RingLen = bufferSize
		ringOff := off + instrumentHeaderSize
		s.slots[sym] = &slot[T]{
			header: hdr,
			ring:   data[ringOff : ringOff+recordSize*int(bufferSize)],
		}
		s.symbolOrder = append(s.symbolOrder, sym)
		off += instrumentSize
	}

	return s, nil
}

// Write publishes rec for symbol. Returns false if symbol is not a
// configured instrument for this store (write is a no-op, not a panic).
func (s *Store[T]) Write(symbol string, rec T) bool {
	sl, ok := s.slots[symbol]
	if !ok {
		return false
	}

	current := atomic.LoadInt64(&sl.header.CurrentIndex)
	next := current + 1
	idx := uint32(next) % sl.header.RingLen

	dst := (*T)(unsafe.Pointer(&sl.ring[int(idx)*s.recordSize]))
	*dst = rec

	atomic.StoreInt64(&sl.header.CurrentIndex, next)
	atomic.AddUint64(&s.global.TotalUpdates, 1)
	return true
}

// ReadLatest returns the most recently published record for symbol, or
// false if the symbol is unknown or nothing has been written yet.
//
// A reader racing a wrap-around write may observe a torn record; the
// "latest wins" consumer model accepts this in exchange for branchless
// publication.
func (s *Store[T]) ReadLatest(symbol string) (T, bool) {
	var zero T
	sl, ok := s.slots[symbol]
	if !ok {
		return zero, false
	}

	idx := atomic.LoadInt64(&sl.header.CurrentIndex)
	if idx < 0 {
		return zero, false
	}

	slot := uint32(idx) % sl.header.RingLen
	src := (*T)(unsafe.Pointer(&sl.ring[int(slot)*s.recordSize]))
	return *src, true
}

// Close unmaps the region. The backing file is left on disk so existing
// readers continue to observe it.
func (s *Store[T]) Close() error {
	return s.region.close()
}
