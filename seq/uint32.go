package seq

import (
	"encoding/binary"
	"io"
	"iter"
	"math/bits"
	"sync/atomic"

	"github.com/hupe1980/memgo"
	"github.com/hupe1980/memgo/internal/conv"
)

// nodeHeadroom is the free-byte threshold below which a byte node is closed.
// Any varint is at most binary.MaxVarintLen32 bytes, so a reservation taken
// while more than nodeHeadroom bytes remain can never cross the node.
const nodeHeadroom = 7

// minNodeCapacity keeps nodes usable: a node of nodeHeadroom bytes or fewer
// could never accept a single append.
const minNodeCapacity = 16

// byteNode holds one segment of the encoded stream. The byte range
// [0, used) is always a concatenation of complete varints, so a decoder can
// start at any node without peeking at its predecessor.
type byteNode struct {
	data []byte
	used atomic.Int64
	next atomic.Pointer[byteNode]
}

func (n *byteNode) limit() int64 {
	return min(n.used.Load(), int64(len(n.data)))
}

// Uint32 is a grow-only ordered sequence of unsigned 32-bit integers stored
// as little-endian base-128 varints in arena-backed byte nodes. Appends are
// lock-free; concurrent appends are totally ordered by the order in which
// their byte reservations succeed.
type Uint32 struct {
	arena  *memgo.Arena
	head   *byteNode
	tail   atomic.Pointer[byteNode]
	growth float64
}

// NewUint32 creates a compressed append-only sequence over the given arena.
func NewUint32(arena *memgo.Arena, opts ...Option) (*Uint32, error) {
	o := applyOptions(opts)
	capacity := o.initialCapacity
	if capacity < minNodeCapacity {
		capacity = minNodeCapacity
	}

	s := &Uint32{
		arena:  arena,
		growth: o.growthFactor,
	}

	head, err := s.newNode(capacity)
	if err != nil {
		return nil, err
	}
	s.head = head
	s.tail.Store(head)

	return s, nil
}

func (s *Uint32) newNode(capacity int) (*byteNode, error) {
	data, err := s.arena.Alloc(capacity, 1)
	if err != nil {
		return nil, err
	}
	return &byteNode{data: data}, nil
}

// Append encodes v as one to five varint bytes and appends them. The byte
// range is reserved with a single CAS taken only while more than
// nodeHeadroom bytes remain, so an append never straddles two nodes and a
// node never holds a partial varint.
func (s *Uint32) Append(v uint32) error {
	encLen := int64(varintLen32(v))

	for {
		tail := s.tail.Load()
		capacity := int64(len(tail.data))
		used := tail.used.Load()

		if capacity-used > nodeHeadroom {
			if !tail.used.CompareAndSwap(used, used+encLen) {
				continue // another writer reserved first
			}
			binary.PutUvarint(tail.data[used:used+encLen], uint64(v))
			return nil
		}

		next, err := s.newNode(grow(int(capacity), s.growth))
		if err != nil {
			return err
		}
		if s.tail.CompareAndSwap(tail, next) {
			tail.next.Store(next)
		}
		// A lost race abandons next; the arena reclaims it at rewind.
	}
}

// All returns an iterator over every appended value in append order. The
// iterator is single-pass and invalidated by the arena's Rewind.
func (s *Uint32) All() iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		for n := s.head; n != nil; n = n.next.Load() {
			buf := n.data[:n.limit()]
			for len(buf) > 0 {
				raw, size := binary.Uvarint(buf)
				if size <= 0 {
					return // racing an in-flight append; stop at the committed prefix
				}
				v, err := conv.Uint64ToUint32(raw)
				if err != nil {
					return
				}
				if !yield(v) {
					return
				}
				buf = buf[size:]
			}
		}
	}
}

// WriteTo writes the concatenated byte content of the node chain, truncated
// at each node's used prefix. The output is a plain little-endian base-128
// stream: any varint reader decodes it back to the exact appended sequence.
func (s *Uint32) WriteTo(w io.Writer) (int64, error) {
	var written int64
	for n := s.head; n != nil; n = n.next.Load() {
		m, err := w.Write(n.data[:n.limit()])
		written += int64(m)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// varintLen32 returns the encoded length of v: seven payload bits per byte,
// minimum one byte.
func varintLen32(v uint32) int {
	return (bits.Len32(v|1) + 6) / 7
}
