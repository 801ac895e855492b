package seq

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"reflect"
	"sync/atomic"
	"unsafe"

	"github.com/hupe1980/memgo"
)

var (
	// ErrPointerType is returned when a sequence element type contains
	// pointers. Arena memory is invisible to the garbage collector, so a
	// pointer stored there would not keep its referent alive.
	ErrPointerType = errors.New("seq: element type must not contain pointers")

	// ErrCapacityOverflow is returned when a node's byte size does not fit
	// in an int.
	ErrCapacityOverflow = errors.New("seq: node capacity overflows")
)

// node holds one segment of the sequence. data is carved from the arena;
// the header lives on the Go heap so the collector can see next.
type node[T any] struct {
	data []T
	used atomic.Int64 // reserved slots; any value >= len(data) means closed
	next atomic.Pointer[node[T]]
}

// limit returns the number of readable elements. Reservations may overshoot
// the node, so used is bounded by the capacity.
func (n *node[T]) limit() int64 {
	return min(n.used.Load(), int64(len(n.data)))
}

// Array is a grow-only ordered sequence of fixed-layout elements stored in a
// singly linked chain of arena-backed nodes. Appends are lock-free; the
// chain only ever grows and nodes are reclaimed by the arena's Rewind.
//
// Random access walks the node chain and is O(n) in the number of nodes;
// iterate with All for hot loops.
type Array[T any] struct {
	arena     *memgo.Arena
	head      *node[T]
	tail      atomic.Pointer[node[T]]
	growth    float64
	elemSize  int
	elemAlign int
}

// NewArray creates an append-only array over the given arena. T must be a
// pointer-free type; NewArray returns ErrPointerType otherwise.
func NewArray[T any](arena *memgo.Arena, opts ...Option) (*Array[T], error) {
	var zero T
	typ := reflect.TypeOf(&zero).Elem()
	if typeHasPointers(typ) {
		return nil, fmt.Errorf("%w: %s", ErrPointerType, typ)
	}

	o := applyOptions(opts)

	s := &Array[T]{
		arena:     arena,
		growth:    o.growthFactor,
		elemSize:  int(unsafe.Sizeof(zero)),
		elemAlign: int(unsafe.Alignof(zero)),
	}

	head, err := s.newNode(o.initialCapacity)
	if err != nil {
		return nil, err
	}
	s.head = head
	s.tail.Store(head)

	return s, nil
}

func (s *Array[T]) newNode(capacity int) (*node[T], error) {
	n := &node[T]{}

	if s.elemSize == 0 {
		n.data = make([]T, capacity)
		return n, nil
	}

	if capacity > math.MaxInt/s.elemSize {
		return nil, ErrCapacityOverflow
	}

	raw, err := s.arena.Alloc(capacity*s.elemSize, s.elemAlign)
	if err != nil {
		return nil, err
	}
	n.data = unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(raw))), capacity)

	return n, nil
}

// Append appends a copy of v. Concurrent appends are totally ordered by the
// order in which their slot reservations succeed. Append fails only when the
// arena reports out of memory under the error-propagation policy.
func (s *Array[T]) Append(v T) error {
	for {
		tail := s.tail.Load()

		// Reserve a slot.
		slot := tail.used.Add(1) - 1
		if slot < int64(len(tail.data)) {
			tail.data[slot] = v
			return nil
		}

		// The reservation overshot the node. The clamp below is a hint for
		// observers, not load-bearing: it races with other reservations,
		// and readers bound by the capacity regardless. The invariant
		// used <= capacity is re-established before next is published.
		tail.used.Store(int64(len(tail.data)))

		next, err := s.newNode(grow(len(tail.data), s.growth))
		if err != nil {
			return err
		}
		if s.tail.CompareAndSwap(tail, next) {
			tail.next.Store(next)
		}
		// A lost race abandons next; the arena reclaims it at rewind.
	}
}

// Last returns the most recently appended element. It reports false when
// the sequence is empty or the newest node has no completed element yet.
func (s *Array[T]) Last() (T, bool) {
	tail := s.tail.Load()
	limit := tail.limit()
	if limit == 0 {
		var zero T
		return zero, false
	}
	return tail.data[limit-1], true
}

// At returns the element at the given position in append order. The node
// chain is walked from the head, so cost is O(n) in the number of nodes.
func (s *Array[T]) At(index int64) (T, bool) {
	if index >= 0 {
		for n := s.head; n != nil; n = n.next.Load() {
			limit := n.limit()
			if index < limit {
				return n.data[index], true
			}
			index -= limit
		}
	}
	var zero T
	return zero, false
}

// All returns an iterator over every element in append order. The iterator
// is single-pass and invalidated by the arena's Rewind. Appends whose node
// was not yet linked when the iteration reached the end of the chain appear
// in a later iteration.
func (s *Array[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for n := s.head; n != nil; n = n.next.Load() {
			// used must be read before following next: the bound
			// used <= capacity is only guaranteed once the successor
			// is published.
			limit := n.limit()
			for i := int64(0); i < limit; i++ {
				if !yield(n.data[i]) {
					return
				}
			}
		}
	}
}

// typeHasPointers reports whether values of t contain pointers the garbage
// collector would need to see.
func typeHasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Uintptr, reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Array:
		return typeHasPointers(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if typeHasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return true
	}
}
